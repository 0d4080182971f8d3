package tree

import "strings"

// Wrap greedily breaks text into lines shorter than width. A word that alone reaches width
// is put on its own line. A line is closed before it would reach width, so every emitted
// line except such long words has fewer than width characters. Lines are joined by '\n'
// with no trailing break.
func Wrap(text string, width int) string {
	var lines []string
	cur := ""
	for _, word := range strings.Fields(text) {
		switch {
		case len(word) >= width:
			if cur != "" {
				lines = append(lines, cur)
			}
			lines = append(lines, word)
			cur = ""
		case cur == "":
			cur = word
		case len(cur)+1+len(word) < width:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return strings.Join(lines, "\n")
}
