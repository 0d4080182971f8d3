// Package sourcemap attaches source code nodes to stall reasons: the lines of the kernel
// source that collected most of the samples of each stall.
package sourcemap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/derive"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/stats"
	"github.com/zeusync/drgpu/internal/core/tree"
)

const maxSourceText = 60

// Source holds the kernel source and the stall samples attributed to its lines.
type Source struct {
	// Lines[i] is the text of line i+1.
	Lines []string
	// Stalls maps a stall counter name to samples per line number.
	Stalls map[string]map[int]float64
}

func NewSource() *Source {
	return &Source{Stalls: make(map[string]map[int]float64)}
}

// Add accumulates samples of stall on line.
func (s *Source) Add(stall string, line int, samples float64) {
	perLine, ok := s.Stalls[stall]
	if !ok {
		perLine = make(map[int]float64)
		s.Stalls[stall] = perLine
	}
	perLine[line] += samples
}

// SetLine records the text of a 1-based line number.
func (s *Source) SetLine(line int, text string) {
	if line <= 0 {
		return
	}
	for len(s.Lines) < line {
		s.Lines = append(s.Lines, "")
	}
	s.Lines[line-1] = text
}

// Text returns the trimmed text of a 1-based line number, shortened for display.
func (s *Source) Text(line int) string {
	if line <= 0 || line > len(s.Lines) {
		return ""
	}
	text := strings.TrimSpace(s.Lines[line-1])
	if r := []rune(text); len(r) > maxSourceText {
		text = string(r[:maxSourceText-3]) + "..."
	}
	return text
}

// lineGroup orders the lines of one stall by samples, largest first, so that the display
// policy keeps the hottest lines in that order.
func (s *Source) lineGroup(stall string) derive.Group {
	perLine := s.Stalls[stall]
	lines := make([]int, 0, len(perLine))
	for line := range perLine {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if perLine[lines[i]] != perLine[lines[j]] {
			return perLine[lines[i]] > perLine[lines[j]]
		}
		return lines[i] < lines[j]
	})

	g := make(derive.Group, 0, len(lines))
	for _, line := range lines {
		name := strconv.Itoa(line)
		g = append(g, derive.Entry{Name: name, Stat: stats.New(name, perLine[line], stats.ValueTypeFloat)})
	}
	return g
}

// AddSourceCodeNodes attaches source code nodes under every stall node of the tree that
// has samples in src, within the configured source node limits.
func AddSourceCodeNodes(t *tree.Tree, stalls derive.Group, src *Source, cfg *config.Configuration, diags *diag.Collector) []*tree.Node {
	if src == nil || t == nil {
		return nil
	}
	var out []*tree.Node
	for _, stall := range stalls {
		parent, ok := t.Find(stall.Name)
		if !ok {
			continue
		}
		lines := src.lineGroup(stall.Name)
		total := lines.Total()
		if total <= 0 {
			continue
		}
		for _, e := range lines.Select(cfg.MaxShownSourceNodes, cfg.MaxShownSourcePercentage) {
			line, _ := strconv.Atoi(e.Name)
			n := tree.NewNode(t.UniqueName(fmt.Sprintf("%s_line_%d", stall.Name, line)), tree.NodeSourceCode)
			n.SuffixLabel = fmt.Sprintf("Line %d: %s\n%.2f%% of samples", line, src.Text(line), e.Value()/total*100)
			if err := t.Attach(parent, n); err != nil {
				diags.Addf(diag.PhaseSkeleton, "skip source line %d of %s: %v", line, stall.Name, err)
				continue
			}
			out = append(out, n)
		}
	}
	return out
}
