package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/zeusync/drgpu/internal/core/sourcemap"
)

const (
	columnLine   = "Line"
	columnSource = "Source"
	stallColumn  = "stall_"
)

// ReadSource parses a source report: one row per source line with its number, its text
// and one stall_<reason> column of samples per stall reason.
func ReadSource(rd io.Reader) (*sourcemap.Source, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyReport
	}
	if err != nil {
		return nil, errors.Wrap(err, "parse source report header")
	}

	lineIdx, textIdx := -1, -1
	stalls := make(map[int]string)
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == columnLine:
			lineIdx = i
		case h == columnSource:
			textIdx = i
		case strings.HasPrefix(h, stallColumn):
			stalls[i] = canonical("warp_cant_issue_" + strings.TrimPrefix(h, stallColumn))
		}
	}
	if lineIdx < 0 {
		return nil, errors.Wrap(ErrMissingColumn, columnLine)
	}

	src := sourcemap.NewSource()
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse source report")
		}
		if lineIdx >= len(row) {
			continue
		}
		line, err := strconv.Atoi(strings.TrimSpace(row[lineIdx]))
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedValue, "line number %q", row[lineIdx])
		}
		if textIdx >= 0 && textIdx < len(row) {
			src.SetLine(line, row[textIdx])
		}
		for idx, stall := range stalls {
			if idx >= len(row) {
				continue
			}
			v, ok, err := ParseValue(row[idx])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d, %s", line, stall)
			}
			if ok && v > 0 {
				src.Add(stall, line, v)
			}
		}
	}
	return src, nil
}

func ReadSourceFile(filename string) (*sourcemap.Source, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open source report")
	}
	defer f.Close()

	src, err := ReadSource(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filename)
	}
	return src, nil
}
