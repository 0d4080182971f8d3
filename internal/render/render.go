package render

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/zeusync/drgpu/internal/core/analysis"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
)

type Format string

const (
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDOT, FormatSVG, FormatJSON:
		return f, nil
	case "":
		return FormatSVG, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q (want dot, svg or json)", s)
	}
}

// Ext is the file extension of the format, with the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Write renders res in format f.
func Write(ctx context.Context, w io.Writer, res *analysis.Result, f Format, diags *diag.Collector) error {
	if res == nil {
		return ErrEmptyTree
	}
	switch f {
	case FormatDOT:
		return WriteDOT(w, res.Tree, diags)
	case FormatSVG:
		graph, err := DOT(res.Tree, diags)
		if err != nil {
			return err
		}
		return SVG(ctx, graph, w)
	case FormatJSON:
		return WriteJSON(w, res, diags)
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", string(f))
	}
}

// WriteFile renders res into dir/name<ext>, creating dir, and returns the file path. The
// DOT source is kept next to an SVG.
func WriteFile(ctx context.Context, dir, name string, res *analysis.Result, f Format, diags *diag.Collector) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	base := filepath.Join(dir, name)

	if f == FormatSVG {
		if _, err := WriteFile(ctx, dir, name, res, FormatDOT, diags); err != nil {
			return "", err
		}
	}

	filename := base + f.Ext()
	out, err := os.Create(filename)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", filename)
	}
	if err := Write(ctx, out, res, f, diags); err != nil {
		out.Close()
		return "", err
	}
	return filename, errors.Wrapf(out.Close(), "close %s", filename)
}
