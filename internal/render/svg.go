package render

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// DotBinary is the Graphviz executable used for SVG output.
var DotBinary = "dot"

// SVG pipes a DOT graph through Graphviz.
func SVG(ctx context.Context, graph string, w io.Writer) error {
	bin, err := exec.LookPath(DotBinary)
	if err != nil {
		return errors.Wrap(ErrDotNotFound, err.Error())
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-Tsvg")
	cmd.Stdin = strings.NewReader(graph)
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "dot -Tsvg: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}
