// Package render turns an analysis tree into its outputs: Graphviz DOT, SVG through the
// dot executable and a JSON snapshot.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/tree"
)

const (
	graphName        = "hw tree"
	nodeShape        = "box"
	edgeColor        = "black"
	latencyEdgeColor = "firebrick"
)

// NodeID is the DOT identifier of a node. Node names are unique within a tree, so is the
// identifier.
func NodeID(name string) string {
	return "n" + strconv.FormatUint(xxhash.Sum64String(name), 16)
}

// WriteDOT writes t breadth first: every node as a filled box, then the edge from its
// parent. Edges of the memory latency chain are drawn in firebrick and labelled with the
// operator combining the contributions. A node whose label cannot be produced is drawn
// with an empty label and reported to diags.
func WriteDOT(w io.Writer, t *tree.Tree, diags *diag.Collector) error {
	if t == nil || t.Root() == nil {
		return ErrEmptyTree
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %s {\n", quote(graphName))
	t.Walk(func(parent, n *tree.Node) bool {
		label, err := n.Label()
		if err != nil {
			diags.Addf(diag.PhaseRender, "%v", err)
		}
		fmt.Fprintf(bw, "\t%s [label=%s color=%s shape=%s style=filled]\n",
			NodeID(n.Name), quote(label), n.Color(), nodeShape)

		if parent == nil {
			return true
		}
		color, edgeLabel := edgeColor, ""
		if op, ok := tree.LatencyEdge(parent.Name, n.Name); ok {
			color, edgeLabel = latencyEdgeColor, op
		}
		fmt.Fprintf(bw, "\t%s -> %s [label=%s color=%s]\n",
			NodeID(parent.Name), NodeID(n.Name), quote(edgeLabel), color)
		return true
	})
	bw.WriteString("}\n")

	return errors.Wrap(bw.Flush(), "write dot")
}

// DOT returns the graph of t as a string.
func DOT(t *tree.Tree, diags *diag.Collector) (string, error) {
	var b strings.Builder
	if err := WriteDOT(&b, t, diags); err != nil {
		return "", err
	}
	return b.String(), nil
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")

func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
