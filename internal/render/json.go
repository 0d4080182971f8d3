package render

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/zeusync/drgpu/internal/core/analysis"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/tree"
)

// Document is the JSON form of one analysis.
type Document struct {
	ID          string             `json:"id"`
	Kernel      string             `json:"kernel"`
	Bottleneck  string             `json:"bottleneck"`
	Memory      map[string]float64 `json:"memory,omitempty"`
	Suggestions int                `json:"suggestions"`
	Diagnostics []diag.Diagnostic  `json:"diagnostics,omitempty"`
	Tree        *NodeDocument      `json:"tree"`
}

type NodeDocument struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Type        string          `json:"type"`
	Value       *float64        `json:"value,omitempty"`
	Percentage  bool            `json:"percentage"`
	Label       string          `json:"label"`
	Color       string          `json:"color"`
	Children    []*NodeDocument `json:"children,omitempty"`
}

// Snapshot converts res. Label failures are reported to diags and leave the label empty.
func Snapshot(res *analysis.Result, diags *diag.Collector) (*Document, error) {
	if res == nil || res.Root() == nil {
		return nil, ErrEmptyTree
	}
	doc := &Document{
		ID:          res.ID.String(),
		Kernel:      res.KernelName,
		Bottleneck:  string(res.Bottleneck),
		Suggestions: res.Suggestions,
		Diagnostics: res.Diagnostics,
		Tree:        snapshotNode(res.Root(), diags),
	}
	if res.Memory != nil {
		doc.Memory = res.Memory.Map()
	}
	return doc, nil
}

func snapshotNode(n *tree.Node, diags *diag.Collector) *NodeDocument {
	label, err := n.Label()
	if err != nil {
		diags.Addf(diag.PhaseRender, "%v", err)
	}
	doc := &NodeDocument{
		Name:        n.Name,
		DisplayName: n.DisplayName(),
		Type:        n.Type.String(),
		Value:       n.Percentage,
		Percentage:  n.Display == tree.ShowAsPercentage,
		Label:       label,
		Color:       n.Color(),
	}
	for _, c := range n.Children() {
		doc.Children = append(doc.Children, snapshotNode(c, diags))
	}
	return doc
}

// WriteJSON writes the indented snapshot of res.
func WriteJSON(w io.Writer, res *analysis.Result, diags *diag.Collector) error {
	doc, err := Snapshot(res, diags)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(doc), "encode json")
}
