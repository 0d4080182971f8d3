package tree

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type NodeType uint8

const (
	NodeNormal NodeType = iota
	NodeSuggestion
	NodeSourceCode
	NodeLatency
)

func (t NodeType) String() string {
	switch t {
	case NodeNormal:
		return "normal"
	case NodeSuggestion:
		return "suggestion"
	case NodeSourceCode:
		return "source"
	case NodeLatency:
		return "latency"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// DisplayMode selects how the node quantity is printed in its label.
type DisplayMode uint8

const (
	ShowAsValue DisplayMode = iota
	ShowAsPercentage
)

const (
	ColorNormal     = "lightgrey"
	ColorSuggestion = "mediumseagreen"
	ColorSourceCode = "bisque"
	ColorLatency    = "lightsalmon"
)

// RootName labels a node with its bare name.
const RootName = "root"

// LabelWidth is the column at which display names and advice are wrapped.
const LabelWidth = 25

// Node is one element of the bottleneck tree. Percentage, when set, is the fraction of the
// parent bucket the node represents (or a raw value when Display is ShowAsValue); nil means
// there is nothing quantitative to show.
type Node struct {
	Name        string
	Type        NodeType
	Percentage  *float64
	PrefixLabel string
	SuffixLabel string
	Display     DisplayMode
	// Integral marks raw values that are counts and print without decimals.
	Integral bool

	mu       sync.Mutex
	children []*Node
}

func NewNode(name string, typ NodeType) *Node {
	return &Node{Name: name, Type: typ, Display: ShowAsPercentage}
}

// NewSuggestion creates an advice leaf.
func NewSuggestion(name, advice string) *Node {
	n := NewNode(name, NodeSuggestion)
	n.SuffixLabel = advice
	return n
}

// SetPercentage stores v and returns n for chaining.
func (n *Node) SetPercentage(v float64) *Node {
	n.Percentage = &v
	return n
}

// SetValue stores a raw value displayed without the percent sign.
func (n *Node) SetValue(v float64) *Node {
	n.Percentage = &v
	n.Display = ShowAsValue
	return n
}

// Value returns the stored quantity, 0 when none.
func (n *Node) Value() float64 {
	if n.Percentage == nil {
		return 0
	}
	return *n.Percentage
}

// Children returns a snapshot of the child list in display order.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

func (n *Node) ChildCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.children)
}

// addChild appends under the node lock; two rules decorating the same node may race.
func (n *Node) addChild(c *Node) {
	n.mu.Lock()
	n.children = append(n.children, c)
	n.mu.Unlock()
}

// Color returns the Graphviz fill color for the node type.
func (n *Node) Color() string {
	switch n.Type {
	case NodeSuggestion:
		return ColorSuggestion
	case NodeSourceCode:
		return ColorSourceCode
	case NodeLatency:
		return ColorLatency
	default:
		return ColorNormal
	}
}

// Label renders the node text. Lines are separated by '\n'. An unknown node type yields an
// empty label together with ErrUnknownNodeType; callers log it and keep rendering.
func (n *Node) Label() (string, error) {
	if n.Name == RootName {
		return n.Name, nil
	}

	switch n.Type {
	case NodeNormal, NodeLatency:
		var b strings.Builder
		b.WriteString(Wrap(n.DisplayName(), LabelWidth))
		b.WriteString("\n")
		b.WriteString(n.PrefixLabel)
		b.WriteString(n.formatQuantity())
		b.WriteString(n.SuffixLabel)
		return b.String(), nil
	case NodeSuggestion:
		return Wrap(n.SuffixLabel, LabelWidth), nil
	case NodeSourceCode:
		return n.SuffixLabel, nil
	default:
		return "", errors.Wrapf(ErrUnknownNodeType, "node %q has type %s", n.Name, n.Type)
	}
}

func (n *Node) formatQuantity() string {
	if n.Percentage == nil {
		return ""
	}
	v := *n.Percentage
	if n.Display == ShowAsPercentage {
		return fmt.Sprintf("%.2f%%", v*100)
	}
	if n.Integral {
		return strconv.FormatInt(int64(math.Round(v)), 10)
	}
	return fmt.Sprintf("%.2f", v)
}

// DisplayName resolves the human readable name: fixed words for suggestion and source
// nodes, then the name table, then the fallback patterns, then the raw name.
func (n *Node) DisplayName() string {
	switch n.Type {
	case NodeSuggestion:
		return "Suggestion"
	case NodeSourceCode:
		return "Source Code"
	}
	return DisplayName(n.Name)
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Name, n.Type)
}
