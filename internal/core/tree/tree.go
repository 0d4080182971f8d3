package tree

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// MemoryLatencyHierarchy is the chain of latency contributions highlighted in the rendered graph.
var MemoryLatencyHierarchy = [][2]string{
	{"avg_latency", "l1_latency"},
	{"l1_latency", "tlb_latency"},
	{"tlb_latency", "l2_latency"},
	{"l2_latency", "fb_latency"},
}

// LatencyEdge reports whether parent->child is part of the latency chain and the operator
// drawn on that edge.
func LatencyEdge(parent, child string) (string, bool) {
	for i, pair := range MemoryLatencyHierarchy {
		if pair[0] != parent || pair[1] != child {
			continue
		}
		if i == 0 {
			return "=", true
		}
		return "+", true
	}
	return "", false
}

// Tree owns the node hierarchy of one analysis and a name index over it. Names are unique
// within a tree.
type Tree struct {
	root *Node

	mu    sync.RWMutex
	index map[string]*Node
}

// New creates a tree rooted at root, indexing root and anything already below it.
func New(root *Node) *Tree {
	t := &Tree{root: root, index: make(map[string]*Node)}
	Walk(root, func(_, n *Node) bool {
		if _, taken := t.index[n.Name]; !taken {
			t.index[n.Name] = n
		}
		return true
	})
	return t
}

func (t *Tree) Root() *Node {
	return t.root
}

// Find returns the node registered under name.
func (t *Tree) Find(name string) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.index[name]
	return n, ok
}

func (t *Tree) Has(name string) bool {
	_, ok := t.Find(name)
	return ok
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.index)
}

// Attach appends child to parent. The child and any nodes already below it are indexed;
// attaching fails without modifying the tree when one of their names is taken.
func (t *Tree) Attach(parent, child *Node) error {
	if parent == nil || child == nil {
		return ErrNilNode
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.index[parent.Name] != parent {
		return errors.Wrapf(ErrNodeNotInTree, "attach %s under %s", child.Name, parent.Name)
	}

	var subtree []*Node
	seen := make(map[string]struct{})
	var dup string
	Walk(child, func(_, n *Node) bool {
		if _, taken := t.index[n.Name]; taken {
			dup = n.Name
			return false
		}
		if _, twice := seen[n.Name]; twice {
			dup = n.Name
			return false
		}
		seen[n.Name] = struct{}{}
		subtree = append(subtree, n)
		return true
	})
	if dup != "" {
		return errors.Wrapf(ErrDuplicateName, "%q under %s", dup, parent.Name)
	}

	for _, n := range subtree {
		t.index[n.Name] = n
	}
	parent.addChild(child)
	return nil
}

// AttachTo is Attach with the parent looked up by name.
func (t *Tree) AttachTo(parentName string, child *Node) error {
	parent, ok := t.Find(parentName)
	if !ok {
		return errors.Wrapf(ErrNodeNotInTree, "attach %s under missing %s", child.Name, parentName)
	}
	return t.Attach(parent, child)
}

// UniqueName returns base if it is free, otherwise base with the smallest free numeric suffix.
func (t *Tree) UniqueName(base string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, taken := t.index[base]; !taken {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if _, taken := t.index[candidate]; !taken {
			return candidate
		}
	}
}

// Walk visits every node breadth first. fn receives the parent (nil for the root) and
// returning false stops the walk.
func (t *Tree) Walk(fn func(parent, n *Node) bool) {
	Walk(t.root, fn)
}

// Walk visits the subtree rooted at start breadth first in child order.
func Walk(start *Node, fn func(parent, n *Node) bool) {
	if start == nil {
		return
	}
	type item struct{ parent, node *Node }
	queue := []item{{nil, start}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !fn(cur.parent, cur.node) {
			return
		}
		for _, c := range cur.node.Children() {
			queue = append(queue, item{cur.node, c})
		}
	}
}

// FindNode searches breadth first from start and returns the first node named name.
func FindNode(start *Node, name string) *Node {
	var found *Node
	Walk(start, func(_, n *Node) bool {
		if n.Name == name {
			found = n
			return false
		}
		return true
	})
	return found
}
