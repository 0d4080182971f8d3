// Package builder grows the bottleneck tree: the skeleton of first level stall reasons,
// then the sub-branches attached under skeleton nodes located by name.
package builder

import (
	"fmt"
	"math"
	"strings"

	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/derive"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/observability/log"
	"github.com/zeusync/drgpu/internal/core/stats"
	"github.com/zeusync/drgpu/internal/core/tree"
)

// RootNodeName is the name of the tree root, the share of cycles without an issued instruction.
const RootNodeName = "Idle"

var solUnits = []string{"SM", "L1", "L2", "Dram", "Compute_Memory"}

// Builder owns the tree while it is assembled. It is not safe for concurrent use.
type Builder struct {
	config *config.Configuration
	logger log.Log
	diags  *diag.Collector
	tree   *tree.Tree
}

func New(cfg *config.Configuration, logger log.Log, diags *diag.Collector) *Builder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Builder{
		config: cfg,
		logger: logger.Named("builder"),
		diags:  diags,
	}
}

// Tree returns the tree built so far, nil before Skeleton.
func (b *Builder) Tree() *tree.Tree {
	return b.tree
}

// Skeleton creates the root and its first level of warp stall reasons.
func (b *Builder) Skeleton(kernel string, reg *stats.Registry) *tree.Node {
	root := tree.NewNode(RootNodeName, tree.NodeNormal)

	retire, ok := reg.Value(derive.RetireIPC)
	if !ok {
		b.diags.MissingCounter(diag.PhaseSkeleton, derive.RetireIPC)
	}
	root.SetPercentage(1 - retire/float64(b.config.QuadrantsPerSM))
	if kernel != "" {
		root.PrefixLabel = kernel + "\n"
	}
	root.SuffixLabel = b.rootSuffix(reg)

	b.tree = tree.New(root)
	children := b.AddBranch(derive.WarpCantIssue(reg), root)
	b.logger.Debug("skeleton built",
		log.Float64("idle", root.Value()),
		log.Int("stall_reasons", len(children)),
	)
	return root
}

func (b *Builder) rootSuffix(reg *stats.Registry) string {
	var sb strings.Builder

	warps, hasWarps := reg.Value(derive.ActiveWarpsPerCycle)
	if !hasWarps {
		b.diags.MissingCounter(diag.PhaseSkeleton, derive.ActiveWarpsPerCycle)
	} else if perQuadrant := math.Ceil(warps / float64(b.config.QuadrantsPerSM)); perQuadrant > 0 {
		lowest := 100 * (1 - 1/perQuadrant)
		fmt.Fprintf(&sb, " (lowest possible: %d%% for %d active warps)", int(lowest), int(warps))
	}
	if limit := b.config.MaxActiveWarpsPerSM; hasWarps && limit > 0 {
		fmt.Fprintf(&sb, "\nOccupancy: %.2f%% of %d warps", 100*warps/float64(limit), limit)
	}

	var maxSOL float64
	var solUnit string
	for _, unit := range solUnits {
		name := "sol_" + strings.ToLower(unit)
		v, ok := reg.Value(name)
		if !ok {
			b.diags.MissingCounter(diag.PhaseSkeleton, name)
			continue
		}
		if v > maxSOL {
			maxSOL, solUnit = v, unit
		}
	}
	if solUnit != "" {
		fmt.Fprintf(&sb, "\nUtil/SOL: %.2f%% (%s)", maxSOL, solUnit)
	}

	if ipc, ok := reg.Value(derive.IssueIPC); ok {
		fmt.Fprintf(&sb, "\nIssue IPC: %.2f", ipc)
	} else {
		b.diags.MissingCounter(diag.PhaseSkeleton, derive.IssueIPC)
	}
	return sb.String()
}

// Target locates a node built by an earlier step. A missing node is recorded and the
// caller skips its sub-branch.
func (b *Builder) Target(name string) (*tree.Node, bool) {
	if b.tree == nil {
		b.diags.Addf(diag.PhaseExpansion, "no skeleton, cannot locate %s", name)
		return nil, false
	}
	n, ok := b.tree.Find(name)
	if !ok {
		b.diags.MissingNode(diag.PhaseExpansion, name)
	}
	return n, ok
}

// AddBranch appends one child per selected group entry under parent, in group order. The
// entry value is the child's share of the parent and is not rescaled. Entries are selected
// by the configured node count and cumulative share limits.
func (b *Builder) AddBranch(g derive.Group, parent *tree.Node) []*tree.Node {
	if parent == nil {
		return nil
	}
	selected := g.Select(b.config.MaxShownNodes, b.config.MaxShownPercentage)

	nodes := make([]*tree.Node, 0, len(selected))
	for _, e := range selected {
		n := tree.NewNode(e.Name, tree.NodeNormal).SetPercentage(e.Value())
		if b.attach(parent, n) {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (b *Builder) attach(parent, child *tree.Node) bool {
	phase := diag.PhaseExpansion
	if b.tree != nil && parent == b.tree.Root() {
		phase = diag.PhaseSkeleton
	}
	if b.tree == nil {
		b.diags.Addf(phase, "no skeleton, cannot attach %s", child.Name)
		return false
	}
	if err := b.tree.Attach(parent, child); err != nil {
		b.diags.Addf(phase, "skip %s: %v", child.Name, err)
		return false
	}
	return true
}

// metricNode creates a node for a derived metric, shown as a percentage for rates and as
// a raw value otherwise.
func metricNode(name string, s *stats.Stat) *tree.Node {
	n := tree.NewNode(name, tree.NodeNormal)
	if s.ValueType == stats.ValueTypePercentage {
		return n.SetPercentage(s.Value)
	}
	n.SetValue(s.Value)
	n.Integral = s.ValueType == stats.ValueTypeInt
	return n
}
