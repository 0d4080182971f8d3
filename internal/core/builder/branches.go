package builder

import (
	"github.com/zeusync/drgpu/internal/core/derive"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/stats"
	"github.com/zeusync/drgpu/internal/core/tree"
)

// AddPipeThrottleBranch shows the pipes whose utilization is significant.
func (b *Builder) AddPipeThrottleBranch(pipes derive.Group, parent *tree.Node) []*tree.Node {
	busy := make(derive.Group, 0, len(pipes))
	for _, e := range pipes {
		if e.Value() >= b.config.SignificantStallFraction {
			busy = append(busy, e)
		}
	}
	return b.AddBranch(busy, parent)
}

// AddLGThrottleBranch shows how global loads split by access width.
func (b *Builder) AddLGThrottleBranch(reg *stats.Registry, parent *tree.Node) []*tree.Node {
	if parent == nil {
		return nil
	}
	widths := derive.GlobalLoadWidths(reg)
	if len(widths) == 0 {
		b.diags.MissingCounter(diag.PhaseExpansion, "inst_mem_gld_*b")
		return nil
	}
	return b.AddBranch(widths.Shares(), parent)
}

// AddMIOThrottleBranch shows the shared load conflicts when they are high, then the split
// of shared loads by width.
func (b *Builder) AddMIOThrottleBranch(shared derive.Group, mm *derive.MemoryMetrics, parent *tree.Node) []*tree.Node {
	if parent == nil {
		return nil
	}
	var nodes []*tree.Node
	if n := b.conflictNode("mio_shared_ld_conflict", mm, derive.SharedLDConflictPerRequest, parent); n != nil {
		nodes = append(nodes, n)
	}
	return append(nodes, b.AddBranch(shared.Shares(), parent)...)
}

// AddShortScoreboardBranch shows the shared load and store conflicts that are high.
func (b *Builder) AddShortScoreboardBranch(mm *derive.MemoryMetrics, parent *tree.Node) []*tree.Node {
	if parent == nil {
		return nil
	}
	var nodes []*tree.Node
	if n := b.conflictNode("short_shared_ld_conflict", mm, derive.SharedLDConflictPerRequest, parent); n != nil {
		nodes = append(nodes, n)
	}
	if n := b.conflictNode("short_shared_st_conflict", mm, derive.SharedSTConflictPerRequest, parent); n != nil {
		nodes = append(nodes, n)
	}
	return nodes
}

func (b *Builder) conflictNode(name string, mm *derive.MemoryMetrics, metric string, parent *tree.Node) *tree.Node {
	v, ok := mm.Get(metric)
	if !ok || v <= b.config.ConflictHighThreshold {
		return nil
	}
	n := tree.NewNode(name, tree.NodeNormal).SetValue(v)
	if !b.attach(parent, n) {
		return nil
	}
	return n
}

// AddLatencyBranch hangs the latency decomposition under parent as a single chain
// avg_latency -> l1_latency -> tlb_latency -> l2_latency -> fb_latency. Latency nodes show
// cycles, not shares.
func (b *Builder) AddLatencyBranch(latency derive.Group, parent *tree.Node) []*tree.Node {
	if parent == nil {
		return nil
	}
	nodes := make([]*tree.Node, 0, len(latency))
	at := parent
	for _, e := range latency {
		n := tree.NewNode(e.Name, tree.NodeLatency).SetValue(e.Value())
		n.SuffixLabel = " cycles"
		if !b.attach(at, n) {
			break
		}
		nodes = append(nodes, n)
		at = n
	}
	return nodes
}

// AddThroughputBranch shows the bottleneck unit with its normalized throughput and the
// metrics that explain it. Conflict rates appear only above their thresholds and the
// coalescing ratio only below its threshold.
func (b *Builder) AddThroughputBranch(mm *derive.MemoryMetrics, unitStats derive.Group, parent *tree.Node) []*tree.Node {
	if parent == nil {
		return nil
	}
	throughput, ok := mm.Throughput(mm.Bottleneck)
	if !ok {
		b.diags.Addf(diag.PhaseExpansion, "no throughput for bottleneck unit %s, skipping throughput branch", mm.Bottleneck)
		return nil
	}

	unitNode := tree.NewNode(mm.Bottleneck.ThroughputMetric(), tree.NodeNormal).SetPercentage(throughput)
	unitNode.PrefixLabel = "bottleneck: "
	unitNode.SuffixLabel = " of peak"
	if !b.attach(parent, unitNode) {
		return nil
	}

	nodes := []*tree.Node{unitNode}
	for _, e := range unitStats {
		if !b.showMetric(e.Name, e.Value()) {
			continue
		}
		n := metricNode(e.Name, e.Stat)
		if b.attach(unitNode, n) {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (b *Builder) showMetric(name string, v float64) bool {
	switch name {
	case derive.L1ConflictRate:
		return v > b.config.HighL1ConflictRate
	case derive.L2BankConflictRate:
		return v > b.config.HighL2BankConflictRate
	case derive.WithinLoadCoalescingRatio:
		return v < b.config.WithinLoadCoalescingRatio
	default:
		return true
	}
}
