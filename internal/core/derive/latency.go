package derive

import (
	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/stats"
)

// LongScoreboardLatency splits the average memory latency into the contribution of each
// hierarchy level so that avg_latency = l1_latency + tlb_latency + l2_latency + fb_latency.
// It expects the miss rates from LongScoreboardThroughput; unknown rates count as 0, which
// makes the result a lower bound. The group is ordered avg, l1, tlb, l2, fb.
func LongScoreboardLatency(mm *MemoryMetrics, cfg *config.Configuration, diags *diag.Collector) Group {
	rate := func(name string) float64 {
		v, ok := mm.Get(name)
		if !ok {
			diags.Addf(diag.PhaseDerive, "%s unknown, latency contribution treated as 0", name)
			return 0
		}
		return v
	}
	l1Miss := rate(L1MissRate)
	utlbMiss := rate(UTLBMissRate)
	l2Miss := rate(L2MissRate)

	l1 := cfg.L1LatencyFix
	tlb := l1Miss * (cfg.UTLBLatencyFix + utlbMiss*cfg.L1TLBLatencyFix)
	l2 := l1Miss * cfg.L2Latency
	fb := l1Miss * l2Miss * cfg.FBLatency

	levels := []struct {
		name  string
		value float64
	}{
		{AvgLatency, l1 + tlb + l2 + fb},
		{L1Latency, l1},
		{TLBLatency, tlb},
		{L2Latency, l2},
		{FBLatency, fb},
	}

	g := make(Group, 0, len(levels))
	for _, lv := range levels {
		mm.Set(lv.name, lv.value)
		g = append(g, Entry{Name: lv.name, Stat: stats.New(lv.name, lv.value, stats.ValueTypeFloat)})
	}
	return g
}
