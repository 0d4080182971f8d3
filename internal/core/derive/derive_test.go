package derive

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/stats"
)

func testConfig() *config.Configuration {
	return &config.Configuration{
		Name:                  "test",
		WarpSize:              32,
		QuadrantsPerSM:        4,
		L1ThroughputFix:       1,
		UTLBThroughputFix:     1,
		L1TLBThroughputFix:    2,
		L2ThroughputFix:       512,
		FBThroughputFix:       80,
		BytesPerL1Instruction: 128,
		BytesPerL2Instruction: 32,
		L1LatencyFix:          32,
		UTLBLatencyFix:        4,
		L1TLBLatencyFix:       20,
		L2Latency:             190,
		FBLatency:             300,
	}
}

func registry(values map[string]float64, order ...string) *stats.Registry {
	reg := stats.NewRegistry()
	for _, name := range order {
		reg.Set(name, values[name], stats.ValueTypeFloat)
	}
	return reg
}

func messages(c *diag.Collector) string {
	var b strings.Builder
	for _, d := range c.Items() {
		b.WriteString(d.Message)
		b.WriteString("\n")
	}
	return b.String()
}

func TestGroupByPrefixKeepsRegistryOrder(t *testing.T) {
	reg := registry(map[string]float64{
		"warp_cant_issue_wait":    0.3,
		"issueIPC":                1.2,
		"warp_cant_issue_barrier": 0.1,
	}, "warp_cant_issue_wait", "issueIPC", "warp_cant_issue_barrier")

	g := WarpCantIssue(reg)
	assert.Equal(t, []string{"warp_cant_issue_wait", "warp_cant_issue_barrier"}, g.Names())
	assert.InDelta(t, 0.4, g.Total(), 1e-12)

	s, ok := g.Get("warp_cant_issue_barrier")
	require.True(t, ok)
	assert.Equal(t, 0.1, s.Value)
}

func TestNamedGroups(t *testing.T) {
	reg := registry(map[string]float64{}, "pipe_fma", "alu_pipe_utilization", "inst_executed_op_fp32",
		"inst_executed_fp64_ops", "cant_dispatch_register_read_f", "inst_mem_gld_32b", "inst_mem_ldgsts_128b",
		"shared_ld_64b_executed", "shared_ld_requests")

	assert.Equal(t, []string{"pipe_fma", "alu_pipe_utilization"}, PipeUtilization(reg).Names())
	assert.Equal(t, []string{"inst_executed_op_fp32", "inst_executed_fp64_ops"}, InstructionDistribution(reg).Names())
	assert.Equal(t, []string{"cant_dispatch_register_read_f"}, CantDispatch(reg).Names())
	assert.Equal(t, []string{"inst_mem_gld_32b", "inst_mem_ldgsts_128b"}, GlobalLoadWidths(reg).Names())
	assert.Equal(t, []string{"shared_ld_64b_executed"}, SharedLoadWidths(reg).Names())
	assert.Equal(t, []string{"shared_ld_64b_executed"},
		GroupByPattern(reg, regexp.MustCompile(`shared_ld_(\d+)b_executed`)).Names())
}

func TestSelectPolicy(t *testing.T) {
	reg := registry(map[string]float64{"a": 0.125, "b": 0, "c": 0.5, "d": 0.25, "e": 0.125},
		"a", "b", "c", "d", "e")
	g := GroupByPrefix(reg, "")

	assert.Equal(t, []string{"a", "c", "d", "e"}, g.Select(0, 0).Names())
	assert.Equal(t, []string{"c", "d"}, g.Select(2, 0).Names())
	// c and d already cover 0.75 of the total.
	assert.Equal(t, []string{"c", "d"}, g.Select(8, 0.75).Names())
	assert.Equal(t, []string{"a", "c", "d"}, g.Select(8, 0.8).Names())
	assert.Empty(t, Group(nil).Select(8, 0.98))
}

func TestShares(t *testing.T) {
	reg := registry(map[string]float64{"inst_mem_gld_32b": 30, "inst_mem_gld_128b": 10},
		"inst_mem_gld_32b", "inst_mem_gld_128b")
	g := GlobalLoadWidths(reg)

	shares := g.Shares()
	require.Len(t, shares, 2)
	assert.InDelta(t, 0.75, shares[0].Value(), 1e-12)
	assert.Equal(t, stats.ValueTypePercentage, shares[0].Stat.ValueType)
	assert.Equal(t, 30.0, g[0].Value(), "source group is untouched")

	share, ok := NarrowShare(g)
	require.True(t, ok)
	assert.InDelta(t, 0.75, share, 1e-12)

	w, ok := LoadWidth("inst_mem_ldgsts_64b")
	assert.True(t, ok)
	assert.Equal(t, 64, w)
	_, ok = LoadWidth("pipe_fma")
	assert.False(t, ok)
}

func TestLongScoreboardThroughput(t *testing.T) {
	values := map[string]float64{
		ElapsedCycles:   1000,
		SMCount:         2,
		L1TexRequests:   1000,
		L1TexSectors:    400,
		L1TexHitSectors: 100,
		UTLBRequests:    200,
		L1TLBRequests:   100,
		L2Requests:      4000,
		DRAMBytes:       40000,
	}
	order := []string{ElapsedCycles, SMCount, L1TexRequests, L1TexSectors, L1TexHitSectors,
		UTLBRequests, L1TLBRequests, L2Requests, DRAMBytes}
	reg := registry(values, order...)
	mm := NewMemoryMetrics()
	diags := diag.NewCollector(nil)

	unit, g := LongScoreboardThroughput(reg, mm, testConfig(), diags)

	// L1 and FB tie at 0.5; the unit closer to the SM wins.
	assert.Equal(t, UnitL1, unit)
	assert.Equal(t, UnitL1, mm.Bottleneck)
	for u, want := range map[Unit]float64{UnitL1: 0.5, UnitUTLB: 0.1, UnitL1TLB: 0.05, UnitL2: 0.25, UnitFB: 0.5} {
		got, ok := mm.Throughput(u)
		require.True(t, ok, u)
		assert.InDelta(t, want, got, 1e-12, u)
	}

	hit, _ := mm.Get(L1HitRate)
	miss, _ := mm.Get(L1MissRate)
	assert.InDelta(t, 0.25, hit, 1e-12)
	assert.InDelta(t, 0.75, miss, 1e-12)
	across, _ := mm.Get(AcrossLoadCoalescingRatio)
	assert.InDelta(t, 0.075, across, 1e-12)

	assert.Equal(t, []string{L1HitRate, L1RPC}, g.Names())
	s, _ := g.Get(L1HitRate)
	assert.Equal(t, stats.ValueTypePercentage, s.ValueType)

	assert.False(t, mm.Has(L1ConflictRate))
	assert.Contains(t, messages(diags), "could not get stat l1tex_set_conflicts")
}

func TestLongScoreboardThroughputWithoutCounters(t *testing.T) {
	mm := NewMemoryMetrics()
	diags := diag.NewCollector(nil)

	unit, g := LongScoreboardThroughput(stats.NewRegistry(), mm, testConfig(), diags)
	assert.Equal(t, UnitUnknown, unit)
	assert.Empty(t, g)
	assert.Contains(t, messages(diags), "bottleneck unit unknown")
	assert.Equal(t, 1, strings.Count(messages(diags), "could not get stat l1tex_requests\n"))
}

func TestZeroDenominatorLeavesMetricUnset(t *testing.T) {
	reg := registry(map[string]float64{L1TexSectors: 0, L1TexHitSectors: 0}, L1TexSectors, L1TexHitSectors)
	mm := NewMemoryMetrics()
	diags := diag.NewCollector(nil)

	LongScoreboardThroughput(reg, mm, testConfig(), diags)
	assert.False(t, mm.Has(L1HitRate))
	assert.False(t, mm.Has(L1MissRate))
	assert.Contains(t, messages(diags), "cannot derive l1_hit_rate: zero denominator")
}

func TestLongScoreboardLatencyIsAdditive(t *testing.T) {
	mm := NewMemoryMetrics()
	mm.Set(L1MissRate, 0.5)
	mm.Set(UTLBMissRate, 0.1)
	mm.Set(L2MissRate, 0.4)

	g := LongScoreboardLatency(mm, testConfig(), diag.NewCollector(nil))
	require.Equal(t, []string{AvgLatency, L1Latency, TLBLatency, L2Latency, FBLatency}, g.Names())

	want := []float64{190, 32, 3, 95, 60}
	for i, e := range g {
		assert.InDelta(t, want[i], e.Value(), 1e-9, e.Name)
	}
	assert.InDelta(t, g[0].Value(), g[1:].Total(), 1e-9)

	avg, ok := mm.Get(AvgLatency)
	require.True(t, ok)
	assert.InDelta(t, 190, avg, 1e-9)
}

func TestLongScoreboardLatencyWithoutRates(t *testing.T) {
	diags := diag.NewCollector(nil)
	g := LongScoreboardLatency(NewMemoryMetrics(), testConfig(), diags)

	assert.Equal(t, 32.0, g[0].Value())
	assert.Equal(t, 3, diags.Len())
}

func TestSharedMemoryInfo(t *testing.T) {
	reg := registry(map[string]float64{
		SharedLDRequests:          100,
		SharedLDBankConflicts:     300,
		"shared_ld_32b_executed":  30,
		"shared_ld_128b_executed": 10,
	}, SharedLDRequests, SharedLDBankConflicts, "shared_ld_32b_executed", "shared_ld_128b_executed")
	mm := NewMemoryMetrics()
	diags := diag.NewCollector(nil)

	SharedMemoryInfo(reg, SharedLoadWidths(reg), mm, diags)

	ld, ok := mm.Get(SharedLDConflictPerRequest)
	require.True(t, ok)
	assert.InDelta(t, 3.0, ld, 1e-12)
	assert.False(t, mm.Has(SharedSTConflictPerRequest))
	narrow, _ := mm.Get(SharedNarrowLoadShare)
	assert.InDelta(t, 0.75, narrow, 1e-12)
	assert.Contains(t, messages(diags), "could not get stat shared_st_requests")
}

func TestMetricValueType(t *testing.T) {
	assert.Equal(t, stats.ValueTypePercentage, MetricValueType(L2HitRate))
	assert.Equal(t, stats.ValueTypePercentage, MetricValueType(UnitFB.ThroughputMetric()))
	assert.Equal(t, stats.ValueTypeInt, MetricValueType(FBTotalBytes))
	assert.Equal(t, stats.ValueTypeFloat, MetricValueType(BytesPerLoad))
}
