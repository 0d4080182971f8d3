package advisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/derive"
	"github.com/zeusync/drgpu/internal/core/stats"
	"github.com/zeusync/drgpu/internal/core/tree"
)

func testConfig() *config.Configuration {
	return &config.Configuration{
		Name:                     "test",
		WarpSize:                 32,
		QuadrantsPerSM:           4,
		SignificantStallFraction: 0.05,
		ConflictHighThreshold:    1.5,
		LowActiveWarpsPerCycle:   8,
		LowL1HitRate:             0.5,
		HighL1HitRate:            0.8,
		HighL1Throughput:         0.8,
		HighQuadrantImbalance:    0.25,
		HighNarrowLoadShare:      0.5,
		HighActiveThreadsPerInst: 24,
		MaxActiveThreadsPerInst:  32,
	}
}

// fixture builds Idle with the given first level stall shares.
func fixture(t *testing.T, stalls map[string]float64) (*Input, *tree.Tree) {
	t.Helper()
	tr := tree.New(tree.NewNode("Idle", tree.NodeNormal).SetPercentage(0.5))
	reg := stats.NewRegistry()
	for name, v := range stalls {
		reg.Set(name, v, stats.ValueTypePercentage)
		require.NoError(t, tr.Attach(tr.Root(), tree.NewNode(name, tree.NodeNormal).SetPercentage(v)))
	}
	return &Input{
		Tree:   tr,
		Stats:  reg,
		Config: testConfig(),
		Memory: derive.NewMemoryMetrics(),
	}, tr
}

func suggestions(n *tree.Node) []*tree.Node {
	var out []*tree.Node
	for _, c := range n.Children() {
		if c.Type == tree.NodeSuggestion {
			out = append(out, c)
		}
	}
	return out
}

func TestMemorySuggestLowHitRate(t *testing.T) {
	in, tr := fixture(t, map[string]float64{derive.StallLongScoreboard: 0.4})
	in.Memory.Set(derive.L1HitRate, 0.10)

	added := MemorySuggest(in)
	require.Len(t, added, 1)

	stall, _ := tr.Find(derive.StallLongScoreboard)
	got := suggestions(stall)
	require.Len(t, got, 1)
	assert.Same(t, added[0], got[0])
	assert.Equal(t, tree.NodeSuggestion, got[0].Type)
	assert.Nil(t, got[0].Percentage)
	assert.Contains(t, got[0].SuffixLabel, "10.00%")
}

func TestMemorySuggestHighHitRate(t *testing.T) {
	in, tr := fixture(t, map[string]float64{derive.StallLongScoreboard: 0.4})
	in.Memory.Set(derive.L1HitRate, 0.95)

	assert.Empty(t, MemorySuggest(in))
	stall, _ := tr.Find(derive.StallLongScoreboard)
	assert.Empty(t, suggestions(stall))
}

func TestMemorySuggestSaturatedL1(t *testing.T) {
	in, _ := fixture(t, map[string]float64{derive.StallLongScoreboard: 0.4})
	in.Memory.Set(derive.L1HitRate, 0.95)
	in.Memory.Set(derive.UnitL1.ThroughputMetric(), 0.9)
	in.Memory.Bottleneck = derive.UnitL1

	added := MemorySuggest(in)
	require.Len(t, added, 1)
	assert.Contains(t, added[0].SuffixLabel, "shared memory")
}

func TestRulesWithoutTargetAreNoOps(t *testing.T) {
	in, tr := fixture(t, map[string]float64{})
	in.Memory.Set(derive.L1HitRate, 0.10)

	assert.Zero(t, Annotate(in))
	assert.Equal(t, 1, tr.Len())
}

func TestInsignificantStallsGetNoAdvice(t *testing.T) {
	in, _ := fixture(t, map[string]float64{derive.StallDrain: 0.01, derive.StallMembar: 0.02})
	assert.Empty(t, DrainSuggest(in))
	assert.Empty(t, MembarSuggest(in))
}

func TestBarrierSuggestWithFewWarps(t *testing.T) {
	in, tr := fixture(t, map[string]float64{derive.StallBarrier: 0.3})
	in.Stats.Set(derive.ActiveWarpsPerCycle, 4, stats.ValueTypeFloat)

	added := BarrierSuggest(in)
	require.Len(t, added, 2)
	assert.NotEqual(t, added[0].Name, added[1].Name)

	stall, _ := tr.Find(derive.StallBarrier)
	assert.Len(t, suggestions(stall), 2)
}

func TestPipeSuggestTargetsBusiestPipe(t *testing.T) {
	in, tr := fixture(t, map[string]float64{derive.StallPipeThrottle: 0.2})
	stall, _ := tr.Find(derive.StallPipeThrottle)
	require.NoError(t, tr.Attach(stall, tree.NewNode("pipe_alu", tree.NodeNormal).SetPercentage(0.3)))
	require.NoError(t, tr.Attach(stall, tree.NewNode("pipe_fma", tree.NodeNormal).SetPercentage(0.9)))

	added := PipeSuggest(in)
	require.Len(t, added, 1)

	fma, _ := tr.Find("pipe_fma")
	assert.Equal(t, []*tree.Node{added[0]}, suggestions(fma))
	assert.True(t, strings.HasPrefix(added[0].SuffixLabel, "FP32 pipe"))
}

func TestDispatchSuggestUsesLargestReason(t *testing.T) {
	in, tr := fixture(t, map[string]float64{derive.StallDispatch: 0.1})
	in.Stats.Set("cant_dispatch_register_write", 0.2, stats.ValueTypePercentage)
	in.Stats.Set("cant_dispatch_register_read_f", 0.7, stats.ValueTypePercentage)
	stall, _ := tr.Find(derive.StallDispatch)
	require.NoError(t, tr.Attach(stall, tree.NewNode("cant_dispatch_register_read_f", tree.NodeNormal).SetPercentage(0.7)))

	added := DispatchSuggest(in)
	require.Len(t, added, 1)
	target, _ := tr.Find("cant_dispatch_register_read_f")
	assert.Len(t, suggestions(target), 1)
	assert.Contains(t, added[0].SuffixLabel, "bank conflicts")
}

func TestBranchResolvingDivergence(t *testing.T) {
	in, _ := fixture(t, map[string]float64{derive.StallBranchResolving: 0.1})
	in.Stats.Set(derive.InstExecuted, 100, stats.ValueTypeInt)
	in.Stats.Set(derive.ThreadInstNotPredOff, 1600, stats.ValueTypeInt)

	added := BranchResolvingSuggest(in)
	require.Len(t, added, 2)
	assert.Contains(t, added[1].SuffixLabel, "16.0 of 32 threads")
}

func TestSharedMemoryRules(t *testing.T) {
	in, _ := fixture(t, map[string]float64{derive.StallMIOThrottle: 0.2, derive.StallShortScoreboard: 0.2})
	in.Memory.Set(derive.SharedLDConflictPerRequest, 4)
	in.Memory.Set(derive.SharedSTConflictPerRequest, 1)
	in.Memory.Set(derive.SharedNarrowLoadShare, 0.75)
	in.Shared = derive.Group{{Name: "shared_ld_32b_executed", Stat: stats.New("shared_ld_32b_executed", 3, stats.ValueTypeInt)}}

	assert.Len(t, MIOThrottleSuggest(in), 2)
	assert.Len(t, ShortScoreboardSuggest(in), 1)
}

func TestQuadrantImbalance(t *testing.T) {
	in, tr := fixture(t, map[string]float64{derive.StallWait: 0.3, derive.StallBarrier: 0.2})

	uneven := stats.New(derive.StallWait, 0.3, stats.ValueTypePercentage)
	uneven.UnitValues = map[string]float64{"q0": 0.02, "q1": 0.02, "q2": 0.02, "q3": 0.24}
	uneven.Summarize()
	even := stats.New(derive.StallBarrier, 0.2, stats.ValueTypePercentage)
	even.UnitValues = map[string]float64{"q0": 0.05, "q1": 0.05, "q2": 0.05, "q3": 0.05}
	even.Summarize()

	reg := stats.NewRegistry()
	require.NoError(t, reg.Add(uneven))
	require.NoError(t, reg.Add(even))
	in.Stats = reg

	added := QuadrantImbalanceSuggest(in)
	require.Len(t, added, 1)
	wait, _ := tr.Find(derive.StallWait)
	assert.Len(t, suggestions(wait), 1)
}

func TestAnnotateCountsEverything(t *testing.T) {
	in, _ := fixture(t, map[string]float64{
		derive.StallWait:       0.3,
		derive.StallDrain:      0.1,
		derive.StallMembar:     0.1,
		derive.StallIMCMiss:    0.1,
		derive.StallLGThrottle: 0.01,
	})
	assert.Equal(t, 4, Annotate(in))
}
