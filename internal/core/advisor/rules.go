package advisor

import (
	"fmt"
	"strings"

	"github.com/zeusync/drgpu/internal/core/derive"
	"github.com/zeusync/drgpu/internal/core/tree"
)

var pipeAdvice = map[string]string{
	"fma":         "FP32 pipe is busy: use packed half precision or tensor cores where accuracy allows",
	"alu":         "Integer and logic pipe is busy: simplify index arithmetic and hoist invariant integer operations out of loops",
	"lsu":         "Load store pipe is busy: use wider vector loads and keep reused data in registers",
	"xu":          "Special function pipe is busy: use fast math intrinsics or replace transcendental calls with arithmetic",
	"fp64":        "FP64 pipe is busy: use single precision where accuracy allows",
	"fma64lite":   "FP64 pipe is busy: use single precision where accuracy allows",
	"cbu":         "Branch pipe is busy: reduce divergent branches and warp synchronization",
	"adu":         "Address divergence pipe is busy: make indirect branch and constant addresses uniform across the warp",
	"tensor_fp":   "Tensor pipe is saturated: the kernel is compute bound on MMA, consider lower precision MMA",
	"tensor_int":  "Tensor pipe is saturated: the kernel is compute bound on integer MMA",
	"tensor_fp64": "DMMA pipe is saturated: consider TF32 or FP16 MMA where accuracy allows",
	"mma":         "Tensor pipe is saturated: the kernel is compute bound on MMA, consider lower precision MMA",
}

// pipeKind extracts the pipe from pipe_<kind> and <kind>_pipe_utilization names.
func pipeKind(name string) string {
	if strings.HasPrefix(name, "pipe_") {
		return strings.TrimPrefix(name, "pipe_")
	}
	return strings.TrimSuffix(name, "_pipe_utilization")
}

// PipeSuggest advises on the busiest pipe under a significant pipe throttle stall.
func PipeSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallPipeThrottle)
	if !ok {
		return nil
	}
	var busiest *tree.Node
	for _, c := range stall.Children() {
		if c.Type == tree.NodeNormal && (busiest == nil || c.Value() > busiest.Value()) {
			busiest = c
		}
	}
	if busiest == nil {
		return collect(in.suggest(stall, "Pipes are contended: spread work over different instruction types"))
	}
	advice, ok := pipeAdvice[pipeKind(busiest.Name)]
	if !ok {
		advice = fmt.Sprintf("%s is the busiest pipe: reduce the instructions issued to it", tree.DisplayName(busiest.Name))
	}
	return collect(in.suggest(busiest, advice))
}

// BarrierSuggest advises on block level synchronization.
func BarrierSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallBarrier)
	if !ok {
		return nil
	}
	out := []*tree.Node{in.suggest(stall, "Warps wait at __syncthreads(): split the work more evenly across the block or reduce the number of barriers")}
	if warps, ok := in.Stats.Value(derive.ActiveWarpsPerCycle); ok && warps < in.Config.LowActiveWarpsPerCycle {
		out = append(out, in.suggest(stall, fmt.Sprintf("Only %.1f active warps per cycle: use smaller blocks so other blocks can run while one waits at a barrier", warps)))
	}
	return collect(out...)
}

// BranchResolvingSuggest advises on divergence, using the active threads per instruction.
func BranchResolvingSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallBranchResolving)
	if !ok {
		return nil
	}
	out := []*tree.Node{in.suggest(stall, "Branch targets are resolved slowly: reduce control flow or replace branches with predication")}

	inst, okInst := in.Stats.Value(derive.InstExecuted)
	threads, okThreads := in.Stats.Value(derive.ThreadInstNotPredOff)
	if okInst && okThreads && inst > 0 {
		perInst := threads / inst
		if perInst < in.Config.HighActiveThreadsPerInst {
			out = append(out, in.suggest(stall, fmt.Sprintf(
				"Only %.1f of %.0f threads are active per instruction: reduce warp divergence", perInst, in.Config.MaxActiveThreadsPerInst)))
		}
	}
	return collect(out...)
}

var dispatchAdvice = map[string]string{
	"register_read_f":       "Register reads stall dispatch: reduce register bank conflicts by reusing operands",
	"register_read_m":       "MMA register reads stall dispatch: reorder MMA operands to avoid bank conflicts",
	"register_write":        "Register writes stall dispatch: avoid long chains of dependent writes to the same registers",
	"high_power_throttle":   "The SM is power throttled: reduce the density of expensive math instructions",
	"others":                "Dispatch is stalled: check the pipeline for structural hazards",
	"uniform_register_read": "Uniform register reads stall dispatch: reduce uniform datapath pressure",
}

// DispatchSuggest advises on the largest dispatch stall reason.
func DispatchSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallDispatch)
	if !ok {
		return nil
	}
	largest, ok := derive.CantDispatch(in.Stats).Largest()
	if !ok || largest.Value() <= 0 {
		return collect(in.suggest(stall, "Instructions are selected but cannot be dispatched: check register pressure and pipeline hazards"))
	}
	reason := strings.TrimPrefix(largest.Name, "cant_dispatch_")
	advice, ok := dispatchAdvice[reason]
	if !ok {
		advice = fmt.Sprintf("Dispatch mostly stalls on %s", tree.DisplayName(largest.Name))
	}
	target := stall
	if n, ok := in.node(largest.Name); ok {
		target = n
	}
	return collect(in.suggest(target, advice))
}

func DrainSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallDrain)
	if !ok {
		return nil
	}
	return collect(in.suggest(stall, "Warps wait for global stores before exit: coalesce the final stores or write less data at the end of the kernel"))
}

func IMCMissSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallIMCMiss)
	if !ok {
		return nil
	}
	return collect(in.suggest(stall, "Constant cache misses: keep constant accesses uniform across the warp and the constant working set small"))
}

// LGThrottleSuggest advises on the global load queue, preferring wider loads.
func LGThrottleSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallLGThrottle)
	if !ok {
		return nil
	}
	out := []*tree.Node{in.suggest(stall, "The global memory instruction queue is full: issue fewer, wider loads and stores")}
	if share, ok := derive.NarrowShare(derive.GlobalLoadWidths(in.Stats)); ok && share > in.Config.HighNarrowLoadShare {
		out = append(out, in.suggest(stall, fmt.Sprintf("%.0f%% of global loads are narrower than 128 bits: use vector types such as float4", share*100)))
	}
	return collect(out...)
}

// MemorySuggest advises on the memory hierarchy under the long scoreboard stall.
func MemorySuggest(in *Input) []*tree.Node {
	stall, ok := in.node(derive.StallLongScoreboard)
	if !ok {
		return nil
	}
	cfg := in.Config
	var out []*tree.Node
	check := func(name string, trigger func(v float64) bool, advice string) {
		if v, ok := in.metric(name); ok && trigger(v) {
			out = append(out, in.suggest(stall, fmt.Sprintf(advice, v*100)))
		}
	}

	check(derive.L1HitRate, func(v float64) bool { return v < cfg.LowL1HitRate },
		"L1 hit rate is %.2f%%: improve data reuse, tile through shared memory or reorder accesses for locality")
	check(derive.L1ConflictRate, func(v float64) bool { return v > cfg.HighL1ConflictRate },
		"%.2f%% of L1 requests hit set conflicts: change the access stride or pad arrays")
	check(derive.WithinLoadCoalescingRatio, func(v float64) bool { return v < cfg.WithinLoadCoalescingRatio },
		"Only %.2f%% of fetched bytes are used per request: make neighbouring threads access neighbouring addresses")
	check(derive.UTLBMissRate, func(v float64) bool { return v > cfg.HighUTLBMissRate },
		"uTLB miss rate is %.2f%%: improve page locality of the accesses")
	check(derive.L2MissRate, func(v float64) bool { return v > cfg.HighL2MissRate },
		"L2 miss rate is %.2f%%: shrink the working set or block the computation for L2 reuse")
	check(derive.L2BankConflictRate, func(v float64) bool { return v > cfg.HighL2BankConflictRate },
		"%.2f%% of L2 requests hit bank conflicts: spread concurrent accesses over more addresses")
	check(derive.CompressionSuccessRate, func(v float64) bool { return v < cfg.LowCompressRate },
		"Only %.2f%% of compressible writes compress: keep compressible data in dedicated allocations")

	if v, ok := in.metric(derive.FBAccessesPerActivate); ok && v < cfg.LowAccessPerActivate {
		out = append(out, in.suggest(stall, fmt.Sprintf("%.2f accesses per DRAM row activation: access memory more sequentially", v)))
	}
	if v, ok := in.metric(derive.AverageDRAMBanks); ok && v < cfg.LowBankPerAccess {
		out = append(out, in.suggest(stall, fmt.Sprintf("Only %.2f DRAM banks busy on average: interleave accesses across more memory", v)))
	}

	if in.Memory != nil && in.Memory.Bottleneck == derive.UnitL1 {
		if v, ok := in.metric(derive.L1HitRate); ok && v > cfg.HighL1HitRate {
			if tp, ok := in.Memory.Throughput(derive.UnitL1); ok && tp > cfg.HighL1Throughput {
				out = append(out, in.suggest(stall, "L1 bandwidth is saturated by hits: move hot data to shared memory or registers"))
			}
		}
	}
	return collect(out...)
}

func MembarSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallMembar)
	if !ok {
		return nil
	}
	return collect(in.suggest(stall, "Warps wait on memory fences: remove unneeded __threadfence() calls or narrow their scope"))
}

// MIOThrottleSuggest advises on shared memory instruction pressure.
func MIOThrottleSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallMIOThrottle)
	if !ok {
		return nil
	}
	var out []*tree.Node
	if v, ok := in.metric(derive.SharedLDConflictPerRequest); ok && v > in.Config.ConflictHighThreshold {
		out = append(out, in.suggest(stall, fmt.Sprintf("%.2f bank conflicts per shared load: pad shared arrays or change the access pattern", v)))
	}
	if v, ok := in.metric(derive.SharedNarrowLoadShare); ok && v > in.Config.HighNarrowLoadShare && len(in.Shared) > 0 {
		out = append(out, in.suggest(stall, fmt.Sprintf("%.0f%% of shared loads are narrower than 128 bits: load wider vectors from shared memory", v*100)))
	}
	if len(out) == 0 {
		out = append(out, in.suggest(stall, "The MIO queue is full: reduce shared memory and special instructions per warp"))
	}
	return collect(out...)
}

// ShortScoreboardSuggest advises on shared memory latency.
func ShortScoreboardSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallShortScoreboard)
	if !ok {
		return nil
	}
	var out []*tree.Node
	if v, ok := in.metric(derive.SharedLDConflictPerRequest); ok && v > in.Config.ConflictHighThreshold {
		out = append(out, in.suggest(stall, fmt.Sprintf("%.2f bank conflicts per shared load: pad shared arrays to remove conflicts", v)))
	}
	if v, ok := in.metric(derive.SharedSTConflictPerRequest); ok && v > in.Config.ConflictHighThreshold {
		out = append(out, in.suggest(stall, fmt.Sprintf("%.2f bank conflicts per shared store: pad shared arrays to remove conflicts", v)))
	}
	if len(out) == 0 {
		out = append(out, in.suggest(stall, "Warps wait on shared memory or special function results: increase independent work between the access and its use"))
	}
	return collect(out...)
}

// WaitSuggest advises on fixed latency dependencies.
func WaitSuggest(in *Input) []*tree.Node {
	stall, ok := in.significant(derive.StallWait)
	if !ok {
		return nil
	}
	return collect(in.suggest(stall, "Warps wait on fixed latency dependencies: unroll loops and interleave independent instructions"))
}

// QuadrantImbalanceSuggest flags first level stalls that are spread unevenly across the
// SM quadrants.
func QuadrantImbalanceSuggest(in *Input) []*tree.Node {
	var out []*tree.Node
	for _, e := range derive.WarpCantIssue(in.Stats) {
		imbalance := e.Stat.Imbalance()
		if imbalance <= in.Config.HighQuadrantImbalance {
			continue
		}
		stall, ok := in.significant(e.Name)
		if !ok {
			continue
		}
		out = append(out, in.suggest(stall, fmt.Sprintf(
			"This stall varies by %.0f%% across SM quadrants: balance the work of the warps in each block", imbalance*100)))
	}
	return collect(out...)
}
