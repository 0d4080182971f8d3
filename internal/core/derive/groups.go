package derive

import (
	"regexp"
	"strconv"

	"github.com/zeusync/drgpu/internal/core/stats"
)

// Scalar counters read directly by the engine.
const (
	RetireIPC            = "retireIPC"
	IssueIPC             = "issueIPC"
	ActiveWarpsPerCycle  = "activewarps_per_activecycle"
	ElapsedCycles        = "elapsed_cycles"
	SMCount              = "sm_count"
	InstExecuted         = "inst_executed"
	ThreadInstNotPredOff = "thread_inst_executed_not_pred_off"
)

// StallPrefix starts every warp stall reason counter.
const StallPrefix = "warp_cant_issue_"

// First level stall reasons with dedicated sub-branches or advice.
const (
	StallBarrier         = StallPrefix + "barrier"
	StallBranchResolving = StallPrefix + "branch_resolving"
	StallDispatch        = StallPrefix + "dispatch"
	StallDrain           = StallPrefix + "drain"
	StallIMCMiss         = StallPrefix + "imc_miss"
	StallLGThrottle      = StallPrefix + "lg_throttle"
	StallLongScoreboard  = StallPrefix + "long_scoreboard"
	StallMembar          = StallPrefix + "membar"
	StallMIOThrottle     = StallPrefix + "mio_throttle"
	StallPipeThrottle    = StallPrefix + "pipe_throttle"
	StallShortScoreboard = StallPrefix + "short_scoreboard"
	StallWait            = StallPrefix + "wait"
)

var (
	pipePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^pipe_`),
		regexp.MustCompile(`_pipe_utilization$`),
	}
	instructionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^inst_executed_op_`),
		regexp.MustCompile(`^inst_executed_.+_ops$`),
	}
	globalLoadPattern = regexp.MustCompile(`^inst_mem_(gld|geld|ldgsts)_(\d+)b$`)
	sharedLoadPattern = regexp.MustCompile(`^shared_ld_(\d+)b_executed$`)
)

// WarpCantIssue is the first level of the tree: the reasons a warp could not issue.
func WarpCantIssue(reg *stats.Registry) Group {
	return GroupByPrefix(reg, StallPrefix)
}

func PipeUtilization(reg *stats.Registry) Group {
	return GroupByPattern(reg, pipePatterns...)
}

func InstructionDistribution(reg *stats.Registry) Group {
	return GroupByPattern(reg, instructionPatterns...)
}

func CantDispatch(reg *stats.Registry) Group {
	return GroupByPrefix(reg, "cant_dispatch_")
}

// GlobalLoadWidths groups the global, generic and LDGSTS load instruction counts by width.
func GlobalLoadWidths(reg *stats.Registry) Group {
	return GroupByPattern(reg, globalLoadPattern)
}

// SharedLoadWidths groups the shared memory load instruction counts by width.
func SharedLoadWidths(reg *stats.Registry) Group {
	return GroupByPattern(reg, sharedLoadPattern)
}

// LoadWidth extracts the access width in bits from a load width counter name.
func LoadWidth(name string) (int, bool) {
	if m := globalLoadPattern.FindStringSubmatch(name); m != nil {
		w, err := strconv.Atoi(m[2])
		return w, err == nil
	}
	if m := sharedLoadPattern.FindStringSubmatch(name); m != nil {
		w, err := strconv.Atoi(m[1])
		return w, err == nil
	}
	return 0, false
}

// NarrowShare is the fraction of loads in g narrower than 128 bits.
func NarrowShare(g Group) (float64, bool) {
	total := g.Total()
	if total <= 0 {
		return 0, false
	}
	var narrow float64
	for _, e := range g {
		if w, ok := LoadWidth(e.Name); ok && w < 128 {
			narrow += e.Value()
		}
	}
	return narrow / total, true
}
