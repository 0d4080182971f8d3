// Package advisor attaches suggestion leaves to a structurally complete tree. Every rule
// checks its own thresholds and does nothing when its target node is absent.
package advisor

import (
	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/derive"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/observability/log"
	"github.com/zeusync/drgpu/internal/core/stats"
	"github.com/zeusync/drgpu/internal/core/tree"
)

// Input is what the rules read. Nothing in it is modified except the tree.
type Input struct {
	Tree   *tree.Tree
	Stats  *stats.Registry
	Config *config.Configuration
	Memory *derive.MemoryMetrics
	Shared derive.Group

	Logger log.Log
	Diags  *diag.Collector
}

// Rule evaluates one family of thresholds and returns the suggestion nodes it attached.
type Rule struct {
	Name  string
	Apply func(in *Input) []*tree.Node
}

// Rules are independent of each other; the order only fixes the order of siblings.
var Rules = []Rule{
	{Name: "pipe", Apply: PipeSuggest},
	{Name: "barrier", Apply: BarrierSuggest},
	{Name: "branch_resolving", Apply: BranchResolvingSuggest},
	{Name: "dispatch", Apply: DispatchSuggest},
	{Name: "drain", Apply: DrainSuggest},
	{Name: "imc_miss", Apply: IMCMissSuggest},
	{Name: "lg_throttle", Apply: LGThrottleSuggest},
	{Name: "memory", Apply: MemorySuggest},
	{Name: "membar", Apply: MembarSuggest},
	{Name: "mio_throttle", Apply: MIOThrottleSuggest},
	{Name: "short_scoreboard", Apply: ShortScoreboardSuggest},
	{Name: "wait", Apply: WaitSuggest},
	{Name: "quadrant_imbalance", Apply: QuadrantImbalanceSuggest},
}

// Annotate runs every rule and returns the number of suggestions attached.
func Annotate(in *Input) int {
	logger := in.logger()
	var total int
	for _, rule := range Rules {
		added := rule.Apply(in)
		if len(added) > 0 {
			logger.Debug("suggestions attached", log.String("rule", rule.Name), log.Int("count", len(added)))
		}
		total += len(added)
	}
	return total
}

func (in *Input) logger() log.Log {
	if in.Logger == nil {
		return log.NewNop()
	}
	return in.Logger
}

// node returns the named node when it exists in the tree.
func (in *Input) node(name string) (*tree.Node, bool) {
	if in.Tree == nil {
		return nil, false
	}
	return in.Tree.Find(name)
}

// significant returns the stall node when its share reaches the significance threshold.
func (in *Input) significant(stall string) (*tree.Node, bool) {
	n, ok := in.node(stall)
	if !ok || n.Value() < in.Config.SignificantStallFraction {
		return nil, false
	}
	return n, true
}

func (in *Input) metric(name string) (float64, bool) {
	if in.Memory == nil {
		return 0, false
	}
	return in.Memory.Get(name)
}

// suggest attaches one advice leaf under target.
func (in *Input) suggest(target *tree.Node, advice string) *tree.Node {
	name := in.Tree.UniqueName(target.Name + "_suggestion")
	n := tree.NewSuggestion(name, advice)
	if err := in.Tree.Attach(target, n); err != nil {
		in.Diags.Addf(diag.PhaseAnnotation, "skip suggestion for %s: %v", target.Name, err)
		return nil
	}
	return n
}

// collect gathers the non-nil results of suggest.
func collect(nodes ...*tree.Node) []*tree.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
