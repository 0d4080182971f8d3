package analysis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/drgpu/internal/core/advisor"
	"github.com/zeusync/drgpu/internal/core/builder"
	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/derive"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/observability/log"
	"github.com/zeusync/drgpu/internal/core/sourcemap"
)

// Engine analyses kernels against one GPU configuration. The configuration is only read,
// so one Engine may serve concurrent runs.
type Engine struct {
	config *config.Configuration
	logger log.Log
}

func NewEngine(cfg *config.Configuration, logger log.Log) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{config: cfg, logger: logger}
}

func (e *Engine) Config() *config.Configuration {
	return e.config
}

// Run builds the tree of a. Missing counters and missing target nodes degrade the tree and
// are reported in Result.Diagnostics; only a missing analysis or registry is an error.
func (e *Engine) Run(a *Analysis) (*Result, error) {
	if a == nil {
		return nil, ErrNilAnalysis
	}
	if a.Stats == nil {
		return nil, errors.Wrapf(ErrNoStats, "kernel %q", a.KernelName)
	}

	started := time.Now()
	logger := e.logger.With(
		log.String("analysis_id", a.ID.String()),
		log.String("kernel", a.KernelName),
		log.String("gpu", e.config.Name),
		log.String("compute_capability", e.config.ComputeCapability),
	)
	diags := diag.NewCollector(logger)
	cfg := e.config
	reg := a.Stats

	b := builder.New(cfg, logger, diags)

	// skeleton
	b.Skeleton(a.KernelName, reg)
	if a.Source != nil {
		sourcemap.AddSourceCodeNodes(b.Tree(), derive.WarpCantIssue(reg), a.Source, cfg, diags)
	}

	// expansion; instruction and dispatch counts are shown as shares of their group
	if n, ok := b.Target(derive.StallPipeThrottle); ok {
		b.AddPipeThrottleBranch(derive.PipeUtilization(reg), n)
	}
	if n, ok := b.Target(derive.StallWait); ok {
		b.AddBranch(derive.InstructionDistribution(reg).Shares(), n)
	}
	if n, ok := b.Target(derive.StallDispatch); ok {
		b.AddBranch(derive.CantDispatch(reg).Shares(), n)
	}
	if n, ok := b.Target(derive.StallLGThrottle); ok {
		b.AddLGThrottleBranch(reg, n)
	}

	mm := derive.NewMemoryMetrics()
	bottleneck, unitStats := derive.LongScoreboardThroughput(reg, mm, cfg, diags)
	latency := derive.LongScoreboardLatency(mm, cfg, diags)
	if n, ok := b.Target(derive.StallLongScoreboard); ok {
		b.AddLatencyBranch(latency, n)
		b.AddThroughputBranch(mm, unitStats, n)
	}

	shared := derive.SharedLoadWidths(reg)
	derive.SharedMemoryInfo(reg, shared, mm, diags)
	if n, ok := b.Target(derive.StallMIOThrottle); ok {
		b.AddMIOThrottleBranch(shared, mm, n)
	}
	if n, ok := b.Target(derive.StallShortScoreboard); ok {
		b.AddShortScoreboardBranch(mm, n)
	}

	// annotation
	suggestions := advisor.Annotate(&advisor.Input{
		Tree:   b.Tree(),
		Stats:  reg,
		Config: cfg,
		Memory: mm,
		Shared: shared,
		Logger: logger,
		Diags:  diags,
	})

	res := &Result{
		ID:          a.ID,
		KernelName:  a.KernelName,
		Tree:        b.Tree(),
		Bottleneck:  bottleneck,
		Memory:      mm,
		Suggestions: suggestions,
		Diagnostics: diags.Items(),
		Duration:    time.Since(started),
	}
	logger.Info("analysis finished",
		log.Int("nodes", res.Tree.Len()),
		log.Int("suggestions", suggestions),
		log.Int("diagnostics", len(res.Diagnostics)),
		log.String("bottleneck", string(bottleneck)),
		log.Duration("took", res.Duration),
	)
	return res, nil
}

// RunBatch analyses several kernels with at most parallelism runs at a time. Results keep
// the order of analyses. The first error cancels the remaining runs.
func (e *Engine) RunBatch(ctx context.Context, analyses []*Analysis, parallelism int) ([]*Result, error) {
	results := make([]*Result, len(analyses))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, a := range analyses {
		i, a := i, a
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.Run(a)
			if err != nil {
				return errors.Wrapf(err, "analysis %d", i)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
