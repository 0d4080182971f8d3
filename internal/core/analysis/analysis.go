// Package analysis runs the bottleneck engine over one kernel: skeleton, expansion and
// annotation, in that order, each phase locating the nodes of the previous one by name.
package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/drgpu/internal/core/derive"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/sourcemap"
	"github.com/zeusync/drgpu/internal/core/stats"
	"github.com/zeusync/drgpu/internal/core/tree"
)

// Analysis is the context of one kernel invocation. It is owned by a single run and must
// not be shared between concurrent runs.
type Analysis struct {
	ID         uuid.UUID
	KernelName string
	Stats      *stats.Registry
	// Source is optional; when set, source code nodes are attached to the stall reasons.
	Source *sourcemap.Source
}

func New(kernel string, reg *stats.Registry) *Analysis {
	return &Analysis{
		ID:         uuid.New(),
		KernelName: kernel,
		Stats:      reg,
	}
}

// WithSource attaches source line attribution and returns a.
func (a *Analysis) WithSource(src *sourcemap.Source) *Analysis {
	a.Source = src
	return a
}

// Result is the finished tree of one run. The tree belongs to the caller and is not
// modified after Run returns.
type Result struct {
	ID          uuid.UUID
	KernelName  string
	Tree        *tree.Tree
	Bottleneck  derive.Unit
	Memory      *derive.MemoryMetrics
	Suggestions int
	Diagnostics []diag.Diagnostic
	Duration    time.Duration
}

// Err combines the diagnostics of the run. A non-nil error means a degraded tree, not a
// failed run.
func (r *Result) Err() error {
	return diag.Combine(r.Diagnostics)
}

// Root returns the root of the tree.
func (r *Result) Root() *tree.Node {
	if r.Tree == nil {
		return nil
	}
	return r.Tree.Root()
}
