// Package diag collects the non-fatal problems met while analysing one kernel. Each one is
// logged at warn level and kept so callers can report a degraded tree.
package diag

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/zeusync/drgpu/internal/core/observability/log"
)

type Phase string

const (
	PhaseIngest     Phase = "ingest"
	PhaseDerive     Phase = "derive"
	PhaseSkeleton   Phase = "skeleton"
	PhaseExpansion  Phase = "expansion"
	PhaseAnnotation Phase = "annotation"
	PhaseRender     Phase = "render"
)

type Diagnostic struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

func (d Diagnostic) Error() string {
	return string(d.Phase) + ": " + d.Message
}

// Collector is safe for concurrent use. A nil *Collector discards everything.
type Collector struct {
	logger log.Log

	mu    sync.Mutex
	items []Diagnostic
}

func NewCollector(logger log.Log) *Collector {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Collector{logger: logger}
}

// Addf records a diagnostic for phase.
func (c *Collector) Addf(phase Phase, format string, args ...any) {
	if c == nil {
		return
	}
	d := Diagnostic{Phase: phase, Message: fmt.Sprintf(format, args...)}
	c.logger.Warn(d.Message, log.String("phase", string(phase)))

	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// MissingCounter records that name was absent and a default was used instead.
func (c *Collector) MissingCounter(phase Phase, name string) {
	c.Addf(phase, "could not get stat %s", name)
}

// MissingNode records that an attach was skipped because target is not in the tree.
func (c *Collector) MissingNode(phase Phase, target string) {
	c.Addf(phase, "could not find the target node: %s", target)
}

func (c *Collector) Items() []Diagnostic {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Err combines all diagnostics into one error, nil when there are none.
func (c *Collector) Err() error {
	return Combine(c.Items())
}

func Combine(items []Diagnostic) error {
	var err error
	for _, d := range items {
		err = multierr.Append(err, d)
	}
	return err
}
