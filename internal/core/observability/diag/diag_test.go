package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/drgpu/internal/core/observability/log"
)

func TestCollectorLogsAndKeeps(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewCollector(log.NewWithCore(core))

	c.MissingCounter(PhaseDerive, "l1tex_requests")
	c.MissingNode(PhaseExpansion, "warp_cant_issue_wait")

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, Diagnostic{Phase: PhaseDerive, Message: "could not get stat l1tex_requests"}, items[0])
	assert.Equal(t, PhaseExpansion, items[1].Phase)

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, entries, 2)
	assert.Equal(t, "expansion", entries[1].ContextMap()["phase"])

	err := c.Err()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "could not find the target node: warp_cant_issue_wait")
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.Addf(PhaseRender, "ignored %d", 1)
	assert.Nil(t, c.Items())
	assert.Zero(t, c.Len())
	assert.NoError(t, c.Err())
}
