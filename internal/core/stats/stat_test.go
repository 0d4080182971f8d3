package stats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSumsValues(t *testing.T) {
	q0 := New("warp_cant_issue_wait", 0.1, ValueTypePercentage)
	q0.UnitValues["q0"] = 0.1
	q1 := New("warp_cant_issue_wait", 0.3, ValueTypePercentage)
	q1.UnitValues["q1"] = 0.3

	require.NoError(t, q0.Merge(q1))
	assert.InDelta(t, 0.4, q0.Value, 1e-12)
	assert.Equal(t, []string{"q0", "q1"}, q0.Units())

	require.NotNil(t, q0.Min)
	require.NotNil(t, q0.Max)
	assert.InDelta(t, 0.1, *q0.Min, 1e-12)
	assert.InDelta(t, 0.3, *q0.Max, 1e-12)
	assert.InDelta(t, 0.2, q0.Avg, 1e-12)
	assert.Greater(t, q0.StdDev, 0.0)
	assert.Greater(t, q0.Imbalance(), 0.0)
}

func TestMergeRejectsDifferentNames(t *testing.T) {
	a := New("retireIPC", 1, ValueTypeFloat)
	err := a.Merge(New("issueIPC", 1, ValueTypeFloat))
	assert.True(t, errors.Is(err, ErrStatNameMismatch))
	assert.Equal(t, 1.0, a.Value)
}

func TestSummarizeEmpty(t *testing.T) {
	s := New("sm_count", 14, ValueTypeInt)
	s.Summarize()
	assert.Nil(t, s.Min)
	assert.Nil(t, s.Max)
	assert.Zero(t, s.Imbalance())
}

func TestCloneIsDeep(t *testing.T) {
	s := New("l1tex_requests", 10, ValueTypeInt)
	s.UnitValues["sm0"] = 10
	s.Summarize()

	c := s.Clone()
	c.UnitValues["sm0"] = 99
	*c.Min = 99

	assert.Equal(t, 10.0, s.UnitValues["sm0"])
	assert.Equal(t, 10.0, *s.Min)
}

func TestRegistryOrderAndMerge(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(New("b", 1, ValueTypeFloat)))
	require.NoError(t, r.Add(New("a", 2, ValueTypeFloat)))
	require.NoError(t, r.Add(New("b", 3, ValueTypeFloat)))

	assert.Equal(t, []string{"b", "a"}, r.Names())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 4.0, r.ValueOr("b", 0))
	assert.Equal(t, -1.0, r.ValueOr("missing", -1))
	assert.ErrorIs(t, r.Add(&Stat{}), ErrEmptyStatName)

	var visited []string
	r.Range(func(name string, _ *Stat) bool {
		visited = append(visited, name)
		return false
	})
	assert.Equal(t, []string{"b"}, visited)
}

func TestRegistrySetReplaces(t *testing.T) {
	r := NewRegistry()
	r.Set("x", 1, ValueTypeInt)
	r.Set("x", 5, ValueTypeInt)

	v, ok := r.Value("x")
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, 1, r.Len())
}
