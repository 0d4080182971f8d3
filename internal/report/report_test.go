package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/stats"
)

const rawReport = `==PROF== Connected to process 4242
"ID","Process ID","Kernel Name","sm__inst_executed.avg.per_cycle_active","smsp__warp_issue_stalled_barrier_per_warp_active.pct","warp_cant_issue_wait_q0","warp_cant_issue_wait_q1","sol_l1","l1tex__t_requests_pipe_lsu_mem_global_op_ld.sum","smsp__warp_issue_stalled_lg_credit_throttle_per_warp_active.pct"
"","","","inst/cycle","%","","","%","request","%"
"0","4242","void matmul<float, 16>(float const*, float*, int)","2.00","10.00","0.05","0.15","71.5","1,024","n/a"
"1","4242","reduce(int*)","1.00","5.00","0.10","0.10","20","512","3"
`

func testConfig() *config.Configuration {
	return &config.Configuration{NumberOfSuffix: 3}
}

func TestReadKernels(t *testing.T) {
	kernels, err := NewReader(testConfig(), nil).Read(strings.NewReader(rawReport))
	require.NoError(t, err)
	require.Len(t, kernels, 2)

	k := kernels[0]
	assert.Equal(t, "0", k.ID)
	assert.Equal(t, "matmul", k.ShortName())

	retire, ok := k.Stats.Value("retireIPC")
	require.True(t, ok)
	assert.Equal(t, 2.0, retire)

	barrier, ok := k.Stats.Get("warp_cant_issue_barrier")
	require.True(t, ok)
	assert.InDelta(t, 0.1, barrier.Value, 1e-12)
	assert.Equal(t, stats.ValueTypePercentage, barrier.ValueType)

	sol, _ := k.Stats.Value("sol_l1")
	assert.Equal(t, 71.5, sol, "speed of light stays in percent")

	requests, ok := k.Stats.Get("l1tex_requests")
	require.True(t, ok)
	assert.Equal(t, 1024.0, requests.Value)
	assert.Equal(t, stats.ValueTypeInt, requests.ValueType)

	assert.False(t, k.Stats.Has("warp_cant_issue_lg_throttle"), "n/a cells are skipped")
	lg, ok := kernels[1].Stats.Value("warp_cant_issue_lg_throttle")
	require.True(t, ok)
	assert.InDelta(t, 0.03, lg, 1e-12)
}

func TestQuadrantColumnsMerge(t *testing.T) {
	kernels, err := NewReader(testConfig(), nil).Read(strings.NewReader(rawReport))
	require.NoError(t, err)

	wait, ok := kernels[0].Stats.Get("warp_cant_issue_wait")
	require.True(t, ok)
	assert.InDelta(t, 0.2, wait.Value, 1e-12)
	assert.Equal(t, []string{"q0", "q1"}, wait.Units())
	require.NotNil(t, wait.Max)
	assert.InDelta(t, 0.15, *wait.Max, 1e-12)
	assert.Greater(t, wait.Imbalance(), 0.0)

	balanced, _ := kernels[1].Stats.Get("warp_cant_issue_wait")
	assert.Zero(t, balanced.Imbalance())
}

func TestQuadrantSuffixWidthMustMatch(t *testing.T) {
	cfg := testConfig()
	cfg.NumberOfSuffix = 0
	kernels, err := NewReader(cfg, nil).Read(strings.NewReader(rawReport))
	require.NoError(t, err)
	assert.True(t, kernels[0].Stats.Has("warp_cant_issue_wait_q0"))
}

func TestReadErrors(t *testing.T) {
	r := NewReader(testConfig(), nil)

	_, err := r.Read(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyReport))

	_, err = r.Read(strings.NewReader("\"ID\",\"x\"\n\"\",\"\"\n\"0\",\"1\"\n"))
	assert.True(t, errors.Is(err, ErrMissingColumn))

	_, err = r.Read(strings.NewReader("\"ID\",\"Kernel Name\"\n\"\",\"\"\n"))
	assert.True(t, errors.Is(err, ErrNoKernels))

	_, err = Select([]*Kernel{{}}, 3)
	assert.True(t, errors.Is(err, ErrKernelIndex))
}

func TestReadFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(filename, []byte(rawReport), 0o600))

	kernels, err := NewReader(testConfig(), nil).ReadFile(filename)
	require.NoError(t, err)
	k, err := Select(kernels, 1)
	require.NoError(t, err)
	assert.Equal(t, "reduce", k.ShortName())

	_, err = NewReader(testConfig(), nil).ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	v, ok, err := ParseValue(" 12,345.5 ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12345.5, v)

	_, ok, err = ParseValue("N/A")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseValue("fast")
	assert.True(t, errors.Is(err, ErrMalformedValue))
}

func TestParseValueNonFinite(t *testing.T) {
	for _, raw := range []string{"nan", "NaN", "inf", "+Inf", "-inf"} {
		_, ok, err := ParseValue(raw)
		assert.NoError(t, err, raw)
		assert.False(t, ok, raw)
	}

	report := strings.Replace(rawReport, `"reduce(int*)","1.00"`, `"reduce(int*)","nan"`, 1)
	kernels, err := NewReader(testConfig(), nil).Read(strings.NewReader(report))
	require.NoError(t, err)
	require.Len(t, kernels, 2)
	assert.True(t, kernels[0].Stats.Has("retireIPC"))
	assert.False(t, kernels[1].Stats.Has("retireIPC"), "non-finite cells are skipped")
}

func TestCounterName(t *testing.T) {
	assert.Equal(t, "pipe_fma", CounterName("sm__inst_executed_pipe_fma.avg.pct_of_peak_sustained_active"))
	assert.Equal(t, "inst_mem_gld_128b", CounterName("smsp__sass_inst_executed_op_global_ld_128.sum"))
	assert.Equal(t, "shared_ld_64b_executed", CounterName("smsp__sass_inst_executed_op_shared_ld_64.sum"))
	assert.Equal(t, "inst_executed_op_fp32", CounterName("smsp__sass_inst_executed_op_fp32.sum"))
	assert.Equal(t, "warp_cant_issue_lg_throttle", CounterName("warp_cant_issue_lg_credit_throttle"))
	assert.Equal(t, "custom_counter", CounterName("custom_counter"))
}

func TestShortKernelName(t *testing.T) {
	assert.Equal(t, "gemm", ShortKernelName("gemm<float>(float*, int)"))
	assert.Equal(t, "ns::gemm", ShortKernelName("void ns::gemm<float, 4>(float*)"))
	assert.Equal(t, "", ShortKernelName("  "))
}

func TestReadSource(t *testing.T) {
	const source = `Line,Source,stall_wait,stall_lg_credit_throttle
1,"__global__ void k(float *a) {",0,0
2,"  a[i] = a[i] * 2.0f;",40,7
3,"}",n/a,0
`
	src, err := ReadSource(strings.NewReader(source))
	require.NoError(t, err)

	assert.Equal(t, "a[i] = a[i] * 2.0f;", src.Text(2))
	assert.Equal(t, map[int]float64{2: 40}, src.Stalls["warp_cant_issue_wait"])
	assert.Equal(t, map[int]float64{2: 7}, src.Stalls["warp_cant_issue_lg_throttle"])

	_, err = ReadSource(strings.NewReader("Source\nx\n"))
	assert.True(t, errors.Is(err, ErrMissingColumn))
	_, err = ReadSource(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyReport))
	_, err = ReadSource(strings.NewReader("Line\nseven\n"))
	assert.True(t, errors.Is(err, ErrMalformedValue))
}
