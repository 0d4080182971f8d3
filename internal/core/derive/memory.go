package derive

import (
	"strings"

	"github.com/zeusync/drgpu/internal/core/stats"
)

// Unit is one level of the memory hierarchy.
type Unit string

const (
	UnitL1      Unit = "l1"
	UnitUTLB    Unit = "utlb"
	UnitL1TLB   Unit = "l1tlb"
	UnitL2      Unit = "l2"
	UnitFB      Unit = "fb"
	UnitUnknown Unit = "unknown"
)

// Hierarchy lists the units from the SM outwards. Bottleneck ties resolve in this order.
var Hierarchy = []Unit{UnitL1, UnitUTLB, UnitL1TLB, UnitL2, UnitFB}

// ThroughputMetric names the normalized throughput of u, which is also the name of its
// node in the tree.
func (u Unit) ThroughputMetric() string {
	return "throughput_" + string(u)
}

// Derived memory metric names.
const (
	L1RPC                     = "l1_RPC"
	L1HitRate                 = "l1_hit_rate"
	L1MissRate                = "l1_miss_rate"
	L1LinesPerLoad            = "l1_lines_per_load"
	BytesPerLoad              = "bytes_per_load"
	WithinLoadCoalescingRatio = "within_load_coalescing_ratio"
	AcrossLoadCoalescingRatio = "across_load_coalescing_ratio"
	L1ConflictRate            = "l1_conflict_rate"

	UTLBRPC          = "utlb_RPC"
	UTLBMissRate     = "utlb_miss_rate"
	UTLBArbStallRate = "utlb_arb_stall_rate"
	L1TLBRPC         = "l1tlb_RPC"
	L1TLBMissRate    = "l1tlb_miss_rate"

	L2RPC              = "l2_RPC"
	L2HitRate          = "l2_hit_rate"
	L2MissRate         = "l2_miss_rate"
	L2BankConflictRate = "l2_bank_conflict_rate"

	FBAccessesPerActivate  = "fb_accesses_per_activate"
	AverageDRAMBanks       = "average_dram_banks"
	CompressionSuccessRate = "compression_success_rate"
	FBTotalBytes           = "fb_total_bytes"
	FBBytesPerCycle        = "fb_bytes_per_cycle"

	SharedLDConflictPerRequest = "shared_ld_conflict_per_request"
	SharedSTConflictPerRequest = "shared_st_conflict_per_request"
	SharedNarrowLoadShare      = "shared_narrow_load_share"

	AvgLatency = "avg_latency"
	L1Latency  = "l1_latency"
	TLBLatency = "tlb_latency"
	L2Latency  = "l2_latency"
	FBLatency  = "fb_latency"
)

// unitMetrics lists, per unit, the metrics shown under its throughput node.
var unitMetrics = map[Unit][]string{
	UnitL1:    {L1HitRate, L1ConflictRate, WithinLoadCoalescingRatio, L1LinesPerLoad, BytesPerLoad, L1RPC},
	UnitUTLB:  {UTLBMissRate, UTLBArbStallRate, UTLBRPC},
	UnitL1TLB: {L1TLBMissRate, L1TLBRPC},
	UnitL2:    {L2HitRate, L2BankConflictRate, AcrossLoadCoalescingRatio, L2RPC},
	UnitFB:    {FBAccessesPerActivate, AverageDRAMBanks, CompressionSuccessRate, FBTotalBytes},
}

// rateMetrics are fractions and print as percentages.
var rateMetrics = map[string]bool{
	L1HitRate:                 true,
	L1MissRate:                true,
	L1ConflictRate:            true,
	WithinLoadCoalescingRatio: true,
	UTLBMissRate:              true,
	UTLBArbStallRate:          true,
	L1TLBMissRate:             true,
	L2HitRate:                 true,
	L2MissRate:                true,
	L2BankConflictRate:        true,
	CompressionSuccessRate:    true,
	SharedNarrowLoadShare:     true,
}

// countMetrics are whole numbers.
var countMetrics = map[string]bool{
	FBTotalBytes: true,
}

// MemoryMetrics holds the values derived from the memory counters of one analysis.
// Metrics that could not be computed are absent rather than zero.
type MemoryMetrics struct {
	Bottleneck Unit

	names  []string
	values map[string]float64
}

func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{
		Bottleneck: UnitUnknown,
		values:     make(map[string]float64),
	}
}

func (m *MemoryMetrics) Set(name string, v float64) {
	if _, ok := m.values[name]; !ok {
		m.names = append(m.names, name)
	}
	m.values[name] = v
}

func (m *MemoryMetrics) Get(name string) (float64, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *MemoryMetrics) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Names returns the computed metric names in the order they were first set.
func (m *MemoryMetrics) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Throughput returns the normalized throughput of u.
func (m *MemoryMetrics) Throughput(u Unit) (float64, bool) {
	return m.Get(u.ThroughputMetric())
}

// Stat wraps a computed metric as a stat typed for display.
func (m *MemoryMetrics) Stat(name string) (*stats.Stat, bool) {
	v, ok := m.Get(name)
	if !ok {
		return nil, false
	}
	return stats.New(name, v, MetricValueType(name)), true
}

// Map returns a copy of all computed metrics.
func (m *MemoryMetrics) Map() map[string]float64 {
	out := make(map[string]float64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// MetricValueType reports how a derived metric is displayed.
func MetricValueType(name string) stats.ValueType {
	switch {
	case rateMetrics[name], strings.HasPrefix(name, "throughput_"):
		return stats.ValueTypePercentage
	case countMetrics[name]:
		return stats.ValueTypeInt
	default:
		return stats.ValueTypeFloat
	}
}
