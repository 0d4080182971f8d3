package derive

import (
	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/stats"
)

// Memory counters read by the throughput and rate derivation.
const (
	L1TexRequests       = "l1tex_requests"
	L1TexSectors        = "l1tex_sectors"
	L1TexHitSectors     = "l1tex_hit_sectors"
	L1TexLines          = "l1tex_lines"
	L1TexBytes          = "l1tex_bytes"
	L1TexSetConflicts   = "l1tex_set_conflicts"
	UTLBRequests        = "utlb_requests"
	UTLBMisses          = "utlb_misses"
	UTLBArbStalls       = "utlb_arb_stalls"
	L1TLBRequests       = "l1tlb_requests"
	L1TLBMisses         = "l1tlb_misses"
	L2Requests          = "l2_requests"
	L2Sectors           = "l2_sectors"
	L2HitSectors        = "l2_hit_sectors"
	L2BankConflicts     = "l2_bank_conflicts"
	DRAMBytes           = "dram_bytes"
	DRAMAccesses        = "dram_accesses"
	DRAMActivates       = "dram_activates"
	DRAMActiveBanks     = "dram_active_banks"
	CompressionAttempts = "compression_attempts"
	CompressionSuccess  = "compression_successes"
)

// deriver fills MemoryMetrics from the registry, reporting each missing counter once.
type deriver struct {
	reg      *stats.Registry
	mm       *MemoryMetrics
	diags    *diag.Collector
	reported map[string]bool
}

func newDeriver(reg *stats.Registry, mm *MemoryMetrics, diags *diag.Collector) *deriver {
	return &deriver{reg: reg, mm: mm, diags: diags, reported: make(map[string]bool)}
}

func (d *deriver) counter(name string) (float64, bool) {
	v, ok := d.reg.Value(name)
	if !ok && !d.reported[name] {
		d.reported[name] = true
		d.diags.MissingCounter(diag.PhaseDerive, name)
	}
	return v, ok
}

// ratio stores num/den under metric. Unknown inputs leave the metric unset; the missing
// counter has been reported already.
func (d *deriver) ratio(metric string, num, den float64, known bool) (float64, bool) {
	if !known {
		return 0, false
	}
	if den == 0 {
		d.diags.Addf(diag.PhaseDerive, "cannot derive %s: zero denominator", metric)
		return 0, false
	}
	v := num / den
	d.mm.Set(metric, v)
	return v, true
}

func (d *deriver) counterRatio(metric, num, den string) (float64, bool) {
	n, okN := d.counter(num)
	dv, okD := d.counter(den)
	return d.ratio(metric, n, dv, okN && okD)
}

// LongScoreboardThroughput computes the achieved throughput of every memory unit
// normalized by its configured fix-up constant, fills the hit, miss, conflict and DRAM
// metrics on the way, and returns the unit with the highest normalized throughput along
// with the metrics relevant to it.
func LongScoreboardThroughput(reg *stats.Registry, mm *MemoryMetrics, cfg *config.Configuration, diags *diag.Collector) (Unit, Group) {
	d := newDeriver(reg, mm, diags)

	cycles, okCycles := d.counter(ElapsedCycles)
	sms := reg.ValueOr(SMCount, 1)
	if sms <= 0 {
		sms = 1
	}

	perCycle := func(metric, counter string, clocks float64) (float64, bool) {
		v, ok := d.counter(counter)
		return d.ratio(metric, v, clocks, ok && okCycles)
	}

	if rpc, ok := perCycle(L1RPC, L1TexRequests, cycles*sms); ok {
		mm.Set(UnitL1.ThroughputMetric(), rpc/cfg.L1ThroughputFix)
	}
	if rpc, ok := perCycle(UTLBRPC, UTLBRequests, cycles*sms); ok {
		mm.Set(UnitUTLB.ThroughputMetric(), rpc/cfg.UTLBThroughputFix)
	}
	if rpc, ok := perCycle(L1TLBRPC, L1TLBRequests, cycles); ok {
		mm.Set(UnitL1TLB.ThroughputMetric(), rpc/cfg.L1TLBThroughputFix)
	}
	if rpc, ok := perCycle(L2RPC, L2Requests, cycles); ok {
		mm.Set(UnitL2.ThroughputMetric(), rpc*cfg.BytesPerL2Instruction/cfg.L2ThroughputFix)
	}
	if bpc, ok := perCycle(FBBytesPerCycle, DRAMBytes, cycles); ok {
		mm.Set(UnitFB.ThroughputMetric(), bpc/cfg.FBThroughputFix)
	}

	d.l1Rates(cfg)
	d.tlbRates()
	d.l2Rates()
	d.dramRates()

	mm.Bottleneck = bottleneck(mm)
	if mm.Bottleneck == UnitUnknown {
		diags.Addf(diag.PhaseDerive, "no memory throughput could be derived, bottleneck unit unknown")
	}
	return mm.Bottleneck, BottleneckStats(mm, mm.Bottleneck)
}

func bottleneck(mm *MemoryMetrics) Unit {
	best, bestV := UnitUnknown, 0.0
	for _, u := range Hierarchy {
		v, ok := mm.Throughput(u)
		if !ok {
			continue
		}
		if best == UnitUnknown || v > bestV {
			best, bestV = u, v
		}
	}
	return best
}

// BottleneckStats returns the computed metrics shown under the throughput node of u.
func BottleneckStats(mm *MemoryMetrics, u Unit) Group {
	var g Group
	for _, name := range unitMetrics[u] {
		if s, ok := mm.Stat(name); ok {
			g = append(g, Entry{Name: name, Stat: s})
		}
	}
	return g
}

func (d *deriver) l1Rates(cfg *config.Configuration) {
	if hit, ok := d.counterRatio(L1HitRate, L1TexHitSectors, L1TexSectors); ok {
		d.mm.Set(L1MissRate, 1-hit)
	}
	lines, okLines := d.counterRatio(L1LinesPerLoad, L1TexLines, L1TexRequests)
	bytes, okBytes := d.counterRatio(BytesPerLoad, L1TexBytes, L1TexRequests)
	d.ratio(WithinLoadCoalescingRatio, bytes, lines*cfg.BytesPerL1Instruction, okLines && okBytes)

	sectors, okS := d.counter(L1TexSectors)
	hits, okH := d.counter(L1TexHitSectors)
	l2Requests, okL2 := d.counter(L2Requests)
	d.ratio(AcrossLoadCoalescingRatio, sectors-hits, l2Requests, okS && okH && okL2)

	d.counterRatio(L1ConflictRate, L1TexSetConflicts, L1TexRequests)
}

func (d *deriver) tlbRates() {
	d.counterRatio(UTLBMissRate, UTLBMisses, UTLBRequests)
	d.counterRatio(UTLBArbStallRate, UTLBArbStalls, UTLBRequests)
	d.counterRatio(L1TLBMissRate, L1TLBMisses, L1TLBRequests)
}

func (d *deriver) l2Rates() {
	if hit, ok := d.counterRatio(L2HitRate, L2HitSectors, L2Sectors); ok {
		d.mm.Set(L2MissRate, 1-hit)
	}
	d.counterRatio(L2BankConflictRate, L2BankConflicts, L2Requests)
}

func (d *deriver) dramRates() {
	d.counterRatio(FBAccessesPerActivate, DRAMAccesses, DRAMActivates)
	if banks, ok := d.counter(DRAMActiveBanks); ok {
		d.mm.Set(AverageDRAMBanks, banks)
	}
	if attempts, ok := d.reg.Value(CompressionAttempts); ok && attempts > 0 {
		d.counterRatio(CompressionSuccessRate, CompressionSuccess, CompressionAttempts)
	}
	if total, ok := d.counter(DRAMBytes); ok {
		d.mm.Set(FBTotalBytes, total)
	}
}
