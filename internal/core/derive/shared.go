package derive

import (
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/stats"
)

const (
	SharedLDRequests      = "shared_ld_requests"
	SharedLDBankConflicts = "shared_ld_bank_conflicts"
	SharedSTRequests      = "shared_st_requests"
	SharedSTBankConflicts = "shared_st_bank_conflicts"
)

// SharedMemoryInfo fills the shared memory conflict rates and the share of narrow shared
// loads from the load width group.
func SharedMemoryInfo(reg *stats.Registry, shared Group, mm *MemoryMetrics, diags *diag.Collector) {
	d := newDeriver(reg, mm, diags)
	d.counterRatio(SharedLDConflictPerRequest, SharedLDBankConflicts, SharedLDRequests)
	d.counterRatio(SharedSTConflictPerRequest, SharedSTBankConflicts, SharedSTRequests)

	if share, ok := NarrowShare(shared); ok {
		mm.Set(SharedNarrowLoadShare, share)
	}
}
