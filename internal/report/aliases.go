package report

import "regexp"

// metricAliases maps Nsight Compute metric names to the counter names of the engine.
// Columns already named after a counter are taken as they are.
var metricAliases = map[string]string{
	"sm__inst_executed.avg.per_cycle_active":                           "retireIPC",
	"sm__inst_issued.avg.per_cycle_active":                             "issueIPC",
	"sm__warps_active.avg.per_cycle_active":                            "activewarps_per_activecycle",
	"sm__throughput.avg.pct_of_peak_sustained_elapsed":                 "sol_sm",
	"l1tex__throughput.avg.pct_of_peak_sustained_active":               "sol_l1",
	"lts__throughput.avg.pct_of_peak_sustained_elapsed":                "sol_l2",
	"dram__throughput.avg.pct_of_peak_sustained_elapsed":               "sol_dram",
	"gpu__compute_memory_throughput.avg.pct_of_peak_sustained_elapsed": "sol_compute_memory",
	"gpc__cycles_elapsed.max":                                          "elapsed_cycles",
	"device__attribute_multiprocessor_count":                           "sm_count",
	"smsp__inst_executed.sum":                                          "inst_executed",
	"smsp__thread_inst_executed_pred_on.sum":                           "thread_inst_executed_not_pred_off",
	"l1tex__t_requests_pipe_lsu_mem_global_op_ld.sum":                  "l1tex_requests",
	"l1tex__t_sectors_pipe_lsu_mem_global_op_ld.sum":                   "l1tex_sectors",
	"l1tex__t_sectors_pipe_lsu_mem_global_op_ld_lookup_hit.sum":        "l1tex_hit_sectors",
	"l1tex__m_xbar2l1tex_read_sectors_mem_lg_op_ld.sum":                "l1tex_lines",
	"l1tex__t_bytes_pipe_lsu_mem_global_op_ld.sum":                     "l1tex_bytes",
	"l1tex__t_set_conflicts_pipe_lsu_mem_global_op_ld.sum":             "l1tex_set_conflicts",
	"l1tex__data_bank_conflicts_pipe_lsu_mem_shared_op_ld.sum":         "shared_ld_bank_conflicts",
	"l1tex__data_bank_conflicts_pipe_lsu_mem_shared_op_st.sum":         "shared_st_bank_conflicts",
	"smsp__inst_executed_op_shared_ld.sum":                             "shared_ld_requests",
	"smsp__inst_executed_op_shared_st.sum":                             "shared_st_requests",
	"lts__t_requests_srcunit_tex.sum":                                  "l2_requests",
	"lts__t_sectors_srcunit_tex.sum":                                   "l2_sectors",
	"lts__t_sectors_srcunit_tex_lookup_hit.sum":                        "l2_hit_sectors",
	"lts__t_bank_conflicts.sum":                                        "l2_bank_conflicts",
	"dram__bytes.sum":                                                  "dram_bytes",
	"dram__sectors.sum":                                                "dram_accesses",
	"fbpa__dram_activates.sum":                                         "dram_activates",
	"fbpa__dram_active_banks.avg":                                      "dram_active_banks",
	"lts__t_sectors_compression_attempts.sum":                          "compression_attempts",
	"lts__t_sectors_compression_successes.sum":                         "compression_successes",
	"smsp__warp_issue_stalled_lg_credit_throttle_per_warp_active.pct":  "warp_cant_issue_lg_throttle",
}

type aliasPattern struct {
	re     *regexp.Regexp
	prefix string
	suffix string
}

// metricPatterns rename whole families of metrics; the first capture group is kept. The
// first matching pattern wins, so specific patterns come first.
var metricPatterns = []aliasPattern{
	{re: regexp.MustCompile(`^smsp__warp_issue_stalled_(\w+?)_per_warp_active\.pct$`), prefix: "warp_cant_issue_"},
	{re: regexp.MustCompile(`^sm__inst_executed_pipe_(\w+?)\.avg\.pct_of_peak_sustained_active$`), prefix: "pipe_"},
	{re: regexp.MustCompile(`^smsp__warp_cant_dispatch_(\w+?)\.sum$`), prefix: "cant_dispatch_"},
	{re: regexp.MustCompile(`^smsp__sass_inst_executed_op_global_ld_(\d+)\.sum$`), prefix: "inst_mem_gld_", suffix: "b"},
	{re: regexp.MustCompile(`^smsp__sass_inst_executed_op_generic_ld_(\d+)\.sum$`), prefix: "inst_mem_geld_", suffix: "b"},
	{re: regexp.MustCompile(`^smsp__sass_inst_executed_op_ldgsts_(\d+)\.sum$`), prefix: "inst_mem_ldgsts_", suffix: "b"},
	{re: regexp.MustCompile(`^smsp__sass_inst_executed_op_shared_ld_(\d+)\.sum$`), prefix: "shared_ld_", suffix: "b_executed"},
	{re: regexp.MustCompile(`^smsp__sass_inst_executed_op_(\w+?)\.sum$`), prefix: "inst_executed_op_"},
}

// legacyNames are older spellings of counters.
var legacyNames = map[string]string{
	"warp_cant_issue_lg_credit_throttle": "warp_cant_issue_lg_throttle",
}

// CounterName resolves a report column to a counter name.
func CounterName(column string) string {
	if name, ok := metricAliases[column]; ok {
		return name
	}
	for _, p := range metricPatterns {
		if m := p.re.FindStringSubmatch(column); m != nil {
			return canonical(p.prefix + m[1] + p.suffix)
		}
	}
	return canonical(column)
}

func canonical(name string) string {
	if c, ok := legacyNames[name]; ok {
		return c
	}
	return name
}
