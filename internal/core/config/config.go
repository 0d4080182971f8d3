package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Configuration holds the hardware constants and decision thresholds of one GPU model.
// It is immutable once loaded and shared by pointer across analyses.
type Configuration struct {
	Name              string `yaml:"name"`
	ComputeCapability string `yaml:"compute_capability"`

	WarpSize            int `yaml:"warp_size"`
	QuadrantsPerSM      int `yaml:"quadrants_per_sm"`
	MaxActiveWarpsPerSM int `yaml:"max_active_warps_per_sm"`
	NumberOfSuffix      int `yaml:"number_of_suffix"`
	MaxShownNodes       int `yaml:"max_number_of_showed_nodes"`
	MaxShownSourceNodes int `yaml:"max_number_of_showed_source_code_nodes"`

	MaxShownPercentage       float64 `yaml:"max_percentage_of_showed_nodes"`
	MaxShownSourcePercentage float64 `yaml:"max_percentage_of_showed_source_code_nodes"`

	// Throughput normalization per memory hierarchy unit.
	L1ThroughputFix       float64 `yaml:"l1_throughput_fix"`
	UTLBThroughputFix     float64 `yaml:"utlb_throughput_fix"`
	L1TLBThroughputFix    float64 `yaml:"l1_tlb_throughput_fix"`
	L2ThroughputFix       float64 `yaml:"l2_throughput_fix"`
	FBThroughputFix       float64 `yaml:"fb_throughput_fix"`
	BytesPerL1Instruction float64 `yaml:"bytes_per_l1_instruction"`
	BytesPerL2Instruction float64 `yaml:"bytes_per_l2_instruction"`

	// Latency constants, in cycles.
	L1LatencyFix    float64 `yaml:"l1_latency_fix"`
	UTLBLatencyFix  float64 `yaml:"utlb_latency_fix"`
	L1TLBLatencyFix float64 `yaml:"l1_tlb_latency_fix"`
	L2Latency       float64 `yaml:"l2_latency"`
	FBLatency       float64 `yaml:"fb_latency"`

	// Thresholds.
	SignificantStallFraction  float64 `yaml:"significant_stall_fraction"`
	ConflictHighThreshold     float64 `yaml:"conflict_high_threshold"`
	LowActiveWarpsPerCycle    float64 `yaml:"low_activewarps_per_activecycle"`
	HighL1Throughput          float64 `yaml:"high_l1_throughput"`
	HighL1HitRate             float64 `yaml:"high_l1_hit_rate"`
	LowL1HitRate              float64 `yaml:"low_l1_hit_rate"`
	HighL1ConflictRate        float64 `yaml:"high_l1_conflict_rate"`
	LowAccessPerActivate      float64 `yaml:"low_access_per_activate"`
	LowBankPerAccess          float64 `yaml:"low_bank_per_access"`
	WithinLoadCoalescingRatio float64 `yaml:"within_load_coalescing_ratio"`
	HighUTLBMissRate          float64 `yaml:"high_utlb_miss_rate"`
	HighL2MissRate            float64 `yaml:"high_l2_miss_rate"`
	HighL2BankConflictRate    float64 `yaml:"high_l2_bank_conflict_rate"`
	HighActiveThreadsPerInst  float64 `yaml:"high_not_predicated_off_thread_per_inst_executed"`
	MaxActiveThreadsPerInst   float64 `yaml:"max_not_predicated_off_thread_per_inst_executed"`
	LowCompressRate           float64 `yaml:"low_compress_rate"`
	HighQuadrantImbalance     float64 `yaml:"high_quadrant_imbalance"`
	HighNarrowLoadShare       float64 `yaml:"high_narrow_load_share"`
}

// Validate checks the constants the engine divides by or depends on structurally.
// Thresholds may be zero.
func (c *Configuration) Validate() error {
	var missing []string

	positiveInts := map[string]int{
		"warp_size":        c.WarpSize,
		"quadrants_per_sm": c.QuadrantsPerSM,
	}
	for key, v := range positiveInts {
		if v <= 0 {
			missing = append(missing, key)
		}
	}

	positiveFloats := map[string]float64{
		"l1_throughput_fix":        c.L1ThroughputFix,
		"utlb_throughput_fix":      c.UTLBThroughputFix,
		"l1_tlb_throughput_fix":    c.L1TLBThroughputFix,
		"l2_throughput_fix":        c.L2ThroughputFix,
		"fb_throughput_fix":        c.FBThroughputFix,
		"bytes_per_l1_instruction": c.BytesPerL1Instruction,
		"bytes_per_l2_instruction": c.BytesPerL2Instruction,
		"l1_latency_fix":           c.L1LatencyFix,
		"l2_latency":               c.L2Latency,
		"fb_latency":               c.FBLatency,
	}
	for key, v := range positiveFloats {
		if v <= 0 {
			missing = append(missing, key)
		}
	}

	if c.MaxShownPercentage < 0 || c.MaxShownPercentage > 1 {
		missing = append(missing, "max_percentage_of_showed_nodes")
	}
	if c.NumberOfSuffix < 0 {
		missing = append(missing, "number_of_suffix")
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Wrapf(ErrInvalidConfig, "%s: non-positive or out of range: %s",
			c.displayName(), strings.Join(missing, ", "))
	}
	return nil
}

func (c *Configuration) displayName() string {
	if c.Name == "" {
		return "configuration"
	}
	return c.Name
}

// Clone returns a copy that callers may tweak without touching the shared instance.
func (c *Configuration) Clone() *Configuration {
	cp := *c
	return &cp
}

// String lists the non-zero fields by yaml key, mostly for debug logging.
func (c *Configuration) String() string {
	var b strings.Builder
	v := reflect.ValueOf(*c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := v.Field(i)
		if f.IsZero() {
			continue
		}
		key := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%v", key, f.Interface())
	}
	return b.String()
}
