// Package report reads profiler exports: the Nsight Compute raw CSV page with one row per
// profiled kernel, and the per-line source report used for source attribution.
package report

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/observability/log"
	"github.com/zeusync/drgpu/internal/core/stats"
)

const (
	columnID         = "ID"
	columnKernelName = "Kernel Name"
)

// Columns describing the launch rather than a metric.
var launchColumns = map[string]bool{
	"ID":           true,
	"Process ID":   true,
	"Process Name": true,
	"Host Name":    true,
	"Kernel Name":  true,
	"Kernel Time":  true,
	"Context":      true,
	"Stream":       true,
	"Block Size":   true,
	"Grid Size":    true,
	"Device":       true,
	"CC":           true,
	"Section Name": true,
}

var quadrantSuffix = regexp.MustCompile(`_q(\d+)$`)

// Kernel is one profiled kernel launch.
type Kernel struct {
	Index int
	ID    string
	// Name is the full demangled name as reported.
	Name  string
	Stats *stats.Registry
}

// ShortName is the kernel name without return type, template arguments and parameters.
func (k *Kernel) ShortName() string {
	return ShortKernelName(k.Name)
}

// Reader turns a raw CSV export into per-kernel stat registries.
type Reader struct {
	logger      log.Log
	suffixWidth int
}

func NewReader(cfg *config.Configuration, logger log.Log) *Reader {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Reader{
		logger:      logger.Named("report"),
		suffixWidth: cfg.NumberOfSuffix,
	}
}

func (r *Reader) ReadFile(filename string) ([]*Kernel, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open report")
	}
	defer f.Close()

	kernels, err := r.Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filename)
	}
	return kernels, nil
}

// column is one metric column of the export.
type column struct {
	index    int
	counter  string
	quadrant string
	percent  bool
}

// Read parses the export: a header row, a units row, then one row per kernel. Columns
// named <counter>_qN are merged into one stat per counter with the quadrant values kept.
// Percent columns are scaled to fractions, except the speed of light counters.
func (r *Reader) Read(rd io.Reader) ([]*Kernel, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	records = dropPreamble(records)
	if len(records) < 2 {
		return nil, ErrEmptyReport
	}

	header, units := records[0], records[1]
	nameIdx, idIdx := -1, -1
	var columns []column
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == columnKernelName:
			nameIdx = i
		case h == columnID:
			idIdx = i
		}
		if h == "" || launchColumns[h] {
			continue
		}
		base, quadrant := r.splitQuadrant(h)
		col := column{index: i, counter: CounterName(base), quadrant: quadrant}
		if i < len(units) {
			col.percent = strings.TrimSpace(units[i]) == "%"
		}
		columns = append(columns, col)
	}
	if nameIdx < 0 {
		return nil, errors.Wrap(ErrMissingColumn, columnKernelName)
	}

	var kernels []*Kernel
	for rowIdx, row := range records[2:] {
		if len(row) <= nameIdx {
			continue
		}
		k := &Kernel{
			Index: len(kernels),
			Name:  strings.TrimSpace(row[nameIdx]),
			Stats: stats.NewRegistry(),
		}
		if idIdx >= 0 && idIdx < len(row) {
			k.ID = strings.TrimSpace(row[idIdx])
		}
		for _, col := range columns {
			if col.index >= len(row) {
				continue
			}
			if err := r.addValue(k.Stats, col, row[col.index]); err != nil {
				r.logger.Warn("skip value",
					log.Int("row", rowIdx+3),
					log.String("counter", col.counter),
					log.Error(err),
				)
			}
		}
		kernels = append(kernels, k)
	}
	if len(kernels) == 0 {
		return nil, ErrNoKernels
	}
	r.logger.Debug("report read", log.Int("kernels", len(kernels)), log.Int("columns", len(columns)))
	return kernels, nil
}

// splitQuadrant separates a quadrant suffix whose width matches the configuration.
func (r *Reader) splitQuadrant(name string) (string, string) {
	if r.suffixWidth <= 0 {
		return name, ""
	}
	loc := quadrantSuffix.FindStringSubmatchIndex(name)
	if loc == nil || loc[1]-loc[0] != r.suffixWidth {
		return name, ""
	}
	return name[:loc[0]], name[loc[0]+1:]
}

func (r *Reader) addValue(reg *stats.Registry, col column, raw string) error {
	v, ok, err := ParseValue(raw)
	if err != nil || !ok {
		return err
	}

	valueType := stats.ValueTypeFloat
	if col.percent {
		valueType = stats.ValueTypePercentage
		if !strings.HasPrefix(col.counter, "sol_") {
			v /= 100
		}
	} else if v == float64(int64(v)) && !strings.Contains(raw, ".") {
		valueType = stats.ValueTypeInt
	}

	s := stats.New(col.counter, v, valueType)
	s.RawName = col.counter
	if col.quadrant != "" {
		s.UnitRaw = map[string]float64{col.quadrant: v}
		s.UnitValues = map[string]float64{col.quadrant: v}
		s.Summarize()
	}
	return reg.Add(s)
}

// ParseValue reads a report number. Thousands separators are accepted; empty and n/a
// cells report ok=false.
func ParseValue(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "n/a", "-":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false, errors.Wrapf(ErrMalformedValue, "%q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}

// dropPreamble skips the lines the profiler prints before the CSV header.
func dropPreamble(records [][]string) [][]string {
	for i, rec := range records {
		for _, cell := range rec {
			if strings.TrimSpace(cell) == columnKernelName {
				return records[i:]
			}
		}
	}
	return records
}

// Select returns the kernel at index.
func Select(kernels []*Kernel, index int) (*Kernel, error) {
	if index < 0 || index >= len(kernels) {
		return nil, errors.Wrapf(ErrKernelIndex, "%d of %d kernels", index, len(kernels))
	}
	return kernels[index], nil
}

// ShortKernelName strips the return type, template arguments and parameter list from a
// demangled kernel name.
func ShortKernelName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "("); i >= 0 {
		name = name[:i]
	}
	var b strings.Builder
	depth := 0
	for _, r := range name {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	fields := strings.Fields(b.String())
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
