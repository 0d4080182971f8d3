package stats

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ValueType tells how a counter value should be read and displayed.
type ValueType uint8

const (
	ValueTypeInt ValueType = iota
	ValueTypeFloat
	// ValueTypePercentage is a float carrying a fraction (0..1) of some whole.
	ValueTypePercentage
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeInt:
		return "int"
	case ValueTypeFloat:
		return "float"
	case ValueTypePercentage:
		return "percentage"
	default:
		return "unknown(" + strconv.Itoa(int(v)) + ")"
	}
}

// Stat is one named performance counter. Value is the authoritative scalar; the per-unit
// maps are auxiliary breakdowns (per quadrant, per SM) and never required downstream.
type Stat struct {
	Name      string
	RawName   string
	Value     float64
	ValueType ValueType

	Min    *float64
	Max    *float64
	Avg    float64
	StdDev float64

	// UnitRaw holds the unit values as read from the report, UnitValues the derived ones.
	UnitRaw    map[string]float64
	UnitValues map[string]float64

	Description string
}

// New creates a counter with the given value.
func New(name string, value float64, valueType ValueType) *Stat {
	return &Stat{
		Name:       name,
		RawName:    name,
		Value:      value,
		ValueType:  valueType,
		UnitRaw:    make(map[string]float64),
		UnitValues: make(map[string]float64),
	}
}

// Merge folds a sub-sample of the same counter into s: values are summed and the
// per-unit entries of other are added for units s does not know yet.
func (s *Stat) Merge(other *Stat) error {
	if other == nil {
		return nil
	}
	if other.Name != s.Name {
		return errors.Wrapf(ErrStatNameMismatch, "merge %q into %q", other.Name, s.Name)
	}

	s.Value += other.Value
	if s.UnitRaw == nil {
		s.UnitRaw = make(map[string]float64, len(other.UnitRaw))
	}
	if s.UnitValues == nil {
		s.UnitValues = make(map[string]float64, len(other.UnitValues))
	}
	for unit, v := range other.UnitRaw {
		if _, ok := s.UnitRaw[unit]; !ok {
			s.UnitRaw[unit] = v
		}
	}
	for unit, v := range other.UnitValues {
		if _, ok := s.UnitValues[unit]; !ok {
			s.UnitValues[unit] = v
		}
	}
	s.Summarize()
	return nil
}

// Summarize recomputes Min, Max, Avg and StdDev from UnitValues. With no unit values the
// summary fields are reset.
func (s *Stat) Summarize() {
	if len(s.UnitValues) == 0 {
		s.Min, s.Max = nil, nil
		s.Avg, s.StdDev = 0, 0
		return
	}

	values := make([]float64, 0, len(s.UnitValues))
	for _, unit := range s.Units() {
		values = append(values, s.UnitValues[unit])
	}

	minV, maxV := floats.Min(values), floats.Max(values)
	s.Min, s.Max = &minV, &maxV
	if len(values) == 1 {
		s.Avg, s.StdDev = values[0], 0
		return
	}
	s.Avg, s.StdDev = stat.MeanStdDev(values, nil)
}

// Units returns the unit IDs of the breakdown in sorted order.
func (s *Stat) Units() []string {
	units := make([]string, 0, len(s.UnitValues))
	for unit := range s.UnitValues {
		units = append(units, unit)
	}
	sort.Strings(units)
	return units
}

// Imbalance is the coefficient of variation across units (0 when unknown).
func (s *Stat) Imbalance() float64 {
	if len(s.UnitValues) < 2 || s.Avg == 0 {
		return 0
	}
	return s.StdDev / s.Avg
}

func (s *Stat) Clone() *Stat {
	c := *s
	c.UnitRaw = make(map[string]float64, len(s.UnitRaw))
	for k, v := range s.UnitRaw {
		c.UnitRaw[k] = v
	}
	c.UnitValues = make(map[string]float64, len(s.UnitValues))
	for k, v := range s.UnitValues {
		c.UnitValues[k] = v
	}
	if s.Min != nil {
		m := *s.Min
		c.Min = &m
	}
	if s.Max != nil {
		m := *s.Max
		c.Max = &m
	}
	return &c
}
