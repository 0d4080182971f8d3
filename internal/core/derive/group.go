// Package derive turns the raw counter registry into the grouped and normalized quantities
// the tree builder and the advisor consume.
package derive

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zeusync/drgpu/internal/core/stats"
)

type Entry struct {
	Name string
	Stat *stats.Stat
}

// Value is the entry's scalar, 0 for a nil stat.
func (e Entry) Value() float64 {
	if e.Stat == nil {
		return 0
	}
	return e.Stat.Value
}

// Group is an ordered set of counters sharing a naming convention.
type Group []Entry

func (g Group) Total() float64 {
	var total float64
	for _, e := range g {
		total += e.Value()
	}
	return total
}

func (g Group) Names() []string {
	names := make([]string, len(g))
	for i, e := range g {
		names[i] = e.Name
	}
	return names
}

func (g Group) Get(name string) (*stats.Stat, bool) {
	for _, e := range g {
		if e.Name == name {
			return e.Stat, true
		}
	}
	return nil, false
}

// Largest returns the entry with the highest value; the first one wins ties.
func (g Group) Largest() (Entry, bool) {
	if len(g) == 0 {
		return Entry{}, false
	}
	best := g[0]
	for _, e := range g[1:] {
		if e.Value() > best.Value() {
			best = e
		}
	}
	return best, true
}

// Shares rescales every entry to its fraction of the group total. The returned stats are
// copies typed as percentages; a zero total yields an empty group.
func (g Group) Shares() Group {
	total := g.Total()
	if total <= 0 {
		return nil
	}
	out := make(Group, 0, len(g))
	for _, e := range g {
		s := e.Stat.Clone()
		s.Value = e.Value() / total
		s.ValueType = stats.ValueTypePercentage
		out = append(out, Entry{Name: e.Name, Stat: s})
	}
	return out
}

// Select applies the display policy shared by every branch: non-positive entries are
// dropped, then entries are taken largest first while fewer than maxNodes are taken and
// their cumulative share of the positive total is below maxShare. A non-positive limit
// disables it. The result keeps group order.
func (g Group) Select(maxNodes int, maxShare float64) Group {
	positive := make(Group, 0, len(g))
	for _, e := range g {
		if e.Value() > 0 {
			positive = append(positive, e)
		}
	}
	total := positive.Total()

	order := make([]int, len(positive))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return positive[order[a]].Value() > positive[order[b]].Value()
	})

	keep := make([]bool, len(positive))
	var taken int
	var cum float64
	for _, i := range order {
		if maxNodes > 0 && taken >= maxNodes {
			break
		}
		if maxShare > 0 && total > 0 && cum/total >= maxShare {
			break
		}
		keep[i] = true
		taken++
		cum += positive[i].Value()
	}

	out := make(Group, 0, taken)
	for i, e := range positive {
		if keep[i] {
			out = append(out, e)
		}
	}
	return out
}

// GroupByPrefix returns every counter whose name starts with prefix, in registry order.
func GroupByPrefix(reg *stats.Registry, prefix string) Group {
	var g Group
	reg.Range(func(name string, s *stats.Stat) bool {
		if strings.HasPrefix(name, prefix) {
			g = append(g, Entry{Name: name, Stat: s})
		}
		return true
	})
	return g
}

// GroupByPattern returns every counter whose name matches any of the patterns, in
// registry order.
func GroupByPattern(reg *stats.Registry, patterns ...*regexp.Regexp) Group {
	var g Group
	reg.Range(func(name string, s *stats.Stat) bool {
		for _, re := range patterns {
			if re.MatchString(name) {
				g = append(g, Entry{Name: name, Stat: s})
				break
			}
		}
		return true
	})
	return g
}
