package stats

// Registry maps counter names to stats. Keys are unique; insertion order is kept so that
// every group derived from the registry comes out in a deterministic order.
type Registry struct {
	names []string
	stats map[string]*Stat
}

func NewRegistry() *Registry {
	return &Registry{stats: make(map[string]*Stat)}
}

// Add inserts s, or merges it into the stat already registered under the same name.
func (r *Registry) Add(s *Stat) error {
	if s == nil || s.Name == "" {
		return ErrEmptyStatName
	}
	if existing, ok := r.stats[s.Name]; ok {
		return existing.Merge(s)
	}
	r.stats[s.Name] = s
	r.names = append(r.names, s.Name)
	return nil
}

// Set registers a plain value, replacing any previous stat of that name.
func (r *Registry) Set(name string, value float64, valueType ValueType) *Stat {
	s := New(name, value, valueType)
	if _, ok := r.stats[name]; !ok {
		r.names = append(r.names, name)
	}
	r.stats[name] = s
	return s
}

func (r *Registry) Get(name string) (*Stat, bool) {
	s, ok := r.stats[name]
	return s, ok
}

// Value returns the scalar value of a counter.
func (r *Registry) Value(name string) (float64, bool) {
	s, ok := r.stats[name]
	if !ok {
		return 0, false
	}
	return s.Value, true
}

// ValueOr returns the counter value or def when the counter is absent.
func (r *Registry) ValueOr(name string, def float64) float64 {
	if v, ok := r.Value(name); ok {
		return v
	}
	return def
}

func (r *Registry) Has(name string) bool {
	_, ok := r.stats[name]
	return ok
}

// Names returns the counter names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Len() int { return len(r.names) }

// Range calls fn for every stat in insertion order until fn returns false.
func (r *Registry) Range(fn func(name string, s *Stat) bool) {
	for _, name := range r.names {
		if !fn(name, r.stats[name]) {
			return
		}
	}
}
