package filter

import (
	"landfilter/internal/model"
)

// Default catalog ids
const (
	IDHideBasement  = "hide-basement"
	IDHideHighFloor = "hide-high-floor"
	IDHideLowFloor  = "hide-low-floor"
)

// Registry owns the predicate catalog in insertion order
type Registry struct {
	order   []string
	filters map[string]Filter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		filters: make(map[string]Filter),
	}
}

// NewDefaultRegistry creates the fixed catalog, every predicate disabled
func NewDefaultRegistry(extractor Extractor) *Registry {
	r := NewRegistry()
	r.Register(NewPredicate(IDHideBasement, "반지하 및 지하층", CategoryBasement, extractor))
	r.Register(NewPredicate(IDHideHighFloor, "고층", CategoryHighFloor, extractor))
	r.Register(NewPredicate(IDHideLowFloor, "저층", CategoryLowFloor, extractor))
	return r
}

// Register adds f. Re-registering an id replaces it in place.
func (r *Registry) Register(f Filter) {
	if _, exists := r.filters[f.ID()]; !exists {
		r.order = append(r.order, f.ID())
	}
	r.filters[f.ID()] = f
}

// Get returns the filter with the given id
func (r *Registry) Get(id string) (Filter, bool) {
	f, ok := r.filters[id]
	return f, ok
}

// All returns every filter in insertion order
func (r *Registry) All() []Filter {
	all := make([]Filter, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, r.filters[id])
	}
	return all
}

// Active returns the enabled filters in insertion order
func (r *Registry) Active() []Filter {
	var active []Filter
	for _, id := range r.order {
		if f := r.filters[id]; f.Enabled() {
			active = append(active, f)
		}
	}
	return active
}

// ShouldFilterListing is true when any active filter hides item
func (r *Registry) ShouldFilterListing(item Item) bool {
	for _, f := range r.Active() {
		if f.ShouldFilter(item) {
			return true
		}
	}
	return false
}

// ResetAll disables every filter
func (r *Registry) ResetAll() {
	for _, f := range r.filters {
		f.Disable()
	}
}

// Serialize snapshots every filter's state
func (r *Registry) Serialize() (model.FilterState, error) {
	states := make([]model.PredicateState, 0, len(r.order))
	for _, f := range r.All() {
		states = append(states, f.Serialize())
	}
	return model.NewFilterState(states)
}

// Deserialize restores filters present in state. Unknown ids are ignored.
func (r *Registry) Deserialize(state model.FilterState) {
	if state == nil {
		return
	}
	for id, f := range r.filters {
		if raw, ok := state[id]; ok {
			f.Deserialize(raw)
		}
	}
}
