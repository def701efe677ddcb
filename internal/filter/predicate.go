// Package filter holds the toggleable predicates that decide whether a
// listing is hidden, and the registry that combines them.
package filter

import (
	"encoding/json"

	"landfilter/internal/floor"
	"landfilter/internal/model"
)

// Item is a listing as seen by a predicate
type Item interface {
	// FloorText returns the listing's floor fragment, "" when it has none
	FloorText() string
}

// Extractor turns floor text into a descriptor
type Extractor interface {
	Extract(text string) model.FloorDescriptor
}

// ExtractorFunc adapts a plain function to Extractor
type ExtractorFunc func(text string) model.FloorDescriptor

// Extract calls f(text)
func (f ExtractorFunc) Extract(text string) model.FloorDescriptor {
	return f(text)
}

// Filter is the capability set the registry works with
type Filter interface {
	ID() string
	Name() string
	Category() Category
	ShouldFilter(item Item) bool
	Enable()
	Disable()
	Toggle()
	Enabled() bool
	Serialize() model.PredicateState
	Deserialize(raw json.RawMessage)
}

// Predicate hides listings whose floor falls in its category
type Predicate struct {
	id        string
	name      string
	category  Category
	enabled   bool
	extractor Extractor
}

var _ Filter = (*Predicate)(nil)

// NewPredicate creates a disabled predicate. A nil extractor means floor.Extract.
func NewPredicate(id, name string, category Category, extractor Extractor) *Predicate {
	if extractor == nil {
		extractor = ExtractorFunc(floor.Extract)
	}
	return &Predicate{
		id:        id,
		name:      name,
		category:  category,
		extractor: extractor,
	}
}

func (p *Predicate) ID() string         { return p.id }
func (p *Predicate) Name() string       { return p.name }
func (p *Predicate) Category() Category { return p.category }
func (p *Predicate) Enabled() bool      { return p.enabled }
func (p *Predicate) Enable()            { p.enabled = true }
func (p *Predicate) Disable()           { p.enabled = false }
func (p *Predicate) Toggle()            { p.enabled = !p.enabled }

// ShouldFilter reports whether item must be hidden. A disabled predicate
// returns false without reading the item or running extraction.
func (p *Predicate) ShouldFilter(item Item) bool {
	if !p.enabled || item == nil {
		return false
	}
	d := p.extractor.Extract(item.FloorText())
	return Classify(p.category, d)
}

// Serialize returns the persisted form
func (p *Predicate) Serialize() model.PredicateState {
	return model.PredicateState{ID: p.id, Enabled: p.enabled}
}

// Deserialize restores enabled from a persisted payload. Malformed payloads,
// a missing "enabled" or a non-boolean one leave the state unchanged.
func (p *Predicate) Deserialize(raw json.RawMessage) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if enabled, ok := payload["enabled"].(bool); ok {
		p.enabled = enabled
	}
}
