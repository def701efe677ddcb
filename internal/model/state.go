package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PredicateState is the persisted form of a single predicate
type PredicateState struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// FilterState is the persisted snapshot of the whole registry, keyed by predicate id.
// Values stay raw so one malformed entry cannot poison the others.
type FilterState map[string]json.RawMessage

// NewFilterState builds a snapshot from predicate states
func NewFilterState(states []PredicateState) (FilterState, error) {
	fs := make(FilterState, len(states))
	for _, s := range states {
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to encode predicate %s: %w", s.ID, err)
		}
		fs[s.ID] = raw
	}
	return fs, nil
}

// Value implements driver.Valuer interface
func (f FilterState) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (f *FilterState) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("unsupported filter state type %T", value)
	}
}
