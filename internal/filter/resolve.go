package filter

import (
	"strings"
)

// categoryAliases are the loose names people use for each category
var categoryAliases = map[Category][]string{
	CategoryBasement:  {"basement", "지하", "반지하", "지하층", "b"},
	CategoryHighFloor: {"high", "high-floor", "고층", "고"},
	CategoryLowFloor:  {"low", "low-floor", "저층", "저"},
}

// Resolve maps a user-supplied reference to a filter id. It accepts the
// id itself, the display name, the category or one of its aliases,
// compared case-insensitively. The first filter in registry order wins.
func (r *Registry) Resolve(term string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return "", false
	}

	if _, ok := r.filters[t]; ok {
		return t, true
	}
	for _, f := range r.All() {
		if strings.ToLower(f.Name()) == t || string(f.Category()) == t {
			return f.ID(), true
		}
	}
	for _, f := range r.All() {
		for _, alias := range categoryAliases[f.Category()] {
			if alias == t {
				return f.ID(), true
			}
		}
	}
	return "", false
}
