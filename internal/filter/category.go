package filter

import "landfilter/internal/model"

// Category tags the floor condition a predicate hides
type Category string

const (
	CategoryBasement  Category = "basement"
	CategoryHighFloor Category = "high-floor"
	CategoryLowFloor  Category = "low-floor"
)

// classifiers pairs each category with its test. A new category is a new entry here.
var classifiers = map[Category]func(model.FloorDescriptor) bool{
	CategoryBasement:  func(d model.FloorDescriptor) bool { return d.IsBasement },
	CategoryHighFloor: func(d model.FloorDescriptor) bool { return d.IsHighFloor },
	CategoryLowFloor:  func(d model.FloorDescriptor) bool { return d.IsLowFloor },
}

// Classify reports whether d falls in category c. Unknown categories never match.
func Classify(c Category, d model.FloorDescriptor) bool {
	fn, ok := classifiers[c]
	if !ok {
		return false
	}
	return fn(d)
}
