// Package dom is the narrow view of a host page the filtering pipeline needs:
// locate elements, read text, toggle classes, insert markup, and observe
// structural changes. The host owns every element; callers only annotate.
package dom

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a required element does not exist
var ErrNotFound = errors.New("dom: element not found")

// RecordType mirrors the MutationObserver record types
type RecordType string

const (
	ChildList     RecordType = "childList"
	Attributes    RecordType = "attributes"
	CharacterData RecordType = "characterData"
)

// Record is one observed change
type Record struct {
	Type          RecordType
	Target        Element
	Added         []Element // element nodes only
	Removed       int
	AttributeName string
}

// ObserveOptions selects which changes an observation reports
type ObserveOptions struct {
	ChildList     bool
	Subtree       bool
	Attributes    bool
	CharacterData bool
}

// Allows reports whether a record of type t passes these options
func (o ObserveOptions) Allows(t RecordType) bool {
	switch t {
	case ChildList:
		return o.ChildList
	case Attributes:
		return o.Attributes
	case CharacterData:
		return o.CharacterData
	}
	return false
}

// EventNode is a snapshot of one element on an event's propagation path
type EventNode struct {
	Tag     string
	ID      string
	Classes []string
	// Data holds data-* attributes keyed without the "data-" prefix.
	Data map[string]string
}

// HasClass reports whether the node carried class name
func (n EventNode) HasClass(name string) bool {
	for _, c := range n.Classes {
		if c == name {
			return true
		}
	}
	return false
}

// Event is a user event seen by a listener. Path runs from the event
// target up to and including the listened element.
type Event struct {
	Type string
	Path []EventNode
}

// Closest returns the first node on the path, starting at the target,
// that satisfies match.
func (e Event) Closest(match func(EventNode) bool) (EventNode, bool) {
	for _, n := range e.Path {
		if match(n) {
			return n, true
		}
	}
	return EventNode{}, false
}

// Subscription is an active observation or listener
type Subscription interface {
	Disconnect() error
}

// Element is a host-owned node
type Element interface {
	// QueryText returns the trimmed text of the first descendant matching
	// locator, and false when there is none.
	QueryText(locator string) (string, bool, error)
	// Matches reports whether the element itself matches locator.
	Matches(locator string) (bool, error)
	// Contains reports whether any descendant matches locator.
	Contains(locator string) (bool, error)
	HasClass(name string) (bool, error)
	AddClass(name string) error
	RemoveClass(name string) error
	SetText(text string) error
	Remove() error
}

// Document is a host page
type Document interface {
	// Query returns the first element matching locator.
	Query(locator string) (Element, bool, error)
	QueryAll(locator string) ([]Element, error)
	// InsertAfter parses markup and inserts it right after ref, returning
	// the first inserted element.
	InsertAfter(ref Element, markup string) (Element, error)
	// Append parses markup and appends it to parent, returning the first
	// inserted element.
	Append(parent Element, markup string) (Element, error)
	// Observe reports changes under target to fn, one call per batch.
	Observe(target Element, opts ObserveOptions, fn func([]Record)) (Subscription, error)
	// Listen reports events of the given type dispatched at target or any
	// of its descendants.
	Listen(target Element, event string, fn func(Event)) (Subscription, error)
}

// QueryFirst tries locators in order and returns the first element found.
// Locator errors are skipped so one bad fallback cannot mask the others.
func QueryFirst(doc Document, locators []string) (Element, string, bool) {
	for _, loc := range locators {
		el, ok, err := doc.Query(loc)
		if err != nil || !ok {
			continue
		}
		return el, loc, true
	}
	return nil, "", false
}

// WaitForElement returns the first element matching locator, waiting up
// to timeout for it to be added under body. It gives up early when ctx is
// done.
func WaitForElement(ctx context.Context, doc Document, locator string, timeout time.Duration) (Element, bool) {
	if el, ok, err := doc.Query(locator); err == nil && ok {
		return el, true
	} else if err != nil {
		return nil, false
	}

	body, ok, err := doc.Query("body")
	if err != nil || !ok {
		return nil, false
	}

	changed := make(chan struct{}, 1)
	sub, err := doc.Observe(body, ObserveOptions{ChildList: true, Subtree: true}, func([]Record) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return nil, false
	}
	defer sub.Disconnect()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		// re-check after subscribing so an insert in between is not missed
		if el, ok, err := doc.Query(locator); err == nil && ok {
			return el, true
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-changed:
		}
	}
}
