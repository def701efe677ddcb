// Package htmldoc is an in-memory dom.Document over golang.org/x/net/html.
// Locators are CSS selectors compiled with cascadia. Observers receive
// mutation records after the document lock is released, one batch per
// mutating call, filtered by their ObserveOptions. There is no user agent,
// so events are raised explicitly with Click or Dispatch.
package htmldoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"landfilter/internal/dom"
)

// Document is a parsed HTML page that can be mutated and observed
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	selectors map[string]cascadia.Selector
	observers map[*subscription]struct{}
	listeners map[*listener]struct{}
}

var _ dom.Document = (*Document)(nil)

// Parse reads a full HTML document
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return newDocument(root), nil
}

// ParseString parses a full HTML document from a string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		selectors: make(map[string]cascadia.Selector),
		observers: make(map[*subscription]struct{}),
		listeners: make(map[*listener]struct{}),
	}
}

// Render writes the current document as HTML
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document, "" on failure
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Query returns the first element matching locator
func (d *Document) Query(locator string) (dom.Element, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel, err := d.compile(locator)
	if err != nil {
		return nil, false, err
	}
	n := sel.MatchFirst(d.root)
	if n == nil {
		return nil, false, nil
	}
	return d.wrap(n), true, nil
}

// QueryAll returns every element matching locator in document order
func (d *Document) QueryAll(locator string) ([]dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel, err := d.compile(locator)
	if err != nil {
		return nil, err
	}
	nodes := sel.MatchAll(d.root)
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.wrap(n))
	}
	return out, nil
}

// InsertAfter inserts markup right after ref
func (d *Document) InsertAfter(ref dom.Element, markup string) (dom.Element, error) {
	el, err := d.own(ref)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	parent := el.node.Parent
	if parent == nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("htmldoc: insert after detached element: %w", dom.ErrNotFound)
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("htmldoc: parse markup: %w", err)
	}
	next := el.node.NextSibling
	for _, n := range nodes {
		parent.InsertBefore(n, next)
	}
	added, deliveries := d.childListChange(parent, nodes, 0)
	d.mu.Unlock()

	deliver(deliveries)
	return firstElement(added)
}

// Append appends markup to parent
func (d *Document) Append(parent dom.Element, markup string) (dom.Element, error) {
	added, err := d.AppendHTML(parent, markup)
	if err != nil {
		return nil, err
	}
	return firstElement(added)
}

// AppendHTML appends markup to parent and returns every added element.
// Observers see the whole append as one batch, the way a page appends a
// result page at once.
func (d *Document) AppendHTML(parent dom.Element, markup string) ([]*Element, error) {
	el, err := d.own(parent)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	nodes, err := html.ParseFragment(strings.NewReader(markup), el.node)
	if err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("htmldoc: parse markup: %w", err)
	}
	for _, n := range nodes {
		el.node.AppendChild(n)
	}
	added, deliveries := d.childListChange(el.node, nodes, 0)
	d.mu.Unlock()

	deliver(deliveries)
	return added, nil
}

// Observe registers fn for changes under target
func (d *Document) Observe(target dom.Element, opts dom.ObserveOptions, fn func([]dom.Record)) (dom.Subscription, error) {
	el, err := d.own(target)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("htmldoc: observe without callback")
	}

	s := &subscription{doc: d, target: el.node, opts: opts, fn: fn}
	d.mu.Lock()
	d.observers[s] = struct{}{}
	d.mu.Unlock()
	return s, nil
}

// Listen registers fn for events of type event raised at target or below
func (d *Document) Listen(target dom.Element, event string, fn func(dom.Event)) (dom.Subscription, error) {
	el, err := d.own(target)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("htmldoc: listen without callback")
	}

	l := &listener{doc: d, target: el.node, event: event, fn: fn}
	d.mu.Lock()
	d.listeners[l] = struct{}{}
	d.mu.Unlock()
	return l, nil
}

// Click raises a click on el
func (d *Document) Click(el dom.Element) error {
	return d.Dispatch(el, "click")
}

// Dispatch raises an event of type event on el. It bubbles to every
// listener registered on el or one of its ancestors. Listeners run after
// the document lock is released.
func (d *Document) Dispatch(el dom.Element, event string) error {
	e, err := d.own(el)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if !isAncestor(d.root, e.node) {
		d.mu.Unlock()
		return fmt.Errorf("htmldoc: dispatch on detached element: %w", dom.ErrNotFound)
	}
	var calls []func()
	for l := range d.listeners {
		if l.event != event {
			continue
		}
		if l.target != e.node && !isAncestor(l.target, e.node) {
			continue
		}
		ev := dom.Event{Type: event, Path: eventPath(e.node, l.target)}
		fn := l.fn
		calls = append(calls, func() { fn(ev) })
	}
	d.mu.Unlock()

	for _, call := range calls {
		call()
	}
	return nil
}

// compile returns the cached selector for locator. Caller holds d.mu.
func (d *Document) compile(locator string) (cascadia.Selector, error) {
	if sel, ok := d.selectors[locator]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(locator)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: invalid locator %q: %w", locator, err)
	}
	d.selectors[locator] = sel
	return sel, nil
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}

// own checks that e is an element of this document
func (d *Document) own(e dom.Element) (*Element, error) {
	el, ok := e.(*Element)
	if !ok || el == nil {
		return nil, fmt.Errorf("htmldoc: foreign element %T", e)
	}
	if el.doc != d {
		return nil, fmt.Errorf("htmldoc: element belongs to another document")
	}
	return el, nil
}

// childListChange wraps added element nodes and builds deliveries for a
// structural change on parent. Caller holds d.mu.
func (d *Document) childListChange(parent *html.Node, nodes []*html.Node, removed int) ([]*Element, []delivery) {
	var added []*Element
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			added = append(added, d.wrap(n))
		}
	}
	rec := dom.Record{
		Type:    dom.ChildList,
		Target:  d.wrap(parent),
		Removed: removed,
	}
	for _, a := range added {
		rec.Added = append(rec.Added, a)
	}
	return added, d.route(parent, rec)
}

// route picks the observers interested in rec. Caller holds d.mu.
func (d *Document) route(target *html.Node, rec dom.Record) []delivery {
	var out []delivery
	for s := range d.observers {
		if !s.opts.Allows(rec.Type) {
			continue
		}
		if target != s.target && !(s.opts.Subtree && isAncestor(s.target, target)) {
			continue
		}
		out = append(out, delivery{fn: s.fn, records: []dom.Record{rec}})
	}
	return out
}

type delivery struct {
	fn      func([]dom.Record)
	records []dom.Record
}

func deliver(ds []delivery) {
	for _, d := range ds {
		d.fn(d.records)
	}
}

type subscription struct {
	doc    *Document
	target *html.Node
	opts   dom.ObserveOptions
	fn     func([]dom.Record)
}

// Disconnect stops delivery. Safe to call twice.
func (s *subscription) Disconnect() error {
	s.doc.mu.Lock()
	delete(s.doc.observers, s)
	s.doc.mu.Unlock()
	return nil
}

type listener struct {
	doc    *Document
	target *html.Node
	event  string
	fn     func(dom.Event)
}

// Disconnect stops delivery. Safe to call twice.
func (l *listener) Disconnect() error {
	l.doc.mu.Lock()
	delete(l.doc.listeners, l)
	l.doc.mu.Unlock()
	return nil
}

// eventPath snapshots n and its ancestors up to and including stop.
// Caller holds d.mu.
func eventPath(n, stop *html.Node) []dom.EventNode {
	var path []dom.EventNode
	for ; n != nil && n.Type == html.ElementNode; n = n.Parent {
		en := dom.EventNode{Tag: n.Data, Classes: classList(n), Data: map[string]string{}}
		for _, a := range n.Attr {
			switch {
			case a.Key == "id":
				en.ID = a.Val
			case strings.HasPrefix(a.Key, "data-"):
				en.Data[strings.TrimPrefix(a.Key, "data-")] = a.Val
			}
		}
		path = append(path, en)
		if n == stop {
			break
		}
	}
	return path
}

func isAncestor(a, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

func firstElement(added []*Element) (dom.Element, error) {
	if len(added) == 0 {
		return nil, fmt.Errorf("htmldoc: markup has no element: %w", dom.ErrNotFound)
	}
	return added[0], nil
}
