package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"landfilter/internal/dom"
)

// Element is a node of a Document
type Element struct {
	doc  *Document
	node *html.Node
}

var _ dom.Element = (*Element)(nil)

// Tag returns the element's tag name
func (e *Element) Tag() string {
	return e.node.Data
}

// Attr returns the value of attribute key
func (e *Element) Attr(key string) (string, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, a := range e.node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the trimmed text content of the element
func (e *Element) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return strings.TrimSpace(textContent(e.node))
}

// Connected reports whether the element is still attached to its document
func (e *Element) Connected() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.node == e.doc.root || isAncestor(e.doc.root, e.node)
}

func (e *Element) QueryText(locator string) (string, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	n, err := e.firstDescendant(locator)
	if err != nil || n == nil {
		return "", false, err
	}
	return strings.TrimSpace(textContent(n)), true, nil
}

// Query returns the first descendant matching locator
func (e *Element) Query(locator string) (*Element, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	n, err := e.firstDescendant(locator)
	if err != nil || n == nil {
		return nil, false, err
	}
	return e.doc.wrap(n), true, nil
}

func (e *Element) Matches(locator string) (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	sel, err := e.doc.compile(locator)
	if err != nil {
		return false, err
	}
	return sel.Match(e.node), nil
}

func (e *Element) Contains(locator string) (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	n, err := e.firstDescendant(locator)
	return n != nil, err
}

func (e *Element) HasClass(name string) (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, c := range classList(e.node) {
		if c == name {
			return true, nil
		}
	}
	return false, nil
}

// AddClass adds name to the class list. Observers see an attributes
// record only when the list actually changed.
func (e *Element) AddClass(name string) error {
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("htmldoc: invalid class name %q", name)
	}
	e.doc.mu.Lock()
	classes := classList(e.node)
	for _, c := range classes {
		if c == name {
			e.doc.mu.Unlock()
			return nil
		}
	}
	setClassList(e.node, append(classes, name))
	ds := e.doc.route(e.node, dom.Record{Type: dom.Attributes, Target: e, AttributeName: "class"})
	e.doc.mu.Unlock()

	deliver(ds)
	return nil
}

// RemoveClass removes name from the class list
func (e *Element) RemoveClass(name string) error {
	e.doc.mu.Lock()
	classes := classList(e.node)
	kept := classes[:0:0]
	for _, c := range classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(classes) {
		e.doc.mu.Unlock()
		return nil
	}
	setClassList(e.node, kept)
	ds := e.doc.route(e.node, dom.Record{Type: dom.Attributes, Target: e, AttributeName: "class"})
	e.doc.mu.Unlock()

	deliver(ds)
	return nil
}

// SetText replaces the element's children with a single text node
func (e *Element) SetText(text string) error {
	e.doc.mu.Lock()
	removed := 0
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
		removed++
	}
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	_, ds := e.doc.childListChange(e.node, nil, removed)
	e.doc.mu.Unlock()

	deliver(ds)
	return nil
}

// Remove detaches the element from its parent
func (e *Element) Remove() error {
	e.doc.mu.Lock()
	parent := e.node.Parent
	if parent == nil {
		e.doc.mu.Unlock()
		return nil
	}
	// route before detaching so subtree observers still see the parent
	_, ds := e.doc.childListChange(parent, nil, 1)
	parent.RemoveChild(e.node)
	e.doc.mu.Unlock()

	deliver(ds)
	return nil
}

// firstDescendant matches locator below e, excluding e. Caller holds doc.mu.
func (e *Element) firstDescendant(locator string) (*html.Node, error) {
	sel, err := e.doc.compile(locator)
	if err != nil {
		return nil, err
	}
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if n := sel.MatchFirst(c); n != nil {
			return n, nil
		}
	}
	return nil, nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func classList(n *html.Node) []string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func setClassList(n *html.Node, classes []string) {
	val := strings.Join(classes, " ")
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: val})
}
