// Package rodpage adapts a live go-rod page to dom.Document. Mutations and
// user events are captured by injected page scripts and reported back
// through a CDP runtime binding.
package rodpage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"landfilter/internal/dom"
)

//go:embed observer.js
var observerJS string

//go:embed listener.js
var listenerJS string

// resolveNodeJS hands out an added node once and forgets it
const resolveNodeJS = `(ref) => {
	const nodes = window.__landfilterNodes;
	if (!nodes) return null;
	const n = nodes.get(ref);
	nodes.delete(ref);
	return n && n.isConnected ? n : null;
}`

const bindingName = "__landfilterBinding"

// Page is a dom.Document backed by a browser tab
type Page struct {
	page   *rod.Page
	logger *zap.Logger

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	listening bool
	subs      map[string]*subscription
}

var _ dom.Document = (*Page)(nil)

// New wraps page. Cancel ctx or call Close to stop event delivery.
func New(ctx context.Context, page *rod.Page, logger *zap.Logger) *Page {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Page{
		page:   page,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]*subscription),
	}
}

// Rod exposes the underlying page
func (p *Page) Rod() *rod.Page {
	return p.page
}

// HTML returns the current document markup
func (p *Page) HTML() (string, error) {
	return p.page.Context(p.ctx).HTML()
}

// Close stops observation. The tab itself stays open.
func (p *Page) Close() error {
	p.mu.Lock()
	ids := make([]string, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		_ = p.disconnect(id)
	}
	p.cancel()
	return nil
}

func (p *Page) Query(locator string) (dom.Element, bool, error) {
	has, el, err := p.page.Context(p.ctx).Has(locator)
	if err != nil {
		return nil, false, fmt.Errorf("rodpage: query %q: %w", locator, err)
	}
	if !has {
		return nil, false, nil
	}
	return p.wrap(el), true, nil
}

func (p *Page) QueryAll(locator string) ([]dom.Element, error) {
	els, err := p.page.Context(p.ctx).Elements(locator)
	if err != nil {
		return nil, fmt.Errorf("rodpage: query all %q: %w", locator, err)
	}
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		out = append(out, p.wrap(el))
	}
	return out, nil
}

func (p *Page) InsertAfter(ref dom.Element, markup string) (dom.Element, error) {
	el, err := p.own(ref)
	if err != nil {
		return nil, err
	}
	inserted, err := el.el.ElementByJS(rod.Eval(`(html) => {
		this.insertAdjacentHTML("afterend", html);
		return this.nextElementSibling;
	}`, markup))
	if err != nil {
		return nil, notFound("insert after", err)
	}
	return p.wrap(inserted), nil
}

func (p *Page) Append(parent dom.Element, markup string) (dom.Element, error) {
	el, err := p.own(parent)
	if err != nil {
		return nil, err
	}
	appended, err := el.el.ElementByJS(rod.Eval(`(html) => {
		const before = this.lastElementChild;
		this.insertAdjacentHTML("beforeend", html);
		const first = before ? before.nextElementSibling : this.firstElementChild;
		return first;
	}`, markup))
	if err != nil {
		return nil, notFound("append", err)
	}
	return p.wrap(appended), nil
}

// Observe injects a MutationObserver on target. Added element nodes are
// kept in a page-side map until they are resolved back to live elements.
func (p *Page) Observe(target dom.Element, opts dom.ObserveOptions, fn func([]dom.Record)) (dom.Subscription, error) {
	el, err := p.own(target)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("rodpage: observe without callback")
	}
	if err := p.listen(); err != nil {
		return nil, err
	}

	s := &subscription{id: uuid.NewString(), page: p, target: el, opts: opts, fn: fn}
	p.mu.Lock()
	p.subs[s.id] = s
	p.mu.Unlock()

	jsOpts := map[string]bool{
		"childList":     opts.ChildList,
		"subtree":       opts.Subtree,
		"attributes":    opts.Attributes,
		"characterData": opts.CharacterData,
	}
	if _, err := el.el.Eval(observerJS, s.id, bindingName, jsOpts); err != nil {
		p.mu.Lock()
		delete(p.subs, s.id)
		p.mu.Unlock()
		return nil, fmt.Errorf("rodpage: inject observer: %w", err)
	}
	p.logger.Debug("observer injected", zap.String("subscription", s.id))
	return s, nil
}

// Listen installs a delegated listener for event on target. The
// propagation path is snapshotted in the page when the event fires.
func (p *Page) Listen(target dom.Element, event string, fn func(dom.Event)) (dom.Subscription, error) {
	el, err := p.own(target)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("rodpage: listen without callback")
	}
	if err := p.listen(); err != nil {
		return nil, err
	}

	s := &subscription{id: uuid.NewString(), page: p, target: el, onEvent: fn}
	p.mu.Lock()
	p.subs[s.id] = s
	p.mu.Unlock()

	if _, err := el.el.Eval(listenerJS, s.id, bindingName, event); err != nil {
		p.mu.Lock()
		delete(p.subs, s.id)
		p.mu.Unlock()
		return nil, fmt.Errorf("rodpage: inject listener: %w", err)
	}
	p.logger.Debug("listener injected", zap.String("subscription", s.id), zap.String("event", event))
	return s, nil
}

// listen installs the runtime binding and its event loop once per page
func (p *Page) listen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listening {
		return nil
	}

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(p.page); err != nil {
		return fmt.Errorf("rodpage: add binding: %w", err)
	}
	wait := p.page.Context(p.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		p.dispatch(e.Payload)
	})
	go wait()
	p.listening = true
	return nil
}

type bindingPayload struct {
	Sub     string `json:"sub"`
	Records []struct {
		Type    string   `json:"type"`
		Attr    string   `json:"attr"`
		Removed int      `json:"removed"`
		Added   []string `json:"added"`
	} `json:"records"`
	Event *struct {
		Type string `json:"type"`
		Path []struct {
			Tag     string            `json:"tag"`
			ID      string            `json:"id"`
			Classes []string          `json:"classes"`
			Data    map[string]string `json:"data"`
		} `json:"path"`
	} `json:"event"`
}

func (p *Page) dispatch(payload string) {
	var msg bindingPayload
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		p.logger.Warn("malformed binding payload", zap.Error(err))
		return
	}

	p.mu.Lock()
	s, ok := p.subs[msg.Sub]
	p.mu.Unlock()
	if !ok || (msg.Event == nil && s.fn == nil) {
		p.forget(msg.addedRefs())
		return
	}

	if msg.Event != nil {
		if s.onEvent == nil {
			return
		}
		ev := dom.Event{Type: msg.Event.Type}
		for _, n := range msg.Event.Path {
			ev.Path = append(ev.Path, dom.EventNode{Tag: n.Tag, ID: n.ID, Classes: n.Classes, Data: n.Data})
		}
		s.onEvent(ev)
		return
	}

	records := make([]dom.Record, 0, len(msg.Records))
	for _, r := range msg.Records {
		rec := dom.Record{
			Type:          dom.RecordType(r.Type),
			Target:        s.target,
			Removed:       r.Removed,
			AttributeName: r.Attr,
		}
		if !s.opts.Allows(rec.Type) {
			p.forget(r.Added)
			continue
		}
		for _, ref := range r.Added {
			el, err := p.resolve(ref)
			if err != nil {
				// removed again before we got to it
				continue
			}
			rec.Added = append(rec.Added, p.wrap(el))
		}
		records = append(records, rec)
	}
	if len(records) > 0 {
		s.fn(records)
	}
}

func (m bindingPayload) addedRefs() []string {
	var refs []string
	for _, r := range m.Records {
		refs = append(refs, r.Added...)
	}
	return refs
}

// forget drops node refs that will never be resolved
func (p *Page) forget(refs []string) {
	if len(refs) == 0 {
		return
	}
	_, err := p.page.Context(p.ctx).Eval(`(refs) => {
		const nodes = window.__landfilterNodes;
		if (nodes) for (const r of refs) nodes.delete(r);
	}`, refs)
	if err != nil {
		p.logger.Debug("forget node refs failed", zap.Error(err))
	}
}

// resolve returns the live node recorded under ref without retrying
func (p *Page) resolve(ref string) (*rod.Element, error) {
	return p.page.Context(p.ctx).Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(resolveNodeJS, ref))
}

func (p *Page) disconnect(id string) error {
	p.mu.Lock()
	_, ok := p.subs[id]
	delete(p.subs, id)
	p.mu.Unlock()
	if !ok {
		return nil
	}

	_, err := p.page.Context(p.ctx).Eval(`(id) => {
		const observers = window.__landfilterObservers || {};
		if (observers[id]) {
			observers[id].disconnect();
			delete observers[id];
		}
		const listeners = window.__landfilterListeners || {};
		if (listeners[id]) {
			listeners[id]();
			delete listeners[id];
		}
	}`, id)
	if err != nil {
		return fmt.Errorf("rodpage: disconnect: %w", err)
	}
	return nil
}

func (p *Page) wrap(el *rod.Element) *Element {
	return &Element{page: p, el: el}
}

func (p *Page) own(e dom.Element) (*Element, error) {
	el, ok := e.(*Element)
	if !ok || el == nil || el.page != p {
		return nil, fmt.Errorf("rodpage: foreign element %T", e)
	}
	return el, nil
}

// subscription is either an observer (fn) or a listener (onEvent)
type subscription struct {
	id      string
	page    *Page
	target  *Element
	opts    dom.ObserveOptions
	fn      func([]dom.Record)
	onEvent func(dom.Event)
}

func (s *subscription) Disconnect() error {
	return s.page.disconnect(s.id)
}

// Element is a live element of a Page
type Element struct {
	page *Page
	el   *rod.Element
}

var _ dom.Element = (*Element)(nil)

func (e *Element) QueryText(locator string) (string, bool, error) {
	has, child, err := e.el.Has(locator)
	if err != nil {
		return "", false, fmt.Errorf("rodpage: query %q: %w", locator, err)
	}
	if !has {
		return "", false, nil
	}
	res, err := child.Eval(`() => this.textContent || ""`)
	if err != nil {
		return "", false, fmt.Errorf("rodpage: read text: %w", err)
	}
	return strings.TrimSpace(res.Value.Str()), true, nil
}

func (e *Element) Matches(locator string) (bool, error) {
	return e.el.Matches(locator)
}

func (e *Element) Contains(locator string) (bool, error) {
	has, _, err := e.el.Has(locator)
	return has, err
}

func (e *Element) HasClass(name string) (bool, error) {
	res, err := e.el.Eval(`(c) => this.classList.contains(c)`, name)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *Element) AddClass(name string) error {
	_, err := e.el.Eval(`(c) => this.classList.add(c)`, name)
	return err
}

func (e *Element) RemoveClass(name string) error {
	_, err := e.el.Eval(`(c) => this.classList.remove(c)`, name)
	return err
}

func (e *Element) SetText(text string) error {
	_, err := e.el.Eval(`(t) => { this.textContent = t }`, text)
	return err
}

func (e *Element) Remove() error {
	return e.el.Remove()
}

func notFound(op string, err error) error {
	var nf *rod.ElementNotFoundError
	if errors.As(err, &nf) {
		return fmt.Errorf("rodpage: %s: %w", op, dom.ErrNotFound)
	}
	return fmt.Errorf("rodpage: %s: %w", op, err)
}
