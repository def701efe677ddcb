// Package watcher finds the listing container on a page and reports when
// new listings are appended to it.
package watcher

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"landfilter/internal/dom"
)

// State is the watcher lifecycle position
type State int

const (
	Uninitialized State = iota
	SearchingForContainer
	Observing
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case SearchingForContainer:
		return "searching"
	case Observing:
		return "observing"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Config for creating a Watcher
type Config struct {
	// ContainerLocators are tried in order until one matches.
	ContainerLocators []string
	// ItemLocator identifies a listing among added nodes. Default ".item".
	ItemLocator string
	// RetryDelay between container searches. Default 3s.
	RetryDelay time.Duration
	// SettleDelay between a qualifying batch and the consumer call. Default 100ms.
	SettleDelay time.Duration
	Scheduler   Scheduler
	Logger      *zap.Logger
}

func (c *Config) defaults() {
	if c.ItemLocator == "" {
		c.ItemLocator = ".item"
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 3 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 100 * time.Millisecond
	}
	if c.Scheduler == nil {
		c.Scheduler = SystemScheduler{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Watcher observes the listing container for appended listings. The
// consumer runs once per qualifying batch, SettleDelay after the batch.
type Watcher struct {
	cfg Config
	doc dom.Document

	mu        sync.Mutex
	state     State
	consumer  func()
	container dom.Element
	sub       dom.Subscription
	retry     Timer
	pending   map[Timer]struct{}
}

// New creates a watcher in the Uninitialized state
func New(doc dom.Document, consumer func(), cfg Config) *Watcher {
	cfg.defaults()
	return &Watcher{
		cfg:      cfg,
		doc:      doc,
		consumer: consumer,
		pending:  make(map[Timer]struct{}),
	}
}

// State returns the current lifecycle state
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start begins the container search. A missing container is retried every
// RetryDelay until found or stopped.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Uninitialized {
		return
	}
	w.attempt()
}

// attempt resolves the container and subscribes. Caller holds w.mu.
func (w *Watcher) attempt() {
	w.retry = nil

	container, loc, ok := dom.QueryFirst(w.doc, w.cfg.ContainerLocators)
	if ok {
		sub, err := w.doc.Observe(container, dom.ObserveOptions{ChildList: true, Subtree: true}, w.onRecords)
		if err == nil {
			w.container = container
			w.sub = sub
			w.state = Observing
			w.cfg.Logger.Info("listing container observed", zap.String("locator", loc))
			return
		}
		w.cfg.Logger.Warn("observe listing container failed", zap.String("locator", loc), zap.Error(err))
	} else {
		w.cfg.Logger.Warn("listing container not found, retrying",
			zap.Duration("retry_delay", w.cfg.RetryDelay))
	}

	w.state = SearchingForContainer
	w.retry = w.cfg.Scheduler.AfterFunc(w.cfg.RetryDelay, w.onRetry)
}

func (w *Watcher) onRetry() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != SearchingForContainer {
		return
	}
	w.attempt()
}

func (w *Watcher) onRecords(records []dom.Record) {
	if !w.hasNewListings(records) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Observing {
		return
	}

	var t Timer
	t = w.cfg.Scheduler.AfterFunc(w.cfg.SettleDelay, func() {
		w.mu.Lock()
		delete(w.pending, t)
		consumer := w.consumer
		active := w.state == Observing
		w.mu.Unlock()

		if active && consumer != nil {
			consumer()
		}
	})
	w.pending[t] = struct{}{}
}

// hasNewListings reports whether any child-list record added a listing or
// a subtree holding one. Other record types never qualify.
func (w *Watcher) hasNewListings(records []dom.Record) bool {
	for _, rec := range records {
		if rec.Type != dom.ChildList {
			continue
		}
		for _, el := range rec.Added {
			if ok, err := el.Matches(w.cfg.ItemLocator); err == nil && ok {
				return true
			}
			if ok, err := el.Contains(w.cfg.ItemLocator); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Stop cancels pending work and unsubscribes. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.state == Stopped {
		w.mu.Unlock()
		return
	}
	if w.retry != nil {
		w.retry.Stop()
		w.retry = nil
	}
	for t := range w.pending {
		t.Stop()
	}
	w.pending = make(map[Timer]struct{})
	sub := w.sub
	w.sub = nil
	w.container = nil
	w.consumer = nil
	w.state = Stopped
	w.mu.Unlock()

	if sub != nil {
		if err := sub.Disconnect(); err != nil {
			w.cfg.Logger.Warn("disconnect observer failed", zap.Error(err))
		}
	}
}
