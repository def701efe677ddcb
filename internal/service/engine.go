package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"landfilter/internal/config"
	"landfilter/internal/dom"
	"landfilter/internal/filter"
	"landfilter/internal/metrics"
	"landfilter/internal/model"
	"landfilter/internal/watcher"
)

// HiddenClass marks a listing hidden by the filter
const HiddenClass = "naver-land-hidden"

// ErrUnknownFilter is returned for an id missing from the registry
var ErrUnknownFilter = errors.New("unknown filter")

// StateStore persists registry snapshots
type StateStore interface {
	Save(ctx context.Context, state model.FilterState) error
	Load(ctx context.Context) (model.FilterState, bool, error)
}

// EngineConfig configures a FilterEngine
type EngineConfig struct {
	Locators    config.Locators
	RetryDelay  time.Duration
	SettleDelay time.Duration
	Scheduler   watcher.Scheduler
	// OnNewContent runs after each watcher-triggered pass, outside the engine lock.
	OnNewContent func(model.Counts)
}

// FilterEngine applies the registry to the listings of one page. All
// methods are safe for concurrent use; they run one at a time.
type FilterEngine struct {
	doc      dom.Document
	registry *filter.Registry
	store    StateStore
	cfg      EngineConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	watcher *watcher.Watcher
}

// NewFilterEngine creates an engine. store, logger and m may be nil.
func NewFilterEngine(doc dom.Document, registry *filter.Registry, store StateStore, cfg EngineConfig, logger *zap.Logger, m *metrics.Metrics) *FilterEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Locators.Listings == "" {
		cfg.Locators = config.DefaultLocators()
	}
	return &FilterEngine{
		doc:      doc,
		registry: registry,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// listing exposes a page element to the predicates. The floor text is read
// only when a predicate asks for it.
type listing struct {
	el   dom.Element
	spec string
}

func (l listing) FloorText() string {
	text, ok, err := l.el.QueryText(l.spec)
	if err != nil || !ok {
		return ""
	}
	return text
}

// FilterAll recomputes the hidden marker of every listing
func (e *FilterEngine) FilterAll() model.Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filterAll()
}

func (e *FilterEngine) filterAll() model.Counts {
	items, err := e.doc.QueryAll(e.cfg.Locators.Listings)
	if err != nil {
		e.logger.Error("query listings failed", zap.Error(err))
		return model.Counts{}
	}

	hidden := 0
	for _, el := range items {
		if err := el.RemoveClass(HiddenClass); err != nil {
			e.logger.Warn("clear hidden marker failed", zap.Error(err))
		}
		if !e.registry.ShouldFilterListing(listing{el: el, spec: e.cfg.Locators.FloorSpec}) {
			continue
		}
		if err := el.AddClass(HiddenClass); err != nil {
			e.logger.Warn("set hidden marker failed", zap.Error(err))
			continue
		}
		hidden++
	}

	counts := model.NewCounts(len(items), hidden)
	e.metrics.Observe(counts.Total, counts.Hidden)
	e.logger.Debug("filter pass complete",
		zap.Int("total", counts.Total),
		zap.Int("hidden", counts.Hidden))
	return counts
}

// HandleNewContent reruns the filter when any predicate is active and
// otherwise just recounts
func (e *FilterEngine) HandleNewContent() model.Counts {
	e.mu.Lock()
	var counts model.Counts
	if len(e.registry.Active()) > 0 {
		counts = e.filterAll()
	} else {
		counts = e.counts()
	}
	hook := e.cfg.OnNewContent
	e.mu.Unlock()

	if hook != nil {
		hook(counts)
	}
	return counts
}

// Counts reads the current markers without changing them
func (e *FilterEngine) Counts() model.Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts()
}

func (e *FilterEngine) counts() model.Counts {
	items, err := e.doc.QueryAll(e.cfg.Locators.Listings)
	if err != nil {
		e.logger.Error("query listings failed", zap.Error(err))
		return model.Counts{}
	}
	hidden := 0
	for _, el := range items {
		if ok, err := el.HasClass(HiddenClass); err == nil && ok {
			hidden++
		}
	}
	return model.NewCounts(len(items), hidden)
}

// ActiveFilterNames returns the display names of enabled predicates
func (e *FilterEngine) ActiveFilterNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := []string{}
	for _, f := range e.registry.Active() {
		names = append(names, f.Name())
	}
	return names
}

func (e *FilterEngine) HasActiveFilters() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.registry.Active()) > 0
}

// Filters describes the whole catalog in registry order
func (e *FilterEngine) Filters() []model.FilterInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	all := e.registry.All()
	infos := make([]model.FilterInfo, 0, len(all))
	for _, f := range all {
		infos = append(infos, model.FilterInfo{
			ID:       f.ID(),
			Name:     f.Name(),
			Category: string(f.Category()),
			Enabled:  f.Enabled(),
		})
	}
	return infos
}

// Toggle flips a predicate and returns its new state
func (e *FilterEngine) Toggle(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.registry.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownFilter, id)
	}
	f.Toggle()
	return f.Enabled(), nil
}

// SetEnabled sets a predicate's state
func (e *FilterEngine) SetEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, id)
	}
	if enabled {
		f.Enable()
	} else {
		f.Disable()
	}
	return nil
}

// ResetAllFilters disables every predicate and clears every marker
func (e *FilterEngine) ResetAllFilters() model.Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.ResetAll()

	items, err := e.doc.QueryAll(e.cfg.Locators.Listings)
	if err != nil {
		e.logger.Error("query listings failed", zap.Error(err))
		return model.Counts{}
	}
	for _, el := range items {
		if err := el.RemoveClass(HiddenClass); err != nil {
			e.logger.Warn("clear hidden marker failed", zap.Error(err))
		}
	}
	counts := e.counts()
	e.metrics.Observe(counts.Total, counts.Hidden)
	return counts
}

// SaveFilters persists the registry snapshot
func (e *FilterEngine) SaveFilters(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	e.mu.Lock()
	state, err := e.registry.Serialize()
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to serialize filters: %w", err)
	}
	return e.store.Save(ctx, state)
}

// LoadFilters restores the registry from the store and reports whether
// any saved state was found
func (e *FilterEngine) LoadFilters(ctx context.Context) (bool, error) {
	if e.store == nil {
		return false, nil
	}
	state, found, err := e.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	e.mu.Lock()
	e.registry.Deserialize(state)
	e.mu.Unlock()
	return true, nil
}

// StartObserving watches the listing container and runs HandleNewContent
// for appended listings
func (e *FilterEngine) StartObserving() {
	e.mu.Lock()
	if e.watcher != nil && e.watcher.State() != watcher.Stopped {
		e.mu.Unlock()
		return
	}
	w := watcher.New(e.doc, func() { e.HandleNewContent() }, watcher.Config{
		ContainerLocators: e.cfg.Locators.Containers,
		ItemLocator:       e.cfg.Locators.ItemMarker,
		RetryDelay:        e.cfg.RetryDelay,
		SettleDelay:       e.cfg.SettleDelay,
		Scheduler:         e.cfg.Scheduler,
		Logger:            e.logger.Named("watcher"),
	})
	e.watcher = w
	e.mu.Unlock()

	w.Start()
}

// WatcherState reports the observation state
func (e *FilterEngine) WatcherState() watcher.State {
	e.mu.Lock()
	w := e.watcher
	e.mu.Unlock()
	if w == nil {
		return watcher.Uninitialized
	}
	return w.State()
}

// Stop ends observation. Safe to call more than once.
func (e *FilterEngine) Stop() {
	e.mu.Lock()
	w := e.watcher
	e.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}
