// Package app wires the filtering pipeline to one page: it restores saved
// filters, mounts the panel and status chrome, keeps appended listings
// filtered and answers commands.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"landfilter/internal/config"
	"landfilter/internal/dom"
	"landfilter/internal/filter"
	"landfilter/internal/metrics"
	"landfilter/internal/model"
	"landfilter/internal/service"
	"landfilter/internal/ui"
	"landfilter/internal/watcher"
)

// Deps are the collaborators of a Session
type Deps struct {
	Doc      dom.Document
	Registry *filter.Registry
	// Store may be nil, in which case nothing is persisted.
	Store     service.StateStore
	Locators  config.Locators
	Timings   config.FilterConfig
	Scheduler watcher.Scheduler
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Session is the filter controller of a single page load
type Session struct {
	id       string
	doc      dom.Document
	locators config.Locators
	timings  config.FilterConfig
	sched    watcher.Scheduler
	logger   *zap.Logger
	metrics  *metrics.Metrics
	engine   *service.FilterEngine

	mu       sync.Mutex
	panel    *ui.Panel
	status   *ui.StatusIndicator
	notifier *ui.Notifier
	clicks   dom.Subscription
	initial  watcher.Timer
	closed   bool

	saves sync.WaitGroup
}

// NewSession builds a session. Nothing touches the page until Start.
func NewSession(deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = watcher.SystemScheduler{}
	}
	if deps.Locators.Listings == "" {
		deps.Locators = config.DefaultLocators()
	}
	if deps.Registry == nil {
		deps.Registry = filter.NewDefaultRegistry(nil)
	}
	deps.Timings = withDefaults(deps.Timings)

	id := uuid.NewString()
	s := &Session{
		id:       id,
		doc:      deps.Doc,
		locators: deps.Locators,
		timings:  deps.Timings,
		sched:    deps.Scheduler,
		logger:   deps.Logger.With(zap.String("session", id)),
		metrics:  deps.Metrics,
	}
	s.engine = service.NewFilterEngine(deps.Doc, deps.Registry, deps.Store, service.EngineConfig{
		Locators:     deps.Locators,
		RetryDelay:   deps.Timings.RetryDelay,
		SettleDelay:  deps.Timings.SettleDelay,
		Scheduler:    deps.Scheduler,
		OnNewContent: s.updateStatus,
	}, s.logger.Named("engine"), deps.Metrics)
	return s
}

func withDefaults(t config.FilterConfig) config.FilterConfig {
	if t.RetryDelay <= 0 {
		t.RetryDelay = 3 * time.Second
	}
	if t.SettleDelay <= 0 {
		t.SettleDelay = 100 * time.Millisecond
	}
	if t.WaitTimeout <= 0 {
		t.WaitTimeout = 5 * time.Second
	}
	if t.NotificationDuration <= 0 {
		t.NotificationDuration = 3 * time.Second
	}
	if t.StorageTimeout <= 0 {
		t.StorageTimeout = 3 * time.Second
	}
	return t
}

// ID identifies the session in logs
func (s *Session) ID() string {
	return s.id
}

// Engine exposes the filter engine
func (s *Session) Engine() *service.FilterEngine {
	return s.engine
}

// Start restores saved filters, mounts the chrome and begins observing.
// A missing panel anchor or storage failure is logged, never fatal.
func (s *Session) Start(ctx context.Context) {
	s.loadSavedFilters(ctx)
	s.createUI(ctx)
	s.engine.StartObserving()
	s.logger.Info("session started", zap.String("watcher", s.engine.WatcherState().String()))
}

func (s *Session) loadSavedFilters(ctx context.Context) {
	lctx, cancel := context.WithTimeout(ctx, s.timings.StorageTimeout)
	defer cancel()

	loaded, err := s.engine.LoadFilters(lctx)
	if err != nil {
		s.logger.Warn("load saved filters failed", zap.Error(err))
		return
	}
	if !loaded {
		return
	}

	// the page may still be rendering its first listings
	t := s.sched.AfterFunc(s.timings.SettleDelay, func() {
		s.mu.Lock()
		closed := s.closed
		s.initial = nil
		s.mu.Unlock()
		if closed {
			return
		}
		s.updateStatus(s.engine.FilterAll())
	})
	s.mu.Lock()
	s.initial = t
	s.mu.Unlock()
}

func (s *Session) createUI(ctx context.Context) {
	filters := s.engine.Filters()

	var (
		panel *ui.Panel
		err   error
	)
	if anchor, ok := dom.WaitForElement(ctx, s.doc, s.locators.FilterGroup, s.timings.WaitTimeout); ok {
		panel, err = ui.MountPanelAfter(s.doc, anchor, filters)
	} else if container, loc, ok := dom.QueryFirst(s.doc, s.locators.PanelFallbacks); ok {
		s.logger.Warn("filter group not found, using fallback container", zap.String("locator", loc))
		panel, err = ui.MountPanelInto(s.doc, container, filters)
	} else {
		s.logger.Warn("no place for the filter panel")
	}
	if err != nil {
		s.logger.Error("mount filter panel failed", zap.Error(err))
		panel = nil
	}

	var (
		status   *ui.StatusIndicator
		notifier *ui.Notifier
		clicks   dom.Subscription
	)
	if body, ok, qerr := s.doc.Query("body"); qerr == nil && ok {
		if status, err = ui.MountStatus(s.doc, body); err != nil {
			s.logger.Error("mount status indicator failed", zap.Error(err))
		}
		notifier = ui.NewNotifier(s.doc, body, s.timings.NotificationDuration, s.sched, s.logger.Named("notify"))
		// outside clicks collapse the panel, so listen on the whole body
		if panel != nil {
			if clicks, err = s.doc.Listen(body, "click", s.onClick); err != nil {
				s.logger.Error("listen for panel clicks failed", zap.Error(err))
			}
		}
	} else {
		notifier = ui.NewNotifier(nil, nil, s.timings.NotificationDuration, s.sched, s.logger.Named("notify"))
	}
	if err := ui.InjectStyles(s.doc); err != nil {
		s.logger.Error("inject styles failed", zap.Error(err))
	}

	s.mu.Lock()
	s.panel = panel
	s.status = status
	s.notifier = notifier
	s.clicks = clicks
	s.mu.Unlock()

	if panel != nil {
		s.logger.Info("filter panel mounted")
	}
}

// onClick routes a click anywhere in the body to the panel control it
// landed on. A click outside an expanded panel collapses it.
func (s *Session) onClick(ev dom.Event) {
	s.mu.Lock()
	panel, closed := s.panel, s.closed
	s.mu.Unlock()
	if closed || !panel.Present() {
		return
	}

	if _, ok := ev.Closest(func(n dom.EventNode) bool { return n.ID == ui.PanelID }); !ok {
		if panel.IsExpanded() {
			if err := panel.Collapse(); err != nil {
				s.logger.Warn("collapse panel failed", zap.Error(err))
			}
		}
		return
	}

	if opt, ok := ev.Closest(func(n dom.EventNode) bool { return n.HasClass(ui.OptionClass) }); ok {
		resp := s.toggleFilter(opt.Data[ui.FilterIDData])
		if !resp.Success {
			s.logger.Warn("toggle filter from panel failed", zap.String("message", resp.Message))
		}
		return
	}
	if _, ok := ev.Closest(func(n dom.EventNode) bool { return n.HasClass(ui.ToggleClass) }); ok {
		if _, err := panel.Toggle(); err != nil {
			s.logger.Warn("toggle panel failed", zap.Error(err))
		}
		return
	}
	if _, ok := ev.Closest(func(n dom.EventNode) bool { return n.ID == ui.ResetID }); ok {
		s.resetFilters()
	}
}

// OnFilterChange reapplies the filters after a predicate changed, then
// saves in the background. It does nothing once the session is closed.
func (s *Session) OnFilterChange() model.Counts {
	if s.isClosed() {
		return model.Counts{}
	}
	counts := s.engine.FilterAll()
	s.updateStatus(counts)
	s.syncPanel()
	s.saveAsync()
	return counts
}

func (s *Session) updateStatus(counts model.Counts) {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	if err := status.Update(s.engine.ActiveFilterNames(), counts); err != nil {
		s.logger.Warn("update status failed", zap.Error(err))
	}
}

func (s *Session) syncPanel() {
	s.mu.Lock()
	panel := s.panel
	s.mu.Unlock()
	if !panel.Present() {
		return
	}
	if err := panel.Sync(s.engine.Filters()); err != nil {
		s.logger.Warn("sync panel failed", zap.Error(err))
	}
}

func (s *Session) notify(msg string) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	if err := n.Show(msg); err != nil {
		s.logger.Warn("show notification failed", zap.Error(err))
	}
}

// saveAsync persists the registry without blocking the caller. Last
// write wins.
func (s *Session) saveAsync() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// added under mu so Close cannot start waiting in between
	s.saves.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timings.StorageTimeout)
		defer cancel()
		if err := s.engine.SaveFilters(ctx); err != nil {
			s.logger.Warn("save filters failed", zap.Error(err))
		}
	}()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// WaitSaves blocks until background saves finish
func (s *Session) WaitSaves() {
	s.saves.Wait()
}

// Close stops observation and click handling, removes the panel and status
// chrome and waits for pending saves. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.initial != nil {
		s.initial.Stop()
		s.initial = nil
	}
	status, notifier, panel, clicks := s.status, s.notifier, s.panel, s.clicks
	s.status = nil
	s.clicks = nil
	s.mu.Unlock()

	s.engine.Stop()
	if clicks != nil {
		if err := clicks.Disconnect(); err != nil {
			s.logger.Debug("stop click listener failed", zap.Error(err))
		}
	}
	if panel != nil {
		if err := panel.Remove(); err != nil {
			s.logger.Debug("remove panel failed", zap.Error(err))
		}
	}
	if err := status.Remove(); err != nil {
		s.logger.Debug("remove status failed", zap.Error(err))
	}
	notifier.RemoveAll()
	s.saves.Wait()
	s.logger.Info("session closed")
}
