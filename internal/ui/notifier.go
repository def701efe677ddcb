package ui

import (
	"fmt"
	"html"
	"sync"
	"time"

	"go.uber.org/zap"

	"landfilter/internal/dom"
	"landfilter/internal/watcher"
)

const NotificationClass = "naver-land-filter-notification"

// Notifier shows short-lived toasts and logs every message
type Notifier struct {
	doc      dom.Document
	parent   dom.Element
	duration time.Duration
	sched    watcher.Scheduler
	logger   *zap.Logger

	mu     sync.Mutex
	active map[dom.Element]watcher.Timer
}

// NewNotifier creates a notifier appending toasts to parent. A nil
// parent only logs.
func NewNotifier(doc dom.Document, parent dom.Element, duration time.Duration, sched watcher.Scheduler, logger *zap.Logger) *Notifier {
	if duration <= 0 {
		duration = 3 * time.Second
	}
	if sched == nil {
		sched = watcher.SystemScheduler{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		doc:      doc,
		parent:   parent,
		duration: duration,
		sched:    sched,
		logger:   logger,
		active:   make(map[dom.Element]watcher.Timer),
	}
}

// Show displays msg and schedules its removal
func (n *Notifier) Show(msg string) error {
	if n == nil {
		return nil
	}
	n.logger.Info("notification", zap.String("message", msg))
	if n.doc == nil || n.parent == nil {
		return nil
	}

	el, err := n.doc.Append(n.parent, fmt.Sprintf(`<div class="%s">%s</div>`, NotificationClass, html.EscapeString(msg)))
	if err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}

	n.mu.Lock()
	n.active[el] = n.sched.AfterFunc(n.duration, func() { n.remove(el) })
	n.mu.Unlock()
	return nil
}

// Active returns the number of toasts on screen
func (n *Notifier) Active() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.active)
}

func (n *Notifier) remove(el dom.Element) {
	n.mu.Lock()
	_, ok := n.active[el]
	delete(n.active, el)
	n.mu.Unlock()
	if !ok {
		return
	}
	if err := el.Remove(); err != nil {
		n.logger.Debug("remove notification failed", zap.Error(err))
	}
}

// RemoveAll clears every toast now
func (n *Notifier) RemoveAll() {
	if n == nil {
		return
	}
	n.mu.Lock()
	active := n.active
	n.active = make(map[dom.Element]watcher.Timer)
	n.mu.Unlock()

	for el, t := range active {
		t.Stop()
		_ = el.Remove()
	}
}
