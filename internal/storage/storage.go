// Package storage persists the filter state through an ordered chain of
// backends. The first backend that answers wins.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"landfilter/internal/metrics"
	"landfilter/internal/model"
)

// ErrNotFound is returned by a backend that holds no value for a key
var ErrNotFound = errors.New("storage: not found")

// Backend is a key/value store for filter state snapshots
type Backend interface {
	Name() string
	Save(ctx context.Context, key string, state model.FilterState) error
	// Load returns ErrNotFound when key has never been saved.
	Load(ctx context.Context, key string) (model.FilterState, error)
}

// Manager saves and loads the snapshot under one key across backends
type Manager struct {
	key      string
	backends []Backend
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewManager creates a manager trying backends in the given order
func NewManager(key string, logger *zap.Logger, m *metrics.Metrics, backends ...Backend) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{key: key, backends: backends, logger: logger, metrics: m}
}

// Save writes state to the first backend that accepts it. The joined
// error is returned only when every backend failed.
func (m *Manager) Save(ctx context.Context, state model.FilterState) error {
	if len(m.backends) == 0 {
		return fmt.Errorf("storage: no backend configured")
	}

	var errs []error
	for _, b := range m.backends {
		err := b.Save(ctx, m.key, state)
		if err == nil {
			m.logger.Debug("filter state saved", zap.String("backend", b.Name()), zap.String("key", m.key))
			return nil
		}
		m.fail(b, "save", err)
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return fmt.Errorf("storage: save %s: %w", m.key, errors.Join(errs...))
}

// Load reads state from the first backend that answers. A backend that
// reports ErrNotFound answers with "no state" and ends the search.
func (m *Manager) Load(ctx context.Context) (model.FilterState, bool, error) {
	if len(m.backends) == 0 {
		return nil, false, fmt.Errorf("storage: no backend configured")
	}

	var errs []error
	for _, b := range m.backends {
		state, err := b.Load(ctx, m.key)
		switch {
		case err == nil:
			m.logger.Debug("filter state loaded", zap.String("backend", b.Name()), zap.Int("filters", len(state)))
			return state, true, nil
		case errors.Is(err, ErrNotFound):
			return nil, false, nil
		}
		m.fail(b, "load", err)
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return nil, false, fmt.Errorf("storage: load %s: %w", m.key, errors.Join(errs...))
}

func (m *Manager) fail(b Backend, op string, err error) {
	m.logger.Warn("storage backend failed",
		zap.String("backend", b.Name()),
		zap.String("op", op),
		zap.Error(err))
	if m.metrics != nil {
		m.metrics.StorageFailures.WithLabelValues(b.Name(), op).Inc()
	}
}
