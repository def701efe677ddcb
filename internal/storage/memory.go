package storage

import (
	"context"
	"encoding/json"
	"sync"

	"landfilter/internal/model"
)

// Memory is an in-process Backend. Values are kept encoded so loads go
// through the same decoding as the SQL backends.
type Memory struct {
	name string

	mu     sync.Mutex
	values map[string][]byte
	err    error
	saves  int
}

// NewMemory creates an empty backend
func NewMemory(name string) *Memory {
	if name == "" {
		name = "memory"
	}
	return &Memory{name: name, values: make(map[string][]byte)}
}

func (m *Memory) Name() string { return m.name }

// SetError makes every later call fail with err, or succeed again for nil
func (m *Memory) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Put stores raw bytes under key, bypassing encoding
func (m *Memory) Put(key string, raw []byte) {
	m.mu.Lock()
	m.values[key] = raw
	m.mu.Unlock()
}

// Saves returns the number of successful saves
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Save(ctx context.Context, key string, state model.FilterState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	v, err := state.Value()
	if err != nil {
		return err
	}
	s, ok := v.(string)
	if !ok {
		s = "null"
	}
	m.values[key] = []byte(s)
	m.saves++
	return nil
}

func (m *Memory) Load(ctx context.Context, key string) (model.FilterState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	raw, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	var state model.FilterState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return state, nil
}
