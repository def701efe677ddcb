package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"landfilter/internal/metrics"
	"landfilter/internal/model"
)

const key = "naverLandFilters"

func sampleState(t *testing.T) model.FilterState {
	t.Helper()
	state, err := model.NewFilterState([]model.PredicateState{
		{ID: "hide-basement", Enabled: true},
		{ID: "hide-high-floor", Enabled: false},
	})
	require.NoError(t, err)
	return state
}

func TestSaveShortCircuits(t *testing.T) {
	primary, secondary := NewMemory("primary"), NewMemory("secondary")
	m := NewManager(key, nil, nil, primary, secondary)

	require.NoError(t, m.Save(context.Background(), sampleState(t)))
	assert.Equal(t, 1, primary.Saves())
	assert.Zero(t, secondary.Saves())
}

func TestSaveFallsThrough(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	met := metrics.New(prometheus.NewRegistry())
	primary, secondary := NewMemory("primary"), NewMemory("secondary")
	primary.SetError(errors.New("connection refused"))
	m := NewManager(key, zap.New(core), met, primary, secondary)

	require.NoError(t, m.Save(context.Background(), sampleState(t)))
	assert.Equal(t, 1, secondary.Saves())
	assert.Equal(t, 1, logs.FilterMessage("storage backend failed").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(met.StorageFailures.WithLabelValues("primary", "save")))
}

func TestSaveAllFail(t *testing.T) {
	primary, secondary := NewMemory("primary"), NewMemory("secondary")
	primary.SetError(errors.New("down"))
	secondary.SetError(errors.New("disk full"))
	m := NewManager(key, nil, nil, primary, secondary)

	err := m.Save(context.Background(), sampleState(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary: down")
	assert.Contains(t, err.Error(), "secondary: disk full")

	assert.Error(t, NewManager(key, nil, nil).Save(context.Background(), sampleState(t)))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		b := NewMemory("")
		m := NewManager(key, nil, nil, b)
		want := sampleState(t)
		require.NoError(t, m.Save(ctx, want))

		got, ok, err := m.Load(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, string(want["hide-basement"]), string(got["hide-basement"]))
		assert.Len(t, got, 2)
	})

	t.Run("not found stops the chain", func(t *testing.T) {
		primary, secondary := NewMemory("primary"), NewMemory("secondary")
		secondary.Put(key, []byte(`{"hide-basement":{"id":"hide-basement","enabled":true}}`))
		m := NewManager(key, nil, nil, primary, secondary)

		got, ok, err := m.Load(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("garbage falls through", func(t *testing.T) {
		primary, secondary := NewMemory("primary"), NewMemory("secondary")
		primary.Put(key, []byte(`not json`))
		secondary.Put(key, []byte(`{"hide-basement":{"id":"hide-basement","enabled":true}}`))
		m := NewManager(key, nil, nil, primary, secondary)

		got, ok, err := m.Load(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Contains(t, got, "hide-basement")
	})

	t.Run("all fail", func(t *testing.T) {
		primary := NewMemory("primary")
		primary.SetError(errors.New("down"))
		m := NewManager(key, nil, nil, primary)

		_, ok, err := m.Load(ctx)
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		m := NewManager(key, nil, nil, NewMemory(""))
		_, _, err := m.Load(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
