package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landfilter/internal/model"
	"landfilter/internal/storage"
)

func newTestRepo(t *testing.T) *KVRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestKVRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	assert.Equal(t, "sqlite", repo.Name())

	_, err := repo.Load(ctx, "naverLandFilters")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	first, err := model.NewFilterState([]model.PredicateState{{ID: "hide-basement", Enabled: true}})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "naverLandFilters", first))

	second, err := model.NewFilterState([]model.PredicateState{
		{ID: "hide-basement", Enabled: false},
		{ID: "hide-high-floor", Enabled: true},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "naverLandFilters", second))

	got, err := repo.Load(ctx, "naverLandFilters")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"id":"hide-high-floor","enabled":true}`, string(got["hide-high-floor"]))
	assert.JSONEq(t, `{"id":"hide-basement","enabled":false}`, string(got["hide-basement"]))
}

func TestKVRepositoryCorruptRow(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.db.Exec(`INSERT INTO filter_state (state_key, state) VALUES ('k', 'not json')`)
	require.NoError(t, err)

	_, err = repo.Load(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestKVRepositoryFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "landfilter.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	state, err := model.NewFilterState([]model.PredicateState{{ID: "hide-low-floor", Enabled: true}})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "naverLandFilters", state))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Load(ctx, "naverLandFilters")
	require.NoError(t, err)
	assert.Contains(t, got, "hide-low-floor")
}

func TestKVRepositoryAsFallback(t *testing.T) {
	ctx := context.Background()
	primary := storage.NewMemory("primary")
	primary.SetError(assert.AnError)
	repo := newTestRepo(t)
	m := storage.NewManager("naverLandFilters", nil, nil, primary, repo)

	state, err := model.NewFilterState([]model.PredicateState{{ID: "hide-basement", Enabled: true}})
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, state))

	got, ok, err := m.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, got, "hide-basement")
}
