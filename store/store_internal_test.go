package store

import (
	"context"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/safetab/dataset"
)

func newOwnedDataset(t *testing.T) *dataset.Dataset {
	t.Helper()

	data, err := dataset.NewFromRows(
		dataset.Schema{Columns: []dataset.ColumnDescriptor{{Name: "x", Kind: dataset.ColumnKindNumeric}}},
		[][]any{{1}, {2}},
	)
	require.NoError(t, err)
	return data
}

func TestReplacingExpiredKeyReleasesPreviousDataset(t *testing.T) {
	ctx := context.Background()
	ttl := 50 * time.Millisecond

	datasets, err := New(Options{TTL: ttl})
	require.NoError(t, err)
	defer datasets.Close()

	// Without a janitor, expired entries stay in the cache until swept explicitly.
	datasets.cache = cache.New(ttl, 0)
	datasets.cache.OnEvicted(datasets.onEvicted)

	first := newOwnedDataset(t)
	require.NoError(t, datasets.PutWithKey(ctx, "survey", first))

	time.Sleep(2 * ttl)
	_, found := datasets.cache.Get("survey")
	require.False(t, found)

	second := newOwnedDataset(t)
	require.NoError(t, datasets.PutWithKey(ctx, "survey", second))

	datasets.mutex.Lock()
	_, firstOwned := datasets.owned[first]
	assert.False(t, firstOwned)
	assert.Len(t, datasets.owned, 1)
	datasets.mutex.Unlock()

	time.Sleep(2 * ttl)
	datasets.cache.DeleteExpired()

	datasets.mutex.Lock()
	defer datasets.mutex.Unlock()
	assert.Empty(t, datasets.owned)
	assert.Empty(t, datasets.entries)
}

func TestDeleteForgetsEntry(t *testing.T) {
	datasets, err := New(Options{})
	require.NoError(t, err)
	defer datasets.Close()

	require.NoError(t, datasets.PutWithKey(context.Background(), "survey", newOwnedDataset(t)))
	require.NoError(t, datasets.Delete("survey"))

	datasets.mutex.Lock()
	defer datasets.mutex.Unlock()
	assert.Empty(t, datasets.owned)
	assert.Empty(t, datasets.entries)
}
