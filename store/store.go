// Package store keeps loaded datasets in memory under opaque keys, expiring them after a TTL.
// Datasets can optionally be snapshotted to disk, so that they survive expiry and restarts.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"hermannm.dev/devlog/log"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/wrap"
)

var ErrDatasetNotFound = errors.New("dataset not found")

const DefaultTTL = time.Hour

type Options struct {
	// How long a dataset stays in memory after it was stored. Defaults to DefaultTTL.
	TTL time.Duration
	// Directory for dataset snapshots. Snapshots are disabled when empty.
	SnapshotDir string
}

// Store is safe for concurrent use.
type Store struct {
	cache     *cache.Cache
	snapshots *snapshotDir

	// Guards owned and entries, and makes lookup+retain atomic with respect to eviction.
	mutex sync.Mutex
	// Datasets the store holds a reference to.
	owned map[*dataset.Dataset]struct{}
	// Latest dataset set for each key. Unlike the cache, this includes entries that have expired
	// but not yet been evicted, whose reference must be released when the key is replaced.
	entries map[string]*dataset.Dataset
}

func New(options Options) (*Store, error) {
	if options.TTL <= 0 {
		options.TTL = DefaultTTL
	}

	store := &Store{
		cache:   cache.New(options.TTL, options.TTL/2),
		owned:   make(map[*dataset.Dataset]struct{}),
		entries: make(map[string]*dataset.Dataset),
	}
	store.cache.OnEvicted(store.onEvicted)

	if options.SnapshotDir != "" {
		snapshots, err := newSnapshotDir(options.SnapshotDir)
		if err != nil {
			return nil, wrap.Error(err, "failed to initialize dataset snapshot directory")
		}
		store.snapshots = snapshots
	}

	return store, nil
}

// Put stores the dataset under a new random key. The store takes over the caller's reference
// to the dataset, and releases it on error.
func (store *Store) Put(ctx context.Context, data *dataset.Dataset) (key string, err error) {
	key = uuid.NewString()
	if err := store.PutWithKey(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// PutWithKey stores the dataset under the given key, replacing any previous dataset with that
// key. The store takes over the caller's reference to the dataset.
func (store *Store) PutWithKey(ctx context.Context, key string, data *dataset.Dataset) error {
	if key == "" {
		data.Release()
		return errors.New("dataset key is blank")
	}

	if store.snapshots != nil {
		if err := store.snapshots.write(key, data); err != nil {
			data.Release()
			return wrap.Errorf(err, "failed to snapshot dataset '%s'", key)
		}
	}

	store.set(key, data)
	log.Debug(
		"stored dataset",
		slog.String("key", key),
		slog.Int("rows", data.NumRows()),
		slog.Int("columns", data.NumColumns()),
	)
	return nil
}

func (store *Store) set(key string, data *dataset.Dataset) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	// The cache does not report expired entries, nor evict them when overwritten.
	if previous, found := store.entries[key]; found && previous != data {
		store.releaseOwned(previous)
	}
	store.entries[key] = data
	store.owned[data] = struct{}{}
	store.cache.SetDefault(key, data)
}

// Dataset returns the dataset stored under the given key, retained for the caller, who must
// release it when done. When the dataset has expired from memory but has a snapshot, it is
// reloaded from the snapshot. Returns ErrDatasetNotFound if the key is unknown.
func (store *Store) Dataset(ctx context.Context, key string) (*dataset.Dataset, error) {
	if data, found := store.retain(key); found {
		return data, nil
	}

	if store.snapshots == nil {
		return nil, ErrDatasetNotFound
	}

	data, err := store.snapshots.read(key)
	if err != nil {
		return nil, err
	}
	log.Info("reloaded dataset from snapshot", slog.String("key", key))

	data.Retain()
	store.set(key, data)
	return data, nil
}

func (store *Store) retain(key string) (*dataset.Dataset, bool) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	value, found := store.cache.Get(key)
	if !found {
		return nil, false
	}

	data := value.(*dataset.Dataset)
	data.Retain()
	return data, true
}

// Delete removes the dataset and its snapshot. Returns ErrDatasetNotFound if neither exists.
func (store *Store) Delete(key string) error {
	_, found := store.cache.Get(key)
	// Eviction callback releases the store's reference.
	store.cache.Delete(key)

	if store.snapshots != nil {
		removed, err := store.snapshots.remove(key)
		if err != nil {
			return wrap.Errorf(err, "failed to remove snapshot of dataset '%s'", key)
		}
		found = found || removed
	}

	if !found {
		return ErrDatasetNotFound
	}
	return nil
}

// Keys returns the keys of datasets currently in memory, sorted.
func (store *Store) Keys() []string {
	items := store.cache.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Close releases every dataset held in memory. Snapshots are kept.
func (store *Store) Close() {
	store.cache.Flush()

	store.mutex.Lock()
	defer store.mutex.Unlock()

	for data := range store.owned {
		data.Release()
	}
	clear(store.owned)
	clear(store.entries)

	if store.snapshots != nil {
		store.snapshots.close()
	}
}

func (store *Store) onEvicted(key string, value any) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	data := value.(*dataset.Dataset)
	if store.entries[key] == data {
		delete(store.entries, key)
	}
	store.releaseOwned(data)
	log.Debug("evicted dataset from memory", slog.String("key", key))
}

// Must be called with the mutex held.
func (store *Store) releaseOwned(data *dataset.Dataset) {
	if _, owned := store.owned[data]; owned {
		delete(store.owned, data)
		data.Release()
	}
}
