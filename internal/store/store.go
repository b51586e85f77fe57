// Package store provides the artwork cache by composing lower-layer
// persistence ports (Index and BlobStorage). Content is keyed by the
// decimal card identifier and assumed immutable per key.
package store

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

// Clock abstracts time for deterministic eviction tests.
type Clock interface {
	Now() time.Time
}

// Cache composes an Index and BlobStorage into a get/put byte cache with
// eviction support. Concurrent writers to the same key are not coordinated;
// the last write wins, which is safe because content per key never changes.
type Cache struct {
	index Index
	blobs BlobStorage
	clock Clock
}

// New returns a Cache over the given index and blob storage.
func New(index Index, blobs BlobStorage, clock Clock) *Cache {
	return &Cache{index: index, blobs: blobs, clock: clock}
}

// Get returns the cached bytes for id. ok=false means a cache miss. An
// index row whose blob has gone missing counts as a miss; Reconcile removes
// the stale row later.
func (c *Cache) Get(ctx context.Context, id string) (data []byte, ok bool, err error) {
	known, err := c.index.Has(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !known {
		return nil, false, nil
	}
	data, err = c.blobs.Read(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put stores bytes under id and indexes them with the current time. If
// indexing fails the blob is removed best-effort so the two stay consistent.
func (c *Cache) Put(ctx context.Context, id string, data []byte) error {
	if err := c.blobs.Write(id, data); err != nil {
		return err
	}
	if err := c.index.Insert(ctx, id, int64(len(data)), c.clock.Now()); err != nil {
		_ = c.blobs.Delete(id)
		return err
	}
	return nil
}

// EvictBefore removes entries fetched before t and returns the count.
// Blob files are removed best-effort after their index rows.
func (c *Cache) EvictBefore(ctx context.Context, t time.Time) (int, error) {
	ids, err := c.index.EvictBefore(ctx, t)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		_ = c.blobs.Delete(id)
	}
	return len(ids), nil
}

// EvictOverBudget removes oldest entries until the cache holds at most
// maxTotal bytes, returning the count removed. maxTotal <= 0 disables the
// budget.
func (c *Cache) EvictOverBudget(ctx context.Context, maxTotal int64) (int, error) {
	if maxTotal <= 0 {
		return 0, nil
	}
	ids, err := c.index.EvictOverBudget(ctx, maxTotal)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		_ = c.blobs.Delete(id)
	}
	return len(ids), nil
}

// Reconcile removes blobs without index rows and index rows without blobs.
// It is idempotent and safe to run periodically.
func (c *Cache) Reconcile(ctx context.Context) error {
	blobIDs, err := c.blobs.List()
	if err != nil {
		return err
	}
	indexIDs, err := c.index.ListIDs(ctx)
	if err != nil {
		return err
	}
	indexSet := make(map[string]struct{}, len(indexIDs))
	for _, id := range indexIDs {
		indexSet[id] = struct{}{}
	}
	blobSet := make(map[string]struct{}, len(blobIDs))
	for _, id := range blobIDs {
		blobSet[id] = struct{}{}
	}
	for _, id := range blobIDs {
		if _, ok := indexSet[id]; !ok {
			_ = c.blobs.Delete(id)
		}
	}
	var stale []string
	for _, id := range indexIDs {
		if _, ok := blobSet[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		return c.index.Delete(ctx, stale)
	}
	return nil
}
