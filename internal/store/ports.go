// Package store defines internal persistence adapter ports used by the
// artwork cache. These ports isolate the concrete SQLite index and
// filesystem blob storage so they can be tested and evolved independently.
// Callers outside this package interact only with the Cache, not these
// internal details.
package store

import (
	"context"
	"time"
)

// Index abstracts the cache metadata operations (backed by SQLite). It
// tracks which artwork blobs exist, their sizes, and when they were fetched,
// enabling age- and size-based eviction.
type Index interface {
	// Insert records a cached blob. Re-inserting an existing ID refreshes
	// its size and fetch time (artwork content is immutable per ID, so
	// last-writer-wins is acceptable).
	Insert(ctx context.Context, id string, size int64, fetchedAt time.Time) error
	// Has reports whether the ID is indexed.
	Has(ctx context.Context, id string) (bool, error)
	// Delete removes index rows for the given IDs. Missing rows are ignored.
	Delete(ctx context.Context, ids []string) error
	// EvictBefore deletes rows fetched before t and returns their IDs for
	// blob cleanup.
	EvictBefore(ctx context.Context, t time.Time) ([]string, error)
	// EvictOverBudget deletes oldest-first rows until the summed size is at
	// most maxTotal, returning the deleted IDs.
	EvictOverBudget(ctx context.Context, maxTotal int64) ([]string, error)
	// ListIDs returns every indexed ID.
	ListIDs(ctx context.Context) ([]string, error)
}

// BlobStorage abstracts artwork byte persistence on the filesystem.
type BlobStorage interface {
	Write(id string, data []byte) error
	Read(id string) ([]byte, error)
	Delete(id string) error
	// List returns all blob IDs present in storage (filenames sans extension).
	List() ([]string, error)
}
