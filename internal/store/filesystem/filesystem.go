// Package filesystem provides a BlobStorage implementation backed by the
// local filesystem. It stores artwork payloads as one file per card ID.
package filesystem

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/tcgtools/deckimg/internal/store"
)

// Ensure BlobStore implements store.BlobStorage
var _ store.BlobStorage = (*BlobStore)(nil)

// BlobStore implements store.BlobStorage using the local filesystem. Files
// are named by the card ID with a fixed suffix to simplify lookup.
type BlobStore struct {
	root string
}

// New returns a filesystem-backed blob store rooted at dir. The directory
// must already exist.
func New(root string) (*BlobStore, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("blob root is not a directory")
	}
	return &BlobStore{root: root}, nil
}

// path constructs the full path to the blob file for a given card ID.
func (b *BlobStore) path(id string) string { return filepath.Join(b.root, id+".png") }

// Write stores data under id, replacing any existing file. Artwork content
// is immutable per ID, so concurrent writers racing on the same key are
// harmless: last writer wins with identical bytes.
func (b *BlobStore) Write(id string, data []byte) error {
	if err := validateID(id); err != nil {
		return err
	}
	p := b.path(id)
	// #nosec G304: path is a fixed root plus a digits-only ID with a fixed suffix.
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read returns the stored bytes for id. Missing files surface os.ErrNotExist.
func (b *BlobStore) Read(id string) ([]byte, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return os.ReadFile(b.path(id)) // #nosec G304 path constructed internally
}

// Delete removes the blob file for a given card ID.
func (b *BlobStore) Delete(id string) error {
	if id == "" {
		return nil
	}
	if err := validateID(id); err != nil {
		return err
	}
	return os.Remove(b.path(id))
}

// List returns all blob IDs currently present. Higher layers derive orphans
// by diffing against the index.
func (b *BlobStore) List() ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".png" {
			continue
		}
		if id := name[:len(name)-4]; validateID(id) == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// validateID enforces that the blob ID is a non-empty decimal card
// identifier. This prevents path traversal (no separators or dots) and
// keeps filenames uniform.
func validateID(id string) error {
	if id == "" || len(id) > 12 {
		return errors.New("invalid blob id: must be 1-12 decimal digits")
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return errors.New("invalid blob id: must be 1-12 decimal digits")
		}
	}
	return nil
}
