// Package app defines the application layer "ports" (interfaces) and simple
// data contracts that the deck-rendering use case depends upon. It follows a
// hexagonal (ports & adapters) design: this package declares what the core
// needs, while adapter packages (catalog client, artwork fetcher, image
// composer) provide concrete implementations. No I/O, logging, SQL, or
// network concerns belong here.
package app

import (
	"context"
	"image"
	"time"

	"github.com/tcgtools/deckimg/internal/domain"
)

// Clock abstracts time to enable deterministic testing of timing logic.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// Resolver maps a share ID to its stable catalog identifier. The mapping is
// built once process-wide by the adapter; a share ID without a catalog entry
// yields ok=false, never an error. Errors indicate the mapping itself could
// not be built and are fatal to the request.
type Resolver interface {
	Resolve(ctx context.Context, id domain.ShareID) (card domain.CardID, ok bool, err error)
}

// ArtworkSource records which path produced a tile's image. Tests and
// metrics rely on the distinction; final pixels alone cannot reveal it.
type ArtworkSource string

const (
	ArtworkCache       ArtworkSource = "cache"
	ArtworkRemote      ArtworkSource = "remote"
	ArtworkPlaceholder ArtworkSource = "placeholder"
)

// Artwork is the outcome of one card-image fetch. Image is never nil; on
// any fetch failure the adapter substitutes its placeholder and reports
// ArtworkPlaceholder. Per-card fetch failure is non-fatal by contract.
type Artwork struct {
	Image  image.Image
	Source ArtworkSource
}

// Fetcher retrieves artwork for a card, consulting a local cache before the
// remote endpoint. It never fails: unavailable artwork degrades to the
// placeholder.
type Fetcher interface {
	Fetch(ctx context.Context, card domain.CardID) Artwork
}

// Tile is one laid-out deck slot handed to the composer, in render order:
// the first domain.MainSlots tiles are character slots, the rest card slots.
type Tile struct {
	Image       image.Image
	Card        domain.CardID
	Placeholder bool
}

// Composer renders the ordered tiles of a deck onto a canvas and returns
// encoded PNG bytes.
type Composer interface {
	Compose(tiles []Tile) ([]byte, error)
}

// Recorder is the metrics port. Implementations must be safe for concurrent
// use; a nil Recorder disables recording.
type Recorder interface {
	Inc(name string, delta int64)
	Observe(name string, v int64)
}
