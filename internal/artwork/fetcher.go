// Package artwork implements the app.Fetcher port: card images are served
// from the local cache when present, fetched from the remote image endpoint
// on a miss, and degraded to a placeholder on any failure. Artwork
// unavailability is never fatal to deck rendering.
package artwork

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	// Register decoders for the formats the image endpoint may serve.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/sync/singleflight"

	"github.com/tcgtools/deckimg/internal/app"
	"github.com/tcgtools/deckimg/internal/domain"
)

// maxImageBytes caps a single remote artwork download.
const maxImageBytes = 4 << 20

// ByteCache is the slice of the artwork cache the fetcher needs.
// Implemented by *store.Cache.
type ByteCache interface {
	Get(ctx context.Context, id string) (data []byte, ok bool, err error)
	Put(ctx context.Context, id string, data []byte) error
}

// Fetcher retrieves card artwork. Construct via New; safe for concurrent
// use. Concurrent fetches of the same card share one remote request.
type Fetcher struct {
	baseURL     string
	hc          *http.Client
	cache       ByteCache
	placeholder image.Image
	group       singleflight.Group
}

var _ app.Fetcher = (*Fetcher)(nil)

// New returns a Fetcher for the image endpoint at baseURL. placeholder is
// returned whenever artwork cannot be produced and must not be nil. hc may
// be nil to use http.DefaultClient.
func New(baseURL string, hc *http.Client, cache ByteCache, placeholder image.Image) *Fetcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Fetcher{baseURL: baseURL, hc: hc, cache: cache, placeholder: placeholder}
}

// Fetch returns artwork for the card, reporting which path produced it.
// The zero card ID and every failure mode yield the placeholder.
func (f *Fetcher) Fetch(ctx context.Context, card domain.CardID) app.Artwork {
	if card == 0 {
		return app.Artwork{Image: f.placeholder, Source: app.ArtworkPlaceholder}
	}
	key := strconv.Itoa(int(card))

	if data, ok, err := f.cache.Get(ctx, key); err == nil && ok {
		if img, _, dErr := image.Decode(bytes.NewReader(data)); dErr == nil {
			return app.Artwork{Image: img, Source: app.ArtworkCache}
		}
		slog.Warn("cached artwork undecodable, refetching", "card", key)
	} else if err != nil {
		slog.Warn("artwork cache read failed", "card", key, "err", err)
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		return f.download(ctx, key)
	})
	if err != nil {
		slog.Warn("artwork fetch failed, using placeholder", "card", key, "err", err)
		return app.Artwork{Image: f.placeholder, Source: app.ArtworkPlaceholder}
	}
	data := v.([]byte)
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("remote artwork undecodable, using placeholder", "card", key, "err", err)
		return app.Artwork{Image: f.placeholder, Source: app.ArtworkPlaceholder}
	}
	return app.Artwork{Image: img, Source: app.ArtworkRemote}
}

// download fetches the thumbnail bytes for one card and persists them to
// the cache. A cache write failure is logged, not returned: the bytes are
// still good for this request.
func (f *Fetcher) download(ctx context.Context, key string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v4/image/%s?thumbnail=true", f.baseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, err
	}
	if pErr := f.cache.Put(ctx, key, data); pErr != nil {
		slog.Warn("artwork cache write failed", "card", key, "err", pErr)
	}
	return data, nil
}
