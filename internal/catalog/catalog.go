// Package catalog implements the app.Resolver port against the remote
// static-data service. The shareID→cardID mapping is built once per process
// from the character and action-card catalogs and reused for the process
// lifetime; concurrent first callers share a single build via singleflight.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tcgtools/deckimg/internal/app"
	"github.com/tcgtools/deckimg/internal/domain"
)

// Catalog endpoints carrying share IDs. Both are indexed into one map.
var catalogNames = []string{"characters", "action_cards"}

// Client resolves share IDs using the remote catalog service.
// Construct via New; the zero value is not valid.
type Client struct {
	baseURL string
	locale  string
	hc      *http.Client

	group singleflight.Group
	mu    sync.RWMutex
	byID  map[domain.ShareID]domain.CardID
}

var _ app.Resolver = (*Client)(nil)

// New returns a Client for the catalog service at baseURL (no trailing
// slash) serving the given locale. hc may be nil to use http.DefaultClient.
func New(baseURL, locale string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: baseURL, locale: locale, hc: hc}
}

// Resolve maps a share ID to its catalog identifier. ok=false means the
// catalog has no entry for the ID; the caller substitutes a placeholder. An
// error means the mapping could not be built and the request must fail.
func (c *Client) Resolve(ctx context.Context, id domain.ShareID) (domain.CardID, bool, error) {
	m, err := c.mapping(ctx)
	if err != nil {
		return 0, false, err
	}
	card, ok := m[id]
	return card, ok, nil
}

// mapping returns the cached map, building it on first use. A failed build
// is not cached; the next caller retries.
func (c *Client) mapping(ctx context.Context) (map[domain.ShareID]domain.CardID, error) {
	c.mu.RLock()
	m := c.byID
	c.mu.RUnlock()
	if m != nil {
		return m, nil
	}
	v, err, _ := c.group.Do("build", func() (any, error) {
		// Re-check under the flight: a caller may arrive after a previous
		// flight completed and must not trigger a second remote build.
		c.mu.RLock()
		cached := c.byID
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		built, err := c.build(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.byID = built
		c.mu.Unlock()
		slog.Info("catalog mapping built", "entries", len(built))
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[domain.ShareID]domain.CardID), nil
}

// catalogEntry is the subset of a catalog item the resolver needs. Entries
// without a share ID are skipped.
type catalogEntry struct {
	ShareID int `json:"shareId"`
	ID      int `json:"id"`
}

type catalogResponse struct {
	Success bool           `json:"success"`
	Data    []catalogEntry `json:"data"`
}

// build fetches both catalogs concurrently and indexes every entry carrying
// a non-zero share ID.
func (c *Client) build(ctx context.Context) (map[domain.ShareID]domain.CardID, error) {
	results := make([][]catalogEntry, len(catalogNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range catalogNames {
		g.Go(func() error {
			entries, err := c.fetch(gctx, name)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	m := make(map[domain.ShareID]domain.CardID)
	for _, entries := range results {
		for _, e := range entries {
			if e.ShareID == 0 {
				continue
			}
			m[domain.ShareID(e.ShareID)] = domain.CardID(e.ID)
		}
	}
	return m, nil
}

// fetch retrieves one catalog and returns its entries.
func (c *Client) fetch(ctx context.Context, name string) ([]catalogEntry, error) {
	url := fmt.Sprintf("%s/api/v4/data/beta/%s/%s", c.baseURL, c.locale, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s catalog: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s catalog: unexpected status %d", name, resp.StatusCode)
	}
	var body catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s catalog: %w", name, err)
	}
	if !body.Success {
		return nil, fmt.Errorf("%s catalog reported failure", name)
	}
	return body.Data, nil
}
