// Package app contains the application orchestration layer for deckimg. It
// wires the pure decoder with the resolver, fetcher, and composer ports
// without performing any I/O itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tcgtools/deckimg/internal/domain"
)

// ErrResolve indicates the share-ID mapping could not be built or queried.
// It aborts the whole request; no partial image is produced.
var ErrResolve = errors.New("card catalog resolution failed")

// Metric names recorded by the service.
const (
	MetricDecksRendered = "decks_rendered_total"
	MetricDecodeFailed  = "decode_failures_total"
	MetricCacheHits     = "artwork_cache_hits_total"
	MetricCacheMisses   = "artwork_cache_misses_total"
	MetricPlaceholders  = "artwork_placeholders_total"
	MetricRenderMS      = "render_duration_ms"
)

// fetchParallelism bounds concurrent artwork fetches per request.
const fetchParallelism = 8

// Service orchestrates deck-image generation: decode, resolve, arrange,
// fetch, compose. It is safe for concurrent use.
type Service struct {
	Resolver Resolver
	Fetcher  Fetcher
	Composer Composer
	Clock    Clock
	Metrics  Recorder // optional
}

// Slot is one arranged deck position prior to artwork fetching.
type Slot struct {
	Card        domain.CardID
	Placeholder bool
}

// RenderDeck decodes a share code and produces the finished deck image as
// PNG bytes. Decode and resolution errors abort the request; individual
// artwork failures degrade to placeholder tiles and never surface.
func (s *Service) RenderDeck(ctx context.Context, code string) ([]byte, error) {
	start := s.Clock.Now()

	shareIDs, err := domain.DecodeDeckCode(code)
	if err != nil {
		s.inc(MetricDecodeFailed, 1)
		return nil, err
	}

	cards := make([]domain.CardID, len(shareIDs))
	for i, sid := range shareIDs {
		card, ok, rErr := s.Resolver.Resolve(ctx, sid)
		if rErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrResolve, rErr)
		}
		if ok {
			cards[i] = card
		}
	}

	tiles, err := s.fetchTiles(ctx, ArrangeDeck(cards))
	if err != nil {
		return nil, err
	}
	png, err := s.Composer.Compose(tiles)
	if err != nil {
		return nil, err
	}
	s.inc(MetricDecksRendered, 1)
	s.observe(MetricRenderMS, s.Clock.Now().Sub(start).Milliseconds())
	return png, nil
}

// ArrangeDeck orders resolved card identifiers for layout: the first
// domain.MainSlots entries keep their positions (placeholder when the
// identifier is not a valid character card), the remaining entries are the
// valid action cards sorted ascending by identifier with placeholder slots
// trailing.
func ArrangeDeck(cards []domain.CardID) []Slot {
	slots := make([]Slot, 0, len(cards))
	for i := 0; i < domain.MainSlots && i < len(cards); i++ {
		slots = append(slots, Slot{Card: cards[i], Placeholder: !cards[i].ValidMain()})
	}
	var valid []domain.CardID
	invalid := 0
	for _, c := range cards[min(domain.MainSlots, len(cards)):] {
		if c.ValidCard() {
			valid = append(valid, c)
		} else {
			invalid++
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i] < valid[j] })
	for _, c := range valid {
		slots = append(slots, Slot{Card: c})
	}
	for i := 0; i < invalid; i++ {
		slots = append(slots, Slot{Placeholder: true})
	}
	return slots
}

// fetchTiles retrieves artwork for every slot in parallel, preserving slot
// order by index. Placeholder slots skip the fetcher entirely.
func (s *Service) fetchTiles(ctx context.Context, slots []Slot) ([]Tile, error) {
	tiles := make([]Tile, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)
	for i, slot := range slots {
		if slot.Placeholder {
			tiles[i] = Tile{Placeholder: true}
			continue
		}
		g.Go(func() error {
			art := s.Fetcher.Fetch(gctx, slot.Card)
			tiles[i] = Tile{Image: art.Image, Card: slot.Card, Placeholder: art.Source == ArtworkPlaceholder}
			switch art.Source {
			case ArtworkCache:
				s.inc(MetricCacheHits, 1)
			case ArtworkRemote:
				s.inc(MetricCacheMisses, 1)
			case ArtworkPlaceholder:
				s.inc(MetricPlaceholders, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tiles, nil
}

func (s *Service) inc(name string, delta int64) {
	if s.Metrics != nil {
		s.Metrics.Inc(name, delta)
	}
}

func (s *Service) observe(name string, v int64) {
	if s.Metrics != nil {
		s.Metrics.Observe(name, v)
	}
}
