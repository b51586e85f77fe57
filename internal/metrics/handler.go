package metrics

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// SnapshotProvider abstracts Manager for testing.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (map[string]int64, map[string]summaryAgg, error)
}

// summaryOut is the wire form of one summary in the snapshot response.
type summaryOut struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

type snapshotOut struct {
	TakenAt   time.Time             `json:"taken_at"`
	Counters  map[string]int64      `json:"counters"`
	Summaries map[string]summaryOut `json:"summaries"`
}

// Handler returns a GET-only handler that writes a JSON metrics snapshot.
// If token is non-empty, requests must include Authorization: Bearer <token>;
// the comparison is constant-time.
func Handler(provider SnapshotProvider, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if token != "" && !bearerTokenMatches(r.Header.Get("Authorization"), token) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		counters, summaries, err := provider.Snapshot(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		out := snapshotOut{
			TakenAt:   time.Now().UTC(),
			Counters:  counters,
			Summaries: make(map[string]summaryOut, len(summaries)),
		}
		for name, agg := range summaries {
			out.Summaries[name] = summaryOut{Count: agg.count, Sum: agg.sum, Min: agg.min, Max: agg.max}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func bearerTokenMatches(header, token string) bool {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	got := header[len(prefix):]
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
