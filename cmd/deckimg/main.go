// Package main provides the deckimg binary entry point that starts the HTTP
// server for deck-image rendering. It loads configuration from environment
// variables, validates it, and wires the catalog resolver, artwork cache,
// fetcher, composer, janitor, and metrics into the HTTP handler.
//
// The application flow:
//  1. Load and validate configuration.
//  2. Prepare the data directory and open the SQLite index.
//  3. Build the artwork cache, catalog client, fetcher, and composer.
//  4. Start the janitor and metrics loops.
//  5. Configure and start the HTTP server.
//
// It blocks until the server exits with an error (other than
// http.ErrServerClosed) and exits non-zero on configuration or wiring
// failures.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tcgtools/deckimg/internal/app"
	"github.com/tcgtools/deckimg/internal/artwork"
	"github.com/tcgtools/deckimg/internal/catalog"
	"github.com/tcgtools/deckimg/internal/compose"
	"github.com/tcgtools/deckimg/internal/config"
	"github.com/tcgtools/deckimg/internal/httpx"
	"github.com/tcgtools/deckimg/internal/janitor"
	"github.com/tcgtools/deckimg/internal/metrics"
	"github.com/tcgtools/deckimg/internal/store"
	"github.com/tcgtools/deckimg/internal/store/filesystem"
	"github.com/tcgtools/deckimg/internal/store/sqlite"
	"github.com/tcgtools/deckimg/web"
)

// realClock implements app.Clock and store.Clock using time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}
	return cfg
}

func ensureDataDir(dir string) (string, string) {
	if st, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
				slog.Error("failed to create data directory", "dir", dir, "err", mkErr)
				os.Exit(3)
			}
		} else {
			slog.Error("stat data directory", "dir", dir, "err", err)
			os.Exit(3)
		}
	} else if !st.IsDir() {
		slog.Error("data path not directory", "dir", dir)
		os.Exit(3)
	}
	blobDir := filepath.Join(dir, "artwork")
	if err := os.MkdirAll(blobDir, 0o700); err != nil {
		slog.Error("create artwork dir", "err", err)
		os.Exit(5)
	}
	return dir, blobDir
}

func openDatabase(dataDir string) (*sql.DB, *sqlite.Index) {
	dbPath := filepath.Join(dataDir, "deckimg.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		slog.Error("open sqlite driver", "err", err)
		os.Exit(4)
	}
	idx, err := sqlite.New(db)
	if err != nil {
		slog.Error("init sqlite schema", "err", err)
		os.Exit(4)
	}
	return db, idx
}

func newBlobStorage(blobDir string) store.BlobStorage {
	blobs, err := filesystem.New(blobDir)
	if err != nil {
		slog.Error("init blob storage", "err", err)
		os.Exit(5)
	}
	return blobs
}

func buildService(cfg *config.Config, cache *store.Cache, clock app.Clock, rec app.Recorder) (*app.Service, error) {
	hc := &http.Client{Timeout: cfg.HTTPTimeout}
	composer, err := compose.New(cfg.AssetsDir)
	if err != nil {
		return nil, err
	}
	resolver := catalog.New(cfg.CatalogBaseURL, cfg.Locale, hc)
	fetcher := artwork.New(cfg.CatalogBaseURL, hc, cache, composer.Placeholder())
	return &app.Service{
		Resolver: resolver,
		Fetcher:  fetcher,
		Composer: composer,
		Clock:    clock,
		Metrics:  rec,
	}, nil
}

func buildHandler(cfg *config.Config, svc *app.Service, db *sql.DB, blobDir string, mgr *metrics.Manager) http.Handler {
	readiness := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if _, err := os.ReadDir(blobDir); err != nil {
			return err
		}
		return nil
	}
	h := httpx.New(svc, readiness)
	h.IndexPage = web.IndexHTML
	h.Metrics = metrics.Handler(mgr, cfg.MetricsToken)
	return h.Router()
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	// Write timeout leaves room for cold renders that fetch 33 images.
	return &http.Server{Addr: cfg.Addr, Handler: handler, ReadTimeout: 5 * time.Second, WriteTimeout: 60 * time.Second, IdleTimeout: 120 * time.Second}
}

func run() error {
	cfg := loadConfig()
	dataDir, blobDir := ensureDataDir(cfg.DataDir)
	db, idx := openDatabase(dataDir)
	defer db.Close()
	blobs := newBlobStorage(blobDir)
	clock := realClock{}
	cache := store.New(idx, blobs, clock)

	ctx := context.Background()
	mgr := metrics.New(db, metrics.Config{})
	if err := mgr.InitSchema(ctx); err != nil {
		return err
	}
	mgr.Start(ctx)
	defer mgr.Stop()

	svc, err := buildService(cfg, cache, clock, mgr)
	if err != nil {
		return err
	}

	jan := janitor.New(cache, janitor.Config{
		Interval: cfg.JanitorInterval,
		MaxAge:   cfg.CacheMaxAge,
		MaxBytes: cfg.CacheMaxBytes,
		Recorder: mgr,
	})
	jan.Start(ctx)
	defer jan.Stop()

	srv := newServer(cfg, buildHandler(cfg, svc, db, blobDir, mgr))
	slog.Info("starting server", "addr", cfg.Addr, "pid", os.Getpid())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
