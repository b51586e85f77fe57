// Package janitor implements background maintenance of the artwork cache:
// age-based eviction, size-budget eviction, and orphan reconciliation. It
// runs independently from the request path so rendering never pays for
// cleanup.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Cache abstracts the minimal cache operations the Janitor requires.
type Cache interface {
	// EvictBefore removes entries fetched before t, returning how many.
	EvictBefore(ctx context.Context, t time.Time) (int, error)
	// EvictOverBudget removes oldest entries until at most maxTotal bytes
	// remain, returning how many were removed.
	EvictOverBudget(ctx context.Context, maxTotal int64) (int, error)
	// Reconcile removes orphan blobs and stale index rows.
	Reconcile(ctx context.Context) error
}

// Recorder receives the evicted-entry counter. Satisfied by
// *metrics.Manager.
type Recorder interface {
	Inc(name string, delta int64)
}

// MetricCacheEvicted is the counter name recorded per eviction.
const MetricCacheEvicted = "cache_evicted_total"

// Config holds tunables for the Janitor.
type Config struct {
	Interval time.Duration // how often a cycle begins
	MaxAge   time.Duration // entries older than this are evicted; <=0 disables
	MaxBytes int64         // total cache size budget; <=0 disables
	Logger   *slog.Logger  // optional logger (defaults to slog.Default())
	Recorder Recorder      // optional persisted metrics sink
}

// Metrics accumulates counters (in-memory) for operational insight.
type Metrics struct {
	mu                  sync.Mutex
	Cycles              uint64
	Evicted             uint64
	CycleLastDurationMS int64
}

// MetricsView is a read-only snapshot safe to copy.
type MetricsView struct {
	Cycles              uint64
	Evicted             uint64
	CycleLastDurationMS int64
}

func (m *Metrics) addEvicted(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.Evicted += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) recordCycle(d time.Duration) {
	m.mu.Lock()
	m.Cycles++
	m.CycleLastDurationMS = d.Milliseconds()
	m.mu.Unlock()
}

// Janitor encapsulates the background cleanup loop.
type Janitor struct {
	cache   Cache
	cfg     Config
	metrics *Metrics

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Janitor.
func New(cache Cache, cfg Config) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Janitor{
		cache:   cache,
		cfg:     cfg,
		metrics: &Metrics{},
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the janitor loop in a new goroutine.
func (j *Janitor) Start(ctx context.Context) {
	if j.ticker != nil {
		return
	} // already started
	j.ticker = time.NewTicker(j.cfg.Interval)
	go j.loop(ctx)
}

// Stop signals the loop to exit and waits for completion.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stopCh) })
	<-j.doneCh
}

// MetricsSnapshot returns a copy of current metrics.
func (j *Janitor) MetricsSnapshot() MetricsView {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	return MetricsView{
		Cycles:              j.metrics.Cycles,
		Evicted:             j.metrics.Evicted,
		CycleLastDurationMS: j.metrics.CycleLastDurationMS,
	}
}

func (j *Janitor) loop(ctx context.Context) {
	log := j.cfg.Logger.With("domain", "janitor")
	defer func() {
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.doneCh)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stop", "reason", "context_cancel")
			return
		case <-j.stopCh:
			log.Info("janitor stop", "reason", "stop_signal")
			return
		case <-j.ticker.C:
			j.runCycle(ctx)
		}
	}
}

// runCycle performs one age-eviction + budget-eviction + reconcile pass.
func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()
	log := j.cfg.Logger.With("domain", "janitor", "action", "cycle")
	evicted := 0
	if j.cfg.MaxAge > 0 {
		cutoff := time.Now().UTC().Add(-j.cfg.MaxAge)
		n, err := j.cache.EvictBefore(ctx, cutoff)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("evict by age", "error", err)
		}
		evicted += n
	}
	if j.cfg.MaxBytes > 0 {
		n, err := j.cache.EvictOverBudget(ctx, j.cfg.MaxBytes)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("evict by size", "error", err)
		}
		evicted += n
	}
	if rerr := j.cache.Reconcile(ctx); rerr != nil && !errors.Is(rerr, context.Canceled) {
		log.Error("reconcile", "error", rerr)
	}
	j.metrics.addEvicted(evicted)
	j.metrics.recordCycle(time.Since(start))
	if j.cfg.Recorder != nil && evicted > 0 {
		j.cfg.Recorder.Inc(MetricCacheEvicted, int64(evicted))
	}
	log.Info("cycle complete", "evicted", evicted, "ms", time.Since(start).Milliseconds())
}
