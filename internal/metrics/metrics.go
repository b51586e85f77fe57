// Package metrics provides a lightweight persistent metrics manager.
// It batches in-memory counter and summary observations and periodically
// flushes them to the shared SQLite database used for the artwork index.
// Only monotonic counters and simple (count,sum,min,max) summaries are
// supported.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// Config controls flush cadence and logging.
type Config struct {
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// Manager aggregates metric events and flushes them. It satisfies the
// app.Recorder port via Inc and Observe.
type Manager struct {
	cfg     Config
	db      *sql.DB
	events  chan event
	stop    chan struct{}
	done    chan struct{}
	started bool

	// in-memory deltas (protected by mu)
	mu        sync.Mutex
	counters  map[string]int64
	summaries map[string]*summaryAgg
}

type eventKind int

const (
	eventInc eventKind = iota + 1
	eventObserve
)

type event struct {
	kind eventKind
	name string
	v    int64
}

type summaryAgg struct {
	count int64
	sum   int64
	min   int64
	max   int64
}

// New creates a Manager. Call Start to begin background flushing.
func New(db *sql.DB, cfg Config) *Manager {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		db:        db,
		events:    make(chan event, 1024),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		counters:  make(map[string]int64),
		summaries: make(map[string]*summaryAgg),
	}
}

// InitSchema ensures metrics tables exist.
func (m *Manager) InitSchema(ctx context.Context) error {
	ddlCounters := `CREATE TABLE IF NOT EXISTS metrics_counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);`
	ddlSummaries := `CREATE TABLE IF NOT EXISTS metrics_summaries (
		name TEXT PRIMARY KEY,
		count INTEGER NOT NULL,
		sum INTEGER NOT NULL,
		min INTEGER NOT NULL,
		max INTEGER NOT NULL
	);`
	if _, err := m.db.ExecContext(ctx, ddlCounters); err != nil {
		return err
	}
	if _, err := m.db.ExecContext(ctx, ddlSummaries); err != nil {
		return err
	}
	return nil
}

// Inc adds delta to the named counter. Non-blocking; drops on backpressure.
func (m *Manager) Inc(name string, delta int64) {
	select {
	case m.events <- event{kind: eventInc, name: name, v: delta}:
	default:
	}
}

// Observe records a summary observation. Non-blocking; drops on backpressure.
func (m *Manager) Observe(name string, v int64) {
	select {
	case m.events <- event{kind: eventObserve, name: name, v: v}:
	default:
	}
}

// Start launches the background flush loop.
func (m *Manager) Start(ctx context.Context) {
	if m.started {
		return
	}
	m.started = true
	go m.loop(ctx)
}

// Stop drains pending events, performs a final flush, and waits for the
// loop to exit.
func (m *Manager) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Manager) loop(ctx context.Context) {
	log := m.cfg.Logger.With("domain", "metrics")
	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer func() {
		ticker.Stop()
		close(m.done)
	}()
	for {
		select {
		case <-ctx.Done():
			m.flush(context.Background(), log)
			return
		case <-m.stop:
			m.drain()
			m.flush(context.Background(), log)
			return
		case ev := <-m.events:
			m.apply(ev)
		case <-ticker.C:
			m.flush(ctx, log)
		}
	}
}

func (m *Manager) drain() {
	for {
		select {
		case ev := <-m.events:
			m.apply(ev)
		default:
			return
		}
	}
}

func (m *Manager) apply(ev event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.kind {
	case eventInc:
		m.counters[ev.name] += ev.v
	case eventObserve:
		agg, ok := m.summaries[ev.name]
		if !ok {
			m.summaries[ev.name] = &summaryAgg{count: 1, sum: ev.v, min: ev.v, max: ev.v}
			return
		}
		agg.count++
		agg.sum += ev.v
		if ev.v < agg.min {
			agg.min = ev.v
		}
		if ev.v > agg.max {
			agg.max = ev.v
		}
	}
}

// flush persists accumulated deltas and resets the in-memory maps. Failed
// flushes keep the deltas for the next attempt.
func (m *Manager) flush(ctx context.Context, log *slog.Logger) {
	m.mu.Lock()
	counters := m.counters
	summaries := m.summaries
	m.counters = make(map[string]int64)
	m.summaries = make(map[string]*summaryAgg)
	m.mu.Unlock()
	if len(counters) == 0 && len(summaries) == 0 {
		return
	}
	if err := m.persist(ctx, counters, summaries); err != nil {
		log.Error("flush", "error", err)
		m.mu.Lock()
		for k, v := range counters {
			m.counters[k] += v
		}
		for k, v := range summaries {
			if agg, ok := m.summaries[k]; ok {
				agg.count += v.count
				agg.sum += v.sum
				if v.min < agg.min {
					agg.min = v.min
				}
				if v.max > agg.max {
					agg.max = v.max
				}
			} else {
				m.summaries[k] = v
			}
		}
		m.mu.Unlock()
	}
}

func (m *Manager) persist(ctx context.Context, counters map[string]int64, summaries map[string]*summaryAgg) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	const upC = `INSERT INTO metrics_counters (name, value) VALUES (?,?)
ON CONFLICT(name) DO UPDATE SET value = value + excluded.value`
	for name, v := range counters {
		if _, err = tx.ExecContext(ctx, upC, name, v); err != nil {
			return err
		}
	}
	const upS = `INSERT INTO metrics_summaries (name, count, sum, min, max) VALUES (?,?,?,?,?)
ON CONFLICT(name) DO UPDATE SET
count = count + excluded.count,
sum = sum + excluded.sum,
min = MIN(min, excluded.min),
max = MAX(max, excluded.max)`
	for name, agg := range summaries {
		if _, err = tx.ExecContext(ctx, upS, name, agg.count, agg.sum, agg.min, agg.max); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Snapshot reads the persisted metric state. Pending unflushed deltas are
// not included; callers wanting exact totals should Stop first.
func (m *Manager) Snapshot(ctx context.Context) (map[string]int64, map[string]summaryAgg, error) {
	counters := make(map[string]int64)
	rows, err := m.db.QueryContext(ctx, `SELECT name, value FROM metrics_counters`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			v    int64
		)
		if err := rows.Scan(&name, &v); err != nil {
			return nil, nil, err
		}
		counters[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	summaries := make(map[string]summaryAgg)
	sRows, err := m.db.QueryContext(ctx, `SELECT name, count, sum, min, max FROM metrics_summaries`)
	if err != nil {
		return nil, nil, err
	}
	defer sRows.Close()
	for sRows.Next() {
		var (
			name string
			agg  summaryAgg
		)
		if err := sRows.Scan(&name, &agg.count, &agg.sum, &agg.min, &agg.max); err != nil {
			return nil, nil, err
		}
		summaries[name] = agg
	}
	return counters, summaries, sRows.Err()
}
