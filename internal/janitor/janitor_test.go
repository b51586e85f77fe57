package janitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockCache implements Cache for tests.
type mockCache struct {
	mu          sync.Mutex
	ageCalls    int
	budgetCalls int
	reconciles  int
	ageN        int
	budgetN     int
	err         error
}

func (m *mockCache) EvictBefore(_ context.Context, _ time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ageCalls++
	return m.ageN, m.err
}

func (m *mockCache) EvictOverBudget(_ context.Context, _ int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgetCalls++
	return m.budgetN, m.err
}

func (m *mockCache) Reconcile(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciles++
	return m.err
}

func (m *mockCache) snapshot() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ageCalls, m.budgetCalls, m.reconciles
}

func TestRunCycleEvictsAndReconciles(t *testing.T) {
	mc := &mockCache{ageN: 3, budgetN: 2}
	j := New(mc, Config{Interval: time.Hour, MaxAge: time.Hour, MaxBytes: 1024})
	j.runCycle(context.Background())

	age, budget, rec := mc.snapshot()
	if age != 1 || budget != 1 || rec != 1 {
		t.Fatalf("expected one call each, got age=%d budget=%d reconcile=%d", age, budget, rec)
	}
	mv := j.MetricsSnapshot()
	if mv.Cycles != 1 {
		t.Fatalf("expected 1 cycle, got %d", mv.Cycles)
	}
	if mv.Evicted != 5 {
		t.Fatalf("expected 5 evicted, got %d", mv.Evicted)
	}
}

type fakeRecorder struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (f *fakeRecorder) Inc(name string, delta int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[name] += delta
}

func TestRunCycleRecordsEvictions(t *testing.T) {
	mc := &mockCache{ageN: 3, budgetN: 2}
	rec := &fakeRecorder{}
	j := New(mc, Config{Interval: time.Hour, MaxAge: time.Hour, MaxBytes: 1024, Recorder: rec})
	j.runCycle(context.Background())

	if got := rec.counts[MetricCacheEvicted]; got != 5 {
		t.Fatalf("expected 5 evictions recorded, got %d", got)
	}

	// Nothing evicted, nothing recorded.
	mc2 := &mockCache{}
	rec2 := &fakeRecorder{}
	j2 := New(mc2, Config{Interval: time.Hour, MaxAge: time.Hour, MaxBytes: 1024, Recorder: rec2})
	j2.runCycle(context.Background())
	if len(rec2.counts) != 0 {
		t.Fatalf("expected no counters, got %v", rec2.counts)
	}
}

func TestRunCycleSkipsDisabledPolicies(t *testing.T) {
	mc := &mockCache{}
	j := New(mc, Config{Interval: time.Hour})
	j.runCycle(context.Background())

	age, budget, rec := mc.snapshot()
	if age != 0 {
		t.Fatalf("age eviction should be disabled, got %d calls", age)
	}
	if budget != 0 {
		t.Fatalf("budget eviction should be disabled, got %d calls", budget)
	}
	if rec != 1 {
		t.Fatalf("reconcile should always run, got %d calls", rec)
	}
}

func TestRunCycleSurvivesErrors(t *testing.T) {
	mc := &mockCache{err: errors.New("boom")}
	j := New(mc, Config{Interval: time.Hour, MaxAge: time.Hour, MaxBytes: 1})
	j.runCycle(context.Background()) // must not panic

	if mv := j.MetricsSnapshot(); mv.Cycles != 1 {
		t.Fatalf("cycle should still be recorded, got %d", mv.Cycles)
	}
}

func TestStartStop(t *testing.T) {
	mc := &mockCache{}
	j := New(mc, Config{Interval: 5 * time.Millisecond, MaxAge: time.Hour})
	j.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	j.Stop()

	age, _, _ := mc.snapshot()
	if age == 0 {
		t.Fatal("expected at least one eviction cycle before Stop")
	}
}

func TestStopViaContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	j := New(&mockCache{}, Config{Interval: time.Hour})
	j.Start(ctx)
	cancel()
	select {
	case <-j.doneCh:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancellation")
	}
}
