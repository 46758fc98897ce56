package health

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type staticChecker struct {
	result CheckResult
}

func (c staticChecker) Check(context.Context) CheckResult { return c.result }

func TestReadyWithoutCheckersIsReady(t *testing.T) {
	p := NewProbeRunner(time.Second, time.Second)
	ready, results := p.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready with no checkers")
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil results, got %v", results)
	}
}

func TestReadyProbesSynchronouslyBeforeStart(t *testing.T) {
	p := NewProbeRunner(time.Hour, time.Second,
		staticChecker{CheckResult{Name: "db", Healthy: true}},
		staticChecker{CheckResult{Name: "redis", Healthy: false, Error: "down"}},
	)
	ready, results := p.Ready(context.Background())
	if ready {
		t.Fatal("expected unready with a failing checker")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Error != "down" {
		t.Fatalf("expected checker error carried through, got %+v", results[1])
	}
}

func TestBackgroundLoopRefreshesState(t *testing.T) {
	flaky := &flipChecker{}
	p := NewProbeRunner(10*time.Millisecond, time.Second, flaky)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ready, _ := p.Ready(ctx); ready {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected probe loop to observe recovery")
}

type flipChecker struct {
	calls atomic.Int32
}

func (c *flipChecker) Check(context.Context) CheckResult {
	// Unhealthy on the first probe, healthy afterwards.
	return CheckResult{Name: "flaky", Healthy: c.calls.Add(1) > 1}
}
