package health

import (
	"context"
	"sync"
	"time"
)

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// ProbeRunner polls its checkers in the background and serves the last
// observed state, so readiness probes never fan out to the dependencies
// on the request path.
type ProbeRunner struct {
	interval time.Duration
	timeout  time.Duration
	checkers []Checker

	mu      sync.RWMutex
	results []CheckResult
	probed  bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewProbeRunner(interval, timeout time.Duration, checkers ...Checker) *ProbeRunner {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 {
		timeout = interval
	}
	return &ProbeRunner{
		interval: interval,
		timeout:  timeout,
		checkers: checkers,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background polling loop. It returns immediately; the
// first probe runs before the first tick so readiness converges fast.
func (p *ProbeRunner) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		p.probe(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				p.probe(ctx)
			}
		}
	}()
}

func (p *ProbeRunner) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Ready reports the last probed state. When the loop has not run yet it
// probes synchronously once, so a fresh instance answers truthfully.
func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	p.mu.RLock()
	probed := p.probed
	results := p.results
	p.mu.RUnlock()

	if !probed {
		results = p.runChecks(ctx)
		p.store(results)
	}

	ready := true
	for _, res := range results {
		if !res.Healthy {
			ready = false
			break
		}
	}
	return ready, resultsOrEmpty(results)
}

func (p *ProbeRunner) probe(ctx context.Context) {
	p.store(p.runChecks(ctx))
}

func (p *ProbeRunner) runChecks(ctx context.Context) []CheckResult {
	results := make([]CheckResult, 0, len(p.checkers))
	for _, checker := range p.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		results = append(results, checker.Check(checkCtx))
		cancel()
	}
	return results
}

func (p *ProbeRunner) store(results []CheckResult) {
	p.mu.Lock()
	p.results = results
	p.probed = true
	p.mu.Unlock()
}

func resultsOrEmpty(results []CheckResult) []CheckResult {
	if results == nil {
		return []CheckResult{}
	}
	return results
}
