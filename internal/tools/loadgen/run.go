package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config drives synthetic traffic against a running instance. Profiles:
// "auth" hammers the login endpoint, "roster" the student endpoints,
// "mixed" interleaves both plus health probes.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64

	// Credentials for the auth and roster profiles. Roster requests go
	// out unauthenticated when empty, which still exercises the gate.
	Username string
	Password string
}

type Result struct {
	TotalRequests int
	Failures      int
	StatusClasses map[string]int
}

type target struct {
	method string
	path   string
	body   string
}

func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("loadgen: base url is required")
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 5 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	profile := normalizeProfile(cfg.Profile)
	targets := targetsForProfile(profile, cfg)

	client := &http.Client{Timeout: 10 * time.Second}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var mu sync.Mutex
	res := &Result{StatusClasses: make(map[string]int)}
	ticks := make(chan target)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ticks)
		rng := rand.New(rand.NewSource(cfg.Seed))
		interval := time.Second / time.Duration(cfg.RPS)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				select {
				case ticks <- targets[rng.Intn(len(targets))]:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})

	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for tgt := range ticks {
				status, err := fire(ctx, client, cfg.BaseURL, tgt)
				mu.Lock()
				res.TotalRequests++
				if err != nil || status >= http.StatusInternalServerError {
					res.Failures++
				}
				if err == nil {
					res.StatusClasses[classifyStatusClass(status)]++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

func fire(ctx context.Context, client *http.Client, baseURL string, tgt target) (int, error) {
	req, err := http.NewRequestWithContext(ctx, tgt.method, strings.TrimRight(baseURL, "/")+tgt.path, bytes.NewReader([]byte(tgt.body)))
	if err != nil {
		return 0, err
	}
	if tgt.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func targetsForProfile(profile string, cfg Config) []target {
	login := target{
		method: http.MethodPost,
		path:   "/api/v1/auth/login",
		body:   fmt.Sprintf(`{"username":%q,"password":%q}`, cfg.Username, cfg.Password),
	}
	roster := []target{
		{method: http.MethodGet, path: "/api/v1/students"},
		{method: http.MethodGet, path: "/api/v1/audit-logs"},
	}
	health := []target{
		{method: http.MethodGet, path: "/health/live"},
		{method: http.MethodGet, path: "/health/ready"},
	}
	switch profile {
	case "auth":
		return []target{login}
	case "roster":
		return roster
	default:
		targets := []target{login}
		targets = append(targets, roster...)
		targets = append(targets, health...)
		return targets
	}
}

func normalizeProfile(profile string) string {
	profile = strings.ToLower(strings.TrimSpace(profile))
	switch profile {
	case "auth", "roster", "mixed":
		return profile
	default:
		return "mixed"
	}
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}
