// Package health reports aggregate process status: posts-directory
// reachability, cache operability, uptime, and request counters. It is
// read-only introspection and never mutates content-service state.
package health

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/quillhost/quill/internal/cache"
)

// Status is the aggregate or per-check health state.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of a single probe.
type CheckResult struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// RequestStats are counters supplied by the HTTP layer's middleware.
type RequestStats struct {
	Total  int64 `json:"total"`
	Errors int64 `json:"errors"`
}

// Report is the full health snapshot.
type Report struct {
	Status   Status        `json:"status"`
	Uptime   string        `json:"uptime"`
	Requests RequestStats  `json:"requests"`
	Checks   []CheckResult `json:"checks"`
	Caches   []cache.Stats `json:"caches"`
}

// RequestCounter accumulates request totals from HTTP middleware.
type RequestCounter struct {
	total  int64
	errors int64
}

// Record counts one request; failed marks server-side failures.
func (rc *RequestCounter) Record(failed bool) {
	atomic.AddInt64(&rc.total, 1)
	if failed {
		atomic.AddInt64(&rc.errors, 1)
	}
}

// Snapshot returns current counter values.
func (rc *RequestCounter) Snapshot() RequestStats {
	return RequestStats{
		Total:  atomic.LoadInt64(&rc.total),
		Errors: atomic.LoadInt64(&rc.errors),
	}
}

// StatsSource exposes a cache tier's counters for the report.
type StatsSource interface {
	GetStats() cache.Stats
}

// Service aggregates health checks.
type Service struct {
	postsDir string
	probe    *cache.Cache[string]
	tiers    []StatsSource
	requests *RequestCounter
	started  time.Time
}

// NewService builds a health service. The probe cache is a dedicated tier
// used only for the synthetic round-trip check, so probing never perturbs
// content caches.
func NewService(postsDir string, tiers []StatsSource, requests *RequestCounter) *Service {
	return &Service{
		postsDir: postsDir,
		probe:    cache.New[string]("health-probe", time.Minute),
		tiers:    tiers,
		requests: requests,
		started:  time.Now(),
	}
}

// Check runs every probe and aggregates: any unhealthy check makes the
// report unhealthy; otherwise any degraded check makes it degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := []CheckResult{
		s.checkPostsDir(),
		s.checkCache(),
	}

	overall := StatusHealthy
	for _, check := range checks {
		switch check.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	report := Report{
		Status: overall,
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Checks: checks,
	}

	if s.requests != nil {
		report.Requests = s.requests.Snapshot()
	}

	for _, tier := range s.tiers {
		report.Caches = append(report.Caches, tier.GetStats())
	}

	return report
}

func (s *Service) checkPostsDir() CheckResult {
	info, err := os.Stat(s.postsDir)
	if err != nil {
		return CheckResult{
			Name:   "posts_directory",
			Status: StatusUnhealthy,
			Detail: err.Error(),
		}
	}
	if !info.IsDir() {
		return CheckResult{
			Name:   "posts_directory",
			Status: StatusUnhealthy,
			Detail: fmt.Sprintf("%s is not a directory", s.postsDir),
		}
	}

	return CheckResult{Name: "posts_directory", Status: StatusHealthy}
}

// checkCache runs a synthetic set/get/delete round trip on the probe tier.
func (s *Service) checkCache() CheckResult {
	const key = "health-check"

	s.probe.Set(key, "ok")
	value, ok := s.probe.Get(key)
	s.probe.Delete(key)

	if !ok || value != "ok" {
		return CheckResult{
			Name:   "cache",
			Status: StatusDegraded,
			Detail: "cache round trip failed",
		}
	}
	if _, stillThere := s.probe.Get(key); stillThere {
		return CheckResult{
			Name:   "cache",
			Status: StatusDegraded,
			Detail: "cache delete failed",
		}
	}

	return CheckResult{Name: "cache", Status: StatusHealthy}
}
