package checker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
)

// CheckResult represents the result of a single target check
type CheckResult struct {
	Target       string                         `json:"target"`
	CheckedAt    time.Time                      `json:"checked_at"`
	Status       string                         `json:"status"`
	Report       *healthcheck.DomainHealthCheck `json:"report,omitempty"`
	ResponseTime float64                        `json:"response_time_ms,omitempty"`
	Notes        string                         `json:"notes,omitempty"`
	Error        string                         `json:"error,omitempty"`
}

// Result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Checker is the interface that all check implementations must satisfy
type Checker interface {
	// Check performs the actual check logic for a single target
	Check(ctx context.Context, target string) CheckResult

	// Name returns the name of this checker (e.g., "check dnssec,whois")
	Name() string
}

// AuditFunc is called once per finished target.
type AuditFunc func(target string, result CheckResult, duration float64) error

// Runner orchestrates the execution of checks with concurrency and rate limiting
type Runner struct {
	Concurrency int           // Maximum number of concurrent checks
	RateLimit   int           // Targets started per second (global)
	Timeout     time.Duration // Timeout for each target
}

// RunChecks executes checker against every target using a worker pool.
// Results keep the order of targets.
func (r *Runner) RunChecks(ctx context.Context, targets []string, checker Checker, auditFn AuditFunc) []CheckResult {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]CheckResult, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := limiter.Wait(ctx); err != nil {
				results[i] = CheckResult{
					Target:    target,
					CheckedAt: time.Now().UTC(),
					Status:    StatusError,
					Error:     err.Error(),
				}
				return
			}

			start := time.Now()
			checkCtx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}

			result := checker.Check(checkCtx, target)
			duration := time.Since(start).Seconds()
			if result.ResponseTime == 0 {
				result.ResponseTime = duration * 1000
			}

			if auditFn != nil {
				_ = auditFn(target, result, duration)
			}
			// each goroutine owns its slot
			results[i] = result
		}()
	}

	wg.Wait()
	return results
}
