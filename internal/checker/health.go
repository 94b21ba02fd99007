package checker

import (
	"context"
	"strings"
	"time"

	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
)

// HealthChecker runs a domain health check for each target.
type HealthChecker struct {
	Service *healthcheck.Service
	Types   []healthcheck.CheckType
}

// Name implements Checker.
func (c *HealthChecker) Name() string {
	if len(c.Types) == 0 {
		return "check all"
	}
	names := make([]string, len(c.Types))
	for i, t := range c.Types {
		names[i] = string(t)
	}
	return "check " + strings.Join(names, ",")
}

// Check implements Checker. A report with failed checks still counts as
// ok; the failures are listed in Notes and in the report itself.
func (c *HealthChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	res := CheckResult{Target: target, CheckedAt: start.UTC()}

	domain, err := NormalizeDomain(target)
	if err != nil {
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}

	report, err := c.Service.Verify(ctx, domain, c.Types)
	res.ResponseTime = float64(time.Since(start).Microseconds()) / 1000
	if report == nil {
		res.Status = StatusError
		if err != nil {
			res.Error = err.Error()
		}
		return res
	}

	res.Status = StatusOK
	res.Report = report
	if err != nil {
		res.Notes = err.Error()
	}
	return res
}
