package checker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
)

func newHealthChecker(t *testing.T, fn func(ctx context.Context, domain string, report *healthcheck.DomainHealthCheck) error) *HealthChecker {
	t.Helper()
	reg := healthcheck.NewRegistry(healthcheck.HandlerFunc{CheckType: healthcheck.CheckWHOIS, Fn: fn})
	return &HealthChecker{
		Service: healthcheck.NewService(reg, zaptest.NewLogger(t)),
		Types:   []healthcheck.CheckType{healthcheck.CheckWHOIS},
	}
}

func TestHealthCheckerName(t *testing.T) {
	c := &HealthChecker{Types: []healthcheck.CheckType{healthcheck.CheckDNSSEC, healthcheck.CheckWHOIS}}
	if got := c.Name(); got != "check dnssec,whois" {
		t.Errorf("Name = %q", got)
	}
	if got := (&HealthChecker{}).Name(); got != "check all" {
		t.Errorf("Name = %q", got)
	}
}

func TestHealthCheckerNormalizesTarget(t *testing.T) {
	var seen string
	c := newHealthChecker(t, func(_ context.Context, domain string, _ *healthcheck.DomainHealthCheck) error {
		seen = domain
		return nil
	})

	res := c.Check(context.Background(), "https://Example.COM/path")
	if res.Status != StatusOK {
		t.Fatalf("Status = %s (%s)", res.Status, res.Error)
	}
	if seen != "example.com" {
		t.Errorf("handler saw %q", seen)
	}
	if res.Report == nil || res.Report.Domain != "example.com" {
		t.Errorf("Report = %+v", res.Report)
	}
	if res.Target != "https://Example.COM/path" {
		t.Errorf("Target = %q, want the original input", res.Target)
	}
}

func TestHealthCheckerFailedCheckIsNoted(t *testing.T) {
	c := newHealthChecker(t, func(context.Context, string, *healthcheck.DomainHealthCheck) error {
		return errors.New("registry unreachable")
	})

	res := c.Check(context.Background(), "example.com")
	if res.Status != StatusOK {
		t.Fatalf("Status = %s", res.Status)
	}
	if !strings.Contains(res.Notes, "registry unreachable") {
		t.Errorf("Notes = %q", res.Notes)
	}
	if res.Report.Errors[healthcheck.CheckWHOIS] == "" {
		t.Error("report should carry the whois error")
	}
}

func TestHealthCheckerInvalidTarget(t *testing.T) {
	c := newHealthChecker(t, func(context.Context, string, *healthcheck.DomainHealthCheck) error {
		t.Error("handler must not run for an invalid target")
		return nil
	})

	res := c.Check(context.Background(), "   ")
	if res.Status != StatusError || res.Error == "" || res.Report != nil {
		t.Errorf("got %+v", res)
	}
}
