package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/domaincheck/internal/checker"
	"github.com/khanhnv2901/domaincheck/internal/domain/run"
	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
	jsonstore "github.com/khanhnv2901/domaincheck/internal/infrastructure/persistence/json"
	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

func newJobService(t *testing.T, fn func(ctx context.Context, domain string, report *healthcheck.DomainHealthCheck) error) (*CheckJobService, *jsonstore.RunRepository) {
	t.Helper()
	repo, err := jsonstore.NewRunRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	reg := healthcheck.NewRegistry(healthcheck.HandlerFunc{CheckType: healthcheck.CheckWHOIS, Fn: fn})
	svc := healthcheck.NewService(reg, zaptest.NewLogger(t))
	jm := NewJobManager()
	t.Cleanup(jm.Close)
	runner := &checker.Runner{Concurrency: 2, Timeout: time.Second}
	return NewCheckJobService(context.Background(), jm, svc, repo, runner, zaptest.NewLogger(t)), repo
}

func waitForJob(t *testing.T, s *CheckJobService, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.GetJob(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if job.Status == JobDone || job.Status == JobError {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func TestCheckJobServiceRunsAndSaves(t *testing.T) {
	s, repo := newJobService(t, func(_ context.Context, domain string, _ *healthcheck.DomainHealthCheck) error {
		if domain == "broken.example" {
			return errors.New("whois timeout")
		}
		return nil
	})

	job, err := s.StartJob(context.Background(), JobRequest{
		Domains: []string{"Example.com", "https://broken.example/"},
		Checks:  []string{"whois"},
	})
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	if job.Total != 2 || job.ResultID == "" {
		t.Fatalf("job = %+v", job)
	}

	final := waitForJob(t, s, job.ID)
	if final.Status != JobDone || final.Completed != 2 || final.Failed != 0 {
		t.Errorf("final job = %+v", final)
	}

	rn, err := repo.FindByID(context.Background(), job.ResultID)
	if err != nil {
		t.Fatalf("saved run: %v", err)
	}
	if rn.Status() != run.StatusCompleted {
		t.Errorf("run status = %s", rn.Status())
	}
	results := rn.Results()
	if len(results) != 2 || results[0].Target != "example.com" || results[1].Target != "broken.example" {
		t.Fatalf("results = %+v", results)
	}
	if results[1].Report == nil || results[1].Report.Errors[healthcheck.CheckWHOIS] == "" {
		t.Error("whois failure should be recorded on the report")
	}
}

func TestCheckJobServiceRejectsBadRequests(t *testing.T) {
	s, _ := newJobService(t, func(context.Context, string, *healthcheck.DomainHealthCheck) error { return nil })

	tests := []struct {
		name string
		req  JobRequest
		want error
	}{
		{"no domains", JobRequest{}, sharedErrors.ErrInvalidData},
		{"invalid domain", JobRequest{Domains: []string{"ok.example", "bad..example"}}, sharedErrors.ErrInvalidDomain},
		{"unknown check", JobRequest{Domains: []string{"ok.example"}, Checks: []string{"astrology"}}, sharedErrors.ErrUnknownCheckType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.StartJob(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if jobs, _ := s.ListJobs(context.Background(), 10); len(jobs) != 0 {
		t.Errorf("rejected requests created jobs: %v", jobs)
	}
	if _, err := s.GetJob(context.Background(), "job_missing"); !errors.Is(err, errJobNotFound) {
		t.Errorf("GetJob error = %v", err)
	}
}
