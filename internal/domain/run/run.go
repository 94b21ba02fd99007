package run

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/khanhnv2901/domaincheck/internal/checker"
	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// Run represents one batch of health checks over a list of domains.
// It is the aggregate root that owns the per-domain results.
type Run struct {
	id          string
	operator    string
	domains     []string
	checks      []string
	startedAt   time.Time
	completedAt time.Time
	status      Status
	results     []checker.CheckResult
	lastError   string
}

// Status represents the status of a run
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// New creates a pending run over domains.
func New(operator string, domains, checks []string) (*Run, error) {
	if len(domains) == 0 {
		return nil, fmt.Errorf("%w: run needs at least one domain", sharedErrors.ErrInvalidData)
	}

	return &Run{
		id:       uuid.NewString(),
		operator: operator,
		domains:  append([]string(nil), domains...),
		checks:   append([]string(nil), checks...),
		status:   StatusPending,
		results:  make([]checker.CheckResult, 0, len(domains)),
	}, nil
}

// Snapshot is the persisted form of a run.
type Snapshot struct {
	ID          string                `json:"id"`
	Operator    string                `json:"operator,omitempty"`
	Domains     []string              `json:"domains"`
	Checks      []string              `json:"checks,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt time.Time             `json:"completed_at"`
	Status      Status                `json:"status"`
	Results     []checker.CheckResult `json:"results"`
	Error       string                `json:"error,omitempty"`
}

// Reconstruct rebuilds a run from persisted data.
func Reconstruct(s Snapshot) (*Run, error) {
	switch s.Status {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
	default:
		return nil, fmt.Errorf("%w: unknown run status %q", sharedErrors.ErrInvalidData, s.Status)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("%w: run id is empty", sharedErrors.ErrInvalidData)
	}
	return &Run{
		id:          s.ID,
		operator:    s.Operator,
		domains:     append([]string(nil), s.Domains...),
		checks:      append([]string(nil), s.Checks...),
		startedAt:   s.StartedAt,
		completedAt: s.CompletedAt,
		status:      s.Status,
		results:     append([]checker.CheckResult(nil), s.Results...),
		lastError:   s.Error,
	}, nil
}

// Snapshot returns the persisted form of r.
func (r *Run) Snapshot() Snapshot {
	return Snapshot{
		ID:          r.id,
		Operator:    r.operator,
		Domains:     r.Domains(),
		Checks:      r.Checks(),
		StartedAt:   r.startedAt,
		CompletedAt: r.completedAt,
		Status:      r.status,
		Results:     r.Results(),
		Error:       r.lastError,
	}
}

// Start marks the run as running
func (r *Run) Start() error {
	if r.status != StatusPending {
		return sharedErrors.ErrRunAlreadyStarted
	}
	r.status = StatusRunning
	r.startedAt = time.Now().UTC()
	return nil
}

// Complete marks the run as completed
func (r *Run) Complete() error {
	switch r.status {
	case StatusPending:
		return sharedErrors.ErrRunNotStarted
	case StatusCompleted, StatusFailed:
		return sharedErrors.ErrRunAlreadyCompleted
	}
	r.status = StatusCompleted
	r.completedAt = time.Now().UTC()
	return nil
}

// Fail marks the run as failed with reason.
func (r *Run) Fail(reason string) error {
	if r.status == StatusCompleted || r.status == StatusFailed {
		return sharedErrors.ErrRunAlreadyCompleted
	}
	r.status = StatusFailed
	r.lastError = reason
	r.completedAt = time.Now().UTC()
	return nil
}

// AddResult appends a per-domain result to a running run.
func (r *Run) AddResult(result checker.CheckResult) error {
	switch r.status {
	case StatusPending:
		return sharedErrors.ErrRunNotStarted
	case StatusCompleted, StatusFailed:
		return sharedErrors.ErrRunAlreadyCompleted
	}
	r.results = append(r.results, result)
	return nil
}

func (r *Run) ID() string { return r.id }

func (r *Run) Operator() string { return r.operator }

func (r *Run) StartedAt() time.Time { return r.startedAt }

func (r *Run) CompletedAt() time.Time { return r.completedAt }

func (r *Run) Status() Status { return r.status }

func (r *Run) LastError() string { return r.lastError }

func (r *Run) Domains() []string { return append([]string(nil), r.domains...) }

func (r *Run) Checks() []string { return append([]string(nil), r.checks...) }

// Results returns a copy so callers cannot modify the run.
func (r *Run) Results() []checker.CheckResult {
	resultsCopy := make([]checker.CheckResult, len(r.results))
	copy(resultsCopy, r.results)
	return resultsCopy
}

// Failures counts results with an error status.
func (r *Run) Failures() int {
	n := 0
	for _, res := range r.results {
		if res.Status == checker.StatusError {
			n++
		}
	}
	return n
}
