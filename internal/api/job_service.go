package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/domaincheck/internal/checker"
	"github.com/khanhnv2901/domaincheck/internal/domain/run"
	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// MaxJobDomains caps the number of domains in one job.
const MaxJobDomains = 500

// CheckJobService runs batch jobs in the background and stores each one as
// a run.
type CheckJobService struct {
	manager *JobManager
	service *healthcheck.Service
	runs    run.Repository
	runner  *checker.Runner
	logger  *zap.Logger
	// base outlives the request that started a job
	base context.Context
}

// NewCheckJobService wires jobs to the health check service. Jobs are
// cancelled when ctx is done.
func NewCheckJobService(ctx context.Context, manager *JobManager, service *healthcheck.Service, runs run.Repository, runner *checker.Runner, logger *zap.Logger) *CheckJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = &checker.Runner{Concurrency: 4, RateLimit: 10, Timeout: time.Minute}
	}
	return &CheckJobService{
		manager: manager,
		service: service,
		runs:    runs,
		runner:  runner,
		logger:  logger,
		base:    ctx,
	}
}

// StartJob validates req and starts the job. It returns once the job is
// queued.
func (s *CheckJobService) StartJob(_ context.Context, req JobRequest) (*Job, error) {
	if len(req.Domains) == 0 {
		return nil, fmt.Errorf("%w: domains are required", sharedErrors.ErrInvalidData)
	}
	if len(req.Domains) > MaxJobDomains {
		return nil, fmt.Errorf("%w: at most %d domains per job", sharedErrors.ErrInvalidData, MaxJobDomains)
	}

	domains := make([]string, len(req.Domains))
	for i, d := range req.Domains {
		name, err := checker.NormalizeDomain(d)
		if err != nil {
			return nil, err
		}
		domains[i] = name
	}
	types, err := healthcheck.ParseCheckTypes(req.Checks)
	if err != nil {
		return nil, err
	}
	checkNames := make([]string, len(types))
	for i, t := range types {
		checkNames[i] = string(t)
	}

	rn, err := run.New("api", domains, checkNames)
	if err != nil {
		return nil, err
	}
	job := s.manager.CreateJob("check", rn.ID(), domains, checkNames)

	go s.execute(job.ID, rn, types)
	return &job, nil
}

func (s *CheckJobService) execute(jobID string, rn *run.Run, types []healthcheck.CheckType) {
	logger := s.logger.With(zap.String("job_id", jobID), zap.String("run_id", rn.ID()))

	_ = rn.Start()
	started := rn.StartedAt()
	s.manager.UpdateJob(jobID, func(j *Job) {
		j.Status = JobRunning
		j.StartedAt = &started
	})
	logger.Info("job_started", zap.Int("domains", len(rn.Domains())))

	hc := &checker.HealthChecker{Service: s.service, Types: types}
	results := s.runner.RunChecks(s.base, rn.Domains(), hc, func(_ string, result checker.CheckResult, _ float64) error {
		s.manager.UpdateJob(jobID, func(j *Job) {
			j.Completed++
			if result.Status == checker.StatusError {
				j.Failed++
			}
		})
		return nil
	})
	for _, res := range results {
		_ = rn.AddResult(res)
	}

	status := JobDone
	var errMsg string
	if err := s.base.Err(); err != nil {
		_ = rn.Fail(err.Error())
		status, errMsg = JobError, err.Error()
	} else {
		_ = rn.Complete()
	}

	if err := s.runs.Save(context.WithoutCancel(s.base), rn); err != nil {
		logger.Error("job_save_failed", zap.Error(err))
		status, errMsg = JobError, "failed to save results"
	}

	finished := time.Now().UTC()
	s.manager.UpdateJob(jobID, func(j *Job) {
		j.Status = status
		j.Error = errMsg
		j.FinishedAt = &finished
	})
	logger.Info("job_finished", zap.String("status", status), zap.Int("failed", rn.Failures()))
}

func (s *CheckJobService) GetJob(_ context.Context, id string) (*Job, error) {
	job := s.manager.GetJob(id)
	if job == nil {
		return nil, errJobNotFound
	}
	return job, nil
}

func (s *CheckJobService) ListJobs(_ context.Context, limit int) ([]Job, error) {
	return s.manager.ListJobs(limit), nil
}

func (s *CheckJobService) Subscribe() (chan Job, func()) {
	return s.manager.Subscribe()
}

var errJobNotFound = errors.New("job not found")
