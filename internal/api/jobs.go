package api

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job statuses.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobError   = "error"
)

const defaultJobRetention = 1000

// Job tracks one asynchronous batch of domain health checks.
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Domains    []string   `json:"domains,omitempty"`
	Checks     []string   `json:"checks,omitempty"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Failed     int        `json:"failed"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ResultID   string     `json:"result_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Finished reports whether the job reached a terminal status.
func (j Job) Finished() bool {
	return j.Status == JobDone || j.Status == JobError
}

func (j Job) clone() Job {
	cp := j
	cp.Domains = slices.Clone(j.Domains)
	cp.Checks = slices.Clone(j.Checks)
	return cp
}

// JobRequest is the body of POST /jobs.
type JobRequest struct {
	Domains []string `json:"domains"`
	Checks  []string `json:"checks"`
}

// JobManager keeps jobs in memory in creation order and fans out every
// change to subscribers. Finished jobs beyond the retention limit are
// dropped oldest first when a new job arrives.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	order       []string // job IDs, oldest first
	subscribers map[chan Job]struct{}
	retain      int
	now         func() time.Time
	closed      bool
}

func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		retain:      defaultJobRetention,
		now:         time.Now,
	}
}

// SetMaxJobs changes how many jobs are retained. Values below one are
// ignored.
func (m *JobManager) SetMaxJobs(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.retain = n
	}
}

// Close ends every subscription so open event streams return. The
// manager keeps serving reads afterwards.
func (m *JobManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for ch := range m.subscribers {
		delete(m.subscribers, ch)
		close(ch)
	}
}

// CreateJob registers a pending job for the run resultID.
func (m *JobManager) CreateJob(jobType, resultID string, domains, checks []string) Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        "job_" + uuid.NewString(),
		Type:      jobType,
		Status:    JobPending,
		Domains:   slices.Clone(domains),
		Checks:    slices.Clone(checks),
		Total:     len(domains),
		CreatedAt: m.now().UTC(),
		ResultID:  resultID,
	}
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.evictLocked()

	cp := job.clone()
	m.broadcastLocked(cp)
	return cp
}

// UpdateJob applies update under the manager lock and returns a copy of
// the result, or nil if the job is unknown.
func (m *JobManager) UpdateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	cp := job.clone()
	m.broadcastLocked(cp)
	return &cp
}

func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	cp := job.clone()
	return &cp
}

// ListJobs returns up to limit jobs, most recently created first. A
// non-positive limit returns them all.
func (m *JobManager) ListJobs(limit int) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.order) {
		limit = len(m.order)
	}
	out := make([]Job, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.jobs[m.order[i]].clone())
	}
	return out
}

// Subscribe returns a channel receiving a copy of every job change and a
// func that ends the subscription. Slow subscribers miss updates.
func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 16)
	m.mu.Lock()
	if m.closed {
		close(ch)
	} else {
		m.subscribers[ch] = struct{}{}
	}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
	}
}

func (m *JobManager) broadcastLocked(job Job) {
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
		}
	}
}

// evictLocked drops the oldest finished jobs while more than retain are
// held. Pending and running jobs are never dropped.
func (m *JobManager) evictLocked() {
	excess := len(m.order) - m.retain
	if excess <= 0 {
		return
	}
	m.order = slices.DeleteFunc(m.order, func(id string) bool {
		if excess == 0 || !m.jobs[id].Finished() {
			return false
		}
		delete(m.jobs, id)
		excess--
		return true
	})
}
