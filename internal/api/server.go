package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/domaincheck/internal/api/middleware"
	"github.com/khanhnv2901/domaincheck/internal/domain/run"
	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

const (
	maxBodyBytes     = 1 << 20
	defaultListLimit = 25
)

// CheckRequest is the body of POST /checks.
type CheckRequest struct {
	Domain  string   `json:"domain"`
	Checks  []string `json:"checks"`
	Unicode bool     `json:"unicode"`
}

// RunSummary is one entry of GET /results.
type RunSummary struct {
	ID          string     `json:"id"`
	Status      run.Status `json:"status"`
	Domains     int        `json:"domains"`
	Failures    int        `json:"failures"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

type CheckService interface {
	Verify(ctx context.Context, domain string, types []healthcheck.CheckType) (*healthcheck.DomainHealthCheck, error)
}

type RunStore interface {
	FindByID(ctx context.Context, id string) (*run.Run, error)
	FindAll(ctx context.Context) ([]*run.Run, error)
}

type HealthService interface {
	Check(ctx context.Context) error
	Ready(ctx context.Context) error
}

type JobService interface {
	StartJob(ctx context.Context, req JobRequest) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]Job, error)
	Subscribe() (chan Job, func())
}

type Config struct {
	Checks      CheckService
	Runs        RunStore
	Health      HealthService
	Jobs        JobService
	AuthToken   string
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	RateLimit   int      // Requests per second per IP (0 = disabled)
	RateBurst   int      // Burst size for rate limiter
}

type Server struct {
	cfg     Config
	mux     *http.ServeMux
	handler http.Handler
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	srv := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	srv.routes()

	// RequestID -> AccessLog -> RateLimit -> CORS -> Auth -> Handler
	tooMany := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.requestLogger(r).Warn("rate_limit_exceeded", zap.String("client_ip", middleware.ClientIP(r)))
		srv.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
	})
	var h http.Handler = srv.mux
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.RateLimit(cfg.RateLimit, cfg.RateBurst, tooMany)(h)
	h = middleware.AccessLog(cfg.Logger)(h)
	srv.handler = middleware.RequestID(h)
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type route struct {
	method  string
	path    string
	handler http.HandlerFunc
}

func (s *Server) routes() {
	table := []route{
		{http.MethodGet, "/health", s.handleHealth},
		{http.MethodGet, "/ready", s.handleReady},
		{http.MethodPost, "/checks", s.handleChecks},
		{http.MethodGet, "/results", s.handleResultsList},
		{http.MethodGet, "/results/{id}", s.handleResult},
		{http.MethodGet, "/jobs", s.requireJobs(s.handleListJobs)},
		{http.MethodPost, "/jobs", s.requireJobs(s.handleStartJob)},
		{http.MethodGet, "/jobs/{id}", s.requireJobs(s.handleJob)},
		{http.MethodGet, "/jobs-stream", s.requireJobs(s.handleJobStream)},
	}

	for _, prefix := range []string{"/api/v1", "/api"} {
		known := make(map[string]bool)
		for _, rt := range table {
			s.mux.Handle(rt.method+" "+prefix+rt.path, s.withAuth(rt.handler))
			if !known[rt.path] {
				known[rt.path] = true
				// any other method on a known path
				s.mux.HandleFunc(prefix+rt.path, s.methodNotAllowed)
			}
		}
	}
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Check(r.Context()); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Ready(r.Context()); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleChecks runs one synchronous health check. A report with handler
// errors is still a 200; the errors travel in the report.
func (s *Server) handleChecks(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Checks == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("check service not available"))
		return
	}
	var req CheckRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	types, err := healthcheck.ParseCheckTypes(req.Checks)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	report, err := s.cfg.Checks.Verify(r.Context(), req.Domain, types)
	if report == nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if err != nil {
		s.requestLogger(r).Info("check_partial_failure", zap.String("domain", report.Domain), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := healthcheck.Encode(w, report, healthcheck.EncodeOptions{Unicode: req.Unicode}); err != nil {
		s.requestLogger(r).Warn("check_response_write_failed", zap.Error(err))
	}
}

func (s *Server) handleResultsList(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("results not available"))
		return
	}
	runs, err := s.cfg.Runs.FindAll(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	runs = runs[:min(len(runs), queryLimit(r, len(runs)))]

	summaries := make([]RunSummary, 0, len(runs))
	for _, rn := range runs {
		summaries = append(summaries, RunSummary{
			ID:          rn.ID(),
			Status:      rn.Status(),
			Domains:     len(rn.Domains()),
			Failures:    rn.Failures(),
			StartedAt:   rn.StartedAt(),
			CompletedAt: rn.CompletedAt(),
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("results not available"))
		return
	}
	rn, err := s.cfg.Runs.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		// the wrapped error can carry a filesystem path
		if errors.Is(err, sharedErrors.ErrRunNotFound) {
			err = sharedErrors.ErrRunNotFound
		}
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rn.Snapshot())
}

func (s *Server) requireJobs(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Jobs == nil {
			s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
			return
		}
		next(w, r)
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.cfg.Jobs.ListJobs(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	job, err := s.cfg.Jobs.StartJob(r.Context(), req)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.cfg.Jobs.GetJob(r.Context(), r.PathValue("id"))
	if err != nil || job == nil {
		s.writeError(w, r, http.StatusNotFound, errJobNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleJobStream sends every job change as a server-sent event until the
// client goes away or the job manager shuts down.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	updates, unsubscribe := s.cfg.Jobs.Subscribe()
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var buf bytes.Buffer
	for {
		select {
		case <-r.Context().Done():
			return
		case job, open := <-updates:
			if !open {
				return
			}
			buf.Reset()
			buf.WriteString("event: job\ndata: ")
			if err := json.NewEncoder(&buf).Encode(job); err != nil {
				s.requestLogger(r).Error("job_stream_encode_failed", zap.Error(err))
				continue
			}
			// Encode ends the payload with one newline; events need two.
			buf.WriteByte('\n')
			if !s.writeStreamChunk(w, buf.Bytes()) {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// queryLimit reads ?limit=, falling back to def when absent or invalid.
func queryLimit(r *http.Request, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	return def
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sharedErrors.ErrRunNotFound), errors.Is(err, errJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, sharedErrors.ErrEmptyTarget),
		errors.Is(err, sharedErrors.ErrInvalidDomain),
		errors.Is(err, sharedErrors.ErrUnknownCheckType),
		errors.Is(err, sharedErrors.ErrInvalidData):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// 5xx details stay in the server log
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		s.cfg.Logger.Debug("job_stream_write_failed", zap.Error(err))
		return false
	}
	return true
}
