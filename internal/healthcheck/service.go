package healthcheck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/domaincheck/internal/domainname"
	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// Service runs registered checks against a domain.
type Service struct {
	registry *Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewService returns a service over registry.
func NewService(registry *Registry, logger *zap.Logger) *Service {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, logger: logger, now: time.Now}
}

// Registry returns the service's handler registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Verify runs the requested checks concurrently; an empty list runs every
// registered check. Handler failures are recorded on the report and
// returned together as a multierror; the report is returned either way.
func (s *Service) Verify(ctx context.Context, domain string, types []CheckType) (*DomainHealthCheck, error) {
	name, err := domainname.Normalize(domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrInvalidDomain, err)
	}

	if len(types) == 0 {
		types = s.registry.Types()
	}
	handlers := make([]Handler, 0, len(types))
	for _, t := range types {
		h, ok := s.registry.Handler(t)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCheckType, t)
		}
		handlers = append(handlers, h)
	}

	start := s.now()
	report := &DomainHealthCheck{
		Domain:    name,
		CheckedAt: start.UTC(),
		Checks:    append([]CheckType(nil), types...),
	}

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handlers {
		g.Go(func() error {
			checkStart := time.Now()
			if err := h.Run(gctx, name, report); err != nil {
				report.recordError(h.Type(), err)
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", h.Type(), err))
				mu.Unlock()
				s.logger.Warn("check_failed",
					zap.String("domain", name),
					zap.String("check", string(h.Type())),
					zap.Error(err))
				return nil
			}
			s.logger.Debug("check_complete",
				zap.String("domain", name),
				zap.String("check", string(h.Type())),
				zap.Duration("duration", time.Since(checkStart)))
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = s.now().Sub(start)
	s.logger.Info("health_check_complete",
		zap.String("domain", name),
		zap.Int("checks", len(handlers)),
		zap.Int("failed", len(report.Errors)),
		zap.Duration("duration", report.Duration))
	return report, errs.ErrorOrNil()
}
