package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

// BuildInfo identifies the running binary on /healthz and /readyz.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
	// Timeout bounds a single health collection. Zero leaves the caller's deadline untouched.
	Timeout time.Duration
	// Critical names the checks that make the service unready when they fail. Any other failing
	// check only degrades the report. Empty treats every check as critical.
	Critical []string
}

type systemService struct {
	health   repositories.HealthRepository
	now      func() time.Time
	build    BuildInfo
	timeout  time.Duration
	critical map[string]struct{}
}

// NewSystemService builds the readiness reporter.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}
	var critical map[string]struct{}
	if len(deps.Critical) > 0 {
		critical = make(map[string]struct{}, len(deps.Critical))
		for _, name := range deps.Critical {
			if name = strings.TrimSpace(name); name != "" {
				critical[name] = struct{}{}
			}
		}
	}
	return &systemService{
		health:   deps.HealthRepository,
		now:      func() time.Time { return clock().UTC() },
		build:    build,
		timeout:  deps.Timeout,
		critical: critical,
	}, nil
}

// HealthReport probes dependencies and classifies the result. The status is recomputed from the
// individual checks so the critical set decides between degraded and error.
func (s *systemService) HealthReport(ctx context.Context) (domain.SystemHealthReport, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.health.Collect(ctx)
	if err != nil {
		return domain.SystemHealthReport{}, err
	}

	now := s.now()
	if report.Checks == nil {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}
	report.Status = s.classify(report.Checks)
	report.Version = s.build.Version
	report.CommitSHA = s.build.CommitSHA
	report.Environment = s.build.Environment
	report.Uptime = now.Sub(s.build.StartedAt)
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	return report, nil
}

func (s *systemService) classify(checks map[string]domain.SystemHealthCheck) string {
	status := domain.HealthStatusOK
	for name, check := range checks {
		if check.Status == domain.HealthStatusOK || (check.Status == "" && check.Error == "") {
			continue
		}
		if s.isCritical(name) {
			return domain.HealthStatusError
		}
		status = domain.HealthStatusDegraded
	}
	return status
}

func (s *systemService) isCritical(name string) bool {
	if s.critical == nil {
		return true
	}
	_, ok := s.critical[name]
	return ok
}
