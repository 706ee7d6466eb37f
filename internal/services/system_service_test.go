package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

type stubHealthRepository struct {
	report  domain.SystemHealthReport
	err     error
	collect func(ctx context.Context)
}

var _ repositories.HealthRepository = (*stubHealthRepository)(nil)

func (s *stubHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	if s.collect != nil {
		s.collect(ctx)
	}
	return s.report, s.err
}

func TestSystemServiceHealthReportStampsBuild(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(5 * time.Minute)
	repo := &stubHealthRepository{report: domain.SystemHealthReport{
		Checks: map[string]domain.SystemHealthCheck{"postgres": {Status: domain.HealthStatusOK}},
	}}

	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: repo,
		Clock:            func() time.Time { return now },
		Build:            BuildInfo{Version: "1.2.3", CommitSHA: "abc123", Environment: "prod", StartedAt: start},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected status ok, got %s", report.Status)
	}
	if report.Version != "1.2.3" || report.CommitSHA != "abc123" || report.Environment != "prod" {
		t.Fatalf("unexpected build metadata %+v", report)
	}
	if report.Uptime != 5*time.Minute {
		t.Fatalf("expected uptime 5m, got %s", report.Uptime)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected generatedAt %s, got %s", now, report.GeneratedAt)
	}
}

func TestSystemServiceClassifiesByCriticality(t *testing.T) {
	failing := domain.SystemHealthCheck{Status: domain.HealthStatusError, Error: "dial tcp: refused"}
	ok := domain.SystemHealthCheck{Status: domain.HealthStatusOK}

	cases := []struct {
		name     string
		critical []string
		checks   map[string]domain.SystemHealthCheck
		want     string
	}{
		{
			name:     "all healthy",
			critical: []string{"postgres"},
			checks:   map[string]domain.SystemHealthCheck{"postgres": ok, "redis": ok},
			want:     domain.HealthStatusOK,
		},
		{
			name:     "optional dependency down",
			critical: []string{"postgres"},
			checks:   map[string]domain.SystemHealthCheck{"postgres": ok, "kafka": failing},
			want:     domain.HealthStatusDegraded,
		},
		{
			name:     "storage down",
			critical: []string{"postgres"},
			checks:   map[string]domain.SystemHealthCheck{"postgres": failing, "kafka": failing},
			want:     domain.HealthStatusError,
		},
		{
			name:   "every check critical by default",
			checks: map[string]domain.SystemHealthCheck{"redis": failing},
			want:   domain.HealthStatusError,
		},
		{
			name:     "no checks",
			critical: []string{"postgres"},
			want:     domain.HealthStatusOK,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := NewSystemService(SystemServiceDeps{
				HealthRepository: &stubHealthRepository{report: domain.SystemHealthReport{
					Status: domain.HealthStatusOK,
					Checks: tc.checks,
				}},
				Critical: tc.critical,
			})
			if err != nil {
				t.Fatalf("NewSystemService: %v", err)
			}
			report, err := svc.HealthReport(context.Background())
			if err != nil {
				t.Fatalf("HealthReport: %v", err)
			}
			if report.Status != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, report.Status)
			}
			if report.Checks == nil {
				t.Fatal("expected non-nil checks map")
			}
		})
	}
}

func TestSystemServiceHealthReportErrors(t *testing.T) {
	expected := errors.New("collect failed")
	svc, err := NewSystemService(SystemServiceDeps{HealthRepository: &stubHealthRepository{err: expected}})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	if _, err := svc.HealthReport(context.Background()); !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestNewSystemServiceRequiresRepository(t *testing.T) {
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatalf("expected error when repository missing")
	}
}

func TestSystemServiceHealthReportAppliesTimeout(t *testing.T) {
	var deadline time.Time
	repo := &stubHealthRepository{collect: func(ctx context.Context) {
		deadline, _ = ctx.Deadline()
	}}

	svc, err := NewSystemService(SystemServiceDeps{HealthRepository: repo, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}
	if _, err := svc.HealthReport(context.Background()); err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	if deadline.IsZero() {
		t.Fatalf("expected collection to run under a deadline")
	}
}
