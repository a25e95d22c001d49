package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/espython/website-builder/internal/domain"
)

type stubHealthRepo struct {
	report domain.SystemHealthReport
	err    error
}

func (s stubHealthRepo) Collect(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func TestSystemServiceHealthReportFillsBuildInfo(t *testing.T) {
	started := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	now := started.Add(time.Hour)
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: stubHealthRepo{report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"state":  {Status: domain.HealthStatusOK},
				"events": {Status: domain.HealthStatusDegraded},
			},
		}},
		Clock: func() time.Time { return now },
		Build: BuildInfo{Version: "1.2.3", CommitSHA: "abc", Environment: "test", StartedAt: started},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded status, got %s", report.Status)
	}
	if report.Version != "1.2.3" || report.CommitSHA != "abc" || report.Environment != "test" {
		t.Fatalf("expected build info, got %#v", report)
	}
	if report.Uptime != time.Hour {
		t.Fatalf("expected uptime 1h, got %s", report.Uptime)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected generated at %s, got %s", now, report.GeneratedAt)
	}
}

func TestSystemServicePropagatesCollectError(t *testing.T) {
	boom := errors.New("boom")
	svc, _ := NewSystemService(SystemServiceDeps{HealthRepository: stubHealthRepo{err: boom}})
	if _, err := svc.HealthReport(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected collect error, got %v", err)
	}
}
