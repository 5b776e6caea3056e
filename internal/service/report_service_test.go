package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/repository"
)

func TestEmptyTenantReportsFullCompliance(t *testing.T) {
	svc := NewReportService(repository.NewMemoryStatusRepo(), repository.NewMemoryConfigRepo())

	now := time.Now().UTC()
	report, err := svc.GenerateReport(context.Background(), "t1", now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Equal(t, 0, report.Overall.Total)
	require.Equal(t, float64(100), report.Overall.ComplianceRate)
	require.Equal(t, float64(100), report.FirstResponse.ComplianceRate)
	require.Equal(t, float64(100), report.Resolution.ComplianceRate)
	require.Empty(t, report.ByPriority)
}

func TestReportAggregatesByPriorityAndCategory(t *testing.T) {
	configs := repository.NewMemoryConfigRepo()
	statuses := repository.NewMemoryStatusRepo()
	ctx := context.Background()

	billing := "billing"
	highCfg := testConfig("t1", domain.PriorityHigh, &billing, 30, 240)
	require.NoError(t, configs.Create(ctx, highCfg))

	now := time.Now().UTC()
	responded := now.Add(-2 * time.Hour)
	spentOK := 20
	spentLate := 300

	// fully compliant, closed
	require.NoError(t, statuses.Create(ctx, &domain.SlaStatus{
		TenantID:               "t1",
		TicketID:               "tk-good",
		SlaConfigID:            highCfg.ID,
		FirstResponseDueAt:     now.Add(-3 * time.Hour),
		ResolutionDueAt:        now.Add(-1 * time.Hour),
		FirstResponseAt:        &responded,
		ResolvedAt:             &responded,
		FirstResponseStatus:    domain.LegStatusCompliant,
		ResolutionStatus:       domain.LegStatusCompliant,
		FirstResponseTimeSpent: &spentOK,
		ResolutionTimeSpent:    &spentOK,
	}))
	// resolution breached, closed
	require.NoError(t, statuses.Create(ctx, &domain.SlaStatus{
		TenantID:               "t1",
		TicketID:               "tk-late",
		SlaConfigID:            highCfg.ID,
		FirstResponseDueAt:     now.Add(-6 * time.Hour),
		ResolutionDueAt:        now.Add(-5 * time.Hour),
		FirstResponseAt:        &responded,
		ResolvedAt:             &responded,
		FirstResponseStatus:    domain.LegStatusCompliant,
		ResolutionStatus:       domain.LegStatusBreached,
		FirstResponseTimeSpent: &spentOK,
		ResolutionTimeSpent:    &spentLate,
	}))

	svc := NewReportService(statuses, configs)
	report, err := svc.GenerateReport(context.Background(), "t1", now.Add(-1*time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	require.Equal(t, 2, report.Overall.Total)
	require.Equal(t, 1, report.Overall.Compliant)
	require.Equal(t, 1, report.Overall.Breached)
	require.Equal(t, float64(50), report.Overall.ComplianceRate)

	require.Equal(t, 2, report.FirstResponse.Total)
	require.Equal(t, float64(100), report.FirstResponse.ComplianceRate)
	require.Equal(t, float64(50), report.Resolution.ComplianceRate)

	require.Contains(t, report.ByPriority, "high")
	require.Equal(t, 2, report.ByPriority["high"].Total)
	require.Contains(t, report.ByCategory, "billing")
	require.Equal(t, float64(50), report.ByCategory["billing"].ComplianceRate)
}

func TestReportExcludesRowsOutsideDateRange(t *testing.T) {
	configs := repository.NewMemoryConfigRepo()
	statuses := repository.NewMemoryStatusRepo()
	ctx := context.Background()

	cfg := testConfig("t1", domain.PriorityLow, nil, 240, 2880)
	require.NoError(t, configs.Create(ctx, cfg))
	require.NoError(t, statuses.Create(ctx, &domain.SlaStatus{
		TenantID:            "t1",
		TicketID:            "tk-1",
		SlaConfigID:         cfg.ID,
		FirstResponseDueAt:  time.Now().UTC().Add(4 * time.Hour),
		ResolutionDueAt:     time.Now().UTC().Add(48 * time.Hour),
		FirstResponseStatus: domain.LegStatusCompliant,
		ResolutionStatus:    domain.LegStatusCompliant,
	}))

	svc := NewReportService(statuses, configs)
	// window entirely in the past excludes the row just created
	past := time.Now().UTC().Add(-48 * time.Hour)
	report, err := svc.GenerateReport(context.Background(), "t1", past, past.Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 0, report.Overall.Total)
	require.Equal(t, float64(100), report.Overall.ComplianceRate)
}

func TestStatisticsAveragesCompletedLegs(t *testing.T) {
	configs := repository.NewMemoryConfigRepo()
	statuses := repository.NewMemoryStatusRepo()
	ctx := context.Background()

	cfg := testConfig("t1", domain.PriorityMedium, nil, 60, 480)
	require.NoError(t, configs.Create(ctx, cfg))

	now := time.Now().UTC()
	at := now.Add(-1 * time.Hour)
	spentA, spentB := 20, 40
	resolvedSpent := 100
	require.NoError(t, statuses.Create(ctx, &domain.SlaStatus{
		TenantID:               "t1",
		TicketID:               "tk-a",
		SlaConfigID:            cfg.ID,
		FirstResponseDueAt:     now.Add(time.Hour),
		ResolutionDueAt:        now.Add(8 * time.Hour),
		FirstResponseAt:        &at,
		ResolvedAt:             &at,
		FirstResponseStatus:    domain.LegStatusCompliant,
		ResolutionStatus:       domain.LegStatusCompliant,
		FirstResponseTimeSpent: &spentA,
		ResolutionTimeSpent:    &resolvedSpent,
	}))
	require.NoError(t, statuses.Create(ctx, &domain.SlaStatus{
		TenantID:               "t1",
		TicketID:               "tk-b",
		SlaConfigID:            cfg.ID,
		FirstResponseDueAt:     now.Add(time.Hour),
		ResolutionDueAt:        now.Add(8 * time.Hour),
		FirstResponseAt:        &at,
		FirstResponseStatus:    domain.LegStatusCompliant,
		ResolutionStatus:       domain.LegStatusCompliant,
		FirstResponseTimeSpent: &spentB,
	}))

	svc := NewReportService(statuses, configs)
	stats, err := svc.GetStatistics(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, 2, stats.Overall.Total)
	require.Equal(t, float64(30), stats.AvgResponseMinutes)
	require.Equal(t, float64(100), stats.AvgResolutionMinutes)
}
