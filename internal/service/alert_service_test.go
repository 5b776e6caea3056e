package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/repository"
)

func seedStatus(t *testing.T, statuses *repository.MemoryStatusRepo, st *domain.SlaStatus) {
	t.Helper()
	require.NoError(t, statuses.Create(context.Background(), st))
}

func TestGenerateAlertsNewestFirst(t *testing.T) {
	configs := repository.NewMemoryConfigRepo()
	statuses := repository.NewMemoryStatusRepo()

	cfg := testConfig("t1", domain.PriorityHigh, nil, 60, 240)
	require.NoError(t, configs.Create(context.Background(), cfg))

	now := time.Now().UTC()

	// first-response leg breached an hour ago
	seedStatus(t, statuses, &domain.SlaStatus{
		TenantID:            "t1",
		TicketID:            "tk-breached",
		SlaConfigID:         cfg.ID,
		FirstResponseDueAt:  now.Add(-1 * time.Hour),
		ResolutionDueAt:     now.Add(3 * time.Hour),
		FirstResponseStatus: domain.LegStatusCompliant,
		ResolutionStatus:    domain.LegStatusCompliant,
	})
	// first-response leg at risk: 10 of 60 minutes left
	seedStatus(t, statuses, &domain.SlaStatus{
		TenantID:            "t1",
		TicketID:            "tk-at-risk",
		SlaConfigID:         cfg.ID,
		FirstResponseDueAt:  now.Add(10 * time.Minute),
		ResolutionDueAt:     now.Add(4 * time.Hour),
		FirstResponseStatus: domain.LegStatusCompliant,
		ResolutionStatus:    domain.LegStatusCompliant,
	})
	// comfortably compliant ticket produces no alert
	seedStatus(t, statuses, &domain.SlaStatus{
		TenantID:            "t1",
		TicketID:            "tk-fine",
		SlaConfigID:         cfg.ID,
		FirstResponseDueAt:  now.Add(55 * time.Minute),
		ResolutionDueAt:     now.Add(4 * time.Hour),
		FirstResponseStatus: domain.LegStatusCompliant,
		ResolutionStatus:    domain.LegStatusCompliant,
	})

	svc := NewAlertService(statuses, configs)
	alerts, err := svc.generateAlertsAt(context.Background(), "t1", now)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	// the warning carries the evaluation time, the breach its due date, so
	// the warning sorts first
	require.Equal(t, AlertFirstResponseWarning, alerts[0].Type)
	require.Equal(t, "tk-at-risk", alerts[0].TicketID)
	require.Equal(t, "warning", alerts[0].Severity)
	require.Equal(t, 10, alerts[0].TimeRemaining)
	require.InDelta(t, 83.33, alerts[0].PercentageConsumed, 0.01)
	require.Equal(t, domain.PriorityHigh, alerts[0].Priority)

	require.Equal(t, AlertFirstResponseBreach, alerts[1].Type)
	require.Equal(t, "tk-breached", alerts[1].TicketID)
	require.Equal(t, "critical", alerts[1].Severity)
	require.Equal(t, float64(100), alerts[1].PercentageConsumed)
	require.Equal(t, 0, alerts[1].TimeRemaining)
	// breach escalates priority regardless of the config
	require.Equal(t, domain.PriorityCritical, alerts[1].Priority)
}

func TestGenerateAlertsIsReadOnlyAndRepeatable(t *testing.T) {
	configs := repository.NewMemoryConfigRepo()
	statuses := repository.NewMemoryStatusRepo()

	cfg := testConfig("t1", domain.PriorityMedium, nil, 60, 240)
	require.NoError(t, configs.Create(context.Background(), cfg))

	now := time.Now().UTC()
	seedStatus(t, statuses, &domain.SlaStatus{
		TenantID:            "t1",
		TicketID:            "tk-1",
		SlaConfigID:         cfg.ID,
		FirstResponseDueAt:  now.Add(-5 * time.Minute),
		ResolutionDueAt:     now.Add(2 * time.Hour),
		FirstResponseStatus: domain.LegStatusCompliant,
		ResolutionStatus:    domain.LegStatusCompliant,
	})

	svc := NewAlertService(statuses, configs)
	first, err := svc.generateAlertsAt(context.Background(), "t1", now)
	require.NoError(t, err)
	second, err := svc.generateAlertsAt(context.Background(), "t1", now)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// nothing was persisted on the tracking row
	st, err := statuses.GetByTicketID(context.Background(), "t1", "tk-1")
	require.NoError(t, err)
	require.Nil(t, st.FirstResponseBreachedAt)
	require.Equal(t, domain.LegStatusCompliant, st.FirstResponseStatus)
}

func TestClosedLegsProduceNoAlerts(t *testing.T) {
	configs := repository.NewMemoryConfigRepo()
	statuses := repository.NewMemoryStatusRepo()

	cfg := testConfig("t1", domain.PriorityMedium, nil, 60, 240)
	require.NoError(t, configs.Create(context.Background(), cfg))

	now := time.Now().UTC()
	responded := now.Add(-30 * time.Minute)
	resolved := now.Add(-5 * time.Minute)
	spent := 30
	seedStatus(t, statuses, &domain.SlaStatus{
		TenantID:               "t1",
		TicketID:               "tk-done",
		SlaConfigID:            cfg.ID,
		FirstResponseDueAt:     now.Add(-2 * time.Hour),
		ResolutionDueAt:        now.Add(-1 * time.Hour),
		FirstResponseAt:        &responded,
		ResolvedAt:             &resolved,
		FirstResponseStatus:    domain.LegStatusBreached,
		ResolutionStatus:       domain.LegStatusBreached,
		FirstResponseTimeSpent: &spent,
		ResolutionTimeSpent:    &spent,
	})

	svc := NewAlertService(statuses, configs)
	alerts, err := svc.generateAlertsAt(context.Background(), "t1", now)
	require.NoError(t, err)
	require.Empty(t, alerts)
}
