package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/service"
)

func newMonitorFixture() (*BreachMonitor, *repository.MemoryStatusRepo, *repository.MemoryLogRepo, events.Dispatcher) {
	statuses := repository.NewMemoryStatusRepo()
	logs := repository.NewMemoryLogRepo()
	dispatcher := events.NewInMemoryDispatcher()
	monitor := NewBreachMonitor(statuses, service.NewAuditLogger(logs, zap.NewNop()), dispatcher,
		observability.NewMetrics(), zap.NewNop(), time.Minute)
	return monitor, statuses, logs, dispatcher
}

func TestSweepMarksOverdueLegsOnce(t *testing.T) {
	monitor, statuses, logs, dispatcher := newMonitorFixture()
	ctx := context.Background()
	now := time.Now().UTC()

	var breachEvents []events.Event
	dispatcher.Subscribe(events.EventSlaFirstResponseBreach, func(_ context.Context, e events.Event) error {
		breachEvents = append(breachEvents, e)
		return nil
	})
	dispatcher.Subscribe(events.EventSlaResolutionBreach, func(_ context.Context, e events.Event) error {
		breachEvents = append(breachEvents, e)
		return nil
	})

	// both legs overdue
	require.NoError(t, statuses.Create(ctx, &domain.SlaStatus{
		TenantID:            "t1",
		TicketID:            "tk-1",
		SlaConfigID:         "cfg-1",
		FirstResponseDueAt:  now.Add(-2 * time.Hour),
		ResolutionDueAt:     now.Add(-1 * time.Hour),
		FirstResponseStatus: domain.LegStatusCompliant,
		ResolutionStatus:    domain.LegStatusCompliant,
	}))
	// not yet due
	require.NoError(t, statuses.Create(ctx, &domain.SlaStatus{
		TenantID:            "t1",
		TicketID:            "tk-2",
		SlaConfigID:         "cfg-1",
		FirstResponseDueAt:  now.Add(time.Hour),
		ResolutionDueAt:     now.Add(4 * time.Hour),
		FirstResponseStatus: domain.LegStatusCompliant,
		ResolutionStatus:    domain.LegStatusCompliant,
	}))

	marked, err := monitor.Sweep(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 2, marked)
	require.Len(t, breachEvents, 2)
	require.Len(t, logs.Logs, 2)
	for _, entry := range logs.Logs {
		require.Equal(t, domain.LogActionViolation, entry.Action)
	}

	overdue, err := statuses.GetByTicketID(ctx, "t1", "tk-1")
	require.NoError(t, err)
	require.Equal(t, domain.LegStatusBreached, overdue.FirstResponseStatus)
	require.Equal(t, domain.LegStatusBreached, overdue.ResolutionStatus)
	require.NotNil(t, overdue.FirstResponseBreachedAt)
	require.NotNil(t, overdue.ResolutionBreachedAt)

	untouched, err := statuses.GetByTicketID(ctx, "t1", "tk-2")
	require.NoError(t, err)
	require.Nil(t, untouched.FirstResponseBreachedAt)

	// a second sweep finds nothing left to stamp
	marked, err = monitor.Sweep(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 0, marked)
	require.Len(t, logs.Logs, 2)
}

func TestSweepSkipsRespondedLegs(t *testing.T) {
	monitor, statuses, logs, _ := newMonitorFixture()
	ctx := context.Background()
	now := time.Now().UTC()
	responded := now.Add(-30 * time.Minute)

	// first response already recorded, only resolution still overdue
	require.NoError(t, statuses.Create(ctx, &domain.SlaStatus{
		TenantID:            "t1",
		TicketID:            "tk-1",
		SlaConfigID:         "cfg-1",
		FirstResponseDueAt:  now.Add(-2 * time.Hour),
		ResolutionDueAt:     now.Add(-1 * time.Hour),
		FirstResponseAt:     &responded,
		FirstResponseStatus: domain.LegStatusCompliant,
		ResolutionStatus:    domain.LegStatusCompliant,
	}))

	marked, err := monitor.Sweep(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, marked)
	require.Len(t, logs.Logs, 1)
	require.Equal(t, domain.EventResolutionBreach, logs.Logs[0].EventType)

	st, err := statuses.GetByTicketID(ctx, "t1", "tk-1")
	require.NoError(t, err)
	require.Nil(t, st.FirstResponseBreachedAt)
	require.NotNil(t, st.ResolutionBreachedAt)
}
