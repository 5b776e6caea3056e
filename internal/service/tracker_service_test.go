package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/repository"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

type trackerFixture struct {
	tracker  *TrackerService
	configs  *repository.MemoryConfigRepo
	statuses *repository.MemoryStatusRepo
	logs     *repository.MemoryLogRepo
	cfg      *domain.SlaConfig
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()
	configs := repository.NewMemoryConfigRepo()
	statuses := repository.NewMemoryStatusRepo()
	logs := repository.NewMemoryLogRepo()

	cfg := testConfig("t1", domain.PriorityHigh, nil, 30, 240)
	require.NoError(t, configs.Create(context.Background(), cfg))

	configSvc := NewConfigService(ConfigDependencies{ConfigRepo: configs})
	audit := NewAuditLogger(logs, testLogger())
	tracker := NewTrackerService(TrackerDependencies{
		StatusRepo: statuses,
		ConfigRepo: configs,
		Engine:     NewEngine(configSvc),
		Audit:      audit,
		Dispatcher: events.NewInMemoryDispatcher(),
		Metrics:    observability.NewMetrics(),
		Logger:     testLogger(),
	})
	return &trackerFixture{tracker: tracker, configs: configs, statuses: statuses, logs: logs, cfg: cfg}
}

func (f *trackerFixture) startTracking(t *testing.T, ticketID string, createdAt time.Time) *domain.SlaStatus {
	t.Helper()
	status, err := f.tracker.OnTicketCreated(context.Background(), domain.TicketRef{
		ID:        ticketID,
		TenantID:  "t1",
		Priority:  domain.PriorityHigh,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	require.NotNil(t, status)
	return status
}

func (f *trackerFixture) violationLogs() []domain.SlaLog {
	var result []domain.SlaLog
	for _, entry := range f.logs.Logs {
		if entry.Action == domain.LogActionViolation {
			result = append(result, entry)
		}
	}
	return result
}

func TestOnTicketCreatedStartsTracking(t *testing.T) {
	f := newTrackerFixture(t)
	createdAt := time.Now().UTC().Add(-5 * time.Minute)

	status := f.startTracking(t, "tk-1", createdAt)
	require.Equal(t, f.cfg.ID, status.SlaConfigID)
	require.Equal(t, createdAt.Add(30*time.Minute), status.FirstResponseDueAt)
	require.Equal(t, createdAt.Add(240*time.Minute), status.ResolutionDueAt)
	require.Nil(t, status.FirstResponseAt)
	require.Nil(t, status.ResolvedAt)

	require.Len(t, f.logs.Logs, 1)
	require.Equal(t, domain.EventTrackingStarted, f.logs.Logs[0].EventType)
}

func TestOnTicketCreatedFailsOpenWithoutConfig(t *testing.T) {
	f := newTrackerFixture(t)

	// no config exists for low priority
	status, err := f.tracker.OnTicketCreated(context.Background(), domain.TicketRef{
		ID:        "tk-none",
		TenantID:  "t1",
		Priority:  domain.PriorityLow,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Nil(t, status)
	require.Empty(t, f.statuses.Statuses)
}

func TestOnFirstResponseIsWriteOnce(t *testing.T) {
	f := newTrackerFixture(t)
	createdAt := time.Now().UTC().Add(-10 * time.Minute)
	f.startTracking(t, "tk-1", createdAt)

	responseAt := createdAt.Add(12 * time.Minute)
	status, err := f.tracker.OnFirstResponse(context.Background(), "t1", "tk-1", responseAt)
	require.NoError(t, err)
	require.NotNil(t, status.FirstResponseAt)
	require.True(t, status.FirstResponseAt.Equal(responseAt))
	require.Equal(t, domain.LegStatusCompliant, status.FirstResponseStatus)
	require.NotNil(t, status.FirstResponseTimeSpent)
	require.Equal(t, 12, *status.FirstResponseTimeSpent)

	// a second delivery with a different timestamp changes nothing
	again, err := f.tracker.OnFirstResponse(context.Background(), "t1", "tk-1", responseAt.Add(2*time.Hour))
	require.NoError(t, err)
	require.True(t, again.FirstResponseAt.Equal(responseAt))
	require.Equal(t, 12, *again.FirstResponseTimeSpent)
	require.Empty(t, f.violationLogs())
}

func TestLateFirstResponseRecordsSingleViolation(t *testing.T) {
	f := newTrackerFixture(t)
	createdAt := time.Now().UTC().Add(-2 * time.Hour)
	f.startTracking(t, "tk-1", createdAt)

	responseAt := createdAt.Add(45 * time.Minute) // window is 30
	status, err := f.tracker.OnFirstResponse(context.Background(), "t1", "tk-1", responseAt)
	require.NoError(t, err)
	require.Equal(t, domain.LegStatusBreached, status.FirstResponseStatus)
	require.NotNil(t, status.FirstResponseBreachedAt)

	_, err = f.tracker.OnFirstResponse(context.Background(), "t1", "tk-1", responseAt)
	require.NoError(t, err)

	violations := f.violationLogs()
	require.Len(t, violations, 1)
	require.Equal(t, domain.EventFirstResponseBreach, violations[0].EventType)
	require.NotNil(t, violations[0].ResponseTime)
	require.Equal(t, 45, *violations[0].ResponseTime)
}

func TestCompliantResolutionAppendsResolutionLog(t *testing.T) {
	f := newTrackerFixture(t)
	createdAt := time.Now().UTC().Add(-1 * time.Hour)
	f.startTracking(t, "tk-1", createdAt)

	resolvedAt := createdAt.Add(90 * time.Minute) // window is 240
	status, err := f.tracker.OnTicketResolved(context.Background(), "t1", "tk-1", resolvedAt)
	require.NoError(t, err)
	require.Equal(t, domain.LegStatusCompliant, status.ResolutionStatus)
	require.Nil(t, status.ResolutionBreachedAt)

	var resolutions []domain.SlaLog
	for _, entry := range f.logs.Logs {
		if entry.Action == domain.LogActionResolution {
			resolutions = append(resolutions, entry)
		}
	}
	require.Len(t, resolutions, 1)
	require.Equal(t, domain.EventResolutionCompliant, resolutions[0].EventType)
}

func TestGetStatusDerivesAtRiskOnRead(t *testing.T) {
	f := newTrackerFixture(t)
	// 10 of 30 first-response minutes left: 10/30 <= 0.25 is false, use 7
	createdAt := time.Now().UTC().Add(-23 * time.Minute)
	f.startTracking(t, "tk-1", createdAt)

	status, cfg, err := f.tracker.GetStatus(context.Background(), "t1", "tk-1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, domain.LegStatusAtRisk, status.FirstResponseStatus)
	require.InDelta(t, 7, status.FirstResponseTimeRemaining, 1)
	require.Equal(t, domain.LegStatusCompliant, status.ResolutionStatus)
}

func TestGetStatusUnknownTicket(t *testing.T) {
	f := newTrackerFixture(t)
	_, _, err := f.tracker.GetStatus(context.Background(), "t1", "missing")
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestRecalculateAllPreservesWriteOnceFields(t *testing.T) {
	f := newTrackerFixture(t)
	createdAt := time.Now().UTC().Add(-10 * time.Minute)
	f.startTracking(t, "tk-1", createdAt)

	responseAt := createdAt.Add(5 * time.Minute)
	status, err := f.tracker.OnFirstResponse(context.Background(), "t1", "tk-1", responseAt)
	require.NoError(t, err)
	frDueBefore := status.FirstResponseDueAt

	// widen the resolution window on the frozen config
	f.cfg.ResolutionMinutes = 480
	require.NoError(t, f.configs.Update(context.Background(), f.cfg))

	updated, err := f.tracker.RecalculateAll(context.Background(), testTenantContext("t1", domain.RoleTenantAdmin))
	require.NoError(t, err)
	require.Equal(t, 1, updated)

	after, _, err := f.tracker.GetStatus(context.Background(), "t1", "tk-1")
	require.NoError(t, err)
	// closed leg untouched
	require.True(t, after.FirstResponseAt.Equal(responseAt))
	require.Equal(t, frDueBefore, after.FirstResponseDueAt)
	// open leg recomputed from the stored baseline
	baseline := after.CreatedAt
	require.Equal(t, baseline.Add(480*time.Minute), after.ResolutionDueAt)
}
