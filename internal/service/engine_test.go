package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-service/internal/config"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/repository"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

func testConfig(tenantID string, priority domain.Priority, categoryID *string, frMin, resMin int) *domain.SlaConfig {
	return &domain.SlaConfig{
		TenantID:             tenantID,
		CategoryID:           categoryID,
		Priority:             priority,
		FirstResponseMinutes: frMin,
		ResolutionMinutes:    resMin,
		BusinessHoursStart:   "09:00",
		BusinessHoursEnd:     "18:00",
		BusinessDays:         []int{1, 2, 3, 4, 5},
		Timezone:             "UTC",
		IsActive:             true,
	}
}

func newTestConfigService(t *testing.T) (*ConfigService, *repository.MemoryConfigRepo, *repository.MemoryLogRepo) {
	t.Helper()
	configs := repository.NewMemoryConfigRepo()
	logs := repository.NewMemoryLogRepo()
	svc := NewConfigService(ConfigDependencies{
		ConfigRepo: configs,
		Audit:      NewAuditLogger(logs, testLogger()),
		Defaults: config.SlaConfig{
			DefaultBusinessHoursStart: "09:00",
			DefaultBusinessHoursEnd:   "18:00",
			DefaultTimezone:           "UTC",
		},
	})
	return svc, configs, logs
}

func TestDeriveLegThresholds(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	// 15 of 60 minutes left sits exactly on the threshold
	status, remaining := DeriveLeg(now.Add(15*time.Minute), 60, now)
	require.Equal(t, domain.LegStatusAtRisk, status)
	require.Equal(t, 15, remaining)

	// one minute above the threshold is still compliant
	status, remaining = DeriveLeg(now.Add(16*time.Minute), 60, now)
	require.Equal(t, domain.LegStatusCompliant, status)
	require.Equal(t, 16, remaining)

	// due now means breached with zero remaining
	status, remaining = DeriveLeg(now, 60, now)
	require.Equal(t, domain.LegStatusBreached, status)
	require.Equal(t, 0, remaining)

	// past due clamps remaining to zero
	status, remaining = DeriveLeg(now.Add(-45*time.Minute), 60, now)
	require.Equal(t, domain.LegStatusBreached, status)
	require.Equal(t, 0, remaining)
}

func TestCalculateFromConfigIsDeterministic(t *testing.T) {
	cfg := testConfig("t1", domain.PriorityHigh, nil, 30, 240)
	cfg.ID = "cfg-1"
	createdAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	now := createdAt.Add(5 * time.Minute)

	engine := NewEngine(nil)
	first := engine.CalculateFromConfig(cfg, createdAt, now)
	second := engine.CalculateFromConfig(cfg, createdAt, now)

	require.Equal(t, first, second)
	require.Equal(t, createdAt.Add(30*time.Minute), first.FirstResponseDueAt)
	require.Equal(t, createdAt.Add(240*time.Minute), first.ResolutionDueAt)
	require.Equal(t, "cfg-1", first.SlaConfigID)
	require.Equal(t, domain.LegStatusCompliant, first.FirstResponseStatus)
	require.Equal(t, 25, first.FirstResponseTimeRemaining)
}

func TestCalculateResolvesCategoryThenFallback(t *testing.T) {
	svc, _, _ := newTestConfigService(t)
	ctx := context.Background()
	tc := testTenantContext("t1", domain.RoleTenantAdmin)

	billing := "billing"
	_, err := svc.Create(ctx, tc, ConfigCreateInput{
		CategoryID:           &billing,
		Priority:             domain.PriorityHigh,
		FirstResponseMinutes: 15,
		ResolutionMinutes:    60,
	})
	require.NoError(t, err)
	fallback, err := svc.Create(ctx, tc, ConfigCreateInput{
		Priority:             domain.PriorityHigh,
		FirstResponseMinutes: 60,
		ResolutionMinutes:    480,
	})
	require.NoError(t, err)

	engine := NewEngine(svc)
	createdAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	// category-specific config wins
	result, err := engine.Calculate(ctx, "t1", CalculationInput{
		TicketID:   "tk-1",
		Priority:   domain.PriorityHigh,
		CategoryID: &billing,
		CreatedAt:  createdAt,
		Now:        createdAt,
	})
	require.NoError(t, err)
	require.Equal(t, createdAt.Add(15*time.Minute), result.FirstResponseDueAt)

	// unknown category falls back to the tenant-wide config
	other := "shipping"
	result, err = engine.Calculate(ctx, "t1", CalculationInput{
		TicketID:   "tk-2",
		Priority:   domain.PriorityHigh,
		CategoryID: &other,
		CreatedAt:  createdAt,
		Now:        createdAt,
	})
	require.NoError(t, err)
	require.Equal(t, fallback.ID, result.SlaConfigID)

	// no config at all for the priority
	_, err = engine.Calculate(ctx, "t1", CalculationInput{
		TicketID:  "tk-3",
		Priority:  domain.PriorityLow,
		CreatedAt: createdAt,
		Now:       createdAt,
	})
	require.Error(t, err)
	require.True(t, apperrors.IsNoApplicableConfig(err))
}

func TestIsWithinBusinessHours(t *testing.T) {
	cfg := testConfig("t1", domain.PriorityHigh, nil, 30, 240)
	cfg.Timezone = "America/New_York"

	// Wednesday 15:00 UTC is 10:00 in New York (EST, March before DST)
	require.True(t, IsWithinBusinessHours(time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC), cfg))

	// Saturday is not a business day
	require.False(t, IsWithinBusinessHours(time.Date(2025, 3, 8, 15, 0, 0, 0, time.UTC), cfg))

	cfg.Timezone = "UTC"
	// start is inclusive, end is exclusive
	require.True(t, IsWithinBusinessHours(time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), cfg))
	require.False(t, IsWithinBusinessHours(time.Date(2025, 3, 5, 18, 0, 0, 0, time.UTC), cfg))
}
