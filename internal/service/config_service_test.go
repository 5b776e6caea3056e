package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-service/internal/domain"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _, logs := newTestConfigService(t)
	tc := testTenantContext("t1", domain.RoleTenantAdmin)

	cfg, err := svc.Create(context.Background(), tc, ConfigCreateInput{
		Priority:             domain.PriorityMedium,
		FirstResponseMinutes: 60,
		ResolutionMinutes:    480,
	})
	require.NoError(t, err)
	require.Equal(t, "09:00", cfg.BusinessHoursStart)
	require.Equal(t, "18:00", cfg.BusinessHoursEnd)
	require.Equal(t, []int{1, 2, 3, 4, 5}, cfg.BusinessDays)
	require.Equal(t, "UTC", cfg.Timezone)
	require.True(t, cfg.IsActive)

	require.Len(t, logs.Logs, 1)
	entry := logs.Logs[0]
	require.Equal(t, domain.LogActionCreated, entry.Action)
	require.Equal(t, domain.EventConfigCreated, entry.EventType)
	require.Equal(t, 60, entry.NewValues["first_response_minutes"])
	require.NotNil(t, entry.UserID)
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	svc, _, _ := newTestConfigService(t)
	tc := testTenantContext("t1", domain.RoleTenantAdmin)
	badStart := "9am"

	_, err := svc.Create(context.Background(), tc, ConfigCreateInput{
		Priority:             "urgent",
		FirstResponseMinutes: 0,
		ResolutionMinutes:    -5,
		BusinessHoursStart:   &badStart,
		BusinessDays:         []int{0, 8},
	})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	require.Contains(t, domainErr.Details, "priority")
	require.Contains(t, domainErr.Details, "first_response_minutes")
	require.Contains(t, domainErr.Details, "resolution_minutes")
	require.Contains(t, domainErr.Details, "business_hours_start")
	require.Contains(t, domainErr.Details, "business_days")
}

func TestCreateDuplicateActiveTripleConflicts(t *testing.T) {
	svc, _, _ := newTestConfigService(t)
	tc := testTenantContext("t1", domain.RoleTenantAdmin)
	ctx := context.Background()

	_, err := svc.Create(ctx, tc, ConfigCreateInput{
		Priority:             domain.PriorityHigh,
		FirstResponseMinutes: 30,
		ResolutionMinutes:    240,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, tc, ConfigCreateInput{
		Priority:             domain.PriorityHigh,
		FirstResponseMinutes: 45,
		ResolutionMinutes:    300,
	})
	require.Error(t, err)
	require.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	// a different category is a different triple
	billing := "billing"
	_, err = svc.Create(ctx, tc, ConfigCreateInput{
		CategoryID:           &billing,
		Priority:             domain.PriorityHigh,
		FirstResponseMinutes: 15,
		ResolutionMinutes:    120,
	})
	require.NoError(t, err)

	// an inactive duplicate is allowed
	inactive := false
	_, err = svc.Create(ctx, tc, ConfigCreateInput{
		Priority:             domain.PriorityHigh,
		FirstResponseMinutes: 45,
		ResolutionMinutes:    300,
		IsActive:             &inactive,
	})
	require.NoError(t, err)
}

func TestUpdateRecordsOldAndNewValues(t *testing.T) {
	svc, _, logs := newTestConfigService(t)
	tc := testTenantContext("t1", domain.RoleTenantAdmin)
	ctx := context.Background()

	cfg, err := svc.Create(ctx, tc, ConfigCreateInput{
		Priority:             domain.PriorityLow,
		FirstResponseMinutes: 240,
		ResolutionMinutes:    2880,
	})
	require.NoError(t, err)
	entriesBefore := len(logs.Logs)

	newMinutes := 120
	updated, err := svc.Update(ctx, tc, cfg.ID, ConfigUpdateInput{
		FirstResponseMinutes: &newMinutes,
	})
	require.NoError(t, err)
	require.Equal(t, 120, updated.FirstResponseMinutes)
	require.Equal(t, 2880, updated.ResolutionMinutes)

	// the trail only ever grows
	require.Len(t, logs.Logs, entriesBefore+1)
	entry := logs.Logs[len(logs.Logs)-1]
	require.Equal(t, domain.LogActionUpdated, entry.Action)
	require.Equal(t, 240, entry.OldValues["first_response_minutes"])
	require.Equal(t, 120, entry.NewValues["first_response_minutes"])
}

func TestUpdateMissingConfigIsNotFound(t *testing.T) {
	svc, _, _ := newTestConfigService(t)
	tc := testTenantContext("t1", domain.RoleTenantAdmin)

	minutes := 30
	_, err := svc.Update(context.Background(), tc, "missing", ConfigUpdateInput{FirstResponseMinutes: &minutes})
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestDeleteRecordsSnapshotAndKeepsNothingElse(t *testing.T) {
	svc, configs, logs := newTestConfigService(t)
	tc := testTenantContext("t1", domain.RoleTenantAdmin)
	ctx := context.Background()

	cfg, err := svc.Create(ctx, tc, ConfigCreateInput{
		Priority:             domain.PriorityCritical,
		FirstResponseMinutes: 15,
		ResolutionMinutes:    120,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, tc, cfg.ID))
	require.Empty(t, configs.Configs)

	entry := logs.Logs[len(logs.Logs)-1]
	require.Equal(t, domain.LogActionDeleted, entry.Action)
	require.Equal(t, 15, entry.OldValues["first_response_minutes"])
	require.Nil(t, entry.NewValues)
}

func TestResolveApplicablePrefersExactCategory(t *testing.T) {
	svc, _, _ := newTestConfigService(t)
	tc := testTenantContext("t1", domain.RoleTenantAdmin)
	ctx := context.Background()

	billing := "billing"
	specific, err := svc.Create(ctx, tc, ConfigCreateInput{
		CategoryID:           &billing,
		Priority:             domain.PriorityHigh,
		FirstResponseMinutes: 15,
		ResolutionMinutes:    120,
	})
	require.NoError(t, err)
	fallback, err := svc.Create(ctx, tc, ConfigCreateInput{
		Priority:             domain.PriorityHigh,
		FirstResponseMinutes: 60,
		ResolutionMinutes:    480,
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveApplicable(ctx, "t1", domain.PriorityHigh, &billing)
	require.NoError(t, err)
	require.Equal(t, specific.ID, resolved.ID)

	other := "shipping"
	resolved, err = svc.ResolveApplicable(ctx, "t1", domain.PriorityHigh, &other)
	require.NoError(t, err)
	require.Equal(t, fallback.ID, resolved.ID)

	_, err = svc.ResolveApplicable(ctx, "t1", domain.PriorityMedium, nil)
	require.Error(t, err)
	require.True(t, apperrors.IsNoApplicableConfig(err))
}
