package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/config"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/repository"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

// ConfigService manages per-tenant SLA rule sets.
type ConfigService struct {
	configs    repository.SlaConfigRepository
	audit      *AuditLogger
	dispatcher events.Dispatcher
	defaults   config.SlaConfig
}

// ConfigDependencies bundles collaborators for the config service.
type ConfigDependencies struct {
	ConfigRepo repository.SlaConfigRepository
	Audit      *AuditLogger
	Dispatcher events.Dispatcher
	Defaults   config.SlaConfig
}

// ConfigCreateInput describes config creation payload.
type ConfigCreateInput struct {
	CategoryID           *string
	Priority             domain.Priority
	FirstResponseMinutes int
	ResolutionMinutes    int
	BusinessHoursStart   *string
	BusinessHoursEnd     *string
	BusinessDays         []int
	Timezone             *string
	IsActive             *bool
}

// ConfigUpdateInput describes partial update fields; nil leaves a field alone.
type ConfigUpdateInput struct {
	CategoryID           *string
	ClearCategory        bool
	Priority             *domain.Priority
	FirstResponseMinutes *int
	ResolutionMinutes    *int
	BusinessHoursStart   *string
	BusinessHoursEnd     *string
	BusinessDays         []int
	Timezone             *string
	IsActive             *bool
}

// NewConfigService constructs the service.
func NewConfigService(deps ConfigDependencies) *ConfigService {
	return &ConfigService{
		configs:    deps.ConfigRepo,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		defaults:   deps.Defaults,
	}
}

// Create stores a new config. At most one active config may exist per
// (tenant, priority, category) triple; the tenant-wide fallback (nil
// category) is its own triple.
func (s *ConfigService) Create(ctx context.Context, tc auth.TenantContext, input ConfigCreateInput) (*domain.SlaConfig, error) {
	cfg := &domain.SlaConfig{
		TenantID:             tc.TenantID,
		CategoryID:           input.CategoryID,
		Priority:             input.Priority,
		FirstResponseMinutes: input.FirstResponseMinutes,
		ResolutionMinutes:    input.ResolutionMinutes,
		BusinessHoursStart:   s.defaults.DefaultBusinessHoursStart,
		BusinessHoursEnd:     s.defaults.DefaultBusinessHoursEnd,
		BusinessDays:         []int{1, 2, 3, 4, 5},
		Timezone:             s.defaults.DefaultTimezone,
		IsActive:             true,
	}
	if input.BusinessHoursStart != nil {
		cfg.BusinessHoursStart = *input.BusinessHoursStart
	}
	if input.BusinessHoursEnd != nil {
		cfg.BusinessHoursEnd = *input.BusinessHoursEnd
	}
	if len(input.BusinessDays) > 0 {
		cfg.BusinessDays = input.BusinessDays
	}
	if input.Timezone != nil {
		cfg.Timezone = *input.Timezone
	}
	if input.IsActive != nil {
		cfg.IsActive = *input.IsActive
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.IsActive {
		if err := s.ensureNoActiveDuplicate(ctx, cfg, ""); err != nil {
			return nil, err
		}
	}

	if err := s.configs.Create(ctx, cfg); err != nil {
		return nil, err
	}

	s.audit.Append(ctx, &domain.SlaLog{
		TenantID:    tc.TenantID,
		SlaConfigID: &cfg.ID,
		Action:      domain.LogActionCreated,
		EventType:   domain.EventConfigCreated,
		Description: "SLA configuration created",
		NewValues:   cfg.Snapshot(),
		UserID:      actorID(tc),
	})
	s.publish(ctx, events.EventSlaConfigCreated, tc, cfg)
	return cfg, nil
}

// Update applies partial fields and records before/after snapshots.
func (s *ConfigService) Update(ctx context.Context, tc auth.TenantContext, id string, input ConfigUpdateInput) (*domain.SlaConfig, error) {
	existing, err := s.configs.GetByID(ctx, tc.TenantID, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("sla config", map[string]any{"id": id})
		}
		return nil, err
	}
	oldSnapshot := existing.Snapshot()

	updated := *existing
	if input.ClearCategory {
		updated.CategoryID = nil
	} else if input.CategoryID != nil {
		updated.CategoryID = input.CategoryID
	}
	if input.Priority != nil {
		updated.Priority = *input.Priority
	}
	if input.FirstResponseMinutes != nil {
		updated.FirstResponseMinutes = *input.FirstResponseMinutes
	}
	if input.ResolutionMinutes != nil {
		updated.ResolutionMinutes = *input.ResolutionMinutes
	}
	if input.BusinessHoursStart != nil {
		updated.BusinessHoursStart = *input.BusinessHoursStart
	}
	if input.BusinessHoursEnd != nil {
		updated.BusinessHoursEnd = *input.BusinessHoursEnd
	}
	if len(input.BusinessDays) > 0 {
		updated.BusinessDays = input.BusinessDays
	}
	if input.Timezone != nil {
		updated.Timezone = *input.Timezone
	}
	if input.IsActive != nil {
		updated.IsActive = *input.IsActive
	}

	if err := validateConfig(&updated); err != nil {
		return nil, err
	}
	if updated.IsActive {
		if err := s.ensureNoActiveDuplicate(ctx, &updated, updated.ID); err != nil {
			return nil, err
		}
	}

	if err := s.configs.Update(ctx, &updated); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("sla config", map[string]any{"id": id})
		}
		return nil, err
	}

	s.audit.Append(ctx, &domain.SlaLog{
		TenantID:    tc.TenantID,
		SlaConfigID: &updated.ID,
		Action:      domain.LogActionUpdated,
		EventType:   domain.EventConfigUpdated,
		Description: "SLA configuration updated",
		OldValues:   oldSnapshot,
		NewValues:   updated.Snapshot(),
		UserID:      actorID(tc),
	})
	s.publish(ctx, events.EventSlaConfigUpdated, tc, &updated)
	return &updated, nil
}

// Delete removes a config. Existing SlaStatus rows keep their historical due
// dates; nothing cascades.
func (s *ConfigService) Delete(ctx context.Context, tc auth.TenantContext, id string) error {
	existing, err := s.configs.GetByID(ctx, tc.TenantID, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("sla config", map[string]any{"id": id})
		}
		return err
	}

	if err := s.configs.Delete(ctx, tc.TenantID, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("sla config", map[string]any{"id": id})
		}
		return err
	}

	s.audit.Append(ctx, &domain.SlaLog{
		TenantID:    tc.TenantID,
		SlaConfigID: &id,
		Action:      domain.LogActionDeleted,
		EventType:   domain.EventConfigDeleted,
		Description: "SLA configuration deleted",
		OldValues:   existing.Snapshot(),
		UserID:      actorID(tc),
	})
	s.publish(ctx, events.EventSlaConfigDeleted, tc, existing)
	return nil
}

// Get fetches one config for the tenant.
func (s *ConfigService) Get(ctx context.Context, tenantID, id string) (*domain.SlaConfig, error) {
	cfg, err := s.configs.GetByID(ctx, tenantID, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("sla config", map[string]any{"id": id})
		}
		return nil, err
	}
	return cfg, nil
}

// List returns configs matching the filter.
func (s *ConfigService) List(ctx context.Context, tenantID string, filter repository.ConfigFilter) ([]domain.SlaConfig, error) {
	return s.configs.ListByTenant(ctx, tenantID, filter)
}

// ResolveApplicable returns the active config governing a ticket: the
// category-specific config when present, else the tenant-wide fallback.
// Absence of both is a tenant configuration gap surfaced as an error; there
// is no silent default.
func (s *ConfigService) ResolveApplicable(ctx context.Context, tenantID string, priority domain.Priority, categoryID *string) (*domain.SlaConfig, error) {
	if categoryID != nil {
		cfg, err := s.configs.FindActive(ctx, tenantID, priority, categoryID)
		if err == nil {
			return cfg, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
	}
	cfg, err := s.configs.FindActive(ctx, tenantID, priority, nil)
	if err != nil {
		if apperrors.IsNotFound(err) {
			details := map[string]any{"priority": string(priority)}
			if categoryID != nil {
				details["category_id"] = *categoryID
			}
			return nil, apperrors.NewNoApplicableConfig(details)
		}
		return nil, err
	}
	return cfg, nil
}

func (s *ConfigService) ensureNoActiveDuplicate(ctx context.Context, cfg *domain.SlaConfig, excludeID string) error {
	existing, err := s.configs.FindActive(ctx, cfg.TenantID, cfg.Priority, cfg.CategoryID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID == excludeID {
		return nil
	}
	details := map[string]any{"priority": string(cfg.Priority), "existing_id": existing.ID}
	if cfg.CategoryID != nil {
		details["category_id"] = *cfg.CategoryID
	}
	return apperrors.NewConflict("an active SLA config already exists for this priority and category", details)
}

func (s *ConfigService) publish(ctx context.Context, eventType events.EventType, tc auth.TenantContext, cfg *domain.SlaConfig) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TenantID:  tc.TenantID,
		UserID:    actorID(tc),
		Timestamp: time.Now().UTC(),
		Payload: events.ConfigChangedPayload{
			SlaConfigID: cfg.ID,
			Priority:    cfg.Priority,
			CategoryID:  cfg.CategoryID,
		},
	})
}

func actorID(tc auth.TenantContext) *string {
	if tc.UserID == "" {
		return nil
	}
	id := tc.UserID
	return &id
}

func validateConfig(cfg *domain.SlaConfig) error {
	details := map[string]any{}
	if !domain.ValidPriority(cfg.Priority) {
		details["priority"] = "must be one of low, medium, high, critical"
	}
	if cfg.FirstResponseMinutes <= 0 {
		details["first_response_minutes"] = "must be a positive number of minutes"
	}
	if cfg.ResolutionMinutes <= 0 {
		details["resolution_minutes"] = "must be a positive number of minutes"
	}
	if _, err := time.Parse("15:04", cfg.BusinessHoursStart); err != nil {
		details["business_hours_start"] = "must be HH:MM"
	}
	if _, err := time.Parse("15:04", cfg.BusinessHoursEnd); err != nil {
		details["business_hours_end"] = "must be HH:MM"
	}
	if len(cfg.BusinessDays) == 0 {
		details["business_days"] = "at least one business day required"
	}
	for _, day := range cfg.BusinessDays {
		if day < 1 || day > 7 {
			details["business_days"] = "weekday numbers must be between 1 and 7"
			break
		}
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		details["timezone"] = "must be a valid IANA timezone"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid SLA configuration", details)
	}
	return nil
}
