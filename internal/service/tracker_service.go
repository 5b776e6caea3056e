package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/repository"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

// TrackerService owns the per-ticket SLA lifecycle: tracking start on ticket
// creation and the write-once first-response/resolution events.
type TrackerService struct {
	statuses   repository.SlaStatusRepository
	configs    repository.SlaConfigRepository
	engine     *Engine
	audit      *AuditLogger
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TrackerDependencies bundles collaborators for the tracker.
type TrackerDependencies struct {
	StatusRepo repository.SlaStatusRepository
	ConfigRepo repository.SlaConfigRepository
	Engine     *Engine
	Audit      *AuditLogger
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewTrackerService constructs the service.
func NewTrackerService(deps TrackerDependencies) *TrackerService {
	return &TrackerService{
		statuses:   deps.StatusRepo,
		configs:    deps.ConfigRepo,
		engine:     deps.Engine,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// OnTicketCreated starts SLA tracking for a new ticket. Fail-open: when no
// applicable config exists (or calculation fails for any reason) the gap is
// logged and (nil, nil) returned, so ticket creation is never blocked by SLA
// misconfiguration.
func (s *TrackerService) OnTicketCreated(ctx context.Context, ticket domain.TicketRef) (*domain.SlaStatus, error) {
	result, err := s.engine.Calculate(ctx, ticket.TenantID, CalculationInput{
		TicketID:   ticket.ID,
		Priority:   ticket.Priority,
		CategoryID: ticket.CategoryID,
		CreatedAt:  ticket.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("sla tracking skipped",
			zap.String("tenant_id", ticket.TenantID),
			zap.String("ticket_id", ticket.ID),
			zap.String("priority", string(ticket.Priority)),
			zap.Error(err))
		return nil, nil
	}

	status := &domain.SlaStatus{
		TenantID:            ticket.TenantID,
		TicketID:            ticket.ID,
		SlaConfigID:         result.SlaConfigID,
		FirstResponseDueAt:  result.FirstResponseDueAt,
		ResolutionDueAt:     result.ResolutionDueAt,
		FirstResponseStatus: result.FirstResponseStatus,
		ResolutionStatus:    result.ResolutionStatus,
	}
	if err := s.statuses.Create(ctx, status); err != nil {
		return nil, err
	}

	s.audit.Append(ctx, &domain.SlaLog{
		TenantID:    ticket.TenantID,
		TicketID:    &status.TicketID,
		SlaConfigID: &status.SlaConfigID,
		SlaStatusID: &status.ID,
		Action:      domain.LogActionCreated,
		EventType:   domain.EventTrackingStarted,
		Description: "SLA tracking started",
		NewValues: map[string]any{
			"first_response_due_at": status.FirstResponseDueAt,
			"resolution_due_at":     status.ResolutionDueAt,
		},
	})
	s.publish(ctx, events.Event{
		Type:     events.EventSlaTrackingStarted,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.TrackingStartedPayload{
			SlaConfigID:        status.SlaConfigID,
			Priority:           ticket.Priority,
			FirstResponseDueAt: status.FirstResponseDueAt,
			ResolutionDueAt:    status.ResolutionDueAt,
		},
	})
	return status, nil
}

// OnFirstResponse records the first response for a ticket. Idempotent: once
// FirstResponseAt is set, later deliveries are no-ops returning the stored
// row unchanged.
func (s *TrackerService) OnFirstResponse(ctx context.Context, tenantID, ticketID string, responseAt time.Time) (*domain.SlaStatus, error) {
	status, err := s.getStatus(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if status.FirstResponseAt != nil {
		return status, nil
	}

	spent := s.elapsedMinutes(ctx, status, status.FirstResponseDueAt, responseAt, firstResponseLeg)
	claim := repository.LegClaim{
		At:       responseAt,
		SpentMin: spent,
		Status:   domain.LegStatusCompliant,
	}
	breached := responseAt.After(status.FirstResponseDueAt)
	if breached {
		claim.Status = domain.LegStatusBreached
		breachedAt := responseAt
		claim.BreachedAt = &breachedAt
	}

	claimed, err := s.statuses.ClaimFirstResponse(ctx, tenantID, ticketID, claim)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// lost the race to a concurrent delivery
		return s.getStatus(ctx, tenantID, ticketID)
	}

	if breached {
		s.recordBreach(ctx, status, firstResponseLeg, status.FirstResponseDueAt, responseAt, spent)
	}
	return s.getStatus(ctx, tenantID, ticketID)
}

// OnTicketResolved records resolution; symmetric to OnFirstResponse, with a
// compliance entry appended when the leg closed in time.
func (s *TrackerService) OnTicketResolved(ctx context.Context, tenantID, ticketID string, resolvedAt time.Time) (*domain.SlaStatus, error) {
	status, err := s.getStatus(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if status.ResolvedAt != nil {
		return status, nil
	}

	spent := s.elapsedMinutes(ctx, status, status.ResolutionDueAt, resolvedAt, resolutionLeg)
	claim := repository.LegClaim{
		At:       resolvedAt,
		SpentMin: spent,
		Status:   domain.LegStatusCompliant,
	}
	breached := resolvedAt.After(status.ResolutionDueAt)
	if breached {
		claim.Status = domain.LegStatusBreached
		breachedAt := resolvedAt
		claim.BreachedAt = &breachedAt
	}

	claimed, err := s.statuses.ClaimResolution(ctx, tenantID, ticketID, claim)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.getStatus(ctx, tenantID, ticketID)
	}

	if breached {
		s.recordBreach(ctx, status, resolutionLeg, status.ResolutionDueAt, resolvedAt, spent)
	} else {
		s.audit.Append(ctx, &domain.SlaLog{
			TenantID:       status.TenantID,
			TicketID:       &status.TicketID,
			SlaConfigID:    &status.SlaConfigID,
			SlaStatusID:    &status.ID,
			Action:         domain.LogActionResolution,
			EventType:      domain.EventResolutionCompliant,
			Description:    "ticket resolved within SLA",
			ResolutionTime: &spent,
		})
		s.publish(ctx, events.Event{
			Type:     events.EventSlaResolutionCompliant,
			TenantID: status.TenantID,
			TicketID: status.TicketID,
			Payload: events.ResolutionCompliantPayload{
				SlaStatusID:       status.ID,
				ResolutionMinutes: spent,
			},
		})
	}
	return s.getStatus(ctx, tenantID, ticketID)
}

// GetStatus returns a ticket's SLA status with read-derived fields refreshed,
// plus the config used at creation time (nil when since deleted).
func (s *TrackerService) GetStatus(ctx context.Context, tenantID, ticketID string) (*domain.SlaStatus, *domain.SlaConfig, error) {
	status, err := s.getStatus(ctx, tenantID, ticketID)
	if err != nil {
		return nil, nil, err
	}
	cfg, _ := s.configs.GetByID(ctx, tenantID, status.SlaConfigID)
	s.refreshDerived(status, cfg, time.Now().UTC())
	return status, cfg, nil
}

// ListStatuses returns tenant statuses with derived fields refreshed.
func (s *TrackerService) ListStatuses(ctx context.Context, tenantID string, filter repository.StatusFilter) ([]domain.SlaStatus, error) {
	statuses, err := s.statuses.ListByTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	cache := map[string]*domain.SlaConfig{}
	for i := range statuses {
		cfg, ok := cache[statuses[i].SlaConfigID]
		if !ok {
			cfg, _ = s.configs.GetByID(ctx, tenantID, statuses[i].SlaConfigID)
			cache[statuses[i].SlaConfigID] = cfg
		}
		s.refreshDerived(&statuses[i], cfg, now)
	}
	return statuses, nil
}

// RecalculateAll recomputes due dates and derived statuses for every status
// with an open leg, against the current state of its frozen config. Write-once
// fields are never touched. Returns the number of rows updated.
func (s *TrackerService) RecalculateAll(ctx context.Context, tc auth.TenantContext) (int, error) {
	statuses, err := s.statuses.ListByTenant(ctx, tc.TenantID, repository.StatusFilter{OpenLeg: true, Limit: 1000})
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	updated := 0
	for i := range statuses {
		status := &statuses[i]
		cfg, err := s.configs.GetByID(ctx, tc.TenantID, status.SlaConfigID)
		if err != nil {
			// config deleted; historical due dates stand
			continue
		}
		result := s.engine.CalculateFromConfig(cfg, status.CreatedAt, now)
		if status.FirstResponseOpen() {
			status.FirstResponseDueAt = result.FirstResponseDueAt
			status.FirstResponseStatus = result.FirstResponseStatus
		}
		if status.ResolutionOpen() {
			status.ResolutionDueAt = result.ResolutionDueAt
			status.ResolutionStatus = result.ResolutionStatus
		}
		if err := s.statuses.UpdateDerived(ctx, status); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

const (
	firstResponseLeg = "first_response"
	resolutionLeg    = "resolution"
)

func (s *TrackerService) getStatus(ctx context.Context, tenantID, ticketID string) (*domain.SlaStatus, error) {
	status, err := s.statuses.GetByTicketID(ctx, tenantID, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("sla status", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return status, nil
}

// elapsedMinutes measures time spent on a leg from the ticket creation
// baseline. The baseline is recovered from the frozen config's window when the
// config still exists, falling back to the tracking row's creation time.
func (s *TrackerService) elapsedMinutes(ctx context.Context, status *domain.SlaStatus, dueAt, eventAt time.Time, leg string) int {
	baseline := status.CreatedAt
	if cfg, err := s.configs.GetByID(ctx, status.TenantID, status.SlaConfigID); err == nil {
		window := cfg.FirstResponseMinutes
		if leg == resolutionLeg {
			window = cfg.ResolutionMinutes
		}
		baseline = dueAt.Add(-time.Duration(window) * time.Minute)
	}
	elapsed := int(eventAt.Sub(baseline).Minutes())
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

func (s *TrackerService) recordBreach(ctx context.Context, status *domain.SlaStatus, leg string, dueAt, breachedAt time.Time, elapsed int) {
	eventType := domain.EventFirstResponseBreach
	dispatchType := events.EventSlaFirstResponseBreach
	entry := &domain.SlaLog{
		TenantID:    status.TenantID,
		TicketID:    &status.TicketID,
		SlaConfigID: &status.SlaConfigID,
		SlaStatusID: &status.ID,
		Action:      domain.LogActionViolation,
		Description: "first response SLA breached",
	}
	if leg == resolutionLeg {
		eventType = domain.EventResolutionBreach
		dispatchType = events.EventSlaResolutionBreach
		entry.Description = "resolution SLA breached"
		entry.ResolutionTime = &elapsed
	} else {
		entry.ResponseTime = &elapsed
	}
	entry.EventType = eventType
	entry.Metadata = map[string]any{
		"due_at":      dueAt,
		"breached_at": breachedAt,
	}
	s.audit.Append(ctx, entry)
	s.metrics.RecordBreach(status.TenantID, leg)
	s.publish(ctx, events.Event{
		Type:     dispatchType,
		TenantID: status.TenantID,
		TicketID: status.TicketID,
		Payload: events.BreachPayload{
			SlaStatusID:    status.ID,
			Leg:            leg,
			DueAt:          dueAt,
			BreachedAt:     breachedAt,
			ElapsedMinutes: elapsed,
		},
	})
}

// refreshDerived recomputes remaining minutes and at-risk classification for
// open legs against the clock. Closed legs keep their stored terminal status;
// at_risk is never a stored state.
func (s *TrackerService) refreshDerived(status *domain.SlaStatus, cfg *domain.SlaConfig, now time.Time) {
	if status.FirstResponseOpen() {
		total := windowMinutes(cfg, status, firstResponseLeg)
		status.FirstResponseStatus, status.FirstResponseTimeRemaining = DeriveLeg(status.FirstResponseDueAt, total, now)
	} else {
		status.FirstResponseTimeRemaining = 0
	}
	if status.ResolutionOpen() {
		total := windowMinutes(cfg, status, resolutionLeg)
		status.ResolutionStatus, status.ResolutionTimeRemaining = DeriveLeg(status.ResolutionDueAt, total, now)
	} else {
		status.ResolutionTimeRemaining = 0
	}
}

// windowMinutes recovers the allotted window for a leg, preferring the frozen
// config and falling back to due-date arithmetic when it was deleted.
func windowMinutes(cfg *domain.SlaConfig, status *domain.SlaStatus, leg string) int {
	if cfg != nil {
		if leg == resolutionLeg {
			return cfg.ResolutionMinutes
		}
		return cfg.FirstResponseMinutes
	}
	dueAt := status.FirstResponseDueAt
	if leg == resolutionLeg {
		dueAt = status.ResolutionDueAt
	}
	return int(dueAt.Sub(status.CreatedAt).Minutes())
}

func (s *TrackerService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
