package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-service/internal/api/dto"
	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/service"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

// SlaStatusHandler exposes per-ticket tracking reads, the lifecycle webhook
// and engine endpoints.
type SlaStatusHandler struct {
	tracker *service.TrackerService
	engine  *service.Engine
}

// NewSlaStatusHandler constructs handler.
func NewSlaStatusHandler(tracker *service.TrackerService, engine *service.Engine) *SlaStatusHandler {
	return &SlaStatusHandler{tracker: tracker, engine: engine}
}

// Get GET /sla/status/:ticketId.
func (h *SlaStatusHandler) Get(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	status, cfg, err := h.tracker.GetStatus(c.UserContext(), tc.TenantID, c.Params("ticketId"))
	if err != nil {
		return err
	}
	detail := dto.SlaStatusDetailResponse{Status: statusResponse(status)}
	if cfg != nil {
		resp := configResponse(cfg)
		detail.Config = &resp
	}
	return c.JSON(dto.OK(detail))
}

// List GET /sla/status.
func (h *SlaStatusHandler) List(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.StatusFilter{Now: time.Now().UTC()}
	if statusStr := c.Query("status"); statusStr != "" {
		legStatus := domain.LegStatus(statusStr)
		filter.Status = &legStatus
	}
	if dueToday, err := strconv.ParseBool(c.Query("dueToday", "false")); err == nil {
		filter.DueToday = dueToday
	}
	if overdue, err := strconv.ParseBool(c.Query("overdue", "false")); err == nil {
		filter.Overdue = overdue
	}
	filter.Limit, filter.Offset = parsePagination(c)

	statuses, err := h.tracker.ListStatuses(c.UserContext(), tc.TenantID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.SlaStatusResponse, 0, len(statuses))
	for i := range statuses {
		items = append(items, statusResponse(&statuses[i]))
	}
	return c.JSON(dto.OK(items))
}

// ApplyEvent PATCH /sla/status. Receives ticket lifecycle events from the
// helpdesk core; both timestamps may arrive in one call. Repeated deliveries
// of the same event are no-ops.
func (h *SlaStatusHandler) ApplyEvent(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.StatusEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" {
		return apperrors.NewValidationError("ticketId required", nil)
	}
	if req.FirstResponseAt == nil && req.ResolvedAt == nil {
		return apperrors.NewValidationError("firstResponseAt or resolvedAt required", nil)
	}

	var status *domain.SlaStatus
	var err error
	if req.FirstResponseAt != nil {
		status, err = h.tracker.OnFirstResponse(c.UserContext(), tc.TenantID, req.TicketID, req.FirstResponseAt.UTC())
		if err != nil {
			return err
		}
	}
	if req.ResolvedAt != nil {
		status, err = h.tracker.OnTicketResolved(c.UserContext(), tc.TenantID, req.TicketID, req.ResolvedAt.UTC())
		if err != nil {
			return err
		}
	}
	return c.JSON(dto.OKWithMessage(statusResponse(status), "SLA status updated"))
}

// Calculate POST /sla/calculate. Runs the engine without persisting anything.
func (h *SlaStatusHandler) Calculate(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CalculateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" || req.CreatedAt.IsZero() {
		return apperrors.NewValidationError("ticketId and createdAt required", nil)
	}
	priority := domain.Priority(req.Priority)
	if !domain.ValidPriority(priority) {
		return apperrors.NewValidationError("invalid priority", map[string]any{
			"priority": "must be one of low, medium, high, critical",
		})
	}

	result, err := h.engine.Calculate(c.UserContext(), tc.TenantID, service.CalculationInput{
		TicketID:   req.TicketID,
		Priority:   priority,
		CategoryID: normalizeCategory(req.CategoryID),
		CreatedAt:  req.CreatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(dto.CalculateResponse{
		TicketID:                   req.TicketID,
		SlaConfigID:                result.SlaConfigID,
		FirstResponseDueAt:         result.FirstResponseDueAt,
		ResolutionDueAt:            result.ResolutionDueAt,
		FirstResponseStatus:        result.FirstResponseStatus,
		ResolutionStatus:           result.ResolutionStatus,
		FirstResponseTimeRemaining: result.FirstResponseTimeRemaining,
		ResolutionTimeRemaining:    result.ResolutionTimeRemaining,
		IsBusinessHours:            result.IsBusinessHours,
	}))
}

// RecalculateAll POST /sla/recalculate-all. Admin only, enforced at the route.
func (h *SlaStatusHandler) RecalculateAll(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	updated, err := h.tracker.RecalculateAll(c.UserContext(), tc)
	if err != nil {
		return err
	}
	return c.JSON(dto.OKWithMessage(dto.RecalculateResponse{Updated: updated}, "recalculation complete"))
}

func statusResponse(status *domain.SlaStatus) dto.SlaStatusResponse {
	return dto.SlaStatusResponse{
		ID:                         status.ID,
		TenantID:                   status.TenantID,
		TicketID:                   status.TicketID,
		SlaConfigID:                status.SlaConfigID,
		FirstResponseDueAt:         status.FirstResponseDueAt,
		ResolutionDueAt:            status.ResolutionDueAt,
		FirstResponseAt:            status.FirstResponseAt,
		ResolvedAt:                 status.ResolvedAt,
		FirstResponseStatus:        status.FirstResponseStatus,
		ResolutionStatus:           status.ResolutionStatus,
		FirstResponseTimeRemaining: status.FirstResponseTimeRemaining,
		ResolutionTimeRemaining:    status.ResolutionTimeRemaining,
		FirstResponseTimeSpent:     status.FirstResponseTimeSpent,
		ResolutionTimeSpent:        status.ResolutionTimeSpent,
		FirstResponseBreachedAt:    status.FirstResponseBreachedAt,
		ResolutionBreachedAt:       status.ResolutionBreachedAt,
		CreatedAt:                  status.CreatedAt,
		UpdatedAt:                  status.UpdatedAt,
	}
}
