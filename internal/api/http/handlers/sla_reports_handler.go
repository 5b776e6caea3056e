package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-service/internal/api/dto"
	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/service"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

// SlaReportsHandler exposes alerts, compliance reports and the audit log.
type SlaReportsHandler struct {
	alerts  *service.AlertService
	reports *service.ReportService
	logs    repository.SlaLogRepository
}

// NewSlaReportsHandler constructs handler.
func NewSlaReportsHandler(alerts *service.AlertService, reports *service.ReportService, logs repository.SlaLogRepository) *SlaReportsHandler {
	return &SlaReportsHandler{alerts: alerts, reports: reports, logs: logs}
}

// Alerts GET /sla/alerts.
func (h *SlaReportsHandler) Alerts(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	alerts, err := h.alerts.GenerateAlerts(c.UserContext(), tc.TenantID)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(alerts))
}

// Report GET /sla/reports.
func (h *SlaReportsHandler) Report(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	start := parseTime(c.Query("startDate"))
	end := parseTime(c.Query("endDate"))
	if start == nil || end == nil {
		return apperrors.NewValidationError("startDate and endDate required (RFC3339)", nil)
	}
	if end.Before(*start) {
		return apperrors.NewValidationError("endDate must not precede startDate", nil)
	}

	report, err := h.reports.GenerateReport(c.UserContext(), tc.TenantID, start.UTC(), end.UTC())
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(report))
}

// Statistics GET /sla/statistics.
func (h *SlaReportsHandler) Statistics(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.reports.GetStatistics(c.UserContext(), tc.TenantID)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(stats))
}

// Logs GET /sla/logs.
func (h *SlaReportsHandler) Logs(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.LogFilter{}
	if ticketID := c.Query("ticketId"); ticketID != "" {
		filter.TicketID = &ticketID
	}
	if actionStr := c.Query("action"); actionStr != "" {
		action := domain.LogAction(actionStr)
		filter.Action = &action
	}
	if eventType := c.Query("eventType"); eventType != "" {
		filter.EventType = &eventType
	}
	filter.From = parseTime(c.Query("from"))
	filter.To = parseTime(c.Query("to"))
	filter.Limit, filter.Offset = parsePagination(c)

	entries, err := h.logs.ListByTenant(c.UserContext(), tc.TenantID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.SlaLogResponse, 0, len(entries))
	for i := range entries {
		items = append(items, logResponse(&entries[i]))
	}
	return c.JSON(dto.OK(items))
}

func logResponse(entry *domain.SlaLog) dto.SlaLogResponse {
	return dto.SlaLogResponse{
		ID:             entry.ID,
		TenantID:       entry.TenantID,
		TicketID:       entry.TicketID,
		SlaConfigID:    entry.SlaConfigID,
		SlaStatusID:    entry.SlaStatusID,
		Action:         entry.Action,
		EventType:      entry.EventType,
		Description:    entry.Description,
		OldValues:      entry.OldValues,
		NewValues:      entry.NewValues,
		ResponseTime:   entry.ResponseTime,
		ResolutionTime: entry.ResolutionTime,
		UserID:         entry.UserID,
		Metadata:       entry.Metadata,
		CreatedAt:      entry.CreatedAt,
	}
}
