package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/repository"
)

// Alert types.
const (
	AlertFirstResponseWarning = "first_response_warning"
	AlertFirstResponseBreach  = "first_response_breach"
	AlertResolutionWarning    = "resolution_warning"
	AlertResolutionBreach     = "resolution_breach"
)

// Alert is a transient at-risk/breach notice derived on demand; alerts are
// never persisted.
type Alert struct {
	Type               string          `json:"type"`
	TicketID           string          `json:"ticketId"`
	SlaStatusID        string          `json:"slaStatusId"`
	Severity           string          `json:"severity"` // warning or critical
	PercentageConsumed float64         `json:"percentageConsumed"`
	TimeRemaining      int             `json:"timeRemaining"`
	DueAt              time.Time       `json:"dueAt"`
	Priority           domain.Priority `json:"priority,omitempty"`
	Message            string          `json:"message"`
	OccurredAt         time.Time       `json:"occurredAt"`
}

// AlertService derives the current alert list from open SLA legs.
type AlertService struct {
	statuses repository.SlaStatusRepository
	configs  repository.SlaConfigRepository
}

// NewAlertService constructs the service.
func NewAlertService(statuses repository.SlaStatusRepository, configs repository.SlaConfigRepository) *AlertService {
	return &AlertService{statuses: statuses, configs: configs}
}

// GenerateAlerts inspects every status with an open leg and emits warnings
// for at-risk legs and critical alerts for breached ones, newest first.
// Idempotent and side-effect free.
func (s *AlertService) GenerateAlerts(ctx context.Context, tenantID string) ([]Alert, error) {
	return s.generateAlertsAt(ctx, tenantID, time.Now().UTC())
}

func (s *AlertService) generateAlertsAt(ctx context.Context, tenantID string, now time.Time) ([]Alert, error) {
	statuses, err := s.statuses.ListByTenant(ctx, tenantID, repository.StatusFilter{OpenLeg: true, Now: now, Limit: 1000})
	if err != nil {
		return nil, err
	}

	alerts := []Alert{}
	cache := map[string]*domain.SlaConfig{}
	for i := range statuses {
		status := &statuses[i]
		cfg, ok := cache[status.SlaConfigID]
		if !ok {
			cfg, _ = s.configs.GetByID(ctx, tenantID, status.SlaConfigID)
			cache[status.SlaConfigID] = cfg
		}
		if status.FirstResponseOpen() {
			if alert, ok := legAlert(status, cfg, firstResponseLeg, now); ok {
				alerts = append(alerts, alert)
			}
		}
		if status.ResolutionOpen() {
			if alert, ok := legAlert(status, cfg, resolutionLeg, now); ok {
				alerts = append(alerts, alert)
			}
		}
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].OccurredAt.After(alerts[j].OccurredAt)
	})
	return alerts, nil
}

func legAlert(status *domain.SlaStatus, cfg *domain.SlaConfig, leg string, now time.Time) (Alert, bool) {
	dueAt := status.FirstResponseDueAt
	breachedAt := status.FirstResponseBreachedAt
	if leg == resolutionLeg {
		dueAt = status.ResolutionDueAt
		breachedAt = status.ResolutionBreachedAt
	}
	total := windowMinutes(cfg, status, leg)
	legStatus, remaining := DeriveLeg(dueAt, total, now)

	alert := Alert{
		TicketID:      status.TicketID,
		SlaStatusID:   status.ID,
		TimeRemaining: remaining,
		DueAt:         dueAt,
	}
	if cfg != nil {
		alert.Priority = cfg.Priority
	}

	switch legStatus {
	case domain.LegStatusBreached:
		alert.Severity = "critical"
		alert.PercentageConsumed = 100
		alert.Priority = domain.PriorityCritical
		alert.OccurredAt = dueAt
		if breachedAt != nil {
			alert.OccurredAt = *breachedAt
		}
		if leg == resolutionLeg {
			alert.Type = AlertResolutionBreach
			alert.Message = fmt.Sprintf("resolution SLA breached for ticket %s", status.TicketID)
		} else {
			alert.Type = AlertFirstResponseBreach
			alert.Message = fmt.Sprintf("first response SLA breached for ticket %s", status.TicketID)
		}
		return alert, true
	case domain.LegStatusAtRisk:
		alert.Severity = "warning"
		if total > 0 {
			consumed := 100 * (1 - float64(remaining)/float64(total))
			alert.PercentageConsumed = math.Round(consumed*100) / 100
		}
		alert.OccurredAt = now
		if leg == resolutionLeg {
			alert.Type = AlertResolutionWarning
			alert.Message = fmt.Sprintf("resolution SLA at risk for ticket %s: %d minutes remaining", status.TicketID, remaining)
		} else {
			alert.Type = AlertFirstResponseWarning
			alert.Message = fmt.Sprintf("first response SLA at risk for ticket %s: %d minutes remaining", status.TicketID, remaining)
		}
		return alert, true
	}
	return Alert{}, false
}
