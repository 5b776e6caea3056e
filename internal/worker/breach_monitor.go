package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/service"
)

// BreachMonitor periodically sweeps open SLA legs past their due date,
// stamping the breach exactly once and emitting the violation log and event.
// The conditional repository updates make concurrent sweeps and lifecycle
// events safe.
type BreachMonitor struct {
	statuses   repository.SlaStatusRepository
	audit      *service.AuditLogger
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration
}

// NewBreachMonitor constructs the monitor.
func NewBreachMonitor(statuses repository.SlaStatusRepository, audit *service.AuditLogger, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *BreachMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BreachMonitor{
		statuses:   statuses,
		audit:      audit,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		interval:   interval,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (m *BreachMonitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Sweep(ctx, time.Now().UTC()); err != nil {
					m.logger.Error("breach sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Sweep detects and records breaches as of now. Returns the number of legs
// newly marked breached.
func (m *BreachMonitor) Sweep(ctx context.Context, now time.Time) (int, error) {
	overdue, err := m.statuses.ListOpenPastDue(ctx, now, 500)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range overdue {
		status := &overdue[i]
		if status.FirstResponseOpen() && status.FirstResponseBreachedAt == nil && !status.FirstResponseDueAt.After(now) {
			stamped, err := m.statuses.MarkFirstResponseBreached(ctx, status.ID, now)
			if err != nil {
				return marked, err
			}
			if stamped {
				m.recordBreach(ctx, status, "first_response", status.FirstResponseDueAt, now)
				marked++
			}
		}
		if status.ResolutionOpen() && status.ResolutionBreachedAt == nil && !status.ResolutionDueAt.After(now) {
			stamped, err := m.statuses.MarkResolutionBreached(ctx, status.ID, now)
			if err != nil {
				return marked, err
			}
			if stamped {
				m.recordBreach(ctx, status, "resolution", status.ResolutionDueAt, now)
				marked++
			}
		}
	}
	return marked, nil
}

func (m *BreachMonitor) recordBreach(ctx context.Context, status *domain.SlaStatus, leg string, dueAt, detectedAt time.Time) {
	eventType := domain.EventFirstResponseBreach
	dispatchType := events.EventSlaFirstResponseBreach
	description := "first response SLA breached"
	if leg == "resolution" {
		eventType = domain.EventResolutionBreach
		dispatchType = events.EventSlaResolutionBreach
		description = "resolution SLA breached"
	}
	m.audit.Append(ctx, &domain.SlaLog{
		TenantID:    status.TenantID,
		TicketID:    &status.TicketID,
		SlaConfigID: &status.SlaConfigID,
		SlaStatusID: &status.ID,
		Action:      domain.LogActionViolation,
		EventType:   eventType,
		Description: description,
		Metadata: map[string]any{
			"due_at":      dueAt,
			"detected_at": detectedAt,
			"detected_by": "breach_monitor",
		},
	})
	m.metrics.RecordBreach(status.TenantID, leg)
	if m.dispatcher != nil {
		_ = m.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      dispatchType,
			TenantID:  status.TenantID,
			TicketID:  status.TicketID,
			Timestamp: detectedAt,
			Payload: events.BreachPayload{
				SlaStatusID: status.ID,
				Leg:         leg,
				DueAt:       dueAt,
				BreachedAt:  detectedAt,
			},
		})
	}
}
