package events

import (
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSlaTrackingStarted     EventType = "sla_tracking_started"
	EventSlaConfigCreated       EventType = "sla_config_created"
	EventSlaConfigUpdated       EventType = "sla_config_updated"
	EventSlaConfigDeleted       EventType = "sla_config_deleted"
	EventSlaFirstResponseBreach EventType = "sla_first_response_breach"
	EventSlaResolutionBreach    EventType = "sla_resolution_breach"
	EventSlaResolutionCompliant EventType = "sla_resolution_compliant"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	TicketID  string      `json:"ticket_id,omitempty"`
	UserID    *string     `json:"user_id,omitempty"` // nil for system-triggered events
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TrackingStartedPayload payload.
type TrackingStartedPayload struct {
	SlaConfigID        string          `json:"sla_config_id"`
	Priority           domain.Priority `json:"priority"`
	FirstResponseDueAt time.Time       `json:"first_response_due_at"`
	ResolutionDueAt    time.Time       `json:"resolution_due_at"`
}

// ConfigChangedPayload payload for config create/update/delete.
type ConfigChangedPayload struct {
	SlaConfigID string          `json:"sla_config_id"`
	Priority    domain.Priority `json:"priority"`
	CategoryID  *string         `json:"category_id,omitempty"`
}

// BreachPayload payload for breach events on either leg.
type BreachPayload struct {
	SlaStatusID    string    `json:"sla_status_id"`
	Leg            string    `json:"leg"` // first_response or resolution
	DueAt          time.Time `json:"due_at"`
	BreachedAt     time.Time `json:"breached_at"`
	ElapsedMinutes int       `json:"elapsed_minutes,omitempty"`
}

// ResolutionCompliantPayload payload.
type ResolutionCompliantPayload struct {
	SlaStatusID       string `json:"sla_status_id"`
	ResolutionMinutes int    `json:"resolution_minutes"`
}
