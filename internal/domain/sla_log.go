package domain

import "time"

// LogAction categorizes audit log entries.
type LogAction string

const (
	LogActionCreated    LogAction = "created"
	LogActionUpdated    LogAction = "updated"
	LogActionDeleted    LogAction = "deleted"
	LogActionViolation  LogAction = "violation"
	LogActionResolution LogAction = "resolution"
)

// Event type discriminators carried on log entries and events.
const (
	EventTrackingStarted     = "sla_tracking_started"
	EventConfigCreated       = "sla_config_created"
	EventConfigUpdated       = "sla_config_updated"
	EventConfigDeleted       = "sla_config_deleted"
	EventFirstResponseBreach = "first_response_breach"
	EventResolutionBreach    = "resolution_breach"
	EventResolutionCompliant = "resolution_compliant"
)

// SlaLog is an append-only audit trail entry. Rows are never updated or
// deleted; the sole write operation is append.
type SlaLog struct {
	ID             string
	TenantID       string
	TicketID       *string
	SlaConfigID    *string
	SlaStatusID    *string
	Action         LogAction
	EventType      string
	Description    string
	OldValues      map[string]any
	NewValues      map[string]any
	ResponseTime   *int    // minutes
	ResolutionTime *int    // minutes
	UserID         *string // nil for system-triggered entries
	Metadata       map[string]any
	CreatedAt      time.Time
}
