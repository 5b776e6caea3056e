package dto

import (
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

// Envelope is the uniform response wrapper.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// OK wraps a successful payload.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// OKWithMessage wraps a successful payload with a human message.
func OKWithMessage(data any, message string) Envelope {
	return Envelope{Success: true, Data: data, Message: message}
}

// CreateSlaConfigRequest payload.
type CreateSlaConfigRequest struct {
	CategoryID           *string `json:"categoryId"`
	Priority             string  `json:"priority"`
	FirstResponseMinutes int     `json:"firstResponseMinutes"`
	ResolutionMinutes    int     `json:"resolutionMinutes"`
	BusinessHoursStart   *string `json:"businessHoursStart"`
	BusinessHoursEnd     *string `json:"businessHoursEnd"`
	BusinessDays         []int   `json:"businessDays"`
	Timezone             *string `json:"timezone"`
	IsActive             *bool   `json:"isActive"`
}

// UpdateSlaConfigRequest payload; absent fields are left untouched. Sending
// categoryId as an empty string clears it, turning the config into the
// tenant-wide fallback.
type UpdateSlaConfigRequest struct {
	CategoryID           *string `json:"categoryId"`
	Priority             *string `json:"priority"`
	FirstResponseMinutes *int    `json:"firstResponseMinutes"`
	ResolutionMinutes    *int    `json:"resolutionMinutes"`
	BusinessHoursStart   *string `json:"businessHoursStart"`
	BusinessHoursEnd     *string `json:"businessHoursEnd"`
	BusinessDays         []int   `json:"businessDays"`
	Timezone             *string `json:"timezone"`
	IsActive             *bool   `json:"isActive"`
}

// SlaConfigResponse represents a config on the wire.
type SlaConfigResponse struct {
	ID                   string          `json:"id"`
	TenantID             string          `json:"tenantId"`
	CategoryID           *string         `json:"categoryId"`
	Priority             domain.Priority `json:"priority"`
	FirstResponseMinutes int             `json:"firstResponseMinutes"`
	ResolutionMinutes    int             `json:"resolutionMinutes"`
	BusinessHoursStart   string          `json:"businessHoursStart"`
	BusinessHoursEnd     string          `json:"businessHoursEnd"`
	BusinessDays         []int           `json:"businessDays"`
	Timezone             string          `json:"timezone"`
	IsActive             bool            `json:"isActive"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// SlaStatusResponse represents a ticket's tracking row on the wire.
type SlaStatusResponse struct {
	ID                         string           `json:"id"`
	TenantID                   string           `json:"tenantId"`
	TicketID                   string           `json:"ticketId"`
	SlaConfigID                string           `json:"slaConfigId"`
	FirstResponseDueAt         time.Time        `json:"firstResponseDueAt"`
	ResolutionDueAt            time.Time        `json:"resolutionDueAt"`
	FirstResponseAt            *time.Time       `json:"firstResponseAt"`
	ResolvedAt                 *time.Time       `json:"resolvedAt"`
	FirstResponseStatus        domain.LegStatus `json:"firstResponseStatus"`
	ResolutionStatus           domain.LegStatus `json:"resolutionStatus"`
	FirstResponseTimeRemaining int              `json:"firstResponseTimeRemaining"`
	ResolutionTimeRemaining    int              `json:"resolutionTimeRemaining"`
	FirstResponseTimeSpent     *int             `json:"firstResponseTimeSpent"`
	ResolutionTimeSpent        *int             `json:"resolutionTimeSpent"`
	FirstResponseBreachedAt    *time.Time       `json:"firstResponseBreachedAt"`
	ResolutionBreachedAt       *time.Time       `json:"resolutionBreachedAt"`
	CreatedAt                  time.Time        `json:"createdAt"`
	UpdatedAt                  time.Time        `json:"updatedAt"`
}

// SlaStatusDetailResponse pairs a status with the config it was computed from.
// Config is nil when the config has since been deleted.
type SlaStatusDetailResponse struct {
	Status SlaStatusResponse  `json:"status"`
	Config *SlaConfigResponse `json:"config"`
}

// CalculateRequest asks the engine for due dates without persisting anything.
type CalculateRequest struct {
	TicketID   string    `json:"ticketId"`
	Priority   string    `json:"priority"`
	CategoryID *string   `json:"categoryId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CalculateResponse is the transient engine output.
type CalculateResponse struct {
	TicketID                   string           `json:"ticketId"`
	SlaConfigID                string           `json:"slaConfigId"`
	FirstResponseDueAt         time.Time        `json:"firstResponseDueAt"`
	ResolutionDueAt            time.Time        `json:"resolutionDueAt"`
	FirstResponseStatus        domain.LegStatus `json:"firstResponseStatus"`
	ResolutionStatus           domain.LegStatus `json:"resolutionStatus"`
	FirstResponseTimeRemaining int              `json:"firstResponseTimeRemaining"`
	ResolutionTimeRemaining    int              `json:"resolutionTimeRemaining"`
	IsBusinessHours            bool             `json:"isBusinessHours"`
}

// StatusEventRequest is the lifecycle webhook payload. At least one of the
// timestamps must be present.
type StatusEventRequest struct {
	TicketID        string     `json:"ticketId"`
	FirstResponseAt *time.Time `json:"firstResponseAt"`
	ResolvedAt      *time.Time `json:"resolvedAt"`
}

// RecalculateResponse reports how many tracking rows were recomputed.
type RecalculateResponse struct {
	Updated int `json:"updated"`
}

// SlaLogResponse represents an audit entry on the wire.
type SlaLogResponse struct {
	ID             string           `json:"id"`
	TenantID       string           `json:"tenantId"`
	TicketID       *string          `json:"ticketId"`
	SlaConfigID    *string          `json:"slaConfigId"`
	SlaStatusID    *string          `json:"slaStatusId"`
	Action         domain.LogAction `json:"action"`
	EventType      string           `json:"eventType"`
	Description    string           `json:"description"`
	OldValues      map[string]any   `json:"oldValues,omitempty"`
	NewValues      map[string]any   `json:"newValues,omitempty"`
	ResponseTime   *int             `json:"responseTime"`
	ResolutionTime *int             `json:"resolutionTime"`
	UserID         *string          `json:"userId"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}
