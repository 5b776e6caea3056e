package domain

import "time"

// LegStatus enumerates compliance states for a single SLA leg.
type LegStatus string

const (
	LegStatusCompliant LegStatus = "compliant"
	LegStatusAtRisk    LegStatus = "at_risk"
	LegStatusBreached  LegStatus = "breached"
)

// SlaStatus tracks both SLA legs for a single ticket. Exactly one row exists
// per ticket. FirstResponseAt and ResolvedAt are write-once: a second attempt
// to set an already-set field is a no-op.
type SlaStatus struct {
	ID          string
	TenantID    string
	TicketID    string
	SlaConfigID string // config used at creation time, never re-resolved

	FirstResponseDueAt time.Time
	ResolutionDueAt    time.Time

	FirstResponseAt *time.Time
	ResolvedAt      *time.Time

	FirstResponseStatus LegStatus
	ResolutionStatus    LegStatus

	// Remaining minutes are derived against the current clock on read.
	FirstResponseTimeRemaining int
	ResolutionTimeRemaining    int

	FirstResponseTimeSpent *int // minutes, set once the response fires
	ResolutionTimeSpent    *int

	FirstResponseBreachedAt *time.Time
	ResolutionBreachedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FirstResponseOpen reports whether the first-response leg is still pending.
func (s *SlaStatus) FirstResponseOpen() bool {
	return s.FirstResponseAt == nil
}

// ResolutionOpen reports whether the resolution leg is still pending.
func (s *SlaStatus) ResolutionOpen() bool {
	return s.ResolvedAt == nil
}

// Terminal reports whether both legs have completed; the record is then
// immutable except for read-derived fields.
func (s *SlaStatus) Terminal() bool {
	return s.FirstResponseAt != nil && s.ResolvedAt != nil
}
