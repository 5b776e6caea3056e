package domain

import "time"

// TicketRef is the slice of a ticket the SLA engine consumes. Ticket CRUD
// lives elsewhere; the lifecycle emitter hands these to the tracker.
type TicketRef struct {
	ID         string
	TenantID   string
	Priority   Priority
	CategoryID *string
	CreatedAt  time.Time
}
