package domain

import "time"

// Priority enumerates SLA urgency levels.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// SlaConfig is a per-tenant rule set applied to tickets matching
// (tenantID, priority, categoryID). A nil CategoryID makes the config the
// tenant-wide fallback for its priority.
type SlaConfig struct {
	ID                   string
	TenantID             string
	CategoryID           *string
	Priority             Priority
	FirstResponseMinutes int
	ResolutionMinutes    int
	BusinessHoursStart   string // HH:MM
	BusinessHoursEnd     string // HH:MM
	BusinessDays         []int  // ISO weekday numbers, 1=Monday .. 7=Sunday
	Timezone             string
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Snapshot flattens the config into a loosely typed map for audit entries.
func (c *SlaConfig) Snapshot() map[string]any {
	snap := map[string]any{
		"priority":               string(c.Priority),
		"first_response_minutes": c.FirstResponseMinutes,
		"resolution_minutes":     c.ResolutionMinutes,
		"business_hours_start":   c.BusinessHoursStart,
		"business_hours_end":     c.BusinessHoursEnd,
		"business_days":          c.BusinessDays,
		"timezone":               c.Timezone,
		"is_active":              c.IsActive,
	}
	if c.CategoryID != nil {
		snap["category_id"] = *c.CategoryID
	}
	return snap
}
