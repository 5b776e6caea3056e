package service

import (
	"context"
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

// AtRiskThreshold is the fraction of the allotted window at or below which an
// open leg is reported at_risk.
const AtRiskThreshold = 0.25

// CalculationInput describes a ticket to compute SLA targets for.
type CalculationInput struct {
	TicketID   string
	Priority   domain.Priority
	CategoryID *string
	CreatedAt  time.Time
	// Now overrides the evaluation clock; zero means wall clock.
	Now time.Time
}

// CalculationResult is the engine output. Nothing is persisted here; callers
// decide what to store.
type CalculationResult struct {
	SlaConfigID                string
	FirstResponseDueAt         time.Time
	ResolutionDueAt            time.Time
	FirstResponseStatus        domain.LegStatus
	ResolutionStatus           domain.LegStatus
	FirstResponseTimeRemaining int
	ResolutionTimeRemaining    int
	IsBusinessHours            bool
}

// ConfigResolver is the slice of the configuration store the engine needs.
type ConfigResolver interface {
	ResolveApplicable(ctx context.Context, tenantID string, priority domain.Priority, categoryID *string) (*domain.SlaConfig, error)
}

// Engine computes SLA due dates and compliance statuses.
//
// Due dates use linear minute arithmetic: createdAt plus the configured
// window, ignoring the business-hours calendar carried on the config. This
// matches the behavior existing SlaStatus rows were computed with; the
// calendar fields refine IsWithinBusinessHours only. Swapping dueDates for a
// business-calendar walk keeps the external contract intact.
type Engine struct {
	resolver ConfigResolver
}

// NewEngine constructs the engine.
func NewEngine(resolver ConfigResolver) *Engine {
	return &Engine{resolver: resolver}
}

// Calculate resolves the applicable config for the ticket and derives due
// dates, remaining minutes, and per-leg statuses against the evaluation clock.
func (e *Engine) Calculate(ctx context.Context, tenantID string, in CalculationInput) (*CalculationResult, error) {
	cfg, err := e.resolver.ResolveApplicable(ctx, tenantID, in.Priority, in.CategoryID)
	if err != nil {
		return nil, err
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	result := e.CalculateFromConfig(cfg, in.CreatedAt, now)
	return result, nil
}

// CalculateFromConfig is the pure core of Calculate, usable when the config
// is already in hand (e.g. bulk recalculation against a frozen config).
func (e *Engine) CalculateFromConfig(cfg *domain.SlaConfig, createdAt, now time.Time) *CalculationResult {
	frDue := createdAt.Add(time.Duration(cfg.FirstResponseMinutes) * time.Minute)
	resDue := createdAt.Add(time.Duration(cfg.ResolutionMinutes) * time.Minute)

	frStatus, frRemaining := DeriveLeg(frDue, cfg.FirstResponseMinutes, now)
	resStatus, resRemaining := DeriveLeg(resDue, cfg.ResolutionMinutes, now)

	return &CalculationResult{
		SlaConfigID:                cfg.ID,
		FirstResponseDueAt:         frDue,
		ResolutionDueAt:            resDue,
		FirstResponseStatus:        frStatus,
		ResolutionStatus:           resStatus,
		FirstResponseTimeRemaining: frRemaining,
		ResolutionTimeRemaining:    resRemaining,
		IsBusinessHours:            IsWithinBusinessHours(now, cfg),
	}
}

// DeriveLeg classifies a single open leg against the clock: breached at zero
// remaining, at_risk at or below the threshold fraction, compliant otherwise.
// Remaining time is clamped to whole non-negative minutes.
func DeriveLeg(dueAt time.Time, totalMinutes int, now time.Time) (domain.LegStatus, int) {
	remaining := int(dueAt.Sub(now).Minutes())
	if remaining <= 0 {
		return domain.LegStatusBreached, 0
	}
	if totalMinutes > 0 && float64(remaining)/float64(totalMinutes) <= AtRiskThreshold {
		return domain.LegStatusAtRisk, remaining
	}
	return domain.LegStatusCompliant, remaining
}

// IsWithinBusinessHours reports whether t falls on one of the config's
// business days with a clock time inside [start, end), evaluated in the
// config's timezone. An unparseable timezone or window falls back to UTC and
// an always-open window respectively.
func IsWithinBusinessHours(t time.Time, cfg *domain.SlaConfig) bool {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)

	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO numbering, Sunday is 7
	}
	dayMatch := false
	for _, day := range cfg.BusinessDays {
		if day == weekday {
			dayMatch = true
			break
		}
	}
	if !dayMatch {
		return false
	}

	start, errStart := parseClock(cfg.BusinessHoursStart)
	end, errEnd := parseClock(cfg.BusinessHoursEnd)
	if errStart != nil || errEnd != nil {
		return true
	}
	minuteOfDay := local.Hour()*60 + local.Minute()
	return minuteOfDay >= start && minuteOfDay < end
}

func parseClock(val string) (int, error) {
	parsed, err := time.Parse("15:04", val)
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
