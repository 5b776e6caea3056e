package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-service/internal/domain"
)

// StatusFilter captures listing parameters for SLA statuses.
type StatusFilter struct {
	// Status matches rows whose first-response or resolution leg carries the
	// given stored status.
	Status *domain.LegStatus
	// DueToday keeps rows with an open leg due within the given day (UTC).
	DueToday bool
	// Overdue keeps rows with an open leg whose due date has passed.
	Overdue bool
	// OpenLeg keeps rows with at least one leg still pending.
	OpenLeg bool
	Now     time.Time
	Limit   int
	Offset  int
}

// LegClaim carries the terminal outcome written when a lifecycle event fires.
type LegClaim struct {
	At         time.Time
	SpentMin   int
	Status     domain.LegStatus
	BreachedAt *time.Time
}

// SlaStatusRepository encapsulates per-ticket SLA tracking persistence.
type SlaStatusRepository interface {
	Create(ctx context.Context, status *domain.SlaStatus) error
	GetByTicketID(ctx context.Context, tenantID, ticketID string) (*domain.SlaStatus, error)
	ListByTenant(ctx context.Context, tenantID string, filter StatusFilter) ([]domain.SlaStatus, error)
	// ClaimFirstResponse atomically sets the first-response leg outcome if and
	// only if it is still unset. Returns false when another delivery already
	// claimed the leg.
	ClaimFirstResponse(ctx context.Context, tenantID, ticketID string, claim LegClaim) (bool, error)
	// ClaimResolution is the resolution counterpart of ClaimFirstResponse.
	ClaimResolution(ctx context.Context, tenantID, ticketID string, claim LegClaim) (bool, error)
	// UpdateDerived rewrites due dates and stored leg statuses; write-once
	// fields are untouched.
	UpdateDerived(ctx context.Context, status *domain.SlaStatus) error
	// MarkFirstResponseBreached stamps the breach timestamp once for a still
	// open first-response leg. Returns false if already stamped or closed.
	MarkFirstResponseBreached(ctx context.Context, id string, at time.Time) (bool, error)
	MarkResolutionBreached(ctx context.Context, id string, at time.Time) (bool, error)
	// ListOpenPastDue returns rows across tenants with an open leg past its
	// due date and no breach stamp yet. Used by the breach monitor.
	ListOpenPastDue(ctx context.Context, now time.Time, limit int) ([]domain.SlaStatus, error)
}

type slaStatusRepository struct {
	pool *pgxpool.Pool
}

// NewSlaStatusRepository instantiates repository.
func NewSlaStatusRepository(pool *pgxpool.Pool) SlaStatusRepository {
	return &slaStatusRepository{pool: pool}
}

const statusColumns = `id, tenant_id, ticket_id, sla_config_id, first_response_due_at, resolution_due_at,
               first_response_at, resolved_at, first_response_status, resolution_status,
               first_response_time_spent, resolution_time_spent,
               first_response_breached_at, resolution_breached_at, created_at, updated_at`

func (r *slaStatusRepository) Create(ctx context.Context, status *domain.SlaStatus) error {
	const query = `
        INSERT INTO sla_statuses (tenant_id, ticket_id, sla_config_id, first_response_due_at, resolution_due_at,
            first_response_status, resolution_status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		status.TenantID,
		status.TicketID,
		status.SlaConfigID,
		status.FirstResponseDueAt,
		status.ResolutionDueAt,
		status.FirstResponseStatus,
		status.ResolutionStatus,
	).Scan(&status.ID, &status.CreatedAt, &status.UpdatedAt)
}

func (r *slaStatusRepository) GetByTicketID(ctx context.Context, tenantID, ticketID string) (*domain.SlaStatus, error) {
	query := fmt.Sprintf(`SELECT %s FROM sla_statuses WHERE tenant_id=$1 AND ticket_id=$2`, statusColumns)
	var st domain.SlaStatus
	if err := r.pool.QueryRow(ctx, query, tenantID, ticketID).Scan(statusFields(&st)...); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *slaStatusRepository) ClaimFirstResponse(ctx context.Context, tenantID, ticketID string, claim LegClaim) (bool, error) {
	const query = `
        UPDATE sla_statuses SET first_response_at=$1, first_response_time_spent=$2,
            first_response_status=$3, first_response_breached_at=$4, updated_at=NOW()
        WHERE tenant_id=$5 AND ticket_id=$6 AND first_response_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, claim.At, claim.SpentMin, claim.Status, claim.BreachedAt, tenantID, ticketID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *slaStatusRepository) ClaimResolution(ctx context.Context, tenantID, ticketID string, claim LegClaim) (bool, error) {
	const query = `
        UPDATE sla_statuses SET resolved_at=$1, resolution_time_spent=$2,
            resolution_status=$3, resolution_breached_at=$4, updated_at=NOW()
        WHERE tenant_id=$5 AND ticket_id=$6 AND resolved_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, claim.At, claim.SpentMin, claim.Status, claim.BreachedAt, tenantID, ticketID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *slaStatusRepository) UpdateDerived(ctx context.Context, status *domain.SlaStatus) error {
	const query = `
        UPDATE sla_statuses SET first_response_due_at=$1, resolution_due_at=$2,
            first_response_status=$3, resolution_status=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		status.FirstResponseDueAt,
		status.ResolutionDueAt,
		status.FirstResponseStatus,
		status.ResolutionStatus,
		status.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaStatusRepository) MarkFirstResponseBreached(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
        UPDATE sla_statuses SET first_response_breached_at=$1, first_response_status=$2, updated_at=NOW()
        WHERE id=$3 AND first_response_at IS NULL AND first_response_breached_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, domain.LegStatusBreached, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *slaStatusRepository) MarkResolutionBreached(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
        UPDATE sla_statuses SET resolution_breached_at=$1, resolution_status=$2, updated_at=NOW()
        WHERE id=$3 AND resolved_at IS NULL AND resolution_breached_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, domain.LegStatusBreached, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *slaStatusRepository) ListOpenPastDue(ctx context.Context, now time.Time, limit int) ([]domain.SlaStatus, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT %s FROM sla_statuses
        WHERE (first_response_at IS NULL AND first_response_breached_at IS NULL AND first_response_due_at <= $1)
           OR (resolved_at IS NULL AND resolution_breached_at IS NULL AND resolution_due_at <= $1)
        ORDER BY created_at LIMIT %d`, statusColumns, limit)
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStatuses(rows)
}

func (r *slaStatusRepository) ListByTenant(ctx context.Context, tenantID string, filter StatusFilter) ([]domain.SlaStatus, error) {
	base := fmt.Sprintf(`SELECT %s FROM sla_statuses`, statusColumns)
	clauses := []string{"tenant_id=$1"}
	args := []any{tenantID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(first_response_status=%s OR resolution_status=%s)", placeholder, placeholder))
	}

	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if filter.DueToday {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24 * time.Hour)
		args = append(args, dayStart)
		startPh := fmt.Sprintf("$%d", len(args))
		args = append(args, dayEnd)
		endPh := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"((first_response_at IS NULL AND first_response_due_at >= %s AND first_response_due_at < %s) OR (resolved_at IS NULL AND resolution_due_at >= %s AND resolution_due_at < %s))",
			startPh, endPh, startPh, endPh))
	}
	if filter.Overdue {
		args = append(args, now)
		ph := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"((first_response_at IS NULL AND first_response_due_at <= %s) OR (resolved_at IS NULL AND resolution_due_at <= %s))", ph, ph))
	}
	if filter.OpenLeg {
		clauses = append(clauses, "(first_response_at IS NULL OR resolved_at IS NULL)")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStatuses(rows)
}

func statusFields(st *domain.SlaStatus) []any {
	return []any{
		&st.ID,
		&st.TenantID,
		&st.TicketID,
		&st.SlaConfigID,
		&st.FirstResponseDueAt,
		&st.ResolutionDueAt,
		&st.FirstResponseAt,
		&st.ResolvedAt,
		&st.FirstResponseStatus,
		&st.ResolutionStatus,
		&st.FirstResponseTimeSpent,
		&st.ResolutionTimeSpent,
		&st.FirstResponseBreachedAt,
		&st.ResolutionBreachedAt,
		&st.CreatedAt,
		&st.UpdatedAt,
	}
}

func scanStatuses(rows pgx.Rows) ([]domain.SlaStatus, error) {
	var result []domain.SlaStatus
	for rows.Next() {
		var st domain.SlaStatus
		if err := rows.Scan(statusFields(&st)...); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}
