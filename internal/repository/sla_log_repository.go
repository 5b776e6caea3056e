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

// LogFilter captures audit log query parameters.
type LogFilter struct {
	TicketID  *string
	Action    *domain.LogAction
	EventType *string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// SlaLogRepository stores the append-only audit trail. There are deliberately
// no update or delete operations.
type SlaLogRepository interface {
	Append(ctx context.Context, entry *domain.SlaLog) error
	ListByTenant(ctx context.Context, tenantID string, filter LogFilter) ([]domain.SlaLog, error)
}

type slaLogRepository struct {
	pool *pgxpool.Pool
}

// NewSlaLogRepository builds repository.
func NewSlaLogRepository(pool *pgxpool.Pool) SlaLogRepository {
	return &slaLogRepository{pool: pool}
}

func (r *slaLogRepository) Append(ctx context.Context, entry *domain.SlaLog) error {
	const query = `
        INSERT INTO sla_logs (tenant_id, ticket_id, sla_config_id, sla_status_id, action, event_type,
            description, old_values, new_values, response_time, resolution_time, user_id, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TenantID,
		entry.TicketID,
		entry.SlaConfigID,
		entry.SlaStatusID,
		entry.Action,
		entry.EventType,
		entry.Description,
		entry.OldValues,
		entry.NewValues,
		entry.ResponseTime,
		entry.ResolutionTime,
		entry.UserID,
		entry.Metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *slaLogRepository) ListByTenant(ctx context.Context, tenantID string, filter LogFilter) ([]domain.SlaLog, error) {
	base := `SELECT id, tenant_id, ticket_id, sla_config_id, sla_status_id, action, event_type,
                    description, old_values, new_values, response_time, resolution_time, user_id, metadata, created_at
             FROM sla_logs`
	clauses := []string{"tenant_id=$1"}
	args := []any{tenantID}

	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("ticket_id=$%d", len(args)))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		clauses = append(clauses, fmt.Sprintf("action=$%d", len(args)))
	}
	if filter.EventType != nil {
		args = append(args, *filter.EventType)
		clauses = append(clauses, fmt.Sprintf("event_type=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
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
	return scanLogs(rows)
}

func scanLogs(rows pgx.Rows) ([]domain.SlaLog, error) {
	var result []domain.SlaLog
	for rows.Next() {
		var entry domain.SlaLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&entry.TicketID,
			&entry.SlaConfigID,
			&entry.SlaStatusID,
			&entry.Action,
			&entry.EventType,
			&entry.Description,
			&entry.OldValues,
			&entry.NewValues,
			&entry.ResponseTime,
			&entry.ResolutionTime,
			&entry.UserID,
			&entry.Metadata,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
