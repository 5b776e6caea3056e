package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-service/internal/domain"
)

// ConfigFilter captures listing parameters for SLA configs.
type ConfigFilter struct {
	CategoryID *string
	Priority   *domain.Priority
	IsActive   *bool
	Limit      int
	Offset     int
}

// SlaConfigRepository encapsulates SLA config persistence. All reads and
// writes are tenant-scoped.
type SlaConfigRepository interface {
	Create(ctx context.Context, cfg *domain.SlaConfig) error
	Update(ctx context.Context, cfg *domain.SlaConfig) error
	Delete(ctx context.Context, tenantID, id string) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.SlaConfig, error)
	ListByTenant(ctx context.Context, tenantID string, filter ConfigFilter) ([]domain.SlaConfig, error)
	// FindActive returns the active config matching the exact
	// (tenantID, priority, categoryID) triple; a nil categoryID matches the
	// tenant-wide fallback row only.
	FindActive(ctx context.Context, tenantID string, priority domain.Priority, categoryID *string) (*domain.SlaConfig, error)
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSlaConfigRepository instantiates repository.
func NewSlaConfigRepository(pool *pgxpool.Pool) SlaConfigRepository {
	return &slaConfigRepository{pool: pool}
}

const configColumns = `id, tenant_id, category_id, priority, first_response_minutes, resolution_minutes,
               business_hours_start, business_hours_end, business_days, timezone, is_active, created_at, updated_at`

func (r *slaConfigRepository) Create(ctx context.Context, cfg *domain.SlaConfig) error {
	const query = `
        INSERT INTO sla_configs (tenant_id, category_id, priority, first_response_minutes, resolution_minutes,
            business_hours_start, business_hours_end, business_days, timezone, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		cfg.TenantID,
		cfg.CategoryID,
		cfg.Priority,
		cfg.FirstResponseMinutes,
		cfg.ResolutionMinutes,
		cfg.BusinessHoursStart,
		cfg.BusinessHoursEnd,
		cfg.BusinessDays,
		cfg.Timezone,
		cfg.IsActive,
	).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
}

func (r *slaConfigRepository) Update(ctx context.Context, cfg *domain.SlaConfig) error {
	const query = `
        UPDATE sla_configs SET category_id=$1, priority=$2, first_response_minutes=$3, resolution_minutes=$4,
            business_hours_start=$5, business_hours_end=$6, business_days=$7, timezone=$8, is_active=$9, updated_at=NOW()
        WHERE id=$10 AND tenant_id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		cfg.CategoryID,
		cfg.Priority,
		cfg.FirstResponseMinutes,
		cfg.ResolutionMinutes,
		cfg.BusinessHoursStart,
		cfg.BusinessHoursEnd,
		cfg.BusinessDays,
		cfg.Timezone,
		cfg.IsActive,
		cfg.ID,
		cfg.TenantID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaConfigRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sla_configs WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaConfigRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.SlaConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM sla_configs WHERE id=$1 AND tenant_id=$2`, configColumns)
	return r.fetchSingle(ctx, query, id, tenantID)
}

func (r *slaConfigRepository) FindActive(ctx context.Context, tenantID string, priority domain.Priority, categoryID *string) (*domain.SlaConfig, error) {
	if categoryID == nil {
		query := fmt.Sprintf(`SELECT %s FROM sla_configs
            WHERE tenant_id=$1 AND priority=$2 AND category_id IS NULL AND is_active`, configColumns)
		return r.fetchSingle(ctx, query, tenantID, priority)
	}
	query := fmt.Sprintf(`SELECT %s FROM sla_configs
        WHERE tenant_id=$1 AND priority=$2 AND category_id=$3 AND is_active`, configColumns)
	return r.fetchSingle(ctx, query, tenantID, priority, *categoryID)
}

func (r *slaConfigRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.SlaConfig, error) {
	var cfg domain.SlaConfig
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&cfg.ID,
		&cfg.TenantID,
		&cfg.CategoryID,
		&cfg.Priority,
		&cfg.FirstResponseMinutes,
		&cfg.ResolutionMinutes,
		&cfg.BusinessHoursStart,
		&cfg.BusinessHoursEnd,
		&cfg.BusinessDays,
		&cfg.Timezone,
		&cfg.IsActive,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *slaConfigRepository) ListByTenant(ctx context.Context, tenantID string, filter ConfigFilter) ([]domain.SlaConfig, error) {
	base := fmt.Sprintf(`SELECT %s FROM sla_configs`, configColumns)
	clauses := []string{"tenant_id=$1"}
	args := []any{tenantID}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY priority, category_id NULLS FIRST LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

func scanConfigs(rows pgx.Rows) ([]domain.SlaConfig, error) {
	var result []domain.SlaConfig
	for rows.Next() {
		var cfg domain.SlaConfig
		if err := rows.Scan(
			&cfg.ID,
			&cfg.TenantID,
			&cfg.CategoryID,
			&cfg.Priority,
			&cfg.FirstResponseMinutes,
			&cfg.ResolutionMinutes,
			&cfg.BusinessHoursStart,
			&cfg.BusinessHoursEnd,
			&cfg.BusinessDays,
			&cfg.Timezone,
			&cfg.IsActive,
			&cfg.CreatedAt,
			&cfg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}
