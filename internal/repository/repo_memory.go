package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-service/internal/domain"
)

// In-memory implementations backing unit tests. They mirror the semantics of
// the pgx repositories, including the conditional write-once claims.

// MemoryConfigRepo is an in-memory SlaConfigRepository.
type MemoryConfigRepo struct {
	mu      sync.Mutex
	seq     int
	Configs map[string]*domain.SlaConfig
}

// NewMemoryConfigRepo builds an empty repo.
func NewMemoryConfigRepo() *MemoryConfigRepo {
	return &MemoryConfigRepo{Configs: make(map[string]*domain.SlaConfig)}
}

func (m *MemoryConfigRepo) nextID(prefix string) string {
	m.seq++
	return prefix + "-" + strconv.Itoa(m.seq)
}

func (m *MemoryConfigRepo) Create(_ context.Context, cfg *domain.SlaConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.ID = m.nextID("cfg")
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	copied := *cfg
	m.Configs[cfg.ID] = &copied
	return nil
}

func (m *MemoryConfigRepo) Update(_ context.Context, cfg *domain.SlaConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Configs[cfg.ID]
	if !ok || existing.TenantID != cfg.TenantID {
		return pgx.ErrNoRows
	}
	cfg.UpdatedAt = time.Now().UTC()
	copied := *cfg
	m.Configs[cfg.ID] = &copied
	return nil
}

func (m *MemoryConfigRepo) Delete(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Configs[id]
	if !ok || existing.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	delete(m.Configs, id)
	return nil
}

func (m *MemoryConfigRepo) GetByID(_ context.Context, tenantID, id string) (*domain.SlaConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Configs[id]
	if !ok || existing.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	copied := *existing
	return &copied, nil
}

func (m *MemoryConfigRepo) ListByTenant(_ context.Context, tenantID string, filter ConfigFilter) ([]domain.SlaConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.SlaConfig
	for _, cfg := range m.Configs {
		if cfg.TenantID != tenantID {
			continue
		}
		if filter.CategoryID != nil && (cfg.CategoryID == nil || *cfg.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.Priority != nil && cfg.Priority != *filter.Priority {
			continue
		}
		if filter.IsActive != nil && cfg.IsActive != *filter.IsActive {
			continue
		}
		result = append(result, *cfg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MemoryConfigRepo) FindActive(_ context.Context, tenantID string, priority domain.Priority, categoryID *string) (*domain.SlaConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cfg := range m.Configs {
		if cfg.TenantID != tenantID || cfg.Priority != priority || !cfg.IsActive {
			continue
		}
		if categoryID == nil {
			if cfg.CategoryID == nil {
				copied := *cfg
				return &copied, nil
			}
			continue
		}
		if cfg.CategoryID != nil && *cfg.CategoryID == *categoryID {
			copied := *cfg
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// MemoryStatusRepo is an in-memory SlaStatusRepository keyed by ticket ID.
type MemoryStatusRepo struct {
	mu       sync.Mutex
	seq      int
	Statuses map[string]*domain.SlaStatus // ticketID -> row
}

// NewMemoryStatusRepo builds an empty repo.
func NewMemoryStatusRepo() *MemoryStatusRepo {
	return &MemoryStatusRepo{Statuses: make(map[string]*domain.SlaStatus)}
}

func (m *MemoryStatusRepo) Create(_ context.Context, status *domain.SlaStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Statuses[status.TicketID]; exists {
		return pgx.ErrTooManyRows
	}
	m.seq++
	status.ID = "st-" + strconv.Itoa(m.seq)
	now := time.Now().UTC()
	status.CreatedAt = now
	status.UpdatedAt = now
	copied := *status
	m.Statuses[status.TicketID] = &copied
	return nil
}

func (m *MemoryStatusRepo) GetByTicketID(_ context.Context, tenantID, ticketID string) (*domain.SlaStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.Statuses[ticketID]
	if !ok || st.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	copied := *st
	return &copied, nil
}

func (m *MemoryStatusRepo) ClaimFirstResponse(_ context.Context, tenantID, ticketID string, claim LegClaim) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.Statuses[ticketID]
	if !ok || st.TenantID != tenantID || st.FirstResponseAt != nil {
		return false, nil
	}
	at := claim.At
	spent := claim.SpentMin
	st.FirstResponseAt = &at
	st.FirstResponseTimeSpent = &spent
	st.FirstResponseStatus = claim.Status
	st.FirstResponseBreachedAt = claim.BreachedAt
	st.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryStatusRepo) ClaimResolution(_ context.Context, tenantID, ticketID string, claim LegClaim) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.Statuses[ticketID]
	if !ok || st.TenantID != tenantID || st.ResolvedAt != nil {
		return false, nil
	}
	at := claim.At
	spent := claim.SpentMin
	st.ResolvedAt = &at
	st.ResolutionTimeSpent = &spent
	st.ResolutionStatus = claim.Status
	st.ResolutionBreachedAt = claim.BreachedAt
	st.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryStatusRepo) UpdateDerived(_ context.Context, status *domain.SlaStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.Statuses[status.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	st.FirstResponseDueAt = status.FirstResponseDueAt
	st.ResolutionDueAt = status.ResolutionDueAt
	st.FirstResponseStatus = status.FirstResponseStatus
	st.ResolutionStatus = status.ResolutionStatus
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStatusRepo) MarkFirstResponseBreached(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.Statuses {
		if st.ID != id {
			continue
		}
		if st.FirstResponseAt != nil || st.FirstResponseBreachedAt != nil {
			return false, nil
		}
		stamped := at
		st.FirstResponseBreachedAt = &stamped
		st.FirstResponseStatus = domain.LegStatusBreached
		st.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, nil
}

func (m *MemoryStatusRepo) MarkResolutionBreached(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.Statuses {
		if st.ID != id {
			continue
		}
		if st.ResolvedAt != nil || st.ResolutionBreachedAt != nil {
			return false, nil
		}
		stamped := at
		st.ResolutionBreachedAt = &stamped
		st.ResolutionStatus = domain.LegStatusBreached
		st.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, nil
}

func (m *MemoryStatusRepo) ListOpenPastDue(_ context.Context, now time.Time, limit int) ([]domain.SlaStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.SlaStatus
	for _, st := range m.Statuses {
		frOverdue := st.FirstResponseAt == nil && st.FirstResponseBreachedAt == nil && !st.FirstResponseDueAt.After(now)
		resOverdue := st.ResolvedAt == nil && st.ResolutionBreachedAt == nil && !st.ResolutionDueAt.After(now)
		if frOverdue || resOverdue {
			result = append(result, *st)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStatusRepo) ListByTenant(_ context.Context, tenantID string, filter StatusFilter) ([]domain.SlaStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var result []domain.SlaStatus
	for _, st := range m.Statuses {
		if st.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && st.FirstResponseStatus != *filter.Status && st.ResolutionStatus != *filter.Status {
			continue
		}
		if filter.OpenLeg && st.FirstResponseAt != nil && st.ResolvedAt != nil {
			continue
		}
		if filter.Overdue {
			frOverdue := st.FirstResponseAt == nil && !st.FirstResponseDueAt.After(now)
			resOverdue := st.ResolvedAt == nil && !st.ResolutionDueAt.After(now)
			if !frOverdue && !resOverdue {
				continue
			}
		}
		if filter.DueToday {
			dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			dayEnd := dayStart.Add(24 * time.Hour)
			frToday := st.FirstResponseAt == nil && !st.FirstResponseDueAt.Before(dayStart) && st.FirstResponseDueAt.Before(dayEnd)
			resToday := st.ResolvedAt == nil && !st.ResolutionDueAt.Before(dayStart) && st.ResolutionDueAt.Before(dayEnd)
			if !frToday && !resToday {
				continue
			}
		}
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// MemoryLogRepo is an in-memory SlaLogRepository.
type MemoryLogRepo struct {
	mu   sync.Mutex
	seq  int
	Logs []domain.SlaLog
}

// NewMemoryLogRepo builds an empty repo.
func NewMemoryLogRepo() *MemoryLogRepo {
	return &MemoryLogRepo{}
}

func (m *MemoryLogRepo) Append(_ context.Context, entry *domain.SlaLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	entry.ID = "log-" + strconv.Itoa(m.seq)
	entry.CreatedAt = time.Now().UTC()
	m.Logs = append(m.Logs, *entry)
	return nil
}

func (m *MemoryLogRepo) ListByTenant(_ context.Context, tenantID string, filter LogFilter) ([]domain.SlaLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.SlaLog
	for _, entry := range m.Logs {
		if entry.TenantID != tenantID {
			continue
		}
		if filter.TicketID != nil && (entry.TicketID == nil || *entry.TicketID != *filter.TicketID) {
			continue
		}
		if filter.Action != nil && entry.Action != *filter.Action {
			continue
		}
		if filter.EventType != nil && entry.EventType != *filter.EventType {
			continue
		}
		if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.CreatedAt.After(*filter.To) {
			continue
		}
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}
