package service

import (
	"context"
	"math"
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/repository"
)

// ComplianceBucket aggregates compliance counts for one slice of statuses.
type ComplianceBucket struct {
	Total          int     `json:"total"`
	Compliant      int     `json:"compliant"`
	AtRisk         int     `json:"atRisk"`
	Breached       int     `json:"breached"`
	ComplianceRate float64 `json:"complianceRate"`
}

// Report rolls up compliance over a tenant and date range.
type Report struct {
	TenantID      string                      `json:"tenantId"`
	StartDate     time.Time                   `json:"startDate"`
	EndDate       time.Time                   `json:"endDate"`
	Overall       ComplianceBucket            `json:"overall"`
	FirstResponse ComplianceBucket            `json:"firstResponse"`
	Resolution    ComplianceBucket            `json:"resolution"`
	ByPriority    map[string]ComplianceBucket `json:"byPriority"`
	ByCategory    map[string]ComplianceBucket `json:"byCategory"`
}

// Statistics is the date-unbounded variant of Report.
type Statistics struct {
	TenantID             string                      `json:"tenantId"`
	Overall              ComplianceBucket            `json:"overall"`
	FirstResponse        ComplianceBucket            `json:"firstResponse"`
	Resolution           ComplianceBucket            `json:"resolution"`
	ByPriority           map[string]ComplianceBucket `json:"byPriority"`
	AvgResponseMinutes   float64                     `json:"avgResponseMinutes"`
	AvgResolutionMinutes float64                     `json:"avgResolutionMinutes"`
}

// ReportService aggregates compliance counts and rates.
type ReportService struct {
	statuses repository.SlaStatusRepository
	configs  repository.SlaConfigRepository
}

// NewReportService constructs the service.
func NewReportService(statuses repository.SlaStatusRepository, configs repository.SlaConfigRepository) *ReportService {
	return &ReportService{statuses: statuses, configs: configs}
}

// GenerateReport aggregates statuses created inside [start, end].
func (s *ReportService) GenerateReport(ctx context.Context, tenantID string, start, end time.Time) (*Report, error) {
	statuses, err := s.statuses.ListByTenant(ctx, tenantID, repository.StatusFilter{Limit: 10000})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &Report{
		TenantID:   tenantID,
		StartDate:  start,
		EndDate:    end,
		ByPriority: map[string]ComplianceBucket{},
		ByCategory: map[string]ComplianceBucket{},
	}
	cache := map[string]*domain.SlaConfig{}

	for i := range statuses {
		status := &statuses[i]
		if status.CreatedAt.Before(start) || status.CreatedAt.After(end) {
			continue
		}
		cfg, ok := cache[status.SlaConfigID]
		if !ok {
			cfg, _ = s.configs.GetByID(ctx, tenantID, status.SlaConfigID)
			cache[status.SlaConfigID] = cfg
		}
		frStatus, resStatus := effectiveLegStatuses(status, cfg, now)

		countLeg(&report.FirstResponse, frStatus)
		countLeg(&report.Resolution, resStatus)
		overall := worstOf(frStatus, resStatus)
		countLeg(&report.Overall, overall)

		if cfg != nil {
			bucket := report.ByPriority[string(cfg.Priority)]
			countLeg(&bucket, overall)
			report.ByPriority[string(cfg.Priority)] = bucket

			category := "uncategorized"
			if cfg.CategoryID != nil {
				category = *cfg.CategoryID
			}
			catBucket := report.ByCategory[category]
			countLeg(&catBucket, overall)
			report.ByCategory[category] = catBucket
		}
	}

	finalizeBucket(&report.Overall)
	finalizeBucket(&report.FirstResponse)
	finalizeBucket(&report.Resolution)
	for key, bucket := range report.ByPriority {
		finalizeBucket(&bucket)
		report.ByPriority[key] = bucket
	}
	for key, bucket := range report.ByCategory {
		finalizeBucket(&bucket)
		report.ByCategory[key] = bucket
	}
	return report, nil
}

// GetStatistics aggregates all tracked tickets for the tenant, with average
// time-to-respond and time-to-resolve over completed legs.
func (s *ReportService) GetStatistics(ctx context.Context, tenantID string) (*Statistics, error) {
	statuses, err := s.statuses.ListByTenant(ctx, tenantID, repository.StatusFilter{Limit: 10000})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stats := &Statistics{
		TenantID:   tenantID,
		ByPriority: map[string]ComplianceBucket{},
	}
	cache := map[string]*domain.SlaConfig{}
	responseSum, responseCount := 0, 0
	resolutionSum, resolutionCount := 0, 0

	for i := range statuses {
		status := &statuses[i]
		cfg, ok := cache[status.SlaConfigID]
		if !ok {
			cfg, _ = s.configs.GetByID(ctx, tenantID, status.SlaConfigID)
			cache[status.SlaConfigID] = cfg
		}
		frStatus, resStatus := effectiveLegStatuses(status, cfg, now)

		countLeg(&stats.FirstResponse, frStatus)
		countLeg(&stats.Resolution, resStatus)
		overall := worstOf(frStatus, resStatus)
		countLeg(&stats.Overall, overall)

		if cfg != nil {
			bucket := stats.ByPriority[string(cfg.Priority)]
			countLeg(&bucket, overall)
			stats.ByPriority[string(cfg.Priority)] = bucket
		}
		if status.FirstResponseTimeSpent != nil {
			responseSum += *status.FirstResponseTimeSpent
			responseCount++
		}
		if status.ResolutionTimeSpent != nil {
			resolutionSum += *status.ResolutionTimeSpent
			resolutionCount++
		}
	}

	finalizeBucket(&stats.Overall)
	finalizeBucket(&stats.FirstResponse)
	finalizeBucket(&stats.Resolution)
	for key, bucket := range stats.ByPriority {
		finalizeBucket(&bucket)
		stats.ByPriority[key] = bucket
	}
	if responseCount > 0 {
		stats.AvgResponseMinutes = round2(float64(responseSum) / float64(responseCount))
	}
	if resolutionCount > 0 {
		stats.AvgResolutionMinutes = round2(float64(resolutionSum) / float64(resolutionCount))
	}
	return stats, nil
}

// effectiveLegStatuses returns each leg's status: stored terminal values for
// closed legs, clock-derived for open ones.
func effectiveLegStatuses(status *domain.SlaStatus, cfg *domain.SlaConfig, now time.Time) (domain.LegStatus, domain.LegStatus) {
	frStatus := status.FirstResponseStatus
	if status.FirstResponseOpen() {
		frStatus, _ = DeriveLeg(status.FirstResponseDueAt, windowMinutes(cfg, status, firstResponseLeg), now)
	}
	resStatus := status.ResolutionStatus
	if status.ResolutionOpen() {
		resStatus, _ = DeriveLeg(status.ResolutionDueAt, windowMinutes(cfg, status, resolutionLeg), now)
	}
	return frStatus, resStatus
}

func worstOf(a, b domain.LegStatus) domain.LegStatus {
	if a == domain.LegStatusBreached || b == domain.LegStatusBreached {
		return domain.LegStatusBreached
	}
	if a == domain.LegStatusAtRisk || b == domain.LegStatusAtRisk {
		return domain.LegStatusAtRisk
	}
	return domain.LegStatusCompliant
}

func countLeg(bucket *ComplianceBucket, status domain.LegStatus) {
	bucket.Total++
	switch status {
	case domain.LegStatusCompliant:
		bucket.Compliant++
	case domain.LegStatusAtRisk:
		bucket.AtRisk++
	case domain.LegStatusBreached:
		bucket.Breached++
	}
}

// finalizeBucket computes the compliance rate; an empty bucket reports 100 so
// a tenant with no tracked tickets is not flagged non-compliant.
func finalizeBucket(bucket *ComplianceBucket) {
	if bucket.Total == 0 {
		bucket.ComplianceRate = 100
		return
	}
	bucket.ComplianceRate = round2(float64(bucket.Compliant) / float64(bucket.Total) * 100)
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
