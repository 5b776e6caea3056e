package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-service/internal/api/dto"
	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/service"
	apperrors "github.com/spec-kit/sla-service/pkg/util"
)

// SlaConfigsHandler exposes SLA configuration CRUD.
type SlaConfigsHandler struct {
	configs *service.ConfigService
}

// NewSlaConfigsHandler constructs handler.
func NewSlaConfigsHandler(configs *service.ConfigService) *SlaConfigsHandler {
	return &SlaConfigsHandler{configs: configs}
}

// List GET /sla/configs.
func (h *SlaConfigsHandler) List(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.ConfigFilter{}
	if categoryID := c.Query("categoryId"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		priority := domain.Priority(priorityStr)
		filter.Priority = &priority
	}
	if activeStr := c.Query("isActive"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return apperrors.NewValidationError("isActive must be a boolean", nil)
		}
		filter.IsActive = &active
	}
	filter.Limit, filter.Offset = parsePagination(c)

	configs, err := h.configs.List(c.UserContext(), tc.TenantID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.SlaConfigResponse, 0, len(configs))
	for i := range configs {
		items = append(items, configResponse(&configs[i]))
	}
	return c.JSON(dto.OK(items))
}

// Get GET /sla/configs/:id.
func (h *SlaConfigsHandler) Get(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	cfg, err := h.configs.Get(c.UserContext(), tc.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(configResponse(cfg)))
}

// Create POST /sla/configs.
func (h *SlaConfigsHandler) Create(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateSlaConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.ConfigCreateInput{
		CategoryID:           normalizeCategory(req.CategoryID),
		Priority:             domain.Priority(req.Priority),
		FirstResponseMinutes: req.FirstResponseMinutes,
		ResolutionMinutes:    req.ResolutionMinutes,
		BusinessHoursStart:   req.BusinessHoursStart,
		BusinessHoursEnd:     req.BusinessHoursEnd,
		BusinessDays:         req.BusinessDays,
		Timezone:             req.Timezone,
		IsActive:             req.IsActive,
	}
	cfg, err := h.configs.Create(c.UserContext(), tc, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OKWithMessage(configResponse(cfg), "SLA configuration created"))
}

// Update PATCH /sla/configs/:id.
func (h *SlaConfigsHandler) Update(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateSlaConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.ConfigUpdateInput{
		FirstResponseMinutes: req.FirstResponseMinutes,
		ResolutionMinutes:    req.ResolutionMinutes,
		BusinessHoursStart:   req.BusinessHoursStart,
		BusinessHoursEnd:     req.BusinessHoursEnd,
		BusinessDays:         req.BusinessDays,
		Timezone:             req.Timezone,
		IsActive:             req.IsActive,
	}
	if req.CategoryID != nil {
		if strings.TrimSpace(*req.CategoryID) == "" {
			input.ClearCategory = true
		} else {
			input.CategoryID = req.CategoryID
		}
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		input.Priority = &priority
	}

	cfg, err := h.configs.Update(c.UserContext(), tc, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.OKWithMessage(configResponse(cfg), "SLA configuration updated"))
}

// Delete DELETE /sla/configs/:id.
func (h *SlaConfigsHandler) Delete(c *fiber.Ctx) error {
	tc, ok := auth.TenantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.configs.Delete(c.UserContext(), tc, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.OKWithMessage(nil, "SLA configuration deleted"))
}

func normalizeCategory(categoryID *string) *string {
	if categoryID == nil || strings.TrimSpace(*categoryID) == "" {
		return nil
	}
	return categoryID
}

func parsePagination(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("pageSize"), 50)
	return pageSize, (page - 1) * pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func configResponse(cfg *domain.SlaConfig) dto.SlaConfigResponse {
	return dto.SlaConfigResponse{
		ID:                   cfg.ID,
		TenantID:             cfg.TenantID,
		CategoryID:           cfg.CategoryID,
		Priority:             cfg.Priority,
		FirstResponseMinutes: cfg.FirstResponseMinutes,
		ResolutionMinutes:    cfg.ResolutionMinutes,
		BusinessHoursStart:   cfg.BusinessHoursStart,
		BusinessHoursEnd:     cfg.BusinessHoursEnd,
		BusinessDays:         cfg.BusinessDays,
		Timezone:             cfg.Timezone,
		IsActive:             cfg.IsActive,
		CreatedAt:            cfg.CreatedAt,
		UpdatedAt:            cfg.UpdatedAt,
	}
}
