package handlers

import (
	"strconv"
	"time"

	"mpp-antrian/internal/core/services"
	"mpp-antrian/internal/pkg/pagination"
	"mpp-antrian/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles catalog management and reporting endpoints
type AdminHandler struct {
	catalogService *services.CatalogService
	statsService   *services.StatsService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(catalogService *services.CatalogService, statsService *services.StatsService) *AdminHandler {
	return &AdminHandler{
		catalogService: catalogService,
		statsService:   statsService,
	}
}

// ============================================================
// Service catalog
// ============================================================

// ListServices handles GET /api/v1/admin/services
func (h *AdminHandler) ListServices(c *fiber.Ctx) error {
	servicesList, err := h.catalogService.ListServices()
	if err != nil {
		return response.InternalServerError(c, "Failed to list services")
	}
	return response.Success(c, "Services retrieved", servicesList)
}

// GetService handles GET /api/v1/admin/services/:id
func (h *AdminHandler) GetService(c *fiber.Ctx) error {
	serviceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid service ID")
	}

	service, err := h.catalogService.GetService(uint(serviceID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Service retrieved", service)
}

// CreateService handles POST /api/v1/admin/services
func (h *AdminHandler) CreateService(c *fiber.Ctx) error {
	var input services.ServiceInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	service, err := h.catalogService.CreateService(&input)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Created(c, "Service created", service)
}

// UpdateService handles PATCH /api/v1/admin/services/:id
func (h *AdminHandler) UpdateService(c *fiber.Ctx) error {
	serviceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid service ID")
	}

	var input services.ServiceUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	service, err := h.catalogService.UpdateService(uint(serviceID), &input)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Service updated", service)
}

// SetSchedules handles PUT /api/v1/admin/services/:id/schedules
func (h *AdminHandler) SetSchedules(c *fiber.Ctx) error {
	serviceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid service ID")
	}

	var input struct {
		Schedules []services.ScheduleInput `json:"schedules"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	service, err := h.catalogService.SetSchedules(uint(serviceID), input.Schedules)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Schedules updated", service)
}

// ============================================================
// Officers
// ============================================================

// ListOfficers handles GET /api/v1/admin/services/:id/officers
func (h *AdminHandler) ListOfficers(c *fiber.Ctx) error {
	serviceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid service ID")
	}

	officers, err := h.catalogService.ListOfficers(uint(serviceID))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Officers retrieved", officers)
}

// CreateOfficer handles POST /api/v1/admin/officers
func (h *AdminHandler) CreateOfficer(c *fiber.Ctx) error {
	var input services.OfficerInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.UserID == 0 || input.ServiceID == 0 {
		return response.BadRequest(c, "user_id and service_id are required")
	}

	officer, err := h.catalogService.CreateOfficer(&input)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Created(c, "Officer created", officer)
}

// UpdateOfficer handles PATCH /api/v1/admin/officers/:id
func (h *AdminHandler) UpdateOfficer(c *fiber.Ctx) error {
	officerID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid officer ID")
	}

	var input services.OfficerUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	officer, err := h.catalogService.UpdateOfficer(uint(officerID), &input)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Officer updated", officer)
}

// ============================================================
// Reporting
// ============================================================

// GetDailyStatistics handles GET /api/v1/admin/statistics?date=2026-08-30&service_id=1
func (h *AdminHandler) GetDailyStatistics(c *fiber.Ctx) error {
	day, err := parseDay(c.Query("date"))
	if err != nil {
		return response.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
	}
	serviceID := parseServiceFilter(c)

	stats, err := h.statsService.DailyStatistics(day, serviceID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Statistics retrieved", stats)
}

// GetHistory handles GET /api/v1/admin/history?date=2026-08-30&service_id=1&page=1
func (h *AdminHandler) GetHistory(c *fiber.Ctx) error {
	day, err := parseDay(c.Query("date"))
	if err != nil {
		return response.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
	}
	serviceID := parseServiceFilter(c)
	params := pagination.GetParams(c)

	queues, total, err := h.statsService.History(day, serviceID, params.Offset, params.Limit)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessWithMeta(c, "History retrieved", queues, pagination.NewMeta(params, total))
}

// parseDay parses the optional date query; empty means today.
func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", raw)
}
