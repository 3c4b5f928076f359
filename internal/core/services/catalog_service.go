package services

import (
	"strings"
	"time"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/adapters/persistence/repositories"
	"mpp-antrian/internal/core/domain"
)

// CatalogService manages the service and officer catalog (admin side).
type CatalogService struct {
	catalogRepo *repositories.CatalogRepository
	userRepo    *repositories.UserRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalogRepo *repositories.CatalogRepository, userRepo *repositories.UserRepository) *CatalogService {
	return &CatalogService{
		catalogRepo: catalogRepo,
		userRepo:    userRepo,
	}
}

// ============================================================
// Services
// ============================================================

// ServiceInput carries a create request for a service
type ServiceInput struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Prefix     string `json:"prefix"`
	AvgMinutes int    `json:"avg_minutes"`
	DailyQuota int    `json:"daily_quota"`
	SortOrder  int    `json:"sort_order"`
}

// ServiceUpdateInput carries a partial update; nil fields are untouched
type ServiceUpdateInput struct {
	Name       *string `json:"name"`
	AvgMinutes *int    `json:"avg_minutes"`
	DailyQuota *int    `json:"daily_quota"`
	SortOrder  *int    `json:"sort_order"`
	IsActive   *bool   `json:"is_active"`
}

// ScheduleInput is one weekly open window
type ScheduleInput struct {
	Weekday   int    `json:"weekday"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

// ListServices returns every service including inactive ones.
func (s *CatalogService) ListServices() ([]models.Service, error) {
	return s.catalogRepo.GetAllServices()
}

// GetService returns one service with its schedules.
func (s *CatalogService) GetService(id uint) (*models.Service, error) {
	service, err := s.catalogRepo.GetServiceByID(id)
	if err != nil {
		return nil, notFoundOrErr(err, "service")
	}
	return service, nil
}

// CreateService validates and stores a new service.
func (s *CatalogService) CreateService(input *ServiceInput) (*models.Service, error) {
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	input.Prefix = strings.ToUpper(strings.TrimSpace(input.Prefix))
	input.Name = strings.TrimSpace(input.Name)

	if input.Code == "" || input.Name == "" || input.Prefix == "" {
		return nil, domain.Validationf("code, name and prefix are required")
	}
	if len(input.Prefix) > 5 {
		return nil, domain.Validationf("prefix must be at most 5 characters")
	}
	if input.AvgMinutes <= 0 {
		return nil, domain.Validationf("avg_minutes must be positive")
	}
	if input.DailyQuota < 0 {
		return nil, domain.Validationf("daily_quota cannot be negative")
	}
	if _, err := s.catalogRepo.GetServiceByCode(input.Code); err == nil {
		return nil, domain.Conflictf("service code %s already exists", input.Code)
	}

	service := &models.Service{
		Code:       input.Code,
		Name:       input.Name,
		Prefix:     input.Prefix,
		AvgMinutes: input.AvgMinutes,
		DailyQuota: input.DailyQuota,
		SortOrder:  input.SortOrder,
		IsActive:   true,
	}
	if err := s.catalogRepo.CreateService(service); err != nil {
		return nil, err
	}
	return service, nil
}

// UpdateService applies a partial update to a service.
func (s *CatalogService) UpdateService(id uint, input *ServiceUpdateInput) (*models.Service, error) {
	if _, err := s.catalogRepo.GetServiceByID(id); err != nil {
		return nil, notFoundOrErr(err, "service")
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domain.Validationf("name cannot be empty")
		}
		updates["name"] = name
	}
	if input.AvgMinutes != nil {
		if *input.AvgMinutes <= 0 {
			return nil, domain.Validationf("avg_minutes must be positive")
		}
		updates["avg_minutes"] = *input.AvgMinutes
	}
	if input.DailyQuota != nil {
		if *input.DailyQuota < 0 {
			return nil, domain.Validationf("daily_quota cannot be negative")
		}
		updates["daily_quota"] = *input.DailyQuota
	}
	if input.SortOrder != nil {
		updates["sort_order"] = *input.SortOrder
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, domain.Validationf("nothing to update")
	}

	if err := s.catalogRepo.UpdateService(id, updates); err != nil {
		return nil, err
	}
	return s.catalogRepo.GetServiceByID(id)
}

// SetSchedules replaces a service's weekly schedule.
func (s *CatalogService) SetSchedules(serviceID uint, inputs []ScheduleInput) (*models.Service, error) {
	if _, err := s.catalogRepo.GetServiceByID(serviceID); err != nil {
		return nil, notFoundOrErr(err, "service")
	}

	schedules := make([]models.ServiceSchedule, 0, len(inputs))
	for _, in := range inputs {
		if in.Weekday < 0 || in.Weekday > 6 {
			return nil, domain.Validationf("weekday must be between 0 (Sunday) and 6 (Saturday)")
		}
		open, err := parseClock(in.OpenTime)
		if err != nil {
			return nil, domain.Validationf("invalid open_time %q, expected HH:MM", in.OpenTime)
		}
		closeAt, err := parseClock(in.CloseTime)
		if err != nil {
			return nil, domain.Validationf("invalid close_time %q, expected HH:MM", in.CloseTime)
		}
		if !open.Before(closeAt) {
			return nil, domain.Validationf("open_time must be before close_time")
		}
		schedules = append(schedules, models.ServiceSchedule{
			ServiceID: serviceID,
			Weekday:   in.Weekday,
			OpenTime:  in.OpenTime,
			CloseTime: in.CloseTime,
		})
	}

	if err := s.catalogRepo.ReplaceSchedules(serviceID, schedules); err != nil {
		return nil, err
	}
	return s.catalogRepo.GetServiceByID(serviceID)
}

// ============================================================
// Officers
// ============================================================

// OfficerInput carries a create request for an officer binding
type OfficerInput struct {
	UserID        uint   `json:"user_id"`
	ServiceID     uint   `json:"service_id"`
	CounterName   string `json:"counter_name"`
	MaxConcurrent int    `json:"max_concurrent"`
}

// OfficerUpdateInput carries a partial officer update
type OfficerUpdateInput struct {
	CounterName   *string `json:"counter_name"`
	MaxConcurrent *int    `json:"max_concurrent"`
	IsActive      *bool   `json:"is_active"`
}

// ListOfficers returns the officers bound to a service.
func (s *CatalogService) ListOfficers(serviceID uint) ([]models.Officer, error) {
	if _, err := s.catalogRepo.GetServiceByID(serviceID); err != nil {
		return nil, notFoundOrErr(err, "service")
	}
	return s.catalogRepo.ListOfficersByService(serviceID)
}

// CreateOfficer binds a staff user to a counter on a service. The user must
// hold the officer role and may have only one active binding at a time.
func (s *CatalogService) CreateOfficer(input *OfficerInput) (*models.Officer, error) {
	input.CounterName = strings.TrimSpace(input.CounterName)
	if input.CounterName == "" {
		return nil, domain.Validationf("counter_name is required")
	}
	if input.MaxConcurrent < 1 {
		input.MaxConcurrent = 1
	}

	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, notFoundOrErr(err, "user")
	}
	if user.Role != domain.RoleOfficer {
		return nil, domain.Validationf("user %s does not hold the officer role", user.Username)
	}
	if _, err := s.catalogRepo.GetServiceByID(input.ServiceID); err != nil {
		return nil, notFoundOrErr(err, "service")
	}
	taken, err := s.catalogRepo.HasActiveOfficer(input.UserID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.Conflictf("user %s is already bound to a counter", user.Username)
	}

	officer := &models.Officer{
		UserID:        input.UserID,
		ServiceID:     input.ServiceID,
		CounterName:   input.CounterName,
		MaxConcurrent: input.MaxConcurrent,
		IsActive:      true,
	}
	if err := s.catalogRepo.CreateOfficer(officer); err != nil {
		return nil, err
	}
	return s.catalogRepo.GetOfficerByID(officer.ID)
}

// UpdateOfficer applies a partial update to an officer binding.
func (s *CatalogService) UpdateOfficer(id uint, input *OfficerUpdateInput) (*models.Officer, error) {
	if _, err := s.catalogRepo.GetOfficerByID(id); err != nil {
		return nil, notFoundOrErr(err, "officer")
	}

	updates := map[string]interface{}{}
	if input.CounterName != nil {
		name := strings.TrimSpace(*input.CounterName)
		if name == "" {
			return nil, domain.Validationf("counter_name cannot be empty")
		}
		updates["counter_name"] = name
	}
	if input.MaxConcurrent != nil {
		if *input.MaxConcurrent < 1 {
			return nil, domain.Validationf("max_concurrent must be at least 1")
		}
		updates["max_concurrent"] = *input.MaxConcurrent
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
		if !*input.IsActive {
			// A deactivated officer cannot stay open for dispatch.
			updates["is_available"] = false
		}
	}
	if len(updates) == 0 {
		return nil, domain.Validationf("nothing to update")
	}

	if err := s.catalogRepo.UpdateOfficer(id, updates); err != nil {
		return nil, err
	}
	return s.catalogRepo.GetOfficerByID(id)
}

// parseClock parses a "HH:MM" wall-clock string.
func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", s)
}
