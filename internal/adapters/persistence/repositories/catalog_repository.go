package repositories

import (
	"gorm.io/gorm"

	"mpp-antrian/internal/adapters/persistence/models"
)

// CatalogRepository handles the administered service catalog and officer
// records. The engine only reads these, plus the officer availability flag.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ============================================================
// Service queries
// ============================================================

// GetActiveServices returns all active services in display order
func (r *CatalogRepository) GetActiveServices() ([]models.Service, error) {
	var services []models.Service
	err := r.db.
		Preload("Schedules").
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&services).Error
	return services, err
}

// GetAllServices returns every service, active or not
func (r *CatalogRepository) GetAllServices() ([]models.Service, error) {
	var services []models.Service
	err := r.db.
		Preload("Schedules").
		Order("sort_order ASC, id ASC").
		Find(&services).Error
	return services, err
}

// GetServiceByID returns a service with its schedule windows
func (r *CatalogRepository) GetServiceByID(id uint) (*models.Service, error) {
	var service models.Service
	err := r.db.Preload("Schedules").First(&service, id).Error
	return &service, err
}

// GetServiceByCode returns a service by its unique code
func (r *CatalogRepository) GetServiceByCode(code string) (*models.Service, error) {
	var service models.Service
	err := r.db.Preload("Schedules").Where("code = ?", code).First(&service).Error
	return &service, err
}

// CreateService creates a new service
func (r *CatalogRepository) CreateService(service *models.Service) error {
	return r.db.Create(service).Error
}

// UpdateService updates mutable service fields
func (r *CatalogRepository) UpdateService(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Service{}).Where("id = ?", id).Updates(updates).Error
}

// ReplaceSchedules swaps a service's weekly schedule for a new set
func (r *CatalogRepository) ReplaceSchedules(serviceID uint, schedules []models.ServiceSchedule) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_id = ?", serviceID).
			Delete(&models.ServiceSchedule{}).Error; err != nil {
			return err
		}
		for i := range schedules {
			schedules[i].ServiceID = serviceID
		}
		if len(schedules) == 0 {
			return nil
		}
		return tx.Create(&schedules).Error
	})
}

// ============================================================
// Officer queries
// ============================================================

// GetOfficerByID returns an officer with user and service preloaded
func (r *CatalogRepository) GetOfficerByID(id uint) (*models.Officer, error) {
	var officer models.Officer
	err := r.db.Preload("User").Preload("Service").First(&officer, id).Error
	return &officer, err
}

// GetActiveOfficerByUserID returns the active officer record for a user,
// or gorm.ErrRecordNotFound when the user is not an officer anywhere.
func (r *CatalogRepository) GetActiveOfficerByUserID(userID uint) (*models.Officer, error) {
	var officer models.Officer
	err := r.db.
		Preload("User").
		Preload("Service").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&officer).Error
	return &officer, err
}

// ListOfficersByService returns active officers for a service
func (r *CatalogRepository) ListOfficersByService(serviceID uint) ([]models.Officer, error) {
	var officers []models.Officer
	err := r.db.
		Preload("User").
		Where("service_id = ? AND is_active = ?", serviceID, true).
		Order("counter_name ASC").
		Find(&officers).Error
	return officers, err
}

// CreateOfficer creates an officer record. Fails with ErrDuplicatedKey
// semantics via HasActiveOfficer; callers check first since only one active
// officer record may exist per user.
func (r *CatalogRepository) CreateOfficer(officer *models.Officer) error {
	return r.db.Create(officer).Error
}

// HasActiveOfficer reports whether the user already has an active officer
// record.
func (r *CatalogRepository) HasActiveOfficer(userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Officer{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count > 0, err
}

// SetOfficerAvailability flips the availability flag (counter open/closed)
func (r *CatalogRepository) SetOfficerAvailability(officerID uint, available bool) error {
	return r.db.Model(&models.Officer{}).
		Where("id = ?", officerID).
		Update("is_available", available).Error
}

// UpdateOfficer updates mutable officer fields
func (r *CatalogRepository) UpdateOfficer(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Officer{}).Where("id = ?", id).Updates(updates).Error
}
