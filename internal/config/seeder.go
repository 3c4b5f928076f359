package config

import (
	"log"

	"gorm.io/gorm"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/core/domain"
	"mpp-antrian/internal/pkg/password"
)

// SeedData loads the default admin account, services, and counters. Every
// step is idempotent: existing rows are left untouched.
func SeedData(db *gorm.DB) error {
	if err := seedUsers(db); err != nil {
		return err
	}
	if err := seedServices(db); err != nil {
		return err
	}
	if err := seedOfficers(db); err != nil {
		return err
	}
	log.Println("✅ Seed data loaded successfully")
	return nil
}

func seedUsers(db *gorm.DB) error {
	users := []struct {
		username string
		fullName string
		role     domain.Role
		pass     string
	}{
		{"admin", "Administrator MPP", domain.RoleAdmin, "admin12345"},
		{"loket1", "Petugas Loket 1", domain.RoleOfficer, "loket12345"},
		{"loket2", "Petugas Loket 2", domain.RoleOfficer, "loket12345"},
	}

	for _, u := range users {
		var existing models.User
		err := db.Where("username = ?", u.username).First(&existing).Error
		if err != gorm.ErrRecordNotFound {
			if err != nil {
				return err
			}
			continue
		}
		hashed, err := password.Hash(u.pass)
		if err != nil {
			return err
		}
		user := models.User{
			Username: u.username,
			FullName: u.fullName,
			Password: hashed,
			Role:     u.role,
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		log.Printf("   Created user: %s (%s)", u.username, u.role)
	}
	return nil
}

func seedServices(db *gorm.DB) error {
	weekdays := func(open, close string) []models.ServiceSchedule {
		var rows []models.ServiceSchedule
		for day := 1; day <= 5; day++ { // Monday..Friday
			rows = append(rows, models.ServiceSchedule{Weekday: day, OpenTime: open, CloseTime: close})
		}
		return rows
	}

	services := []models.Service{
		{Code: "UMUM", Name: "Pelayanan Umum", Prefix: "A", AvgMinutes: 15, SortOrder: 1, IsActive: true, Schedules: weekdays("08:00", "15:00")},
		{Code: "PAJAK", Name: "Pelayanan Pajak Daerah", Prefix: "B", AvgMinutes: 20, DailyQuota: 200, SortOrder: 2, IsActive: true, Schedules: weekdays("08:00", "14:00")},
		{Code: "DUKCAPIL", Name: "Kependudukan dan Catatan Sipil", Prefix: "C", AvgMinutes: 10, SortOrder: 3, IsActive: true, Schedules: weekdays("08:00", "15:00")},
	}

	for _, s := range services {
		var existing models.Service
		err := db.Where("code = ?", s.Code).First(&existing).Error
		if err != gorm.ErrRecordNotFound {
			if err != nil {
				return err
			}
			continue
		}
		if err := db.Create(&s).Error; err != nil {
			return err
		}
		log.Printf("   Created service: %s (%s)", s.Code, s.Prefix)
	}
	return nil
}

func seedOfficers(db *gorm.DB) error {
	assignments := []struct {
		username    string
		serviceCode string
		counter     string
	}{
		{"loket1", "UMUM", "Loket 1"},
		{"loket2", "DUKCAPIL", "Loket 2"},
	}

	for _, a := range assignments {
		var user models.User
		if err := db.Where("username = ?", a.username).First(&user).Error; err != nil {
			log.Printf("⚠️ Skipping officer seed: user %s not found", a.username)
			continue
		}
		var service models.Service
		if err := db.Where("code = ?", a.serviceCode).First(&service).Error; err != nil {
			log.Printf("⚠️ Skipping officer seed: service %s not found", a.serviceCode)
			continue
		}

		var existing models.Officer
		err := db.Where("user_id = ? AND is_active = ?", user.ID, true).First(&existing).Error
		if err != gorm.ErrRecordNotFound {
			if err != nil {
				return err
			}
			continue
		}
		officer := models.Officer{
			UserID:        user.ID,
			ServiceID:     service.ID,
			CounterName:   a.counter,
			MaxConcurrent: 1,
			IsActive:      true,
		}
		if err := db.Create(&officer).Error; err != nil {
			return err
		}
		log.Printf("   Created officer: %s at %s", a.username, a.counter)
	}
	return nil
}
