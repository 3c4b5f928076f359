package models

import (
	"time"

	"gorm.io/gorm"

	"mpp-antrian/internal/core/domain"
)

// User is an authenticated account: a visitor taking tickets, an officer
// serving them, or an administrator.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"size:50;uniqueIndex;not null" json:"username"`
	FullName  string         `gorm:"size:100;not null" json:"full_name"`
	Email     *string        `gorm:"size:100" json:"email,omitempty"`
	Password  string         `gorm:"size:100;not null" json:"-"`
	Role      domain.Role    `gorm:"size:10;default:'VISITOR';not null" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Service{},
		&ServiceSchedule{},
		&Officer{},
		&Queue{},
		&QueueCounter{},
		&QueueLog{},
	)
}

// DateOf truncates t to its calendar day, matching how queue_date is stored.
func DateOf(t time.Time) time.Time {
	return t.Truncate(24 * time.Hour)
}
