package models

import (
	"time"

	"mpp-antrian/internal/core/domain"
)

// ============================================================
// Queue System Tables
// ============================================================

// Service is one administered service desk type (e.g. UMUM, PAJAK).
type Service struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	Code       string            `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name       string            `gorm:"size:100;not null" json:"name"`
	Prefix     string            `gorm:"size:5;uniqueIndex;not null" json:"prefix"`
	AvgMinutes int               `gorm:"not null;default:10" json:"avg_minutes"`
	DailyQuota int               `gorm:"default:0" json:"daily_quota"` // 0 = unlimited
	SortOrder  int               `gorm:"default:0" json:"sort_order"`
	IsActive   bool              `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	Schedules  []ServiceSchedule `gorm:"foreignKey:ServiceID" json:"schedules,omitempty"`
}

func (Service) TableName() string {
	return "services"
}

// ServiceSchedule is one weekly open window for a service. A service with no
// schedule rows is treated as always open while active.
type ServiceSchedule struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ServiceID uint   `gorm:"not null;index" json:"service_id"`
	Weekday   int    `gorm:"not null" json:"weekday"` // 0 = Sunday .. 6 = Saturday
	OpenTime  string `gorm:"size:10;not null" json:"open_time"`  // "08:00"
	CloseTime string `gorm:"size:10;not null" json:"close_time"` // "16:00"
}

func (ServiceSchedule) TableName() string {
	return "service_schedules"
}

// Officer binds a staff user to a service and a physical counter.
// At most one active officer record may exist per user; the catalog
// repository enforces this on create.
type Officer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	ServiceID     uint      `gorm:"not null;index" json:"service_id"`
	CounterName   string    `gorm:"size:50;not null" json:"counter_name"`
	MaxConcurrent int       `gorm:"not null;default:1" json:"max_concurrent"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	IsAvailable   bool      `gorm:"default:false" json:"is_available"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	User          *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Service       *Service  `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (Officer) TableName() string {
	return "officers"
}

// Queue is one visitor's ticket for one service on one day.
type Queue struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	Number            string        `gorm:"size:20;not null;uniqueIndex:idx_queue_number_day" json:"number"`
	ServiceID         uint          `gorm:"not null;index;uniqueIndex:idx_queue_number_day" json:"service_id"`
	QueueDate         time.Time     `gorm:"type:date;not null;index;uniqueIndex:idx_queue_number_day" json:"queue_date"`
	RequesterID       *uint         `gorm:"index" json:"requester_id,omitempty"`
	OfficerID         *uint         `gorm:"index" json:"officer_id,omitempty"`
	TransferredFromID *uint         `gorm:"index" json:"transferred_from_id,omitempty"`
	Priority          bool          `gorm:"default:false" json:"priority"`
	Status            domain.Status `gorm:"size:15;default:'waiting';index" json:"status"`
	Channel           string        `gorm:"size:10;not null;default:'kiosk'" json:"channel"` // online|kiosk|manual
	EstimatedMinutes  int           `gorm:"default:0" json:"estimated_minutes"`
	NotifySent        bool          `gorm:"default:false" json:"notify_sent"`
	CreatedAt         time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
	CalledAt          *time.Time    `json:"called_at,omitempty"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	CancelledAt       *time.Time    `json:"cancelled_at,omitempty"`
	UpdatedAt         time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	Service           *Service      `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Requester         *User         `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Officer           *Officer      `gorm:"foreignKey:OfficerID" json:"officer,omitempty"`
}

func (Queue) TableName() string {
	return "queues"
}

// QueueCounter holds the per-service per-day ticket sequence. The unique key
// lets number generation run as an atomic upsert-increment; numbering resets
// implicitly because the key includes the date.
type QueueCounter struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ServiceID   uint      `gorm:"not null;uniqueIndex:idx_counter_service_day" json:"service_id"`
	CounterDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_counter_service_day" json:"counter_date"`
	LastSeq     int       `gorm:"not null;default:0" json:"last_seq"`
}

func (QueueCounter) TableName() string {
	return "queue_counters"
}

// QueueLog is one immutable audit entry for a status change. Append-only;
// nothing updates or deletes rows here.
type QueueLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	QueueID     uint           `gorm:"not null;index" json:"queue_id"`
	ActorUserID *uint          `json:"actor_user_id,omitempty"` // nil for system/self actions
	FromStatus  *domain.Status `gorm:"size:15" json:"from_status,omitempty"` // nil on creation
	ToStatus    domain.Status  `gorm:"size:15;not null" json:"to_status"`
	Note        string         `gorm:"size:255" json:"note,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (QueueLog) TableName() string {
	return "queue_logs"
}
