package services

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/adapters/persistence/repositories"
	"mpp-antrian/internal/core/domain"
)

var testDBSeq int64

// testEnv wires the full service stack on a private in-memory database.
type testEnv struct {
	db         *gorm.DB
	queue      *QueueService
	assignment *AssignmentService
	stats      *StatsService
	catalog    *CatalogService
	notify     *NotifyService

	userSeq uint
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:svctest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	queueRepo := repositories.NewQueueRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	userRepo := repositories.NewUserRepository(db)
	notify := NewNotifyService()

	return &testEnv{
		db:         db,
		queue:      NewQueueService(queueRepo, catalogRepo, notify),
		assignment: NewAssignmentService(queueRepo, catalogRepo, notify),
		stats:      NewStatsService(queueRepo, catalogRepo),
		catalog:    NewCatalogService(catalogRepo, userRepo),
		notify:     notify,
	}
}

func (e *testEnv) createService(t *testing.T, code, prefix string, avgMinutes, quota int) *models.Service {
	t.Helper()
	service := &models.Service{
		Code:       code,
		Name:       code + " desk",
		Prefix:     prefix,
		AvgMinutes: avgMinutes,
		DailyQuota: quota,
		IsActive:   true,
	}
	if err := e.db.Create(service).Error; err != nil {
		t.Fatalf("create service %s: %v", code, err)
	}
	return service
}

func (e *testEnv) createUser(t *testing.T, role domain.Role) *models.User {
	t.Helper()
	e.userSeq++
	user := &models.User{
		Username: fmt.Sprintf("user%d", e.userSeq),
		FullName: fmt.Sprintf("Test User %d", e.userSeq),
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// createOfficer binds a fresh officer user to a counter and returns the
// record together with the acting identity.
func (e *testEnv) createOfficer(t *testing.T, serviceID uint, counter string, maxConcurrent int) (*models.Officer, domain.Actor) {
	t.Helper()
	user := e.createUser(t, domain.RoleOfficer)
	officer := &models.Officer{
		UserID:        user.ID,
		ServiceID:     serviceID,
		CounterName:   counter,
		MaxConcurrent: maxConcurrent,
		IsActive:      true,
		IsAvailable:   true,
	}
	if err := e.db.Create(officer).Error; err != nil {
		t.Fatalf("create officer: %v", err)
	}
	return officer, domain.Actor{UserID: user.ID, Role: domain.RoleOfficer}
}

func (e *testEnv) register(t *testing.T, serviceID uint, priority bool, requesterID *uint) *RegisterResponse {
	t.Helper()
	resp, err := e.queue.Register(&RegisterInput{
		ServiceID:   serviceID,
		Channel:     ChannelKiosk,
		Priority:    priority,
		RequesterID: requesterID,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return resp
}

func (e *testEnv) ticketStatus(t *testing.T, ticketID uint) domain.Status {
	t.Helper()
	var ticket models.Queue
	if err := e.db.First(&ticket, ticketID).Error; err != nil {
		t.Fatalf("reload ticket %d: %v", ticketID, err)
	}
	return ticket.Status
}

func (e *testEnv) logCount(t *testing.T, ticketID uint) int {
	t.Helper()
	var count int64
	if err := e.db.Model(&models.QueueLog{}).Where("queue_id = ?", ticketID).Count(&count).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	return int(count)
}

func wantValidation(t *testing.T, err error) {
	t.Helper()
	var e *domain.ValidationError
	if !errors.As(err, &e) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func wantConflict(t *testing.T, err error) {
	t.Helper()
	var e *domain.ConflictError
	if !errors.As(err, &e) {
		t.Fatalf("want ConflictError, got %v", err)
	}
}

func wantCapacity(t *testing.T, err error) {
	t.Helper()
	var e *domain.CapacityError
	if !errors.As(err, &e) {
		t.Fatalf("want CapacityError, got %v", err)
	}
}

func wantNotFound(t *testing.T, err error) {
	t.Helper()
	var e *domain.NotFoundError
	if !errors.As(err, &e) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

// otherWeekday returns a weekday different from today's, for schedule windows
// that must not match the test run's clock.
func otherWeekday() int {
	return (int(time.Now().Weekday()) + 1) % 7
}
