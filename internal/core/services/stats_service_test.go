package services

import (
	"testing"
	"time"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/core/domain"
)

// insertTicketAt writes a ticket with explicit lifecycle timestamps, for
// statistics that depend on known durations.
func insertTicketAt(t *testing.T, env *testEnv, serviceID uint, number string, status domain.Status, created time.Time, called, started, completed *time.Time) *models.Queue {
	t.Helper()
	ticket := &models.Queue{
		Number:      number,
		ServiceID:   serviceID,
		QueueDate:   models.DateOf(time.Now()),
		Status:      status,
		Channel:     "kiosk",
		CreatedAt:   created,
		CalledAt:    called,
		StartedAt:   started,
		CompletedAt: completed,
	}
	if err := env.db.Create(ticket).Error; err != nil {
		t.Fatalf("insert ticket %s: %v", number, err)
	}
	return ticket
}

func TestStatisticsEmptyDay(t *testing.T) {
	env := newTestEnv(t)
	env.createService(t, "UMUM", "A", 15, 0)

	stats, err := env.stats.TodayStatistics(nil)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Total)
	}
	if len(stats.Counts) != len(domain.AllStatuses) {
		t.Errorf("counts has %d keys, want every status", len(stats.Counts))
	}
	if stats.AverageWaitMinutes != nil {
		t.Error("average wait must be null with no called tickets")
	}
	if stats.AverageServiceMinutes != nil {
		t.Error("average service time must be null with no completed tickets")
	}
}

func TestStatisticsNoCompletedKeepsServiceAverageNull(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)

	base := time.Now().Add(-time.Hour)
	calledAt := base.Add(10 * time.Minute)
	insertTicketAt(t, env, service.ID, "A001", domain.StatusCalled, base, &calledAt, nil, nil)

	stats, err := env.stats.TodayStatistics(nil)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.AverageWaitMinutes == nil {
		t.Fatal("average wait should exist once a ticket was called")
	}
	if got := *stats.AverageWaitMinutes; got < 9.9 || got > 10.1 {
		t.Errorf("average wait = %.2f, want ~10", got)
	}
	if stats.AverageServiceMinutes != nil {
		t.Error("average service time must stay null without completions")
	}
}

func TestStatisticsAverages(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)

	base := time.Now().Add(-2 * time.Hour)

	// Ticket 1: waited 10m, served 20m.
	c1 := base.Add(10 * time.Minute)
	s1 := c1.Add(2 * time.Minute)
	f1 := s1.Add(20 * time.Minute)
	insertTicketAt(t, env, service.ID, "A001", domain.StatusCompleted, base, &c1, &s1, &f1)

	// Ticket 2: waited 20m, served 10m.
	c2 := base.Add(20 * time.Minute)
	s2 := c2.Add(2 * time.Minute)
	f2 := s2.Add(10 * time.Minute)
	insertTicketAt(t, env, service.ID, "A002", domain.StatusCompleted, base, &c2, &s2, &f2)

	// Cancelled ticket contributes to counts but to neither average.
	insertTicketAt(t, env, service.ID, "A003", domain.StatusCancelled, base, nil, nil, nil)

	stats, err := env.stats.TodayStatistics(nil)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.Counts[string(domain.StatusCompleted)] != 2 {
		t.Errorf("completed count = %d, want 2", stats.Counts[string(domain.StatusCompleted)])
	}
	if stats.Counts[string(domain.StatusCancelled)] != 1 {
		t.Errorf("cancelled count = %d, want 1", stats.Counts[string(domain.StatusCancelled)])
	}

	if stats.AverageWaitMinutes == nil {
		t.Fatal("average wait missing")
	}
	if got := *stats.AverageWaitMinutes; got < 14.9 || got > 15.1 {
		t.Errorf("average wait = %.2f, want ~15", got)
	}

	if stats.AverageServiceMinutes == nil {
		t.Fatal("average service time missing")
	}
	if got := *stats.AverageServiceMinutes; got < 14.9 || got > 15.1 {
		t.Errorf("average service time = %.2f, want ~15", got)
	}
}

func TestStatisticsServiceFilter(t *testing.T) {
	env := newTestEnv(t)
	umum := env.createService(t, "UMUM", "A", 15, 0)
	pajak := env.createService(t, "PAJAK", "B", 20, 0)

	env.register(t, umum.ID, false, nil)
	env.register(t, pajak.ID, false, nil)
	env.register(t, pajak.ID, false, nil)

	stats, err := env.stats.TodayStatistics(&pajak.ID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("filtered total = %d, want 2", stats.Total)
	}

	_, err = env.stats.TodayStatistics(ptrUint(999))
	wantNotFound(t, err)
}

func ptrUint(v uint) *uint { return &v }

func TestHousekeepingSweep(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)

	today := models.DateOf(time.Now())
	yesterday := today.Add(-24 * time.Hour)

	stale := &models.Queue{
		Number:    "A001",
		ServiceID: service.ID,
		QueueDate: yesterday,
		Status:    domain.StatusWaiting,
		Channel:   "kiosk",
	}
	if err := env.db.Create(stale).Error; err != nil {
		t.Fatalf("insert stale ticket: %v", err)
	}
	fresh := env.register(t, service.ID, false, nil)

	housekeeping := NewHousekeepingService(env.queue.queueRepo)
	housekeeping.Sweep()

	if env.ticketStatus(t, stale.ID) != domain.StatusCancelled {
		t.Error("sweep must cancel yesterday's waiting ticket")
	}
	if env.ticketStatus(t, fresh.Ticket.ID) != domain.StatusWaiting {
		t.Error("sweep must not touch today's tickets")
	}
	if got := env.logCount(t, stale.ID); got != 1 {
		t.Errorf("sweep should append one log entry, got %d", got)
	}
}
