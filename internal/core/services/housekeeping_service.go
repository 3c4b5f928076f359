package services

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/adapters/persistence/repositories"
	"mpp-antrian/internal/core/domain"
)

// HousekeepingService cancels tickets left non-terminal at the end of a day.
// Runs shortly after midnight so yesterday's stragglers never block today's
// officers or distort today's statistics.
type HousekeepingService struct {
	queueRepo *repositories.QueueRepository
	cron      *cron.Cron
}

// NewHousekeepingService creates a new housekeeping service
func NewHousekeepingService(queueRepo *repositories.QueueRepository) *HousekeepingService {
	return &HousekeepingService{
		queueRepo: queueRepo,
		cron:      cron.New(),
	}
}

// Start schedules the nightly sweep (00:05 daily).
func (s *HousekeepingService) Start() error {
	if _, err := s.cron.AddFunc("5 0 * * *", s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("🚀 HousekeepingService started (sweep at 00:05 daily)")
	return nil
}

// Stop stops the scheduler.
func (s *HousekeepingService) Stop() {
	s.cron.Stop()
	log.Println("🛑 HousekeepingService stopped")
}

// Sweep cancels every waiting/called/processing ticket from days before
// today. Each ticket is its own transaction with a system log entry, so a
// failure on one row never blocks the rest.
func (s *HousekeepingService) Sweep() {
	today := models.DateOf(time.Now())
	stale, err := s.queueRepo.StaleActiveBefore(today)
	if err != nil {
		log.Printf("⚠️ Housekeeping sweep failed to list stale tickets: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	now := time.Now()
	var swept int
	for i := range stale {
		ticket := &stale[i]
		from := ticket.Status
		err := s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
			ok, err := tx.ConditionalUpdate(ticket.ID, from, nil, map[string]interface{}{
				"status":       domain.StatusCancelled,
				"cancelled_at": now,
			})
			if err != nil {
				return err
			}
			if !ok {
				return nil // someone finished it meanwhile
			}
			swept++
			return tx.AppendLog(&models.QueueLog{
				QueueID:    ticket.ID,
				FromStatus: &from,
				ToStatus:   domain.StatusCancelled,
				Note:       "expired at end of day",
			})
		})
		if err != nil {
			log.Printf("⚠️ Housekeeping failed on ticket %s: %v", ticket.Number, err)
		}
	}
	log.Printf("✅ Housekeeping cancelled %d stale tickets", swept)
}
