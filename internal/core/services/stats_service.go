package services

import (
	"time"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/adapters/persistence/repositories"
	"mpp-antrian/internal/core/domain"
)

// StatsService computes live and end-of-day queue metrics. Everything is
// recomputed from the store on each query; nothing is cached.
type StatsService struct {
	queueRepo   *repositories.QueueRepository
	catalogRepo *repositories.CatalogRepository
}

// NewStatsService creates a new stats service
func NewStatsService(queueRepo *repositories.QueueRepository, catalogRepo *repositories.CatalogRepository) *StatsService {
	return &StatsService{
		queueRepo:   queueRepo,
		catalogRepo: catalogRepo,
	}
}

// DayStatistics is the per-day aggregate for a service or the whole office.
// The averages are nil, not zero, when no ticket qualifies.
type DayStatistics struct {
	Date                  string           `json:"date"`
	ServiceID             *uint            `json:"service_id,omitempty"`
	Counts                map[string]int64 `json:"counts"`
	Total                 int64            `json:"total"`
	AverageWaitMinutes    *float64         `json:"average_wait_minutes"`
	AverageServiceMinutes *float64         `json:"average_service_minutes"`
}

// TodayStatistics aggregates today's tickets, optionally for one service.
func (s *StatsService) TodayStatistics(serviceID *uint) (*DayStatistics, error) {
	return s.DailyStatistics(time.Now(), serviceID)
}

// DailyStatistics aggregates one calendar day: counts per status, total,
// average wait (created→called) over tickets that reached called or later,
// and average service time (started→completed) over completed tickets.
func (s *StatsService) DailyStatistics(day time.Time, serviceID *uint) (*DayStatistics, error) {
	if serviceID != nil {
		if _, err := s.catalogRepo.GetServiceByID(*serviceID); err != nil {
			return nil, domain.NotFound("service")
		}
	}

	date := models.DateOf(day)
	counts, err := s.queueRepo.StatusCounts(serviceID, date)
	if err != nil {
		return nil, err
	}

	stats := &DayStatistics{
		Date:      date.Format("2006-01-02"),
		ServiceID: serviceID,
		Counts:    make(map[string]int64, len(counts)),
	}
	for status, count := range counts {
		stats.Counts[string(status)] = count
		stats.Total += count
	}

	waitSamples, err := s.queueRepo.WaitSamples(serviceID, date)
	if err != nil {
		return nil, err
	}
	stats.AverageWaitMinutes = meanMinutes(waitSamples)

	serviceSamples, err := s.queueRepo.ServiceSamples(serviceID, date)
	if err != nil {
		return nil, err
	}
	stats.AverageServiceMinutes = meanMinutes(serviceSamples)

	return stats, nil
}

// History returns one day's tickets newest-first, paginated.
func (s *StatsService) History(day time.Time, serviceID *uint, offset, limit int) ([]models.Queue, int64, error) {
	if serviceID != nil {
		if _, err := s.catalogRepo.GetServiceByID(*serviceID); err != nil {
			return nil, 0, domain.NotFound("service")
		}
	}
	return s.queueRepo.HistoryByDate(serviceID, models.DateOf(day), offset, limit)
}

// meanMinutes averages the span of each pair in minutes; nil for no samples.
func meanMinutes(pairs [][2]time.Time) *float64 {
	if len(pairs) == 0 {
		return nil
	}
	var total float64
	for _, p := range pairs {
		total += p[1].Sub(p[0]).Minutes()
	}
	mean := total / float64(len(pairs))
	return &mean
}
