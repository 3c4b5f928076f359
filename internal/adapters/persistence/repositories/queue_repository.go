package repositories

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/core/domain"
)

// QueueRepository handles queue ticket database operations. Every mutation
// that the engine relies on for mutual exclusion is a conditional update
// keyed by id + expected current state, so concurrent officers can never
// both win the same row.
type QueueRepository struct {
	db *gorm.DB
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db *gorm.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *QueueRepository) WithTx(tx *gorm.DB) *QueueRepository {
	return &QueueRepository{db: tx}
}

// Transaction runs fn inside a database transaction, handing it a repository
// bound to that transaction. The store write, the log append, and any other
// mutation inside fn commit or roll back as one unit.
func (r *QueueRepository) Transaction(fn func(txRepo *QueueRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// ============================================================
// Ticket Numbering
// ============================================================

// NextTicketNumber returns the next number for a service on a day, formatted
// prefix + zero-padded sequence (A001). The sequence lives in queue_counters
// and is advanced with an atomic upsert-increment on the (service, date)
// unique key; the row lock it takes serializes concurrent registrations for
// the same service until the surrounding transaction commits. Counting rows
// instead would race.
func (r *QueueRepository) NextTicketNumber(service *models.Service, date time.Time) (string, error) {
	counter := models.QueueCounter{
		ServiceID:   service.ID,
		CounterDate: date,
		LastSeq:     1,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "service_id"}, {Name: "counter_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_seq": gorm.Expr("last_seq + 1"),
		}),
	}).Create(&counter).Error
	if err != nil {
		return "", err
	}

	// Re-read inside the same transaction; the upsert holds the row lock.
	if err := r.db.
		Where("service_id = ? AND counter_date = ?", service.ID, date).
		First(&counter).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%03d", service.Prefix, counter.LastSeq), nil
}

// ============================================================
// Ticket CRUD & Lookups
// ============================================================

// CreateTicket creates a new queue ticket
func (r *QueueRepository) CreateTicket(ticket *models.Queue) error {
	return r.db.Create(ticket).Error
}

// GetTicketByID returns a ticket by ID with relations
func (r *QueueRepository) GetTicketByID(id uint) (*models.Queue, error) {
	var ticket models.Queue
	err := r.db.
		Preload("Service").
		Preload("Officer").
		Preload("Officer.User").
		Preload("Requester").
		First(&ticket, id).Error
	return &ticket, err
}

// GetTicketByNumber returns a ticket by number within a service and day
func (r *QueueRepository) GetTicketByNumber(serviceID uint, number string, date time.Time) (*models.Queue, error) {
	var ticket models.Queue
	err := r.db.
		Preload("Service").
		Preload("Officer").
		Where("service_id = ? AND number = ? AND queue_date = ?", serviceID, number, date).
		First(&ticket).Error
	return &ticket, err
}

// GetActiveTicketByRequester returns the requester's non-terminal ticket for
// a service today, or nil when there is none.
func (r *QueueRepository) GetActiveTicketByRequester(requesterID, serviceID uint, date time.Time) (*models.Queue, error) {
	var ticket models.Queue
	err := r.db.
		Where("requester_id = ? AND service_id = ? AND queue_date = ? AND status IN ?",
			requesterID, serviceID, date,
			[]domain.Status{domain.StatusWaiting, domain.StatusCalled, domain.StatusProcessing}).
		First(&ticket).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &ticket, err
}

// CountByServiceDate returns how many tickets a service issued on a day,
// regardless of status. Used for the daily quota check.
func (r *QueueRepository) CountByServiceDate(serviceID uint, date time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Queue{}).
		Where("service_id = ? AND queue_date = ?", serviceID, date).
		Count(&count).Error
	return count, err
}

// ============================================================
// Dispatch ordering
// ============================================================

// dispatchOrder is the strict total order for selecting the next ticket:
// priority first, then earliest creation, id as the final tie-break.
const dispatchOrder = "priority DESC, created_at ASC, id ASC"

// NextWaitingTicket returns the waiting ticket a caller would dispatch first,
// or nil when the queue is empty. Tickets whose ids appear in excluding are
// skipped; the claim loop passes ids it already lost a race on, since a
// repeatable-read snapshot would keep showing them as waiting.
func (r *QueueRepository) NextWaitingTicket(serviceID uint, date time.Time, excluding []uint) (*models.Queue, error) {
	q := r.db.
		Where("service_id = ? AND queue_date = ? AND status = ?",
			serviceID, date, domain.StatusWaiting)
	if len(excluding) > 0 {
		q = q.Where("id NOT IN ?", excluding)
	}
	var ticket models.Queue
	err := q.Order(dispatchOrder).First(&ticket).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &ticket, err
}

// CountWaiting returns the number of waiting tickets in a service today.
func (r *QueueRepository) CountWaiting(serviceID uint, date time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Queue{}).
		Where("service_id = ? AND queue_date = ? AND status = ?",
			serviceID, date, domain.StatusWaiting).
		Count(&count).Error
	return count, err
}

// CountWaitingAhead returns how many waiting tickets would be dispatched
// before the given ticket under the dispatch order.
func (r *QueueRepository) CountWaitingAhead(ticket *models.Queue) (int64, error) {
	var count int64
	q := r.db.Model(&models.Queue{}).
		Where("service_id = ? AND queue_date = ? AND status = ? AND id <> ?",
			ticket.ServiceID, ticket.QueueDate, domain.StatusWaiting, ticket.ID)
	if ticket.Priority {
		q = q.Where("priority = ? AND (created_at < ? OR (created_at = ? AND id < ?))",
			true, ticket.CreatedAt, ticket.CreatedAt, ticket.ID)
	} else {
		q = q.Where("priority = ? OR created_at < ? OR (created_at = ? AND id < ?)",
			true, ticket.CreatedAt, ticket.CreatedAt, ticket.ID)
	}
	err := q.Count(&count).Error
	return count, err
}

// ============================================================
// Conditional mutation (the serialization points)
// ============================================================

// ClaimTicket binds a waiting ticket to an officer, moving it to called.
// Returns false without mutating anything if the ticket already left
// waiting — the losing side of a concurrent call.
func (r *QueueRepository) ClaimTicket(ticketID, officerID uint, now time.Time) (bool, error) {
	res := r.db.Model(&models.Queue{}).
		Where("id = ? AND status = ?", ticketID, domain.StatusWaiting).
		Updates(map[string]interface{}{
			"status":     domain.StatusCalled,
			"officer_id": officerID,
			"called_at":  now,
		})
	return res.RowsAffected > 0, res.Error
}

// ConditionalUpdate applies updates only if the ticket still has the expected
// status (and, when officerID is non-nil, is still bound to that officer).
// Returns false when the guard no longer holds.
func (r *QueueRepository) ConditionalUpdate(ticketID uint, from domain.Status, officerID *uint, updates map[string]interface{}) (bool, error) {
	q := r.db.Model(&models.Queue{}).Where("id = ? AND status = ?", ticketID, from)
	if officerID != nil {
		q = q.Where("officer_id = ?", *officerID)
	}
	res := q.Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// LockOfficer takes the officer's row lock for the rest of the transaction.
// Concurrent capacity decisions for the same officer queue up behind it, and
// counts taken after the lock is granted observe every bind committed in the
// meantime instead of a stale snapshot. The no-op column write acquires the
// lock on MySQL and SQLite alike; SELECT FOR UPDATE would not parse on the
// test driver.
func (r *QueueRepository) LockOfficer(officerID uint) error {
	return r.db.Model(&models.Officer{}).
		Where("id = ?", officerID).
		UpdateColumn("id", gorm.Expr("id")).Error
}

// CountActiveByOfficer returns the officer's currently bound tickets
// (called or processing). This is the capacity measure: a skipped ticket
// keeps its officer_id for audit but stops counting here.
func (r *QueueRepository) CountActiveByOfficer(officerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Queue{}).
		Where("officer_id = ? AND status IN ?", officerID,
			[]domain.Status{domain.StatusCalled, domain.StatusProcessing}).
		Count(&count).Error
	return count, err
}

// MarkNotifySent flips the approaching-notification marker exactly once.
func (r *QueueRepository) MarkNotifySent(ticketID uint) (bool, error) {
	res := r.db.Model(&models.Queue{}).
		Where("id = ? AND notify_sent = ? AND status = ?", ticketID, false, domain.StatusWaiting).
		Update("notify_sent", true)
	return res.RowsAffected > 0, res.Error
}

// ============================================================
// Transition Log
// ============================================================

// AppendLog writes one immutable audit entry for a status change.
func (r *QueueRepository) AppendLog(entry *models.QueueLog) error {
	return r.db.Create(entry).Error
}

// LogsForTicket returns the audit trail for a ticket, oldest first.
func (r *QueueRepository) LogsForTicket(ticketID uint) ([]models.QueueLog, error) {
	var logs []models.QueueLog
	err := r.db.
		Where("queue_id = ?", ticketID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

// ============================================================
// Display & reporting queries
// ============================================================

// WaitingQueues returns today's waiting tickets in dispatch order.
func (r *QueueRepository) WaitingQueues(serviceID uint, date time.Time) ([]models.Queue, error) {
	var tickets []models.Queue
	err := r.db.
		Preload("Service").
		Where("service_id = ? AND queue_date = ? AND status = ?",
			serviceID, date, domain.StatusWaiting).
		Order(dispatchOrder).
		Find(&tickets).Error
	return tickets, err
}

// WaitingTopN returns the first n waiting tickets in dispatch order.
func (r *QueueRepository) WaitingTopN(serviceID uint, date time.Time, n int) ([]models.Queue, error) {
	var tickets []models.Queue
	err := r.db.
		Where("service_id = ? AND queue_date = ? AND status = ?",
			serviceID, date, domain.StatusWaiting).
		Order(dispatchOrder).
		Limit(n).
		Find(&tickets).Error
	return tickets, err
}

// CurrentlyCalled returns tickets bound to officers right now (called or
// processing), optionally filtered by service, most recent call first.
func (r *QueueRepository) CurrentlyCalled(serviceID *uint, date time.Time) ([]models.Queue, error) {
	q := r.db.
		Preload("Service").
		Preload("Officer").
		Preload("Officer.User").
		Where("queue_date = ? AND status IN ?", date,
			[]domain.Status{domain.StatusCalled, domain.StatusProcessing})
	if serviceID != nil {
		q = q.Where("service_id = ?", *serviceID)
	}
	var tickets []models.Queue
	err := q.Order("called_at DESC").Find(&tickets).Error
	return tickets, err
}

// HistoryByDate returns terminal tickets for a day, newest first.
func (r *QueueRepository) HistoryByDate(serviceID *uint, date time.Time, offset, limit int) ([]models.Queue, int64, error) {
	q := r.db.Model(&models.Queue{}).
		Where("queue_date = ? AND status IN ?", date,
			[]domain.Status{domain.StatusCompleted, domain.StatusSkipped, domain.StatusCancelled})
	if serviceID != nil {
		q = q.Where("service_id = ?", *serviceID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tickets []models.Queue
	err := q.
		Preload("Service").
		Preload("Officer").
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&tickets).Error
	return tickets, total, err
}

// StatusCounts returns ticket counts per status for a day, every status
// present in the map even when zero.
func (r *QueueRepository) StatusCounts(serviceID *uint, date time.Time) (map[domain.Status]int64, error) {
	type row struct {
		Status domain.Status
		Count  int64
	}
	q := r.db.Model(&models.Queue{}).
		Select("status, COUNT(*) as count").
		Where("queue_date = ?", date)
	if serviceID != nil {
		q = q.Where("service_id = ?", *serviceID)
	}

	var rows []row
	if err := q.Group("status").Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[domain.Status]int64, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		counts[s] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// timestampPair is one sample for an average-duration computation.
type timestampPair struct {
	From time.Time
	To   time.Time
}

// WaitSamples returns (created_at, called_at) for tickets that reached
// called or later on a day.
func (r *QueueRepository) WaitSamples(serviceID *uint, date time.Time) ([][2]time.Time, error) {
	q := r.db.Model(&models.Queue{}).
		Select("created_at as `from`, called_at as `to`").
		Where("queue_date = ? AND called_at IS NOT NULL", date)
	if serviceID != nil {
		q = q.Where("service_id = ?", *serviceID)
	}
	return scanPairs(q)
}

// ServiceSamples returns (started_at, completed_at) for completed tickets
// on a day.
func (r *QueueRepository) ServiceSamples(serviceID *uint, date time.Time) ([][2]time.Time, error) {
	q := r.db.Model(&models.Queue{}).
		Select("started_at as `from`, completed_at as `to`").
		Where("queue_date = ? AND status = ? AND started_at IS NOT NULL AND completed_at IS NOT NULL",
			date, domain.StatusCompleted)
	if serviceID != nil {
		q = q.Where("service_id = ?", *serviceID)
	}
	return scanPairs(q)
}

func scanPairs(q *gorm.DB) ([][2]time.Time, error) {
	var rows []timestampPair
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	pairs := make([][2]time.Time, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, [2]time.Time{r.From, r.To})
	}
	return pairs, nil
}

// StaleActiveBefore returns non-terminal tickets from days before the cutoff,
// for the housekeeping sweep.
func (r *QueueRepository) StaleActiveBefore(cutoff time.Time) ([]models.Queue, error) {
	var tickets []models.Queue
	err := r.db.
		Where("queue_date < ? AND status IN ?", cutoff,
			[]domain.Status{domain.StatusWaiting, domain.StatusCalled, domain.StatusProcessing}).
		Find(&tickets).Error
	return tickets, err
}
