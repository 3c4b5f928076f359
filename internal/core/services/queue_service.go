package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/adapters/persistence/repositories"
	"mpp-antrian/internal/core/domain"
)

// Registration channels
const (
	ChannelOnline = "online"
	ChannelKiosk  = "kiosk"
	ChannelManual = "manual"
)

// QueueService handles visitor-facing queue operations: registration,
// self-cancel, tracking, position and wait estimates.
type QueueService struct {
	queueRepo   *repositories.QueueRepository
	catalogRepo *repositories.CatalogRepository
	notify      *NotifyService
}

// NewQueueService creates a new queue service
func NewQueueService(queueRepo *repositories.QueueRepository, catalogRepo *repositories.CatalogRepository, notify *NotifyService) *QueueService {
	return &QueueService{
		queueRepo:   queueRepo,
		catalogRepo: catalogRepo,
		notify:      notify,
	}
}

// RegisterInput represents a queue registration request
type RegisterInput struct {
	ServiceID   uint   `json:"service_id"`
	Channel     string `json:"channel"`
	Priority    bool   `json:"priority"`
	RequesterID *uint  `json:"-"`
}

// RegisterResponse represents a freshly issued ticket with its estimates
type RegisterResponse struct {
	Ticket           *models.Queue `json:"ticket"`
	Position         int64         `json:"position"`
	EstimatedMinutes int           `json:"estimated_minutes"`
}

// Register issues a new waiting ticket for a service. Number generation and
// the creation log entry commit atomically with the ticket row.
func (s *QueueService) Register(input *RegisterInput) (*RegisterResponse, error) {
	switch input.Channel {
	case ChannelOnline, ChannelKiosk, ChannelManual:
	default:
		return nil, domain.Validationf("invalid channel: %q", input.Channel)
	}

	service, err := s.catalogRepo.GetServiceByID(input.ServiceID)
	if err != nil {
		return nil, domain.NotFound("service")
	}

	now := time.Now()
	today := models.DateOf(now)

	if err := s.acceptanceCheck(service, now); err != nil {
		return nil, err
	}

	var ticket *models.Queue
	var ahead int64
	err = s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
		number, err := tx.NextTicketNumber(service, today)
		if err != nil {
			return err
		}

		// Duplicate check runs behind the counter row lock taken by the
		// number upsert, so concurrent registrations for one requester
		// serialize and the loser sees the winner's ticket. A rejected
		// registration rolls the sequence increment back with it.
		if input.RequesterID != nil {
			existing, err := tx.GetActiveTicketByRequester(*input.RequesterID, service.ID, today)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.Conflictf("you already have an active ticket %s for this service", existing.Number)
			}
		}

		ticket = &models.Queue{
			Number:      number,
			ServiceID:   service.ID,
			QueueDate:   today,
			RequesterID: input.RequesterID,
			Priority:    input.Priority,
			Status:      domain.StatusWaiting,
			Channel:     input.Channel,
		}
		if err := tx.CreateTicket(ticket); err != nil {
			return err
		}

		ahead, err = tx.CountWaitingAhead(ticket)
		if err != nil {
			return err
		}
		estimated := int(ahead) * service.AvgMinutes
		if _, err := tx.ConditionalUpdate(ticket.ID, domain.StatusWaiting, nil,
			map[string]interface{}{"estimated_minutes": estimated}); err != nil {
			return err
		}
		ticket.EstimatedMinutes = estimated

		return tx.AppendLog(&models.QueueLog{
			QueueID:     ticket.ID,
			ActorUserID: input.RequesterID,
			ToStatus:    domain.StatusWaiting,
			Note:        "registered via " + input.Channel,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Ticket %s issued for service %s (channel: %s, priority: %v)",
		ticket.Number, service.Code, input.Channel, input.Priority)

	s.notify.Publish(TransitionEvent{
		Event:       "transition",
		TicketID:    ticket.ID,
		Number:      ticket.Number,
		ServiceID:   service.ID,
		ServiceCode: service.Code,
		ToStatus:    domain.StatusWaiting,
	})

	return &RegisterResponse{
		Ticket:           ticket,
		Position:         ahead + 1,
		EstimatedMinutes: ticket.EstimatedMinutes,
	}, nil
}

// Cancel lets the original requester withdraw a ticket that is still
// waiting. Anyone else, or any later status, is rejected.
func (s *QueueService) Cancel(actor domain.Actor, ticketID uint) (*models.Queue, error) {
	ticket, err := s.queueRepo.GetTicketByID(ticketID)
	if err != nil {
		return nil, domain.NotFound("ticket")
	}

	ref := ticketRef(ticket)
	if !domain.CanAct(actor, domain.ActionCancel, ref) {
		return nil, domain.Conflictf("only the requester may cancel a waiting ticket")
	}
	if !domain.ValidTransition(domain.ActionCancel, ticket.Status) {
		return nil, domain.Conflictf("ticket %s is %s, not waiting", ticket.Number, ticket.Status)
	}

	now := time.Now()
	err = s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
		ok, err := tx.ConditionalUpdate(ticket.ID, domain.StatusWaiting, nil, map[string]interface{}{
			"status":       domain.StatusCancelled,
			"cancelled_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("ticket %s already left waiting", ticket.Number)
		}
		from := domain.StatusWaiting
		return tx.AppendLog(&models.QueueLog{
			QueueID:     ticket.ID,
			ActorUserID: &actor.UserID,
			FromStatus:  &from,
			ToStatus:    domain.StatusCancelled,
			Note:        "cancelled by requester",
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Ticket %s cancelled by requester %d", ticket.Number, actor.UserID)
	s.publishTransition(ticket, domain.StatusWaiting, domain.StatusCancelled)

	return s.queueRepo.GetTicketByID(ticket.ID)
}

// TrackResponse represents a tracked ticket with live queue context
type TrackResponse struct {
	Ticket           *models.Queue `json:"ticket"`
	Position         int64         `json:"position,omitempty"`
	EstimatedMinutes int           `json:"estimated_minutes,omitempty"`
}

// Track returns a ticket by service code and number for today, with its
// current position and estimate when still waiting.
func (s *QueueService) Track(serviceCode, number string) (*TrackResponse, error) {
	service, err := s.catalogRepo.GetServiceByCode(serviceCode)
	if err != nil {
		return nil, domain.NotFound("service")
	}

	today := models.DateOf(time.Now())
	ticket, err := s.queueRepo.GetTicketByNumber(service.ID, number, today)
	if err != nil {
		return nil, domain.NotFound("ticket")
	}

	resp := &TrackResponse{Ticket: ticket}
	if ticket.Status == domain.StatusWaiting {
		ahead, err := s.queueRepo.CountWaitingAhead(ticket)
		if err != nil {
			return nil, err
		}
		resp.Position = ahead + 1
		resp.EstimatedMinutes = int(ahead) * service.AvgMinutes
	}
	return resp, nil
}

// GetTicket returns a ticket with its relations
func (s *QueueService) GetTicket(ticketID uint) (*models.Queue, error) {
	ticket, err := s.queueRepo.GetTicketByID(ticketID)
	if err != nil {
		return nil, domain.NotFound("ticket")
	}
	return ticket, nil
}

// TicketLogs returns the audit trail for a ticket, oldest first
func (s *QueueService) TicketLogs(ticketID uint) ([]models.QueueLog, error) {
	if _, err := s.queueRepo.GetTicketByID(ticketID); err != nil {
		return nil, domain.NotFound("ticket")
	}
	return s.queueRepo.LogsForTicket(ticketID)
}

// Position returns 1 + the count of waiting tickets dispatched before the
// given ticket. Recomputed on every query; only meaningful while waiting.
func (s *QueueService) Position(ticketID uint) (int64, error) {
	ticket, err := s.queueRepo.GetTicketByID(ticketID)
	if err != nil {
		return 0, domain.NotFound("ticket")
	}
	if ticket.Status != domain.StatusWaiting {
		return 0, domain.Validationf("ticket %s is %s, position applies to waiting tickets", ticket.Number, ticket.Status)
	}
	ahead, err := s.queueRepo.CountWaitingAhead(ticket)
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

// EstimateWait returns the expected wait in minutes for a new registration:
// the service's average handling time times the current waiting count.
func (s *QueueService) EstimateWait(serviceID uint) (int, error) {
	service, err := s.catalogRepo.GetServiceByID(serviceID)
	if err != nil {
		return 0, domain.NotFound("service")
	}
	waiting, err := s.queueRepo.CountWaiting(service.ID, models.DateOf(time.Now()))
	if err != nil {
		return 0, err
	}
	return int(waiting) * service.AvgMinutes, nil
}

// ActiveServices lists the services open for registration, with schedules.
func (s *QueueService) ActiveServices() ([]models.Service, error) {
	return s.catalogRepo.GetActiveServices()
}

// WaitingQueues returns today's waiting tickets for a service in dispatch
// order.
func (s *QueueService) WaitingQueues(serviceID uint) ([]models.Queue, error) {
	if _, err := s.catalogRepo.GetServiceByID(serviceID); err != nil {
		return nil, domain.NotFound("service")
	}
	return s.queueRepo.WaitingQueues(serviceID, models.DateOf(time.Now()))
}

// AcceptanceStatus reports whether a service takes new registrations now
type AcceptanceStatus struct {
	Accepting bool   `json:"accepting"`
	Reason    string `json:"reason,omitempty"`
}

// IsServiceAcceptingQueue checks the active flag, the weekly schedule window,
// and the daily quota.
func (s *QueueService) IsServiceAcceptingQueue(serviceID uint) (*AcceptanceStatus, error) {
	service, err := s.catalogRepo.GetServiceByID(serviceID)
	if err != nil {
		return nil, domain.NotFound("service")
	}
	if err := s.acceptanceCheck(service, time.Now()); err != nil {
		return &AcceptanceStatus{Accepting: false, Reason: err.Error()}, nil
	}
	return &AcceptanceStatus{Accepting: true}, nil
}

// acceptanceCheck returns a typed error when the service cannot take a new
// registration right now.
func (s *QueueService) acceptanceCheck(service *models.Service, now time.Time) error {
	if !service.IsActive {
		return domain.Validationf("service %s is not active", service.Code)
	}
	if !withinSchedule(service.Schedules, now) {
		return domain.Validationf("service %s is outside its service hours", service.Code)
	}
	if service.DailyQuota > 0 {
		issued, err := s.queueRepo.CountByServiceDate(service.ID, models.DateOf(now))
		if err != nil {
			return err
		}
		if issued >= int64(service.DailyQuota) {
			return domain.Capacityf("service %s reached its daily quota of %d", service.Code, service.DailyQuota)
		}
	}
	return nil
}

// withinSchedule reports whether now falls inside one of the weekly windows.
// No windows means always open.
func withinSchedule(schedules []models.ServiceSchedule, now time.Time) bool {
	if len(schedules) == 0 {
		return true
	}
	weekday := int(now.Weekday())
	clock := now.Format("15:04")
	for _, w := range schedules {
		if w.Weekday == weekday && w.OpenTime <= clock && clock < w.CloseTime {
			return true
		}
	}
	return false
}

// ticketRef projects a ticket into the capability-check view.
func ticketRef(ticket *models.Queue) domain.TicketRef {
	ref := domain.TicketRef{
		RequesterID: ticket.RequesterID,
		Status:      ticket.Status,
	}
	if ticket.Officer != nil {
		ref.OfficerUserID = &ticket.Officer.UserID
	}
	return ref
}

// publishTransition emits a committed transition event; never blocks.
func (s *QueueService) publishTransition(ticket *models.Queue, from, to domain.Status) {
	event := TransitionEvent{
		Event:      "transition",
		TicketID:   ticket.ID,
		Number:     ticket.Number,
		ServiceID:  ticket.ServiceID,
		OfficerID:  ticket.OfficerID,
		FromStatus: &from,
		ToStatus:   to,
	}
	if ticket.Service != nil {
		event.ServiceCode = ticket.Service.Code
	}
	s.notify.Publish(event)
}

// notFoundOrErr maps gorm's record-not-found to the domain taxonomy.
func notFoundOrErr(err error, resource string) error {
	if err == gorm.ErrRecordNotFound {
		return domain.NotFound(resource)
	}
	return err
}
