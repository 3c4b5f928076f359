package services

import (
	"log"
	"time"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/adapters/persistence/repositories"
	"mpp-antrian/internal/core/domain"
)

// approachingWindow is how many positions from the front a waiting ticket
// gets its one "approaching" notification.
const approachingWindow = 3

// AssignmentService is the dispatch core: it selects the next waiting ticket,
// binds it to a requesting officer, and drives every officer-side transition.
// Selection-and-bind is a conditional update inside one transaction, so two
// officers calling concurrently can never both win the same ticket.
type AssignmentService struct {
	queueRepo   *repositories.QueueRepository
	catalogRepo *repositories.CatalogRepository
	notify      *NotifyService
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(queueRepo *repositories.QueueRepository, catalogRepo *repositories.CatalogRepository, notify *NotifyService) *AssignmentService {
	return &AssignmentService{
		queueRepo:   queueRepo,
		catalogRepo: catalogRepo,
		notify:      notify,
	}
}

// officerFor resolves the acting officer record for an actor and verifies the
// officer and their service are in a callable state.
func (s *AssignmentService) officerFor(actor domain.Actor) (*models.Officer, error) {
	officer, err := s.catalogRepo.GetActiveOfficerByUserID(actor.UserID)
	if err != nil {
		return nil, notFoundOrErr(err, "officer")
	}
	if !officer.IsAvailable {
		return nil, domain.Validationf("counter %s is closed", officer.CounterName)
	}
	if officer.Service == nil || !officer.Service.IsActive {
		return nil, domain.Validationf("service is not active")
	}
	return officer, nil
}

// CallNext binds the next waiting ticket in the officer's service to that
// officer. Returns (nil, nil) when no eligible ticket exists — an empty
// queue is a normal outcome, not an error.
func (s *AssignmentService) CallNext(actor domain.Actor) (*models.Queue, error) {
	if !domain.CanAct(actor, domain.ActionCall, domain.TicketRef{}) {
		return nil, domain.Conflictf("actor may not call tickets")
	}
	officer, err := s.officerFor(actor)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	today := models.DateOf(now)

	var claimed *models.Queue
	err = s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
		// Lock the officer row first. Concurrent calls by the same
		// officer serialize here, so the capacity counts below include
		// every bind committed by transactions that held the lock
		// before us.
		if err := tx.LockOfficer(officer.ID); err != nil {
			return err
		}
		if err := checkCapacity(tx, officer, 0); err != nil {
			return err
		}

		// Claim loop: select the front of the queue and try to bind it.
		// Losing the conditional update means another officer got there
		// first; exclude that id and take the next candidate.
		var lost []uint
		for {
			next, err := tx.NextWaitingTicket(officer.ServiceID, today, lost)
			if err != nil {
				return err
			}
			if next == nil {
				return nil // empty queue
			}

			ok, err := tx.ClaimTicket(next.ID, officer.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				lost = append(lost, next.ID)
				continue
			}

			// Recount with the fresh bind included. The officer row
			// lock above keeps this authoritative against calls by
			// the same officer on other connections.
			if err := checkCapacity(tx, officer, 1); err != nil {
				return err
			}

			from := domain.StatusWaiting
			if err := tx.AppendLog(&models.QueueLog{
				QueueID:     next.ID,
				ActorUserID: &actor.UserID,
				FromStatus:  &from,
				ToStatus:    domain.StatusCalled,
				Note:        "called to " + officer.CounterName,
			}); err != nil {
				return err
			}

			claimed = next
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, nil
	}

	ticket, err := s.queueRepo.GetTicketByID(claimed.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Ticket %s called to %s by officer %d", ticket.Number, officer.CounterName, officer.ID)
	s.afterCall(ticket, officer, domain.StatusWaiting)
	return ticket, nil
}

// CallQueue binds a caller-specified waiting ticket to the officer, with the
// same atomicity and capacity rules as CallNext.
func (s *AssignmentService) CallQueue(actor domain.Actor, ticketID uint) (*models.Queue, error) {
	if !domain.CanAct(actor, domain.ActionCall, domain.TicketRef{}) {
		return nil, domain.Conflictf("actor may not call tickets")
	}
	officer, err := s.officerFor(actor)
	if err != nil {
		return nil, err
	}

	target, err := s.queueRepo.GetTicketByID(ticketID)
	if err != nil {
		return nil, domain.NotFound("ticket")
	}
	if target.ServiceID != officer.ServiceID {
		return nil, domain.Validationf("ticket %s belongs to another service", target.Number)
	}

	now := time.Now()
	err = s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
		// Same locking discipline as CallNext: per-officer capacity
		// decisions serialize on the officer row.
		if err := tx.LockOfficer(officer.ID); err != nil {
			return err
		}
		if err := checkCapacity(tx, officer, 0); err != nil {
			return err
		}

		ok, err := tx.ClaimTicket(target.ID, officer.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("ticket %s is no longer waiting", target.Number)
		}
		if err := checkCapacity(tx, officer, 1); err != nil {
			return err
		}

		from := domain.StatusWaiting
		return tx.AppendLog(&models.QueueLog{
			QueueID:     target.ID,
			ActorUserID: &actor.UserID,
			FromStatus:  &from,
			ToStatus:    domain.StatusCalled,
			Note:        "called directly to " + officer.CounterName,
		})
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.queueRepo.GetTicketByID(target.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Ticket %s called (direct) to %s", ticket.Number, officer.CounterName)
	s.afterCall(ticket, officer, domain.StatusWaiting)
	return ticket, nil
}

// Recall re-stamps called_at on a ticket the officer already holds, so the
// announcement fires again. Only the bound officer may recall.
func (s *AssignmentService) Recall(actor domain.Actor, ticketID uint) (*models.Queue, error) {
	officer, err := s.officerFor(actor)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
		ok, err := tx.ConditionalUpdate(ticketID, domain.StatusCalled, &officer.ID,
			map[string]interface{}{"called_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("ticket is not called at your counter")
		}
		from := domain.StatusCalled
		return tx.AppendLog(&models.QueueLog{
			QueueID:     ticketID,
			ActorUserID: &actor.UserID,
			FromStatus:  &from,
			ToStatus:    domain.StatusCalled,
			Note:        "recall",
		})
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.queueRepo.GetTicketByID(ticketID)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Ticket %s recalled at %s", ticket.Number, officer.CounterName)
	s.publishTransition(ticket, officer, domain.StatusCalled, domain.StatusCalled)
	return ticket, nil
}

// Start moves a called ticket to processing. Only the bound officer.
func (s *AssignmentService) Start(actor domain.Actor, ticketID uint) (*models.Queue, error) {
	officer, err := s.officerFor(actor)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
		ok, err := tx.ConditionalUpdate(ticketID, domain.StatusCalled, &officer.ID,
			map[string]interface{}{
				"status":     domain.StatusProcessing,
				"started_at": now,
			})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("ticket is not called at your counter")
		}
		from := domain.StatusCalled
		return tx.AppendLog(&models.QueueLog{
			QueueID:     ticketID,
			ActorUserID: &actor.UserID,
			FromStatus:  &from,
			ToStatus:    domain.StatusProcessing,
		})
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.queueRepo.GetTicketByID(ticketID)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Ticket %s now processing at %s", ticket.Number, officer.CounterName)
	s.publishTransition(ticket, officer, domain.StatusCalled, domain.StatusProcessing)
	return ticket, nil
}

// Complete finishes a processing ticket. Only the bound officer; a ticket can
// reach completed exclusively via waiting→called→processing.
func (s *AssignmentService) Complete(actor domain.Actor, ticketID uint, note string) (*models.Queue, error) {
	officer, err := s.officerFor(actor)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
		ok, err := tx.ConditionalUpdate(ticketID, domain.StatusProcessing, &officer.ID,
			map[string]interface{}{
				"status":       domain.StatusCompleted,
				"completed_at": now,
			})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("ticket is not processing at your counter")
		}
		from := domain.StatusProcessing
		return tx.AppendLog(&models.QueueLog{
			QueueID:     ticketID,
			ActorUserID: &actor.UserID,
			FromStatus:  &from,
			ToStatus:    domain.StatusCompleted,
			Note:        note,
		})
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.queueRepo.GetTicketByID(ticketID)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Ticket %s completed at %s", ticket.Number, officer.CounterName)
	s.publishTransition(ticket, officer, domain.StatusProcessing, domain.StatusCompleted)
	return ticket, nil
}

// Skip marks a ticket skipped from any non-terminal status. The officer
// binding stays on the row for audit, but a skipped ticket stops counting
// against the officer's capacity the moment this commits.
func (s *AssignmentService) Skip(actor domain.Actor, ticketID uint, note string) (*models.Queue, error) {
	ticket, err := s.queueRepo.GetTicketByID(ticketID)
	if err != nil {
		return nil, domain.NotFound("ticket")
	}

	if !domain.CanAct(actor, domain.ActionSkip, ticketRef(ticket)) {
		return nil, domain.Conflictf("ticket %s is held by another officer", ticket.Number)
	}
	if !domain.ValidTransition(domain.ActionSkip, ticket.Status) {
		return nil, domain.Conflictf("ticket %s is already %s", ticket.Number, ticket.Status)
	}

	from := ticket.Status
	err = s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
		ok, err := tx.ConditionalUpdate(ticket.ID, from, nil,
			map[string]interface{}{"status": domain.StatusSkipped})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("ticket %s changed state, re-read and retry", ticket.Number)
		}
		return tx.AppendLog(&models.QueueLog{
			QueueID:     ticket.ID,
			ActorUserID: &actor.UserID,
			FromStatus:  &from,
			ToStatus:    domain.StatusSkipped,
			Note:        note,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.queueRepo.GetTicketByID(ticket.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Ticket %s skipped (was %s)", updated.Number, from)
	s.publishTransition(updated, nil, from, domain.StatusSkipped)
	return updated, nil
}

// TransferResponse carries both sides of a transfer
type TransferResponse struct {
	Source *models.Queue `json:"source"`
	Target *models.Queue `json:"target"`
}

// Transfer terminates the source ticket and spawns a fresh waiting ticket in
// the target service, numbered there, priority preserved, linked back through
// transferred_from_id. Both rows and both log entries commit atomically.
func (s *AssignmentService) Transfer(actor domain.Actor, ticketID, targetServiceID uint, note string) (*TransferResponse, error) {
	source, err := s.queueRepo.GetTicketByID(ticketID)
	if err != nil {
		return nil, domain.NotFound("ticket")
	}

	if !domain.CanAct(actor, domain.ActionTransfer, ticketRef(source)) {
		return nil, domain.Conflictf("ticket %s is held by another officer", source.Number)
	}
	if !domain.ValidTransition(domain.ActionTransfer, source.Status) {
		return nil, domain.Conflictf("ticket %s is already %s", source.Number, source.Status)
	}

	targetService, err := s.catalogRepo.GetServiceByID(targetServiceID)
	if err != nil {
		return nil, domain.NotFound("target service")
	}
	if targetService.ID == source.ServiceID {
		return nil, domain.Validationf("ticket %s is already in service %s", source.Number, targetService.Code)
	}
	if !targetService.IsActive {
		return nil, domain.Validationf("service %s is not active", targetService.Code)
	}

	now := time.Now()
	today := models.DateOf(now)
	from := source.Status

	var target *models.Queue
	err = s.queueRepo.Transaction(func(tx *repositories.QueueRepository) error {
		ok, err := tx.ConditionalUpdate(source.ID, from, nil,
			map[string]interface{}{"status": domain.StatusSkipped})
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("ticket %s changed state, re-read and retry", source.Number)
		}

		number, err := tx.NextTicketNumber(targetService, today)
		if err != nil {
			return err
		}

		target = &models.Queue{
			Number:            number,
			ServiceID:         targetService.ID,
			QueueDate:         today,
			RequesterID:       source.RequesterID,
			TransferredFromID: &source.ID,
			Priority:          source.Priority,
			Status:            domain.StatusWaiting,
			Channel:           source.Channel,
		}
		if err := tx.CreateTicket(target); err != nil {
			return err
		}

		ahead, err := tx.CountWaitingAhead(target)
		if err != nil {
			return err
		}
		estimated := int(ahead) * targetService.AvgMinutes
		if _, err := tx.ConditionalUpdate(target.ID, domain.StatusWaiting, nil,
			map[string]interface{}{"estimated_minutes": estimated}); err != nil {
			return err
		}
		target.EstimatedMinutes = estimated

		if err := tx.AppendLog(&models.QueueLog{
			QueueID:     source.ID,
			ActorUserID: &actor.UserID,
			FromStatus:  &from,
			ToStatus:    domain.StatusSkipped,
			Note:        "transfer -> " + targetService.Code + noteSuffix(note),
		}); err != nil {
			return err
		}
		return tx.AppendLog(&models.QueueLog{
			QueueID:     target.ID,
			ActorUserID: &actor.UserID,
			ToStatus:    domain.StatusWaiting,
			Note:        "transferred from " + source.Number,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Ticket %s transferred to %s as %s", source.Number, targetService.Code, target.Number)

	updatedSource, err := s.queueRepo.GetTicketByID(source.ID)
	if err != nil {
		return nil, err
	}
	s.publishTransition(updatedSource, nil, from, domain.StatusSkipped)
	s.notify.Publish(TransitionEvent{
		Event:       "transition",
		TicketID:    target.ID,
		Number:      target.Number,
		ServiceID:   targetService.ID,
		ServiceCode: targetService.Code,
		ToStatus:    domain.StatusWaiting,
	})

	return &TransferResponse{Source: updatedSource, Target: target}, nil
}

// CurrentlyCalled returns tickets currently bound to officers, optionally
// scoped to one service.
func (s *AssignmentService) CurrentlyCalled(serviceID *uint) ([]models.Queue, error) {
	return s.queueRepo.CurrentlyCalled(serviceID, models.DateOf(time.Now()))
}

// SetAvailability opens or closes the acting officer's counter.
func (s *AssignmentService) SetAvailability(actor domain.Actor, available bool) (*models.Officer, error) {
	officer, err := s.catalogRepo.GetActiveOfficerByUserID(actor.UserID)
	if err != nil {
		return nil, notFoundOrErr(err, "officer")
	}
	if err := s.catalogRepo.SetOfficerAvailability(officer.ID, available); err != nil {
		return nil, err
	}
	state := "closed"
	if available {
		state = "open"
	}
	log.Printf("✅ Counter %s %s by officer %d", officer.CounterName, state, officer.ID)
	return s.catalogRepo.GetOfficerByID(officer.ID)
}

// checkCapacity rejects the operation when the officer's active tickets
// (called/processing) meet or exceed max_concurrent. slack is 0 before the
// bind and 1 after, when the just-claimed ticket is part of the count.
// Callers must hold the officer row lock (LockOfficer) in the same
// transaction; without it the count can read a snapshot that predates a
// concurrent bind.
func checkCapacity(tx *repositories.QueueRepository, officer *models.Officer, slack int64) error {
	active, err := tx.CountActiveByOfficer(officer.ID)
	if err != nil {
		return err
	}
	if active-slack >= int64(officer.MaxConcurrent) {
		return domain.Capacityf("counter %s is at its limit of %d active tickets",
			officer.CounterName, officer.MaxConcurrent)
	}
	return nil
}

// afterCall emits the call transition and, in the background, one-shot
// approaching notifications for tickets near the front.
func (s *AssignmentService) afterCall(ticket *models.Queue, officer *models.Officer, from domain.Status) {
	s.publishTransition(ticket, officer, from, domain.StatusCalled)
	go s.notifyApproaching(ticket.ServiceID, ticket.QueueDate)
}

// notifyApproaching flags and announces waiting tickets within the
// approaching window. Runs detached from the call path; failures only log.
func (s *AssignmentService) notifyApproaching(serviceID uint, date time.Time) {
	front, err := s.queueRepo.WaitingTopN(serviceID, date, approachingWindow)
	if err != nil {
		log.Printf("⚠️ approaching check failed for service %d: %v", serviceID, err)
		return
	}
	for i := range front {
		t := &front[i]
		if t.NotifySent {
			continue
		}
		ok, err := s.queueRepo.MarkNotifySent(t.ID)
		if err != nil {
			log.Printf("⚠️ approaching mark failed for ticket %s: %v", t.Number, err)
			continue
		}
		if !ok {
			continue
		}
		s.notify.Publish(TransitionEvent{
			Event:     "approaching",
			TicketID:  t.ID,
			Number:    t.Number,
			ServiceID: t.ServiceID,
			ToStatus:  t.Status,
		})
	}
}

// publishTransition emits a committed transition event; never blocks.
func (s *AssignmentService) publishTransition(ticket *models.Queue, officer *models.Officer, from, to domain.Status) {
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
	if officer != nil {
		event.Counter = officer.CounterName
	} else if ticket.Officer != nil {
		event.Counter = ticket.Officer.CounterName
	}
	s.notify.Publish(event)
}

func noteSuffix(note string) string {
	if note == "" {
		return ""
	}
	return ": " + note
}
