package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/core/domain"
)

func TestCallNextDispatchOrder(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	_, actor := env.createOfficer(t, service.ID, "Loket 1", 5)

	normal := env.register(t, service.ID, false, nil)
	prio := env.register(t, service.ID, true, nil)

	first, err := env.assignment.CallNext(actor)
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if first.ID != prio.Ticket.ID {
		t.Errorf("first call = %s, want priority ticket %s", first.Number, prio.Ticket.Number)
	}
	if first.Status != domain.StatusCalled || first.OfficerID == nil || first.CalledAt == nil {
		t.Error("called ticket must be bound and stamped")
	}

	second, err := env.assignment.CallNext(actor)
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if second.ID != normal.Ticket.ID {
		t.Errorf("second call = %s, want %s", second.Number, normal.Ticket.Number)
	}
}

func TestCallNextEmptyQueue(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	_, actor := env.createOfficer(t, service.ID, "Loket 1", 1)

	ticket, err := env.assignment.CallNext(actor)
	if err != nil {
		t.Fatalf("call next on empty queue: %v", err)
	}
	if ticket != nil {
		t.Errorf("empty queue should yield nil, got %s", ticket.Number)
	}
}

func TestCallNextClosedCounter(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	officer, actor := env.createOfficer(t, service.ID, "Loket 1", 1)
	env.db.Model(officer).Update("is_available", false)
	env.register(t, service.ID, false, nil)

	_, err := env.assignment.CallNext(actor)
	wantValidation(t, err)
}

func TestCallNextVisitorRejected(t *testing.T) {
	env := newTestEnv(t)
	visitor := env.createUser(t, domain.RoleVisitor)

	_, err := env.assignment.CallNext(domain.Actor{UserID: visitor.ID, Role: domain.RoleVisitor})
	wantConflict(t, err)
}

func TestCallNextCapacityLimit(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	_, actor := env.createOfficer(t, service.ID, "Loket 1", 1)

	held := env.register(t, service.ID, false, nil)
	env.register(t, service.ID, false, nil)

	if _, err := env.assignment.CallNext(actor); err != nil {
		t.Fatalf("first call: %v", err)
	}

	_, err := env.assignment.CallNext(actor)
	wantCapacity(t, err)

	// Finishing the held ticket frees the slot.
	if _, err := env.assignment.Start(actor, held.Ticket.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.assignment.Complete(actor, held.Ticket.ID, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.assignment.CallNext(actor); err != nil {
		t.Fatalf("call after completing: %v", err)
	}
}

// One officer with max_concurrent=1 issuing calls from several connections
// at once: the officer row lock serializes the capacity decision, so exactly
// one call binds and the rest see CapacityError. Two tickets wait, so a
// second bind would otherwise have a candidate to grab.
func TestCallNextConcurrentSameOfficerCapacity(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	officer, actor := env.createOfficer(t, service.ID, "Loket 1", 1)

	env.register(t, service.ID, false, nil)
	env.register(t, service.ID, false, nil)

	const callers = 4
	var claimed int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := env.assignment.CallNext(actor)
			if err != nil {
				var capErr *domain.CapacityError
				if !errors.As(err, &capErr) {
					t.Errorf("call next: %v", err)
				}
				return
			}
			if ticket != nil {
				atomic.AddInt64(&claimed, 1)
			}
		}()
	}
	wg.Wait()

	if claimed != 1 {
		t.Errorf("concurrent calls claimed %d tickets, want 1", claimed)
	}

	var active int64
	err := env.db.Model(&models.Queue{}).
		Where("officer_id = ? AND status IN ?", officer.ID,
			[]domain.Status{domain.StatusCalled, domain.StatusProcessing}).
		Count(&active).Error
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if active != 1 {
		t.Errorf("officer holds %d active tickets, want at most max_concurrent=1", active)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	_, actor := env.createOfficer(t, service.ID, "Loket 1", 1)
	resp := env.register(t, service.ID, false, nil)

	called, err := env.assignment.CallNext(actor)
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	started, err := env.assignment.Start(actor, called.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != domain.StatusProcessing || started.StartedAt == nil {
		t.Error("start must move to processing and stamp started_at")
	}

	completed, err := env.assignment.Complete(actor, called.ID, "done")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != domain.StatusCompleted || completed.CompletedAt == nil {
		t.Error("complete must move to completed and stamp completed_at")
	}

	// registered + called + started + completed
	if got := env.logCount(t, resp.Ticket.ID); got != 4 {
		t.Errorf("log entries = %d, want 4", got)
	}
}

func TestCompleteSkipsProcessingRejected(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	_, actor := env.createOfficer(t, service.ID, "Loket 1", 1)
	resp := env.register(t, service.ID, false, nil)

	called, err := env.assignment.CallNext(actor)
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	// called -> completed is not a legal edge.
	_, err = env.assignment.Complete(actor, called.ID, "")
	wantConflict(t, err)

	if env.ticketStatus(t, resp.Ticket.ID) != domain.StatusCalled {
		t.Error("rejected complete must leave the ticket called")
	}
	if got := env.logCount(t, resp.Ticket.ID); got != 2 {
		t.Errorf("rejected complete must not append a log entry, have %d", got)
	}
}

func TestStartByOtherOfficerRejected(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	_, actor1 := env.createOfficer(t, service.ID, "Loket 1", 1)
	_, actor2 := env.createOfficer(t, service.ID, "Loket 2", 1)
	env.register(t, service.ID, false, nil)

	called, err := env.assignment.CallNext(actor1)
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	_, err = env.assignment.Start(actor2, called.ID)
	wantConflict(t, err)
}

func TestRecall(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	_, actor := env.createOfficer(t, service.ID, "Loket 1", 1)
	_, otherActor := env.createOfficer(t, service.ID, "Loket 2", 1)
	env.register(t, service.ID, false, nil)

	called, err := env.assignment.CallNext(actor)
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	time.Sleep(5 * time.Millisecond) // distinct called_at stamps
	recalled, err := env.assignment.Recall(actor, called.ID)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if recalled.Status != domain.StatusCalled {
		t.Errorf("recall must keep status called, got %s", recalled.Status)
	}
	if recalled.CalledAt == nil || !recalled.CalledAt.After(*called.CalledAt) {
		t.Error("recall must re-stamp called_at")
	}

	_, err = env.assignment.Recall(otherActor, called.ID)
	wantConflict(t, err)
}

func TestSkipFreesCapacityKeepsBinding(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	_, actor := env.createOfficer(t, service.ID, "Loket 1", 1)

	env.register(t, service.ID, false, nil)
	env.register(t, service.ID, false, nil)

	called, err := env.assignment.CallNext(actor)
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	skipped, err := env.assignment.Skip(actor, called.ID, "no show")
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if skipped.Status != domain.StatusSkipped {
		t.Errorf("status = %s, want skipped", skipped.Status)
	}
	if skipped.OfficerID == nil {
		t.Error("skip must keep the officer binding for audit")
	}

	// The freed slot lets the officer call again immediately.
	if _, err := env.assignment.CallNext(actor); err != nil {
		t.Fatalf("call after skip: %v", err)
	}

	// Terminal states reject a second skip.
	_, err = env.assignment.Skip(actor, called.ID, "")
	wantConflict(t, err)
}

func TestTransfer(t *testing.T) {
	env := newTestEnv(t)
	umum := env.createService(t, "UMUM", "A", 15, 0)
	pajak := env.createService(t, "PAJAK", "B", 20, 0)
	visitor := env.createUser(t, domain.RoleVisitor)
	_, actor := env.createOfficer(t, umum.ID, "Loket 1", 1)

	env.register(t, pajak.ID, false, nil) // B001 already issued in the target
	resp := env.register(t, umum.ID, true, &visitor.ID)

	result, err := env.assignment.Transfer(actor, resp.Ticket.ID, pajak.ID, "wrong desk")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if result.Source.Status != domain.StatusSkipped {
		t.Errorf("source status = %s, want skipped", result.Source.Status)
	}
	if result.Target.Number != "B002" {
		t.Errorf("target number = %s, want B002 (numbered in the target service)", result.Target.Number)
	}
	if result.Target.Status != domain.StatusWaiting {
		t.Errorf("target status = %s, want waiting", result.Target.Status)
	}
	if result.Target.TransferredFromID == nil || *result.Target.TransferredFromID != resp.Ticket.ID {
		t.Error("target must link back to the source ticket")
	}
	if !result.Target.Priority {
		t.Error("transfer must preserve the priority flag")
	}
	if result.Target.RequesterID == nil || *result.Target.RequesterID != visitor.ID {
		t.Error("transfer must preserve the requester")
	}
}

func TestTransferSameServiceRejected(t *testing.T) {
	env := newTestEnv(t)
	umum := env.createService(t, "UMUM", "A", 15, 0)
	_, actor := env.createOfficer(t, umum.ID, "Loket 1", 1)
	resp := env.register(t, umum.ID, false, nil)

	_, err := env.assignment.Transfer(actor, resp.Ticket.ID, umum.ID, "")
	wantValidation(t, err)
}

func TestTransferBackYieldsFreshTicket(t *testing.T) {
	env := newTestEnv(t)
	umum := env.createService(t, "UMUM", "A", 15, 0)
	pajak := env.createService(t, "PAJAK", "B", 20, 0)
	_, actor := env.createOfficer(t, umum.ID, "Loket 1", 1)
	resp := env.register(t, umum.ID, false, nil)

	first, err := env.assignment.Transfer(actor, resp.Ticket.ID, pajak.ID, "")
	if err != nil {
		t.Fatalf("transfer out: %v", err)
	}

	back, err := env.assignment.Transfer(actor, first.Target.ID, umum.ID, "")
	if err != nil {
		t.Fatalf("transfer back: %v", err)
	}
	if back.Target.Number != "A002" {
		t.Errorf("return ticket = %s, want a fresh A002", back.Target.Number)
	}
	if back.Target.ID == resp.Ticket.ID {
		t.Error("transferring back must create a new ticket, not revive the old one")
	}
}

func TestConcurrentCallNextSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	env.register(t, service.ID, false, nil)

	const officers = 4
	actors := make([]domain.Actor, officers)
	for i := range actors {
		_, actors[i] = env.createOfficer(t, service.ID, "Loket "+string(rune('1'+i)), 1)
	}

	results := make(chan bool, officers)
	var wg sync.WaitGroup
	for _, actor := range actors {
		wg.Add(1)
		go func(a domain.Actor) {
			defer wg.Done()
			ticket, err := env.assignment.CallNext(a)
			if err != nil {
				t.Errorf("concurrent call: %v", err)
				return
			}
			results <- ticket != nil
		}(actor)
	}
	wg.Wait()
	close(results)

	winners := 0
	for won := range results {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1 for a single waiting ticket", winners)
	}
}

func TestSetAvailability(t *testing.T) {
	env := newTestEnv(t)
	service := env.createService(t, "UMUM", "A", 15, 0)
	_, actor := env.createOfficer(t, service.ID, "Loket 1", 1)
	env.register(t, service.ID, false, nil)

	officer, err := env.assignment.SetAvailability(actor, false)
	if err != nil {
		t.Fatalf("set availability: %v", err)
	}
	if officer.IsAvailable {
		t.Error("counter should be closed")
	}

	_, err = env.assignment.CallNext(actor)
	wantValidation(t, err)

	if _, err := env.assignment.SetAvailability(actor, true); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := env.assignment.CallNext(actor); err != nil {
		t.Fatalf("call after reopening: %v", err)
	}
}
