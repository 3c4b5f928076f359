package domain

import "testing"

func uintPtr(v uint) *uint { return &v }

func TestCanActCall(t *testing.T) {
	if !CanAct(Actor{UserID: 1, Role: RoleOfficer}, ActionCall, TicketRef{}) {
		t.Error("officer should be able to call")
	}
	if !CanAct(Actor{UserID: 1, Role: RoleAdmin}, ActionCall, TicketRef{}) {
		t.Error("admin should be able to call")
	}
	if CanAct(Actor{UserID: 1, Role: RoleVisitor}, ActionCall, TicketRef{}) {
		t.Error("visitor must not call")
	}
}

func TestCanActBoundOnly(t *testing.T) {
	bound := TicketRef{OfficerUserID: uintPtr(7), Status: StatusCalled}
	owner := Actor{UserID: 7, Role: RoleOfficer}
	other := Actor{UserID: 8, Role: RoleOfficer}
	admin := Actor{UserID: 9, Role: RoleAdmin}

	for _, action := range []Action{ActionRecall, ActionStart, ActionComplete} {
		if !CanAct(owner, action, bound) {
			t.Errorf("bound officer should be able to %s", action)
		}
		if CanAct(other, action, bound) {
			t.Errorf("other officer must not %s", action)
		}
		if CanAct(admin, action, bound) {
			t.Errorf("admin must not %s another officer's ticket", action)
		}
	}
}

func TestCanActSkipTransfer(t *testing.T) {
	unbound := TicketRef{Status: StatusWaiting}
	bound := TicketRef{OfficerUserID: uintPtr(7), Status: StatusCalled}

	for _, action := range []Action{ActionSkip, ActionTransfer} {
		if !CanAct(Actor{UserID: 9, Role: RoleAdmin}, action, bound) {
			t.Errorf("admin should be able to %s any ticket", action)
		}
		if !CanAct(Actor{UserID: 7, Role: RoleOfficer}, action, bound) {
			t.Errorf("bound officer should be able to %s", action)
		}
		if CanAct(Actor{UserID: 8, Role: RoleOfficer}, action, bound) {
			t.Errorf("other officer must not %s a bound ticket", action)
		}
		if !CanAct(Actor{UserID: 8, Role: RoleOfficer}, action, unbound) {
			t.Errorf("any officer should be able to %s an unbound ticket", action)
		}
		if CanAct(Actor{UserID: 3, Role: RoleVisitor}, action, unbound) {
			t.Errorf("visitor must not %s", action)
		}
	}
}

func TestCanActCancel(t *testing.T) {
	mine := TicketRef{RequesterID: uintPtr(3), Status: StatusWaiting}
	if !CanAct(Actor{UserID: 3, Role: RoleVisitor}, ActionCancel, mine) {
		t.Error("requester should be able to cancel while waiting")
	}
	if CanAct(Actor{UserID: 4, Role: RoleVisitor}, ActionCancel, mine) {
		t.Error("another visitor must not cancel")
	}
	if CanAct(Actor{UserID: 9, Role: RoleAdmin}, ActionCancel, mine) {
		t.Error("cancel is requester-only, even for admins")
	}

	called := TicketRef{RequesterID: uintPtr(3), Status: StatusCalled}
	if CanAct(Actor{UserID: 3, Role: RoleVisitor}, ActionCancel, called) {
		t.Error("cancel must not apply after the ticket leaves waiting")
	}

	anonymous := TicketRef{Status: StatusWaiting}
	if CanAct(Actor{UserID: 3, Role: RoleVisitor}, ActionCancel, anonymous) {
		t.Error("anonymous tickets have no requester to cancel them")
	}
}
