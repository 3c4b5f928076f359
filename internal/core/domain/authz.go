package domain

// TicketRef carries the slice of ticket state the capability check needs:
// who requested it and which officer's user currently holds it. The state
// machine itself (ValidTransition) stays separate.
type TicketRef struct {
	RequesterID   *uint
	OfficerUserID *uint
	Status        Status
}

// CanAct reports whether the actor is allowed to perform action on the
// ticket. It checks capability only; whether the transition is legal from the
// current status is ValidTransition's job.
func CanAct(actor Actor, action Action, t TicketRef) bool {
	switch action {
	case ActionCall:
		// Any officer or admin may call; binding to the right service is
		// checked against the officer record by the caller.
		return actor.IsOfficer() || actor.IsAdmin()
	case ActionRecall, ActionStart, ActionComplete:
		// Only the bound officer.
		return t.OfficerUserID != nil && *t.OfficerUserID == actor.UserID
	case ActionSkip, ActionTransfer:
		// Bound officer, or an officer while the ticket is still unbound,
		// or an administrator.
		if actor.IsAdmin() {
			return true
		}
		if !actor.IsOfficer() {
			return false
		}
		if t.OfficerUserID == nil {
			return true
		}
		return *t.OfficerUserID == actor.UserID
	case ActionCancel:
		// Only the original requester, and only while still waiting.
		return t.RequesterID != nil && *t.RequesterID == actor.UserID &&
			t.Status == StatusWaiting
	}
	return false
}
