package domain

// Status is a ticket's lifecycle state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusCalled     Status = "called"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists every lifecycle state, in lifecycle order.
var AllStatuses = []Status{
	StatusWaiting,
	StatusCalled,
	StatusProcessing,
	StatusCompleted,
	StatusSkipped,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusCalled, StatusProcessing,
		StatusCompleted, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the ticket is bound to a counter right now.
// Active tickets are what an officer's capacity limit counts.
func (s Status) IsActive() bool {
	return s == StatusCalled || s == StatusProcessing
}

// Label returns the display label shown on lobby boards.
func (s Status) Label() string {
	switch s {
	case StatusWaiting:
		return "Menunggu"
	case StatusCalled:
		return "Dipanggil"
	case StatusProcessing:
		return "Dilayani"
	case StatusCompleted:
		return "Selesai"
	case StatusSkipped:
		return "Dilewati"
	case StatusCancelled:
		return "Dibatalkan"
	}
	return string(s)
}

// Action is a lifecycle operation requested on a ticket.
type Action string

const (
	ActionCall     Action = "call"
	ActionRecall   Action = "recall"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionSkip     Action = "skip"
	ActionCancel   Action = "cancel"
	ActionTransfer Action = "transfer"
)

// transitions maps each action to the statuses it may fire from. Skip and
// transfer fire from any non-terminal state; everything else has exactly one
// legal source.
var transitions = map[Action][]Status{
	ActionCall:     {StatusWaiting},
	ActionRecall:   {StatusCalled},
	ActionStart:    {StatusCalled},
	ActionComplete: {StatusProcessing},
	ActionSkip:     {StatusWaiting, StatusCalled, StatusProcessing},
	ActionCancel:   {StatusWaiting},
	ActionTransfer: {StatusWaiting, StatusCalled, StatusProcessing},
}

// ValidTransition reports whether action may fire from the given status.
func ValidTransition(action Action, from Status) bool {
	for _, s := range transitions[action] {
		if s == from {
			return true
		}
	}
	return false
}

// TargetStatus returns the status an action lands in. Recall stays in called;
// transfer terminates the source ticket as skipped, the replacement ticket
// starts a fresh waiting lifecycle.
func TargetStatus(action Action) Status {
	switch action {
	case ActionCall, ActionRecall:
		return StatusCalled
	case ActionStart:
		return StatusProcessing
	case ActionComplete:
		return StatusCompleted
	case ActionSkip, ActionTransfer:
		return StatusSkipped
	case ActionCancel:
		return StatusCancelled
	}
	return ""
}
