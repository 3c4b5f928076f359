package domain

import "testing"

func TestValidTransition(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		from   Status
		want   bool
	}{
		{"call from waiting", ActionCall, StatusWaiting, true},
		{"call from called", ActionCall, StatusCalled, false},
		{"call from completed", ActionCall, StatusCompleted, false},
		{"recall from called", ActionRecall, StatusCalled, true},
		{"recall from waiting", ActionRecall, StatusWaiting, false},
		{"start from called", ActionStart, StatusCalled, true},
		{"start from waiting", ActionStart, StatusWaiting, false},
		{"start from processing", ActionStart, StatusProcessing, false},
		{"complete from processing", ActionComplete, StatusProcessing, true},
		{"complete from called", ActionComplete, StatusCalled, false},
		{"complete from waiting", ActionComplete, StatusWaiting, false},
		{"skip from waiting", ActionSkip, StatusWaiting, true},
		{"skip from called", ActionSkip, StatusCalled, true},
		{"skip from processing", ActionSkip, StatusProcessing, true},
		{"skip from skipped", ActionSkip, StatusSkipped, false},
		{"skip from cancelled", ActionSkip, StatusCancelled, false},
		{"cancel from waiting", ActionCancel, StatusWaiting, true},
		{"cancel from called", ActionCancel, StatusCalled, false},
		{"transfer from waiting", ActionTransfer, StatusWaiting, true},
		{"transfer from processing", ActionTransfer, StatusProcessing, true},
		{"transfer from completed", ActionTransfer, StatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidTransition(tt.action, tt.from); got != tt.want {
				t.Errorf("ValidTransition(%s, %s) = %v, want %v", tt.action, tt.from, got, tt.want)
			}
		})
	}
}

func TestNoActionLeavesTerminalStatus(t *testing.T) {
	actions := []Action{ActionCall, ActionRecall, ActionStart, ActionComplete,
		ActionSkip, ActionCancel, ActionTransfer}
	for _, s := range AllStatuses {
		if !s.IsTerminal() {
			continue
		}
		for _, a := range actions {
			if ValidTransition(a, s) {
				t.Errorf("action %s escapes terminal status %s", a, s)
			}
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if StatusWaiting.IsTerminal() || StatusCalled.IsTerminal() || StatusProcessing.IsTerminal() {
		t.Error("non-terminal status reported terminal")
	}
	if !StatusCompleted.IsTerminal() || !StatusSkipped.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Error("terminal status not reported terminal")
	}
	if !StatusCalled.IsActive() || !StatusProcessing.IsActive() {
		t.Error("bound status not reported active")
	}
	if StatusWaiting.IsActive() || StatusSkipped.IsActive() {
		t.Error("unbound status reported active")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.Valid() {
			t.Errorf("status %s should be valid", s)
		}
	}
	if Status("pending").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestTargetStatus(t *testing.T) {
	tests := []struct {
		action Action
		want   Status
	}{
		{ActionCall, StatusCalled},
		{ActionRecall, StatusCalled},
		{ActionStart, StatusProcessing},
		{ActionComplete, StatusCompleted},
		{ActionSkip, StatusSkipped},
		{ActionTransfer, StatusSkipped},
		{ActionCancel, StatusCancelled},
	}
	for _, tt := range tests {
		if got := TargetStatus(tt.action); got != tt.want {
			t.Errorf("TargetStatus(%s) = %s, want %s", tt.action, got, tt.want)
		}
	}
}
