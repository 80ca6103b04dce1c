package entity

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const actionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type ActionStatus string

const (
	ActionQueued     ActionStatus = "queued"
	ActionInProgress ActionStatus = "in_progress"
	ActionCompleted  ActionStatus = "completed"
	ActionFailed     ActionStatus = "failed"
)

func (s ActionStatus) IsTerminal() bool {
	return s == ActionCompleted || s == ActionFailed
}

// PlannedAction is the shape the planner emits: {id, code, description?}.
type PlannedAction struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

func (p PlannedAction) Queue() Action {
	return Action{
		ID:          p.ID,
		Code:        p.Code,
		Description: p.Description,
		Status:      ActionQueued,
	}
}

type Action struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Description string       `json:"description,omitempty"`
	Status      ActionStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
}

// Transition moves the action along queued -> in_progress -> completed|failed.
// errMsg is recorded only for the failed state.
func (a *Action) Transition(to ActionStatus, errMsg string) error {
	if a.Status.IsTerminal() {
		return fmt.Errorf("action %s already %s", a.ID, a.Status)
	}

	switch {
	case a.Status == ActionQueued && to == ActionInProgress:
	case a.Status == ActionInProgress && to.IsTerminal():
	default:
		return fmt.Errorf("action %s: invalid transition %s -> %s", a.ID, a.Status, to)
	}

	a.Status = to
	if to == ActionFailed {
		a.Error = errMsg
	}
	return nil
}

// NewActionID returns "action-" followed by a random 7 character suffix.
func NewActionID() string {
	suffix, err := gonanoid.Generate(actionIDAlphabet, 7)
	if err != nil {
		suffix = gonanoid.Must(7)
	}
	return "action-" + suffix
}

// ReassignIDs gives a new id to every planned action whose id is taken or
// repeats an earlier one in the list.
func ReassignIDs(planned []PlannedAction, taken func(id string) bool) []PlannedAction {
	out := make([]PlannedAction, len(planned))
	seen := make(map[string]bool, len(planned))
	for i, p := range planned {
		for p.ID == "" || seen[p.ID] || taken(p.ID) {
			p.ID = NewActionID()
		}
		seen[p.ID] = true
		out[i] = p
	}
	return out
}

func QueueAll(planned []PlannedAction) []Action {
	actions := make([]Action, 0, len(planned))
	for _, p := range planned {
		actions = append(actions, p.Queue())
	}
	return actions
}
