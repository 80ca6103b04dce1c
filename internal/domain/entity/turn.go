package entity

type TurnResult struct {
	SessionID string          `json:"sessionId"`
	Content   string          `json:"content"`
	Actions   []PlannedAction `json:"actions"`
}

type FeedbackResult struct {
	SessionID   string          `json:"sessionId"`
	Content     string          `json:"content"`
	NextActions []PlannedAction `json:"nextActions"`
}

// PlanResponse is what the planner returns for both plan and feedback calls.
type PlanResponse struct {
	Content string
	Actions []PlannedAction
}
