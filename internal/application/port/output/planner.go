package output

import (
	"context"

	"browser-agent/internal/domain/entity"
)

type PlannerPort interface {
	Plan(ctx context.Context, instruction string, sctx entity.SessionContext) (*entity.PlanResponse, error)
	Feedback(ctx context.Context, req FeedbackRequest) (*entity.PlanResponse, error)
}

type FeedbackRequest struct {
	ActionID string
	Success  bool
	Result   map[string]any
	Error    string
	Context  entity.SessionContext
	// Pending lists actions already queued to run after this one.
	Pending []entity.Action
}
