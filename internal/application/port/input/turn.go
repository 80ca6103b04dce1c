package input

import (
	"context"

	"browser-agent/internal/domain/entity"
)

type FeedbackInput struct {
	SessionID string
	ActionID  string
	Success   bool
	Result    map[string]any
	Error     string
}

type TurnHandler interface {
	HandleInstruction(ctx context.Context, sessionID, instruction string) (*entity.TurnResult, error)
	HandleFeedback(ctx context.Context, in FeedbackInput) (*entity.FeedbackResult, error)
	Conversations(ctx context.Context, sessionID string) ([]entity.ConversationEntry, error)
}
