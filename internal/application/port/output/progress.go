package output

import (
	"context"

	"browser-agent/internal/domain/entity"
)

type ProgressReporter interface {
	ShowAgentMessage(ctx context.Context, content string, actions []entity.PlannedAction)
	ShowActionStart(ctx context.Context, index int, action entity.Action)
	ShowActionResult(ctx context.Context, index int, action entity.Action, result entity.ActionResult)
	ShowBatchFinished(ctx context.Context, status entity.ExecutionStatus)
}
