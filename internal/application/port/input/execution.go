package input

import (
	"context"

	"browser-agent/internal/domain/entity"
)

// ExecutionController is the control surface of the sequencer. Starting
// while running replaces the batch; stopping while idle is a no-op.
type ExecutionController interface {
	StartExecution(ctx context.Context, actions []entity.Action) error
	StopExecution()
	Status() entity.ExecutionStatus
	Wait(ctx context.Context) (entity.ExecutionStatus, error)
}
