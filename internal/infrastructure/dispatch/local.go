package dispatch

import (
	"context"
	"errors"
	"time"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
)

var _ output.Dispatcher = (*LocalBridge)(nil)

const DefaultTimeout = 30 * time.Second

// CodeRunner runs one action code on the page side.
type CodeRunner interface {
	Run(ctx context.Context, code string) entity.ActionResult
}

// LocalBridge dispatches to a runner living in the same process.
type LocalBridge struct {
	runner  CodeRunner
	timeout time.Duration
	logger  output.LoggerPort
}

func NewLocalBridge(runner CodeRunner, timeout time.Duration, logger output.LoggerPort) *LocalBridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LocalBridge{runner: runner, timeout: timeout, logger: logger}
}

func (b *LocalBridge) Dispatch(ctx context.Context, action entity.Action) entity.ActionResult {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan entity.ActionResult, 1)
	go func() {
		done <- b.runner.Run(ctx, action.Code)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		b.logger.Warn("Dispatch abandoned", "action", action.ID, "error", ctx.Err())
		return entity.Failure(transportErr(ctx.Err()))
	}
}

func transportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &entity.TransportError{Op: "dispatch timed out", Err: err}
	}
	return &entity.TransportError{Op: "dispatch", Err: err}
}
