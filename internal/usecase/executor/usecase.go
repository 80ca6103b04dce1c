// Package executor runs a single action code on the page side: it parses the
// code, resolves the active target and applies the action.
package executor

import (
	"context"
	"time"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
	"browser-agent/internal/domain/grammar"
)

type UseCase struct {
	locator   output.TargetLocator
	inspector output.PageInspector
	logger    output.LoggerPort
}

type Option func(*UseCase)

// WithInspector logs a page snapshot after every executed action.
func WithInspector(i output.PageInspector) Option {
	return func(uc *UseCase) { uc.inspector = i }
}

func New(locator output.TargetLocator, logger output.LoggerPort, opts ...Option) *UseCase {
	uc := &UseCase{
		locator: locator,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Run executes code against the active target. Every failure, including an
// unparsable code or a missing target, is reported through the result.
func (uc *UseCase) Run(ctx context.Context, code string) entity.ActionResult {
	action, err := grammar.Parse(code)
	if err != nil {
		uc.logger.Warn("Rejected action code", "code", code, "error", err)
		return entity.Failure(err)
	}

	target, err := uc.locator.ActiveTarget(ctx)
	if err != nil {
		uc.logger.Warn("No target for action", "code", code, "error", err)
		return entity.Failure(err)
	}

	uc.logger.Info("Executing action", "verb", action.Verb(), "code", code)

	start := time.Now()
	result := target.Execute(ctx, action)

	if result.Success {
		uc.logger.Debug("Action completed", "code", code, "elapsed", time.Since(start))
	} else {
		uc.logger.Error("Action failed", "code", code, "error", result.Error, "elapsed", time.Since(start))
	}

	uc.logSnapshot(ctx)
	return result
}

func (uc *UseCase) logSnapshot(ctx context.Context) {
	if uc.inspector == nil {
		return
	}
	snap, err := uc.inspector.Snapshot(ctx, output.SnapshotOptions{})
	if err != nil {
		uc.logger.Debug("Page snapshot unavailable", "error", err)
		return
	}
	uc.logger.Debug("Page after action", "url", snap.URL, "title", snap.Title, "text", snap.Text)
}
