// Package simulated executes actions without a real browser. With a document
// attached it replays the live DOM semantics on htmldom; without one it
// fabricates a successful result after a fixed delay.
package simulated

import (
	"context"
	"sync"
	"time"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
	"browser-agent/internal/domain/grammar"
	"browser-agent/internal/infrastructure/browser/htmldom"
)

var (
	_ output.PageExecutor  = (*Executor)(nil)
	_ output.TargetLocator = (*Executor)(nil)
	_ output.PageInspector = (*Executor)(nil)
)

const DefaultDelay = time.Second

const snapshotTextLimit = 1000

type Executor struct {
	mu     sync.Mutex
	doc    *htmldom.Document
	delay  time.Duration
	logger output.LoggerPort
}

func New(doc *htmldom.Document, delay time.Duration, logger output.LoggerPort) *Executor {
	if delay < 0 {
		delay = 0
	}
	return &Executor{doc: doc, delay: delay, logger: logger}
}

// Attach swaps the document the executor acts on. A nil document switches
// back to fabricated results.
func (e *Executor) Attach(doc *htmldom.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc = doc
}

// ActiveTarget always resolves to the executor itself.
func (e *Executor) ActiveTarget(ctx context.Context) (output.PageExecutor, error) {
	return e, nil
}

// Snapshot never includes a screenshot.
func (e *Executor) Snapshot(ctx context.Context, opts output.SnapshotOptions) (*output.PageSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.doc == nil {
		return &output.PageSnapshot{URL: "about:blank"}, nil
	}
	return &output.PageSnapshot{
		URL:   e.doc.Location(),
		Title: e.doc.Title(),
		Text:  e.doc.Text(snapshotTextLimit),
	}, nil
}

func (e *Executor) Execute(ctx context.Context, action grammar.Action) entity.ActionResult {
	e.mu.Lock()
	doc := e.doc
	if doc == nil {
		e.mu.Unlock()
		return e.fabricate(ctx, action)
	}
	defer e.mu.Unlock()

	switch a := action.(type) {
	case grammar.Navigate:
		return navigate(doc, a)
	case grammar.Click:
		return click(doc, a)
	case grammar.Type:
		return typeText(doc, a)
	case grammar.Press:
		return press(doc, a)
	default:
		return entity.Failure(&entity.UnsupportedActionError{Code: action.Code()})
	}
}

func (e *Executor) fabricate(ctx context.Context, action grammar.Action) entity.ActionResult {
	e.logger.Debug("Simulating action", "code", action.Code(), "delay", e.delay)

	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return entity.Failure(ctx.Err())
	case <-timer.C:
	}

	result := entity.Succeeded(dataFor(action))
	result.Simulated = true
	return result
}

func dataFor(action grammar.Action) map[string]any {
	switch a := action.(type) {
	case grammar.Navigate:
		return map[string]any{"url": a.URL}
	case grammar.Click:
		return map[string]any{"selector": a.Selector}
	case grammar.Type:
		return map[string]any{"selector": a.Selector, "text": a.Text}
	case grammar.Press:
		return map[string]any{"key": a.Key}
	}
	return map[string]any{}
}
