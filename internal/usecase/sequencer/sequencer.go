// Package sequencer drives a batch of actions strictly one at a time against
// a Dispatcher, stopping on the first failure.
package sequencer

import (
	"context"
	"errors"
	"sync"
	"time"

	"browser-agent/internal/application/port/input"
	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
)

var _ input.ExecutionController = (*Sequencer)(nil)

const DefaultDelay = 500 * time.Millisecond

var ErrEmptyBatch = errors.New("no actions to execute")

// Controller decides what follows each result. pending holds the actions
// still queued behind the finished one. Actions carried by an Advance
// directive are appended after them.
type Controller interface {
	OnStart(ctx context.Context, action entity.Action)
	OnResult(ctx context.Context, action entity.Action, result entity.ActionResult, pending []entity.Action) entity.Directive
}

// batch is one started list of actions with its own run loop.
type batch struct {
	actions []entity.Action
	index   int
	reason  entity.HaltReason
	stop    chan struct{}
	done    chan struct{}
	final   entity.ExecutionStatus

	// prev is the batch this one replaced. Its in-flight action must finish
	// before this batch dispatches anything.
	prev *batch
}

type Sequencer struct {
	dispatcher output.Dispatcher
	controller Controller
	reporter   output.ProgressReporter
	logger     output.LoggerPort
	delay      time.Duration

	mu      sync.Mutex
	running bool
	current *batch
	last    *batch
}

type Option func(*Sequencer)

func WithController(c Controller) Option {
	return func(s *Sequencer) { s.controller = c }
}

func WithReporter(r output.ProgressReporter) Option {
	return func(s *Sequencer) { s.reporter = r }
}

// WithDelay sets the pause between two consecutive dispatches.
func WithDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.delay = d
		}
	}
}

func New(dispatcher output.Dispatcher, logger output.LoggerPort, opts ...Option) *Sequencer {
	s := &Sequencer{
		dispatcher: dispatcher,
		logger:     logger,
		delay:      DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartExecution begins a new batch. A running batch is replaced; its
// in-flight action, if any, finishes but its result is not acted upon, and
// the new batch dispatches only after it has.
func (s *Sequencer) StartExecution(ctx context.Context, actions []entity.Action) error {
	if len(actions) == 0 {
		return ErrEmptyBatch
	}

	b := &batch{
		actions: make([]entity.Action, len(actions)),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for i, a := range actions {
		a.Status = entity.ActionQueued
		a.Error = ""
		b.actions[i] = a
	}

	s.mu.Lock()
	if s.running {
		s.logger.Info("Replacing running batch", "remaining", len(s.current.actions)-s.current.index-1)
		s.halt(s.current, entity.HaltStopped)
	}
	b.prev = s.last
	s.current = b
	s.last = b
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Execution started", "actions", len(actions))
	go s.run(context.WithoutCancel(ctx), b)
	return nil
}

// StopExecution halts the running batch. It is a no-op when idle.
func (s *Sequencer) StopExecution() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.logger.Info("Execution stopped", "index", s.current.index)
	s.halt(s.current, entity.HaltStopped)
}

func (s *Sequencer) Status() entity.ExecutionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.current)
}

// Wait blocks until the most recently started batch has no goroutine left
// and returns its final status.
func (s *Sequencer) Wait(ctx context.Context) (entity.ExecutionStatus, error) {
	s.mu.Lock()
	b := s.last
	s.mu.Unlock()

	if b == nil {
		return s.Status(), nil
	}

	select {
	case <-b.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return b.final, nil
	case <-ctx.Done():
		return s.Status(), ctx.Err()
	}
}

// active reports whether b is still the running batch. Callers hold s.mu.
func (s *Sequencer) active(b *batch) bool {
	return s.running && s.current == b
}

// halt leaves b in the Stopped state. Callers hold s.mu.
func (s *Sequencer) halt(b *batch, reason entity.HaltReason) {
	if b.reason != "" {
		return
	}
	b.reason = reason
	close(b.stop)
	if s.current == b {
		s.running = false
	}
}

// complete resets to Idle after the last action succeeded. Callers hold s.mu.
func (s *Sequencer) complete(b *batch) {
	s.halt(b, entity.HaltDone)
	if s.current == b {
		s.current = nil
	}
}

func (s *Sequencer) snapshot(b *batch) entity.ExecutionStatus {
	if b == nil {
		return entity.ExecutionStatus{CurrentIndex: -1}
	}

	status := entity.ExecutionStatus{
		Running:      s.active(b),
		CurrentIndex: b.index,
		Actions:      append([]entity.Action(nil), b.actions...),
		Progress:     entity.Progress{Total: len(b.actions)},
	}
	if b.index >= 0 && b.index < len(b.actions) {
		current := b.actions[b.index]
		status.CurrentAction = &current
	}
	for _, a := range b.actions {
		switch a.Status {
		case entity.ActionCompleted:
			status.Progress.Completed++
		case entity.ActionFailed:
			status.Progress.Failed++
		}
	}
	return status
}

func (s *Sequencer) run(ctx context.Context, b *batch) {
	defer func() {
		s.mu.Lock()
		b.final = s.snapshot(b)
		b.final.Running = false
		final := b.final
		s.mu.Unlock()

		if s.reporter != nil {
			s.reporter.ShowBatchFinished(ctx, final)
		}
		close(b.done)
	}()

	if b.prev != nil {
		<-b.prev.done
		b.prev = nil
	}

	for {
		s.mu.Lock()
		if !s.active(b) {
			s.mu.Unlock()
			return
		}
		idx := b.index
		if err := b.actions[idx].Transition(entity.ActionInProgress, ""); err != nil {
			s.logger.Error("Refusing to dispatch action", "index", idx, "error", err)
			s.halt(b, entity.HaltError)
			s.mu.Unlock()
			return
		}
		action := b.actions[idx]
		s.mu.Unlock()

		if s.controller != nil {
			s.controller.OnStart(ctx, action)
		}
		if s.reporter != nil {
			s.reporter.ShowActionStart(ctx, idx, action)
		}

		result := s.dispatcher.Dispatch(ctx, action)

		s.mu.Lock()
		if result.Success {
			_ = b.actions[idx].Transition(entity.ActionCompleted, "")
		} else {
			_ = b.actions[idx].Transition(entity.ActionFailed, result.Error)
		}
		action = b.actions[idx]
		pending := append([]entity.Action(nil), b.actions[idx+1:]...)
		live := s.active(b)
		s.mu.Unlock()

		if s.reporter != nil {
			s.reporter.ShowActionResult(ctx, idx, action, result)
		}

		if !live {
			s.logger.Info("Discarding result of stopped batch", "action", action.ID, "success", result.Success)
			return
		}

		directive := s.decide(ctx, action, result, pending)

		s.mu.Lock()
		if !s.active(b) {
			s.mu.Unlock()
			return
		}

		if directive.Kind == entity.DirectiveHalt {
			if directive.Reason == entity.HaltDone && idx == len(b.actions)-1 {
				s.complete(b)
			} else {
				s.halt(b, directive.Reason)
			}
			s.mu.Unlock()
			s.logger.Info("Execution halted", "reason", directive.Reason, "index", idx, "error", directive.Error)
			return
		}

		b.actions = append(b.actions, directive.Actions...)
		if idx+1 >= len(b.actions) {
			s.complete(b)
			s.mu.Unlock()
			s.logger.Info("Execution completed", "actions", len(b.actions))
			return
		}
		b.index = idx + 1
		s.mu.Unlock()

		if !s.pause(b) {
			return
		}
	}
}

// decide applies the controller while never letting a failure advance.
func (s *Sequencer) decide(ctx context.Context, action entity.Action, result entity.ActionResult, pending []entity.Action) entity.Directive {
	var d entity.Directive
	if s.controller != nil {
		d = s.controller.OnResult(ctx, action, result, pending)
	} else if result.Success {
		d = entity.Advance()
	}

	if !result.Success && (d.Kind != entity.DirectiveHalt || d.Reason != entity.HaltError) {
		return entity.Halt(entity.HaltError, result.Error)
	}
	if d.Kind == entity.DirectiveRequestMore {
		// Nobody resolved the request; keep going with what is queued.
		return entity.Advance()
	}
	if d.Kind == "" {
		return entity.Advance()
	}
	return d
}

// pause waits the inter-action delay; false means the batch was stopped.
func (s *Sequencer) pause(b *batch) bool {
	if s.delay <= 0 {
		select {
		case <-b.stop:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-b.stop:
		return false
	case <-timer.C:
		return true
	}
}
