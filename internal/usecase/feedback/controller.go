// Package feedback turns action results into the next step of the loop:
// persist the outcome, tell the planner, and hand the sequencer a directive.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
	"browser-agent/internal/usecase/sequencer"
)

var _ sequencer.Controller = (*Controller)(nil)

const defaultNotifyTimeout = 30 * time.Second

type Controller struct {
	planner       output.PlannerPort
	store         output.SessionStore
	reporter      output.ProgressReporter
	logger        output.LoggerPort
	notifyTimeout time.Duration

	notifications sync.WaitGroup
}

func NewController(
	planner output.PlannerPort,
	store output.SessionStore,
	reporter output.ProgressReporter,
	logger output.LoggerPort,
) *Controller {
	return &Controller{
		planner:       planner,
		store:         store,
		reporter:      reporter,
		logger:        logger,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// SuccessFeedback is the system record written after a successful action.
func SuccessFeedback(actionID string, data map[string]any) string {
	encoded, err := json.Marshal(data)
	if err != nil || data == nil {
		encoded = []byte("{}")
	}
	return fmt.Sprintf("Successfully executed action: %s\nResult: %s", actionID, encoded)
}

func FailureFeedback(actionID, errMsg string) string {
	return fmt.Sprintf("Failed to execute action: %s\nError: %s", actionID, errMsg)
}

// OnStart marks the action in progress for the owning session, if any.
func (c *Controller) OnStart(ctx context.Context, action entity.Action) {
	sessionID := entity.SessionIDFrom(ctx)
	if sessionID == "" {
		return
	}
	if _, err := c.store.UpdateActionStatus(ctx, sessionID, action.ID, entity.ActionInProgress, ""); err != nil &&
		!errors.Is(err, output.ErrNotFound) {
		c.logger.Warn("Failed to record action start", "session", sessionID, "action", action.ID, "error", err)
	}
}

// OnResult records the outcome and, after a success, asks the planner how to
// continue. Returned actions are appended behind pending.
func (c *Controller) OnResult(ctx context.Context, action entity.Action, result entity.ActionResult, pending []entity.Action) entity.Directive {
	d := c.Decide(ctx, action, result)
	if d.Kind != entity.DirectiveRequestMore {
		return d
	}
	return c.requestMore(ctx, action, result, pending, d.Context)
}

// Decide records the result and returns either Halt(error) or RequestMore
// carrying the feedback text.
func (c *Controller) Decide(ctx context.Context, action entity.Action, result entity.ActionResult) entity.Directive {
	sessionID := entity.SessionIDFrom(ctx)
	log := c.logger.WithFields(map[string]any{"session": sessionID, "action": action.ID})

	if !result.Success {
		feedback := FailureFeedback(action.ID, result.Error)
		c.record(ctx, log, sessionID, action.ID, entity.ActionFailed, result.Error, feedback)
		c.notifyFailure(ctx, log, action, result)
		return entity.Halt(entity.HaltError, result.Error)
	}

	feedback := SuccessFeedback(action.ID, result.Data)
	c.record(ctx, log, sessionID, action.ID, entity.ActionCompleted, "", feedback)
	return entity.RequestMore(feedback)
}

func (c *Controller) record(ctx context.Context, log output.LoggerPort, sessionID, actionID string, status entity.ActionStatus, errMsg, feedback string) {
	if sessionID == "" {
		return
	}

	if _, err := c.store.UpdateActionStatus(ctx, sessionID, actionID, status, errMsg); err != nil &&
		!errors.Is(err, output.ErrNotFound) {
		log.Warn("Failed to record action status", "status", status, "error", err)
	}

	if _, err := c.store.AppendConversation(ctx, entity.ConversationEntry{
		SessionID: sessionID,
		Type:      entity.ConversationSystem,
		Content:   feedback,
	}); err != nil {
		log.Warn("Failed to record feedback", "error", err)
	}
}

// notifyFailure tells the planner about a failure without holding up the halt.
func (c *Controller) notifyFailure(ctx context.Context, log output.LoggerPort, action entity.Action, result entity.ActionResult) {
	sessionID := entity.SessionIDFrom(ctx)
	if sessionID == "" {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
	c.notifications.Add(1)
	go func() {
		defer c.notifications.Done()
		defer cancel()

		sctx := c.sessionContext(notifyCtx, sessionID)
		resp, err := c.planner.Feedback(notifyCtx, output.FeedbackRequest{
			ActionID: action.ID,
			Success:  false,
			Error:    result.Error,
			Context:  sctx,
		})
		if err != nil {
			log.Warn("Planner failure notification failed", "error", err)
			return
		}
		c.remember(notifyCtx, log, sessionID, sctx, FailureFeedback(action.ID, result.Error), resp, false)
	}()
}

// Report handles a result produced outside the sequencer, such as an executor
// reporting over HTTP. The planner is consulted for both outcomes and its
// reply is returned instead of queued.
func (c *Controller) Report(ctx context.Context, actionID string, result entity.ActionResult) (*entity.PlanResponse, error) {
	sessionID := entity.SessionIDFrom(ctx)
	log := c.logger.WithFields(map[string]any{"session": sessionID, "action": actionID})

	status, feedback := entity.ActionCompleted, SuccessFeedback(actionID, result.Data)
	if !result.Success {
		status, feedback = entity.ActionFailed, FailureFeedback(actionID, result.Error)
	}
	c.record(ctx, log, sessionID, actionID, status, result.Error, feedback)

	sctx := c.sessionContext(ctx, sessionID)
	resp, err := c.planner.Feedback(ctx, output.FeedbackRequest{
		ActionID: actionID,
		Success:  result.Success,
		Result:   result.Data,
		Error:    result.Error,
		Context:  sctx,
	})
	if err != nil {
		return nil, err
	}

	if sessionID != "" {
		c.remember(ctx, log, sessionID, sctx, feedback, resp, false)
	}
	return resp, nil
}

// Wait blocks until pending failure notifications are done.
func (c *Controller) Wait() {
	c.notifications.Wait()
}

func (c *Controller) requestMore(ctx context.Context, action entity.Action, result entity.ActionResult, pending []entity.Action, feedback string) entity.Directive {
	sessionID := entity.SessionIDFrom(ctx)
	if sessionID == "" {
		return entity.Advance()
	}
	log := c.logger.WithFields(map[string]any{"session": sessionID, "action": action.ID})

	sctx := c.sessionContext(ctx, sessionID)
	resp, err := c.planner.Feedback(ctx, output.FeedbackRequest{
		ActionID: action.ID,
		Success:  true,
		Result:   result.Data,
		Context:  sctx,
		Pending:  pending,
	})
	if err != nil {
		log.Error("Planner continuation failed", "error", err)
		return entity.Halt(entity.HaltError, fmt.Sprintf("planner: %v", err))
	}

	if kept := dropQueued(resp.Actions, pending); len(kept) < len(resp.Actions) {
		log.Debug("Dropped planned actions that repeat the queue", "dropped", len(resp.Actions)-len(kept))
		resp.Actions = kept
	}

	next := c.remember(ctx, log, sessionID, sctx, feedback, resp, true)
	if len(next) == 0 {
		log.Debug("Planner returned no further actions")
	} else {
		log.Info("Planner extended the batch", "actions", len(next))
	}
	return entity.Advance(next...)
}

// dropQueued strips a leading run of planned actions whose codes repeat the
// queued ones in order.
func dropQueued(planned []entity.PlannedAction, pending []entity.Action) []entity.PlannedAction {
	n := 0
	for n < len(planned) && n < len(pending) && planned[n].Code == pending[n].Code {
		n++
	}
	return planned[n:]
}

// remember stores the planner reply in the session. With queue set the
// actions it carried are returned for execution.
func (c *Controller) remember(ctx context.Context, log output.LoggerPort, sessionID string, sctx entity.SessionContext, feedback string, resp *entity.PlanResponse, queue bool) []entity.Action {
	resp.Actions = FreshIDs(ctx, c.store, sessionID, resp.Actions)
	sctx.Messages = append(sctx.Messages,
		entity.Message{Role: entity.RoleUser, Content: feedback},
		entity.Message{Role: entity.RoleAssistant, Content: resp.Content, Actions: resp.Actions},
	)
	if _, err := c.store.UpdateSessionContext(ctx, sessionID, sctx); err != nil {
		log.Warn("Failed to update session context", "error", err)
	}

	ids := make([]string, 0, len(resp.Actions))
	for _, a := range resp.Actions {
		ids = append(ids, a.ID)
	}
	if _, err := c.store.AppendConversation(ctx, entity.ConversationEntry{
		SessionID: sessionID,
		Type:      entity.ConversationAgent,
		Content:   resp.Content,
		ActionIDs: ids,
	}); err != nil {
		log.Warn("Failed to record planner reply", "error", err)
	}

	if c.reporter != nil {
		c.reporter.ShowAgentMessage(ctx, resp.Content, resp.Actions)
	}

	next := entity.QueueAll(resp.Actions)
	for _, a := range next {
		if err := c.store.SaveAction(ctx, sessionID, a); err != nil {
			log.Warn("Failed to save action", "id", a.ID, "error", err)
		}
	}

	if !queue {
		return nil
	}
	return next
}

// FreshIDs reassigns planned ids that the session already holds, so a new
// reply never overwrites earlier action records.
func FreshIDs(ctx context.Context, store output.SessionStore, sessionID string, planned []entity.PlannedAction) []entity.PlannedAction {
	ids := make([]string, 0, len(planned))
	for _, p := range planned {
		ids = append(ids, p.ID)
	}
	existing, err := store.GetActions(ctx, sessionID, ids)
	if err != nil {
		existing = nil
	}

	taken := make(map[string]bool, len(existing))
	for _, a := range existing {
		taken[a.ID] = true
	}
	return entity.ReassignIDs(planned, func(id string) bool { return taken[id] })
}

func (c *Controller) sessionContext(ctx context.Context, sessionID string) entity.SessionContext {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		c.logger.Warn("Session context unavailable", "session", sessionID, "error", err)
		return entity.SessionContext{}
	}
	return session.Context
}
