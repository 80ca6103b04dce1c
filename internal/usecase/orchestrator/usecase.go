// Package orchestrator runs a conversation turn: it keeps the session and
// conversation records, asks the planner for actions and hands them to the
// sequencer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"browser-agent/internal/application/port/input"
	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
	"browser-agent/internal/usecase/feedback"

	"github.com/google/uuid"
)

var _ input.TurnHandler = (*UseCase)(nil)

// ResultReporter consumes results that were produced outside the sequencer.
type ResultReporter interface {
	Report(ctx context.Context, actionID string, result entity.ActionResult) (*entity.PlanResponse, error)
}

type UseCase struct {
	planner  output.PlannerPort
	store    output.SessionStore
	executor input.ExecutionController
	results  ResultReporter
	reporter output.ProgressReporter
	logger   output.LoggerPort
}

func New(
	planner output.PlannerPort,
	store output.SessionStore,
	executor input.ExecutionController,
	results ResultReporter,
	reporter output.ProgressReporter,
	logger output.LoggerPort,
) *UseCase {
	return &UseCase{
		planner:  planner,
		store:    store,
		executor: executor,
		results:  results,
		reporter: reporter,
		logger:   logger,
	}
}

// HandleInstruction plans the instruction within the session and starts the
// resulting batch. An empty sessionID opens a new session.
func (uc *UseCase) HandleInstruction(ctx context.Context, sessionID, instruction string) (*entity.TurnResult, error) {
	if instruction == "" {
		return nil, errors.New("message is required")
	}

	session, err := uc.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	log := uc.logger.WithField("session", session.ID)
	log.Info("Handling instruction", "instruction", instruction)

	if _, err := uc.store.AppendConversation(ctx, entity.ConversationEntry{
		SessionID: session.ID,
		Type:      entity.ConversationUser,
		Content:   instruction,
	}); err != nil {
		return nil, fmt.Errorf("record instruction: %w", err)
	}

	resp, err := uc.planner.Plan(ctx, instruction, session.Context)
	if err != nil {
		log.Error("Planning failed", "error", err)
		return nil, fmt.Errorf("planner: %w", err)
	}

	resp.Actions = feedback.FreshIDs(ctx, uc.store, session.ID, resp.Actions)
	actions := entity.QueueAll(resp.Actions)
	for _, a := range actions {
		if err := uc.store.SaveAction(ctx, session.ID, a); err != nil {
			return nil, fmt.Errorf("save action %s: %w", a.ID, err)
		}
	}

	if _, err := uc.store.AppendConversation(ctx, entity.ConversationEntry{
		SessionID: session.ID,
		Type:      entity.ConversationAgent,
		Content:   resp.Content,
		ActionIDs: actionIDs(resp.Actions),
	}); err != nil {
		return nil, fmt.Errorf("record reply: %w", err)
	}

	sctx := session.Context
	sctx.Messages = append(sctx.Messages,
		entity.Message{Role: entity.RoleUser, Content: instruction},
		entity.Message{Role: entity.RoleAssistant, Content: resp.Content, Actions: resp.Actions},
	)
	if _, err := uc.store.UpdateSessionContext(ctx, session.ID, sctx); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if uc.reporter != nil {
		uc.reporter.ShowAgentMessage(ctx, resp.Content, resp.Actions)
	}

	if len(actions) > 0 {
		if err := uc.executor.StartExecution(entity.WithSessionID(ctx, session.ID), actions); err != nil {
			return nil, fmt.Errorf("start execution: %w", err)
		}
		log.Info("Execution started", "actions", len(actions))
	}

	return &entity.TurnResult{
		SessionID: session.ID,
		Content:   resp.Content,
		Actions:   nonNil(resp.Actions),
	}, nil
}

// HandleFeedback takes a result reported by an executor that runs outside
// this process and returns the planner's suggested next actions.
func (uc *UseCase) HandleFeedback(ctx context.Context, in input.FeedbackInput) (*entity.FeedbackResult, error) {
	if in.ActionID == "" {
		return nil, errors.New("actionId is required")
	}

	session, err := uc.session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	result := entity.Succeeded(in.Result)
	if !in.Success {
		result = entity.ActionResult{Error: in.Error, Kind: entity.KindExecution}
		if result.Error == "" {
			result.Error = "unknown error"
		}
	}

	resp, err := uc.results.Report(entity.WithSessionID(ctx, session.ID), in.ActionID, result)
	if err != nil {
		uc.logger.Error("Feedback processing failed", "session", session.ID, "action", in.ActionID, "error", err)
		return nil, fmt.Errorf("planner: %w", err)
	}

	return &entity.FeedbackResult{
		SessionID:   session.ID,
		Content:     resp.Content,
		NextActions: nonNil(resp.Actions),
	}, nil
}

func (uc *UseCase) Conversations(ctx context.Context, sessionID string) ([]entity.ConversationEntry, error) {
	if _, err := uc.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return uc.store.ListConversations(ctx, sessionID)
}

func (uc *UseCase) session(ctx context.Context, id string) (*entity.Session, error) {
	if id == "" {
		id = uuid.NewString()
	} else {
		session, err := uc.store.GetSession(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, output.ErrNotFound) {
			return nil, fmt.Errorf("load session: %w", err)
		}
	}

	session, err := uc.store.CreateSession(ctx, id, entity.SessionContext{Messages: []entity.Message{}})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	uc.logger.Info("Session created", "session", id)
	return session, nil
}

func actionIDs(actions []entity.PlannedAction) []string {
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		ids = append(ids, a.ID)
	}
	return ids
}

func nonNil(actions []entity.PlannedAction) []entity.PlannedAction {
	if actions == nil {
		return []entity.PlannedAction{}
	}
	return actions
}
