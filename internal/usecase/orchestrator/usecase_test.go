package orchestrator

import (
	"context"
	"errors"
	"testing"

	"browser-agent/internal/application/port/input"
	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
	"browser-agent/internal/infrastructure/logger"
	"browser-agent/internal/infrastructure/storage/memory"
	"browser-agent/internal/usecase/feedback"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlanner struct {
	plan     *entity.PlanResponse
	feedback *entity.PlanResponse
	err      error

	contexts []entity.SessionContext
}

func (p *stubPlanner) Plan(ctx context.Context, instruction string, sctx entity.SessionContext) (*entity.PlanResponse, error) {
	p.contexts = append(p.contexts, sctx)
	if p.err != nil {
		return nil, p.err
	}
	return p.plan, nil
}

func (p *stubPlanner) Feedback(ctx context.Context, req output.FeedbackRequest) (*entity.PlanResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.feedback, nil
}

type recordingExecutor struct {
	sessionID string
	actions   []entity.Action
	err       error
}

func (r *recordingExecutor) StartExecution(ctx context.Context, actions []entity.Action) error {
	r.sessionID = entity.SessionIDFrom(ctx)
	r.actions = actions
	return r.err
}

func (r *recordingExecutor) StopExecution()                 {}
func (r *recordingExecutor) Status() entity.ExecutionStatus { return entity.ExecutionStatus{} }
func (r *recordingExecutor) Wait(ctx context.Context) (entity.ExecutionStatus, error) {
	return entity.ExecutionStatus{}, nil
}

func setup(planner *stubPlanner) (*UseCase, *memory.Store, *recordingExecutor) {
	store := memory.New()
	exec := &recordingExecutor{}
	ctrl := feedback.NewController(planner, store, nil, logger.NewNop())
	return New(planner, store, exec, ctrl, nil, logger.NewNop()), store, exec
}

func searchPlan() *entity.PlanResponse {
	return &entity.PlanResponse{
		Content: "Searching for gophers.",
		Actions: []entity.PlannedAction{
			{ID: "action-1", Code: `type("#q", "gophers")`, Description: "Fill search"},
			{ID: "action-2", Code: `press("Enter")`, Description: "Submit"},
		},
	}
}

func TestUseCase_HandleInstruction_NewSession(t *testing.T) {
	uc, store, exec := setup(&stubPlanner{plan: searchPlan()})
	ctx := context.Background()

	res, err := uc.HandleInstruction(ctx, "", "search for gophers")
	require.NoError(t, err)

	require.NotEmpty(t, res.SessionID)
	assert.Equal(t, "Searching for gophers.", res.Content)
	assert.Len(t, res.Actions, 2)

	assert.Equal(t, res.SessionID, exec.sessionID)
	require.Len(t, exec.actions, 2)
	assert.Equal(t, entity.ActionQueued, exec.actions[0].Status)

	stored, err := store.GetActions(ctx, res.SessionID, []string{"action-1", "action-2"})
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	entries, err := uc.Conversations(ctx, res.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entity.ConversationUser, entries[0].Type)
	assert.Equal(t, "search for gophers", entries[0].Content)
	assert.Equal(t, entity.ConversationAgent, entries[1].Type)
	assert.Equal(t, []string{"action-1", "action-2"}, entries[1].ActionIDs)

	session, err := store.GetSession(ctx, res.SessionID)
	require.NoError(t, err)
	require.Len(t, session.Context.Messages, 2)
	assert.Equal(t, entity.RoleAssistant, session.Context.Messages[1].Role)
	assert.Len(t, session.Context.Messages[1].Actions, 2)
}

func TestUseCase_HandleInstruction_ReplaysContext(t *testing.T) {
	planner := &stubPlanner{plan: searchPlan()}
	uc, _, _ := setup(planner)
	ctx := context.Background()

	first, err := uc.HandleInstruction(ctx, "s-1", "search for gophers")
	require.NoError(t, err)
	assert.Equal(t, "s-1", first.SessionID)

	_, err = uc.HandleInstruction(ctx, "s-1", "again")
	require.NoError(t, err)

	require.Len(t, planner.contexts, 2)
	assert.Empty(t, planner.contexts[0].Messages)
	assert.Len(t, planner.contexts[1].Messages, 2)
}

func TestUseCase_HandleInstruction_RepeatedIDsDoNotOverwrite(t *testing.T) {
	uc, store, exec := setup(&stubPlanner{plan: searchPlan()})
	ctx := context.Background()

	_, err := uc.HandleInstruction(ctx, "s-1", "search for gophers")
	require.NoError(t, err)
	_, err = store.UpdateActionStatus(ctx, "s-1", "action-1", entity.ActionCompleted, "")
	require.NoError(t, err)

	second, err := uc.HandleInstruction(ctx, "s-1", "search again")
	require.NoError(t, err)

	require.Len(t, second.Actions, 2)
	for _, a := range second.Actions {
		assert.NotEqual(t, "action-1", a.ID)
		assert.NotEqual(t, "action-2", a.ID)
	}
	assert.Equal(t, second.Actions[0].ID, exec.actions[0].ID)

	first, err := store.GetActions(ctx, "s-1", []string{"action-1"})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, entity.ActionCompleted, first[0].Status)

	entries, err := store.ListConversations(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, []string{"action-1", "action-2"}, entries[1].ActionIDs)
	assert.Equal(t, []string{second.Actions[0].ID, second.Actions[1].ID}, entries[3].ActionIDs)
}

func TestUseCase_HandleInstruction_NoActions(t *testing.T) {
	uc, _, exec := setup(&stubPlanner{plan: &entity.PlanResponse{Content: "Nothing to do."}})

	res, err := uc.HandleInstruction(context.Background(), "", "hello")
	require.NoError(t, err)

	assert.NotNil(t, res.Actions)
	assert.Empty(t, res.Actions)
	assert.Nil(t, exec.actions)
}

func TestUseCase_HandleInstruction_PlannerError(t *testing.T) {
	uc, _, exec := setup(&stubPlanner{err: errors.New("failed to process instruction: timeout")})

	_, err := uc.HandleInstruction(context.Background(), "", "search")
	require.Error(t, err)
	assert.Equal(t, "planner: failed to process instruction: timeout", err.Error())
	assert.Nil(t, exec.actions)
}

func TestUseCase_HandleInstruction_Empty(t *testing.T) {
	uc, _, _ := setup(&stubPlanner{})
	_, err := uc.HandleInstruction(context.Background(), "", "")
	assert.Error(t, err)
}

func TestUseCase_HandleInstruction_StartError(t *testing.T) {
	uc, _, exec := setup(&stubPlanner{plan: searchPlan()})
	exec.err = errors.New("boom")

	_, err := uc.HandleInstruction(context.Background(), "", "search")
	assert.ErrorContains(t, err, "start execution")
}

func TestUseCase_HandleFeedback(t *testing.T) {
	planner := &stubPlanner{
		plan: searchPlan(),
		feedback: &entity.PlanResponse{
			Content: "Results are loading.",
			Actions: []entity.PlannedAction{{ID: "action-3", Code: `click(".result")`}},
		},
	}
	uc, store, _ := setup(planner)
	ctx := context.Background()

	turn, err := uc.HandleInstruction(ctx, "", "search for gophers")
	require.NoError(t, err)

	res, err := uc.HandleFeedback(ctx, input.FeedbackInput{
		SessionID: turn.SessionID,
		ActionID:  "action-1",
		Success:   true,
		Result:    map[string]any{"selector": "#q"},
	})
	require.NoError(t, err)

	assert.Equal(t, turn.SessionID, res.SessionID)
	assert.Equal(t, "Results are loading.", res.Content)
	require.Len(t, res.NextActions, 1)
	assert.Equal(t, "action-3", res.NextActions[0].ID)

	stored, err := store.GetActions(ctx, turn.SessionID, []string{"action-1", "action-3"})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, entity.ActionCompleted, stored[0].Status)
	assert.Equal(t, entity.ActionQueued, stored[1].Status)

	entries, err := uc.Conversations(ctx, turn.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, entity.ConversationSystem, entries[2].Type)
	assert.Equal(t, "Successfully executed action: action-1\nResult: {\"selector\":\"#q\"}", entries[2].Content)
}

func TestUseCase_HandleFeedback_Failure(t *testing.T) {
	planner := &stubPlanner{plan: searchPlan(), feedback: &entity.PlanResponse{Content: "Giving up."}}
	uc, store, _ := setup(planner)
	ctx := context.Background()

	turn, err := uc.HandleInstruction(ctx, "", "search")
	require.NoError(t, err)

	res, err := uc.HandleFeedback(ctx, input.FeedbackInput{SessionID: turn.SessionID, ActionID: "action-2"})
	require.NoError(t, err)
	assert.Empty(t, res.NextActions)

	stored, err := store.GetActions(ctx, turn.SessionID, []string{"action-2"})
	require.NoError(t, err)
	assert.Equal(t, entity.ActionFailed, stored[0].Status)
	assert.Equal(t, "unknown error", stored[0].Error)
}

func TestUseCase_HandleFeedback_Validation(t *testing.T) {
	uc, _, _ := setup(&stubPlanner{})
	_, err := uc.HandleFeedback(context.Background(), input.FeedbackInput{})
	assert.Error(t, err)
}

func TestUseCase_Conversations_UnknownSession(t *testing.T) {
	uc, _, _ := setup(&stubPlanner{})
	_, err := uc.Conversations(context.Background(), "missing")
	assert.ErrorIs(t, err, output.ErrNotFound)
}
