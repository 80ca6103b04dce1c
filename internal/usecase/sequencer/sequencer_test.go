package sequencer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"browser-agent/internal/domain/entity"
	"browser-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedDispatcher fails the codes listed in fail and can hold a dispatch
// open until released.
type scriptedDispatcher struct {
	mu       sync.Mutex
	fail     map[string]bool
	calls    []string
	inFlight int
	maxInFl  int
	hold     map[string]chan struct{}
	started  chan string
}

func newDispatcher() *scriptedDispatcher {
	return &scriptedDispatcher{
		fail:    make(map[string]bool),
		hold:    make(map[string]chan struct{}),
		started: make(chan string, 64),
	}
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, action entity.Action) entity.ActionResult {
	d.mu.Lock()
	d.calls = append(d.calls, action.Code)
	d.inFlight++
	if d.inFlight > d.maxInFl {
		d.maxInFl = d.inFlight
	}
	gate := d.hold[action.Code]
	fail := d.fail[action.Code]
	d.mu.Unlock()

	d.started <- action.Code
	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()

	if fail {
		return entity.Failure(&entity.ElementNotFoundError{Selector: action.Code})
	}
	return entity.Succeeded(map[string]any{"code": action.Code})
}

func (d *scriptedDispatcher) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func batchOf(codes ...string) []entity.Action {
	actions := make([]entity.Action, len(codes))
	for i, c := range codes {
		actions[i] = entity.Action{ID: fmt.Sprintf("action-%d", i+1), Code: c}
	}
	return actions
}

func waitDone(t *testing.T, s *Sequencer) entity.ExecutionStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := s.Wait(ctx)
	require.NoError(t, err)
	return status
}

func TestSequencer_CompletesBatchInOrder(t *testing.T) {
	d := newDispatcher()
	s := New(d, logger.NewNop(), WithDelay(0))

	require.NoError(t, s.StartExecution(context.Background(), batchOf("a", "b", "c")))
	final := waitDone(t, s)

	assert.Equal(t, []string{"a", "b", "c"}, d.Calls())
	assert.Equal(t, 1, d.maxInFl)
	assert.False(t, final.Running)
	assert.Equal(t, entity.Progress{Total: 3, Completed: 3}, final.Progress)

	idle := s.Status()
	assert.False(t, idle.Running)
	assert.Equal(t, -1, idle.CurrentIndex)
	assert.Nil(t, idle.CurrentAction)
	assert.Empty(t, idle.Actions)
}

func TestSequencer_HaltsOnFirstFailure(t *testing.T) {
	d := newDispatcher()
	d.fail[`click(".go")`] = true
	s := New(d, logger.NewNop(), WithDelay(0))

	batch := batchOf(`navigate("https://example.com")`, `click(".go")`, `press("Enter")`)
	require.NoError(t, s.StartExecution(context.Background(), batch))
	waitDone(t, s)

	assert.Len(t, d.Calls(), 2)

	status := s.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.CurrentIndex)
	assert.Equal(t, 1, status.Progress.Completed)
	assert.Equal(t, 1, status.Progress.Failed)
	require.NotNil(t, status.CurrentAction)
	assert.Equal(t, entity.ActionFailed, status.CurrentAction.Status)
	assert.Equal(t, `Element not found: click(".go")`, status.CurrentAction.Error)
	assert.Equal(t, entity.ActionQueued, status.Actions[2].Status)
}

func TestSequencer_FailureAtAnyPosition(t *testing.T) {
	const n = 5
	for k := 1; k <= n; k++ {
		t.Run(fmt.Sprintf("fail_at_%d", k), func(t *testing.T) {
			codes := make([]string, n)
			for i := range codes {
				codes[i] = fmt.Sprintf("step-%d", i+1)
			}
			d := newDispatcher()
			d.fail[codes[k-1]] = true
			s := New(d, logger.NewNop(), WithDelay(0))

			require.NoError(t, s.StartExecution(context.Background(), batchOf(codes...)))
			waitDone(t, s)

			assert.Equal(t, codes[:k], d.Calls())
			assert.Equal(t, k-1, s.Status().CurrentIndex)
		})
	}
}

func TestSequencer_StopDiscardsLateResult(t *testing.T) {
	d := newDispatcher()
	gate := make(chan struct{})
	d.hold["2"] = gate
	s := New(d, logger.NewNop(), WithDelay(0))

	require.NoError(t, s.StartExecution(context.Background(), batchOf("1", "2", "3", "4", "5")))
	assert.Equal(t, "1", <-d.started)
	assert.Equal(t, "2", <-d.started)

	s.StopExecution()
	assert.False(t, s.Status().Running)

	close(gate)
	waitDone(t, s)

	assert.Equal(t, []string{"1", "2"}, d.Calls())
	status := s.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.CurrentIndex)
	assert.Equal(t, entity.ActionCompleted, status.Actions[1].Status)
	assert.Equal(t, entity.ActionQueued, status.Actions[2].Status)
}

func TestSequencer_StopDuringDelay(t *testing.T) {
	d := newDispatcher()
	s := New(d, logger.NewNop(), WithDelay(time.Hour))

	require.NoError(t, s.StartExecution(context.Background(), batchOf("a", "b")))
	<-d.started

	require.Eventually(t, func() bool {
		return s.Status().CurrentIndex == 1
	}, time.Second, 5*time.Millisecond)

	s.StopExecution()
	waitDone(t, s)
	assert.Equal(t, []string{"a"}, d.Calls())
}

func TestSequencer_StopWhenIdleIsNoop(t *testing.T) {
	s := New(newDispatcher(), logger.NewNop())

	s.StopExecution()
	s.StopExecution()

	assert.Equal(t, entity.ExecutionStatus{CurrentIndex: -1}, s.Status())
}

func TestSequencer_RejectsEmptyBatch(t *testing.T) {
	s := New(newDispatcher(), logger.NewNop())

	err := s.StartExecution(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.False(t, s.Status().Running)
}

func TestSequencer_StartReplacesRunningBatch(t *testing.T) {
	d := newDispatcher()
	gate := make(chan struct{})
	d.hold["old-1"] = gate
	s := New(d, logger.NewNop(), WithDelay(0))

	require.NoError(t, s.StartExecution(context.Background(), batchOf("old-1", "old-2")))
	<-d.started
	old := s.last

	require.NoError(t, s.StartExecution(context.Background(), batchOf("new-1")))
	assert.True(t, s.Status().Running)

	select {
	case code := <-d.started:
		t.Fatalf("%s dispatched while old-1 was in flight", code)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	final := waitDone(t, s)
	assert.Equal(t, 1, final.Progress.Total)
	assert.Equal(t, 1, final.Progress.Completed)

	<-old.done
	assert.Equal(t, []string{"old-1", "new-1"}, d.Calls())
	assert.Equal(t, 1, d.maxInFl)
	assert.Equal(t, entity.ActionCompleted, old.final.Actions[0].Status)
	assert.Equal(t, entity.ActionQueued, old.final.Actions[1].Status)
}

func TestSequencer_RepeatedReplaceStaysSequential(t *testing.T) {
	d := newDispatcher()
	gate := make(chan struct{})
	d.hold["a-1"] = gate
	s := New(d, logger.NewNop(), WithDelay(0))

	require.NoError(t, s.StartExecution(context.Background(), batchOf("a-1")))
	<-d.started
	require.NoError(t, s.StartExecution(context.Background(), batchOf("b-1")))
	require.NoError(t, s.StartExecution(context.Background(), batchOf("c-1")))

	close(gate)
	final := waitDone(t, s)

	assert.Equal(t, 1, final.Progress.Completed)
	assert.Equal(t, []string{"a-1", "c-1"}, d.Calls())
	assert.Equal(t, 1, d.maxInFl)
}

func TestSequencer_StatusIsIdempotent(t *testing.T) {
	d := newDispatcher()
	gate := make(chan struct{})
	d.hold["a"] = gate
	s := New(d, logger.NewNop(), WithDelay(0))

	require.NoError(t, s.StartExecution(context.Background(), batchOf("a", "b")))
	<-d.started

	first := s.Status()
	second := s.Status()
	assert.Equal(t, first, second)
	assert.True(t, first.Running)
	assert.Equal(t, entity.ActionInProgress, first.CurrentAction.Status)

	first.Actions[0].Code = "mutated"
	assert.Equal(t, "a", s.Status().Actions[0].Code)

	close(gate)
	waitDone(t, s)
}

type appendingController struct {
	mu      sync.Mutex
	started []string
	extra   map[string][]entity.Action
}

func (c *appendingController) OnStart(ctx context.Context, action entity.Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, action.ID)
}

func (c *appendingController) OnResult(ctx context.Context, action entity.Action, result entity.ActionResult, pending []entity.Action) entity.Directive {
	if !result.Success {
		return entity.Halt(entity.HaltError, result.Error)
	}
	return entity.Advance(c.extra[action.Code]...)
}

func TestSequencer_ControllerAppendsActions(t *testing.T) {
	d := newDispatcher()
	ctrl := &appendingController{extra: map[string][]entity.Action{
		`navigate("https://example.com")`: {{ID: "next-1", Code: `click(".go")`}},
	}}
	s := New(d, logger.NewNop(), WithDelay(0), WithController(ctrl))

	require.NoError(t, s.StartExecution(context.Background(), batchOf(`navigate("https://example.com")`)))
	final := waitDone(t, s)

	assert.Equal(t, []string{`navigate("https://example.com")`, `click(".go")`}, d.Calls())
	assert.Equal(t, []string{"action-1", "next-1"}, ctrl.started)
	assert.Equal(t, entity.Progress{Total: 2, Completed: 2}, final.Progress)
}

type pendingRecorder struct {
	mu      sync.Mutex
	pending [][]string
}

func (c *pendingRecorder) OnStart(ctx context.Context, action entity.Action) {}

func (c *pendingRecorder) OnResult(ctx context.Context, action entity.Action, result entity.ActionResult, pending []entity.Action) entity.Directive {
	codes := make([]string, 0, len(pending))
	for _, a := range pending {
		codes = append(codes, a.Code)
	}
	c.mu.Lock()
	c.pending = append(c.pending, codes)
	c.mu.Unlock()
	return entity.Advance()
}

func TestSequencer_ControllerSeesQueuedActions(t *testing.T) {
	d := newDispatcher()
	ctrl := &pendingRecorder{}
	s := New(d, logger.NewNop(), WithDelay(0), WithController(ctrl))

	require.NoError(t, s.StartExecution(context.Background(), batchOf("a", "b", "c")))
	waitDone(t, s)

	assert.Equal(t, [][]string{{"b", "c"}, {"c"}, {}}, ctrl.pending)
}

type advancingController struct{}

func (advancingController) OnStart(ctx context.Context, action entity.Action) {}

func (advancingController) OnResult(ctx context.Context, action entity.Action, result entity.ActionResult, pending []entity.Action) entity.Directive {
	return entity.Advance()
}

func TestSequencer_FailureHaltsEvenIfControllerAdvances(t *testing.T) {
	d := newDispatcher()
	d.fail["a"] = true
	s := New(d, logger.NewNop(), WithDelay(0), WithController(advancingController{}))

	require.NoError(t, s.StartExecution(context.Background(), batchOf("a", "b")))
	waitDone(t, s)

	assert.Equal(t, []string{"a"}, d.Calls())
}

type recordingReporter struct {
	mu       sync.Mutex
	events   []string
	finished []entity.ExecutionStatus
}

func (r *recordingReporter) ShowAgentMessage(ctx context.Context, content string, actions []entity.PlannedAction) {
}

func (r *recordingReporter) ShowActionStart(ctx context.Context, index int, action entity.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("start %d", index))
}

func (r *recordingReporter) ShowActionResult(ctx context.Context, index int, action entity.Action, result entity.ActionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("result %d %s", index, action.Status))
}

func (r *recordingReporter) ShowBatchFinished(ctx context.Context, status entity.ExecutionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, status)
}

func TestSequencer_ReportsProgress(t *testing.T) {
	d := newDispatcher()
	d.fail["b"] = true
	rep := &recordingReporter{}
	s := New(d, logger.NewNop(), WithDelay(0), WithReporter(rep))

	require.NoError(t, s.StartExecution(context.Background(), batchOf("a", "b")))
	waitDone(t, s)

	assert.Equal(t, []string{"start 0", "result 0 completed", "start 1", "result 1 failed"}, rep.events)
	require.Len(t, rep.finished, 1)
	assert.Equal(t, 1, rep.finished[0].Progress.Failed)
}
