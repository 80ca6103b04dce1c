package executor

import (
	"context"
	"testing"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
	"browser-agent/internal/domain/grammar"
	"browser-agent/internal/infrastructure/browser/htmldom"
	"browser-agent/internal/infrastructure/browser/simulated"
	"browser-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingTarget struct {
	got    []grammar.Action
	result entity.ActionResult
}

func (r *recordingTarget) Execute(ctx context.Context, action grammar.Action) entity.ActionResult {
	r.got = append(r.got, action)
	return r.result
}

type locatorFunc func(ctx context.Context) (output.PageExecutor, error)

func (f locatorFunc) ActiveTarget(ctx context.Context) (output.PageExecutor, error) {
	return f(ctx)
}

func TestUseCase_Run(t *testing.T) {
	target := &recordingTarget{result: entity.Succeeded(map[string]any{"key": "Enter"})}
	uc := New(locatorFunc(func(context.Context) (output.PageExecutor, error) { return target, nil }), logger.NewNop())

	res := uc.Run(context.Background(), `press("Enter")`)

	assert.True(t, res.Success)
	require.Len(t, target.got, 1)
	assert.Equal(t, grammar.Press{Key: "Enter"}, target.got[0])
}

func TestUseCase_RunRejectsBadCode(t *testing.T) {
	target := &recordingTarget{}
	uc := New(locatorFunc(func(context.Context) (output.PageExecutor, error) { return target, nil }), logger.NewNop())

	res := uc.Run(context.Background(), `scroll("down")`)
	assert.False(t, res.Success)
	assert.Equal(t, `Unsupported action: scroll("down")`, res.Error)
	assert.Equal(t, entity.KindUnsupportedAction, res.Kind)

	res = uc.Run(context.Background(), `type("#q")`)
	assert.False(t, res.Success)
	assert.Equal(t, entity.KindMalformedArguments, res.Kind)

	assert.Empty(t, target.got)
}

func TestUseCase_RunWithoutTarget(t *testing.T) {
	uc := New(locatorFunc(func(context.Context) (output.PageExecutor, error) {
		return nil, &entity.NoActiveTargetError{}
	}), logger.NewNop())

	res := uc.Run(context.Background(), `click(".btn")`)

	assert.False(t, res.Success)
	assert.Equal(t, "No active tab found", res.Error)
	assert.Equal(t, entity.KindNoActiveTarget, res.Kind)
}

func TestUseCase_LogsSnapshot(t *testing.T) {
	doc, err := htmldom.ParseString(`<html><head><title>Inbox</title></head><body><button class="go">Go</button></body></html>`, "https://mail.example/")
	require.NoError(t, err)
	sim := simulated.New(doc, 0, logger.NewNop())

	core, logs := observer.New(zap.DebugLevel)
	uc := New(sim, logger.NewFromZap(zap.New(core)), WithInspector(sim))

	res := uc.Run(context.Background(), `click(".go")`)
	require.True(t, res.Success, res.Error)

	entries := logs.FilterMessage("Page after action").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "https://mail.example/", fields["url"])
	assert.Equal(t, "Inbox", fields["title"])
}
