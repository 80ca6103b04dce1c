package userinteraction

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"browser-agent/internal/domain/entity"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(input string) (*Console, *bytes.Buffer) {
	color.NoColor = true
	out := &bytes.Buffer{}
	return NewConsoleWith(strings.NewReader(input), out), out
}

func TestConsole_AskInstruction(t *testing.T) {
	c, out := newTestConsole("  open the inbox \nlast line")
	ctx := context.Background()

	line, err := c.AskInstruction(ctx)
	require.NoError(t, err)
	assert.Equal(t, "open the inbox", line)
	assert.Contains(t, out.String(), "> ")

	line, err = c.AskInstruction(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last line", line)

	_, err = c.AskInstruction(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestConsole_ShowAgentMessage(t *testing.T) {
	c, out := newTestConsole("")

	c.ShowAgentMessage(context.Background(), "Searching.", []entity.PlannedAction{
		{ID: "a1", Code: `type("#q", "cats")`, Description: "Fill search"},
		{ID: "a2", Code: `press("Enter")`},
	})

	s := out.String()
	assert.Contains(t, s, "Searching.")
	assert.Contains(t, s, "Planned 2 action(s)")
	assert.Contains(t, s, `1. type("#q", "cats")  (Fill search)`)
	assert.Contains(t, s, `2. press("Enter")`)
}

func TestConsole_ActionProgress(t *testing.T) {
	c, out := newTestConsole("")
	ctx := context.Background()
	action := entity.Action{ID: "a1", Code: `navigate("https://example.com")`}

	c.ShowActionStart(ctx, 0, action)
	c.ShowActionResult(ctx, 0, action, entity.Succeeded(map[string]any{"currentUrl": "https://example.com/"}))

	s := out.String()
	assert.Contains(t, s, "Navigate [1] a1")
	assert.Contains(t, s, "URL: https://example.com")
	assert.Contains(t, s, "✓ https://example.com/")
}

func TestConsole_ActionFailure(t *testing.T) {
	c, out := newTestConsole("")

	c.ShowActionResult(context.Background(), 1, entity.Action{ID: "a2"},
		entity.Failure(&entity.ElementNotFoundError{Selector: ".missing"}))

	assert.Contains(t, out.String(), "Error: Element not found: .missing")
}

func TestConsole_ShowBatchFinished(t *testing.T) {
	tests := []struct {
		progress entity.Progress
		want     string
	}{
		{entity.Progress{Total: 3, Completed: 3}, "Done: 3/3"},
		{entity.Progress{Total: 3, Completed: 1, Failed: 1}, "Stopped on failure: 1/3"},
		{entity.Progress{Total: 3, Completed: 1}, "Stopped: 1/3"},
	}

	for _, tt := range tests {
		c, out := newTestConsole("")
		c.ShowBatchFinished(context.Background(), entity.ExecutionStatus{Progress: tt.progress})
		assert.Contains(t, out.String(), tt.want)
	}
}

func TestFormatArguments(t *testing.T) {
	assert.Equal(t, "Selector: .btn", formatArguments(`click(".btn")`))
	assert.Equal(t, "Key: Enter", formatArguments(`press("Enter")`))
	assert.Equal(t, "Field: #q → hi", formatArguments(`type("#q", "hi")`))
	assert.Equal(t, "scroll(100)", formatArguments("scroll(100)"))
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "OK", formatResult(nil))
	assert.Equal(t, `{"key":"Enter"}`, formatResult(map[string]any{"key": "Enter"}))
}
