package userinteraction

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
	"browser-agent/internal/domain/grammar"

	"github.com/fatih/color"
)

var _ output.ProgressReporter = (*Console)(nil)

// Console prints agent replies and execution progress, and reads
// instructions for the interactive loop.
type Console struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
}

func NewConsole() *Console {
	return NewConsoleWith(os.Stdin, color.Output)
}

func NewConsoleWith(in io.Reader, out io.Writer) *Console {
	return &Console{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// AskInstruction prompts for the next instruction. io.EOF is returned as is
// so callers can end the loop.
func (c *Console) AskInstruction(ctx context.Context) (string, error) {
	c.mu.Lock()
	color.New(color.FgCyan, color.Bold).Fprint(c.out, "\n> ")
	c.mu.Unlock()

	line, err := c.reader.ReadString('\n')
	line = strings.TrimSpace(line)
	switch {
	case errors.Is(err, io.EOF) && line != "":
		return line, nil
	case errors.Is(err, io.EOF):
		return "", io.EOF
	case err != nil:
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	return line, nil
}

func (c *Console) ShowAgentMessage(ctx context.Context, content string, actions []entity.PlannedAction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if content != "" {
		color.New(color.FgBlue).Fprint(c.out, "\n💭 ")
		fmt.Fprintln(c.out, truncate(content, 500))
	}
	if len(actions) == 0 {
		return
	}

	dim := color.New(color.Faint)
	dim.Fprintf(c.out, "   Planned %d action(s):\n", len(actions))
	for i, a := range actions {
		dim.Fprintf(c.out, "   %d. %s", i+1, a.Code)
		if a.Description != "" {
			dim.Fprintf(c.out, "  (%s)", truncate(a.Description, 60))
		}
		fmt.Fprintln(c.out)
	}
}

func (c *Console) ShowActionStart(ctx context.Context, index int, action entity.Action) {
	c.mu.Lock()
	defer c.mu.Unlock()

	icon, name := actionDisplay(action.Code)
	color.New(color.FgYellow, color.Bold).Fprintf(c.out, "\n%s %s [%d] %s\n", icon, name, index+1, action.ID)

	if summary := formatArguments(action.Code); summary != "" {
		color.New(color.Faint).Fprintf(c.out, "   %s\n", summary)
	}
}

func (c *Console) ShowActionResult(ctx context.Context, index int, action entity.Action, result entity.ActionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !result.Success {
		color.New(color.FgRed).Fprint(c.out, "❌ Error: ")
		color.New(color.Faint).Fprintln(c.out, truncate(result.Error, 300))
		return
	}

	summary := formatResult(result.Data)
	if result.Simulated {
		summary += " (simulated)"
	}
	color.New(color.FgGreen).Fprintf(c.out, "✓ %s\n", summary)
}

func (c *Console) ShowBatchFinished(ctx context.Context, status entity.ExecutionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := status.Progress
	switch {
	case p.Failed > 0:
		color.New(color.FgRed, color.Bold).Fprintf(c.out, "\n━━━ Stopped on failure: %d/%d completed ━━━\n", p.Completed, p.Total)
	case p.Completed == p.Total:
		color.New(color.FgCyan, color.Bold).Fprintf(c.out, "\n━━━ Done: %d/%d completed ━━━\n", p.Completed, p.Total)
	default:
		color.New(color.FgYellow, color.Bold).Fprintf(c.out, "\n━━━ Stopped: %d/%d completed ━━━\n", p.Completed, p.Total)
	}
}

func actionDisplay(code string) (string, string) {
	action, err := grammar.Parse(code)
	if err != nil {
		return "🔧", "Action"
	}

	displays := map[grammar.Verb][2]string{
		grammar.VerbNavigate: {"🌐", "Navigate"},
		grammar.VerbClick:    {"🖱️", "Click"},
		grammar.VerbType:     {"✏️", "Type"},
		grammar.VerbPress:    {"⏎", "Press"},
	}
	if display, ok := displays[action.Verb()]; ok {
		return display[0], display[1]
	}
	return "🔧", string(action.Verb())
}

func formatArguments(code string) string {
	action, err := grammar.Parse(code)
	if err != nil {
		return truncate(code, 80)
	}

	switch a := action.(type) {
	case grammar.Navigate:
		return fmt.Sprintf("URL: %s", a.URL)
	case grammar.Click:
		return fmt.Sprintf("Selector: %s", truncate(a.Selector, 60))
	case grammar.Type:
		return fmt.Sprintf("Field: %s → %s", truncate(a.Selector, 40), truncate(a.Text, 30))
	case grammar.Press:
		return fmt.Sprintf("Key: %s", a.Key)
	}
	return ""
}

func formatResult(data map[string]any) string {
	if len(data) == 0 {
		return "OK"
	}
	if url, ok := data["currentUrl"].(string); ok {
		return url
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "OK"
	}
	return truncate(string(encoded), 100)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
