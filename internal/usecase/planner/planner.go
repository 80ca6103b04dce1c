// Package planner asks the language model for action batches and normalises
// whatever JSON shape comes back.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
)

var _ output.PlannerPort = (*Planner)(nil)

const temperature = 0.2

type Planner struct {
	llm            output.LLMPort
	logger         output.LoggerPort
	planPrompt     string
	feedbackPrompt string
}

// New takes rendered system prompts for the plan and feedback calls.
func New(llm output.LLMPort, logger output.LoggerPort, planPrompt, feedbackPrompt string) *Planner {
	return &Planner{
		llm:            llm,
		logger:         logger,
		planPrompt:     planPrompt,
		feedbackPrompt: feedbackPrompt,
	}
}

func (p *Planner) Plan(ctx context.Context, instruction string, sctx entity.SessionContext) (*entity.PlanResponse, error) {
	messages := p.conversation(p.planPrompt, sctx,
		entity.Message{Role: entity.RoleUser, Content: instruction + " (Respond in JSON format)"})

	raw, err := p.complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to process instruction: %w", err)
	}

	resp := normalizePlan(raw)
	p.logger.Info("Instruction planned", "actions", len(resp.Actions))
	return resp, nil
}

func (p *Planner) Feedback(ctx context.Context, req output.FeedbackRequest) (*entity.PlanResponse, error) {
	messages := p.conversation(p.feedbackPrompt, req.Context,
		entity.Message{Role: entity.RoleSystem, Content: feedbackMessage(req) + " (Respond in JSON format with your next steps.)"})

	raw, err := p.complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to process feedback: %w", err)
	}

	resp := normalizeFeedback(raw)
	p.logger.Info("Feedback processed", "action", req.ActionID, "success", req.Success, "next", len(resp.Actions))
	return resp, nil
}

func (p *Planner) conversation(system string, sctx entity.SessionContext, last entity.Message) []entity.Message {
	messages := make([]entity.Message, 0, len(sctx.Messages)+2)
	messages = append(messages, entity.Message{Role: entity.RoleSystem, Content: system})
	for _, m := range sctx.Messages {
		messages = append(messages, entity.Message{Role: m.Role, Content: m.Content})
	}
	return append(messages, last)
}

func (p *Planner) complete(ctx context.Context, messages []entity.Message) (*rawResponse, error) {
	resp, err := p.llm.Chat(ctx, output.ChatRequest{
		Messages:    messages,
		Temperature: temperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	if resp.Message.Content == "" {
		return nil, errors.New("empty response from model")
	}

	raw, err := parseResponse(resp.Message.Content)
	if err != nil {
		p.logger.Warn("Unparsable planner response", "error", err, "content", resp.Message.Content)
		return nil, err
	}
	return raw, nil
}

func feedbackMessage(req output.FeedbackRequest) string {
	if !req.Success {
		return fmt.Sprintf("Action %s failed. Error: %s", req.ActionID, req.Error)
	}
	result, err := json.Marshal(req.Result)
	if err != nil {
		result = []byte("null")
	}
	msg := fmt.Sprintf("Action %s completed successfully. Result: %s", req.ActionID, result)
	if len(req.Pending) == 0 {
		return msg
	}

	codes := make([]string, 0, len(req.Pending))
	for _, a := range req.Pending {
		codes = append(codes, a.Code)
	}
	return msg + "\nAlready queued and will run next, do not repeat them: " + strings.Join(codes, "; ")
}
