package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"browser-agent/internal/domain/entity"
)

const (
	defaultDescription     = "Execute browser action"
	defaultPlanContent     = "I'll help you with that task."
	defaultFeedbackContent = "Continuing with the task."
)

// step is one planned action as the model wrote it: either an object or a
// bare code string.
type step struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

func (s *step) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Code)
	}

	type plain step
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = step(p)
	return nil
}

func (s step) code() string {
	if s.Code != "" {
		return s.Code
	}
	return s.Action
}

type rawResponse struct {
	Content     string          `json:"content"`
	Explanation string          `json:"explanation"`
	Message     string          `json:"message"`
	Actions     json.RawMessage `json:"actions"`
	Steps       json.RawMessage `json:"steps"`
	NextActions json.RawMessage `json:"nextActions"`
}

// parseResponse extracts the outermost JSON object from content.
func parseResponse(content string) (*rawResponse, error) {
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &raw, nil
}

// steps decodes a JSON array of steps. ok is false when raw is not an array.
func steps(raw json.RawMessage) ([]step, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}

	var out []step
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, false
	}
	return out, true
}

func normalizePlan(raw *rawResponse) *entity.PlanResponse {
	content := firstNonEmpty(raw.Content, raw.Explanation, raw.Message, defaultPlanContent)

	if list, ok := steps(raw.Actions); ok {
		actions := make([]entity.PlannedAction, 0, len(list))
		for _, s := range list {
			id := s.ID
			if id == "" {
				id = entity.NewActionID()
			}
			actions = append(actions, planned(id, s))
		}
		return &entity.PlanResponse{Content: content, Actions: actions}
	}

	list, _ := steps(raw.Steps)
	actions := make([]entity.PlannedAction, 0, len(list))
	for _, s := range list {
		actions = append(actions, planned(entity.NewActionID(), s))
	}
	return &entity.PlanResponse{Content: content, Actions: actions}
}

func normalizeFeedback(raw *rawResponse) *entity.PlanResponse {
	content := firstNonEmpty(raw.Content, raw.Message, defaultFeedbackContent)

	list, ok := steps(raw.Actions)
	if !ok {
		list, _ = steps(raw.NextActions)
	}

	actions := make([]entity.PlannedAction, 0, len(list))
	for _, s := range list {
		id := s.ID
		if id == "" {
			id = entity.NewActionID()
		}
		actions = append(actions, planned(id, s))
	}
	return &entity.PlanResponse{Content: content, Actions: actions}
}

func planned(id string, s step) entity.PlannedAction {
	return entity.PlannedAction{
		ID:          id,
		Code:        s.code(),
		Description: firstNonEmpty(s.Description, defaultDescription),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
