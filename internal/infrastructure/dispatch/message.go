// Package dispatch carries actions from the sequencer to the context that owns
// the active page, either in-process or over a WebSocket.
package dispatch

import (
	"fmt"

	"browser-agent/internal/domain/entity"
)

const (
	// TypeExecuteAction carries a full planned action.
	TypeExecuteAction = "executeAction"
	// TypeExecute carries a bare action code.
	TypeExecute = "execute"
)

type ActionPayload struct {
	ID          string `json:"id,omitempty"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// Request is sent to the page host. ID correlates the Response and is
// optional for peers that answer strictly in order.
type Request struct {
	ID     string         `json:"id,omitempty"`
	Type   string         `json:"type"`
	Action *ActionPayload `json:"action,omitempty"`
	Code   string         `json:"code,omitempty"`
}

type Response struct {
	ID      string           `json:"id,omitempty"`
	Success bool             `json:"success"`
	Data    map[string]any   `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
	Kind    entity.ErrorKind `json:"kind,omitempty"`
}

func NewExecuteAction(id string, action entity.Action) Request {
	return Request{
		ID:   id,
		Type: TypeExecuteAction,
		Action: &ActionPayload{
			ID:          action.ID,
			Code:        action.Code,
			Description: action.Description,
		},
	}
}

// ActionCode extracts the code to run from either request shape.
func (r Request) ActionCode() (string, error) {
	switch r.Type {
	case TypeExecuteAction:
		if r.Action == nil {
			return "", fmt.Errorf("%s message without action", r.Type)
		}
		return r.Action.Code, nil
	case TypeExecute:
		return r.Code, nil
	default:
		return "", fmt.Errorf("unknown message type %q", r.Type)
	}
}

func ResponseFor(id string, res entity.ActionResult) Response {
	return Response{ID: id, Success: res.Success, Data: res.Data, Error: res.Error, Kind: res.Kind}
}

// Result converts a response back into an ActionResult. A failure without a
// message is reported as "unknown error".
func (r Response) Result() entity.ActionResult {
	res := entity.ActionResult{Success: r.Success, Data: r.Data, Error: r.Error, Kind: r.Kind}
	if !res.Success {
		if res.Error == "" {
			res.Error = "unknown error"
		}
		if res.Kind == "" {
			res.Kind = entity.KindExecution
		}
	}
	return res
}
