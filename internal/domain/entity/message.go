package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	Role    MessageRole     `json:"role"`
	Content string          `json:"content"`
	Actions []PlannedAction `json:"actions,omitempty"`
}
