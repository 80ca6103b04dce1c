package entity

import (
	"context"
	"time"
)

type ConversationType string

const (
	ConversationUser   ConversationType = "user"
	ConversationAgent  ConversationType = "agent"
	ConversationSystem ConversationType = "system"
)

type ConversationEntry struct {
	ID        int64            `json:"id"`
	SessionID string           `json:"sessionId"`
	Type      ConversationType `json:"type"`
	Content   string           `json:"content"`
	ActionIDs []string         `json:"actionIds"`
	CreatedAt time.Time        `json:"createdAt"`
}

type SessionContext struct {
	Messages []Message `json:"messages"`
}

type Session struct {
	ID        string         `json:"sessionId"`
	Context   SessionContext `json:"context"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type sessionKey struct{}

// WithSessionID tags ctx with the session that owns the work done under it.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
