package output

import (
	"context"
	"errors"

	"browser-agent/internal/domain/entity"
)

var ErrNotFound = errors.New("not found")

// SessionStore persists sessions, actions and conversation entries. Updates
// for one session id are expected to be serialized by the caller.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	CreateSession(ctx context.Context, id string, sctx entity.SessionContext) (*entity.Session, error)
	UpdateSessionContext(ctx context.Context, id string, sctx entity.SessionContext) (*entity.Session, error)

	// SaveAction inserts or replaces the action with the same id in the session.
	SaveAction(ctx context.Context, sessionID string, action entity.Action) error
	UpdateActionStatus(ctx context.Context, sessionID, actionID string, status entity.ActionStatus, errMsg string) (*entity.Action, error)
	GetActions(ctx context.Context, sessionID string, ids []string) ([]entity.Action, error)

	AppendConversation(ctx context.Context, entry entity.ConversationEntry) (*entity.ConversationEntry, error)
	ListConversations(ctx context.Context, sessionID string) ([]entity.ConversationEntry, error)

	Close() error
}
