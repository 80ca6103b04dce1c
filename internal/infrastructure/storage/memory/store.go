// Package memory is a process-local SessionStore.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"
)

var _ output.SessionStore = (*Store)(nil)

type Store struct {
	mu            sync.RWMutex
	sessions      map[string]*entity.Session
	actions       map[string]map[string]entity.Action
	conversations map[string][]entity.ConversationEntry
	nextEntryID   int64
	now           func() time.Time
}

func New() *Store {
	return &Store{
		sessions:      make(map[string]*entity.Session),
		actions:       make(map[string]map[string]entity.Action),
		conversations: make(map[string][]entity.ConversationEntry),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, output.ErrNotFound)
	}
	return cloneSession(session), nil
}

func (s *Store) CreateSession(ctx context.Context, id string, sctx entity.SessionContext) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; exists {
		return nil, fmt.Errorf("session %s already exists", id)
	}

	now := s.now()
	session := &entity.Session{ID: id, Context: cloneContext(sctx), CreatedAt: now, UpdatedAt: now}
	s.sessions[id] = session
	return cloneSession(session), nil
}

func (s *Store) UpdateSessionContext(ctx context.Context, id string, sctx entity.SessionContext) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, output.ErrNotFound)
	}
	session.Context = cloneContext(sctx)
	session.UpdatedAt = s.now()
	return cloneSession(session), nil
}

func (s *Store) SaveAction(ctx context.Context, sessionID string, action entity.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.actions[sessionID]
	if !ok {
		byID = make(map[string]entity.Action)
		s.actions[sessionID] = byID
	}
	byID[action.ID] = action
	return nil
}

func (s *Store) UpdateActionStatus(ctx context.Context, sessionID, actionID string, status entity.ActionStatus, errMsg string) (*entity.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.actions[sessionID][actionID]
	if !ok {
		return nil, fmt.Errorf("action %s: %w", actionID, output.ErrNotFound)
	}
	action.Status = status
	action.Error = ""
	if status == entity.ActionFailed {
		action.Error = errMsg
	}
	s.actions[sessionID][actionID] = action
	return &action, nil
}

// GetActions returns the requested actions in the order of ids, skipping
// unknown ones.
func (s *Store) GetActions(ctx context.Context, sessionID string, ids []string) ([]entity.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actions := make([]entity.Action, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.actions[sessionID][id]; ok {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

func (s *Store) AppendConversation(ctx context.Context, entry entity.ConversationEntry) (*entity.ConversationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEntryID++
	entry.ID = s.nextEntryID
	entry.CreatedAt = s.now()
	entry.ActionIDs = append([]string{}, entry.ActionIDs...)
	s.conversations[entry.SessionID] = append(s.conversations[entry.SessionID], entry)
	return &entry, nil
}

func (s *Store) ListConversations(ctx context.Context, sessionID string) ([]entity.ConversationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.conversations[sessionID]
	out := make([]entity.ConversationEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *Store) Close() error {
	return nil
}

func cloneSession(in *entity.Session) *entity.Session {
	out := *in
	out.Context = cloneContext(in.Context)
	return &out
}

func cloneContext(in entity.SessionContext) entity.SessionContext {
	out := entity.SessionContext{Messages: make([]entity.Message, len(in.Messages))}
	for i, m := range in.Messages {
		m.Actions = append([]entity.PlannedAction(nil), m.Actions...)
		out.Messages[i] = m
	}
	return out
}
