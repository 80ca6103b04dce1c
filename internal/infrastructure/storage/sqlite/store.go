// Package sqlite provides a SessionStore on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"

	_ "modernc.org/sqlite"
)

var _ output.SessionStore = (*Store)(nil)

const DefaultPath = "data/agent.db"

type Store struct {
	db *sql.DB
}

// New opens the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		context TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS actions (
		session_id TEXT NOT NULL,
		id TEXT NOT NULL,
		code TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'queued',
		error TEXT,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, id)
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		action_ids TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_session_id ON conversations(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Sessions ---

func (s *Store) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	session := &entity.Session{}
	var raw string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, context, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &raw, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, output.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &session.Context); err != nil {
		return nil, fmt.Errorf("decode session context: %w", err)
	}
	return session, nil
}

func (s *Store) CreateSession(ctx context.Context, id string, sctx entity.SessionContext) (*entity.Session, error) {
	raw, err := json.Marshal(sctx)
	if err != nil {
		return nil, fmt.Errorf("encode session context: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, context, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(raw), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &entity.Session{ID: id, Context: sctx, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) UpdateSessionContext(ctx context.Context, id string, sctx entity.SessionContext) (*entity.Session, error) {
	raw, err := json.Marshal(sctx)
	if err != nil {
		return nil, fmt.Errorf("encode session context: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET context = ?, updated_at = ? WHERE id = ?`,
		string(raw), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("session %s: %w", id, output.ErrNotFound)
	}
	return s.GetSession(ctx, id)
}

// --- Actions ---

func (s *Store) SaveAction(ctx context.Context, sessionID string, action entity.Action) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (session_id, id, code, description, status, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, id) DO UPDATE SET
			code = excluded.code,
			description = excluded.description,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		sessionID, action.ID, action.Code, action.Description, action.Status, action.Error, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save action: %w", err)
	}
	return nil
}

func (s *Store) UpdateActionStatus(ctx context.Context, sessionID, actionID string, status entity.ActionStatus, errMsg string) (*entity.Action, error) {
	if status != entity.ActionFailed {
		errMsg = ""
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE actions SET status = ?, error = ?, updated_at = ? WHERE session_id = ? AND id = ?`,
		status, errMsg, time.Now().UTC(), sessionID, actionID,
	)
	if err != nil {
		return nil, fmt.Errorf("update action: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("action %s: %w", actionID, output.ErrNotFound)
	}

	actions, err := s.GetActions(ctx, sessionID, []string{actionID})
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("action %s: %w", actionID, output.ErrNotFound)
	}
	return &actions[0], nil
}

// GetActions returns the requested actions in the order of ids, skipping
// unknown ones.
func (s *Store) GetActions(ctx context.Context, sessionID string, ids []string) ([]entity.Action, error) {
	if len(ids) == 0 {
		return []entity.Action{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, sessionID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, description, status, error FROM actions
		WHERE session_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]entity.Action, len(ids))
	for rows.Next() {
		var a entity.Action
		var description, errMsg sql.NullString
		if err := rows.Scan(&a.ID, &a.Code, &description, &a.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Description = description.String
		a.Error = errMsg.String
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	actions := make([]entity.Action, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

// --- Conversations ---

func (s *Store) AppendConversation(ctx context.Context, entry entity.ConversationEntry) (*entity.ConversationEntry, error) {
	if entry.ActionIDs == nil {
		entry.ActionIDs = []string{}
	}
	ids, err := json.Marshal(entry.ActionIDs)
	if err != nil {
		return nil, fmt.Errorf("encode action ids: %w", err)
	}

	entry.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (session_id, type, content, action_ids, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.SessionID, entry.Type, entry.Content, string(ids), entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	entry.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("conversation id: %w", err)
	}
	return &entry, nil
}

func (s *Store) ListConversations(ctx context.Context, sessionID string) ([]entity.ConversationEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, type, content, action_ids, created_at FROM conversations
		WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	entries := []entity.ConversationEntry{}
	for rows.Next() {
		var e entity.ConversationEntry
		var ids sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Type, &e.Content, &ids, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		e.ActionIDs = []string{}
		if ids.Valid && ids.String != "" {
			if err := json.Unmarshal([]byte(ids.String), &e.ActionIDs); err != nil {
				return nil, fmt.Errorf("decode action ids: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
