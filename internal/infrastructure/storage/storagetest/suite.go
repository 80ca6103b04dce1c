// Package storagetest holds behaviour checks shared by every SessionStore.
package storagetest

import (
	"context"
	"testing"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises newStore against the SessionStore contract. Each subtest gets
// a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) output.SessionStore) {
	t.Run("SessionLifecycle", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.GetSession(ctx, "s-1")
		assert.ErrorIs(t, err, output.ErrNotFound)

		created, err := store.CreateSession(ctx, "s-1", entity.SessionContext{})
		require.NoError(t, err)
		assert.Equal(t, "s-1", created.ID)

		sctx := entity.SessionContext{Messages: []entity.Message{
			{Role: entity.RoleUser, Content: "open example.com"},
			{Role: entity.RoleAssistant, Content: "Opening", Actions: []entity.PlannedAction{
				{ID: "action-1", Code: `navigate("https://example.com")`},
			}},
		}}
		_, err = store.UpdateSessionContext(ctx, "s-1", sctx)
		require.NoError(t, err)

		got, err := store.GetSession(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, sctx, got.Context)

		_, err = store.UpdateSessionContext(ctx, "missing", sctx)
		assert.ErrorIs(t, err, output.ErrNotFound)
	})

	t.Run("ActionsUpsertPerSession", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		first := entity.Action{ID: "action-1", Code: `click(".a")`, Status: entity.ActionQueued}
		require.NoError(t, store.SaveAction(ctx, "s-1", first))
		require.NoError(t, store.SaveAction(ctx, "s-2", entity.Action{ID: "action-1", Code: `click(".other")`, Status: entity.ActionQueued}))

		replaced := entity.Action{ID: "action-1", Code: `click(".b")`, Description: "second turn", Status: entity.ActionQueued}
		require.NoError(t, store.SaveAction(ctx, "s-1", replaced))

		actions, err := store.GetActions(ctx, "s-1", []string{"action-1", "unknown"})
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, replaced, actions[0])

		other, err := store.GetActions(ctx, "s-2", []string{"action-1"})
		require.NoError(t, err)
		require.Len(t, other, 1)
		assert.Equal(t, `click(".other")`, other[0].Code)
	})

	t.Run("ActionStatus", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.SaveAction(ctx, "s-1", entity.Action{ID: "a", Code: `press("Enter")`, Status: entity.ActionQueued}))
		require.NoError(t, store.SaveAction(ctx, "s-1", entity.Action{ID: "b", Code: `click(".x")`, Status: entity.ActionQueued}))

		updated, err := store.UpdateActionStatus(ctx, "s-1", "b", entity.ActionFailed, "Element not found: .x")
		require.NoError(t, err)
		assert.Equal(t, entity.ActionFailed, updated.Status)
		assert.Equal(t, "Element not found: .x", updated.Error)

		updated, err = store.UpdateActionStatus(ctx, "s-1", "a", entity.ActionCompleted, "ignored")
		require.NoError(t, err)
		assert.Empty(t, updated.Error)

		actions, err := store.GetActions(ctx, "s-1", []string{"b", "a"})
		require.NoError(t, err)
		require.Len(t, actions, 2)
		assert.Equal(t, "b", actions[0].ID)
		assert.Equal(t, "a", actions[1].ID)

		_, err = store.UpdateActionStatus(ctx, "s-1", "missing", entity.ActionCompleted, "")
		assert.ErrorIs(t, err, output.ErrNotFound)
	})

	t.Run("ConversationsAreOrdered", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		entries := []entity.ConversationEntry{
			{SessionID: "s-1", Type: entity.ConversationUser, Content: "search for go"},
			{SessionID: "s-1", Type: entity.ConversationAgent, Content: "Searching", ActionIDs: []string{"action-1", "action-2"}},
			{SessionID: "s-2", Type: entity.ConversationUser, Content: "elsewhere"},
			{SessionID: "s-1", Type: entity.ConversationSystem, Content: "Successfully executed action: action-1\nResult: {}"},
		}
		for _, e := range entries {
			saved, err := store.AppendConversation(ctx, e)
			require.NoError(t, err)
			assert.NotZero(t, saved.ID)
			assert.False(t, saved.CreatedAt.IsZero())
		}

		list, err := store.ListConversations(ctx, "s-1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, entity.ConversationUser, list[0].Type)
		assert.Equal(t, []string{"action-1", "action-2"}, list[1].ActionIDs)
		assert.Equal(t, []string{}, list[2].ActionIDs)
		assert.Less(t, list[0].ID, list[1].ID)

		empty, err := store.ListConversations(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}
