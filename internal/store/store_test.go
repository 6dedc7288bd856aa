package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LoadSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	sess := models.Session{
		User:      models.User{ID: "u1", Username: "alice", Email: "alice@example.com", Avatar: "a.png"},
		SessionID: "s1",
	}
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestSaveSessionReplacesPrevious(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, models.Session{
		User: models.User{ID: "u1", Username: "alice"}, SessionID: "s1",
	}))
	require.NoError(t, s.SaveSession(ctx, models.Session{
		User: models.User{ID: "u2", Username: "bob"}, SessionID: "s2",
	}))

	got, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.User.Username)
	assert.Equal(t, "s2", got.SessionID)
}

func TestClearSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, models.Session{
		User: models.User{ID: "u1", Username: "alice"}, SessionID: "s1",
	}))
	require.NoError(t, s.ClearSession(ctx))

	_, err := s.LoadSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestChatsRoundTripPreservesOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chats := []models.Chat{
		{ID: "c2", Type: models.ChatGroup, Name: "team", Participants: []string{"alice", "bob", "carol"}},
		{ID: "c1", Type: models.ChatPrivate, Participants: []string{"alice", "bob"}},
	}
	require.NoError(t, s.SaveChats(ctx, chats))

	got, err := s.LoadChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, chats, got)
}

func TestSaveChatsReplacesCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChats(ctx, []models.Chat{{ID: "old", Type: models.ChatPrivate}}))
	require.NoError(t, s.SaveChats(ctx, []models.Chat{{ID: "new", Type: models.ChatPrivate}}))

	got, err := s.LoadChats(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
}

func TestLoadChatsEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.LoadChats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
