package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second)
}

func TestLoginSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/users/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "alice", body["username"])

		json.NewEncoder(w).Encode(map[string]any{
			"user":       map[string]string{"id": "u1", "username": "alice"},
			"session_id": "s1",
		})
	})

	sess, err := client.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.User.Username)
	assert.Equal(t, "s1", sess.SessionID)
}

func TestLoginRejectedIsAuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	})

	_, err := client.Login(context.Background(), "alice", "wrong")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid credentials", authErr.Reason)
}

func TestRegisterValidatesLocally(t *testing.T) {
	client := NewClient("http://unused", time.Second)

	var authErr *AuthError
	require.ErrorAs(t, client.Register(context.Background(), "ab", "a@b.c", "pw"), &authErr)
	assert.Equal(t, "username must be at least 3 characters", authErr.Reason)

	require.ErrorAs(t, client.Register(context.Background(), "alice", "", "pw"), &authErr)
	assert.Equal(t, "all fields are required", authErr.Reason)
}

func TestRegisterSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/register", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, client.Register(context.Background(), "alice", "a@b.c", "pw"))
}

func TestGetMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/messages/c1", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]string{
			{"id": "1", "chat_id": "c1", "sender_username": "bob", "type": "text", "text": "hi", "timestamp": "2026-08-30T10:00:01"},
		})
	})

	msgs, err := client.GetMessages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "2026-08-30T10:00:01", msgs[0].Timestamp)
}

func TestSendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/messages/c1", r.URL.Path)

		var req SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "hello", req.Text)

		json.NewEncoder(w).Encode(map[string]string{
			"id": "9", "chat_id": "c1", "sender_username": req.SenderUsername,
			"type": req.Type, "text": req.Text, "timestamp": "2026-08-30T10:00:05",
		})
	})

	msg, err := client.SendMessage(context.Background(), "c1", SendMessageRequest{
		SenderUsername: "alice", Type: "text", Text: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "9", msg.ID)
}

func TestServerErrorIsFetchError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "database unavailable"})
	})

	_, err := client.GetMessages(context.Background(), "c1")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.Status)
	assert.Contains(t, fetchErr.Error(), "database unavailable")
}

func TestUnreachableServerIsFetchError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := client.ListUsers(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "list_users", fetchErr.Op)
}

func TestCreateChat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chats/create", r.URL.Path)

		var req CreateChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "group", req.Type)

		json.NewEncoder(w).Encode(map[string]any{
			"chat": map[string]any{"id": "c9", "type": "group", "name": req.Name, "participants": req.Participants},
		})
	})

	chat, err := client.CreateChat(context.Background(), CreateChatRequest{
		Type: "group", Participants: []string{"alice", "bob"}, Name: "team",
	})
	require.NoError(t, err)
	assert.Equal(t, "c9", chat.ID)
	assert.Equal(t, "team", chat.Name)
}

func TestListChats(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chats/alice", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "c1", "type": "private", "participants": []string{"alice", "bob"}},
		})
	})

	chats, err := client.ListChats(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "bob", chats[0].DisplayNameFor("alice"))
}
