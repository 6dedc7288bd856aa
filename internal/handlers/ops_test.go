package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/mocks"
	"messenger-client/internal/models"
	"messenger-client/internal/presence"
	"messenger-client/internal/reconcile"
	"messenger-client/internal/session"
	"messenger-client/internal/telemetry"
)

func setupOpsRouter(t *testing.T, debug bool) (*gin.Engine, *session.Coordinator, *mocks.HistorySourceMock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	history := new(mocks.HistorySourceMock)
	coord := session.NewCoordinator(history, reconcile.NewReconciler(time.Minute), presence.NewTracker(), nil, nil)

	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	emitter := telemetry.NewSyncEmitter(publisher, "client_events.sync", "messenger-client", "test")

	return NewOpsRouter(coord, emitter, debug), coord, history
}

func TestHealthz(t *testing.T) {
	router, _, _ := setupOpsRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsExposed(t *testing.T) {
	router, _, _ := setupOpsRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "messenger_")
}

func TestDebugStateSnapshot(t *testing.T) {
	router, coord, history := setupOpsRouter(t, false)

	history.On("Login", mock.Anything, "alice", "pw").Return(models.Session{
		User: models.User{ID: "u1", Username: "alice"}, SessionID: "s1",
	}, nil).Once()
	history.On("ListChats", mock.Anything, "alice").Return([]models.Chat{
		{ID: "c1", Type: models.ChatPrivate, Participants: []string{"alice", "bob"}},
	}, nil).Once()
	history.On("ListUsers", mock.Anything).Return([]models.User(nil), nil).Once()
	history.On("GetMessages", mock.Anything, "c1").Return([]models.Message(nil), nil).Once()

	_, err := coord.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, coord.SelectChat(context.Background(), "c1"))

	r := httptest.NewRequest(http.MethodGet, "/debug/state", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var state map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, "alice", state["username"])
	assert.Equal(t, float64(1), state["chats"])
	assert.Equal(t, "c1", state["active_chat"])
	assert.Equal(t, "bob", state["active_chat_name"])
}

func TestDebugRoutesDisabledByDefault(t *testing.T) {
	router, _, _ := setupOpsRouter(t, false)

	r := httptest.NewRequest(http.MethodGet, "/debug/sync-test", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugSyncTestWhenEnabled(t *testing.T) {
	router, _, _ := setupOpsRouter(t, true)

	r := httptest.NewRequest(http.MethodGet, "/debug/sync-test", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
}
