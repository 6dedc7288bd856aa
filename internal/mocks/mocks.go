package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messenger-client/internal/api"
	"messenger-client/internal/models"
	"messenger-client/internal/store"
)

type HistorySourceMock struct {
	mock.Mock
}

func (m *HistorySourceMock) Login(ctx context.Context, username, password string) (models.Session, error) {
	args := m.Called(ctx, username, password)
	var sess models.Session
	if val := args.Get(0); val != nil {
		sess = val.(models.Session)
	}
	return sess, args.Error(1)
}

func (m *HistorySourceMock) Register(ctx context.Context, username, email, password string) error {
	args := m.Called(ctx, username, email, password)
	return args.Error(0)
}

func (m *HistorySourceMock) ListChats(ctx context.Context, username string) ([]models.Chat, error) {
	args := m.Called(ctx, username)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *HistorySourceMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *HistorySourceMock) GetMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *HistorySourceMock) SendMessage(ctx context.Context, chatID string, req api.SendMessageRequest) (models.Message, error) {
	args := m.Called(ctx, chatID, req)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *HistorySourceMock) CreateChat(ctx context.Context, req api.CreateChatRequest) (models.Chat, error) {
	args := m.Called(ctx, req)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

type SessionStoreMock struct {
	mock.Mock
}

func (m *SessionStoreMock) SaveSession(ctx context.Context, session models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionStoreMock) LoadSession(ctx context.Context) (models.Session, error) {
	args := m.Called(ctx)
	var sess models.Session
	if val := args.Get(0); val != nil {
		sess = val.(models.Session)
	}
	return sess, args.Error(1)
}

func (m *SessionStoreMock) ClearSession(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *SessionStoreMock) SaveChats(ctx context.Context, chats []models.Chat) error {
	args := m.Called(ctx, chats)
	return args.Error(0)
}

func (m *SessionStoreMock) LoadChats(ctx context.Context) ([]models.Chat, error) {
	args := m.Called(ctx)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ api.HistorySource = (*HistorySourceMock)(nil)
var _ store.SessionStore = (*SessionStoreMock)(nil)
