package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"messenger-client/internal/models"
	"messenger-client/internal/observability"
)

// HistorySource performs bounded request/response fetches against the chat
// server. Implementations are stateless beyond the single call.
type HistorySource interface {
	Login(ctx context.Context, username, password string) (models.Session, error)
	Register(ctx context.Context, username, email, password string) error
	ListChats(ctx context.Context, username string) ([]models.Chat, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetMessages(ctx context.Context, chatID string) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID string, req SendMessageRequest) (models.Message, error)
	CreateChat(ctx context.Context, req CreateChatRequest) (models.Chat, error)
}

// SendMessageRequest is the durable-path message POST body.
type SendMessageRequest struct {
	SenderUsername string `json:"sender_username"`
	Type           string `json:"type"`
	Text           string `json:"text"`
}

// CreateChatRequest is the chat creation POST body.
type CreateChatRequest struct {
	Type         string   `json:"type"`
	Participants []string `json:"participants"`
	Name         string   `json:"name"`
}

// Client is the HTTP implementation of HistorySource.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ HistorySource = (*Client)(nil)

// NewClient builds a Client for the given base URL. Every call resolves or
// fails within the given timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Login authenticates and returns the created session.
func (c *Client) Login(ctx context.Context, username, password string) (models.Session, error) {
	body := map[string]string{"username": username, "password": password}

	var resp struct {
		User      models.User `json:"user"`
		SessionID string      `json:"session_id"`
	}
	if err := c.doJSON(ctx, "login", http.MethodPost, "/api/users/login", body, &resp, true); err != nil {
		return models.Session{}, err
	}
	return models.Session{User: resp.User, SessionID: resp.SessionID}, nil
}

// Register creates a new account. Validation failures come back as AuthError.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return &AuthError{Reason: "all fields are required"}
	}
	if len(username) < 3 {
		return &AuthError{Reason: "username must be at least 3 characters"}
	}

	body := map[string]string{"username": username, "email": email, "password": password}
	return c.doJSON(ctx, "register", http.MethodPost, "/api/users/register", body, nil, true)
}

// ListChats fetches the chat list for a user, in server order.
func (c *Client) ListChats(ctx context.Context, username string) ([]models.Chat, error) {
	var chats []models.Chat
	if err := c.doJSON(ctx, "list_chats", http.MethodGet, "/api/chats/"+username, nil, &chats, false); err != nil {
		return nil, err
	}
	return chats, nil
}

// ListUsers fetches the user directory.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.doJSON(ctx, "list_users", http.MethodGet, "/api/users", nil, &users, false); err != nil {
		return nil, err
	}
	return users, nil
}

// GetMessages fetches the ordered message history for a chat.
func (c *Client) GetMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	if err := c.doJSON(ctx, "get_messages", http.MethodGet, "/api/messages/"+chatID, nil, &msgs, false); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage stores a message via the durable path and returns the stored
// record. Display-path delivery happens over the live connection.
func (c *Client) SendMessage(ctx context.Context, chatID string, req SendMessageRequest) (models.Message, error) {
	var msg models.Message
	if err := c.doJSON(ctx, "send_message", http.MethodPost, "/api/messages/"+chatID, req, &msg, false); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// CreateChat creates a private or group chat.
func (c *Client) CreateChat(ctx context.Context, req CreateChatRequest) (models.Chat, error) {
	var resp struct {
		Chat models.Chat `json:"chat"`
	}
	if err := c.doJSON(ctx, "create_chat", http.MethodPost, "/api/chats/create", req, &resp, false); err != nil {
		return models.Chat{}, err
	}
	return resp.Chat, nil
}

// doJSON issues one request and decodes the response. authErrors controls
// whether 4xx responses map to AuthError instead of FetchError.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any, authErrors bool) error {
	ctx, span := otel.Tracer("messenger-client/api").Start(ctx, "api."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.path", path))

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &FetchError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveAPIRequest(op, 0, time.Since(start))
		return &FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveAPIRequest(op, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if authErrors && resp.StatusCode < 500 {
			return &AuthError{Reason: errBody.Error}
		}
		if errBody.Error != "" {
			return &FetchError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", errBody.Error)}
		}
		return &FetchError{Op: op, Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
