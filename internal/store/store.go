package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"messenger-client/internal/models"
)

// ErrNoSession is returned when no session has been persisted.
var ErrNoSession = errors.New("no persisted session")

// SessionStore persists the credentials and chat list between runs, the
// client-side analog of the browser's local storage.
type SessionStore interface {
	SaveSession(ctx context.Context, session models.Session) error
	LoadSession(ctx context.Context) (models.Session, error)
	ClearSession(ctx context.Context) error
	SaveChats(ctx context.Context, chats []models.Chat) error
	LoadChats(ctx context.Context) ([]models.Chat, error)
}

// Store is a sqlite-backed SessionStore.
type Store struct {
	db *sqlx.DB
}

var _ SessionStore = (*Store)(nil)

// Open initializes the local database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS session (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            user_id TEXT NOT NULL,
            username TEXT NOT NULL,
            email TEXT,
            avatar TEXT,
            session_id TEXT NOT NULL,
            saved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS cached_chats (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL,
            payload TEXT NOT NULL
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("local database migrations applied")
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession persists the session, replacing any previous one.
func (s *Store) SaveSession(ctx context.Context, session models.Session) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO session (id, user_id, username, email, avatar, session_id)
        VALUES (1, $1, $2, $3, $4, $5)
        ON CONFLICT(id) DO UPDATE SET
            user_id=excluded.user_id,
            username=excluded.username,
            email=excluded.email,
            avatar=excluded.avatar,
            session_id=excluded.session_id,
            saved_at=CURRENT_TIMESTAMP`,
		session.User.ID, session.User.Username, session.User.Email, session.User.Avatar, session.SessionID)
	return err
}

// LoadSession returns the persisted session, or ErrNoSession.
func (s *Store) LoadSession(ctx context.Context) (models.Session, error) {
	var row struct {
		UserID    string `db:"user_id"`
		Username  string `db:"username"`
		Email     string `db:"email"`
		Avatar    string `db:"avatar"`
		SessionID string `db:"session_id"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT user_id, username, email, avatar, session_id FROM session WHERE id=1`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNoSession
	}
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{
		User: models.User{
			ID:       row.UserID,
			Username: row.Username,
			Email:    row.Email,
			Avatar:   row.Avatar,
		},
		SessionID: row.SessionID,
	}, nil
}

// ClearSession removes the persisted session.
func (s *Store) ClearSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session`)
	return err
}

// SaveChats replaces the cached chat list, preserving fetch order.
func (s *Store) SaveChats(ctx context.Context, chats []models.Chat) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_chats`); err != nil {
		return err
	}
	for i, chat := range chats {
		payload, err := json.Marshal(chat)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO cached_chats (id, position, payload) VALUES ($1, $2, $3)`,
			chat.ID, i, string(payload)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadChats returns the cached chat list in fetch order.
func (s *Store) LoadChats(ctx context.Context) ([]models.Chat, error) {
	var payloads []string
	if err := s.db.SelectContext(ctx, &payloads, `SELECT payload FROM cached_chats ORDER BY position ASC`); err != nil {
		return nil, err
	}

	chats := make([]models.Chat, 0, len(payloads))
	for _, payload := range payloads {
		var chat models.Chat
		if err := json.Unmarshal([]byte(payload), &chat); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}
