package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/avoronkov/quizbot/internal/model"
)

// CreateUser inserts a new user.
func (s *Store) CreateUser(u model.User) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (username, full_name, password_hash, chat_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.FullName, u.PasswordHash, u.ChatID, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username)
	return id, nil
}

// GetUserByUsername returns a user by username, or nil if absent.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	return s.getUser(`SELECT id, username, full_name, password_hash, chat_id, created_at
		 FROM users WHERE username = ?`, username)
}

// GetUserByID returns a user by ID, or nil if absent.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return s.getUser(`SELECT id, username, full_name, password_hash, chat_id, created_at
		 FROM users WHERE id = ?`, id)
}

// GetUserByChatID returns the user currently bound to a chat, or nil.
func (s *Store) GetUserByChatID(chatID int64) (*model.User, error) {
	return s.getUser(`SELECT id, username, full_name, password_hash, chat_id, created_at
		 FROM users WHERE chat_id = ?`, chatID)
}

func (s *Store) getUser(query string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(query, arg).
		Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.ChatID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser rewrites a user's mutable fields.
func (s *Store) UpdateUser(u model.User) error {
	_, err := s.db.Exec(
		`UPDATE users SET username = ?, full_name = ?, password_hash = ?, chat_id = ? WHERE id = ?`,
		u.Username, u.FullName, u.PasswordHash, u.ChatID, u.ID,
	)
	return err
}

// BindChat attaches a chat to a user after successful authentication.
func (s *Store) BindChat(userID, chatID int64) error {
	_, err := s.db.Exec(`UPDATE users SET chat_id = ? WHERE id = ?`, chatID, userID)
	return err
}

// UnbindChat detaches whatever user is bound to a chat.
func (s *Store) UnbindChat(chatID int64) error {
	_, err := s.db.Exec(`UPDATE users SET chat_id = NULL WHERE chat_id = ?`, chatID)
	return err
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
