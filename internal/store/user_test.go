package store

import (
	"testing"

	"github.com/avoronkov/quizbot/internal/model"
)

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id, err := s.CreateUser(model.User{
		Username:     "alice",
		FullName:     "Alice A.",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("expected user %d, got %+v", id, u)
	}
	if u.ChatID != nil {
		t.Error("expected no chat bound")
	}

	missing, err := s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown username")
	}

	// Duplicate usernames are rejected by the unique index.
	if _, err := s.CreateUser(model.User{Username: "alice", PasswordHash: "h"}); err == nil {
		t.Error("expected error for duplicate username")
	}
}

func TestChatBinding(t *testing.T) {
	s := newTestStore(t)
	id := createTestUser(t, s, "alice")

	if err := s.BindChat(id, 42); err != nil {
		t.Fatalf("BindChat: %v", err)
	}
	u, err := s.GetUserByChatID(42)
	if err != nil {
		t.Fatalf("GetUserByChatID: %v", err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("expected user %d bound to chat, got %+v", id, u)
	}

	if err := s.UnbindChat(42); err != nil {
		t.Fatalf("UnbindChat: %v", err)
	}
	u, err = s.GetUserByChatID(42)
	if err != nil {
		t.Fatalf("GetUserByChatID after unbind: %v", err)
	}
	if u != nil {
		t.Error("expected no user bound after unbind")
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	id := createTestUser(t, s, "alice")

	u, _ := s.GetUserByID(id)
	u.FullName = "Renamed"
	u.PasswordHash = "newhash"
	if err := s.UpdateUser(*u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	got, _ := s.GetUserByID(id)
	if got.FullName != "Renamed" || got.PasswordHash != "newhash" {
		t.Errorf("update not applied: %+v", got)
	}
}
