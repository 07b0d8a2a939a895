package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tutorlink/pkg/types"
)

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write credentials: %v", err)
	}
	return path
}

func TestFileStore_ReadsTokenAndUser(t *testing.T) {
	path := writeCredentials(t, `{"token":"tok-123","user":{"userId":"u1","email":"a@b.c","name":"Ana","role":"TUTOR"}}`)
	store := NewFileStore(path)

	token, err := store.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("expected tok-123, got %s", token)
	}

	user, err := store.User()
	if err != nil {
		t.Fatalf("User failed: %v", err)
	}
	if user.UserID != "u1" || user.Role != types.RoleTutor {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestFileStore_MissingToken(t *testing.T) {
	path := writeCredentials(t, `{"user":{"userId":"u1"}}`)
	store := NewFileStore(path)

	if _, err := store.Token(); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestFileStore_MissingUser(t *testing.T) {
	path := writeCredentials(t, `{"token":"tok-123"}`)
	store := NewFileStore(path)

	if _, err := store.User(); !errors.Is(err, ErrNoUser) {
		t.Errorf("expected ErrNoUser, got %v", err)
	}
}

func TestFileStore_FileAbsent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	if _, err := store.Token(); err == nil {
		t.Error("expected error for missing file")
	}
}
