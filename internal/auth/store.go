package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"tutorlink/pkg/types"
)

// Store exposes the persisted auth session. The backend owns the session
// itself; the client only ever reads the token and profile it left behind.
type Store interface {
	Token() (string, error)
	User() (*types.User, error)
}

// credentials is the on-disk shape of the persisted session.
type credentials struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// FileStore reads credentials from a JSON file once and caches them for the
// life of the process.
type FileStore struct {
	path string

	mu     sync.Mutex
	loaded bool
	creds  credentials
}

// NewFileStore creates a store backed by the given credentials file. The
// file is not read until the first Token or User call.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}
	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("failed to parse credentials: %w", err)
	}
	if creds.Token == "" {
		return ErrNoToken
	}
	if !types.IsValidUserID(creds.User.UserID) {
		return ErrNoUser
	}

	s.creds = creds
	s.loaded = true
	return nil
}

// Token returns the bearer credential.
func (s *FileStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return "", err
	}
	return s.creds.Token, nil
}

// User returns the stored profile.
func (s *FileStore) User() (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	user := s.creds.User
	return &user, nil
}
