package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"deepchat/src/types"
)

// credentials is the on-disk shape of credentials.json.
type credentials struct {
	AccessToken string `json:"access_token"`
}

// CredentialStore holds the bearer token forwarded with API requests. The
// token is cached in memory and mirrored to credentials.json so a restart
// does not force a new login. Clear removes both, which is how a 401 routes
// the user back to login.
type CredentialStore struct {
	mu    sync.Mutex
	dir   string
	token string
}

// NewCredentialStore loads any saved token from dir.
func NewCredentialStore(dir string) (*CredentialStore, error) {
	s := &CredentialStore{dir: dir}
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, &types.StorageError{Message: "failed to read credentials file", Err: err}
	}
	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, &types.StorageError{Message: "failed to parse credentials file", Err: err}
	}
	s.token = creds.AccessToken
	return s, nil
}

func (s *CredentialStore) path() string {
	return filepath.Join(s.dir, credentialsFile)
}

// Token returns the current bearer token, or "" if not authenticated.
func (s *CredentialStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Set stores a new token and persists it.
func (s *CredentialStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	data, err := json.MarshalIndent(credentials{AccessToken: token}, "", "  ")
	if err != nil {
		return &types.StorageError{Message: "failed to marshal credentials", Err: err}
	}
	if err := os.WriteFile(s.path(), data, 0600); err != nil {
		return &types.StorageError{Message: "failed to write credentials file", Err: err}
	}
	return nil
}

// Clear drops the token in memory and on disk. Removing a file that is
// already gone is not an error.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return &types.StorageError{Message: "failed to remove credentials file", Err: err}
	}
	return nil
}
