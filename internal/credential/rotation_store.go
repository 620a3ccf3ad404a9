package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RotationStore persists which credentials in a Set are currently exhausted
// and when they become eligible again, so rotation state survives process
// restarts. Grounded on the teacher's file-based JSON persistence idiom in
// internal/config/loader.go, applied to the original's rotation_state.json.
type RotationStore struct {
	path string
	mu   sync.Mutex
	data map[string]time.Time // credential name -> expires_at
}

// NewRotationStore loads rotation state from path, treating a missing file
// as an empty store.
func NewRotationStore(path string) (*RotationStore, error) {
	store := &RotationStore{path: path, data: map[string]time.Time{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("credential: reading rotation state %s: %w", path, err)
	}
	var entries []expiry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("credential: parsing rotation state %s: %w", path, err)
	}
	for _, e := range entries {
		store.data[e.Name] = e.ExpiresAt
	}
	return store, nil
}

// MarkExhausted records that name is exhausted until expiresAt.
func (s *RotationStore) MarkExhausted(name string, expiresAt time.Time) error {
	s.mu.Lock()
	s.data[name] = expiresAt
	s.mu.Unlock()
	return s.persist()
}

// IsExhausted reports whether name is currently exhausted, expiring stale
// entries as it checks.
func (s *RotationStore) IsExhausted(name string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.data[name]
	if !ok {
		return false
	}
	if now.After(expiresAt) {
		delete(s.data, name)
		return false
	}
	return true
}

func (s *RotationStore) persist() error {
	s.mu.Lock()
	entries := make([]expiry, 0, len(s.data))
	for name, expiresAt := range s.data {
		entries = append(entries, expiry{Name: name, ExpiresAt: expiresAt})
	}
	s.mu.Unlock()

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("credential: encoding rotation state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("credential: creating rotation state dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("credential: writing rotation state %s: %w", s.path, err)
	}
	return nil
}
