package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/felixgeelhaar/doctag/internal/api"
)

// DefaultTTL is how long a persisted token pair survives without use.
const DefaultTTL = 30 * time.Minute

// Persister keeps the token pair across process restarts. The identity is
// never persisted.
type Persister interface {
	// Load returns the stored tokens, or empty tokens when nothing is stored
	// or the entry has expired.
	Load() (api.Tokens, error)
	Save(tokens api.Tokens) error
	// Clear removes the stored entry. Clearing an empty store is not an error.
	Clear() error
}

// Toucher is implemented by persisters with a sliding expiration.
type Toucher interface {
	Touch() error
}

type fileEntry struct {
	Access    string    `json:"access"`
	Refresh   string    `json:"refresh"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileStore persists tokens as a JSON file that expires after a period of
// inactivity.
type FileStore struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu sync.Mutex
}

// FileOption configures a FileStore
type FileOption func(*FileStore)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) FileOption {
	return func(f *FileStore) { f.ttl = ttl }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) FileOption {
	return func(f *FileStore) { f.now = now }
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	f := &FileStore{path: path, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the session file location
func (f *FileStore) Path() string {
	return f.path
}

// Load implements Persister.
func (f *FileStore) Load() (api.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, err := f.read()
	if err != nil || entry == nil {
		return api.Tokens{}, err
	}
	if !f.now().Before(entry.ExpiresAt) {
		if err := f.remove(); err != nil {
			return api.Tokens{}, err
		}
		return api.Tokens{}, nil
	}
	return api.Tokens{Access: entry.Access, Refresh: entry.Refresh}, nil
}

// Save implements Persister.
func (f *FileStore) Save(tokens api.Tokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if tokens.Empty() {
		return f.remove()
	}
	return f.write(&fileEntry{
		Access:    tokens.Access,
		Refresh:   tokens.Refresh,
		ExpiresAt: f.now().Add(f.ttl),
	})
}

// Clear implements Persister.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remove()
}

// Touch pushes the expiration of a live entry forward.
func (f *FileStore) Touch() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, err := f.read()
	if err != nil || entry == nil {
		return err
	}
	if !f.now().Before(entry.ExpiresAt) {
		return nil
	}
	entry.ExpiresAt = f.now().Add(f.ttl)
	return f.write(entry)
}

func (f *FileStore) read() (*fileEntry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt file is treated as no session.
		return nil, nil
	}
	return &entry, nil
}

func (f *FileStore) write(entry *fileEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := renameio.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (f *FileStore) remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// MemoryStore is a Persister that lives only as long as the process.
type MemoryStore struct {
	mu     sync.Mutex
	tokens api.Tokens
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (api.Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, nil
}

func (m *MemoryStore) Save(tokens api.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = tokens
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = api.Tokens{}
	return nil
}
