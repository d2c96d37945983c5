package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
)

// emptyBlob is what a fresh install loads
var emptyBlob = []byte("{}")

// Backend names a storage implementation
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Store is a session blob backend
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Backend Backend
	// Dir holds data.json, backups and the SQLite database. Empty means the
	// user cache directory.
	Dir string
	// Backups is how many compressed backups or snapshots to retain. Zero
	// disables them.
	Backups int
	// BackupInterval is the minimum spacing between file backups
	BackupInterval time.Duration
}

// Open creates the configured backend
func Open(opts Options, logger *logging.Logger) (Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	backend := Backend(strings.ToLower(string(opts.Backend)))
	if backend == BackendMemory {
		return NewMemoryStore(), nil
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}

	switch backend {
	case "", BackendFile:
		return NewFileStore(dir, FileOptions{
			Backups:        opts.Backups,
			BackupInterval: opts.BackupInterval,
		}, logger)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, "data.db"), opts.Backups, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// MemoryStore keeps the blob in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	blob []byte
}

// NewMemoryStore creates an empty in-memory backend
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored blob
func (m *MemoryStore) Load(context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.blob == nil {
		return append([]byte(nil), emptyBlob...), nil
	}
	return append([]byte(nil), m.blob...), nil
}

// Save replaces the stored blob
func (m *MemoryStore) Save(_ context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = append([]byte(nil), blob...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
