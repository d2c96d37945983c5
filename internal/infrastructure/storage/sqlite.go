package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
)

const sessionKey = "session"

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	data       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Snapshot describes one retained historical blob
type Snapshot struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
}

// SQLiteStore persists the blob in a SQLite database
type SQLiteStore struct {
	db        *sql.DB
	snapshots int
	logger    *logging.Logger
	now       func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" opens a
// private in-memory database. snapshots bounds the history table; zero
// disables it.
func NewSQLiteStore(path string, snapshots int, logger *logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; also keeps an in-memory database on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{"PRAGMA busy_timeout=5000"}
	if !memory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{
		db:        db,
		snapshots: snapshots,
		logger:    logger.Named("storage.sqlite"),
		now:       time.Now,
	}, nil
}

// Load returns the stored blob, or an empty object
func (s *SQLiteStore) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, sessionKey).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return append([]byte(nil), emptyBlob...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return blob, nil
}

// Save upserts the blob and appends it to the bounded history
func (s *SQLiteStore) Save(ctx context.Context, blob []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		sessionKey, blob, now); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if s.snapshots > 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots (data, created_at) VALUES (?, ?)`, blob, now); err != nil {
			return fmt.Errorf("failed to record snapshot: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM snapshots WHERE id NOT IN (
				SELECT id FROM snapshots ORDER BY id DESC LIMIT ?
			)`, s.snapshots)
		if err != nil {
			return fmt.Errorf("failed to prune snapshots: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Debug("Pruned snapshots", zap.Int64("count", n))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Snapshots lists the retained history, newest first
func (s *SQLiteStore) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, length(data) FROM snapshots ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap Snapshot
			ms   int64
		)
		if err := rows.Scan(&snap.ID, &ms, &snap.Size); err != nil {
			return nil, err
		}
		snap.CreatedAt = time.UnixMilli(ms)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// ReadSnapshot returns one historical blob
func (s *SQLiteStore) ReadSnapshot(ctx context.Context, id int64) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = ?`, id).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %d: %w", id, err)
	}
	return blob, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
