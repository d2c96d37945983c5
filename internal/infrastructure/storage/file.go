package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
)

const (
	// AppDir is the directory created under the user cache dir
	AppDir = "indranet-explorer"
	// DataFile is the name of the session blob
	DataFile = "data.json"

	backupDir    = "backups"
	backupPrefix = "data-"
	backupSuffix = ".json.zst"
	backupLayout = "20060102T150405.000Z"
)

// DefaultDir returns the per-user cache directory for the app
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(base, AppDir), nil
}

// FileOptions configures FileStore backups
type FileOptions struct {
	Backups        int
	BackupInterval time.Duration
}

// FileStore persists the blob as a JSON file
type FileStore struct {
	dir    string
	opts   FileOptions
	logger *logging.Logger
	now    func() time.Time

	mu         sync.Mutex
	lastBackup time.Time // Protected by mu
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, opts FileOptions, logger *logging.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if opts.Backups > 0 {
		if err := os.MkdirAll(filepath.Join(dir, backupDir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}
	return &FileStore{
		dir:    dir,
		opts:   opts,
		logger: logger.Named("storage.file"),
		now:    time.Now,
	}, nil
}

// Path returns the location of the blob
func (f *FileStore) Path() string {
	return filepath.Join(f.dir, DataFile)
}

// Load reads the blob; a missing file loads as an empty object
func (f *FileStore) Load(context.Context) ([]byte, error) {
	blob, err := os.ReadFile(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return append([]byte(nil), emptyBlob...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Path(), err)
	}
	return blob, nil
}

// Save replaces the blob atomically and takes a backup when one is due
func (f *FileStore) Save(ctx context.Context, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := writeAtomic(f.Path(), blob); err != nil {
		return err
	}

	if f.opts.Backups <= 0 {
		return nil
	}
	now := f.now()
	if !f.lastBackup.IsZero() && now.Sub(f.lastBackup) < f.opts.BackupInterval {
		return nil
	}
	if err := f.backup(blob, now); err != nil {
		// The primary write succeeded
		f.logger.Warn("Backup failed", zap.Error(err))
		return nil
	}
	f.lastBackup = now
	return nil
}

func writeAtomic(path string, blob []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (f *FileStore) backup(blob []byte, at time.Time) error {
	name := backupPrefix + at.UTC().Format(backupLayout) + backupSuffix
	out, err := os.Create(filepath.Join(f.dir, backupDir, name))
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		out.Close()
		return err
	}
	if _, err := enc.Write(blob); err != nil {
		enc.Close()
		out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return f.prune()
}

// prune keeps the newest opts.Backups files. Names sort chronologically.
func (f *FileStore) prune() error {
	names, err := f.Backups()
	if err != nil {
		return err
	}
	for len(names) > f.opts.Backups {
		if err := os.Remove(filepath.Join(f.dir, backupDir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}

// Backups lists backup file names, oldest first
func (f *FileStore) Backups() ([]string, error) {
	dir := filepath.Join(f.dir, backupDir)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	names, err := doublestar.Glob(os.DirFS(dir), backupPrefix+"*"+backupSuffix, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// ReadBackup decompresses a backup listed by Backups
func (f *FileStore) ReadBackup(name string) ([]byte, error) {
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid backup name %q", name)
	}
	in, err := os.Open(filepath.Join(f.dir, backupDir, name))
	if err != nil {
		return nil, err
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

func (f *FileStore) Close() error { return nil }
