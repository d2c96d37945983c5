package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
)

// BlobStore is the durable key/value collaborator holding the session blob
type BlobStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// Recorder receives persistence outcomes
type Recorder interface {
	RecordSessionSave(err error)
	IncSessionsRestored()
}

// PersisterStats reports persistence activity
type PersisterStats struct {
	Saves        int64      `json:"saves"`
	Failures     int64      `json:"failures"`
	LastSaved    *time.Time `json:"lastSaved,omitempty"`
	LastRestored *time.Time `json:"lastRestored,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
}

// Persister mirrors the store into a BlobStore. Writes are fire-and-forget:
// every change marks the session dirty and a single worker saves the latest
// snapshot once the debounce window has passed, so the last write wins.
type Persister struct {
	store    *Store
	blobs    BlobStore
	logger   *logging.Logger
	debounce time.Duration
	recorder Recorder

	dirty chan struct{}
	done  chan struct{}
	stop  chan struct{}
	once  sync.Once

	mu    sync.RWMutex
	stats PersisterStats // Protected by mu
}

// NewPersister creates a persister and subscribes it to the store. Call Run
// to start the writer.
func NewPersister(store *Store, blobs BlobStore, logger *logging.Logger, debounce time.Duration) *Persister {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Persister{
		store:    store,
		blobs:    blobs,
		logger:   logger.Named("persister"),
		debounce: debounce,
		dirty:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
	}
	store.Subscribe(p)
	return p
}

// SetRecorder reports every save and restore to r. Must be called before Run.
func (p *Persister) SetRecorder(r Recorder) {
	p.recorder = r
}

// Restore loads the stored blob into the store, merging defaults for missing
// keys and repairing structural damage.
func (p *Persister) Restore(ctx context.Context) (Repairs, error) {
	blob, err := p.blobs.Load(ctx)
	if err != nil {
		return Repairs{}, fmt.Errorf("failed to read session: %w", err)
	}

	data, err := Decode(blob)
	if err != nil {
		return Repairs{}, err
	}

	repairs := p.store.Load(data)
	if repairs.Any() {
		p.logger.Warn("Repaired stored session",
			zap.Int("dropped_duplicates", repairs.DroppedDuplicates),
			zap.Int("demoted_orphans", repairs.DemotedOrphans),
			zap.Int("broken_cycles", repairs.BrokenCycles),
			zap.Bool("cleared_selection", repairs.ClearedSelection))
		p.markDirty()
	}

	now := time.Now()
	p.mu.Lock()
	p.stats.LastRestored = &now
	p.mu.Unlock()
	if p.recorder != nil {
		p.recorder.IncSessionsRestored()
	}

	p.logger.Info("Session restored", zap.Int("nodes", len(data.Nodes)))
	return repairs, nil
}

// OnChange implements Observer
func (p *Persister) OnChange(c Change) {
	if c.Kind == ChangeLoaded {
		return
	}
	p.markDirty()
}

func (p *Persister) markDirty() {
	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

// Run drives the writer until ctx is cancelled or Close is called. Pending
// changes are flushed before it returns.
func (p *Persister) Run(ctx context.Context) {
	defer close(p.done)

	var (
		timer   *time.Timer
		timeout <-chan time.Time
		pending bool
	)

	for {
		select {
		case <-p.dirty:
			pending = true
			if p.debounce <= 0 {
				p.save(ctx)
				pending = false
				continue
			}
			if timer == nil {
				timer = time.NewTimer(p.debounce)
				timeout = timer.C
			}
		case <-timeout:
			timer, timeout = nil, nil
			if pending {
				p.save(ctx)
				pending = false
			}
		case <-ctx.Done():
			p.drain(context.Background(), pending, timer)
			return
		case <-p.stop:
			p.drain(ctx, pending, timer)
			return
		}
	}
}

func (p *Persister) drain(ctx context.Context, pending bool, timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
	select {
	case <-p.dirty:
		pending = true
	default:
	}
	if pending {
		p.save(ctx)
	}
}

// Close stops the writer and waits for the final flush
func (p *Persister) Close() {
	p.once.Do(func() {
		close(p.stop)
	})
	<-p.done
}

// Flush writes the current snapshot synchronously
func (p *Persister) Flush(ctx context.Context) error {
	return p.save(ctx)
}

func (p *Persister) save(ctx context.Context) error {
	blob, err := Encode(p.store.Snapshot())
	if err == nil {
		err = p.blobs.Save(ctx, blob)
	}
	if p.recorder != nil {
		p.recorder.RecordSessionSave(err)
	}

	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.stats.Failures++
		p.stats.LastError = err.Error()
		p.logger.Error("Failed to persist session", zap.Error(err))
		return fmt.Errorf("failed to write session: %w", err)
	}

	p.stats.Saves++
	p.stats.LastSaved = &now
	p.stats.LastError = ""
	return nil
}

// Stats returns persistence statistics
func (p *Persister) Stats() PersisterStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}
