package generation

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/indranet/internal/providers/llm"
)

// State is the lifecycle position of a generation request
type State string

const (
	StateIssued     State = "issued"
	StateStreaming  State = "streaming"
	StateCompleted  State = "completed"
	StateSuperseded State = "superseded"
)

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateSuperseded
}

// Request tracks one streamed generation into one node.
//
// Token is the value of the pipeline sequence captured when the request was
// issued; chunks only land while it is still the latest.
type Request struct {
	ID       string
	NodeID   string
	URL      string
	ParentID string
	Token    uint64
	IssuedAt time.Time

	mu         sync.RWMutex
	state      State
	err        error
	applied    int
	discarded  int
	finishedAt time.Time
	completion *llm.Completion

	done chan struct{}
}

// Info is a point-in-time view of a request for the API
type Info struct {
	ID         string    `json:"id"`
	NodeID     string    `json:"node_id"`
	URL        string    `json:"url"`
	ParentID   string    `json:"parent_id,omitempty"`
	Token      uint64    `json:"token"`
	State      State     `json:"state"`
	Applied    int       `json:"chunks_applied"`
	Discarded  int       `json:"chunks_discarded"`
	Error      string    `json:"error,omitempty"`
	IssuedAt   time.Time `json:"issued_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

func newRequest(id, nodeID, url, parentID string, token uint64, now time.Time) *Request {
	return &Request{
		ID:       id,
		NodeID:   nodeID,
		URL:      url,
		ParentID: parentID,
		Token:    token,
		IssuedAt: now,
		state:    StateIssued,
		done:     make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (r *Request) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Err returns the transport error the stream ended with, if any
func (r *Request) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Completion returns the provider summary once the stream ended cleanly
func (r *Request) Completion() *llm.Completion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.completion
}

// Done is closed when the request reaches a terminal state
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request is terminal or ctx ends. It returns the
// stream error, or ctx's error if waiting was abandoned.
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Info snapshots the request
func (r *Request) Info() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := Info{
		ID:         r.ID,
		NodeID:     r.NodeID,
		URL:        r.URL,
		ParentID:   r.ParentID,
		Token:      r.Token,
		State:      r.state,
		Applied:    r.applied,
		Discarded:  r.discarded,
		IssuedAt:   r.IssuedAt,
		FinishedAt: r.finishedAt,
	}
	if r.err != nil {
		info.Error = r.err.Error()
	}
	return info
}

func (r *Request) markStreaming() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateIssued {
		r.state = StateStreaming
	}
}

func (r *Request) recordChunk(applied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if applied {
		r.applied++
		return
	}
	r.discarded++
	r.state = StateSuperseded
}

// finish moves the request to its terminal state. A request that was
// overtaken before its stream ended is superseded even if every chunk it
// received still landed.
func (r *Request) finish(completion *llm.Completion, err error, overtaken bool, now time.Time) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completion = completion
	r.err = err
	r.finishedAt = now
	if r.state != StateSuperseded {
		r.state = StateCompleted
		if overtaken {
			r.state = StateSuperseded
		}
	}
	close(r.done)
	return r.state
}
