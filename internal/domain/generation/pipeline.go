package generation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/indranet/internal/domain/conversation"
	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/indranet/internal/providers/browser"
	"github.com/GriffinCanCode/indranet/internal/providers/llm"
	"github.com/GriffinCanCode/indranet/internal/shared/id"
)

var (
	// ErrNoCredential means the session has no API key for a provider that needs one
	ErrNoCredential = llm.ErrNoCredential
	// ErrNoSelection means the operation needs a current node
	ErrNoSelection = errors.New("no current node")
	// ErrClosed is returned once the pipeline is shutting down
	ErrClosed = errors.New("generation pipeline closed")
)

// ClientFactory builds credential-bound model clients. Satisfied by *llm.Factory.
type ClientFactory interface {
	New(credential string) (llm.Client, error)
	RequiresCredential() bool
}

// Config tunes the pipeline
type Config struct {
	MaxTokens int64         // per page, 0 = llm.DefaultMaxTokens
	Timeout   time.Duration // per stream, 0 = unbounded
	History   int           // finished requests kept for inspection
}

// DefaultConfig returns the standard settings
func DefaultConfig() Config {
	return Config{
		MaxTokens: llm.DefaultMaxTokens,
		History:   32,
	}
}

// Pipeline issues generations into the tree.
//
// Every Start bumps a sequence counter and the new request captures the
// value as its token. A chunk is appended only while its request's token is
// still the latest; the check and the append happen under one lock, and the
// bump happens under the same lock, so requests are linearized. Older
// streams are never cancelled, their remaining chunks are dropped.
type Pipeline struct {
	store   *session.Store
	factory ClientFactory
	logger  *logging.Logger
	metrics *monitoring.Metrics
	cfg     Config

	mu  sync.Mutex
	seq atomic.Uint64 // Written only while holding mu

	clientMu  sync.Mutex
	clientKey string
	client    llm.Client

	reqMu  sync.RWMutex
	active map[string]*Request
	recent []*Request // Oldest first, at most cfg.History

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
	now    func() time.Time
}

// New creates a pipeline
func New(store *session.Store, factory ClientFactory, logger *logging.Logger, metrics *monitoring.Metrics, cfg Config) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		store:   store,
		factory: factory,
		logger:  logger.Named("generation"),
		metrics: metrics,
		cfg:     cfg,
		active:  make(map[string]*Request),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Sequence returns the token of the latest issued request
func (p *Pipeline) Sequence() uint64 {
	return p.seq.Load()
}

// Start creates a node for url under parentID, selects it and streams its
// content in the background. Without a required credential nothing is
// created and ErrNoCredential is returned.
func (p *Pipeline) Start(url, parentID string) (*Request, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	settings := p.store.Settings()
	if p.factory.RequiresCredential() && settings.APIKey == "" {
		return nil, ErrNoCredential
	}

	client, err := p.clientFor(settings.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	nodeID := p.store.CreateNode(url, parentID, true)
	p.store.UpdateContent(nodeID, conversation.DoctypePrefill)
	node, _ := p.store.Get(nodeID)
	target := conversation.TargetOf(node)
	msgs := conversation.Build(p.store, target, settings.UserMessage)
	token := p.seq.Add(1)
	p.wg.Add(1)
	p.mu.Unlock()

	req := newRequest(id.NewRequestID().String(), nodeID, url, target.ParentID, token, p.now())
	p.track(req)
	p.metrics.GenerationStarted()

	p.logger.Info("Generation issued",
		zap.String("request_id", req.ID),
		zap.String("node_id", nodeID),
		zap.String("url", url),
		zap.Uint64("token", token),
		zap.Int("messages", len(msgs)))

	go p.run(client, req, llm.Request{
		Model:     settings.Model,
		MaxTokens: p.cfg.MaxTokens,
		System:    settings.SystemMessage,
		Messages:  msgs,
	})

	return req, nil
}

// Generate starts a generation and waits for it to finish
func (p *Pipeline) Generate(ctx context.Context, url, parentID string) (*Request, error) {
	req, err := p.Start(url, parentID)
	if err != nil {
		return nil, err
	}
	return req, req.Wait(ctx)
}

// Refresh regenerates the current page as a new sibling of it
func (p *Pipeline) Refresh() (*Request, error) {
	cur, ok := p.store.Current()
	if !ok {
		return nil, ErrNoSelection
	}
	pid, _ := cur.Parent()
	return p.Start(cur.URL, pid)
}

// Navigate handles a navigation message from the sandboxed frame: target is
// resolved against the current page and generated as its child.
func (p *Pipeline) Navigate(target string) (*Request, error) {
	base, parentID := "", ""
	if cur, ok := p.store.Current(); ok {
		base, parentID = cur.URL, cur.ID
	}

	resolved, err := browser.ResolveTarget(base, target)
	if err != nil {
		return nil, err
	}
	return p.Start(resolved, parentID)
}

func (p *Pipeline) run(client llm.Client, req *Request, llmReq llm.Request) {
	defer p.wg.Done()

	ctx := p.ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	req.markStreaming()
	completion, err := client.Stream(ctx, llmReq, func(chunk string) {
		p.apply(req, chunk)
	})

	overtaken := p.seq.Load() != req.Token
	// Retired before finishing so a waiter always finds it in the history
	p.retire(req)
	state := req.finish(completion, err, overtaken, p.now())

	outcome := string(state)
	var inTokens, outTokens int64
	if completion != nil {
		inTokens, outTokens = completion.InputTokens, completion.OutputTokens
	}
	if err != nil {
		outcome = "failed"
		p.logger.Error("Generation stream failed",
			zap.String("request_id", req.ID),
			zap.String("node_id", req.NodeID),
			zap.String("state", string(state)),
			zap.Error(err))
	} else {
		p.logger.Info("Generation finished",
			zap.String("request_id", req.ID),
			zap.String("node_id", req.NodeID),
			zap.String("state", string(state)),
			zap.Int64("output_tokens", outTokens))
	}
	p.metrics.GenerationFinished(outcome, p.now().Sub(req.IssuedAt), inTokens, outTokens)
}

// apply appends chunk to the request's node if the request is still the
// latest one issued
func (p *Pipeline) apply(req *Request, chunk string) {
	p.mu.Lock()
	latest := p.seq.Load() == req.Token
	if latest {
		p.store.AppendContent(req.NodeID, chunk)
	}
	p.mu.Unlock()

	req.recordChunk(latest)
	p.metrics.RecordChunk(latest)
}

// clientFor returns a client bound to credential, reusing the previous one
// while the credential is unchanged
func (p *Pipeline) clientFor(credential string) (llm.Client, error) {
	p.clientMu.Lock()
	defer p.clientMu.Unlock()

	if p.client != nil && p.clientKey == credential {
		return p.client, nil
	}
	client, err := p.factory.New(credential)
	if err != nil {
		return nil, err
	}
	p.client, p.clientKey = client, credential
	return client, nil
}

func (p *Pipeline) track(req *Request) {
	p.reqMu.Lock()
	defer p.reqMu.Unlock()
	p.active[req.ID] = req
}

func (p *Pipeline) retire(req *Request) {
	p.reqMu.Lock()
	defer p.reqMu.Unlock()

	delete(p.active, req.ID)
	if p.cfg.History <= 0 {
		return
	}
	p.recent = append(p.recent, req)
	if over := len(p.recent) - p.cfg.History; over > 0 {
		p.recent = append(p.recent[:0:0], p.recent[over:]...)
	}
}

// Get looks up an in-flight or recently finished request
func (p *Pipeline) Get(requestID string) (*Request, bool) {
	p.reqMu.RLock()
	defer p.reqMu.RUnlock()

	if req, ok := p.active[requestID]; ok {
		return req, true
	}
	for _, req := range p.recent {
		if req.ID == requestID {
			return req, true
		}
	}
	return nil, false
}

// Active lists in-flight requests, newest token first
func (p *Pipeline) Active() []Info {
	p.reqMu.RLock()
	reqs := make([]*Request, 0, len(p.active))
	for _, req := range p.active {
		reqs = append(reqs, req)
	}
	p.reqMu.RUnlock()

	return infos(reqs)
}

// Recent lists finished requests still retained, newest token first
func (p *Pipeline) Recent() []Info {
	p.reqMu.RLock()
	reqs := append([]*Request(nil), p.recent...)
	p.reqMu.RUnlock()

	return infos(reqs)
}

func infos(reqs []*Request) []Info {
	out := make([]Info, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, req.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Token > out[j].Token
	})
	return out
}

// Close stops accepting requests and waits for open streams. When ctx ends
// first the streams are cancelled.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed.Store(true)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
