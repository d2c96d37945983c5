// Package llmtest provides scripted model clients for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/GriffinCanCode/indranet/internal/providers/llm"
)

// Client replays a fixed list of chunks on every call
type Client struct {
	Chunks []string
	Err    error

	mu    sync.Mutex
	calls []llm.Request
}

// NewClient scripts a client that streams chunks and succeeds
func NewClient(chunks ...string) *Client {
	return &Client{Chunks: chunks}
}

// Stream implements llm.Client
func (c *Client) Stream(ctx context.Context, req llm.Request, onText llm.TextHandler) (*llm.Completion, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()

	for _, chunk := range c.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		onText(chunk)
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return &llm.Completion{
		Model:        req.Model,
		Text:         strings.Join(c.Chunks, ""),
		StopReason:   "end_turn",
		OutputTokens: int64(len(c.Chunks)),
	}, nil
}

// Requests returns every request seen so far
func (c *Client) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Request(nil), c.calls...)
}

// Factory hands out one client regardless of credential
type Factory struct {
	Client   llm.Client
	Requires bool
}

// New implements the pipeline's client factory
func (f *Factory) New(string) (llm.Client, error) {
	return f.Client, nil
}

// RequiresCredential implements the pipeline's client factory
func (f *Factory) RequiresCredential() bool {
	return f.Requires
}
