package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/indranet/internal/shared/types"
)

// DefaultMaxTokens bounds every generated page
const DefaultMaxTokens = 4096

var (
	// ErrNoCredential is returned when a provider needs an API key and none was given
	ErrNoCredential = errors.New("no credential configured")
	// ErrUnknownProvider is returned for an unsupported provider name
	ErrUnknownProvider = errors.New("unknown provider")
)

// Provider names a generation backend
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
)

// ParseProvider normalizes a provider name
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case ProviderAnthropic, ProviderOpenAI, ProviderOllama:
		return p, nil
	case "":
		return ProviderAnthropic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// RequiresCredential reports whether the provider needs an API key
func (p Provider) RequiresCredential() bool {
	return p != ProviderOllama
}

// Request is one generation call
type Request struct {
	Model     string
	MaxTokens int64
	System    string
	Messages  []types.Message
}

// Completion summarizes a finished stream
type Completion struct {
	Model        string `json:"model"`
	Text         string `json:"text"`
	StopReason   string `json:"stop_reason,omitempty"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// TextHandler receives streamed text in arrival order
type TextHandler func(chunk string)

// Client streams one completion. onText is called synchronously from the
// calling goroutine, never concurrently.
type Client interface {
	Stream(ctx context.Context, req Request, onText TextHandler) (*Completion, error)
}

func maxTokens(n int64) int64 {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}
