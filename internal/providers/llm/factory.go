package llm

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
)

// FactoryConfig selects and tunes the backend
type FactoryConfig struct {
	Provider   Provider
	BaseURL    string // empty = provider default
	MaxRetries int    // transport-level retries inside the SDKs
	Timeout    time.Duration
	Breaker    *BreakerConfig // nil disables the breaker
}

// Factory builds credential-bound clients for the configured provider
type Factory struct {
	cfg    FactoryConfig
	logger *logging.Logger
}

// NewFactory creates a factory
func NewFactory(cfg FactoryConfig, logger *logging.Logger) *Factory {
	if cfg.Provider == "" {
		cfg.Provider = ProviderAnthropic
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Factory{cfg: cfg, logger: logger.Named("llm")}
}

// Provider returns the configured backend
func (f *Factory) Provider() Provider {
	return f.cfg.Provider
}

// RequiresCredential reports whether New needs a non-empty credential
func (f *Factory) RequiresCredential() bool {
	return f.cfg.Provider.RequiresCredential()
}

// New builds a client bound to credential
func (f *Factory) New(credential string) (Client, error) {
	var (
		client Client
		err    error
	)

	switch f.cfg.Provider {
	case ProviderAnthropic:
		client, err = NewAnthropicClient(credential, f.cfg.BaseURL, f.cfg.MaxRetries)
	case ProviderOpenAI:
		client, err = NewOpenAIClient(credential, f.cfg.BaseURL, f.cfg.MaxRetries)
	case ProviderOllama:
		client = NewOllamaClient(f.cfg.BaseURL, f.cfg.Timeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, f.cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if f.cfg.Breaker != nil {
		client = WithBreaker(string(f.cfg.Provider), client, *f.cfg.Breaker, f.logger)
	}
	return client, nil
}
