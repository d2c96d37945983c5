package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
)

// BreakerConfig configures the circuit breaker in front of a client
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after most of at least five calls failed
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerClient fails fast while the wrapped backend keeps erroring
type BreakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a named circuit breaker
func WithBreaker(name string, next Client, cfg BreakerConfig, logger *logging.Logger) *BreakerClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a backend failure
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerClient{next: next, cb: cb}
}

// Stream implements Client
func (b *BreakerClient) Stream(ctx context.Context, req Request, onText TextHandler) (*Completion, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Stream(ctx, req, onText)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Completion), nil
}

// State reports the breaker state
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}
