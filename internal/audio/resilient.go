package audio

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilientSynthesizer wraps a synthesizer with retry and circuit breaking from fortify
type ResilientSynthesizer struct {
	next           Synthesizer
	circuitBreaker circuitbreaker.CircuitBreaker[[]byte]
	retrier        retry.Retry[[]byte]
	logger         *slog.Logger
}

// ResilientConfig holds configuration for the resilient wrapper
type ResilientConfig struct {
	// EnableCircuitBreaker stops calling a provider after repeated failures
	EnableCircuitBreaker bool

	// EnableRetry retries transient failures with backoff
	EnableRetry bool

	// MaxAttempts for retry (default: 3)
	MaxAttempts int

	// InitialDelay before the first retry (default: 300ms)
	InitialDelay time.Duration

	// Logger for resilience events
	Logger *slog.Logger
}

// DefaultResilientConfig returns defaults tuned for an interactive reader:
// a user is waiting, so retries are short.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		MaxAttempts:          3,
		InitialDelay:         300 * time.Millisecond,
	}
}

// NewResilientSynthesizer wraps next with the configured patterns
func NewResilientSynthesizer(next Synthesizer, cfg ResilientConfig) *ResilientSynthesizer {
	rs := &ResilientSynthesizer{
		next:   next,
		logger: cfg.Logger,
	}
	if rs.logger == nil {
		rs.logger = slog.Default()
	}

	if cfg.EnableCircuitBreaker {
		rs.circuitBreaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				rs.logger.Warn("speech circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := cfg.InitialDelay
		if delay <= 0 {
			delay = 300 * time.Millisecond
		}
		rs.retrier = retry.New[[]byte](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			MaxDelay:      5 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   IsRetryable,
		})
	}

	return rs
}

// Synthesize calls the wrapped synthesizer through retry and the circuit breaker
func (r *ResilientSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	operation := func(ctx context.Context) ([]byte, error) {
		return r.next.Synthesize(ctx, text, language)
	}

	if r.circuitBreaker != nil && r.retrier != nil {
		return r.circuitBreaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
			return r.retrier.Do(ctx, operation)
		})
	}

	if r.circuitBreaker != nil {
		return r.circuitBreaker.Execute(ctx, operation)
	}

	if r.retrier != nil {
		return r.retrier.Do(ctx, operation)
	}

	return operation(ctx)
}

// IsRetryable reports whether a synthesis failure is worth another attempt:
// throttling, upstream 5xx and network timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) {
		switch status.HTTPStatusCode() {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
