package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/cenkalti/backoff/v4"
)

// Base carries the configuration and logger shared by every concrete provider
// and implements the non capability parts of Instance. Concrete providers
// embed it and override HealthCheck and ValidateConfig.
type Base struct {
	cfg    ProviderConfig
	logger log.Logger
}

// NewBase validates cfg and returns a Base holding a private copy of it.
func NewBase(cfg ProviderConfig, logger log.Logger) (Base, error) {
	if err := cfg.Validate(); err != nil {
		return Base{}, err
	}
	if logger == nil {
		logger = log.Nop()
	}
	return Base{cfg: cfg.Clone(), logger: logger}, nil
}

func (b *Base) ID() string   { return b.cfg.ID }
func (b *Base) Name() string { return b.cfg.Name }
func (b *Base) Type() string { return b.cfg.Type }

// Config returns a copy of the provider configuration.
func (b *Base) Config() ProviderConfig { return b.cfg.Clone() }

func (b *Base) IsEnabled() bool { return b.cfg.Enabled }
func (b *Base) Priority() int   { return b.cfg.Priority }

// Logger returns the provider scoped logger.
func (b *Base) Logger() log.Logger { return b.logger }

// HealthCheck reports healthy. Providers backed by a remote service override it.
func (b *Base) HealthCheck(ctx context.Context) HealthResult {
	return HealthResult{Healthy: true, Timestamp: time.Now()}
}

// ValidateConfig checks required fields only.
func (b *Base) ValidateConfig(ctx context.Context) ValidationResult {
	return b.ValidateConfigPresence()
}

// ValidateConfigPresence returns the result of ProviderConfig.Validate as data.
func (b *Base) ValidateConfigPresence() ValidationResult {
	if err := b.cfg.Validate(); err != nil {
		return ValidationResult{Valid: false, Errors: []string{err.Error()}}
	}
	return ValidationResult{Valid: true}
}

// RequireAPIKey appends an error to res when no API key is configured.
func (b *Base) RequireAPIKey(res ValidationResult) ValidationResult {
	if b.cfg.Connection.APIKey == "" {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("%s: api key is required", b.cfg.ID))
	}
	return res
}

// CheckHealth times probe and turns its error into a HealthResult.
func (b *Base) CheckHealth(ctx context.Context, timeout time.Duration, probe func(ctx context.Context) error) HealthResult {
	start := time.Now()
	_, err := ExecuteWithTimeout(ctx, timeout, b.cfg.ID+" health check timed out", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, probe(ctx)
	})
	res := HealthResult{
		Healthy:      err == nil,
		ResponseTime: time.Since(start),
		Timestamp:    time.Now(),
	}
	if err != nil {
		res.Error = err.Error()
		b.logger.Debug("health check failed", log.Err(err), log.Duration("response_time", res.ResponseTime))
	}
	return res
}

type outcome[T any] struct {
	value T
	err   error
}

// ExecuteWithTimeout runs op and waits at most timeout for it. When the timer
// fires first a TIMEOUT ProviderError is returned; op keeps running with a
// cancelled context and its result is discarded.
func ExecuteWithTimeout[T any](ctx context.Context, timeout time.Duration, message string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return op(ctx)
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		if message == "" {
			message = fmt.Sprintf("operation timed out after %s", timeout)
		}
		return zero, NewError("", CodeTimeout, message)
	case <-ctx.Done():
		return zero, Classify("", ctx.Err())
	}
}

// ExecuteWithErrorHandling logs entry, exit and duration of operation and
// rewraps any failure into a ProviderError attributed to b, keeping its
// retryability.
func ExecuteWithErrorHandling[T any](ctx context.Context, b *Base, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	logger := b.logger.With(log.String("operation", operation))
	start := time.Now()
	logger.Debug("operation started")

	v, err := fn(ctx)
	elapsed := time.Since(start)
	if err == nil {
		logger.Debug("operation finished", log.Duration("duration", elapsed))
		return v, nil
	}

	classified := Classify(b.ID(), err)
	wrapped := &ProviderError{
		Provider:   b.ID(),
		Code:       classified.Code,
		Message:    classified.Message,
		Retry:      classified.Retry,
		RetryAfter: classified.RetryAfter,
		StatusCode: classified.StatusCode,
		Cause:      err,
	}
	if wrapped.Code == CodeOperationFailed {
		wrapped.Message = fmt.Sprintf("%s: %s failed: %s", b.ID(), operation, classified.Message)
	}

	logger.Warn("operation failed",
		log.String("code", string(wrapped.Code)),
		log.Bool("retryable", wrapped.Retry),
		log.Duration("duration", elapsed),
		log.Err(err))

	var zero T
	return zero, wrapped
}

// ExecuteWithRetry runs op with exponential backoff, retrying only failures
// that classify as retryable, at most maxRetries extra times.
func ExecuteWithRetry[T any](ctx context.Context, b *Base, maxRetries int, op func(ctx context.Context) (T, error)) (T, error) {
	var result T

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		v, err := op(ctx)
		if err == nil {
			result = v
			return nil
		}
		pe := Classify(b.ID(), err)
		if !pe.Retry {
			return backoff.Permanent(pe)
		}
		b.logger.Debug("retrying provider call", log.Int("attempt", attempt), log.String("code", string(pe.Code)))
		return pe
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx))

	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
