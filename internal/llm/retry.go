package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/policy-structurer/internal/common"
)

const (
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 32 * time.Second
)

// RetryConfig bounds retries and the shared token bucket.
type RetryConfig struct {
	MaxRetries      int
	TokensPerSecond int
	BurstTokens     int
	// BaseDelay overrides the first backoff step; tests shrink it.
	BaseDelay time.Duration
}

// RetryingCompleter wraps a Completer with a token-bucket rate limit sized in
// estimated prompt tokens and exponential backoff on transient failures.
// It is safe for concurrent use.
type RetryingCompleter struct {
	next    Completer
	limiter *rate.Limiter
	cfg     RetryConfig
	log     *slog.Logger
}

func NewRetryingCompleter(next Completer, cfg RetryConfig, logger *slog.Logger) *RetryingCompleter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = baseRetryDelay
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.TokensPerSecond > 0 {
		if cfg.BurstTokens < cfg.TokensPerSecond {
			cfg.BurstTokens = cfg.TokensPerSecond
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.TokensPerSecond), cfg.BurstTokens)
	}
	return &RetryingCompleter{next: next, limiter: limiter, cfg: cfg, log: logger}
}

// EstimateTokens is the length/4 heuristic used across the pipeline.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

func (r *RetryingCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	tokens := EstimateTokens(system) + EstimateTokens(user)
	if r.cfg.BurstTokens > 0 && tokens > r.cfg.BurstTokens {
		tokens = r.cfg.BurstTokens
	}
	if err := r.limiter.WaitN(ctx, tokens); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	log := r.log.With(
		"document_id", common.DocumentIDFromContext(ctx),
		"tenant_id", common.TenantIDFromContext(ctx),
		"req_id", common.RequestIDFromContext(ctx),
	)
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(r.cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			log.Info("llm.complete.retry", "attempt", attempt, "max_retries", r.cfg.MaxRetries, "delay", delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			}
		}

		out, err := r.next.Complete(ctx, system, user)
		if err == nil {
			if attempt > 0 {
				log.Info("llm.complete.retry_ok", "attempt", attempt)
			}
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsTransient(err) {
			return "", err
		}
		log.Warn("llm.complete.transient_error", "attempt", attempt+1, "err", err)
	}
	return "", fmt.Errorf("max retries (%d) exceeded, last error: %w", r.cfg.MaxRetries, lastErr)
}

// IsTransient reports whether a gateway error is worth retrying: rate limits,
// server errors and network timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
