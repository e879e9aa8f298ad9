package google

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/gmailplayground/internal/instrumentation"
	"github.com/teemow/gmailplayground/internal/logging"
)

// MaxRetries bounds how often a rate limited call is retried.
const MaxRetries = 3

// Caller runs Google API calls through a rate limiter and records a span and
// metrics for every attempt. The zero value makes unthrottled, unrecorded calls.
type Caller struct {
	Service ServiceType
	Limiter *RateLimiter
	Metrics *instrumentation.Metrics
}

// Do runs fn for the named operation. Rate limited responses are retried up to
// MaxRetries times after the backoff the server asked for. The returned error is
// classified with WrapError. attrs are added to the span of every attempt.
func (c Caller) Do(ctx context.Context, operation string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	service := string(c.Service)
	logger := logging.WithOperation(logging.WithService(slog.Default(), service), operation)
	for attempt := 0; ; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return err
			}
		}

		spanCtx, span := instrumentation.StartGoogleAPISpan(ctx, service, operation, attrs...)
		start := time.Now()
		err := fn(spanCtx)
		duration := time.Since(start)
		instrumentation.EndSpan(span, err)

		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		c.Metrics.RecordGoogleAPIOperation(ctx, service, operation, status, duration)

		if err == nil {
			return nil
		}
		if IsRateLimited(err) && c.Limiter != nil && attempt < MaxRetries {
			retryAfter := RetryAfter(err)
			c.Limiter.RecordRateLimitError(retryAfter)
			logger.Warn("rate limited by Google API, backing off",
				slog.Int("attempt", attempt+1),
				slog.Int("retry_after_seconds", retryAfter))
			continue
		}
		logger.Debug("Google API call failed",
			logging.Status(status),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))
		return WrapError(err)
	}
}
