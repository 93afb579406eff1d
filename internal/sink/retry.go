package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/lead"
)

// RetryOptions bounds the retry decorator.
type RetryOptions struct {
	// MaxAttempts counts the first try; values <= 1 disable retries.
	MaxAttempts     int           `yaml:"max_attempts" envconfig:"SINK_RETRY_MAX_ATTEMPTS"`
	InitialInterval time.Duration `yaml:"initial_interval" envconfig:"SINK_RETRY_INITIAL_INTERVAL"`
	MaxInterval     time.Duration `yaml:"max_interval" envconfig:"SINK_RETRY_MAX_INTERVAL"`
	MaxElapsed      time.Duration `yaml:"max_elapsed" envconfig:"SINK_RETRY_MAX_ELAPSED"`
}

// Retrying re-runs failed appends with exponential backoff.
type Retrying struct {
	next Sink
	opts RetryOptions
}

// WithRetry wraps next unless opts disable retries, in which case next is returned as is.
func WithRetry(next Sink, opts RetryOptions) Sink {
	if opts.MaxAttempts <= 1 {
		return next
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 5 * time.Second
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 30 * time.Second
	}
	return &Retrying{next: next, opts: opts}
}

// Name implements Named.
func (r *Retrying) Name() string { return NameOf(r.next) }

// Append implements Sink.
func (r *Retrying) Append(ctx context.Context, sub lead.Submission) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialInterval
	b.MaxInterval = r.opts.MaxInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := r.next.Append(ctx, sub)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.opts.MaxAttempts)),
		backoff.WithMaxElapsedTime(r.opts.MaxElapsed),
		backoff.WithNotify(func(err error, delay time.Duration) {
			logger.Warn(ctx, "sink", "append.retry",
				slog.String("status", "retry"),
				slog.String("sink", r.Name()),
				slog.String("submission_id", sub.ID.String()),
				slog.Int("attempts", attempt),
				slog.Duration("backoff", delay),
				slog.String("err", err.Error()),
			)
		}),
	)
	return err
}
