// Package sender delivers outbound Telegram calls off the update goroutine.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the shard queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the dispatcher. Zero values select defaults.
type Options struct {
	// Workers is the number of shards; jobs with the same key always share a shard.
	Workers int
	// QueueSize is the buffer of each shard.
	QueueSize int
	// MaxAttempts counts the first try.
	MaxAttempts     int
	InitialInterval time.Duration
	// MaxDuration bounds the time spent on a single job including retries.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 15 * time.Second
	}
	return o
}

type job struct {
	ctx    context.Context
	key    int64
	action string
	run    func() error
}

// Dispatcher runs outbound calls on sharded workers. Jobs sharing a key run in
// enqueue order, so replies to one chat never overtake each other.
type Dispatcher struct {
	opts   Options
	shards []chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, shards: make([]chan job, opts.Workers)}
	d.wg.Add(opts.Workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, opts.QueueSize)
		go d.worker(d.shards[i])
	}
	return d
}

// Enqueue schedules run on the shard owning key.
func (d *Dispatcher) Enqueue(ctx context.Context, key int64, action string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.shards[d.shard(key)] <- job{ctx: ctx, key: key, action: action, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shard(key int64) int {
	k := uint64(key)
	return int(k % uint64(len(d.shards)))
}

// ErrorCount returns the number of jobs that failed after all attempts.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits until queued ones are done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handle(j)
	}
}

func (d *Dispatcher) handle(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempt := 0
	_, err := backoff.Retry(runCtx, func() (struct{}, error) {
		attempt++
		err := j.run()
		if err == nil {
			return struct{}{}, nil
		}
		var flood tele.FloodError
		if errors.As(err, &flood) && flood.RetryAfter > 0 {
			return struct{}{}, backoff.RetryAfter(flood.RetryAfter)
		}
		if !netutil.ShouldRetry(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     d.opts.InitialInterval,
			RandomizationFactor: backoff.DefaultRandomizationFactor,
			Multiplier:          backoff.DefaultMultiplier,
			MaxInterval:         d.opts.MaxDuration,
		}),
		backoff.WithMaxTries(uint(d.opts.MaxAttempts)),
		backoff.WithMaxElapsedTime(d.opts.MaxDuration),
	)

	attrs := []slog.Attr{
		slog.String("action", j.action),
		slog.Int64("chat_id", j.key),
		slog.Int("attempts", attempt),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		d.errs.Add(1)
		attrs = append(attrs,
			slog.String("err", netutil.Redact(err)),
			slog.String("err_code", netutil.Classify(err)),
		)
		logger.Error(ctx, "tg.sender", "send.fail", attrs...)
		return
	}
	logger.Debug(ctx, "tg.sender", "send.ok", attrs...)
}
