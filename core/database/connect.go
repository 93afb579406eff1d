package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/leadbot/core/logger"
)

const (
	driverName     = "postgres"
	connectTimeout = 5 * time.Second
	// ReadyTimeout bounds how long startup waits for the server to accept connections.
	ReadyTimeout = 30 * time.Second
)

// Connect opens the pool, waits until the server answers a ping and applies pool limits.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	start := time.Now()
	db, err := sqlx.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	if err := WaitReady(ctx, db, ReadyTimeout); err != nil {
		_ = db.Close()
		logger.Error(ctx, "db", "db.connect",
			slog.String("status", "fail"),
			slog.String("host", cfg.Host),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}

	logger.Info(ctx, "db", "db.connect",
		slog.String("status", "ok"),
		slog.String("driver", driverName),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)
	return db, nil
}

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// WaitReady pings p with exponential backoff until it succeeds, ctx ends or timeout elapses.
func WaitReady(ctx context.Context, p Pinger, timeout time.Duration) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return struct{}{}, p.PingContext(pctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug(ctx, "db", "db.wait",
				slog.Int("attempt", attempt),
				slog.Duration("next", logger.RoundMS(next)),
				slog.String("err", err.Error()),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("database not ready after %d attempts: %w", attempt, err)
	}
	return nil
}
