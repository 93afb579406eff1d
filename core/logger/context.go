package logger

import (
	"context"
	"log/slog"
)

type ctxKey uint8

const (
	keyLogger ctxKey = iota
	keyRID
	keyUpdate
	keyUser
	keyChat
	keyHandler
	keySession
)

func withValue(ctx context.Context, key ctxKey, v any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func valueOf[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, ok := ctx.Value(key).(T)
	if !ok {
		return zero
	}
	return v
}

// WithLogger stores log in ctx. A nil log leaves ctx unchanged.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if l := valueOf[*slog.Logger](ctx, keyLogger); l != nil {
		return l
	}
	return L
}

// WithRID attaches a correlation id; see BuildRID.
func WithRID(ctx context.Context, rid string) context.Context {
	return withValue(ctx, keyRID, rid)
}

// RIDFrom returns the correlation id of ctx.
func RIDFrom(ctx context.Context) string { return valueOf[string](ctx, keyRID) }

// WithUpdateMeta attaches the identifiers of an incoming Telegram update.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	ctx = withValue(ctx, keyUpdate, updateID)
	ctx = withValue(ctx, keyUser, userID)
	return withValue(ctx, keyChat, chatID)
}

// UpdateIDFrom returns the update id of ctx.
func UpdateIDFrom(ctx context.Context) int { return valueOf[int](ctx, keyUpdate) }

// UserIDFrom returns the Telegram user id of ctx.
func UserIDFrom(ctx context.Context) int64 { return valueOf[int64](ctx, keyUser) }

// ChatIDFrom returns the chat id of ctx.
func ChatIDFrom(ctx context.Context) int64 { return valueOf[int64](ctx, keyChat) }

// WithHandler names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, keyHandler, handler)
}

// HandlerFrom returns the handler name of ctx.
func HandlerFrom(ctx context.Context) string { return valueOf[string](ctx, keyHandler) }

// WithSession tags ctx with a dialogue session; records logged with it carry session_id.
func WithSession(ctx context.Context, id int64) context.Context {
	return withValue(ctx, keySession, id)
}

// SessionIDFrom returns the dialogue session of ctx.
func SessionIDFrom(ctx context.Context) int64 { return valueOf[int64](ctx, keySession) }
