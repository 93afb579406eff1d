// Package helpers carries the per-update request context and the outbound send helpers.
package helpers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
)

// Keys under which the request data is kept in the tele.Context store.
const (
	RIDKey     = "rid"
	contextKey = "request_ctx"
)

// NewRequestContext derives the logging context of the update in c: its rid,
// update, user and chat ids and the "tg" component logger.
func NewRequestContext(c tele.Context) context.Context {
	upd := c.Update()
	chatID, userID := ChatID(c), UserID(c)
	rid, _ := c.Get(RIDKey).(string)
	if rid == "" {
		rid = logger.BuildRID(upd.ID, chatID, userID)
		c.Set(RIDKey, rid)
	}
	ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), upd.ID, userID, chatID)
	return logger.WithLogger(ctx, logger.Component("tg"))
}

// StoreContext keeps ctx in c for the rest of the handler chain. Nil values are ignored.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(contextKey, ctx)
	}
}

// ContextFrom returns the context stored in c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the stored request context, creating and storing it on first use.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	ctx := NewRequestContext(c)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler records the handler serving c in its request context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}

func ChatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}

func UserID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}
