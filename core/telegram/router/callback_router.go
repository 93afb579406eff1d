package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/middleware"
)

// CallbackOptions overrides the registry's handler for unknown button keys.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute acknowledges every button press and dispatches it by its unique key.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		start := time.Now()
		key := callbacks.Key(c)
		label := "callback." + handlerLabel(key)
		_ = tghelpers.Ack(c, "")

		if h, ok := reg.GetCallback(key); ok {
			return observe(c, label, start, h, slog.String("cb_key", key))
		}
		notFound := opts.NotFound
		if notFound == nil {
			notFound = reg.CallbackNotFound()
		}
		extras := []slog.Attr{slog.String("cb_key", key), slog.String("reason", "not_found")}
		if notFound == nil {
			skipped(c, label, start, extras...)
			return nil
		}
		return observe(c, label, start, notFound, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrap(handler)}
}

// wrap applies the per-route chain: recover outermost, then the request log context, then message counters.
func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(middleware.MessageMetricsMiddleware(h)))
}
