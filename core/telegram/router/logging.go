package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/middleware"
	"github.com/m3rciful/leadbot/core/telegram/netutil"
)

// summary is the handler.handled line written once per routed update.
type summary struct {
	handler string
	start   time.Time
	status  string
	extras  []slog.Attr
}

// observe names the handler in the request context, runs h and logs its summary.
func observe(c tele.Context, handler string, start time.Time, h tele.HandlerFunc, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, handler)
	err := h(c)
	summary{handler: handler, start: start, extras: extras}.log(c, err)
	return err
}

// skipped logs a summary for an update that no handler took.
func skipped(c tele.Context, handler string, start time.Time, extras ...slog.Attr) {
	summary{handler: handler, start: start, status: "skip", extras: extras}.log(c, nil)
}

func (s summary) log(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	msgs, kb := middleware.GetCounters(c)

	outcome, level := "ok", slog.LevelInfo
	if err != nil {
		outcome, level = "fail", slog.LevelError
	}
	status := s.status
	if status == "" {
		status = outcome
	}

	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(s.start)),
	}, s.extras...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Event(ctx, "tg", level, "handler.handled", attrs...)
}

// handlerLabel turns a command or callback key into a log-friendly handler name.
func handlerLabel(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode prefers an explicit Code() of the error chain and falls back to the error's type name.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
