package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
)

// ErrHandlerPanic wraps the value a handler panicked with.
var ErrHandlerPanic = errors.New("telegram: handler panic")

// RecoverMiddleware converts a panic in next into an ErrHandlerPanic error.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
				slog.String("err", err.Error()),
				slog.String("stack", string(debug.Stack())),
			)
		}()
		return next(c)
	}
}
