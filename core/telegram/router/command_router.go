package router

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/commands"
	"github.com/m3rciful/leadbot/core/telegram/middleware"
)

// CommandRouteOptions configures the admin gate of admin-only commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered command under its name and each alias.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	gate := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	var routes []tg.Route
	for _, name := range slices.Sorted(maps.Keys(cmds)) {
		h := commandHandler(name, cmds[name])
		if cmds[name].AdminOnly {
			h = gate(h)
		}
		h = wrap(h)
		for _, endpoint := range append([]string{name}, cmds[name].Aliases...) {
			routes = append(routes, tg.Route{Endpoint: endpoint, Handler: h})
		}
	}

	logger.Info(context.Background(), "tg.wire", "routes",
		slog.String("status", "ok"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func commandHandler(name string, cmd commands.Command) tele.HandlerFunc {
	label := handlerLabel(name)
	return func(c tele.Context) error {
		return observe(c, label, time.Now(), cmd.Handler)
	}
}
