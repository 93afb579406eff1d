package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/leadbot/core/telegram"
)

// Fallbacks answers updates that no registered command or callback claims.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownMedia() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Dialogue is a conversation that also owns the fallbacks.
type Dialogue interface {
	Conversation
	Fallbacks
}

// Routes assembles the command, callback and message routes of a dialogue bot.
func Routes(reg *tg.Registry, d Dialogue, cmd CommandRouteOptions) []tg.Route {
	routes := CommandRoutes(reg, cmd)
	routes = append(routes, CallbackRoute(reg, CallbackOptions{NotFound: d.UnknownCallback()}))
	return append(routes, TextRoutes(d, reg, TextOptions{
		UnknownText:  d.UnknownText(),
		UnknownMedia: d.UnknownMedia(),
	})...)
}
