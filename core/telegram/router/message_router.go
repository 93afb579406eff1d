package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/leadbot/core/telegram"
)

// Conversation receives the messages of chats with an open dialogue.
type Conversation interface {
	InProgress(c tele.Context) bool
	Handle(c tele.Context) error
}

// TextOptions holds the handlers for messages nobody else claims.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// TextRoutes sends text to the open conversation first, then to a command
// typed as text, then to the registry fallback and finally to UnknownText.
// Media and shared contacts go to the conversation or UnknownMedia.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		if conv != nil && conv.InProgress(c) {
			return observe(c, "conversation", start, conv.Handle)
		}
		if reg != nil {
			if name, cmd, ok := reg.LookupCommand(c.Text()); ok && !cmd.AdminOnly {
				return observe(c, handlerLabel(name), start, cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return observe(c, "fallback", start, fb)
			}
		}
		if opts.UnknownText != nil {
			return observe(c, "unknown_text", start, opts.UnknownText)
		}
		skipped(c, "unknown_text", start)
		return nil
	}

	media := func(c tele.Context) error {
		start := time.Now()
		if conv != nil && conv.InProgress(c) {
			return observe(c, "conversation_media", start, conv.Handle)
		}
		if opts.UnknownMedia != nil {
			return observe(c, "unexpected_media", start, opts.UnknownMedia)
		}
		skipped(c, "unexpected_media", start)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnMedia, Handler: wrap(media)},
		{Endpoint: tele.OnContact, Handler: wrap(media)},
	}
}
