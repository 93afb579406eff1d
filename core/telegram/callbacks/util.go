// Package callbacks decodes inline button payloads.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Telebot prefixes data built with ReplyMarkup.Data by a form feed: "\f<unique>|<payload>".
const uniquePrefix = "\f"

// Parse returns the unique key and payload of cb. Callbacks already routed by
// telebot carry the key in Unique; generic OnCallback updates still hold the raw data.
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, uniquePrefix)
	key, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// Key returns the unique key of the current callback.
func Key(c tele.Context) string {
	k, _ := Parse(c.Callback())
	return k
}

// Payload returns the data after the key of the current callback.
func Payload(c tele.Context) string {
	_, p := Parse(c.Callback())
	return p
}
