// Package commands describes slash commands exposed by the bot.
package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command. AdminOnly commands never appear in the menu
// and are answered only for the configured admin.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	// Aliases are extra names, with or without the leading slash.
	Aliases []string
}

// Visible reports whether the command belongs in the public menu.
func (c Command) Visible() bool { return !c.Hidden && !c.AdminOnly }

// Slash returns name with exactly one leading slash, or "" for a blank name.
func Slash(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return ""
	}
	return "/" + name
}

// Parse extracts the command word from "/name", "/name@bot" or "/name args".
// ok is false when text does not start with a slash command.
func Parse(text string) (name string, ok bool) {
	word, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	word, _, _ = strings.Cut(word, "@")
	if len(word) < 2 || word[0] != '/' {
		return "", false
	}
	return word, true
}
