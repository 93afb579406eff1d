// Package format prepares text for Telegram's HTML parse mode.
package format

import "strings"

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML escapes the characters Telegram treats as markup in HTML mode.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Bold wraps escaped s in <b> tags.
func Bold(s string) string {
	return "<b>" + EscapeHTML(s) + "</b>"
}
