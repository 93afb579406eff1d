package logger

import (
	"log/slog"
	"strings"
)

// outcomes is the closed vocabulary of the outcome key. Status values are only lowercased.
var outcomes = map[string]bool{"ok": true, "fail": true, "cancelled": true, "rate_limited": true}

// levelName folds custom slog levels into the four names the log schema knows.
func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	}
	return "ERROR"
}

func canonicalStatus(e entry) {
	if s := strings.ToLower(e.str("status")); s != "" {
		e["status"] = s
	}
	if o := strings.ToLower(e.str("outcome")); o != "" {
		if outcomes[o] {
			e["outcome"] = o
		} else {
			delete(e, "outcome")
		}
	}
}

// defaultKeyOrder puts identity and correlation first, then dialogue and sink details, errors last.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "session_id",
	"submission_id", "handler", "operation", "cb_key",
	"event_kind", "from", "to", "role", "outcome", "duration_ms",
	"messages", "kb", "sink", "count", "payload", "username",
	"mode", "listen", "public_url", "http_code",
	"spreadsheet_id", "range", "db", "host", "port", "path",
	"err", "err_code", "cause", "retryable", "attempt", "attempts", "next_ms",
	"rate_limited", "swept", "active", "stack",
}
