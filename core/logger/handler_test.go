package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// emit logs one event through a fresh handler and returns the written line.
func emit(t *testing.T, format logFormat, ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: aw, format: format}))
	LogEvent(ctx, log.With("component", "wizard"), level, event, attrs...)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func assertOrdered(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		if idx < 0 || idx < pos {
			t.Fatalf("%s missing or out of order in %s", p, line)
		}
		pos = idx
	}
}

func TestKVLineStartsWithFixedKeys(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(context.Background(), "rid-123"), 42, 7, 9)
	line := emit(t, formatKV, ctx, slog.LevelInfo, "session.open",
		slog.String("cause", "unit"),
		slog.String("status", "ok"),
	)

	tokens := strings.Fields(line)
	want := []string{"ts=", "level=INFO", "component=wizard", "event=session.open", "status=ok", "rid=rid-123"}
	if len(tokens) < len(want) {
		t.Fatalf("short line: %s", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
	assertOrdered(t, line, "update_id=42", "user_id=7", "chat_id=9", "cause=unit")
}

func TestJSONLineOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(context.Background(), "rid-json"), 11, 22, 33)
	line := emit(t, formatJSON, ctx, slog.LevelError, "submission.store",
		slog.String("err", "boom"),
		slog.String("status", "fail"),
	)
	if !strings.HasPrefix(line, `{"ts":`) {
		t.Fatalf("expected JSON, got %s", line)
	}
	assertOrdered(t, line, `"level":"ERROR"`, `"component":"wizard"`, `"event":"submission.store"`,
		`"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`)
}

func TestRIDIsCompacted(t *testing.T) {
	raw := "123:456:789"
	ctx := WithRID(context.Background(), raw)

	kv := emit(t, formatKV, ctx, slog.LevelInfo, "rid.test")
	if !strings.Contains(kv, "rid="+CompactRID(raw)) || strings.Contains(kv, "rid_full=") {
		t.Fatalf("unexpected kv rid fields: %s", kv)
	}

	js := emit(t, formatJSON, ctx, slog.LevelInfo, "rid.test")
	for _, want := range []string{`"rid":"` + CompactRID(raw) + `"`, `"rid_full":"` + raw + `"`, `"ts_unix_nano"`} {
		if !strings.Contains(js, want) {
			t.Fatalf("missing %s in %s", want, js)
		}
	}
}

func TestValuesAreCanonical(t *testing.T) {
	line := emit(t, formatKV, context.Background(), slog.LevelDebug, "transition",
		slog.String("to", "get_name"),
		slog.String("from", "choose_role"),
		slog.Int64("session_id", 42),
		slog.Duration("duration", 1500*time.Microsecond),
		slog.String("status", "UNCONFIGURED"),
		slog.String("outcome", "exploded"),
		slog.String("role", "  "),
		slog.String("payload", "a b"),
	)
	assertOrdered(t, line, "level=DEBUG", "status=unconfigured", "session_id=42", "from=choose_role",
		"to=get_name", "duration_ms=2", `payload="a b"`)
	for _, absent := range []string{"outcome=", "role="} {
		if strings.Contains(line, absent) {
			t.Fatalf("%s should be dropped from %s", absent, line)
		}
	}
}

func TestGroupsFlattenToDottedKeys(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 0)
	log := slog.New(newStructuredHandler(handlerConfig{writer: aw, format: formatKV}))
	log.WithGroup("sink").With("name", "sheets").Info("append", slog.Group("retry", slog.Int("attempt", 2)))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"event=append", "component=app", "sink.name=sheets", "sink.retry.attempt=2"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %s", want, line)
		}
	}
}

func TestDurationKey(t *testing.T) {
	cases := map[string]string{
		"duration":        "duration_ms",
		"append_duration": "append_duration_ms",
		"next_ms":         "next_ms",
		"took":            "took_ms",
	}
	for in, want := range cases {
		if got := durationKey(in); got != want {
			t.Fatalf("durationKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLevelName(t *testing.T) {
	cases := map[slog.Level]string{
		slog.LevelDebug - 4: "DEBUG",
		slog.LevelInfo:      "INFO",
		slog.LevelInfo + 2:  "INFO",
		slog.LevelWarn:      "WARN",
		slog.LevelError + 4: "ERROR",
	}
	for l, want := range cases {
		if got := levelName(l); got != want {
			t.Fatalf("levelName(%v) = %s, want %s", l, got, want)
		}
	}
}
