package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	coreconfig "github.com/m3rciful/leadbot/core/config"
)

func TestContextFieldsFromSession(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelInfo, writer: aw, format: formatKV}))

	ctx := WithUpdateMeta(WithSession(context.Background(), 77), 5, 9, 77)
	ctx = WithHandler(ctx, "conversation")
	LogEvent(ctx, log, slog.LevelInfo, "submission.store")
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := buf.String()
	for _, want := range []string{"session_id=77", "chat_id=77", "user_id=9", "update_id=5", "handler=conversation"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %s", want, line)
		}
	}
	if got := SessionIDFrom(context.Background()); got != 0 {
		t.Fatalf("SessionIDFrom(empty) = %d", got)
	}
}

func TestStacksOnErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelInfo, writer: aw, format: formatJSON, stacks: true}))

	LogEvent(context.Background(), log, slog.LevelInfo, "fine")
	LogEvent(context.Background(), log, slog.LevelError, "broken")
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if strings.Contains(lines[0], `"stack"`) {
		t.Fatalf("info line carries a stack: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"stack":"`) || !strings.Contains(lines[1], "testing.tRunner") {
		t.Fatalf("error line lacks the caller stack: %s", lines[1])
	}
}

func TestWriterRejectsAfterClose(t *testing.T) {
	aw := newAsyncWriter([]io.Writer{io.Discard}, 0)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := aw.Write([]byte("late\n")); err != errWriterClosed {
		t.Fatalf("Write after Close = %v", err)
	}
	if err := aw.Flush(); err != nil {
		t.Fatalf("Flush after Close = %v", err)
	}
}

func TestRIDHelpers(t *testing.T) {
	rid := BuildRID(36, -100, 71)
	if rid != "36:-100:71" {
		t.Fatalf("BuildRID = %q", rid)
	}
	if got := CompactRID(rid); got != "10.-2s.1z" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID passthrough = %q", got)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := Sanitize("a\x00b\u200bc\n"); got != "abc\n" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("abc", 0); got != "" {
		t.Fatalf("SanitizeLimit zero = %q", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	passed := 0
	for i := 0; i < 10; i++ {
		if s.Allow() {
			passed++
		}
	}
	if passed != 4 {
		t.Fatalf("2/5 over 10 calls passed %d", passed)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow")
	}
}

func TestResolveSettings(t *testing.T) {
	cases := map[string][2]int{
		"":     {defaultSampleNum, defaultSampleDen},
		"1/10": {1, 10},
		"20":   {1, 20},
		"-1/5": {defaultSampleNum, defaultSampleDen},
		"off":  {0, 0},
	}
	for raw, want := range cases {
		num, den := parseDebugSample(raw)
		if num != want[0] || den != want[1] {
			t.Fatalf("parseDebugSample(%q) = %d/%d, want %d/%d", raw, num, den, want[0], want[1])
		}
	}

	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{Profile: "Dev", Level: "warning", KeysOrder: "event, ts", Stacks: "true"}}
	s := resolve(cfg)
	if s.format != formatKV || s.level != slog.LevelWarn || !s.stacks || s.profile != "dev" {
		t.Fatalf("unexpected settings %+v", s)
	}
	if len(s.order) != 2 || s.order[0] != "event" {
		t.Fatalf("unexpected key order %v", s.order)
	}
	if d := resolve(nil); d.format != formatJSON || len(d.order) != len(defaultKeyOrder) {
		t.Fatalf("unexpected defaults %+v", d)
	}
}
