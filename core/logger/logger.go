// Package logger configures the process-wide slog logger: one line per event in
// key=value or JSON form with a fixed key order, written through an async writer,
// with correlation fields taken from the context.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/leadbot/core/buildinfo"
	coreconfig "github.com/m3rciful/leadbot/core/config"
)

const (
	defaultSampleNum = 1
	defaultSampleDen = 50
	writerBufferSize = 64 << 10
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	out   *asyncWriter
	files []io.Closer

	levelVar   slog.LevelVar
	sampler    = newRatioSampler(defaultSampleNum, defaultSampleDen)
	forceDebug bool

	// L is the root logger; nil until InitLogger runs.
	L *slog.Logger
)

// settings is the logging section of the config after defaults were applied.
type settings struct {
	format    logFormat
	order     []string
	level     slog.Level
	sampleNum int
	sampleDen int
	stacks    bool
	profile   string
	dir       string
	file      string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		order:     slices.Clone(defaultKeyOrder),
		level:     slog.LevelInfo,
		sampleNum: defaultSampleNum,
		sampleDen: defaultSampleDen,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	s.profile = strings.ToLower(strings.TrimSpace(lc.Profile))
	if s.profile == "" {
		s.profile = "prod"
	}
	s.format = parseFormat(lc.Format, s.profile)
	if order := parseKeyOrder(lc.KeysOrder); len(order) > 0 {
		s.order = order
	}
	s.level = parseLevel(lc.Level)
	s.sampleNum, s.sampleDen = parseDebugSample(lc.DebugSample)
	s.stacks = isTruthy(lc.Stacks)
	s.dir = strings.TrimSpace(lc.Dir)
	s.file = strings.TrimSpace(lc.File)
	return s
}

func parseFormat(raw, profile string) logFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if profile == "debug" || profile == "dev" {
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// parseDebugSample returns the debug sampling ratio; 0, 0 turns sampling off.
func parseDebugSample(raw string) (int, int) {
	if strings.TrimSpace(raw) == "" {
		return defaultSampleNum, defaultSampleDen
	}
	num, den := parseRatioSpec(raw)
	switch {
	case num == 0 && den == 0:
		return 0, 0
	case num <= 0 || den <= 0:
		return defaultSampleNum, defaultSampleDen
	}
	return num, den
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// openOutputs returns stdout plus the optional log file. A file that cannot be
// opened is reported on the standard logger and skipped.
func openOutputs(s settings) ([]io.Writer, []io.Closer) {
	writers := []io.Writer{os.Stdout}
	if s.dir == "" || s.file == "" {
		return writers, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", s.dir, err)
		return writers, nil
	}
	path := filepath.Join(s.dir, s.file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return writers, nil
	}
	return append(writers, f), []io.Closer{f}
}

// InitLogger configures L and the slog default. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := resolve(cfg)
		levelVar.Set(s.level)
		sampler.Set(s.sampleNum, s.sampleDen)
		forceDebug = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		writers, closers := openOutputs(s)
		files = closers
		out = newAsyncWriter(writers, writerBufferSize)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   out,
			format:   s.format,
			keyOrder: s.order,
			stacks:   s.stacks,
		}))
		slog.SetDefault(L)
		logStartup(s)
	})
	return nil
}

func logStartup(s settings) {
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	)
}

// Shutdown flushes queued lines and closes the log file. Later calls are no-ops.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Flush(), out.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Component returns L tagged with the component name, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes attrs with the event attribute first. A nil logg falls back to FromContext.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Event logs one event for component. Before InitLogger only a logger stored in ctx is used.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := Component(component)
	if logg == nil {
		if logg = FromContext(ctx); logg != nil && strings.TrimSpace(component) != "" {
			logg = logg.With("component", strings.TrimSpace(component))
		}
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged.
// TRACE=1 or LOG_TRACE=1 in the environment lets every event through.
func ShouldSampleDebug() bool {
	return forceDebug || sampler.Allow()
}
