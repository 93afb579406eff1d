package logger

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
	stacks   bool
}

// entry is one log line before encoding, keyed by flattened attribute name.
type entry map[string]any

func (e entry) str(key string) string {
	s, _ := e[key].(string)
	return s
}

func (e entry) setDefault(key string, v any) {
	if _, ok := e[key]; !ok {
		e[key] = v
	}
}

func (e entry) prune() {
	for k, v := range e {
		if v == nil || v == "" {
			delete(e, k)
		}
	}
}

// structuredHandler is a slog.Handler that writes one flat line per record.
// Groups become dotted key prefixes.
type structuredHandler struct {
	cfg    handlerConfig
	fixed  entry
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	asJSON := h.cfg.format == formatJSON

	e := make(entry, 16)
	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	e["level"] = levelName(r.Level)
	if asJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}
	maps.Copy(e, h.fixed)
	r.Attrs(func(a slog.Attr) bool {
		addAttr(e, h.prefix, a)
		return true
	})
	addContextFields(ctx, e)

	if h.cfg.stacks && r.Level >= slog.LevelError {
		e.setDefault("stack", callerStack())
	}
	if rid := e.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if asJSON {
				e.setDefault("rid_full", rid)
			}
			e["rid"] = short
		}
	}
	if e.str("event") == "" {
		e["event"] = cmp.Or(r.Message, "unknown")
	}
	if e.str("component") == "" {
		e["component"] = "app"
	}
	canonicalStatus(e)
	e.prune()

	line, err := h.encode(e)
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.fixed = maps.Clone(h.fixed)
	if clone.fixed == nil {
		clone.fixed = make(entry, len(attrs))
	}
	for _, a := range attrs {
		addAttr(clone.fixed, h.prefix, a)
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func addAttr(e entry, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			addAttr(e, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := attrValue(key, v); ok {
		e[k] = val
	}
}

// attrValue converts v to a JSON-friendly value. Durations become whole
// milliseconds under a key that names the unit.
func attrValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return "", nil, false
		case error:
			return key, x.Error(), true
		case time.Duration:
			return durationKey(key), RoundMS(x).Milliseconds(), true
		case fmt.Stringer:
			return key, x.String(), true
		case string:
			return key, strings.TrimSpace(x), true
		default:
			return key, fmt.Sprint(x), true
		}
	}
	return key, v.Any(), true
}

// durationKey renames duration attributes so the unit is part of the key.
func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

func (h *structuredHandler) encode(e entry) ([]byte, error) {
	keys := orderedKeys(e, h.cfg.keyOrder)
	var b bytes.Buffer
	if h.cfg.format != formatJSON {
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(kvValue(e[k]))
		}
		return b.Bytes(), nil
	}

	b.WriteByte('{')
	for i, k := range keys {
		val, err := json.Marshal(e[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// orderedKeys lists the keys named in order first, then the rest alphabetically.
func orderedKeys(e entry, order []string) []string {
	keys := make([]string, 0, len(e))
	placed := make(map[string]bool, len(e))
	for _, k := range order {
		if _, ok := e[k]; ok && !placed[k] {
			keys = append(keys, k)
			placed[k] = true
		}
	}
	rest := make([]string, 0, len(e)-len(keys))
	for k := range e {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case string:
		s = x
	default:
		s = fmt.Sprint(x)
	}
	if strings.ContainsFunc(s, needsQuote) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

func addContextFields(ctx context.Context, e entry) {
	if ctx == nil {
		return
	}
	put := func(key string, val any, present bool) {
		if present {
			e.setDefault(key, val)
		}
	}
	rid := RIDFrom(ctx)
	put("rid", rid, rid != "")
	uid := UserIDFrom(ctx)
	put("user_id", uid, uid != 0)
	upd := UpdateIDFrom(ctx)
	put("update_id", upd, upd != 0)
	cid := ChatIDFrom(ctx)
	put("chat_id", cid, cid != 0)
	sid := SessionIDFrom(ctx)
	put("session_id", sid, sid != 0)
	h := HandlerFrom(ctx)
	put("handler", h, h != "")
}

// callerStack renders the calling goroutine's frames outside this package and
// log/slog as "func file:line" joined by " | ".
func callerStack() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var parts []string
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, "log/slog.") && !strings.Contains(f.Function, "/core/logger.") {
			parts = append(parts, f.Function+" "+filepath.Base(f.File)+":"+strconv.Itoa(f.Line))
		}
		if !more || len(parts) == 8 {
			break
		}
	}
	return strings.Join(parts, " | ")
}
