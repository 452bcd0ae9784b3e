package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one human-readable line per record:
//
//	2024-05-01T10:00:00Z INFO poller: unit state active=activating
//
// The invocation id is left to the JSON file log.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	prefix    string
	preset    []field
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{mu: new(sync.Mutex), w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := append([]field(nil), h.preset...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.prefix, a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var line strings.Builder
	fmt.Fprintf(&line, "%s %s ", ts.UTC().Format(time.RFC3339), levelName(r.Level))

	component := ""
	rest := fields[:0]
	for _, f := range fields {
		switch {
		case f.key == FieldComponent:
			if component == "" {
				component = f.value.String()
			}
		case f.key == FieldInvocationID, f.key == "":
		default:
			rest = append(rest, f)
		}
	}
	if component != "" {
		line.WriteString(component + ": ")
	}

	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line.WriteString(msg)

	if h.addSource && r.PC != 0 {
		if src := r.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&line, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		line.WriteString(" " + f.key + "=" + renderValue(f.value))
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append([]field(nil), h.preset...)
	for _, a := range attrs {
		next.preset = appendField(next.preset, h.prefix, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, prefix string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		return append(dst, field{key: joinKey(prefix, a.Key), value: v})
	}
	inner := prefix
	if a.Key != "" {
		inner = joinKey(prefix, a.Key)
	}
	for _, member := range v.Group() {
		dst = appendField(dst, inner, member)
	}
	return dst
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindString:
		s = v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return strconv.Quote(err.Error())
		}
		s = fmt.Sprint(v.Any())
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
