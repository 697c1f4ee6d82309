package logging

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

type consoleOptions struct {
	level     slog.Leveler
	addSource bool
	color     bool
}

type field struct {
	key   string
	value string
}

// consoleHandler writes one human-readable line per record:
//
//	2025-06-01T09:00:00Z INFO session: clip loaded clip=clip_a frames=50
//
// Request-scoped fields are printed before the others.
type consoleHandler struct {
	opts      consoleOptions
	mu        *sync.Mutex
	w         io.Writer
	component string
	prefix    string
	fields    []field
}

func newConsoleHandler(w io.Writer, opts consoleOptions) *consoleHandler {
	return &consoleHandler{opts: opts, mu: &sync.Mutex{}, w: w}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		next.collect(&next.fields, &next.component, next.prefix, a)
	}
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = joinKey(next.prefix, name)
	return next
}

func (h *consoleHandler) clone() *consoleHandler {
	next := *h
	next.fields = slices.Clone(h.fields)
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := slices.Clone(h.fields)
	component := h.component
	record.Attrs(func(a slog.Attr) bool {
		h.collect(&fields, &component, h.prefix, a)
		return true
	})
	slices.SortStableFunc(fields, func(a, b field) int {
		return cmp.Compare(fieldRank(a.key), fieldRank(b.key))
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(ts.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(h.levelLabel(record.Level))
	buf.WriteByte(' ')
	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}
	if h.opts.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range fields {
		buf.WriteByte(' ')
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(f.value)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// collect flattens a into dst. The first component attribute wins and is
// kept out of the field list.
func (h *consoleHandler) collect(dst *[]field, component *string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix = joinKey(prefix, a.Key)
		}
		for _, member := range a.Value.Group() {
			h.collect(dst, component, prefix, member)
		}
		return
	}
	key := joinKey(prefix, a.Key)
	if key == FieldComponent {
		if *component == "" {
			*component = a.Value.String()
		}
		return
	}
	*dst = append(*dst, field{key: key, value: quoteIfNeeded(formatValue(a.Value))})
}

func (h *consoleHandler) levelLabel(level slog.Level) string {
	var label, color string
	switch {
	case level >= slog.LevelError:
		label, color = "ERROR", "\x1b[31m"
	case level >= slog.LevelWarn:
		label, color = "WARN", "\x1b[33m"
	case level >= slog.LevelInfo:
		label, color = "INFO", "\x1b[32m"
	default:
		label, color = "DEBUG", "\x1b[90m"
	}
	if h.opts.color {
		return color + label + "\x1b[0m"
	}
	return label
}

func fieldRank(key string) int {
	for i, ex := range contextExtractors {
		if ex.key == key {
			return i
		}
	}
	return len(contextExtractors)
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
