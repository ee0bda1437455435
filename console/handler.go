// Package console renders structured log records as one colored status line
// per record for interactive operators.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Options configures a Handler.
type Options struct {
	Level   slog.Leveler
	NoColor bool
}

// Handler is a slog.Handler printing "<symbol> message key=value ..." lines.
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   Options
	attrs  []slog.Attr
	groups []string

	info, warn, fail, faint *color.Color
}

func NewHandler(w io.Writer, opts *Options) *Handler {
	h := &Handler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}

	h.info = color.New(color.FgCyan)
	h.warn = color.New(color.FgYellow)
	h.fail = color.New(color.FgRed, color.Bold)
	h.faint = color.New(color.Faint)
	if h.opts.NoColor {
		for _, c := range []*color.Color{h.info, h.warn, h.fail, h.faint} {
			c.DisableColor()
		}
	}
	return h
}

// NewLogger returns a logger writing through a Handler at the named level.
func NewLogger(w io.Writer, level string, noColor bool) *slog.Logger {
	return slog.New(NewHandler(w, &Options{Level: ParseLevel(level), NoColor: noColor}))
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	switch {
	case r.Level >= slog.LevelError:
		b.WriteString("❌ ")
		b.WriteString(h.fail.Sprint(r.Message))
	case r.Level >= slog.LevelWarn:
		b.WriteString("⚠️  ")
		b.WriteString(h.warn.Sprint(r.Message))
	case r.Level >= slog.LevelInfo:
		b.WriteString("🔹 ")
		b.WriteString(h.info.Sprint(r.Message))
	default:
		b.WriteString("🔍 ")
		b.WriteString(h.faint.Sprint(r.Message))
	}

	var attrs []string
	for _, a := range h.attrs {
		attrs = h.appendAttr(attrs, "", a)
	}
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		attrs = h.appendAttr(attrs, prefix, a)
		return true
	})
	if len(attrs) > 0 {
		b.WriteString(" ")
		b.WriteString(h.faint.Sprint(strings.Join(attrs, " ")))
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) appendAttr(out []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return out
	}

	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			out = h.appendAttr(out, key, ga)
		}
		return out
	}
	return append(out, key+"="+formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindDuration:
		s = v.Duration().String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	default:
		s = fmt.Sprint(v.Any())
	}
	if strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = append([]slog.Attr(nil), h.attrs...)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(append([]string(nil), h.groups...), name)
	return &h2
}
