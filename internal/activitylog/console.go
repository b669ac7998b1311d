package activitylog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	debugColor   = color.New(color.Faint)
	infoColor    = color.New(color.FgWhite)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// ConsoleHandler prints one colored line per record: white for info,
// yellow for warnings, red for errors.
type ConsoleHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Leveler
	attrs attrText
}

func NewConsoleHandler(out io.Writer, level slog.Leveler) *ConsoleHandler {
	if level == nil {
		level = slog.LevelInfo
	}

	return &ConsoleHandler{
		mu:    &sync.Mutex{},
		out:   out,
		level: level,
	}
}

func (that *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= that.level.Level()
}

func (that *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	line := ts.Format(time.TimeOnly) + " " + r.Level.String() + " " + that.attrs.render(r)

	that.mu.Lock()
	defer that.mu.Unlock()

	_, err := colorOf(r.Level).Fprintln(that.out, line)

	return err
}

func (that *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConsoleHandler{mu: that.mu, out: that.out, level: that.level, attrs: that.attrs.withAttrs(attrs)}
}

func (that *ConsoleHandler) WithGroup(name string) slog.Handler {
	return &ConsoleHandler{mu: that.mu, out: that.out, level: that.level, attrs: that.attrs.withGroup(name)}
}

func colorOf(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return errorColor
	case level >= slog.LevelWarn:
		return warningColor
	case level >= slog.LevelInfo:
		return infoColor
	default:
		return debugColor
	}
}
