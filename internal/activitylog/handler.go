package activitylog

import (
	"context"
	"log/slog"

	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

// Handler copies every record at Info or above into the activity log and
// then passes it on to the wrapped handler.
type Handler struct {
	next  slog.Handler
	log   *Log
	attrs attrText
}

func NewHandler(next slog.Handler, log *Log) *Handler {
	return &Handler{
		next: next,
		log:  log,
	}
}

func (that *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo || that.next.Enabled(ctx, level)
}

func (that *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		entry := entity.LogEntry{
			Time:  r.Time,
			Level: levelOf(r.Level),
			Text:  that.attrs.render(r),
		}
		if entry.Time.IsZero() {
			entry.Time = that.log.now()
		}

		that.log.add(entry)
	}

	if !that.next.Enabled(ctx, r.Level) {
		return nil
	}

	return that.next.Handle(ctx, r)
}

func (that *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		next:  that.next.WithAttrs(attrs),
		log:   that.log,
		attrs: that.attrs.withAttrs(attrs),
	}
}

func (that *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		next:  that.next.WithGroup(name),
		log:   that.log,
		attrs: that.attrs.withGroup(name),
	}
}
