package activitylog

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

// attrText renders slog attributes as " key=value" pairs for plain-text sinks.
type attrText struct {
	prefix string
	group  string
}

func (that attrText) withAttrs(attrs []slog.Attr) attrText {
	var b strings.Builder
	b.WriteString(that.prefix)

	for _, attr := range attrs {
		appendAttr(&b, that.group, attr)
	}

	return attrText{prefix: b.String(), group: that.group}
}

func (that attrText) withGroup(name string) attrText {
	if name == "" {
		return that
	}

	return attrText{prefix: that.prefix, group: that.group + name + "."}
}

func (that attrText) render(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(that.prefix)

	r.Attrs(func(attr slog.Attr) bool {
		appendAttr(&b, that.group, attr)
		return true
	})

	return b.String()
}

func appendAttr(b *strings.Builder, group string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		nested := group
		if attr.Key != "" {
			nested += attr.Key + "."
		}

		for _, child := range attr.Value.Group() {
			appendAttr(b, nested, child)
		}

		return
	}

	value := attr.Value.String()
	if strings.ContainsAny(value, " =\"") || value == "" {
		value = strconv.Quote(value)
	}

	b.WriteByte(' ')
	b.WriteString(group)
	b.WriteString(attr.Key)
	b.WriteByte('=')
	b.WriteString(value)
}

func levelOf(level slog.Level) entity.LogLevel {
	switch {
	case level >= slog.LevelError:
		return entity.LogError
	case level >= slog.LevelWarn:
		return entity.LogWarning
	default:
		return entity.LogInfo
	}
}
