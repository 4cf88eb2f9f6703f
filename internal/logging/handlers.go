package logging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// poster is the part of *fluent.Fluent the handler needs.
type poster interface {
	Post(tag string, message interface{}) error
}

// fluentHandler posts each record as a map, tagged with its lowercase level.
type fluentHandler struct {
	client poster
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func newFluentHandler(client poster, level slog.Leveler) *fluentHandler {
	return &fluentHandler{client: client, level: level}
}

func (h *fluentHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *fluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]any, len(h.attrs)+r.NumAttrs()+3)
	for _, a := range h.attrs {
		addAttr(data, "", a)
	}
	prefix := strings.Join(h.groups, ".")
	if prefix != "" {
		prefix += "."
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(data, prefix, a)
		return true
	})
	data["level"] = strings.ToLower(r.Level.String())
	data["message"] = r.Message
	data["timestamp"] = r.Time.UTC().Format(time.RFC3339Nano)
	return h.client.Post(strings.ToLower(r.Level.String()), data)
}

func (h *fluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	prefix := strings.Join(h.groups, ".")
	if prefix != "" {
		prefix += "."
	}
	out.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		out.attrs = append(out.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &out
}

func (h *fluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.groups = append(append([]string(nil), h.groups...), name)
	return &out
}

func addAttr(data map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			addAttr(data, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindTime:
		data[prefix+a.Key] = v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindDuration:
		data[prefix+a.Key] = v.Duration().String()
	default:
		if err, ok := v.Any().(error); ok {
			data[prefix+a.Key] = err.Error()
			return
		}
		data[prefix+a.Key] = v.Any()
	}
}

// multiHandler sends every record to each handler that is enabled for it.
type multiHandler []slog.Handler

func fanout(handlers ...slog.Handler) slog.Handler {
	return multiHandler(handlers)
}

func (m multiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
