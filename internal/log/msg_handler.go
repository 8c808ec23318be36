package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// MsgHandler prints the message followed by the attribute values, like fmt.Println.
// Warnings and errors get a level prefix.
type MsgHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
}

func NewMsgHandler(writer io.Writer, level slog.Leveler) *MsgHandler {
	return &MsgHandler{mu: &sync.Mutex{}, writer: writer, level: level}
}

func (h *MsgHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *MsgHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if record.Level >= slog.LevelWarn {
		_, _ = fmt.Fprint(h.writer, record.Level.String(), ": ")
	}
	_, _ = fmt.Fprint(h.writer, record.Message)

	for _, a := range h.attrs {
		_, _ = fmt.Fprint(h.writer, " ", a.Value)
	}
	record.Attrs(func(a slog.Attr) bool {
		_, _ = fmt.Fprint(h.writer, " ", a.Value)
		return true
	})

	_, err := fmt.Fprintln(h.writer)
	return err
}

func (h *MsgHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(c.attrs[:len(c.attrs):len(c.attrs)], attrs...)
	return &c
}

func (h *MsgHandler) WithGroup(_ string) slog.Handler {
	return h
}
