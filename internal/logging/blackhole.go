package logging

import (
	"context"
	"log/slog"
)

// BlackholeHandler implements slog.Handler and discards all log messages.
type BlackholeHandler struct{}

func (h BlackholeHandler) Enabled(context.Context, slog.Level) bool {
	return false
}

func (h BlackholeHandler) Handle(context.Context, slog.Record) error {
	return nil
}

func (h BlackholeHandler) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

func (h BlackholeHandler) WithGroup(string) slog.Handler {
	return h
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(BlackholeHandler{})
}
