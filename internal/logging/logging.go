// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging builds the application's slog logger. Records logged with
// a request context carry the request locale.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/olegiv/translatables/internal/i18n"
)

// ParseLevel maps a configured level name to a slog.Level. Unknown names
// fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// New creates a logger writing to w. Development uses the text handler,
// every other environment JSON.
func New(w io.Writer, level slog.Level, development bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if development {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}
	return slog.New(NewLocaleHandler(inner))
}

// LocaleHandler is a slog.Handler that wraps another handler and adds the
// request and output locales found in the record's context.
type LocaleHandler struct {
	inner slog.Handler
}

// NewLocaleHandler creates a new LocaleHandler that wraps the given handler.
func NewLocaleHandler(inner slog.Handler) *LocaleHandler {
	return &LocaleHandler{inner: inner}
}

// Enabled implements slog.Handler.
func (h *LocaleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *LocaleHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if locale, ok := i18n.LocaleFromContext(ctx); ok {
			r.AddAttrs(slog.String("locale", locale))
		}
		if output, ok := i18n.OutputLocaleFromContext(ctx); ok {
			r.AddAttrs(slog.String("output_locale", output))
		}
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *LocaleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LocaleHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *LocaleHandler) WithGroup(name string) slog.Handler {
	return &LocaleHandler{inner: h.inner.WithGroup(name)}
}
