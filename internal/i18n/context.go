// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package i18n

import "context"

type contextKey string

const (
	localeKey       contextKey = "locale"
	outputLocaleKey contextKey = "output_locale"
)

// WithLocale returns a context carrying the request locale.
func WithLocale(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, localeKey, code)
}

// LocaleFromContext returns the request locale, if any.
func LocaleFromContext(ctx context.Context) (string, bool) {
	code, ok := ctx.Value(localeKey).(string)
	return code, ok && code != ""
}

// WithOutputLocale returns a context that asks serializers to flatten
// translated values to a single locale.
func WithOutputLocale(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, outputLocaleKey, code)
}

// OutputLocaleFromContext returns the serialization locale, if any.
func OutputLocaleFromContext(ctx context.Context) (string, bool) {
	code, ok := ctx.Value(outputLocaleKey).(string)
	return code, ok && code != ""
}
