// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for request locale handling
// and request deadlines.
package middleware

import (
	"net/http"
	"strings"

	"github.com/olegiv/translatables/internal/i18n"
)

// Query parameters read by Locale.
const (
	LocaleParam       = "lang"   // request locale
	OutputLocaleParam = "locale" // flatten translated values to one locale
	outputLocaleAlias = "language"
)

// Locale creates middleware that stores the request locale and the optional
// output locale in the request context.
//
// The request locale comes from, in order:
//  1. Query parameter ?lang=XX when it names an accepted locale
//  2. The Accept-Language header, matched against the accepted locales
//  3. The default locale
//
// The output locale comes from ?locale=XX or ?language=XX and is only set
// when it names an accepted locale. It makes translated attributes
// serialize as single values instead of per-locale objects.
func Locale(locales *i18n.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			query := r.URL.Query()

			locale := locales.Default()
			if code := strings.TrimSpace(query.Get(LocaleParam)); code != "" && locales.IsSupported(code) {
				locale = code
			} else if accept := r.Header.Get("Accept-Language"); accept != "" {
				locale = locales.Match(accept)
			}
			ctx = i18n.WithLocale(ctx, locale)

			output := strings.TrimSpace(query.Get(OutputLocaleParam))
			if output == "" {
				output = strings.TrimSpace(query.Get(outputLocaleAlias))
			}
			if output != "" && locales.IsSupported(output) {
				ctx = i18n.WithOutputLocale(ctx, output)
			}

			w.Header().Set("Content-Language", locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
