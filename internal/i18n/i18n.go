// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n keeps the ordered set of accepted content locales and resolves
// request languages against it.
package i18n

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ErrNoLocales is returned when a registry is created without locales.
var ErrNoLocales = errors.New("i18n: at least one accepted locale is required")

// Registry holds the accepted locales in their configured order.
// The order drives iteration everywhere a value is produced per locale.
type Registry struct {
	locales     []string
	index       map[string]int
	matcher     language.Matcher
	defaultLang string
}

// NewRegistry validates the locale codes and builds a registry.
// An empty defaultLocale selects the first accepted locale.
func NewRegistry(locales []string, defaultLocale string) (*Registry, error) {
	if len(locales) == 0 {
		return nil, ErrNoLocales
	}

	r := &Registry{
		locales: make([]string, 0, len(locales)),
		index:   make(map[string]int, len(locales)),
	}

	tags := make([]language.Tag, 0, len(locales))
	for _, code := range locales {
		code = strings.TrimSpace(code)
		if code == "" {
			return nil, fmt.Errorf("i18n: empty locale code in %v", locales)
		}
		if _, dup := r.index[code]; dup {
			return nil, fmt.Errorf("i18n: duplicate locale %q", code)
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("i18n: invalid locale %q: %w", code, err)
		}
		r.index[code] = len(r.locales)
		r.locales = append(r.locales, code)
		tags = append(tags, tag)
	}
	r.matcher = language.NewMatcher(tags)

	defaultLocale = strings.TrimSpace(defaultLocale)
	if defaultLocale == "" {
		defaultLocale = r.locales[0]
	}
	if !r.IsSupported(defaultLocale) {
		return nil, fmt.Errorf("i18n: default locale %q is not accepted", defaultLocale)
	}
	r.defaultLang = defaultLocale

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(locales []string, defaultLocale string) *Registry {
	r, err := NewRegistry(locales, defaultLocale)
	if err != nil {
		panic(err)
	}
	return r
}

// Locales returns the accepted locales in configured order.
func (r *Registry) Locales() []string {
	out := make([]string, len(r.locales))
	copy(out, r.locales)
	return out
}

// Len returns the number of accepted locales.
func (r *Registry) Len() int {
	return len(r.locales)
}

// Default returns the fallback locale.
func (r *Registry) Default() string {
	return r.defaultLang
}

// IsSupported reports whether code is one of the accepted locales.
func (r *Registry) IsSupported(code string) bool {
	_, ok := r.index[code]
	return ok
}

// Position returns the configured position of code, or -1.
func (r *Registry) Position(code string) int {
	if i, ok := r.index[code]; ok {
		return i
	}
	return -1
}

// Resolve returns code when it is accepted and the default locale otherwise.
func (r *Registry) Resolve(code string) string {
	if r.IsSupported(code) {
		return code
	}
	return r.defaultLang
}

// Current returns the request locale carried by ctx, falling back to the default.
func (r *Registry) Current(ctx context.Context) string {
	if code, ok := LocaleFromContext(ctx); ok {
		return r.Resolve(code)
	}
	return r.defaultLang
}

// Match finds the best accepted locale for an Accept-Language header or a
// single language code. Unparseable input yields the default locale.
func (r *Registry) Match(acceptLang string) string {
	acceptLang = strings.TrimSpace(acceptLang)
	if acceptLang == "" {
		return r.defaultLang
	}
	if r.IsSupported(acceptLang) {
		return acceptLang
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(acceptLang)
		if err != nil {
			return r.defaultLang
		}
		tags = []language.Tag{tag}
	}

	_, idx, confidence := r.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(r.locales) {
		return r.defaultLang
	}
	return r.locales[idx]
}
