// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Set is one translatable attribute across locales. It is a value type;
// every method that changes it returns a new Set.
type Set struct {
	values map[string]any
	locale string // used by String and Get("")
	output string // used by MarshalJSON
}

// Make wraps input in a Set. Maps (and Sets) are taken as locale -> value;
// any other value becomes {locale: input}.
func Make(input any, locale string) Set {
	switch v := input.(type) {
	case Set:
		return Set{values: maps.Clone(v.values), locale: locale, output: v.output}
	case map[string]any:
		return NewSet(v, locale)
	case map[string]string:
		values := make(map[string]any, len(v))
		for k, s := range v {
			values[k] = s
		}
		return Set{values: values, locale: locale}
	case Row:
		return NewSet(v, locale)
	default:
		return Set{values: map[string]any{locale: input}, locale: locale}
	}
}

// NewSet copies values into a Set whose String uses locale.
func NewSet(values map[string]any, locale string) Set {
	if values == nil {
		values = map[string]any{}
	}
	return Set{values: maps.Clone(values), locale: locale}
}

// Locale returns the locale used when Get is called without one.
func (s Set) Locale() string { return s.locale }

// Get returns the value for locale as a string, or "" when it is absent.
// An empty locale selects the set's own locale.
func (s Set) Get(locale string) string {
	if locale == "" {
		locale = s.locale
	}
	return stringify(s.values[locale])
}

// Value returns the raw value stored for locale.
func (s Set) Value(locale string) (any, bool) {
	v, ok := s.values[locale]
	return v, ok
}

func (s Set) String() string {
	return s.Get("")
}

// Translations returns a copy of the locale -> value mapping.
func (s Set) Translations() map[string]any {
	if s.values == nil {
		return map[string]any{}
	}
	return maps.Clone(s.values)
}

// IsEmpty reports whether the concatenation of all values is empty.
func (s Set) IsEmpty() bool {
	for _, v := range s.values {
		if stringify(v) != "" {
			return false
		}
	}
	return true
}

// ToBool returns a copy with every value coerced to bool.
// "", "0" and "false" are false.
func (s Set) ToBool() Set {
	return s.mapValues(func(v any) any {
		str := strings.TrimSpace(stringify(v))
		return str != "" && str != "0" && !strings.EqualFold(str, "false")
	})
}

// ToInt returns a copy with every value coerced to int.
// Non-numeric values become 0 and decimals are truncated.
func (s Set) ToInt() Set {
	return s.mapValues(func(v any) any {
		str := strings.TrimSpace(stringify(v))
		if n, err := strconv.Atoi(str); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return int(f)
		}
		return 0
	})
}

// WithLocale returns a copy whose String uses locale.
func (s Set) WithLocale(locale string) Set {
	s.values = maps.Clone(s.values)
	s.locale = locale
	return s
}

// WithOutputLocale returns a copy that serializes to the single value for
// locale. An empty locale restores full-mapping serialization.
func (s Set) WithOutputLocale(locale string) Set {
	s.values = maps.Clone(s.values)
	s.output = locale
	return s
}

// MarshalJSON encodes the scalar for the output locale when one is set,
// and the full mapping otherwise.
func (s Set) MarshalJSON() ([]byte, error) {
	if s.output != "" {
		return json.Marshal(s.Get(s.output))
	}
	if s.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.values)
}

func (s Set) mapValues(fn func(any) any) Set {
	out := Set{values: make(map[string]any, len(s.values)), locale: s.locale, output: s.output}
	for k, v := range s.values {
		out.values[k] = fn(v)
	}
	return out
}

// stringify renders a stored value the way it is concatenated and compared.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		if t {
			return "1"
		}
		return ""
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
