// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable

import "github.com/olegiv/translatables/internal/i18n"

// RuleMessage is reported when a Rule fails.
const RuleMessage = "Invalid translatable object"

// Rule validates a locale -> value mapping submitted for a translatable
// attribute. Keys must be accepted locales; unless Soft, every accepted
// locale must be present. Required additionally demands a non-empty value.
type Rule struct {
	Locales  *i18n.Registry
	Soft     bool
	Required bool
}

// Passes reports whether value satisfies the rule. Values that are not a
// mapping never pass.
func (r Rule) Passes(value any) bool {
	var values map[string]any
	switch v := value.(type) {
	case map[string]any:
		values = v
	case Row:
		values = v
	case Set:
		values = v.values
	case map[string]string:
		values = make(map[string]any, len(v))
		for k, s := range v {
			values[k] = s
		}
	default:
		return false
	}

	for locale := range values {
		if !r.Locales.IsSupported(locale) {
			return false
		}
	}
	if !r.Soft && len(values) != r.Locales.Len() {
		return false
	}
	if r.Required {
		for _, v := range values {
			if stringify(v) != "" {
				return true
			}
		}
		return false
	}
	return true
}

// Message returns the failure message.
func (r Rule) Message() string {
	return RuleMessage
}
