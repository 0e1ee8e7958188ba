// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable

import "errors"

// Sentinel errors. Callers match them with errors.Is; the returned errors
// wrap them together with the offending value.
var (
	ErrInvalidLocale    = errors.New("translatable: locale is not allowed")
	ErrInvalidAttribute = errors.New("translatable: attribute is not localizable")
	ErrInvalidOperator  = errors.New("translatable: invalid operator")
	ErrInvalidDirection = errors.New("translatable: order direction must be asc or desc")
	ErrInvalidArguments = errors.New("translatable: invalid arguments")
	ErrUnsavedHost      = errors.New("translatable: host has no key yet")
)
