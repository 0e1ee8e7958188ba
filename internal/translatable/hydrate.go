// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable

import (
	"context"
	"errors"
)

// Hydrate loads the translations of many overlays with one query per
// chunk of keys instead of one per entity. It does nothing for fewer than
// two overlays or when the first one is already loaded. Overlays already
// loaded are left alone; hosts without rows get an empty working set.
func Hydrate(ctx context.Context, overlays ...*Overlay) error {
	if len(overlays) <= 1 || overlays[0].Loaded() {
		return nil
	}
	m := overlays[0].model

	keys := make([]int64, 0, len(overlays))
	seen := make(map[int64]struct{}, len(overlays))
	for _, o := range overlays {
		if o.model != m {
			return errors.New("translatable: cannot hydrate overlays of different models")
		}
		key := o.host.TranslationKey()
		if key == 0 || o.Loaded() {
			continue
		}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	all, err := m.fetch(ctx, keys)
	if err != nil {
		return err
	}
	for _, o := range overlays {
		if !o.Loaded() {
			o.Attach(all[o.host.TranslationKey()])
		}
	}
	return nil
}
