// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log/slog"
)

// demoProducts maps a SKU to a title per locale.
var demoProducts = []struct {
	sku    string
	price  int64
	titles map[string]string
}{
	{"DEMO-CHAIR", 4900, map[string]string{"en": "Chair", "nl": "Stoel", "de": "Stuhl", "fr": "Chaise"}},
	{"DEMO-TABLE", 12900, map[string]string{"en": "Table", "nl": "Tafel", "de": "Tisch", "fr": "Table"}},
	{"DEMO-LAMP", 2500, map[string]string{"en": "Lamp", "nl": "Lamp", "de": "Lampe", "fr": "Lampe"}},
}

// Seed creates demo products when the products table is empty. Titles are
// written for every accepted locale the demo data covers.
func Seed(ctx context.Context, s *ProductStore) error {
	keys, err := s.Query(ctx).WithTrashed().Limit(1).Keys(ctx)
	if err != nil {
		return fmt.Errorf("checking for products: %w", err)
	}
	if len(keys) > 0 {
		slog.Info("products already exist, skipping seed")
		return nil
	}

	locales := s.Model().Locales()
	for _, demo := range demoProducts {
		p := s.New()
		p.SKU = demo.sku
		p.Price = demo.price
		for locale, title := range demo.titles {
			if !locales.IsSupported(locale) {
				continue
			}
			if err := p.Translations.SetTranslation(ctx, locale, "title", title); err != nil {
				return err
			}
		}
		if err := s.Save(ctx, p); err != nil {
			return fmt.Errorf("seeding %s: %w", demo.sku, err)
		}
		slog.Info("created demo product", "id", p.ID, "sku", p.SKU)
	}
	return nil
}
