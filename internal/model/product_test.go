// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/olegiv/translatables/internal/i18n"
	"github.com/olegiv/translatables/internal/model"
	"github.com/olegiv/translatables/internal/testutil"
	"github.com/olegiv/translatables/internal/translatable"
)

func newProduct(t *testing.T) (*model.Product, context.Context) {
	t.Helper()

	m, err := translatable.NewModel(translatable.ModelConfig{
		Table:       "products",
		Localizable: model.ProductLocalizable,
		Locales:     testutil.TestLocales(t),
		DB:          testutil.TestDB(t),
		Dialect:     translatable.SQLite{},
		Logger:      testutil.TestLoggerSilent(),
	})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return model.NewProduct(m), context.Background()
}

func TestProduct_TitleAccessors(t *testing.T) {
	p, ctx := newProduct(t)

	if err := p.SetTitle(ctx, map[string]any{"en": "Chair", "nl": "Stoel"}, ""); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	if err := p.SetDescription(ctx, "Eiken", "nl"); err != nil {
		t.Fatalf("SetDescription: %v", err)
	}

	title, err := p.Title(ctx)
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if title.Get("en") != "Chair" || title.Get("nl") != "Stoel" {
		t.Errorf("title = %v", title.Translations())
	}

	desc, err := p.Description(i18n.WithLocale(ctx, "nl"))
	if err != nil {
		t.Fatalf("Description: %v", err)
	}
	if desc.String() != "Eiken" {
		t.Errorf("nl description = %q, want %q", desc.String(), "Eiken")
	}
	if desc.Get("en") != "" {
		t.Errorf("en description = %q, want empty", desc.Get("en"))
	}
}

func TestProduct_ToMap(t *testing.T) {
	p, ctx := newProduct(t)
	p.SKU = "CHAIR"
	p.Price = 4900
	p.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := p.SetTitle(ctx, map[string]any{"en": "Chair", "nl": "Stoel"}, ""); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}

	m, err := p.ToMap(ctx)
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if m["sku"] != "CHAIR" {
		t.Errorf("sku = %v", m["sku"])
	}
	if _, ok := m["deleted_at"]; ok {
		t.Error("deleted_at should be omitted for live products")
	}

	raw, err := json.Marshal(m["title"])
	if err != nil {
		t.Fatalf("marshal title: %v", err)
	}
	if string(raw) != `{"en":"Chair","nl":"Stoel"}` {
		t.Errorf("title JSON = %s", raw)
	}

	flat, err := p.ToMap(i18n.WithOutputLocale(ctx, "nl"))
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if flat["title"] != "Stoel" {
		t.Errorf("flattened title = %v, want Stoel", flat["title"])
	}
}

func TestProduct_TranslatedMap(t *testing.T) {
	p, ctx := newProduct(t)
	if err := p.SetTitle(ctx, "Stoel", "nl"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}

	m, err := p.TranslatedMap(i18n.WithLocale(ctx, "nl"), "")
	if err != nil {
		t.Fatalf("TranslatedMap: %v", err)
	}
	if m["title"] != "Stoel" || m["description"] != "" {
		t.Errorf("nl map = %v", m)
	}

	m, err = p.TranslatedMap(ctx, "en")
	if err != nil {
		t.Fatalf("TranslatedMap: %v", err)
	}
	if m["title"] != "" {
		t.Errorf("en title = %v, want empty", m["title"])
	}
}

func TestProduct_HostHooks(t *testing.T) {
	p, _ := newProduct(t)
	p.ID = 42

	if p.TranslationKey() != 42 {
		t.Errorf("TranslationKey() = %d, want 42", p.TranslationKey())
	}
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	p.Touched(at)
	if !p.UpdatedAt.Equal(at) {
		t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, at)
	}
	if p.IsDeleted() {
		t.Error("new product should not be deleted")
	}
}
