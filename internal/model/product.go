// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the entities stored by the application.
package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/translatables/internal/translatable"
)

// Localizable product attributes.
const (
	AttrTitle       = "title"
	AttrDescription = "description"
)

// ProductLocalizable lists the attributes stored in products_translations.
var ProductLocalizable = []string{AttrTitle, AttrDescription}

// Product is a catalog item whose title and description are translated.
type Product struct {
	ID        int64        `json:"id"`
	SKU       string       `json:"sku"`
	Price     int64        `json:"price"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	DeletedAt sql.NullTime `json:"-"`

	Translations *translatable.Overlay `json:"-"`
}

// NewProduct returns an unsaved product bound to the translation model m.
func NewProduct(m *translatable.Model) *Product {
	p := &Product{}
	p.Translations = translatable.New(m, p)
	return p
}

// TranslationKey implements translatable.Host.
func (p *Product) TranslationKey() int64 { return p.ID }

// Touched implements translatable.Toucher.
func (p *Product) Touched(at time.Time) { p.UpdatedAt = at }

// IsDeleted reports whether the product is soft-deleted.
func (p *Product) IsDeleted() bool { return p.DeletedAt.Valid }

// Title returns the title in every accepted locale.
func (p *Product) Title(ctx context.Context) (translatable.Set, error) {
	return p.Translations.Get(ctx, AttrTitle)
}

// SetTitle assigns a title. See translatable.Overlay.Assign for the
// accepted value shapes.
func (p *Product) SetTitle(ctx context.Context, value any, locale string) error {
	return p.Translations.Assign(ctx, AttrTitle, value, locale)
}

// Description returns the description in every accepted locale.
func (p *Product) Description(ctx context.Context) (translatable.Set, error) {
	return p.Translations.Get(ctx, AttrDescription)
}

// SetDescription assigns a description.
func (p *Product) SetDescription(ctx context.Context, value any, locale string) error {
	return p.Translations.Assign(ctx, AttrDescription, value, locale)
}

func (p *Product) baseMap() map[string]any {
	out := map[string]any{
		"id":         p.ID,
		"sku":        p.SKU,
		"price":      p.Price,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}
	if p.DeletedAt.Valid {
		out["deleted_at"] = p.DeletedAt.Time
	}
	return out
}

// ToMap returns the product's fields with translated attributes as full
// sets, or flattened when an output locale applies.
func (p *Product) ToMap(ctx context.Context) (map[string]any, error) {
	attrs, err := p.Translations.AttributesMap(ctx)
	if err != nil {
		return nil, err
	}
	out := p.baseMap()
	for k, v := range attrs {
		out[k] = v
	}
	return out, nil
}

// TranslatedMap returns the product's fields with the translated
// attributes of a single locale. An empty locale uses the request locale.
func (p *Product) TranslatedMap(ctx context.Context, locale string) (map[string]any, error) {
	row, err := p.Translations.Translatable(ctx, locale)
	if err != nil {
		return nil, err
	}
	out := p.baseMap()
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}
