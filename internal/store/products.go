// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/translatables/internal/i18n"
	"github.com/olegiv/translatables/internal/model"
	"github.com/olegiv/translatables/internal/translatable"
)

// ErrNotFound is returned when a product does not exist or is deleted.
var ErrNotFound = errors.New("store: product not found")

var productColumns = []string{"id", "sku", "price", "created_at", "updated_at", "deleted_at"}

// ProductModelConfig configures the translation model for products.
type ProductModelConfig struct {
	DB          *sql.DB
	Driver      string
	Locales     *i18n.Registry
	Columns     translatable.ColumnLister
	SoftDeletes bool
	Logger      *slog.Logger
	Now         func() time.Time
}

// NewProductModel builds the translation model of the products table.
func NewProductModel(cfg ProductModelConfig) (*translatable.Model, error) {
	d, err := translatable.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return translatable.NewModel(translatable.ModelConfig{
		Table:       "products",
		Localizable: model.ProductLocalizable,
		Locales:     cfg.Locales,
		DB:          cfg.DB,
		Dialect:     d,
		Columns:     cfg.Columns,
		SoftDeletes: cfg.SoftDeletes,
		Logger:      cfg.Logger,
		Now:         cfg.Now,
	})
}

// ProductStore persists products and drives their translation lifecycle.
type ProductStore struct {
	db     *sql.DB
	model  *translatable.Model
	now    func() time.Time
	logger *slog.Logger
}

// NewProductStore creates a store over m's database.
func NewProductStore(db *sql.DB, m *translatable.Model, logger *slog.Logger) *ProductStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductStore{db: db, model: m, now: time.Now, logger: logger}
}

// Model returns the products translation model.
func (s *ProductStore) Model() *translatable.Model { return s.model }

// New returns an unsaved product with a generated SKU.
func (s *ProductStore) New() *model.Product {
	p := model.NewProduct(s.model)
	p.SKU = newSKU()
	return p
}

func newSKU() string {
	return "SKU-" + uuid.NewString()[:8]
}

func (s *ProductStore) rebind(q string) string {
	return s.model.Dialect().Rebind(q)
}

// Save inserts or updates p and then commits its translations.
func (s *ProductStore) Save(ctx context.Context, p *model.Product) error {
	now := s.now().UTC()
	if p.SKU == "" {
		p.SKU = newSKU()
	}

	if p.ID == 0 {
		if err := s.insert(ctx, p, now); err != nil {
			return err
		}
	} else {
		res, err := s.db.ExecContext(ctx,
			s.rebind("UPDATE products SET sku = ?, price = ?, updated_at = ? WHERE id = ?"),
			p.SKU, p.Price, now, p.ID)
		if err != nil {
			return fmt.Errorf("updating product %d: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		p.UpdatedAt = now
	}

	if err := p.Translations.AfterSave(ctx); err != nil {
		return fmt.Errorf("saving translations of product %d: %w", p.ID, err)
	}
	return nil
}

func (s *ProductStore) insert(ctx context.Context, p *model.Product, now time.Time) error {
	const q = "INSERT INTO products (sku, price, created_at, updated_at) VALUES (?, ?, ?, ?)"

	if s.model.Dialect().Name() == "postgres" {
		if err := s.db.QueryRowContext(ctx, s.rebind(q+" RETURNING id"),
			p.SKU, p.Price, now, now).Scan(&p.ID); err != nil {
			return fmt.Errorf("inserting product: %w", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx, q, p.SKU, p.Price, now, now)
		if err != nil {
			return fmt.Errorf("inserting product: %w", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading product id: %w", err)
		}
	}

	p.CreatedAt, p.UpdatedAt = now, now
	s.logger.Debug("product created", "id", p.ID, "sku", p.SKU)
	return nil
}

// Get loads one live product. Its translations load on first access.
func (s *ProductStore) Get(ctx context.Context, id int64) (*model.Product, error) {
	products, err := s.scan(ctx, s.Query(ctx).Where("id", "=", id))
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return products[0], nil
}

// Query starts a product query. Soft-deleted rows are excluded unless
// WithTrashed is called on it.
func (s *ProductStore) Query(ctx context.Context) *translatable.Query {
	return s.model.Query(ctx)
}

// List runs q and hydrates the translations of all results in one query.
func (s *ProductStore) List(ctx context.Context, q *translatable.Query) ([]*model.Product, error) {
	products, err := s.scan(ctx, q)
	if err != nil {
		return nil, err
	}

	overlays := make([]*translatable.Overlay, len(products))
	for i, p := range products {
		overlays[i] = p.Translations
	}
	if err := translatable.Hydrate(ctx, overlays...); err != nil {
		return nil, fmt.Errorf("hydrating translations: %w", err)
	}
	return products, nil
}

// ListPivoted runs q with every locale joined into the result row, so no
// further translation query is needed.
func (s *ProductStore) ListPivoted(ctx context.Context, q *translatable.Query) ([]*model.Product, error) {
	q.Select(productColumns...).WithAllLocales()
	query, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pivot := make([]any, len(q.PivotColumns()))
	var products []*model.Product
	for rows.Next() {
		p := model.NewProduct(s.model)
		dest := append(productDest(p), pointers(pivot)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		p.Translations.Attach(q.DecodePivot(pivot))
		products = append(products, p)
	}
	return products, rows.Err()
}

// Page returns the total number of products matched by q and the products
// at [offset, offset+limit) in q's order. It pages over distinct keys, so
// a translation filter matching several locales of one product counts it
// once. pivot loads translations with WithAllLocales instead of Hydrate.
func (s *ProductStore) Page(ctx context.Context, q *translatable.Query, limit, offset int, pivot bool) ([]*model.Product, int, error) {
	keys, err := q.Keys(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := len(keys)

	start := min(max(offset, 0), total)
	end := total
	if limit > 0 {
		end = min(start+limit, total)
	}
	page := keys[start:end]
	if len(page) == 0 {
		return nil, total, nil
	}

	args := make([]any, len(page))
	pos := make(map[int64]int, len(page))
	for i, k := range page {
		args[i] = k
		pos[k] = i
	}
	// The keys already reflect q's filters, including WithTrashed.
	pq := s.Query(ctx).WithTrashed().WhereIn("id", args...)

	var products []*model.Product
	if pivot {
		products, err = s.ListPivoted(ctx, pq)
	} else {
		products, err = s.List(ctx, pq)
	}
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(products, func(a, b *model.Product) int { return pos[a.ID] - pos[b.ID] })
	return products, total, nil
}

func (s *ProductStore) scan(ctx context.Context, q *translatable.Query) ([]*model.Product, error) {
	query, args, err := q.Select(productColumns...).Build()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []*model.Product
	seen := map[int64]struct{}{}
	for rows.Next() {
		p := model.NewProduct(s.model)
		if err := rows.Scan(productDest(p)...); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		// An unrestricted translation join yields one row per locale.
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}
	return products, rows.Err()
}

func productDest(p *model.Product) []any {
	return []any{&p.ID, &p.SKU, &p.Price, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt}
}

func pointers(values []any) []any {
	out := make([]any, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}

// Delete removes p. Soft-deleting models only stamp deleted_at and keep
// the translations; otherwise the translations go first.
func (s *ProductStore) Delete(ctx context.Context, p *model.Product) error {
	if !s.model.SoftDeletes() {
		return s.ForceDelete(ctx, p)
	}
	if err := p.Translations.BeforeDelete(ctx); err != nil {
		return err
	}
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE products SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL"),
		now, now, p.ID)
	if err != nil {
		return fmt.Errorf("soft-deleting product %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	p.DeletedAt = sql.NullTime{Time: now, Valid: true}
	p.UpdatedAt = now
	return nil
}

// ForceDelete removes p and its translations permanently.
func (s *ProductStore) ForceDelete(ctx context.Context, p *model.Product) error {
	if err := p.Translations.DeleteTranslations(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM products WHERE id = ?"), p.ID)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Replicate returns an unsaved copy of p with a fresh SKU and all of p's
// translations pending.
func (s *ProductStore) Replicate(ctx context.Context, p *model.Product) (*model.Product, error) {
	clone := &model.Product{SKU: newSKU(), Price: p.Price}
	overlay, err := p.Translations.Replicate(ctx, clone)
	if err != nil {
		return nil, err
	}
	clone.Translations = overlay
	return clone, nil
}
