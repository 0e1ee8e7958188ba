// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/olegiv/translatables/internal/model"
	"github.com/olegiv/translatables/internal/translatable"
)

// sortableColumns are the primary-table columns accepted by ?sort=.
var sortableColumns = []string{"id", "sku", "price", "created_at", "updated_at"}

// ProductRequest is the body of create and update requests. A translated
// attribute is either a string for the request locale or an object keyed
// by locale.
type ProductRequest struct {
	SKU         *string `json:"sku,omitempty"`
	Price       *int64  `json:"price,omitempty"`
	Title       any     `json:"title,omitempty"`
	Description any     `json:"description,omitempty"`
}

func (req ProductRequest) translated() map[string]any {
	return map[string]any{
		model.AttrTitle:       req.Title,
		model.AttrDescription: req.Description,
	}
}

// ListProducts handles GET /api/v1/products
//
// Filters: ?title=X&title_op=like&title_locale=nl (same for description).
// Sorting: ?sort=title&sort_locale=nl&dir=desc, or a product column.
// ?pivot=1 loads every locale in the list query itself.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, ok := h.productQuery(w, r, true)
	if !ok {
		return
	}

	page, perPage := parsePagination(r, 20, 100)
	products, total, err := h.products.Page(ctx, q, perPage, (page-1)*perPage,
		isTrue(r.URL.Query().Get("pivot")))
	if err != nil {
		h.writeStoreError(w, r, err, "list products")
		return
	}

	data := make([]map[string]any, 0, len(products))
	for _, p := range products {
		m, err := p.ToMap(ctx)
		if err != nil {
			h.writeStoreError(w, r, err, "list products")
			return
		}
		data = append(data, m)
	}

	WriteSuccess(w, data, &Meta{
		Total:   int64(total),
		Page:    page,
		PerPage: perPage,
		Pages:   (total + perPage - 1) / perPage,
	})
}

// productQuery builds a query from the translated-attribute filters and,
// when sorted is set, the sort parameters.
func (h *Handler) productQuery(w http.ResponseWriter, r *http.Request, sorted bool) (*translatable.Query, bool) {
	qs := r.URL.Query()
	q := h.products.Query(r.Context())

	if isTrue(qs.Get("with_trashed")) {
		q.WithTrashed()
	}
	for _, attr := range model.ProductLocalizable {
		if !qs.Has(attr) {
			continue
		}
		op := qs.Get(attr + "_op")
		if op == "" {
			op = "="
		}
		q.WhereTranslationLocale(attr, op, qs.Get(attr), qs.Get(attr+"_locale"))
	}

	if sorted {
		dir := qs.Get("dir")
		switch sort := qs.Get("sort"); {
		case sort == "":
			q.OrderBy("id", "asc")
		case h.products.Model().IsTranslatableAttribute(sort):
			q.OrderByTranslation(sort, qs.Get("sort_locale"), dir)
		case slices.Contains(sortableColumns, sort):
			q.OrderBy(sort, dir)
		default:
			WriteBadRequest(w, "Invalid sort column", map[string]string{"sort": sort})
			return nil, false
		}
	}

	if err := q.Err(); err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return nil, false
	}
	return q, true
}

// GetProduct handles GET /api/v1/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireProduct(w, r)
	if !ok {
		return
	}
	h.writeProduct(w, r, http.StatusOK, p)
}

// CreateProduct handles POST /api/v1/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if errs := h.validate(ctx, req, 0); len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}

	p := h.products.New()
	if err := h.apply(ctx, p, req, true); err != nil {
		h.writeStoreError(w, r, err, "create product")
		return
	}
	if err := h.products.Save(ctx, p); err != nil {
		h.writeStoreError(w, r, err, "create product")
		return
	}

	h.logger.InfoContext(ctx, "product created", "id", p.ID, "sku", p.SKU)
	h.writeProduct(w, r, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/v1/products/{id}
// Locale objects are merged into the stored translations; an empty string
// removes that locale's value.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, ok := h.requireProduct(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if errs := h.validate(ctx, req, p.ID); len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}

	if err := h.apply(ctx, p, req, false); err != nil {
		h.writeStoreError(w, r, err, "update product")
		return
	}
	if err := h.products.Save(ctx, p); err != nil {
		h.writeStoreError(w, r, err, "update product")
		return
	}
	h.writeProduct(w, r, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/v1/products/{id}
// ?force=1 removes the product and its translations even when products
// are soft-deleted.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, ok := h.requireProduct(w, r)
	if !ok {
		return
	}

	var err error
	if isTrue(r.URL.Query().Get("force")) {
		err = h.products.ForceDelete(ctx, p)
	} else {
		err = h.products.Delete(ctx, p)
	}
	if err != nil {
		h.writeStoreError(w, r, err, "delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteProducts handles DELETE /api/v1/products
// It deletes every product matching the translated-attribute filters and
// refuses to run without one.
func (h *Handler) DeleteProducts(w http.ResponseWriter, r *http.Request) {
	hasFilter := false
	for _, attr := range model.ProductLocalizable {
		hasFilter = hasFilter || r.URL.Query().Has(attr)
	}
	if !hasFilter {
		WriteBadRequest(w, "A translated attribute filter is required", nil)
		return
	}

	q, ok := h.productQuery(w, r, false)
	if !ok {
		return
	}

	var (
		n   int64
		err error
	)
	if isTrue(r.URL.Query().Get("force")) {
		n, err = q.ForceDelete(r.Context())
	} else {
		n, err = q.Delete(r.Context())
	}
	if err != nil {
		h.writeStoreError(w, r, err, "delete products")
		return
	}

	WriteSuccess(w, map[string]int64{"deleted": n}, nil)
}

// ReplicateProduct handles POST /api/v1/products/{id}/replicate
func (h *Handler) ReplicateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, ok := h.requireProduct(w, r)
	if !ok {
		return
	}

	clone, err := h.products.Replicate(ctx, p)
	if err == nil {
		err = h.products.Save(ctx, clone)
	}
	if err != nil {
		h.writeStoreError(w, r, err, "replicate product")
		return
	}
	h.writeProduct(w, r, http.StatusCreated, clone)
}

// requireProduct parses the ID from the URL and loads the product.
// Returns false if a response was already written.
func (h *Handler) requireProduct(w http.ResponseWriter, r *http.Request) (*model.Product, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid product ID", nil)
		return nil, false
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, err, "retrieve product")
		return nil, false
	}
	return p, true
}

func (h *Handler) writeProduct(w http.ResponseWriter, r *http.Request, status int, p *model.Product) {
	m, err := p.ToMap(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err, "retrieve product")
		return
	}
	WriteJSON(w, status, Response{Data: m})
}

// validate checks a request for the product id (0 when creating).
func (h *Handler) validate(ctx context.Context, req ProductRequest, id int64) map[string]string {
	errs := make(map[string]string)
	creating := id == 0

	if req.Price != nil && *req.Price < 0 {
		errs["price"] = "Price must not be negative"
	}
	if req.SKU != nil {
		if *req.SKU == "" {
			errs["sku"] = "SKU must not be empty"
		} else if taken, err := h.skuTaken(ctx, *req.SKU, id); err != nil {
			errs["sku"] = "Failed to check SKU"
		} else if taken {
			errs["sku"] = "SKU already exists"
		}
	}

	for attr, value := range req.translated() {
		required := creating && attr == model.AttrTitle
		switch v := value.(type) {
		case nil:
			if required {
				errs[attr] = "Title is required"
			}
		case string:
			if required && v == "" {
				errs[attr] = "Title is required"
			}
		case map[string]any:
			rule := translatable.Rule{Locales: h.locales, Soft: true, Required: required}
			if !rule.Passes(v) || !stringValues(v) {
				errs[attr] = rule.Message()
			}
		default:
			errs[attr] = translatable.RuleMessage
		}
	}
	return errs
}

func (h *Handler) skuTaken(ctx context.Context, sku string, id int64) (bool, error) {
	keys, err := h.products.Query(ctx).WithTrashed().Where("sku", "=", sku).Keys(ctx)
	if err != nil {
		return false, err
	}
	return len(keys) > 0 && keys[0] != id, nil
}

func stringValues(m map[string]any) bool {
	for _, v := range m {
		if _, ok := v.(string); !ok && v != nil {
			return false
		}
	}
	return true
}

// apply copies a validated request onto p. When replacing, locale objects
// overwrite every locale; otherwise they only touch the locales they name.
func (h *Handler) apply(ctx context.Context, p *model.Product, req ProductRequest, replace bool) error {
	if req.SKU != nil {
		p.SKU = *req.SKU
	}
	if req.Price != nil {
		p.Price = *req.Price
	}

	for attr, value := range req.translated() {
		switch v := value.(type) {
		case nil:
		case map[string]any:
			if replace {
				if err := p.Translations.Assign(ctx, attr, v, ""); err != nil {
					return err
				}
				continue
			}
			for _, locale := range slices.Sorted(maps.Keys(v)) {
				if err := p.Translations.SetTranslation(ctx, locale, attr, v[locale]); err != nil {
					return err
				}
			}
		default:
			if err := p.Translations.Assign(ctx, attr, v, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func isTrue(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
