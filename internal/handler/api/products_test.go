// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/translatables/internal/cache"
	"github.com/olegiv/translatables/internal/middleware"
	"github.com/olegiv/translatables/internal/store"
	"github.com/olegiv/translatables/internal/testutil"
	"github.com/olegiv/translatables/internal/translatable"
)

type testServer struct {
	router   chi.Router
	products *store.ProductStore
}

func newTestServer(t *testing.T, softDeletes bool) *testServer {
	t.Helper()

	db := testutil.TestDB(t)
	locales := testutil.TestLocales(t)
	logger := testutil.TestLoggerSilent()

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	columns := translatable.NewCachedColumns(
		translatable.SchemaColumns{DB: db, Dialect: translatable.SQLite{}}, mem, time.Minute)

	m, err := store.NewProductModel(store.ProductModelConfig{
		DB:          db,
		Driver:      testutil.TestDriver,
		Locales:     locales,
		Columns:     columns,
		SoftDeletes: softDeletes,
		Logger:      logger,
	})
	require.NoError(t, err)
	products := store.NewProductStore(db, m, logger)

	r := chi.NewRouter()
	r.Use(middleware.Locale(locales))
	r.Route("/api/v1", NewHandler(products, columns, logger).Routes)
	return &testServer{router: r, products: products}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

type productEnvelope struct {
	Data map[string]any `json:"data"`
}

type listEnvelope struct {
	Data []map[string]any `json:"data"`
	Meta Meta             `json:"meta"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (s *testServer) create(t *testing.T, body map[string]any) int64 {
	t.Helper()

	rr := s.do(t, http.MethodPost, "/api/v1/products", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return int64(decode[productEnvelope](t, rr).Data["id"].(float64))
}

func productURL(id int64) string {
	return "/api/v1/products/" + strconv.FormatInt(id, 10)
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, true)

	rr := s.do(t, http.MethodGet, "/api/v1/status?lang=nl", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[struct {
		Data StatusResponse `json:"data"`
	}](t, rr)
	require.Equal(t, "nl", resp.Data.Locale)
	require.Equal(t, []string{"en", "nl"}, resp.Data.Locales)
	require.Equal(t, "en", resp.Data.DefaultLocale)
	require.NotNil(t, resp.Data.ColumnCache)
}

func TestStatus_ReportsColumnCacheHits(t *testing.T) {
	s := newTestServer(t, false)

	for _, title := range []string{"A", "B"} {
		rr := s.do(t, http.MethodPost, "/api/v1/products", map[string]any{
			"title": map[string]string{"en": title},
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := s.do(t, http.MethodGet, "/api/v1/status", nil)
	resp := decode[struct {
		Data StatusResponse `json:"data"`
	}](t, rr)
	require.NotNil(t, resp.Data.ColumnCache)
	require.Equal(t, int64(1), resp.Data.ColumnCache.Misses)
	require.Positive(t, resp.Data.ColumnCache.Hits)
}

func TestCreateAndGetProduct(t *testing.T) {
	s := newTestServer(t, true)

	id := s.create(t, map[string]any{
		"sku":   "CHAIR-1",
		"price": 4900,
		"title": map[string]any{"en": "Chair", "nl": "Stoel"},
	})

	rr := s.do(t, http.MethodGet, productURL(id), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	data := decode[productEnvelope](t, rr).Data
	require.Equal(t, "CHAIR-1", data["sku"])
	require.Equal(t, map[string]any{"en": "Chair", "nl": "Stoel"}, data["title"])
	require.Equal(t, map[string]any{"en": "", "nl": ""}, data["description"])

	// An output locale flattens translated attributes.
	rr = s.do(t, http.MethodGet, productURL(id)+"?locale=nl", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Stoel", decode[productEnvelope](t, rr).Data["title"])
}

func TestCreateProduct_StringUsesRequestLocale(t *testing.T) {
	s := newTestServer(t, true)

	rr := s.do(t, http.MethodPost, "/api/v1/products?lang=nl", map[string]any{"title": "Tafel"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(t, map[string]any{"en": "", "nl": "Tafel"}, decode[productEnvelope](t, rr).Data["title"])
}

func TestCreateProduct_Validation(t *testing.T) {
	s := newTestServer(t, true)
	s.create(t, map[string]any{"sku": "TAKEN", "title": "Lamp"})

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing title", map[string]any{"sku": "A"}, "title"},
		{"empty title", map[string]any{"title": ""}, "title"},
		{"unknown locale", map[string]any{"title": map[string]any{"en": "Chair", "fr": "Chaise"}}, "title"},
		{"all blank locales", map[string]any{"title": map[string]any{"en": "", "nl": ""}}, "title"},
		{"non-string value", map[string]any{"title": map[string]any{"en": 5}}, "title"},
		{"wrong shape", map[string]any{"title": "Chair", "description": []string{"x"}}, "description"},
		{"negative price", map[string]any{"title": "Chair", "price": -1}, "price"},
		{"duplicate sku", map[string]any{"title": "Chair", "sku": "TAKEN"}, "sku"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/v1/products", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			resp := decode[ErrorResponse](t, rr)
			require.Equal(t, "validation_error", resp.Error.Code)
			require.Contains(t, resp.Error.Details, tt.field)
		})
	}

	rr := s.do(t, http.MethodPost, "/api/v1/products", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateProduct_MergesLocales(t *testing.T) {
	s := newTestServer(t, true)
	id := s.create(t, map[string]any{
		"title":       map[string]any{"en": "Chair", "nl": "Stoel"},
		"description": map[string]any{"en": "Oak"},
	})

	rr := s.do(t, http.MethodPut, productURL(id), map[string]any{
		"price": 100,
		"title": map[string]any{"nl": "Zetel"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	data := decode[productEnvelope](t, rr).Data
	require.Equal(t, map[string]any{"en": "Chair", "nl": "Zetel"}, data["title"])
	require.Equal(t, map[string]any{"en": "Oak", "nl": ""}, data["description"])
	require.EqualValues(t, 100, data["price"])

	// Clearing the only value of a locale removes its row.
	rr = s.do(t, http.MethodPut, productURL(id), map[string]any{"title": map[string]any{"nl": ""}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	p, err := s.products.Get(context.Background(), id)
	require.NoError(t, err)
	all, err := p.Translations.Translatables(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Contains(t, all, "en")

	rr = s.do(t, http.MethodPut, productURL(id+100), map[string]any{"price": 1})
	require.Equal(t, http.StatusNotFound, rr.Code)
	rr = s.do(t, http.MethodPut, "/api/v1/products/abc", map[string]any{"price": 1})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

// ids returns the product ids of a list response in order.
func ids(resp listEnvelope) []int64 {
	out := make([]int64, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = int64(d["id"].(float64))
	}
	return out
}

func TestListProducts(t *testing.T) {
	s := newTestServer(t, true)
	chair := s.create(t, map[string]any{"title": map[string]any{"en": "Chair", "nl": "Stoel"}})
	table := s.create(t, map[string]any{"title": map[string]any{"en": "Table", "nl": "Tafel"}})
	lamp := s.create(t, map[string]any{"title": map[string]any{"en": "Lamp"}})

	rr := s.do(t, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[listEnvelope](t, rr)
	require.Equal(t, []int64{chair, table, lamp}, ids(resp))
	require.EqualValues(t, 3, resp.Meta.Total)

	rr = s.do(t, http.MethodGet, "/api/v1/products?title=Tafel&title_locale=nl", nil)
	require.Equal(t, []int64{table}, ids(decode[listEnvelope](t, rr)))

	rr = s.do(t, http.MethodGet, "/api/v1/products?title=Table&title_locale=nl", nil)
	require.Empty(t, decode[listEnvelope](t, rr).Data)

	rr = s.do(t, http.MethodGet, "/api/v1/products?title=%25a%25&title_op=like&title_locale=en&sort=title&sort_locale=en", nil)
	require.Equal(t, []int64{chair, lamp, table}, ids(decode[listEnvelope](t, rr)))

	rr = s.do(t, http.MethodGet, "/api/v1/products?sort=title&sort_locale=nl&dir=desc", nil)
	require.Equal(t, []int64{table, chair, lamp}, ids(decode[listEnvelope](t, rr)))

	rr = s.do(t, http.MethodGet, "/api/v1/products?per_page=2&page=2", nil)
	resp = decode[listEnvelope](t, rr)
	require.Equal(t, []int64{lamp}, ids(resp))
	require.Equal(t, Meta{Total: 3, Page: 2, PerPage: 2, Pages: 2}, resp.Meta)

	rr = s.do(t, http.MethodGet, "/api/v1/products?pivot=1&locale=nl", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[listEnvelope](t, rr)
	require.Equal(t, "Stoel", resp.Data[0]["title"])
	require.Equal(t, "", resp.Data[2]["title"])
}

func TestListProducts_PagesOverDistinctProducts(t *testing.T) {
	s := newTestServer(t, true)
	first := s.create(t, map[string]any{"title": map[string]any{"en": "X", "nl": "X"}})
	second := s.create(t, map[string]any{"title": map[string]any{"en": "X", "nl": "X"}})

	var got []int64
	for page := 1; page <= 3; page++ {
		rr := s.do(t, http.MethodGet, "/api/v1/products?title=X&per_page=1&page="+strconv.Itoa(page), nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		resp := decode[listEnvelope](t, rr)
		require.EqualValues(t, 2, resp.Meta.Total)
		require.Equal(t, 2, resp.Meta.Pages)
		got = append(got, ids(resp)...)
	}
	require.Equal(t, []int64{first, second}, got)

	rr := s.do(t, http.MethodGet, "/api/v1/products?title=X&per_page=1&page=2&pivot=1", nil)
	resp := decode[listEnvelope](t, rr)
	require.Equal(t, []int64{second}, ids(resp))
	require.Equal(t, map[string]any{"en": "X", "nl": "X"}, resp.Data[0]["title"])
}

func TestListProducts_FilterAndSortInDifferentLocales(t *testing.T) {
	s := newTestServer(t, true)
	b := s.create(t, map[string]any{"title": map[string]any{"en": "X", "nl": "B"}})
	a := s.create(t, map[string]any{"title": map[string]any{"en": "X", "nl": "A"}})
	s.create(t, map[string]any{"title": map[string]any{"en": "Y", "nl": "C"}})

	rr := s.do(t, http.MethodGet, "/api/v1/products?title=X&title_locale=en&sort=title&sort_locale=nl", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[listEnvelope](t, rr)
	require.EqualValues(t, 2, resp.Meta.Total)
	require.Equal(t, []int64{a, b}, ids(resp))

	rr = s.do(t, http.MethodGet, "/api/v1/products?title=X&title_locale=en&sort=title&sort_locale=nl&dir=desc", nil)
	require.Equal(t, []int64{b, a}, ids(decode[listEnvelope](t, rr)))

	rr = s.do(t, http.MethodGet, "/api/v1/products?sort=title&sort_locale=fr", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListProducts_ValueThatLooksLikeAnOperator(t *testing.T) {
	s := newTestServer(t, true)
	id := s.create(t, map[string]any{"title": map[string]any{"en": "Spoon", "nl": "like"}})
	s.create(t, map[string]any{"title": map[string]any{"en": "Fork", "nl": "Vork"}})

	rr := s.do(t, http.MethodGet, "/api/v1/products?title=like&title_locale=nl", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, []int64{id}, ids(decode[listEnvelope](t, rr)))
}

func TestListProducts_BadParameters(t *testing.T) {
	s := newTestServer(t, true)

	for _, target := range []string{
		"/api/v1/products?sort=password",
		"/api/v1/products?sort=title&dir=sideways",
		"/api/v1/products?title=x&title_op=regexp",
	} {
		rr := s.do(t, http.MethodGet, target, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestDeleteProduct(t *testing.T) {
	s := newTestServer(t, true)
	id := s.create(t, map[string]any{"title": "Chair"})

	rr := s.do(t, http.MethodDelete, productURL(id), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, http.MethodGet, productURL(id), nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/products?with_trashed=1", nil)
	require.Len(t, decode[listEnvelope](t, rr).Data, 1)
}

func TestDeleteProducts_Bulk(t *testing.T) {
	s := newTestServer(t, false)
	s.create(t, map[string]any{"title": map[string]any{"en": "Chair", "nl": "Stoel"}})
	s.create(t, map[string]any{"title": map[string]any{"en": "Chair"}})
	keep := s.create(t, map[string]any{"title": map[string]any{"en": "Table"}})

	rr := s.do(t, http.MethodDelete, "/api/v1/products", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodDelete, "/api/v1/products?title=Chair&title_locale=en", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Data map[string]int64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.EqualValues(t, 2, resp.Data["deleted"])

	keys, err := s.products.Query(context.Background()).WithTrashed().Keys(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{keep}, keys)
}

func TestReplicateProduct(t *testing.T) {
	s := newTestServer(t, true)
	id := s.create(t, map[string]any{"sku": "ORIG", "price": 10, "title": map[string]any{"en": "Chair", "nl": "Stoel"}})

	rr := s.do(t, http.MethodPost, productURL(id)+"/replicate", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	data := decode[productEnvelope](t, rr).Data
	require.NotEqual(t, float64(id), data["id"])
	require.NotEqual(t, "ORIG", data["sku"])
	require.EqualValues(t, 10, data["price"])
	require.Equal(t, map[string]any{"en": "Chair", "nl": "Stoel"}, data["title"])

	rr = s.do(t, http.MethodPost, productURL(id+100)+"/replicate", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
