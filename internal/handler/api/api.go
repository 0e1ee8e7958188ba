// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API for translated products.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/translatables/internal/cache"
	"github.com/olegiv/translatables/internal/i18n"
	"github.com/olegiv/translatables/internal/store"
	"github.com/olegiv/translatables/internal/translatable"
)

// CacheStats is implemented by caches that report hit and miss counters,
// such as translatable.CachedColumns.
type CacheStats interface {
	Stats() (cache.Stats, bool)
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	products    *store.ProductStore
	columnCache CacheStats
	locales     *i18n.Registry
	logger      *slog.Logger
}

// NewHandler creates a new API handler. columnCache may be nil.
func NewHandler(products *store.ProductStore, columnCache CacheStats, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		products:    products,
		columnCache: columnCache,
		locales:     products.Model().Locales(),
		logger:      logger,
	}
}

// Routes registers the v1 endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/status", h.Status)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Delete("/", h.DeleteProducts)

		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
		r.Post("/{id}/replicate", h.ReplicateProduct)
	})
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total   int64 `json:"total,omitempty"`
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Pages   int   `json:"pages,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// writeStoreError maps store and translation errors to responses.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteNotFound(w, "Product not found")
	case errors.Is(err, translatable.ErrInvalidLocale),
		errors.Is(err, translatable.ErrInvalidAttribute),
		errors.Is(err, translatable.ErrInvalidOperator),
		errors.Is(err, translatable.ErrInvalidDirection),
		errors.Is(err, translatable.ErrInvalidArguments):
		WriteBadRequest(w, err.Error(), nil)
	default:
		h.logger.ErrorContext(r.Context(), "api request failed", "action", action, "error", err)
		WriteInternalError(w, "Failed to "+action)
	}
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status        string   `json:"status"`
	Version       string   `json:"version"`
	Locale        string   `json:"locale"`
	Locales       []string `json:"locales"`
	DefaultLocale string   `json:"default_locale"`

	ColumnCache *cache.Stats `json:"column_cache,omitempty"`
}

// Status returns the API status, the locale configuration and the column
// cache counters.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "ok",
		Version:       "v1",
		Locale:        h.locales.Current(r.Context()),
		Locales:       h.locales.Locales(),
		DefaultLocale: h.locales.Default(),
	}
	if h.columnCache != nil {
		if stats, ok := h.columnCache.Stats(); ok {
			resp.ColumnCache = &stats
		}
	}
	WriteSuccess(w, resp, nil)
}

// parseIDParam reads the {id} URL parameter.
func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// parsePagination reads page and per_page with defaults and an upper bound.
func parsePagination(r *http.Request, defaultPerPage, maxPerPage int) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return page, min(perPage, maxPerPage)
}
