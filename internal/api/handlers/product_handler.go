package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/markdave123-py/salesbrain/internal/api/middlewares"
	"github.com/markdave123-py/salesbrain/internal/services"
)

type ProductHandler struct {
	products  *services.ProductService
	documents *services.DocumentService
}

func NewProductHandler(products *services.ProductService, documents *services.DocumentService) *ProductHandler {
	return &ProductHandler{products: products, documents: documents}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": nonNil(products)})
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in services.CreateProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid body")
		return
	}
	in.CreatedBy = middleware.UserID(r.Context())

	p, err := h.products.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.ListByProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
