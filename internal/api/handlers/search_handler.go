package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/markdave123-py/salesbrain/internal/core/retrieval"
	"github.com/markdave123-py/salesbrain/internal/models"
	"github.com/markdave123-py/salesbrain/internal/services"
)

type SearchHandler struct {
	products *services.ProductService
	searcher *retrieval.Searcher
}

func NewSearchHandler(products *services.ProductService, searcher *retrieval.Searcher) *SearchHandler {
	return &SearchHandler{products: products, searcher: searcher}
}

type searchRequest struct {
	ProductID  string   `json:"productId"`
	Query      string   `json:"query"`
	MatchCount int      `json:"matchCount,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
}

type searchResponse struct {
	Results []models.SearchResult `json:"results"`
	Context string                `json:"context"`
}

// Search runs a vector search inside one product.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if req.ProductID == "" || strings.TrimSpace(req.Query) == "" {
		badRequest(w, "productId and query are required")
		return
	}

	product, err := h.products.Get(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var opts []retrieval.SearchOption
	if req.MatchCount > 0 {
		opts = append(opts, retrieval.WithMatchCount(req.MatchCount))
	}
	if req.Threshold != nil {
		opts = append(opts, retrieval.WithThreshold(*req.Threshold))
	}

	results, err := h.searcher.Search(r.Context(), product.ID, req.Query, opts...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Results: nonNil(results),
		Context: retrieval.FormatSearchResults(results, product.Name),
	})
}
