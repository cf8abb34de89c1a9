// Package retrieval answers product-scoped similarity queries over stored chunks.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/models"
)

const (
	DefaultMatchCount     = 5
	DefaultMatchThreshold = 0.3
)

type searchOptions struct {
	matchCount int
	threshold  float64
}

type SearchOption func(*searchOptions)

func WithMatchCount(n int) SearchOption {
	return func(o *searchOptions) {
		if n > 0 {
			o.matchCount = n
		}
	}
}

func WithThreshold(t float64) SearchOption {
	return func(o *searchOptions) { o.threshold = t }
}

// Searcher embeds queries and looks them up within one product's chunks.
type Searcher struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
}

func NewSearcher(db core.DbClient, embedder core.EmbeddingProvider) *Searcher {
	return &Searcher{db: db, embedder: embedder}
}

// Search returns at most matchCount chunks of productID whose similarity to
// query exceeds the threshold, best first. No match is an empty result.
func (s *Searcher) Search(ctx context.Context, productID, query string, opts ...SearchOption) ([]models.SearchResult, error) {
	o := searchOptions{matchCount: DefaultMatchCount, threshold: DefaultMatchThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, &core.SearchError{ProductID: productID, Err: err}
	}

	results, err := s.db.MatchChunks(ctx, productID, vec, o.matchCount, o.threshold)
	if err != nil {
		return nil, &core.SearchError{ProductID: productID, Err: err}
	}

	// the store already orders and limits; enforce the contract regardless of backend
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Similarity > o.threshold {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > o.matchCount {
		out = out[:o.matchCount]
	}

	logger.Debugw("vector search", "product_id", productID, "results", len(out), "match_count", o.matchCount, "threshold", o.threshold)
	return out, nil
}

// FormatSearchResults renders results as a context block for the language model.
func FormatSearchResults(results []models.SearchResult, productName string) string {
	if len(results) == 0 {
		return fmt.Sprintf("No relevant information found for %s.", productName)
	}

	lines := []string{fmt.Sprintf("=== Knowledge from %s ===", productName)}
	for _, r := range results {
		lines = append(lines,
			fmt.Sprintf("\n[Source: %s] (similarity: %.2f)", sourceLabel(r.Metadata), r.Similarity),
			r.Content,
		)
	}
	return strings.Join(lines, "\n")
}

func sourceLabel(m models.ChunkMetadata) string {
	var parts []string
	if m.FileName != "" {
		parts = append(parts, m.FileName)
	}
	if m.SectionTitle != "" {
		parts = append(parts, m.SectionTitle)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " › ")
}
