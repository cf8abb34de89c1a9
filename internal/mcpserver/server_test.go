package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/salesbrain/internal/core/coretest"
	"github.com/markdave123-py/salesbrain/internal/core/retrieval"
	"github.com/markdave123-py/salesbrain/internal/models"
)

type stubSearcher struct {
	results []models.SearchResult
	err     error
	product string
	opts    int
}

func (s *stubSearcher) Search(_ context.Context, productID, _ string, opts ...retrieval.SearchOption) ([]models.SearchResult, error) {
	s.product = productID
	s.opts = len(opts)
	return s.results, s.err
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(context.Background(), nil, &stubSearcher{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestServer_RefreshTracksCatalog(t *testing.T) {
	ctx := context.Background()
	db := coretest.NewMemoryDB()
	require.NoError(t, db.CreateProduct(ctx, &models.Product{ID: "p1", Name: "Acme"}))

	s, err := NewServer(ctx, db, &stubSearcher{})
	require.NoError(t, err)
	assert.Equal(t, []string{"search_acme"}, s.ToolNames())

	require.NoError(t, db.CreateProduct(ctx, &models.Product{ID: "p2", Name: "Globex"}))
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, []string{"search_acme", "search_globex"}, s.ToolNames())

	require.NoError(t, db.DeleteProduct(ctx, "p1"))
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, []string{"search_globex"}, s.ToolNames())
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()
	db := coretest.NewMemoryDB()
	require.NoError(t, db.CreateProduct(ctx, &models.Product{ID: "p1", Name: "Acme"}))

	t.Run("returns formatted context", func(t *testing.T) {
		searcher := &stubSearcher{results: []models.SearchResult{{
			Content:    "Full refunds within 30 days.",
			Similarity: 0.82,
			Metadata:   models.ChunkMetadata{FileName: "policy.md", SectionTitle: "Refunds"},
		}}}
		s, err := NewServer(ctx, db, searcher)
		require.NoError(t, err)

		res, out, err := s.handleSearch(ctx, "search_acme", SearchInput{Query: "refunds", MatchCount: 3})
		require.NoError(t, err)
		assert.Equal(t, "p1", searcher.product)
		assert.Equal(t, 1, searcher.opts)
		assert.Equal(t, 1, out.Count)
		assert.Contains(t, out.Context, "[Source: policy.md › Refunds] (similarity: 0.82)")

		require.Len(t, res.Content, 1)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, out.Context, text.Text)
	})

	t.Run("no results", func(t *testing.T) {
		s, err := NewServer(ctx, db, &stubSearcher{})
		require.NoError(t, err)
		_, out, err := s.handleSearch(ctx, "search_acme", SearchInput{Query: "x"})
		require.NoError(t, err)
		assert.Equal(t, "No relevant information found for Acme.", out.Context)
	})

	t.Run("errors", func(t *testing.T) {
		s, err := NewServer(ctx, db, &stubSearcher{err: errors.New("db down")})
		require.NoError(t, err)

		_, _, err = s.handleSearch(ctx, "search_acme", SearchInput{Query: "x"})
		assert.ErrorContains(t, err, "db down")

		_, _, err = s.handleSearch(ctx, "search_acme", SearchInput{})
		assert.Error(t, err)

		_, _, err = s.handleSearch(ctx, "search_nope", SearchInput{Query: "x"})
		assert.ErrorContains(t, err, "unknown tool")
	})
}
