package embedding

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
)

// DefaultBatchSize matches the largest request the Voyage API accepts.
const DefaultBatchSize = 128

// Client splits inputs into service-sized batches and returns vectors in input order.
type Client struct {
	backend   core.EmbeddingBackend
	batchSize int
}

var _ core.EmbeddingProvider = (*Client)(nil)

func NewClient(backend core.EmbeddingBackend) *Client {
	size := DefaultBatchSize
	if max := backend.MaxBatchSize(); max > 0 && max < size {
		size = max
	}
	return &Client{backend: backend, batchSize: size}
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, []string{text}, core.EmbedQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments issues batches sequentially to stay under provider rate limits.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return c.embed(ctx, texts, core.EmbedDocument)
}

func (c *Client) embed(ctx context.Context, texts []string, mode core.EmbedMode) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		res, err := c.backend.EmbedBatch(ctx, batch, mode)
		if err != nil {
			return nil, err
		}
		ordered, err := orderByIndex(res, len(batch))
		if err != nil {
			return nil, err
		}
		out = append(out, ordered...)
		logger.Debugw("embedded batch", "mode", mode, "offset", start, "size", len(batch))
	}
	return out, nil
}

// orderByIndex sorts a batch response back into request order and checks it is complete.
func orderByIndex(res []core.IndexedEmbedding, want int) ([][]float32, error) {
	if len(res) != want {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(res), want)
	}
	sorted := make([]core.IndexedEmbedding, len(res))
	copy(sorted, res)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	out := make([][]float32, want)
	for i, e := range sorted {
		if e.Index != i {
			return nil, fmt.Errorf("embedding service returned unexpected index %d", e.Index)
		}
		out[i] = e.Vector
	}
	return out, nil
}
