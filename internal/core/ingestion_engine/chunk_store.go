package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/models"
)

// StoreBatchSize is the number of chunk rows written per insert.
const StoreBatchSize = 100

// ChunkWriter persists embedded chunks of one document.
type ChunkWriter struct {
	db        core.DbClient
	batchSize int
}

func NewChunkWriter(db core.DbClient) *ChunkWriter {
	return &ChunkWriter{db: db, batchSize: StoreBatchSize}
}

// Replace drops any chunks left by an earlier run of the document, then
// inserts the new ones in production order. It returns the number written.
func (w *ChunkWriter) Replace(ctx context.Context, documentID, productID string, chunks []TextChunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("have %d chunks but %d embeddings", len(chunks), len(vectors))
	}
	if err := w.db.DeleteChunksByDocument(ctx, documentID); err != nil {
		return 0, fmt.Errorf("delete previous chunks: %w", err)
	}

	for start := 0; start < len(chunks); start += w.batchSize {
		end := min(start+w.batchSize, len(chunks))
		rows := make([]models.DocumentChunk, 0, end-start)
		for i := start; i < end; i++ {
			rows = append(rows, models.DocumentChunk{
				ID:         uuid.NewString(),
				DocumentID: documentID,
				ProductID:  productID,
				Content:    chunks[i].Content,
				Embedding:  vectors[i],
				Metadata:   chunks[i].Metadata,
			})
		}
		if err := w.db.InsertDocumentChunks(ctx, rows); err != nil {
			return start, fmt.Errorf("insert chunks %d-%d: %w", start, end-1, err)
		}
		logger.Debugw("stored chunk batch", "document_id", documentID, "from", start, "to", end)
	}
	return len(chunks), nil
}
