package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kart-io/logger"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/salesbrain/internal/models"
)

// InsertDocumentChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO chunks
			(id, document_id, product_id, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode metadata of chunk %d: %w", ch.Metadata.ChunkIndex, err)
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.ProductID, ch.Content, pgvector.NewVector(ch.Embedding), string(meta),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

func (c *DatabaseClient) CountChunksByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&n)
	return n, err
}

// MatchChunks finds the product's chunks closest to queryVec by cosine similarity.
func (c *DatabaseClient) MatchChunks(ctx context.Context, productID string, queryVec []float32, matchCount int, threshold float64) ([]models.SearchResult, error) {
	const q = `
		SELECT id, content, metadata, 1 - (embedding <=> $2) AS similarity
		FROM chunks
		WHERE product_id = $1
		  AND 1 - (embedding <=> $2) > $3
		ORDER BY embedding <=> $2
		LIMIT $4
	`
	rows, err := c.db.QueryContext(ctx, q, productID, pgvector.NewVector(queryVec), threshold, matchCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var (
			r    models.SearchResult
			meta string
		)
		if err := rows.Scan(&r.ID, &r.Content, &meta, &r.Similarity); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			logger.Warnw("ignoring malformed chunk metadata", "chunk_id", r.ID, "error", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
