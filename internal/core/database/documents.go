package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/models"
)

const documentColumns = `id, product_id, filename, storage_path, mime_type, status, error_message, tags, last_completed_step, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d       models.Document
		errMsg  sql.NullString
		rawTags string
	)
	if err := row.Scan(
		&d.ID, &d.ProductID, &d.FileName, &d.StoragePath, &d.MimeType, &d.Status,
		&errMsg, &rawTags, &d.LastCompletedStep, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		d.ErrorMessage = &errMsg.String
	}
	if rawTags != "" {
		if err := json.Unmarshal([]byte(rawTags), &d.Tags); err != nil {
			logger.Warnw("ignoring malformed document tags", "document_id", d.ID, "error", err)
		}
	}
	return &d, nil
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	if doc.Status == "" {
		doc.Status = models.StatusPending
	}
	tags, err := encodeTags(doc.Tags)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO documents
			(id, product_id, filename, storage_path, mime_type, status, error_message, tags, last_completed_step, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at
	`
	return c.db.QueryRowContext(ctx, q,
		doc.ID, doc.ProductID, doc.FileName, doc.StoragePath, doc.MimeType, doc.Status,
		doc.ErrorMessage, tags, doc.LastCompletedStep,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(c.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrDocumentNotFound
	}
	return d, err
}

func (c *DatabaseClient) ListDocumentsByProduct(ctx context.Context, productID string) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE product_id = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateDocumentStatus overwrites status and error message. A nil errMsg clears any previous error.
func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg *string) error {
	const q = `
		UPDATE documents
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1
	`
	return c.execOne(ctx, q, id, status, errMsg)
}

func (c *DatabaseClient) UpdateDocumentTags(ctx context.Context, id string, tags []string) error {
	encoded, err := encodeTags(tags)
	if err != nil {
		return err
	}
	return c.execOne(ctx, `UPDATE documents SET tags = $2, updated_at = now() WHERE id = $1`, id, encoded)
}

func (c *DatabaseClient) SetLastCompletedStep(ctx context.Context, id string, step string) error {
	return c.execOne(ctx, `UPDATE documents SET last_completed_step = $2, updated_at = now() WHERE id = $1`, id, step)
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	return c.execOne(ctx, `DELETE FROM documents WHERE id = $1`, id)
}

func (c *DatabaseClient) execOne(ctx context.Context, q string, args ...any) error {
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrDocumentNotFound
	}
	return nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
