package core

import (
	"context"
	"io"

	"github.com/markdave123-py/salesbrain/internal/models"
)

// DbClient defines all persistence operations your services will need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByProduct(ctx context.Context, productID string) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg *string) error
	UpdateDocumentTags(ctx context.Context, id string, tags []string) error
	SetLastCompletedStep(ctx context.Context, id string, step string) error
	DeleteDocument(ctx context.Context, id string) error

	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	DeleteChunksByDocument(ctx context.Context, documentID string) error
	CountChunksByDocument(ctx context.Context, documentID string) (int, error)

	// MatchChunks returns at most matchCount chunks of productID whose cosine
	// similarity to queryVec exceeds threshold, best first.
	MatchChunks(ctx context.Context, productID string, queryVec []float32, matchCount int, threshold float64) ([]models.SearchResult, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data io.Reader, contentType string) error
	DeleteFile(ctx context.Context, key string) error
	// GetFile fails with ErrObjectNotFound when key does not exist.
	GetFile(ctx context.Context, key string) ([]byte, error)
}
