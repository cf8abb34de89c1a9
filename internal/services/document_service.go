package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/ingestion_engine"
	"github.com/markdave123-py/salesbrain/internal/models"
)

// IngestQueue schedules background ingestion.
type IngestQueue interface {
	Enqueue(documentID string) error
	EnqueueResume(documentID string) error
}

type DocumentService struct {
	db      core.DbClient
	storage core.ObjectClient
	queue   IngestQueue
	now     func() time.Time
}

// NewDocumentService wires the document lifecycle. queue may be nil, in which
// case uploads stay pending until ingested by other means.
func NewDocumentService(db core.DbClient, storage core.ObjectClient, queue IngestQueue) *DocumentService {
	return &DocumentService{db: db, storage: storage, queue: queue, now: time.Now}
}

// Upload stores the file under the product, records a pending document and
// schedules its ingestion.
func (s *DocumentService) Upload(ctx context.Context, productID, filename, contentType string, data io.Reader) (*models.Document, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if !ingestion_engine.Supported(name) {
		return nil, &core.UnsupportedFileTypeError{Ext: strings.ToLower(filepath.Ext(name))}
	}
	if _, err := s.db.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			contentType = byExt
		} else {
			contentType = "application/octet-stream"
		}
	}

	key := s.objectKey(productID, name)
	if err := s.storage.UploadFile(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	doc := &models.Document{
		ID:          uuid.NewString(),
		ProductID:   productID,
		FileName:    name,
		StoragePath: key,
		MimeType:    contentType,
		Status:      models.StatusPending,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		if derr := s.storage.DeleteFile(ctx, key); derr != nil {
			logger.Warnw("orphaned upload", "key", key, "error", derr)
		}
		return nil, fmt.Errorf("record document: %w", err)
	}
	logger.Infow("document uploaded", "document_id", doc.ID, "product_id", productID, "key", key)

	if s.queue != nil {
		if err := s.queue.Enqueue(doc.ID); err != nil {
			// the row stays pending and can be resumed later
			logger.Warnw("could not schedule ingestion", "document_id", doc.ID, "error", err)
		}
	}
	return doc, nil
}

// objectKey lays files out as <productId>/<unix-ms>-<filename>.
func (s *DocumentService) objectKey(productID, filename string) string {
	return fmt.Sprintf("%s/%d-%s", productID, s.now().UnixMilli(), strings.ReplaceAll(filename, " ", "_"))
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.db.GetDocumentByID(ctx, id)
}

func (s *DocumentService) ListByProduct(ctx context.Context, productID string) ([]models.Document, error) {
	if _, err := s.db.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	docs, err := s.db.ListDocumentsByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// Delete removes the stored file and the document row; chunks cascade.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteFile(ctx, doc.StoragePath); err != nil && !errors.Is(err, core.ErrObjectNotFound) {
		return fmt.Errorf("delete %s: %w", doc.StoragePath, err)
	}
	if err := s.db.DeleteDocument(ctx, id); err != nil {
		return err
	}
	logger.Infow("document deleted", "document_id", id, "product_id", doc.ProductID)
	return nil
}

// Resume schedules the document's ingestion to continue from its last completed step.
func (s *DocumentService) Resume(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, errors.New("background ingestion is not configured")
	}
	if err := s.queue.EnqueueResume(id); err != nil {
		return nil, err
	}
	return doc, nil
}
