package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/orchestrator"
	"github.com/markdave123-py/salesbrain/internal/models"
)

type ProductService struct {
	db      core.DbClient
	storage core.ObjectClient
}

func NewProductService(db core.DbClient, storage core.ObjectClient) *ProductService {
	return &ProductService{db: db, storage: storage}
}

type CreateProductInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"systemPrompt"`
	CreatedBy    string `json:"-"`
}

// Create adds a product to the catalog. A name whose search tool would clash
// with an existing product's tool is rejected.
func (s *ProductService) Create(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}

	existing, err := s.db.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if err := orchestrator.CheckToolName(existing, name); err != nil {
		return nil, err
	}

	p := &models.Product{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		SystemPrompt: strings.TrimSpace(in.SystemPrompt),
		CreatedBy:    in.CreatedBy,
	}
	if err := s.db.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	logger.Infow("product created", "product_id", p.ID, "name", p.Name, "tool", orchestrator.ToolName(p.Name))
	return p, nil
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.db.ListProducts(ctx)
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.db.GetProductByID(ctx, id)
}

// Delete removes the product with its documents and chunks, then the stored
// files. A file that cannot be removed is logged and left behind.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	docs, err := s.db.ListDocumentsByProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("list documents of %s: %w", id, err)
	}
	if err := s.db.DeleteProduct(ctx, id); err != nil {
		return err
	}
	for _, d := range docs {
		if err := s.storage.DeleteFile(ctx, d.StoragePath); err != nil {
			logger.Warnw("orphaned document file", "product_id", id, "document_id", d.ID, "key", d.StoragePath, "error", err)
		}
	}
	logger.Infow("product deleted", "product_id", id, "documents", len(docs))
	return nil
}
