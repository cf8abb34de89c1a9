package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrProductExists    = errors.New("product already exists")
	ErrAlreadyQueued    = errors.New("document ingestion already queued")
)

// UnsupportedFileTypeError is returned by extraction for unknown extensions.
type UnsupportedFileTypeError struct {
	Ext string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %q", e.Ext)
}

// ChunkingError wraps an unexpected failure inside the chunker.
type ChunkingError struct {
	Err error
}

func (e *ChunkingError) Error() string { return "chunking: " + e.Err.Error() }
func (e *ChunkingError) Unwrap() error { return e.Err }

// EmbeddingServiceError is a non-success answer from the embedding service.
type EmbeddingServiceError struct {
	StatusCode int
	Body       string
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service error %d: %s", e.StatusCode, e.Body)
}

// ConfigurationError names a missing or invalid setting.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Setting, e.Reason)
}

// SearchError is a vector search backend failure for one product.
type SearchError struct {
	ProductID string
	Err       error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("vector search failed for product %s: %v", e.ProductID, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// IngestionFailure is what the coordinator re-surfaces after recording a failed document.
type IngestionFailure struct {
	DocumentID string
	Step       string
	Err        error
}

func (e *IngestionFailure) Error() string {
	return fmt.Sprintf("ingestion of document %s failed at %s: %v", e.DocumentID, e.Step, e.Err)
}

func (e *IngestionFailure) Unwrap() error { return e.Err }

// ToolNameCollisionError means two products derive the same tool name.
type ToolNameCollisionError struct {
	ToolName string
	Products []string
}

func (e *ToolNameCollisionError) Error() string {
	return fmt.Sprintf("tool name %q is shared by products %s", e.ToolName, strings.Join(e.Products, ", "))
}
