package models

import (
	"time"
)

// Product is a knowledge namespace; every chunk belongs to exactly one product.
type Product struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	SystemPrompt string    `db:"system_prompt" json:"system_prompt,omitempty"` // extra guidance for the assistant
	CreatedBy    string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentStatus is the ingestion lifecycle of a document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// IsTerminal reports whether no further ingestion work is expected.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
// Terminal documents may only restart by going back to processing (a new ingestion run).
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed
	case StatusCompleted, StatusFailed:
		return next == StatusProcessing
	default:
		return false
	}
}

// Document represents one uploaded file of a product.
type Document struct {
	ID                string         `db:"id" json:"id"`
	ProductID         string         `db:"product_id" json:"product_id"`
	FileName          string         `db:"filename" json:"filename"`
	StoragePath       string         `db:"storage_path" json:"storage_path"` // object key inside the bucket
	MimeType          string         `db:"mime_type" json:"mime_type"`
	Status            DocumentStatus `db:"status" json:"status"`
	ErrorMessage      *string        `db:"error_message" json:"error_message,omitempty"`
	Tags              []string       `db:"tags" json:"tags,omitempty"`
	LastCompletedStep string         `db:"last_completed_step" json:"last_completed_step,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// ChunkMetadata keeps the positional context of a chunk inside its document.
type ChunkMetadata struct {
	FileName     string `json:"filename"`
	SectionTitle string `json:"sectionTitle,omitempty"`
	ChunkIndex   int    `json:"chunkIndex"`
	TotalChunks  int    `json:"totalChunks"`
	PageNumber   *int   `json:"pageNumber,omitempty"`
}

// DocumentChunk represents one embedded text chunk from a document.
type DocumentChunk struct {
	ID         string        `db:"id" json:"id"`
	DocumentID string        `db:"document_id" json:"document_id"`
	ProductID  string        `db:"product_id" json:"product_id"`
	Content    string        `db:"content" json:"content"`
	Embedding  []float32     `db:"embedding" json:"embedding"` // pgvector column
	Metadata   ChunkMetadata `db:"metadata" json:"metadata"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// SearchResult is one chunk returned by a namespace-filtered similarity search.
type SearchResult struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity"`
}
