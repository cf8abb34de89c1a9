// Package coretest provides in-memory implementations of the core interfaces for tests.
package coretest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/models"
)

// MemoryDB is a core.DbClient backed by maps.
type MemoryDB struct {
	mu        sync.Mutex
	products  []models.Product
	documents map[string]*models.Document
	chunks    []models.DocumentChunk

	// StatusHistory records every status written per document.
	StatusHistory map[string][]models.DocumentStatus
	// InsertBatches records the size of every InsertDocumentChunks call.
	InsertBatches []int
	// MatchErr, when set, is returned by MatchChunks.
	MatchErr error
	// MatchResults, when set, replaces the computed MatchChunks answer before
	// threshold and limit are applied.
	MatchResults []models.SearchResult
}

var _ core.DbClient = (*MemoryDB)(nil)

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		documents:     make(map[string]*models.Document),
		StatusHistory: make(map[string][]models.DocumentStatus),
	}
}

func (m *MemoryDB) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.products {
		if existing.Name == p.Name {
			return fmt.Errorf("%w: %s", core.ErrProductExists, p.Name)
		}
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.products = append(m.products, *p)
	return nil
}

func (m *MemoryDB) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, core.ErrProductNotFound
}

func (m *MemoryDB) ListProducts(_ context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Product(nil), m.products...), nil
}

func (m *MemoryDB) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.products {
		if p.ID != id {
			continue
		}
		m.products = append(m.products[:i], m.products[i+1:]...)
		for docID, d := range m.documents {
			if d.ProductID == id {
				delete(m.documents, docID)
			}
		}
		kept := m.chunks[:0]
		for _, c := range m.chunks {
			if c.ProductID != id {
				kept = append(kept, c)
			}
		}
		m.chunks = kept
		return nil
	}
	return core.ErrProductNotFound
}

func (m *MemoryDB) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.Status == "" {
		doc.Status = models.StatusPending
	}
	now := time.Now()
	doc.CreatedAt, doc.UpdatedAt = now, now
	cp := *doc
	m.documents[doc.ID] = &cp
	return nil
}

func (m *MemoryDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, core.ErrDocumentNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryDB) ListDocumentsByProduct(_ context.Context, productID string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for _, d := range m.documents {
		if d.ProductID == productID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryDB) UpdateDocumentStatus(_ context.Context, id string, status models.DocumentStatus, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return core.ErrDocumentNotFound
	}
	d.Status = status
	d.ErrorMessage = errMsg
	m.StatusHistory[id] = append(m.StatusHistory[id], status)
	return nil
}

func (m *MemoryDB) UpdateDocumentTags(_ context.Context, id string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return core.ErrDocumentNotFound
	}
	d.Tags = append([]string(nil), tags...)
	return nil
}

func (m *MemoryDB) SetLastCompletedStep(_ context.Context, id string, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return core.ErrDocumentNotFound
	}
	d.LastCompletedStep = step
	return nil
}

func (m *MemoryDB) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return core.ErrDocumentNotFound
	}
	delete(m.documents, id)
	m.deleteChunksLocked(id)
	return nil
}

func (m *MemoryDB) InsertDocumentChunks(_ context.Context, chunks []models.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertBatches = append(m.InsertBatches, len(chunks))
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *MemoryDB) DeleteChunksByDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteChunksLocked(documentID)
	return nil
}

func (m *MemoryDB) deleteChunksLocked(documentID string) {
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
}

func (m *MemoryDB) CountChunksByDocument(_ context.Context, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

// Chunks returns a copy of the chunks of documentID in insertion order.
func (m *MemoryDB) Chunks(documentID string) []models.DocumentChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DocumentChunk
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out
}

func (m *MemoryDB) MatchChunks(_ context.Context, productID string, queryVec []float32, matchCount int, threshold float64) ([]models.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MatchErr != nil {
		return nil, m.MatchErr
	}

	candidates := m.MatchResults
	if candidates == nil {
		for _, c := range m.chunks {
			if c.ProductID != productID {
				continue
			}
			candidates = append(candidates, models.SearchResult{
				ID:         c.ID,
				Content:    c.Content,
				Metadata:   c.Metadata,
				Similarity: cosine(queryVec, c.Embedding),
			})
		}
	}

	var out []models.SearchResult
	for _, r := range candidates {
		if r.Similarity > threshold {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > matchCount {
		out = out[:matchCount]
	}
	return out, nil
}

func (m *MemoryDB) Close() error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MemoryObjects is a core.ObjectClient backed by a map.
type MemoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	// GetErr, when set, is returned by GetFile for every key.
	GetErr error
}

var _ core.ObjectClient = (*MemoryObjects)(nil)

func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{objects: make(map[string][]byte)}
}

func (o *MemoryObjects) Put(key string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = data
}

func (o *MemoryObjects) Has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[key]
	return ok
}

// Keys lists the stored object keys in sorted order.
func (o *MemoryObjects) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(o.objects))
	for k := range o.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o *MemoryObjects) UploadFile(_ context.Context, key string, data io.Reader, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return err
	}
	o.Put(key, buf.Bytes())
	return nil
}

func (o *MemoryObjects) DeleteFile(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

func (o *MemoryObjects) GetFile(_ context.Context, key string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.GetErr != nil {
		return nil, o.GetErr
	}
	data, ok := o.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrObjectNotFound, key)
	}
	return data, nil
}
