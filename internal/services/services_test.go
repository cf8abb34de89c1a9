package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/coretest"
	"github.com/markdave123-py/salesbrain/internal/models"
)

type recordingQueue struct {
	mu      sync.Mutex
	runs    []string
	resumes []string
	err     error
}

func (q *recordingQueue) Enqueue(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.runs = append(q.runs, id)
	return q.err
}

func (q *recordingQueue) EnqueueResume(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resumes = append(q.resumes, id)
	return q.err
}

type env struct {
	db       *coretest.MemoryDB
	objects  *coretest.MemoryObjects
	queue    *recordingQueue
	products *ProductService
	docs     *DocumentService
}

func newEnv() *env {
	e := &env{db: coretest.NewMemoryDB(), objects: coretest.NewMemoryObjects(), queue: &recordingQueue{}}
	e.products = NewProductService(e.db, e.objects)
	e.docs = NewDocumentService(e.db, e.objects, e.queue)
	e.docs.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return e
}

func TestProductService_Create(t *testing.T) {
	e := newEnv()
	p, err := e.products.Create(context.Background(), CreateProductInput{Name: "  Acme Cloud ", Description: "Hosting", CreatedBy: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Acme Cloud", p.Name)
	assert.Equal(t, "u1", p.CreatedBy)

	list, err := e.products.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestProductService_CreateRejectsToolNameCollision(t *testing.T) {
	e := newEnv()
	_, err := e.products.Create(context.Background(), CreateProductInput{Name: "Acme Cloud"})
	require.NoError(t, err)

	_, err = e.products.Create(context.Background(), CreateProductInput{Name: "acme-cloud"})
	var collision *core.ToolNameCollisionError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, "search_acme_cloud", collision.ToolName)
}

func TestProductService_CreateRequiresName(t *testing.T) {
	_, err := newEnv().products.Create(context.Background(), CreateProductInput{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProductService_DeleteRemovesFiles(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.products.Create(ctx, CreateProductInput{Name: "Acme"})
	require.NoError(t, err)
	doc, err := e.docs.Upload(ctx, p.ID, "faq.md", "", strings.NewReader("# FAQ\nyes"))
	require.NoError(t, err)
	require.True(t, e.objects.Has(doc.StoragePath))

	require.NoError(t, e.products.Delete(ctx, p.ID))
	assert.False(t, e.objects.Has(doc.StoragePath))
	_, err = e.docs.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, core.ErrDocumentNotFound)

	assert.ErrorIs(t, e.products.Delete(ctx, p.ID), core.ErrProductNotFound)
}

func TestDocumentService_Upload(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.products.Create(ctx, CreateProductInput{Name: "Acme"})
	require.NoError(t, err)

	doc, err := e.docs.Upload(ctx, p.ID, "../Pricing Sheet.md", "", strings.NewReader("# Pricing\n$10"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, doc.Status)
	assert.Equal(t, "Pricing Sheet.md", doc.FileName)
	assert.Equal(t, p.ID+"/1700000000000-Pricing_Sheet.md", doc.StoragePath)
	assert.Equal(t, []string{doc.StoragePath}, e.objects.Keys())
	assert.Equal(t, []string{doc.ID}, e.queue.runs)

	stored, err := e.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestDocumentService_UploadRejects(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.products.Create(ctx, CreateProductInput{Name: "Acme"})
	require.NoError(t, err)

	_, err = e.docs.Upload(ctx, p.ID, "deck.pptx", "", strings.NewReader("x"))
	var unsupported *core.UnsupportedFileTypeError
	assert.True(t, errors.As(err, &unsupported))

	_, err = e.docs.Upload(ctx, "missing", "faq.md", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, core.ErrProductNotFound)

	_, err = e.docs.Upload(ctx, p.ID, "", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, e.objects.Keys())
	assert.Empty(t, e.queue.runs)
}

func TestDocumentService_UploadKeepsPendingWhenQueueRefuses(t *testing.T) {
	e := newEnv()
	e.queue.err = core.ErrAlreadyQueued
	ctx := context.Background()
	p, err := e.products.Create(ctx, CreateProductInput{Name: "Acme"})
	require.NoError(t, err)

	doc, err := e.docs.Upload(ctx, p.ID, "faq.txt", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, doc.Status)
}

func TestDocumentService_ListDeleteResume(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.products.Create(ctx, CreateProductInput{Name: "Acme"})
	require.NoError(t, err)
	doc, err := e.docs.Upload(ctx, p.ID, "faq.md", "", strings.NewReader("# FAQ\nyes"))
	require.NoError(t, err)

	docs, err := e.docs.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	_, err = e.docs.ListByProduct(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrProductNotFound)

	_, err = e.docs.Resume(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, e.queue.resumes)

	require.NoError(t, e.docs.Delete(ctx, doc.ID))
	assert.Empty(t, e.objects.Keys())
	assert.ErrorIs(t, e.docs.Delete(ctx, doc.ID), core.ErrDocumentNotFound)

	docs, err = e.docs.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentService_ResumeWithoutQueue(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.products.Create(ctx, CreateProductInput{Name: "Acme"})
	require.NoError(t, err)

	docs := NewDocumentService(e.db, e.objects, nil)
	doc, err := docs.Upload(ctx, p.ID, "faq.md", "", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = docs.Resume(ctx, doc.ID)
	assert.Error(t, err)
}
