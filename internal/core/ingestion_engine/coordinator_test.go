package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/checkpoint"
	"github.com/markdave123-py/salesbrain/internal/core/coretest"
	"github.com/markdave123-py/salesbrain/internal/core/workflow"
	"github.com/markdave123-py/salesbrain/internal/models"
)

type fixture struct {
	db      *coretest.MemoryDB
	objects *coretest.MemoryObjects
	embed   *coretest.HashEmbedder
	store   *checkpoint.MemoryStore
	coord   *Coordinator
}

func fastRetry() workflow.RetryPolicy {
	return workflow.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func newFixture(t *testing.T, opts ...CoordinatorOption) *fixture {
	t.Helper()
	f := &fixture{
		db:      coretest.NewMemoryDB(),
		objects: coretest.NewMemoryObjects(),
		embed:   &coretest.HashEmbedder{},
		store:   checkpoint.NewMemoryStore(),
	}
	opts = append([]CoordinatorOption{WithRetryPolicy(fastRetry())}, opts...)
	f.coord = NewCoordinator(f.db, f.objects, NewDocconvExtractor(), f.embed, f.store, opts...)

	ctx := context.Background()
	require.NoError(t, f.db.CreateProduct(ctx, &models.Product{ID: "prod-1", Name: "Acme"}))
	return f
}

func (f *fixture) addDocument(t *testing.T, id, filename, body string) IngestRequest {
	t.Helper()
	key := "prod-1/" + filename
	f.objects.Put(key, []byte(body))
	require.NoError(t, f.db.CreateDocument(context.Background(), &models.Document{
		ID: id, ProductID: "prod-1", FileName: filename, StoragePath: key, MimeType: "text/plain",
	}))
	return IngestRequest{DocumentID: id, ProductID: "prod-1", StoragePath: key, FileName: filename}
}

func manyWords(n int) string {
	var b strings.Builder
	b.WriteString("# Overview\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "word%d ", i)
	}
	return b.String()
}

func TestIngest_Success(t *testing.T) {
	f := newFixture(t)
	req := f.addDocument(t, "doc-1", "pricing.txt", "PRICING\nBasic plan $10/mo.\nPro plan $50/mo.")

	res, err := f.coord.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)

	doc, err := f.db.GetDocumentByID(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Nil(t, doc.ErrorMessage)
	assert.Equal(t, []models.DocumentStatus{models.StatusProcessing, models.StatusCompleted}, f.db.StatusHistory["doc-1"])
	assert.Empty(t, doc.LastCompletedStep, "synchronous mode keeps no cursor")

	chunks := f.db.Chunks("doc-1")
	require.Len(t, chunks, 1)
	assert.Equal(t, "prod-1", chunks[0].ProductID)
	assert.Equal(t, "[PRICING]\nBasic plan $10/mo.\nPro plan $50/mo.", chunks[0].Content)
	assert.Equal(t, coretest.Vector(chunks[0].Content), chunks[0].Embedding)
}

func TestIngest_StoresInBatchesOf100(t *testing.T) {
	f := newFixture(t)
	req := f.addDocument(t, "doc-1", "big.md", manyWords(40000))

	res, err := f.coord.Ingest(context.Background(), req)
	require.NoError(t, err)
	require.Greater(t, res.ChunkCount, 200)

	for i, n := range f.db.InsertBatches {
		if i < len(f.db.InsertBatches)-1 {
			assert.Equal(t, StoreBatchSize, n)
		}
		assert.LessOrEqual(t, n, StoreBatchSize)
	}
	chunks := f.db.Chunks("doc-1")
	for i, c := range chunks {
		assert.Equal(t, i, c.Metadata.ChunkIndex, "chunks are stored in production order")
	}
}

func TestIngest_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	req := f.addDocument(t, "doc-1", "guide.md", manyWords(2000))
	ctx := context.Background()

	first, err := f.coord.Ingest(ctx, req)
	require.NoError(t, err)
	second, err := f.coord.Ingest(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ChunkCount, second.ChunkCount)
	n, err := f.db.CountChunksByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, first.ChunkCount, n, "re-ingestion replaces chunks")
}

func TestIngest_UnsupportedFileMarksFailed(t *testing.T) {
	f := newFixture(t)
	req := f.addDocument(t, "doc-1", "deck.pptx", "binary")

	_, err := f.coord.Ingest(context.Background(), req)

	var failure *core.IngestionFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "doc-1", failure.DocumentID)
	assert.Equal(t, StepExtractAndChunk, failure.Step)
	var unsupported *core.UnsupportedFileTypeError
	assert.True(t, errors.As(err, &unsupported))

	doc, _ := f.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusFailed, doc.Status)
	require.NotNil(t, doc.ErrorMessage)
	assert.Contains(t, *doc.ErrorMessage, ".pptx")
}

func TestIngest_MissingObject(t *testing.T) {
	f := newFixture(t)
	req := f.addDocument(t, "doc-1", "a.txt", "hello")
	require.NoError(t, f.objects.DeleteFile(context.Background(), req.StoragePath))

	_, err := f.coord.Ingest(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrObjectNotFound)

	doc, _ := f.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusFailed, doc.Status)
}

// statusFailDB rejects status updates to one target status.
type statusFailDB struct {
	*coretest.MemoryDB
	failOn models.DocumentStatus
}

func (d *statusFailDB) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg *string) error {
	if status == d.failOn {
		return errors.New("connection reset")
	}
	return d.MemoryDB.UpdateDocumentStatus(ctx, id, status, errMsg)
}

func TestIngest_MarkProcessingFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	req := f.addDocument(t, "doc-1", "a.txt", "hello")
	db := &statusFailDB{MemoryDB: f.db, failOn: models.StatusProcessing}
	coord := NewCoordinator(db, f.objects, NewDocconvExtractor(), f.embed, f.store, WithRetryPolicy(fastRetry()))

	_, err := coord.Ingest(context.Background(), req)

	var failure *core.IngestionFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StepMarkProcessing, failure.Step)

	doc, _ := f.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusPending, doc.Status)
	assert.Nil(t, doc.ErrorMessage)
}

func TestIngest_CancelledLeavesProcessing(t *testing.T) {
	f := newFixture(t)
	req := f.addDocument(t, "doc-1", "a.txt", "hello")
	f.embed.Err = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.coord.Ingest(ctx, req)
	require.Error(t, err)

	doc, _ := f.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusProcessing, doc.Status)
	assert.Nil(t, doc.ErrorMessage)
}

func TestRun_RetriesTransientEmbeddingFailure(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "doc-1", "a.txt", "hello world")
	f.embed.Err = &core.EmbeddingServiceError{StatusCode: 503, Body: "busy"}
	f.embed.FailFirst = 2

	res, err := f.coord.Run(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)
	assert.Equal(t, 3, f.embed.DocCalls)

	doc, _ := f.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, StepMarkCompleted, doc.LastCompletedStep)
}

func TestRun_FailsAfterThreeAttempts(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "doc-1", "a.txt", "hello world")
	f.embed.Err = &core.EmbeddingServiceError{StatusCode: 500, Body: "down"}

	_, err := f.coord.Run(context.Background(), "doc-1")

	var failure *core.IngestionFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StepEmbed, failure.Step)
	assert.Equal(t, 3, f.embed.DocCalls)

	doc, _ := f.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusFailed, doc.Status)
	assert.Equal(t, StepExtractAndChunk, doc.LastCompletedStep)
}

func TestRun_UnsupportedFileIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "doc-1", "deck.pptx", "binary")

	_, err := f.coord.Run(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Equal(t, 0, f.embed.DocCalls)
}

func TestResume_SkipsCheckpointedSteps(t *testing.T) {
	f := newFixture(t)
	req := f.addDocument(t, "doc-1", "a.txt", "hello world")
	f.embed.Err = &core.EmbeddingServiceError{StatusCode: 500, Body: "down"}
	ctx := context.Background()

	_, err := f.coord.Run(ctx, "doc-1")
	require.Error(t, err)

	// the file vanishes: resume must reuse the downloaded checkpoint
	require.NoError(t, f.objects.DeleteFile(ctx, req.StoragePath))
	f.embed.Err = nil

	res, err := f.coord.Resume(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)

	doc, _ := f.db.GetDocumentByID(ctx, "doc-1")
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Nil(t, doc.ErrorMessage)
	assert.Equal(t, StepMarkCompleted, doc.LastCompletedStep)
}

func TestResume_ReexecutesStepWithLostCheckpoint(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "doc-1", "a.txt", "hello world")
	f.embed.Err = errors.New("down")
	ctx := context.Background()

	_, err := f.coord.Run(ctx, "doc-1")
	require.Error(t, err)

	// checkpoints lost, cursor still says extract-and-chunk
	require.NoError(t, f.store.Clear(ctx, "doc-1"))
	f.embed.Err = nil

	res, err := f.coord.Resume(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)
}

func TestResume_CompletedDocumentIsNoop(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "doc-1", "a.txt", "hello world")
	ctx := context.Background()

	first, err := f.coord.Run(ctx, "doc-1")
	require.NoError(t, err)
	calls := f.embed.DocCalls

	again, err := f.coord.Resume(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, first.ChunkCount, again.ChunkCount)
	assert.Equal(t, calls, f.embed.DocCalls)
}

func TestRun_UnknownDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrDocumentNotFound)
}

func TestIngest_TaggingIsOptionalEnrichment(t *testing.T) {
	t.Run("tags stored", func(t *testing.T) {
		llm := &coretest.ScriptedLLM{GenerateText: `["pricing", "Plans"]`}
		f := newFixture(t, WithTagger(NewTagger(llm)))
		req := f.addDocument(t, "doc-1", "pricing.txt", "PRICING\nBasic plan $10/mo.")

		_, err := f.coord.Ingest(context.Background(), req)
		require.NoError(t, err)
		doc, _ := f.db.GetDocumentByID(context.Background(), "doc-1")
		assert.Equal(t, []string{"pricing", "plans"}, doc.Tags)
	})

	t.Run("tagging failure does not fail document", func(t *testing.T) {
		llm := &coretest.ScriptedLLM{GenerateErr: errors.New("quota")}
		f := newFixture(t, WithTagger(NewTagger(llm)))
		req := f.addDocument(t, "doc-1", "pricing.txt", "PRICING\nBasic plan $10/mo.")

		_, err := f.coord.Ingest(context.Background(), req)
		require.NoError(t, err)
		doc, _ := f.db.GetDocumentByID(context.Background(), "doc-1")
		assert.Equal(t, models.StatusCompleted, doc.Status)
		assert.Empty(t, doc.Tags)
	})
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseTags("```json\n[\"A\", \"b\", \"a\"]\n```"))
	assert.Equal(t, []string{"security", "sso"}, parseTags("security, SSO"))
	assert.Len(t, parseTags(`["1","2","3","4","5","6"]`), maxTags)
	assert.Empty(t, parseTags(""))
}
