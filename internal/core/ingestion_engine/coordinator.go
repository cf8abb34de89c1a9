package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/checkpoint"
	"github.com/markdave123-py/salesbrain/internal/core/workflow"
	"github.com/markdave123-py/salesbrain/internal/models"
)

// Step names, in execution order.
const (
	StepMarkProcessing  = "mark-processing"
	StepDownload        = "download"
	StepExtractAndChunk = "extract-and-chunk"
	StepEmbed           = "embed"
	StepStore           = "store"
	StepMarkCompleted   = "mark-completed"
)

var Steps = []string{StepMarkProcessing, StepDownload, StepExtractAndChunk, StepEmbed, StepStore, StepMarkCompleted}

// IngestRequest identifies the document to ingest and where its file lives.
type IngestRequest struct {
	DocumentID  string
	ProductID   string
	StoragePath string
	FileName    string
}

type IngestResult struct {
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
}

// Coordinator sequences extraction, chunking, embedding and storage of one
// document and keeps its status row current.
type Coordinator struct {
	db          core.DbClient
	obj         core.ObjectClient
	extractor   core.DocumentExtractor
	embedder    core.EmbeddingProvider
	writer      *ChunkWriter
	checkpoints checkpoint.Store
	policy      workflow.RetryPolicy
	tagger      *Tagger
}

type CoordinatorOption func(*Coordinator)

// WithTagger enables tag derivation after a successful ingestion.
func WithTagger(t *Tagger) CoordinatorOption {
	return func(c *Coordinator) { c.tagger = t }
}

func WithRetryPolicy(p workflow.RetryPolicy) CoordinatorOption {
	return func(c *Coordinator) { c.policy = p }
}

func NewCoordinator(
	db core.DbClient,
	obj core.ObjectClient,
	extractor core.DocumentExtractor,
	embedder core.EmbeddingProvider,
	checkpoints checkpoint.Store,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		db:          db,
		obj:         obj,
		extractor:   extractor,
		embedder:    embedder,
		writer:      NewChunkWriter(db),
		checkpoints: checkpoints,
		policy:      workflow.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.Permanent == nil {
		c.policy.Permanent = isPermanent
	}
	return c
}

// isPermanent marks failures that a retry cannot fix.
func isPermanent(err error) bool {
	var unsupported *core.UnsupportedFileTypeError
	return errors.As(err, &unsupported) || errors.Is(err, core.ErrObjectNotFound) || errors.Is(err, core.ErrDocumentNotFound)
}

// Ingest runs every step once, in process, without retry or resume.
// Running it again on the same document replaces its chunks.
func (c *Coordinator) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	return c.run(ctx, workflow.Inline{}, req, models.StatusPending)
}

// Run starts a fresh durable ingestion of a stored document: each step is
// retried under the coordinator's policy and checkpointed as it completes.
func (c *Coordinator) Run(ctx context.Context, documentID string) (*IngestResult, error) {
	doc, err := c.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := c.checkpoints.Clear(ctx, documentID); err != nil {
		return nil, fmt.Errorf("clear checkpoints: %w", err)
	}
	if err := c.db.SetLastCompletedStep(ctx, documentID, ""); err != nil {
		return nil, fmt.Errorf("reset step cursor: %w", err)
	}
	return c.run(ctx, c.durable(documentID), requestFor(doc), doc.Status)
}

// Resume continues a durable ingestion from its persisted cursor. Steps with a
// checkpoint are skipped; a step marked done whose checkpoint was lost runs again.
func (c *Coordinator) Resume(ctx context.Context, documentID string) (*IngestResult, error) {
	doc, err := c.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == models.StatusCompleted && doc.LastCompletedStep == StepMarkCompleted {
		n, err := c.db.CountChunksByDocument(ctx, documentID)
		if err != nil {
			return nil, err
		}
		logger.Infow("document already ingested", "document_id", documentID, "chunks", n)
		return &IngestResult{DocumentID: documentID, ChunkCount: n}, nil
	}
	if doc.Status != models.StatusProcessing {
		// the mark-processing checkpoint may be skipped, so reopen the document here
		if err := c.setStatus(ctx, documentID, doc.Status, models.StatusProcessing, nil); err != nil {
			return nil, err
		}
	}
	logger.Infow("resuming ingestion", "document_id", documentID, "cursor", doc.LastCompletedStep)
	return c.run(ctx, c.durable(documentID), requestFor(doc), models.StatusProcessing)
}

func (c *Coordinator) durable(documentID string) *workflow.Durable {
	return workflow.NewDurable(c.checkpoints, documentID, c.policy, func(ctx context.Context, step string) error {
		return c.db.SetLastCompletedStep(ctx, documentID, step)
	})
}

func requestFor(doc *models.Document) IngestRequest {
	return IngestRequest{
		DocumentID:  doc.ID,
		ProductID:   doc.ProductID,
		StoragePath: doc.StoragePath,
		FileName:    doc.FileName,
	}
}

func (c *Coordinator) run(ctx context.Context, ex workflow.Executor, req IngestRequest, from models.DocumentStatus) (*IngestResult, error) {
	start := time.Now()
	count, err := c.pipeline(ctx, ex, req, from)
	if err != nil {
		return nil, c.fail(ctx, req.DocumentID, err)
	}

	logger.Infow("document ingested",
		"document_id", req.DocumentID, "product_id", req.ProductID,
		"chunks", count, "duration_ms", time.Since(start).Milliseconds())
	return &IngestResult{DocumentID: req.DocumentID, ChunkCount: count}, nil
}

func (c *Coordinator) pipeline(ctx context.Context, ex workflow.Executor, req IngestRequest, from models.DocumentStatus) (int, error) {
	_, err := workflow.Do(ctx, ex, StepMarkProcessing, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.setStatus(ctx, req.DocumentID, from, models.StatusProcessing, nil)
	})
	if err != nil {
		return 0, err
	}

	data, err := workflow.Do(ctx, ex, StepDownload, func(ctx context.Context) ([]byte, error) {
		data, err := c.obj.GetFile(ctx, req.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", req.StoragePath, err)
		}
		logger.Infow("downloaded document", "document_id", req.DocumentID, "bytes", len(data))
		return data, nil
	})
	if err != nil {
		return 0, err
	}

	chunks, err := workflow.Do(ctx, ex, StepExtractAndChunk, func(ctx context.Context) ([]TextChunk, error) {
		extracted, err := c.extractor.ExtractText(data, req.FileName)
		if err != nil {
			return nil, err
		}
		chunks, err := chunkSafely(extracted, req.FileName)
		if err != nil {
			return nil, err
		}
		logger.Infow("chunked document", "document_id", req.DocumentID, "chunks", len(chunks))
		return chunks, nil
	})
	if err != nil {
		return 0, err
	}

	vectors, err := workflow.Do(ctx, ex, StepEmbed, func(ctx context.Context) ([][]float32, error) {
		contents := make([]string, len(chunks))
		for i, ch := range chunks {
			contents[i] = ch.Content
		}
		return c.embedder.EmbedDocuments(ctx, contents)
	})
	if err != nil {
		return 0, err
	}

	count, err := workflow.Do(ctx, ex, StepStore, func(ctx context.Context) (int, error) {
		return c.writer.Replace(ctx, req.DocumentID, req.ProductID, chunks, vectors)
	})
	if err != nil {
		return 0, err
	}

	_, err = workflow.Do(ctx, ex, StepMarkCompleted, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.setStatus(ctx, req.DocumentID, models.StatusProcessing, models.StatusCompleted, nil)
	})
	if err != nil {
		return 0, err
	}

	c.tag(ctx, req, chunks)
	return count, nil
}

// chunkSafely turns a panic inside the chunker into a ChunkingError.
func chunkSafely(extracted *core.ExtractedText, filename string) (chunks []TextChunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.ChunkingError{Err: fmt.Errorf("%v", r)}
		}
	}()
	return ChunkText(extracted.Text, filename, extracted.PageCount), nil
}

func (c *Coordinator) setStatus(ctx context.Context, id string, from, to models.DocumentStatus, errMsg *string) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("document %s: illegal status transition %s -> %s", id, from, to)
	}
	return c.db.UpdateDocumentStatus(ctx, id, to, errMsg)
}

// fail records the failure on the document unless the caller gave up, in which
// case the document stays processing and can be resumed. Only a processing
// document is moved to failed.
func (c *Coordinator) fail(ctx context.Context, documentID string, err error) error {
	step := "unknown"
	var stepErr *workflow.StepError
	if errors.As(err, &stepErr) {
		step = stepErr.Step
		err = stepErr.Err
	}
	failure := &core.IngestionFailure{DocumentID: documentID, Step: step, Err: err}

	if ctx.Err() != nil {
		logger.Warnw("ingestion interrupted", "document_id", documentID, "step", step, "error", ctx.Err())
		return failure
	}

	if step == StepMarkProcessing {
		// the document never reached processing, so it keeps its previous status
		logger.Errorw("ingestion could not start", "document_id", documentID, "error", err)
		return failure
	}

	msg := err.Error()
	if uerr := c.db.UpdateDocumentStatus(ctx, documentID, models.StatusFailed, &msg); uerr != nil {
		logger.Errorw("failed to record ingestion failure", "document_id", documentID, "error", uerr)
	}
	logger.Errorw("ingestion failed", "document_id", documentID, "step", step, "error", err)
	return failure
}

// tag runs the optional enrichment. Errors are logged only.
func (c *Coordinator) tag(ctx context.Context, req IngestRequest, chunks []TextChunk) {
	if c.tagger == nil || len(chunks) == 0 {
		return
	}
	var b strings.Builder
	for _, ch := range chunks {
		if b.Len() >= tagSampleRunes {
			break
		}
		b.WriteString(ch.Content)
		b.WriteString("\n")
	}
	tags, err := c.tagger.Tag(ctx, req.FileName, b.String())
	if err != nil {
		logger.Warnw("document tagging failed", "document_id", req.DocumentID, "error", err)
		return
	}
	if err := c.db.UpdateDocumentTags(ctx, req.DocumentID, tags); err != nil {
		logger.Warnw("storing document tags failed", "document_id", req.DocumentID, "error", err)
		return
	}
	logger.Infow("document tagged", "document_id", req.DocumentID, "tags", tags)
}
