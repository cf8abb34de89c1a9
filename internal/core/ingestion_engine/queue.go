package ingestion_engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/markdave123-py/salesbrain/internal/core"
)

// DefaultJobTimeout bounds one background ingestion. A job that hits it
// leaves its document processing, ready for Resume.
const DefaultJobTimeout = 10 * time.Minute

// DurableIngestor is the part of Coordinator the queue drives.
type DurableIngestor interface {
	Run(ctx context.Context, documentID string) (*IngestResult, error)
	Resume(ctx context.Context, documentID string) (*IngestResult, error)
}

// Queue runs durable ingestions on a bounded worker pool and refuses to
// start a second run of a document that is still in flight.
type Queue struct {
	ingestor   DurableIngestor
	pool       *ants.Pool
	jobTimeout time.Duration
	baseCtx    context.Context
	cancel     context.CancelFunc

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

func NewQueue(ingestor DurableIngestor, workers int, jobTimeout time.Duration) (*Queue, error) {
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	pool, err := ants.NewPool(workers,
		ants.WithPanicHandler(func(p any) {
			logger.Errorw("ingestion worker panic", "panic", fmt.Sprint(p))
		}),
		ants.WithExpiryDuration(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("create ingestion pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		ingestor:   ingestor,
		pool:       pool,
		jobTimeout: jobTimeout,
		baseCtx:    ctx,
		cancel:     cancel,
		inFlight:   make(map[string]struct{}),
	}, nil
}

// Enqueue schedules a fresh durable run of documentID.
func (q *Queue) Enqueue(documentID string) error {
	return q.submit(documentID, "run", q.ingestor.Run)
}

// EnqueueResume schedules a resume of documentID from its step cursor.
func (q *Queue) EnqueueResume(documentID string) error {
	return q.submit(documentID, "resume", q.ingestor.Resume)
}

func (q *Queue) submit(documentID, mode string, fn func(context.Context, string) (*IngestResult, error)) error {
	q.mu.Lock()
	if _, busy := q.inFlight[documentID]; busy {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrAlreadyQueued, documentID)
	}
	q.inFlight[documentID] = struct{}{}
	q.mu.Unlock()

	q.wg.Add(1)
	err := q.pool.Submit(func() {
		defer q.wg.Done()
		defer q.release(documentID)

		ctx, cancel := context.WithTimeout(q.baseCtx, q.jobTimeout)
		defer cancel()

		logger.Infow("ingestion job started", "document_id", documentID, "mode", mode)
		res, err := fn(ctx, documentID)
		if err != nil {
			logger.Errorw("ingestion job failed", "document_id", documentID, "mode", mode, "error", err)
			return
		}
		logger.Infow("ingestion job finished", "document_id", documentID, "mode", mode, "chunks", res.ChunkCount)
	})
	if err != nil {
		q.wg.Done()
		q.release(documentID)
		return fmt.Errorf("submit ingestion of %s: %w", documentID, err)
	}
	return nil
}

func (q *Queue) release(documentID string) {
	q.mu.Lock()
	delete(q.inFlight, documentID)
	q.mu.Unlock()
}

// InFlight reports whether documentID is queued or running.
func (q *Queue) InFlight(documentID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inFlight[documentID]
	return ok
}

// Close stops accepting work, cancels running jobs and waits up to timeout for them.
func (q *Queue) Close(timeout time.Duration) error {
	q.cancel()
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warnw("ingestion jobs still running at shutdown", "timeout", timeout.String())
	}
	return q.pool.ReleaseTimeout(timeout)
}
