package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/config"
	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/checkpoint"
	db "github.com/markdave123-py/salesbrain/internal/core/database"
	"github.com/markdave123-py/salesbrain/internal/core/embedding"
	"github.com/markdave123-py/salesbrain/internal/core/ingestion_engine"
	"github.com/markdave123-py/salesbrain/internal/core/llm"
	objectclient "github.com/markdave123-py/salesbrain/internal/core/object-client"
	"github.com/markdave123-py/salesbrain/internal/core/orchestrator"
	"github.com/markdave123-py/salesbrain/internal/core/retrieval"
	"github.com/markdave123-py/salesbrain/internal/services"
)

// Deps are the external systems the application talks to.
type Deps struct {
	DB          core.DbClient
	Objects     core.ObjectClient
	Embedder    core.EmbeddingProvider
	LLM         core.LLMProvider
	Checkpoints checkpoint.Store
}

type App struct {
	Config *config.Config
	Deps

	Coordinator  *ingestion_engine.Coordinator
	Queue        *ingestion_engine.Queue
	Searcher     *retrieval.Searcher
	Orchestrator *orchestrator.Orchestrator
	Products     *services.ProductService
	Documents    *services.DocumentService

	closers []io.Closer
}

// NewApp connects to every backing service named in cfg and wires the application.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	initCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var closers []io.Closer
	fail := func(err error) (*App, error) {
		closeAll(closers)
		return nil, err
	}

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, dbClient)

	objClient, err := objectclient.NewS3Client(initCtx, cfg)
	if err != nil {
		return fail(err)
	}
	logger.Infow("object storage ready", "bucket", cfg.BucketName)

	backend, err := newEmbeddingBackend(initCtx, cfg)
	if err != nil {
		return fail(fmt.Errorf("couldn't initialize the embedder: %w", err))
	}
	if c, ok := backend.(io.Closer); ok {
		closers = append(closers, c)
	}

	llmProvider, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return fail(fmt.Errorf("couldn't initialize the language model: %w", err))
	}
	closers = append(closers, llmProvider)

	store, err := newCheckpointStore(initCtx, cfg)
	if err != nil {
		return fail(err)
	}
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}

	a, err := Assemble(cfg, Deps{
		DB:          dbClient,
		Objects:     objClient,
		Embedder:    embedding.NewClient(backend),
		LLM:         llmProvider,
		Checkpoints: store,
	})
	if err != nil {
		return fail(err)
	}
	a.closers = closers
	return a, nil
}

// Assemble builds the application services on top of already connected deps.
func Assemble(cfg *config.Config, deps Deps) (*App, error) {
	var opts []ingestion_engine.CoordinatorOption
	if cfg.EnableTagging {
		opts = append(opts, ingestion_engine.WithTagger(ingestion_engine.NewTagger(deps.LLM)))
	}
	coordinator := ingestion_engine.NewCoordinator(
		deps.DB, deps.Objects, ingestion_engine.NewDocconvExtractor(), deps.Embedder, deps.Checkpoints, opts...,
	)

	queue, err := ingestion_engine.NewQueue(coordinator, cfg.IngestWorkers, ingestion_engine.DefaultJobTimeout)
	if err != nil {
		return nil, err
	}

	searcher := retrieval.NewSearcher(deps.DB, deps.Embedder)
	return &App{
		Config:       cfg,
		Deps:         deps,
		Coordinator:  coordinator,
		Queue:        queue,
		Searcher:     searcher,
		Orchestrator: orchestrator.New(deps.LLM, deps.DB, searcher),
		Products:     services.NewProductService(deps.DB, deps.Objects),
		Documents:    services.NewDocumentService(deps.DB, deps.Objects, queue),
	}, nil
}

// RunOptions are the orchestrator settings taken from configuration.
func (a *App) RunOptions() orchestrator.RunOptions {
	return orchestrator.RunOptions{MaxRounds: a.Config.MaxToolRounds, OrgName: a.Config.OrgName}
}

func newEmbeddingBackend(ctx context.Context, cfg *config.Config) (core.EmbeddingBackend, error) {
	switch cfg.EmbedProvider {
	case "gemini":
		return llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
	case "voyage":
		if cfg.VoyageAPIKey == "" {
			logger.Warnw("VOYAGE_API_KEY is not set, embedding calls will fail")
		}
		return llm.NewVoyageEmbedder(llm.VoyageConfig{
			APIKey:  cfg.VoyageAPIKey,
			BaseURL: cfg.VoyageBaseURL,
			Model:   cfg.EmbedModel,
		}), nil
	default:
		return nil, &core.ConfigurationError{Setting: "EMBED_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", cfg.EmbedProvider)}
	}
}

func newCheckpointStore(ctx context.Context, cfg *config.Config) (checkpoint.Store, error) {
	if cfg.RedisURL == "" {
		logger.Warnw("REDIS_URL not set, step checkpoints are kept in memory and lost on restart")
		return checkpoint.NewMemoryStore(), nil
	}
	return checkpoint.NewRedisStore(ctx, cfg.RedisURL)
}

// Close drains background ingestion and releases every connection.
func (a *App) Close() {
	if a.Queue != nil {
		if err := a.Queue.Close(30 * time.Second); err != nil {
			logger.Warnw("ingestion pool did not release cleanly", "error", err)
		}
	}
	closeAll(a.closers)
}

func closeAll(closers []io.Closer) {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warnw("error while closing resources", "error", err)
	}
}
