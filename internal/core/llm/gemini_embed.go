package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/salesbrain/internal/core"
)

// Gemini accepts at most 100 requests per batchEmbedContents call.
const geminiMaxBatch = 100

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
}

var _ core.EmbeddingBackend = (*GeminiEmbedder)(nil)

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, &core.ConfigurationError{Setting: "GEMINI_API_KEY", Reason: "is not set"}
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiEmbedder) MaxBatchSize() int { return geminiMaxBatch }

// EmbedBatch sends all texts in one BatchEmbedContents request. Gemini answers
// positionally, so each vector is tagged with its input position.
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string, mode core.EmbedMode) ([]core.IndexedEmbedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := g.client.EmbeddingModel(g.modelName)
	em.TaskType = geminiTaskType(mode)

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini batch embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([]core.IndexedEmbedding, 0, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out = append(out, core.IndexedEmbedding{Index: i, Vector: e.Values})
	}
	return out, nil
}

func geminiTaskType(mode core.EmbedMode) genai.TaskType {
	if mode == core.EmbedQuery {
		return genai.TaskTypeRetrievalQuery
	}
	return genai.TaskTypeRetrievalDocument
}
