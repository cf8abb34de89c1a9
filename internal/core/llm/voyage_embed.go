package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/markdave123-py/salesbrain/internal/core"
)

const (
	DefaultVoyageBaseURL = "https://api.voyageai.com/v1"
	DefaultVoyageModel   = "voyage-3"
	voyageMaxBatch       = 128
)

// VoyageConfig holds configuration for the Voyage embedding backend.
type VoyageConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// VoyageEmbedder calls the Voyage embeddings endpoint.
type VoyageEmbedder struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

var _ core.EmbeddingBackend = (*VoyageEmbedder)(nil)

type voyageRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewVoyageEmbedder never fails on a missing key; EmbedBatch reports it when called.
func NewVoyageEmbedder(cfg VoyageConfig) *VoyageEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultVoyageBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVoyageModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &VoyageEmbedder{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

func (v *VoyageEmbedder) MaxBatchSize() int { return voyageMaxBatch }

func (v *VoyageEmbedder) EmbedBatch(ctx context.Context, texts []string, mode core.EmbedMode) ([]core.IndexedEmbedding, error) {
	if v.apiKey == "" {
		return nil, &core.ConfigurationError{Setting: "VOYAGE_API_KEY", Reason: "is not set"}
	}
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(voyageRequest{Input: texts, Model: v.model, InputType: string(mode)})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.EmbeddingServiceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var embedResp voyageResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]core.IndexedEmbedding, 0, len(embedResp.Data))
	for _, d := range embedResp.Data {
		out = append(out, core.IndexedEmbedding{Index: d.Index, Vector: d.Embedding})
	}
	return out, nil
}
