package coretest

import (
	"context"
	"sync"

	"github.com/markdave123-py/salesbrain/internal/core"
)

// HashEmbedder derives a small deterministic vector from each text.
type HashEmbedder struct {
	mu sync.Mutex
	// Err, when set, is returned by every call.
	Err        error
	DocCalls   int
	QueryCalls int
	// FailFirst makes the first N EmbedDocuments calls fail with Err.
	FailFirst int
}

var _ core.EmbeddingProvider = (*HashEmbedder)(nil)

func (h *HashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.QueryCalls++
	if h.Err != nil {
		return nil, h.Err
	}
	return Vector(text), nil
}

func (h *HashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.DocCalls++
	if h.Err != nil && (h.FailFirst == 0 || h.DocCalls <= h.FailFirst) {
		return nil, h.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Vector(t)
	}
	return out, nil
}

// Vector is the embedding HashEmbedder returns for text.
func Vector(text string) []float32 {
	v := make([]float32, 4)
	for i, r := range text {
		v[i%4] += float32(r % 17)
	}
	v[0]++
	return v
}

// ScriptedLLM replays canned responses for Complete and records every request.
type ScriptedLLM struct {
	mu        sync.Mutex
	Responses []*core.ChatResponse
	Requests  []core.ChatRequest
	// Fallback answers once Responses is exhausted.
	Fallback *core.ChatResponse
	// GenerateText and GenerateErr drive Generate.
	GenerateText string
	GenerateErr  error
	Err          error
}

var _ core.LLMProvider = (*ScriptedLLM)(nil)

func (s *ScriptedLLM) Generate(_ context.Context, _, _ string) (string, error) {
	return s.GenerateText, s.GenerateErr
}

func (s *ScriptedLLM) Complete(_ context.Context, req core.ChatRequest) (*core.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Responses) == 0 {
		if s.Fallback != nil {
			return s.Fallback, nil
		}
		return &core.ChatResponse{Text: "I could not find anything specific.", FinishReason: "STOP"}, nil
	}
	resp := s.Responses[0]
	s.Responses = s.Responses[1:]
	return resp, nil
}
