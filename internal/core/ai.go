package core

import "context"

// EmbedMode selects the instruction the embedding model receives.
// Queries and passages are embedded asymmetrically.
type EmbedMode string

const (
	EmbedQuery    EmbedMode = "query"
	EmbedDocument EmbedMode = "document"
)

// IndexedEmbedding is one vector of a batch response, tagged with the position
// of the input it belongs to.
type IndexedEmbedding struct {
	Index  int
	Vector []float32
}

// EmbeddingBackend performs one call to an external embedding service.
// Results may come back in any order; Index links them to the request.
type EmbeddingBackend interface {
	EmbedBatch(ctx context.Context, texts []string, mode EmbedMode) ([]IndexedEmbedding, error)
	// MaxBatchSize is the largest number of inputs accepted per call.
	MaxBatchSize() int
}

// EmbeddingProvider is what retrieval and ingestion depend on.
type EmbeddingProvider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Role of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model request to run one tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult answers one ToolCall.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
}

// Message is one conversation turn. Assistant turns may carry tool calls,
// tool turns carry the matching results.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"-"`
	ToolResults []ToolResult `json:"-"`
}

// ToolSpec describes a tool that takes a single free-text query argument.
type ToolSpec struct {
	Name             string
	Description      string
	QueryDescription string
}

type ChatRequest struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
}

type ChatResponse struct {
	Text         string
	ToolCalls    []ToolCall
	FinishReason string
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
	// Complete runs one model round; the response either answers or requests tools.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
