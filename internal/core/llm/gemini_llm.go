package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/salesbrain/internal/core"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

var _ core.LLMProvider = (*GeminiLLM)(nil)

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, &core.ConfigurationError{Setting: "GEMINI_API_KEY", Reason: "is not set"}
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return parseResponse(resp).Text, nil
}

// Complete sends the conversation as chat history and returns the model's next turn.
func (g *GeminiLLM) Complete(ctx context.Context, req core.ChatRequest) (*core.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("gemini complete: empty conversation")
	}

	m := g.client.GenerativeModel(g.modelName)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if len(req.Tools) > 0 {
		m.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations(req.Tools)}}
	}

	contents := toContents(req.Messages)
	cs := m.StartChat()
	cs.History = contents[:len(contents)-1]

	resp, err := cs.SendMessage(ctx, contents[len(contents)-1].Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini complete: %w", err)
	}
	return parseResponse(resp), nil
}

func functionDeclarations(tools []core.ToolSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		out = append(out, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {Type: genai.TypeString, Description: t.QueryDescription},
				},
				Required: []string{"query"},
			},
		})
	}
	return out
}

// toContents maps conversation turns onto Gemini roles. Tool results travel
// back as function responses in a user turn.
func toContents(msgs []core.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleAssistant:
			c := &genai.Content{Role: "model"}
			if msg.Content != "" {
				c.Parts = append(c.Parts, genai.Text(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				c.Parts = append(c.Parts, genai.FunctionCall{Name: call.Name, Args: call.Args})
			}
			if len(c.Parts) == 0 {
				c.Parts = append(c.Parts, genai.Text(""))
			}
			out = append(out, c)
		case core.RoleTool:
			c := &genai.Content{Role: "user"}
			for _, res := range msg.ToolResults {
				c.Parts = append(c.Parts, genai.FunctionResponse{
					Name:     res.Name,
					Response: map[string]any{"content": res.Content},
				})
			}
			out = append(out, c)
		default:
			out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	return out
}

func parseResponse(resp *genai.GenerateContentResponse) *core.ChatResponse {
	out := &core.ChatResponse{}
	if resp == nil || len(resp.Candidates) == 0 {
		return out
	}
	cand := resp.Candidates[0]
	out.FinishReason = cand.FinishReason.String()
	if cand.Content == nil {
		return out
	}

	var b strings.Builder
	for _, p := range cand.Content.Parts {
		switch v := p.(type) {
		case genai.Text:
			b.WriteString(string(v))
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{
				ID:   fmt.Sprintf("call_%d", len(out.ToolCalls)),
				Name: v.Name,
				Args: v.Args,
			})
		}
	}
	out.Text = b.String()
	return out
}
