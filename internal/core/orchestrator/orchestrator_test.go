package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/coretest"
	"github.com/markdave123-py/salesbrain/internal/models"
)

func userTurn(text string) []core.Message {
	return []core.Message{{Role: core.RoleUser, Content: text}}
}

func TestRun_EmptyCatalogAnswersUngrounded(t *testing.T) {
	llm := &coretest.ScriptedLLM{Responses: []*core.ChatResponse{{Text: "Generally speaking, SSO is supported.", FinishReason: "STOP"}}}
	o := New(llm, catalog(t), &stubSearcher{})

	res, err := o.Run(context.Background(), userTurn("Do we support SSO?"), RunOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Text)
	assert.Equal(t, 0, res.ToolCallCount)
	assert.Equal(t, "STOP", res.FinishReason)

	require.Len(t, llm.Requests, 1)
	assert.Empty(t, llm.Requests[0].Tools)
}

func TestRun_ToolRoundsAndCount(t *testing.T) {
	db := catalog(t,
		models.Product{ID: "p1", Name: "Acme"},
		models.Product{ID: "p2", Name: "Globex"},
	)
	searcher := &stubSearcher{results: map[string][]models.SearchResult{
		"p1": {{Content: "Acme has SSO.", Similarity: 0.8}},
	}}
	llm := &coretest.ScriptedLLM{Responses: []*core.ChatResponse{
		{ToolCalls: []core.ToolCall{
			{ID: "call_0", Name: "search_acme", Args: map[string]any{"query": "sso"}},
			{ID: "call_1", Name: "search_globex", Args: map[string]any{"query": "sso"}},
		}},
		{ToolCalls: []core.ToolCall{
			{ID: "call_0", Name: "search_acme", Args: map[string]any{"query": "saml"}},
		}},
		{Text: "Acme supports SSO; Globex docs do not say.", FinishReason: "STOP"},
	}}

	res, err := New(llm, db, searcher).Run(context.Background(), userTurn("Compare SSO"), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ToolCallCount)
	assert.Equal(t, "Acme supports SSO; Globex docs do not say.", res.Text)

	require.Len(t, llm.Requests, 3)
	second := llm.Requests[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, core.RoleAssistant, second[1].Role)
	assert.Equal(t, core.RoleTool, second[2].Role)
	require.Len(t, second[2].ToolResults, 2)
	assert.Equal(t, "call_0", second[2].ToolResults[0].CallID)
	assert.Contains(t, second[2].ToolResults[0].Content, "=== Knowledge from Acme ===")
	assert.Equal(t, "No relevant information found for Globex.", second[2].ToolResults[1].Content)
	assert.Len(t, llm.Requests[2].Messages, 5)
}

func TestRun_FinalRoundOffersNoTools(t *testing.T) {
	db := catalog(t, models.Product{ID: "p1", Name: "Acme"})
	loop := &core.ChatResponse{ToolCalls: []core.ToolCall{{ID: "c", Name: "search_acme", Args: map[string]any{"query": "q"}}}}
	llm := &coretest.ScriptedLLM{Fallback: loop}

	res, err := New(llm, db, &stubSearcher{}).Run(context.Background(), userTurn("?"), RunOptions{MaxRounds: 3})
	require.NoError(t, err)

	require.Len(t, llm.Requests, 3)
	assert.NotEmpty(t, llm.Requests[0].Tools)
	assert.NotEmpty(t, llm.Requests[1].Tools)
	assert.Empty(t, llm.Requests[2].Tools)
	assert.Equal(t, 2, res.ToolCallCount)
	assert.NotEmpty(t, res.Text)
}

func TestRun_SearchFailureDegradesInsteadOfAborting(t *testing.T) {
	db := catalog(t, models.Product{ID: "p1", Name: "Acme"})
	searcher := &stubSearcher{errs: map[string]error{"p1": &core.SearchError{ProductID: "p1", Err: errors.New("db down")}}}
	llm := &coretest.ScriptedLLM{Responses: []*core.ChatResponse{
		{ToolCalls: []core.ToolCall{{ID: "c", Name: "search_acme", Args: map[string]any{"query": "q"}}}},
		{Text: "Acme docs are unavailable right now.", FinishReason: "STOP"},
	}}

	res, err := New(llm, db, searcher).Run(context.Background(), userTurn("?"), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ToolCallCount)

	toolMsg := llm.Requests[1].Messages[2]
	assert.Contains(t, toolMsg.ToolResults[0].Content, "Acme knowledge base is temporarily unavailable")
}

func TestRun_UnknownToolIsReportedToModel(t *testing.T) {
	db := catalog(t, models.Product{ID: "p1", Name: "Acme"})
	llm := &coretest.ScriptedLLM{Responses: []*core.ChatResponse{
		{ToolCalls: []core.ToolCall{{ID: "c", Name: "search_nope", Args: map[string]any{"query": "q"}}}},
		{Text: "done"},
	}}

	_, err := New(llm, db, &stubSearcher{}).Run(context.Background(), userTurn("?"), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Unknown tool: search_nope", llm.Requests[1].Messages[2].ToolResults[0].Content)
}

func TestRun_ModelErrorPropagates(t *testing.T) {
	llm := &coretest.ScriptedLLM{Err: errors.New("quota exceeded")}
	_, err := New(llm, catalog(t), &stubSearcher{}).Run(context.Background(), userTurn("?"), RunOptions{})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestRun_EmptyConversation(t *testing.T) {
	_, err := New(&coretest.ScriptedLLM{}, catalog(t), &stubSearcher{}).Run(context.Background(), nil, RunOptions{})
	assert.Error(t, err)
}

func TestSystemPrompt(t *testing.T) {
	db := catalog(t,
		models.Product{ID: "p1", Name: "Acme", SystemPrompt: "Always mention the 30-day trial."},
		models.Product{ID: "p2", Name: "Globex"},
	)
	ts, err := BuildTools(context.Background(), db, &stubSearcher{})
	require.NoError(t, err)

	prompt := SystemPrompt("Initech", ts)
	assert.Contains(t, prompt, "VP of Product Marketing at Initech")
	assert.Contains(t, prompt, "Additional guidance for Acme:\nAlways mention the 30-day trial.")
	assert.NotContains(t, prompt, "guidance for Globex")

	empty, err := BuildTools(context.Background(), catalog(t), &stubSearcher{})
	require.NoError(t, err)
	assert.Contains(t, SystemPrompt("", empty), "at this company")
}
