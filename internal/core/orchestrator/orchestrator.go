// Package orchestrator drives the tool-calling conversation between the
// language model and the per-product search tools.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/logger"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/salesbrain/internal/core"
)

const DefaultMaxRounds = 5

const salesEnablementPrompt = `You are the VP of Product Marketing at %s. You have deep, authoritative knowledge of every product and feature in the portfolio.

Your role is to help sales representatives understand our products so they can close deals confidently.

Guidelines:
- Answer in a direct, confident, business-oriented tone, like a seasoned VP talking to their sales team
- When comparing products or features, be clear about differentiation and competitive advantages
- Always ground your answers in the actual product documentation retrieved by your tools
- If information spans multiple products, synthesize it into a cohesive narrative
- Flag gaps if a topic isn't covered in the available documentation
- Keep answers concise but complete; sales reps need to act fast

You have access to the full product knowledge base through specialized search tools. Use them to retrieve the most relevant information before answering.`

const emptyAnswer = "I wasn't able to put together an answer this time. Please try rephrasing the question."

type RunOptions struct {
	MaxRounds int
	OrgName   string
}

type Result struct {
	Text          string `json:"response"`
	ToolCallCount int    `json:"toolCallCount"`
	FinishReason  string `json:"finishReason"`
}

type Orchestrator struct {
	llm      core.LLMProvider
	catalog  ProductLister
	searcher Searcher
}

func New(llm core.LLMProvider, catalog ProductLister, searcher Searcher) *Orchestrator {
	return &Orchestrator{llm: llm, catalog: catalog, searcher: searcher}
}

// Run answers the last user turn of conversation. Each round the model either
// answers or calls tools; tool calls of one round run concurrently and their
// output is fed back for the next round. The final round offers no tools so
// the model has to answer.
func (o *Orchestrator) Run(ctx context.Context, conversation []core.Message, opts RunOptions) (*Result, error) {
	if len(conversation) == 0 {
		return nil, errors.New("empty conversation")
	}
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	tools, err := BuildTools(ctx, o.catalog, o.searcher)
	if err != nil {
		return nil, err
	}

	msgs := append([]core.Message(nil), conversation...)
	req := core.ChatRequest{System: SystemPrompt(opts.OrgName, tools)}
	res := &Result{}

	for round := 1; round <= maxRounds; round++ {
		req.Messages = msgs
		req.Tools = nil
		if round < maxRounds && tools.Len() > 0 {
			req.Tools = tools.Specs()
		}

		resp, err := o.llm.Complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("model round %d: %w", round, err)
		}
		res.FinishReason = resp.FinishReason
		res.Text = resp.Text

		if len(resp.ToolCalls) == 0 || req.Tools == nil {
			break
		}

		res.ToolCallCount += len(resp.ToolCalls)
		logger.Infow("model requested tools", "round", round, "calls", len(resp.ToolCalls))

		results, err := o.executeTools(ctx, tools, resp.ToolCalls)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs,
			core.Message{Role: core.RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls},
			core.Message{Role: core.RoleTool, ToolResults: results},
		)
	}

	if strings.TrimSpace(res.Text) == "" {
		res.Text = emptyAnswer
	}
	return res, nil
}

// executeTools runs one round of tool calls. A failing tool yields a notice
// for the model instead of an error; only cancellation aborts the round.
func (o *Orchestrator) executeTools(ctx context.Context, tools *ToolSet, calls []core.ToolCall) ([]core.ToolResult, error) {
	results := make([]core.ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)

	for i, call := range calls {
		g.Go(func() error {
			results[i] = core.ToolResult{CallID: call.ID, Name: call.Name, Content: runTool(gctx, tools, call)}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runTool(ctx context.Context, tools *ToolSet, call core.ToolCall) string {
	tool, ok := tools.Get(call.Name)
	if !ok {
		logger.Warnw("model called unknown tool", "tool", call.Name)
		return fmt.Sprintf("Unknown tool: %s", call.Name)
	}

	query, _ := call.Args["query"].(string)
	out, err := tool.Execute(ctx, query)
	if err != nil {
		logger.Warnw("tool call failed", "tool", call.Name, "product_id", tool.Product.ID, "error", err)
		return fmt.Sprintf("The %s knowledge base is temporarily unavailable. Answer from other sources and say that this product could not be searched.", tool.Product.Name)
	}
	logger.Debugw("tool call finished", "tool", call.Name, "product_id", tool.Product.ID, "query", query)
	return out
}

// SystemPrompt builds the instruction for one conversation: the persona, the
// organisation name when known, and any per-product guidance.
func SystemPrompt(orgName string, tools *ToolSet) string {
	org := "this company"
	if n := strings.TrimSpace(orgName); n != "" {
		org = n
	}

	var b strings.Builder
	fmt.Fprintf(&b, salesEnablementPrompt, org)

	if tools.Len() == 0 {
		b.WriteString("\n\nNo product knowledge bases are available right now. Answer from general knowledge and say so.")
		return b.String()
	}
	for _, p := range tools.Products() {
		if guidance := strings.TrimSpace(p.SystemPrompt); guidance != "" {
			fmt.Fprintf(&b, "\n\nAdditional guidance for %s:\n%s", p.Name, guidance)
		}
	}
	return b.String()
}
