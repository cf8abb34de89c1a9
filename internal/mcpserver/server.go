// Package mcpserver exposes the per-product knowledge base search tools over
// the Model Context Protocol.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/markdave123-py/salesbrain/internal/core/orchestrator"
	"github.com/markdave123-py/salesbrain/internal/core/retrieval"
)

const (
	Version = "0.1.0"

	// DefaultRefreshInterval is how often Run re-reads the product catalog.
	DefaultRefreshInterval = 30 * time.Second
)

var ErrMissingDependency = errors.New("mcp server needs a product catalog and a searcher")

// SearchInput is the argument of every product search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the specific question or topic to search for"`
	MatchCount int    `json:"matchCount,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// SearchOutput is the structured result of a product search tool.
type SearchOutput struct {
	Product string `json:"product"`
	Count   int    `json:"count"`
	Context string `json:"context"`
}

// Server publishes one search tool per product.
type Server struct {
	catalog  orchestrator.ProductLister
	searcher orchestrator.Searcher
	server   *mcp.Server

	mu    sync.Mutex
	tools map[string]*orchestrator.Tool
}

func NewServer(ctx context.Context, catalog orchestrator.ProductLister, searcher orchestrator.Searcher) (*Server, error) {
	if catalog == nil || searcher == nil {
		return nil, ErrMissingDependency
	}
	s := &Server{
		catalog:  catalog,
		searcher: searcher,
		server:   mcp.NewServer(&mcp.Implementation{Name: "salesbrain", Version: Version}, nil),
		tools:    make(map[string]*orchestrator.Tool),
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh re-reads the catalog, registering tools for new products and
// dropping tools of deleted ones.
func (s *Server) Refresh(ctx context.Context) error {
	set, err := orchestrator.BuildTools(ctx, s.catalog, s.searcher)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []string
	for name := range s.tools {
		if _, ok := set.Get(name); !ok {
			stale = append(stale, name)
			delete(s.tools, name)
		}
	}
	if len(stale) > 0 {
		s.server.RemoveTools(stale...)
	}

	for _, name := range set.Names() {
		tool, _ := set.Get(name)
		if prev, ok := s.tools[name]; ok && prev.Product.ID == tool.Product.ID && prev.Spec == tool.Spec {
			continue
		}
		s.tools[name] = tool
		mcp.AddTool(s.server, &mcp.Tool{Name: tool.Spec.Name, Description: tool.Spec.Description}, s.handler(name))
	}
	logger.Debugw("mcp tools refreshed", "tools", len(s.tools), "removed", len(stale))
	return nil
}

// ToolNames lists the registered tools, sorted.
func (s *Server) ToolNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) handler(name string) mcp.ToolHandlerFor[SearchInput, SearchOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
		return s.handleSearch(ctx, name, input)
	}
}

func (s *Server) handleSearch(ctx context.Context, name string, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	s.mu.Lock()
	tool, ok := s.tools[name]
	s.mu.Unlock()
	if !ok {
		return nil, SearchOutput{}, fmt.Errorf("unknown tool: %s", name)
	}
	if input.Query == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}

	var opts []retrieval.SearchOption
	if input.MatchCount > 0 {
		opts = append(opts, retrieval.WithMatchCount(input.MatchCount))
	}
	results, err := s.searcher.Search(ctx, tool.Product.ID, input.Query, opts...)
	if err != nil {
		logger.Warnw("mcp search failed", "tool", name, "product_id", tool.Product.ID, "error", err)
		return nil, SearchOutput{}, err
	}

	text := retrieval.FormatSearchResults(results, tool.Product.Name)
	out := SearchOutput{Product: tool.Product.Name, Count: len(results), Context: text}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, out, nil
}

// Run serves over stdio until ctx is cancelled, refreshing the tool list
// every interval.
func (s *Server) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
					logger.Warnw("mcp tool refresh failed", "error", err)
				}
			}
		}
	}()
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
