package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/retrieval"
	"github.com/markdave123-py/salesbrain/internal/models"
)

const (
	toolPrefix     = "search_"
	maxToolNameLen = 64
)

// ProductLister reads the product catalog in a stable order.
type ProductLister interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// Searcher is the vector search a tool runs.
type Searcher interface {
	Search(ctx context.Context, productID, query string, opts ...retrieval.SearchOption) ([]models.SearchResult, error)
}

// ToolName derives the tool exposed for a product: "search_" plus the
// lower-cased name with every run of non-alphanumerics collapsed to "_".
func ToolName(productName string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(productName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	slug := b.String()
	if slug == "" {
		slug = "product"
	}
	return truncate(toolPrefix+slug, maxToolNameLen)
}

func truncate(name string, n int) string {
	if len(name) <= n {
		return name
	}
	return strings.TrimRight(name[:n], "_")
}

// CheckToolName fails with a ToolNameCollisionError when name would map to
// the same tool as a product already in the catalog.
func CheckToolName(catalog []models.Product, name string) error {
	want := ToolName(name)
	for _, p := range catalog {
		if ToolName(p.Name) == want {
			return &core.ToolNameCollisionError{ToolName: want, Products: []string{p.Name, name}}
		}
	}
	return nil
}

// Tool is one callable product search.
type Tool struct {
	Spec    core.ToolSpec
	Product models.Product
	run     func(ctx context.Context, query string) (string, error)
}

// Execute runs the search and returns the formatted context.
func (t *Tool) Execute(ctx context.Context, query string) (string, error) {
	return t.run(ctx, query)
}

// ToolSet is the registry of tools for one orchestration call, in catalog order.
type ToolSet struct {
	byName map[string]*Tool
	order  []string
}

func (ts *ToolSet) Len() int { return len(ts.order) }

func (ts *ToolSet) Get(name string) (*Tool, bool) {
	t, ok := ts.byName[name]
	return t, ok
}

func (ts *ToolSet) Names() []string {
	return append([]string(nil), ts.order...)
}

func (ts *ToolSet) Specs() []core.ToolSpec {
	out := make([]core.ToolSpec, 0, len(ts.order))
	for _, name := range ts.order {
		out = append(out, ts.byName[name].Spec)
	}
	return out
}

// Products returns the products behind the tools, in catalog order.
func (ts *ToolSet) Products() []models.Product {
	out := make([]models.Product, 0, len(ts.order))
	for _, name := range ts.order {
		out = append(out, ts.byName[name].Product)
	}
	return out
}

// BuildTools reads the catalog and creates one search tool per product. It is
// meant to be called per conversation turn so new products show up at once.
// Products whose derived names collide get numeric suffixes in catalog order.
func BuildTools(ctx context.Context, catalog ProductLister, searcher Searcher) (*ToolSet, error) {
	products, err := catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		logger.Warnw("no products in catalog, tool set is empty")
	}

	ts := &ToolSet{byName: make(map[string]*Tool, len(products))}
	for _, p := range products {
		name := uniqueName(ts.byName, ToolName(p.Name))
		if name != ToolName(p.Name) {
			logger.Warnw("tool name collision, using suffixed name",
				"product_id", p.ID, "product", p.Name, "tool", name)
		}
		ts.byName[name] = newTool(name, p, searcher)
		ts.order = append(ts.order, name)
	}
	return ts, nil
}

func uniqueName(taken map[string]*Tool, base string) string {
	if _, ok := taken[base]; !ok {
		return base
	}
	for i := 2; ; i++ {
		suffix := fmt.Sprintf("_%d", i)
		candidate := truncate(base, maxToolNameLen-len(suffix)) + suffix
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

func newTool(name string, p models.Product, searcher Searcher) *Tool {
	desc := fmt.Sprintf("Search the knowledge base for information about %s.", p.Name)
	if d := strings.TrimSpace(p.Description); d != "" {
		desc += " " + strings.TrimSuffix(d, ".") + "."
	}
	desc += fmt.Sprintf(" Use this tool when the user asks about %s features, pricing, use cases, or competitive positioning.", p.Name)

	return &Tool{
		Spec: core.ToolSpec{
			Name:             name,
			Description:      desc,
			QueryDescription: fmt.Sprintf("The specific question or topic to search for within %s documentation", p.Name),
		},
		Product: p,
		run: func(ctx context.Context, query string) (string, error) {
			if strings.TrimSpace(query) == "" {
				return "", errors.New("missing query argument")
			}
			results, err := searcher.Search(ctx, p.ID, query)
			if err != nil {
				return "", err
			}
			return retrieval.FormatSearchResults(results, p.Name), nil
		},
	}
}
