package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/finchdesk/finch/internal/knowledge"
)

// SearchFAQName is the Genkit tool name for FAQ retrieval.
const SearchFAQName = "search_faq"

// faqSearchDefaultTopK is used when the model omits top_k.
const faqSearchDefaultTopK = 2

// SearchFAQInput defines input for the search_faq tool.
type SearchFAQInput struct {
	Query string `json:"query" jsonschema_description:"What the customer wants to know, in their own words"`
	TopK  int    `json:"top_k,omitempty" jsonschema_description:"How many passages to return (default 2, max 5)"`
}

// FAQSearcher is the knowledge store surface the FAQ tool needs.
// Interface defined by the consumer; *knowledge.Store satisfies it.
type FAQSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]knowledge.Result, error)
}

// FAQ holds dependencies for the FAQ retrieval handler.
// store may be nil when the knowledge index could not be built; the tool
// then reports not-ready instead of failing the whole turn.
type FAQ struct {
	store  FAQSearcher
	logger *slog.Logger
}

// NewFAQ creates a FAQ toolset. A nil store is allowed (degraded mode).
func NewFAQ(store FAQSearcher, logger *slog.Logger) (*FAQ, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &FAQ{store: store, logger: logger}, nil
}

// RegisterFAQ registers the FAQ retrieval tool with Genkit.
func RegisterFAQ(g *genkit.Genkit, ft *FAQ) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if ft == nil {
		return nil, fmt.Errorf("FAQ is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, SearchFAQName,
			"Search the store FAQ for policy answers. "+
				"Returns the most relevant FAQ passages for the query. "+
				"Use this for questions about shipping, refunds, cancellation policy, "+
				"payment, or anything covered by store policy rather than a specific order.",
			ft.Search),
	}, nil
}

// Search retrieves the top FAQ passages for the query.
func (f *FAQ) Search(ctx *ai.ToolContext, input SearchFAQInput) (Result, error) {
	f.logger.Debug("Search called", "query", input.Query, "top_k", input.TopK)

	if f.store == nil {
		return failure(ErrCodeNotReady,
			"the FAQ knowledge base is not available right now"), nil
	}

	topK := input.TopK
	if topK <= 0 {
		topK = faqSearchDefaultTopK
	} else if topK > 5 {
		topK = 5
	}

	searchCtx := ctx.Context
	if searchCtx == nil {
		searchCtx = context.Background()
	}

	results, err := f.store.Search(searchCtx, input.Query, topK)
	if err != nil {
		return Result{}, fmt.Errorf("searching FAQ: %w", err)
	}

	passages := make([]map[string]any, len(results))
	for i, r := range results {
		passages[i] = map[string]any{
			"content":    r.Content,
			"similarity": r.Similarity,
		}
	}

	return success(map[string]any{
		"query":    input.Query,
		"passages": passages,
	}), nil
}
