package agent

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/regalo-labs/giftfinder/internal/domain/search/query"
	uischema "github.com/regalo-labs/giftfinder/internal/domain/ui/schema"
)

// Tool names the model may call.
const (
	toolSearchCatalog = "search_catalog"
	toolGetProduct    = "get_product"
	toolRenderUI      = "render_ui"
)

// buildTools assembles the tool set. The render tool's parameter schema is
// the component schema itself: the model is constrained to the registered
// component shapes by construction.
func buildTools(ui uischema.Schema) []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name: toolSearchCatalog,
				Description: "Semantic KNN search on the product index with optional price filters. " +
					"Returns top products, optionally with full details. " +
					"Zero results are not an error: retry once with expanded=true.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query_text": map[string]any{"type": "string"},
						"k": map[string]any{
							"type": "integer", "minimum": 1, "maximum": 50, "default": query.DefaultK,
						},
						"min_price": map[string]any{"type": "number"},
						"max_price": map[string]any{"type": "number"},
						"include_details": map[string]any{
							"type":        "boolean",
							"description": "If true, attach the full product record to each hit.",
							"default":     true,
						},
						"expanded": map[string]any{
							"type":        "boolean",
							"description": "Broadened high-recall mode; use after an empty result.",
						},
						"sort_by": map[string]any{
							"type": "string",
							"enum": []string{"relevance", "price_asc", "price_desc"},
						},
						"detail_fields": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Subset of product fields to return; omit for the default useful set.",
						},
					},
					"required": []string{"query_text"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolGetProduct,
				Description: "Fetch one product's detail record by product code.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"code": map[string]any{"type": "string"},
						"detail_fields": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Subset of product fields to return; omit for the default useful set.",
						},
					},
					"required":             []string{"code"},
					"additionalProperties": false,
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name: toolRenderUI,
				Description: "Render a UI component tree for the user. " +
					"The root must be one of the registered component shapes.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"root": ui,
					},
					"required":             []string{"root"},
					"additionalProperties": false,
				},
			},
		},
	}
}
