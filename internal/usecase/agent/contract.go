package agent

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/search/query"
	"github.com/regalo-labs/giftfinder/internal/domain/search/result"
	"github.com/regalo-labs/giftfinder/internal/usecase/render"
)

// ChatCompleter abstracts the chat completion API.
type ChatCompleter interface {
	CreateChatCompletion(
		ctx context.Context, req openai.ChatCompletionRequest,
	) (openai.ChatCompletionResponse, error)
}

// Searcher runs catalog searches for the search tool.
type Searcher interface {
	Search(ctx context.Context, q *query.Query) (result.Envelope, error)
}

// ProductGetter fetches one product for the detail tool.
type ProductGetter interface {
	Get(ctx context.Context, code string) (*domain.Product, bool, error)
}

// Renderer interprets UI trees emitted through the render tool.
type Renderer interface {
	Render(ctx context.Context, raw json.RawMessage) (render.Element, error)
}
