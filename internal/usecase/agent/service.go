// Package agent runs the tool-calling chat loop: the model answers gift
// questions by invoking the catalog search, product lookup, and generative-UI
// render tools. History is kept in memory per session.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/search/query"
	"github.com/regalo-labs/giftfinder/internal/domain/search/result"
	"github.com/regalo-labs/giftfinder/internal/domain/search/sortmode"
	"github.com/regalo-labs/giftfinder/internal/domain/ui/component"
	uischema "github.com/regalo-labs/giftfinder/internal/domain/ui/schema"
	"github.com/regalo-labs/giftfinder/internal/logger"
	"github.com/regalo-labs/giftfinder/internal/usecase/render"
)

const systemPrompt = "You are GiftFinder, an assistant for choosing gifts. " +
	"Never invent products: propose only items returned by the search tool. " +
	"When the user asks for ideas, call search_catalog right away with include_details=true " +
	"and show a handful of relevant results. " +
	"If a search returns zero items, retry once with expanded=true before telling the user. " +
	"Use render_ui to present product lists visually. " +
	"Ask at most one or two clarifying questions (budget, recipient, occasion), " +
	"but never block the first proposal on them."

// Reply is one agent turn: the assistant text plus any UI trees rendered
// through the render tool during the turn.
type Reply struct {
	Text string           `json:"text"`
	UI   []render.Element `json:"ui,omitempty"`
}

// Service is the chat agent.
type Service struct {
	llm       ChatCompleter
	search    Searcher
	products  ProductGetter
	renderer  Renderer
	reg       *component.Registry
	tools     []openai.Tool
	model     string
	maxRounds int

	mu       sync.Mutex
	sessions map[string][]openai.ChatCompletionMessage
}

// New creates an agent service. The registry must be the one the renderer
// executes: the render tool's parameter schema and the strict payload gate
// are both derived from it.
func New(
	llm ChatCompleter,
	search Searcher,
	products ProductGetter,
	renderer Renderer,
	reg *component.Registry,
	model string,
	maxRounds int,
) *Service {
	return &Service{
		llm:       llm,
		search:    search,
		products:  products,
		renderer:  renderer,
		reg:       reg,
		tools:     buildTools(uischema.Build(reg)),
		model:     model,
		maxRounds: maxRounds,
		sessions:  make(map[string][]openai.ChatCompletionMessage),
	}
}

// Ask runs one user turn through the tool-dispatch loop.
func (s *Service) Ask(ctx context.Context, sessionID, userText string) (Reply, error) {
	if userText == "" {
		return Reply{}, fmt.Errorf("%w: message is required", domain.ErrInvalidRequest)
	}

	msgs := s.history(sessionID)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	var reply Reply

	for round := 0; round < s.maxRounds; round++ {
		resp, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.model,
			Messages:    msgs,
			Tools:       s.tools,
			Temperature: 0.3,
		})
		if err != nil {
			return Reply{}, fmt.Errorf("chat completion: %v: %w", err, domain.ErrEmbeddingProviderError)
		}
		if len(resp.Choices) == 0 {
			return Reply{}, fmt.Errorf("chat completion: empty response: %w", domain.ErrEmbeddingProviderError)
		}

		msg := resp.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			reply.Text = msg.Content
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			})
			s.save(sessionID, msgs)
			return reply, nil
		}

		msgs = append(msgs, msg)
		for _, tc := range msg.ToolCalls {
			out := s.dispatch(ctx, tc.Function.Name, tc.Function.Arguments, &reply)
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: tc.ID,
				Content:    out,
			})
		}
	}

	return Reply{}, fmt.Errorf("tool loop did not converge after %d rounds", s.maxRounds)
}

// Reset drops the in-memory history for one session.
func (s *Service) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *Service) history(sessionID string) []openai.ChatCompletionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.sessions[sessionID]
	msgs := make([]openai.ChatCompletionMessage, 0, len(stored)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	if len(stored) > 0 {
		msgs = append(msgs, stored...)
	}
	return msgs
}

func (s *Service) save(sessionID string, msgs []openai.ChatCompletionMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The system prompt is re-prepended on every turn; don't store it.
	if len(msgs) > 0 && msgs[0].Role == openai.ChatMessageRoleSystem {
		msgs = msgs[1:]
	}
	s.sessions[sessionID] = msgs
}

// dispatch executes one tool call and returns the JSON payload for the tool
// message. Tool failures are reported to the model as neutral errors: provider
// and index error text never reaches the conversation.
func (s *Service) dispatch(ctx context.Context, name, arguments string, reply *Reply) string {
	switch name {
	case toolSearchCatalog:
		return s.dispatchSearch(ctx, arguments)
	case toolGetProduct:
		return s.dispatchGetProduct(ctx, arguments)
	case toolRenderUI:
		return s.dispatchRender(ctx, arguments, reply)
	}
	return toolError(fmt.Sprintf("unknown tool %s", name))
}

type searchArgs struct {
	QueryText      string   `json:"query_text"`
	K              int      `json:"k"`
	MinPrice       *float64 `json:"min_price"`
	MaxPrice       *float64 `json:"max_price"`
	IncludeDetails *bool    `json:"include_details"`
	Expanded       bool     `json:"expanded"`
	SortBy         string   `json:"sort_by"`
	DetailFields   []string `json:"detail_fields"`
}

func (s *Service) dispatchSearch(ctx context.Context, arguments string) string {
	var args searchArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return toolError("invalid search arguments")
	}

	includeDetails := true
	if args.IncludeDetails != nil {
		includeDetails = *args.IncludeDetails
	}

	q, err := query.New(
		args.QueryText, args.K,
		args.MinPrice, args.MaxPrice,
		includeDetails, args.Expanded,
		sortmode.Mode(args.SortBy),
	)
	if err != nil {
		return toolError(err.Error())
	}

	env, err := s.search.Search(ctx, &q)
	if err != nil {
		logger.FromContext(ctx).Warn("search tool failed", zap.Error(err))
		return toolError("search is currently unavailable")
	}

	out, err := json.Marshal(searchToolPayload(env, args.DetailFields))
	if err != nil {
		return toolError("search result could not be encoded")
	}
	return string(out)
}

// toolItem mirrors a search hit with the joined detail trimmed to the
// requested field subset; the shadowed Product keeps full records out of the
// conversation.
type toolItem struct {
	result.Item
	Product map[string]any `json:"product,omitempty"`
}

type toolEnvelope struct {
	result.Envelope
	Items []toolItem `json:"items"`
}

func searchToolPayload(env result.Envelope, fields []string) toolEnvelope {
	out := toolEnvelope{Envelope: env, Items: make([]toolItem, len(env.Items))}
	for i, it := range env.Items {
		out.Items[i] = toolItem{Item: it, Product: it.Product.PickFields(fields)}
	}
	return out
}

func (s *Service) dispatchGetProduct(ctx context.Context, arguments string) string {
	var args struct {
		Code         string   `json:"code"`
		DetailFields []string `json:"detail_fields"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args.Code == "" {
		return toolError("missing product code")
	}

	p, found, err := s.products.Get(ctx, args.Code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			return toolError("missing product code")
		}
		logger.FromContext(ctx).Warn("get_product tool failed", zap.Error(err))
		return toolError("product lookup is currently unavailable")
	}

	out, _ := json.Marshal(map[string]any{
		"found":   found,
		"code":    args.Code,
		"product": p.PickFields(args.DetailFields),
	})
	return string(out)
}

func (s *Service) dispatchRender(ctx context.Context, arguments string, reply *Reply) string {
	var args struct {
		Root json.RawMessage `json:"root"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || len(args.Root) == 0 {
		return toolError("missing ui root node")
	}

	// Model output is held to the full generation contract so the model can
	// correct itself; the renderer's skip-bad-children tolerance is for trees
	// replayed from clients, not freshly generated ones.
	if err := uischema.Validate(s.reg, args.Root); err != nil {
		return toolError("ui payload rejected: " + err.Error())
	}

	el, err := s.renderer.Render(ctx, args.Root)
	if err != nil {
		return toolError("ui payload rejected: " + err.Error())
	}

	reply.UI = append(reply.UI, el)
	return `{"rendered":true}`
}

func toolError(msg string) string {
	out, _ := json.Marshal(map[string]string{"error": msg})
	return string(out)
}
