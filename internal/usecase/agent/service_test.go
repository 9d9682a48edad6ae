package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/search/query"
	"github.com/regalo-labs/giftfinder/internal/domain/search/result"
	"github.com/regalo-labs/giftfinder/internal/domain/ui/component"
	"github.com/regalo-labs/giftfinder/internal/usecase/render"
)

// --- Mocks ---

// mockLLM replays scripted responses, one per completion call.
type mockLLM struct {
	responses []openai.ChatCompletionResponse
	err       error
	requests  []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(
	_ context.Context, req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.responses) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no scripted response")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

type mockSearcher struct {
	env   result.Envelope
	err   error
	lastQ *query.Query
}

func (m *mockSearcher) Search(_ context.Context, q *query.Query) (result.Envelope, error) {
	m.lastQ = q
	return m.env, m.err
}

type mockProducts struct {
	product *domain.Product
	found   bool
	err     error
}

func (m *mockProducts) Get(_ context.Context, _ string) (*domain.Product, bool, error) {
	return m.product, m.found, m.err
}

type mockRenderer struct {
	el    render.Element
	err   error
	calls int
}

func (m *mockRenderer) Render(_ context.Context, _ json.RawMessage) (render.Element, error) {
	m.calls++
	return m.el, m.err
}

func textResponse(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: text,
			},
		}},
	}
}

func toolCallResponse(name, arguments string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   "call-1",
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      name,
						Arguments: arguments,
					},
				}},
			},
		}},
	}
}

func newTestAgent(llm *mockLLM, search *mockSearcher, products *mockProducts, renderer *mockRenderer) *Service {
	return New(llm, search, products, renderer, component.Default(), "gpt-4o-mini", 4)
}

// --- Tests ---

func TestAsk_PlainTextReply(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{textResponse("What's your budget?")}}
	svc := newTestAgent(llm, &mockSearcher{}, &mockProducts{}, &mockRenderer{})

	reply, err := svc.Ask(context.Background(), "s1", "ciao")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "What's your budget?" {
		t.Errorf("unexpected reply: %q", reply.Text)
	}
	if len(reply.UI) != 0 {
		t.Errorf("expected no UI for a text turn")
	}
	if llm.requests[0].Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Error("expected system prompt first")
	}
	if len(llm.requests[0].Tools) != 3 {
		t.Errorf("expected 3 tools offered, got %d", len(llm.requests[0].Tools))
	}
}

func TestAsk_EmptyMessageRejected(t *testing.T) {
	svc := newTestAgent(&mockLLM{}, &mockSearcher{}, &mockProducts{}, &mockRenderer{})

	_, err := svc.Ask(context.Background(), "s1", "")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestAsk_SearchToolRoundTrip(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		toolCallResponse(toolSearchCatalog,
			`{"query_text": "agenda gatti", "k": 5, "max_price": 30, "sort_by": "price_asc"}`),
		textResponse("Here are some ideas."),
	}}
	search := &mockSearcher{env: result.Envelope{Count: 1, Items: []result.Item{{Code: "A1"}}}}
	svc := newTestAgent(llm, search, &mockProducts{}, &mockRenderer{})

	reply, err := svc.Ask(context.Background(), "s1", "regali per chi ama i gatti")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "Here are some ideas." {
		t.Errorf("unexpected reply: %q", reply.Text)
	}
	if search.lastQ == nil {
		t.Fatal("expected the search tool executed")
	}
	if search.lastQ.Text() != "agenda gatti" {
		t.Errorf("unexpected query text: %q", search.lastQ.Text())
	}
	if search.lastQ.MaxPrice() == nil || *search.lastQ.MaxPrice() != 30 {
		t.Error("expected max price forwarded")
	}

	// Second round must carry the tool result back to the model.
	second := llm.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != openai.ChatMessageRoleTool || last.ToolCallID != "call-1" {
		t.Fatalf("expected tool message last, got role=%s", last.Role)
	}
	if !strings.Contains(last.Content, `"A1"`) {
		t.Errorf("expected envelope in tool payload, got %s", last.Content)
	}
}

func TestAsk_SearchFailureIsNeutral(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		toolCallResponse(toolSearchCatalog, `{"query_text": "mug"}`),
		textResponse("Sorry, I couldn't complete that search."),
	}}
	search := &mockSearcher{err: errors.New("FT.SEARCH: connection refused to 10.0.0.7")}
	svc := newTestAgent(llm, search, &mockProducts{}, &mockRenderer{})

	if _, err := svc.Ask(context.Background(), "s1", "mug ideas"); err != nil {
		t.Fatalf("tool failure must not fail the turn: %v", err)
	}

	second := llm.requests[1].Messages
	toolMsg := second[len(second)-1].Content
	if strings.Contains(toolMsg, "10.0.0.7") || strings.Contains(toolMsg, "FT.SEARCH") {
		t.Errorf("backend detail leaked into the conversation: %s", toolMsg)
	}
	if !strings.Contains(toolMsg, "unavailable") {
		t.Errorf("expected neutral failure payload, got %s", toolMsg)
	}
}

func TestAsk_RenderToolCollectsUI(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		toolCallResponse(toolRenderUI, `{"root": {"name": "header", "title": "Ideas"}}`),
		textResponse("Take a look."),
	}}
	renderer := &mockRenderer{el: render.Element{Kind: "header", Props: map[string]any{"title": "Ideas"}}}
	svc := newTestAgent(llm, &mockSearcher{}, &mockProducts{}, renderer)

	reply, err := svc.Ask(context.Background(), "s1", "show me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.UI) != 1 || reply.UI[0].Kind != "header" {
		t.Fatalf("expected rendered UI collected, got %+v", reply.UI)
	}
}

func TestAsk_RenderRejectionReportedToModel(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		toolCallResponse(toolRenderUI, `{"root": {"name": "hero_banner"}}`),
		textResponse("Let me describe them instead."),
	}}
	renderer := &mockRenderer{err: errors.New("unregistered component \"hero_banner\"")}
	svc := newTestAgent(llm, &mockSearcher{}, &mockProducts{}, renderer)

	reply, err := svc.Ask(context.Background(), "s1", "show me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.UI) != 0 {
		t.Error("expected no UI from a rejected payload")
	}

	second := llm.requests[1].Messages
	if !strings.Contains(second[len(second)-1].Content, "rejected") {
		t.Errorf("expected rejection reported, got %s", second[len(second)-1].Content)
	}
}

func TestAsk_RenderSchemaViolationBlocksRenderer(t *testing.T) {
	// "match" is declared as a number; a string value violates the generation
	// contract and must bounce back to the model before the renderer runs.
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		toolCallResponse(toolRenderUI, `{"root": {"name": "item", "code": "A1", "match": "high"}}`),
		textResponse("Let me fix that."),
	}}
	renderer := &mockRenderer{}
	svc := newTestAgent(llm, &mockSearcher{}, &mockProducts{}, renderer)

	reply, err := svc.Ask(context.Background(), "s1", "show me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if renderer.calls != 0 {
		t.Errorf("expected renderer skipped for an invalid payload, got %d calls", renderer.calls)
	}
	if len(reply.UI) != 0 {
		t.Error("expected no UI from a rejected payload")
	}

	second := llm.requests[1].Messages
	if !strings.Contains(second[len(second)-1].Content, "rejected") {
		t.Errorf("expected rejection reported, got %s", second[len(second)-1].Content)
	}
}

func TestAsk_SearchToolTrimsDetailRecords(t *testing.T) {
	prezzo := 9.90
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		toolCallResponse(toolSearchCatalog, `{"query_text": "agenda gatti"}`),
		textResponse("Found one."),
	}}
	search := &mockSearcher{env: result.Envelope{Count: 1, Items: []result.Item{{
		Code:    "A1",
		Product: &domain.Product{ID: "A1", Title: "Agenda gatti", Prezzo: &prezzo},
	}}}}
	svc := newTestAgent(llm, search, &mockProducts{}, &mockRenderer{})

	if _, err := svc.Ask(context.Background(), "s1", "agenda"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := llm.requests[1].Messages
	payload := second[len(second)-1].Content
	if !strings.Contains(payload, "Agenda gatti") {
		t.Fatalf("expected detail subset in payload, got %s", payload)
	}
	if strings.Contains(payload, "prezzo") {
		t.Errorf("expected fields outside the default subset dropped, got %s", payload)
	}
}

func TestAsk_GetProductDetailFields(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		toolCallResponse(toolGetProduct, `{"code": "A1", "detail_fields": ["title"]}`),
		textResponse("It's an agenda."),
	}}
	products := &mockProducts{
		product: &domain.Product{ID: "A1", Title: "Agenda gatti", Description: "12 mesi"},
		found:   true,
	}
	svc := newTestAgent(llm, &mockSearcher{}, products, &mockRenderer{})

	if _, err := svc.Ask(context.Background(), "s1", "tell me about A1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := llm.requests[1].Messages
	payload := second[len(second)-1].Content
	if !strings.Contains(payload, "Agenda gatti") {
		t.Errorf("expected requested field kept, got %s", payload)
	}
	if strings.Contains(payload, "12 mesi") {
		t.Errorf("expected unrequested fields dropped, got %s", payload)
	}
}

func TestAsk_GetProductTool(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		toolCallResponse(toolGetProduct, `{"code": "A1"}`),
		textResponse("It's a cat-themed agenda."),
	}}
	products := &mockProducts{product: &domain.Product{ID: "A1", Title: "Agenda gatti"}, found: true}
	svc := newTestAgent(llm, &mockSearcher{}, products, &mockRenderer{})

	if _, err := svc.Ask(context.Background(), "s1", "tell me about A1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := llm.requests[1].Messages
	payload := second[len(second)-1].Content
	if !strings.Contains(payload, `"found":true`) || !strings.Contains(payload, "Agenda gatti") {
		t.Errorf("unexpected product payload: %s", payload)
	}
}

func TestAsk_BoundedRounds(t *testing.T) {
	// The model keeps calling tools forever; the loop must stop at maxRounds.
	loop := toolCallResponse(toolSearchCatalog, `{"query_text": "mug"}`)
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{loop, loop, loop, loop, loop, loop}}
	svc := newTestAgent(llm, &mockSearcher{}, &mockProducts{}, &mockRenderer{})

	_, err := svc.Ask(context.Background(), "s1", "mug")
	if err == nil {
		t.Fatal("expected error when the loop never converges")
	}
	if len(llm.requests) != 4 {
		t.Errorf("expected exactly maxRounds completions, got %d", len(llm.requests))
	}
}

func TestAsk_ProviderError(t *testing.T) {
	llm := &mockLLM{err: errors.New("429 too many requests")}
	svc := newTestAgent(llm, &mockSearcher{}, &mockProducts{}, &mockRenderer{})

	_, err := svc.Ask(context.Background(), "s1", "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error sentinel, got %v", err)
	}
}

func TestAsk_HistoryPersistsAcrossTurns(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		textResponse("Hi! Who is the gift for?"),
		textResponse("Got it, cat lover."),
	}}
	svc := newTestAgent(llm, &mockSearcher{}, &mockProducts{}, &mockRenderer{})

	if _, err := svc.Ask(context.Background(), "s1", "ciao"); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := svc.Ask(context.Background(), "s1", "loves cats"); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	second := llm.requests[1].Messages
	// system + user + assistant + user
	if len(second) != 4 {
		t.Fatalf("expected 4 messages on turn 2, got %d", len(second))
	}
	if second[1].Content != "ciao" || second[2].Content != "Hi! Who is the gift for?" {
		t.Error("expected prior turn preserved in history")
	}
}

func TestReset_DropsHistory(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		textResponse("first"),
		textResponse("second"),
	}}
	svc := newTestAgent(llm, &mockSearcher{}, &mockProducts{}, &mockRenderer{})

	if _, err := svc.Ask(context.Background(), "s1", "ciao"); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	svc.Reset("s1")
	if _, err := svc.Ask(context.Background(), "s1", "di nuovo"); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	second := llm.requests[1].Messages
	// system + user only after reset
	if len(second) != 2 {
		t.Fatalf("expected fresh history after reset, got %d messages", len(second))
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	llm := &mockLLM{responses: []openai.ChatCompletionResponse{
		textResponse("a"),
		textResponse("b"),
	}}
	svc := newTestAgent(llm, &mockSearcher{}, &mockProducts{}, &mockRenderer{})

	if _, err := svc.Ask(context.Background(), "s1", "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Ask(context.Background(), "s2", "two"); err != nil {
		t.Fatal(err)
	}

	second := llm.requests[1].Messages
	if len(second) != 2 {
		t.Fatalf("expected s2 to start clean, got %d messages", len(second))
	}
	if second[1].Content != "two" {
		t.Errorf("unexpected user message: %q", second[1].Content)
	}
}
