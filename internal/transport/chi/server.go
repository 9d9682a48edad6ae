// Package chi exposes the HTTP API: search, product lookup, UI rendering,
// the generation schema, and the chat agent.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/search/query"
	"github.com/regalo-labs/giftfinder/internal/domain/search/sortmode"
	uischema "github.com/regalo-labs/giftfinder/internal/domain/ui/schema"
	agentuc "github.com/regalo-labs/giftfinder/internal/usecase/agent"
	cataloguc "github.com/regalo-labs/giftfinder/internal/usecase/catalog"
	renderuc "github.com/regalo-labs/giftfinder/internal/usecase/render"
	searchuc "github.com/regalo-labs/giftfinder/internal/usecase/search"
)

// maxBodyBytes caps request bodies; UI trees and chat messages are small.
const maxBodyBytes = 1 << 20

// Error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeProviderError    = "embedding_provider_error"
	codeIndexUnavailable = "index_unavailable"
	codeInternalError    = "internal_error"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the HTTP handlers over the usecase services.
type Server struct {
	search        *searchuc.Service
	catalog       *cataloguc.Service
	render        *renderuc.Service
	agent         *agentuc.Service
	ui            uischema.Schema
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	catalog *cataloguc.Service,
	render *renderuc.Service,
	agent *agentuc.Service,
	ui uischema.Schema,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		catalog: catalog,
		render:  render,
		agent:   agent,
		ui:      ui,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
	}
	return s
}

// Routes mounts all API handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/products/{code}", s.handleGetProduct)
		r.Post("/render", s.handleRender)
		r.Get("/ui/schema", s.handleUISchema)
		r.Post("/chat", s.handleChat)
		r.Delete("/chat/{session}", s.handleResetChat)
	})
	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// searchRequest is the POST /v1/search body.
type searchRequest struct {
	QueryText      string   `json:"query_text"`
	K              int      `json:"k"`
	MinPrice       *float64 `json:"min_price"`
	MaxPrice       *float64 `json:"max_price"`
	IncludeDetails *bool    `json:"include_details"`
	Expanded       bool     `json:"expanded"`
	SortBy         string   `json:"sort_by"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	includeDetails := true
	if req.IncludeDetails != nil {
		includeDetails = *req.IncludeDetails
	}

	q, err := query.New(
		req.QueryText, req.K,
		req.MinPrice, req.MaxPrice,
		includeDetails, req.Expanded,
		sortmode.Mode(req.SortBy),
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	env, err := s.search.Search(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, env)
}

// productResponse is the GET /v1/products/{code} body; a missing product is a
// 200 with found=false, matching the tool contract.
type productResponse struct {
	Found   bool            `json:"found"`
	Code    string          `json:"code"`
	Product *domain.Product `json:"product,omitempty"`
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	p, found, err := s.catalog.Get(r.Context(), code)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productResponse{
		Found:   found,
		Code:    code,
		Product: p,
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	el, err := s.render.Render(r.Context(), raw)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleUISchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ui)
}

// chatRequest is the POST /v1/chat body.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "session_id is required")
		return
	}

	reply, err := s.agent.Ask(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleResetChat(w http.ResponseWriter, r *http.Request) {
	s.agent.Reset(chi.URLParam(r, "session"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			if errors.Is(err, domain.ErrInvalidRequest) {
				// Validation detail is safe and useful to echo back.
				return err.Error()
			}
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
