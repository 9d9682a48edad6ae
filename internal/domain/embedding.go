package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
// Implementations return a vector of the provider's configured fixed
// dimensionality. Embedding calls are single-attempt; the core never retries.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
