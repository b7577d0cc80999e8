package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a request rejected at the API boundary.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidScheme signals a scheme record that failed validation.
	ErrInvalidScheme = errors.New("invalid scheme")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a chat completion provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrVectorIndexUnavailable signals that nearest-neighbour search failed.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)

// DefaultKeyPrefix namespaces every key the service writes to the store.
const DefaultKeyPrefix = "schemefinder:"
