package schemefinder

import "github.com/kailas-cloud/schemefinder/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrInvalidScheme          = domain.ErrInvalidScheme
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrVectorIndexUnavailable = domain.ErrVectorIndexUnavailable
)
