package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker verifies one dependency (vector index, embedding or LLM provider).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
