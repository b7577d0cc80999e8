package chi

import (
	"context"

	domchat "github.com/kailas-cloud/schemefinder/internal/domain/chat"
	domscheme "github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/schemefinder/internal/usecase/health"
	searchuc "github.com/kailas-cloud/schemefinder/internal/usecase/search"
)

// Searcher runs the search pipeline.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (searchuc.Response, error)
}

// Chatter answers follow-up questions about a session's results.
type Chatter interface {
	Chat(ctx context.Context, sessionID, message string) (domchat.Reply, error)
}

// SchemeGetter loads a single scheme record.
type SchemeGetter interface {
	Get(ctx context.Context, id string) (domscheme.Scheme, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
