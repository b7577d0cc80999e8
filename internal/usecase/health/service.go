package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is down; nothing can be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase    = "database"
	ComponentVectorIndex = "vector_index"
	ComponentEmbedding   = "embedding"
	ComponentLLM         = "llm"
)

// DefaultCheckTimeout bounds each individual check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	checkers map[string]Checker
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a Service. Nil checkers are skipped.
func New(db DBPinger, index, embedding, llm Checker, logger *zap.Logger) *Service {
	checkers := make(map[string]Checker, 3)
	for name, c := range map[string]Checker{
		ComponentVectorIndex: index,
		ComponentEmbedding:   embedding,
		ComponentLLM:         llm,
	} {
		if c != nil {
			checkers[name] = c
		}
	}
	return &Service{db: db, checkers: checkers, timeout: DefaultCheckTimeout, logger: logger}
}

// Check runs all checks concurrently. A failing database makes the service
// unhealthy; any other failure degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checkers)+1)
	var mu sync.Mutex
	var wg sync.WaitGroup

	run := func(name string, fn func(context.Context) error) {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		res := CheckOK
		if err := fn(cctx); err != nil {
			s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
			res = CheckError
		}
		mu.Lock()
		checks[name] = res
		mu.Unlock()
	}

	wg.Add(1 + len(s.checkers))
	go run(ComponentDatabase, s.db.Ping)
	for name, c := range s.checkers {
		go run(name, c.HealthCheck)
	}
	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentDatabase] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
