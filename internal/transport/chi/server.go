package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/domain"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/request"
	"github.com/kailas-cloud/schemefinder/internal/logger"
	healthuc "github.com/kailas-cloud/schemefinder/internal/usecase/health"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	chat          Chatter
	schemes       SchemeGetter
	health        HealthReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
	defaultTopK   int
	maxTopK       int
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	chat Chatter,
	schemes SchemeGetter,
	health HealthReporter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:      search,
		chat:        chat,
		schemes:     schemes,
		health:      health,
		logger:      logger,
		defaultTopK: request.DefaultTopK,
		maxTopK:     request.MaxTopK,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidScheme, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProvider),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, ErrorCodeLLMProvider),
		sentinelHandler(domain.ErrVectorIndexUnavailable,
			http.StatusInternalServerError, ErrorCodeVectorIndexDown),
	}
	return s
}

// SetTopKBounds overrides the breadth used when a request omits top_k and the
// largest breadth a request may ask for.
func (s *Server) SetTopKBounds(defaultTopK, maxTopK int) {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
}

func (s *Server) topK(requested int) int {
	if requested <= 0 {
		requested = s.defaultTopK
	}
	return min(requested, s.maxTopK)
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.SearchPost)
		r.Get("/search", s.SearchGet)
		r.Post("/chat", s.Chat)
		r.Get("/schemes/{id}", s.GetScheme)
	})
}

// SearchPost handles POST /api/v1/search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := request.New(
		body.Query,
		s.topK(body.TopK.Int()),
		body.threshold(),
		body.Limit.Int(),
		body.Cursor,
		body.SessionID,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	s.runSearch(w, r, &req)
}

// SearchGet handles GET /api/v1/search. Non-numeric parameters fall back to defaults.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var query, cursor, session string
	var topK, threshold, limit int
	if err := runtime.BindQueryParameter("form", true, true, "query", q, &query); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "query is required")
		return
	}
	s.bindOptional(q, "cursor", &cursor)
	s.bindOptional(q, "sessionId", &session)
	s.bindOptional(q, "top_k", &topK)
	if q.Has("similarity_threshold") {
		s.bindOptional(q, "similarity_threshold", &threshold)
	} else {
		s.bindOptional(q, "threshold", &threshold)
	}
	s.bindOptional(q, "limit", &limit)

	req, err := request.New(query, s.topK(topK), threshold, limit, cursor, session)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	s.runSearch(w, r, &req)
}

func (s *Server) bindOptional(q map[string][]string, name string, dest any) {
	if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
		s.logger.Debug("Ignoring malformed query parameter", zap.String("param", name), zap.Error(err))
	}
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req *request.Request) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	if req.SessionID() != "" {
		ctx = logger.WithSession(ctx, req.SessionID())
	}

	resp, err := s.search.Search(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponseFrom(&resp))
}

// Chat handles POST /api/v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if body.SessionID == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "sessionId is required")
		return
	}
	if s.chat == nil {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "chat is not enabled")
		return
	}

	ctx := logger.WithSession(r.Context(), body.SessionID)
	reply, err := s.chat.Chat(ctx, body.SessionID, body.Message)
	if err != nil {
		s.handleDomainError(w, r.WithContext(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponseFrom(reply))
}

// GetScheme handles GET /api/v1/schemes/{id}.
func (s *Server) GetScheme(w http.ResponseWriter, r *http.Request) {
	sc, err := s.schemes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schemeResponseFrom(&sc))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrInvalidScheme,
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrLLMProviderError,
		domain.ErrVectorIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
