// Package chi serves the catalog search API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogq/internal/domain"
	logpkg "github.com/kailas-cloud/catalogq/internal/logger"
	cataloguc "github.com/kailas-cloud/catalogq/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/catalogq/internal/usecase/health"
	searchuc "github.com/kailas-cloud/catalogq/internal/usecase/search"
)

// maxBodyBytes bounds item write bodies.
const maxBodyBytes = 1 << 20

// Server handles the HTTP API.
type Server struct {
	search        *searchuc.Service
	catalog       *cataloguc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	catalog *cataloguc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:        search,
		catalog:       catalog,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/namespaces", s.ListNamespaces)

	r.Route("/namespaces/{ns}", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Get("/explain", s.Explain)
		r.Delete("/cache", s.InvalidateCache)

		r.Post("/items", s.CreateItem)
		r.Get("/items/{id}", s.GetItem)
		r.Put("/items/{id}", s.PutItem)
		r.Delete("/items/{id}", s.DeleteItem)
	})
}

// Search handles GET /namespaces/{ns}/search?q=. refetch=true bypasses the cache.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")
	if _, err := s.search.Vocabulary(ns); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	raw := r.URL.Query().Get("q")

	var h *searchuc.Handle
	if r.URL.Query().Get("refetch") == "true" {
		h = s.search.StartRefetch(r.Context(), raw, ns)
	} else {
		h = s.search.Start(r.Context(), raw, ns)
	}
	st := h.Wait(r.Context())
	if r.Context().Err() != nil {
		// Client went away; nobody reads the response.
		return
	}

	writeJSON(w, searchStatus(st.Err), stateToWire(st))
}

// searchStatus maps a finished search to its HTTP status.
func searchStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, new(*domain.FetchError)):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Explain handles GET /namespaces/{ns}/explain?q=.
func (s *Server) Explain(w http.ResponseWriter, r *http.Request) {
	ex, err := s.search.Explain(r.URL.Query().Get("q"), chi.URLParam(r, "ns"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// InvalidateCache handles DELETE /namespaces/{ns}/cache. Each q parameter
// names one query to drop; without any the whole namespace is dropped.
func (s *Server) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")
	removed, err := s.search.Invalidate(ns, r.URL.Query()["q"]...)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logpkg.FromContext(r.Context()).Info("Cache invalidated",
		zap.String("namespace", ns),
		zap.Int("removed", removed),
	)
	writeJSON(w, http.StatusOK, InvalidateResponse{Namespace: ns, Removed: removed})
}

// ListNamespaces handles GET /namespaces.
func (s *Server) ListNamespaces(w http.ResponseWriter, r *http.Request) {
	names := s.search.Namespaces()
	resp := NamespacesResponse{Namespaces: make([]Namespace, 0, len(names))}
	for _, ns := range names {
		vocab, err := s.search.Vocabulary(ns)
		if err != nil {
			continue
		}
		resp.Namespaces = append(resp.Namespaces, Namespace{Name: ns, Fields: vocab.Fields()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateItem handles POST /namespaces/{ns}/items.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeItem(w, r)
	if !ok {
		return
	}
	it, err := s.catalog.Create(r.Context(), chi.URLParam(r, "ns"), req.draft())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemToWire(it))
}

// PutItem handles PUT /namespaces/{ns}/items/{id}.
func (s *Server) PutItem(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeItem(w, r)
	if !ok {
		return
	}
	it, created, err := s.catalog.Upsert(r.Context(), chi.URLParam(r, "ns"), chi.URLParam(r, "id"), req.draft())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, itemToWire(it))
}

// GetItem handles GET /namespaces/{ns}/items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.catalog.Get(r.Context(), chi.URLParam(r, "ns"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToWire(it))
}

// DeleteItem handles DELETE /namespaces/{ns}/items/{id}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "ns"), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
		Status:       string(report.Status),
		Checks:       checks,
		CacheEntries: report.CacheEntries,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decodeItem(w http.ResponseWriter, r *http.Request) (ItemRequest, bool) {
	var req ItemRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return ItemRequest{}, false
	}
	return req, true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.With(zap.String("request_id", chimw.GetReqID(r.Context())))
	log.Warn("Domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
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
