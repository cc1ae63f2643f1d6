package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogq/internal/metrics"
)

// NewRouter wires the middleware stack around the API routes of s.
// Authentication is disabled when auth has no keys.
func NewRouter(s *Server, auth Auth) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(jsonRecoverer(s.logger))
	r.Use(metrics.Middleware(s.knownNamespace))
	r.Use(BearerAuthMiddleware(auth))
	r.Use(sessionMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	s.Routes(r)
	s.logger.Debug("Routes registered",
		zap.Int("api_keys", len(auth.APIKeys)),
		zap.Bool("public_reads", auth.PublicReads),
	)
	return r
}

func (s *Server) knownNamespace(ns string) bool {
	_, err := s.search.Vocabulary(ns)
	return err == nil
}
