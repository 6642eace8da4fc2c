package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
	"github.com/SafalBhandari12/sysMonitoring/internal/httpapi/middleware"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo"
	"github.com/SafalBhandari12/sysMonitoring/internal/verify"
)

type Server struct {
	Logger    *zap.Logger
	Domains   repo.DomainStore
	Endpoints repo.EndpointStore
	Results   repo.ResultStore
	Verifier  *verify.Verifier

	// Sweep triggers; each runs one cycle. Wired to the schedulers in
	// cmd/api, replaced with fakes in tests.
	ProbeSweep     func(context.Context)
	VerifySweep    func(context.Context) error
	AggregateSweep func(context.Context) error

	Keys           middleware.Keys
	PublicRPM      int
	PublicBurst    int
	AllowedOrigins []string
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if len(s.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Authorization", "X-API-Key", "Content-Type"},
		}))
	} else {
		r.Use(cors.AllowAll().Handler)
	}
	r.Use(middleware.RateLimit(s.PublicRPM, s.PublicBurst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAny(s.Keys))

		r.Post("/domains", s.handleRegisterDomain)
		r.Get("/domains/{host}/verification", s.handleVerificationStatus)
		r.Post("/domains/{host}/verify", s.handleVerifyDomain)
		r.Post("/domains/{domainID}/endpoints", s.handleRegisterEndpoint)
		r.Get("/endpoints/details", s.handleEndpointDetails)

		r.Route("/sweeps", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.Keys))
			r.Post("/probes", s.handleProbeSweep)
			r.Post("/verification", s.handleVerifySweep)
			r.Post("/aggregation", s.handleAggregateSweep)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a 500 with a generic message.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		s.Logger.Error("internal_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
