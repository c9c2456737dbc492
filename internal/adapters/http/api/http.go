// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/glucommander/internal/domain/model"
	"github.com/okian/glucommander/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Initial computes the bolus and starting rate for a new infusion.
	Initial(ctx context.Context, req model.StartRequest) (types.StartRecommendation, error)

	// Adjust computes the titrated rate for a running infusion.
	Adjust(ctx context.Context, req model.AdjustRequest) (types.AdjustRecommendation, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	infusionHandler *InfusionHandler
	limiter         *Limiter
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLimiter installs a rate limiter in front of the infusion routes.
func WithLimiter(l *Limiter) ServerOption {
	return func(s *Server) {
		s.limiter = l
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		infusionHandler: NewInfusionHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/infusion/start", s.wrap(s.infusionHandler.HandleStart, "start"))
	mux.HandleFunc("/v1/infusion/adjust", s.wrap(s.infusionHandler.HandleAdjust, "adjust"))
}

// wrap applies the middleware chain for calculation endpoints. Metrics sit
// outermost so rate limited requests are still counted.
func (s *Server) wrap(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	return MetricsMiddleware(RequestIDMiddleware(h), endpoint)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
