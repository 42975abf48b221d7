// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	service "github.com/okian/segscore/internal/app"
	"github.com/okian/segscore/internal/domain/types"
	"github.com/okian/segscore/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SubmitDependencies
	LeaderboardDependencies
	StatsProvider
}

// Limits describes what the submit endpoint accepts.
type Limits interface {
	Extension() string
	MaxUploadBytes() int64
	NameMaxLen() int
	TempDir() string
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	submitHandler      *SubmitHandler
	leaderboardHandler *LeaderboardHandler
	chartHandler       *ChartHandler

	limiter *rate.Limiter
	log     logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSubmitRate throttles POST /dice-score to perSec with the given burst.
// A non-positive rate disables throttling.
func WithSubmitRate(perSec float64, burst int) Option {
	return func(s *Server) {
		if perSec <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.submitHandler = NewSubmitHandler(deps, s.log.Named("submit"))
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.log.Named("leaderboard"))
	s.chartHandler = NewChartHandler(deps, s.log.Named("chart"))
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/dice-score", MetricsMiddleware(RequestIDMiddleware(RateLimitMiddleware(s.limiter, s.submitHandler.HandleSubmit)), "dice_score"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/leaderboard/chart", MetricsMiddleware(s.chartHandler.HandleChart, "leaderboard_chart"))
}

// Submission results are the service's result shape.
type submitResponse = service.Result

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
