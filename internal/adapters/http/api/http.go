// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/estimatb/internal/app"
	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/pkg/logger"
)

const defaultMaxUploadBytes = 16 << 20

// Analyzer runs one estimation over an uploaded table.
type Analyzer interface {
	Analyze(ctx context.Context, t model.Table, req service.Request) (*service.Analysis, error)
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Analyzer
	StatsProvider
}

// Server wires HTTP routes for the estimation API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	estimateHandler *EstimateHandler
}

type serverConfig struct {
	maxUploadBytes int64
	defaultRange   model.CandidateRange
	logger         logger.Logger
}

// Option configures the Server.
type Option func(*serverConfig)

// WithMaxUploadBytes caps the size of a POST /estimate request body.
func WithMaxUploadBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

// WithDefaultRange sets the grid that partial tb_min/tb_max/tb_step fields
// are completed from.
func WithDefaultRange(r model.CandidateRange) Option {
	return func(c *serverConfig) {
		c.defaultRange = r
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{
		maxUploadBytes: defaultMaxUploadBytes,
		defaultRange:   model.DefaultRange,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Nop()
	}
	return &Server{
		healthHandler:   NewHealthHandler(nil),
		statsHandler:    NewStatsHandler(deps),
		estimateHandler: newEstimateHandler(deps, cfg),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/estimate", MetricsMiddleware(s.estimateHandler.HandleEstimate, "estimate"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// internalBody is sent when a response cannot be encoded.
const internalBody = `{"code":"internal","message":"internal error"}` + "\n"

// writeJSON encodes v before sending headers and answers 500 with
// internalBody when v cannot be encoded.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	err := json.NewEncoder(&buf).Encode(v)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, internalBody)
		return fmt.Errorf("encode response: %w", err)
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
	return nil
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = message(err)
	}
	_ = writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
