// Package server exposes the analyzer over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/apicus/apicus/internal/analyzer"
	"github.com/apicus/apicus/internal/catalog"
	"github.com/apicus/apicus/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Engine is the analyzer surface the API serves.
type Engine interface {
	Services(ctx context.Context) []analyzer.ServiceSummary
	Service(ctx context.Context, serviceID string) (catalog.Service, error)
	ServiceMetrics(ctx context.Context, serviceID string, planIndex int, overrides map[string]float64) (analyzer.MetricsReport, error)
	ServiceCost(ctx context.Context, serviceID string, planIndex int, overrides map[string]float64) (analyzer.CostReport, error)
	StackCost(ctx context.Context, req analyzer.StackRequest) (analyzer.StackReport, error)
	Projection(ctx context.Context, req analyzer.ProjectionRequest) (metrics.Projection, error)
	Suggest(ctx context.Context, req analyzer.SuggestRequest) analyzer.SuggestReport
}

// Server holds the HTTP handlers.
type Server struct {
	engine   Engine
	logger   zerolog.Logger
	metrics  *Metrics
	gatherer prometheus.Gatherer
}

// New creates a Server. Collectors are registered on reg, which also backs
// the /metrics endpoint.
func New(engine Engine, logger zerolog.Logger, reg *prometheus.Registry) *Server {
	m := NewMetrics(reg)
	m.CatalogServices.Set(float64(len(engine.Services(context.Background()))))
	return &Server{
		engine:   engine,
		logger:   logger,
		metrics:  m,
		gatherer: reg,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, middleware.RealIP, accessLog(s.logger, s.metrics), middleware.Recoverer)

	r.Get("/v1/healthz", s.health)
	r.Route("/v1/services", func(r chi.Router) {
		r.Get("/", s.listServices)
		r.Get("/{id}", s.getService)
		r.Get("/{id}/metrics", s.serviceMetrics)
		r.Post("/{id}/cost", s.serviceCost)
		r.Post("/{id}/projection", s.projection)
	})
	r.Post("/v1/stack/cost", s.stackCost)
	r.Get("/v1/stack/suggestions", s.suggestions)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return r
}

type costRequest struct {
	PlanIndex int                `json:"planIndex"`
	Overrides map[string]float64 `json:"overrides"`
}

type projectionRequest struct {
	PlanIndex      int     `json:"planIndex"`
	MetricID       string  `json:"metricId"`
	SimulatedValue float64 `json:"simulatedValue"`
	Days           int     `json:"days"`
}

type errorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	s.json(w, http.StatusOK, s.engine.Services(r.Context()))
}

func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	svc, err := s.engine.Service(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.json(w, http.StatusOK, svc)
}

func (s *Server) serviceMetrics(w http.ResponseWriter, r *http.Request) {
	plan := 0
	if raw := r.URL.Query().Get("plan"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, badRequest("invalid plan index %q", raw))
			return
		}
		plan = n
	}

	report, err := s.engine.ServiceMetrics(r.Context(), chi.URLParam(r, "id"), plan, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.json(w, http.StatusOK, report)
}

func (s *Server) serviceCost(w http.ResponseWriter, r *http.Request) {
	var req costRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	report, err := s.engine.ServiceCost(r.Context(), chi.URLParam(r, "id"), req.PlanIndex, req.Overrides)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.RecordCost("ServiceCost", report.UpgradeRequired)
	s.json(w, http.StatusOK, report)
}

func (s *Server) stackCost(w http.ResponseWriter, r *http.Request) {
	var req analyzer.StackRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	report, err := s.engine.StackCost(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	for _, b := range report.Services {
		s.metrics.RecordCost("StackCost", b.UpgradeRequired)
	}
	s.metrics.StackTotal.Observe(report.Totals.Total)
	s.json(w, http.StatusOK, report)
}

func (s *Server) projection(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.MetricID == "" {
		s.fail(w, r, badRequest("metricId is required"))
		return
	}
	if req.Days > metrics.MaxProjectionDays {
		s.fail(w, r, badRequest("days must be at most %d", metrics.MaxProjectionDays))
		return
	}

	p, err := s.engine.Projection(r.Context(), analyzer.ProjectionRequest{
		ServiceID:      chi.URLParam(r, "id"),
		PlanIndex:      req.PlanIndex,
		MetricID:       req.MetricID,
		SimulatedValue: req.SimulatedValue,
		Days:           req.Days,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.json(w, http.StatusOK, p)
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := q.Get("budget")
	if raw == "" {
		s.fail(w, r, badRequest("budget is required"))
		return
	}
	budget, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(budget) || math.IsInf(budget, 0) {
		s.fail(w, r, badRequest("invalid budget %q", raw))
		return
	}

	size := 0
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.fail(w, r, badRequest("invalid size %q", raw))
			return
		}
		size = n
	}

	report := s.engine.Suggest(r.Context(), analyzer.SuggestRequest{Budget: budget, Size: size})
	s.metrics.StackTotal.Observe(report.Stack.Totals.Total)
	s.json(w, http.StatusOK, report)
}

// decode reads a JSON body into v. An empty body leaves v at its zero value.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("malformed request body: %v", err)
	}
	return nil
}

func (s *Server) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	traceID := analyzer.TraceIDFromContext(r.Context())
	if code >= http.StatusInternalServerError {
		s.logger.Error().Str(analyzer.FieldTraceID, traceID).Err(err).Msg("request failed")
	}
	s.json(w, code, errorResponse{Error: err.Error(), TraceID: traceID})
}
