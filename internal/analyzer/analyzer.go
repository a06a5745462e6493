// Package analyzer is the service-facing entry point of the cost engine. It
// resolves catalog entries, applies simulated usage, and logs every
// calculation with a trace ID.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apicus/apicus/internal/catalog"
	"github.com/apicus/apicus/internal/cost"
	"github.com/apicus/apicus/internal/metrics"
	"github.com/apicus/apicus/internal/stack"
	"github.com/rs/zerolog"
)

// Sentinel errors returned (wrapped) by Analyzer methods.
var (
	ErrServiceNotFound = errors.New("service not found")
	ErrMetricNotFound  = errors.New("metric not found")
)

// CatalogReader is the read side of a service catalog.
type CatalogReader interface {
	Services() []catalog.Service
	Service(id string) (catalog.Service, bool)
}

// Analyzer answers metric, cost and projection queries against a catalog.
// It is safe for concurrent use.
type Analyzer struct {
	catalog  CatalogReader
	logger   zerolog.Logger
	testMode bool
}

// New creates an Analyzer over reader. Test mode is read from the
// environment once, here.
func New(reader CatalogReader, logger zerolog.Logger) *Analyzer {
	testMode := IsTestMode()
	if testMode {
		logger.Info().Msg("Test mode enabled")
	}
	return &Analyzer{
		catalog:  reader,
		logger:   logger,
		testMode: testMode,
	}
}

// PlanSummary is the listing view of a plan.
type PlanSummary struct {
	Index         int     `json:"index" yaml:"index"`
	Name          string  `json:"name" yaml:"name"`
	BasePrice     float64 `json:"basePrice" yaml:"basePrice"`
	IsFreeTier    bool    `json:"isFreeTier" yaml:"isFreeTier"`
	CustomPricing bool    `json:"customPricing" yaml:"customPricing"`
}

// ServiceSummary is the listing view of a service.
type ServiceSummary struct {
	ID    string        `json:"id" yaml:"id"`
	Name  string        `json:"name" yaml:"name"`
	Plans []PlanSummary `json:"plans" yaml:"plans"`
}

// MetricStatus is a metric together with its utilization.
type MetricStatus struct {
	metrics.UsageMetric `yaml:",inline"`
	Utilization         metrics.Utilization `json:"utilization" yaml:"utilization"`
}

// MetricsReport lists the usage metrics of one service at one plan.
type MetricsReport struct {
	ServiceID        string          `json:"serviceId" yaml:"serviceId"`
	ServiceName      string          `json:"serviceName" yaml:"serviceName"`
	PlanIndex        int             `json:"planIndex" yaml:"planIndex"`
	PlanName         string          `json:"planName" yaml:"planName"`
	Metrics          []MetricStatus  `json:"metrics" yaml:"metrics"`
	Summary          metrics.Summary `json:"summary" yaml:"summary"`
	IgnoredOverrides []string        `json:"ignoredOverrides,omitempty" yaml:"ignoredOverrides,omitempty"`
}

// CostReport is a single-service breakdown.
type CostReport struct {
	cost.Breakdown   `yaml:",inline"`
	PlanIndex        int      `json:"planIndex" yaml:"planIndex"`
	IgnoredOverrides []string `json:"ignoredOverrides,omitempty" yaml:"ignoredOverrides,omitempty"`
}

// StackEntry selects a plan for one service. The YAML names match the stack
// file format.
type StackEntry struct {
	ServiceID string `json:"serviceId" yaml:"id"`
	PlanIndex int    `json:"planIndex" yaml:"plan"`
}

// StackRequest is a set of plan selections plus simulated usage.
type StackRequest struct {
	Services  []StackEntry       `json:"services" yaml:"services"`
	Overrides map[string]float64 `json:"overrides" yaml:"overrides"`
}

// StackReport is the aggregate cost of a stack.
type StackReport struct {
	stack.Result     `yaml:",inline"`
	IgnoredOverrides []string `json:"ignoredOverrides,omitempty" yaml:"ignoredOverrides,omitempty"`
}

// SuggestRequest asks for a stack of at most Size services whose cheapest
// priced plan fits Budget.
type SuggestRequest struct {
	Budget float64 `json:"budget" yaml:"budget"`
	Size   int     `json:"size" yaml:"size"`
}

// SuggestReport lists suggested services and prices them as a stack at the
// suggested plans.
type SuggestReport struct {
	Budget      float64            `json:"budget" yaml:"budget"`
	Suggestions []stack.Suggestion `json:"suggestions" yaml:"suggestions"`
	Stack       stack.Result       `json:"stack" yaml:"stack"`
}

// ProjectionRequest asks for a linear forecast of one metric.
type ProjectionRequest struct {
	ServiceID      string  `json:"serviceId" yaml:"serviceId"`
	PlanIndex      int     `json:"planIndex" yaml:"planIndex"`
	MetricID       string  `json:"metricId" yaml:"metricId"`
	SimulatedValue float64 `json:"simulatedValue" yaml:"simulatedValue"`
	Days           int     `json:"days" yaml:"days"`
}

// Services lists every service with its plans in tier order.
func (a *Analyzer) Services(_ context.Context) []ServiceSummary {
	services := a.catalog.Services()
	out := make([]ServiceSummary, 0, len(services))
	for _, svc := range services {
		s := ServiceSummary{ID: svc.ID, Name: svc.Name(), Plans: make([]PlanSummary, 0, len(svc.Plans()))}
		for i, p := range svc.Plans() {
			s.Plans = append(s.Plans, PlanSummary{
				Index:         i,
				Name:          p.Name,
				BasePrice:     p.BasePrice(),
				IsFreeTier:    p.IsFreeTier,
				CustomPricing: p.Pricing.CustomPricing,
			})
		}
		out = append(out, s)
	}
	return out
}

// Service returns the full document of a service.
func (a *Analyzer) Service(_ context.Context, serviceID string) (catalog.Service, error) {
	return a.lookup(serviceID)
}

// ServiceMetrics extracts the usage metrics of a service at planIndex with
// overrides applied. An out-of-range plan index falls back to plan 0.
func (a *Analyzer) ServiceMetrics(ctx context.Context, serviceID string, planIndex int, overrides map[string]float64) (MetricsReport, error) {
	start := time.Now()
	traceID := resolveTraceID(ctx)

	svc, err := a.lookup(serviceID)
	if err != nil {
		a.logError(traceID, "ServiceMetrics", serviceID, err)
		return MetricsReport{}, err
	}

	ov, ignored := a.overrides(traceID, overrides, []string{svc.ID})
	w := stack.PlanWindow(svc, planIndex)
	ms, _ := stack.Evaluate(svc, w.Index, ov)

	report := MetricsReport{
		ServiceID:        svc.ID,
		ServiceName:      svc.Name(),
		PlanIndex:        w.Index,
		Metrics:          make([]MetricStatus, 0, len(ms)),
		Summary:          metrics.Summarize(ms),
		IgnoredOverrides: ignored,
	}
	if w.Current != nil {
		report.PlanName = w.Current.Name
	}
	for _, m := range ms {
		report.Metrics = append(report.Metrics, MetricStatus{UsageMetric: m, Utilization: metrics.Status(m)})
	}

	a.logger.Info().
		Str(FieldTraceID, traceID).
		Str(FieldOperation, "ServiceMetrics").
		Str(FieldServiceID, svc.ID).
		Str("plan", report.PlanName).
		Int("metrics", len(ms)).
		Int("critical", report.Summary.Critical).
		Int64(FieldDurationMs, time.Since(start).Milliseconds()).
		Msg("metrics extracted")

	return report, nil
}

// ServiceCost prices a service at planIndex with overrides applied.
func (a *Analyzer) ServiceCost(ctx context.Context, serviceID string, planIndex int, overrides map[string]float64) (CostReport, error) {
	start := time.Now()
	traceID := resolveTraceID(ctx)

	svc, err := a.lookup(serviceID)
	if err != nil {
		a.logError(traceID, "ServiceCost", serviceID, err)
		return CostReport{}, err
	}

	ov, ignored := a.overrides(traceID, overrides, []string{svc.ID})
	w := stack.PlanWindow(svc, planIndex)
	_, b := stack.Evaluate(svc, w.Index, ov)

	if a.testMode {
		a.logger.Debug().
			Str(FieldTraceID, traceID).
			Float64("base_cost", b.BaseCost).
			Float64("usage_cost", b.UsageCost).
			Float64("overage_cost", b.OverageCost).
			Int("overage_items", len(b.OverageItems)).
			Str("formula", "base + usage + overage").
			Msg("Test mode: ServiceCost calculation result")
	}

	a.logger.Info().
		Str(FieldTraceID, traceID).
		Str(FieldOperation, "ServiceCost").
		Str(FieldServiceID, svc.ID).
		Str("plan", b.PlanName).
		Float64("cost_monthly", b.Total).
		Bool("upgrade_required", b.UpgradeRequired).
		Int64(FieldDurationMs, time.Since(start).Milliseconds()).
		Msg("cost calculated")

	return CostReport{Breakdown: b, PlanIndex: w.Index, IgnoredOverrides: ignored}, nil
}

// StackCost prices every selected service and sums the results. A service
// listed more than once keeps its first selection.
func (a *Analyzer) StackCost(ctx context.Context, req StackRequest) (StackReport, error) {
	start := time.Now()
	traceID := resolveTraceID(ctx)

	services := make([]catalog.Service, 0, len(req.Services))
	ids := make([]string, 0, len(req.Services))
	sel := make(stack.Selection, len(req.Services))
	for _, entry := range req.Services {
		svc, err := a.lookup(entry.ServiceID)
		if err != nil {
			a.logError(traceID, "StackCost", entry.ServiceID, err)
			return StackReport{}, err
		}
		if _, dup := sel[svc.ID]; dup {
			a.logger.Warn().
				Str(FieldTraceID, traceID).
				Str(FieldServiceID, svc.ID).
				Msg("duplicate stack entry; keeping first selection")
			continue
		}
		sel[svc.ID] = entry.PlanIndex
		services = append(services, svc)
		ids = append(ids, svc.ID)
	}

	ov, ignored := a.overrides(traceID, req.Overrides, ids)
	result := stack.Aggregate(services, sel, ov)

	if a.testMode {
		for _, b := range result.Services {
			a.logger.Debug().
				Str(FieldTraceID, traceID).
				Str(FieldServiceID, b.ServiceID).
				Float64("total", b.Total).
				Msg("Test mode: StackCost service result")
		}
	}

	a.logger.Info().
		Str(FieldTraceID, traceID).
		Str(FieldOperation, "StackCost").
		Int("services", len(services)).
		Float64("cost_monthly", result.Totals.Total).
		Int64(FieldDurationMs, time.Since(start).Milliseconds()).
		Msg("cost calculated")

	return StackReport{Result: result, IgnoredOverrides: ignored}, nil
}

// Suggest picks services whose cheapest priced plan fits req.Budget, cheapest
// first, and prices them together with no simulated usage.
func (a *Analyzer) Suggest(ctx context.Context, req SuggestRequest) SuggestReport {
	start := time.Now()
	traceID := resolveTraceID(ctx)

	services := a.catalog.Services()
	suggestions := stack.Suggest(services, req.Budget, req.Size)

	picked := make([]catalog.Service, 0, len(suggestions))
	for _, s := range suggestions {
		if svc, ok := a.catalog.Service(s.ServiceID); ok {
			picked = append(picked, svc)
		}
	}
	result := stack.Aggregate(picked, stack.Selections(suggestions), nil)

	a.logger.Info().
		Str(FieldTraceID, traceID).
		Str(FieldOperation, "Suggest").
		Float64("budget", req.Budget).
		Int("candidates", len(services)).
		Int("services", len(suggestions)).
		Float64("cost_monthly", result.Totals.Total).
		Int64(FieldDurationMs, time.Since(start).Milliseconds()).
		Msg("stack suggested")

	return SuggestReport{Budget: req.Budget, Suggestions: suggestions, Stack: result}
}

// Projection forecasts one metric from its current value to
// req.SimulatedValue. MetricID may be the full metric ID or its slug.
func (a *Analyzer) Projection(ctx context.Context, req ProjectionRequest) (metrics.Projection, error) {
	start := time.Now()
	traceID := resolveTraceID(ctx)

	svc, err := a.lookup(req.ServiceID)
	if err != nil {
		a.logError(traceID, "Projection", req.ServiceID, err)
		return metrics.Projection{}, err
	}

	w := stack.PlanWindow(svc, req.PlanIndex)
	var (
		target metrics.UsageMetric
		found  bool
	)
	for _, m := range metrics.Extract(svc, w.Current, w.Next, w.Prior) {
		if m.ID == req.MetricID || m.Slug == req.MetricID {
			target, found = m, true
			break
		}
	}
	if !found {
		err := fmt.Errorf("%w: %q in service %q", ErrMetricNotFound, req.MetricID, svc.ID)
		a.logError(traceID, "Projection", svc.ID, err)
		return metrics.Projection{}, err
	}

	p := metrics.Project(target, req.SimulatedValue, req.Days)

	ev := a.logger.Info().
		Str(FieldTraceID, traceID).
		Str(FieldOperation, "Projection").
		Str(FieldServiceID, svc.ID).
		Str("metric_id", target.ID).
		Int("days", p.Days).
		Float64("final_value", p.FinalValue)
	if p.Recommendation != nil {
		ev = ev.Str("recommendation", p.Recommendation.Kind)
	}
	ev.Int64(FieldDurationMs, time.Since(start).Milliseconds()).
		Msg("projection calculated")

	return p, nil
}

func (a *Analyzer) lookup(serviceID string) (catalog.Service, error) {
	svc, ok := a.catalog.Service(serviceID)
	if !ok {
		return catalog.Service{}, fmt.Errorf("%w: %q", ErrServiceNotFound, serviceID)
	}
	return svc, nil
}

func (a *Analyzer) overrides(traceID string, raw map[string]float64, serviceIDs []string) (stack.Overrides, []string) {
	ov, ignored := stack.NewOverrides(raw, serviceIDs)
	if len(ignored) > 0 {
		a.logger.Warn().
			Str(FieldTraceID, traceID).
			Strs("keys", ignored).
			Msg("ignoring overrides for unknown services")
	}
	return ov, ignored
}

func (a *Analyzer) logError(traceID, operation, serviceID string, err error) {
	a.logger.Error().
		Str(FieldTraceID, traceID).
		Str(FieldOperation, operation).
		Str(FieldServiceID, serviceID).
		Err(err).
		Msg("request failed")
}
