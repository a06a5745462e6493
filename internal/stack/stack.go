// Package stack aggregates cost breakdowns across a user-selected set of
// services.
package stack

import (
	"github.com/apicus/apicus/internal/catalog"
	"github.com/apicus/apicus/internal/cost"
	"github.com/apicus/apicus/internal/metrics"
	"github.com/shopspring/decimal"
)

// Selection maps a service ID to its selected plan index.
type Selection map[string]int

// Totals sums the four cost fields across services.
type Totals struct {
	Base    float64 `json:"base" yaml:"base"`
	Usage   float64 `json:"usage" yaml:"usage"`
	Overage float64 `json:"overage" yaml:"overage"`
	Total   float64 `json:"total" yaml:"total"`
}

// ServiceResult is one service's breakdown within a stack. Share is the
// percentage of the stack total it accounts for, 0 when the total is 0.
type ServiceResult struct {
	cost.Breakdown `yaml:",inline"`
	Share          float64 `json:"share" yaml:"share"`
}

// Result is the aggregate cost of a stack, with per-service results in input
// order.
type Result struct {
	Totals   Totals          `json:"totals" yaml:"totals"`
	Services []ServiceResult `json:"services" yaml:"services"`
}

// Window is the resolved plan selection of one service.
type Window struct {
	Index   int
	Current *catalog.Plan
	Next    *catalog.Plan
	Prior   *catalog.Plan
}

// PlanWindow resolves the plan at index together with its neighbors. A missing
// or out-of-range index falls back to plan 0. A service without plans yields
// a zero Window with a nil Current.
func PlanWindow(svc catalog.Service, index int) Window {
	plans := svc.EnhancedData.Plans
	if len(plans) == 0 {
		return Window{}
	}
	if index < 0 || index >= len(plans) {
		index = 0
	}

	w := Window{Index: index, Current: &plans[index]}
	if index+1 < len(plans) {
		w.Next = &plans[index+1]
	}
	if index > 0 {
		w.Prior = &plans[index-1]
	}
	return w
}

// Evaluate extracts the metrics of one service at its selected plan, applies
// overrides, and prices them.
func Evaluate(svc catalog.Service, index int, overrides Overrides) ([]metrics.UsageMetric, cost.Breakdown) {
	w := PlanWindow(svc, index)
	ms := overrides.Apply(metrics.Extract(svc, w.Current, w.Next, w.Prior))
	return ms, cost.Compute(svc, w.Current, w.Next, ms)
}

// Aggregate prices every service independently and sums the results.
// Services missing from selection use plan 0.
func Aggregate(services []catalog.Service, selection Selection, overrides Overrides) Result {
	r := Result{Services: make([]ServiceResult, 0, len(services))}
	var base, usage, overage, total decimal.Decimal
	for _, svc := range services {
		_, b := Evaluate(svc, selection[svc.ID], overrides)

		base = base.Add(cost.Decimal(b.BaseCost))
		usage = usage.Add(cost.Decimal(b.UsageCost))
		overage = overage.Add(cost.Decimal(b.OverageCost))
		total = total.Add(cost.Decimal(b.Total))
		r.Services = append(r.Services, ServiceResult{Breakdown: b})
	}

	r.Totals = Totals{
		Base:    base.InexactFloat64(),
		Usage:   usage.InexactFloat64(),
		Overage: overage.InexactFloat64(),
		Total:   total.InexactFloat64(),
	}
	if total.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for i := range r.Services {
			share := cost.Decimal(r.Services[i].Total).Mul(hundred).DivRound(total, 2)
			r.Services[i].Share = share.InexactFloat64()
		}
	}
	return r
}
