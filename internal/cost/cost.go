// Package cost computes per-service cost breakdowns from usage metrics.
//
// Overage follows a single tier-jump policy: when any capped metric is
// exceeded and a next tier exists, the service is charged the price step to
// that tier exactly once. The per-unit tier-multiplier variant is not
// implemented.
package cost

import (
	"math"

	"github.com/apicus/apicus/internal/catalog"
	"github.com/apicus/apicus/internal/metrics"
	"github.com/shopspring/decimal"
)

// MaxOverageCost clamps the tier-jump charge.
const MaxOverageCost = 9999.0

// UsageItem is a usage-based line on a bill.
type UsageItem struct {
	MetricID string  `json:"metricId" yaml:"metricId"`
	Name     string  `json:"name" yaml:"name"`
	Cost     float64 `json:"cost" yaml:"cost"`
	Unit     string  `json:"unit" yaml:"unit"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
	Rate     float64 `json:"rate" yaml:"rate"`
}

// OverageItem is one exceeded metric's share of the upgrade charge.
type OverageItem struct {
	MetricID string  `json:"metricId" yaml:"metricId"`
	Name     string  `json:"name" yaml:"name"`
	Cost     float64 `json:"cost" yaml:"cost"`
	Unit     string  `json:"unit" yaml:"unit"`
	// Exceeded is the amount by which the value is over the limit.
	Exceeded float64 `json:"exceeded" yaml:"exceeded"`
	Limit    float64 `json:"limit" yaml:"limit"`
}

// Breakdown is the monthly cost of one service at one plan.
type Breakdown struct {
	ServiceID       string        `json:"serviceId" yaml:"serviceId"`
	ServiceName     string        `json:"serviceName" yaml:"serviceName"`
	PlanName        string        `json:"planName" yaml:"planName"`
	NextPlanName    string        `json:"nextPlanName,omitempty" yaml:"nextPlanName,omitempty"`
	BaseCost        float64       `json:"baseCost" yaml:"baseCost"`
	UsageCost       float64       `json:"usageCost" yaml:"usageCost"`
	OverageCost     float64       `json:"overageCost" yaml:"overageCost"`
	Total           float64       `json:"total" yaml:"total"`
	UpgradeRequired bool          `json:"upgradeRequired" yaml:"upgradeRequired"`
	UsageItems      []UsageItem   `json:"usageItems" yaml:"usageItems"`
	OverageItems    []OverageItem `json:"overageItems" yaml:"overageItems"`
}

// Compute prices current for the given metrics, whose values may already carry
// simulated overrides. next is the tier above current, or nil at the top tier.
//
// The result is:
//
//	BaseCost    = current monthly base price (0 when absent)
//	UsageCost   = sum over metrics with a per-unit rate of min(value, cap ?? 0) * rate
//	OverageCost = next.base - BaseCost, once, if any capped metric is exceeded
//	Total       = BaseCost + UsageCost + OverageCost
//
// Amounts are accumulated as decimals and converted to float64 once per
// field, so itemized lines add up to their totals exactly. A nil current plan
// yields a zero breakdown.
func Compute(svc catalog.Service, current, next *catalog.Plan, ms []metrics.UsageMetric) Breakdown {
	b := Breakdown{
		ServiceID:    svc.ID,
		ServiceName:  svc.Name(),
		UsageItems:   []UsageItem{},
		OverageItems: []OverageItem{},
	}
	if current == nil {
		return b
	}

	b.PlanName = current.Name
	if next != nil {
		b.NextPlanName = next.Name
	}
	base := Decimal(current.BasePrice())

	usage := decimal.Zero
	for _, m := range ms {
		item, lineCost, ok := usageLine(m)
		if !ok {
			continue
		}
		usage = usage.Add(lineCost)
		b.UsageItems = append(b.UsageItems, item)
	}

	overage := decimal.Zero
	if over := OverageMetrics(ms); len(over) > 0 {
		b.UpgradeRequired = true
		overage = tierJump(base, next)

		for i, share := range Split(overage, len(over)) {
			m := over[i]
			limit := *m.CurrentPlanThreshold
			b.OverageItems = append(b.OverageItems, OverageItem{
				MetricID: m.ID,
				Name:     m.Name,
				Cost:     share.InexactFloat64(),
				Unit:     m.Unit,
				Exceeded: m.Value - limit,
				Limit:    limit,
			})
		}
	}

	b.BaseCost = base.InexactFloat64()
	b.UsageCost = usage.InexactFloat64()
	b.OverageCost = overage.InexactFloat64()
	b.Total = base.Add(usage).Add(overage).InexactFloat64()
	return b
}

// OverageMetrics returns the metrics whose value is strictly above a non-nil
// threshold. Unlimited metrics never qualify.
func OverageMetrics(ms []metrics.UsageMetric) []metrics.UsageMetric {
	var out []metrics.UsageMetric
	for _, m := range ms {
		if m.Exceeded() {
			out = append(out, m)
		}
	}
	return out
}

// Split divides amount into n shares rounded to cents. The last share takes
// the rounding remainder so the shares always sum to amount.
func Split(amount decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	shares := make([]decimal.Decimal, n)
	share := amount.DivRound(decimal.NewFromInt(int64(n)), 2)
	rest := amount
	for i := 0; i < n-1; i++ {
		shares[i] = share
		rest = rest.Sub(share)
	}
	shares[n-1] = rest
	return shares
}

// Decimal converts v for money arithmetic. NaN and infinities become zero.
func Decimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// usageLine prices a metric that carries a per-unit rate. Units are capped at
// the threshold, and a metric without one bills no units: usage beyond the
// allotment is costed by the tier jump instead.
func usageLine(m metrics.UsageMetric) (UsageItem, decimal.Decimal, bool) {
	if m.CostPerUnit == nil || math.IsNaN(*m.CostPerUnit) || math.IsInf(*m.CostPerUnit, 0) || m.Value <= 0 {
		return UsageItem{}, decimal.Zero, false
	}

	var limit float64
	if m.CurrentPlanThreshold != nil {
		limit = *m.CurrentPlanThreshold
	}
	units := math.Min(m.Value, limit)
	rate := *m.CostPerUnit
	lineCost := Decimal(units).Mul(Decimal(rate))
	return UsageItem{
		MetricID: m.ID,
		Name:     m.Name,
		Cost:     lineCost.InexactFloat64(),
		Unit:     m.Unit,
		Quantity: units,
		Rate:     rate,
	}, lineCost, true
}

// tierJump is the single upgrade charge to the next tier, clamped to
// [0, MaxOverageCost]. There is no charge at the top tier.
func tierJump(base decimal.Decimal, next *catalog.Plan) decimal.Decimal {
	if next == nil {
		return decimal.Zero
	}
	step := Decimal(next.BasePrice()).Sub(base)
	return decimal.Max(decimal.Zero, decimal.Min(step, decimal.NewFromFloat(MaxOverageCost)))
}
