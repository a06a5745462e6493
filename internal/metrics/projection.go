package metrics

import (
	"fmt"
	"math"
)

// Forecast window bounds, in days.
const (
	DefaultProjectionDays = 30
	MaxProjectionDays     = 365
)

// Recommendation kinds.
const (
	RecommendUpgrade = "upgrade"
	RecommendWarning = "warning"
)

// ProjectionPoint is the projected value at a day offset.
type ProjectionPoint struct {
	Day       int      `json:"day" yaml:"day"`
	Value     float64  `json:"value" yaml:"value"`
	Threshold *float64 `json:"threshold" yaml:"threshold"`
}

// Recommendation advises on a projected overage.
type Recommendation struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Message string  `json:"message" yaml:"message"`
	Cost    float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
	Savings float64 `json:"savings,omitempty" yaml:"savings,omitempty"`
}

// Projection is a linear usage forecast for one metric.
type Projection struct {
	MetricID       string            `json:"metricId" yaml:"metricId"`
	Days           int               `json:"days" yaml:"days"`
	Points         []ProjectionPoint `json:"points" yaml:"points"`
	FinalValue     float64           `json:"finalValue" yaml:"finalValue"`
	Recommendation *Recommendation   `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
}

// Project grows m's value linearly to simulated over days (DefaultProjectionDays
// when days <= 0, at most MaxProjectionDays), one point per day, floored at
// zero.
//
// When the final value exceeds the cap, the per-unit overage cost is compared
// against the price step to the next plan: if upgrading is cheaper the
// recommendation is RecommendUpgrade with the savings, otherwise it is
// RecommendWarning with the projected overage cost.
func Project(m UsageMetric, simulated float64, days int) Projection {
	switch {
	case days <= 0:
		days = DefaultProjectionDays
	case days > MaxProjectionDays:
		days = MaxProjectionDays
	}

	growth := (simulated - m.Value) / float64(days)
	points := make([]ProjectionPoint, 0, days+1)
	for d := 0; d <= days; d++ {
		points = append(points, ProjectionPoint{
			Day:       d,
			Value:     math.Max(0, m.Value+growth*float64(d)),
			Threshold: m.CurrentPlanThreshold,
		})
	}

	p := Projection{
		MetricID:   m.ID,
		Days:       days,
		Points:     points,
		FinalValue: points[len(points)-1].Value,
	}
	p.Recommendation = recommend(m, p.FinalValue)
	return p
}

func recommend(m UsageMetric, final float64) *Recommendation {
	if m.CurrentPlanThreshold == nil {
		return nil
	}
	over := final - *m.CurrentPlanThreshold
	if over <= 0 {
		return nil
	}

	overageCost := over * deref(m.CostPerUnit)
	if m.NextPlan != nil {
		step := m.NextPlan.Price - m.BasePrice
		if overageCost > step {
			return &Recommendation{
				Kind:    RecommendUpgrade,
				Message: fmt.Sprintf("Upgrading to %s would be more cost-effective based on projected usage.", m.NextPlan.Name),
				Savings: overageCost - step,
			}
		}
	}

	return &Recommendation{
		Kind:    RecommendWarning,
		Message: fmt.Sprintf("Projected usage will exceed current plan limit by %s %s.", formatAmount(over), m.Unit),
		Cost:    overageCost,
	}
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.0f", math.Round(v))
}
