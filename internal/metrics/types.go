// Package metrics turns a service plan into a normalized list of usage
// metrics, and derives utilization and projections from them.
package metrics

// Type classifies the limit a metric was derived from.
type Type string

// Metric types.
const (
	TypeUsers   Type = "users"
	TypeStorage Type = "storage"
	TypeAPI     Type = "api"
	TypeRate    Type = "rate"
	TypeQuota   Type = "quota"
	TypeOther   Type = "other"
	TypeUsage   Type = "usage"
)

// Slugs of the fixed limit categories. Other limits and usage components use
// a slug derived from their name.
const (
	SlugUsers    = "users"
	SlugStorage  = "storage"
	SlugAPIRate  = "api-rate"
	SlugAPIQuota = "api-quota"

	usageSlugPrefix = "usage-"
)

// PlanRef is a snapshot of an adjacent tier as seen from one metric.
type PlanRef struct {
	Name string `json:"name" yaml:"name"`
	// Limit is the adjacent plan's cap for the same metric; nil when the plan
	// is unlimited for it or does not define it.
	Limit *float64 `json:"limit" yaml:"limit"`
	Price float64  `json:"price" yaml:"price"`
}

// UsageMetric is a typed measurement of usage against a plan limit.
type UsageMetric struct {
	// ID is "{serviceID}-{Slug}" and is stable across extractions.
	ID   string `json:"id" yaml:"id"`
	Slug string `json:"slug" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
	// Value is the current or simulated usage.
	Value  float64 `json:"value" yaml:"value"`
	Unit   string  `json:"unit" yaml:"unit"`
	Type   Type    `json:"type" yaml:"type"`
	Period string  `json:"period,omitempty" yaml:"period,omitempty"`
	// CurrentPlanThreshold is the active plan's cap; nil means unlimited.
	CurrentPlanThreshold *float64 `json:"currentPlanThreshold" yaml:"currentPlanThreshold"`
	BasePrice            float64  `json:"basePrice" yaml:"basePrice"`
	// CostPerUnit is set only for usage-based components.
	CostPerUnit *float64 `json:"costPerUnit,omitempty" yaml:"costPerUnit,omitempty"`
	ServiceID   string   `json:"serviceId" yaml:"serviceId"`
	ServiceName string   `json:"serviceName" yaml:"serviceName"`
	PlanName    string   `json:"planName" yaml:"planName"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	NextPlan    *PlanRef `json:"nextPlan,omitempty" yaml:"nextPlan,omitempty"`
	PriorPlan   *PlanRef `json:"priorPlan,omitempty" yaml:"priorPlan,omitempty"`
}

// Unlimited reports whether the metric has no cap on the active plan.
func (m UsageMetric) Unlimited() bool {
	return m.CurrentPlanThreshold == nil
}

// Exceeded reports whether the value is strictly above a non-nil threshold.
func (m UsageMetric) Exceeded() bool {
	return m.CurrentPlanThreshold != nil && m.Value > *m.CurrentPlanThreshold
}

// WithValue returns a copy of m carrying value.
func (m UsageMetric) WithValue(value float64) UsageMetric {
	m.Value = value
	return m
}
