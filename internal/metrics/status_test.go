package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		threshold *float64
		wantPct   float64
		wantLevel Level
	}{
		{name: "half used", value: 5, threshold: num(10), wantPct: 50, wantLevel: LevelNormal},
		{name: "exactly 80 percent", value: 8, threshold: num(10), wantPct: 80, wantLevel: LevelNormal},
		{name: "warning band", value: 9, threshold: num(10), wantPct: 90, wantLevel: LevelWarning},
		{name: "exactly at cap", value: 10, threshold: num(10), wantPct: 100, wantLevel: LevelWarning},
		{name: "over cap", value: 12, threshold: num(10), wantPct: 120, wantLevel: LevelCritical},
		{name: "unlimited", value: 1000, threshold: nil, wantPct: 0, wantLevel: LevelNormal},
		{name: "zero cap", value: 3, threshold: num(0), wantPct: 0, wantLevel: LevelNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Status(UsageMetric{Value: tt.value, CurrentPlanThreshold: tt.threshold})
			assert.InDelta(t, tt.wantPct, got.Percentage, 1e-9)
			assert.Equal(t, tt.wantLevel, got.Level)
		})
	}
}

func TestSummarize(t *testing.T) {
	ms := []UsageMetric{
		{Value: 1, CurrentPlanThreshold: num(10)},
		{Value: 9, CurrentPlanThreshold: num(10)},
		{Value: 11, CurrentPlanThreshold: num(10)},
		{Value: 50, CurrentPlanThreshold: num(10)},
		{Value: 50},
	}

	assert.Equal(t, Summary{Total: 5, Critical: 2, Warning: 1}, Summarize(ms))
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestProject(t *testing.T) {
	m := UsageMetric{
		ID:                   "svc-users",
		Value:                10,
		Unit:                 "users",
		CurrentPlanThreshold: num(20),
		BasePrice:            10,
		CostPerUnit:          num(2),
		NextPlan:             &PlanRef{Name: "Pro", Limit: num(50), Price: 25},
	}

	t.Run("default window and linear growth", func(t *testing.T) {
		p := Project(m, 40, 0)

		assert.Equal(t, DefaultProjectionDays, p.Days)
		require.Len(t, p.Points, DefaultProjectionDays+1)
		assert.Equal(t, 10.0, p.Points[0].Value)
		assert.InDelta(t, 25.0, p.Points[15].Value, 1e-9)
		assert.InDelta(t, 40.0, p.FinalValue, 1e-9)
		assert.Equal(t, 20.0, *p.Points[3].Threshold)
	})

	t.Run("upgrade when overage outweighs the price step", func(t *testing.T) {
		// 20 units over at $2 = $40 > $15 step.
		p := Project(m, 40, 10)
		require.NotNil(t, p.Recommendation)
		assert.Equal(t, RecommendUpgrade, p.Recommendation.Kind)
		assert.InDelta(t, 25.0, p.Recommendation.Savings, 1e-9)
		assert.Contains(t, p.Recommendation.Message, "Pro")
	})

	t.Run("warning when overage is cheaper than upgrading", func(t *testing.T) {
		// 5 units over at $2 = $10 < $15 step.
		p := Project(m, 25, 10)
		require.NotNil(t, p.Recommendation)
		assert.Equal(t, RecommendWarning, p.Recommendation.Kind)
		assert.InDelta(t, 10.0, p.Recommendation.Cost, 1e-9)
		assert.Contains(t, p.Recommendation.Message, "5 users")
	})

	t.Run("no recommendation within cap", func(t *testing.T) {
		assert.Nil(t, Project(m, 20, 10).Recommendation)
	})

	t.Run("no recommendation when unlimited", func(t *testing.T) {
		u := m
		u.CurrentPlanThreshold = nil
		assert.Nil(t, Project(u, 1e6, 10).Recommendation)
	})

	t.Run("values floor at zero", func(t *testing.T) {
		p := Project(m, -50, 2)
		assert.Equal(t, 0.0, p.FinalValue)
	})
}

func TestProject_DaysBounded(t *testing.T) {
	m := UsageMetric{ID: "s-users", Value: 1, CurrentPlanThreshold: num(5)}

	tests := []struct {
		name string
		days int
		want int
	}{
		{name: "default", days: 0, want: DefaultProjectionDays},
		{name: "negative", days: -4, want: DefaultProjectionDays},
		{name: "at max", days: MaxProjectionDays, want: MaxProjectionDays},
		{name: "large", days: 50_000_000, want: MaxProjectionDays},
		{name: "max int", days: math.MaxInt, want: MaxProjectionDays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(m, 10, tt.days)
			assert.Equal(t, tt.want, p.Days)
			assert.Len(t, p.Points, tt.want+1)
			assert.InDelta(t, 10.0, p.FinalValue, 1e-9)
		})
	}
}
