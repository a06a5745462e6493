package metrics

import (
	"testing"

	"github.com/apicus/apicus/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(v float64) *float64 { return &v }

func pricedPlan(name string, base float64, l *catalog.Limits) catalog.Plan {
	return catalog.Plan{
		Name:    name,
		Limits:  l,
		Pricing: catalog.Pricing{Monthly: &catalog.PriceTerm{BasePrice: num(base)}},
	}
}

func acmeService() catalog.Service {
	return catalog.Service{
		ID:       "acme",
		Metadata: catalog.Metadata{ServiceName: "Acme"},
		EnhancedData: catalog.EnhancedData{Plans: []catalog.Plan{
			pricedPlan("Starter", 10, &catalog.Limits{Users: &catalog.UserLimit{Max: num(5)}}),
			pricedPlan("Pro", 25, &catalog.Limits{Users: &catalog.UserLimit{Max: num(20)}}),
		}},
	}
}

func byID(t *testing.T, ms []UsageMetric, id string) UsageMetric {
	t.Helper()
	for _, m := range ms {
		if m.ID == id {
			return m
		}
	}
	require.FailNowf(t, "metric not found", "id %q", id)
	return UsageMetric{}
}

func TestExtract_AcmeScenario(t *testing.T) {
	svc := acmeService()
	plans := svc.EnhancedData.Plans

	ms := Extract(svc, &plans[0], &plans[1], nil)

	require.Len(t, ms, 1)
	m := ms[0]
	assert.Equal(t, "acme-users", m.ID)
	assert.Equal(t, SlugUsers, m.Slug)
	assert.Equal(t, TypeUsers, m.Type)
	assert.Equal(t, 0.0, m.Value, "min is absent so value defaults to 0")
	require.NotNil(t, m.CurrentPlanThreshold)
	assert.Equal(t, 5.0, *m.CurrentPlanThreshold)
	assert.Equal(t, 10.0, m.BasePrice)
	assert.Equal(t, "Acme", m.ServiceName)
	assert.Equal(t, "Starter", m.PlanName)

	require.NotNil(t, m.NextPlan)
	assert.Equal(t, "Pro", m.NextPlan.Name)
	require.NotNil(t, m.NextPlan.Limit)
	assert.Equal(t, 20.0, *m.NextPlan.Limit)
	assert.Equal(t, 25.0, m.NextPlan.Price)
	assert.Nil(t, m.PriorPlan)
}

func TestExtract_AllCategories(t *testing.T) {
	current := catalog.Plan{
		Name: "Growth",
		Limits: &catalog.Limits{
			Users:   &catalog.UserLimit{Min: num(2), Max: nil},
			Storage: &catalog.StorageLimit{Amount: num(50)},
			API: &catalog.APILimit{
				Rate:  &catalog.RateLimit{Amount: num(10)},
				Quota: &catalog.RateLimit{Amount: num(1000), Period: "day"},
			},
			OtherLimits: []catalog.OtherLimit{
				{Name: "Restore Hours", Value: "2h/month"},
				{Name: "Custom Domains", Value: "unlimited"},
				{Name: "Support Level", Value: "best effort"},
			},
		},
		Pricing: catalog.Pricing{
			Monthly:         &catalog.PriceTerm{BasePrice: num(35)},
			UsageComponents: []catalog.UsageComponent{{Name: "Dedicated IP", PricePerUnit: 30, Unit: "ip"}},
		},
	}
	svc := catalog.Service{ID: "svc", EnhancedData: catalog.EnhancedData{Plans: []catalog.Plan{current}}}

	ms := Extract(svc, &current, nil, nil)
	require.Len(t, ms, 8)

	users := byID(t, ms, "svc-users")
	assert.Equal(t, 2.0, users.Value)
	assert.True(t, users.Unlimited())
	assert.Equal(t, "svc", users.ServiceName, "falls back to the service id")

	storage := byID(t, ms, "svc-storage")
	assert.Equal(t, 50.0, storage.Value)
	assert.Equal(t, 50.0, *storage.CurrentPlanThreshold)
	assert.Equal(t, "GB", storage.Unit)

	rate := byID(t, ms, "svc-api-rate")
	assert.Equal(t, TypeRate, rate.Type)
	assert.Equal(t, 0.0, rate.Value)
	assert.Equal(t, "requests/second", rate.Unit)
	assert.Equal(t, 10.0, *rate.CurrentPlanThreshold)

	quota := byID(t, ms, "svc-api-quota")
	assert.Equal(t, TypeQuota, quota.Type)
	assert.Equal(t, "requests/day", quota.Unit)
	assert.Equal(t, "day", quota.Period)

	restore := byID(t, ms, "svc-restore-hours")
	assert.Equal(t, TypeOther, restore.Type)
	assert.Equal(t, "h", restore.Unit)
	assert.Equal(t, "month", restore.Period)
	assert.Equal(t, 2.0, *restore.CurrentPlanThreshold)

	domains := byID(t, ms, "svc-custom-domains")
	assert.True(t, domains.Unlimited())

	support := byID(t, ms, "svc-support-level")
	assert.True(t, support.Unlimited(), "unparseable values are listed but never exceedable")
	assert.Equal(t, "units", support.Unit)

	ip := byID(t, ms, "svc-usage-dedicated-ip")
	assert.Equal(t, TypeUsage, ip.Type)
	assert.True(t, ip.Unlimited())
	require.NotNil(t, ip.CostPerUnit)
	assert.Equal(t, 30.0, *ip.CostPerUnit)
	assert.Equal(t, 0.0, ip.Value)
}

func TestExtract_RateAndQuotaRequireAmount(t *testing.T) {
	current := catalog.Plan{Name: "Free", Limits: &catalog.Limits{
		API: &catalog.APILimit{
			Rate:  &catalog.RateLimit{Amount: nil, Period: "minute"},
			Quota: &catalog.RateLimit{Amount: num(100)},
		},
	}}
	ms := Extract(catalog.Service{ID: "s"}, &current, nil, nil)

	require.Len(t, ms, 1)
	assert.Equal(t, "s-api-quota", ms[0].ID)
	assert.Equal(t, "requests/month", ms[0].Unit)
}

func TestExtract_DegradesOnMissingData(t *testing.T) {
	svc := catalog.Service{ID: "s"}

	assert.Empty(t, Extract(svc, nil, nil, nil))
	assert.Empty(t, Extract(svc, &catalog.Plan{Name: "Bare"}, nil, nil))

	m := Extract(svc, &catalog.Plan{Name: "NoPrice", Limits: &catalog.Limits{Users: &catalog.UserLimit{}}}, nil, nil)
	require.Len(t, m, 1)
	assert.Equal(t, 0.0, m[0].BasePrice)
	assert.True(t, m[0].Unlimited())
}

func TestExtract_AdjacentPlanLinkage(t *testing.T) {
	prior := pricedPlan("Free", 0, &catalog.Limits{
		Users:       &catalog.UserLimit{Max: num(1)},
		OtherLimits: []catalog.OtherLimit{{Name: "Projects", Value: "3"}},
	})
	current := pricedPlan("Team", 20, &catalog.Limits{
		Users:       &catalog.UserLimit{Max: num(10)},
		Storage:     &catalog.StorageLimit{Amount: num(5)},
		OtherLimits: []catalog.OtherLimit{{Name: "Projects", Value: "20"}},
	})
	next := pricedPlan("Business", 80, &catalog.Limits{
		Users:       &catalog.UserLimit{Max: nil},
		OtherLimits: []catalog.OtherLimit{{Name: "Projects", Value: "unlimited"}},
	})

	ms := Extract(catalog.Service{ID: "s"}, &current, &next, &prior)

	users := byID(t, ms, "s-users")
	require.NotNil(t, users.NextPlan)
	assert.Nil(t, users.NextPlan.Limit, "next tier is unlimited")
	assert.Equal(t, 80.0, users.NextPlan.Price)
	require.NotNil(t, users.PriorPlan)
	assert.Equal(t, "Free", users.PriorPlan.Name)
	assert.Equal(t, 1.0, *users.PriorPlan.Limit)

	storage := byID(t, ms, "s-storage")
	require.NotNil(t, storage.NextPlan)
	assert.Nil(t, storage.NextPlan.Limit, "next tier has no storage category")

	projects := byID(t, ms, "s-projects")
	assert.Nil(t, projects.NextPlan.Limit)
	assert.Equal(t, 3.0, *projects.PriorPlan.Limit)
}

func TestExtract_Deduplicates(t *testing.T) {
	current := catalog.Plan{Name: "P", Limits: &catalog.Limits{
		Users: &catalog.UserLimit{Max: num(3)},
		OtherLimits: []catalog.OtherLimit{
			{Name: "Seats", Value: "5"},
			{Name: "seats", Value: "9"},
			{Name: "Users", Value: "7"},
		},
	}}

	ms := Extract(catalog.Service{ID: "s"}, &current, nil, nil)

	seats := byID(t, ms, "s-seats")
	assert.Equal(t, 5.0, *seats.CurrentPlanThreshold, "first occurrence wins")

	var usersTypes []Type
	for _, m := range ms {
		if m.ID == "s-users" {
			usersTypes = append(usersTypes, m.Type)
		}
	}
	assert.Equal(t, []Type{TypeUsers, TypeOther}, usersTypes, "same id with a different type is kept")
	assert.Len(t, ms, 3)
}

func TestExtract_Idempotent(t *testing.T) {
	svc := acmeService()
	plans := svc.EnhancedData.Plans
	plans[0].Limits.OtherLimits = []catalog.OtherLimit{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}, {Name: "a", Value: "3"}}

	first := Extract(svc, &plans[0], &plans[1], nil)
	second := Extract(svc, &plans[0], &plans[1], nil)

	assert.Equal(t, first, second)

	type pair struct {
		id string
		t  Type
	}
	seen := map[pair]bool{}
	for _, m := range first {
		p := pair{m.ID, m.Type}
		assert.False(t, seen[p], "duplicate %v", p)
		seen[p] = true
	}
}

func TestExtract_DoesNotAliasCatalog(t *testing.T) {
	svc := acmeService()
	plans := svc.EnhancedData.Plans

	ms := Extract(svc, &plans[0], &plans[1], nil)
	*ms[0].CurrentPlanThreshold = 999

	assert.Equal(t, 5.0, *plans[0].Limits.Users.Max)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "email-sends", Slugify("Email Sends"))
	assert.Equal(t, "ai-survey-credits", Slugify("  AI   Survey\tCredits "))
	assert.Equal(t, "", Slugify(""))
}

func TestUsageMetric_Exceeded(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		threshold *float64
		want      bool
	}{
		{name: "below", value: 4, threshold: num(5), want: false},
		{name: "exactly at threshold", value: 5, threshold: num(5), want: false},
		{name: "just above", value: 5.000001, threshold: num(5), want: true},
		{name: "unlimited", value: 1e12, threshold: nil, want: false},
		{name: "zero cap", value: 1, threshold: num(0), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := UsageMetric{Value: tt.value, CurrentPlanThreshold: tt.threshold}
			assert.Equal(t, tt.want, m.Exceeded())
		})
	}
}
