package metrics

import (
	"strings"

	"github.com/apicus/apicus/internal/catalog"
	"github.com/apicus/apicus/internal/limits"
)

// candidate is a metric before plan linkage.
type candidate struct {
	slug        string
	name        string
	value       float64
	unit        string
	typ         Type
	period      string
	threshold   *float64
	costPerUnit *float64
	description string
	// limitIn returns the cap for the same metric on another plan.
	limitIn func(p *catalog.Plan) *float64
}

// Extract converts a service plan into its usage metrics.
//
// current must be one of svc's plans; next and prior, when non-nil, are the
// plans at index +1 and -1 in the same ordered list. Missing limits or pricing
// yield fewer metrics, never an error. The result has no duplicate (ID, Type)
// pairs; the first occurrence wins.
func Extract(svc catalog.Service, current, next, prior *catalog.Plan) []UsageMetric {
	if current == nil {
		return []UsageMetric{}
	}

	var cands []candidate
	cands = append(cands, limitCandidates(current)...)
	cands = append(cands, usageCandidates(current)...)

	out := make([]UsageMetric, 0, len(cands))
	seen := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		m := UsageMetric{
			ID:                   MetricID(svc.ID, c.slug),
			Slug:                 c.slug,
			Name:                 c.name,
			Value:                c.value,
			Unit:                 c.unit,
			Type:                 c.typ,
			Period:               c.period,
			CurrentPlanThreshold: c.threshold,
			BasePrice:            current.BasePrice(),
			CostPerUnit:          c.costPerUnit,
			ServiceID:            svc.ID,
			ServiceName:          svc.Name(),
			PlanName:             current.Name,
			Description:          c.description,
			NextPlan:             planRef(next, c.limitIn),
			PriorPlan:            planRef(prior, c.limitIn),
		}

		key := m.ID + "\x00" + string(m.Type)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// MetricID builds the stable metric identifier for a service and slug.
func MetricID(serviceID, slug string) string {
	return serviceID + "-" + slug
}

// Slugify lower-cases name and joins its words with "-".
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func limitCandidates(p *catalog.Plan) []candidate {
	l := p.Limits
	if l == nil {
		return nil
	}

	var out []candidate

	if l.Users != nil {
		out = append(out, candidate{
			slug:        SlugUsers,
			name:        "Users",
			value:       deref(l.Users.Min),
			unit:        "users",
			typ:         TypeUsers,
			threshold:   clone(l.Users.Max),
			description: orDefault(l.Users.Description, "Team member seats"),
			limitIn: func(p *catalog.Plan) *float64 {
				if p.Limits == nil || p.Limits.Users == nil {
					return nil
				}
				return clone(p.Limits.Users.Max)
			},
		})
	}

	// The storage allotment doubles as the current value: documents carry no
	// separate "used" figure, so utilization reads 100% until overridden.
	if l.Storage != nil {
		out = append(out, candidate{
			slug:        SlugStorage,
			name:        "Storage",
			value:       deref(l.Storage.Amount),
			unit:        orDefault(l.Storage.Unit, "GB"),
			typ:         TypeStorage,
			threshold:   clone(l.Storage.Amount),
			description: orDefault(l.Storage.Description, "Storage capacity"),
			limitIn: func(p *catalog.Plan) *float64 {
				if p.Limits == nil || p.Limits.Storage == nil {
					return nil
				}
				return clone(p.Limits.Storage.Amount)
			},
		})
	}

	if l.API != nil {
		if r := l.API.Rate; r != nil && r.Amount != nil {
			period := orDefault(r.Period, "second")
			out = append(out, candidate{
				slug:        SlugAPIRate,
				name:        "API Rate",
				unit:        "requests/" + period,
				typ:         TypeRate,
				period:      period,
				threshold:   clone(r.Amount),
				description: orDefault(r.Description, "API request rate"),
				limitIn: func(p *catalog.Plan) *float64 {
					if p.Limits == nil || p.Limits.API == nil || p.Limits.API.Rate == nil {
						return nil
					}
					return clone(p.Limits.API.Rate.Amount)
				},
			})
		}
		if q := l.API.Quota; q != nil && q.Amount != nil {
			period := orDefault(q.Period, "month")
			out = append(out, candidate{
				slug:        SlugAPIQuota,
				name:        "API Quota",
				unit:        "requests/" + period,
				typ:         TypeQuota,
				period:      period,
				threshold:   clone(q.Amount),
				description: orDefault(q.Description, "API request quota"),
				limitIn: func(p *catalog.Plan) *float64 {
					if p.Limits == nil || p.Limits.API == nil || p.Limits.API.Quota == nil {
						return nil
					}
					return clone(p.Limits.API.Quota.Amount)
				},
			})
		}
	}

	for _, other := range l.OtherLimits {
		name := other.Name
		parsed := limits.Parse(string(other.Value))
		out = append(out, candidate{
			slug:        Slugify(name),
			name:        name,
			unit:        orDefault(parsed.Unit, "units"),
			typ:         TypeOther,
			period:      parsed.Period,
			threshold:   parsed.Threshold(),
			description: other.Description,
			limitIn: func(p *catalog.Plan) *float64 {
				if p.Limits == nil {
					return nil
				}
				for _, ol := range p.Limits.OtherLimits {
					if ol.Name == name {
						return limits.Parse(string(ol.Value)).Threshold()
					}
				}
				return nil
			},
		})
	}

	return out
}

func usageCandidates(p *catalog.Plan) []candidate {
	comps := p.Pricing.UsageComponents
	if len(comps) == 0 {
		return nil
	}

	out := make([]candidate, 0, len(comps))
	for _, uc := range comps {
		rate := uc.PricePerUnit
		out = append(out, candidate{
			slug:        usageSlugPrefix + Slugify(uc.Name),
			name:        uc.Name,
			unit:        uc.Unit,
			typ:         TypeUsage,
			costPerUnit: &rate,
			description: "billed per " + orDefault(uc.Unit, "unit"),
			limitIn:     func(*catalog.Plan) *float64 { return nil },
		})
	}
	return out
}

func planRef(p *catalog.Plan, limitIn func(*catalog.Plan) *float64) *PlanRef {
	if p == nil {
		return nil
	}
	return &PlanRef{
		Name:  p.Name,
		Limit: limitIn(p),
		Price: p.BasePrice(),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// clone copies a nullable number so metrics never alias catalog documents.
func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
