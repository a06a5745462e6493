package stack

import (
	"cmp"
	"slices"

	"github.com/apicus/apicus/internal/catalog"
)

// DefaultSuggestionSize is the stack size used when none is given.
const DefaultSuggestionSize = 2

// Suggestion is a service whose cheapest priced plan fits a budget.
type Suggestion struct {
	ServiceID   string  `json:"serviceId" yaml:"id"`
	ServiceName string  `json:"serviceName" yaml:"name"`
	PlanIndex   int     `json:"planIndex" yaml:"plan"`
	PlanName    string  `json:"planName" yaml:"planName"`
	BasePrice   float64 `json:"basePrice" yaml:"basePrice"`
}

// Suggest picks up to n services whose cheapest plan with a positive base
// price costs at most budget. Services without such a plan are never
// suggested. The result is ordered by that price, then by service ID, so the
// same catalog always yields the same stack. n <= 0 selects
// DefaultSuggestionSize.
func Suggest(services []catalog.Service, budget float64, n int) []Suggestion {
	if n <= 0 {
		n = DefaultSuggestionSize
	}

	out := make([]Suggestion, 0, len(services))
	for _, svc := range services {
		s, ok := cheapestPriced(svc)
		if !ok || s.BasePrice > budget {
			continue
		}
		out = append(out, s)
	}

	slices.SortStableFunc(out, func(a, b Suggestion) int {
		if c := cmp.Compare(a.BasePrice, b.BasePrice); c != 0 {
			return c
		}
		return cmp.Compare(a.ServiceID, b.ServiceID)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Selections returns the plan selection that prices suggestions as a stack.
func Selections(suggestions []Suggestion) Selection {
	sel := make(Selection, len(suggestions))
	for _, s := range suggestions {
		sel[s.ServiceID] = s.PlanIndex
	}
	return sel
}

func cheapestPriced(svc catalog.Service) (Suggestion, bool) {
	var (
		best  Suggestion
		found bool
	)
	for i, p := range svc.EnhancedData.Plans {
		price := p.BasePrice()
		if price <= 0 {
			continue
		}
		if !found || price < best.BasePrice {
			best = Suggestion{
				ServiceID:   svc.ID,
				ServiceName: svc.Name(),
				PlanIndex:   i,
				PlanName:    p.Name,
				BasePrice:   price,
			}
			found = true
		}
	}
	return best, found
}
