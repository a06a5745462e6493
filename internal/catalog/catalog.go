// Package catalog loads and indexes the SaaS service documents that the cost
// engine reads. A Catalog is immutable once built and safe for concurrent use.
package catalog

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// Catalog is an in-memory, read-only index of services keyed by ID.
type Catalog struct {
	services []Service
	byID     map[string]int
	logger   zerolog.Logger
}

// New builds a Catalog from raw service documents. Each service is passed
// through Normalize so plan order is cheapest-first. Documents without an ID
// are skipped and duplicate IDs keep the first occurrence; both cases are
// logged as warnings.
func New(services []Service, logger zerolog.Logger) *Catalog {
	c := &Catalog{
		services: make([]Service, 0, len(services)),
		byID:     make(map[string]int, len(services)),
		logger:   logger,
	}

	for _, svc := range services {
		if svc.ID == "" {
			logger.Warn().
				Str("service_name", svc.Metadata.ServiceName).
				Msg("skipping service without _id")
			continue
		}
		if _, dup := c.byID[svc.ID]; dup {
			logger.Warn().
				Str("service_id", svc.ID).
				Msg("duplicate service id; keeping first occurrence")
			continue
		}

		normalized, reordered := Normalize(svc)
		if reordered {
			logger.Warn().
				Str("service_id", svc.ID).
				Int("plans", len(normalized.EnhancedData.Plans)).
				Msg("plans were not ordered by base price; reordered at ingestion")
		}

		c.byID[svc.ID] = len(c.services)
		c.services = append(c.services, normalized)
	}

	logger.Debug().Int("services", len(c.services)).Msg("catalog built")
	return c
}

// Open loads every document from store and builds a Catalog.
func Open(ctx context.Context, store Store, logger zerolog.Logger) (*Catalog, error) {
	start := time.Now()
	services, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c := New(services, logger)
	logger.Info().
		Str("source", store.String()).
		Int("services", c.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("catalog loaded")
	return c, nil
}

// Len returns the number of indexed services.
func (c *Catalog) Len() int {
	return len(c.services)
}

// Services returns the indexed services in ingestion order.
// The returned slice is a copy; the documents themselves must not be modified.
func (c *Catalog) Services() []Service {
	return slices.Clone(c.services)
}

// Service returns the service with the given ID.
// Returns (service, true) if found, (zero, false) if not found.
func (c *Catalog) Service(id string) (Service, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Service{}, false
	}
	return c.services[idx], true
}

// Plan returns the plan at index for the given service.
// Returns (plan, true) if found, (zero, false) if the service or index is unknown.
func (c *Catalog) Plan(serviceID string, index int) (Plan, bool) {
	svc, ok := c.Service(serviceID)
	if !ok || index < 0 || index >= len(svc.EnhancedData.Plans) {
		return Plan{}, false
	}
	return svc.EnhancedData.Plans[index], true
}

// Normalize returns a copy of svc whose plans are stable-sorted by monthly
// base price, and reports whether the order changed. Plans with custom
// pricing and no listed price sort last, since "contact sales" tiers sit
// above every published tier.
//
// Next/prior plan resolution relies on this ordering; call Normalize at every
// ingestion boundary.
func Normalize(svc Service) (Service, bool) {
	plans := svc.EnhancedData.Plans
	if len(plans) < 2 {
		return svc, false
	}

	sorted := slices.Clone(plans)
	slices.SortStableFunc(sorted, func(a, b Plan) int {
		return cmp.Compare(orderingPrice(a), orderingPrice(b))
	})

	reordered := false
	for i := range plans {
		if plans[i].Name != sorted[i].Name || orderingPrice(plans[i]) != orderingPrice(sorted[i]) {
			reordered = true
			break
		}
	}

	svc.EnhancedData.Plans = sorted
	return svc, reordered
}

func orderingPrice(p Plan) float64 {
	if !p.hasListedPrice() && p.Pricing.CustomPricing {
		return math.Inf(1)
	}
	return p.BasePrice()
}
