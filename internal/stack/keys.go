package stack

import (
	"sort"
	"strings"

	"github.com/apicus/apicus/internal/metrics"
)

// OverrideKey addresses a simulated value. Metric is the metric slug, i.e. the
// metric ID without its "{ServiceID}-" prefix.
type OverrideKey struct {
	ServiceID string
	Metric    string
}

// KeyFor returns the canonical key of m.
func KeyFor(m metrics.UsageMetric) OverrideKey {
	return OverrideKey{ServiceID: m.ServiceID, Metric: m.Slug}
}

// String renders the key as "{ServiceID}-{Metric}", which is also the metric ID.
func (k OverrideKey) String() string {
	return metrics.MetricID(k.ServiceID, k.Metric)
}

// Overrides maps canonical keys to simulated usage values.
type Overrides map[OverrideKey]float64

// NewOverrides splits raw "{serviceId}-{suffix}" keys into keys.
//
// The suffix may be the metric slug ("acme-users") or the full metric ID
// ("acme-acme-users"). The suffix is kept as given and resolved against the
// service's metrics in Apply, since a slug may itself start with the service
// ID. serviceIDs lists the services the keys may refer to; the longest
// matching ID wins so IDs that contain "-" resolve correctly. Keys naming no
// known service are returned in rejected, sorted.
func NewOverrides(raw map[string]float64, serviceIDs []string) (Overrides, []string) {
	ids := make([]string, len(serviceIDs))
	copy(ids, serviceIDs)
	sort.Slice(ids, func(i, j int) bool { return len(ids[i]) > len(ids[j]) })

	out := make(Overrides, len(raw))
	var rejected []string
	for key, value := range raw {
		k, ok := parseKey(key, ids)
		if !ok {
			rejected = append(rejected, key)
			continue
		}
		out[k] = value
	}
	sort.Strings(rejected)
	return out, rejected
}

func parseKey(key string, idsLongestFirst []string) (OverrideKey, bool) {
	for _, id := range idsLongestFirst {
		suffix, ok := strings.CutPrefix(key, id+"-")
		if !ok {
			continue
		}
		if suffix == "" {
			return OverrideKey{}, false
		}
		return OverrideKey{ServiceID: id, Metric: suffix}, true
	}
	return OverrideKey{}, false
}

// Lookup returns the simulated value set for m's slug.
// Returns (value, true) if set, (0, false) if not.
func (o Overrides) Lookup(m metrics.UsageMetric) (float64, bool) {
	v, ok := o[KeyFor(m)]
	return v, ok
}

// Apply returns a copy of ms with simulated values substituted.
//
// A key matches a metric by slug first. A key whose suffix is a full metric
// ID ("{id}-{slug}") matches only when no metric of that service has the
// suffix itself as its slug.
func (o Overrides) Apply(ms []metrics.UsageMetric) []metrics.UsageMetric {
	out := make([]metrics.UsageMetric, len(ms))
	if len(o) == 0 {
		copy(out, ms)
		return out
	}

	slugs := make(map[OverrideKey]bool, len(ms))
	for _, m := range ms {
		slugs[KeyFor(m)] = true
	}
	for i, m := range ms {
		if v, ok := o.Lookup(m); ok {
			m = m.WithValue(v)
		} else if full := (OverrideKey{ServiceID: m.ServiceID, Metric: m.ID}); !slugs[full] {
			if v, ok := o[full]; ok {
				m = m.WithValue(v)
			}
		}
		out[i] = m
	}
	return out
}
