package catalog

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Service is a catalog document describing one SaaS offering.
// Plans are ordered cheapest-first once the service has passed through Normalize.
type Service struct {
	ID           string       `json:"_id" yaml:"_id"`
	Metadata     Metadata     `json:"metadata" yaml:"metadata"`
	EnhancedData EnhancedData `json:"enhanced_data" yaml:"enhanced_data"`
}

// Metadata holds descriptive fields about the source document.
type Metadata struct {
	ServiceName  string   `json:"service_name" yaml:"service_name"`
	PricingTypes []string `json:"pricing_types,omitempty" yaml:"pricing_types,omitempty"`
	OriginalURL  string   `json:"original_url,omitempty" yaml:"original_url,omitempty"`
	Regions      []string `json:"regions,omitempty" yaml:"regions,omitempty"`
	LastUpdated  string   `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
}

// EnhancedData carries the structured pricing information for a service.
type EnhancedData struct {
	ServiceInfo ServiceInfo `json:"service_info" yaml:"service_info"`
	Plans       []Plan      `json:"plans" yaml:"plans"`
}

// ServiceInfo describes billing conventions shared by all plans.
type ServiceInfo struct {
	Currency      string   `json:"currency,omitempty" yaml:"currency,omitempty"`
	BillingCycles []string `json:"billing_cycles,omitempty" yaml:"billing_cycles,omitempty"`
	URL           string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// Plan is a named pricing tier.
type Plan struct {
	Name       string   `json:"name" yaml:"name"`
	IsFreeTier bool     `json:"is_free_tier,omitempty" yaml:"is_free_tier,omitempty"`
	Features   Features `json:"features" yaml:"features"`
	Limits     *Limits  `json:"limits,omitempty" yaml:"limits,omitempty"`
	Pricing    Pricing  `json:"pricing" yaml:"pricing"`
	Trial      *Trial   `json:"trial,omitempty" yaml:"trial,omitempty"`
}

// Features are descriptive only and never consumed by cost logic.
type Features struct {
	Highlighted []string          `json:"highlighted,omitempty" yaml:"highlighted,omitempty"`
	Categories  []FeatureCategory `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// FeatureCategory groups related features under a heading.
type FeatureCategory struct {
	Name     string    `json:"name" yaml:"name"`
	Features []Feature `json:"features,omitempty" yaml:"features,omitempty"`
}

// Feature is a single named capability.
type Feature struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Limits holds the structured caps of a plan. Every field is optional.
type Limits struct {
	Users       *UserLimit    `json:"users,omitempty" yaml:"users,omitempty"`
	Storage     *StorageLimit `json:"storage,omitempty" yaml:"storage,omitempty"`
	API         *APILimit     `json:"api,omitempty" yaml:"api,omitempty"`
	OtherLimits []OtherLimit  `json:"other_limits,omitempty" yaml:"other_limits,omitempty"`
}

// UserLimit bounds the number of seats. A nil Max means unlimited.
type UserLimit struct {
	Min         *float64 `json:"min" yaml:"min"`
	Max         *float64 `json:"max" yaml:"max"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// StorageLimit is the storage allotment of a plan.
type StorageLimit struct {
	Amount      *float64 `json:"amount" yaml:"amount"`
	Unit        string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// APILimit groups the request rate and request quota caps.
type APILimit struct {
	Rate  *RateLimit `json:"rate,omitempty" yaml:"rate,omitempty"`
	Quota *RateLimit `json:"quota,omitempty" yaml:"quota,omitempty"`
}

// RateLimit is an amount allowed per period.
type RateLimit struct {
	Amount      *float64 `json:"amount" yaml:"amount"`
	Period      string   `json:"period,omitempty" yaml:"period,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// OtherLimit is a free-form named limit whose value encodes amount, unit and
// period in one string, e.g. "10k/month".
type OtherLimit struct {
	Name        string     `json:"name" yaml:"name"`
	Value       LimitValue `json:"value" yaml:"value"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// LimitValue is the raw value of an OtherLimit. Documents store it either as
// a string or as a bare number; both decode to the same text.
type LimitValue string

// UnmarshalJSON accepts strings, numbers and null.
func (v *LimitValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = LimitValue(s)
		return nil
	default:
		*v = LimitValue(data)
		return nil
	}
}

// Pricing holds the fixed and usage-based charges of a plan.
type Pricing struct {
	Monthly         *PriceTerm       `json:"monthly,omitempty" yaml:"monthly,omitempty"`
	Annual          *PriceTerm       `json:"annual,omitempty" yaml:"annual,omitempty"`
	UsageComponents []UsageComponent `json:"usage_components,omitempty" yaml:"usage_components,omitempty"`
	CustomPricing   bool             `json:"custom_pricing,omitempty" yaml:"custom_pricing,omitempty"`
}

// PriceTerm is the price for one billing cycle.
type PriceTerm struct {
	BasePrice         *float64 `json:"base_price" yaml:"base_price"`
	Currency          string   `json:"currency,omitempty" yaml:"currency,omitempty"`
	Details           string   `json:"details,omitempty" yaml:"details,omitempty"`
	MinimumUsers      *float64 `json:"minimum_users,omitempty" yaml:"minimum_users,omitempty"`
	PerUserPrice      *float64 `json:"per_user_price,omitempty" yaml:"per_user_price,omitempty"`
	SavingsPercentage *float64 `json:"savings_percentage,omitempty" yaml:"savings_percentage,omitempty"`
}

// UsageComponent is a pay-per-unit charge independent of fixed limits.
type UsageComponent struct {
	Name         string  `json:"name" yaml:"name"`
	PricePerUnit float64 `json:"price_per_unit" yaml:"price_per_unit"`
	Unit         string  `json:"unit" yaml:"unit"`
}

// Trial describes a free trial offer.
type Trial struct {
	Available    bool     `json:"available" yaml:"available"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	DurationDays *float64 `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
}

// Name returns the display name of the service, falling back to its ID.
func (s Service) Name() string {
	if s.Metadata.ServiceName != "" {
		return s.Metadata.ServiceName
	}
	return s.ID
}

// Plans returns the ordered plan list.
func (s Service) Plans() []Plan {
	return s.EnhancedData.Plans
}

// BasePrice returns the monthly base price, or 0 when the plan has none.
func (p Plan) BasePrice() float64 {
	if p.Pricing.Monthly == nil || p.Pricing.Monthly.BasePrice == nil {
		return 0
	}
	return *p.Pricing.Monthly.BasePrice
}

// hasListedPrice reports whether the plan publishes a monthly base price.
func (p Plan) hasListedPrice() bool {
	return p.Pricing.Monthly != nil && p.Pricing.Monthly.BasePrice != nil
}
