// Package limits parses the free-form limit strings found in plan documents.
//
// Grammar (after trimming and removing thousands separators):
//
//	value  = "unlimited" | amount [ space ] [ unit ] [ "/" period ]
//	amount = digits [ "." digits ]
//	unit   = one or more characters other than "/" and whitespace
//	period = word characters
//
// Strings outside the grammar fall back to their leading number, and strings
// with no leading number parse to an invalid zero amount. Parsing never fails.
package limits

import (
	"regexp"
	"strconv"
	"strings"
)

// Unlimited is the literal that marks a limit without a cap.
const Unlimited = "unlimited"

var (
	grammar       = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([^/\s]+)?(?:/(\w+))?$`)
	leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)
	slashSpacing  = regexp.MustCompile(`\s*/\s*`)
)

// Value is a parsed limit string.
type Value struct {
	// Raw is the input exactly as found in the document.
	Raw string
	// Amount is the numeric part, or 0 when Valid is false.
	Amount float64
	// Unit is the token following the amount, e.g. "h" in "2h/month".
	Unit string
	// Period is the token following the slash, e.g. "month".
	Period string
	// Unlimited is true for "unlimited" and for empty values.
	Unlimited bool
	// Valid is true when a numeric amount was found.
	Valid bool
}

// Parse decodes a limit string. See the package documentation for the grammar.
func Parse(raw string) Value {
	v := Value{Raw: raw}

	clean := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if clean == "" || strings.EqualFold(clean, Unlimited) {
		v.Unlimited = true
		return v
	}
	clean = slashSpacing.ReplaceAllString(clean, "/")

	if m := grammar.FindStringSubmatch(clean); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return v
		}
		v.Amount = amount
		v.Unit = m[2]
		v.Period = m[3]
		v.Valid = true
		return v
	}

	if num := leadingNumber.FindString(clean); num != "" {
		if amount, err := strconv.ParseFloat(num, 64); err == nil {
			v.Amount = amount
			v.Valid = true
		}
	}
	return v
}

// Threshold returns the cap expressed by v, or nil when the value is
// unlimited or could not be parsed. A nil threshold is never exceedable.
func (v Value) Threshold() *float64 {
	if v.Unlimited || !v.Valid {
		return nil
	}
	amount := v.Amount
	return &amount
}
