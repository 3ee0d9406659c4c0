// Package money parses provider amount strings into major currency units.
// Providers disagree on encoding: the resale marketplace sends decimal
// strings already in major units, the peer marketplace sends integer strings
// in minor units (cents). A missing or unparseable amount is nil, never zero.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SuspectCeiling is the major-unit amount above which a single-item price is
// treated as a likely unit-conversion bug upstream. Callers log it as a
// data-quality warning; the value is still stored.
const SuspectCeiling = 100000.0

// ParseMajor parses a decimal string already expressed in major units.
// Returns nil for empty or unparseable input.
func ParseMajor(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	v, _ := d.Float64()
	return &v
}

// ParseMinor parses an integer string of minor units (cents) and converts to
// major units by shifting two decimal places, so majorUnits = minorUnits/100
// exactly. Returns nil for empty or unparseable input.
func ParseMinor(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	v, _ := d.Shift(-2).Float64()
	return &v
}

// Suspect reports whether a parsed amount exceeds the sanity ceiling.
func Suspect(v *float64) bool {
	return v != nil && *v > SuspectCeiling
}
