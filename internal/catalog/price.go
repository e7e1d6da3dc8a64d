package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ConvertPrice turns a catalog price (minor units per million tokens) into
// the stored per-token string, e.g. 8900 -> "0.0089" and 1000000 -> "1".
func ConvertPrice(perMillion int64) string {
	s := decimal.NewFromInt(perMillion).Shift(-6).StringFixed(6)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ParsePrice parses a stored price string.
func ParsePrice(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}
