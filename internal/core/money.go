// Package core provides the finance domain types and amount handling.
//
// Amounts are shopspring decimals. Remote services are free to return numeric
// columns as JSON numbers or as text, so every value crossing that boundary is
// coerced through CoerceAmount.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CoerceAmount converts a loosely typed numeric value into a decimal.
//
// Accepted inputs are decimals, Go numeric types, json.Number and numeric text
// ("450.00" -> 450). A nil value coerces to zero. Any other input, or text that
// is not a number, returns ErrInvalidAmount.
func CoerceAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, nil
		}
		return *n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return parseNumericText(string(n))
	case string:
		return parseNumericText(n)
	case []byte:
		return parseNumericText(string(n))
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
}

func parseNumericText(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParseAmount parses a user-entered amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Negative
// values and empty input are rejected; zero is allowed.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Number is a numeric column as received from a remote service: either a JSON
// number or a JSON string holding one. The raw form is preserved until the
// value is coerced.
type Number struct {
	raw any
}

// NumberOf wraps a known value.
func NumberOf(v any) Number {
	return Number{raw: v}
}

// Decimal coerces the raw value.
func (n Number) Decimal() (decimal.Decimal, error) {
	return CoerceAmount(n.raw)
}

// Raw returns the value as received.
func (n Number) Raw() any {
	return n.raw
}

func (n Number) MarshalJSON() ([]byte, error) {
	switch v := n.raw.(type) {
	case nil:
		return []byte("null"), nil
	case decimal.Decimal:
		return []byte(v.String()), nil
	default:
		return json.Marshal(v)
	}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	n.raw = v
	return nil
}
