package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value. It decodes leniently: JSON numbers, numeric
// strings and null are accepted, anything else decodes to zero.
type Amount struct {
	decimal.Decimal
}

// NewAmount returns an Amount for a float value.
func NewAmount(v float64) Amount {
	return Amount{decimal.NewFromFloat(v)}
}

// ParseAmount parses s, returning zero for non-numeric input.
func ParseAmount(s string) Amount {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}
	}
	return Amount{d}
}

// Mul returns a * n.
func (a Amount) Mul(n int) Amount {
	return Amount{a.Decimal.Mul(decimal.NewFromInt(int64(n)))}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{a.Decimal.Add(b.Decimal)}
}

// Equal reports whether both amounts hold the same value.
func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

// MarshalJSON emits the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ParseAmount(s)
		return nil
	}
	if data[0] == '-' || (data[0] >= '0' && data[0] <= '9') {
		*a = ParseAmount(string(data))
		return nil
	}
	// booleans, objects and arrays carry no price
	*a = Amount{}
	return nil
}
