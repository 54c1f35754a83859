package domain

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is a wrapper around apd.Decimal so prices keep their exact
// textual representation across providers and JSON responses.
type Decimal struct {
	apd.Decimal
}

// DefaultContext is used for arithmetic operations.
var DefaultContext = apd.BaseContext.WithPrecision(20)

// Zero constant for convenience
var Zero = NewDecimalFromInt(0)

// NewDecimalFromInt creates a Decimal from an int64
func NewDecimalFromInt(v int64) Decimal {
	d := Decimal{}
	d.SetInt64(v)
	return d
}

// NewDecimalFromString creates a Decimal from a string
func NewDecimalFromString(v string) (Decimal, error) {
	d := Decimal{}
	_, _, err := d.SetString(v)
	if err != nil {
		return d, fmt.Errorf("invalid decimal string %s: %w", v, err)
	}
	return d, nil
}

// NewDecimalFromFloat converts a float reported by a JSON API. The shortest
// representation that round-trips is used, so 189.84 stays 189.84.
func NewDecimalFromFloat(v float64) (Decimal, error) {
	return NewDecimalFromString(strconv.FormatFloat(v, 'f', -1, 64))
}

// DecimalPtr returns a pointer to a copy of d.
func DecimalPtr(d Decimal) *Decimal {
	return &d
}

// String implements the fmt.Stringer interface.
func (d Decimal) String() string {
	return d.Decimal.String()
}

func (d Decimal) Sub(other Decimal) (Decimal, error) {
	res := Decimal{}
	if _, err := DefaultContext.Sub(&res.Decimal, &d.Decimal, &other.Decimal); err != nil {
		return res, fmt.Errorf("sub operation failed: %w", err)
	}
	return res, nil
}

func (d Decimal) Mul(other Decimal) (Decimal, error) {
	res := Decimal{}
	if _, err := DefaultContext.Mul(&res.Decimal, &d.Decimal, &other.Decimal); err != nil {
		return res, fmt.Errorf("mul operation failed: %w", err)
	}
	return res, nil
}

func (d Decimal) Div(other Decimal) (Decimal, error) {
	if other.IsZero() {
		return Zero, fmt.Errorf("division by zero")
	}
	res := Decimal{}
	if _, err := DefaultContext.Quo(&res.Decimal, &d.Decimal, &other.Decimal); err != nil {
		return res, fmt.Errorf("div operation failed: %w", err)
	}
	return res, nil
}

func (d Decimal) IsZero() bool {
	return d.Decimal.IsZero()
}

// MarshalJSON implements the json.Marshaler interface.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) > 1 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	_, _, err := d.SetString(s)
	return err
}

// Round rounds the decimal half-up to the given number of places.
func (d Decimal) Round(places int32) (Decimal, error) {
	res := Decimal{}
	ctx := apd.BaseContext.WithPrecision(20)
	ctx.Rounding = apd.RoundHalfUp

	if _, err := ctx.Quantize(&res.Decimal, &d.Decimal, -places); err != nil {
		return res, fmt.Errorf("quantize operation failed: %w", err)
	}
	return res, nil
}

// PercentChange returns (d - base) / base * 100 rounded to 4 places.
func (d Decimal) PercentChange(base Decimal) (Decimal, error) {
	diff, err := d.Sub(base)
	if err != nil {
		return Zero, err
	}
	ratio, err := diff.Div(base)
	if err != nil {
		return Zero, err
	}
	pct, err := ratio.Mul(NewDecimalFromInt(100))
	if err != nil {
		return Zero, err
	}
	return pct.Round(4)
}
