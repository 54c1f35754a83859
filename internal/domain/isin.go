package domain

import (
	"fmt"
	"strings"
)

// NormalizeISIN trims and upper-cases an ISIN and verifies its structure
// and check digit.
func NormalizeISIN(raw string) (string, error) {
	isin := strings.ToUpper(strings.TrimSpace(raw))
	if err := ValidateISIN(isin); err != nil {
		return "", err
	}
	return isin, nil
}

// ValidateISIN checks length, country prefix, alphabet and the Luhn check
// digit computed over the letter-expanded code.
func ValidateISIN(isin string) error {
	if len(isin) != 12 {
		return fmt.Errorf("%w: %q must have 12 characters", ErrInvalidISIN, isin)
	}
	for i := 0; i < 2; i++ {
		if isin[i] < 'A' || isin[i] > 'Z' {
			return fmt.Errorf("%w: %q must start with a country code", ErrInvalidISIN, isin)
		}
	}

	var digits []int
	for i := 0; i < 11; i++ {
		c := isin[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, int(c-'0'))
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			digits = append(digits, v/10, v%10)
		default:
			return fmt.Errorf("%w: %q contains invalid character %q", ErrInvalidISIN, isin, c)
		}
	}
	last := isin[11]
	if last < '0' || last > '9' {
		return fmt.Errorf("%w: %q check digit must be numeric", ErrInvalidISIN, isin)
	}

	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	if check := (10 - sum%10) % 10; check != int(last-'0') {
		return fmt.Errorf("%w: %q has wrong check digit", ErrInvalidISIN, isin)
	}
	return nil
}
