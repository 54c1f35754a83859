package domain

import "time"

// DateLayout is the calendar date format used by the static datasets.
const DateLayout = "2006-01-02"

// Bond is one row of the bond dataset.
type Bond struct {
	ISIN     string  `json:"isin"`
	Name     string  `json:"name"`
	Issuer   string  `json:"issuer"`
	Type     string  `json:"type"`
	Country  string  `json:"country"`
	Currency string  `json:"currency"`
	Coupon   float64 `json:"coupon"`
	Yield    float64 `json:"yield"`
	Price    float64 `json:"price"`
	Maturity string  `json:"maturity"`
	Rating   string  `json:"rating,omitempty"`
	Market   string  `json:"market,omitempty"`
}

// MaturityDate parses Maturity; ok is false when it is missing or malformed.
func (b Bond) MaturityDate() (time.Time, bool) {
	return parseDate(b.Maturity)
}

// Certificate is one row of the investment-certificate dataset.
type Certificate struct {
	ISIN       string  `json:"isin"`
	Name       string  `json:"name"`
	Issuer     string  `json:"issuer"`
	Type       string  `json:"type"`
	Underlying string  `json:"underlying"`
	Currency   string  `json:"currency"`
	Strike     float64 `json:"strike"`
	Barrier    float64 `json:"barrier"`
	Coupon     float64 `json:"coupon"`
	Price      float64 `json:"price"`
	Maturity   string  `json:"maturity"`
	Market     string  `json:"market,omitempty"`
}

func (c Certificate) MaturityDate() (time.Time, bool) {
	return parseDate(c.Maturity)
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
