package domain

import "time"

// Quote is a point-in-time price snapshot. It always comes from exactly one
// provider and is never merged.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Price         Decimal   `json:"price"`
	Change        Decimal   `json:"change"`
	ChangePercent Decimal   `json:"change_percent"`
	Currency      string    `json:"currency"`
	Exchange      string    `json:"exchange"`
	Timestamp     time.Time `json:"timestamp"`
	Volume        *int64    `json:"volume,omitempty"`
	Open          *Decimal  `json:"open,omitempty"`
	High          *Decimal  `json:"high,omitempty"`
	Low           *Decimal  `json:"low,omitempty"`
	PreviousClose *Decimal  `json:"previous_close,omitempty"`
}
