package domain

import "strings"

type InstrumentType string

const (
	InstrumentTypeStock    InstrumentType = "stock"
	InstrumentTypeETF      InstrumentType = "etf"
	InstrumentTypeFund     InstrumentType = "fund"
	InstrumentTypeIndex    InstrumentType = "index"
	InstrumentTypeCrypto   InstrumentType = "crypto"
	InstrumentTypeCurrency InstrumentType = "currency"
	InstrumentTypeFuture   InstrumentType = "future"
	InstrumentTypeBond     InstrumentType = "bond"
	InstrumentTypeOther    InstrumentType = "other"
)

// SearchResult is one instrument found by a search. Symbol is the
// deduplication key; Sources accumulates every provider that returned it.
type SearchResult struct {
	Symbol        string         `json:"symbol"`
	Name          string         `json:"name"`
	Type          InstrumentType `json:"type"`
	Exchange      string         `json:"exchange"`
	Currency      string         `json:"currency"`
	Country       string         `json:"country,omitempty"`
	ISIN          string         `json:"isin,omitempty"`
	Price         *Decimal       `json:"price,omitempty"`
	Change        *Decimal       `json:"change,omitempty"`
	ChangePercent *Decimal       `json:"change_percent,omitempty"`
	Sources       []SourceID     `json:"sources"`
}

// AddSource records src unless it is already present.
func (r *SearchResult) AddSource(src SourceID) {
	for _, s := range r.Sources {
		if s == src {
			return
		}
	}
	r.Sources = append(r.Sources, src)
}

func (r SearchResult) HasPrice() bool {
	return r.Price != nil
}

// Key is the normalized symbol used to merge results across providers.
func (r SearchResult) Key() string {
	return NormalizeSymbol(r.Symbol)
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
