package domain

// CompanyOverview holds fundamentals. Numeric fields are nil when the
// provider did not report them.
type CompanyOverview struct {
	Name          string   `json:"name,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Exchange      string   `json:"exchange,omitempty"`
	Country       string   `json:"country,omitempty"`
	MarketCap     *float64 `json:"market_cap"`
	PERatio       *float64 `json:"pe_ratio"`
	PEGRatio      *float64 `json:"peg_ratio"`
	DividendYield *float64 `json:"dividend_yield"`
	EPS           *float64 `json:"eps"`
	Beta          *float64 `json:"beta"`
	Week52High    *float64 `json:"week_52_high"`
	Week52Low     *float64 `json:"week_52_low"`
	BookValue     *float64 `json:"book_value"`
	ProfitMargin  *float64 `json:"profit_margin"`
	Sector        string   `json:"sector"`
	Industry      string   `json:"industry"`
	Description   string   `json:"description"`
	Website       string   `json:"website"`
}

// DetailSources records which provider supplied each part of an
// InstrumentDetail. An empty value means that part is missing.
type DetailSources struct {
	Quote    SourceID `json:"quote"`
	Overview SourceID `json:"overview"`
	Logo     string   `json:"logo"`
}

// InstrumentDetail combines a quote, fundamentals and a logo.
type InstrumentDetail struct {
	Symbol   string           `json:"symbol"`
	Name     string           `json:"name"`
	Currency string           `json:"currency"`
	Exchange string           `json:"exchange"`
	Quote    *Quote           `json:"quote"`
	Overview *CompanyOverview `json:"overview"`
	Logo     *string          `json:"logo"`
	Sources  DetailSources    `json:"sources"`
}
