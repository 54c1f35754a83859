package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmanzanog/market-aggregator/internal/domain"
)

type DetailResponse struct {
	Success bool                     `json:"success"`
	Data    *domain.InstrumentDetail `json:"data,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// GetInstrumentDetails combines a quote, a company overview and a logo.
// Each part is optional; a symbol nobody knows still yields a successful,
// mostly empty detail.
func (a *Aggregator) GetInstrumentDetails(ctx context.Context, symbol string) *DetailResponse {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return &DetailResponse{Error: domain.ErrEmptySymbol.Error()}
	}

	detail := &domain.InstrumentDetail{Symbol: symbol}

	quote, quoteSource, _ := a.quote(ctx, symbol)
	if quote != nil {
		detail.Quote = quote
		detail.Sources.Quote = quoteSource
	}

	overview, overviewSource, failures := a.overview(ctx, symbol)
	if overview != nil {
		detail.Overview = overview
		detail.Sources.Overview = overviewSource
	} else if len(a.overviewChain) > 0 {
		slog.DebugContext(ctx, errNoOverview, "symbol", symbol, "attempts", len(failures))
	}

	detail.Name = firstNonEmpty(overviewField(overview, func(o *domain.CompanyOverview) string { return o.Name }), quoteField(quote, func(q *domain.Quote) string { return q.Name }), symbol)
	detail.Currency = firstNonEmpty(quoteField(quote, func(q *domain.Quote) string { return q.Currency }), overviewField(overview, func(o *domain.CompanyOverview) string { return o.Currency }))
	detail.Exchange = firstNonEmpty(quoteField(quote, func(q *domain.Quote) string { return q.Exchange }), overviewField(overview, func(o *domain.CompanyOverview) string { return o.Exchange }))

	if a.logos != nil {
		if logo := a.logos.Resolve(ctx, symbol, detail.Name); logo != nil {
			detail.Logo = logo
			detail.Sources.Logo = a.logos.Source()
		}
	}

	return &DetailResponse{Success: true, Data: detail}
}

func quoteField(q *domain.Quote, get func(*domain.Quote) string) string {
	if q == nil {
		return ""
	}
	return get(q)
}

func overviewField(o *domain.CompanyOverview, get func(*domain.CompanyOverview) string) string {
	if o == nil {
		return ""
	}
	return get(o)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
