package application

import (
	"context"
	"errors"
	"strings"

	"github.com/jmanzanog/market-aggregator/internal/domain"
)

const (
	errNoQuote    = "No quote data available from any source"
	errNoHistory  = "No historical data available from any source"
	errNoOverview = "No company overview available from any source"
)

var (
	errNilQuote      = errors.New("provider returned no quote")
	errEmptySeries   = errors.New("provider returned an empty series")
	errEmptyOverview = errors.New("provider returned no overview")
)

type QuoteResponse struct {
	Success bool            `json:"success"`
	Data    *domain.Quote   `json:"data,omitempty"`
	Source  domain.SourceID `json:"source,omitempty"`
	Error   string          `json:"error,omitempty"`
	Errors  []SourceError   `json:"errors,omitempty"`
}

type HistoryResponse struct {
	Success bool                     `json:"success"`
	Data    *domain.HistoricalSeries `json:"data,omitempty"`
	Source  domain.SourceID          `json:"source,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Errors  []SourceError            `json:"errors,omitempty"`
}

// GetQuote returns the first quote produced by the quote chain.
func (a *Aggregator) GetQuote(ctx context.Context, symbol string) *QuoteResponse {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return &QuoteResponse{Error: domain.ErrEmptySymbol.Error()}
	}

	quote, source, failures := a.quote(ctx, symbol)
	if quote == nil {
		return &QuoteResponse{Error: errNoQuote, Errors: failures}
	}
	return &QuoteResponse{Success: true, Data: quote, Source: source, Errors: failures}
}

func (a *Aggregator) quote(ctx context.Context, symbol string) (*domain.Quote, domain.SourceID, []SourceError) {
	links := make([]link[*domain.Quote], len(a.quoteChain))
	for i, p := range a.quoteChain {
		links[i] = link[*domain.Quote]{
			source: p.ID(),
			fetch: func(ctx context.Context) (*domain.Quote, error) {
				return p.GetQuote(ctx, symbol)
			},
		}
	}

	quote, source, failures := firstSuccess(ctx, a, "quote", a.timeouts.Quote, links, func(q *domain.Quote) error {
		if q == nil {
			return errNilQuote
		}
		return nil
	})
	if quote != nil && quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return quote, source, failures
}

// GetHistoricalData returns the first non-empty series produced by the
// history chain, sorted oldest first.
func (a *Aggregator) GetHistoricalData(ctx context.Context, symbol string, period domain.Period) *HistoryResponse {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return &HistoryResponse{Error: domain.ErrEmptySymbol.Error()}
	}
	if period == "" {
		period = domain.Period1M
	}

	links := make([]link[*domain.HistoricalSeries], len(a.historyChain))
	for i, p := range a.historyChain {
		links[i] = link[*domain.HistoricalSeries]{
			source: p.ID(),
			fetch: func(ctx context.Context) (*domain.HistoricalSeries, error) {
				return p.GetHistoricalData(ctx, symbol, period)
			},
		}
	}

	series, source, failures := firstSuccess(ctx, a, "history", a.timeouts.History, links, func(s *domain.HistoricalSeries) error {
		if s.Empty() {
			return errEmptySeries
		}
		return nil
	})
	if series == nil {
		return &HistoryResponse{Error: errNoHistory, Errors: failures}
	}

	if series.Symbol == "" {
		series.Symbol = symbol
	}
	if series.Period == "" {
		series.Period = period
	}
	if series.Source == "" {
		series.Source = source
	}
	series.SortAscending()
	return &HistoryResponse{Success: true, Data: series, Source: source, Errors: failures}
}

func (a *Aggregator) overview(ctx context.Context, symbol string) (*domain.CompanyOverview, domain.SourceID, []SourceError) {
	links := make([]link[*domain.CompanyOverview], len(a.overviewChain))
	for i, p := range a.overviewChain {
		links[i] = link[*domain.CompanyOverview]{
			source: p.ID(),
			fetch: func(ctx context.Context) (*domain.CompanyOverview, error) {
				return p.GetCompanyOverview(ctx, symbol)
			},
		}
	}
	return firstSuccess(ctx, a, "overview", a.timeouts.Overview, links, func(o *domain.CompanyOverview) error {
		if o == nil {
			return errEmptyOverview
		}
		return nil
	})
}
