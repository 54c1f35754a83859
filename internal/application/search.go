package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jmanzanog/market-aggregator/internal/domain"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata"
)

const errNoSearchResults = "No results found from any source"

type SearchMetadata struct {
	TotalResults int               `json:"total_results"`
	Sources      []domain.SourceID `json:"sources"`
	Errors       []SourceError     `json:"errors,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// SearchResponse is never nil and never carries a Go error: failures are
// described in-band.
type SearchResponse struct {
	Success  bool                  `json:"success"`
	Results  []domain.SearchResult `json:"results"`
	Error    string                `json:"error,omitempty"`
	Metadata SearchMetadata        `json:"metadata"`
}

// Search queries every provider concurrently, merges results by symbol and
// fills in missing prices for the top results.
func (a *Aggregator) Search(ctx context.Context, query string) *SearchResponse {
	query = strings.TrimSpace(query)
	if query == "" {
		return a.failedSearch(domain.ErrEmptyQuery.Error(), nil)
	}
	return a.fanOut(ctx, "search", func(ctx context.Context, p marketdata.Provider) ([]domain.SearchResult, error) {
		return p.Search(ctx, query)
	}, "")
}

// SearchByISIN runs the search pipeline with each provider's ISIN lookup.
// Results without an ISIN of their own are stamped with the one requested.
func (a *Aggregator) SearchByISIN(ctx context.Context, isin string) *SearchResponse {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	if isin == "" {
		return a.failedSearch(domain.ErrInvalidISIN.Error(), nil)
	}
	return a.fanOut(ctx, "search_isin", func(ctx context.Context, p marketdata.Provider) ([]domain.SearchResult, error) {
		return p.SearchByISIN(ctx, isin)
	}, isin)
}

type providerHits struct {
	source  domain.SourceID
	results []domain.SearchResult
	err     error
}

func (a *Aggregator) fanOut(ctx context.Context, op string, lookup func(context.Context, marketdata.Provider) ([]domain.SearchResult, error), isin string) *SearchResponse {
	hits := make([]providerHits, len(a.providers))

	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p marketdata.Provider) {
			defer wg.Done()
			results, err := call(ctx, a.timeouts.Search, func(ctx context.Context) ([]domain.SearchResult, error) {
				return lookup(ctx, p)
			})
			hits[i] = providerHits{source: p.ID(), results: results, err: err}
		}(i, p)
	}
	wg.Wait()

	var failures []SourceError
	var responded []domain.SourceID
	for _, h := range hits {
		if h.err != nil {
			slog.WarnContext(ctx, "search provider failed", "operation", op, "source", h.source, "error", h.err)
			failures = append(failures, SourceError{Source: h.source, Error: h.err.Error()})
			continue
		}
		if len(h.results) > 0 {
			responded = append(responded, h.source)
		}
	}

	merged := a.merge(hits)
	if len(merged) == 0 {
		return a.failedSearch(errNoSearchResults, failures)
	}
	if isin != "" {
		for i := range merged {
			if merged[i].ISIN == "" {
				merged[i].ISIN = isin
			}
		}
	}

	a.enrich(ctx, merged)

	slog.InfoContext(ctx, "search completed", "operation", op, "results", len(merged), "sources", responded, "failed", len(failures))
	return &SearchResponse{
		Success: true,
		Results: merged,
		Metadata: SearchMetadata{
			TotalResults: len(merged),
			Sources:      responded,
			Errors:       failures,
			Timestamp:    a.now().UTC(),
		},
	}
}

func (a *Aggregator) failedSearch(msg string, failures []SourceError) *SearchResponse {
	return &SearchResponse{
		Success: false,
		Results: []domain.SearchResult{},
		Error:   msg,
		Metadata: SearchMetadata{
			Sources:   []domain.SourceID{},
			Errors:    failures,
			Timestamp: a.now().UTC(),
		},
	}
}

// merge folds provider results in declaration order. Output order is the
// order in which each symbol was first seen; contents are decided by rank.
func (a *Aggregator) merge(hits []providerHits) []domain.SearchResult {
	var order []string
	entries := make(map[string]*mergeEntry)

	for _, h := range hits {
		if h.err != nil {
			continue
		}
		rank := a.searchRank[h.source]
		for _, r := range h.results {
			key := r.Key()
			if key == "" {
				continue
			}
			e, ok := entries[key]
			if !ok {
				r.Sources = nil
				r.AddSource(h.source)
				entries[key] = &mergeEntry{result: r, rank: rank}
				order = append(order, key)
				continue
			}
			e.absorb(r, h.source, rank)
		}
	}

	merged := make([]domain.SearchResult, 0, len(order))
	for _, key := range order {
		merged = append(merged, entries[key].result)
	}
	return merged
}

type mergeEntry struct {
	result domain.SearchResult
	rank   int
}

// absorb folds incoming into the entry. A higher-priority incoming record
// takes over every field it has; otherwise it only fills blanks. Price,
// change and change percent travel together.
func (e *mergeEntry) absorb(incoming domain.SearchResult, source domain.SourceID, rank int) {
	sources := e.result.Sources
	if rank < e.rank {
		winner := incoming
		fillBlanks(&winner, e.result)
		winner.Sources = sources
		e.result = winner
		e.rank = rank
	} else {
		fillBlanks(&e.result, incoming)
	}
	e.result.AddSource(source)
}

func fillBlanks(dst *domain.SearchResult, src domain.SearchResult) {
	fill := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	fill(&dst.Name, src.Name)
	fill(&dst.Exchange, src.Exchange)
	fill(&dst.Currency, src.Currency)
	fill(&dst.Country, src.Country)
	fill(&dst.ISIN, src.ISIN)
	if dst.Type == "" || dst.Type == domain.InstrumentTypeOther {
		if src.Type != "" {
			dst.Type = src.Type
		}
	}
	if !dst.HasPrice() && src.HasPrice() {
		dst.Price = src.Price
		dst.Change = src.Change
		dst.ChangePercent = src.ChangePercent
	}
}

// enrich fetches quotes for unpriced results among the first MaxResults,
// MaxConcurrent at a time, sleeping InterRequestDelay between batches.
func (a *Aggregator) enrich(ctx context.Context, results []domain.SearchResult) {
	limit := min(a.enrichment.MaxResults, len(results))
	var pending []int
	for i := 0; i < limit; i++ {
		if !results[i].HasPrice() {
			pending = append(pending, i)
		}
	}

	batch := a.enrichment.MaxConcurrent
	for start := 0; start < len(pending); start += batch {
		if start > 0 {
			if err := a.sleeper.Sleep(ctx, a.enrichment.InterRequestDelay); err != nil {
				slog.DebugContext(ctx, "enrichment interrupted", "error", err)
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		end := min(start+batch, len(pending))
		var wg sync.WaitGroup
		for _, idx := range pending[start:end] {
			wg.Add(1)
			go func(r *domain.SearchResult) {
				defer wg.Done()
				a.priceResult(ctx, r)
			}(&results[idx])
		}
		wg.Wait()
	}
}

func (a *Aggregator) priceResult(ctx context.Context, r *domain.SearchResult) {
	quote, source, failures := a.quote(ctx, r.Symbol)
	if quote == nil {
		slog.DebugContext(ctx, "no quote for search result", "symbol", r.Symbol, "attempts", len(failures))
		return
	}
	r.Price = domain.DecimalPtr(quote.Price)
	r.Change = domain.DecimalPtr(quote.Change)
	r.ChangePercent = domain.DecimalPtr(quote.ChangePercent)
	if r.Currency == "" {
		r.Currency = quote.Currency
	}
	slog.DebugContext(ctx, "search result priced", "symbol", r.Symbol, "source", source)
}
