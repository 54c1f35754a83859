// Package cache decorates a marketdata.Provider with a TTL cache. Only
// successful results are stored; concurrent misses on the same key share a
// single upstream call.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jmanzanog/market-aggregator/internal/domain"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata"
)

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TTLs per operation. A zero TTL disables caching for that operation.
type TTLs struct {
	Search   time.Duration
	Quote    time.Duration
	History  time.Duration
	Overview time.Duration
}

// DefaultFetchTimeout bounds a shared upstream fetch once it no longer
// follows the context of the request that started it.
const DefaultFetchTimeout = 20 * time.Second

type Provider struct {
	next         marketdata.Provider
	store        Store
	ttl          TTLs
	group        singleflight.Group
	fetchTimeout time.Duration
}

// overviewProvider is returned by Wrap when the wrapped provider also
// serves fundamentals, so capability checks keep working through the
// decorator.
type overviewProvider struct {
	*Provider
	overview marketdata.OverviewProvider
}

// Wrap returns next decorated with caching.
func Wrap(next marketdata.Provider, store Store, ttl TTLs) marketdata.Provider {
	p := &Provider{next: next, store: store, ttl: ttl, fetchTimeout: DefaultFetchTimeout}
	if ov, ok := next.(marketdata.OverviewProvider); ok {
		return &overviewProvider{Provider: p, overview: ov}
	}
	return p
}

func (p *Provider) ID() domain.SourceID {
	return p.next.ID()
}

// Unwrap returns the undecorated provider.
func (p *Provider) Unwrap() marketdata.Provider {
	return p.next
}

// Usage forwards the wrapped client's counters.
func (p *Provider) Usage() marketdata.Usage {
	if r, ok := p.next.(marketdata.UsageReporter); ok {
		return r.Usage()
	}
	return marketdata.Usage{}
}

func (p *Provider) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	key := p.key("search", strings.ToLower(strings.TrimSpace(query)))
	return cached(ctx, p, key, p.ttl.Search, func(ctx context.Context) ([]domain.SearchResult, error) {
		return p.next.Search(ctx, query)
	})
}

func (p *Provider) SearchByISIN(ctx context.Context, isin string) ([]domain.SearchResult, error) {
	return cached(ctx, p, p.key("isin", strings.ToUpper(isin)), p.ttl.Search, func(ctx context.Context) ([]domain.SearchResult, error) {
		return p.next.SearchByISIN(ctx, isin)
	})
}

func (p *Provider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	return cached(ctx, p, p.key("quote", domain.NormalizeSymbol(symbol)), p.ttl.Quote, func(ctx context.Context) (*domain.Quote, error) {
		return p.next.GetQuote(ctx, symbol)
	})
}

func (p *Provider) GetHistoricalData(ctx context.Context, symbol string, period domain.Period) (*domain.HistoricalSeries, error) {
	key := p.key("history", domain.NormalizeSymbol(symbol), string(period))
	return cached(ctx, p, key, p.ttl.History, func(ctx context.Context) (*domain.HistoricalSeries, error) {
		return p.next.GetHistoricalData(ctx, symbol, period)
	})
}

func (p *overviewProvider) GetCompanyOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error) {
	return cached(ctx, p.Provider, p.key("overview", domain.NormalizeSymbol(symbol)), p.ttl.Overview, func(ctx context.Context) (*domain.CompanyOverview, error) {
		return p.overview.GetCompanyOverview(ctx, symbol)
	})
}

func (p *Provider) key(parts ...string) string {
	return "mkt:" + string(p.next.ID()) + ":" + strings.Join(parts, ":")
}

// cached serves key from the store or runs fetch once per key. Store
// failures are logged and treated as misses. The shared fetch runs detached
// from any single caller; each caller waits on its own ctx.
func cached[T any](ctx context.Context, p *Provider, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if ttl <= 0 || p.store == nil {
		return fetch(ctx)
	}

	var zero T
	if raw, ok, err := p.store.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		slog.WarnContext(ctx, "cache entry undecodable, refetching", "key", key)
	}

	ch := p.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()

		fresh, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(fresh)
		if err != nil {
			return fresh, nil
		}
		if err := p.store.Set(fetchCtx, key, raw, ttl); err != nil {
			slog.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		}
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		out, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("cache: unexpected value type %T for %s", res.Val, key)
		}
		return out, nil
	}
}
