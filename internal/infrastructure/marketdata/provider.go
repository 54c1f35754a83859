package marketdata

//go:generate mockgen -package=mocks -destination=mocks/mock_provider.go -source=provider.go Provider,OverviewProvider

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jmanzanog/market-aggregator/internal/domain"
)

// ErrNotSupported is returned when a provider lacks a capability, for
// example historical data on a free plan.
var ErrNotSupported = errors.New("operation not supported by provider")

// ErrRateLimited is returned when the upstream API rejects a call because
// of quota.
var ErrRateLimited = errors.New("provider rate limit exceeded")

// Provider is the contract every market-data client implements. A provider
// reports all failures as errors and never returns partial data alongside
// one.
type Provider interface {
	ID() domain.SourceID
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
	GetHistoricalData(ctx context.Context, symbol string, period domain.Period) (*domain.HistoricalSeries, error)
	SearchByISIN(ctx context.Context, isin string) ([]domain.SearchResult, error)
}

// OverviewProvider is implemented by providers that expose fundamentals.
type OverviewProvider interface {
	ID() domain.SourceID
	GetCompanyOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error)
}

// UsageReporter exposes per-provider request counters.
type UsageReporter interface {
	Usage() Usage
}

// Unwrapper is implemented by decorators that wrap another provider.
type Unwrapper interface {
	Unwrap() Provider
}

// Unwrap peels decorators off p and returns the innermost provider.
func Unwrap(p Provider) Provider {
	for {
		u, ok := p.(Unwrapper)
		if !ok {
			return p
		}
		p = u.Unwrap()
	}
}

type Usage struct {
	Requests int64     `json:"requests"`
	Failures int64     `json:"failures"`
	LastCall time.Time `json:"last_call,omitempty"`
}

// RequestCounter is embedded by clients to count upstream calls.
type RequestCounter struct {
	requests atomic.Int64
	failures atomic.Int64
	lastCall atomic.Int64
}

// Track records one call; pass the call's error.
func (c *RequestCounter) Track(err error) {
	c.requests.Add(1)
	c.lastCall.Store(time.Now().UnixNano())
	if err != nil {
		c.failures.Add(1)
	}
}

func (c *RequestCounter) Usage() Usage {
	u := Usage{
		Requests: c.requests.Load(),
		Failures: c.failures.Load(),
	}
	if ns := c.lastCall.Load(); ns != 0 {
		u.LastCall = time.Unix(0, ns)
	}
	return u
}
