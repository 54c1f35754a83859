package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmanzanog/market-aggregator/internal/domain"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata"
)

// AggregatorConfig wires providers and the priority lists. An empty
// priority list means declaration order over every capable provider.
type AggregatorConfig struct {
	Providers        []marketdata.Provider
	SearchPriority   []domain.SourceID
	QuotePriority    []domain.SourceID
	HistoryPriority  []domain.SourceID
	OverviewPriority []domain.SourceID
	Enrichment       ThrottlePolicy
	FallbackDelay    time.Duration
	Timeouts         Timeouts
	HealthSymbol     string
}

// LogoFinder resolves a logo URL for an instrument, or nil.
type LogoFinder interface {
	Resolve(ctx context.Context, symbol, name string) *string
	Source() string
}

type Option func(*Aggregator)

func WithSleeper(s Sleeper) Option {
	return func(a *Aggregator) { a.sleeper = s }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithLogoFinder(l LogoFinder) Option {
	return func(a *Aggregator) { a.logos = l }
}

// Aggregator fans searches out to every provider and resolves quotes,
// history and fundamentals through ordered fallback chains.
type Aggregator struct {
	providers     []marketdata.Provider
	searchRank    map[domain.SourceID]int
	quoteChain    []marketdata.Provider
	historyChain  []marketdata.Provider
	overviewChain []marketdata.OverviewProvider

	enrichment    ThrottlePolicy
	fallbackDelay time.Duration
	timeouts      Timeouts
	healthSymbol  string

	sleeper Sleeper
	now     func() time.Time
	logos   LogoFinder
}

// SourceError is one provider's failure, reported for diagnosis.
type SourceError struct {
	Source domain.SourceID `json:"source"`
	Error  string          `json:"error"`
}

// NewAggregator validates cfg. Misconfiguration is the only error it returns.
func NewAggregator(cfg AggregatorConfig, opts ...Option) (*Aggregator, error) {
	if len(cfg.Providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}

	byID := make(map[domain.SourceID]marketdata.Provider, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p == nil {
			return nil, errors.New("nil provider")
		}
		if _, dup := byID[p.ID()]; dup {
			return nil, fmt.Errorf("duplicate provider %q", p.ID())
		}
		byID[p.ID()] = p
	}

	a := &Aggregator{
		providers:     cfg.Providers,
		enrichment:    cfg.Enrichment,
		fallbackDelay: cfg.FallbackDelay,
		timeouts:      cfg.Timeouts.withDefaults(),
		healthSymbol:  cfg.HealthSymbol,
		sleeper:       timerSleeper{},
		now:           time.Now,
	}
	if a.enrichment == (ThrottlePolicy{}) {
		a.enrichment = DefaultThrottlePolicy
	}
	if a.enrichment.MaxConcurrent < 1 {
		a.enrichment.MaxConcurrent = 1
	}
	if a.healthSymbol == "" {
		a.healthSymbol = "AAPL"
	}

	var err error
	if a.searchRank, err = rankOf(cfg.SearchPriority, cfg.Providers, byID); err != nil {
		return nil, fmt.Errorf("search priority: %w", err)
	}
	if a.quoteChain, err = chainOf(cfg.QuotePriority, cfg.Providers, byID); err != nil {
		return nil, fmt.Errorf("quote priority: %w", err)
	}
	if a.historyChain, err = chainOf(cfg.HistoryPriority, cfg.Providers, byID); err != nil {
		return nil, fmt.Errorf("history priority: %w", err)
	}
	if a.overviewChain, err = overviewChainOf(cfg.OverviewPriority, cfg.Providers, byID); err != nil {
		return nil, fmt.Errorf("overview priority: %w", err)
	}

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// rankOf gives listed sources their list index; unlisted providers rank
// after the list in declaration order.
func rankOf(priority []domain.SourceID, providers []marketdata.Provider, byID map[domain.SourceID]marketdata.Provider) (map[domain.SourceID]int, error) {
	rank := make(map[domain.SourceID]int, len(providers))
	for i, id := range priority {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: %q is not configured", domain.ErrUnknownSource, id)
		}
		if _, dup := rank[id]; dup {
			return nil, fmt.Errorf("duplicate source %q", id)
		}
		rank[id] = i
	}
	next := len(priority)
	for _, p := range providers {
		if _, ok := rank[p.ID()]; !ok {
			rank[p.ID()] = next
			next++
		}
	}
	return rank, nil
}

func chainOf(priority []domain.SourceID, providers []marketdata.Provider, byID map[domain.SourceID]marketdata.Provider) ([]marketdata.Provider, error) {
	if len(priority) == 0 {
		return providers, nil
	}
	chain := make([]marketdata.Provider, 0, len(priority))
	seen := make(map[domain.SourceID]bool, len(priority))
	for _, id := range priority {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q is not configured", domain.ErrUnknownSource, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate source %q", id)
		}
		seen[id] = true
		chain = append(chain, p)
	}
	return chain, nil
}

func overviewChainOf(priority []domain.SourceID, providers []marketdata.Provider, byID map[domain.SourceID]marketdata.Provider) ([]marketdata.OverviewProvider, error) {
	if len(priority) == 0 {
		var chain []marketdata.OverviewProvider
		for _, p := range providers {
			if ov, ok := p.(marketdata.OverviewProvider); ok {
				chain = append(chain, ov)
			}
		}
		return chain, nil
	}

	generic, err := chainOf(priority, providers, byID)
	if err != nil {
		return nil, err
	}
	chain := make([]marketdata.OverviewProvider, 0, len(generic))
	for _, p := range generic {
		ov, ok := p.(marketdata.OverviewProvider)
		if !ok {
			return nil, fmt.Errorf("provider %q does not serve company overviews", p.ID())
		}
		chain = append(chain, ov)
	}
	return chain, nil
}

// Providers returns the configured providers in declaration order.
func (a *Aggregator) Providers() []marketdata.Provider {
	return a.providers
}

// call runs fn under its own timeout and converts panics and timeouts into
// errors. fn keeps running in the background if it ignores ctx.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return zero, fmt.Errorf("provider call aborted: %w", ctx.Err())
	}
}

// link is one step of a fallback chain.
type link[T any] struct {
	source domain.SourceID
	fetch  func(context.Context) (T, error)
}

// firstSuccess tries links in order and returns the first result that
// passes accept. It waits fallbackDelay between attempts and gives up early
// when ctx is done.
func firstSuccess[T any](ctx context.Context, a *Aggregator, op string, timeout time.Duration, links []link[T], accept func(T) error) (T, domain.SourceID, []SourceError) {
	var zero T
	var failures []SourceError

	for i, l := range links {
		if i > 0 && a.fallbackDelay > 0 {
			if err := a.sleeper.Sleep(ctx, a.fallbackDelay); err != nil {
				failures = append(failures, SourceError{Source: l.source, Error: err.Error()})
				break
			}
		}
		if err := ctx.Err(); err != nil {
			failures = append(failures, SourceError{Source: l.source, Error: err.Error()})
			break
		}

		v, err := call(ctx, timeout, l.fetch)
		if err == nil {
			err = accept(v)
		}
		if err != nil {
			slog.WarnContext(ctx, "provider failed, trying next", "operation", op, "source", l.source, "error", err)
			failures = append(failures, SourceError{Source: l.source, Error: err.Error()})
			continue
		}

		slog.DebugContext(ctx, "provider succeeded", "operation", op, "source", l.source)
		return v, l.source, failures
	}
	return zero, "", failures
}
