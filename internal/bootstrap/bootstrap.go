// Package bootstrap assembles providers, caches, the aggregator and the
// catalog from configuration. Both binaries start here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmanzanog/market-aggregator/internal/application"
	"github.com/jmanzanog/market-aggregator/internal/domain"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/config"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/datasets"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata/alphavantage"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata/cache"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata/finnhub"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata/twelvedata"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata/yfinance"
)

type Services struct {
	Aggregator *application.Aggregator
	Catalog    *application.Catalog

	memory *cache.MemoryStore
	redis  *cache.RedisStore
}

// BuildProviders creates a client for every enabled source, in declaration
// order.
func BuildProviders(cfg *config.Config) []marketdata.Provider {
	var providers []marketdata.Provider
	for _, id := range cfg.EnabledSources() {
		switch id {
		case domain.SourceYahoo:
			providers = append(providers, yfinance.NewClient())
		case domain.SourceFinnhub:
			providers = append(providers, finnhub.NewClient(cfg.FinnhubAPIKey))
		case domain.SourceAlphaVantage:
			providers = append(providers, alphavantage.NewClient(cfg.AlphaVantageAPIKey))
		case domain.SourceTwelveData:
			providers = append(providers, twelvedata.NewClient(cfg.TwelveDataAPIKey))
		}
	}
	return providers
}

// Build wires everything. Close must be called to release the cache store.
func Build(ctx context.Context, cfg *config.Config) (*Services, error) {
	providers := BuildProviders(cfg)
	if len(providers) == 0 {
		return nil, errors.New("no market data provider enabled")
	}
	return BuildWithProviders(ctx, cfg, providers)
}

// BuildWithProviders is Build with caller-supplied clients.
func BuildWithProviders(ctx context.Context, cfg *config.Config, providers []marketdata.Provider) (*Services, error) {
	s := &Services{}

	store, err := s.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		ttl := cache.TTLs{
			Search:   cfg.SearchCacheTTL,
			Quote:    cfg.QuoteCacheTTL,
			History:  cfg.HistoryCacheTTL,
			Overview: cfg.OverviewCacheTTL,
		}
		wrapped := make([]marketdata.Provider, len(providers))
		for i, p := range providers {
			wrapped[i] = cache.Wrap(p, store, ttl)
		}
		providers = wrapped
	}

	configured := make(map[domain.SourceID]bool, len(providers))
	overviewCapable := make(map[domain.SourceID]bool)
	for _, p := range providers {
		configured[p.ID()] = true
		if _, ok := p.(marketdata.OverviewProvider); ok {
			overviewCapable[p.ID()] = true
		}
	}

	agg, err := application.NewAggregator(application.AggregatorConfig{
		Providers:        providers,
		SearchPriority:   onlyAvailable("search", cfg.SearchPriority, configured),
		QuotePriority:    onlyAvailable("quote", cfg.QuotePriority, configured),
		HistoryPriority:  onlyAvailable("history", cfg.HistoryPriority, configured),
		OverviewPriority: onlyAvailable("overview", cfg.OverviewPriority, overviewCapable),
		Enrichment: application.ThrottlePolicy{
			MaxResults:        cfg.EnrichMaxResults,
			MaxConcurrent:     cfg.EnrichMaxConcurrent,
			InterRequestDelay: cfg.EnrichDelay,
		},
		FallbackDelay: cfg.FallbackDelay,
		Timeouts: application.Timeouts{
			Search:   cfg.SearchTimeout,
			Quote:    cfg.QuoteTimeout,
			History:  cfg.HistoryTimeout,
			Overview: cfg.OverviewTimeout,
		},
		HealthSymbol: cfg.HealthSymbol,
	}, application.WithLogoFinder(application.NewLogoResolver(cfg.LogoBaseURL, cfg.LogoTimeout)))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to build aggregator: %w", err)
	}
	s.Aggregator = agg

	data, err := datasets.Load(cfg.DatasetsDir)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}
	s.Catalog = application.NewCatalog(data.Bonds, data.Certificates)

	ids := make([]domain.SourceID, len(providers))
	for i, p := range providers {
		ids[i] = p.ID()
	}
	slog.Info("Market data services ready", "providers", ids, "cache", cfg.CacheBackend)
	return s, nil
}

func (s *Services) openStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		s.memory = cache.NewMemoryStore()
		return s.memory, nil
	case config.CacheBackendRedis:
		store, err := cache.NewRedisStoreFromAddr(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = store
		return store, nil
	default:
		return nil, nil
	}
}

// SweepCache evicts expired in-memory entries every interval until ctx is
// done. It returns immediately for other backends.
func (s *Services) SweepCache(ctx context.Context, interval time.Duration) {
	if s.memory == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.memory.Sweep(); n > 0 {
				slog.Debug("Cache sweep", "evicted", n, "remaining", s.memory.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Services) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// onlyAvailable drops sources that are not configured, so default priority
// lists work with any subset of API keys.
func onlyAvailable(name string, priority []domain.SourceID, available map[domain.SourceID]bool) []domain.SourceID {
	out := make([]domain.SourceID, 0, len(priority))
	for _, id := range priority {
		if available[id] {
			out = append(out, id)
			continue
		}
		slog.Debug("Skipping unavailable source in priority list", "list", name, "source", id)
	}
	return out
}
