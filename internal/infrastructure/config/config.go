package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmanzanog/market-aggregator/internal/domain"
)

const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	ServerPort string
	ServerHost string
	LogLevel   string

	YahooEnabled       bool
	FinnhubAPIKey      string
	AlphaVantageAPIKey string
	TwelveDataAPIKey   string

	SearchPriority   []domain.SourceID
	QuotePriority    []domain.SourceID
	HistoryPriority  []domain.SourceID
	OverviewPriority []domain.SourceID

	EnrichMaxResults    int
	EnrichMaxConcurrent int
	EnrichDelay         time.Duration
	FallbackDelay       time.Duration

	SearchTimeout   time.Duration
	QuoteTimeout    time.Duration
	HistoryTimeout  time.Duration
	OverviewTimeout time.Duration

	HealthSymbol        string
	HealthCheckInterval time.Duration

	LogoBaseURL string
	LogoTimeout time.Duration

	CacheBackend       string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	SearchCacheTTL     time.Duration
	QuoteCacheTTL      time.Duration
	HistoryCacheTTL    time.Duration
	OverviewCacheTTL   time.Duration
	CacheSweepInterval time.Duration

	RateLimitRequests      int
	RateLimitWindow        time.Duration
	RateLimitSweepInterval time.Duration
	CORSAllowedOrigins     []string

	DatasetsDir string
}

// EnabledSources lists the providers that have the credentials they need,
// in declaration order.
func (c *Config) EnabledSources() []domain.SourceID {
	var out []domain.SourceID
	if c.YahooEnabled {
		out = append(out, domain.SourceYahoo)
	}
	if c.FinnhubAPIKey != "" {
		out = append(out, domain.SourceFinnhub)
	}
	if c.AlphaVantageAPIKey != "" {
		out = append(out, domain.SourceAlphaVantage)
	}
	if c.TwelveDataAPIKey != "" {
		out = append(out, domain.SourceTwelveData)
	}
	return out
}

func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:         getEnvOrDefault("SERVER_PORT", "8080"),
		ServerHost:         getEnvOrDefault("SERVER_HOST", "localhost"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		FinnhubAPIKey:      os.Getenv("FINNHUB_API_KEY"),
		AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		TwelveDataAPIKey:   os.Getenv("TWELVE_DATA_API_KEY"),
		HealthSymbol:       getEnvOrDefault("HEALTH_SYMBOL", "AAPL"),
		LogoBaseURL:        strings.TrimRight(getEnvOrDefault("LOGO_BASE_URL", "https://logo.clearbit.com"), "/"),
		CacheBackend:       strings.ToLower(getEnvOrDefault("CACHE_BACKEND", CacheBackendNone)),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		DatasetsDir:        getEnvOrDefault("DATASETS_DIR", "data"),
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.YahooEnabled, err = getBool("YAHOO_ENABLED", true); err != nil {
		return nil, err
	}

	priorities := []struct {
		key string
		def string
		dst *[]domain.SourceID
	}{
		{"SEARCH_PRIORITY", "yahoo,finnhub,twelvedata,alphavantage", &cfg.SearchPriority},
		{"QUOTE_PRIORITY", "yahoo,finnhub,twelvedata,alphavantage", &cfg.QuotePriority},
		{"HISTORY_PRIORITY", "yahoo,twelvedata,alphavantage", &cfg.HistoryPriority},
		{"OVERVIEW_PRIORITY", "alphavantage,finnhub", &cfg.OverviewPriority},
	}
	for _, p := range priorities {
		list, err := domain.ParseSourceList(getEnvOrDefault(p.key, p.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", p.key, err)
		}
		*p.dst = list
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"ENRICH_MAX_RESULTS", 5, &cfg.EnrichMaxResults},
		{"ENRICH_MAX_CONCURRENT", 1, &cfg.EnrichMaxConcurrent},
		{"REDIS_DB", 0, &cfg.RedisDB},
		{"RATE_LIMIT_REQUESTS", 60, &cfg.RateLimitRequests},
	}
	for _, i := range ints {
		if *i.dst, err = getInt(i.key, i.def); err != nil {
			return nil, err
		}
	}
	if cfg.EnrichMaxConcurrent < 1 {
		return nil, fmt.Errorf("invalid ENRICH_MAX_CONCURRENT: must be at least 1")
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"ENRICH_DELAY", "250ms", &cfg.EnrichDelay},
		{"FALLBACK_DELAY", "100ms", &cfg.FallbackDelay},
		{"SEARCH_TIMEOUT", "12s", &cfg.SearchTimeout},
		{"QUOTE_TIMEOUT", "12s", &cfg.QuoteTimeout},
		{"HISTORY_TIMEOUT", "15s", &cfg.HistoryTimeout},
		{"OVERVIEW_TIMEOUT", "12s", &cfg.OverviewTimeout},
		{"HEALTH_CHECK_INTERVAL", "0s", &cfg.HealthCheckInterval},
		{"LOGO_TIMEOUT", "3s", &cfg.LogoTimeout},
		{"SEARCH_CACHE_TTL", "5m", &cfg.SearchCacheTTL},
		{"QUOTE_CACHE_TTL", "30s", &cfg.QuoteCacheTTL},
		{"HISTORY_CACHE_TTL", "15m", &cfg.HistoryCacheTTL},
		{"OVERVIEW_CACHE_TTL", "6h", &cfg.OverviewCacheTTL},
		{"CACHE_SWEEP_INTERVAL", "5m", &cfg.CacheSweepInterval},
		{"RATE_LIMIT_WINDOW", "1m", &cfg.RateLimitWindow},
		{"RATE_LIMIT_SWEEP_INTERVAL", "5m", &cfg.RateLimitSweepInterval},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(getEnvOrDefault(d.key, d.def)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	positive := []struct {
		key string
		val time.Duration
	}{
		{"RATE_LIMIT_WINDOW", cfg.RateLimitWindow},
		{"RATE_LIMIT_SWEEP_INTERVAL", cfg.RateLimitSweepInterval},
		{"CACHE_SWEEP_INTERVAL", cfg.CacheSweepInterval},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return nil, fmt.Errorf("invalid %s: must be greater than zero", p.key)
		}
	}

	switch cfg.CacheBackend {
	case CacheBackendNone, CacheBackendMemory, CacheBackendRedis:
	default:
		return nil, fmt.Errorf("unsupported CACHE_BACKEND: %s (expected none, memory or redis)", cfg.CacheBackend)
	}

	if len(cfg.EnabledSources()) == 0 {
		return nil, fmt.Errorf("no market data provider enabled: set YAHOO_ENABLED=true or one of FINNHUB_API_KEY, ALPHA_VANTAGE_API_KEY, TWELVE_DATA_API_KEY")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
