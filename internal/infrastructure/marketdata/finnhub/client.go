package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmanzanog/market-aggregator/internal/domain"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"
	searchPath     = "/search"
	quotePath      = "/quote"
	profilePath    = "/stock/profile2"
	metricPath     = "/stock/metric"
)

// Client implements marketdata.Provider and marketdata.OverviewProvider
// using the Finnhub API. Historical candles are a paid feature and are
// reported as unsupported.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	counter    marketdata.RequestCounter
}

// NewClient creates a new Finnhub API client.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientWithHTTPClient creates a new Finnhub client with a custom HTTP client (for testing).
func NewClientWithHTTPClient(apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// SetBaseURL sets the base URL for the API (useful for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

func (c *Client) ID() domain.SourceID {
	return domain.SourceFinnhub
}

func (c *Client) Usage() marketdata.Usage {
	return c.counter.Usage()
}

type searchResponse struct {
	Count  int            `json:"count"`
	Result []searchResult `json:"result"`
}

type searchResult struct {
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

type profileResponse struct {
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	Exchange             string  `json:"exchange"`
	FinnhubIndustry      string  `json:"finnhubIndustry"`
	IPO                  string  `json:"ipo"`
	Logo                 string  `json:"logo"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	Name                 string  `json:"name"`
	ShareOutstanding     float64 `json:"shareOutstanding"`
	Ticker               string  `json:"ticker"`
	Weburl               string  `json:"weburl"`
}

type metricResponse struct {
	Metric map[string]any `json:"metric"`
	Symbol string         `json:"symbol"`
}

// Search looks up instruments matching a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	var searchResp searchResponse
	if err := c.getJSON(ctx, searchPath, url.Values{"q": {query}}, &searchResp); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		if r.Symbol == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			Symbol:   r.Symbol,
			Name:     r.Description,
			Type:     mapInstrumentType(r.Type),
			Exchange: extractExchange(r.Symbol),
			Sources:  []domain.SourceID{domain.SourceFinnhub},
		})
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results found for query: %s", query)
	}
	return results, nil
}

// SearchByISIN resolves an ISIN and completes the best match with the
// company profile's currency and exchange.
func (c *Client) SearchByISIN(ctx context.Context, isin string) ([]domain.SearchResult, error) {
	var searchResp searchResponse
	if err := c.getJSON(ctx, searchPath, url.Values{"q": {isin}}, &searchResp); err != nil {
		return nil, err
	}

	if searchResp.Count == 0 || len(searchResp.Result) == 0 {
		return nil, fmt.Errorf("no instrument found for ISIN: %s", isin)
	}

	first := searchResp.Result[0]
	result := domain.SearchResult{
		Symbol:   first.Symbol,
		Name:     first.Description,
		Type:     mapInstrumentType(first.Type),
		Exchange: extractExchange(first.Symbol),
		ISIN:     isin,
		Sources:  []domain.SourceID{domain.SourceFinnhub},
	}

	profile, err := c.getProfile(ctx, first.Symbol)
	if err != nil {
		slog.WarnContext(ctx, "failed to get company profile, using fallback values",
			"symbol", first.Symbol, "error", err)
		result.Currency = "USD"
	} else {
		result.Currency = profile.Currency
		result.Exchange = profile.Exchange
		result.Country = profile.Country
		if profile.Name != "" {
			result.Name = profile.Name
		}
	}

	return []domain.SearchResult{result}, nil
}

// GetQuote retrieves the current quote for a symbol. Finnhub's quote
// endpoint carries no currency or exchange.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var quoteResp quoteResponse
	if err := c.getJSON(ctx, quotePath, url.Values{"symbol": {symbol}}, &quoteResp); err != nil {
		return nil, err
	}

	// Finnhub answers unknown symbols with all-zero fields.
	if quoteResp.Current == 0 && quoteResp.PreviousClose == 0 && quoteResp.Timestamp == 0 {
		return nil, fmt.Errorf("no quote data found for symbol: %s", symbol)
	}

	price, err := domain.NewDecimalFromFloat(quoteResp.Current)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	change, err := domain.NewDecimalFromFloat(quoteResp.Change)
	if err != nil {
		return nil, fmt.Errorf("failed to parse change: %w", err)
	}
	changePct, err := domain.NewDecimalFromFloat(quoteResp.PercentChange)
	if err != nil {
		return nil, fmt.Errorf("failed to parse percent change: %w", err)
	}

	return &domain.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Exchange:      extractExchange(symbol),
		Timestamp:     time.Unix(quoteResp.Timestamp, 0).UTC(),
		Open:          optionalDecimal(quoteResp.Open),
		High:          optionalDecimal(quoteResp.High),
		Low:           optionalDecimal(quoteResp.Low),
		PreviousClose: optionalDecimal(quoteResp.PreviousClose),
	}, nil
}

func (c *Client) GetHistoricalData(_ context.Context, symbol string, _ domain.Period) (*domain.HistoricalSeries, error) {
	return nil, fmt.Errorf("finnhub historical data for %s: %w", symbol, marketdata.ErrNotSupported)
}

// GetCompanyOverview merges the company profile with the basic financials.
// Either half may be missing; both missing is an error.
func (c *Client) GetCompanyOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error) {
	profile, profileErr := c.getProfile(ctx, symbol)

	var metrics metricResponse
	metricErr := c.getJSON(ctx, metricPath, url.Values{"symbol": {symbol}, "metric": {"all"}}, &metrics)
	if metricErr == nil && len(metrics.Metric) == 0 {
		metricErr = fmt.Errorf("no metrics found for symbol: %s", symbol)
	}

	if profileErr != nil && metricErr != nil {
		return nil, fmt.Errorf("no overview data for %s: %w", symbol, profileErr)
	}

	overview := &domain.CompanyOverview{}
	if profileErr == nil {
		overview.Name = profile.Name
		overview.Currency = profile.Currency
		overview.Exchange = profile.Exchange
		overview.Country = profile.Country
		overview.Sector = profile.FinnhubIndustry
		overview.Industry = profile.FinnhubIndustry
		overview.Website = profile.Weburl
		if profile.MarketCapitalization > 0 {
			// reported in millions
			mc := profile.MarketCapitalization * 1e6
			overview.MarketCap = &mc
		}
	}
	if metricErr == nil {
		m := metrics.Metric
		overview.PERatio = metricValue(m, "peTTM", "peBasicExclExtraTTM", "peNormalizedAnnual")
		overview.PEGRatio = metricValue(m, "pegTTM", "pegRatio")
		overview.DividendYield = metricValue(m, "dividendYieldIndicatedAnnual", "currentDividendYieldTTM")
		overview.EPS = metricValue(m, "epsTTM", "epsBasicExclExtraItemsTTM", "epsAnnual")
		overview.Beta = metricValue(m, "beta")
		overview.Week52High = metricValue(m, "52WeekHigh")
		overview.Week52Low = metricValue(m, "52WeekLow")
		overview.BookValue = metricValue(m, "bookValuePerShareQuarterly", "bookValuePerShareAnnual")
		overview.ProfitMargin = metricValue(m, "netProfitMarginTTM", "netProfitMarginAnnual")
	}
	return overview, nil
}

func (c *Client) getProfile(ctx context.Context, symbol string) (*profileResponse, error) {
	var profileResp profileResponse
	if err := c.getJSON(ctx, profilePath, url.Values{"symbol": {symbol}}, &profileResp); err != nil {
		return nil, err
	}

	// An empty object means the symbol is unknown.
	if profileResp.Currency == "" {
		return nil, fmt.Errorf("no profile data found for symbol: %s", symbol)
	}

	return &profileResp, nil
}

// getJSON performs an authenticated GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) (err error) {
	defer func() { c.counter.Track(err) }()

	params.Set("token", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr, "url", path)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("finnhub: %w", marketdata.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func optionalDecimal(v float64) *domain.Decimal {
	if v == 0 {
		return nil
	}
	d, err := domain.NewDecimalFromFloat(v)
	if err != nil {
		return nil
	}
	return &d
}

// metricValue returns the first numeric metric found among keys.
func metricValue(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if v, ok := m[k].(float64); ok {
			return &v
		}
	}
	return nil
}

func mapInstrumentType(finnhubType string) domain.InstrumentType {
	switch strings.ToUpper(finnhubType) {
	case "ETP", "ETF":
		return domain.InstrumentTypeETF
	case "COMMON STOCK", "EQUITY", "ADR", "REIT":
		return domain.InstrumentTypeStock
	case "INDEX":
		return domain.InstrumentTypeIndex
	case "CRYPTO":
		return domain.InstrumentTypeCrypto
	case "":
		return domain.InstrumentTypeStock
	default:
		return domain.InstrumentTypeOther
	}
}

// extractExchange extracts the exchange suffix from a Finnhub symbol.
// For example: "RR.L" -> "L", "AAPL" -> ""
func extractExchange(symbol string) string {
	if i := strings.LastIndexByte(symbol, '.'); i >= 0 {
		return symbol[i+1:]
	}
	return ""
}
