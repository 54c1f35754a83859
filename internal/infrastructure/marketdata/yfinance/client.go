package yfinance

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
	defaultBaseURL = "https://query2.finance.yahoo.com"
	searchPath     = "/v1/finance/search"
	chartPath      = "/v8/finance/chart/"
	userAgent      = "Mozilla/5.0 (compatible; market-aggregator/1.0)"
)

// Client implements marketdata.Provider against Yahoo Finance's public
// search and chart endpoints. No API key is needed.
type Client struct {
	baseURL    string
	httpClient *http.Client
	counter    marketdata.RequestCounter
}

// NewClient creates a new Yahoo Finance client with default settings.
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientWithHTTPClient creates a new client with a custom HTTP client (for testing).
func NewClientWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
	}
}

// SetBaseURL sets the base URL for the API (useful for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

func (c *Client) ID() domain.SourceID {
	return domain.SourceYahoo
}

func (c *Client) Usage() marketdata.Usage {
	return c.counter.Usage()
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		QuoteType string `json:"quoteType"`
		Exchange  string `json:"exchange"`
		ExchDisp  string `json:"exchDisp"`
	} `json:"quotes"`
}

// chartResponse mirrors /v8/finance/chart. Indicator arrays contain nulls
// for bars without trades, hence the pointers.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency           string  `json:"currency"`
		Symbol             string  `json:"symbol"`
		ExchangeName       string  `json:"exchangeName"`
		FullExchangeName   string  `json:"fullExchangeName"`
		InstrumentType     string  `json:"instrumentType"`
		LongName           string  `json:"longName"`
		ShortName          string  `json:"shortName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		RegularMarketTime  int64   `json:"regularMarketTime"`
		DayHigh            float64 `json:"regularMarketDayHigh"`
		DayLow             float64 `json:"regularMarketDayLow"`
		Volume             int64   `json:"regularMarketVolume"`
		PreviousClose      float64 `json:"previousClose"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return c.search(ctx, query, "")
}

// SearchByISIN relies on Yahoo's search accepting ISINs as the query.
func (c *Client) SearchByISIN(ctx context.Context, isin string) ([]domain.SearchResult, error) {
	results, err := c.search(ctx, isin, isin)
	if err != nil {
		return nil, fmt.Errorf("no instrument found for ISIN %s: %w", isin, err)
	}
	return results, nil
}

func (c *Client) search(ctx context.Context, query, isin string) ([]domain.SearchResult, error) {
	params := url.Values{
		"q":           {query},
		"quotesCount": {"20"},
		"newsCount":   {"0"},
	}

	var searchResp searchResponse
	if err := c.getJSON(ctx, searchPath+"?"+params.Encode(), &searchResp); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(searchResp.Quotes))
	for _, q := range searchResp.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		exchange := q.ExchDisp
		if exchange == "" {
			exchange = q.Exchange
		}
		results = append(results, domain.SearchResult{
			Symbol:   q.Symbol,
			Name:     name,
			Type:     mapInstrumentType(q.QuoteType),
			Exchange: exchange,
			ISIN:     isin,
			Sources:  []domain.SourceID{domain.SourceYahoo},
		})
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results found for query: %s", query)
	}
	return results, nil
}

// GetQuote builds a quote from the chart metadata of the current session.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	result, err := c.chart(ctx, symbol, "1d", "1d")
	if err != nil {
		return nil, err
	}
	meta := result.Meta

	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("no quote data found for symbol: %s", symbol)
	}
	price, err := domain.NewDecimalFromFloat(meta.RegularMarketPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}

	quote := &domain.Quote{
		Symbol:    meta.Symbol,
		Name:      firstNonEmpty(meta.LongName, meta.ShortName),
		Price:     price,
		Currency:  meta.Currency,
		Exchange:  firstNonEmpty(meta.FullExchangeName, meta.ExchangeName),
		Timestamp: time.Unix(meta.RegularMarketTime, 0).UTC(),
		High:      optionalDecimal(meta.DayHigh),
		Low:       optionalDecimal(meta.DayLow),
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	if meta.Volume > 0 {
		vol := meta.Volume
		quote.Volume = &vol
	}
	if q := result.Indicators.Quote; len(q) > 0 && len(q[0].Open) > 0 && q[0].Open[0] != nil {
		quote.Open = optionalDecimal(*q[0].Open[0])
	}

	prev := meta.PreviousClose
	if prev == 0 {
		prev = meta.ChartPreviousClose
	}
	if prevClose := optionalDecimal(prev); prevClose != nil {
		quote.PreviousClose = prevClose
		if change, err := price.Sub(*prevClose); err == nil {
			quote.Change = change
		}
		if pct, err := price.PercentChange(*prevClose); err == nil {
			quote.ChangePercent = pct
		}
	}
	return quote, nil
}

func (c *Client) GetHistoricalData(ctx context.Context, symbol string, period domain.Period) (*domain.HistoricalSeries, error) {
	rng, interval := rangeFor(period)
	result, err := c.chart(ctx, symbol, rng, interval)
	if err != nil {
		return nil, err
	}

	series := &domain.HistoricalSeries{
		Symbol: symbol,
		Period: period,
		Source: domain.SourceYahoo,
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no historical data for symbol: %s", symbol)
	}
	// Yahoo has no three-year range; 3Y is served from 5y and trimmed.
	var cutoff time.Time
	if period == domain.Period3Y {
		cutoff = period.StartDate(time.Now().UTC())
	}
	q := result.Indicators.Quote[0]
	for i, ts := range result.Timestamp {
		closePrice := at(q.Close, i)
		if closePrice == nil {
			continue
		}
		point := domain.HistoricalPoint{Date: time.Unix(ts, 0).UTC()}
		if point.Date.Before(cutoff) {
			continue
		}
		point.Close, err = domain.NewDecimalFromFloat(*closePrice)
		if err != nil {
			continue
		}
		if v := at(q.Open, i); v != nil {
			point.Open, _ = domain.NewDecimalFromFloat(*v)
		}
		if v := at(q.High, i); v != nil {
			point.High, _ = domain.NewDecimalFromFloat(*v)
		}
		if v := at(q.Low, i); v != nil {
			point.Low, _ = domain.NewDecimalFromFloat(*v)
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			point.Volume = *q.Volume[i]
		}
		series.Points = append(series.Points, point)
	}
	if series.Empty() {
		return nil, fmt.Errorf("no historical data for symbol: %s", symbol)
	}
	series.SortAscending()
	return series, nil
}

func (c *Client) chart(ctx context.Context, symbol, rng, interval string) (*chartResult, error) {
	params := url.Values{"range": {rng}, "interval": {interval}}
	path := chartPath + url.PathEscape(symbol) + "?" + params.Encode()

	var chartResp chartResponse
	if err := c.getJSON(ctx, path, &chartResp); err != nil {
		return nil, err
	}
	if e := chartResp.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart request failed for symbol %s: %s", symbol, e.Description)
	}
	if len(chartResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data found for symbol: %s", symbol)
	}
	return &chartResp.Chart.Result[0], nil
}

func (c *Client) getJSON(ctx context.Context, pathAndQuery string, out any) (err error) {
	defer func() { c.counter.Track(err) }()

	reqURL := c.baseURL + pathAndQuery
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr, "url", reqURL)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("yahoo: %w", marketdata.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		// chart 404s still carry a JSON error body worth surfacing
		var chartResp chartResponse
		if json.NewDecoder(resp.Body).Decode(&chartResp) == nil && chartResp.Chart.Error != nil {
			return fmt.Errorf("API returned status 404: %s", chartResp.Chart.Error.Description)
		}
		return fmt.Errorf("API returned status 404")
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// rangeFor maps a period onto Yahoo's range and bar interval.
func rangeFor(period domain.Period) (string, string) {
	switch period {
	case domain.Period1D:
		return "1d", "5m"
	case domain.Period1W:
		return "5d", "30m"
	case domain.Period3M:
		return "3mo", "1d"
	case domain.Period6M:
		return "6mo", "1d"
	case domain.Period1Y:
		return "1y", "1d"
	case domain.Period3Y:
		return "5y", "1wk"
	case domain.Period5Y:
		return "5y", "1wk"
	case domain.PeriodYTD:
		return "ytd", "1d"
	case domain.PeriodMax:
		return "max", "1mo"
	default:
		return "1mo", "1d"
	}
}

func mapInstrumentType(quoteType string) domain.InstrumentType {
	switch strings.ToUpper(quoteType) {
	case "EQUITY":
		return domain.InstrumentTypeStock
	case "ETF":
		return domain.InstrumentTypeETF
	case "MUTUALFUND":
		return domain.InstrumentTypeFund
	case "INDEX":
		return domain.InstrumentTypeIndex
	case "CRYPTOCURRENCY":
		return domain.InstrumentTypeCrypto
	case "CURRENCY":
		return domain.InstrumentTypeCurrency
	case "FUTURE":
		return domain.InstrumentTypeFuture
	default:
		return domain.InstrumentTypeOther
	}
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

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
