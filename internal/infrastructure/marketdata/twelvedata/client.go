package twelvedata

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

	"github.com/shopspring/decimal"

	"github.com/jmanzanog/market-aggregator/internal/domain"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata"
)

const (
	defaultBaseURL   = "https://api.twelvedata.com"
	symbolSearchPath = "/symbol_search"
	quotePath        = "/quote"
	timeSeriesPath   = "/time_series"

	maxOutputSize = "5000"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	counter    marketdata.RequestCounter
	now        func() time.Time
}

func NewClient(apiKey string) *Client {
	return NewClientWithHTTPClient(apiKey, &http.Client{Timeout: 15 * time.Second})
}

func NewClientWithHTTPClient(apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

func (c *Client) ID() domain.SourceID {
	return domain.SourceTwelveData
}

func (c *Client) Usage() marketdata.Usage {
	return c.counter.Usage()
}

// apiStatus is embedded in every TwelveData payload. Errors are reported
// in-band with HTTP 200.
type apiStatus struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s apiStatus) err() error {
	if s.Status != "error" {
		return nil
	}
	if s.Code == http.StatusTooManyRequests {
		return fmt.Errorf("twelvedata: %s: %w", s.Message, marketdata.ErrRateLimited)
	}
	return fmt.Errorf("twelvedata error %d: %s", s.Code, s.Message)
}

type symbolSearchResponse struct {
	apiStatus
	Data []struct {
		Symbol         string `json:"symbol"`
		InstrumentName string `json:"instrument_name"`
		Exchange       string `json:"exchange"`
		Currency       string `json:"currency"`
		Country        string `json:"country"`
		InstrumentType string `json:"instrument_type"`
	} `json:"data"`
}

type quoteResponse struct {
	apiStatus
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Exchange      string `json:"exchange"`
	Currency      string `json:"currency"`
	Datetime      string `json:"datetime"`
	Timestamp     int64  `json:"timestamp"`
	Open          string `json:"open"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Close         string `json:"close"`
	Volume        string `json:"volume"`
	PreviousClose string `json:"previous_close"`
	Change        string `json:"change"`
	PercentChange string `json:"percent_change"`
}

type timeSeriesResponse struct {
	apiStatus
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return c.symbolSearch(ctx, query, "")
}

func (c *Client) SearchByISIN(ctx context.Context, isin string) ([]domain.SearchResult, error) {
	results, err := c.symbolSearch(ctx, isin, isin)
	if err != nil {
		return nil, fmt.Errorf("no instrument found for ISIN %s: %w", isin, err)
	}
	return results, nil
}

func (c *Client) symbolSearch(ctx context.Context, query, isin string) ([]domain.SearchResult, error) {
	var searchResp symbolSearchResponse
	if err := c.getJSON(ctx, symbolSearchPath, url.Values{"symbol": {query}, "outputsize": {"30"}}, &searchResp); err != nil {
		return nil, err
	}
	if err := searchResp.err(); err != nil {
		return nil, err
	}
	if len(searchResp.Data) == 0 {
		return nil, fmt.Errorf("no results found for query: %s", query)
	}

	results := make([]domain.SearchResult, 0, len(searchResp.Data))
	for _, d := range searchResp.Data {
		results = append(results, domain.SearchResult{
			Symbol:   d.Symbol,
			Name:     d.InstrumentName,
			Type:     mapInstrumentType(d.InstrumentType),
			Exchange: d.Exchange,
			Currency: d.Currency,
			Country:  d.Country,
			ISIN:     isin,
			Sources:  []domain.SourceID{domain.SourceTwelveData},
		})
	}
	return results, nil
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var quoteResp quoteResponse
	if err := c.getJSON(ctx, quotePath, url.Values{"symbol": {symbol}}, &quoteResp); err != nil {
		return nil, err
	}
	if err := quoteResp.err(); err != nil {
		return nil, fmt.Errorf("quote request failed for symbol %s: %w", symbol, err)
	}
	if quoteResp.Close == "" {
		return nil, fmt.Errorf("quote request returned no price data for symbol: %s", symbol)
	}

	price, err := parseDecimal(quoteResp.Close)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}

	quote := &domain.Quote{
		Symbol:        quoteResp.Symbol,
		Name:          quoteResp.Name,
		Price:         price,
		Currency:      quoteResp.Currency,
		Exchange:      quoteResp.Exchange,
		Timestamp:     time.Unix(quoteResp.Timestamp, 0).UTC(),
		Open:          optionalDecimal(quoteResp.Open),
		High:          optionalDecimal(quoteResp.High),
		Low:           optionalDecimal(quoteResp.Low),
		PreviousClose: optionalDecimal(quoteResp.PreviousClose),
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	if quoteResp.Timestamp == 0 {
		if t, ok := parseDatetime(quoteResp.Datetime); ok {
			quote.Timestamp = t
		}
	}
	if ch := optionalDecimal(quoteResp.Change); ch != nil {
		quote.Change = *ch
	}
	if pct := optionalDecimal(quoteResp.PercentChange); pct != nil {
		quote.ChangePercent = *pct
	}
	if v, err := decimal.NewFromString(quoteResp.Volume); err == nil {
		vol := v.IntPart()
		quote.Volume = &vol
	}
	return quote, nil
}

func (c *Client) GetHistoricalData(ctx context.Context, symbol string, period domain.Period) (*domain.HistoricalSeries, error) {
	params := url.Values{
		"symbol":     {symbol},
		"interval":   {intervalFor(period)},
		"outputsize": {maxOutputSize},
	}
	if start := period.StartDate(c.now()); !start.IsZero() {
		params.Set("start_date", start.Format("2006-01-02 15:04:05"))
	}

	var tsResp timeSeriesResponse
	if err := c.getJSON(ctx, timeSeriesPath, params, &tsResp); err != nil {
		return nil, err
	}
	if err := tsResp.err(); err != nil {
		return nil, fmt.Errorf("time series request failed for symbol %s: %w", symbol, err)
	}

	series := &domain.HistoricalSeries{
		Symbol: symbol,
		Period: period,
		Source: domain.SourceTwelveData,
		Points: make([]domain.HistoricalPoint, 0, len(tsResp.Values)),
	}
	for _, v := range tsResp.Values {
		date, ok := parseDatetime(v.Datetime)
		if !ok {
			continue
		}
		closePrice, err := parseDecimal(v.Close)
		if err != nil {
			continue
		}
		point := domain.HistoricalPoint{Date: date, Close: closePrice}
		if d := optionalDecimal(v.Open); d != nil {
			point.Open = *d
		}
		if d := optionalDecimal(v.High); d != nil {
			point.High = *d
		}
		if d := optionalDecimal(v.Low); d != nil {
			point.Low = *d
		}
		if vol, err := decimal.NewFromString(v.Volume); err == nil {
			point.Volume = vol.IntPart()
		}
		series.Points = append(series.Points, point)
	}
	if series.Empty() {
		return nil, fmt.Errorf("no historical data for symbol: %s", symbol)
	}
	// TwelveData returns newest first.
	series.SortAscending()
	return series, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) (err error) {
	defer func() { c.counter.Track(err) }()

	params.Set("apikey", c.apiKey)
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
		return fmt.Errorf("twelvedata: %w", marketdata.ErrRateLimited)
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

// parseDecimal goes through shopspring/decimal, which accepts the
// exponent-free strings TwelveData emits, then into the domain type.
func parseDecimal(s string) (domain.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return domain.Zero, err
	}
	return domain.NewDecimalFromString(d.String())
}

func optionalDecimal(s string) *domain.Decimal {
	if s == "" {
		return nil
	}
	d, err := parseDecimal(s)
	if err != nil {
		return nil
	}
	return &d
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func intervalFor(period domain.Period) string {
	switch period {
	case domain.Period1D:
		return "5min"
	case domain.Period1W:
		return "30min"
	case domain.Period3Y, domain.Period5Y:
		return "1week"
	case domain.PeriodMax:
		return "1month"
	default:
		return "1day"
	}
}

func mapInstrumentType(t string) domain.InstrumentType {
	switch strings.ToLower(t) {
	case "etf":
		return domain.InstrumentTypeETF
	case "common stock", "preferred stock", "depositary receipt", "reit":
		return domain.InstrumentTypeStock
	case "mutual fund":
		return domain.InstrumentTypeFund
	case "index":
		return domain.InstrumentTypeIndex
	case "digital currency":
		return domain.InstrumentTypeCrypto
	case "physical currency":
		return domain.InstrumentTypeCurrency
	case "bond":
		return domain.InstrumentTypeBond
	default:
		return domain.InstrumentTypeOther
	}
}
