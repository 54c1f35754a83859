package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/jmanzanog/market-aggregator/internal/domain"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata"
)

const (
	defaultBaseURL = "https://www.alphavantage.co"
	queryPath      = "/query"
)

// Client implements marketdata.Provider and marketdata.OverviewProvider
// against the Alpha Vantage query API.
type Client struct {
	http    *resty.Client
	apiKey  string
	counter marketdata.RequestCounter
	now     func() time.Time
}

func NewClient(apiKey string) *Client {
	return NewClientWithHTTPClient(apiKey, &http.Client{Timeout: 15 * time.Second})
}

func NewClientWithHTTPClient(apiKey string, httpClient *http.Client) *Client {
	return &Client{
		http:   resty.NewWithClient(httpClient).SetBaseURL(defaultBaseURL),
		apiKey: apiKey,
		now:    time.Now,
	}
}

func (c *Client) SetBaseURL(baseURL string) {
	c.http.SetBaseURL(baseURL)
}

func (c *Client) ID() domain.SourceID {
	return domain.SourceAlphaVantage
}

func (c *Client) Usage() marketdata.Usage {
	return c.counter.Usage()
}

type searchResponse struct {
	BestMatches []struct {
		Symbol   string `json:"1. symbol"`
		Name     string `json:"2. name"`
		Type     string `json:"3. type"`
		Region   string `json:"4. region"`
		Currency string `json:"8. currency"`
	} `json:"bestMatches"`
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
}

type bar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type overviewResponse struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Description          string `json:"Description"`
	Exchange             string `json:"Exchange"`
	Currency             string `json:"Currency"`
	Country              string `json:"Country"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	OfficialSite         string `json:"OfficialSite"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
	PEGRatio             string `json:"PEGRatio"`
	BookValue            string `json:"BookValue"`
	DividendYield        string `json:"DividendYield"`
	EPS                  string `json:"EPS"`
	ProfitMargin         string `json:"ProfitMargin"`
	Week52High           string `json:"52WeekHigh"`
	Week52Low            string `json:"52WeekLow"`
	Beta                 string `json:"Beta"`
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return c.symbolSearch(ctx, query, "")
}

// SearchByISIN delegates to SYMBOL_SEARCH, which matches some ISINs as
// keywords. There is no dedicated ISIN endpoint.
func (c *Client) SearchByISIN(ctx context.Context, isin string) ([]domain.SearchResult, error) {
	results, err := c.symbolSearch(ctx, isin, isin)
	if err != nil {
		return nil, fmt.Errorf("no instrument found for ISIN %s: %w", isin, err)
	}
	return results, nil
}

func (c *Client) symbolSearch(ctx context.Context, keywords, isin string) ([]domain.SearchResult, error) {
	var searchResp searchResponse
	if err := c.query(ctx, map[string]string{"function": "SYMBOL_SEARCH", "keywords": keywords}, &searchResp); err != nil {
		return nil, err
	}
	if len(searchResp.BestMatches) == 0 {
		return nil, fmt.Errorf("no results found for query: %s", keywords)
	}

	results := make([]domain.SearchResult, 0, len(searchResp.BestMatches))
	for _, m := range searchResp.BestMatches {
		results = append(results, domain.SearchResult{
			Symbol:   m.Symbol,
			Name:     m.Name,
			Type:     mapInstrumentType(m.Type),
			Exchange: exchangeFromSymbol(m.Symbol),
			Currency: m.Currency,
			Country:  m.Region,
			ISIN:     isin,
			Sources:  []domain.SourceID{domain.SourceAlphaVantage},
		})
	}
	return results, nil
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var quoteResp globalQuoteResponse
	if err := c.query(ctx, map[string]string{"function": "GLOBAL_QUOTE", "symbol": symbol}, &quoteResp); err != nil {
		return nil, err
	}
	gq := quoteResp.GlobalQuote
	if gq.Price == "" {
		return nil, fmt.Errorf("no quote data found for symbol: %s", symbol)
	}

	price, err := parseDecimal(gq.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}

	quote := &domain.Quote{
		Symbol:        firstNonEmpty(gq.Symbol, symbol),
		Price:         price,
		Exchange:      exchangeFromSymbol(symbol),
		Open:          optionalDecimal(gq.Open),
		High:          optionalDecimal(gq.High),
		Low:           optionalDecimal(gq.Low),
		PreviousClose: optionalDecimal(gq.PreviousClose),
		Timestamp:     c.now().UTC(),
	}
	if t, err := time.Parse(domain.DateLayout, gq.LatestTradingDay); err == nil {
		quote.Timestamp = t
	}
	if d := optionalDecimal(gq.Change); d != nil {
		quote.Change = *d
	}
	if d := optionalDecimal(strings.TrimSuffix(gq.ChangePercent, "%")); d != nil {
		quote.ChangePercent = *d
	}
	if v, err := strconv.ParseInt(gq.Volume, 10, 64); err == nil {
		quote.Volume = &v
	}
	return quote, nil
}

// GetHistoricalData uses the intraday series for 1D/1W and the daily series
// otherwise, trimming points older than the period's start.
func (c *Client) GetHistoricalData(ctx context.Context, symbol string, period domain.Period) (*domain.HistoricalSeries, error) {
	params := map[string]string{"symbol": symbol, "outputsize": "compact"}
	seriesKey := "Time Series (Daily)"
	layout := domain.DateLayout

	switch {
	case period == domain.Period1D:
		params["function"] = "TIME_SERIES_INTRADAY"
		params["interval"] = "5min"
		seriesKey = "Time Series (5min)"
		layout = "2006-01-02 15:04:05"
	case period == domain.Period1W:
		params["function"] = "TIME_SERIES_INTRADAY"
		params["interval"] = "30min"
		seriesKey = "Time Series (30min)"
		layout = "2006-01-02 15:04:05"
	default:
		params["function"] = "TIME_SERIES_DAILY"
		if period != domain.Period1M && period != domain.Period3M {
			params["outputsize"] = "full"
		}
	}

	var raw map[string]json.RawMessage
	if err := c.query(ctx, params, &raw); err != nil {
		return nil, err
	}
	var bars map[string]bar
	if body, ok := raw[seriesKey]; ok {
		if err := json.Unmarshal(body, &bars); err != nil {
			return nil, fmt.Errorf("failed to decode time series: %w", err)
		}
	}

	// Intraday bars are already limited to the latest sessions.
	start := time.Time{}
	if !period.Intraday() {
		start = period.StartDate(c.now())
	}

	series := &domain.HistoricalSeries{Symbol: symbol, Period: period, Source: domain.SourceAlphaVantage}
	for ts, b := range bars {
		date, err := time.Parse(layout, ts)
		if err != nil || date.Before(start) {
			continue
		}
		closePrice, err := parseDecimal(b.Close)
		if err != nil {
			continue
		}
		point := domain.HistoricalPoint{Date: date, Close: closePrice}
		if d := optionalDecimal(b.Open); d != nil {
			point.Open = *d
		}
		if d := optionalDecimal(b.High); d != nil {
			point.High = *d
		}
		if d := optionalDecimal(b.Low); d != nil {
			point.Low = *d
		}
		point.Volume, _ = strconv.ParseInt(b.Volume, 10, 64)
		series.Points = append(series.Points, point)
	}
	if series.Empty() {
		return nil, fmt.Errorf("no historical data for symbol: %s", symbol)
	}
	series.SortAscending()
	return series, nil
}

func (c *Client) GetCompanyOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error) {
	var ov overviewResponse
	if err := c.query(ctx, map[string]string{"function": "OVERVIEW", "symbol": symbol}, &ov); err != nil {
		return nil, err
	}
	if ov.Symbol == "" {
		return nil, fmt.Errorf("no overview data found for symbol: %s", symbol)
	}

	return &domain.CompanyOverview{
		Name:          ov.Name,
		Currency:      ov.Currency,
		Exchange:      ov.Exchange,
		Country:       ov.Country,
		MarketCap:     parseFloat(ov.MarketCapitalization),
		PERatio:       parseFloat(ov.PERatio),
		PEGRatio:      parseFloat(ov.PEGRatio),
		DividendYield: parseFloat(ov.DividendYield),
		EPS:           parseFloat(ov.EPS),
		Beta:          parseFloat(ov.Beta),
		Week52High:    parseFloat(ov.Week52High),
		Week52Low:     parseFloat(ov.Week52Low),
		BookValue:     parseFloat(ov.BookValue),
		ProfitMargin:  parseFloat(ov.ProfitMargin),
		Sector:        ov.Sector,
		Industry:      ov.Industry,
		Description:   ov.Description,
		Website:       ov.OfficialSite,
	}, nil
}

// query calls /query and decodes the body into out. Alpha Vantage signals
// quota exhaustion and bad symbols in-band with HTTP 200.
func (c *Client) query(ctx context.Context, params map[string]string, out any) (err error) {
	defer func() { c.counter.Track(err) }()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("apikey", c.apiKey).
		Get(queryPath)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return fmt.Errorf("alphavantage: %w", marketdata.ErrRateLimited)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var envelope struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	switch {
	case envelope.Note != "":
		return fmt.Errorf("alphavantage: %s: %w", envelope.Note, marketdata.ErrRateLimited)
	case envelope.Information != "":
		return fmt.Errorf("alphavantage: %s: %w", envelope.Information, marketdata.ErrRateLimited)
	case envelope.ErrorMessage != "":
		return fmt.Errorf("alphavantage error: %s", envelope.ErrorMessage)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseDecimal(s string) (domain.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
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

// parseFloat treats "None", "-" and other non-numbers as missing.
func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func mapInstrumentType(t string) domain.InstrumentType {
	switch strings.ToLower(t) {
	case "equity":
		return domain.InstrumentTypeStock
	case "etf":
		return domain.InstrumentTypeETF
	case "mutual fund":
		return domain.InstrumentTypeFund
	default:
		return domain.InstrumentTypeOther
	}
}

// exchangeFromSymbol reads suffixes like "TSCO.LON".
func exchangeFromSymbol(symbol string) string {
	if i := strings.LastIndexByte(symbol, '.'); i >= 0 {
		return symbol[i+1:]
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
