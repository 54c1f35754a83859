package yfinance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmanzanog/market-aggregator/internal/domain"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient()
	client.SetBaseURL(server.URL + "/")
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const aaplChart = `{
	"chart": {
		"result": [{
			"meta": {
				"currency": "USD", "symbol": "AAPL", "exchangeName": "NMS", "fullExchangeName": "NasdaqGS",
				"instrumentType": "EQUITY", "longName": "Apple Inc.", "shortName": "Apple Inc.",
				"regularMarketPrice": 110, "regularMarketTime": 1718395200,
				"regularMarketDayHigh": 111.5, "regularMarketDayLow": 108.25, "regularMarketVolume": 70122700,
				"chartPreviousClose": 100
			},
			"timestamp": [1718395200],
			"indicators": {"quote": [{"open": [109.5], "high": [111.5], "low": [108.25], "close": [110], "volume": [70122700]}]}
		}],
		"error": null
	}
}`

func TestNewClient(t *testing.T) {
	client := NewClient()

	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)
	assert.Equal(t, domain.SourceYahoo, client.ID())

	custom := &http.Client{Timeout: time.Second}
	assert.Equal(t, custom, NewClientWithHTTPClient(custom).httpClient)

	var _ marketdata.Provider = client
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, `{"quotes": [
			{"symbol": "AAPL", "shortname": "Apple Inc.", "longname": "Apple Inc.", "quoteType": "EQUITY", "exchange": "NMS", "exchDisp": "NASDAQ"},
			{"symbol": "APC.DE", "shortname": "APPLE INC", "quoteType": "EQUITY", "exchange": "GER"},
			{"index": "news", "symbol": ""}
		]}`)
	})

	results, err := client.Search(context.Background(), "apple")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Equal(t, "NASDAQ", results[0].Exchange)
	assert.Equal(t, domain.InstrumentTypeStock, results[0].Type)
	assert.Equal(t, "APPLE INC", results[1].Name)
	assert.Equal(t, "GER", results[1].Exchange)
	assert.Equal(t, []domain.SourceID{domain.SourceYahoo}, results[1].Sources)
}

func TestSearchByISIN(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "IT0003128367", r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, `{"quotes": [{"symbol": "ENEL.MI", "longname": "Enel SpA", "quoteType": "EQUITY", "exchDisp": "Milan"}]}`)
	})

	results, err := client.SearchByISIN(context.Background(), "IT0003128367")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ENEL.MI", results[0].Symbol)
	assert.Equal(t, "IT0003128367", results[0].ISIN)
}

func TestSearch_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"quotes": []}`)
	})

	_, err := client.Search(context.Background(), "zzzz")
	assert.Error(t, err)

	_, err = client.SearchByISIN(context.Background(), "US0000000000")
	assert.Error(t, err)
}

func TestGetQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		writeJSON(w, http.StatusOK, aaplChart)
	})

	quote, err := client.GetQuote(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, "Apple Inc.", quote.Name)
	assert.Equal(t, "110", quote.Price.String())
	assert.Equal(t, "10", quote.Change.String())
	assert.Equal(t, 0, quote.ChangePercent.Cmp(&domain.DecimalPtr(domain.NewDecimalFromInt(10)).Decimal))
	assert.Equal(t, "USD", quote.Currency)
	assert.Equal(t, "NasdaqGS", quote.Exchange)
	require.NotNil(t, quote.Open)
	assert.Equal(t, "109.5", quote.Open.String())
	require.NotNil(t, quote.Volume)
	assert.Equal(t, int64(70122700), *quote.Volume)
	assert.Equal(t, int64(1718395200), quote.Timestamp.Unix())
}

func TestGetQuote_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		contains string
	}{
		{"not found", http.StatusNotFound, `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`, "symbol may be delisted"},
		{"server error", http.StatusInternalServerError, `boom`, "API returned status 500"},
		{"empty result", http.StatusOK, `{"chart": {"result": [], "error": null}}`, "no chart data"},
		{"no price", http.StatusOK, `{"chart": {"result": [{"meta": {"symbol": "X"}}], "error": null}}`, "no quote data"},
		{"invalid json", http.StatusOK, `{`, "failed to decode response"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})

			quote, err := client.GetQuote(context.Background(), "X")
			assert.Nil(t, quote)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestGetQuote_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `Too Many Requests`)
	})

	_, err := client.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, marketdata.ErrRateLimited)
	assert.Equal(t, int64(1), client.Usage().Failures)
}

func TestGetHistoricalData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1y", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		writeJSON(w, http.StatusOK, `{"chart": {"result": [{
			"meta": {"symbol": "AAPL"},
			"timestamp": [1718222400, 1718308800, 1718395200],
			"indicators": {"quote": [{
				"open": [214.74, null, 213.85],
				"high": [216.75, null, 215.17],
				"low": [211.6, null, 211.3],
				"close": [214.24, null, 212.49],
				"volume": [97862700, null, 70122700]
			}]}
		}], "error": null}}`)
	})

	series, err := client.GetHistoricalData(context.Background(), "AAPL", domain.Period1Y)

	require.NoError(t, err)
	assert.Equal(t, domain.SourceYahoo, series.Source)
	assert.Equal(t, domain.Period1Y, series.Period)
	require.Len(t, series.Points, 2)
	assert.Equal(t, "214.24", series.Points[0].Close.String())
	assert.Equal(t, int64(70122700), series.Points[1].Volume)
}

func TestGetHistoricalData_AllNull(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"chart": {"result": [{"timestamp": [1718222400], "indicators": {"quote": [{"close": [null]}]}}], "error": null}}`)
	})

	_, err := client.GetHistoricalData(context.Background(), "AAPL", domain.Period1M)
	assert.Error(t, err)
}

func TestRangeFor(t *testing.T) {
	testCases := []struct {
		period   domain.Period
		rng      string
		interval string
	}{
		{domain.Period1D, "1d", "5m"},
		{domain.Period1W, "5d", "30m"},
		{domain.Period3Y, "5y", "1wk"},
		{domain.Period1M, "1mo", "1d"},
		{domain.PeriodYTD, "ytd", "1d"},
		{domain.Period5Y, "5y", "1wk"},
		{domain.PeriodMax, "max", "1mo"},
	}
	for _, tc := range testCases {
		rng, interval := rangeFor(tc.period)
		assert.Equal(t, tc.rng, rng, string(tc.period))
		assert.Equal(t, tc.interval, interval, string(tc.period))
	}
}

func TestMapInstrumentType(t *testing.T) {
	assert.Equal(t, domain.InstrumentTypeStock, mapInstrumentType("EQUITY"))
	assert.Equal(t, domain.InstrumentTypeETF, mapInstrumentType("etf"))
	assert.Equal(t, domain.InstrumentTypeFund, mapInstrumentType("MUTUALFUND"))
	assert.Equal(t, domain.InstrumentTypeCrypto, mapInstrumentType("CRYPTOCURRENCY"))
	assert.Equal(t, domain.InstrumentTypeOther, mapInstrumentType("OPTION"))
}
