package twelvedata

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

	client := NewClient("test-key")
	client.SetBaseURL(server.URL)
	client.now = func() time.Time { return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC) }
	return client
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func TestSearchByISIN(t *testing.T) {
	tests := []struct {
		name           string
		isin           string
		mockResponse   string
		expectedSymbol string
		expectedType   domain.InstrumentType
		expectError    bool
	}{
		{
			name:           "stock found",
			isin:           "US0378331005",
			mockResponse:   `{"data": [{"symbol": "AAPL", "instrument_name": "Apple Inc", "exchange": "NASDAQ", "currency": "USD", "country": "United States", "instrument_type": "Common Stock"}], "status": "ok"}`,
			expectedSymbol: "AAPL",
			expectedType:   domain.InstrumentTypeStock,
		},
		{
			name:           "etf found",
			isin:           "IE00B3RBWM25",
			mockResponse:   `{"data": [{"symbol": "VWRL", "instrument_name": "Vanguard FTSE All-World", "exchange": "LSE", "currency": "USD", "instrument_type": "ETF"}], "status": "ok"}`,
			expectedSymbol: "VWRL",
			expectedType:   domain.InstrumentTypeETF,
		},
		{
			name:         "not found",
			isin:         "XX0000000000",
			mockResponse: `{"data": [], "status": "ok"}`,
			expectError:  true,
		},
		{
			name:         "api error",
			isin:         "US0378331005",
			mockResponse: `{"status": "error", "code": 400, "message": "bad request"}`,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, respond(tt.mockResponse))

			results, err := client.SearchByISIN(context.Background(), tt.isin)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, tt.expectedSymbol, results[0].Symbol)
			assert.Equal(t, tt.expectedType, results[0].Type)
			assert.Equal(t, tt.isin, results[0].ISIN)
			assert.Equal(t, []domain.SourceID{domain.SourceTwelveData}, results[0].Sources)
		})
	}
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/symbol_search", r.URL.Path)
		assert.Equal(t, "enel", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		respond(`{"data": [
			{"symbol": "ENEL", "instrument_name": "Enel SpA", "exchange": "MTA", "currency": "EUR", "country": "Italy", "instrument_type": "Common Stock"},
			{"symbol": "ENLAY", "instrument_name": "Enel SpA ADR", "exchange": "OTC", "currency": "USD", "country": "United States", "instrument_type": "Depositary Receipt"}
		], "status": "ok"}`)(w, r)
	})

	results, err := client.Search(context.Background(), "enel")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Italy", results[0].Country)
	assert.Empty(t, results[0].ISIN)
	assert.Equal(t, domain.InstrumentTypeStock, results[1].Type)
}

func TestSearch_RateLimited(t *testing.T) {
	client := newTestClient(t, respond(`{"status": "error", "code": 429, "message": "You have run out of API credits"}`))

	_, err := client.Search(context.Background(), "enel")
	assert.ErrorIs(t, err, marketdata.ErrRateLimited)
	assert.Equal(t, int64(1), client.Usage().Requests)
}

func TestGetQuote(t *testing.T) {
	tests := []struct {
		name          string
		mockResponse  string
		statusCode    int
		expectedPrice string
		expectError   bool
	}{
		{
			name:          "success",
			mockResponse:  `{"symbol": "AAPL", "name": "Apple Inc", "exchange": "NASDAQ", "currency": "USD", "datetime": "2024-01-05", "timestamp": 1704466800, "open": "181.99", "high": "182.76", "low": "180.17", "close": "181.18", "volume": "62379661", "previous_close": "181.91", "change": "-0.73", "percent_change": "-0.40130"}`,
			statusCode:    http.StatusOK,
			expectedPrice: "181.18",
		},
		{
			name:         "api error",
			mockResponse: `{"status": "error", "code": 404, "message": "symbol not found"}`,
			statusCode:   http.StatusOK,
			expectError:  true,
		},
		{
			name:         "no price",
			mockResponse: `{"symbol": "AAPL"}`,
			statusCode:   http.StatusOK,
			expectError:  true,
		},
		{
			name:         "http error",
			mockResponse: `oops`,
			statusCode:   http.StatusBadGateway,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.mockResponse))
			})

			quote, err := client.GetQuote(context.Background(), "AAPL")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, quote)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPrice, quote.Price.String())
			assert.Equal(t, "-0.73", quote.Change.String())
			assert.Equal(t, "-0.4013", quote.ChangePercent.String())
			assert.Equal(t, "USD", quote.Currency)
			require.NotNil(t, quote.Volume)
			assert.Equal(t, int64(62379661), *quote.Volume)
			require.NotNil(t, quote.PreviousClose)
			assert.Equal(t, "181.91", quote.PreviousClose.String())
			assert.Equal(t, int64(1704466800), quote.Timestamp.Unix())
		})
	}
}

func TestGetHistoricalData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "1day", q.Get("interval"))
		assert.Equal(t, "2024-05-15 00:00:00", q.Get("start_date"))
		respond(`{
			"meta": {"symbol": "AAPL", "interval": "1day", "currency": "USD"},
			"values": [
				{"datetime": "2024-06-14", "open": "213.85", "high": "215.17", "low": "211.3", "close": "212.49", "volume": "70122700"},
				{"datetime": "2024-06-13", "open": "214.74", "high": "216.75", "low": "211.6", "close": "214.24", "volume": "97862700"},
				{"datetime": "bogus", "close": "1"}
			],
			"status": "ok"
		}`)(w, r)
	})

	series, err := client.GetHistoricalData(context.Background(), "AAPL", domain.Period1M)

	require.NoError(t, err)
	assert.Equal(t, domain.SourceTwelveData, series.Source)
	assert.Equal(t, domain.Period1M, series.Period)
	require.Len(t, series.Points, 2)
	assert.True(t, series.Points[0].Date.Before(series.Points[1].Date))
	assert.Equal(t, "214.24", series.Points[0].Close.String())
	assert.Equal(t, int64(97862700), series.Points[0].Volume)
}

func TestGetHistoricalData_MaxHasNoStartDate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("start_date"))
		assert.Equal(t, "1month", r.URL.Query().Get("interval"))
		respond(`{"values": [], "status": "ok"}`)(w, r)
	})

	_, err := client.GetHistoricalData(context.Background(), "AAPL", domain.PeriodMax)
	assert.Error(t, err)
}

func TestIntervalFor(t *testing.T) {
	assert.Equal(t, "5min", intervalFor(domain.Period1D))
	assert.Equal(t, "30min", intervalFor(domain.Period1W))
	assert.Equal(t, "1day", intervalFor(domain.PeriodYTD))
	assert.Equal(t, "1week", intervalFor(domain.Period5Y))
}
