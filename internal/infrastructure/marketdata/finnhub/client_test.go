package finnhub

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

	client := NewClient("test-api-key")
	client.SetBaseURL(server.URL)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, "test-api-key", client.apiKey)
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)
	assert.Equal(t, domain.SourceFinnhub, client.ID())
}

func TestNewClientWithHTTPClient(t *testing.T) {
	custom := &http.Client{Timeout: 30 * time.Second}
	client := NewClientWithHTTPClient("k", custom)

	assert.Equal(t, custom, client.httpClient)
}

func TestClient_ImplementsProviderInterfaces(t *testing.T) {
	var _ marketdata.Provider = (*Client)(nil)
	var _ marketdata.OverviewProvider = (*Client)(nil)
	var _ marketdata.UsageReporter = (*Client)(nil)
}

func TestClient_Search_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		assert.Equal(t, "test-api-key", r.URL.Query().Get("token"))
		writeJSON(w, http.StatusOK, `{
			"count": 3,
			"result": [
				{"description": "APPLE INC", "displaySymbol": "AAPL", "symbol": "AAPL", "type": "Common Stock"},
				{"description": "APPLE INC", "displaySymbol": "APC.F", "symbol": "APC.F", "type": "Common Stock"},
				{"description": "", "displaySymbol": "", "symbol": "", "type": ""}
			]
		}`)
	})

	results, err := client.Search(context.Background(), "apple")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Equal(t, domain.InstrumentTypeStock, results[0].Type)
	assert.Equal(t, []domain.SourceID{domain.SourceFinnhub}, results[0].Sources)
	assert.Equal(t, "F", results[1].Exchange)
	assert.Nil(t, results[0].Price)
}

func TestClient_Search_NoResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"count": 0, "result": []}`)
	})

	_, err := client.Search(context.Background(), "zzzz")
	assert.Error(t, err)
}

func TestClient_SearchByISIN_WithProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "GB00B63H8491", r.URL.Query().Get("q"))
			writeJSON(w, http.StatusOK, `{"count": 1, "result": [{"description": "ROLLS-ROYCE HOLDINGS PLC", "symbol": "RR.L", "type": "Common Stock"}]}`)
		case "/stock/profile2":
			assert.Equal(t, "RR.L", r.URL.Query().Get("symbol"))
			writeJSON(w, http.StatusOK, `{"country": "GB", "currency": "GBP", "exchange": "LONDON STOCK EXCHANGE", "name": "Rolls-Royce Holdings PLC"}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	results, err := client.SearchByISIN(context.Background(), "GB00B63H8491")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "RR.L", results[0].Symbol)
	assert.Equal(t, "GB00B63H8491", results[0].ISIN)
	assert.Equal(t, "Rolls-Royce Holdings PLC", results[0].Name)
	assert.Equal(t, "GBP", results[0].Currency)
	assert.Equal(t, "LONDON STOCK EXCHANGE", results[0].Exchange)
	assert.Equal(t, "GB", results[0].Country)
}

func TestClient_SearchByISIN_ProfileFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			writeJSON(w, http.StatusOK, `{"count": 1, "result": [{"description": "VANGUARD S&P 500 ETF", "symbol": "VOO", "type": "ETF"}]}`)
			return
		}
		writeJSON(w, http.StatusOK, `{}`)
	})

	results, err := client.SearchByISIN(context.Background(), "US9229087690")

	require.NoError(t, err)
	assert.Equal(t, domain.InstrumentTypeETF, results[0].Type)
	assert.Equal(t, "USD", results[0].Currency)
	assert.Equal(t, "", results[0].Exchange)
}

func TestClient_SearchByISIN_NoResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"count": 0, "result": []}`)
	})

	results, err := client.SearchByISIN(context.Background(), "XX0000000000")
	assert.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "no instrument found")
}

func TestClient_GetQuote_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		writeJSON(w, http.StatusOK, `{"c": 189.84, "d": 1.5, "dp": 0.7964, "h": 190.1, "l": 187.2, "o": 188, "pc": 188.34, "t": 1700000000}`)
	})

	quote, err := client.GetQuote(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, "189.84", quote.Price.String())
	assert.Equal(t, "1.5", quote.Change.String())
	assert.Equal(t, "0.7964", quote.ChangePercent.String())
	require.NotNil(t, quote.PreviousClose)
	assert.Equal(t, "188.34", quote.PreviousClose.String())
	assert.Equal(t, int64(1700000000), quote.Timestamp.Unix())
	assert.Nil(t, quote.Volume)
}

func TestClient_GetQuote_NoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"c": 0, "d": null, "dp": null, "h": 0, "l": 0, "o": 0, "pc": 0, "t": 0}`)
	})

	quote, err := client.GetQuote(context.Background(), "INVALID")
	assert.Error(t, err)
	assert.Nil(t, quote)
	assert.Contains(t, err.Error(), "no quote data found")
}

func TestClient_GetQuote_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		contains string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "Internal Server Error"}`, "API returned status 500"},
		{"unauthorized", http.StatusUnauthorized, `{"error": "Invalid API key"}`, "API returned status 401"},
		{"invalid json", http.StatusOK, `{invalid json}`, "failed to decode response"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})

			_, err := client.GetQuote(context.Background(), "AAPL")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
			assert.Equal(t, int64(1), client.Usage().Failures)
		})
	}
}

func TestClient_GetQuote_TooManyRequests(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{"error": "API limit reached"}`)
	})

	_, err := client.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, marketdata.ErrRateLimited)
}

func TestClient_GetQuote_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		writeJSON(w, http.StatusOK, `{}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetQuote(ctx, "AAPL")
	assert.Error(t, err)
}

func TestClient_GetHistoricalData_NotSupported(t *testing.T) {
	client := NewClient("k")

	series, err := client.GetHistoricalData(context.Background(), "AAPL", domain.Period1M)
	assert.Nil(t, series)
	assert.ErrorIs(t, err, marketdata.ErrNotSupported)
}

func TestClient_GetCompanyOverview(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stock/profile2":
			writeJSON(w, http.StatusOK, `{"country": "US", "currency": "USD", "exchange": "NASDAQ NMS - GLOBAL MARKET", "finnhubIndustry": "Technology", "marketCapitalization": 2950000, "name": "Apple Inc", "weburl": "https://www.apple.com/"}`)
		case "/stock/metric":
			assert.Equal(t, "all", r.URL.Query().Get("metric"))
			writeJSON(w, http.StatusOK, `{"symbol": "AAPL", "metric": {"peTTM": 29.5, "beta": 1.28, "52WeekHigh": 199.62, "52WeekLow": 164.08, "epsTTM": 6.42, "dividendYieldIndicatedAnnual": 0.51}}`)
		}
	})

	overview, err := client.GetCompanyOverview(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", overview.Name)
	assert.Equal(t, "Technology", overview.Sector)
	require.NotNil(t, overview.MarketCap)
	assert.InDelta(t, 2.95e12, *overview.MarketCap, 1)
	require.NotNil(t, overview.PERatio)
	assert.InDelta(t, 29.5, *overview.PERatio, 1e-9)
	assert.NotNil(t, overview.Week52High)
	assert.Nil(t, overview.PEGRatio)
	assert.Nil(t, overview.BookValue)
}

func TestClient_GetCompanyOverview_MetricsOnly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/stock/metric" {
			writeJSON(w, http.StatusOK, `{"metric": {"beta": 0.9}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{}`)
	})

	overview, err := client.GetCompanyOverview(context.Background(), "ENEL.MI")
	require.NoError(t, err)
	assert.Empty(t, overview.Name)
	require.NotNil(t, overview.Beta)
}

func TestClient_GetCompanyOverview_NothingFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := client.GetCompanyOverview(context.Background(), "NOPE")
	assert.Error(t, err)
	assert.Equal(t, int64(2), client.Usage().Requests)
}

func TestMapInstrumentType(t *testing.T) {
	testCases := []struct {
		input    string
		expected domain.InstrumentType
	}{
		{"ETP", domain.InstrumentTypeETF},
		{"ETF", domain.InstrumentTypeETF},
		{"Common Stock", domain.InstrumentTypeStock},
		{"Equity", domain.InstrumentTypeStock},
		{"", domain.InstrumentTypeStock},
		{"Warrant", domain.InstrumentTypeOther},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, mapInstrumentType(tc.input))
		})
	}
}

func TestExtractExchange(t *testing.T) {
	assert.Equal(t, "L", extractExchange("RR.L"))
	assert.Equal(t, "", extractExchange("AAPL"))
	assert.Equal(t, "MI", extractExchange("ENEL.MI"))
	assert.Equal(t, "A", extractExchange("BRK.B.A"))
}
