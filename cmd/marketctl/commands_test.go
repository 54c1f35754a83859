package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmanzanog/market-aggregator/internal/application"
	"github.com/jmanzanog/market-aggregator/internal/domain"
)

type fakeService struct {
	lastSymbol string
	lastPeriod domain.Period
	lastISIN   string
}

func (f *fakeService) Search(_ context.Context, query string) *application.SearchResponse {
	if query == "none" {
		return &application.SearchResponse{Results: []domain.SearchResult{}, Error: "No results found from any source"}
	}
	return &application.SearchResponse{Success: true, Results: []domain.SearchResult{{Symbol: "AAPL"}}}
}

func (f *fakeService) SearchByISIN(_ context.Context, isin string) *application.SearchResponse {
	f.lastISIN = isin
	return &application.SearchResponse{Success: true, Results: []domain.SearchResult{{Symbol: "AAPL", ISIN: isin}}}
}

func (f *fakeService) GetQuote(_ context.Context, symbol string) *application.QuoteResponse {
	f.lastSymbol = symbol
	return &application.QuoteResponse{Success: true, Source: domain.SourceYahoo, Data: &domain.Quote{Symbol: symbol, Price: domain.NewDecimalFromInt(190)}}
}

func (f *fakeService) GetHistoricalData(_ context.Context, symbol string, period domain.Period) *application.HistoryResponse {
	f.lastSymbol, f.lastPeriod = symbol, period
	return &application.HistoryResponse{Error: "No historical data available from any source"}
}

func (f *fakeService) GetInstrumentDetails(_ context.Context, symbol string) *application.DetailResponse {
	return &application.DetailResponse{Success: true, Data: &domain.InstrumentDetail{Symbol: symbol, Name: symbol}}
}

func (f *fakeService) HealthCheck(context.Context) *application.HealthReport {
	return &application.HealthReport{Status: application.HealthDegraded}
}

type nopCloser struct{ closed *bool }

func (n nopCloser) Close() error {
	*n.closed = true
	return nil
}

func execute(t *testing.T, svc *fakeService, args ...string) (string, bool, error) {
	t.Helper()
	closed := false
	cmd := newRootCmd(func(context.Context) (marketService, io.Closer, error) {
		return svc, nopCloser{closed: &closed}, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), closed, err
}

func TestQuoteCommand(t *testing.T) {
	svc := &fakeService{}
	out, closed, err := execute(t, svc, "quote", "AAPL")

	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, "AAPL", svc.lastSymbol)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "yahoo", resp["source"])
}

func TestSearchCommand_Failure(t *testing.T) {
	out, _, err := execute(t, &fakeService{}, "search", "none")

	assert.ErrorIs(t, err, errUnsuccessful)
	assert.Contains(t, out, "No results found from any source")
}

func TestISINCommand(t *testing.T) {
	svc := &fakeService{}
	_, _, err := execute(t, svc, "isin", "us0378331005")
	require.NoError(t, err)
	assert.Equal(t, "US0378331005", svc.lastISIN)

	_, _, err = execute(t, svc, "isin", "US0378331006")
	assert.ErrorIs(t, err, domain.ErrInvalidISIN)
}

func TestHistoryCommand(t *testing.T) {
	svc := &fakeService{}
	_, _, err := execute(t, svc, "history", "ENEL.MI", "--period", "1y")
	assert.ErrorIs(t, err, errUnsuccessful)
	assert.Equal(t, domain.Period1Y, svc.lastPeriod)

	_, _, err = execute(t, svc, "history", "ENEL.MI", "--period", "10Y")
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestDetailsAndHealthCommands(t *testing.T) {
	out, _, err := execute(t, &fakeService{}, "details", "MSFT")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "MSFT"`)

	out, _, err = execute(t, &fakeService{}, "health")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "degraded"`)
}

func TestFactoryError(t *testing.T) {
	cmd := newRootCmd(func(context.Context) (marketService, io.Closer, error) {
		return nil, nil, errors.New("no market data provider enabled")
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"health"})

	assert.EqualError(t, cmd.Execute(), "no market data provider enabled")
}

func TestArgsValidation(t *testing.T) {
	_, _, err := execute(t, &fakeService{}, "quote")
	assert.Error(t, err)
}
