package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceID(t *testing.T) {
	testCases := []struct {
		raw      string
		expected SourceID
	}{
		{"yahoo", SourceYahoo},
		{" YFinance ", SourceYahoo},
		{"finnhub", SourceFinnhub},
		{"alpha_vantage", SourceAlphaVantage},
		{"TwelveData", SourceTwelveData},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			id, err := ParseSourceID(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
		})
	}

	_, err := ParseSourceID("bloomberg")
	assert.True(t, errors.Is(err, ErrUnknownSource))
}

func TestParseSourceList(t *testing.T) {
	ids, err := ParseSourceList("yahoo, finnhub,,twelvedata")
	require.NoError(t, err)
	assert.Equal(t, []SourceID{SourceYahoo, SourceFinnhub, SourceTwelveData}, ids)

	ids, err = ParseSourceList("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = ParseSourceList("yahoo,yfinance")
	assert.Error(t, err)

	_, err = ParseSourceList("yahoo,nope")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestSearchResult_AddSource(t *testing.T) {
	r := SearchResult{Symbol: "aapl"}
	r.AddSource(SourceYahoo)
	r.AddSource(SourceFinnhub)
	r.AddSource(SourceYahoo)

	assert.Equal(t, []SourceID{SourceYahoo, SourceFinnhub}, r.Sources)
	assert.Equal(t, "AAPL", r.Key())
	assert.False(t, r.HasPrice())
}

func TestParsePeriod(t *testing.T) {
	for _, raw := range []string{"1d", "1w", "1m", "3M", "6M", "1Y", "3y", "5Y", "ytd", "max"} {
		p, err := ParsePeriod(raw)
		require.NoError(t, err, raw)
		assert.NotEmpty(t, p)
	}

	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, Period1M, p)

	_, err = ParsePeriod("10Y")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriod_StartDate(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC), Period1M.StartDate(now))
	assert.Equal(t, time.Date(2023, time.June, 15, 12, 0, 0, 0, time.UTC), Period1Y.StartDate(now))
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), PeriodYTD.StartDate(now))
	assert.True(t, PeriodMax.StartDate(now).IsZero())
	assert.True(t, Period1W.Intraday())
	assert.False(t, Period1M.Intraday())
}

func TestHistoricalSeries_SortAscending(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	s := &HistoricalSeries{Points: []HistoricalPoint{{Date: d(3)}, {Date: d(1)}, {Date: d(2)}}}

	s.SortAscending()

	assert.Equal(t, d(1), s.Points[0].Date)
	assert.Equal(t, d(3), s.Points[2].Date)
	assert.False(t, s.Empty())

	var nilSeries *HistoricalSeries
	assert.True(t, nilSeries.Empty())
}

func TestValidateISIN(t *testing.T) {
	valid := []string{"US0378331005", "IT0003128367", "GB00B63H8491", "US5949181045"}
	for _, isin := range valid {
		assert.NoError(t, ValidateISIN(isin), isin)
	}

	invalid := []string{"", "US037833100", "US0378331006", "1S0378331005", "US03783310-5", "US037833100X"}
	for _, isin := range invalid {
		assert.ErrorIs(t, ValidateISIN(isin), ErrInvalidISIN, isin)
	}

	isin, err := NormalizeISIN(" us0378331005 ")
	require.NoError(t, err)
	assert.Equal(t, "US0378331005", isin)
}

func TestBond_MaturityDate(t *testing.T) {
	b := Bond{Maturity: "2030-05-15"}
	m, ok := b.MaturityDate()
	require.True(t, ok)
	assert.Equal(t, 2030, m.Year())

	_, ok = Bond{Maturity: "soon"}.MaturityDate()
	assert.False(t, ok)
	_, ok = Certificate{}.MaturityDate()
	assert.False(t, ok)
}
