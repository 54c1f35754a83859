package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Period is the lookback window for historical data.
type Period string

const (
	Period1D  Period = "1D"
	Period1W  Period = "1W"
	Period1M  Period = "1M"
	Period3M  Period = "3M"
	Period6M  Period = "6M"
	Period1Y  Period = "1Y"
	Period3Y  Period = "3Y"
	Period5Y  Period = "5Y"
	PeriodYTD Period = "YTD"
	PeriodMax Period = "MAX"
)

var validPeriods = []Period{
	Period1D, Period1W, Period1M, Period3M, Period6M,
	Period1Y, Period3Y, Period5Y, PeriodYTD, PeriodMax,
}

// ParsePeriod is case-insensitive. An empty string means one month.
func ParsePeriod(raw string) (Period, error) {
	p := Period(strings.ToUpper(strings.TrimSpace(raw)))
	if p == "" {
		return Period1M, nil
	}
	for _, v := range validPeriods {
		if v == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
}

// Intraday reports whether the period is short enough for intraday bars.
func (p Period) Intraday() bool {
	return p == Period1D || p == Period1W
}

// StartDate returns the first day covered by p when observed at now.
// MAX yields the zero time.
func (p Period) StartDate(now time.Time) time.Time {
	switch p {
	case Period1D:
		return now.AddDate(0, 0, -1)
	case Period1W:
		return now.AddDate(0, 0, -7)
	case Period1M:
		return now.AddDate(0, -1, 0)
	case Period3M:
		return now.AddDate(0, -3, 0)
	case Period6M:
		return now.AddDate(0, -6, 0)
	case Period1Y:
		return now.AddDate(-1, 0, 0)
	case Period3Y:
		return now.AddDate(-3, 0, 0)
	case Period5Y:
		return now.AddDate(-5, 0, 0)
	case PeriodYTD:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}

type HistoricalPoint struct {
	Date   time.Time `json:"date"`
	Open   Decimal   `json:"open"`
	High   Decimal   `json:"high"`
	Low    Decimal   `json:"low"`
	Close  Decimal   `json:"close"`
	Volume int64     `json:"volume"`
}

// HistoricalSeries holds points ascending by date, all from Source.
type HistoricalSeries struct {
	Symbol string            `json:"symbol"`
	Period Period            `json:"period"`
	Points []HistoricalPoint `json:"data"`
	Source SourceID          `json:"source"`
}

func (s *HistoricalSeries) SortAscending() {
	sort.SliceStable(s.Points, func(i, j int) bool {
		return s.Points[i].Date.Before(s.Points[j].Date)
	})
}

func (s *HistoricalSeries) Empty() bool {
	return s == nil || len(s.Points) == 0
}
