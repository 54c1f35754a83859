package domain

import (
	"fmt"
	"strings"
)

// SourceID identifies an upstream market-data provider.
type SourceID string

const (
	SourceYahoo        SourceID = "yahoo"
	SourceFinnhub      SourceID = "finnhub"
	SourceAlphaVantage SourceID = "alphavantage"
	SourceTwelveData   SourceID = "twelvedata"
)

func (s SourceID) String() string {
	return string(s)
}

// ParseSourceID accepts the canonical ids plus a few common spellings.
func ParseSourceID(raw string) (SourceID, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yahoo", "yfinance", "yahoofinance":
		return SourceYahoo, nil
	case "finnhub":
		return SourceFinnhub, nil
	case "alphavantage", "alpha_vantage", "alpha-vantage":
		return SourceAlphaVantage, nil
	case "twelvedata", "twelve_data", "twelve-data":
		return SourceTwelveData, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, raw)
	}
}

// ParseSourceList parses a comma separated list such as "yahoo,finnhub".
// Blank entries are skipped; duplicates are an error.
func ParseSourceList(raw string) ([]SourceID, error) {
	var out []SourceID
	seen := make(map[SourceID]bool)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := ParseSourceID(part)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate source %q", id)
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}
