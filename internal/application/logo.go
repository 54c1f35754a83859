package application

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jmanzanog/market-aggregator/internal/domain"
)

const DefaultLogoBaseURL = "https://logo.clearbit.com"

// knownDomains covers tickers whose company name does not map to a domain.
var knownDomains = map[string]string{
	"AAPL":  "apple.com",
	"MSFT":  "microsoft.com",
	"GOOGL": "google.com",
	"GOOG":  "google.com",
	"AMZN":  "amazon.com",
	"META":  "meta.com",
	"TSLA":  "tesla.com",
	"NVDA":  "nvidia.com",
	"NFLX":  "netflix.com",
	"IBM":   "ibm.com",
	"INTC":  "intel.com",
	"AMD":   "amd.com",
	"ORCL":  "oracle.com",
	"JPM":   "jpmorganchase.com",
	"V":     "visa.com",
	"MA":    "mastercard.com",
	"KO":    "coca-cola.com",
	"PEP":   "pepsico.com",
	"DIS":   "disney.com",
	"BRK-B": "berkshirehathaway.com",
	"ENEL":  "enel.com",
	"ENI":   "eni.com",
	"ISP":   "intesasanpaolo.com",
	"UCG":   "unicredit.it",
	"RACE":  "ferrari.com",
	"STLAM": "stellantis.com",
	"G":     "generali.com",
	"TIT":   "gruppotim.it",
	"SAP":   "sap.com",
	"ASML":  "asml.com",
}

var legalSuffixes = map[string]bool{
	"inc": true, "incorporated": true, "corp": true, "corporation": true,
	"co": true, "company": true, "ltd": true, "limited": true, "plc": true,
	"llc": true, "ag": true, "sa": true, "spa": true, "nv": true, "se": true,
	"group": true, "holding": true, "holdings": true, "the": true,
	"class": true, "adr": true,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// LogoResolver looks up logos on a CDN keyed by company domain.
type LogoResolver struct {
	baseURL    string
	httpClient *http.Client
}

func NewLogoResolver(baseURL string, timeout time.Duration) *LogoResolver {
	if baseURL == "" {
		baseURL = DefaultLogoBaseURL
	}
	return &LogoResolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *LogoResolver) Source() string {
	u, err := url.Parse(r.baseURL)
	if err != nil || u.Host == "" {
		return r.baseURL
	}
	return u.Host
}

// Resolve returns the logo URL when the CDN answers 200 for the guessed
// domain. Any other outcome yields nil.
func (r *LogoResolver) Resolve(ctx context.Context, symbol, name string) *string {
	domainName := DomainFor(symbol, name)
	if domainName == "" {
		return nil
	}

	logoURL := r.baseURL + "/" + domainName
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, logoURL, nil)
	if err != nil {
		return nil
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "logo lookup failed", "symbol", symbol, "domain", domainName, "error", err)
		return nil
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil
	}
	return &logoURL
}

// DomainFor maps a symbol to a company domain: first the curated table,
// then a guess built from the company name.
func DomainFor(symbol, name string) string {
	sym := domain.NormalizeSymbol(symbol)
	if d, ok := knownDomains[sym]; ok {
		return d
	}
	if base, _, found := strings.Cut(sym, "."); found {
		if d, ok := knownDomains[base]; ok {
			return d
		}
	}
	return GuessDomain(name)
}

// GuessDomain strips legal-entity suffixes from a company name and appends
// ".com". "Apple Inc." becomes "apple.com".
func GuessDomain(name string) string {
	cleaned := strings.ReplaceAll(strings.ToLower(name), ".", "")
	var kept []string
	for _, word := range nonAlnum.Split(cleaned, -1) {
		if word == "" || legalSuffixes[word] {
			continue
		}
		kept = append(kept, word)
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "") + ".com"
}
