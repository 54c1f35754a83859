package application

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmanzanog/market-aggregator/internal/domain"
	"github.com/jmanzanog/market-aggregator/internal/infrastructure/marketdata"
)

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthDown     = "down"

	ProviderOK   = "OK"
	ProviderFail = "FAIL"
)

type ProviderHealth struct {
	Source    domain.SourceID   `json:"source"`
	Status    string            `json:"status"`
	LatencyMS int64             `json:"latency_ms"`
	Error     string            `json:"error,omitempty"`
	Usage     *marketdata.Usage `json:"usage,omitempty"`
}

type HealthReport struct {
	Status    string           `json:"status"`
	Providers []ProviderHealth `json:"providers"`
	CheckedAt time.Time        `json:"checked_at"`
}

// Healthy reports whether at least one provider answered.
func (r *HealthReport) Healthy() bool {
	return r != nil && r.Status != HealthDown
}

// HealthCheck queries every provider with a quote for the health symbol.
// Checks run concurrently and never short-circuit each other.
func (a *Aggregator) HealthCheck(ctx context.Context) *HealthReport {
	checks := make([]ProviderHealth, len(a.providers))

	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			started := a.now()
			// Query the raw client so a cached quote cannot mask an outage.
			target := marketdata.Unwrap(p)
			_, err := call(ctx, a.timeouts.Quote, func(ctx context.Context) (*domain.Quote, error) {
				q, err := target.GetQuote(ctx, a.healthSymbol)
				if err == nil && q == nil {
					err = errNilQuote
				}
				return q, err
			})

			check := ProviderHealth{
				Source:    p.ID(),
				Status:    ProviderOK,
				LatencyMS: a.now().Sub(started).Milliseconds(),
			}
			if err != nil {
				check.Status = ProviderFail
				check.Error = err.Error()
			}
			if reporter, ok := p.(marketdata.UsageReporter); ok {
				usage := reporter.Usage()
				check.Usage = &usage
			}
			checks[i] = check
			return nil
		})
	}
	_ = g.Wait()

	healthy := 0
	for _, c := range checks {
		if c.Status == ProviderOK {
			healthy++
		}
	}

	status := HealthDegraded
	switch healthy {
	case len(checks):
		status = HealthOK
	case 0:
		status = HealthDown
	}

	return &HealthReport{Status: status, Providers: checks, CheckedAt: a.now().UTC()}
}
