package application

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) *HealthReport
}

// HealthMonitor checks providers on an interval and keeps the latest report.
type HealthMonitor struct {
	checker  HealthChecker
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	latest *HealthReport
}

func NewHealthMonitor(checker HealthChecker, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		checker:  checker,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs one check immediately, then one per interval until Stop or
// ctx cancellation. It blocks.
func (m *HealthMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("Health monitor started", "interval", m.interval)
	m.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			m.refresh(ctx)
		case <-m.stopChan:
			slog.Info("Health monitor stopped")
			return
		case <-ctx.Done():
			slog.Info("Health monitor stopped due to context cancellation")
			return
		}
	}
}

func (m *HealthMonitor) refresh(ctx context.Context) {
	report := m.checker.HealthCheck(ctx)
	if report == nil {
		return
	}

	m.mu.Lock()
	m.latest = report
	m.mu.Unlock()

	failed := make([]string, 0)
	for _, p := range report.Providers {
		if p.Status != ProviderOK {
			failed = append(failed, string(p.Source))
		}
	}
	if report.Status == HealthOK {
		slog.Info("Provider health check passed", "providers", len(report.Providers))
	} else {
		slog.Warn("Provider health check reported failures", "status", report.Status, "failed", failed)
	}
}

// Latest returns the most recent report, or nil before the first check.
func (m *HealthMonitor) Latest() *HealthReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}
