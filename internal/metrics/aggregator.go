package metrics

import (
	"context"
	"log/slog"
	"time"
)

// Sampler reports point-in-time pipeline state the aggregator copies into
// gauges.
type Sampler interface {
	ActiveSessions() int
	ModelsReady() bool
}

// Aggregator periodically samples pipeline state into gauges
type Aggregator struct {
	metrics  *PipelineMetrics
	sampler  Sampler
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}
}

// NewAggregator creates a new metrics aggregator worker
func NewAggregator(m *PipelineMetrics, sampler Sampler, logger *slog.Logger, interval time.Duration) *Aggregator {
	if interval == 0 {
		interval = 15 * time.Second
	}

	return &Aggregator{
		metrics:  m,
		sampler:  sampler,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the aggregation worker; it blocks until ctx is done or Stop is
// called.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("metrics aggregator started", "interval", a.interval)
	a.aggregate()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("metrics aggregator stopped")
			return
		case <-a.done:
			a.logger.Info("metrics aggregator stopped")
			return
		case <-ticker.C:
			a.aggregate()
		}
	}
}

// Stop gracefully shuts down the aggregator
func (a *Aggregator) Stop() {
	close(a.done)
}

func (a *Aggregator) aggregate() {
	sessions := a.sampler.ActiveSessions()
	ready := a.sampler.ModelsReady()

	a.metrics.SetSessionsActive(sessions)
	a.metrics.SetModelsReady(ready)
	a.logger.Debug("sampled pipeline state", "sessions", sessions, "models_ready", ready)
}
