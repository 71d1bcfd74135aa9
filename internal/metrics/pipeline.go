// Package metrics provides the Prometheus collectors of the analysis pipeline.
package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeSuccess labels analyses that produced a result. Failures are
// labelled with their lower-cased failure kind.
const OutcomeSuccess = "success"

// PipelineMetrics contains all Prometheus metrics of the analysis pipeline.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	Analyses       *prometheus.CounterVec
	Duration       prometheus.Histogram
	Score          prometheus.Histogram
	StaleResults   prometheus.Counter
	CameraStreams  prometheus.Gauge
	SessionsActive prometheus.Gauge
	ModelsReady    prometheus.Gauge
}

// NewPipelineMetrics creates the collectors and registers them on registry.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.Analyses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phiface_analyses_total",
		Help: "Total number of analysis attempts by outcome.",
	}, []string{"outcome"})

	m.Duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "phiface_analysis_duration_seconds",
		Help:    "Duration of analysis attempts in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.Score = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "phiface_score",
		Help:    "Distribution of overall proportion scores.",
		Buckets: []float64{-0.5, 0, 0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
	})

	m.StaleResults = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "phiface_detection_stale_results_total",
		Help: "Detection results discarded because their session moved on.",
	})

	m.CameraStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "phiface_camera_streams_active",
		Help: "Camera streams currently held open by sessions.",
	})

	m.SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "phiface_sessions_active",
		Help: "Analysis sessions currently held in the store.",
	})

	m.ModelsReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "phiface_models_ready",
		Help: "1 when the detector models are loaded, 0 otherwise.",
	})
}

// RecordAnalysis counts one attempt with outcome and its duration.
func (m *PipelineMetrics) RecordAnalysis(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(strings.ToLower(outcome)).Inc()
	m.Duration.Observe(d.Seconds())
}

// ObserveScore records the overall score of a successful analysis.
func (m *PipelineMetrics) ObserveScore(score float64) {
	if m == nil {
		return
	}
	m.Score.Observe(score)
}

// IncrementStaleResults counts a detection result dropped by the generation guard.
func (m *PipelineMetrics) IncrementStaleResults() {
	if m == nil {
		return
	}
	m.StaleResults.Inc()
}

// CameraOpened and CameraReleased track live camera streams.
func (m *PipelineMetrics) CameraOpened() {
	if m == nil {
		return
	}
	m.CameraStreams.Inc()
}

func (m *PipelineMetrics) CameraReleased() {
	if m == nil {
		return
	}
	m.CameraStreams.Dec()
}

// SetSessionsActive updates the session gauge.
func (m *PipelineMetrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// SetModelsReady updates the model readiness gauge.
func (m *PipelineMetrics) SetModelsReady(ready bool) {
	if m == nil {
		return
	}
	v := 0.0
	if ready {
		v = 1
	}
	m.ModelsReady.Set(v)
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Analyses.Collect(ch)
	ch <- m.Duration
	ch <- m.Score
	ch <- m.StaleResults
	ch <- m.CameraStreams
	ch <- m.SessionsActive
	ch <- m.ModelsReady
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Analyses.Describe(ch)
	ch <- m.Duration.Desc()
	ch <- m.Score.Desc()
	ch <- m.StaleResults.Desc()
	ch <- m.CameraStreams.Desc()
	ch <- m.SessionsActive.Desc()
	ch <- m.ModelsReady.Desc()
}
