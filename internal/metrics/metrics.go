// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cardforge_pipeline_runs_total",
		Help: "Total pipeline runs by outcome",
	}, []string{"outcome"})
	StageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cardforge_stage_failures_total",
		Help: "Total stage failures by stage name",
	}, []string{"stage"})
	PipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cardforge_pipeline_duration_seconds",
		Help:    "Pipeline run duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cardforge_api_retries_total",
		Help: "Total remote API retry attempts",
	}, []string{"endpoint"})
	GenerationAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardforge_generation_attempts_total",
		Help: "Total generation backend attempts including retries",
	})
)

func init() {
	prometheus.MustRegister(PipelineRuns, StageFailures, PipelineDuration, APIRetries, GenerationAttempts)
}

// ObservePipelineDuration records a run duration.
func ObservePipelineDuration(start time.Time) {
	PipelineDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }
