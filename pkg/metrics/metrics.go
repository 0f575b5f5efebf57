// Package metrics contains the Prometheus metrics of the denoiser.
//
// All the methods are safe to call on a nil *Metrics, which is the way
// to disable the metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xaionaro-go/nocle/pkg/filters"
)

const namespace = "nocle"

type Metrics struct {
	FilesProcessed prometheus.Counter
	FilesFailed    prometheus.Counter
	SamplesOut     prometheus.Counter

	ChunksPredicted  *prometheus.CounterVec
	InferenceErrors  *prometheus.CounterVec
	InferenceLatency *prometheus.HistogramVec

	FilterStepLatency *prometheus.HistogramVec
	FilterStepErrors  *prometheus.CounterVec
}

// New creates the metrics and registers them in reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FilesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Total number of successfully denoised files",
		}),
		FilesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Total number of files the pipeline failed on",
		}),
		SamplesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_written_total",
			Help:      "Total number of denoised samples written",
		}),
		ChunksPredicted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_predicted_total",
			Help:      "Total number of chunks passed through the model",
		}, []string{"backend"}),
		InferenceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_errors_total",
			Help:      "Total number of failed chunk predictions",
		}, []string{"backend"}),
		InferenceLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent on predicting a single chunk",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"backend"}),
		FilterStepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "filter_step_duration_seconds",
			Help:      "Time spent on a single post-processing step",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"step"}),
		FilterStepErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_step_errors_total",
			Help:      "Total number of failed post-processing steps",
		}, []string{"step"}),
	}
}

func (m *Metrics) ObserveFile(samples int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.FilesFailed.Inc()
		return
	}
	m.FilesProcessed.Inc()
	m.SamplesOut.Add(float64(samples))
}

func (m *Metrics) ObserveChunk(backend string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.InferenceErrors.WithLabelValues(backend).Inc()
		return
	}
	m.ChunksPredicted.WithLabelValues(backend).Inc()
	m.InferenceLatency.WithLabelValues(backend).Observe(duration.Seconds())
}

func (m *Metrics) ObserveFilterStep(step filters.StepKind, duration time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.FilterStepErrors.WithLabelValues(step.String()).Inc()
		return
	}
	m.FilterStepLatency.WithLabelValues(step.String()).Observe(duration.Seconds())
}

// StepObserver returns the filters.StepObserver feeding the metrics.
func (m *Metrics) StepObserver() filters.StepObserver {
	return m.ObserveFilterStep
}
