package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

type PipelineMetrics struct {
	registry *prometheus.Registry

	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	chunksTotal   prometheus.Counter
	decisionTotal *prometheus.CounterVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "rag",
			Subsystem:   "pipeline",
			Name:        "stage_total",
			Help:        "Total pipeline stage executions by stage and status.",
			ConstLabels: constLabels,
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "rag",
			Subsystem:   "pipeline",
			Name:        "stage_duration_seconds",
			Help:        "Pipeline stage duration in seconds by stage and status.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		},
		[]string{"stage", "status"},
	)
	chunksTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "rag",
			Subsystem:   "ingest",
			Name:        "chunks_total",
			Help:        "Chunks produced by ingestion.",
			ConstLabels: constLabels,
		},
	)
	decisionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "rag",
			Subsystem:   "query",
			Name:        "decision_total",
			Help:        "Relevance decisions by verdict and selected context origin.",
			ConstLabels: constLabels,
		},
		[]string{"decision", "origin"},
	)

	registry.MustRegister(stageTotal, stageDuration, chunksTotal, decisionTotal)

	return &PipelineMetrics{
		registry:      registry,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		chunksTotal:   chunksTotal,
		decisionTotal: decisionTotal,
	}
}

func (m *PipelineMetrics) ObserveStage(stage string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.stageTotal.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage, status).Observe(seconds)
}

func (m *PipelineMetrics) AddChunks(count int) {
	if count <= 0 {
		return
	}
	m.chunksTotal.Add(float64(count))
}

func (m *PipelineMetrics) ObserveDecision(decision domain.Decision, origin domain.ContextOrigin) {
	m.decisionTotal.WithLabelValues(string(decision), string(origin)).Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *PipelineMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
