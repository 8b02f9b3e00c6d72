package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cin7_pipeline_pages_total",
		Help: "Non-empty pages processed per account",
	}, []string{"account"})

	rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cin7_pipeline_rows_total",
		Help: "Output rows produced per account",
	}, []string{"account"})

	processingErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cin7_processing_errors_total",
		Help: "Records that failed expansion per account",
	}, []string{"account"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cin7_pipeline_runs_total",
		Help: "Finished account pipelines by terminal status",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cin7_pipeline_duration_seconds",
		Help:    "Wall time of one account pipeline",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})
)
