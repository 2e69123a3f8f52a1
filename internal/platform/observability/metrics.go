package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archiver_api_requests_total",
		Help: "Slack Web API calls by method and outcome",
	}, []string{"method", "outcome"})

	APIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archiver_api_retries_total",
		Help: "Slack Web API calls retried after throttling",
	}, []string{"method"})

	ChannelsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archiver_channels_processed_total",
		Help: "Channels handled per capture run by status",
	}, []string{"status"})

	FilesMaterialized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archiver_files_materialized_total",
		Help: "Attachment and avatar materializations by outcome",
	}, []string{"kind", "outcome"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "archiver_run_duration_seconds",
		Help:    "Duration of a full capture run",
		Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600, 7200},
	})

	DocumentsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archiver_documents_published_total",
		Help: "Channel documents published by status",
	}, []string{"status"})
)
