package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_poll_cycles_total",
		Help: "Total number of poll cycles, labelled by input and outcome.",
	}, []string{"input", "status"})

	EventsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_events_fetched_total",
		Help: "Total number of raw events returned by the audit endpoint.",
	}, []string{"input"})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_events_emitted_total",
		Help: "Total number of normalized events delivered to sinks.",
	}, []string{"input"})

	EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_events_skipped_total",
		Help: "Total number of fetched events at or before the watermark.",
	}, []string{"input"})

	EventsFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_events_filtered_total",
		Help: "Total number of events dropped by the input filter expression.",
	}, []string{"input"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_token_refreshes_total",
		Help: "Total number of bearer token refresh attempts, labelled by status.",
	}, []string{"input", "status"})

	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_sink_errors_total",
		Help: "Total number of per-event sink delivery failures.",
	}, []string{"input", "sink"})

	CheckpointSaveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_checkpoint_save_errors_total",
		Help: "Total number of failed checkpoint writes (durability-risk events).",
	}, []string{"input"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auditflow_fetch_duration_seconds",
		Help:    "Latency of one audit page fetch.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"input"})

	Watermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "auditflow_watermark_timestamp_seconds",
		Help: "Current in-memory watermark as a unix timestamp.",
	}, []string{"input"})
)
