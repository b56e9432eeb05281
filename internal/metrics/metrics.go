package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "modlog"

// Metrics holds the Prometheus collectors shared by the bot and dashboard.
type Metrics struct {
	TranscriptsTotal   *prometheus.CounterVec
	TranscriptMessages prometheus.Histogram
	TranscriptSeconds  prometheus.Histogram
	NotificationsTotal *prometheus.CounterVec
	LogEntriesTotal    *prometheus.CounterVec
	CacheWritesTotal   *prometheus.CounterVec
	PrunedRowsTotal    *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
}

// New registers every collector on reg. Tests pass a fresh
// prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TranscriptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transcripts",
			Name:      "total",
			Help:      "Bulk deletion transcripts by result.",
		}, []string{"result"}), // result: stored, store_error, encode_error, invalid
		TranscriptMessages: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transcripts",
			Name:      "messages",
			Help:      "Messages per bulk deletion transcript.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		}),
		TranscriptSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transcripts",
			Name:      "assemble_seconds",
			Help:      "Time spent assembling a transcript document.",
			Buckets:   prometheus.DefBuckets,
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "notifications_total",
			Help:      "Notification embeds sent by event and result.",
		}, []string{"event", "result"}), // result: sent, error, no_channel
		LogEntriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "entries_total",
			Help:      "Log history entries recorded by event.",
		}, []string{"event"}),
		CacheWritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "message_cache",
			Name:      "writes_total",
			Help:      "Message cache writes by operation and result.",
		}, []string{"op", "result"}),
		PrunedRowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "janitor",
			Name:      "pruned_rows_total",
			Help:      "Rows removed by the retention janitor per table.",
		}, []string{"table"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "requests_total",
			Help:      "Dashboard API requests by route and status class.",
		}, []string{"route", "code"}),
	}
}
