package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "editor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	ArchiveExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_archive_exports_total",
			Help: "Project archive exports by outcome",
		},
		[]string{"outcome"},
	)
	ArchiveEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "editor_archive_entries_total",
			Help: "Files written into project archives",
		},
	)
	FileReplaces = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_file_replaces_total",
			Help: "Bulk file replace transactions by outcome",
		},
		[]string{"outcome"},
	)
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_events_published_total",
			Help: "Domain events handed to the event backend by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
