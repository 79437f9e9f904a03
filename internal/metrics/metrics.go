package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DetectionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topoguard_detections_total",
			Help: "Total number of detection calls",
		},
		[]string{"verdict"}, // fraudulent, normal, insufficient_data
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "topoguard_detection_duration_seconds",
			Help:    "Duration of a single detection call",
			Buckets: prometheus.DefBuckets,
		},
	)

	AnomalyScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "topoguard_anomaly_scores",
			Help:    "Distribution of blended anomaly scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	PersistenceDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "topoguard_persistence_degraded_total",
			Help: "Detections whose persistence computation degraded to a zeroed result",
		},
	)

	SnapshotExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topoguard_snapshot_exports_total",
			Help: "Graph snapshot exports to the graph store",
		},
		[]string{"status"}, // success, error
	)
)

// RecordDetection records the outcome and latency of one detection call.
func RecordDetection(duration time.Duration, verdict string, score float64) {
	DetectionsProcessed.WithLabelValues(verdict).Inc()
	DetectionDuration.Observe(duration.Seconds())
	AnomalyScores.Observe(score)
}

// RecordSnapshotExport records a snapshot export attempt.
func RecordSnapshotExport(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SnapshotExports.WithLabelValues(status).Inc()
}
