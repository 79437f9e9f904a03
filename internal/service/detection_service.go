package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/adesai/topoguard/internal/detector"
	"github.com/adesai/topoguard/internal/domain"
	"github.com/adesai/topoguard/internal/metrics"
)

// AnomalyDetector is the detection contract required by the service.
type AnomalyDetector interface {
	Detect(tx *domain.Transaction) domain.DetectionResult
	DetectBatch(txs []domain.Transaction) []domain.DetectionResult
	Stats() domain.Stats
	GraphSnapshot() domain.GraphSnapshot
}

// SnapshotSink receives graph snapshots after detections.
type SnapshotSink interface {
	Export(ctx context.Context, snap domain.GraphSnapshot) error
}

// DetectionService fronts the detector for the transport layer, recording
// metrics and mirroring graph snapshots to an optional sink. Export failures
// are logged and never surfaced to callers.
type DetectionService struct {
	detector AnomalyDetector
	sink     SnapshotSink
	logger   *slog.Logger
}

// NewDetectionService constructs a DetectionService. sink may be nil.
func NewDetectionService(det AnomalyDetector, sink SnapshotSink, logger *slog.Logger) *DetectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectionService{
		detector: det,
		sink:     sink,
		logger:   logger,
	}
}

// Detect scores a single transaction.
func (s *DetectionService) Detect(ctx context.Context, tx domain.Transaction) domain.DetectionResult {
	start := time.Now()
	result := s.detector.Detect(&tx)
	s.record(result, time.Since(start))
	s.exportSnapshot(ctx)
	return result
}

// DetectBatch scores an ordered batch, threading detector state across items.
func (s *DetectionService) DetectBatch(ctx context.Context, txs []domain.Transaction) []domain.DetectionResult {
	start := time.Now()
	results := s.detector.DetectBatch(txs)
	elapsed := time.Since(start)
	perItem := elapsed
	if len(results) > 0 {
		perItem = elapsed / time.Duration(len(results))
	}
	for _, result := range results {
		s.record(result, perItem)
	}
	s.exportSnapshot(ctx)
	return results
}

// Stats reports the detector's current window statistics.
func (s *DetectionService) Stats(context.Context) domain.Stats {
	return s.detector.Stats()
}

func (s *DetectionService) record(result domain.DetectionResult, elapsed time.Duration) {
	verdict := "normal"
	switch {
	case result.Reason == detector.ReasonInsufficientData:
		verdict = "insufficient_data"
	case result.IsFraudulent:
		verdict = "fraudulent"
	}
	metrics.RecordDetection(elapsed, verdict, result.AnomalyScore)
	if result.Degraded {
		metrics.PersistenceDegraded.Inc()
	}
}

func (s *DetectionService) exportSnapshot(ctx context.Context) {
	if s.sink == nil {
		return
	}
	err := s.sink.Export(ctx, s.detector.GraphSnapshot())
	metrics.RecordSnapshotExport(err)
	if err != nil {
		s.logger.Warn("graph snapshot export failed", "error", err)
	}
}
