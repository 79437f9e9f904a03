// Package detector blends structural and topological signals from the
// rolling transaction graph into a single anomaly verdict. Each Detector is
// an independent session owning its transaction window and adaptive
// reference state.
package detector

import (
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/adesai/topoguard/internal/domain"
	"github.com/adesai/topoguard/internal/topology"
	"github.com/adesai/topoguard/internal/txgraph"
)

// Structural rule thresholds and their score increments. The increments sum
// to 1.0 so the structure score is implicitly capped.
const (
	denseNetworkThreshold   = 0.5
	denseNetworkIncrement   = 0.3
	singleSCCMinNodes       = 20
	singleSCCIncrement      = 0.2
	inCentralityThreshold   = 0.8
	inCentralityIncrement   = 0.3
	outCentralityThreshold  = 0.8
	outCentralityIncrement  = 0.2
	abnormalComplexityLimit = 5.0

	// minGraphNodes is the smallest graph worth analyzing; anything below
	// short-circuits to the insufficient-data result.
	minGraphNodes = 3
)

// ReasonInsufficientData is returned when the graph is too small to score.
const ReasonInsufficientData = "Insufficient transaction data"

// Options carries every tunable of the scoring pipeline as a named value.
type Options struct {
	TimeWindowHours   int
	AnomalyThreshold  float64
	PersistenceWeight float64
	StructureWeight   float64
	AdaptiveLearning  bool
	LearningRate      float64
	Topology          topology.Config
}

// DefaultOptions returns the heuristic defaults.
func DefaultOptions() Options {
	return Options{
		TimeWindowHours:   24,
		AnomalyThreshold:  0.7,
		PersistenceWeight: 0.6,
		StructureWeight:   0.4,
		AdaptiveLearning:  true,
		LearningRate:      0.01,
		Topology:          topology.DefaultConfig(),
	}
}

// Detector is the detection session. All methods serialize on an internal
// lock: every call both reads and writes the window and reference state.
type Detector struct {
	mu       sync.Mutex
	opts     Options
	builder  *txgraph.Builder
	analyzer *topology.Analyzer
	logger   *slog.Logger

	// reference is the exponentially-smoothed feature set of prior
	// non-fraudulent windows. Nil until the first clean detection.
	reference domain.FeatureSet
}

// New constructs a Detector.
func New(opts Options, logger *slog.Logger) *Detector {
	if opts.TimeWindowHours <= 0 {
		opts.TimeWindowHours = DefaultOptions().TimeWindowHours
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		opts:     opts,
		builder:  txgraph.NewBuilder(opts.TimeWindowHours),
		analyzer: topology.NewAnalyzer(opts.Topology),
		logger:   logger,
	}
}

// Add inserts a transaction into the window without running detection.
func (d *Detector) Add(tx domain.Transaction) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.builder.Add(tx)
}

// Detect optionally ingests the transaction, rebuilds the graph from the
// current window, and scores it. A nil transaction re-scores the existing
// window.
func (d *Detector) Detect(tx *domain.Transaction) domain.DetectionResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detectLocked(tx)
}

// DetectBatch scores each transaction in order, threading window and
// reference state across items; earlier items influence later ones.
func (d *Detector) DetectBatch(txs []domain.Transaction) []domain.DetectionResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	results := make([]domain.DetectionResult, 0, len(txs))
	for i := range txs {
		result := d.detectLocked(&txs[i])
		result.TransactionID = txs[i].ID
		results = append(results, result)
	}
	return results
}

func (d *Detector) detectLocked(tx *domain.Transaction) domain.DetectionResult {
	if tx != nil {
		d.builder.Add(*tx)
	}

	graph := d.builder.Build(time.Time{})
	if graph.NumNodes() < minGraphNodes {
		return domain.DetectionResult{
			AnomalyScore:        0,
			IsFraudulent:        false,
			Reason:              ReasonInsufficientData,
			GraphFeatures:       domain.FeatureSet{},
			TopologicalFeatures: domain.FeatureSet{},
		}
	}

	graphFeatures := txgraph.StructuralFeatures(graph)
	topoFeatures, persistence := d.analyzer.Features(graph)

	var topologyScore float64
	if d.reference != nil && d.opts.AdaptiveLearning {
		topologyScore = d.analyzer.ScoreAgainstReference(topoFeatures, d.reference)
	} else {
		topologyScore = topology.ScoreAbsolute(topoFeatures)
	}

	structureScore := structureScore(graphFeatures)

	anomalyScore := math.Min(
		d.opts.PersistenceWeight*topologyScore+d.opts.StructureWeight*structureScore,
		1.0,
	)
	isFraudulent := anomalyScore >= d.opts.AnomalyThreshold

	if d.opts.AdaptiveLearning && !isFraudulent {
		d.updateReference(topoFeatures, graphFeatures)
	}

	result := domain.DetectionResult{
		AnomalyScore:        anomalyScore,
		IsFraudulent:        isFraudulent,
		Reason:              reason(anomalyScore, graphFeatures, topoFeatures),
		GraphFeatures:       graphFeatures,
		TopologicalFeatures: topoFeatures,
		TopologyScore:       topologyScore,
		StructureScore:      structureScore,
		Degraded:            persistence.Degraded,
		DegradedReason:      persistence.Reason,
	}
	if tx != nil {
		result.TransactionID = tx.ID
	}
	if persistence.Degraded {
		d.logger.Warn("persistence computation degraded", "reason", persistence.Reason)
	}

	if isFraudulent {
		d.logger.Warn("fraud detected",
			"score", anomalyScore,
			"reason", result.Reason,
		)
	}
	return result
}

// Stats reports read-only counts derived by rebuilding the current graph.
func (d *Detector) Stats() domain.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	graph := d.builder.Build(time.Time{})
	features := txgraph.StructuralFeatures(graph)
	return domain.Stats{
		NumTransactions: d.builder.Len(),
		NumAccounts:     graph.NumNodes(),
		NumEdges:        graph.NumEdges(),
		GraphDensity:    features[domain.FeatureDensity],
		HasReference:    d.reference != nil,
	}
}

// GraphSnapshot rebuilds the current graph and returns its exportable view.
func (d *Detector) GraphSnapshot() domain.GraphSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.builder.Build(time.Time{}).Snapshot()
}

// Reference returns a copy of the adaptive reference feature set, or nil
// when no clean detection has occurred yet.
func (d *Detector) Reference() domain.FeatureSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reference.Clone()
}

// structureScore applies the additive rule checks against structural
// features. Each rule contributes independently; ordering is irrelevant.
func structureScore(f domain.FeatureSet) float64 {
	var score float64
	if f[domain.FeatureDensity] > denseNetworkThreshold {
		score += denseNetworkIncrement
	}
	if f[domain.FeatureStronglyConnected] == 1 && f[domain.FeatureNumNodes] > singleSCCMinNodes {
		score += singleSCCIncrement
	}
	if f[domain.FeatureMaxInDegreeCentrality] > inCentralityThreshold {
		score += inCentralityIncrement
	}
	if f[domain.FeatureMaxOutDegreeCentrality] > outCentralityThreshold {
		score += outCentralityIncrement
	}
	return score
}

// updateReference folds the combined feature sets into the reference via a
// per-key exponential moving average. The first clean detection seeds the
// reference with a direct copy.
func (d *Detector) updateReference(topoFeatures, graphFeatures domain.FeatureSet) {
	if d.reference == nil {
		d.reference = make(domain.FeatureSet, len(topoFeatures)+len(graphFeatures))
		for k, v := range topoFeatures {
			d.reference[k] = v
		}
		for k, v := range graphFeatures {
			d.reference[k] = v
		}
		return
	}

	alpha := d.opts.LearningRate
	for _, features := range []domain.FeatureSet{topoFeatures, graphFeatures} {
		for k, v := range features {
			if old, ok := d.reference[k]; ok {
				d.reference[k] = (1-alpha)*old + alpha*v
			} else {
				d.reference[k] = v
			}
		}
	}
}

func reason(score float64, graphFeatures, topoFeatures domain.FeatureSet) string {
	var reasons []string

	if score >= 0.8 {
		reasons = append(reasons, "High topological complexity deviation")
	} else if score >= 0.6 {
		reasons = append(reasons, "Moderate structural anomaly detected")
	}
	if graphFeatures[domain.FeatureDensity] > denseNetworkThreshold {
		reasons = append(reasons, "Unusually dense transaction network")
	}
	if graphFeatures[domain.FeatureMaxInDegreeCentrality] > inCentralityThreshold {
		reasons = append(reasons, "Single account receiving majority of transactions")
	}
	if topoFeatures[domain.FeatureTopoComplexity] > abnormalComplexityLimit {
		reasons = append(reasons, "Abnormal topological structure")
	}

	if len(reasons) == 0 {
		return "Normal transaction pattern"
	}
	return strings.Join(reasons, "; ")
}
