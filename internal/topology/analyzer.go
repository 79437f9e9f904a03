// Package topology derives topological-persistence signals from transaction
// graphs. A graph is embedded into a 2D point cloud with a seeded
// force-directed layout, the cloud is run through a Vietoris-Rips persistent
// homology computation, and the resulting diagrams are condensed into scalar
// complexity features and a reference-relative anomaly score.
package topology

import (
	"math"

	"github.com/adesai/topoguard/internal/domain"
	"github.com/adesai/topoguard/internal/txgraph"
)

const (
	// complexityScale normalizes absolute complexity into a score when no
	// reference is available. A heuristic, not calibrated.
	complexityScale = 10.0

	complexityDiffWeight  = 0.6
	persistenceDiffWeight = 0.4
)

// Config controls the persistence pipeline.
type Config struct {
	MaxDimension int
	Metric       string
	LayoutSeed   uint64
}

// DefaultConfig mirrors the detector defaults.
func DefaultConfig() Config {
	return Config{MaxDimension: 2, Metric: "euclidean", LayoutSeed: 42}
}

// Analyzer computes topological features of transaction graphs.
type Analyzer struct {
	maxDimension int
	dist         DistanceFunc
	layoutSeed   uint64
}

// NewAnalyzer builds an Analyzer. Unknown metrics fall back to euclidean.
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.MaxDimension < 0 {
		cfg.MaxDimension = 0
	}
	if cfg.LayoutSeed == 0 {
		cfg.LayoutSeed = DefaultConfig().LayoutSeed
	}
	return &Analyzer{
		maxDimension: cfg.MaxDimension,
		dist:         distanceByName(cfg.Metric),
		layoutSeed:   cfg.LayoutSeed,
	}
}

// Features computes the four-key topological feature set of the graph and
// returns the persistence summary it was derived from so callers can observe
// degraded computations. Zero-node graphs short-circuit to the all-zero set.
func (a *Analyzer) Features(g *txgraph.Graph) (domain.FeatureSet, Summary) {
	if g.NumNodes() == 0 {
		return domain.FeatureSet{
			domain.FeatureTotalPersistence: 0,
			domain.FeatureNumTopoFeatures:  0,
			domain.FeatureMaxPersistence:   0,
			domain.FeatureTopoComplexity:   0,
		}, Summary{}
	}

	summary := a.Persistence(a.PointCloud(g))

	complexity := summary.TotalPersistence / math.Max(float64(summary.NumFeatures), 1)
	return domain.FeatureSet{
		domain.FeatureTotalPersistence: summary.TotalPersistence,
		domain.FeatureNumTopoFeatures:  float64(summary.NumFeatures),
		domain.FeatureMaxPersistence:   summary.MaxPersistence,
		domain.FeatureTopoComplexity:   complexity,
	}, summary
}

// AnomalyScore computes the topology anomaly score of the graph. With no
// reference the absolute complexity is scaled; with a reference the score
// blends normalized complexity and persistence deviations.
func (a *Analyzer) AnomalyScore(g *txgraph.Graph, reference domain.FeatureSet) float64 {
	current, _ := a.Features(g)
	if reference == nil {
		return math.Min(current[domain.FeatureTopoComplexity]/complexityScale, 1.0)
	}
	return a.ScoreAgainstReference(current, reference)
}

// ScoreAgainstReference compares already-computed topological features to a
// reference set. Each deviation is normalized by the larger of the current
// and reference values, floored at 1.0, then blended and capped at 1.0.
func (a *Analyzer) ScoreAgainstReference(current, reference domain.FeatureSet) float64 {
	complexityDiff := math.Abs(current[domain.FeatureTopoComplexity] - reference[domain.FeatureTopoComplexity])
	persistenceDiff := math.Abs(current[domain.FeatureTotalPersistence] - reference[domain.FeatureTotalPersistence])

	complexityDenom := math.Max(math.Max(current[domain.FeatureTopoComplexity], reference[domain.FeatureTopoComplexity]), 1.0)
	persistenceDenom := math.Max(math.Max(current[domain.FeatureTotalPersistence], reference[domain.FeatureTotalPersistence]), 1.0)

	score := complexityDiffWeight*(complexityDiff/complexityDenom) +
		persistenceDiffWeight*(persistenceDiff/persistenceDenom)
	return math.Min(score, 1.0)
}

// ScoreAbsolute scales raw topological complexity into [0,1] without a
// reference.
func ScoreAbsolute(features domain.FeatureSet) float64 {
	return math.Min(features[domain.FeatureTopoComplexity]/complexityScale, 1.0)
}
