package topology

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/adesai/topoguard/internal/txgraph"
)

// Force-directed layout parameters. The seed comes from the analyzer so
// repeated embeddings of the same graph produce identical clouds.
const (
	layoutUpdates   = 100
	layoutRepulsion = 1.0
	layoutRate      = 0.05
	layoutTheta     = 0.1
)

// PointCloud embeds the graph into 2D, one point per account in the graph's
// fixed node ordering. An empty graph yields an empty cloud. If the layout
// produces non-finite coordinates the embedding falls back to per-node
// (total degree, in-degree) positions.
func (a *Analyzer) PointCloud(g *txgraph.Graph) []r2.Vec {
	if g.NumNodes() == 0 {
		return nil
	}

	eades := layout.EadesR2{
		Updates:   layoutUpdates,
		Repulsion: layoutRepulsion,
		Rate:      layoutRate,
		Theta:     layoutTheta,
		Src:       rand.NewSource(a.layoutSeed),
	}
	optimizer := layout.NewOptimizerR2(g.Directed(), eades.Update)
	for optimizer.Update() {
	}

	points := make([]r2.Vec, g.NumNodes())
	for i, acct := range g.Accounts() {
		id, _ := g.NodeID(acct)
		points[i] = optimizer.Coord2(id)
	}
	if cloudFinite(points) {
		return points
	}
	return degreeFallback(g)
}

// degreeFallback assigns deterministic coordinates from node degrees when
// the layout cannot place a node.
func degreeFallback(g *txgraph.Graph) []r2.Vec {
	points := make([]r2.Vec, g.NumNodes())
	for i, acct := range g.Accounts() {
		points[i] = r2.Vec{
			X: float64(g.Degree(acct)),
			Y: float64(g.InDegree(acct)),
		}
	}
	return points
}

func cloudFinite(points []r2.Vec) bool {
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}
