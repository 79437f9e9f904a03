package txgraph

import (
	"gonum.org/v1/gonum/graph/topo"

	"github.com/adesai/topoguard/internal/domain"
)

// StructuralFeatures extracts the structural feature set of the graph.
// A zero-node graph yields the fixed all-zero set.
func StructuralFeatures(g *Graph) domain.FeatureSet {
	n := g.NumNodes()
	if n == 0 {
		return domain.FeatureSet{
			domain.FeatureNumNodes:               0,
			domain.FeatureNumEdges:               0,
			domain.FeatureDensity:                0,
			domain.FeatureAvgClustering:          0,
			domain.FeatureAvgDegree:              0,
			domain.FeatureStronglyConnected:      0,
			domain.FeatureWeaklyConnected:        0,
			domain.FeatureMaxInDegreeCentrality:  0,
			domain.FeatureMaxOutDegreeCentrality: 0,
		}
	}

	density := 0.0
	if n > 1 {
		density = float64(g.NumEdges()) / float64(n*(n-1))
	}

	var degreeSum int
	for _, acct := range g.Accounts() {
		degreeSum += g.Degree(acct)
	}

	maxIn, maxOut := degreeCentralityMaxima(g)

	return domain.FeatureSet{
		domain.FeatureNumNodes:               float64(n),
		domain.FeatureNumEdges:               float64(g.NumEdges()),
		domain.FeatureDensity:                density,
		domain.FeatureAvgClustering:          averageClustering(g),
		domain.FeatureAvgDegree:              float64(degreeSum) / float64(n),
		domain.FeatureStronglyConnected:      float64(len(topo.TarjanSCC(g.Directed()))),
		domain.FeatureWeaklyConnected:        float64(len(topo.ConnectedComponents(g.Undirected()))),
		domain.FeatureMaxInDegreeCentrality:  maxIn,
		domain.FeatureMaxOutDegreeCentrality: maxOut,
	}
}

// degreeCentralityMaxima returns the maximum in- and out-degree centrality,
// each normalized by n-1. Single-node graphs have no meaningful centrality
// and default to zero.
func degreeCentralityMaxima(g *Graph) (maxIn, maxOut float64) {
	n := g.NumNodes()
	if n < 2 {
		return 0, 0
	}
	scale := 1.0 / float64(n-1)
	for _, acct := range g.Accounts() {
		if c := float64(g.InDegree(acct)) * scale; c > maxIn {
			maxIn = c
		}
		if c := float64(g.OutDegree(acct)) * scale; c > maxOut {
			maxOut = c
		}
	}
	return maxIn, maxOut
}

// averageClustering computes the mean local clustering coefficient over the
// undirected projection. Self-edges are ignored.
func averageClustering(g *Graph) float64 {
	accounts := g.Accounts()
	if len(accounts) == 0 {
		return 0
	}
	var sum float64
	for _, acct := range accounts {
		neighborSet := g.undirectedNeighbors(acct)
		k := len(neighborSet)
		if k < 2 {
			continue
		}
		neighbors := make([]string, 0, k)
		for nb := range neighborSet {
			neighbors = append(neighbors, nb)
		}
		var links int
		for i := 0; i < len(neighbors); i++ {
			for j := i + 1; j < len(neighbors); j++ {
				if g.hasUndirectedEdge(neighbors[i], neighbors[j]) {
					links++
				}
			}
		}
		sum += 2 * float64(links) / float64(k*(k-1))
	}
	return sum / float64(len(accounts))
}
