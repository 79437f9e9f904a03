package domain

// Feature names produced by structural extraction.
const (
	FeatureNumNodes               = "num_nodes"
	FeatureNumEdges               = "num_edges"
	FeatureDensity                = "density"
	FeatureAvgClustering          = "avg_clustering"
	FeatureAvgDegree              = "avg_degree"
	FeatureStronglyConnected      = "strongly_connected_components"
	FeatureWeaklyConnected        = "weakly_connected_components"
	FeatureMaxInDegreeCentrality  = "max_in_degree_centrality"
	FeatureMaxOutDegreeCentrality = "max_out_degree_centrality"
)

// Feature names produced by topological extraction.
const (
	FeatureTotalPersistence = "total_persistence"
	FeatureNumTopoFeatures  = "num_topological_features"
	FeatureMaxPersistence   = "max_persistence"
	FeatureTopoComplexity   = "topological_complexity"
)

// DetectionResult is the full verdict bundle for one detection call.
type DetectionResult struct {
	TransactionID       string
	AnomalyScore        float64
	IsFraudulent        bool
	Reason              string
	GraphFeatures       FeatureSet
	TopologicalFeatures FeatureSet
	TopologyScore       float64
	StructureScore      float64

	// Degraded marks a detection whose persistence computation failed and
	// was absorbed into zeroed topological features.
	Degraded       bool
	DegradedReason string
}

// Stats summarizes the detector's current window and graph, rebuilt on demand.
type Stats struct {
	NumTransactions int
	NumAccounts     int
	NumEdges        int
	GraphDensity    float64
	HasReference    bool
}

// GraphEdge is one aggregated flow edge of a graph snapshot.
type GraphEdge struct {
	From   string
	To     string
	Weight float64
	Flow   float64
	Count  int
}

// GraphSnapshot is an exportable view of a built transaction graph.
type GraphSnapshot struct {
	Accounts []string
	Edges    []GraphEdge
}
