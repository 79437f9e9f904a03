package detector

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/adesai/topoguard/internal/domain"
)

var baseTime = time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tx(id, from, to string, amount float64) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Timestamp:   baseTime,
	}
}

func TestDetectInsufficientData(t *testing.T) {
	d := New(DefaultOptions(), quietLogger())

	// One transaction touches two accounts, below the three-node floor.
	first := tx("tx-1", "a", "b", 100)
	result := d.Detect(&first)

	if result.Reason != ReasonInsufficientData {
		t.Errorf("reason: expected %q, got %q", ReasonInsufficientData, result.Reason)
	}
	if result.AnomalyScore != 0 || result.IsFraudulent {
		t.Errorf("expected zero score and no verdict, got score=%g fraud=%v",
			result.AnomalyScore, result.IsFraudulent)
	}
	if len(result.GraphFeatures) != 0 || len(result.TopologicalFeatures) != 0 {
		t.Errorf("expected empty feature sets, got %v / %v",
			result.GraphFeatures, result.TopologicalFeatures)
	}
	if result.TransactionID != "tx-1" {
		t.Errorf("transaction id: expected tx-1, got %q", result.TransactionID)
	}
}

func TestDetectNilTransactionRescoresWindow(t *testing.T) {
	d := New(DefaultOptions(), quietLogger())
	d.Add(tx("tx-1", "a", "b", 100))
	d.Add(tx("tx-2", "b", "c", 100))
	d.Add(tx("tx-3", "c", "a", 100))

	result := d.Detect(nil)
	if result.TransactionID != "" {
		t.Errorf("expected empty transaction id, got %q", result.TransactionID)
	}
	if result.Reason == ReasonInsufficientData {
		t.Fatal("three accounts should be enough to score")
	}
	if result.GraphFeatures[domain.FeatureNumNodes] != 3 {
		t.Errorf("expected 3 nodes, got %g", result.GraphFeatures[domain.FeatureNumNodes])
	}
	// Density is exactly 0.5 on a 3-cycle and 0.5 is not strictly above the
	// dense-network threshold; no other rule fires either.
	if result.StructureScore != 0 {
		t.Errorf("structure score: expected 0 for a 3-cycle, got %g", result.StructureScore)
	}
}

func TestDetectIdempotentWithoutNewTransaction(t *testing.T) {
	opts := DefaultOptions()
	opts.AdaptiveLearning = false
	d := New(opts, quietLogger())
	d.Add(tx("tx-1", "a", "b", 100))
	d.Add(tx("tx-2", "b", "c", 250))
	d.Add(tx("tx-3", "c", "a", 400))

	first := d.Detect(nil)
	second := d.Detect(nil)
	if first.AnomalyScore != second.AnomalyScore ||
		first.TopologyScore != second.TopologyScore ||
		first.StructureScore != second.StructureScore ||
		first.Reason != second.Reason {
		t.Errorf("repeated detection on an unchanged window differs:\n%+v\n%+v", first, second)
	}
}

func TestDetectScoreWithinRange(t *testing.T) {
	opts := DefaultOptions()
	opts.AdaptiveLearning = false
	d := New(opts, quietLogger())

	var result domain.DetectionResult
	for i := 0; i < 10; i++ {
		item := tx(fmt.Sprintf("tx-%d", i), fmt.Sprintf("a%d", i), "hub", 100)
		result = d.Detect(&item)
	}
	if result.AnomalyScore < 0 || result.AnomalyScore > 1 {
		t.Errorf("score out of range: %g", result.AnomalyScore)
	}
	if result.StructureScore < 0 || result.StructureScore > 1 {
		t.Errorf("structure score out of range: %g", result.StructureScore)
	}
	if result.TopologyScore < 0 || result.TopologyScore > 1 {
		t.Errorf("topology score out of range: %g", result.TopologyScore)
	}
}

func TestDetectDeterministicWithoutLearning(t *testing.T) {
	opts := DefaultOptions()
	opts.AdaptiveLearning = false

	run := func() domain.DetectionResult {
		d := New(opts, quietLogger())
		d.Add(tx("tx-1", "a", "b", 100))
		d.Add(tx("tx-2", "b", "c", 250))
		d.Add(tx("tx-3", "c", "d", 400))
		d.Add(tx("tx-4", "d", "a", 90))
		return d.Detect(nil)
	}

	first, second := run(), run()
	if first.AnomalyScore != second.AnomalyScore {
		t.Errorf("scores differ across identical runs: %g vs %g",
			first.AnomalyScore, second.AnomalyScore)
	}
	if first.Reason != second.Reason {
		t.Errorf("reasons differ: %q vs %q", first.Reason, second.Reason)
	}
}

func TestDetectBatchThreadsState(t *testing.T) {
	d := New(DefaultOptions(), quietLogger())

	txs := []domain.Transaction{
		tx("tx-1", "a", "b", 100),
		tx("tx-2", "b", "c", 100),
		tx("tx-3", "c", "a", 100),
	}
	results := d.DetectBatch(txs)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.TransactionID != txs[i].ID {
			t.Errorf("result %d: expected id %q, got %q", i, txs[i].ID, r.TransactionID)
		}
	}
	// The first two items see fewer than three accounts.
	if results[0].Reason != ReasonInsufficientData || results[1].Reason != ReasonInsufficientData {
		t.Errorf("early batch items should be insufficient, got %q / %q",
			results[0].Reason, results[1].Reason)
	}
	if results[2].Reason == ReasonInsufficientData {
		t.Error("third item should have enough accounts to score")
	}
}

func TestReferenceSeededByCleanDetection(t *testing.T) {
	d := New(DefaultOptions(), quietLogger())
	if d.Reference() != nil {
		t.Fatal("expected nil reference before any detection")
	}

	d.Add(tx("tx-1", "a", "b", 100))
	d.Add(tx("tx-2", "b", "c", 100))
	result := d.Detect(nil)
	if result.IsFraudulent {
		t.Fatalf("sparse 3-node graph unexpectedly flagged: %+v", result)
	}

	ref := d.Reference()
	if ref == nil {
		t.Fatal("expected reference after a clean detection")
	}
	// The seed is a direct copy of the combined feature sets.
	for k, v := range result.GraphFeatures {
		if ref[k] != v {
			t.Errorf("reference[%s]: expected %g, got %g", k, v, ref[k])
		}
	}
	for k, v := range result.TopologicalFeatures {
		if ref[k] != v {
			t.Errorf("reference[%s]: expected %g, got %g", k, v, ref[k])
		}
	}
}

func TestReferenceNotUpdatedOnFraud(t *testing.T) {
	opts := DefaultOptions()
	opts.AnomalyThreshold = 0 // every scored window is flagged
	d := New(opts, quietLogger())

	d.Add(tx("tx-1", "a", "b", 100))
	d.Add(tx("tx-2", "b", "c", 100))
	result := d.Detect(nil)
	if !result.IsFraudulent {
		t.Fatal("zero threshold should flag every detection")
	}
	if d.Reference() != nil {
		t.Error("fraudulent detection must not seed the reference")
	}
}

func TestReferenceNotUpdatedWithLearningDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.AdaptiveLearning = false
	d := New(opts, quietLogger())

	d.Add(tx("tx-1", "a", "b", 100))
	d.Add(tx("tx-2", "b", "c", 100))
	d.Detect(nil)
	if d.Reference() != nil {
		t.Error("reference must stay nil with adaptive learning disabled")
	}
}

func TestReferenceEMABlending(t *testing.T) {
	opts := DefaultOptions()
	opts.LearningRate = 0.5
	d := New(opts, quietLogger())

	d.updateReference(
		domain.FeatureSet{"k": 10},
		domain.FeatureSet{"m": 4},
	)
	d.updateReference(
		domain.FeatureSet{"k": 20},
		domain.FeatureSet{"m": 8},
	)

	ref := d.Reference()
	if ref["k"] != 15 {
		t.Errorf("k: expected 15, got %g", ref["k"])
	}
	if ref["m"] != 6 {
		t.Errorf("m: expected 6, got %g", ref["m"])
	}
}

func TestReferenceReturnsCopy(t *testing.T) {
	d := New(DefaultOptions(), quietLogger())
	d.updateReference(domain.FeatureSet{"k": 1}, domain.FeatureSet{})

	ref := d.Reference()
	ref["k"] = 99
	if d.Reference()["k"] != 1 {
		t.Error("mutating the returned reference leaked into the detector")
	}
}

func TestStructureScoreRules(t *testing.T) {
	cases := []struct {
		name     string
		features domain.FeatureSet
		want     float64
	}{
		{"empty", domain.FeatureSet{}, 0},
		{
			"density at threshold not counted",
			domain.FeatureSet{domain.FeatureDensity: 0.5},
			0,
		},
		{
			"dense network",
			domain.FeatureSet{domain.FeatureDensity: 0.51},
			0.3,
		},
		{
			"single scc needs enough nodes",
			domain.FeatureSet{
				domain.FeatureStronglyConnected: 1,
				domain.FeatureNumNodes:          20,
			},
			0,
		},
		{
			"single large scc",
			domain.FeatureSet{
				domain.FeatureStronglyConnected: 1,
				domain.FeatureNumNodes:          21,
			},
			0.2,
		},
		{
			"hub receiver",
			domain.FeatureSet{domain.FeatureMaxInDegreeCentrality: 0.9},
			0.3,
		},
		{
			"hub sender",
			domain.FeatureSet{domain.FeatureMaxOutDegreeCentrality: 0.9},
			0.2,
		},
		{
			"all rules",
			domain.FeatureSet{
				domain.FeatureDensity:                0.9,
				domain.FeatureStronglyConnected:      1,
				domain.FeatureNumNodes:               30,
				domain.FeatureMaxInDegreeCentrality:  0.9,
				domain.FeatureMaxOutDegreeCentrality: 0.9,
			},
			1.0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := structureScore(tc.features); got != tc.want {
				t.Errorf("expected %g, got %g", tc.want, got)
			}
		})
	}
}

func TestReasonStrings(t *testing.T) {
	cases := []struct {
		name  string
		score float64
		graph domain.FeatureSet
		topo  domain.FeatureSet
		want  string
	}{
		{
			"normal",
			0.1, domain.FeatureSet{}, domain.FeatureSet{},
			"Normal transaction pattern",
		},
		{
			"high score",
			0.85, domain.FeatureSet{}, domain.FeatureSet{},
			"High topological complexity deviation",
		},
		{
			"moderate score",
			0.65, domain.FeatureSet{}, domain.FeatureSet{},
			"Moderate structural anomaly detected",
		},
		{
			"joined clauses",
			0.85,
			domain.FeatureSet{
				domain.FeatureDensity:               0.6,
				domain.FeatureMaxInDegreeCentrality: 0.9,
			},
			domain.FeatureSet{domain.FeatureTopoComplexity: 6},
			"High topological complexity deviation; Unusually dense transaction network; " +
				"Single account receiving majority of transactions; Abnormal topological structure",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := reason(tc.score, tc.graph, tc.topo); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestStatsReflectWindow(t *testing.T) {
	d := New(DefaultOptions(), quietLogger())
	d.Add(tx("tx-1", "a", "b", 100))
	d.Add(tx("tx-2", "b", "c", 100))

	stats := d.Stats()
	if stats.NumTransactions != 2 {
		t.Errorf("transactions: expected 2, got %d", stats.NumTransactions)
	}
	if stats.NumAccounts != 3 {
		t.Errorf("accounts: expected 3, got %d", stats.NumAccounts)
	}
	if stats.NumEdges != 2 {
		t.Errorf("edges: expected 2, got %d", stats.NumEdges)
	}
	if stats.HasReference {
		t.Error("expected no reference before any detection")
	}
}

func TestGraphSnapshot(t *testing.T) {
	d := New(DefaultOptions(), quietLogger())
	d.Add(tx("tx-1", "a", "b", 100))
	d.Add(tx("tx-2", "b", "c", 200))

	snap := d.GraphSnapshot()
	if len(snap.Accounts) != 3 {
		t.Errorf("accounts: expected 3, got %d", len(snap.Accounts))
	}
	if len(snap.Edges) != 2 {
		t.Errorf("edges: expected 2, got %d", len(snap.Edges))
	}
}
