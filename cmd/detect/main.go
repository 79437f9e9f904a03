package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/adesai/topoguard/internal/config"
	"github.com/adesai/topoguard/internal/detector"
	"github.com/adesai/topoguard/internal/domain"
	"github.com/adesai/topoguard/internal/generator"
	"github.com/adesai/topoguard/internal/logging"
	"github.com/adesai/topoguard/internal/topology"
)

type resultRecord struct {
	TransactionID       string            `json:"transaction_id"`
	AnomalyScore        float64           `json:"anomaly_score"`
	IsFraudulent        bool              `json:"is_fraudulent"`
	Reason              string            `json:"reason"`
	GraphFeatures       domain.FeatureSet `json:"graph_features"`
	TopologicalFeatures domain.FeatureSet `json:"topological_features"`
	TopologyScore       float64           `json:"topology_score"`
	StructureScore      float64           `json:"structure_score"`
}

func main() {
	var (
		input  = flag.String("input", "", "input JSON dataset (required)")
		output = flag.String("output", "", "optional results output file")
	)
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "-input is required")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging).With("component", "detect")

	records, err := loadRecords(*input)
	if err != nil {
		logger.Error("failed to load dataset", "error", err, "path", *input)
		os.Exit(1)
	}
	if len(records) == 0 {
		logger.Error("dataset empty", "path", *input)
		os.Exit(1)
	}

	det := detector.New(detector.Options{
		TimeWindowHours:   cfg.Detector.TimeWindowHours,
		AnomalyThreshold:  cfg.Detector.AnomalyThreshold,
		PersistenceWeight: cfg.Detector.PersistenceWeight,
		StructureWeight:   cfg.Detector.StructureWeight,
		AdaptiveLearning:  cfg.Detector.AdaptiveLearning,
		LearningRate:      cfg.Detector.LearningRate,
		Topology: topology.Config{
			MaxDimension: cfg.Detector.MaxDimension,
			Metric:       cfg.Detector.DistanceMetric,
			LayoutSeed:   cfg.Detector.LayoutSeed,
		},
	}, logger)

	results := make([]resultRecord, 0, len(records))
	var fraudCount int
	var scoreSum float64

	for _, rec := range records {
		tx, err := rec.ToTransaction()
		if err != nil {
			logger.Error("skipping malformed record", "error", err)
			continue
		}
		result := det.Detect(&tx)
		scoreSum += result.AnomalyScore
		if result.IsFraudulent {
			fraudCount++
			logger.Warn("fraud detected",
				"transaction_id", tx.ID,
				"score", result.AnomalyScore,
				"reason", result.Reason,
			)
		}
		results = append(results, resultRecord{
			TransactionID:       tx.ID,
			AnomalyScore:        result.AnomalyScore,
			IsFraudulent:        result.IsFraudulent,
			Reason:              result.Reason,
			GraphFeatures:       result.GraphFeatures,
			TopologicalFeatures: result.TopologicalFeatures,
			TopologyScore:       result.TopologyScore,
			StructureScore:      result.StructureScore,
		})
	}

	if len(results) > 0 {
		fmt.Printf("Total transactions: %d\n", len(results))
		fmt.Printf("Fraudulent: %d (%.1f%%)\n", fraudCount, float64(fraudCount)/float64(len(results))*100)
		fmt.Printf("Average anomaly score: %.3f\n", scoreSum/float64(len(results)))
	}

	if *output != "" {
		if err := writeResults(*output, results); err != nil {
			logger.Error("failed to write results", "error", err, "path", *output)
			os.Exit(1)
		}
		fmt.Printf("Results saved to %s\n", *output)
	}
}

func loadRecords(path string) ([]generator.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var records []generator.Record
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}

func writeResults(path string, results []resultRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}
