package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/adesai/topoguard/internal/config"
	"github.com/adesai/topoguard/internal/detector"
	"github.com/adesai/topoguard/internal/graphstore"
	"github.com/adesai/topoguard/internal/logging"
	"github.com/adesai/topoguard/internal/server"
	"github.com/adesai/topoguard/internal/service"
	"github.com/adesai/topoguard/internal/topology"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	var (
		graphClient graphstore.Client
		sink        service.SnapshotSink
	)
	if cfg.Graph.URI != "" {
		graphClient, err = graphstore.NewNeo4jClient(ctx, graphstore.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			logger.Error("failed to create graph store client", "error", err)
			os.Exit(1)
		}
		sink = graphstore.NewSnapshotExporter(graphClient)
		logger.Info("graph snapshot export enabled", "uri", cfg.Graph.URI)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph store client failed", "error", err)
			}
		}
	}()

	det := detector.New(detectorOptions(cfg.Detector), logger)
	detectionService := service.NewDetectionService(det, sink, logger)
	apiHandlers := server.NewAPIHandlers(logger, detectionService)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.GraphStoreHealthService{Client: graphClient},
		API:              apiHandlers,
		MetricsEnabled:   cfg.HTTP.MetricsEnabled,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func detectorOptions(cfg config.DetectorConfig) detector.Options {
	return detector.Options{
		TimeWindowHours:   cfg.TimeWindowHours,
		AnomalyThreshold:  cfg.AnomalyThreshold,
		PersistenceWeight: cfg.PersistenceWeight,
		StructureWeight:   cfg.StructureWeight,
		AdaptiveLearning:  cfg.AdaptiveLearning,
		LearningRate:      cfg.LearningRate,
		Topology: topology.Config{
			MaxDimension: cfg.MaxDimension,
			Metric:       cfg.DistanceMetric,
			LayoutSeed:   cfg.LayoutSeed,
		},
	}
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
