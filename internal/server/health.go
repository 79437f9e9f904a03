package server

import (
	"context"

	"github.com/adesai/topoguard/internal/graphstore"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphStoreHealthService verifies graph store connectivity as part of
// health checks. A nil client reports healthy; export is optional.
type GraphStoreHealthService struct {
	Client graphstore.Client
}

// Probe implements the HealthService interface.
func (s GraphStoreHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}
