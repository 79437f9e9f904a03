package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/adesai/topoguard/internal/domain"
)

const (
	upsertAccountsQuery = `
UNWIND $accounts AS acct
MERGE (a:Account {id: acct})
SET a.lastSeenAt = $observedAt`

	upsertFlowsQuery = `
UNWIND $edges AS edge
MATCH (from:Account {id: edge.from})
MATCH (to:Account {id: edge.to})
MERGE (from)-[f:FLOW]->(to)
SET f.weight = edge.weight,
    f.flow = edge.flow,
    f.count = edge.count,
    f.observedAt = $observedAt`
)

// SnapshotExporter mirrors graph snapshots into the graph store.
type SnapshotExporter struct {
	client Client
}

// NewSnapshotExporter wraps the given client.
func NewSnapshotExporter(client Client) *SnapshotExporter {
	return &SnapshotExporter{client: client}
}

// Export upserts the snapshot's accounts and flow edges. An empty snapshot
// is a no-op.
func (e *SnapshotExporter) Export(ctx context.Context, snap domain.GraphSnapshot) error {
	if len(snap.Accounts) == 0 {
		return nil
	}

	observedAt := time.Now().UTC().Format(time.RFC3339)

	accounts := make([]any, len(snap.Accounts))
	for i, acct := range snap.Accounts {
		accounts[i] = acct
	}
	if err := e.client.ExecuteWrite(ctx, upsertAccountsQuery, map[string]any{
		"accounts":   accounts,
		"observedAt": observedAt,
	}); err != nil {
		return fmt.Errorf("upsert accounts: %w", err)
	}

	if len(snap.Edges) == 0 {
		return nil
	}
	edges := make([]any, len(snap.Edges))
	for i, edge := range snap.Edges {
		edges[i] = map[string]any{
			"from":   edge.From,
			"to":     edge.To,
			"weight": edge.Weight,
			"flow":   edge.Flow,
			"count":  edge.Count,
		}
	}
	if err := e.client.ExecuteWrite(ctx, upsertFlowsQuery, map[string]any{
		"edges":      edges,
		"observedAt": observedAt,
	}); err != nil {
		return fmt.Errorf("upsert flows: %w", err)
	}
	return nil
}
