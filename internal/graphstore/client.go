// Package graphstore optionally mirrors built transaction graphs into a
// Cypher-speaking graph store so flagged windows can be inspected with
// external tooling. The detector never reads this data back.
package graphstore

import (
	"context"
	"errors"
)

// Client is the minimal contract the snapshot exporter needs from the
// underlying graph store.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) error
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options configures a graph store client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph store URI is not provided.
var ErrMissingURI = errors.New("graph store URI is required")
