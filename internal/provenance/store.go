// Package provenance keeps an append-only graph of synthesis runs, the
// contributors that took part and the conflicts resolved between them.
package provenance

import (
	"context"
	"io"
)

// Store is the interface for the provenance graph backend.
// Implementations: KuzuStore (production, CGO), MemStore (testing).
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddRun(ctx context.Context, node RunNode) error
	AddContributor(ctx context.Context, node ContributorNode) error
	AddConflict(ctx context.Context, node ConflictNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations. GetRun returns nil when the run is unknown.
	GetRun(ctx context.Context, id string) (*RunNode, error)
	Contributors(ctx context.Context, runID string) ([]ContributorNode, error)
	Conflicts(ctx context.Context, runID string) ([]ConflictTrail, error)

	Stats(ctx context.Context) (*Stats, error)
}
