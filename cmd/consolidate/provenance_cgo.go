//go:build cgo

package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/consolidate/internal/provenance"
)

// openProvenance opens the persistent provenance graph at path.
func openProvenance(path string) (provenance.Store, error) {
	store, err := provenance.NewKuzuFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("open provenance graph: %w", err)
	}
	if err := store.InitSchema(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("init provenance schema: %w", err)
	}
	return store, nil
}
