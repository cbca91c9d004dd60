//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/consolidate/internal/provenance"
)

// openProvenance needs the kuzu bindings, which require cgo.
func openProvenance(string) (provenance.Store, error) {
	return nil, errors.New("the provenance graph requires a cgo build")
}
