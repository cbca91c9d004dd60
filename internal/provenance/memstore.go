package provenance

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu           sync.RWMutex
	runs         map[string]RunNode
	contributors map[string]ContributorNode
	conflicts    map[string]ConflictNode
	edges        []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		runs:         make(map[string]RunNode),
		contributors: make(map[string]ContributorNode),
		conflicts:    make(map[string]ConflictNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddRun stores a run node. Runs are append-only.
func (m *MemStore) AddRun(_ context.Context, node RunNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[node.ID]; ok {
		return fmt.Errorf("memstore: run %s already recorded", node.ID)
	}
	m.runs[node.ID] = node
	return nil
}

// AddContributor stores a contributor node keyed by its ID.
func (m *MemStore) AddContributor(_ context.Context, node ContributorNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contributors[node.ID] = node
	return nil
}

// AddConflict stores a conflict node keyed by its ID.
func (m *MemStore) AddConflict(_ context.Context, node ConflictNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts[node.ID] = node
	return nil
}

// AddEdge appends an edge to the internal slice.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

// GetRun returns the run node for the given ID, or nil if not found.
func (m *MemStore) GetRun(_ context.Context, id string) (*RunNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// Contributors returns the contributors linked to runID by SUPPLIED edges,
// sorted by node ID.
func (m *MemStore) Contributors(_ context.Context, runID string) ([]ContributorNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ContributorNode
	for _, e := range m.edges {
		if e.Kind != EdgeSupplied || e.SourceID != runID {
			continue
		}
		if c, ok := m.contributors[e.TargetID]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Conflicts returns the conflicts resolved in runID with their candidates,
// sorted by conflict ID. Candidates are sorted by contributor ID.
func (m *MemStore) Conflicts(_ context.Context, runID string) ([]ConflictTrail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ConflictTrail
	for _, e := range m.edges {
		if e.Kind != EdgeResolvedIn || e.TargetID != runID {
			continue
		}
		c, ok := m.conflicts[e.SourceID]
		if !ok {
			continue
		}
		trail := ConflictTrail{Conflict: c}
		for _, ce := range m.edges {
			if ce.Kind != EdgeCandidate || ce.TargetID != c.ID {
				continue
			}
			contrib := m.contributors[ce.SourceID]
			trail.Candidates = append(trail.Candidates, CandidateRef{
				ContributorID: contrib.ContributorID,
				Role:          contrib.Role,
				Value:         ce.Value,
			})
		}
		sortCandidates(trail.Candidates)
		out = append(out, trail)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Conflict.ID < out[j].Conflict.ID })
	return out, nil
}

// Stats returns node and edge counts.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Stats{
		RunCount:         len(m.runs),
		ContributorCount: len(m.contributors),
		ConflictCount:    len(m.conflicts),
		EdgeCount:        len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

func sortCandidates(cs []CandidateRef) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ContributorID < cs[j].ContributorID })
}
