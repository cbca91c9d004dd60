package provenance

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// Record writes the conflict trail of one run. Nodes are only ever added;
// recording the same run ID twice is an error for stores that enforce
// primary keys.
func Record(ctx context.Context, s Store, runID string, res synthesis.Result) error {
	return RecordAt(ctx, s, runID, res, time.Now().UTC())
}

// RecordAt is Record with an explicit timestamp.
func RecordAt(ctx context.Context, s Store, runID string, res synthesis.Result, at time.Time) error {
	run := RunNode{
		ID:         runID,
		Title:      res.Document.Title,
		State:      string(res.State),
		Score:      res.Score.Total,
		Iterations: res.Iterations,
		CreatedAt:  at,
	}
	if err := s.AddRun(ctx, run); err != nil {
		return fmt.Errorf("provenance: add run: %w", err)
	}

	byContributor := make(map[string]string, len(res.Contributors))
	for _, c := range res.Contributors {
		node := ContributorNode{
			ID:            contributorNodeID(runID, c.ID),
			RunID:         runID,
			ContributorID: c.ID,
			Role:          string(c.Role),
			Included:      true,
		}
		if err := addContributor(ctx, s, node); err != nil {
			return err
		}
		byContributor[c.ID] = node.ID
	}
	for _, role := range res.Document.MissingContributors {
		node := ContributorNode{
			ID:    contributorNodeID(runID, string(role)),
			RunID: runID,
			Role:  string(role),
		}
		if err := addContributor(ctx, s, node); err != nil {
			return err
		}
	}

	for i, c := range res.Conflicts {
		node := ConflictNode{
			ID:     fmt.Sprintf("%s#%03d", runID, i),
			RunID:  runID,
			Field:  string(c.FieldKey),
			Policy: string(c.Policy),
			Winner: c.Winner,
		}
		if c.Resolved != nil {
			node.Resolved = synthesis.Describe(c.Resolved)
		}
		if err := s.AddConflict(ctx, node); err != nil {
			return fmt.Errorf("provenance: add conflict: %w", err)
		}
		for _, cand := range c.Candidates {
			src, ok := byContributor[cand.ContributorID]
			if !ok {
				continue
			}
			edge := Edge{Kind: EdgeCandidate, SourceID: src, TargetID: node.ID, Value: synthesis.Describe(cand.Value)}
			if err := s.AddEdge(ctx, edge); err != nil {
				return fmt.Errorf("provenance: add candidate: %w", err)
			}
		}
		if err := s.AddEdge(ctx, Edge{Kind: EdgeResolvedIn, SourceID: node.ID, TargetID: runID}); err != nil {
			return fmt.Errorf("provenance: add resolution: %w", err)
		}
	}
	return nil
}

func addContributor(ctx context.Context, s Store, node ContributorNode) error {
	if err := s.AddContributor(ctx, node); err != nil {
		return fmt.Errorf("provenance: add contributor: %w", err)
	}
	if err := s.AddEdge(ctx, Edge{Kind: EdgeSupplied, SourceID: node.RunID, TargetID: node.ID}); err != nil {
		return fmt.Errorf("provenance: add supplied: %w", err)
	}
	return nil
}
