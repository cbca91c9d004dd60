package provenance

import "time"

// EdgeKind classifies relationships in the provenance graph.
type EdgeKind string

const (
	// EdgeSupplied links a run to a contributor that took part in it.
	EdgeSupplied EdgeKind = "SUPPLIED"
	// EdgeCandidate links a contributor to a conflict it offered a value for.
	EdgeCandidate EdgeKind = "CANDIDATE"
	// EdgeResolvedIn links a conflict to the run that resolved it.
	EdgeResolvedIn EdgeKind = "RESOLVED_IN"
)

// RunNode is one synthesis run.
type RunNode struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	State      string    `json:"state"`
	Score      float64   `json:"score"`
	Iterations int       `json:"iterations"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ContributorNode is a contributor as seen by one run. Missing contributors
// are recorded with Included false and an empty ContributorID.
type ContributorNode struct {
	ID            string `json:"id"` // "runID/contributorID" or "runID/role"
	RunID         string `json:"runId"`
	ContributorID string `json:"contributorId"`
	Role          string `json:"role"`
	Included      bool   `json:"included"`
}

// ConflictNode is one resolved disagreement.
type ConflictNode struct {
	ID       string `json:"id"` // "runID#index"
	RunID    string `json:"runId"`
	Field    string `json:"field"`
	Policy   string `json:"policy"`
	Winner   string `json:"winner,omitempty"`
	Resolved string `json:"resolved"`
}

// Edge is a relationship between two nodes. Value carries the candidate
// value on CANDIDATE edges.
type Edge struct {
	Kind     EdgeKind `json:"kind"`
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Value    string   `json:"value,omitempty"`
}

// CandidateRef is one contributor's value for a conflict.
type CandidateRef struct {
	ContributorID string `json:"contributorId"`
	Role          string `json:"role"`
	Value         string `json:"value"`
}

// ConflictTrail is a conflict with its candidates.
type ConflictTrail struct {
	Conflict   ConflictNode   `json:"conflict"`
	Candidates []CandidateRef `json:"candidates"`
}

// Stats holds node and edge counts.
type Stats struct {
	RunCount         int `json:"runCount"`
	ContributorCount int `json:"contributorCount"`
	ConflictCount    int `json:"conflictCount"`
	EdgeCount        int `json:"edgeCount"`
}

func contributorNodeID(runID, key string) string {
	return runID + "/" + key
}
