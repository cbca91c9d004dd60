package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// Report is the top-level JSON export of a synthesis run.
type Report struct {
	RunID        string                         `json:"runId,omitempty"`
	Title        string                         `json:"title"`
	ExportedAt   string                         `json:"exportedAt"`
	State        synthesis.State                `json:"state"`
	Iterations   int                            `json:"iterations"`
	Score        synthesis.QualityScore         `json:"score"`
	Sections     []SectionExport                `json:"sections"`
	Contributors []synthesis.ContributorSummary `json:"contributors"`
	Gaps         synthesis.Gaps                 `json:"gaps"`
	Conflicts    []ConflictExport               `json:"conflicts,omitempty"`
	Warnings     []string                       `json:"warnings,omitempty"`
	Transitions  []synthesis.Transition         `json:"transitions"`
	Markdown     string                         `json:"markdown"`
}

// SectionExport describes one rendered section.
type SectionExport struct {
	ID          synthesis.SectionID `json:"id"`
	Title       string              `json:"title"`
	Body        string              `json:"body"`
	Empty       bool                `json:"empty,omitempty"`
	Placeholder bool                `json:"placeholder,omitempty"`
	Sources     []string            `json:"sources,omitempty"`
}

// ConflictExport describes one resolved conflict.
type ConflictExport struct {
	Field      synthesis.SectionKey `json:"field"`
	Policy     synthesis.Policy     `json:"policy"`
	Winner     string               `json:"winner,omitempty"`
	Resolved   string               `json:"resolved"`
	Candidates []CandidateExport    `json:"candidates"`
}

// CandidateExport is one contributor's value for a conflicting field.
type CandidateExport struct {
	ContributorID string         `json:"contributorId"`
	Role          synthesis.Role `json:"role"`
	Value         string         `json:"value"`
}

// NewReport builds a Report from a run result.
func NewReport(runID string, res synthesis.Result, at time.Time) *Report {
	r := &Report{
		RunID:        runID,
		Title:        res.Document.Title,
		ExportedAt:   at.UTC().Format(time.RFC3339),
		State:        res.State,
		Iterations:   res.Iterations,
		Score:        res.Score,
		Contributors: res.Contributors,
		Gaps:         res.Gaps,
		Warnings:     res.Validation.Warnings,
		Transitions:  res.Transitions,
		Markdown:     res.Document.Markdown(),
	}
	for _, s := range res.Document.Sections {
		r.Sections = append(r.Sections, SectionExport{
			ID:          s.ID,
			Title:       s.Title,
			Body:        s.Body,
			Empty:       s.Empty,
			Placeholder: s.Placeholder,
			Sources:     s.Sources,
		})
	}
	for _, c := range res.Conflicts {
		ce := ConflictExport{Field: c.FieldKey, Policy: c.Policy, Winner: c.Winner}
		if c.Resolved != nil {
			ce.Resolved = synthesis.Describe(c.Resolved)
		}
		for _, cand := range c.Candidates {
			ce.Candidates = append(ce.Candidates, CandidateExport{
				ContributorID: cand.ContributorID,
				Role:          cand.Role,
				Value:         synthesis.Describe(cand.Value),
			})
		}
		r.Conflicts = append(r.Conflicts, ce)
	}
	return r
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal report: %w", err)
	}
	return data, nil
}

// ParseReport decodes a report produced by JSON.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("export: parse report: %w", err)
	}
	return &r, nil
}
