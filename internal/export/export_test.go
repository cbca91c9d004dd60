package export

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/consolidate/internal/provenance"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

func timelineRun() synthesis.Result {
	return synthesis.NewEngine(synthesis.DefaultConfig(), synthesis.WithTitle("Reset")).Synthesize(
		context.Background(), []synthesis.Contribution{
			{ContributorID: "pm-1", Role: synthesis.RoleProjectManager, RawText: "Timeline: 3 days"},
			{ContributorID: "arch-1", Role: synthesis.RoleArchitect, RawText: "Estimate: 5 days"},
		})
}

func TestNewReport(t *testing.T) {
	res := timelineRun()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewReport("run-1", res, at)

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "Reset", r.Title)
	assert.Equal(t, "2026-03-01T12:00:00Z", r.ExportedAt)
	assert.Equal(t, res.State, r.State)
	assert.Len(t, r.Sections, len(res.Document.Sections))
	assert.Equal(t, res.Document.Markdown(), r.Markdown)

	require.Len(t, r.Conflicts, 1)
	c := r.Conflicts[0]
	assert.Equal(t, synthesis.KeyTimeline, c.Field)
	assert.Equal(t, synthesis.PolicyWeightedTimeline, c.Policy)
	assert.Equal(t, []CandidateExport{
		{ContributorID: "pm-1", Role: synthesis.RoleProjectManager, Value: "3 days"},
		{ContributorID: "arch-1", Role: synthesis.RoleArchitect, Value: "5 days"},
	}, c.Candidates)
}

func TestReport_JSONRoundTrip(t *testing.T) {
	r := NewReport("run-1", timelineRun(), time.Now())
	data, err := r.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"policy": "weighted_timeline"`)
	assert.Contains(t, string(data), `"missingContributors": [`)

	back, err := ParseReport(data)
	require.NoError(t, err)
	assert.Equal(t, r.Markdown, back.Markdown)
	assert.Equal(t, r.Gaps, back.Gaps)
	assert.Equal(t, r.Conflicts, back.Conflicts)
}

func TestParseReport_Invalid(t *testing.T) {
	_, err := ParseReport([]byte("{"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: parse report")
}

func TestGenerateMermaid(t *testing.T) {
	ctx := context.Background()
	store := provenance.NewMemStore()
	require.NoError(t, provenance.Record(ctx, store, "run-1", timelineRun()))

	out, err := GenerateMermaid(ctx, store, "run-1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, `["arch-1 (senior_architect)"]`)
	assert.Contains(t, out, `["pm-1 (project_manager)"]`)
	assert.Contains(t, out, `"missing: product_owner, qa_engineer, security_expert, ux_designer"`)
	assert.Contains(t, out, `{{"timeline: `)
	assert.Equal(t, 2, strings.Count(out, `-->|"`), "computed timelines have no thick winner arrow")
	assert.Contains(t, out, `-->|"5 days"|`)
}

func TestGenerateMermaid_UnknownRun(t *testing.T) {
	out, err := GenerateMermaid(context.Background(), provenance.NewMemStore(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "graph LR\n  subgraph N0[\"contributors\"]\n  end\n", out)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "a 'b' c", label("a  \"b\"\n c"))
	assert.Equal(t, strings.Repeat("x", 37)+"...", label(strings.Repeat("x", 50)))
}
