package synthesis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mergeTexts(t *testing.T, pairs ...any) MergedDocument {
	t.Helper()
	require.Zero(t, len(pairs)%2)
	var outputs []ContributorOutput
	for i := 0; i < len(pairs); i += 2 {
		outputs = append(outputs, parseOne(t, pairs[i].(Role), pairs[i+1].(string)))
	}
	cfg := DefaultConfig()
	resolved := NewResolver(cfg).ResolveAll(DetectConflicts(outputs))
	return Merge(outputs, resolved, cfg)
}

func TestMerge_StoriesDeduplicatedBySemanticKey(t *testing.T) {
	m := mergeTexts(t,
		RoleArchitect, architectText,
		RoleProductOwner, productOwnerText,
	)

	require.Len(t, m.Stories, 5)
	for _, s := range m.Stories {
		assert.Empty(t, s.Source, "all five stories come from the product owner")
	}
	assert.Equal(t, "Story 1: Reset password by email", m.Stories[0].Title)

	keys := make(map[string]bool)
	for _, s := range m.Stories {
		k := SemanticKey(s.Title)
		assert.False(t, keys[k], "duplicate key %q", k)
		keys[k] = true
	}
}

func TestMerge_NonPrimaryEntriesCarrySource(t *testing.T) {
	m := mergeTexts(t,
		RoleProductOwner, "## User Stories\n- Reset password\n",
		RoleArchitect, "## User Stories\n- Rotate signing keys\n- reset password\n",
	)
	require.Len(t, m.Stories, 2)
	assert.Equal(t, "", m.Stories[0].Source)
	assert.Equal(t, "Rotate signing keys", m.Stories[1].Title)
	assert.Equal(t, "senior_architect-1", m.Stories[1].Source)
}

func TestMerge_TestsDeduplicated(t *testing.T) {
	m := mergeTexts(t,
		RoleArchitect, "## Tests\n- Token expires after one hour!\n- signature is verified\n",
		RoleQA, qaText,
	)
	assert.Equal(t, 4, m.Tests.Len())
	require.Len(t, m.Tests.Unit, 2)
	assert.Equal(t, "token expires after one hour", m.Tests.Unit[0].Scenario, "primary role first")
	assert.Equal(t, "senior_architect-1", m.Tests.Unit[1].Source)
}

func TestMerge_SecurityOverride(t *testing.T) {
	m := mergeTexts(t,
		RoleArchitect, "## Security\n- basic auth is fine\n",
		RoleSecurity, securityText,
	)

	want := []SecurityRequirement{{Text: "encryption at rest"}, {Text: "reset tokens are single use"}}
	assert.Empty(t, cmp.Diff(want, m.Security))

	require.Len(t, m.Conflicts, 1)
	rec := m.Conflicts[0]
	assert.Equal(t, KeySecurity, rec.FieldKey)
	assert.Equal(t, PolicySecurityLiteral, rec.Policy)
	assert.Equal(t, "security_expert-1", rec.Winner)
	assert.Equal(t, SecurityRequirements{Items: want}, rec.Resolved)
}

func TestMerge_SecurityWithoutExpert(t *testing.T) {
	m := mergeTexts(t,
		RoleArchitect, "## Security\n- TLS everywhere\n",
		RoleQA, "## Security\n- tls everywhere\n- rate limit resets\n",
	)
	require.Len(t, m.Security, 2)
	assert.Equal(t, SecurityRequirement{Text: "TLS everywhere", Source: "senior_architect-1"}, m.Security[0])
	assert.Equal(t, SecurityRequirement{Text: "rate limit resets", Source: "qa_engineer-1"}, m.Security[1])
	assert.Empty(t, m.Conflicts)
}

func TestMerge_ApproachGetsSecurityAppended(t *testing.T) {
	m := mergeTexts(t,
		RoleSecurity, securityText,
		RoleArchitect, "## Technical Approach\nA stateless reset service.\n",
	)
	require.NotNil(t, m.Approach)
	assert.Contains(t, m.Approach.Narrative, "A stateless reset service.")
	assert.Contains(t, m.Approach.Narrative, "encryption at rest")
	assert.Equal(t, []string{"senior_architect-1"}, m.Sources[KeyTechnicalApproach])
}

func TestMerge_PlaceholderCodeGoesToAppendix(t *testing.T) {
	text := "## Code\n```go\nfunc A() error { return nil }\n```\n```go\n// add implementation here\n```\n```ts\n```\n"
	m := mergeTexts(t, RoleArchitect, text)

	require.Len(t, m.Code, 1)
	assert.Equal(t, "func A() error { return nil }", m.Code[0].Content)
	require.Len(t, m.Appendix, 2)
	for _, b := range m.Appendix {
		assert.True(t, b.IsPlaceholder)
		assert.Equal(t, "senior_architect-1", b.Source)
	}
}

func TestMerge_LosingApproachCodeIsKept(t *testing.T) {
	m := mergeTexts(t,
		RoleArchitect, "## Technical Approach\nService A.\n```go\nfunc A() {}\n```\n",
		RoleProjectManager, "## Technical Approach\nService B.\n```go\nfunc B() {}\n```\n",
	)
	require.NotNil(t, m.Approach)
	require.Len(t, m.Approach.CodeBlocks, 1)
	assert.Equal(t, "func A() {}", m.Approach.CodeBlocks[0].Content)
	require.Len(t, m.Code, 1)
	assert.Equal(t, "func B() {}", m.Code[0].Content)
	assert.Equal(t, "project_manager-1", m.Code[0].Source)
}

func TestMerge_PresenceAndMissing(t *testing.T) {
	m := mergeTexts(t,
		RoleProductOwner, "free text",
		RoleQA, qaText,
	)
	assert.Equal(t, []string{"product_owner-1", "qa_engineer-1"}, m.Included)
	assert.Equal(t, []Role{RoleProjectManager, RoleArchitect, RoleSecurity, RoleUXDesigner}, m.Missing)
	require.Len(t, m.Notes, 1)
	assert.Equal(t, Note{ContributorID: "product_owner-1", Role: RoleProductOwner, Text: "free text"}, m.Notes[0])
}
