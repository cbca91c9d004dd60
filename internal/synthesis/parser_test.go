package synthesis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_HeadingsAndLabels(t *testing.T) {
	text := "Intro line before markers.\n\n" +
		"## Timeline\nAbout 3-5 days of work.\n\n" +
		"Priority: P1\n\n" +
		"## Tests\n### Unit\n- validates email format\n### Integration\n- writes reset token to database\n- load test 500 rps on reset endpoint\n" +
		"```go area=test\nfunc TestReset(t *testing.T) {}\n```\n\n" +
		"## Random Thoughts\nwe like coffee\n"

	out := parseOne(t, RoleQA, text)

	assert.Equal(t, TimelineEstimate{Value: 5, Unit: UnitDays}, out.ParsedSections[KeyTimeline])
	assert.Equal(t, PriorityLevel{Level: PriorityHigh}, out.ParsedSections[KeyPriority])

	suite, ok := out.ParsedSections[KeyTests].(TestSuite)
	require.True(t, ok)
	require.Len(t, suite.Unit, 1)
	assert.Equal(t, "validates email format", suite.Unit[0].Scenario)
	assert.Len(t, suite.Integration, 2, "explicit category wins over keyword classification")

	code, ok := out.ParsedSections[KeyCode].(CodeSamples)
	require.True(t, ok)
	require.Len(t, code.Blocks, 1)
	assert.Equal(t, AreaTest, code.Blocks[0].Area)
	assert.Equal(t, "go", code.Blocks[0].Language)

	notes, ok := out.ParsedSections[KeyUnstructured].(UnstructuredNotes)
	require.True(t, ok)
	require.Len(t, notes.Fragments, 2)
	assert.Equal(t, "Intro line before markers.", notes.Fragments[0])
	assert.Equal(t, "## Random Thoughts\nwe like coffee", notes.Fragments[1])
	assert.True(t, out.Structured())
}

func TestParser_UnparsableTimelineBecomesNote(t *testing.T) {
	out := parseOne(t, RoleProjectManager, "## Timeline\nA while, depends on hiring.\n")

	_, ok := out.ParsedSections[KeyTimeline]
	assert.False(t, ok)
	notes := out.ParsedSections[KeyUnstructured].(UnstructuredNotes)
	assert.Equal(t, []string{"Timeline:\nA while, depends on hiring."}, notes.Fragments)
	assert.False(t, out.Structured())
}

func TestParser_FreeTextOnly(t *testing.T) {
	out := parseOne(t, RoleUXDesigner, "Just some thoughts about colors.")
	assert.False(t, out.Structured())
	assert.Equal(t, UnstructuredNotes{Fragments: []string{"Just some thoughts about colors."}},
		out.ParsedSections[KeyUnstructured])
}

func TestParser_MarkersInsideFenceIgnored(t *testing.T) {
	text := "## Code\n```python\n# Security\nprint('x')\n```\n"
	out := parseOne(t, RoleArchitect, text)

	_, ok := out.ParsedSections[KeySecurity]
	assert.False(t, ok, "heading inside a fence must not open a section")
	code := out.ParsedSections[KeyCode].(CodeSamples)
	require.Len(t, code.Blocks, 1)
	assert.Equal(t, "# Security\nprint('x')", code.Blocks[0].Content)
}

func TestParser_UserStoriesWithGherkin(t *testing.T) {
	text := "## User Stories\n" +
		"- Reset password\n" +
		"  As a customer I want to reset my password.\n" +
		"  - Scenario: happy path\n" +
		"    Given a registered email\n" +
		"    When the customer asks for a reset\n" +
		"    Then a link is sent\n" +
		"- Story 2: Expire links\n" +
		"  Acceptance criteria:\n" +
		"  - Given an old link When it is opened Then it is rejected\n"

	out := parseOne(t, RoleProductOwner, text)
	list, ok := out.ParsedSections[KeyUserStories].(UserStoryList)
	require.True(t, ok)
	require.Len(t, list.Stories, 2)

	first := list.Stories[0]
	assert.Equal(t, "Reset password", first.Title)
	assert.Equal(t, "As a customer I want to reset my password.", first.Body)
	require.Len(t, first.AcceptanceCriteria, 1)
	assert.Equal(t,
		"Scenario: happy path Given a registered email When the customer asks for a reset Then a link is sent",
		first.AcceptanceCriteria[0])

	second := list.Stories[1]
	assert.Equal(t, "Story 2: Expire links", second.Title)
	assert.Equal(t, []string{"Given an old link When it is opened Then it is rejected"}, second.AcceptanceCriteria)
}

func TestParser_SecurityPlainLines(t *testing.T) {
	out := parseOne(t, RoleSecurity, "Security:\nAll traffic over TLS\nSecrets in a vault\n")
	reqs, ok := out.ParsedSections[KeySecurity].(SecurityRequirements)
	require.True(t, ok)
	assert.Equal(t, []SecurityRequirement{{Text: "All traffic over TLS"}, {Text: "Secrets in a vault"}}, reqs.Items)
}

func TestParser_SecurityLabelInsideTestsIsCategory(t *testing.T) {
	out := parseOne(t, RoleQA, "## Tests\nSecurity:\n- sql injection on the email field\n")
	_, ok := out.ParsedSections[KeySecurity]
	assert.False(t, ok)
	suite := out.ParsedSections[KeyTests].(TestSuite)
	require.Len(t, suite.Security, 1)
}

func TestParser_SecuritySiblingOfTestsIsSection(t *testing.T) {
	out := parseOne(t, RoleSecurity, "## Tests\n- penetration test on the reset form\n\n"+
		"## Security\n- encryption at rest\n- reset tokens are single use\n")

	reqs, ok := out.ParsedSections[KeySecurity].(SecurityRequirements)
	require.True(t, ok)
	assert.Equal(t, []SecurityRequirement{{Text: "encryption at rest"}, {Text: "reset tokens are single use"}}, reqs.Items)
	_, ok = out.ParsedSections[KeyUnstructured]
	assert.False(t, ok)

	out = parseOne(t, RoleQA, "## Tests\n### Security\n- sql injection on the email field\n")
	suite := out.ParsedSections[KeyTests].(TestSuite)
	assert.Len(t, suite.Security, 1, "a nested heading still names a category")
}

func TestParser_ApproachKeepsCodeBlocks(t *testing.T) {
	text := "Architecture:\nEvent driven.\n```sql\nCREATE TABLE events (id int);\n```\n```go\n// TODO\n```\n"
	out := parseOne(t, RoleArchitect, text)
	ta, ok := out.ParsedSections[KeyTechnicalApproach].(TechnicalApproach)
	require.True(t, ok)
	assert.Equal(t, "Event driven.", ta.Narrative)
	require.Len(t, ta.CodeBlocks, 2)
	assert.Equal(t, AreaSchema, ta.CodeBlocks[0].Area)
	assert.False(t, ta.CodeBlocks[0].IsPlaceholder)
	assert.True(t, ta.CodeBlocks[1].IsPlaceholder)
}

func TestParser_RepeatedScalarKeepsFirst(t *testing.T) {
	out := parseOne(t, RoleProjectManager, "Timeline: 2 weeks\n\nEstimate: 4 days\n")
	assert.Equal(t, TimelineEstimate{Value: 2, Unit: UnitWeeks}, out.ParsedSections[KeyTimeline])
	notes := out.ParsedSections[KeyUnstructured].(UnstructuredNotes)
	assert.Equal(t, []string{"timeline: 4 days"}, notes.Fragments)
}

func TestInferArea(t *testing.T) {
	cases := []struct {
		lang, hint, content string
		want                Area
	}{
		{"go", "infra", "package main", AreaInfra},
		{"sql", "", "select 1", AreaSchema},
		{"", "", "CREATE TABLE t (id int)", AreaSchema},
		{"tsx", "", "<App />", AreaUI},
		{"yaml", "", "kind: Deployment", AreaInfra},
		{"go", "", "func TestLogin(t *testing.T) {}", AreaTest},
		{"go", "", "func Login() {}", AreaAPI},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, inferArea(c.lang, c.hint, c.content, AreaAPI), "%s/%s", c.lang, c.content)
	}
}

func TestSemanticKey(t *testing.T) {
	assert.Equal(t, "reset password by email", SemanticKey("Story 1: Reset password by email"))
	assert.Equal(t, "reset password by email", SemanticKey("US-12 - Reset Password By Email!"))
	assert.Equal(t, "reset password by email", SemanticKey("**Reset password by email**"))
	assert.Equal(t, "user can log in", SemanticKey("User can log in"))
}

func TestParser_ParseAllKeepsOrder(t *testing.T) {
	outs, err := NewParser().ParseAll(context.Background(), fullTeam(), 2)
	require.NoError(t, err)
	require.Len(t, outs, 6)
	for i, c := range fullTeam() {
		assert.Equal(t, c.ContributorID, outs[i].ContributorID)
		assert.Equal(t, c.Role, outs[i].Role)
	}
}

func TestParser_ParseAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewParser().ParseAll(ctx, fullTeam(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
