package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dusk-indust/consolidate/internal/codeintel"
)

// fixedAnalyzer reports the same analysis for every block.
type fixedAnalyzer codeintel.Report

func (f fixedAnalyzer) Analyze(string, string) codeintel.Report { return codeintel.Report(f) }

func TestScorer_EmptyInputScoresZero(t *testing.T) {
	cfg := DefaultConfig()
	m := Merge(nil, nil, cfg)
	doc := NewFormatter("", cfg).Render(m, nil)

	q := NewScorer(cfg, nil).Score(doc, m, nil)
	assert.Equal(t, QualityScore{}, q)
}

func TestScorer_ComponentsInRange(t *testing.T) {
	cfg := DefaultConfig()
	teams := [][]Contribution{
		fullTeam(),
		without(fullTeam(), RoleSecurity),
		{{ContributorID: "x", Role: "observer", RawText: "hello"}},
	}
	for i, team := range teams {
		var outputs []ContributorOutput
		for _, c := range team {
			outputs = append(outputs, NewParser().Parse(c))
		}
		m := Merge(outputs, NewResolver(cfg).ResolveAll(DetectConflicts(outputs)), cfg)
		q := NewScorer(cfg, nil).Score(NewFormatter("", cfg).Render(m, nil), m, outputs)

		for name, v := range map[string]float64{
			"completeness": q.Completeness,
			"codeQuality":  q.CodeQuality,
			"clarity":      q.Clarity,
			"consensus":    q.Consensus,
			"total":        q.Total,
		} {
			assert.GreaterOrEqual(t, v, 0.0, "team %d %s", i, name)
			assert.LessOrEqual(t, v, 1.0, "team %d %s", i, name)
		}
	}
}

func TestScorer_TotalIsWeightedSum(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	q := QualityScore{Completeness: 1, CodeQuality: 0.5, Clarity: 0.25, Consensus: 0}
	assert.InDelta(t, 0.4+0.15+0.05, s.total(q), 1e-9)

	cfg := DefaultConfig()
	cfg.ScoreWeights = ScoreWeights{Completeness: 2, CodeQuality: 2}
	assert.InDelta(t, 0.75, NewScorer(cfg, nil).total(q), 1e-9, "weights are normalized by their sum")
}

func TestScorer_ConsensusCredit(t *testing.T) {
	cfg := DefaultConfig()
	outputs := []ContributorOutput{
		parseOne(t, RoleProductOwner, "## Context\nWhy we build this."),
		parseOne(t, RoleQA, "no headings at all"),
		parseOne(t, "observer", "## Context\nextra"),
	}
	got := NewScorer(cfg, nil).consensus(outputs)
	assert.InDelta(t, 1.5/6, got, 1e-9)
}

func TestScorer_CodeQuality(t *testing.T) {
	cfg := DefaultConfig()
	s := NewScorer(cfg, nil)

	documented := CodeBlock{Language: "go", Content: "// Load reads it.\nfunc Load() error {\n\tif err != nil {\n\t\treturn err\n\t}\n\treturn nil\n}"}
	bare := CodeBlock{Language: "go", Content: "func add(a, b int) int { return a + b }"}

	m := MergedDocument{Code: []CodeBlock{documented}}
	assert.InDelta(t, 1.0/3, s.codeQuality(m), 1e-9, "one perfect block over three slots")

	m = MergedDocument{Code: []CodeBlock{documented, bare, bare}}
	assert.InDelta(t, (1+1.0/3+1.0/3)/3, s.codeQuality(m), 1e-9)
}

func TestScorer_MalformedBlockKeepsFullCredit(t *testing.T) {
	s := NewScorer(DefaultConfig(), fixedAnalyzer{Parsed: true, SyntaxError: true, ErrorHandling: true, Documented: true})
	malformed := CodeBlock{Language: "go", Content: "// Do runs it.\nfunc Do() error {\n\tif err := do(; err != nil {\n\t\treturn err\n\t}\n}"}

	assert.InDelta(t, 1.0, s.blockScore(malformed), 1e-9)
	assert.Zero(t, s.blockScore(CodeBlock{Language: "go", Content: "// TODO", IsPlaceholder: true}))
}

func TestScorer_ClarityPenalizesHedging(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	doc := SynthesizedDocument{Sections: []RenderedSection{
		{ID: SectionContext, Body: "Maybe we should perhaps do it."},
		{ID: SectionInterface, Body: "A form."},
		{ID: SectionSecurity, Empty: true, Placeholder: true, Body: RefinementLabel},
	}}
	assert.InDelta(t, 0.5, s.clarity(doc), 1e-9)
}
