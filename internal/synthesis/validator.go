package synthesis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dusk-indust/consolidate/internal/codeintel"
)

// Validation checks.
const (
	CheckCodeEvidence       = "code_evidence"
	CheckAcceptanceCriteria = "acceptance_criteria"
	CheckPlaceholderText    = "placeholder_text"
)

var (
	givenRe = regexp.MustCompile(`(?i)\bgiven\b`)
	whenRe  = regexp.MustCompile(`(?i)\bwhen\b`)
	thenRe  = regexp.MustCompile(`(?i)\bthen\b`)
)

// Issue is a blocking validation finding.
type Issue struct {
	Check   string    `json:"check"`
	Section SectionID `json:"section,omitempty"`
	Message string    `json:"message"`
}

// ValidationResult is the outcome of a validation pass. Warnings never make
// a document invalid.
type ValidationResult struct {
	IsValid         bool        `json:"isValid"`
	MissingSections []SectionID `json:"missingSections"`
	Issues          []Issue     `json:"issues"`
	Warnings        []string    `json:"warnings,omitempty"`
}

// Validator checks a rendered document against the required-section and
// required-evidence schema.
type Validator struct {
	minCodeBlocks int
	analyzer      codeintel.Analyzer
}

// NewValidator returns a Validator. A nil analyzer disables syntax warnings.
func NewValidator(cfg Config, analyzer codeintel.Analyzer) *Validator {
	return &Validator{minCodeBlocks: cfg.MinCodeBlocks, analyzer: analyzer}
}

// Validate runs every check over doc.
func (v *Validator) Validate(doc SynthesizedDocument) ValidationResult {
	var res ValidationResult

	for _, id := range requiredSections {
		sec, ok := doc.Section(id)
		if !ok || (sec.Empty && !sec.Placeholder) {
			res.MissingSections = append(res.MissingSections, id)
		}
	}

	var (
		content []RenderedSection
		blocks  int
	)
	for _, sec := range doc.Sections {
		if sec.ID == SectionAppendix {
			continue
		}
		content = append(content, sec)

		fences, _ := extractFences(strings.Split(sec.Body, "\n"))
		for i, f := range fences {
			if isPlaceholderCode(f.content) {
				continue
			}
			blocks++
			if v.analyzer == nil {
				continue
			}
			if r := v.analyzer.Analyze(f.lang, f.content); r.Parsed && r.SyntaxError {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s: %s code sample %d does not parse", sec.ID, f.lang, i+1))
			}
		}

		for _, ac := range acceptanceCriteria(sec.Body) {
			if !wellFormedCriterion(ac) {
				res.Issues = append(res.Issues, Issue{
					Check:   CheckAcceptanceCriteria,
					Section: sec.ID,
					Message: fmt.Sprintf("acceptance criterion is not Given/When/Then: %q", ac),
				})
			}
		}

		if marker := placeholderMarker(sec.Body); marker != "" {
			res.Issues = append(res.Issues, Issue{
				Check:   CheckPlaceholderText,
				Section: sec.ID,
				Message: fmt.Sprintf("placeholder marker %q outside the appendix", marker),
			})
		}
	}

	if blocks < v.minCodeBlocks {
		res.Issues = append(res.Issues, Issue{
			Check:   CheckCodeEvidence,
			Message: fmt.Sprintf("found %d code samples outside the appendix, need at least %d", blocks, v.minCodeBlocks),
		})
	}

	for _, ci := range CheckCoherence(content) {
		res.Warnings = append(res.Warnings, ci.Message)
	}

	res.IsValid = len(res.MissingSections) == 0 && len(res.Issues) == 0
	return res
}

// acceptanceCriteria extracts the list items that follow an
// "Acceptance criteria:" line.
func acceptanceCriteria(body string) []string {
	var (
		out []string
		in  bool
	)
	for _, line := range strings.Split(body, "\n") {
		text := strings.TrimSpace(line)
		switch {
		case acLabelRe.MatchString(text):
			in = true
		case in && strings.HasPrefix(text, "- "):
			out = append(out, strings.TrimPrefix(text, "- "))
		default:
			in = false
		}
	}
	return out
}

// wellFormedCriterion reports whether ac names a Given, When and Then step.
func wellFormedCriterion(ac string) bool {
	return givenRe.MatchString(ac) && whenRe.MatchString(ac) && thenRe.MatchString(ac)
}
