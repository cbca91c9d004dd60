package synthesis

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTitle is used when the engine is not given a document title.
const DefaultTitle = "Synthesized Plan"

// requiredSections must carry content for a document to be complete.
var requiredSections = []SectionID{
	SectionContext,
	SectionPlanning,
	SectionArchitecture,
	SectionTests,
	SectionInterface,
	SectionSecurity,
}

var sectionTitles = map[SectionID]string{
	SectionContext:      "Context",
	SectionPlanning:     "Planning",
	SectionArchitecture: "Architecture",
	SectionTests:        "Tests",
	SectionInterface:    "Interface",
	SectionSecurity:     "Security",
	SectionAppendix:     "Appendix",
	SectionChecklist:    "Completion Checklist",
	SectionMetrics:      "Metrics",
}

// sectionOwners names the role expected to supply each required section.
var sectionOwners = map[SectionID]Role{
	SectionContext:      RoleProductOwner,
	SectionPlanning:     RoleProjectManager,
	SectionArchitecture: RoleArchitect,
	SectionTests:        RoleQA,
	SectionInterface:    RoleUXDesigner,
	SectionSecurity:     RoleSecurity,
}

var areaTitles = map[Area]string{
	AreaAPI:    "API",
	AreaSchema: "Schema",
	AreaUI:     "UI",
	AreaTest:   "Test",
	AreaInfra:  "Infrastructure",
}

var categoryTitles = map[TestCategory]string{
	TestUnit:        "Unit",
	TestIntegration: "Integration",
	TestE2E:         "End-to-end",
	TestPerformance: "Performance",
	TestSecurity:    "Security",
}

// Formatter renders a MergedDocument. It holds no state beyond its
// settings, and Render is a pure function of its arguments.
type Formatter struct {
	title         string
	minCodeBlocks int
}

// NewFormatter returns a Formatter titling documents with title.
func NewFormatter(title string, cfg Config) *Formatter {
	if title == "" {
		title = DefaultTitle
	}
	return &Formatter{title: title, minCodeBlocks: cfg.MinCodeBlocks}
}

// Render produces the ordered document. Sections listed in patches that have
// no contributor data receive the refinement label.
func (f *Formatter) Render(m MergedDocument, patches map[SectionID]bool) SynthesizedDocument {
	doc := SynthesizedDocument{
		Title:                f.title,
		IncludedContributors: append([]string(nil), m.Included...),
		MissingContributors:  append([]Role(nil), m.Missing...),
	}

	build := map[SectionID]func(MergedDocument) (string, []SectionKey){
		SectionContext:      renderContext,
		SectionPlanning:     renderPlanning,
		SectionArchitecture: renderArchitecture,
		SectionTests:        renderTests,
		SectionInterface:    renderInterface,
		SectionSecurity:     renderSecurity,
	}

	for _, id := range requiredSections {
		body, keys := build[id](m)
		sec := RenderedSection{ID: id, Title: sectionTitles[id], Sources: sectionSources(m, keys)}

		var parts []string
		if owner := sectionOwners[id]; !m.HasRole(owner) {
			parts = append(parts, "source missing: "+string(owner))
		}
		if body == "" {
			sec.Empty = true
			if patches[id] {
				sec.Placeholder = true
				parts = append(parts, RefinementLabel)
			} else if len(parts) == 0 {
				parts = append(parts, "No contributor supplied this section.")
			}
		} else {
			parts = append(parts, body)
		}
		sec.Body = strings.Join(parts, "\n\n")
		doc.Sections = append(doc.Sections, sec)
	}

	doc.Sections = append(doc.Sections, renderAppendix(m))
	doc.Sections = append(doc.Sections, f.renderChecklist(m, doc.Sections))
	doc.Sections = append(doc.Sections, renderMetrics(m))
	return doc
}

func sectionSources(m MergedDocument, keys []SectionKey) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range keys {
		for _, id := range m.Sources[k] {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func from(id string) string {
	if id == "" {
		return ""
	}
	return " _(from " + id + ")_"
}

func renderContext(m MergedDocument) (string, []SectionKey) {
	if m.Context == nil {
		return "", nil
	}
	return m.Context.Text, []SectionKey{KeyContext}
}

func renderInterface(m MergedDocument) (string, []SectionKey) {
	if m.Interface == nil {
		return "", nil
	}
	return m.Interface.Text, []SectionKey{KeyInterface}
}

func renderPlanning(m MergedDocument) (string, []SectionKey) {
	var (
		b    strings.Builder
		keys []SectionKey
	)
	if m.Timeline != nil {
		fmt.Fprintf(&b, "**Timeline:** %s\n", m.Timeline)
		keys = append(keys, KeyTimeline)
	}
	if m.Priority != nil {
		fmt.Fprintf(&b, "**Priority:** %s\n", m.Priority.Level)
		keys = append(keys, KeyPriority)
	}
	if len(m.Stories) > 0 {
		keys = append(keys, KeyUserStories)
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("### User Stories\n")
		for i, s := range m.Stories {
			fmt.Fprintf(&b, "\n#### %d. %s%s\n", i+1, s.Title, from(s.Source))
			if s.Body != "" {
				b.WriteString("\n" + s.Body + "\n")
			}
			if len(s.AcceptanceCriteria) > 0 {
				b.WriteString("\nAcceptance criteria:\n")
				for _, ac := range s.AcceptanceCriteria {
					b.WriteString("- " + ac + "\n")
				}
			}
		}
	}
	return strings.TrimSpace(b.String()), keys
}

func writeBlock(b *strings.Builder, blk CodeBlock) {
	b.WriteString("```" + blk.Language + "\n")
	b.WriteString(blk.Content)
	if !strings.HasSuffix(blk.Content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	if blk.Source != "" {
		b.WriteString("_from " + blk.Source + "_\n")
	}
}

func renderArchitecture(m MergedDocument) (string, []SectionKey) {
	var (
		b    strings.Builder
		keys []SectionKey
	)
	if m.Approach != nil {
		keys = append(keys, KeyTechnicalApproach)
		if m.Approach.Narrative != "" {
			b.WriteString(m.Approach.Narrative + "\n")
		}
		for _, blk := range m.Approach.CodeBlocks {
			b.WriteString("\n")
			writeBlock(&b, blk)
		}
	}
	if len(m.Code) > 0 {
		keys = append(keys, KeyCode)
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("### Code Samples\n")
		for _, area := range areaOrder {
			var group []CodeBlock
			for _, blk := range m.Code {
				if blk.Area == area {
					group = append(group, blk)
				}
			}
			if len(group) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n#### %s\n", areaTitles[area])
			for _, blk := range group {
				b.WriteString("\n")
				writeBlock(&b, blk)
			}
		}
	}
	return strings.TrimSpace(b.String()), keys
}

func renderTests(m MergedDocument) (string, []SectionKey) {
	if m.Tests.Len() == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, cat := range testCategoryOrder {
		cases := m.Tests.Category(cat)
		if len(cases) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s\n", categoryTitles[cat])
		for _, tc := range cases {
			b.WriteString("- " + tc.Scenario + from(tc.Source) + "\n")
		}
	}
	return strings.TrimSpace(b.String()), []SectionKey{KeyTests}
}

func renderSecurity(m MergedDocument) (string, []SectionKey) {
	if len(m.Security) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, req := range m.Security {
		b.WriteString("- " + req.Text + from(req.Source) + "\n")
	}
	return strings.TrimSpace(b.String()), []SectionKey{KeySecurity}
}

func renderAppendix(m MergedDocument) RenderedSection {
	sec := RenderedSection{ID: SectionAppendix, Title: sectionTitles[SectionAppendix]}
	var b strings.Builder
	seen := make(map[string]bool)
	addSource := func(id string) {
		if !seen[id] {
			seen[id] = true
			sec.Sources = append(sec.Sources, id)
		}
	}

	if len(m.Appendix) > 0 {
		b.WriteString("### Stub Code\n")
		for _, blk := range m.Appendix {
			b.WriteString("\n")
			writeBlock(&b, blk)
			addSource(blk.Source)
		}
	}
	if len(m.Notes) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("### Unstructured Notes\n")
		for _, n := range m.Notes {
			fmt.Fprintf(&b, "\n**%s** (%s)\n\n%s\n", n.ContributorID, n.Role, n.Text)
			addSource(n.ContributorID)
		}
	}

	sec.Body = strings.TrimSpace(b.String())
	if sec.Body == "" {
		sec.Empty = true
		sec.Body = "No appendix entries."
	}
	return sec
}

// codeEvidence counts non-placeholder samples rendered outside the appendix.
func codeEvidence(m MergedDocument) int {
	n := len(m.Code)
	if m.Approach != nil {
		n += len(m.Approach.CodeBlocks)
	}
	return n
}

func (f *Formatter) renderChecklist(m MergedDocument, sections []RenderedSection) RenderedSection {
	var b strings.Builder
	check := func(ok bool, label string) {
		mark := " "
		if ok {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", mark, label)
	}

	for _, s := range sections {
		if s.ID == SectionAppendix {
			continue
		}
		check(!s.Empty && !s.Placeholder, s.Title)
	}
	check(codeEvidence(m) >= f.minCodeBlocks,
		"At least "+strconv.Itoa(f.minCodeBlocks)+" code samples outside the appendix")

	wellFormed := true
	for _, s := range m.Stories {
		for _, ac := range s.AcceptanceCriteria {
			if !wellFormedCriterion(ac) {
				wellFormed = false
			}
		}
	}
	check(wellFormed, "Acceptance criteria follow Given/When/Then")

	return RenderedSection{
		ID:    SectionChecklist,
		Title: sectionTitles[SectionChecklist],
		Body:  strings.TrimSpace(b.String()),
	}
}

func renderMetrics(m MergedDocument) RenderedSection {
	var b strings.Builder
	fmt.Fprintf(&b, "- Contributors included: %d", len(m.Included))
	if len(m.Included) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(m.Included, ", "))
	}
	b.WriteString("\n")

	missing := "none"
	if len(m.Missing) > 0 {
		roles := make([]string, 0, len(m.Missing))
		for _, r := range m.Missing {
			roles = append(roles, string(r))
		}
		missing = strings.Join(roles, ", ")
	}
	fmt.Fprintf(&b, "- Contributors missing: %s\n", missing)

	fmt.Fprintf(&b, "- Conflicts resolved: %d\n", len(m.Conflicts))
	for _, c := range m.Conflicts {
		fmt.Fprintf(&b, "  - %s: %s\n", c.FieldKey, c.Policy)
	}
	fmt.Fprintf(&b, "- User stories: %d\n", len(m.Stories))
	fmt.Fprintf(&b, "- Test scenarios: %d\n", m.Tests.Len())
	fmt.Fprintf(&b, "- Code samples: %d (%d stub in appendix)\n", codeEvidence(m), len(m.Appendix))
	fmt.Fprintf(&b, "- Unstructured notes: %d\n", len(m.Notes))

	return RenderedSection{
		ID:    SectionMetrics,
		Title: sectionTitles[SectionMetrics],
		Body:  strings.TrimSpace(b.String()),
	}
}

// Markdown renders the whole document as a single markdown string.
func (d SynthesizedDocument) Markdown() string {
	var b strings.Builder
	b.WriteString("# " + d.Title + "\n")
	for _, s := range d.Sections {
		b.WriteString("\n## " + s.Title + "\n\n")
		b.WriteString(s.Body)
		b.WriteString("\n")
	}
	return b.String()
}
