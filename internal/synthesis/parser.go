package synthesis

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// sectionAliases maps normalized heading text to a section key.
var sectionAliases = map[string]SectionKey{
	"context":                 KeyContext,
	"overview":                KeyContext,
	"background":              KeyContext,
	"summary":                 KeyContext,
	"problem statement":       KeyContext,
	"business context":        KeyContext,
	"user stories":            KeyUserStories,
	"stories":                 KeyUserStories,
	"user story":              KeyUserStories,
	"timeline":                KeyTimeline,
	"estimate":                KeyTimeline,
	"estimation":              KeyTimeline,
	"time estimate":           KeyTimeline,
	"effort estimate":         KeyTimeline,
	"effort":                  KeyTimeline,
	"priority":                KeyPriority,
	"technical approach":      KeyTechnicalApproach,
	"architecture":            KeyTechnicalApproach,
	"approach":                KeyTechnicalApproach,
	"technical design":        KeyTechnicalApproach,
	"design":                  KeyTechnicalApproach,
	"tests":                   KeyTests,
	"testing":                 KeyTests,
	"test plan":               KeyTests,
	"test strategy":           KeyTests,
	"test cases":              KeyTests,
	"interface":               KeyInterface,
	"user interface":          KeyInterface,
	"ux":                      KeyInterface,
	"ui":                      KeyInterface,
	"ux design":               KeyInterface,
	"ui design":               KeyInterface,
	"security":                KeySecurity,
	"security requirements":   KeySecurity,
	"security considerations": KeySecurity,
	"code":                    KeyCode,
	"code samples":            KeyCode,
	"code examples":           KeyCode,
	"implementation":          KeyCode,
	"examples":                KeyCode,
}

// testCategoryAliases maps normalized sub-heading text inside a tests
// section to a category.
var testCategoryAliases = map[string]TestCategory{
	"unit":              TestUnit,
	"unit tests":        TestUnit,
	"integration":       TestIntegration,
	"integration tests": TestIntegration,
	"e2e":               TestE2E,
	"e2e tests":         TestE2E,
	"end to end":        TestE2E,
	"end to end tests":  TestE2E,
	"performance":       TestPerformance,
	"performance tests": TestPerformance,
	"load":              TestPerformance,
	"load tests":        TestPerformance,
	"security":          TestSecurity,
	"security tests":    TestSecurity,
}

var (
	headingRe    = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+(.+?)\s*#*\s*$`)
	boldLabelRe  = regexp.MustCompile(`^\s*\*\*([^*]+?)\*\*\s*:?\s*$`)
	labelRe      = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 /&-]{0,40}?)\s*:\s*(.*)$`)
	fenceRe      = regexp.MustCompile("^\\s*(```+|~~~+)\\s*(.*)$")
	bulletRe     = regexp.MustCompile(`^(\s*)(?:[-*+]|\d+[.)])\s+(.+)$`)
	numPrefixRe  = regexp.MustCompile(`^\s*(?:\d+[.)]|[ivx]+\.)\s*`)
	nonLetterRe  = regexp.MustCompile(`[^a-z0-9]+`)
	timelineRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)(?:\s*(?:-|–|to)\s*(\d+(?:\.\d+)?))?\s*(hours?|hrs?|days?|weeks?|wks?|sprints?)\b`)
	priorityRe   = regexp.MustCompile(`(?i)\b(critical|high|medium|low|p[0-3])\b`)
	criterionRe  = regexp.MustCompile(`(?i)^(given|scenario)\b`)
	continueRe   = regexp.MustCompile(`(?i)^(when|then|and|but)\b`)
	acLabelRe    = regexp.MustCompile(`(?i)^\**acceptance criteria\**\s*:?\s*\**$`)
	labelPrefix  = regexp.MustCompile(`(?i)^\s*(?:(?:user\s+)?story|us|scenario|test|tc)[\s#-]*\d*\s*[:.)-]\s*`)
	schemaCodeRe = regexp.MustCompile(`(?i)\b(create|alter)\s+table\b`)
	testCodeRe   = regexp.MustCompile(`func Test\w*\(|\bdescribe\(|\bit\(|def test_|#\[test\]|@Test\b`)
)

// Parser converts raw contributor text into typed sections. It holds no
// mutable state, so one Parser may serve concurrent calls.
type Parser struct {
	now func() time.Time
}

// NewParser returns a Parser stamping outputs with the wall clock.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// segment is a run of lines under one section marker.
type segment struct {
	key     SectionKey // empty when the marker was not recognized
	heading string
	level   int // heading depth; 0 for label markers and the preamble
	lines   []string
}

// Parse converts one contribution. It never fails: text it cannot place is
// kept verbatim under KeyUnstructured.
func (p *Parser) Parse(c Contribution) ContributorOutput {
	out := ContributorOutput{
		ContributorID:  c.ContributorID,
		Role:           c.Role,
		RawText:        c.RawText,
		ReceivedAt:     p.now(),
		ParsedSections: make(map[SectionKey]SectionContent),
	}

	for _, seg := range splitSegments(c.RawText) {
		if seg.key == "" {
			addNote(out.ParsedSections, renderSegment(seg))
			continue
		}
		parseSegment(out.ParsedSections, seg)
	}
	return out
}

// splitSegments cuts text at recognized section markers. Markers inside
// fenced code are ignored.
func splitSegments(text string) []segment {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	segs := []segment{{}}
	inFence := false

	for _, line := range lines {
		cur := &segs[len(segs)-1]
		if fenceRe.MatchString(line) {
			inFence = !inFence
			cur.lines = append(cur.lines, line)
			continue
		}
		if inFence {
			cur.lines = append(cur.lines, line)
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			title := m[2]
			// Only headings nested under the tests heading name a category;
			// a sibling such as "## Security" opens its own section.
			nested := level > cur.level
			if key, ok := lookupSection(title); ok && !(nested && isTestCategory(cur.key, title)) {
				segs = append(segs, segment{key: key, heading: title, level: level})
				continue
			}
			// Unrecognized headings nest inside a recognized section when
			// deeper; otherwise they open an unstructured segment.
			if cur.key != "" && (cur.level == 0 || nested) {
				cur.lines = append(cur.lines, line)
				continue
			}
			segs = append(segs, segment{heading: title, level: level})
			continue
		}

		if m := boldLabelRe.FindStringSubmatch(line); m != nil {
			if key, ok := lookupSection(m[1]); ok && !isTestCategory(cur.key, m[1]) {
				segs = append(segs, segment{key: key, heading: m[1]})
				continue
			}
		}

		if !bulletRe.MatchString(line) {
			if m := labelRe.FindStringSubmatch(line); m != nil {
				if key, ok := lookupSection(m[1]); ok && !isTestCategory(cur.key, m[1]) {
					seg := segment{key: key, heading: m[1]}
					if rest := strings.TrimSpace(m[2]); rest != "" {
						seg.lines = append(seg.lines, rest)
					}
					segs = append(segs, seg)
					continue
				}
			}
		}

		cur.lines = append(cur.lines, line)
	}
	return segs
}

// normalizeHeading lowercases heading text and strips numbering, emphasis
// and punctuation.
func normalizeHeading(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	s = numPrefixRe.ReplaceAllString(strings.ToLower(s), "")
	s = nonLetterRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, " section")
}

func lookupSection(heading string) (SectionKey, bool) {
	k, ok := sectionAliases[normalizeHeading(heading)]
	return k, ok
}

// isTestCategory reports whether a marker inside a tests section names a
// test category rather than a new section.
func isTestCategory(current SectionKey, heading string) bool {
	if current != KeyTests {
		return false
	}
	_, ok := testCategoryAliases[normalizeHeading(heading)]
	return ok
}

// renderSegment reproduces a segment as text, heading included.
func renderSegment(seg segment) string {
	var b strings.Builder
	if seg.heading != "" {
		if seg.level > 0 {
			b.WriteString(strings.Repeat("#", seg.level) + " ")
		}
		b.WriteString(seg.heading)
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(seg.lines, "\n"))
	return strings.TrimSpace(b.String())
}

// fence is a fenced code block extracted from a segment.
type fence struct {
	lang    string
	area    string
	content string
}

// extractFences splits lines into fenced blocks and remaining prose.
func extractFences(lines []string) ([]fence, []string) {
	var (
		fences []fence
		prose  []string
		body   []string
		cur    *fence
	)
	for _, line := range lines {
		m := fenceRe.FindStringSubmatch(line)
		if cur == nil {
			if m != nil {
				cur = parseFenceInfo(m[2])
				body = body[:0]
				continue
			}
			prose = append(prose, line)
			continue
		}
		if m != nil && strings.TrimSpace(m[2]) == "" {
			cur.content = strings.Join(body, "\n")
			fences = append(fences, *cur)
			cur = nil
			continue
		}
		body = append(body, line)
	}
	if cur != nil {
		// Unterminated fence: keep what we have.
		cur.content = strings.Join(body, "\n")
		fences = append(fences, *cur)
	}
	return fences, prose
}

// parseFenceInfo reads "go area=schema" style info strings.
func parseFenceInfo(info string) *fence {
	f := &fence{}
	for i, field := range strings.Fields(info) {
		if v, ok := strings.CutPrefix(field, "area="); ok {
			f.area = strings.ToLower(v)
			continue
		}
		if i == 0 {
			f.lang = strings.ToLower(strings.Trim(field, "{}."))
		}
	}
	return f
}

// inferArea classifies a code sample by responsibility.
func inferArea(lang, hint, content string, fallback Area) Area {
	for _, a := range areaOrder {
		if string(a) == hint {
			return a
		}
	}
	switch lang {
	case "sql", "ddl", "prisma", "postgresql", "mysql":
		return AreaSchema
	case "html", "css", "scss", "jsx", "tsx", "vue", "svelte":
		return AreaUI
	case "dockerfile", "docker", "yaml", "yml", "hcl", "terraform", "tf", "sh", "bash", "shell", "makefile":
		return AreaInfra
	}
	switch {
	case schemaCodeRe.MatchString(content):
		return AreaSchema
	case testCodeRe.MatchString(content):
		return AreaTest
	}
	return fallback
}

func toCodeBlock(f fence, fallback Area) CodeBlock {
	return CodeBlock{
		Language:      f.lang,
		Area:          inferArea(f.lang, f.area, f.content, fallback),
		Content:       f.content,
		IsPlaceholder: isPlaceholderCode(f.content),
	}
}

// parseSegment dispatches a recognized segment to its typed parser and
// stores the result. Anything the typed parser cannot use becomes a note.
func parseSegment(sections map[SectionKey]SectionContent, seg segment) {
	fences, prose := extractFences(seg.lines)

	if seg.key == KeyTechnicalApproach {
		approach := TechnicalApproach{Narrative: joinProse(prose)}
		for _, f := range fences {
			approach.CodeBlocks = append(approach.CodeBlocks, toCodeBlock(f, AreaAPI))
		}
		if approach.Narrative != "" || len(approach.CodeBlocks) > 0 {
			addSection(sections, KeyTechnicalApproach, approach)
		}
		return
	}

	fallback := AreaAPI
	if seg.key == KeyTests {
		fallback = AreaTest
	}
	if len(fences) > 0 {
		samples := CodeSamples{}
		for _, f := range fences {
			samples.Blocks = append(samples.Blocks, toCodeBlock(f, fallback))
		}
		addSection(sections, KeyCode, samples)
	}

	var (
		content  SectionContent
		leftover []string
	)
	switch seg.key {
	case KeyContext, KeyInterface:
		if text := joinProse(prose); text != "" {
			content = Narrative{Text: text}
		}
	case KeyTimeline:
		content, leftover = parseTimeline(prose)
	case KeyPriority:
		content, leftover = parsePriority(prose)
	case KeyUserStories:
		content, leftover = parseStories(prose)
	case KeyTests:
		content, leftover = parseTests(prose)
	case KeySecurity:
		content, leftover = parseSecurity(prose)
	case KeyCode:
		leftover = prose
	}

	if content != nil {
		addSection(sections, seg.key, content)
	}
	if text := joinProse(leftover); text != "" {
		addNote(sections, seg.heading+":\n"+text)
	}
}

// joinProse trims surrounding blank lines and joins.
func joinProse(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func parseTimeline(lines []string) (SectionContent, []string) {
	text := strings.Join(lines, "\n")
	m := timelineRe.FindStringSubmatch(text)
	if m == nil {
		return nil, lines
	}
	raw := m[1]
	if m[2] != "" {
		raw = m[2] // ranges resolve to their upper bound
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, lines
	}
	return TimelineEstimate{Value: v, Unit: normalizeUnit(m[3])}, nil
}

func normalizeUnit(u string) TimeUnit {
	u = strings.ToLower(u)
	switch {
	case strings.HasPrefix(u, "h"):
		return UnitHours
	case strings.HasPrefix(u, "w"):
		return UnitWeeks
	case strings.HasPrefix(u, "s"):
		return UnitSprints
	default:
		return UnitDays
	}
}

func parsePriority(lines []string) (SectionContent, []string) {
	m := priorityRe.FindStringSubmatch(strings.Join(lines, "\n"))
	if m == nil {
		return nil, lines
	}
	switch strings.ToLower(m[1]) {
	case "critical", "p0":
		return PriorityLevel{Level: PriorityCritical}, nil
	case "high", "p1":
		return PriorityLevel{Level: PriorityHigh}, nil
	case "medium", "p2":
		return PriorityLevel{Level: PriorityMedium}, nil
	default:
		return PriorityLevel{Level: PriorityLow}, nil
	}
}

// stripEmphasis removes markdown bold markers.
func stripEmphasis(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

func parseStories(lines []string) (SectionContent, []string) {
	var (
		list      UserStoryList
		leftover  []string
		cur       *UserStory
		body      []string
		criterion string
	)
	closeCriterion := func() {
		if cur != nil && criterion != "" {
			cur.AcceptanceCriteria = append(cur.AcceptanceCriteria, criterion)
		}
		criterion = ""
	}
	closeStory := func() {
		closeCriterion()
		if cur != nil {
			cur.Body = joinProse(body)
			list.Stories = append(list.Stories, *cur)
		}
		cur, body = nil, nil
	}

	for _, line := range lines {
		text := strings.TrimSpace(line)
		item := text
		topLevel := false
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			item = strings.TrimSpace(m[2])
			topLevel = len(m[1]) < 2
		} else if m := headingRe.FindStringSubmatch(line); m != nil {
			item = m[2]
			topLevel = true
		}
		plain := stripEmphasis(item)

		switch {
		case text == "":
			closeCriterion()
			if cur != nil {
				body = append(body, "")
			}
		case acLabelRe.MatchString(text):
			closeCriterion()
		case criterionRe.MatchString(plain):
			if cur == nil {
				leftover = append(leftover, line)
				continue
			}
			// A Given directly under a Scenario line continues it.
			if strings.HasPrefix(strings.ToLower(criterion), "scenario") && !strings.Contains(strings.ToLower(criterion), "given") {
				criterion += " " + plain
				continue
			}
			closeCriterion()
			criterion = plain
		case continueRe.MatchString(plain) && criterion != "":
			criterion += " " + plain
		case topLevel:
			closeStory()
			cur = &UserStory{Title: plain}
		case cur != nil:
			body = append(body, text)
		default:
			leftover = append(leftover, line)
		}
	}
	closeStory()

	if len(list.Stories) == 0 {
		return nil, lines
	}
	return list, leftover
}

// classifyTest assigns a category to a scenario without an explicit one.
func classifyTest(scenario string) TestCategory {
	s := strings.ToLower(scenario)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("end-to-end", "end to end", "e2e", "browser", "user journey"):
		return TestE2E
	case has("load", "latency", "throughput", "performance", "stress"):
		return TestPerformance
	case has("injection", "xss", "csrf", "penetration", "auth bypass", "security"):
		return TestSecurity
	case has("integration", "database", "contract"):
		return TestIntegration
	default:
		return TestUnit
	}
}

func parseTests(lines []string) (SectionContent, []string) {
	var (
		suite    TestSuite
		leftover []string
		category TestCategory
	)
	for _, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if m := headingRe.FindStringSubmatch(line); m != nil {
			if c, ok := testCategoryAliases[normalizeHeading(m[2])]; ok {
				category = c
				continue
			}
		}
		label := strings.TrimSuffix(stripEmphasis(text), ":")
		if c, ok := testCategoryAliases[normalizeHeading(label)]; ok && !bulletRe.MatchString(line) {
			category = c
			continue
		}
		m := bulletRe.FindStringSubmatch(line)
		if m == nil {
			leftover = append(leftover, line)
			continue
		}
		scenario := stripEmphasis(m[2])
		if scenario == "" {
			continue
		}
		c := category
		if c == "" {
			c = classifyTest(scenario)
		}
		suite.add(c, TestCase{Scenario: scenario})
	}
	if suite.Len() == 0 {
		return nil, lines
	}
	return suite, leftover
}

func parseSecurity(lines []string) (SectionContent, []string) {
	var (
		bullets []SecurityRequirement
		plain   []SecurityRequirement
	)
	for _, line := range lines {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			if t := stripEmphasis(m[2]); t != "" {
				bullets = append(bullets, SecurityRequirement{Text: t})
			}
			continue
		}
		if t := stripEmphasis(line); t != "" {
			plain = append(plain, SecurityRequirement{Text: t})
		}
	}
	switch {
	case len(bullets) > 0:
		var leftover []string
		for _, p := range plain {
			leftover = append(leftover, p.Text)
		}
		return SecurityRequirements{Items: bullets}, leftover
	case len(plain) > 0:
		return SecurityRequirements{Items: plain}, nil
	default:
		return nil, nil
	}
}

// addSection stores content, combining with an earlier value of the same
// key from the same contributor.
func addSection(sections map[SectionKey]SectionContent, key SectionKey, content SectionContent) {
	prev, ok := sections[key]
	if !ok {
		sections[key] = content
		return
	}
	switch p := prev.(type) {
	case Narrative:
		sections[key] = Narrative{Text: p.Text + "\n\n" + content.(Narrative).Text}
	case UserStoryList:
		p.Stories = append(p.Stories, content.(UserStoryList).Stories...)
		sections[key] = p
	case TestSuite:
		n := content.(TestSuite)
		for _, c := range testCategoryOrder {
			for _, tc := range n.Category(c) {
				p.add(c, tc)
			}
		}
		sections[key] = p
	case SecurityRequirements:
		p.Items = append(p.Items, content.(SecurityRequirements).Items...)
		sections[key] = p
	case CodeSamples:
		p.Blocks = append(p.Blocks, content.(CodeSamples).Blocks...)
		sections[key] = p
	case TechnicalApproach:
		n := content.(TechnicalApproach)
		p.Narrative = strings.TrimSpace(p.Narrative + "\n\n" + n.Narrative)
		p.CodeBlocks = append(p.CodeBlocks, n.CodeBlocks...)
		sections[key] = p
	default:
		// Scalars keep the first value; the repeat is preserved as a note.
		addNote(sections, string(key)+": "+Describe(content))
	}
}

func addNote(sections map[SectionKey]SectionContent, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	notes, _ := sections[KeyUnstructured].(UnstructuredNotes)
	notes.Fragments = append(notes.Fragments, text)
	sections[KeyUnstructured] = notes
}

// SemanticKey normalizes a story title or test scenario for deduplication.
func SemanticKey(s string) string {
	s = stripEmphasis(s)
	s = labelPrefix.ReplaceAllString(s, "")
	s = nonLetterRe.ReplaceAllString(strings.ToLower(s), " ")
	return strings.TrimSpace(s)
}
