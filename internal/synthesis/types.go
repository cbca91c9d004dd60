package synthesis

import (
	"strconv"
	"time"
)

// Role identifies the specialty of a contributor.
type Role string

const (
	RoleProductOwner   Role = "product_owner"
	RoleProjectManager Role = "project_manager"
	RoleArchitect      Role = "senior_architect"
	RoleSecurity       Role = "security_expert"
	RoleQA             Role = "qa_engineer"
	RoleUXDesigner     Role = "ux_designer"
)

// SectionKey names a canonical field extracted from contributor text.
type SectionKey string

const (
	KeyContext           SectionKey = "context"
	KeyUserStories       SectionKey = "user_stories"
	KeyTimeline          SectionKey = "timeline"
	KeyPriority          SectionKey = "priority"
	KeyTechnicalApproach SectionKey = "technical_approach"
	KeyTests             SectionKey = "tests"
	KeyInterface         SectionKey = "interface"
	KeySecurity          SectionKey = "security"
	KeyCode              SectionKey = "code"

	// KeyUnstructured holds text with no recognizable section marker. It is
	// never merged structurally.
	KeyUnstructured SectionKey = "unstructured_notes"
)

// scalarKeys are resolved to a single value per run; everything else is
// list-shaped and merged.
var scalarKeys = []SectionKey{
	KeyContext, KeyTimeline, KeyPriority, KeyTechnicalApproach, KeyInterface,
}

// IsScalar reports whether k holds one authoritative value per run.
func (k SectionKey) IsScalar() bool {
	for _, s := range scalarKeys {
		if s == k {
			return true
		}
	}
	return false
}

// Contribution is one input tuple handed to the engine by the external
// barrier. A contributor that did not respond is simply absent.
type Contribution struct {
	ContributorID string `json:"contributorId"`
	Role          Role   `json:"role"`
	RawText       string `json:"rawText"`
}

// ContributorOutput is a parsed contribution. It is immutable once returned
// by the parser.
type ContributorOutput struct {
	ContributorID  string
	Role           Role
	RawText        string
	ReceivedAt     time.Time
	ParsedSections map[SectionKey]SectionContent
}

// Structured reports whether at least one typed section was recognized.
func (o ContributorOutput) Structured() bool {
	for k := range o.ParsedSections {
		if k != KeyUnstructured {
			return true
		}
	}
	return false
}

// SectionContent is the tagged variant over every canonical section type.
type SectionContent interface {
	sectionKind() string
}

// Narrative is free prose for sections without internal structure.
type Narrative struct {
	Text string
}

// UserStory is one entry of a UserStoryList.
type UserStory struct {
	Title              string
	Body               string
	AcceptanceCriteria []string
	Source             string // contributor ID when not from the primary role
}

// UserStoryList is the list-shaped stories section.
type UserStoryList struct {
	Stories []UserStory
}

// TimeUnit is the unit of a TimelineEstimate.
type TimeUnit string

const (
	UnitHours   TimeUnit = "hours"
	UnitDays    TimeUnit = "days"
	UnitWeeks   TimeUnit = "weeks"
	UnitSprints TimeUnit = "sprints"
)

// daysPer converts one unit into working days.
var daysPer = map[TimeUnit]float64{
	UnitHours:   1.0 / 8.0,
	UnitDays:    1,
	UnitWeeks:   5,
	UnitSprints: 10,
}

// TimelineEstimate is a single effort estimate.
type TimelineEstimate struct {
	Value float64
	Unit  TimeUnit
}

// Days returns the estimate in working days.
func (t TimelineEstimate) Days() float64 {
	f, ok := daysPer[t.Unit]
	if !ok {
		f = 1
	}
	return t.Value * f
}

func (t TimelineEstimate) String() string {
	return strconv.FormatFloat(t.Value, 'f', -1, 64) + " " + string(t.Unit)
}

// Priority is an ordered priority band.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Score maps a priority band to its integer score (critical=4 … low=1).
func (p Priority) Score() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// PriorityLevel is the scalar priority section.
type PriorityLevel struct {
	Level Priority
}

// Area is the responsibility area a code sample belongs to.
type Area string

const (
	AreaAPI    Area = "api"
	AreaSchema Area = "schema"
	AreaUI     Area = "ui"
	AreaTest   Area = "test"
	AreaInfra  Area = "infra"
)

// areaOrder is the rendering order of code sample groups.
var areaOrder = []Area{AreaAPI, AreaSchema, AreaUI, AreaTest, AreaInfra}

// CodeBlock is a fenced code sample.
type CodeBlock struct {
	Language      string
	Area          Area
	Content       string
	IsPlaceholder bool
	Source        string
}

// TechnicalApproach is the architecture narrative plus its inline code.
type TechnicalApproach struct {
	Narrative  string
	CodeBlocks []CodeBlock
}

// TestCategory classifies a test scenario.
type TestCategory string

const (
	TestUnit        TestCategory = "unit"
	TestIntegration TestCategory = "integration"
	TestE2E         TestCategory = "e2e"
	TestPerformance TestCategory = "performance"
	TestSecurity    TestCategory = "security"
)

var testCategoryOrder = []TestCategory{TestUnit, TestIntegration, TestE2E, TestPerformance, TestSecurity}

// TestCase is one scenario in a TestSuite.
type TestCase struct {
	Scenario string
	Source   string
}

// TestSuite groups test scenarios by category.
type TestSuite struct {
	Unit        []TestCase
	Integration []TestCase
	E2E         []TestCase
	Performance []TestCase
	Security    []TestCase
}

// Category returns the cases of one category.
func (s TestSuite) Category(c TestCategory) []TestCase {
	switch c {
	case TestUnit:
		return s.Unit
	case TestIntegration:
		return s.Integration
	case TestE2E:
		return s.E2E
	case TestPerformance:
		return s.Performance
	case TestSecurity:
		return s.Security
	}
	return nil
}

func (s *TestSuite) add(c TestCategory, tc TestCase) {
	switch c {
	case TestIntegration:
		s.Integration = append(s.Integration, tc)
	case TestE2E:
		s.E2E = append(s.E2E, tc)
	case TestPerformance:
		s.Performance = append(s.Performance, tc)
	case TestSecurity:
		s.Security = append(s.Security, tc)
	default:
		s.Unit = append(s.Unit, tc)
	}
}

// Len returns the total number of scenarios.
func (s TestSuite) Len() int {
	return len(s.Unit) + len(s.Integration) + len(s.E2E) + len(s.Performance) + len(s.Security)
}

// SecurityRequirement is one requirement line from a contributor.
type SecurityRequirement struct {
	Text   string
	Source string
}

// SecurityRequirements is the list-shaped security section.
type SecurityRequirements struct {
	Items []SecurityRequirement
}

// CodeSamples is the list-shaped code section.
type CodeSamples struct {
	Blocks []CodeBlock
}

// UnstructuredNotes keeps fragments with no recognizable section marker,
// verbatim.
type UnstructuredNotes struct {
	Fragments []string
}

func (Narrative) sectionKind() string            { return "narrative" }
func (UserStoryList) sectionKind() string        { return "user_story_list" }
func (TimelineEstimate) sectionKind() string     { return "timeline_estimate" }
func (PriorityLevel) sectionKind() string        { return "priority_level" }
func (TechnicalApproach) sectionKind() string    { return "technical_approach" }
func (TestSuite) sectionKind() string            { return "test_suite" }
func (SecurityRequirements) sectionKind() string { return "security_requirements" }
func (CodeSamples) sectionKind() string          { return "code_samples" }
func (UnstructuredNotes) sectionKind() string    { return "unstructured_notes" }

// Candidate is one contributor's value for a conflicting field.
type Candidate struct {
	ContributorID string
	Role          Role
	Value         SectionContent
}

// Policy names the resolution policy applied to a conflict.
type Policy string

const (
	PolicyWeightedTimeline  Policy = "weighted_timeline"
	PolicyArchitectSecurity Policy = "architect_with_security"
	PolicyWeightedPriority  Policy = "weighted_priority"
	PolicySecurityLiteral   Policy = "security_literal"
	PolicyMostSpecific      Policy = "most_specific"
)

// ConflictRecord captures a disagreement between contributors. The detector
// leaves Policy and Resolved empty; the resolver returns a finalized copy.
type ConflictRecord struct {
	FieldKey   SectionKey
	Candidates []Candidate
	Policy     Policy
	Resolved   SectionContent

	// Winner is the contributor whose value was selected. It is empty when
	// the resolved value was computed from several candidates.
	Winner string
}

// IsResolved reports whether the resolver has finalized the record.
func (c ConflictRecord) IsResolved() bool {
	return c.Policy != "" && c.Resolved != nil
}

// SectionID identifies a rendered section of the output document.
type SectionID string

const (
	SectionContext      SectionID = "context"
	SectionPlanning     SectionID = "planning"
	SectionArchitecture SectionID = "architecture"
	SectionTests        SectionID = "tests"
	SectionInterface    SectionID = "interface"
	SectionSecurity     SectionID = "security"
	SectionAppendix     SectionID = "appendix"
	SectionChecklist    SectionID = "checklist"
	SectionMetrics      SectionID = "metrics"
)

// RenderedSection is one section of the final document.
type RenderedSection struct {
	ID    SectionID
	Title string
	Body  string

	// Empty is set when no contributor supplied data for the section.
	Empty bool

	// Placeholder is set once the enhancement loop has patched the section
	// with a refinement label.
	Placeholder bool

	// Sources lists contributor IDs whose data appears in the section.
	Sources []string
}

// SynthesizedDocument is the single output artifact of a run.
type SynthesizedDocument struct {
	Title                string
	Sections             []RenderedSection
	IncludedContributors []string
	MissingContributors  []Role
	Score                QualityScore
}

// Section returns the rendered section with the given ID.
func (d SynthesizedDocument) Section(id SectionID) (RenderedSection, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return RenderedSection{}, false
}

// QualityScore holds the component scores and their weighted total.
type QualityScore struct {
	Completeness float64 `json:"completeness"`
	CodeQuality  float64 `json:"codeQuality"`
	Clarity      float64 `json:"clarity"`
	Consensus    float64 `json:"consensus"`
	Total        float64 `json:"total"`
}
