package synthesis

// Note is one unstructured fragment kept for the appendix.
type Note struct {
	ContributorID string
	Role          Role
	Text          string
}

// MergedDocument is the canonical structure handed to the formatter: one
// value per scalar key, deduplicated lists, and the bookkeeping needed to
// attribute every entry.
type MergedDocument struct {
	Context   *Narrative
	Interface *Narrative
	Timeline  *TimelineEstimate
	Priority  *PriorityLevel
	Approach  *TechnicalApproach

	Stories  []UserStory
	Tests    TestSuite
	Security []SecurityRequirement

	// Code holds non-placeholder samples in merge order; the formatter
	// groups them by area.
	Code []CodeBlock

	// Appendix holds placeholder samples, excluded from code scoring.
	Appendix []CodeBlock

	Notes []Note

	// Conflicts are the resolved records, including the security override.
	Conflicts []ConflictRecord

	// Sources lists, per key, the contributors whose data was used.
	Sources map[SectionKey][]string

	Present  []Role
	Included []string
	Missing  []Role
}

// HasRole reports whether any contributor of role took part in the run.
func (m MergedDocument) HasRole(role Role) bool {
	for _, r := range m.Present {
		if r == role {
			return true
		}
	}
	return false
}

// primaryRoles names the role whose entries lead each list key.
var primaryRoles = map[SectionKey]Role{
	KeyUserStories: RoleProductOwner,
	KeyTests:       RoleQA,
	KeySecurity:    RoleSecurity,
	KeyCode:        RoleArchitect,
}

// Merge combines parsed outputs and resolved conflicts into one structure.
// It is deterministic in the order of outputs and never modifies them.
func Merge(outputs []ContributorOutput, resolved []ConflictRecord, cfg Config) MergedDocument {
	m := MergedDocument{Sources: make(map[SectionKey][]string)}

	for _, o := range outputs {
		m.Included = append(m.Included, o.ContributorID)
		if !m.HasRole(o.Role) {
			m.Present = append(m.Present, o.Role)
		}
	}
	for _, r := range cfg.ExpectedRoles {
		if !m.HasRole(r) {
			m.Missing = append(m.Missing, r)
		}
	}

	byKey := make(map[SectionKey]ConflictRecord, len(resolved))
	for _, rec := range resolved {
		byKey[rec.FieldKey] = rec
	}
	m.Conflicts = append(m.Conflicts, resolved...)

	scalar := func(key SectionKey) SectionContent {
		cands := candidates(outputs, key)
		if len(cands) == 0 {
			return nil
		}
		if rec, ok := byKey[key]; ok && rec.IsResolved() {
			if rec.Winner != "" {
				m.Sources[key] = []string{rec.Winner}
			} else {
				m.Sources[key] = candidateIDs(cands)
			}
			return rec.Resolved
		}
		m.Sources[key] = candidateIDs(cands)
		return cands[0].Value
	}

	if v, ok := scalar(KeyContext).(Narrative); ok {
		m.Context = &v
	}
	if v, ok := scalar(KeyInterface).(Narrative); ok {
		m.Interface = &v
	}
	if v, ok := scalar(KeyTimeline).(TimelineEstimate); ok {
		m.Timeline = &v
	}
	if v, ok := scalar(KeyPriority).(PriorityLevel); ok {
		m.Priority = &v
	}

	m.Security = mergeSecurity(&m, outputs)
	m.Stories = mergeStories(&m, outputs)
	m.Tests = mergeTests(&m, outputs)

	approachOwners := make(map[string]bool)
	if v, ok := scalar(KeyTechnicalApproach).(TechnicalApproach); ok {
		for _, id := range m.Sources[KeyTechnicalApproach] {
			approachOwners[id] = true
		}
		kept := v
		kept.CodeBlocks = nil
		for _, b := range v.CodeBlocks {
			if b.IsPlaceholder {
				b.Source = m.Sources[KeyTechnicalApproach][0]
				m.Appendix = append(m.Appendix, b)
				continue
			}
			kept.CodeBlocks = append(kept.CodeBlocks, b)
		}
		kept = withSecurity(kept, m.Security)
		m.Approach = &kept
	}

	mergeCode(&m, outputs, approachOwners)

	for _, o := range outputs {
		notes, ok := o.ParsedSections[KeyUnstructured].(UnstructuredNotes)
		if !ok {
			continue
		}
		for _, f := range notes.Fragments {
			m.Notes = append(m.Notes, Note{ContributorID: o.ContributorID, Role: o.Role, Text: f})
		}
	}
	return m
}

func candidateIDs(cands []Candidate) []string {
	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.ContributorID)
	}
	return ids
}

// primaryFirst orders outputs with the primary role's contributors first,
// each group keeping input order.
func primaryFirst(outputs []ContributorOutput, role Role) []ContributorOutput {
	ordered := make([]ContributorOutput, 0, len(outputs))
	for _, o := range outputs {
		if o.Role == role {
			ordered = append(ordered, o)
		}
	}
	for _, o := range outputs {
		if o.Role != role {
			ordered = append(ordered, o)
		}
	}
	return ordered
}

// sourceTag returns the attribution for an entry from a non-primary role.
func sourceTag(o ContributorOutput, primary Role) string {
	if o.Role == primary {
		return ""
	}
	return o.ContributorID
}

func appendSource(m *MergedDocument, key SectionKey, id string) {
	for _, s := range m.Sources[key] {
		if s == id {
			return
		}
	}
	m.Sources[key] = append(m.Sources[key], id)
}

func mergeStories(m *MergedDocument, outputs []ContributorOutput) []UserStory {
	primary := primaryRoles[KeyUserStories]
	seen := make(map[string]bool)
	var stories []UserStory
	for _, o := range primaryFirst(outputs, primary) {
		list, ok := o.ParsedSections[KeyUserStories].(UserStoryList)
		if !ok {
			continue
		}
		for _, s := range list.Stories {
			key := SemanticKey(s.Title)
			if key == "" {
				key = SemanticKey(s.Body)
			}
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			s.AcceptanceCriteria = append([]string(nil), s.AcceptanceCriteria...)
			s.Source = sourceTag(o, primary)
			stories = append(stories, s)
			appendSource(m, KeyUserStories, o.ContributorID)
		}
	}
	return stories
}

func mergeTests(m *MergedDocument, outputs []ContributorOutput) TestSuite {
	primary := primaryRoles[KeyTests]
	seen := make(map[string]bool)
	var suite TestSuite
	for _, o := range primaryFirst(outputs, primary) {
		ts, ok := o.ParsedSections[KeyTests].(TestSuite)
		if !ok {
			continue
		}
		for _, cat := range testCategoryOrder {
			for _, tc := range ts.Category(cat) {
				key := SemanticKey(tc.Scenario)
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				tc.Source = sourceTag(o, primary)
				suite.add(cat, tc)
				appendSource(m, KeyTests, o.ContributorID)
			}
		}
	}
	return suite
}

// mergeSecurity returns the security expert's list verbatim when one
// supplied requirements. Otherwise every contributor's requirements are
// merged with attribution.
func mergeSecurity(m *MergedDocument, outputs []ContributorOutput) []SecurityRequirement {
	cands := candidates(outputs, KeySecurity)
	if len(cands) == 0 {
		return nil
	}

	var (
		literal  []SecurityRequirement
		owners   []string
		othersIn bool
	)
	for _, c := range cands {
		reqs := c.Value.(SecurityRequirements)
		if c.Role != RoleSecurity {
			othersIn = true
			continue
		}
		owners = append(owners, c.ContributorID)
		literal = append(literal, reqs.Items...)
	}

	if len(owners) > 0 {
		m.Sources[KeySecurity] = owners
		resolved := SecurityRequirements{Items: append([]SecurityRequirement(nil), literal...)}
		if othersIn {
			rec := ConflictRecord{
				FieldKey:   KeySecurity,
				Candidates: cands,
				Policy:     PolicySecurityLiteral,
				Resolved:   resolved,
			}
			if len(owners) == 1 {
				rec.Winner = owners[0]
			}
			m.Conflicts = append(m.Conflicts, rec)
		}
		return resolved.Items
	}

	seen := make(map[string]bool)
	var merged []SecurityRequirement
	for _, c := range cands {
		for _, it := range c.Value.(SecurityRequirements).Items {
			key := normalizeText(it.Text)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			it.Source = c.ContributorID
			merged = append(merged, it)
			appendSource(m, KeySecurity, c.ContributorID)
		}
	}
	return merged
}

// mergeCode collects code samples from the code sections and from approach
// blocks of contributors whose approach was not selected.
func mergeCode(m *MergedDocument, outputs []ContributorOutput, approachOwners map[string]bool) {
	primary := primaryRoles[KeyCode]
	for _, o := range primaryFirst(outputs, primary) {
		var blocks []CodeBlock
		if cs, ok := o.ParsedSections[KeyCode].(CodeSamples); ok {
			blocks = append(blocks, cs.Blocks...)
		}
		if ta, ok := o.ParsedSections[KeyTechnicalApproach].(TechnicalApproach); ok && !approachOwners[o.ContributorID] {
			blocks = append(blocks, ta.CodeBlocks...)
		}
		for _, b := range blocks {
			if b.IsPlaceholder {
				b.Source = o.ContributorID
				m.Appendix = append(m.Appendix, b)
				continue
			}
			b.Source = sourceTag(o, primary)
			m.Code = append(m.Code, b)
			appendSource(m, KeyCode, o.ContributorID)
		}
	}
}
