package synthesis

import (
	"math"
	"sort"
	"strings"
)

// Resolver applies the per-field policies to detected conflicts.
type Resolver struct {
	cfg Config
}

// NewResolver returns a Resolver using the weights in cfg.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve returns a finalized copy of rec. The input record is not modified.
func (r *Resolver) Resolve(rec ConflictRecord) ConflictRecord {
	out := rec
	out.Candidates = append([]Candidate(nil), rec.Candidates...)

	switch rec.FieldKey {
	case KeyTimeline:
		out.Policy = PolicyWeightedTimeline
		out.Resolved = r.resolveTimeline(rec.Candidates)
	case KeyPriority:
		out.Policy = PolicyWeightedPriority
		out.Resolved = r.resolvePriority(rec.Candidates)
	case KeyTechnicalApproach:
		if c, ok := firstByRole(rec.Candidates, RoleArchitect); ok {
			out.Policy = PolicyArchitectSecurity
			out.Resolved = c.Value
			out.Winner = c.ContributorID
			break
		}
		c := r.mostSpecific(rec.Candidates)
		out.Policy = PolicyMostSpecific
		out.Resolved = c.Value
		out.Winner = c.ContributorID
	default:
		c := r.mostSpecific(rec.Candidates)
		out.Policy = PolicyMostSpecific
		out.Resolved = c.Value
		out.Winner = c.ContributorID
	}
	return out
}

// ResolveAll resolves every record in order.
func (r *Resolver) ResolveAll(recs []ConflictRecord) []ConflictRecord {
	out := make([]ConflictRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.Resolve(rec))
	}
	return out
}

// resolveTimeline computes the buffered weighted average. The result is
// never below the largest candidate.
func (r *Resolver) resolveTimeline(cands []Candidate) TimelineEstimate {
	var (
		sum, weights, maxDays float64
		unit                  TimeUnit
		shared                = true
		n                     int
		plain                 float64
	)
	for _, c := range cands {
		t, ok := c.Value.(TimelineEstimate)
		if !ok {
			continue
		}
		if n == 0 {
			unit = t.Unit
		} else if t.Unit != unit {
			shared = false
		}
		n++
		d := t.Days()
		w := r.cfg.weight(r.cfg.TimelineWeights, c.Role)
		sum += w * d
		weights += w
		plain += d
		maxDays = math.Max(maxDays, d)
	}
	if n == 0 {
		return TimelineEstimate{Unit: UnitDays}
	}

	avg := plain / float64(n)
	if weights > 0 {
		avg = sum / weights
	}
	buffer := r.cfg.TimelineBuffer
	if buffer <= 0 {
		buffer = 1
	}

	if !shared {
		unit = UnitDays
	}
	per := daysPer[unit]
	value := roundHalf(avg * buffer / per)
	floor := maxDays / per
	if value < floor {
		value = math.Ceil(floor*2) / 2
	}
	return TimelineEstimate{Value: value, Unit: unit}
}

// roundHalf rounds to the nearest multiple of 0.5.
func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}

// resolvePriority maps the normalized weighted score back to a band.
func (r *Resolver) resolvePriority(cands []Candidate) PriorityLevel {
	var sum, weights float64
	for _, c := range cands {
		p, ok := c.Value.(PriorityLevel)
		if !ok {
			continue
		}
		w := r.cfg.weight(r.cfg.PriorityWeights, c.Role)
		sum += w * float64(p.Level.Score())
		weights += w
	}
	if weights == 0 {
		return PriorityLevel{Level: PriorityMedium}
	}
	return PriorityLevel{Level: priorityFromScore(sum / weights)}
}

func priorityFromScore(s float64) Priority {
	switch {
	case s >= 3.5:
		return PriorityCritical
	case s >= 2.5:
		return PriorityHigh
	case s >= 1.5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// mostSpecific picks the longest non-empty normalized value. Ties go to the
// higher ranked role, then the lower contributor ID.
func (r *Resolver) mostSpecific(cands []Candidate) Candidate {
	ranked := append([]Candidate(nil), cands...)
	sort.SliceStable(ranked, func(i, j int) bool {
		li := len(normalizeText(Describe(ranked[i].Value)))
		lj := len(normalizeText(Describe(ranked[j].Value)))
		if li != lj {
			return li > lj
		}
		pi, pj := r.cfg.rolePriority(ranked[i].Role), r.cfg.rolePriority(ranked[j].Role)
		if pi != pj {
			return pi < pj
		}
		return ranked[i].ContributorID < ranked[j].ContributorID
	})
	return ranked[0]
}

func firstByRole(cands []Candidate, role Role) (Candidate, bool) {
	for _, c := range cands {
		if c.Role == role {
			return c, true
		}
	}
	return Candidate{}, false
}

// withSecurity appends every requirement not already contained in the
// approach narrative. Existing text is never replaced.
func withSecurity(a TechnicalApproach, reqs []SecurityRequirement) TechnicalApproach {
	haystack := strings.ToLower(Describe(a))
	var missing []string
	for _, req := range reqs {
		text := strings.TrimSpace(req.Text)
		if text == "" || strings.Contains(haystack, strings.ToLower(text)) {
			continue
		}
		missing = append(missing, text)
		haystack += "\n" + strings.ToLower(text)
	}
	if len(missing) == 0 {
		return a
	}

	var b strings.Builder
	b.WriteString(a.Narrative)
	if a.Narrative != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("Security requirements carried into the design:\n")
	for _, m := range missing {
		b.WriteString("- " + m + "\n")
	}
	out := a
	out.Narrative = strings.TrimRight(b.String(), "\n")
	out.CodeBlocks = append([]CodeBlock(nil), a.CodeBlocks...)
	return out
}

// Describe renders any section value as plain text.
func Describe(c SectionContent) string {
	switch v := c.(type) {
	case Narrative:
		return v.Text
	case TimelineEstimate:
		return v.String()
	case PriorityLevel:
		return string(v.Level)
	case TechnicalApproach:
		parts := []string{v.Narrative}
		for _, b := range v.CodeBlocks {
			parts = append(parts, b.Content)
		}
		return strings.Join(parts, "\n")
	case UserStoryList:
		var parts []string
		for _, s := range v.Stories {
			parts = append(parts, s.Title, s.Body)
			parts = append(parts, s.AcceptanceCriteria...)
		}
		return strings.Join(parts, "\n")
	case TestSuite:
		var parts []string
		for _, cat := range testCategoryOrder {
			for _, tc := range v.Category(cat) {
				parts = append(parts, tc.Scenario)
			}
		}
		return strings.Join(parts, "\n")
	case SecurityRequirements:
		var parts []string
		for _, it := range v.Items {
			parts = append(parts, it.Text)
		}
		return strings.Join(parts, "\n")
	case CodeSamples:
		var parts []string
		for _, b := range v.Blocks {
			parts = append(parts, b.Content)
		}
		return strings.Join(parts, "\n")
	case UnstructuredNotes:
		return strings.Join(v.Fragments, "\n")
	}
	return ""
}
