package synthesis

import (
	"math"
	"strings"
)

// DetectConflicts returns one ConflictRecord per scalar key for which two or
// more contributors supplied differing values. Records follow scalarKeys
// order and candidates follow input order. List keys never conflict.
func DetectConflicts(outputs []ContributorOutput) []ConflictRecord {
	var conflicts []ConflictRecord
	for _, key := range scalarKeys {
		cands := candidates(outputs, key)
		if len(cands) < 2 {
			continue
		}
		for _, c := range cands[1:] {
			if !sameValue(cands[0].Value, c.Value) {
				conflicts = append(conflicts, ConflictRecord{FieldKey: key, Candidates: cands})
				break
			}
		}
	}
	return conflicts
}

// candidates collects every contributor's value for key in input order.
func candidates(outputs []ContributorOutput, key SectionKey) []Candidate {
	var cands []Candidate
	for _, o := range outputs {
		v, ok := o.ParsedSections[key]
		if !ok {
			continue
		}
		cands = append(cands, Candidate{ContributorID: o.ContributorID, Role: o.Role, Value: v})
	}
	return cands
}

// sameValue compares two scalar values under their type-specific equality.
func sameValue(a, b SectionContent) bool {
	switch av := a.(type) {
	case TimelineEstimate:
		bv, ok := b.(TimelineEstimate)
		return ok && math.Abs(av.Days()-bv.Days()) < 1e-9
	case PriorityLevel:
		bv, ok := b.(PriorityLevel)
		return ok && av.Level == bv.Level
	default:
		return normalizeText(Describe(a)) == normalizeText(Describe(b))
	}
}

// normalizeText lowercases and collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
