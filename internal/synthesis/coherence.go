package synthesis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// codeBlockRe matches fenced code blocks (``` ... ```).
var codeBlockRe = regexp.MustCompile("(?s)```.*?```")

// depVersionRe matches patterns like "React 18.2", "Go 1.22.3", "node v20.x",
// or "PostgreSQL 16.1": a word followed by an optional 'v' and a version.
var depVersionRe = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9_.-]*)\s+v?(\d+\.\d+(?:\.\d+)?(?:\.x)?)\b`)

// CoherenceIssue describes a dependency mentioned with different versions in
// two sections.
type CoherenceIssue struct {
	Dependency string
	SectionA   SectionID
	SectionB   SectionID
	Message    string
}

// CheckCoherence scans rendered sections for dependencies mentioned with
// conflicting versions. Fenced code is excluded. Issues are sorted by
// dependency then version so the result is stable across runs.
func CheckCoherence(sections []RenderedSection) []CoherenceIssue {
	// dependency -> version -> sections mentioning it
	depVersions := make(map[string]map[string][]SectionID)

	for _, sec := range sections {
		cleaned := codeBlockRe.ReplaceAllString(sec.Body, "")
		seen := make(map[string]bool)
		for _, match := range depVersionRe.FindAllStringSubmatch(cleaned, -1) {
			name := strings.ToLower(match[1])
			version := match[2]
			if seen[name+"@"+version] {
				continue
			}
			seen[name+"@"+version] = true

			if depVersions[name] == nil {
				depVersions[name] = make(map[string][]SectionID)
			}
			depVersions[name][version] = append(depVersions[name][version], sec.ID)
		}
	}

	deps := make([]string, 0, len(depVersions))
	for d := range depVersions {
		deps = append(deps, d)
	}
	sort.Strings(deps)

	var issues []CoherenceIssue
	for _, dep := range deps {
		versions := depVersions[dep]
		if len(versions) <= 1 {
			continue
		}
		vs := make([]string, 0, len(versions))
		for v := range versions {
			vs = append(vs, v)
		}
		sort.Strings(vs)

		for i := 0; i < len(vs); i++ {
			for j := i + 1; j < len(vs); j++ {
				a, b := versions[vs[i]], versions[vs[j]]
				issues = append(issues, CoherenceIssue{
					Dependency: dep,
					SectionA:   a[0],
					SectionB:   b[0],
					Message: fmt.Sprintf(
						"dependency %q has conflicting versions: %s (in %s) vs %s (in %s)",
						dep, vs[i], joinIDs(a), vs[j], joinIDs(b),
					),
				})
			}
		}
	}
	return issues
}

func joinIDs(ids []SectionID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ", ")
}
