package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/consolidate/internal/provenance"
)

// GenerateMermaid produces a Mermaid graph LR diagram of one run from a
// provenance store. Contributors point at the conflicts they offered values
// for; the winning candidate's arrow is drawn thick.
func GenerateMermaid(ctx context.Context, store provenance.Store, runID string) (string, error) {
	contributors, err := store.Contributors(ctx, runID)
	if err != nil {
		return "", fmt.Errorf("get contributors: %w", err)
	}
	conflicts, err := store.Conflicts(ctx, runID)
	if err != nil {
		return "", fmt.Errorf("get conflicts: %w", err)
	}

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	sb.WriteString(fmt.Sprintf("  subgraph %s[\"contributors\"]\n", getID("contributors")))
	for _, c := range contributors {
		if !c.Included {
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s[\"%s (%s)\"]\n", getID("c:"+c.ContributorID), label(c.ContributorID), c.Role))
	}
	sb.WriteString("  end\n")

	var missing []string
	for _, c := range contributors {
		if !c.Included {
			missing = append(missing, c.Role)
		}
	}
	if len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("  %s[/\"missing: %s\"/]\n", getID("missing"), strings.Join(missing, ", ")))
	}

	for _, cf := range conflicts {
		sb.WriteString(fmt.Sprintf("  %s{{\"%s: %s\"}}\n", getID("f:"+cf.Conflict.ID), cf.Conflict.Field, label(cf.Conflict.Resolved)))
	}
	for _, cf := range conflicts {
		for _, cand := range cf.Candidates {
			arrow := "-->"
			if cand.ContributorID == cf.Conflict.Winner {
				arrow = "==>"
			}
			sb.WriteString(fmt.Sprintf("  %s %s|\"%s\"| %s\n",
				getID("c:"+cand.ContributorID), arrow, label(cand.Value), getID("f:"+cf.Conflict.ID)))
		}
	}
	return sb.String(), nil
}

// label flattens text to one line of at most 40 runes, without quotes.
func label(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, `"`, "'")
	if r := []rune(s); len(r) > 40 {
		s = string(r[:37]) + "..."
	}
	return s
}
