package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/dusk-indust/consolidate/internal/synthesis"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	faint  = color.New(color.Faint)
)

// printSummary writes the score, gaps and conflicts of a run. Colors are
// dropped when w is not a terminal or NO_COLOR is set.
func printSummary(w io.Writer, runID string, res synthesis.Result) {
	fmt.Fprintln(w)
	headline := fmt.Sprintf("Score %.2f  %s after %d pass(es)", res.Score.Total, res.State, res.Iterations)
	switch res.State {
	case synthesis.StateDone:
		green.Fprintln(w, "✓ "+headline)
	default:
		yellow.Fprintln(w, "⚠️  "+headline)
	}
	faint.Fprintf(w, "  completeness %.2f  code %.2f  clarity %.2f  consensus %.2f\n",
		res.Score.Completeness, res.Score.CodeQuality, res.Score.Clarity, res.Score.Consensus)

	if len(res.Gaps.MissingContributors) > 0 {
		roles := make([]string, len(res.Gaps.MissingContributors))
		for i, r := range res.Gaps.MissingContributors {
			roles[i] = string(r)
		}
		yellow.Fprintf(w, "Missing contributors: %s\n", strings.Join(roles, ", "))
	}
	if len(res.Gaps.MissingSections) > 0 {
		ids := make([]string, len(res.Gaps.MissingSections))
		for i, s := range res.Gaps.MissingSections {
			ids[i] = string(s)
		}
		yellow.Fprintf(w, "Incomplete sections: %s\n", strings.Join(ids, ", "))
	}
	for _, issue := range res.Gaps.Issues {
		red.Fprintf(w, "✗ %s: %s\n", issue.Check, issue.Message)
	}
	for _, c := range res.Conflicts {
		winner := c.Winner
		if winner == "" {
			winner = "combined"
		}
		fmt.Fprintf(w, "Conflict %s: %s (%s, %s)\n", c.FieldKey, synthesis.Describe(c.Resolved), c.Policy, winner)
	}
	for _, warn := range res.Validation.Warnings {
		faint.Fprintf(w, "  note: %s\n", warn)
	}
	if runID != "" {
		fmt.Fprintf(w, "Run %s\n", runID)
	}
}

// renderMarkdown styles a document for the terminal.
func renderMarkdown(doc string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(doc)
}
