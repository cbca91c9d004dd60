//go:build e2e

package e2e

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/consolidate/internal/collect"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

var update = flag.Bool("update", false, "update golden files")

// goldenDir returns the path to the testdata/golden directory.
func goldenDir() string {
	return filepath.Join("..", "..", "testdata", "golden")
}

// goldenCases maps a team composition to its golden document.
var goldenCases = []struct {
	golden  string
	without synthesis.Role
}{
	{"full_team.md", ""},
	{"no_security.md", synthesis.RoleSecurity},
	{"no_architect.md", synthesis.RoleArchitect},
}

// synthesizeForGolden runs the directory fixtures through the engine,
// dropping one role when without is set.
func synthesizeForGolden(t *testing.T, without synthesis.Role) synthesis.Result {
	t.Helper()
	contributions, err := collect.DirSource{Dir: contributionsDir()}.Collect(context.Background())
	require.NoError(t, err)

	var kept []synthesis.Contribution
	for _, c := range contributions {
		if c.Role != without {
			kept = append(kept, c)
		}
	}
	return synthesis.NewEngine(synthesis.DefaultConfig(), synthesis.WithTitle("Password Reset")).
		Synthesize(context.Background(), kept)
}

// ownedSection is the section a dropped role leaves without a source.
var ownedSection = map[synthesis.Role]synthesis.SectionID{
	synthesis.RoleSecurity:  synthesis.SectionSecurity,
	synthesis.RoleArchitect: synthesis.SectionArchitecture,
}

// TestGolden checks the shape of each team's document and compares it
// byte for byte with its golden file when one is present. Golden files are
// written by TestUpdateGolden with -update.
func TestGolden(t *testing.T) {
	order := []synthesis.SectionID{
		synthesis.SectionContext, synthesis.SectionPlanning, synthesis.SectionArchitecture,
		synthesis.SectionTests, synthesis.SectionInterface, synthesis.SectionSecurity,
	}
	for _, gc := range goldenCases {
		t.Run(gc.golden, func(t *testing.T) {
			res := synthesizeForGolden(t, gc.without)
			doc := res.Document.Markdown()
			assert.Equal(t, doc, synthesizeForGolden(t, gc.without).Document.Markdown(), "rerun differs")
			assert.True(t, strings.HasPrefix(doc, "# Password Reset\n"))

			var ids []synthesis.SectionID
			for _, s := range res.Document.Sections {
				if slices.Contains(order, s.ID) {
					ids = append(ids, s.ID)
				}
			}
			assert.Equal(t, order, ids)

			if gc.without == "" {
				assert.Empty(t, res.Gaps.MissingContributors)
			} else {
				assert.Equal(t, []synthesis.Role{gc.without}, res.Gaps.MissingContributors)
				sec, ok := res.Document.Section(ownedSection[gc.without])
				require.True(t, ok)
				assert.Contains(t, sec.Body, "source missing: "+string(gc.without))
			}

			golden, err := os.ReadFile(filepath.Join(goldenDir(), gc.golden))
			if os.IsNotExist(err) {
				t.Logf("golden file %s not found; run TestUpdateGolden with -update to write it", gc.golden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(golden), doc, "document does not match golden file %s", gc.golden)
		})
	}
}

// TestUpdateGolden regenerates golden files from the current engine output.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}

	require.NoError(t, os.MkdirAll(goldenDir(), 0o755))
	for _, gc := range goldenCases {
		doc := synthesizeForGolden(t, gc.without).Document.Markdown()
		require.NoError(t, os.WriteFile(filepath.Join(goldenDir(), gc.golden), []byte(doc), 0o644))
		t.Logf("updated %s", gc.golden)
	}
}
