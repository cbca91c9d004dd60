//go:build e2e

package e2e

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dusk-indust/consolidate/internal/a2a"
	"github.com/dusk-indust/consolidate/internal/collect"
	"github.com/dusk-indust/consolidate/internal/export"
	"github.com/dusk-indust/consolidate/internal/provenance"
	"github.com/dusk-indust/consolidate/internal/runstore"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// contributionsDir holds one markdown file per role of a full team.
func contributionsDir() string {
	return filepath.Join("..", "..", "testdata", "contributions")
}

// contributorAgent serves one contribution file over A2A.
func contributorAgent(t *testing.T, path string) *httptest.Server {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	ts := httptest.NewServer(a2a.NewHandler(a2a.AgentCard{Name: filepath.Base(path)},
		func(_ context.Context, req a2a.SendMessageRequest) (*a2a.Task, error) {
			return &a2a.Task{
				ID:        "task-" + filepath.Base(path),
				ContextID: req.Message.ContextID,
				Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: time.Now()},
				Artifacts: []a2a.Artifact{{ArtifactID: "a1", Parts: []a2a.Part{a2a.MarkdownPart(string(data))}}},
			}, nil
		}))
	t.Cleanup(ts.Close)
	return ts
}

// teamAgents starts an agent for every contribution file, in file name
// order.
func teamAgents(t *testing.T) []collect.Agent {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(contributionsDir(), "*.md"))
	require.NoError(t, err)
	require.Len(t, paths, 6)

	var agents []collect.Agent
	for _, p := range paths {
		role, id, ok := collect.ParseFileName(filepath.Base(p))
		require.True(t, ok, p)
		agents = append(agents, collect.Agent{ID: id, Role: role, Endpoint: contributorAgent(t, p).URL})
	}
	return agents
}

// TestPipeline_E2E_Directory collects the full team from disk, synthesizes,
// stores the run and records its provenance.
func TestPipeline_E2E_Directory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	logger := zaptest.NewLogger(t)

	contributions, err := collect.DirSource{Dir: contributionsDir(), Logger: logger}.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, contributions, 6)

	res := synthesis.NewEngine(synthesis.DefaultConfig(), synthesis.WithLogger(logger)).Synthesize(ctx, contributions)
	require.Equal(t, synthesis.StateDone, res.State)
	assert.True(t, res.Validation.IsValid, "issues: %v", res.Validation.Issues)
	assert.Empty(t, res.Gaps.MissingContributors)
	assert.Len(t, res.Document.IncludedContributors, 6)

	// --- Run store ---

	mr := miniredis.RunT(t)
	runs, err := runstore.New(&redis.Options{Addr: mr.Addr()}, "e2e")
	require.NoError(t, err)
	defer runs.Close()

	runID, err := runs.Save(ctx, res)
	require.NoError(t, err)
	report, err := runs.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, res.Document.Markdown(), report.Markdown)
	assert.Equal(t, synthesis.StateDone, report.State)

	// --- Provenance ---

	store := provenance.NewMemStore()
	require.NoError(t, provenance.Record(ctx, store, runID, res))

	contributors, err := store.Contributors(ctx, runID)
	require.NoError(t, err)
	require.Len(t, contributors, 6)
	for _, c := range contributors {
		assert.True(t, c.Included, c.ID)
	}

	conflicts, err := store.Conflicts(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, conflicts, len(res.Conflicts))

	diagram, err := export.GenerateMermaid(ctx, store, runID)
	require.NoError(t, err)
	assert.Contains(t, diagram, `"po-1 (product_owner)"`)
	assert.Contains(t, diagram, `"ux-1 (ux_designer)"`)
	assert.NotContains(t, diagram, "missing:")
}

// TestPipeline_E2E_Agents asks one A2A agent per role and checks the result
// matches the directory run.
func TestPipeline_E2E_Agents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	logger := zaptest.NewLogger(t)
	engine := synthesis.NewEngine(synthesis.DefaultConfig(), synthesis.WithLogger(logger))

	fromAgents, err := collect.AgentSource{
		Client:  a2a.NewHTTPClient(),
		Agents:  teamAgents(t),
		Timeout: 30 * time.Second,
		Logger:  logger,
	}.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, fromAgents, 6)

	fromDir, err := collect.DirSource{Dir: contributionsDir()}.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, fromDir, fromAgents)

	a := engine.Synthesize(ctx, fromAgents)
	b := engine.Synthesize(ctx, fromDir)
	assert.Equal(t, b.Document.Markdown(), a.Document.Markdown())
	assert.Equal(t, b.Score, a.Score)
}

// TestPipeline_E2E_UnreachableAgent checks that a dead agent becomes a
// missing contributor and the run still terminates.
func TestPipeline_E2E_UnreachableAgent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	agents := teamAgents(t)
	for i := range agents {
		if agents[i].Role == synthesis.RoleSecurity {
			agents[i].Endpoint = "http://127.0.0.1:1"
		}
	}

	contributions, err := collect.AgentSource{
		Client:  a2a.NewHTTPClient(),
		Agents:  agents,
		Timeout: 10 * time.Second,
		Logger:  zaptest.NewLogger(t),
	}.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, contributions, 5)

	res := synthesis.NewEngine(synthesis.DefaultConfig()).Synthesize(ctx, contributions)
	assert.True(t, res.State.Terminal())
	assert.Equal(t, []synthesis.Role{synthesis.RoleSecurity}, res.Gaps.MissingContributors)

	sec, ok := res.Document.Section(synthesis.SectionSecurity)
	require.True(t, ok)
	assert.Contains(t, sec.Body, "source missing: security_expert")
}
