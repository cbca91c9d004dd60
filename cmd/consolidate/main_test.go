package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dusk-indust/consolidate/internal/a2a"
	"github.com/dusk-indust/consolidate/internal/export"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

// timelineDir holds two contributors that disagree on the timeline.
func timelineDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "project_manager.pm-1.md", "Timeline: 3 days\n")
	writeFile(t, dir, "senior_architect.arch-1.md", "Estimate: 5 days\n")
	writeFile(t, dir, "README.md", "ignored\n")
	return dir
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, _, err := execute(t, "--config", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "consolidate")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_BadConfig(t *testing.T) {
	cfgDir := t.TempDir()
	writeFile(t, cfgDir, "consolidate.yml", "qualityThreshold: [1\n")
	_, _, err := execute(t, "--config", cfgDir, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parse consolidate.yml")
}

func TestRootCommand_BadLogLevel(t *testing.T) {
	_, _, err := execute(t, "--config", t.TempDir(), "--log-level", "loud", "version")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "--config", t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestRun_Markdown(t *testing.T) {
	out, errOut, err := execute(t, "--config", t.TempDir(), "run", "--dir", timelineDir(t), "--title", "Reset")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Reset\n"))
	assert.Contains(t, out, "**Timeline:** 5 days")
	assert.Contains(t, errOut, "Score")
	assert.Contains(t, errOut, "Missing contributors: product_owner, security_expert, qa_engineer, ux_designer")
	assert.Contains(t, errOut, "Conflict timeline")
}

func TestRun_QuietAndTitleFromConfig(t *testing.T) {
	cfgDir := t.TempDir()
	writeFile(t, cfgDir, "consolidate.yml", "title: From Config\n")
	out, errOut, err := execute(t, "--config", cfgDir, "run", "--dir", timelineDir(t), "--quiet")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# From Config\n"))
	assert.NotContains(t, errOut, "Score")
}

func TestRun_JSON(t *testing.T) {
	out, _, err := execute(t, "--config", t.TempDir(), "run", "--dir", timelineDir(t), "--json")
	require.NoError(t, err)

	report, err := export.ParseReport([]byte(out))
	require.NoError(t, err)
	assert.Empty(t, report.RunID)
	assert.Equal(t, synthesis.DefaultTitle, report.Title)
	require.Len(t, report.Contributors, 2)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, synthesis.KeyTimeline, report.Conflicts[0].Field)
	assert.True(t, report.State.Terminal())
}

func TestRun_Diagram(t *testing.T) {
	out, _, err := execute(t, "--config", t.TempDir(), "run", "--dir", timelineDir(t), "--quiet", "--diagram")
	require.NoError(t, err)
	assert.Contains(t, out, "```mermaid\ngraph LR\n")
	assert.Contains(t, out, `"pm-1 (project_manager)"`)
	assert.Contains(t, out, `"arch-1 (senior_architect)"`)
	assert.Contains(t, out, `{{"timeline:`)
}

func TestRun_NoSource(t *testing.T) {
	_, _, err := execute(t, "--config", t.TempDir(), "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --dir")
}

func TestRun_MissingDir(t *testing.T) {
	_, _, err := execute(t, "--config", t.TempDir(), "run", "--dir", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect:")
}

func TestRun_SavedRunCanBeShownAndListed(t *testing.T) {
	mr := miniredis.RunT(t)
	cfgDir := t.TempDir()

	out, _, err := execute(t, "--config", cfgDir, "run", "--dir", timelineDir(t), "--title", "Reset", "--json", "--redis", mr.Addr())
	require.NoError(t, err)
	report, err := export.ParseReport([]byte(out))
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)

	shown, _, err := execute(t, "--config", cfgDir, "show", report.RunID, "--redis", mr.Addr())
	require.NoError(t, err)
	assert.Equal(t, report.Markdown, shown)

	shownJSON, _, err := execute(t, "--config", cfgDir, "show", report.RunID, "--json", "--redis", mr.Addr())
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(shownJSON), &raw))
	assert.Equal(t, report.RunID, raw["runId"])

	listed, _, err := execute(t, "--config", cfgDir, "runs", "--redis", mr.Addr())
	require.NoError(t, err)
	assert.Contains(t, listed, report.RunID)
	assert.Contains(t, listed, "Reset")

	_, _, err = execute(t, "--config", cfgDir, "show", "missing-run", "--redis", mr.Addr())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRuns_EmptyAndUnconfigured(t *testing.T) {
	mr := miniredis.RunT(t)
	out, _, err := execute(t, "--config", t.TempDir(), "runs", "--redis", mr.Addr())
	require.NoError(t, err)
	assert.Equal(t, "No runs stored.\n", out)

	_, _, err = execute(t, "--config", t.TempDir(), "runs")
	assert.ErrorIs(t, err, errNoRedis)
	_, _, err = execute(t, "--config", t.TempDir(), "show", "x")
	assert.ErrorIs(t, err, errNoRedis)
}

func TestRun_AgentsFromConfig(t *testing.T) {
	contribDir := t.TempDir()
	writeFile(t, contribDir, "pm.md", "Timeline: 3 days\n")
	agent := httptest.NewServer(a2a.NewHandler(
		agentCard("pm-1", synthesis.RoleProjectManager, ":0"),
		fileResponder(filepath.Join(contribDir, "pm.md"), zap.NewNop()),
	))
	t.Cleanup(agent.Close)

	cfgDir := t.TempDir()
	writeFile(t, cfgDir, "consolidate.yml", fmt.Sprintf(`title: Agents
agents:
  - {id: pm-1, role: project_manager, endpoint: %q}
  - {id: ux-1, role: ux_designer, endpoint: "http://127.0.0.1:1"}
collectTimeout: 5s
`, agent.URL))

	out, _, err := execute(t, "--config", cfgDir, "run", "--json")
	require.NoError(t, err)
	report, err := export.ParseReport([]byte(out))
	require.NoError(t, err)

	assert.Equal(t, "Agents", report.Title)
	require.Len(t, report.Contributors, 1)
	assert.Equal(t, "pm-1", report.Contributors[0].ID)
	assert.Contains(t, report.Gaps.MissingContributors, synthesis.RoleUXDesigner)
	assert.Contains(t, report.Markdown, "**Timeline:**")
}

func TestFileResponder_MissingFile(t *testing.T) {
	_, err := fileResponder(filepath.Join(t.TempDir(), "gone.md"), zap.NewNop())(t.Context(), a2a.SendMessageRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read contribution")
}

func TestServeAgent_RequiresRoleAndFile(t *testing.T) {
	_, _, err := execute(t, "--config", t.TempDir(), "serve-agent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--role and --file")
}

func TestWatch_RequiresDir(t *testing.T) {
	_, _, err := execute(t, "--config", t.TempDir(), "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--dir")
}

func TestInit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".mcp.json", `{"mcpServers": {"other": {"command": "other"}}}`)

	out, _, err := execute(t, "--config", root, "init", root)
	require.NoError(t, err)
	assert.Contains(t, out, "created ./consolidate.yml")
	assert.Contains(t, out, "updated .mcp.json")

	data, err := os.ReadFile(filepath.Join(root, ".mcp.json"))
	require.NoError(t, err)
	var cfg mcpConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Contains(t, cfg.MCPServers, "other")
	assert.Contains(t, cfg.MCPServers, "consolidate")

	// The starter config must load.
	out, _, err = execute(t, "--config", root, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)

	out, _, err = execute(t, "--config", root, "init", root)
	require.NoError(t, err)
	assert.Contains(t, out, "skipped ./consolidate.yml")
	assert.Contains(t, out, "skipped .mcp.json consolidate entry")
}

func TestRun_Render(t *testing.T) {
	out, _, err := execute(t, "--config", t.TempDir(), "run", "--dir", timelineDir(t), "--title", "Reset", "--render", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset")
	assert.Contains(t, out, "5 days")
}

func TestAgents_ChecksCards(t *testing.T) {
	pm := httptest.NewServer(a2a.NewHandler(agentCard("pm-1", synthesis.RoleProjectManager, ":0"), fileResponder("unused", zap.NewNop())))
	t.Cleanup(pm.Close)
	cfgDir := t.TempDir()
	writeFile(t, cfgDir, "consolidate.yml", fmt.Sprintf(`agents:
  - {id: pm-1, role: project_manager, endpoint: %q}
  - {id: qa-1, role: qa_engineer, endpoint: %q}
  - {id: ux-1, role: ux_designer, endpoint: "http://127.0.0.1:1"}
`, pm.URL, pm.URL))

	out, _, err := execute(t, "--config", cfgDir, "agents")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pm-1 (project_manager) pm-1 dev")
	assert.Contains(t, out, `qa-1 (qa_engineer) answers as "pm-1" but declares no qa_engineer skill`)
	assert.Contains(t, out, "✗ ux-1 (ux_designer) unreachable")
}

func TestAgents_NoneConfigured(t *testing.T) {
	out, _, err := execute(t, "--config", t.TempDir(), "agents")
	require.NoError(t, err)
	assert.Equal(t, "No agents configured.\n", out)
}
