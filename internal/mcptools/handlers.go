package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/dusk-indust/consolidate/internal/codeintel"
	"github.com/dusk-indust/consolidate/internal/export"
	"github.com/dusk-indust/consolidate/internal/provenance"
	"github.com/dusk-indust/consolidate/internal/runstore"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// RunStore persists run reports. *runstore.Store implements it.
type RunStore interface {
	Save(ctx context.Context, res synthesis.Result) (string, error)
	Get(ctx context.Context, id string) (*export.Report, error)
	List(ctx context.Context, limit int) ([]string, error)
}

var _ RunStore = (*runstore.Store)(nil)

// errNoRunStore is returned by run lookups when no store is configured.
var errNoRunStore = errors.New("run store not configured")

// SynthesisService holds the engine and optional stores used by MCP tool
// handlers.
type SynthesisService struct {
	cfg        synthesis.Config
	analyzer   codeintel.Analyzer
	logger     *zap.Logger
	runs       RunStore
	provenance provenance.Store
}

// NewSynthesisService creates a service. runs and prov may be nil.
func NewSynthesisService(cfg synthesis.Config, analyzer codeintel.Analyzer, logger *zap.Logger, runs RunStore, prov provenance.Store) *SynthesisService {
	if analyzer == nil {
		analyzer = codeintel.LexicalAnalyzer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SynthesisService{cfg: cfg, analyzer: analyzer, logger: logger, runs: runs, provenance: prov}
}

// Synthesize runs the engine on the given contributions. When a run store
// is configured the report is saved and its ID returned; when a provenance
// store is configured the conflict trail is recorded under the same ID.
func (s *SynthesisService) Synthesize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SynthesizeInput,
) (*mcp.CallToolResult, SynthesizeOutput, error) {
	contributions := make([]synthesis.Contribution, 0, len(input.Contributions))
	seen := make(map[string]bool, len(input.Contributions))
	for i, c := range input.Contributions {
		if strings.TrimSpace(c.Role) == "" {
			return nil, SynthesizeOutput{}, fmt.Errorf("contributions[%d]: role is required", i)
		}
		id := c.ContributorID
		switch {
		case id == "":
			// Unnamed contributors of one role become role, role#2, ...
			id = c.Role
			for n := 2; seen[id]; n++ {
				id = fmt.Sprintf("%s#%d", c.Role, n)
			}
		case seen[id]:
			return nil, SynthesizeOutput{}, fmt.Errorf("contributions[%d]: duplicate contributorId %q", i, id)
		}
		seen[id] = true
		contributions = append(contributions, synthesis.Contribution{
			ContributorID: id,
			Role:          synthesis.Role(c.Role),
			RawText:       c.Text,
		})
	}

	engine := synthesis.NewEngine(s.cfg,
		synthesis.WithTitle(input.Title),
		synthesis.WithAnalyzer(s.analyzer),
		synthesis.WithLogger(s.logger),
	)
	res := engine.Synthesize(ctx, contributions)

	var runID string
	if s.runs != nil {
		id, err := s.runs.Save(ctx, res)
		if err != nil {
			return nil, SynthesizeOutput{}, fmt.Errorf("save run: %w", err)
		}
		runID = id
	}
	if s.provenance != nil {
		if runID == "" {
			runID = runstore.NewRunID()
		}
		if err := provenance.Record(ctx, s.provenance, runID, res); err != nil {
			return nil, SynthesizeOutput{}, fmt.Errorf("record provenance: %w", err)
		}
	}

	report := export.NewReport(runID, res, time.Now())
	out := SynthesizeOutput{
		RunID:     runID,
		State:     res.State,
		Score:     res.Score,
		Gaps:      nonNilGaps(res.Gaps),
		Conflicts: report.Conflicts,
		Warnings:  res.Validation.Warnings,
		Markdown:  report.Markdown,
	}
	if out.Conflicts == nil {
		out.Conflicts = []export.ConflictExport{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return nil, out, nil
}

// GetRun loads a stored run report.
func (s *SynthesisService) GetRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetRunInput,
) (*mcp.CallToolResult, GetRunOutput, error) {
	if input.RunID == "" {
		return nil, GetRunOutput{}, fmt.Errorf("runId is required")
	}
	if s.runs == nil {
		return nil, GetRunOutput{}, errNoRunStore
	}
	report, err := s.runs.Get(ctx, input.RunID)
	if err != nil {
		return nil, GetRunOutput{}, err
	}
	return nil, GetRunOutput{Report: report}, nil
}

// ListRuns returns the most recent run IDs.
func (s *SynthesisService) ListRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	if s.runs == nil {
		return nil, ListRunsOutput{}, errNoRunStore
	}
	ids, err := s.runs.List(ctx, input.Limit)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	return nil, ListRunsOutput{RunIDs: ids}, nil
}

// GetConflicts returns the recorded conflict trail of a run.
func (s *SynthesisService) GetConflicts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetConflictsInput,
) (*mcp.CallToolResult, GetConflictsOutput, error) {
	if input.RunID == "" {
		return nil, GetConflictsOutput{}, fmt.Errorf("runId is required")
	}
	if s.provenance == nil {
		return nil, GetConflictsOutput{}, errors.New("provenance store not configured")
	}
	conflicts, err := s.provenance.Conflicts(ctx, input.RunID)
	if err != nil {
		return nil, GetConflictsOutput{}, fmt.Errorf("get conflicts: %w", err)
	}
	contributors, err := s.provenance.Contributors(ctx, input.RunID)
	if err != nil {
		return nil, GetConflictsOutput{}, fmt.Errorf("get contributors: %w", err)
	}
	if conflicts == nil {
		conflicts = []provenance.ConflictTrail{}
	}
	if contributors == nil {
		contributors = []provenance.ContributorNode{}
	}
	return nil, GetConflictsOutput{Conflicts: conflicts, Contributors: contributors}, nil
}

// AnalyzeCode reports what the code analyzer sees in one sample.
func (s *SynthesisService) AnalyzeCode(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeCodeInput,
) (*mcp.CallToolResult, AnalyzeCodeOutput, error) {
	if strings.TrimSpace(input.Source) == "" {
		return nil, AnalyzeCodeOutput{}, fmt.Errorf("source is required")
	}
	return nil, AnalyzeCodeOutput{Report: s.analyzer.Analyze(input.Language, input.Source)}, nil
}

func nonNilGaps(g synthesis.Gaps) synthesis.Gaps {
	if g.MissingContributors == nil {
		g.MissingContributors = []synthesis.Role{}
	}
	if g.MissingSections == nil {
		g.MissingSections = []synthesis.SectionID{}
	}
	if g.Issues == nil {
		g.Issues = []synthesis.Issue{}
	}
	return g
}
