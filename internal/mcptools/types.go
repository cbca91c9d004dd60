package mcptools

import (
	"github.com/dusk-indust/consolidate/internal/codeintel"
	"github.com/dusk-indust/consolidate/internal/export"
	"github.com/dusk-indust/consolidate/internal/provenance"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// --- MCP Tool Input/Output Types ---
// The MCP Go SDK generates JSON schemas from these struct tags.

// ContributionInput is one contributor's raw output.
type ContributionInput struct {
	ContributorID string `json:"contributorId" jsonschema:"unique contributor identifier"`
	Role          string `json:"role" jsonschema:"product_owner, project_manager, senior_architect, security_expert, qa_engineer or ux_designer"`
	Text          string `json:"text" jsonschema:"the contributor's free-form markdown"`
}

// SynthesizeInput is the input for the synthesize MCP tool.
type SynthesizeInput struct {
	Title         string              `json:"title,omitempty" jsonschema:"document title"`
	Contributions []ContributionInput `json:"contributions" jsonschema:"contributions that arrived; absent roles are reported as missing"`
}

// SynthesizeOutput is the result of the synthesize MCP tool.
type SynthesizeOutput struct {
	RunID     string                  `json:"runId,omitempty"`
	State     synthesis.State         `json:"state"`
	Score     synthesis.QualityScore  `json:"score"`
	Gaps      synthesis.Gaps          `json:"gaps"`
	Conflicts []export.ConflictExport `json:"conflicts"`
	Warnings  []string                `json:"warnings"`
	Markdown  string                  `json:"markdown"`
}

// GetRunInput is the input for the get_run MCP tool.
type GetRunInput struct {
	RunID string `json:"runId" jsonschema:"run identifier returned by synthesize"`
}

// GetRunOutput is the result of the get_run MCP tool.
type GetRunOutput struct {
	Report *export.Report `json:"report"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs (default: 20)"`
}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	RunIDs []string `json:"runIds"`
}

// GetConflictsInput is the input for the get_conflicts MCP tool.
type GetConflictsInput struct {
	RunID string `json:"runId" jsonschema:"run identifier returned by synthesize"`
}

// GetConflictsOutput is the result of the get_conflicts MCP tool.
type GetConflictsOutput struct {
	Conflicts    []provenance.ConflictTrail   `json:"conflicts"`
	Contributors []provenance.ContributorNode `json:"contributors"`
}

// AnalyzeCodeInput is the input for the analyze_code MCP tool.
type AnalyzeCodeInput struct {
	Language string `json:"language,omitempty" jsonschema:"fence language tag such as go, ts, py or rs"`
	Source   string `json:"source" jsonschema:"the code sample to analyze"`
}

// AnalyzeCodeOutput is the result of the analyze_code MCP tool.
type AnalyzeCodeOutput struct {
	Report codeintel.Report `json:"report"`
}
