package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// consolidateMCPEntry is the MCP server configuration for the consolidate
// binary.
var consolidateMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "consolidate",
  "args": ["serve-mcp"]
}`)

// starterConfig is written by init when no consolidate.yml exists.
const starterConfig = `# consolidate project settings. Every key is optional.
title: Synthesized Plan

# qualityThreshold: 0.7
# retryBudget: 2
# minCodeBlocks: 3
# timelineBuffer: 1.2
# scoreWeights: {completeness: 0.4, codeQuality: 0.3, clarity: 0.2, consensus: 0.1}

# Contributor agents asked by "consolidate run" when --dir is not given.
# agents:
#   - {id: po-1, role: product_owner, endpoint: "http://localhost:9101"}
#   - {id: sec-1, role: security_expert, endpoint: "http://localhost:9102"}
# collectTimeout: 2m

# redisAddr: localhost:6379
# redisNamespace: default
# provenanceDB: .consolidate/provenance
# logLevel: warn
`

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write a starter consolidate.yml and register the MCP server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return a.runInit(root, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

// runInit writes consolidate.yml and merges the consolidate entry into
// .mcp.json in the target directory.
func (a *app) runInit(projectRoot string, force bool) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return err
	}

	cfgPath := filepath.Join(abs, "consolidate.yml")
	if _, err := os.Stat(cfgPath); err == nil && !force {
		fmt.Fprintf(a.out, "  skipped ./consolidate.yml (exists, use --force to overwrite)\n")
	} else {
		if err := os.WriteFile(cfgPath, []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", cfgPath, err)
		}
		fmt.Fprintf(a.out, "  created ./consolidate.yml\n")
	}

	if err := a.mergeMCPConfig(filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "\nSetup complete. Run 'consolidate run --dir <contributions>' to synthesize.")
	return nil
}

// mergeMCPConfig creates or merges the consolidate entry into .mcp.json.
func (a *app) mergeMCPConfig(mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["consolidate"]; exists && !force {
		fmt.Fprintf(a.out, "  skipped .mcp.json consolidate entry (exists, use --force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["consolidate"] = consolidateMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(a.out, "  %s .mcp.json with consolidate MCP server\n", action)
	return nil
}
