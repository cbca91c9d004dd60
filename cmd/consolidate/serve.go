package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/consolidate/internal/a2a"
	"github.com/dusk-indust/consolidate/internal/codeintel"
	"github.com/dusk-indust/consolidate/internal/mcptools"
	"github.com/dusk-indust/consolidate/internal/provenance"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

func newServeMCPCmd(a *app) *cobra.Command {
	var (
		httpAddr  string
		redisAddr string
		provPath  string
	)
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the synthesis tools over MCP",
		Long: `Run an MCP server exposing synthesize, get_run, list_runs, get_conflicts
and analyze_code. Uses stdio unless --http is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var runs mcptools.RunStore
			rs, err := a.openRuns(redisAddr)
			if err != nil {
				return err
			}
			if rs != nil {
				defer rs.Close()
				if err := rs.Ping(ctx); err != nil {
					return err
				}
				runs = rs
			}

			if provPath == "" {
				provPath = a.cfg.ProvenanceDB
			}
			var prov provenance.Store
			if provPath != "" {
				if prov, err = openProvenance(provPath); err != nil {
					return err
				}
				defer prov.Close()
			}

			svc := mcptools.NewSynthesisService(a.synthesisConfig(), codeintel.NewTreeSitterAnalyzer(), a.logger, runs, prov)
			server := mcptools.NewServer(svc)
			if httpAddr != "" {
				a.logger.Info("serving MCP over HTTP", zap.String("addr", httpAddr))
				return mcptools.RunHTTP(ctx, server, httpAddr)
			}
			return mcptools.RunStdio(ctx, server)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for stored runs (default from config)")
	cmd.Flags().StringVar(&provPath, "provenance", "", "provenance graph database path (default from config)")
	return cmd
}

func newServeAgentCmd(a *app) *cobra.Command {
	var (
		addr string
		role string
		id   string
		file string
	)
	cmd := &cobra.Command{
		Use:   "serve-agent",
		Short: "Serve a contribution file as an A2A contributor agent",
		Long: `Answer every A2A message/send with the contents of a markdown file.
Useful for wiring a team by hand or testing agent collection:

  consolidate serve-agent --role security_expert --file security.md --addr :9101`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role == "" || file == "" {
				return errors.New("serve-agent needs --role and --file")
			}
			if id == "" {
				id = role
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			handler := a2a.NewHandler(agentCard(id, synthesis.Role(role), addr), fileResponder(file, a.logger))
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				_ = srv.Shutdown(context.Background())
			}()
			a.logger.Info("serving contributor agent", zap.String("id", id), zap.String("role", role), zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9101", "listen address")
	cmd.Flags().StringVar(&role, "role", "", "contributor role, e.g. security_expert")
	cmd.Flags().StringVar(&id, "id", "", "contributor ID (default: the role)")
	cmd.Flags().StringVar(&file, "file", "", "markdown file to answer with")
	return cmd
}

func agentCard(id string, role synthesis.Role, addr string) a2a.AgentCard {
	return a2a.AgentCard{
		Name:               id,
		Description:        fmt.Sprintf("%s contributor", role),
		Version:            version,
		URL:                "http://localhost" + addr,
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/markdown"},
		Skills: []a2a.AgentSkill{
			{ID: "contribute", Name: "Contribute", Description: "Writes this role's section of the plan", Tags: []string{string(role)}},
		},
	}
}

// fileResponder completes each task with the current file contents.
func fileResponder(path string, logger *zap.Logger) a2a.SendFunc {
	return func(_ context.Context, req a2a.SendMessageRequest) (*a2a.Task, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("contribution unreadable", zap.String("file", path), zap.Error(err))
			return nil, fmt.Errorf("read contribution: %w", err)
		}
		return &a2a.Task{
			ID:        uuid.NewString(),
			ContextID: req.Message.ContextID,
			Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: time.Now()},
			Artifacts: []a2a.Artifact{{
				ArtifactID: uuid.NewString(),
				Name:       "contribution",
				Parts:      []a2a.Part{a2a.MarkdownPart(string(data))},
			}},
		}, nil
	}
}
