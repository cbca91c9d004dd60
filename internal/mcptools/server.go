package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the synthesis tools registered.
func NewServer(svc *SynthesisService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "consolidate",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "synthesize",
		Description: "Merge contributor outputs (product owner, project manager, architect, security, QA, UX) into one plan document. Returns the markdown, quality score, gaps and resolved conflicts.",
	}, svc.Synthesize)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run",
		Description: "Load the full report of a stored synthesis run by ID.",
	}, svc.GetRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List the IDs of the most recent stored synthesis runs, newest first.",
	}, svc.ListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_conflicts",
		Description: "Return the conflict trail of a run: each disputed field, the candidate values per contributor and the applied policy.",
	}, svc.GetConflicts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_code",
		Description: "Parse a code sample and report syntax errors, error handling and documentation.",
	}, svc.AnalyzeCode)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP until ctx is done.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)
	httpServer := &http.Server{Addr: addr, Handler: handler}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
