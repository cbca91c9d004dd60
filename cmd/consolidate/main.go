package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/consolidate/internal/config"
	"github.com/dusk-indust/consolidate/internal/logging"
	"github.com/dusk-indust/consolidate/internal/runstore"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// version is set by goreleaser at build time.
var version = "dev"

const (
	defaultNamespace      = "default"
	defaultCollectTimeout = 2 * time.Minute
)

// app carries the state shared by every subcommand.
type app struct {
	configDir string
	logLevel  string
	logJSON   bool

	cfg    *config.ProjectConfig
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge contributor outputs into one plan document",
		Long: `consolidate collects the outputs of a product owner, project manager,
architect, security expert, QA engineer and UX designer, resolves their
conflicts, and renders a single scored plan document.

Contributions come from a directory of <role>[.<id>].md files or from
A2A agents listed in consolidate.yml.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.configDir, "config", ".", "directory holding consolidate.yml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config, else warn)")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "emit JSON logs")

	root.AddCommand(
		newRunCmd(a),
		newWatchCmd(a),
		newServeMCPCmd(a),
		newServeAgentCmd(a),
		newShowCmd(a),
		newRunsCmd(a),
		newAgentsCmd(a),
		newInitCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads the project config and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	if level == "" {
		level = "warn"
	}
	logger, err := logging.New(level, a.logJSON || cfg.LogJSON)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// synthesisConfig returns the engine defaults overlaid with the project
// config.
func (a *app) synthesisConfig() synthesis.Config {
	return a.cfg.Apply(synthesis.DefaultConfig())
}

// openRuns connects to the run store. addr overrides the configured
// address; it returns nil when neither is set.
func (a *app) openRuns(addr string) (*runstore.Store, error) {
	if addr == "" {
		addr = a.cfg.RedisAddr
	}
	if addr == "" {
		return nil, nil
	}
	ns := a.cfg.RedisNamespace
	if ns == "" {
		ns = defaultNamespace
	}
	return runstore.New(&redis.Options{Addr: addr}, ns)
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, version)
		},
	}
}
