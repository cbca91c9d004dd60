package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/consolidate/internal/a2a"
	"github.com/dusk-indust/consolidate/internal/codeintel"
	"github.com/dusk-indust/consolidate/internal/collect"
	"github.com/dusk-indust/consolidate/internal/export"
	"github.com/dusk-indust/consolidate/internal/provenance"
	"github.com/dusk-indust/consolidate/internal/runstore"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// runOptions are the flags shared by run and watch.
type runOptions struct {
	dir        string
	title      string
	prompt     string
	jsonOut    bool
	render     bool
	quiet      bool
	redisAddr  string
	provenance string
	diagram    bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.dir, "dir", "d", "", "directory of <role>[.<id>].md contributions (default: ask the configured agents)")
	f.StringVarP(&o.title, "title", "t", "", "document title")
	f.StringVar(&o.prompt, "prompt", "", "prompt sent to contributor agents")
	f.BoolVar(&o.jsonOut, "json", false, "print the full JSON report instead of markdown")
	f.BoolVar(&o.render, "render", false, "render the markdown for the terminal")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "do not print progress and the score summary")
	f.StringVar(&o.redisAddr, "redis", "", "save the run to this Redis address (default from config)")
	f.StringVar(&o.provenance, "provenance", "", "record the conflict trail in this graph database (default from config)")
	f.BoolVar(&o.diagram, "diagram", false, "print a Mermaid diagram of the conflict trail")
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect contributions and synthesize the plan document",
		Long: `Collect every contribution, merge them into one document and print it.

Examples:
  # Synthesize from a directory of markdown files
  consolidate run --dir ./contributions --title "Password reset"

  # Ask the agents in consolidate.yml, save the run and show the conflict trail
  consolidate run --redis localhost:6379 --diagram`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.synthesize(ctx, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

// source picks where contributions come from.
func (a *app) source(opts runOptions) (collect.Source, error) {
	if opts.dir != "" {
		return collect.DirSource{Dir: opts.dir, Logger: a.logger}, nil
	}
	if len(a.cfg.Agents) == 0 {
		return nil, errors.New("no contributions: pass --dir or list agents in consolidate.yml")
	}
	agents := make([]collect.Agent, 0, len(a.cfg.Agents))
	for _, ag := range a.cfg.Agents {
		id := ag.ID
		if id == "" {
			id = ag.Role
		}
		agents = append(agents, collect.Agent{ID: id, Role: synthesis.Role(ag.Role), Endpoint: ag.Endpoint})
	}
	return collect.AgentSource{
		Client:  a2a.NewHTTPClient(),
		Agents:  agents,
		Prompt:  opts.prompt,
		RunID:   runstore.NewRunID(),
		Timeout: a.cfg.Timeout(defaultCollectTimeout),
		Logger:  a.logger,
	}, nil
}

// synthesize runs one collection and synthesis pass and prints the outcome.
func (a *app) synthesize(ctx context.Context, opts runOptions) error {
	src, err := a.source(opts)
	if err != nil {
		return err
	}
	contributions, err := src.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	title := opts.title
	if title == "" {
		title = a.cfg.Title
	}

	progress := synthesis.NewProgressReporter()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for t := range progress.Subscribe() {
			if !opts.quiet && !opts.jsonOut {
				fmt.Fprintln(a.errOut, synthesis.FormatTransition(t))
			}
		}
	}()

	engine := synthesis.NewEngine(a.synthesisConfig(),
		synthesis.WithLogger(a.logger),
		synthesis.WithAnalyzer(codeintel.NewTreeSitterAnalyzer()),
		synthesis.WithTitle(title),
		synthesis.WithProgress(progress),
	)
	res := engine.Synthesize(ctx, contributions)
	progress.Close()
	<-drained

	runID, err := a.persist(ctx, opts, res)
	if err != nil {
		return err
	}
	diagram, err := a.trail(ctx, opts, runID, res)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		data, err := export.NewReport(runID, res, time.Now()).JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(data))
	} else {
		doc := res.Document.Markdown()
		if opts.render {
			if doc, err = renderMarkdown(doc); err != nil {
				return fmt.Errorf("render: %w", err)
			}
		}
		fmt.Fprint(a.out, doc)
		if !opts.quiet {
			printSummary(a.errOut, runID, res)
		}
	}
	if diagram != "" {
		fmt.Fprint(a.out, "\n```mermaid\n"+diagram+"```\n")
	}
	return nil
}

// persist saves the run to Redis when an address is configured and returns
// its ID.
func (a *app) persist(ctx context.Context, opts runOptions, res synthesis.Result) (string, error) {
	runs, err := a.openRuns(opts.redisAddr)
	if err != nil || runs == nil {
		return "", err
	}
	defer runs.Close()

	id, err := runs.Save(ctx, res)
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	a.logger.Info("run saved", zap.String("run", id))
	return id, nil
}

// trail records the conflict trail when a provenance database is configured
// or a diagram was asked for, and returns the diagram if any. Without a
// database path the trail lives in memory for this command only.
func (a *app) trail(ctx context.Context, opts runOptions, runID string, res synthesis.Result) (string, error) {
	path := opts.provenance
	if path == "" {
		path = a.cfg.ProvenanceDB
	}
	if path == "" && !opts.diagram {
		return "", nil
	}

	var store provenance.Store = provenance.NewMemStore()
	if path != "" {
		s, err := openProvenance(path)
		if err != nil {
			return "", err
		}
		store = s
	}
	defer store.Close()

	if runID == "" {
		runID = runstore.NewRunID()
	}
	if err := provenance.Record(ctx, store, runID, res); err != nil {
		return "", err
	}
	if !opts.diagram {
		return "", nil
	}
	return export.GenerateMermaid(ctx, store, runID)
}
