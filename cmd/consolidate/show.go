package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/consolidate/internal/runstore"
)

var errNoRedis = errors.New("no run store: pass --redis or set redisAddr in consolidate.yml")

func newShowCmd(a *app) *cobra.Command {
	var (
		redisAddr string
		jsonOut   bool
		render    bool
	)
	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.openRuns(redisAddr)
			if err != nil {
				return err
			}
			if runs == nil {
				return errNoRedis
			}
			defer runs.Close()

			report, err := runs.Get(cmd.Context(), args[0])
			if errors.Is(err, runstore.ErrNotFound) {
				return fmt.Errorf("run %s not found", args[0])
			}
			if err != nil {
				return err
			}

			if jsonOut {
				data, err := report.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(data))
				return nil
			}
			doc := report.Markdown
			if render {
				if doc, err = renderMarkdown(doc); err != nil {
					return fmt.Errorf("render: %w", err)
				}
			}
			fmt.Fprint(a.out, doc)
			return nil
		},
	}
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full JSON report")
	cmd.Flags().BoolVar(&render, "render", false, "render the markdown for the terminal")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	var (
		redisAddr string
		limit     int
		follow    bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.openRuns(redisAddr)
			if err != nil {
				return err
			}
			if runs == nil {
				return errNoRedis
			}
			defer runs.Close()

			ids, err := runs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(ids) == 0 && !follow {
				fmt.Fprintln(a.out, "No runs stored.")
				return nil
			}
			for _, id := range ids {
				report, err := runs.Get(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(a.out, "%s  (unreadable: %v)\n", id, err)
					continue
				}
				fmt.Fprintf(a.out, "%s  %s  %-9s %.2f  %s\n",
					id, report.ExportedAt, report.State, report.Score.Total, report.Title)
			}
			if follow {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				return a.follow(ctx, runs)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing runs as they are saved")
	return cmd
}

// follow prints each run summary published by the store until ctx is done.
func (a *app) follow(ctx context.Context, runs *runstore.Store) error {
	sub := runs.Subscribe(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var sum runstore.Summary
			if err := json.Unmarshal([]byte(msg.Payload), &sum); err != nil {
				a.logger.Warn("bad run event", zap.Error(err))
				continue
			}
			fmt.Fprintf(a.out, "%s  %s  %-9s %.2f  %s\n",
				sum.ID, sum.CreatedAt.Format(time.RFC3339), sum.State, sum.Score, sum.Title)
		}
	}
}
