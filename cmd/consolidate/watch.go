package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/consolidate/internal/collect"
)

func newWatchCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize whenever a contribution file changes",
		Long: `Synthesize once, then watch the contribution directory and synthesize
again after every change. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dir == "" {
				return errors.New("watch needs --dir")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if err := a.synthesize(ctx, opts); err != nil {
				return err
			}
			return collect.Watcher{
				Dir:    opts.dir,
				Logger: a.logger,
				OnChange: func(ctx context.Context) error {
					return a.synthesize(ctx, opts)
				},
			}.Run(ctx)
		},
	}
	opts.bind(cmd)
	return cmd
}
