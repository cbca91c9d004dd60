package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/consolidate/internal/a2a"
)

const cardTimeout = 5 * time.Second

func newAgentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "Check that the configured contributor agents are reachable",
		Long: `Fetch the agent card of every agent in consolidate.yml and report whether
it answers and declares a skill for its configured role.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Agents) == 0 {
				fmt.Fprintln(a.out, "No agents configured.")
				return nil
			}
			client := a2a.NewHTTPClient()
			for _, ag := range a.cfg.Agents {
				a.checkAgent(cmd.Context(), client, ag.ID, ag.Role, ag.Endpoint)
			}
			return nil
		},
	}
}

func (a *app) checkAgent(ctx context.Context, client a2a.Client, id, role, endpoint string) {
	if id == "" {
		id = role
	}
	ctx, cancel := context.WithTimeout(ctx, cardTimeout)
	defer cancel()

	card, err := client.FetchCard(ctx, endpoint)
	switch {
	case err != nil:
		a.logger.Debug("agent card fetch failed", zap.String("contributor", id), zap.Error(err))
		red.Fprintf(a.out, "✗ %s (%s) unreachable: %v\n", id, role, err)
	case !card.HasSkill(role):
		yellow.Fprintf(a.out, "⚠️  %s (%s) answers as %q but declares no %s skill\n", id, role, card.Name, role)
	default:
		green.Fprintf(a.out, "✓ %s (%s) %s %s\n", id, role, card.Name, card.Version)
	}
}
