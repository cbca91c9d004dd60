package collect

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/consolidate/internal/a2a"
	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// Agent is one contributor reachable over A2A.
type Agent struct {
	ID       string
	Role     synthesis.Role
	Endpoint string
}

// AgentSource asks every agent for its contribution in parallel. Agents
// that fail, return nothing, or miss the timeout are dropped and logged;
// they never fail the collection.
type AgentSource struct {
	Client  a2a.Client
	Agents  []Agent
	Prompt  string
	RunID   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Collect fans out to all agents and returns the contributions that arrived,
// in agent order. It only errors when ctx itself is canceled.
func (s AgentSource) Collect(ctx context.Context) ([]synthesis.Contribution, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	results := make([]*synthesis.Contribution, len(s.Agents))
	var g errgroup.Group
	for i, agent := range s.Agents {
		g.Go(func() error {
			text, err := a2a.Ask(callCtx, s.Client, agent.Endpoint, s.RunID, s.prompt(agent))
			if err != nil {
				logger.Warn("contributor dropped",
					zap.String("contributor", agent.ID),
					zap.String("role", string(agent.Role)),
					zap.Error(err),
				)
				return nil
			}
			if strings.TrimSpace(text) == "" {
				logger.Warn("contributor returned no text", zap.String("contributor", agent.ID))
				return nil
			}
			results[i] = &synthesis.Contribution{ContributorID: agent.ID, Role: agent.Role, RawText: text}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	out := make([]synthesis.Contribution, 0, len(results))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	logger.Info("collected contributions",
		zap.Int("agents", len(s.Agents)),
		zap.Int("arrived", len(out)),
	)
	return out, nil
}

func (s AgentSource) prompt(agent Agent) string {
	if s.Prompt != "" {
		return s.Prompt
	}
	return "Write your " + strings.ReplaceAll(string(agent.Role), "_", " ") +
		" contribution as markdown with one heading per section."
}
