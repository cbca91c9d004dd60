package synthesis

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParseAll parses every contribution in parallel, bounded by workers (zero or
// negative means one goroutine per contribution). Results keep input order.
//
// Parsing itself cannot fail; the only error is ctx cancellation observed
// before a contribution was started, in which case the partial results are
// discarded.
func (p *Parser) ParseAll(ctx context.Context, contributions []Contribution, workers int) ([]ContributorOutput, error) {
	outputs := make([]ContributorOutput, len(contributions))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, c := range contributions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outputs[i] = p.Parse(c)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
