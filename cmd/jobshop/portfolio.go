package jobshop

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/operator-framework/plansat/pkg/plansat"
	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

// Strategy is a named set of solver options.
type Strategy struct {
	Name    string
	Options []solver.Option
}

// Strategies returns the default portfolio. base is applied before the
// options of every strategy.
func Strategies(base ...solver.Option) []Strategy {
	strategy := func(name string, options ...solver.Option) Strategy {
		return Strategy{Name: name, Options: append(append([]solver.Option{}, base...), options...)}
	}
	return []Strategy{
		strategy("activity",
			solver.WithBranching(solver.Activity), solver.WithLearning(true), solver.WithRestart(solver.Geometric)),
		strategy("activity-no-restart",
			solver.WithBranching(solver.Activity), solver.WithLearning(true), solver.WithRestart(solver.NoRestart)),
		strategy("first-unassigned",
			solver.WithBranching(solver.FirstUnassigned), solver.WithLearning(true), solver.WithRestart(solver.Geometric)),
		strategy("no-learning",
			solver.WithBranching(solver.Activity), solver.WithLearning(false)),
	}
}

// Result is the answer of one strategy of a portfolio.
type Result struct {
	Strategy string
	Outcome  *solver.Outcome
}

// Portfolio solves the same model with every strategy at once. The first
// Sat or Unsat answer wins and cancels the others. When no strategy
// answers, the result of the first one is returned.
func Portfolio(ctx context.Context, variables []plansat.Variable, strategies []Strategy) (*Result, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("empty portfolio")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	var (
		mu      sync.Mutex
		winner  *Result
		results = make([]*Result, len(strategies))
	)
	for i, s := range strategies {
		g.Go(func() error {
			outcome, err := solver.Solve(ctx, variables, s.Options...)
			if err != nil {
				return fmt.Errorf("strategy %s: %w", s.Name, err)
			}
			res := &Result{Strategy: s.Name, Outcome: outcome}
			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			if winner == nil && outcome.Status != solver.Unknown {
				winner = res
				cancel()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if winner != nil {
		return winner, nil
	}
	return results[0], nil
}
