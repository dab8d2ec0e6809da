package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/operator-framework/plansat/internal/oracle"
	"github.com/operator-framework/plansat/internal/search"
	"github.com/operator-framework/plansat/pkg/plansat"
)

var (
	// ErrNoModel is returned by Solve before any model was loaded.
	ErrNoModel = errors.New("no model loaded")
	// ErrCrossCheck is returned when verifying an answer fails. It always
	// indicates a bug in the solver.
	ErrCrossCheck = errors.New("cross-check failed")
)

// Solver decides models over boolean and integer variables. A Solver is not
// safe for concurrent use; independent Solvers may run in parallel.
type Solver struct {
	branching  Branching
	learning   bool
	restart    Restart
	timeLimit  time.Duration
	stepLimit  int64
	log        *zap.Logger
	tracer     plansat.Tracer
	crossCheck bool

	mapping  *mapping
	instance *instance
}

func NewSolver(options ...Option) (*Solver, error) {
	s := &Solver{learning: true}
	for _, option := range append(options, defaults...) {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Solve loads variables into a new Solver and solves them once.
func Solve(ctx context.Context, variables []plansat.Variable, options ...Option) (*Outcome, error) {
	s, err := NewSolver(options...)
	if err != nil {
		return nil, err
	}
	if err := s.Load(variables); err != nil {
		return nil, err
	}
	return s.Solve(ctx)
}

// Load replaces the model of the solver. It returns an InvalidModel error,
// and keeps the previous model, when the variables or their constraints are
// malformed.
func (s *Solver) Load(variables []plansat.Variable) error {
	m := newMapping(variables)
	if err := m.Error(); err != nil {
		return err
	}
	s.mapping = m
	s.instance = nil
	return s.Reset()
}

// Reset discards the state of the previous search, including learned
// clauses, so the next Solve starts from the loaded model alone.
func (s *Solver) Reset() error {
	if s.mapping == nil {
		return nil
	}
	cfg := search.Config{
		Branching: s.branching.internal(),
		Learning:  s.learning,
		Restart:   s.restart.internal(),
		TimeLimit: s.timeLimit,
		StepLimit: s.stepLimit,
		Logger:    s.log,
	}
	if _, ok := s.tracer.(plansat.DefaultTracer); !ok {
		cfg.Tracer = tracer{m: s.mapping, t: s.tracer}
	}
	in, err := s.mapping.build(cfg)
	if err != nil {
		return err
	}
	s.instance = in
	return nil
}

// Solve searches for an assignment of the loaded model. A solver that
// already ran is reset first.
func (s *Solver) Solve(ctx context.Context) (*Outcome, error) {
	if s.mapping == nil {
		return nil, ErrNoModel
	}
	if s.instance == nil || s.instance.used {
		if err := s.Reset(); err != nil {
			return nil, err
		}
	}
	in := s.instance
	in.used = true

	id := uuid.New().String()
	log := s.log.With(zap.String("run", id))
	log.Info("solving",
		zap.Int("variables", len(s.mapping.inorder)),
		zap.Int("constraints", len(s.mapping.applied)),
		zap.String("branching", string(s.branching)),
		zap.Bool("learning", s.learning),
	)
	start := time.Now()
	res := in.searcher.Run(ctx)

	outcome := &Outcome{
		RunID:  id,
		Status: statusOf(res.Status),
		Reason: reasonOf(res.Reason),
		Stats:  Stats(res.Stats),
	}
	switch outcome.Status {
	case Sat:
		outcome.Assignment = s.mapping.Assignment(in.store)
	case Unsat:
		outcome.Core = s.mapping.Conflicts(res.Core)
	}
	log.Info("solved",
		zap.Stringer("status", outcome.Status),
		zap.String("reason", string(outcome.Reason)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("decisions", outcome.Stats.Decisions),
		zap.Int64("conflicts", outcome.Stats.Conflicts),
		zap.Int64("learned", outcome.Stats.Learned),
	)

	if s.crossCheck {
		if err := s.check(ctx, outcome, res.Core); err != nil {
			log.Error("cross-check failed", zap.Error(err))
			return outcome, err
		}
	}
	return outcome, nil
}

func statusOf(st search.Status) Status {
	switch st {
	case search.Sat:
		return Sat
	case search.Unsat:
		return Unsat
	}
	return Unknown
}

// check verifies an answer: the assignment must satisfy every constraint,
// and gini must agree on boolean models, including that the core alone is
// unsatisfiable.
func (s *Solver) check(ctx context.Context, outcome *Outcome, core []int32) error {
	m := s.mapping
	if outcome.Status == Sat {
		if origin, ok := m.Violated(outcome.Assignment); ok {
			return fmt.Errorf("%w: assignment violates %q", ErrCrossCheck, m.applied[origin])
		}
	}
	if outcome.Status == Unknown {
		return nil
	}
	o, ok := m.Oracle()
	if !ok {
		return nil
	}
	want := oracle.Sat
	if outcome.Status == Unsat {
		want = oracle.Unsat
	}
	if got := o.Solve(ctx); got != oracle.Unknown && got != want {
		return fmt.Errorf("%w: search answered %s, gini answered %s", ErrCrossCheck, outcome.Status, got)
	}
	if outcome.Status == Unsat {
		if len(core) == 0 {
			// every refutation uses at least one constraint
			return fmt.Errorf("%w: empty core", ErrCrossCheck)
		}
		o, _ := m.Oracle(core...)
		if got := o.Solve(ctx); got == oracle.Sat {
			return fmt.Errorf("%w: core %v is satisfiable", ErrCrossCheck, core)
		}
	}
	return nil
}

// tracer hands search positions to a plansat.Tracer in terms of the model.
type tracer struct {
	m *mapping
	t plansat.Tracer
}

func (t tracer) Trace(p search.Position) {
	t.t.Trace(position{m: t.m, p: p})
}

type position struct {
	m *mapping
	p search.Position
}

func (p position) Decisions() []plansat.Literal {
	return p.m.literals(p.p.Decisions)
}

func (p position) Conflict() []plansat.Literal {
	return p.m.literals(p.p.Conflict)
}
