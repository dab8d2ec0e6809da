package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/operator-framework/plansat/internal/domain"
	"github.com/operator-framework/plansat/internal/propagation"
	"github.com/operator-framework/plansat/internal/trail"
)

// State is a step of the search loop.
type State uint8

const (
	Ready State = iota
	Deciding
	Propagating
	Conflicting
	Satisfied
	Undecided
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Deciding:
		return "deciding"
	case Propagating:
		return "propagating"
	case Conflicting:
		return "conflict"
	case Satisfied:
		return "satisfied"
	case Undecided:
		return "undecided"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Status is the final answer of a search.
type Status uint8

const (
	Unknown Status = iota
	Sat
	Unsat
)

func (s Status) String() string {
	switch s {
	case Sat:
		return "SAT"
	case Unsat:
		return "UNSAT"
	}
	return "UNKNOWN"
}

// Stats counts search events.
type Stats struct {
	Decisions    int64
	Conflicts    int64
	Propagations int64
	Restarts     int64
	Learned      int64
}

// Result is returned by Run. Core lists the origins of the input
// constraints that make the problem unsatisfiable.
type Result struct {
	Status Status
	Reason Reason
	Core   []int32
	Stats  Stats
}

// Position is handed to the tracer on every conflict.
type Position struct {
	Decisions []domain.Lit
	Conflict  []domain.Lit
}

type Tracer interface {
	Trace(p Position)
}

type Config struct {
	Branching Branching
	Learning  bool
	Restart   Restart
	TimeLimit time.Duration
	StepLimit int64
	Logger    *zap.Logger
	Tracer    Tracer
}

// Searcher runs the decide, propagate and backjump loop over one engine.
// It is not safe for concurrent use.
type Searcher struct {
	cfg      Config
	engine   *propagation.Engine
	clauses  *propagation.ClauseDB
	store    *domain.Store
	trail    *trail.Trail
	brancher brancher
	restarts *restarts
	roots    map[int][]int32
	// decision literal of every open level, level 1 first
	decisions []domain.Lit
	stats     Stats
	log       *zap.Logger
	progress  *rate.Limiter
}

func New(engine *propagation.Engine, clauses *propagation.ClauseDB, cfg Config) *Searcher {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Searcher{
		cfg:      cfg,
		engine:   engine,
		clauses:  clauses,
		store:    engine.Store(),
		trail:    engine.Trail(),
		brancher: newBrancher(cfg.Branching, engine.Store()),
		restarts: newRestarts(cfg.Restart, cfg.Learning),
		roots:    map[int][]int32{},
		log:      log,
		progress: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Run searches until the problem is solved or the budget is spent. On Sat
// the store holds the assignment until the engine is discarded.
func (s *Searcher) Run(ctx context.Context) Result {
	b := newBudget(time.Now(), s.cfg.TimeLimit, s.cfg.StepLimit)
	state := Ready
	var conflict *propagation.Conflict
	for {
		switch state {
		case Ready:
			if err := s.engine.Init(); err != nil {
				conflict = asConflict(err)
				state = Conflicting
				continue
			}
			state = Deciding

		case Deciding:
			if reason, ok := b.exceeded(ctx, s.stats.Decisions); ok {
				return s.result(Unknown, reason, nil)
			}
			if s.restarts.due() {
				s.backtrack(0)
				s.stats.Restarts++
				s.log.Debug("restart", zap.Int64("conflicts", s.stats.Conflicts))
			}
			lit, ok := s.brancher.next()
			if !ok {
				state = Satisfied
				continue
			}
			s.decide(lit)
			state = Propagating

		case Propagating:
			if err := s.engine.Propagate(); err != nil {
				conflict = asConflict(err)
				state = Conflicting
				continue
			}
			state = Undecided

		case Undecided:
			state = Deciding

		case Conflicting:
			s.stats.Conflicts++
			s.restarts.conflict()
			s.trace(conflict)
			if s.progress.Allow() {
				s.log.Debug("search progress",
					zap.Int64("decisions", s.stats.Decisions),
					zap.Int64("conflicts", s.stats.Conflicts),
					zap.Int64("learned", s.stats.Learned),
					zap.Int("level", s.trail.Level()),
				)
			}
			core, unsat := s.handle(conflict)
			if unsat {
				return s.result(Unsat, NoReason, core)
			}
			state = Propagating

		case Satisfied:
			return s.result(Sat, NoReason, nil)
		}
	}
}

func asConflict(err error) *propagation.Conflict {
	var c *propagation.Conflict
	if errors.As(err, &c) {
		return c
	}
	// propagators only fail with conflicts; anything else is a bug
	panic(fmt.Sprintf("search: unexpected propagation error: %v", err))
}

func (s *Searcher) decide(lit domain.Lit) {
	s.trail.PushLevel()
	s.decisions = append(s.decisions, lit)
	if _, err := s.store.Set(lit, domain.Decision()); err != nil {
		panic(fmt.Sprintf("search: decision %s is not undecided: %v", lit, err))
	}
	s.stats.Decisions++
}

func (s *Searcher) backtrack(level int) {
	s.brancher.backtrack(level)
	s.engine.Backtrack(level)
	if len(s.decisions) > level {
		s.decisions = s.decisions[:level]
	}
}

// handle resolves a conflict by backjumping. It reports true, together
// with the unsatisfiable core, when the conflict does not depend on any
// decision.
func (s *Searcher) handle(c *propagation.Conflict) ([]int32, bool) {
	for {
		if s.trail.Level() == 0 {
			return s.provenance(c), true
		}
		var err error
		if s.cfg.Learning {
			err = s.learn(c)
		} else {
			err = s.nogood(c)
		}
		if err == nil {
			return nil, false
		}
		c = asConflict(err)
	}
}

func (s *Searcher) learn(c *propagation.Conflict) error {
	l, ok := s.analyze(c)
	if !ok {
		// nothing at this level: retry from the highest level involved
		s.backtrack(l.backjump)
		return c
	}
	vars := make([]domain.VarID, len(l.lits))
	for i, lit := range l.lits {
		vars[i] = lit.Var
	}
	s.brancher.bump(vars)
	s.backtrack(l.backjump)
	s.stats.Learned++
	return s.clauses.Learn(l.lits, l.origins)
}

// nogood forbids the current combination of decisions with a clause that
// is forgotten once the level below the last decision is undone.
func (s *Searcher) nogood(c *propagation.Conflict) error {
	origins := s.provenance(c)
	lits := make([]domain.Lit, len(s.decisions))
	for i, d := range s.decisions {
		lits[len(lits)-1-i] = d.Not()
	}
	s.backtrack(s.trail.Level() - 1)
	return s.clauses.AddTemporary(lits, origins)
}

func (s *Searcher) trace(c *propagation.Conflict) {
	if s.cfg.Tracer == nil {
		return
	}
	s.cfg.Tracer.Trace(Position{
		Decisions: append([]domain.Lit(nil), s.decisions...),
		Conflict:  append([]domain.Lit(nil), c.Lits...),
	})
}

func (s *Searcher) result(status Status, reason Reason, core []int32) Result {
	s.stats.Propagations = s.engine.Propagations()
	return Result{Status: status, Reason: reason, Core: core, Stats: s.stats}
}

// Stats returns the counters of the search so far.
func (s *Searcher) Stats() Stats {
	st := s.stats
	st.Propagations = s.engine.Propagations()
	return st
}
