package solver

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/operator-framework/plansat/internal/search"
	"github.com/operator-framework/plansat/pkg/plansat"
)

// Branching selects how the search picks its next decision.
type Branching string

const (
	// FirstUnassigned decides the first variable, in declaration order,
	// that is not yet fixed, setting it to its lower bound.
	FirstUnassigned Branching = "first-unassigned"
	// Activity decides the variable most involved in recent conflicts.
	Activity Branching = "activity"
)

func ParseBranching(s string) (Branching, error) {
	switch b := Branching(s); b {
	case FirstUnassigned, Activity:
		return b, nil
	}
	return "", fmt.Errorf("unknown branching %q, expected %q or %q", s, FirstUnassigned, Activity)
}

func (b Branching) internal() search.Branching {
	if b == FirstUnassigned {
		return search.FirstUnassigned
	}
	return search.Activity
}

// Restart selects when the search goes back to the root level.
type Restart string

const (
	NoRestart Restart = "none"
	// Geometric restarts after 100 conflicts, then after 1.5 times as many
	// conflicts as the previous run.
	Geometric Restart = "geometric"
)

func ParseRestart(s string) (Restart, error) {
	switch r := Restart(s); r {
	case NoRestart, Geometric:
		return r, nil
	}
	return "", fmt.Errorf("unknown restart policy %q, expected %q or %q", s, NoRestart, Geometric)
}

func (r Restart) internal() search.Restart {
	if r == Geometric {
		return search.Geometric
	}
	return search.NoRestart
}

type Option func(s *Solver) error

func WithBranching(b Branching) Option {
	return func(s *Solver) error {
		if _, err := ParseBranching(string(b)); err != nil {
			return err
		}
		s.branching = b
		return nil
	}
}

// WithLearning turns clause learning on or off. Without learning, conflicts
// are recorded as nogoods over the current decisions that are forgotten on
// backtrack, and restarts are disabled.
func WithLearning(learning bool) Option {
	return func(s *Solver) error {
		s.learning = learning
		return nil
	}
}

func WithRestart(r Restart) Option {
	return func(s *Solver) error {
		if _, err := ParseRestart(string(r)); err != nil {
			return err
		}
		s.restart = r
		return nil
	}
}

// WithTimeLimit bounds the duration of each solve. Zero means no limit.
func WithTimeLimit(d time.Duration) Option {
	return func(s *Solver) error {
		if d < 0 {
			return fmt.Errorf("negative time limit %s", d)
		}
		s.timeLimit = d
		return nil
	}
}

// WithStepLimit bounds the number of decisions of each solve. Zero means no
// limit.
func WithStepLimit(n int64) Option {
	return func(s *Solver) error {
		if n < 0 {
			return fmt.Errorf("negative step limit %d", n)
		}
		s.stepLimit = n
		return nil
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Solver) error {
		s.log = log
		return nil
	}
}

func WithTracer(t plansat.Tracer) Option {
	return func(s *Solver) error {
		s.tracer = t
		return nil
	}
}

// WithCrossCheck verifies every answer: assignments are checked against
// the model, and models over booleans only are solved a second time with
// gini, whose answer must agree.
func WithCrossCheck(enabled bool) Option {
	return func(s *Solver) error {
		s.crossCheck = enabled
		return nil
	}
}

var defaults = []Option{
	func(s *Solver) error {
		if s.branching == "" {
			s.branching = Activity
		}
		return nil
	},
	func(s *Solver) error {
		if s.restart == "" {
			s.restart = Geometric
		}
		return nil
	},
	func(s *Solver) error {
		if s.log == nil {
			s.log = zap.NewNop()
		}
		return nil
	},
	func(s *Solver) error {
		if s.tracer == nil {
			s.tracer = plansat.DefaultTracer{}
		}
		return nil
	},
}
