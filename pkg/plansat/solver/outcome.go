package solver

import (
	"errors"
	"fmt"

	"github.com/operator-framework/plansat/internal/search"
	"github.com/operator-framework/plansat/pkg/plansat"
)

var ErrIncomplete = errors.New("cancelled before a solution could be found")

// Status is the answer of a solve.
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

// Reason tells why a solve ended with Unknown.
type Reason string

const (
	NoReason  Reason = ""
	Timeout   Reason = "timeout"
	StepLimit Reason = "step-limit"
	Cancelled Reason = "cancelled"
)

func reasonOf(r search.Reason) Reason {
	switch r {
	case search.Timeout:
		return Timeout
	case search.StepLimit:
		return StepLimit
	case search.Cancelled:
		return Cancelled
	}
	return NoReason
}

// Stats counts what the search did.
type Stats struct {
	Decisions    int64
	Conflicts    int64
	Propagations int64
	Restarts     int64
	Learned      int64
}

// Assignment maps every variable to its value. Booleans are 1 when true
// and 0 when false.
type Assignment map[plansat.Identifier]int64

// IsTrue reports whether the boolean variable id is true.
func (a Assignment) IsTrue(id plansat.Identifier) bool {
	return a[id] == 1
}

// Holds reports whether l is satisfied by the assignment.
func (a Assignment) Holds(l plansat.Literal) bool {
	v, ok := a[l.Subject]
	if !ok {
		return false
	}
	if l.Relation == plansat.AtLeast {
		return v >= l.Value
	}
	return v <= l.Value
}

// Outcome is returned by the Solver when the search ran. A search that ran
// can still end without a solution: Error tells why.
type Outcome struct {
	// RunID identifies the solve in the logs.
	RunID      string
	Status     Status
	Assignment Assignment
	// Core is set on Unsat. Any solution must violate one of its
	// constraints.
	Core   plansat.NotSatisfiable
	Reason Reason
	Stats  Stats
}

// Error returns nil when a solution was found, the core when the problem is
// unsatisfiable, and an error wrapping ErrIncomplete otherwise.
func (o *Outcome) Error() error {
	switch o.Status {
	case Sat:
		return nil
	case Unsat:
		return o.Core
	}
	return fmt.Errorf("%w: %s", ErrIncomplete, o.Reason)
}
