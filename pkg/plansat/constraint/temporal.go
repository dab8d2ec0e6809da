package constraint

import (
	"fmt"

	"github.com/operator-framework/plansat/pkg/plansat"
)

type PrecedenceConstraint struct {
	other plansat.Identifier
	delay int64
	guard *plansat.Literal
}

func (constraint *PrecedenceConstraint) String(subject plansat.Identifier) string {
	s := fmt.Sprintf("%s happens at least %d before %s", subject, constraint.delay, constraint.other)
	if constraint.guard != nil {
		s = fmt.Sprintf("%s when %s", s, *constraint.guard)
	}
	return s
}

func (constraint *PrecedenceConstraint) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	// subject - other <= -delay
	if constraint.guard != nil {
		enc.GuardedEdge(*constraint.guard, constraint.other, subject, -constraint.delay)
		return
	}
	enc.Edge(constraint.other, subject, -constraint.delay)
}

// Precedes returns a Constraint requiring the subject timepoint to come at
// least delay before the other one.
func Precedes(other plansat.Identifier, delay int64) plansat.Constraint {
	return &PrecedenceConstraint{other: other, delay: delay}
}

// PrecedesIf is Precedes that only holds when guard does.
func PrecedesIf(guard plansat.Literal, other plansat.Identifier, delay int64) plansat.Constraint {
	return &PrecedenceConstraint{other: other, delay: delay, guard: &guard}
}

type WithinConstraint struct {
	other plansat.Identifier
	max   int64
}

func (constraint *WithinConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s happens at most %d after %s", constraint.other, constraint.max, subject)
}

func (constraint *WithinConstraint) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	enc.Edge(subject, constraint.other, constraint.max)
}

// Within returns a Constraint requiring the other timepoint to come at most
// max after the subject.
func Within(other plansat.Identifier, max int64) plansat.Constraint {
	return &WithinConstraint{other: other, max: max}
}

type DelayConstraint struct {
	other    plansat.Identifier
	min, max int64
}

func (constraint *DelayConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s happens between %d and %d after %s", constraint.other, constraint.min, constraint.max, subject)
}

func (constraint *DelayConstraint) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	enc.Edge(subject, constraint.other, constraint.max)
	enc.Edge(constraint.other, subject, -constraint.min)
}

// Delay returns a Constraint requiring other - subject to lie in [min, max].
func Delay(other plansat.Identifier, min, max int64) plansat.Constraint {
	return &DelayConstraint{other: other, min: min, max: max}
}

type NoOverlapConstraint struct {
	other         plansat.Identifier
	order         plansat.Identifier
	duration      int64
	otherDuration int64
}

func (constraint *NoOverlapConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s (duration %d) and %s (duration %d) cannot overlap", subject, constraint.duration, constraint.other, constraint.otherDuration)
}

func (constraint *NoOverlapConstraint) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	enc.GuardedEdge(plansat.Is(constraint.order), constraint.other, subject, -constraint.duration)
	enc.GuardedEdge(plansat.IsNot(constraint.order), subject, constraint.other, -constraint.otherDuration)
}

// NoOverlap returns a Constraint forbidding the task starting at the
// subject and the task starting at other from running at the same time.
// The boolean order is true when the subject runs first.
func NoOverlap(other, order plansat.Identifier, duration, otherDuration int64) plansat.Constraint {
	return &NoOverlapConstraint{
		other:         other,
		order:         order,
		duration:      duration,
		otherDuration: otherDuration,
	}
}
