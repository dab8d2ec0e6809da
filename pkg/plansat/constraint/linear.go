package constraint

import (
	"fmt"
	"strings"

	"github.com/operator-framework/plansat/pkg/plansat"
)

type AtMostConstraint struct {
	ids []plansat.Identifier
	n   int
}

func (constraint *AtMostConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s permits at most %d of %s", subject, constraint.n, join(constraint.ids))
}

func (constraint *AtMostConstraint) Apply(enc plansat.Encoder, _ plansat.Identifier) {
	enc.Linear(unit(1, constraint.ids), int64(constraint.n))
}

// AtMost returns a Constraint that forbids solutions in which more than
// n of the boolean Variables identified by the given Identifiers are true.
func AtMost(n int, ids ...plansat.Identifier) plansat.Constraint {
	return &AtMostConstraint{
		ids: ids,
		n:   n,
	}
}

type AtLeastConstraint struct {
	ids []plansat.Identifier
	n   int
}

func (constraint *AtLeastConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s requires at least %d of %s", subject, constraint.n, join(constraint.ids))
}

func (constraint *AtLeastConstraint) Apply(enc plansat.Encoder, _ plansat.Identifier) {
	enc.Linear(unit(-1, constraint.ids), -int64(constraint.n))
}

// AtLeast returns a Constraint that forbids solutions in which fewer than
// n of the boolean Variables identified by the given Identifiers are true.
func AtLeast(n int, ids ...plansat.Identifier) plansat.Constraint {
	return &AtLeastConstraint{
		ids: ids,
		n:   n,
	}
}

type ExactlyOneConstraint struct {
	ids []plansat.Identifier
}

func (constraint *ExactlyOneConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s requires exactly one of %s", subject, join(constraint.ids))
}

func (constraint *ExactlyOneConstraint) Apply(enc plansat.Encoder, _ plansat.Identifier) {
	lits := make([]plansat.Literal, len(constraint.ids))
	for i, id := range constraint.ids {
		lits[i] = plansat.Is(id)
	}
	enc.Clause(lits...)
	enc.Linear(unit(1, constraint.ids), 1)
}

// ExactlyOne returns a Constraint requiring exactly one of the given
// boolean Variables to be true.
func ExactlyOne(ids ...plansat.Identifier) plansat.Constraint {
	return &ExactlyOneConstraint{ids: ids}
}

func unit(coef int64, ids []plansat.Identifier) []plansat.Term {
	terms := make([]plansat.Term, len(ids))
	for i, id := range ids {
		terms[i] = plansat.Term{Coef: coef, Subject: id}
	}
	return terms
}

type LinearConstraint struct {
	terms []plansat.Term
	bound int64
}

func (constraint *LinearConstraint) String(subject plansat.Identifier) string {
	var b strings.Builder
	for i, t := range constraint.terms {
		switch {
		case i == 0 && t.Coef < 0:
			b.WriteString("-")
		case i > 0 && t.Coef < 0:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		c := t.Coef
		if c < 0 {
			c = -c
		}
		if c != 1 {
			fmt.Fprintf(&b, "%d*", c)
		}
		b.WriteString(string(t.Subject))
	}
	if len(constraint.terms) == 0 {
		b.WriteString("0")
	}
	return fmt.Sprintf("%s requires %s <= %d", subject, b.String(), constraint.bound)
}

func (constraint *LinearConstraint) Apply(enc plansat.Encoder, _ plansat.Identifier) {
	enc.Linear(constraint.terms, constraint.bound)
}

// Linear returns a Constraint requiring the weighted sum of terms to be at
// most bound.
func Linear(bound int64, terms ...plansat.Term) plansat.Constraint {
	return &LinearConstraint{terms: terms, bound: bound}
}

type BoundConstraint struct {
	relation plansat.Relation
	value    int64
}

func (constraint *BoundConstraint) literal(subject plansat.Identifier) plansat.Literal {
	return plansat.Literal{Subject: subject, Relation: constraint.relation, Value: constraint.value}
}

func (constraint *BoundConstraint) String(subject plansat.Identifier) string {
	if constraint.relation == plansat.AtLeast {
		return fmt.Sprintf("%s cannot be before %d", subject, constraint.value)
	}
	return fmt.Sprintf("%s cannot be after %d", subject, constraint.value)
}

func (constraint *BoundConstraint) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	enc.Clause(constraint.literal(subject))
}

// NotBefore returns a Constraint requiring the subject to take a value of
// at least k, such as the release date of a timepoint.
func NotBefore(k int64) plansat.Constraint {
	return &BoundConstraint{relation: plansat.AtLeast, value: k}
}

// NotAfter returns a Constraint requiring the subject to take a value of
// at most k, such as a deadline.
func NotAfter(k int64) plansat.Constraint {
	return &BoundConstraint{relation: plansat.AtMost, value: k}
}
