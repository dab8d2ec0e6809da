package plansat

import (
	"fmt"
	"strings"
)

// NotSatisfiable is an error composed of a set of applied constraints
// that is sufficient to make a solution impossible.
type NotSatisfiable []AppliedConstraint

func (e NotSatisfiable) Error() string {
	const msg = "constraints not satisfiable"
	if len(e) == 0 {
		return msg
	}
	s := make([]string, len(e))
	for i, a := range e {
		s[i] = a.String()
	}
	return fmt.Sprintf("%s:\n%s", msg, strings.Join(s, "\n"))
}

// Identifier values uniquely identify particular Variables within
// the input to a single call to Solve.
type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// IdentifierFromString returns an Identifier based on a provided
// string.
func IdentifierFromString(s string) Identifier {
	return Identifier(s)
}

// Kind is the type of values a Variable ranges over.
type Kind uint8

const (
	Boolean Kind = iota
	Integer
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Domain is the declared range of a Variable. Boolean domains are always
// [0, 1].
type Domain struct {
	Kind  Kind
	Lower int64
	Upper int64
}

func (d Domain) String() string {
	if d.Kind == Boolean {
		return "boolean"
	}
	return fmt.Sprintf("[%d, %d]", d.Lower, d.Upper)
}

// Bool is the domain of a boolean variable.
func Bool() Domain {
	return Domain{Kind: Boolean, Lower: 0, Upper: 1}
}

// Range is the domain of an integer variable taking values in [lower, upper].
func Range(lower, upper int64) Domain {
	return Domain{Kind: Integer, Lower: lower, Upper: upper}
}

// Variable values are the basic unit of problems and solutions
// understood by this package.
type Variable interface {
	// Identifier returns the Identifier that uniquely identifies
	// this Variable among all other Variables in a given
	// problem.
	Identifier() Identifier
	// Domain returns the values this Variable may take.
	Domain() Domain
	// Constraints returns the set of constraints that apply to
	// this Variable.
	Constraints() []Constraint
}

// Relation is the direction of a Literal.
type Relation uint8

const (
	AtLeast Relation = iota
	AtMost
)

// Literal is the condition Subject >= Value or Subject <= Value. The
// literals of boolean variables are Is (>= 1) and IsNot (<= 0).
type Literal struct {
	Subject  Identifier
	Relation Relation
	Value    int64
}

// Is states that boolean variable id is true.
func Is(id Identifier) Literal {
	return Literal{Subject: id, Relation: AtLeast, Value: 1}
}

// IsNot states that boolean variable id is false.
func IsNot(id Identifier) Literal {
	return Literal{Subject: id, Relation: AtMost, Value: 0}
}

// Geq states that id takes a value of at least k.
func Geq(id Identifier, k int64) Literal {
	return Literal{Subject: id, Relation: AtLeast, Value: k}
}

// Leq states that id takes a value of at most k.
func Leq(id Identifier, k int64) Literal {
	return Literal{Subject: id, Relation: AtMost, Value: k}
}

// Not returns the complement of l.
func (l Literal) Not() Literal {
	if l.Relation == AtLeast {
		return Leq(l.Subject, l.Value-1)
	}
	return Geq(l.Subject, l.Value+1)
}

func (l Literal) String() string {
	if l.Relation == AtLeast {
		return fmt.Sprintf("%s >= %d", l.Subject, l.Value)
	}
	return fmt.Sprintf("%s <= %d", l.Subject, l.Value)
}

// Term is a coefficient applied to a variable in a linear constraint.
type Term struct {
	Coef    int64
	Subject Identifier
}

// Encoder receives the primitive constraints a Constraint is made of. Every
// primitive recorded during one Apply shares the provenance of the applied
// constraint, so an unsatisfiable core can point back to it.
type Encoder interface {
	// Clause requires at least one of lits to hold.
	Clause(lits ...Literal)
	// Linear requires the sum of terms to be at most bound.
	Linear(terms []Term, bound int64)
	// Edge requires to - from <= weight between two integer variables.
	Edge(from, to Identifier, weight int64)
	// GuardedEdge requires to - from <= weight whenever guard holds.
	GuardedEdge(guard Literal, from, to Identifier, weight int64)
}

// Constraint implementations limit the circumstances under which a
// particular Variable can take a value in a solution.
type Constraint interface {
	String(subject Identifier) string
	Apply(enc Encoder, subject Identifier)
}

// AppliedConstraint values compose a single Constraint with the
// Variable it applies to.
type AppliedConstraint struct {
	Variable   Variable
	Constraint Constraint
}

// String implements fmt.Stringer and returns a human-readable message
// representing the receiver.
func (a AppliedConstraint) String() string {
	return a.Constraint.String(a.Variable.Identifier())
}
