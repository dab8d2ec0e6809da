package domain

import "fmt"

// VarID is the index of a variable in a Store.
type VarID int32

// Kind distinguishes boolean variables, whose domain is [0,1], from
// bounded integer variables.
type Kind uint8

const (
	Boolean Kind = iota
	Integer
)

func (k Kind) String() string {
	if k == Boolean {
		return "bool"
	}
	return "int"
}

// MaxBound is the largest magnitude a bound may take. Keeping bounds well
// inside the int64 range lets propagators add edge weights without
// overflowing.
const (
	MaxBound int64 = 1 << 48
	MinBound       = -MaxBound
)

// Relation is the direction of a bound literal.
type Relation uint8

const (
	GEQ Relation = iota
	LEQ
)

// Lit is an atomic bound condition on a variable: Var >= Val or Var <= Val.
type Lit struct {
	Var VarID
	Rel Relation
	Val int64
}

func Geq(v VarID, k int64) Lit { return Lit{Var: v, Rel: GEQ, Val: k} }
func Leq(v VarID, k int64) Lit { return Lit{Var: v, Rel: LEQ, Val: k} }

// Pos is the literal stating that boolean variable v is true.
func Pos(v VarID) Lit { return Geq(v, 1) }

// Neg is the literal stating that boolean variable v is false.
func Neg(v VarID) Lit { return Leq(v, 0) }

// Not returns the complement of l over the integers.
func (l Lit) Not() Lit {
	if l.Rel == GEQ {
		return Leq(l.Var, l.Val-1)
	}
	return Geq(l.Var, l.Val+1)
}

// Implies reports whether l being true forces o to be true, which only
// happens for literals on the same variable and in the same direction.
func (l Lit) Implies(o Lit) bool {
	if l.Var != o.Var || l.Rel != o.Rel {
		return false
	}
	if l.Rel == GEQ {
		return l.Val >= o.Val
	}
	return l.Val <= o.Val
}

// Weaker returns whichever of l and o is implied by the other. Both must
// share variable and direction.
func (l Lit) Weaker(o Lit) Lit {
	if l.Implies(o) {
		return o
	}
	return l
}

func (l Lit) String() string {
	if l.Rel == GEQ {
		return fmt.Sprintf("x%d >= %d", l.Var, l.Val)
	}
	return fmt.Sprintf("x%d <= %d", l.Var, l.Val)
}

// Truth is the three-valued status of a literal under the current bounds.
type Truth int8

const (
	Undef Truth = iota
	True
	False
)

func (t Truth) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "undef"
}
