package domain

import (
	"fmt"

	"github.com/operator-framework/plansat/internal/trail"
)

// Reserved cause sources. Non-negative sources are propagator indices
// assigned by the propagation engine.
const (
	SourceDecision int32 = -1
)

// Decision is the cause attached to bound changes made by the search.
func Decision() trail.Cause {
	return trail.Cause{Source: SourceDecision}
}

// DomainEmpty reports that applying Lit would leave Var with no value.
type DomainEmpty struct {
	Var VarID
	Lit Lit
}

func (e DomainEmpty) Error() string {
	return fmt.Sprintf("empty domain for x%d when setting %s", e.Var, e.Lit)
}

// Store holds the current bounds of every variable. All changes go through
// the trail, so any earlier state can be restored exactly.
type Store struct {
	t      *trail.Trail
	kinds  []Kind
	lb, ub []int64
	// position of the most recent trail entry for each bound, -1 when the
	// bound still has its declared value
	lastLB, lastUB []int32
}

func NewStore(t *trail.Trail) *Store {
	s := &Store{t: t}
	t.Register(trail.BoundLower, func(e trail.Entry) {
		s.lb[e.Target] = e.Prev
		s.lastLB[e.Target] = e.Link
	})
	t.Register(trail.BoundUpper, func(e trail.Entry) {
		s.ub[e.Target] = e.Prev
		s.lastUB[e.Target] = e.Link
	})
	return s
}

// NewVar declares a variable. Declared bounds are not recorded on the trail
// and survive a full reset of it.
func (s *Store) NewVar(kind Kind, lb, ub int64) (VarID, error) {
	if kind == Boolean {
		lb, ub = 0, 1
	}
	if lb > ub {
		return 0, fmt.Errorf("empty domain [%d, %d]", lb, ub)
	}
	if lb < MinBound || ub > MaxBound {
		return 0, fmt.Errorf("domain [%d, %d] exceeds [%d, %d]", lb, ub, MinBound, MaxBound)
	}
	v := VarID(len(s.kinds))
	s.kinds = append(s.kinds, kind)
	s.lb = append(s.lb, lb)
	s.ub = append(s.ub, ub)
	s.lastLB = append(s.lastLB, -1)
	s.lastUB = append(s.lastUB, -1)
	return v, nil
}

func (s *Store) NumVars() int {
	return len(s.kinds)
}

func (s *Store) Kind(v VarID) Kind {
	return s.kinds[v]
}

func (s *Store) Lower(v VarID) int64 {
	return s.lb[v]
}

func (s *Store) Upper(v VarID) int64 {
	return s.ub[v]
}

func (s *Store) Bounds(v VarID) (int64, int64) {
	return s.lb[v], s.ub[v]
}

// IsBound reports whether v has a single remaining value.
func (s *Store) IsBound(v VarID) bool {
	return s.lb[v] == s.ub[v]
}

// TightenLower raises the lower bound of v to k. It returns true when the
// bound moved, false when k was already implied, and DomainEmpty when k
// exceeds the upper bound, in which case nothing is changed.
func (s *Store) TightenLower(v VarID, k int64, cause trail.Cause) (bool, error) {
	if k <= s.lb[v] {
		return false, nil
	}
	if k > s.ub[v] {
		return false, DomainEmpty{Var: v, Lit: Geq(v, k)}
	}
	pos := s.t.Record(trail.Entry{
		Kind:   trail.BoundLower,
		Target: int32(v),
		Prev:   s.lb[v],
		Value:  k,
		Link:   s.lastLB[v],
		Cause:  cause,
	})
	s.lb[v] = k
	s.lastLB[v] = int32(pos)
	return true, nil
}

// TightenUpper lowers the upper bound of v to k; see TightenLower.
func (s *Store) TightenUpper(v VarID, k int64, cause trail.Cause) (bool, error) {
	if k >= s.ub[v] {
		return false, nil
	}
	if k < s.lb[v] {
		return false, DomainEmpty{Var: v, Lit: Leq(v, k)}
	}
	pos := s.t.Record(trail.Entry{
		Kind:   trail.BoundUpper,
		Target: int32(v),
		Prev:   s.ub[v],
		Value:  k,
		Link:   s.lastUB[v],
		Cause:  cause,
	})
	s.ub[v] = k
	s.lastUB[v] = int32(pos)
	return true, nil
}

// Set makes l true.
func (s *Store) Set(l Lit, cause trail.Cause) (bool, error) {
	if l.Rel == GEQ {
		return s.TightenLower(l.Var, l.Val, cause)
	}
	return s.TightenUpper(l.Var, l.Val, cause)
}

func (s *Store) Entails(l Lit) bool {
	if l.Rel == GEQ {
		return s.lb[l.Var] >= l.Val
	}
	return s.ub[l.Var] <= l.Val
}

func (s *Store) Value(l Lit) Truth {
	switch {
	case s.Entails(l):
		return True
	case s.Entails(l.Not()):
		return False
	}
	return Undef
}

// ImplyingEvent returns the trail position of the earliest change that made
// l true, or -1 when the declared domain already entails it. l must
// currently be entailed.
func (s *Store) ImplyingEvent(l Lit) int {
	var pos int32
	if l.Rel == GEQ {
		pos = s.lastLB[l.Var]
		for pos >= 0 {
			e := s.t.Entry(int(pos))
			if e.Prev < l.Val {
				return int(pos)
			}
			pos = e.Link
		}
		return -1
	}
	pos = s.lastUB[l.Var]
	for pos >= 0 {
		e := s.t.Entry(int(pos))
		if e.Prev > l.Val {
			return int(pos)
		}
		pos = e.Link
	}
	return -1
}

// EventLiteral returns the literal that the bound change at pos made true.
func (s *Store) EventLiteral(pos int) Lit {
	e := s.t.Entry(pos)
	if e.Kind == trail.BoundLower {
		return Geq(VarID(e.Target), e.Value)
	}
	return Leq(VarID(e.Target), e.Value)
}

// LowerAt returns the lower bound v had just before trail position pos.
func (s *Store) LowerAt(v VarID, pos int) int64 {
	val := s.lb[v]
	for p := s.lastLB[v]; p >= 0 && int(p) >= pos; {
		e := s.t.Entry(int(p))
		val = e.Prev
		p = e.Link
	}
	return val
}

// UpperAt returns the upper bound v had just before trail position pos.
func (s *Store) UpperAt(v VarID, pos int) int64 {
	val := s.ub[v]
	for p := s.lastUB[v]; p >= 0 && int(p) >= pos; {
		e := s.t.Entry(int(p))
		val = e.Prev
		p = e.Link
	}
	return val
}

// Level returns the decision level of the change at pos, treating the
// declared domain (pos < 0) as level 0.
func (s *Store) Level(pos int) int {
	if pos < 0 {
		return 0
	}
	return int(s.t.Entry(pos).Level)
}

// Trail exposes the trail the store records to.
func (s *Store) Trail() *trail.Trail {
	return s.t
}
