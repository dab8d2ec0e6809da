package propagation

import (
	"github.com/operator-framework/plansat/internal/domain"
	"github.com/operator-framework/plansat/internal/trail"
)

// Term is a coefficient applied to a variable.
type Term struct {
	Coef int64
	Var  domain.VarID
}

type linear struct {
	terms  []Term
	bound  int64
	origin int32
}

// Linear enforces bound consistency on constraints sum(coef*var) <= bound.
type Linear struct {
	id          int32
	constraints []linear
	occurs      map[domain.VarID][]int32
}

func NewLinear() *Linear {
	return &Linear{occurs: map[domain.VarID][]int32{}}
}

// Add queues a constraint. Coefficients must be non-zero and each variable
// may appear in at most one term. The bound saturates like every sum.
func (p *Linear) Add(terms []Term, bound int64, origin int32) {
	c := int32(len(p.constraints))
	p.constraints = append(p.constraints, linear{terms: terms, bound: clamp(bound), origin: origin})
	for _, t := range terms {
		p.occurs[t.Var] = append(p.occurs[t.Var], c)
	}
}

func (p *Linear) Setup(e *Engine, id int32) error {
	p.id = id
	for _, c := range p.constraints {
		for _, t := range c.terms {
			// only the bound that raises the minimum of the term matters
			if t.Coef > 0 {
				e.Watch(t.Var, Lower, id)
			} else {
				e.Watch(t.Var, Upper, id)
			}
		}
	}
	for c := range p.constraints {
		if err := p.filter(e, int32(c)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Linear) Propagate(e *Engine, ev Event) error {
	for _, c := range p.occurs[ev.Var] {
		if err := p.filter(e, c); err != nil {
			return err
		}
	}
	return nil
}

// minTerm is the smallest value coef*v can take with v in [lb, ub].
func minTerm(t Term, lb, ub int64) int64 {
	if t.Coef > 0 {
		return satMul(t.Coef, lb)
	}
	return satMul(t.Coef, ub)
}

func (p *Linear) filter(e *Engine, c int32) error {
	s := e.store
	con := &p.constraints[c]
	if len(con.terms) == 0 {
		if con.bound < 0 {
			return &Conflict{Explanation{Origins: []int32{con.origin}}}
		}
		return nil
	}
	var sum int64
	for _, t := range con.terms {
		lb, ub := s.Bounds(t.Var)
		sum = satAdd(sum, minTerm(t, lb, ub))
	}
	cause := trail.Cause{Source: p.id, Aux: c}
	for i := 0; i < len(con.terms); i++ {
		t := con.terms[i]
		lb, ub := s.Bounds(t.Var)
		slack := satAdd(con.bound, -satAdd(sum, -minTerm(t, lb, ub)))
		var lit domain.Lit
		if t.Coef > 0 {
			lit = domain.Leq(t.Var, floorDiv(slack, t.Coef))
		} else {
			lit = domain.Geq(t.Var, ceilDiv(slack, t.Coef))
		}
		// the new bound is the one minTerm does not read, so sum stays valid
		if _, err := e.Set(lit, cause); err != nil {
			return err
		}
	}
	return nil
}

// Explain uses the bounds of the other terms just before pos: with those
// minimums the remaining slack forces lit.
func (p *Linear) Explain(e *Engine, lit domain.Lit, cause trail.Cause, pos int, out *Explanation) {
	s := e.store
	con := &p.constraints[cause.Aux]
	for _, t := range con.terms {
		if t.Var == lit.Var {
			continue
		}
		if t.Coef > 0 {
			out.Add(domain.Geq(t.Var, s.LowerAt(t.Var, pos)))
		} else {
			out.Add(domain.Leq(t.Var, s.UpperAt(t.Var, pos)))
		}
	}
	out.AddOrigins(con.origin)
}

const saturation = int64(1) << 62

func clamp(x int64) int64 {
	switch {
	case x > saturation:
		return saturation
	case x < -saturation:
		return -saturation
	}
	return x
}

func satAdd(a, b int64) int64 {
	return clamp(a + b)
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	r := a * b
	if r/b != a || r > saturation || r < -saturation {
		if (a > 0) == (b > 0) {
			return saturation
		}
		return -saturation
	}
	return r
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}
