package oracle

import (
	"context"
	"sort"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/operator-framework/plansat/internal/domain"
)

const pollInterval = 5 * time.Millisecond

// Result is an answer of the reference solver, using gini's codes.
type Result int

const (
	Unsat   Result = -1
	Unknown Result = 0
	Sat     Result = 1
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "SAT"
	case Unsat:
		return "UNSAT"
	}
	return "UNKNOWN"
}

// Oracle decides formulas over boolean variables with gini. Every input
// constraint is tied to a selector literal that is assumed during the
// solve, so an unsatisfiable answer comes with the constraints that
// caused it.
type Oracle struct {
	c         *logic.C
	vars      []z.Lit
	selectors map[int32]z.Lit
	inorder   []int32
	g         inter.S
	core      []int32
}

// New returns an oracle over boolean variables 0 to vars-1.
func New(vars int) *Oracle {
	o := &Oracle{
		c:         logic.NewCCap(vars),
		vars:      make([]z.Lit, vars),
		selectors: map[int32]z.Lit{},
	}
	for i := range o.vars {
		o.vars[i] = o.c.Lit()
	}
	return o
}

// lit translates a bound literal over a boolean variable. When the literal
// is constant, ok is false and holds reports its value.
func (o *Oracle) lit(l domain.Lit) (m z.Lit, holds, ok bool) {
	x := o.vars[l.Var]
	if l.Rel == domain.GEQ {
		switch {
		case l.Val <= 0:
			return z.LitNull, true, false
		case l.Val > 1:
			return z.LitNull, false, false
		}
		return x, false, true
	}
	switch {
	case l.Val >= 1:
		return z.LitNull, true, false
	case l.Val < 0:
		return z.LitNull, false, false
	}
	return x.Not(), false, true
}

func (o *Oracle) falsum() z.Lit {
	x := o.c.Lit()
	return o.c.And(x, x.Not())
}

// require adds m to what origin asserts.
func (o *Oracle) require(origin int32, m z.Lit) {
	if s, ok := o.selectors[origin]; ok {
		o.selectors[origin] = o.c.And(s, m)
		return
	}
	o.selectors[origin] = m
	o.inorder = append(o.inorder, origin)
}

// Clause requires one of lits to hold.
func (o *Oracle) Clause(origin int32, lits ...domain.Lit) {
	ms := make([]z.Lit, 0, len(lits))
	for _, l := range lits {
		m, holds, ok := o.lit(l)
		if !ok {
			if holds {
				return
			}
			continue
		}
		ms = append(ms, m)
	}
	if len(ms) == 0 {
		o.require(origin, o.falsum())
		return
	}
	m := ms[0]
	for _, each := range ms[1:] {
		m = o.c.Or(m, each)
	}
	o.require(origin, m)
}

// AtMost requires no more than n of lits to hold.
func (o *Oracle) AtMost(origin int32, n int64, lits ...domain.Lit) {
	ms := make([]z.Lit, 0, len(lits))
	for _, l := range lits {
		m, holds, ok := o.lit(l)
		if !ok {
			if holds {
				n--
			}
			continue
		}
		ms = append(ms, m)
	}
	switch {
	case n < 0:
		o.require(origin, o.falsum())
	case n >= int64(len(ms)):
	default:
		o.require(origin, o.c.CardSort(ms).Leq(int(n)))
	}
}

// Solve decides the formula. It gives up with Unknown when ctx is done.
func (o *Oracle) Solve(ctx context.Context) Result {
	g := gini.New()
	o.c.ToCnf(g)
	for _, origin := range o.inorder {
		g.Assume(o.selectors[origin])
	}
	o.g = g
	o.core = nil

	// gini's Wait holds the lock Stop needs, so poll with Test instead
	gs := g.GoSolve()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	var res int
	for {
		r, done := gs.Test()
		if done {
			res = r
			break
		}
		select {
		case <-ctx.Done():
			gs.Stop()
			return Unknown
		case <-tick.C:
		}
	}

	if Result(res) == Unsat {
		origins := make(map[z.Lit][]int32, len(o.selectors))
		for _, origin := range o.inorder {
			m := o.selectors[origin]
			origins[m] = append(origins[m], origin)
		}
		for _, why := range g.Why(nil) {
			o.core = append(o.core, origins[why]...)
		}
		sort.Slice(o.core, func(i, j int) bool { return o.core[i] < o.core[j] })
	}
	return Result(res)
}

// Value reports the value of v in the model of the last satisfiable solve.
func (o *Oracle) Value(v domain.VarID) bool {
	return o.g.Value(o.vars[v])
}

// Core returns the input constraints behind the last unsatisfiable solve.
func (o *Oracle) Core() []int32 {
	return o.core
}
