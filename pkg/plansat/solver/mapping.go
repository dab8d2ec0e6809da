package solver

import (
	"fmt"
	"math/big"

	"github.com/operator-framework/plansat/internal/domain"
	"github.com/operator-framework/plansat/internal/oracle"
	"github.com/operator-framework/plansat/internal/propagation"
	"github.com/operator-framework/plansat/internal/search"
	"github.com/operator-framework/plansat/internal/trail"
	"github.com/operator-framework/plansat/pkg/plansat"
)

var _ plansat.Encoder = &mapping{}

type clauseInput struct {
	lits   []domain.Lit
	origin int32
}

type linearInput struct {
	terms  []propagation.Term
	bound  int64
	origin int32
}

// mapping performs translation between the model and the inputs of the
// engine. Each applied constraint is identified by its index in applied,
// which is the origin of everything it encodes.
type mapping struct {
	inorder []plansat.Variable
	vars    map[plansat.Identifier]domain.VarID
	applied []plansat.AppliedConstraint
	current int32
	clauses []clauseInput
	linears []linearInput
	edges   []propagation.Edge
	errs    plansat.InvalidModel
}

func newMapping(variables []plansat.Variable) *mapping {
	m := &mapping{
		inorder: variables,
		vars:    make(map[plansat.Identifier]domain.VarID, len(variables)),
	}
	for i, v := range variables {
		id := v.Identifier()
		if _, ok := m.vars[id]; ok {
			m.errs = append(m.errs, plansat.DuplicateIdentifier(id))
			continue
		}
		if d := v.Domain(); !valid(d) {
			m.errs = append(m.errs, plansat.InvalidDomain{Variable: id, Domain: d})
		}
		m.vars[id] = domain.VarID(i)
	}
	for _, v := range variables {
		for _, c := range v.Constraints() {
			m.current = int32(len(m.applied))
			m.applied = append(m.applied, plansat.AppliedConstraint{Variable: v, Constraint: c})
			c.Apply(m, v.Identifier())
		}
	}
	return m
}

func valid(d plansat.Domain) bool {
	switch d.Kind {
	case plansat.Boolean:
		return true
	case plansat.Integer:
		return d.Lower <= d.Upper && d.Lower >= domain.MinBound && d.Upper <= domain.MaxBound
	}
	return false
}

// Error returns every problem found in the model, or nil.
func (m *mapping) Error() error {
	if len(m.errs) == 0 {
		return nil
	}
	return m.errs
}

func (m *mapping) illTyped(format string, args ...interface{}) {
	m.errs = append(m.errs, plansat.IllTyped{
		Constraint: m.applied[m.current].String(),
		Reason:     fmt.Sprintf(format, args...),
	})
}

func (m *mapping) varOf(id plansat.Identifier) (domain.VarID, plansat.Domain, bool) {
	v, ok := m.vars[id]
	if !ok {
		m.errs = append(m.errs, plansat.UndeclaredVariable{Variable: id, Constraint: m.applied[m.current].String()})
		return 0, plansat.Domain{}, false
	}
	return v, m.inorder[v].Domain(), true
}

func (m *mapping) litOf(l plansat.Literal) (domain.Lit, bool) {
	v, d, ok := m.varOf(l.Subject)
	if !ok {
		return domain.Lit{}, false
	}
	if d.Kind == plansat.Boolean && l.Value != 0 && l.Value != 1 {
		m.illTyped("literal %s compares boolean %q against %d", l, l.Subject, l.Value)
		return domain.Lit{}, false
	}
	if l.Value < domain.MinBound || l.Value > domain.MaxBound {
		m.illTyped("literal %s is out of range", l)
		return domain.Lit{}, false
	}
	if l.Relation == plansat.AtLeast {
		return domain.Geq(v, l.Value), true
	}
	return domain.Leq(v, l.Value), true
}

func (m *mapping) Clause(lits ...plansat.Literal) {
	out := make([]domain.Lit, 0, len(lits))
	ok := true
	for _, l := range lits {
		lit, valid := m.litOf(l)
		ok = ok && valid
		out = append(out, lit)
	}
	if ok {
		m.clauses = append(m.clauses, clauseInput{lits: out, origin: m.current})
	}
}

func (m *mapping) Linear(terms []plansat.Term, bound int64) {
	// terms over the same variable are merged, in order of first appearance
	index := map[domain.VarID]int{}
	var merged []propagation.Term
	ok := true
	for _, t := range terms {
		v, _, declared := m.varOf(t.Subject)
		if !declared {
			ok = false
			continue
		}
		if t.Coef == 0 {
			m.illTyped("zero coefficient for %q", t.Subject)
			ok = false
			continue
		}
		if t.Coef > domain.MaxBound || t.Coef < domain.MinBound {
			m.illTyped("coefficient %d for %q is out of range", t.Coef, t.Subject)
			ok = false
			continue
		}
		if i, seen := index[v]; seen {
			merged[i].Coef += t.Coef
			if c := merged[i].Coef; c > domain.MaxBound || c < domain.MinBound {
				m.illTyped("coefficient %d for %q is out of range", c, t.Subject)
				ok = false
			}
			continue
		}
		index[v] = len(merged)
		merged = append(merged, propagation.Term{Coef: t.Coef, Var: v})
	}
	if !ok {
		return
	}
	out := merged[:0]
	for _, t := range merged {
		if t.Coef != 0 {
			out = append(out, t)
		}
	}
	if !m.bounded(out, bound) {
		m.illTyped("linear constraint with bound %d may exceed %d in magnitude", bound, maxMagnitude)
		return
	}
	if len(out) == 0 {
		// 0 <= bound
		if bound < 0 {
			m.clauses = append(m.clauses, clauseInput{origin: m.current})
		}
		return
	}
	m.linears = append(m.linears, linearInput{terms: out, bound: bound, origin: m.current})
}

// maxMagnitude bounds |bound| + sum |coef|*max(|lb|, |ub|) of a linear
// constraint, so that no sum computed while propagating or checking it
// overflows or saturates.
const maxMagnitude = int64(1) << 62

func (m *mapping) bounded(terms []propagation.Term, bound int64) bool {
	abs := func(x int64) *big.Int { return new(big.Int).Abs(big.NewInt(x)) }
	total := abs(bound)
	for _, t := range terms {
		d := m.inorder[t.Var].Domain()
		reach := abs(d.Lower)
		if u := abs(d.Upper); u.Cmp(reach) > 0 {
			reach = u
		}
		total.Add(total, reach.Mul(reach, abs(t.Coef)))
	}
	return total.Cmp(big.NewInt(maxMagnitude)) <= 0
}

func (m *mapping) edge(from, to plansat.Identifier, weight int64) (propagation.Edge, bool) {
	ok := true
	var vars [2]domain.VarID
	for i, id := range []plansat.Identifier{from, to} {
		v, d, declared := m.varOf(id)
		if !declared {
			ok = false
			continue
		}
		if d.Kind != plansat.Integer {
			m.illTyped("timepoint %q is not an integer variable", id)
			ok = false
		}
		vars[i] = v
	}
	if weight > domain.MaxBound || weight < domain.MinBound {
		m.illTyped("weight %d is out of range", weight)
		ok = false
	}
	return propagation.Edge{Source: vars[0], Target: vars[1], Weight: weight, Origin: m.current}, ok
}

func (m *mapping) Edge(from, to plansat.Identifier, weight int64) {
	if e, ok := m.edge(from, to, weight); ok {
		m.edges = append(m.edges, e)
	}
}

func (m *mapping) GuardedEdge(guard plansat.Literal, from, to plansat.Identifier, weight int64) {
	e, ok := m.edge(from, to, weight)
	g, valid := m.litOf(guard)
	if !valid {
		return
	}
	if m.inorder[g.Var].Domain().Kind != plansat.Boolean {
		m.illTyped("guard %s is not a boolean literal", guard)
		return
	}
	if ok {
		e.Guard, e.Guarded = g, true
		m.edges = append(m.edges, e)
	}
}

// instance is the engine built for one search.
type instance struct {
	store    *domain.Store
	searcher *search.Searcher
	used     bool
}

func (m *mapping) build(cfg search.Config) (*instance, error) {
	tr := trail.New()
	store := domain.NewStore(tr)
	for _, v := range m.inorder {
		d := v.Domain()
		kind := domain.Integer
		if d.Kind == plansat.Boolean {
			kind = domain.Boolean
		}
		if _, err := store.NewVar(kind, d.Lower, d.Upper); err != nil {
			return nil, fmt.Errorf("declaring %q: %w", v.Identifier(), err)
		}
	}

	e := propagation.New(store)
	clauses := propagation.NewClauseDB()
	e.Register(clauses)
	for _, c := range m.clauses {
		clauses.AddInput(c.lits, c.origin)
	}
	if len(m.linears) > 0 {
		linear := propagation.NewLinear()
		e.Register(linear)
		for _, c := range m.linears {
			linear.Add(c.terms, c.bound, c.origin)
		}
	}
	if len(m.edges) > 0 {
		temporal := propagation.NewTemporal(tr)
		e.Register(temporal)
		for _, edge := range m.edges {
			temporal.Add(edge)
		}
	}
	return &instance{store: store, searcher: search.New(e, clauses, cfg)}, nil
}

func (m *mapping) identifierOf(v domain.VarID) plansat.Identifier {
	return m.inorder[v].Identifier()
}

func (m *mapping) literal(l domain.Lit) plansat.Literal {
	if l.Rel == domain.GEQ {
		return plansat.Geq(m.identifierOf(l.Var), l.Val)
	}
	return plansat.Leq(m.identifierOf(l.Var), l.Val)
}

func (m *mapping) literals(ls []domain.Lit) []plansat.Literal {
	out := make([]plansat.Literal, len(ls))
	for i, l := range ls {
		out[i] = m.literal(l)
	}
	return out
}

// Conflicts returns the applied constraints named by a core.
func (m *mapping) Conflicts(core []int32) plansat.NotSatisfiable {
	as := make(plansat.NotSatisfiable, 0, len(core))
	for _, origin := range core {
		as = append(as, m.applied[origin])
	}
	return as
}

func (m *mapping) Assignment(store *domain.Store) Assignment {
	a := make(Assignment, len(m.inorder))
	for i, v := range m.inorder {
		a[v.Identifier()] = store.Lower(domain.VarID(i))
	}
	return a
}

// Violated returns the origin of the first constraint the assignment breaks.
func (m *mapping) Violated(a Assignment) (int32, bool) {
	value := func(v domain.VarID) int64 {
		return a[m.identifierOf(v)]
	}
	holds := func(l domain.Lit) bool {
		if l.Rel == domain.GEQ {
			return value(l.Var) >= l.Val
		}
		return value(l.Var) <= l.Val
	}
	for _, c := range m.clauses {
		ok := false
		for _, l := range c.lits {
			if holds(l) {
				ok = true
				break
			}
		}
		if !ok {
			return c.origin, true
		}
	}
	for _, c := range m.linears {
		// exact: bounded holds for every linear constraint
		var sum int64
		for _, t := range c.terms {
			sum += t.Coef * value(t.Var)
		}
		if sum > c.bound {
			return c.origin, true
		}
	}
	for _, e := range m.edges {
		if e.Guarded && !holds(e.Guard) {
			continue
		}
		if value(e.Target)-value(e.Source) > e.Weight {
			return e.Origin, true
		}
	}
	return 0, false
}

// Oracle encodes the model for the reference solver, restricted to the
// given origins when any are given. It reports false when the model is not
// purely boolean or uses coefficients other than 1 and -1.
func (m *mapping) Oracle(only ...int32) (*oracle.Oracle, bool) {
	if len(m.edges) > 0 {
		return nil, false
	}
	for _, v := range m.inorder {
		if v.Domain().Kind != plansat.Boolean {
			return nil, false
		}
	}
	keep := func(origin int32) bool {
		if len(only) == 0 {
			return true
		}
		for _, o := range only {
			if o == origin {
				return true
			}
		}
		return false
	}
	o := oracle.New(len(m.inorder))
	for _, c := range m.clauses {
		if keep(c.origin) {
			o.Clause(c.origin, c.lits...)
		}
	}
	for _, c := range m.linears {
		// -x is (not x) - 1
		lits := make([]domain.Lit, len(c.terms))
		n := c.bound
		for i, t := range c.terms {
			switch t.Coef {
			case 1:
				lits[i] = domain.Pos(t.Var)
			case -1:
				lits[i] = domain.Neg(t.Var)
				n++
			default:
				return nil, false
			}
		}
		if keep(c.origin) {
			o.AtMost(c.origin, n, lits...)
		}
	}
	return o, true
}
