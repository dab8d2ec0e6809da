package propagation_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/plansat/internal/domain"
	"github.com/operator-framework/plansat/internal/propagation"
	"github.com/operator-framework/plansat/internal/trail"
)

type harness struct {
	store    *domain.Store
	trail    *trail.Trail
	engine   *propagation.Engine
	clauses  *propagation.ClauseDB
	linear   *propagation.Linear
	temporal *propagation.Temporal
}

func newHarness() *harness {
	tr := trail.New()
	s := domain.NewStore(tr)
	h := &harness{
		store:    s,
		trail:    tr,
		engine:   propagation.New(s),
		clauses:  propagation.NewClauseDB(),
		linear:   propagation.NewLinear(),
		temporal: propagation.NewTemporal(tr),
	}
	h.engine.Register(h.clauses)
	h.engine.Register(h.linear)
	h.engine.Register(h.temporal)
	return h
}

func (h *harness) boolean(t *testing.T) domain.VarID {
	v, err := h.store.NewVar(domain.Boolean, 0, 1)
	require.NoError(t, err)
	return v
}

func (h *harness) integer(t *testing.T, lb, ub int64) domain.VarID {
	v, err := h.store.NewVar(domain.Integer, lb, ub)
	require.NoError(t, err)
	return v
}

// decide opens a level, applies l and propagates.
func (h *harness) decide(t *testing.T, l domain.Lit) error {
	h.trail.PushLevel()
	_, err := h.store.Set(l, domain.Decision())
	require.NoError(t, err)
	return h.engine.Propagate()
}

func (h *harness) explain(t *testing.T, l domain.Lit) propagation.Explanation {
	require.True(t, h.store.Entails(l), "%s is not entailed", l)
	var x propagation.Explanation
	h.engine.Explain(l, h.store.ImplyingEvent(l), &x)
	return x
}

func TestUnitPropagation(t *testing.T) {
	h := newHarness()
	x, y, z := h.boolean(t), h.boolean(t), h.boolean(t)
	h.clauses.AddInput([]domain.Lit{domain.Pos(x), domain.Pos(y)}, 0)
	h.clauses.AddInput([]domain.Lit{domain.Neg(x), domain.Pos(z)}, 1)
	h.clauses.AddInput([]domain.Lit{domain.Neg(y), domain.Neg(z)}, 2)
	require.NoError(t, h.engine.Init())
	assert.Equal(t, 0, h.trail.Len())

	require.NoError(t, h.decide(t, domain.Neg(x)))
	assert.True(t, h.store.Entails(domain.Pos(y)))
	assert.True(t, h.store.Entails(domain.Neg(z)))

	x1 := h.explain(t, domain.Pos(y))
	assert.Equal(t, []domain.Lit{domain.Neg(x)}, x1.Lits)
	assert.Equal(t, []int32{0}, x1.Origins)
	x2 := h.explain(t, domain.Neg(z))
	assert.Equal(t, []domain.Lit{domain.Pos(y)}, x2.Lits)
	assert.Equal(t, []int32{2}, x2.Origins)

	h.engine.Backtrack(0)
	assert.Equal(t, domain.Undef, h.store.Value(domain.Pos(y)))
	require.NoError(t, h.decide(t, domain.Pos(x)))
	assert.True(t, h.store.Entails(domain.Pos(z)))
	assert.True(t, h.store.Entails(domain.Neg(y)))
}

func TestClauseConflict(t *testing.T) {
	h := newHarness()
	x, y, z := h.boolean(t), h.boolean(t), h.boolean(t)
	h.clauses.AddInput([]domain.Lit{domain.Pos(x), domain.Pos(y)}, 0)
	h.clauses.AddInput([]domain.Lit{domain.Neg(x), domain.Pos(z)}, 1)
	h.clauses.AddInput([]domain.Lit{domain.Neg(y), domain.Neg(z)}, 2)
	h.clauses.AddInput([]domain.Lit{domain.Neg(z)}, 3)
	h.clauses.AddInput([]domain.Lit{domain.Neg(y)}, 4)
	h.clauses.AddInput([]domain.Lit{domain.Neg(x)}, 5)

	err := h.engine.Init()
	var c *propagation.Conflict
	require.True(t, errors.As(err, &c))
	assert.Equal(t, []domain.Lit{domain.Neg(x), domain.Neg(y)}, c.Lits)
	assert.Equal(t, []int32{0}, c.Origins)
}

func TestEmptyAndTautologicalClauses(t *testing.T) {
	h := newHarness()
	v := h.integer(t, 0, 10)
	h.clauses.AddInput([]domain.Lit{domain.Geq(v, 4), domain.Leq(v, 6)}, 0)
	require.NoError(t, h.engine.Init())
	assert.Equal(t, 0, h.clauses.Len())

	h = newHarness()
	h.clauses.AddInput(nil, 9)
	err := h.engine.Init()
	var c *propagation.Conflict
	require.True(t, errors.As(err, &c))
	assert.Empty(t, c.Lits)
	assert.Equal(t, []int32{9}, c.Origins)
}

func TestBoundClauses(t *testing.T) {
	h := newHarness()
	v := h.integer(t, 0, 10)
	b := h.boolean(t)
	// b -> v >= 7, v <= 3 or v >= 5
	h.clauses.AddInput([]domain.Lit{domain.Neg(b), domain.Geq(v, 7)}, 0)
	h.clauses.AddInput([]domain.Lit{domain.Leq(v, 3), domain.Geq(v, 5)}, 1)
	require.NoError(t, h.engine.Init())

	require.NoError(t, h.decide(t, domain.Geq(v, 4)))
	assert.Equal(t, int64(5), h.store.Lower(v))
	assert.Equal(t, []domain.Lit{domain.Geq(v, 4)}, h.explain(t, domain.Geq(v, 5)).Lits)

	require.NoError(t, h.decide(t, domain.Leq(v, 6)))
	assert.True(t, h.store.Entails(domain.Neg(b)))
	assert.Equal(t, []domain.Lit{domain.Leq(v, 6)}, h.explain(t, domain.Neg(b)).Lits)
}

func TestTemporaryClause(t *testing.T) {
	h := newHarness()
	x, y := h.boolean(t), h.boolean(t)
	require.NoError(t, h.engine.Init())

	require.NoError(t, h.decide(t, domain.Pos(x)))
	require.NoError(t, h.clauses.AddTemporary([]domain.Lit{domain.Pos(y), domain.Neg(x)}, []int32{3}))
	require.NoError(t, h.engine.Propagate())
	assert.True(t, h.store.Entails(domain.Pos(y)))
	assert.Equal(t, 1, h.clauses.Len())

	h.engine.Backtrack(0)
	assert.Equal(t, 0, h.clauses.Len())
	require.NoError(t, h.decide(t, domain.Pos(x)))
	assert.Equal(t, domain.Undef, h.store.Value(domain.Pos(y)))
}

func TestLearnedUnitClause(t *testing.T) {
	h := newHarness()
	x := h.boolean(t)
	require.NoError(t, h.engine.Init())

	require.NoError(t, h.clauses.Learn([]domain.Lit{domain.Neg(x)}, []int32{1, 2}))
	assert.True(t, h.store.Entails(domain.Neg(x)))
	assert.Equal(t, 1, h.clauses.Learned())
	x1 := h.explain(t, domain.Neg(x))
	assert.Empty(t, x1.Lits)
	assert.Equal(t, []int32{1, 2}, x1.Origins)
}

func TestLinear(t *testing.T) {
	h := newHarness()
	x, y := h.integer(t, 0, 10), h.integer(t, 0, 10)
	h.linear.Add([]propagation.Term{{Coef: 1, Var: x}, {Coef: 1, Var: y}}, 5, 7)
	require.NoError(t, h.engine.Init())
	assert.Equal(t, int64(5), h.store.Upper(x))
	assert.Equal(t, int64(5), h.store.Upper(y))

	require.NoError(t, h.decide(t, domain.Geq(x, 3)))
	assert.Equal(t, int64(2), h.store.Upper(y))
	x1 := h.explain(t, domain.Leq(y, 2))
	assert.Equal(t, []domain.Lit{domain.Geq(x, 3)}, x1.Lits)
	assert.Equal(t, []int32{7}, x1.Origins)
}

func TestLinearNegativeCoefficient(t *testing.T) {
	h := newHarness()
	x, y := h.integer(t, 0, 10), h.integer(t, 0, 10)
	// 2x - 3y <= 0
	h.linear.Add([]propagation.Term{{Coef: 2, Var: x}, {Coef: -3, Var: y}}, 0, 0)
	require.NoError(t, h.engine.Init())

	require.NoError(t, h.decide(t, domain.Geq(x, 6)))
	assert.Equal(t, int64(4), h.store.Lower(y))
	require.NoError(t, h.decide(t, domain.Geq(x, 7)))
	assert.Equal(t, int64(5), h.store.Lower(y))

	require.NoError(t, h.decide(t, domain.Leq(y, 6)))
	assert.Equal(t, int64(9), h.store.Upper(x))
}

func TestLinearConflict(t *testing.T) {
	h := newHarness()
	x, y := h.integer(t, 4, 10), h.integer(t, 3, 10)
	h.linear.Add([]propagation.Term{{Coef: 1, Var: x}, {Coef: 1, Var: y}}, 6, 1)
	err := h.engine.Init()
	var c *propagation.Conflict
	require.True(t, errors.As(err, &c))
	assert.Equal(t, []int32{1}, c.Origins)
	for _, l := range c.Lits {
		assert.True(t, h.store.Entails(l))
	}
}

func TestLinearWithoutTerms(t *testing.T) {
	for _, tt := range []struct {
		Name     string
		Bound    int64
		Conflict bool
	}{
		{Name: "0 <= 0", Bound: 0},
		{Name: "0 <= 4", Bound: 4},
		{Name: "0 <= -1", Bound: -1, Conflict: true},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			h := newHarness()
			h.linear.Add(nil, tt.Bound, 3)
			err := h.engine.Init()
			if !tt.Conflict {
				assert.NoError(t, err)
				return
			}
			var c *propagation.Conflict
			require.True(t, errors.As(err, &c))
			assert.Equal(t, []int32{3}, c.Origins)
			assert.Empty(t, c.Lits)
		})
	}
}

func TestLinearExtremeBounds(t *testing.T) {
	h := newHarness()
	x, y := h.integer(t, 0, 10), h.integer(t, 0, 10)
	// -x + y <= MaxInt64 always holds
	h.linear.Add([]propagation.Term{{Coef: -1, Var: x}, {Coef: 1, Var: y}}, math.MaxInt64, 0)
	require.NoError(t, h.engine.Init())
	lb, ub := h.store.Bounds(y)
	assert.Equal(t, [2]int64{0, 10}, [2]int64{lb, ub})
	lb, ub = h.store.Bounds(x)
	assert.Equal(t, [2]int64{0, 10}, [2]int64{lb, ub})

	h = newHarness()
	x, y = h.integer(t, 0, 10), h.integer(t, 0, 10)
	// -x + y <= MinInt64 never does
	h.linear.Add([]propagation.Term{{Coef: -1, Var: x}, {Coef: 1, Var: y}}, math.MinInt64, 1)
	var c *propagation.Conflict
	require.True(t, errors.As(h.engine.Init(), &c))
	assert.Equal(t, []int32{1}, c.Origins)
}

func TestTemporalBounds(t *testing.T) {
	h := newHarness()
	t1, t2 := h.integer(t, 0, 100), h.integer(t, 0, 100)
	// t2 - t1 <= 5
	h.temporal.Add(propagation.Edge{Source: t1, Target: t2, Weight: 5, Origin: 4})
	require.NoError(t, h.engine.Init())

	require.NoError(t, h.decide(t, domain.Leq(t1, 10)))
	assert.Equal(t, int64(15), h.store.Upper(t2))
	x1 := h.explain(t, domain.Leq(t2, 15))
	assert.Equal(t, []domain.Lit{domain.Leq(t1, 10)}, x1.Lits)
	assert.Equal(t, []int32{4}, x1.Origins)

	// a weaker query is explained by a weaker literal
	x2 := h.explain(t, domain.Leq(t2, 20))
	assert.Equal(t, []domain.Lit{domain.Leq(t1, 15)}, x2.Lits)

	require.NoError(t, h.decide(t, domain.Geq(t2, 12)))
	assert.Equal(t, int64(7), h.store.Lower(t1))
	assert.Equal(t, []domain.Lit{domain.Geq(t2, 12)}, h.explain(t, domain.Geq(t1, 7)).Lits)
}

func TestGuardedEdges(t *testing.T) {
	h := newHarness()
	t1, t2 := h.integer(t, 0, 10), h.integer(t, 0, 10)
	b := h.boolean(t)
	// b -> t2 - t1 <= -5
	h.temporal.Add(propagation.Edge{Source: t1, Target: t2, Weight: -5, Guard: domain.Pos(b), Guarded: true, Origin: 2})
	require.NoError(t, h.engine.Init())
	assert.Equal(t, int64(10), h.store.Upper(t2), "inactive edges do not propagate")

	require.NoError(t, h.decide(t, domain.Pos(b)))
	assert.Equal(t, int64(5), h.store.Upper(t2))
	assert.Equal(t, int64(5), h.store.Lower(t1))
	x1 := h.explain(t, domain.Leq(t2, 5))
	assert.ElementsMatch(t, []domain.Lit{domain.Pos(b), domain.Leq(t1, 10)}, x1.Lits)

	h.engine.Backtrack(0)
	require.NoError(t, h.decide(t, domain.Geq(t2, 8)))
	assert.True(t, h.store.Entails(domain.Neg(b)), "violated edge disables its guard")
	x2 := h.explain(t, domain.Neg(b))
	assert.ElementsMatch(t, []domain.Lit{domain.Geq(t2, 8), domain.Leq(t1, 10)}, x2.Lits)
	assert.Equal(t, []int32{2}, x2.Origins)
}

func TestTemporalNegativeCycle(t *testing.T) {
	h := newHarness()
	t1, t2 := h.integer(t, 0, 100), h.integer(t, 0, 100)
	b := h.boolean(t)
	h.temporal.Add(propagation.Edge{Source: t1, Target: t2, Weight: 5, Origin: 0})
	h.temporal.Add(propagation.Edge{Source: t2, Target: t1, Weight: -10, Guard: domain.Pos(b), Guarded: true, Origin: 1})
	require.NoError(t, h.engine.Init())

	err := h.decide(t, domain.Pos(b))
	var c *propagation.Conflict
	require.True(t, errors.As(err, &c))
	assert.Equal(t, []domain.Lit{domain.Pos(b)}, c.Lits)
	assert.Equal(t, []int32{0, 1}, c.Origins)
}

func TestTemporalSelfLoop(t *testing.T) {
	h := newHarness()
	t1 := h.integer(t, 0, 100)
	h.temporal.Add(propagation.Edge{Source: t1, Target: t1, Weight: -1, Origin: 3})
	err := h.engine.Init()
	var c *propagation.Conflict
	require.True(t, errors.As(err, &c))
	assert.Empty(t, c.Lits)
	assert.Equal(t, []int32{3}, c.Origins)
}

func TestFixpointIdempotence(t *testing.T) {
	const (
		seed    = 5
		nVars   = 12
		nClause = 40
		rounds  = 200
	)
	rng := rand.New(rand.NewSource(seed))
	for r := 0; r < rounds; r++ {
		h := newHarness()
		vars := make([]domain.VarID, nVars)
		for i := range vars {
			vars[i] = h.boolean(t)
		}
		for c := 0; c < nClause; c++ {
			var lits []domain.Lit
			for k := 0; k < 3; k++ {
				v := vars[rng.Intn(nVars)]
				if rng.Intn(2) == 0 {
					lits = append(lits, domain.Pos(v))
				} else {
					lits = append(lits, domain.Neg(v))
				}
			}
			h.clauses.AddInput(lits, int32(c))
		}
		if err := h.engine.Init(); err != nil {
			continue
		}
		for _, v := range vars {
			if h.store.IsBound(v) {
				continue
			}
			err := h.decide(t, domain.Pos(v))
			if err != nil {
				break
			}
			l := h.trail.Len()
			require.NoError(t, h.engine.Propagate())
			require.Equal(t, l, h.trail.Len())
			require.True(t, h.engine.Fixpoint())
		}
	}
}
