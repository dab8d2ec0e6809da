package search

import (
	"container/heap"
	"sort"

	"github.com/operator-framework/plansat/internal/domain"
	"github.com/operator-framework/plansat/internal/propagation"
)

type litKey struct {
	v   domain.VarID
	rel domain.Relation
}

func keyOf(l domain.Lit) litKey {
	return litKey{v: l.Var, rel: l.Rel}
}

// stronger returns whichever of a and b implies the other.
func stronger(a, b domain.Lit) domain.Lit {
	if b.Implies(a) {
		return b
	}
	return a
}

// events is a max-heap of trail positions.
type events []int

func (h events) Len() int           { return len(h) }
func (h events) Less(i, j int) bool { return h[i] > h[j] }
func (h events) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *events) Push(x any)        { *h = append(*h, x.(int)) }
func (h *events) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// originSet accumulates input constraint ids.
type originSet map[int32]struct{}

func (o originSet) add(ids ...int32) {
	for _, id := range ids {
		o[id] = struct{}{}
	}
}

func (o originSet) sorted() []int32 {
	out := make([]int32, 0, len(o))
	for id := range o {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// learned is the outcome of analysing a conflict: a clause whose first
// literal becomes true after undoing to backjump.
type learned struct {
	lits     []domain.Lit
	origins  []int32
	backjump int
}

// analyze resolves the conflict backwards along the trail until a single
// literal of the current decision level remains (the first unique
// implication point). Literals of level 0 are dropped from the clause and
// their provenance moves to its origins instead.
//
// When no literal of the conflict belongs to the current level, ok is false
// and backjump holds the highest level involved.
func (s *Searcher) analyze(c *propagation.Conflict) (l learned, ok bool) {
	store := s.store
	level := s.trail.Level()
	origins := originSet{}
	origins.add(c.Origins...)

	queried := map[int]domain.Lit{}
	pending := &events{}
	lower := map[litKey]domain.Lit{}

	add := func(lit domain.Lit) {
		pos := store.ImplyingEvent(lit)
		if pos < 0 {
			return
		}
		switch lv := store.Level(pos); lv {
		case 0:
			origins.add(s.rootOrigins(pos)...)
		case level:
			if q, ok := queried[pos]; ok {
				queried[pos] = stronger(q, lit)
				return
			}
			queried[pos] = lit
			heap.Push(pending, pos)
		default:
			if o, ok := lower[keyOf(lit)]; ok {
				lit = stronger(o, lit)
			}
			lower[keyOf(lit)] = lit
		}
	}
	for _, lit := range c.Lits {
		add(lit)
	}

	if pending.Len() == 0 {
		for _, lit := range lower {
			if lv := store.Level(store.ImplyingEvent(lit)); lv > l.backjump {
				l.backjump = lv
			}
		}
		return l, false
	}

	var uip domain.Lit
	var x propagation.Explanation
	for {
		pos := heap.Pop(pending).(int)
		lit := queried[pos]
		delete(queried, pos)
		if pending.Len() == 0 {
			uip = lit
			break
		}
		x.Reset()
		s.engine.Explain(lit, pos, &x)
		origins.add(x.Origins...)
		for _, r := range x.Lits {
			add(r)
		}
	}

	keys := make([]litKey, 0, len(lower))
	for k, lit := range lower {
		// uip and lit together say no more than uip alone
		if uip.Implies(lit) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].v != keys[j].v {
			return keys[i].v < keys[j].v
		}
		return keys[i].rel < keys[j].rel
	})

	l.lits = append(l.lits, uip.Not())
	for _, k := range keys {
		lit := lower[k]
		l.lits = append(l.lits, lit.Not())
		if lv := store.Level(store.ImplyingEvent(lit)); lv > l.backjump {
			l.backjump = lv
		}
	}
	l.origins = origins.sorted()
	return l, true
}

// rootOrigins returns the input constraints from which the level 0 change
// at pos was derived. Level 0 is never undone before a reset, so results
// are cached by position.
func (s *Searcher) rootOrigins(pos int) []int32 {
	if o, ok := s.roots[pos]; ok {
		return o
	}
	origins := originSet{}
	seen := map[int]bool{pos: true}
	stack := []int{pos}
	var x propagation.Explanation
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if o, ok := s.roots[p]; ok {
			origins.add(o...)
			continue
		}
		x.Reset()
		s.engine.Explain(s.store.EventLiteral(p), p, &x)
		origins.add(x.Origins...)
		for _, lit := range x.Lits {
			if q := s.store.ImplyingEvent(lit); q >= 0 && !seen[q] {
				seen[q] = true
				stack = append(stack, q)
			}
		}
	}
	out := origins.sorted()
	s.roots[pos] = out
	return out
}

// provenance returns the input constraints the conflict depends on once
// every propagated literal is traced back to decisions or to the declared
// domains.
func (s *Searcher) provenance(c *propagation.Conflict) []int32 {
	origins := originSet{}
	origins.add(c.Origins...)
	seen := map[int]bool{}
	var stack []int
	push := func(lit domain.Lit) {
		if q := s.store.ImplyingEvent(lit); q >= 0 && !seen[q] {
			seen[q] = true
			stack = append(stack, q)
		}
	}
	for _, lit := range c.Lits {
		push(lit)
	}
	var x propagation.Explanation
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.store.Level(p) == 0 {
			origins.add(s.rootOrigins(p)...)
			continue
		}
		if s.trail.Entry(p).Cause.Source == domain.SourceDecision {
			continue
		}
		x.Reset()
		s.engine.Explain(s.store.EventLiteral(p), p, &x)
		origins.add(x.Origins...)
		for _, lit := range x.Lits {
			push(lit)
		}
	}
	return origins.sorted()
}
