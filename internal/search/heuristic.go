package search

import (
	"github.com/operator-framework/plansat/internal/domain"
	"github.com/operator-framework/plansat/internal/trail"
)

// Branching selects the decision heuristic.
type Branching uint8

const (
	// FirstUnassigned picks the first unbound variable in declaration order.
	FirstUnassigned Branching = iota
	// Activity picks the unbound variable most involved in recent conflicts.
	Activity
)

func (b Branching) String() string {
	switch b {
	case FirstUnassigned:
		return "first-unassigned"
	case Activity:
		return "activity"
	}
	return "unknown"
}

// brancher chooses decisions. Every decision fixes a variable to its lower
// bound unless the brancher remembers a preferred value for it.
type brancher interface {
	// next returns the next decision, or false when every variable is bound.
	next() (domain.Lit, bool)
	// bump is called with the variables of every learned clause.
	bump(vars []domain.VarID)
	// backtrack is called before the trail is undone down to level.
	backtrack(level int)
}

func newBrancher(b Branching, s *domain.Store) brancher {
	if b == Activity {
		return newVSIDS(s)
	}
	return &firstUnassigned{s: s}
}

type firstUnassigned struct {
	s *domain.Store
	// variables before cursor are known to be bound on the current branch
	cursor int
}

func (f *firstUnassigned) next() (domain.Lit, bool) {
	for ; f.cursor < f.s.NumVars(); f.cursor++ {
		v := domain.VarID(f.cursor)
		if !f.s.IsBound(v) {
			return domain.Leq(v, f.s.Lower(v)), true
		}
	}
	return domain.Lit{}, false
}

func (f *firstUnassigned) bump([]domain.VarID) {}

func (f *firstUnassigned) backtrack(int) {
	f.cursor = 0
}

const (
	activityDecay   = 0.95
	activityLimit   = 1e100
	activityRescale = 1e-100
)

// vsids is the activity heuristic: variables of learned clauses are bumped
// by an increment that grows after each conflict, so recent conflicts weigh
// more. Booleans are decided to the value they last had.
type vsids struct {
	s        *domain.Store
	activity []float64
	inc      float64
	queue    *varQueue
	// variables popped while bound, to be reinserted once unbound again
	popped []domain.VarID
	dirty  bool
	phase  []bool
}

func newVSIDS(s *domain.Store) *vsids {
	h := &vsids{
		s:        s,
		activity: make([]float64, s.NumVars()),
		inc:      1,
		phase:    make([]bool, s.NumVars()),
	}
	h.queue = newVarQueue(h.activity)
	return h
}

func (h *vsids) next() (domain.Lit, bool) {
	if h.dirty {
		kept := h.popped[:0]
		for _, v := range h.popped {
			if h.s.IsBound(v) {
				kept = append(kept, v)
			} else {
				h.queue.insert(v)
			}
		}
		h.popped = kept
		h.dirty = false
	}
	for !h.queue.empty() {
		v := h.queue.pop()
		h.popped = append(h.popped, v)
		if h.s.IsBound(v) {
			continue
		}
		if h.s.Kind(v) == domain.Boolean && h.phase[v] {
			return domain.Pos(v), true
		}
		return domain.Leq(v, h.s.Lower(v)), true
	}
	return domain.Lit{}, false
}

func (h *vsids) bump(vars []domain.VarID) {
	for _, v := range vars {
		h.activity[v] += h.inc
		if h.activity[v] > activityLimit {
			for i := range h.activity {
				h.activity[i] *= activityRescale
			}
			h.inc *= activityRescale
		}
		h.queue.bumped(v)
	}
	h.inc /= activityDecay
}

func (h *vsids) backtrack(level int) {
	t := h.s.Trail()
	if level >= t.Level() {
		return
	}
	for i := t.LevelStart(level + 1); i < t.Len(); i++ {
		e := t.Entry(i)
		v := domain.VarID(e.Target)
		switch {
		case e.Kind == trail.BoundLower && h.s.Kind(v) == domain.Boolean:
			h.phase[v] = true
		case e.Kind == trail.BoundUpper && h.s.Kind(v) == domain.Boolean:
			h.phase[v] = false
		}
	}
	h.dirty = true
}
