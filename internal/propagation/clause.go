package propagation

import (
	"sort"

	"github.com/operator-framework/plansat/internal/domain"
	"github.com/operator-framework/plansat/internal/trail"
)

// ClauseKind tells how long a clause is kept.
type ClauseKind uint8

const (
	// Input clauses come from the model.
	Input ClauseKind = iota
	// Learned clauses are derived by conflict analysis and kept until the
	// database is discarded, across restarts.
	Learned
	// Temporary clauses disappear when the decision level they were added
	// at is undone.
	Temporary
)

type clause struct {
	lits    []domain.Lit
	origins []int32
	kind    ClauseKind
	dead    bool
}

// ClauseDB propagates disjunctions of bound literals with two watched
// literals per clause. The watched literals are lits[0] and lits[1]; a
// clause is listed under the variable side that can falsify each of them.
type ClauseDB struct {
	id      int32
	e       *Engine
	clauses []clause
	pending []int
	watches [2][][]int32
	learned int
}

func NewClauseDB() *ClauseDB {
	return &ClauseDB{}
}

// AddInput queues a model clause. Clauses are attached when the engine is
// initialised.
func (db *ClauseDB) AddInput(lits []domain.Lit, origin int32) {
	db.pending = append(db.pending, db.store(lits, []int32{origin}, Input))
}

func (db *ClauseDB) store(lits []domain.Lit, origins []int32, kind ClauseKind) int {
	db.clauses = append(db.clauses, clause{lits: lits, origins: origins, kind: kind})
	return len(db.clauses) - 1
}

func (db *ClauseDB) Setup(e *Engine, id int32) error {
	db.id = id
	db.e = e
	e.trail.Register(trail.ClauseAdded, func(en trail.Entry) {
		db.clauses[en.Target].dead = true
	})
	pending := db.pending
	db.pending = nil
	for _, c := range pending {
		if err := db.attach(c); err != nil {
			return err
		}
	}
	return nil
}

// Learn adds a clause derived from the model. The first literal must be
// the asserting one; the clause is attached and propagated immediately.
func (db *ClauseDB) Learn(lits []domain.Lit, origins []int32) error {
	db.learned++
	return db.attach(db.store(lits, origins, Learned))
}

// AddTemporary adds a clause that is dropped when the current decision
// level is undone.
func (db *ClauseDB) AddTemporary(lits []domain.Lit, origins []int32) error {
	c := db.store(lits, origins, Temporary)
	db.e.trail.Record(trail.Entry{Kind: trail.ClauseAdded, Target: int32(c)})
	return db.attach(c)
}

// Learned returns the number of learned clauses.
func (db *ClauseDB) Learned() int {
	return db.learned
}

// Len returns the number of live clauses.
func (db *ClauseDB) Len() int {
	n := 0
	for i := range db.clauses {
		if !db.clauses[i].dead {
			n++
		}
	}
	return n
}

// normalize merges literals on the same variable and direction, keeping the
// weakest, and reports whether the clause is trivially true.
func normalize(lits []domain.Lit) ([]domain.Lit, bool) {
	out := make([]domain.Lit, 0, len(lits))
	for _, l := range lits {
		merged := false
		for i, o := range out {
			if o.Var == l.Var && o.Rel == l.Rel {
				out[i] = o.Weaker(l)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, l)
		}
	}
	for _, l := range out {
		for _, o := range out {
			// v >= a or v <= b covers every value when b >= a-1
			if l.Var == o.Var && l.Rel == domain.GEQ && o.Rel == domain.LEQ && o.Val >= l.Val-1 {
				return out, true
			}
		}
	}
	return out, false
}

// rank orders literals for watching: true ones first, then undecided ones,
// then false ones by decreasing decision level.
func (db *ClauseDB) rank(l domain.Lit) (int, int) {
	s := db.e.store
	switch s.Value(l) {
	case domain.True:
		return 0, 0
	case domain.Undef:
		return 1, 0
	}
	return 2, -s.Level(s.ImplyingEvent(l.Not()))
}

func (db *ClauseDB) attach(c int) error {
	cl := &db.clauses[c]
	lits, taut := normalize(cl.lits)
	if taut {
		cl.dead = true
		return nil
	}
	sort.SliceStable(lits, func(i, j int) bool {
		ci, li := db.rank(lits[i])
		cj, lj := db.rank(lits[j])
		if ci != cj {
			return ci < cj
		}
		return li < lj
	})
	cl.lits = lits

	if len(lits) == 0 {
		return &Conflict{Explanation{Origins: append([]int32(nil), cl.origins...)}}
	}
	if len(lits) > 1 {
		db.watch(lits[0], c)
		db.watch(lits[1], c)
	}
	s := db.e.store
	switch {
	case s.Value(lits[0]) == domain.False:
		return db.conflict(c)
	case len(lits) == 1 || s.Value(lits[1]) == domain.False:
		_, err := db.e.Set(lits[0], trail.Cause{Source: db.id, Aux: int32(c)})
		return err
	}
	return nil
}

func (db *ClauseDB) watch(l domain.Lit, c int) {
	side := falsifiedBy(l)
	for len(db.watches[side]) <= int(l.Var) {
		db.watches[Lower] = append(db.watches[Lower], nil)
		db.watches[Upper] = append(db.watches[Upper], nil)
	}
	db.watches[side][l.Var] = append(db.watches[side][l.Var], int32(c))
	db.e.Watch(l.Var, side, db.id)
}

func watchedOn(l domain.Lit, v domain.VarID, side Side) bool {
	return l.Var == v && falsifiedBy(l) == side
}

func (db *ClauseDB) conflict(c int) error {
	cl := &db.clauses[c]
	x := Explanation{Origins: append([]int32(nil), cl.origins...)}
	for _, l := range cl.lits {
		x.Add(l.Not())
	}
	return &Conflict{x}
}

func (db *ClauseDB) Propagate(e *Engine, ev Event) error {
	if int(ev.Var) >= len(db.watches[ev.Side]) {
		return nil
	}
	s := e.store
	ws := db.watches[ev.Side][ev.Var]
	db.watches[ev.Side][ev.Var] = nil
	kept := ws[:0]
	for i, w := range ws {
		cl := &db.clauses[w]
		if cl.dead {
			continue
		}
		lits := cl.lits
		if watchedOn(lits[0], ev.Var, ev.Side) && s.Value(lits[0]) == domain.False {
			lits[0], lits[1] = lits[1], lits[0]
		}
		if !watchedOn(lits[1], ev.Var, ev.Side) {
			if watchedOn(lits[0], ev.Var, ev.Side) {
				kept = append(kept, w)
			}
			continue
		}
		if s.Value(lits[1]) != domain.False || s.Value(lits[0]) == domain.True {
			kept = append(kept, w)
			continue
		}
		moved := false
		for k := 2; k < len(lits); k++ {
			if s.Value(lits[k]) != domain.False {
				lits[1], lits[k] = lits[k], lits[1]
				db.watch(lits[1], int(w))
				moved = true
				break
			}
		}
		if moved {
			continue
		}
		kept = append(kept, w)
		var err error
		if s.Value(lits[0]) == domain.False {
			err = db.conflict(int(w))
		} else {
			_, err = e.Set(lits[0], trail.Cause{Source: db.id, Aux: w})
		}
		if err != nil {
			kept = append(kept, ws[i+1:]...)
			db.watches[ev.Side][ev.Var] = append(db.watches[ev.Side][ev.Var], kept...)
			return err
		}
	}
	db.watches[ev.Side][ev.Var] = append(db.watches[ev.Side][ev.Var], kept...)
	return nil
}

// Explain returns the negation of every other literal of the clause that
// propagated lit.
func (db *ClauseDB) Explain(_ *Engine, lit domain.Lit, cause trail.Cause, _ int, out *Explanation) {
	cl := &db.clauses[cause.Aux]
	for _, l := range cl.lits {
		if l.Var == lit.Var && l.Rel == lit.Rel {
			continue
		}
		out.Add(l.Not())
	}
	out.AddOrigins(cl.origins...)
}
