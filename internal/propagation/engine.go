package propagation

import (
	"fmt"
	"strings"

	"github.com/operator-framework/plansat/internal/domain"
	"github.com/operator-framework/plansat/internal/trail"
)

// Side names one of the two bounds of a variable.
type Side uint8

const (
	Lower Side = iota
	Upper
)

func (s Side) String() string {
	if s == Lower {
		return "lower"
	}
	return "upper"
}

// falsifiedBy returns the side whose tightening can make l false.
func falsifiedBy(l domain.Lit) Side {
	if l.Rel == domain.GEQ {
		return Upper
	}
	return Lower
}

// entailedBy returns the side whose tightening can make l true.
func entailedBy(l domain.Lit) Side {
	if l.Rel == domain.GEQ {
		return Lower
	}
	return Upper
}

// Event is a bound change taken from the propagation queue.
type Event struct {
	Pos  int
	Var  domain.VarID
	Side Side
	// Lit is the literal made true by the change.
	Lit domain.Lit
}

// Explanation is a conjunction of entailed literals together with the input
// constraints (origins) the derivation relied on.
type Explanation struct {
	Lits    []domain.Lit
	Origins []int32
}

func (x *Explanation) Add(lits ...domain.Lit) {
	x.Lits = append(x.Lits, lits...)
}

func (x *Explanation) AddOrigins(origins ...int32) {
	x.Origins = append(x.Origins, origins...)
}

func (x *Explanation) Reset() {
	x.Lits = x.Lits[:0]
	x.Origins = x.Origins[:0]
}

// Conflict is returned by propagation when the current bounds are
// inconsistent. The literals of its explanation are all entailed and
// cannot hold together.
type Conflict struct {
	Explanation
}

func (c *Conflict) Error() string {
	s := make([]string, len(c.Lits))
	for i, l := range c.Lits {
		s[i] = l.String()
	}
	return fmt.Sprintf("conflict: [%s]", strings.Join(s, ", "))
}

// Propagator is the capability every constraint kind implements.
type Propagator interface {
	// Setup subscribes to the bound changes the propagator depends on and
	// performs its initial propagation. id is the cause source to attach
	// to every change it makes.
	Setup(e *Engine, id int32) error
	// Propagate reacts to a bound change it subscribed to.
	Propagate(e *Engine, ev Event) error
	// Explain appends to out a set of literals, entailed before trail
	// position pos, that forced lit with the given cause. lit may be weaker
	// than what was actually propagated.
	Explain(e *Engine, lit domain.Lit, cause trail.Cause, pos int, out *Explanation)
}

// Engine runs registered propagators to a joint fixpoint. Its queue is the
// suffix of the trail that has not been delivered to subscribers yet.
type Engine struct {
	store    *domain.Store
	trail    *trail.Trail
	props    []Propagator
	watchers [2][][]int32
	head     int
	ready    bool

	propagations int64
}

func New(store *domain.Store) *Engine {
	return &Engine{store: store, trail: store.Trail()}
}

func (e *Engine) Store() *domain.Store {
	return e.store
}

func (e *Engine) Trail() *trail.Trail {
	return e.trail
}

// Register adds a propagator and returns its id. Propagators must be
// registered before Init.
func (e *Engine) Register(p Propagator) int32 {
	if e.ready {
		panic("propagation: register after init")
	}
	e.props = append(e.props, p)
	return int32(len(e.props) - 1)
}

// Init sets up every propagator and runs the first fixpoint.
func (e *Engine) Init() error {
	if e.ready {
		return nil
	}
	e.ready = true
	for i, p := range e.props {
		if err := p.Setup(e, int32(i)); err != nil {
			return err
		}
	}
	return e.Propagate()
}

// Watch subscribes propagator id to changes of one bound of v.
func (e *Engine) Watch(v domain.VarID, side Side, id int32) {
	for len(e.watchers[side]) <= int(v) {
		e.watchers[Lower] = append(e.watchers[Lower], nil)
		e.watchers[Upper] = append(e.watchers[Upper], nil)
	}
	for _, w := range e.watchers[side][v] {
		if w == id {
			return
		}
	}
	e.watchers[side][v] = append(e.watchers[side][v], id)
}

// Propagate delivers queued bound changes until the queue is empty or a
// propagator reports a conflict.
func (e *Engine) Propagate() error {
	if e.head > e.trail.Len() {
		e.head = e.trail.Len()
	}
	for e.head < e.trail.Len() {
		pos := e.head
		e.head++
		entry := e.trail.Entry(pos)
		var side Side
		switch entry.Kind {
		case trail.BoundLower:
			side = Lower
		case trail.BoundUpper:
			side = Upper
		default:
			continue
		}
		v := domain.VarID(entry.Target)
		if int(v) >= len(e.watchers[side]) {
			continue
		}
		e.propagations++
		ev := Event{Pos: pos, Var: v, Side: side, Lit: e.store.EventLiteral(pos)}
		for _, id := range e.watchers[side][v] {
			if err := e.props[id].Propagate(e, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Backtrack undoes the trail down to decision level l and rewinds the queue.
func (e *Engine) Backtrack(l int) {
	e.trail.UndoToLevel(l)
	if e.head > e.trail.Len() {
		e.head = e.trail.Len()
	}
}

// Set makes lit true on behalf of a propagator. When lit contradicts the
// current bounds the result is a Conflict made of the propagator's reasons
// for lit and the entailed negation of lit.
func (e *Engine) Set(lit domain.Lit, cause trail.Cause) (bool, error) {
	changed, err := e.store.Set(lit, cause)
	if err == nil {
		return changed, nil
	}
	c := &Conflict{}
	if cause.Source >= 0 {
		e.props[cause.Source].Explain(e, lit, cause, e.trail.Len(), &c.Explanation)
	}
	c.Add(lit.Not())
	return false, c
}

// Explain appends the reasons of lit, which must have been made true by the
// change at trail position pos.
func (e *Engine) Explain(lit domain.Lit, pos int, out *Explanation) {
	cause := e.trail.Entry(pos).Cause
	if cause.Source < 0 {
		panic(fmt.Sprintf("propagation: %s at %d is a decision and has no explanation", lit, pos))
	}
	e.props[cause.Source].Explain(e, lit, cause, pos, out)
}

// Propagations returns the number of bound changes delivered so far.
func (e *Engine) Propagations() int64 {
	return e.propagations
}

// Fixpoint reports whether every queued change has been delivered.
func (e *Engine) Fixpoint() bool {
	return e.head >= e.trail.Len()
}
