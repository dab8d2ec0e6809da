package propagation

import (
	"errors"

	"github.com/operator-framework/plansat/internal/domain"
	"github.com/operator-framework/plansat/internal/stn"
	"github.com/operator-framework/plansat/internal/trail"
)

// Edge is the difference constraint Target - Source <= Weight between two
// timepoint variables. A guarded edge only holds once Guard is entailed.
type Edge struct {
	Source  domain.VarID
	Target  domain.VarID
	Weight  int64
	Guard   domain.Lit
	Guarded bool
	Origin  int32
}

// Temporal keeps the active edges in an incremental STN and pushes path
// lengths into the bounds of the timepoints.
type Temporal struct {
	id      int32
	net     *stn.Network
	nodes   map[domain.VarID]stn.Node
	edges   []Edge
	guards  map[domain.VarID][]stn.EdgeID
	pending map[domain.VarID][]stn.EdgeID
}

func NewTemporal(t *trail.Trail) *Temporal {
	return &Temporal{
		net:     stn.New(t),
		nodes:   map[domain.VarID]stn.Node{},
		guards:  map[domain.VarID][]stn.EdgeID{},
		pending: map[domain.VarID][]stn.EdgeID{},
	}
}

// Network exposes the underlying STN.
func (p *Temporal) Network() *stn.Network {
	return p.net
}

func (p *Temporal) node(v domain.VarID) stn.Node {
	n, ok := p.nodes[v]
	if !ok {
		n = p.net.AddNode()
		p.nodes[v] = n
	}
	return n
}

// Add declares an edge. Unguarded edges are activated when the engine is
// initialised, guarded ones once their guard holds.
func (p *Temporal) Add(e Edge) stn.EdgeID {
	id := p.net.DeclareEdge(p.node(e.Source), p.node(e.Target), e.Weight)
	p.edges = append(p.edges, e)
	if e.Guarded {
		p.guards[e.Guard.Var] = append(p.guards[e.Guard.Var], id)
		p.pending[e.Source] = append(p.pending[e.Source], id)
		if e.Target != e.Source {
			p.pending[e.Target] = append(p.pending[e.Target], id)
		}
	}
	return id
}

// Edge returns the declaration of id.
func (p *Temporal) Edge(id stn.EdgeID) Edge {
	return p.edges[id]
}

// aux packs an edge id and the kind of inference into a cause payload.
func aux(id stn.EdgeID, disable bool) int32 {
	a := int32(id) << 1
	if disable {
		a |= 1
	}
	return a
}

func (p *Temporal) Setup(e *Engine, id int32) error {
	p.id = id
	for v := range p.nodes {
		e.Watch(v, Lower, id)
		e.Watch(v, Upper, id)
	}
	for v, ids := range p.guards {
		for _, g := range ids {
			e.Watch(v, entailedBy(p.edges[g].Guard), id)
		}
	}
	for i, edge := range p.edges {
		g := stn.EdgeID(i)
		if edge.Guarded && !e.store.Entails(edge.Guard) {
			if err := p.disable(e, g); err != nil {
				return err
			}
			continue
		}
		if err := p.activate(e, g); err != nil {
			return err
		}
	}
	return nil
}

func (p *Temporal) Propagate(e *Engine, ev Event) error {
	for _, g := range p.guards[ev.Var] {
		if !p.net.Active(g) && e.store.Entails(p.edges[g].Guard) {
			if err := p.activate(e, g); err != nil {
				return err
			}
		}
	}
	n, ok := p.nodes[ev.Var]
	if !ok {
		return nil
	}
	if ev.Side == Upper {
		for _, g := range p.net.Out(n) {
			if err := p.push(e, g); err != nil {
				return err
			}
		}
	} else {
		for _, g := range p.net.In(n) {
			if err := p.push(e, g); err != nil {
				return err
			}
		}
	}
	for _, g := range p.pending[ev.Var] {
		if err := p.disable(e, g); err != nil {
			return err
		}
	}
	return nil
}

// activate inserts edge g into the network and tightens its endpoints.
func (p *Temporal) activate(e *Engine, g stn.EdgeID) error {
	err := p.net.Activate(g)
	var cycle stn.NegativeCycle
	if errors.As(err, &cycle) {
		c := &Conflict{}
		for _, id := range cycle.Edges {
			edge := p.edges[id]
			if edge.Guarded {
				c.Add(edge.Guard)
			}
			c.AddOrigins(edge.Origin)
		}
		return c
	}
	if err != nil {
		return err
	}
	return p.push(e, g)
}

// push applies ub(target) <= ub(source) + w and lb(source) >= lb(target) - w.
func (p *Temporal) push(e *Engine, g stn.EdgeID) error {
	edge := p.edges[g]
	if edge.Source == edge.Target {
		return nil
	}
	s := e.store
	cause := trail.Cause{Source: p.id, Aux: aux(g, false)}
	if _, err := e.Set(domain.Leq(edge.Target, s.Upper(edge.Source)+edge.Weight), cause); err != nil {
		return err
	}
	_, err := e.Set(domain.Geq(edge.Source, s.Lower(edge.Target)-edge.Weight), cause)
	return err
}

// disable falsifies the guard of an inactive edge that the current bounds
// already violate.
func (p *Temporal) disable(e *Engine, g stn.EdgeID) error {
	edge := p.edges[g]
	s := e.store
	if p.net.Active(g) || s.Value(edge.Guard) == domain.False {
		return nil
	}
	if s.Lower(edge.Target)-s.Upper(edge.Source) <= edge.Weight {
		return nil
	}
	_, err := e.Set(edge.Guard.Not(), trail.Cause{Source: p.id, Aux: aux(g, true)})
	return err
}

func (p *Temporal) Explain(e *Engine, lit domain.Lit, cause trail.Cause, pos int, out *Explanation) {
	g := stn.EdgeID(cause.Aux >> 1)
	edge := p.edges[g]
	out.AddOrigins(edge.Origin)
	if cause.Aux&1 == 1 {
		s := e.store
		out.Add(
			domain.Geq(edge.Target, s.LowerAt(edge.Target, pos)),
			domain.Leq(edge.Source, s.UpperAt(edge.Source, pos)),
		)
		return
	}
	if edge.Guarded {
		out.Add(edge.Guard)
	}
	if lit.Var == edge.Target && lit.Rel == domain.LEQ {
		out.Add(domain.Leq(edge.Source, lit.Val-edge.Weight))
	} else {
		out.Add(domain.Geq(edge.Target, lit.Val+edge.Weight))
	}
}
