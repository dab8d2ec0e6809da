package stn

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"github.com/operator-framework/plansat/internal/trail"
)

// Node is the index of a timepoint in a Network.
type Node int32

// EdgeID is the index of a declared edge.
type EdgeID int32

// Edge is the difference constraint time(Target) - time(Source) <= Weight.
type Edge struct {
	Source Node
	Target Node
	Weight int64
}

func (e Edge) String() string {
	return fmt.Sprintf("t%d - t%d <= %d", e.Target, e.Source, e.Weight)
}

// NegativeCycle is returned when activating an edge closes a cycle of
// negative total weight. Edges are sorted by id.
type NegativeCycle struct {
	Edges []EdgeID
}

func (c NegativeCycle) Error() string {
	s := make([]string, len(c.Edges))
	for i, e := range c.Edges {
		s[i] = fmt.Sprintf("e%d", e)
	}
	return fmt.Sprintf("negative cycle: %s", strings.Join(s, ", "))
}

type edgeState struct {
	Edge
	active bool
}

// Network is an incremental simple temporal network. It keeps a potential
// function that satisfies every active edge; a new edge that cannot be
// satisfied by repairing the potential closes a negative cycle.
//
// Edges are declared once and then activated; only activations and
// potential updates go through the trail, so undo restores both exactly.
type Network struct {
	t         *trail.Trail
	edges     []edgeState
	out, in   [][]EdgeID
	potential []int64

	// relaxation scratch, indexed by node and valid when stamp matches
	stamp    uint32
	seen     []uint32
	done     []uint32
	gamma    []int64
	pred     []EdgeID
	next     []int64
	touched  []Node
	frontier frontier
}

func New(t *trail.Trail) *Network {
	n := &Network{t: t}
	t.Register(trail.EdgeActivated, func(e trail.Entry) {
		id := EdgeID(e.Target)
		s := &n.edges[id]
		n.out[s.Source] = n.out[s.Source][:len(n.out[s.Source])-1]
		n.in[s.Target] = n.in[s.Target][:len(n.in[s.Target])-1]
		s.active = false
	})
	t.Register(trail.Potential, func(e trail.Entry) {
		n.potential[e.Target] = e.Prev
	})
	return n
}

func (n *Network) AddNode() Node {
	id := Node(len(n.out))
	n.out = append(n.out, nil)
	n.in = append(n.in, nil)
	n.potential = append(n.potential, 0)
	n.seen = append(n.seen, 0)
	n.done = append(n.done, 0)
	n.gamma = append(n.gamma, 0)
	n.pred = append(n.pred, -1)
	n.next = append(n.next, 0)
	return id
}

func (n *Network) NumNodes() int {
	return len(n.out)
}

func (n *Network) NumEdges() int {
	return len(n.edges)
}

// DeclareEdge registers an inactive edge and returns its id.
func (n *Network) DeclareEdge(source, target Node, weight int64) EdgeID {
	if int(source) >= len(n.out) || int(target) >= len(n.out) {
		panic(fmt.Sprintf("stn: edge t%d -> t%d references an unknown node", source, target))
	}
	n.edges = append(n.edges, edgeState{Edge: Edge{Source: source, Target: target, Weight: weight}})
	return EdgeID(len(n.edges) - 1)
}

// AddEdge declares and activates an edge in one step.
func (n *Network) AddEdge(source, target Node, weight int64) (EdgeID, error) {
	id := n.DeclareEdge(source, target, weight)
	return id, n.Activate(id)
}

func (n *Network) Edge(id EdgeID) Edge {
	return n.edges[id].Edge
}

func (n *Network) Active(id EdgeID) bool {
	return n.edges[id].active
}

// Out returns the active edges leaving node.
func (n *Network) Out(node Node) []EdgeID {
	return n.out[node]
}

// In returns the active edges entering node.
func (n *Network) In(node Node) []EdgeID {
	return n.in[node]
}

func (n *Network) Potential(node Node) int64 {
	return n.potential[node]
}

// Activate inserts a declared edge into the network. When the edge closes a
// negative cycle, Activate returns NegativeCycle and leaves the network
// untouched.
func (n *Network) Activate(id EdgeID) error {
	e := &n.edges[id]
	if e.active {
		return nil
	}
	if e.Source == e.Target {
		if e.Weight < 0 {
			return NegativeCycle{Edges: []EdgeID{id}}
		}
	} else if n.potential[e.Target]-n.potential[e.Source] > e.Weight {
		if cycle := n.relax(id); cycle != nil {
			return NegativeCycle{Edges: cycle}
		}
		n.commit()
	}
	e.active = true
	n.out[e.Source] = append(n.out[e.Source], id)
	n.in[e.Target] = append(n.in[e.Target], id)
	n.t.Record(trail.Entry{Kind: trail.EdgeActivated, Target: int32(id)})
	return nil
}

// relax repairs the potential after inserting edge id, lowering potentials
// of nodes reachable from the edge target in order of their deficit. The
// new potentials are kept in scratch space until commit. It returns the
// edges of a negative cycle when the repair reaches the edge source.
func (n *Network) relax(id EdgeID) []EdgeID {
	e := n.edges[id]
	n.stamp++
	n.touched = n.touched[:0]
	n.frontier = n.frontier[:0]

	n.push(e.Target, n.potential[e.Source]+e.Weight-n.potential[e.Target], id)
	for len(n.frontier) > 0 {
		item := heap.Pop(&n.frontier).(gap)
		x := item.node
		if n.done[x] == n.stamp || item.gamma != n.gamma[x] {
			continue
		}
		if x == e.Source {
			return n.cycle(id)
		}
		n.done[x] = n.stamp
		n.next[x] = n.potential[x] + n.gamma[x]
		n.touched = append(n.touched, x)
		for _, o := range n.out[x] {
			y := n.edges[o].Target
			if n.done[y] == n.stamp {
				continue
			}
			if g := n.next[x] + n.edges[o].Weight - n.potential[y]; g < 0 {
				if n.seen[y] != n.stamp || g < n.gamma[y] {
					n.push(y, g, o)
				}
			}
		}
	}
	return nil
}

func (n *Network) push(x Node, g int64, via EdgeID) {
	n.seen[x] = n.stamp
	n.gamma[x] = g
	n.pred[x] = via
	heap.Push(&n.frontier, gap{node: x, gamma: g})
}

// cycle follows predecessors from the source of the inserted edge back to
// its target.
func (n *Network) cycle(id EdgeID) []EdgeID {
	var out []EdgeID
	x := n.edges[id].Source
	for {
		p := n.pred[x]
		out = append(out, p)
		if p == id {
			break
		}
		x = n.edges[p].Source
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (n *Network) commit() {
	for _, x := range n.touched {
		n.t.Record(trail.Entry{Kind: trail.Potential, Target: int32(x), Prev: n.potential[x], Value: n.next[x]})
		n.potential[x] = n.next[x]
	}
}

// Consistent reports whether the potential satisfies every active edge.
// It always holds between calls to Activate.
func (n *Network) Consistent() bool {
	for _, e := range n.edges {
		if e.active && n.potential[e.Target]-n.potential[e.Source] > e.Weight {
			return false
		}
	}
	return true
}

type gap struct {
	node  Node
	gamma int64
}

// frontier is a min-heap of nodes keyed by their potential deficit, ties
// broken by node index so that relaxation order is reproducible.
type frontier []gap

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].gamma != f[j].gamma {
		return f[i].gamma < f[j].gamma
	}
	return f[i].node < f[j].node
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(gap)) }
func (f *frontier) Pop() any {
	old := *f
	x := old[len(old)-1]
	*f = old[:len(old)-1]
	return x
}
