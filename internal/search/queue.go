package search

import "github.com/operator-framework/plansat/internal/domain"

// varQueue is a binary max-heap of variables ordered by activity, with
// the position of every variable kept so that bumped variables can be
// moved up in place.
type varQueue struct {
	activity []float64
	content  []domain.VarID
	indices  []int
}

func newVarQueue(activity []float64) *varQueue {
	q := &varQueue{activity: activity, indices: make([]int, len(activity))}
	for i := range q.indices {
		q.indices[i] = -1
	}
	for v := range activity {
		q.insert(domain.VarID(v))
	}
	return q
}

// before orders by decreasing activity, then by declaration order.
func (q *varQueue) before(a, b domain.VarID) bool {
	if q.activity[a] != q.activity[b] {
		return q.activity[a] > q.activity[b]
	}
	return a < b
}

func left(i int) int   { return 2*i + 1 }
func right(i int) int  { return 2*i + 2 }
func parent(i int) int { return (i - 1) / 2 }

func (q *varQueue) up(i int) {
	x := q.content[i]
	for i > 0 && q.before(x, q.content[parent(i)]) {
		p := parent(i)
		q.content[i] = q.content[p]
		q.indices[q.content[i]] = i
		i = p
	}
	q.content[i] = x
	q.indices[x] = i
}

func (q *varQueue) down(i int) {
	x := q.content[i]
	for left(i) < len(q.content) {
		child := left(i)
		if r := right(i); r < len(q.content) && q.before(q.content[r], q.content[child]) {
			child = r
		}
		if !q.before(q.content[child], x) {
			break
		}
		q.content[i] = q.content[child]
		q.indices[q.content[i]] = i
		i = child
	}
	q.content[i] = x
	q.indices[x] = i
}

func (q *varQueue) empty() bool { return len(q.content) == 0 }

func (q *varQueue) contains(v domain.VarID) bool {
	return q.indices[v] >= 0
}

func (q *varQueue) insert(v domain.VarID) {
	if q.contains(v) {
		return
	}
	q.indices[v] = len(q.content)
	q.content = append(q.content, v)
	q.up(q.indices[v])
}

// bumped restores the heap order after the activity of v increased.
func (q *varQueue) bumped(v domain.VarID) {
	if q.contains(v) {
		q.up(q.indices[v])
	}
}

func (q *varQueue) pop() domain.VarID {
	x := q.content[0]
	last := len(q.content) - 1
	q.content[0] = q.content[last]
	q.indices[q.content[0]] = 0
	q.indices[x] = -1
	q.content = q.content[:last]
	if len(q.content) > 1 {
		q.down(0)
	}
	return x
}
