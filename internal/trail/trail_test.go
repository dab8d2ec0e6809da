package trail_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/plansat/internal/trail"
)

// cells is a toy reversible store used to exercise the trail.
type cells struct {
	t      *trail.Trail
	values []int64
}

func newCells(n int) *cells {
	c := &cells{t: trail.New(), values: make([]int64, n)}
	c.t.Register(trail.Potential, func(e trail.Entry) {
		c.values[e.Target] = e.Prev
	})
	return c
}

func (c *cells) set(i int, v int64) {
	c.t.Record(trail.Entry{Kind: trail.Potential, Target: int32(i), Prev: c.values[i]})
	c.values[i] = v
}

func (c *cells) snapshot() []int64 {
	return append([]int64(nil), c.values...)
}

func TestRecordTagsLevel(t *testing.T) {
	c := newCells(2)
	c.set(0, 1)
	c.t.PushLevel()
	c.set(1, 2)

	assert.Equal(t, 1, c.t.Level())
	assert.Equal(t, int32(0), c.t.Entry(0).Level)
	assert.Equal(t, int32(1), c.t.Entry(1).Level)
	assert.Equal(t, 1, c.t.LevelStart(1))
	assert.Equal(t, 0, c.t.LevelStart(0))
}

func TestUndoToLevel(t *testing.T) {
	c := newCells(3)
	c.set(0, 5)
	c.t.PushLevel()
	c.set(1, 6)
	c.set(1, 7)
	c.t.PushLevel()
	c.set(2, 8)

	c.t.UndoToLevel(1)
	assert.Equal(t, []int64{5, 7, 0}, c.values)
	assert.Equal(t, 1, c.t.Level())

	c.t.UndoToLevel(0)
	assert.Equal(t, []int64{5, 0, 0}, c.values)
	assert.Equal(t, 1, c.t.Len())

	// undoing to the current level is a no-op
	c.t.UndoToLevel(0)
	assert.Equal(t, []int64{5, 0, 0}, c.values)

	c.t.Reset()
	assert.Equal(t, []int64{0, 0, 0}, c.values)
	assert.Equal(t, 0, c.t.Len())
}

func TestUndoWithoutHandlerPanics(t *testing.T) {
	tr := trail.New()
	tr.Record(trail.Entry{Kind: trail.EdgeActivated})
	assert.Panics(t, func() { tr.Reset() })
}

func TestMarkerAheadOfTrailPanics(t *testing.T) {
	tr := trail.New()
	assert.Panics(t, func() { tr.UndoTo(trail.Marker{Pos: 3}) })
}

func TestRandomInterleavings(t *testing.T) {
	const (
		seed  = 11
		size  = 8
		steps = 2000
	)
	rng := rand.New(rand.NewSource(seed))
	c := newCells(size)

	type saved struct {
		m      trail.Marker
		values []int64
	}
	var stack []saved

	for i := 0; i < steps; i++ {
		switch op := rng.Intn(10); {
		case op < 6:
			c.set(rng.Intn(size), rng.Int63n(100))
		case op < 8:
			stack = append(stack, saved{m: c.t.Mark(), values: c.snapshot()})
		default:
			if len(stack) == 0 {
				continue
			}
			k := rng.Intn(len(stack))
			target := stack[k]
			stack = stack[:k]
			c.t.UndoTo(target.m)
			require.Equal(t, target.values, c.values, "step %d", i)
			require.Equal(t, target.m.Pos, c.t.Len())
		}
	}
}
