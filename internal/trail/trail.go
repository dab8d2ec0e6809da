package trail

import "fmt"

// Kind identifies the component that owns an Entry, and therefore the
// handler that knows how to undo it.
type Kind uint8

const (
	BoundLower Kind = iota + 1
	BoundUpper
	EdgeActivated
	Potential
	ClauseAdded
	numKinds
)

func (k Kind) String() string {
	switch k {
	case BoundLower:
		return "bound-lower"
	case BoundUpper:
		return "bound-upper"
	case EdgeActivated:
		return "edge-activated"
	case Potential:
		return "potential"
	case ClauseAdded:
		return "clause-added"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Cause records why an entry was created. Source and Aux are opaque to the
// trail; the domain store and the propagation engine give them meaning.
type Cause struct {
	Source int32
	Aux    int32
}

// Entry is a single reversible change. Prev holds the value that Target had
// before the change, Value the one written by it, and Link the position of
// the previous entry that touched the same target (or -1).
type Entry struct {
	Kind   Kind
	Target int32
	Prev   int64
	Value  int64
	Link   int32
	Level  int32
	Cause  Cause
}

// Marker identifies a point in the history of a Trail.
type Marker struct {
	Pos   int
	Level int
}

// UndoFunc restores the state that existed before e was recorded.
type UndoFunc func(e Entry)

// Trail is an append-only log of reversible changes, partitioned into
// decision levels. It is not safe for concurrent use.
type Trail struct {
	entries []Entry
	levels  []int
	undo    [numKinds]UndoFunc
}

func New() *Trail {
	return &Trail{}
}

// Register installs the undo handler for entries of the given kind.
func (t *Trail) Register(k Kind, fn UndoFunc) {
	t.undo[k] = fn
}

// Record appends e, tagged with the current decision level, and returns
// its position.
func (t *Trail) Record(e Entry) int {
	e.Level = int32(len(t.levels))
	t.entries = append(t.entries, e)
	return len(t.entries) - 1
}

func (t *Trail) Len() int {
	return len(t.entries)
}

// Entry returns the entry recorded at position i.
func (t *Trail) Entry(i int) Entry {
	return t.entries[i]
}

// Level returns the current decision level. Level 0 holds everything that
// was derived before the first decision.
func (t *Trail) Level() int {
	return len(t.levels)
}

// LevelStart returns the position of the first entry of decision level l.
func (t *Trail) LevelStart(l int) int {
	if l == 0 {
		return 0
	}
	return t.levels[l-1]
}

// Mark returns a marker for the current state.
func (t *Trail) Mark() Marker {
	return Marker{Pos: len(t.entries), Level: len(t.levels)}
}

// PushLevel opens a new decision level and returns the marker that
// restores the state preceding it.
func (t *Trail) PushLevel() Marker {
	m := t.Mark()
	t.levels = append(t.levels, len(t.entries))
	return m
}

// UndoTo reverts every entry recorded after m, newest first.
func (t *Trail) UndoTo(m Marker) {
	if m.Pos > len(t.entries) || m.Level > len(t.levels) {
		panic(fmt.Sprintf("trail: marker %+v is ahead of the trail (len %d, level %d)", m, len(t.entries), len(t.levels)))
	}
	for i := len(t.entries) - 1; i >= m.Pos; i-- {
		e := t.entries[i]
		fn := t.undo[e.Kind]
		if fn == nil {
			panic(fmt.Sprintf("trail: no undo handler for %s", e.Kind))
		}
		fn(e)
	}
	t.entries = t.entries[:m.Pos]
	t.levels = t.levels[:m.Level]
}

// UndoToLevel reverts everything recorded above decision level l.
func (t *Trail) UndoToLevel(l int) {
	if l >= len(t.levels) {
		return
	}
	t.UndoTo(Marker{Pos: t.levels[l], Level: l})
}

// Reset undoes the whole trail, including level 0.
func (t *Trail) Reset() {
	t.UndoTo(Marker{})
}
