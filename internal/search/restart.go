package search

// Restart selects the restart policy.
type Restart uint8

const (
	NoRestart Restart = iota
	// Geometric restarts after 100 conflicts, then after 1.5 times as many
	// as the previous run each time.
	Geometric
)

func (r Restart) String() string {
	switch r {
	case NoRestart:
		return "none"
	case Geometric:
		return "geometric"
	}
	return "unknown"
}

const (
	firstRestart  = 100
	restartFactor = 1.5
)

type restarts struct {
	enabled   bool
	limit     float64
	conflicts int64
}

func newRestarts(r Restart, learning bool) *restarts {
	// temporary nogoods do not survive a restart
	return &restarts{enabled: r == Geometric && learning, limit: firstRestart}
}

func (r *restarts) conflict() {
	r.conflicts++
}

// due reports whether a restart should happen now, and moves on to the next
// run when it does.
func (r *restarts) due() bool {
	if !r.enabled || float64(r.conflicts) < r.limit {
		return false
	}
	r.conflicts = 0
	r.limit *= restartFactor
	return true
}
