// Package cli holds what the plansat commands share: solver options read
// from the environment and the format of their results.
package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/operator-framework/plansat/internal/config"
	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

var (
	satColor     = color.New(color.FgGreen, color.Bold)
	unsatColor   = color.New(color.FgRed, color.Bold)
	unknownColor = color.New(color.FgYellow, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// Options returns the solver options configured in the environment followed
// by extra, so flags win over the environment. The logger is returned as
// well so the caller can flush it.
func Options(extra ...solver.Option) ([]solver.Option, *zap.Logger, error) {
	options, err := config.SolverOptions()
	if err != nil {
		return nil, nil, err
	}
	log, err := config.Logger()
	if err != nil {
		return nil, nil, err
	}
	options = append(options, solver.WithLogger(log))
	return append(options, extra...), log, nil
}

// PrintStatus writes the status line of an outcome, e.g. "s UNKNOWN (timeout)".
func PrintStatus(w io.Writer, outcome *solver.Outcome) {
	c := unknownColor
	switch outcome.Status {
	case solver.Sat:
		c = satColor
	case solver.Unsat:
		c = unsatColor
	}
	_, _ = c.Fprintf(w, "s %s", outcome.Status)
	if outcome.Reason != solver.NoReason {
		_, _ = fmt.Fprintf(w, " (%s)", outcome.Reason)
	}
	_, _ = fmt.Fprintln(w)
}

// PrintCore lists the constraints of an unsatisfiable core.
func PrintCore(w io.Writer, outcome *solver.Outcome) {
	if outcome.Status != solver.Unsat {
		return
	}
	_, _ = fmt.Fprintln(w, "c conflicting constraints:")
	for _, applied := range outcome.Core {
		_, _ = fmt.Fprintf(w, "c - %s\n", applied)
	}
}

// PrintStats writes the search counters as a comment line.
func PrintStats(w io.Writer, outcome *solver.Outcome) {
	st := outcome.Stats
	_, _ = dimColor.Fprintf(w, "c decisions=%d conflicts=%d propagations=%d restarts=%d learned=%d\n",
		st.Decisions, st.Conflicts, st.Propagations, st.Restarts, st.Learned)
}
