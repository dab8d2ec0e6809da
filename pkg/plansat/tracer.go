package plansat

import (
	"fmt"
	"io"
)

// SearchPosition describes the state of the search when a conflict is
// found: the decisions taken so far and the literals that cannot hold
// together.
type SearchPosition interface {
	Decisions() []Literal
	Conflict() []Literal
}

type Tracer interface {
	Trace(p SearchPosition)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ SearchPosition) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(p SearchPosition) {
	fmt.Fprintf(t.Writer, "---\nDecisions:\n")
	for _, l := range p.Decisions() {
		fmt.Fprintf(t.Writer, "- %s\n", l)
	}
	fmt.Fprintf(t.Writer, "Conflict:\n")
	for _, l := range p.Conflict() {
		fmt.Fprintf(t.Writer, "- %s\n", l)
	}
}
