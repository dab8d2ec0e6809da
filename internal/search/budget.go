package search

import (
	"context"
	"errors"
	"time"
)

// Reason explains an Unknown result.
type Reason uint8

const (
	NoReason Reason = iota
	Timeout
	StepLimit
	Cancelled
)

func (r Reason) String() string {
	switch r {
	case Timeout:
		return "timeout"
	case StepLimit:
		return "step-limit"
	case Cancelled:
		return "cancelled"
	}
	return ""
}

type budget struct {
	deadline time.Time
	steps    int64
}

func newBudget(now time.Time, timeLimit time.Duration, steps int64) budget {
	b := budget{steps: steps}
	if timeLimit > 0 {
		b.deadline = now.Add(timeLimit)
	}
	return b
}

// exceeded is checked before every decision; taken is the number of
// decisions made so far.
func (b budget) exceeded(ctx context.Context, taken int64) (Reason, bool) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Timeout, true
		}
		return Cancelled, true
	}
	if !b.deadline.IsZero() && !time.Now().Before(b.deadline) {
		return Timeout, true
	}
	if b.steps > 0 && taken >= b.steps {
		return StepLimit, true
	}
	return NoReason, false
}
