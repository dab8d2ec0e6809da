package jobshop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/operator-framework/plansat/pkg/plansat"
	"github.com/operator-framework/plansat/pkg/plansat/constraint"
	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

// Makespan is the timepoint at which every job is done.
const Makespan plansat.Identifier = "makespan"

type Operation struct {
	Machine  int
	Duration int64
}

// Instance is a job-shop problem: every job runs its operations in order,
// and a machine runs one operation at a time.
type Instance struct {
	Machines int
	Jobs     [][]Operation
}

// ParseInstance reads an instance in the OR-Library format: a line with the
// number of jobs and machines, then one line per job listing the machine
// and duration of each operation. Lines starting with '#' are comments.
func ParseInstance(r io.Reader) (*Instance, error) {
	scanner := bufio.NewScanner(r)
	var (
		in      *Instance
		numJobs int
		line    int
	)
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		numbers := make([]int64, len(fields))
		for i, f := range fields {
			n, err := strconv.ParseInt(f, 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("line %d: %q is not a natural number", line, f)
			}
			numbers[i] = n
		}

		if in == nil {
			if len(numbers) != 2 || numbers[0] == 0 || numbers[1] == 0 {
				return nil, fmt.Errorf("line %d: header must be <jobs> <machines>", line)
			}
			numJobs = int(numbers[0])
			in = &Instance{Machines: int(numbers[1])}
			continue
		}

		if len(in.Jobs) == numJobs {
			return nil, fmt.Errorf("line %d: more than %d jobs", line, numJobs)
		}
		if len(numbers)%2 != 0 {
			return nil, fmt.Errorf("line %d: operations come in <machine> <duration> pairs", line)
		}
		job := make([]Operation, 0, len(numbers)/2)
		for i := 0; i < len(numbers); i += 2 {
			if numbers[i] >= int64(in.Machines) {
				return nil, fmt.Errorf("line %d: machine %d out of range", line, numbers[i])
			}
			job = append(job, Operation{Machine: int(numbers[i]), Duration: numbers[i+1]})
		}
		in.Jobs = append(in.Jobs, job)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading instance: %w", err)
	}
	if in == nil {
		return nil, fmt.Errorf("missing header <jobs> <machines>")
	}
	if len(in.Jobs) != numJobs {
		return nil, fmt.Errorf("found %d jobs, header declares %d", len(in.Jobs), numJobs)
	}
	return in, nil
}

// Start names the timepoint at which operation op of job starts.
func Start(job, op int) plansat.Identifier {
	return plansat.Identifier(fmt.Sprintf("j%d.%d", job, op))
}

// Horizon is the makespan of running every operation one after another.
func (in *Instance) Horizon() int64 {
	var h int64
	for _, job := range in.Jobs {
		for _, op := range job {
			h += op.Duration
		}
	}
	return h
}

// Model encodes the instance with every job done by horizon.
func (in *Instance) Model(horizon int64) []plansat.Variable {
	var (
		starts  []*plansat.SimpleVariable
		orders  []plansat.Variable
		end     = plansat.NewTimepoint(Makespan, 0, horizon)
		machine = make([][]struct{ job, op int }, in.Machines)
	)
	for j, job := range in.Jobs {
		for k, op := range job {
			start := plansat.NewTimepoint(Start(j, k), 0, horizon)
			next := Makespan
			if k+1 < len(job) {
				next = Start(j, k+1)
			}
			start.AddConstraint(constraint.Precedes(next, op.Duration))
			starts = append(starts, start)
			machine[op.Machine] = append(machine[op.Machine], struct{ job, op int }{j, k})
		}
	}

	index := make(map[plansat.Identifier]*plansat.SimpleVariable, len(starts))
	for _, s := range starts {
		index[s.Identifier()] = s
	}
	for m, ops := range machine {
		for a := 0; a < len(ops); a++ {
			for b := a + 1; b < len(ops); b++ {
				first, second := ops[a], ops[b]
				order := plansat.Identifier(fmt.Sprintf("m%d:%s<%s", m, Start(first.job, first.op), Start(second.job, second.op)))
				orders = append(orders, plansat.NewBoolean(order))
				index[Start(first.job, first.op)].AddConstraint(constraint.NoOverlap(
					Start(second.job, second.op), order,
					in.Jobs[first.job][first.op].Duration,
					in.Jobs[second.job][second.op].Duration,
				))
			}
		}
	}

	variables := make([]plansat.Variable, 0, len(starts)+len(orders)+1)
	for _, s := range starts {
		variables = append(variables, s)
	}
	variables = append(variables, orders...)
	return append(variables, end)
}

// Schedule reads the start of every operation off an assignment.
func (in *Instance) Schedule(a solver.Assignment) [][]int64 {
	schedule := make([][]int64, len(in.Jobs))
	for j, job := range in.Jobs {
		schedule[j] = make([]int64, len(job))
		for k := range job {
			schedule[j][k] = a[Start(j, k)]
		}
	}
	return schedule
}

// Minimize solves the instance with a decreasing horizon, starting from
// horizon, until no shorter schedule is found. best is the shortest
// schedule found, nil if none; last is the answer of the final solve, and
// is Unsat when best is optimal.
func Minimize(ctx context.Context, in *Instance, horizon int64, strategies []Strategy) (best, last *Result, err error) {
	for horizon >= 0 {
		last, err = Portfolio(ctx, in.Model(horizon), strategies)
		if err != nil {
			return best, last, err
		}
		if last.Outcome.Status != solver.Sat {
			return best, last, nil
		}
		best = last
		horizon = last.Outcome.Assignment[Makespan] - 1
	}
	return best, last, nil
}
