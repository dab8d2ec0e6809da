package jobshop_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/plansat/cmd/jobshop"
	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

func TestJobShop(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "JobShop Suite")
}

// the load of machine 0 bounds the makespan at 7, which is reached by
// running job 0 first on it
const small = `# jobs machines
2 2
0 3 1 2
1 2 0 4
`

func instance(s string) *jobshop.Instance {
	in, err := jobshop.ParseInstance(strings.NewReader(s))
	Expect(err).NotTo(HaveOccurred())
	return in
}

// feasible checks job order and that no machine runs two operations at once.
func feasible(in *jobshop.Instance, a solver.Assignment) {
	schedule := in.Schedule(a)
	type slot struct{ start, end int64 }
	machines := map[int][]slot{}
	for j, job := range in.Jobs {
		for k, op := range job {
			start := schedule[j][k]
			if k > 0 {
				Expect(start).To(BeNumerically(">=", schedule[j][k-1]+job[k-1].Duration))
			}
			Expect(a[jobshop.Makespan]).To(BeNumerically(">=", start+op.Duration))
			for _, other := range machines[op.Machine] {
				Expect(start+op.Duration <= other.start || other.end <= start).To(BeTrue())
			}
			machines[op.Machine] = append(machines[op.Machine], slot{start, start + op.Duration})
		}
	}
}

var _ = Describe("ParseInstance", func() {
	It("reads jobs and machines", func() {
		in := instance(small)
		Expect(in.Machines).To(Equal(2))
		Expect(in.Jobs).To(Equal([][]jobshop.Operation{
			{{Machine: 0, Duration: 3}, {Machine: 1, Duration: 2}},
			{{Machine: 1, Duration: 2}, {Machine: 0, Duration: 4}},
		}))
		Expect(in.Horizon()).To(Equal(int64(11)))
	})

	DescribeTable("rejects malformed instances",
		func(s string) {
			_, err := jobshop.ParseInstance(strings.NewReader(s))
			Expect(err).To(HaveOccurred())
		},
		Entry("empty", ""),
		Entry("bad header", "2\n0 1\n"),
		Entry("missing job", "2 1\n0 1\n"),
		Entry("extra job", "1 1\n0 1\n0 1\n"),
		Entry("odd operation", "1 1\n0 1 0\n"),
		Entry("unknown machine", "1 1\n1 1\n"),
		Entry("negative duration", "1 1\n0 -1\n"),
	)
})

var _ = Describe("Model", func() {
	It("schedules within a feasible horizon", func() {
		in := instance(small)
		outcome, err := solver.Solve(context.Background(), in.Model(7), solver.WithCrossCheck(true))
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Status).To(Equal(solver.Sat))
		feasible(in, outcome.Assignment)
		Expect(outcome.Assignment[jobshop.Makespan]).To(Equal(int64(7)))
	})

	It("explains why a horizon is too short", func() {
		in := instance(small)
		outcome, err := solver.Solve(context.Background(), in.Model(6), solver.WithCrossCheck(true))
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Status).To(Equal(solver.Unsat))
		Expect(outcome.Core).NotTo(BeEmpty())
	})

	It("prints the schedule", func() {
		in := instance(small)
		var buf bytes.Buffer
		jobshop.PrintSchedule(&buf, in, solver.Assignment{
			"j0.0": 0, "j0.1": 3, "j1.0": 0, "j1.1": 3, jobshop.Makespan: 7,
		})
		Expect(buf.String()).To(Equal("makespan 7\njob 0: m0@0 m1@3\njob 1: m1@0 m0@3\n"))
	})
})

var _ = Describe("Portfolio", func() {
	It("returns the answer of one of its strategies", func() {
		in := instance(small)
		res, err := jobshop.Portfolio(context.Background(), in.Model(7), jobshop.Strategies(solver.WithCrossCheck(true)))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome.Status).To(Equal(solver.Sat))
		Expect(res.Strategy).To(BeElementOf("activity", "activity-no-restart", "first-unassigned", "no-learning"))
		feasible(in, res.Outcome.Assignment)
	})

	It("agrees on unsatisfiable models", func() {
		in := instance(small)
		res, err := jobshop.Portfolio(context.Background(), in.Model(6), jobshop.Strategies())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome.Status).To(Equal(solver.Unsat))
	})

	It("falls back to the first result when nobody answers", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		in := instance(small)
		res, err := jobshop.Portfolio(ctx, in.Model(7), jobshop.Strategies())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Strategy).To(Equal("activity"))
		Expect(res.Outcome.Status).To(Equal(solver.Unknown))
	})

	It("rejects an empty portfolio", func() {
		_, err := jobshop.Portfolio(context.Background(), nil, nil)
		Expect(err).To(HaveOccurred())
	})

	It("minimizes the makespan", func() {
		in := instance(small)
		best, last, err := jobshop.Minimize(context.Background(), in, in.Horizon(), jobshop.Strategies())
		Expect(err).NotTo(HaveOccurred())
		Expect(best).NotTo(BeNil())
		Expect(best.Outcome.Assignment[jobshop.Makespan]).To(Equal(int64(7)))
		Expect(last.Outcome.Status).To(Equal(solver.Unsat))
	})
})
