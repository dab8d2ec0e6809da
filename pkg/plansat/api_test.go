package plansat_test

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/plansat/pkg/plansat"
)

func TestPlansat(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Plansat Suite")
}

type mandatory struct{}

func (mandatory) String(subject plansat.Identifier) string {
	return string(subject) + " is mandatory"
}

func (mandatory) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	enc.Clause(plansat.Is(subject))
}

type position struct {
	decisions, conflict []plansat.Literal
}

func (p position) Decisions() []plansat.Literal { return p.decisions }
func (p position) Conflict() []plansat.Literal  { return p.conflict }

var _ = Describe("Literal", func() {
	DescribeTable("negation",
		func(l, want plansat.Literal) {
			Expect(l.Not()).To(Equal(want))
			Expect(l.Not().Not()).To(Equal(l))
		},
		Entry("true", plansat.Is("x"), plansat.IsNot("x")),
		Entry("false", plansat.IsNot("x"), plansat.Is("x")),
		Entry("lower bound", plansat.Geq("t", 5), plansat.Leq("t", 4)),
		Entry("upper bound", plansat.Leq("t", -3), plansat.Geq("t", -2)),
	)

	It("prints as a bound", func() {
		Expect(plansat.Geq("t", 5).String()).To(Equal("t >= 5"))
		Expect(plansat.IsNot("x").String()).To(Equal("x <= 0"))
	})
})

var _ = Describe("Variable", func() {
	It("declares domains", func() {
		Expect(plansat.NewBoolean("b").Domain()).To(Equal(plansat.Bool()))
		Expect(plansat.NewInteger("i", -2, 7).Domain()).To(Equal(plansat.Range(-2, 7)))
		Expect(plansat.NewTimepoint("t", 0, 10).Domain().Kind).To(Equal(plansat.Integer))
		Expect(plansat.Range(1, 3).String()).To(Equal("[1, 3]"))
	})

	It("accumulates constraints", func() {
		v := plansat.NewBoolean("b", mandatory{})
		v.AddConstraint(mandatory{}, mandatory{})
		Expect(v.Constraints()).To(HaveLen(3))
	})
})

var _ = Describe("Errors", func() {
	It("lists the constraints of an unsatisfiable core", func() {
		v := plansat.NewBoolean("b")
		err := plansat.NotSatisfiable{{Variable: v, Constraint: mandatory{}}}
		Expect(err.Error()).To(Equal("constraints not satisfiable:\nb is mandatory"))
		Expect(plansat.NotSatisfiable{}.Error()).To(Equal("constraints not satisfiable"))
	})

	It("unwraps the problems of an invalid model", func() {
		var err error = plansat.InvalidModel{
			plansat.DuplicateIdentifier("a"),
			plansat.UndeclaredVariable{Variable: "c", Constraint: "b requires c"},
		}
		Expect(err.Error()).To(ContainSubstring(`duplicate identifier "a" in input`))
		var undeclared plansat.UndeclaredVariable
		Expect(errors.As(err, &undeclared)).To(BeTrue())
		Expect(undeclared.Variable).To(Equal(plansat.Identifier("c")))
		Expect(errors.Is(err, plansat.DuplicateIdentifier("a"))).To(BeTrue())
	})
})

var _ = Describe("LoggingTracer", func() {
	It("writes decisions and conflicts", func() {
		var buf bytes.Buffer
		plansat.LoggingTracer{Writer: &buf}.Trace(position{
			decisions: []plansat.Literal{plansat.Is("a")},
			conflict:  []plansat.Literal{plansat.IsNot("a"), plansat.Leq("t", 3)},
		})
		Expect(buf.String()).To(Equal("---\nDecisions:\n- a >= 1\nConflict:\n- a <= 0\n- t <= 3\n"))
	})
})
