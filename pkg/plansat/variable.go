package plansat

var _ Variable = &SimpleVariable{}

type SimpleVariable struct {
	id          Identifier
	domain      Domain
	constraints []Constraint
}

func (s *SimpleVariable) Identifier() Identifier {
	return s.id
}

func (s *SimpleVariable) Domain() Domain {
	return s.domain
}

func (s *SimpleVariable) Constraints() []Constraint {
	return s.constraints
}

func (s *SimpleVariable) AddConstraint(constraints ...Constraint) {
	s.constraints = append(s.constraints, constraints...)
}

func NewSimpleVariable(id Identifier, domain Domain, constraints ...Constraint) *SimpleVariable {
	return &SimpleVariable{
		id:          id,
		domain:      domain,
		constraints: constraints,
	}
}

// NewBoolean declares a boolean variable.
func NewBoolean(id Identifier, constraints ...Constraint) *SimpleVariable {
	return NewSimpleVariable(id, Bool(), constraints...)
}

// NewInteger declares an integer variable ranging over [lower, upper].
func NewInteger(id Identifier, lower, upper int64, constraints ...Constraint) *SimpleVariable {
	return NewSimpleVariable(id, Range(lower, upper), constraints...)
}

// NewTimepoint declares an integer variable used as the date of an event
// within [earliest, latest].
func NewTimepoint(id Identifier, earliest, latest int64, constraints ...Constraint) *SimpleVariable {
	return NewInteger(id, earliest, latest, constraints...)
}
