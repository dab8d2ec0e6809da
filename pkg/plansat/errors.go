package plansat

import (
	"fmt"
	"strings"
)

// InvalidModel aggregates every problem found while loading a model. A
// model with problems is never searched.
type InvalidModel []error

func (e InvalidModel) Error() string {
	s := make([]string, len(e))
	for i, err := range e {
		s[i] = err.Error()
	}
	return fmt.Sprintf("invalid model, %d errors encountered: %s", len(s), strings.Join(s, ", "))
}

func (e InvalidModel) Unwrap() []error {
	return e
}

type DuplicateIdentifier Identifier

func (e DuplicateIdentifier) Error() string {
	return fmt.Sprintf("duplicate identifier %q in input", Identifier(e))
}

// UndeclaredVariable reports a constraint that mentions a variable absent
// from the model.
type UndeclaredVariable struct {
	Variable   Identifier
	Constraint string
}

func (e UndeclaredVariable) Error() string {
	return fmt.Sprintf("%q: undeclared variable %q", e.Constraint, e.Variable)
}

// IllTyped reports a constraint that uses a variable against its kind, a
// zero coefficient, or a weight outside the supported range.
type IllTyped struct {
	Constraint string
	Reason     string
}

func (e IllTyped) Error() string {
	return fmt.Sprintf("%q: %s", e.Constraint, e.Reason)
}

// InvalidDomain reports a variable whose domain is empty or exceeds the
// supported range.
type InvalidDomain struct {
	Variable Identifier
	Domain   Domain
}

func (e InvalidDomain) Error() string {
	return fmt.Sprintf("variable %q has invalid domain %s", e.Variable, e.Domain)
}
