package constraint

import (
	"fmt"
	"strings"

	"github.com/operator-framework/plansat/pkg/plansat"
)

type UserFriendlyConstraintMessageFormatter func(constraint plansat.Constraint, subject plansat.Identifier) string

type UserFriendlyConstraint struct {
	plansat.Constraint
	messageFormatter UserFriendlyConstraintMessageFormatter
}

func (constraint *UserFriendlyConstraint) String(subject plansat.Identifier) string {
	return constraint.messageFormatter(constraint.Constraint, subject)
}

func NewUserFriendlyConstraint(constraint plansat.Constraint, messageFormatter UserFriendlyConstraintMessageFormatter) *UserFriendlyConstraint {
	return &UserFriendlyConstraint{
		Constraint:       constraint,
		messageFormatter: messageFormatter,
	}
}

func join(ids []plansat.Identifier) string {
	s := make([]string, len(ids))
	for i, each := range ids {
		s[i] = string(each)
	}
	return strings.Join(s, ", ")
}

type MandatoryConstraint struct{}

func (constraint *MandatoryConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s is mandatory", subject)
}

func (constraint *MandatoryConstraint) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	enc.Clause(plansat.Is(subject))
}

// Mandatory returns a Constraint that will permit only solutions in
// which a particular boolean Variable is true.
func Mandatory() plansat.Constraint {
	return &MandatoryConstraint{}
}

type ProhibitedConstraint struct{}

func (constraint *ProhibitedConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s is prohibited", subject)
}

func (constraint *ProhibitedConstraint) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	enc.Clause(plansat.IsNot(subject))
}

// Prohibited returns a Constraint that will reject any solution in which
// a particular boolean Variable is true.
func Prohibited() plansat.Constraint {
	return &ProhibitedConstraint{}
}

type DependencyConstraint struct {
	dependencyIDs []plansat.Identifier
}

func (constraint *DependencyConstraint) String(subject plansat.Identifier) string {
	if len(constraint.dependencyIDs) == 0 {
		return fmt.Sprintf("%s has a dependency without any candidates to satisfy it", subject)
	}
	return fmt.Sprintf("%s requires at least one of %s", subject, join(constraint.dependencyIDs))
}

func (constraint *DependencyConstraint) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	lits := make([]plansat.Literal, 0, len(constraint.dependencyIDs)+1)
	lits = append(lits, plansat.IsNot(subject))
	for _, each := range constraint.dependencyIDs {
		lits = append(lits, plansat.Is(each))
	}
	enc.Clause(lits...)
}

// Dependency returns a Constraint that will only permit solutions
// in which a given Variable is true on the condition that at least one
// of the Variables identified by the given Identifiers is also true.
func Dependency(ids ...plansat.Identifier) plansat.Constraint {
	return &DependencyConstraint{
		dependencyIDs: ids,
	}
}

type ConflictConstraint struct {
	conflictingID plansat.Identifier
}

func (constraint *ConflictConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s conflicts with %s", subject, constraint.conflictingID)
}

func (constraint *ConflictConstraint) Apply(enc plansat.Encoder, subject plansat.Identifier) {
	enc.Clause(plansat.IsNot(subject), plansat.IsNot(constraint.conflictingID))
}

// Conflict returns a Constraint that will permit solutions in which
// either the constrained Variable, the Variable identified by the given
// Identifier, or neither is true, but not both.
func Conflict(id plansat.Identifier) plansat.Constraint {
	return &ConflictConstraint{
		conflictingID: id,
	}
}

type ClauseConstraint struct {
	lits []plansat.Literal
}

func (constraint *ClauseConstraint) String(subject plansat.Identifier) string {
	if len(constraint.lits) == 0 {
		return fmt.Sprintf("%s has an empty clause", subject)
	}
	s := make([]string, len(constraint.lits))
	for i, l := range constraint.lits {
		s[i] = l.String()
	}
	return fmt.Sprintf("%s requires one of (%s)", subject, strings.Join(s, " or "))
}

func (constraint *ClauseConstraint) Apply(enc plansat.Encoder, _ plansat.Identifier) {
	enc.Clause(constraint.lits...)
}

// Clause returns a Constraint requiring at least one of the given literals
// to hold. An empty clause can never be satisfied.
func Clause(lits ...plansat.Literal) plansat.Constraint {
	return &ClauseConstraint{lits: lits}
}

type ImplicationConstraint struct {
	condition plansat.Literal
	then      plansat.Literal
}

func (constraint *ImplicationConstraint) String(subject plansat.Identifier) string {
	return fmt.Sprintf("%s requires %s when %s", subject, constraint.then, constraint.condition)
}

func (constraint *ImplicationConstraint) Apply(enc plansat.Encoder, _ plansat.Identifier) {
	enc.Clause(constraint.condition.Not(), constraint.then)
}

// Implies returns a Constraint requiring then to hold whenever condition
// holds.
func Implies(condition, then plansat.Literal) plansat.Constraint {
	return &ImplicationConstraint{condition: condition, then: then}
}
