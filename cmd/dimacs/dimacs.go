package dimacs

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-air/gini/dimacs"
	"github.com/go-air/gini/z"

	"github.com/operator-framework/plansat/pkg/plansat"
	"github.com/operator-framework/plansat/pkg/plansat/constraint"
)

var errMissingHeader = errors.New("invalid dimacs format: missing header 'p cnf <variables> <clauses>'")

// Dimacs holds the variables and clauses that make up
// a CNF problem described in DIMACS format
// see: https://logic.pdmi.ras.ru/~basolver/dimacs.html
type Dimacs struct {
	numVariables int
	clauses      [][]int
}

// Variables returns the identifiers "1" to "n" of the declared variables.
func (d *Dimacs) Variables() []plansat.Identifier {
	ids := make([]plansat.Identifier, 0, d.numVariables)
	for i := 1; i <= d.numVariables; i++ {
		ids = append(ids, identifier(i))
	}
	return ids
}

// Clauses returns the clauses as DIMACS literals, without the closing 0.
func (d *Dimacs) Clauses() [][]int {
	return d.clauses
}

// Model returns one boolean variable per DIMACS variable. Each clause is a
// constraint of the variable of its first literal.
func (d *Dimacs) Model() []plansat.Variable {
	variables := make([]*plansat.SimpleVariable, 0, d.numVariables)
	for _, id := range d.Variables() {
		variables = append(variables, plansat.NewBoolean(id))
	}
	for _, clause := range d.clauses {
		lits := make([]plansat.Literal, 0, len(clause))
		for _, lit := range clause {
			lits = append(lits, literal(lit))
		}
		variables[abs(clause[0])-1].AddConstraint(constraint.Clause(lits...))
	}
	model := make([]plansat.Variable, 0, len(variables))
	for _, v := range variables {
		model = append(model, v)
	}
	return model
}

func identifier(v int) plansat.Identifier {
	return plansat.Identifier(strconv.Itoa(v))
}

func literal(lit int) plansat.Literal {
	if lit < 0 {
		return plansat.IsNot(identifier(-lit))
	}
	return plansat.Is(identifier(lit))
}

func abs(lit int) int {
	if lit < 0 {
		return -lit
	}
	return lit
}

// NewDimacs creates a Dimacs struct with the values
// parsed from the DIMACS formatted stream afforded by dimacsReader
func NewDimacs(dimacsReader io.Reader) (*Dimacs, error) {
	vis := &visitor{}
	if err := dimacs.ReadCnf(dimacsReader, vis); err != nil {
		return nil, fmt.Errorf("error reading dimacs data: %w", err)
	}
	if vis.err != nil {
		return nil, vis.err
	}
	if !vis.header {
		return nil, errMissingHeader
	}
	if len(vis.current) != 0 {
		return nil, fmt.Errorf("invalid clause (%v): does not end with 0", vis.current)
	}

	if vis.numVariables == 0 || vis.numClauses == 0 || len(vis.clauses) == 0 {
		return nil, fmt.Errorf("invalid format: no variables or clauses found")
	}

	if len(vis.clauses) != vis.numClauses {
		return nil, fmt.Errorf("invalid format: number of clauses in header differ from the total number of clauses")
	}

	if len(vis.seen) != vis.numVariables {
		return nil, fmt.Errorf("invalid format: number of variables in header differ from the total number of unique variables found in clauses")
	}

	return &Dimacs{
		numVariables: vis.numVariables,
		clauses:      vis.clauses,
	}, nil
}

// visitor collects what dimacs.ReadCnf reads. It keeps the first problem it
// finds, since the reader has no way to stop early.
type visitor struct {
	header       bool
	numVariables int
	numClauses   int
	current      []int
	clauses      [][]int
	seen         map[int]struct{}
	err          error
}

func (v *visitor) Init(numVariables, numClauses int) {
	v.header = true
	v.numVariables = numVariables
	v.numClauses = numClauses
	v.clauses = make([][]int, 0, numClauses)
	v.seen = make(map[int]struct{}, numVariables)
}

func (v *visitor) Add(m z.Lit) {
	if v.err != nil {
		return
	}
	if !v.header {
		v.err = errMissingHeader
		return
	}
	if m == z.LitNull {
		if len(v.current) == 0 {
			v.err = fmt.Errorf("invalid clause: empty")
			return
		}
		v.clauses = append(v.clauses, v.current)
		v.current = nil
		return
	}
	lit := m.Dimacs()
	if abs(lit) > v.numVariables {
		v.err = fmt.Errorf("invalid clause: %d is not a valid variable", lit)
		return
	}
	// remember variables seen for final validation
	v.seen[abs(lit)] = struct{}{}
	v.current = append(v.current, lit)
}

func (v *visitor) Eof() {}
