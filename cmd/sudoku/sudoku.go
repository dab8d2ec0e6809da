package sudoku

import (
	"fmt"
	"math/rand/v2"

	"github.com/operator-framework/plansat/pkg/plansat"
	"github.com/operator-framework/plansat/pkg/plansat/constraint"
	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

// GetID names the variable stating that the cell at row, col holds num+1.
func GetID(row int, col int, num int) plansat.Identifier {
	n := num
	n += col * 9
	n += row * 81
	return plansat.Identifier(fmt.Sprintf("%03d", n))
}

// Sudoku is a 9x9 board. Zero marks an empty cell.
type Sudoku struct {
	Givens [9][9]int
	rand   *rand.Rand
}

// NewSudoku returns an empty board. The seed shuffles the order in which
// candidates are offered to the solver, so different seeds fill an empty
// board differently.
func NewSudoku(seed uint64) *Sudoku {
	return &Sudoku{rand: rand.New(rand.NewPCG(seed, seed))}
}

// ParseSudoku reads 81 cells row by row. Digits are givens; '.' and '0' are
// empty. Any other character is skipped.
func ParseSudoku(board string, seed uint64) (*Sudoku, error) {
	s := NewSudoku(seed)
	cell := 0
	for _, r := range board {
		var n int
		switch {
		case r == '.' || r == '0':
		case r >= '1' && r <= '9':
			n = int(r - '0')
		default:
			continue
		}
		if cell == 81 {
			return nil, fmt.Errorf("board has more than 81 cells")
		}
		s.Givens[cell/9][cell%9] = n
		cell++
	}
	if cell != 81 {
		return nil, fmt.Errorf("board has %d cells, expected 81", cell)
	}
	return s, nil
}

// Variables encodes the board: every cell holds exactly one number and every
// number appears at most once per row, column and box.
// adapted from: https://github.com/go-air/gini/blob/871d828a26852598db2b88f436549634ba9533ff/sudoku_test.go#L10
func (s *Sudoku) Variables() []plansat.Variable {
	variables := make(map[plansat.Identifier]*plansat.SimpleVariable, 9*9*9)
	inorder := make([]plansat.Variable, 0, 9*9*9)

	// create variables for all number in all positions of the board
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			for n := 0; n < 9; n++ {
				variable := plansat.NewBoolean(GetID(row, col, n))
				variables[variable.Identifier()] = variable
				inorder = append(inorder, variable)
			}
		}
	}

	// every position on the board has exactly one number
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			ids := make([]plansat.Identifier, 9)
			for n := 0; n < 9; n++ {
				ids[n] = GetID(row, col, n)
			}
			// randomize order to create new sudoku boards every run
			s.rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			variables[GetID(row, col, 0)].AddConstraint(constraint.ExactlyOne(ids...))

			if given := s.Givens[row][col]; given != 0 {
				variables[GetID(row, col, given-1)].AddConstraint(constraint.Mandatory())
			}
		}
	}

	unique := func(ids []plansat.Identifier) {
		variables[ids[0]].AddConstraint(constraint.AtMost(1, ids...))
	}

	for n := 0; n < 9; n++ {
		// every row has unique numbers
		for row := 0; row < 9; row++ {
			ids := make([]plansat.Identifier, 0, 9)
			for col := 0; col < 9; col++ {
				ids = append(ids, GetID(row, col, n))
			}
			unique(ids)
		}
		// every column has unique numbers
		for col := 0; col < 9; col++ {
			ids := make([]plansat.Identifier, 0, 9)
			for row := 0; row < 9; row++ {
				ids = append(ids, GetID(row, col, n))
			}
			unique(ids)
		}
		// every box rooted at x, y has unique numbers
		for x := 0; x < 9; x += 3 {
			for y := 0; y < 9; y += 3 {
				ids := make([]plansat.Identifier, 0, 9)
				for i := 0; i < 9; i++ {
					ids = append(ids, GetID(x+i/3, y+i%3, n))
				}
				unique(ids)
			}
		}
	}

	return inorder
}

// Board reads the filled board off an assignment. Cells without a number
// are 0.
func Board(a solver.Assignment) [9][9]int {
	var board [9][9]int
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			for n := 0; n < 9; n++ {
				if a.IsTrue(GetID(row, col, n)) {
					board[row][col] = n + 1
					break
				}
			}
		}
	}
	return board
}
