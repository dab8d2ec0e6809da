package sudoku_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/plansat/cmd/sudoku"
	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

func TestSudoku(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sudoku Suite")
}

const puzzle = "53..7....6..195....98....6.8...6...34..8.3..17...2...6.6....28....419..5....8..79"

func valid(board [9][9]int) {
	for i := 0; i < 9; i++ {
		row, col, box := map[int]bool{}, map[int]bool{}, map[int]bool{}
		for j := 0; j < 9; j++ {
			row[board[i][j]] = true
			col[board[j][i]] = true
			box[board[3*(i/3)+j/3][3*(i%3)+j%3]] = true
		}
		for _, seen := range []map[int]bool{row, col, box} {
			Expect(seen).To(HaveLen(9))
			Expect(seen).NotTo(HaveKey(0))
		}
	}
}

var _ = Describe("Sudoku", func() {
	It("fills an empty board", func() {
		outcome, err := solver.Solve(context.Background(), sudoku.NewSudoku(1).Variables())
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Status).To(Equal(solver.Sat))
		valid(sudoku.Board(outcome.Assignment))
	})

	It("completes a puzzle without touching its givens", func() {
		s, err := sudoku.ParseSudoku(puzzle, 1)
		Expect(err).NotTo(HaveOccurred())
		outcome, err := solver.Solve(context.Background(), s.Variables())
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Status).To(Equal(solver.Sat))

		board := sudoku.Board(outcome.Assignment)
		valid(board)
		for row := 0; row < 9; row++ {
			for col := 0; col < 9; col++ {
				if given := s.Givens[row][col]; given != 0 {
					Expect(board[row][col]).To(Equal(given))
				}
			}
		}
	})

	It("rejects a puzzle with repeated givens", func() {
		s, err := sudoku.ParseSudoku("55"+strings.Repeat(".", 79), 1)
		Expect(err).NotTo(HaveOccurred())
		outcome, err := solver.Solve(context.Background(), s.Variables())
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Status).To(Equal(solver.Unsat))
		Expect(outcome.Error()).To(MatchError(ContainSubstring("is mandatory")))
	})

	It("rejects boards of the wrong size", func() {
		_, err := sudoku.ParseSudoku("123", 1)
		Expect(err).To(MatchError("board has 3 cells, expected 81"))
		_, err = sudoku.ParseSudoku(puzzle+"1", 1)
		Expect(err).To(HaveOccurred())
	})

	It("prints empty cells as blanks", func() {
		var board [9][9]int
		board[0][0] = 7
		var buf bytes.Buffer
		sudoku.PrintBoard(&buf, board)
		lines := strings.Split(buf.String(), "\n")
		Expect(lines[0]).To(Equal("7" + strings.Repeat(" ", 16)))
	})
})
