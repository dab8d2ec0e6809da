package sudoku

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/operator-framework/plansat/cmd/cli"
	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

func NewSudokuCommand() *cobra.Command {
	var (
		seed  uint64
		board string
	)
	cmd := &cobra.Command{
		Use:   "sudoku",
		Short: "Returns a solved sudoku board",
		Long: `Returns a solved sudoku board. Without --board a random full board is
generated. A board is given as 81 cells, row by row, with '.' for empty
cells, for instance:
  53..7....6..195....98....6.8...6...34..8.3..17...2...6.6....28....419..5....8..79`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}
			s := NewSudoku(seed)
			if board != "" {
				var err error
				if s, err = ParseSudoku(board, seed); err != nil {
					return err
				}
			}
			options, log, err := cli.Options()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			outcome, err := solver.Solve(cmd.Context(), s.Variables(), options...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cli.PrintStatus(out, outcome)
			cli.PrintCore(out, outcome)
			if outcome.Status == solver.Sat {
				PrintBoard(out, Board(outcome.Assignment))
			}
			cli.PrintStats(out, outcome)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed of the candidate order, random by default")
	cmd.Flags().StringVar(&board, "board", "", "81 cells to complete, '.' for empty")
	return cmd
}

func PrintBoard(w io.Writer, board [9][9]int) {
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			if n := board[row][col]; n != 0 {
				fmt.Fprintf(w, "%d", n)
			} else {
				fmt.Fprintf(w, " ")
			}
			if col != 8 {
				fmt.Fprintf(w, " ")
			}
		}
		fmt.Fprintf(w, "\n")
	}
}
