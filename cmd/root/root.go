package root

import (
	"github.com/spf13/cobra"

	"github.com/operator-framework/plansat/cmd/dimacs"
	"github.com/operator-framework/plansat/cmd/jobshop"
	"github.com/operator-framework/plansat/cmd/sudoku"
	"github.com/operator-framework/plansat/internal/config"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "plansat",
		Short: "Plansat is a constraint solver for planning and scheduling problems",
		Long: `A constraint solver over boolean and integer variables with linear
and temporal constraints, written in Go.

The search is configured through the environment, or a .env file
(PLANSAT_ENV names another one):
  PLANSAT_BRANCHING   first-unassigned | activity (default)
  PLANSAT_LEARNING    true (default) | false
  PLANSAT_RESTART     none | geometric (default)
  PLANSAT_TIME_LIMIT  e.g. 30s
  PLANSAT_STEP_LIMIT  maximum number of decisions
  PLANSAT_LOG_LEVEL   debug | info | warn (default) | error`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load()
		},
	}

	// add sub-commands
	rootCmd.AddCommand(dimacs.NewDimacsCommand())
	rootCmd.AddCommand(sudoku.NewSudokuCommand())
	rootCmd.AddCommand(jobshop.NewJobShopCommand())

	return rootCmd
}
