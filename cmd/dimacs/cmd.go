package dimacs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/operator-framework/plansat/cmd/cli"
	"github.com/operator-framework/plansat/pkg/plansat"
	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

func NewDimacsCommand() *cobra.Command {
	var (
		crossCheck bool
		trace      bool
	)
	cmd := &cobra.Command{
		Use:   "solve <path>",
		Short: "Solves a sat problem given in dimacs format",
		Long: `Solves a sat problem given in dimacs format. For instance:
c
c this is a comment
c header: p cnf <number of variable> <number of clauses> 
p cnf 2 2
c clauses end in zero, negative means 'not'
c 0 (zero) is not a valid literal
1 2 0
1 -2 0
c cnf: (1 or 2) and (1 and not 2)
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			extra := []solver.Option{solver.WithCrossCheck(crossCheck)}
			if trace {
				extra = append(extra, solver.WithTracer(plansat.LoggingTracer{Writer: cmd.ErrOrStderr()}))
			}
			options, log, err := cli.Options(extra...)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return solve(cmd, args[0], options)
		},
	}
	cmd.Flags().BoolVar(&crossCheck, "cross-check", false, "verify the answer against gini")
	cmd.Flags().BoolVar(&trace, "trace", false, "write every conflict of the search to stderr")
	return cmd
}

func solve(cmd *cobra.Command, path string, options []solver.Option) error {
	// open dimacs file
	dimacsFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening dimacs file (%s): %w", path, err)
	}
	defer dimacsFile.Close()

	d, err := NewDimacs(dimacsFile)
	if err != nil {
		return fmt.Errorf("error parsing dimacs file (%s): %w", path, err)
	}

	outcome, err := solver.Solve(cmd.Context(), d.Model(), options...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cli.PrintStatus(out, outcome)
	cli.PrintCore(out, outcome)
	if outcome.Status == solver.Sat {
		PrintSolution(out, d, outcome.Assignment)
	}
	cli.PrintStats(out, outcome)
	return nil
}

// PrintSolution writes the assignment as a DIMACS value line, e.g. "v 1 -2 0".
func PrintSolution(w io.Writer, d *Dimacs, a solver.Assignment) {
	var b strings.Builder
	b.WriteString("v")
	for i, id := range d.Variables() {
		if a.IsTrue(id) {
			fmt.Fprintf(&b, " %d", i+1)
		} else {
			fmt.Fprintf(&b, " -%d", i+1)
		}
	}
	b.WriteString(" 0")
	_, _ = fmt.Fprintln(w, b.String())
}
