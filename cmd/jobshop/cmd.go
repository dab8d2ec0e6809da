package jobshop

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/operator-framework/plansat/cmd/cli"
	"github.com/operator-framework/plansat/pkg/plansat/solver"
)

func NewJobShopCommand() *cobra.Command {
	var (
		horizon    int64
		optimize   bool
		portfolio  bool
		crossCheck bool
	)
	cmd := &cobra.Command{
		Use:   "jobshop <path>",
		Short: "Schedules a job-shop problem given in OR-Library format",
		Long: `Schedules a job-shop problem given in OR-Library format. For instance:
# <jobs> <machines>
2 2
# one job per line: <machine> <duration> for each operation, in order
0 3 1 2
1 2 0 4

Every job runs its operations in order, and a machine runs one operation at
a time. With --optimize the horizon is tightened below every schedule found
until no shorter one exists.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("error opening instance (%s): %w", args[0], err)
			}
			defer f.Close()
			in, err := ParseInstance(f)
			if err != nil {
				return fmt.Errorf("error parsing instance (%s): %w", args[0], err)
			}

			base, log, err := cli.Options(solver.WithCrossCheck(crossCheck))
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			strategies := []Strategy{{Name: "configured", Options: base}}
			if portfolio {
				strategies = Strategies(base...)
			}

			if !cmd.Flags().Changed("horizon") {
				horizon = in.Horizon()
			}
			out := cmd.OutOrStdout()
			if !optimize {
				res, err := Portfolio(cmd.Context(), in.Model(horizon), strategies)
				if err != nil {
					return err
				}
				report(out, in, res)
				return nil
			}

			best, last, err := Minimize(cmd.Context(), in, horizon, strategies)
			if err != nil {
				return err
			}
			if best == nil {
				report(out, in, last)
				return nil
			}
			report(out, in, best)
			if last.Outcome.Status == solver.Unsat {
				fmt.Fprintf(out, "c optimal makespan %d\n", best.Outcome.Assignment[Makespan])
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&horizon, "horizon", 0, "latest completion time, the sum of all durations by default")
	cmd.Flags().BoolVar(&optimize, "optimize", false, "search for the shortest makespan")
	cmd.Flags().BoolVar(&portfolio, "portfolio", false, "race several search strategies")
	cmd.Flags().BoolVar(&crossCheck, "cross-check", false, "verify every schedule against the constraints")
	return cmd
}

func report(w io.Writer, in *Instance, res *Result) {
	cli.PrintStatus(w, res.Outcome)
	fmt.Fprintf(w, "c strategy %s\n", res.Strategy)
	cli.PrintCore(w, res.Outcome)
	if res.Outcome.Status == solver.Sat {
		PrintSchedule(w, in, res.Outcome.Assignment)
	}
	cli.PrintStats(w, res.Outcome)
}

// PrintSchedule writes the makespan and one line per job with the start of
// each of its operations.
func PrintSchedule(w io.Writer, in *Instance, a solver.Assignment) {
	fmt.Fprintf(w, "makespan %d\n", a[Makespan])
	for j, starts := range in.Schedule(a) {
		fmt.Fprintf(w, "job %d:", j)
		for k, start := range starts {
			fmt.Fprintf(w, " m%d@%d", in.Jobs[j][k].Machine, start)
		}
		fmt.Fprintln(w)
	}
}
