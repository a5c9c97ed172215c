package arg

import (
	"fmt"

	"github.com/spf13/cobra"

	"courtboard/internal/recurrence"
)

func newExpandCmd(g *globals) *cobra.Command {
	var (
		anchor string
		rf     recurFlags
	)

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "List the dates a recurrence produces",
		Long: `List the dates a recurrence produces, capped at 365.
Examples:
  courtctl expand --anchor 2025-06-02 --repeat weekly --count 8
  courtctl expand --anchor 2025-01-31 --repeat monthly --until 2025-06-30
  courtctl expand --anchor 2025-06-02 --rrule "FREQ=DAILY;INTERVAL=2;COUNT=5"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, now, err := g.clock()
			if err != nil {
				return err
			}
			start, err := day(anchor, loc, now)
			if err != nil {
				return fmt.Errorf("--anchor: %w", err)
			}
			spec, err := rf.spec(loc)
			if err != nil {
				return err
			}
			if spec != nil {
				if err := spec.ValidateFrom(start); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			occurrences := recurrence.Expand(start, spec)
			for _, o := range occurrences {
				fmt.Fprintln(out, o.Date.In(loc).Format("2006-01-02 Mon 15:04"))
			}
			if spec == nil {
				return nil
			}
			if rule, err := spec.RRule(start); err == nil {
				fmt.Fprintf(out, "RRULE:%s\n", rule)
			}
			if recurrence.Truncated(start, spec) {
				fmt.Fprintf(out, "truncated at %d occurrences\n", recurrence.MaxOccurrences)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&anchor, "anchor", "a", "", "First occurrence (default: now)")
	rf.register(cmd)
	return cmd
}
