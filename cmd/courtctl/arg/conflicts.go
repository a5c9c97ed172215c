package arg

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"courtboard/internal/conflict"
	"courtboard/internal/model"
)

func newConflictsCmd(g *globals) *cobra.Command {
	var (
		courts  []int
		start   string
		end     string
		date    string
		editing string
	)

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Check a proposed block against existing blocks and sessions",
		Long: `Check a proposed block against the board without changing it.
Examples:
  courtctl conflicts --court 1,2 --start 09:00 --end 11:00
  courtctl conflicts --court 3 --start now --end 12:30 --editing <block-id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, now, err := g.clock()
			if err != nil {
				return err
			}
			selected, err := day(date, loc, now)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			board, err := g.loadBoard()
			if err != nil {
				return err
			}

			p := conflict.Proposal{Courts: courts, Start: start, End: end, SelectedDate: selected}
			from, to, err := conflict.Window(p, now)
			if err != nil {
				return err
			}
			found := conflict.Detect(p, conflict.Context{
				ExistingBlocks: board.Blocks(),
				CourtSessions:  board.Sessions(),
				EditingBlockID: editing,
				Now:            now,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Proposed: courts %s, %s %s\n", intList(courts), from.Format("2006-01-02"), clockRange(from, to, loc))
			if len(found) == 0 {
				fmt.Fprintln(out, "No conflicts")
				return nil
			}
			for _, c := range found {
				fmt.Fprintln(out, formatConflict(c, loc))
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVarP(&courts, "court", "c", nil, "Courts to block (repeat or comma separate)")
	cmd.Flags().StringVarP(&start, "start", "s", "", `Start time: HH:MM, a timestamp, or "now"`)
	cmd.Flags().StringVarP(&end, "end", "e", "", "End time: HH:MM or a timestamp")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Day for clock times (default: today)")
	cmd.Flags().StringVar(&editing, "editing", "", "ID of a block being edited, excluded from the check")
	_ = cmd.MarkFlagRequired("court")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func formatConflict(c model.Conflict, loc *time.Location) string {
	span := "open-ended"
	if !c.Start.IsZero() && !c.End.IsZero() {
		span = clockRange(c.Start, c.End, loc)
	}
	if c.Type == model.ConflictBooking {
		return fmt.Sprintf("  court %d: in use by %s (%s)", c.CourtNumber, playerNames(c.Players), span)
	}
	return fmt.Sprintf("  court %d: blocked for %q (%s)", c.CourtNumber, c.Reason, span)
}
