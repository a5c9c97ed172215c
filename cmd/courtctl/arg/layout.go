package arg

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"courtboard/internal/interval"
	"courtboard/internal/layout"
	"courtboard/internal/model"
)

func newLayoutCmd(g *globals) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print calendar events with their column placement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, now, err := g.clock()
			if err != nil {
				return err
			}
			dayStart, dayEnd := interval.DayWindow(now)
			start, err := day(from, loc, dayStart)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := day(to, loc, start.AddDate(0, 0, 1))
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if from == "" && to == "" {
				end = dayEnd
			}
			if !start.Before(end) {
				return model.ErrInvalidRange
			}
			board, err := g.loadBoard()
			if err != nil {
				return err
			}

			events := model.EventsFromBlocks(board.BlocksBetween(start, end))
			events = append(events, model.EventsFromSessions(board.Sessions(), now)...)
			placed := layout.Arrange(events, start, end)

			if len(placed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No events")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tCOLUMN\tCOURTS\tKIND\tTITLE")
			for _, p := range placed {
				fmt.Fprintf(w, "%s\t%d/%d\t%s\t%s\t%s\n",
					clockRange(p.StartTime, p.EndTime, loc),
					p.Column+1, p.TotalColumns,
					intList(p.CourtNumbers), p.Kind, p.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Window start (default: start of today)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (default: one day after --from)")
	return cmd
}
