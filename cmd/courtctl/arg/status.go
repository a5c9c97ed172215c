package arg

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"courtboard/internal/model"
	"courtboard/internal/status"
)

func newStatusCmd(g *globals) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of every court",
		Long: `Show the status of every court. On today only blocks active right now count;
with --date set to another day, any block on that day marks the court blocked.`,
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

			statuses := status.ResolveAll(board.Courts(now), board.StatusContext(selected, now))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COURT\tSTATUS\tDETAIL")
			for _, s := range statuses {
				fmt.Fprintf(w, "%d\t%s\t%s\n", s.CourtNumber, s.Status, describe(s.Info, loc))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Day to show (default: today)")
	return cmd
}

func describe(info model.StatusInfo, loc *time.Location) string {
	switch {
	case info.Reason != "" && !info.End.IsZero():
		return fmt.Sprintf("%s until %s", info.Reason, info.End.In(loc).Format("15:04"))
	case info.Reason != "":
		return info.Reason
	case len(info.Players) > 0 && !info.ScheduledEndAt.IsZero():
		return fmt.Sprintf("%s, ends %s", playerNames(info.Players), info.ScheduledEndAt.In(loc).Format("15:04"))
	case len(info.Players) > 0:
		return playerNames(info.Players)
	}
	return ""
}
