package arg

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"courtboard/internal/conflict"
	"courtboard/internal/interval"
	"courtboard/internal/model"
	"courtboard/internal/recurrence"
)

func newBlockCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Manage court blocks",
		Long:  `Add, list, edit, end, or remove blocks in the board snapshot`,
	}
	cmd.AddCommand(newBlockAddCmd(g), newBlockListCmd(g), newBlockEditCmd(g), newBlockEndCmd(g), newBlockRemoveCmd(g))
	return cmd
}

func newBlockAddCmd(g *globals) *cobra.Command {
	var (
		courts []int
		start  string
		end    string
		date   string
		reason string
		wet    bool
		rf     recurFlags
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Block one or more courts",
		Long: `Block one or more courts, optionally on a repeating schedule.
Conflicts are printed but do not stop the block from being added.
Examples:
  courtctl block add --court 1,2 --start 07:00 --end 09:00 --reason "Resurfacing"
  courtctl block add --court 5 --start 18:00 --end 19:30 --reason "Clinic" --repeat weekly --count 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(reason) == "" {
				return errors.New("--reason is required")
			}
			loc, now, err := g.clock()
			if err != nil {
				return err
			}
			selected, err := day(date, loc, now)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			spec, err := rf.spec(loc)
			if err != nil {
				return err
			}
			board, err := g.loadBoard()
			if err != nil {
				return err
			}

			from, to, err := conflict.Window(conflict.Proposal{
				Courts: courts, Start: start, End: end, SelectedDate: selected,
			}, now)
			if err != nil {
				return err
			}
			occurrences := []model.Occurrence{{Date: from}}
			if spec != nil {
				if err := spec.ValidateFrom(from); err != nil {
					return err
				}
				occurrences = recurrence.Expand(from, spec)
			}

			template := model.Block{
				StartTime:  from,
				EndTime:    to,
				Reason:     strings.TrimSpace(reason),
				IsWetCourt: wet,
				Source:     model.SourceAdmin,
			}
			blocks := recurrence.MaterializeCourts(template, courts, occurrences, spec)
			found := conflict.DetectBlocks(blocks, conflict.Context{
				ExistingBlocks: board.Blocks(),
				CourtSessions:  board.Sessions(),
				Now:            now,
			})
			stored, err := board.AddBlocks(blocks...)
			if err != nil {
				return err
			}
			if err := g.saveBoard(board); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %d blocks\n", len(stored))
			if spec != nil && recurrence.Truncated(from, spec) {
				fmt.Fprintf(out, "Recurrence truncated at %d occurrences\n", recurrence.MaxOccurrences)
			}
			if len(found) > 0 {
				fmt.Fprintf(out, "Warning: %d conflicts\n", len(found))
				for _, c := range found {
					fmt.Fprintln(out, formatConflict(c, loc))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVarP(&courts, "court", "c", nil, "Courts to block (repeat or comma separate)")
	cmd.Flags().StringVarP(&start, "start", "s", "", `Start time: HH:MM, a timestamp, or "now"`)
	cmd.Flags().StringVarP(&end, "end", "e", "", "End time: HH:MM or a timestamp")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Day for clock times (default: today)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown on the board")
	cmd.Flags().BoolVarP(&wet, "wet", "w", false, "Mark as a wet-court block")
	rf.register(cmd)
	_ = cmd.MarkFlagRequired("court")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newBlockListCmd(g *globals) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List blocks, optionally within a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, now, err := g.clock()
			if err != nil {
				return err
			}
			board, err := g.loadBoard()
			if err != nil {
				return err
			}

			blocks := board.Blocks()
			if from != "" || to != "" {
				start, err := day(from, loc, interval.StartOfDay(now))
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				end, err := day(to, loc, start.AddDate(0, 0, 1))
				if err != nil {
					return fmt.Errorf("--to: %w", err)
				}
				blocks = board.BlocksBetween(start, end)
			}

			if len(blocks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No blocks")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOURT\tDATE\tTIME\tREASON\tSOURCE")
			for _, b := range blocks {
				reason := b.Reason
				if b.IsWetCourt {
					reason += " (wet)"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
					b.ID, b.CourtNumber, b.StartTime.In(loc).Format("2006-01-02"),
					clockRange(b.StartTime, b.EndTime, loc), reason, b.Source)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Window start (default: start of today)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (default: one day after --from)")
	return cmd
}

func newBlockRemoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove blocks by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := g.loadBoard()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := board.DeleteBlock(id); err != nil {
					return err
				}
			}
			if err := g.saveBoard(board); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d blocks\n", len(args))
			return nil
		},
	}
}

func newBlockEditCmd(g *globals) *cobra.Command {
	var (
		court  int
		start  string
		end    string
		date   string
		reason string
		wet    bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change one block",
		Long: `Change one block in place. Flags left out keep the block's current values.
Conflicts with other blocks and sessions are printed but do not stop the edit.
Examples:
  courtctl block edit 3f2c... --end 12:00
  courtctl block edit 3f2c... --court 4 --reason "Net repair"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, now, err := g.clock()
			if err != nil {
				return err
			}
			board, err := g.loadBoard()
			if err != nil {
				return err
			}
			current, err := board.Block(args[0])
			if err != nil {
				return err
			}

			if court == 0 {
				court = current.CourtNumber
			}
			if start == "" {
				start = current.StartTime.In(loc).Format(time.RFC3339)
			}
			if end == "" {
				end = current.EndTime.In(loc).Format(time.RFC3339)
			}
			selected, err := day(date, loc, current.StartTime.In(loc))
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			from, to, err := conflict.Window(conflict.Proposal{
				Courts: []int{court}, Start: start, End: end, SelectedDate: selected,
			}, now)
			if err != nil {
				return err
			}

			updated := current
			updated.CourtNumber = court
			updated.StartTime = from
			updated.EndTime = to
			if strings.TrimSpace(reason) != "" {
				updated.Reason = strings.TrimSpace(reason)
			}
			if cmd.Flags().Changed("wet") {
				updated.IsWetCourt = wet
			}
			found := conflict.DetectBlocks([]model.Block{updated}, conflict.Context{
				ExistingBlocks: board.Blocks(),
				CourtSessions:  board.Sessions(),
				EditingBlockID: current.ID,
				Now:            now,
			})
			if err := board.UpdateBlock(updated); err != nil {
				return err
			}
			if err := g.saveBoard(board); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Updated %s: court %d, %s %s\n", updated.ID, updated.CourtNumber,
				from.In(loc).Format("2006-01-02"), clockRange(from, to, loc))
			if len(found) > 0 {
				fmt.Fprintf(out, "Warning: %d conflicts\n", len(found))
				for _, c := range found {
					fmt.Fprintln(out, formatConflict(c, loc))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&court, "court", "c", 0, "Move the block to this court")
	cmd.Flags().StringVarP(&start, "start", "s", "", `New start: HH:MM, a timestamp, or "now"`)
	cmd.Flags().StringVarP(&end, "end", "e", "", "New end: HH:MM or a timestamp")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Day for clock times (default: the block's day)")
	cmd.Flags().StringVar(&reason, "reason", "", "New reason")
	cmd.Flags().BoolVarP(&wet, "wet", "w", false, "Mark or clear the wet-court flag")
	return cmd
}

func newBlockEndCmd(g *globals) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "end <id>",
		Short: "Cancel a block from now on",
		Long: `End a running block now (or at --at). A block that has not started yet is
removed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, now, err := g.clock()
			if err != nil {
				return err
			}
			cut := now
			if at != "" {
				if cut, err = model.ParseTimeIn(at, loc); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}
			board, err := g.loadBoard()
			if err != nil {
				return err
			}
			kept, err := board.TruncateBlock(args[0], cut)
			if err != nil {
				return err
			}
			if err := g.saveBoard(board); err != nil {
				return err
			}
			if !kept {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			}
			blk, err := board.Block(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ended %s at %s\n", blk.ID, blk.EndTime.In(loc).Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "End time as a timestamp (default: now)")
	return cmd
}
