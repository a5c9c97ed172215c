package arg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"courtboard/internal/config"
	"courtboard/internal/ics"
)

func newICSCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Import or export blocks as iCalendar",
	}
	cmd.AddCommand(newICSExportCmd(g), newICSImportCmd(g))
	return cmd
}

func newICSExportCmd(g *globals) *cobra.Command {
	var (
		output string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every block as an ICS calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, now, err := g.clock()
			if err != nil {
				return err
			}
			board, err := g.loadBoard()
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := ics.Encode(&buf, name, board.Blocks(), now); err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err := buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d blocks to %s\n", len(board.Blocks()), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&name, "name", "Court blocks", "Calendar name")
	return cmd
}

func newICSImportCmd(g *globals) *cobra.Command {
	var (
		feed        config.FeedConfig
		horizonDays int
		keywords    []string
	)

	cmd := &cobra.Command{
		Use:   "import <file.ics>",
		Short: "Replace a feed's blocks with the events in an ICS file",
		Long: `Expand the events in an ICS file and store them as blocks owned by --feed.
Blocks already owned by that feed are replaced; admin blocks are untouched.
Examples:
  courtctl ics import league.ics --feed league --court 1,2,3
  courtctl ics import weather.ics --feed weather --wet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, now, err := g.clock()
			if err != nil {
				return err
			}
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if feed.ID == "" {
				feed.ID = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			if feed.Name == "" {
				feed.Name = feed.ID
			}
			board, err := g.loadBoard()
			if err != nil {
				return err
			}

			parsed, err := ics.ParseICS(ics.Source{ID: feed.ID, URL: args[0]}, body, loc)
			if err != nil {
				return err
			}
			expanded, err := ics.Expand(parsed, ics.ExpandConfig{
				Location:   loc,
				RangeStart: now.AddDate(0, 0, -1),
				RangeEnd:   now.AddDate(0, 0, horizonDays),
			})
			if err != nil {
				return err
			}
			blocks := ics.ToBlocks(expanded.Instances, ics.BlockOptions{
				Feed:        feed,
				CourtCount:  board.CourtCount(),
				WetKeywords: keywords,
			})
			n := board.ReplaceSource(feed.ID, blocks)
			if err := g.saveBoard(board); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d blocks from %d events into feed %s\n", n, len(parsed), feed.ID)
			for _, uid := range expanded.Truncated {
				fmt.Fprintf(out, "Warning: %s truncated at the per-event limit\n", uid)
			}
			return nil
		},
	}
	def := config.DefaultConfig()
	cmd.Flags().StringVar(&feed.ID, "feed", "", "Feed ID owning the imported blocks (default: file name)")
	cmd.Flags().StringVar(&feed.Name, "name", "", "Reason for events without a summary (default: feed ID)")
	cmd.Flags().IntSliceVarP(&feed.Courts, "court", "c", nil, "Courts every event blocks (default: all)")
	cmd.Flags().BoolVarP(&feed.Wet, "wet", "w", false, "Mark every event as a wet-court block")
	cmd.Flags().IntVar(&horizonDays, "horizon", def.HorizonDays, "Days ahead to import")
	cmd.Flags().StringSliceVar(&keywords, "wet-keyword", def.WetKeywords, "Summary keywords that mark an event wet")
	return cmd
}
