package arg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"courtboard/internal/model"
	"courtboard/internal/store"
)

// globals are the flags shared by every subcommand.
type globals struct {
	boardPath string
	tz        string
	now       string
	courts    int
}

// NewRootCmd builds the courtctl command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:   "courtctl",
		Short: "courtctl inspects and edits a court board snapshot",
		Long: `courtctl works on the JSON board snapshot the courtboard server loads and saves.
You can use it to check court status, preview conflicts and recurrences,
add or remove blocks, and move blocks in and out of ICS files.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.boardPath, "board", "b", "board.json", "Board snapshot file")
	rootCmd.PersistentFlags().StringVar(&g.tz, "tz", "", "IANA timezone for dates and clock times (default: local)")
	rootCmd.PersistentFlags().StringVar(&g.now, "now", "", "Evaluate at this time instead of the current time")
	rootCmd.PersistentFlags().IntVar(&g.courts, "courts", 0, "Court count for a board file that does not exist yet")

	rootCmd.AddCommand(
		newStatusCmd(g),
		newConflictsCmd(g),
		newExpandCmd(g),
		newLayoutCmd(g),
		newBlockCmd(g),
		newICSCmd(g),
	)
	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (g *globals) location() (*time.Location, error) {
	if g.tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(g.tz)
	if err != nil {
		return nil, fmt.Errorf("--tz: %w", err)
	}
	return loc, nil
}

// clock returns the working location and the evaluation instant.
func (g *globals) clock() (*time.Location, time.Time, error) {
	loc, err := g.location()
	if err != nil {
		return nil, time.Time{}, err
	}
	if g.now == "" {
		return loc, time.Now().In(loc), nil
	}
	now, err := model.ParseTimeIn(g.now, loc)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return loc, now.In(loc), nil
}

// day parses a date flag in loc; empty means fallback.
func day(v string, loc *time.Location, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	return model.ParseTimeIn(v, loc)
}

func (g *globals) loadBoard() (*store.Board, error) {
	loc, err := g.location()
	if err != nil {
		return nil, err
	}
	snap, err := store.LoadFile(g.boardPath, loc)
	if errors.Is(err, fs.ErrNotExist) {
		if g.courts <= 0 {
			return nil, fmt.Errorf("board %s does not exist; pass --courts to start a new one", g.boardPath)
		}
		return store.NewBoard(g.courts), nil
	}
	if err != nil {
		return nil, fmt.Errorf("board %s: %w", g.boardPath, err)
	}
	if g.courts > 0 {
		snap.Courts = g.courts
	}
	return store.Restore(snap), nil
}

func (g *globals) saveBoard(b *store.Board) error {
	return store.SaveFile(g.boardPath, b.Snapshot())
}

func clockRange(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format("15:04") + "-" + end.In(loc).Format("15:04")
}

func playerNames(players []model.Player) string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func intList(ns []int) string {
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		parts = append(parts, fmt.Sprint(n))
	}
	return strings.Join(parts, ",")
}
