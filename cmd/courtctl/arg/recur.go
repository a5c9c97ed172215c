package arg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"courtboard/internal/model"
	"courtboard/internal/recurrence"
)

// recurFlags are the recurrence options shared by expand and block add.
type recurFlags struct {
	pattern string
	every   int
	count   int
	until   string
	rrule   string
}

func (r *recurFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&r.pattern, "repeat", "r", "", "Repeat pattern: daily, weekly or monthly")
	cmd.Flags().IntVar(&r.every, "every", 1, "Repeat every N pattern units")
	cmd.Flags().IntVarP(&r.count, "count", "n", 0, "Stop after N occurrences")
	cmd.Flags().StringVarP(&r.until, "until", "u", "", "Stop after this date (inclusive)")
	cmd.Flags().StringVar(&r.rrule, "rrule", "", "RFC 5545 RRULE instead of --repeat/--count/--until")
}

// spec builds the recurrence, or nil when no repeat was requested.
func (r *recurFlags) spec(loc *time.Location) (*recurrence.Spec, error) {
	if r.rrule != "" {
		return recurrence.ParseRRule(r.rrule, loc)
	}
	if r.pattern == "" {
		return nil, nil
	}
	s := &recurrence.Spec{
		Pattern:   recurrence.Pattern(strings.ToLower(strings.TrimSpace(r.pattern))),
		Frequency: r.every,
	}
	switch {
	case r.until != "" && r.count > 0:
		return nil, errors.New("use either --count or --until, not both")
	case r.until != "":
		t, err := model.ParseTimeIn(r.until, loc)
		if err != nil {
			return nil, fmt.Errorf("--until: %w", err)
		}
		s.EndType = recurrence.EndOnDate
		s.EndDate = t
	default:
		s.EndType = recurrence.EndAfter
		s.Occurrences = r.count
	}
	return s, nil
}
