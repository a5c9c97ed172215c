// Package conflict flags collisions between a proposed court block and the
// blocks and sessions already on those courts. Results are advisory: the
// caller decides whether a conflict prevents submission.
package conflict

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"courtboard/internal/interval"
	"courtboard/internal/model"
)

var (
	// ErrInvalidTime is returned for a start/end that is neither "now",
	// a HH:MM clock time, nor a full timestamp.
	ErrInvalidTime = errors.New("invalid time")
	// ErrEmptyWindow is returned when start and end resolve to the same instant.
	ErrEmptyWindow = errors.New("start and end are equal")
)

// StartNow is the symbolic start meaning "the current time".
const StartNow = "now"

// Proposal is a block the admin is about to create on one or more courts.
// Start and End are clock times on SelectedDate ("HH:MM"), full
// timestamps, or for Start the literal "now".
type Proposal struct {
	Courts       []int     `json:"courts"`
	Start        string    `json:"startTime"`
	End          string    `json:"endTime"`
	SelectedDate time.Time `json:"selectedDate"`
}

// Context holds the existing court usage to check against.
type Context struct {
	ExistingBlocks []model.Block
	CourtSessions  []model.Session
	// EditingBlockID excludes the block being edited from its own check.
	EditingBlockID string
	Now            time.Time
}

// Window resolves the proposal to absolute [start, end). An end earlier
// than the start rolls over to the next day, so a block may span midnight;
// an end still before the start after that is model.ErrInvalidRange.
func Window(p Proposal, now time.Time) (time.Time, time.Time, error) {
	day := p.SelectedDate
	if day.IsZero() {
		day = now
	}

	var start time.Time
	if strings.EqualFold(strings.TrimSpace(p.Start), StartNow) {
		if now.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("start %q: %w", p.Start, ErrInvalidTime)
		}
		start = now
	} else {
		t, err := onDay(day, p.Start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start %q: %w", p.Start, err)
		}
		start = t
	}

	end, err := onDay(start, p.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end %q: %w", p.End, err)
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	if end.Equal(start) {
		return time.Time{}, time.Time{}, ErrEmptyWindow
	}
	// A full timestamp more than a day early is still before start.
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %q: %w", p.End, model.ErrInvalidRange)
	}
	return start, end, nil
}

// onDay places a HH:MM[:SS] clock time on day's calendar date, or parses
// v as a full timestamp.
func onDay(day time.Time, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if day.IsZero() || v == "" {
		return time.Time{}, ErrInvalidTime
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if c, err := time.Parse(layout, v); err == nil {
			y, m, d := day.Date()
			return time.Date(y, m, d, c.Hour(), c.Minute(), c.Second(), 0, day.Location()), nil
		}
	}
	if t, err := model.ParseTimeIn(v, day.Location()); err == nil && strings.Contains(v, "T") {
		return t, nil
	}
	return time.Time{}, ErrInvalidTime
}

// Detect reports conflicts for every candidate court, in court order and
// then block order. Each overlapping block yields one entry; each court
// yields at most one booking entry. A proposal that cannot be resolved
// yields no conflicts.
func Detect(p Proposal, ctx Context) []model.Conflict {
	start, end, err := Window(p, ctx.Now)
	if err != nil {
		return []model.Conflict{}
	}
	out := make([]model.Conflict, 0)
	for _, court := range p.Courts {
		out = appendCourtConflicts(out, court, start, end, ctx)
	}
	return out
}

// DetectBlocks checks already materialized blocks (for example the output
// of a recurrence expansion) against the context, in block order. Blocks
// with unknown bounds are skipped.
func DetectBlocks(proposed []model.Block, ctx Context) []model.Conflict {
	out := make([]model.Conflict, 0)
	for _, b := range proposed {
		if !b.Valid() {
			continue
		}
		out = appendCourtConflicts(out, b.CourtNumber, b.StartTime, b.EndTime, ctx)
	}
	return out
}

func appendCourtConflicts(out []model.Conflict, court int, start, end time.Time, ctx Context) []model.Conflict {
	for _, b := range ctx.ExistingBlocks {
		if b.CourtNumber != court {
			continue
		}
		if ctx.EditingBlockID != "" && b.ID == ctx.EditingBlockID {
			continue
		}
		if !interval.Overlaps(start, end, b.StartTime, b.EndTime) {
			continue
		}
		out = append(out, model.Conflict{
			CourtNumber: court,
			Type:        model.ConflictBlock,
			BlockID:     b.ID,
			Reason:      b.Reason,
			Start:       b.StartTime,
			End:         b.EndTime,
		})
	}

	for _, s := range ctx.CourtSessions {
		if s.CourtNumber != court {
			continue
		}
		sessionEnd := s.ScheduledEndAt
		if sessionEnd.IsZero() && !s.StartedAt.IsZero() {
			sessionEnd = openSessionEnd(s.StartedAt, ctx.Now)
		}
		if !interval.Overlaps(start, end, s.StartedAt, sessionEnd) {
			continue
		}
		out = append(out, model.Conflict{
			CourtNumber: court,
			Type:        model.ConflictBooking,
			Players:     s.ActivePlayers(),
			Start:       s.StartedAt,
			End:         s.ScheduledEndAt,
		})
		break
	}
	return out
}

// openSessionEnd is where a session without a scheduled end stops counting:
// midnight after it started, in the club's zone when now carries one.
func openSessionEnd(started, now time.Time) time.Time {
	loc := started.Location()
	if !now.IsZero() {
		loc = now.Location()
	}
	_, end := interval.DayWindow(started.In(loc))
	return end
}
