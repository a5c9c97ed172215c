package model

import (
	"sort"
	"strconv"
	"time"
)

// Event kinds rendered on the calendar.
const (
	EventBlock   = "block"
	EventWet     = "wet"
	EventSession = "session"
)

// Event is a calendar item. One event may span several courts when the
// same block was created for more than one court.
type Event struct {
	ID           string    `json:"id,omitempty"`
	Title        string    `json:"title"`
	Kind         string    `json:"kind"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	CourtNumbers []int     `json:"courtNumbers"`
	Recurring    bool      `json:"recurring,omitempty"`
}

// EventsFromBlocks folds blocks that share reason and time range into one
// event listing every affected court. Blocks with unknown bounds are
// skipped. Output order follows the first appearance of each group.
func EventsFromBlocks(blocks []Block) []Event {
	type key struct {
		reason     string
		wet        bool
		start, end int64
	}
	index := make(map[key]int)
	events := make([]Event, 0, len(blocks))

	for _, b := range blocks {
		if !b.Valid() {
			continue
		}
		k := key{reason: b.Reason, wet: b.IsWetCourt, start: b.StartTime.UnixNano(), end: b.EndTime.UnixNano()}
		if i, ok := index[k]; ok {
			events[i].CourtNumbers = append(events[i].CourtNumbers, b.CourtNumber)
			continue
		}
		kind := EventBlock
		if b.IsWetCourt {
			kind = EventWet
		}
		index[k] = len(events)
		events = append(events, Event{
			ID:           b.ID,
			Title:        b.Reason,
			Kind:         kind,
			StartTime:    b.StartTime,
			EndTime:      b.EndTime,
			CourtNumbers: []int{b.CourtNumber},
			Recurring:    b.IsRecurring,
		})
	}

	for i := range events {
		sort.Ints(events[i].CourtNumbers)
	}
	return events
}

// EventsFromSessions turns active sessions into calendar events keyed by
// court. Sessions without a known start are skipped; a missing scheduled
// end is drawn up to now.
func EventsFromSessions(sessions []Session, now time.Time) []Event {
	events := make([]Event, 0, len(sessions))
	for _, s := range sessions {
		if s.StartedAt.IsZero() {
			continue
		}
		end := s.ScheduledEndAt
		if end.IsZero() {
			end = now
		}
		if !s.StartedAt.Before(end) {
			continue
		}
		title := "Play"
		if players := s.ActivePlayers(); len(players) > 0 {
			title = players[0].Name
			if len(players) > 1 {
				title += " +" + strconv.Itoa(len(players)-1)
			}
		}
		events = append(events, Event{
			Title:        title,
			Kind:         EventSession,
			StartTime:    s.StartedAt,
			EndTime:      end,
			CourtNumbers: []int{s.CourtNumber},
		})
	}
	return events
}
