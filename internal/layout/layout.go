// Package layout places temporally overlapping calendar events into
// side-by-side columns.
//
// Events are grouped greedily by the bounding envelope of each group, and
// columns are assigned first-fit inside a group. Every event in a group
// reports the group's column count so a cluster renders at equal width.
package layout

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"courtboard/internal/interval"
	"courtboard/internal/model"
)

// Key returns the layout map key for e: its ID, or start time plus first
// court number when the event has no ID.
func Key(e model.Event) string {
	if e.ID != "" {
		return e.ID
	}
	court := 0
	if len(e.CourtNumbers) > 0 {
		court = e.CourtNumbers[0]
	}
	return fmt.Sprintf("%s-%d", e.StartTime.Format(time.RFC3339), court)
}

type group struct {
	start, end time.Time
	members    []model.Event
	columns    [][]model.Event
}

func (g *group) add(e model.Event) {
	if e.StartTime.Before(g.start) {
		g.start = e.StartTime
	}
	if e.EndTime.After(g.end) {
		g.end = e.EndTime
	}
	g.members = append(g.members, e)
}

// Compute returns the column placement of each event. Events with an
// unknown or empty time range are left out. The input slice is not
// modified.
func Compute(events []model.Event) map[string]model.LayoutInfo {
	sorted := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.StartTime.IsZero() || e.EndTime.IsZero() || !e.StartTime.Before(e.EndTime) {
			continue
		}
		sorted = append(sorted, e)
	}

	// Start ascending; on equal starts the longer event goes first so it
	// takes column 0.
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		da := a.EndTime.Sub(a.StartTime)
		db := b.EndTime.Sub(b.StartTime)
		switch {
		case da > db:
			return -1
		case da < db:
			return 1
		}
		return 0
	})

	var groups []*group
	for _, e := range sorted {
		placed := false
		for _, g := range groups {
			if interval.Overlaps(e.StartTime, e.EndTime, g.start, g.end) {
				g.add(e)
				placed = true
				break
			}
		}
		if !placed {
			g := &group{start: e.StartTime, end: e.EndTime}
			g.add(e)
			groups = append(groups, g)
		}
	}

	out := make(map[string]model.LayoutInfo, len(sorted))
	for _, g := range groups {
		assigned := make([]int, len(g.members))
		for i, e := range g.members {
			assigned[i] = g.place(e)
		}
		total := len(g.columns)
		for i, e := range g.members {
			out[Key(e)] = model.LayoutInfo{Column: assigned[i], TotalColumns: total}
		}
	}
	return out
}

// place puts e in the lowest column holding nothing that overlaps it.
func (g *group) place(e model.Event) int {
	for i, col := range g.columns {
		free := true
		for _, other := range col {
			if interval.Overlaps(e.StartTime, e.EndTime, other.StartTime, other.EndTime) {
				free = false
				break
			}
		}
		if free {
			g.columns[i] = append(col, e)
			return i
		}
	}
	g.columns = append(g.columns, []model.Event{e})
	return len(g.columns) - 1
}

// Window returns the events that overlap [from, to), preserving order.
func Window(events []model.Event, from, to time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if interval.Overlaps(e.StartTime, e.EndTime, from, to) {
			out = append(out, e)
		}
	}
	return out
}

// Placed pairs an event with its layout, for callers that render a list.
type Placed struct {
	model.Event
	model.LayoutInfo
}

// Arrange filters events to [from, to), lays them out and returns them in
// render order (start ascending, longer first). Events that cannot be laid
// out are dropped.
func Arrange(events []model.Event, from, to time.Time) []Placed {
	visible := Window(events, from, to)
	infos := Compute(visible)

	out := make([]Placed, 0, len(visible))
	for _, e := range visible {
		info, ok := infos[Key(e)]
		if !ok {
			continue
		}
		out = append(out, Placed{Event: e, LayoutInfo: info})
	}
	slices.SortStableFunc(out, func(a, b Placed) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(b.EndTime.Sub(b.StartTime), a.EndTime.Sub(a.StartTime))
	})
	return out
}
