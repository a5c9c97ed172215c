// Package status derives a court's display status from wet-court markers,
// blocks and the active session.
//
// Resolution is an ordered list of rules; the first rule that matches
// decides the status. DefaultRules encodes the club's priority:
// wet, blocked, occupied/overtime, available.
package status

import (
	"strings"
	"time"

	"courtboard/internal/interval"
	"courtboard/internal/model"
)

// WetSet holds the court numbers currently marked wet. A nil set is empty.
type WetSet map[int]bool

// Has reports whether court n is marked wet.
func (w WetSet) Has(n int) bool {
	return w != nil && w[n]
}

// Context is everything outside the court itself that status depends on.
// Now is always supplied by the caller.
type Context struct {
	WetSet       WetSet
	Blocks       []model.Block
	SelectedDate time.Time
	Now          time.Time
}

// Input is what a Rule sees.
type Input struct {
	Court       model.Court
	CourtNumber int
	Context
}

// Rule is one step of the priority cascade. Match returns the resolved
// status and true when the rule applies.
type Rule struct {
	Name  string
	Match func(in Input) (model.CourtStatus, bool)
}

// Resolver evaluates rules in order.
type Resolver struct {
	rules []Rule
}

// NewResolver builds a Resolver from rules. With no rules it uses
// DefaultRules.
func NewResolver(rules ...Rule) *Resolver {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Resolver{rules: rules}
}

// Resolve returns the status of the first matching rule, or available.
func (r *Resolver) Resolve(court model.Court, courtNumber int, ctx Context) model.CourtStatus {
	in := Input{Court: court, CourtNumber: courtNumber, Context: ctx}
	for _, rule := range r.rules {
		if st, ok := rule.Match(in); ok {
			st.CourtNumber = courtNumber
			return st
		}
	}
	return model.CourtStatus{CourtNumber: courtNumber, Status: model.StatusAvailable}
}

// ResolveAll resolves every court in order. A court with Number 0 takes
// its 1-based position as its number.
func (r *Resolver) ResolveAll(courts []model.Court, ctx Context) []model.CourtStatus {
	out := make([]model.CourtStatus, 0, len(courts))
	for i, c := range courts {
		n := c.Number
		if n == 0 {
			n = i + 1
		}
		out = append(out, r.Resolve(c, n, ctx))
	}
	return out
}

var defaultResolver = NewResolver()

// Resolve resolves one court with DefaultRules.
func Resolve(court model.Court, courtNumber int, ctx Context) model.CourtStatus {
	return defaultResolver.Resolve(court, courtNumber, ctx)
}

// ResolveAll resolves courts with DefaultRules.
func ResolveAll(courts []model.Court, ctx Context) []model.CourtStatus {
	return defaultResolver.ResolveAll(courts, ctx)
}

// DefaultRules returns a fresh copy of the standard cascade.
func DefaultRules() []Rule {
	return []Rule{
		{Name: string(model.StatusWet), Match: matchWet},
		{Name: string(model.StatusBlocked), Match: matchBlocked},
		{Name: string(model.StatusOccupied), Match: matchSession},
		{Name: string(model.StatusAvailable), Match: matchAvailable},
	}
}

// matchWet: wet overrides everything, including an active session.
func matchWet(in Input) (model.CourtStatus, bool) {
	if b := in.Court.Block; b != nil && strings.Contains(strings.ToLower(b.Reason), "wet") {
		return model.CourtStatus{
			Status: model.StatusWet,
			Info:   model.StatusInfo{Reason: b.Reason, BlockID: b.ID, Start: b.StartTime, End: b.EndTime},
		}, true
	}
	if in.WetSet.Has(in.CourtNumber) {
		return model.CourtStatus{
			Status: model.StatusWet,
			Info:   model.StatusInfo{Reason: "Wet court"},
		}, true
	}
	return model.CourtStatus{}, false
}

// matchBlocked considers non-wet blocks that intersect the selected day.
// On today only blocks active at Now count; on any other day every
// intersecting block counts.
func matchBlocked(in Input) (model.CourtStatus, bool) {
	selected := in.SelectedDate
	if selected.IsZero() {
		selected = in.Now
	}
	if selected.IsZero() {
		return model.CourtStatus{}, false
	}
	dayStart, dayEnd := interval.DayWindow(selected)
	today := interval.SameDay(selected, in.Now)

	for _, b := range in.Blocks {
		if b.CourtNumber != in.CourtNumber || b.IsWetCourt || !b.Valid() {
			continue
		}
		if !interval.Overlaps(b.StartTime, b.EndTime, dayStart, dayEnd) {
			continue
		}
		if today && !interval.Contains(b.StartTime, b.EndTime, in.Now) {
			continue
		}
		return model.CourtStatus{
			Status: model.StatusBlocked,
			Info:   model.StatusInfo{Reason: b.Reason, BlockID: b.ID, Start: b.StartTime, End: b.EndTime},
		}, true
	}
	return model.CourtStatus{}, false
}

func matchSession(in Input) (model.CourtStatus, bool) {
	players := in.Court.Players
	if len(players) == 0 {
		players = in.Court.Session.ActivePlayers()
	}
	if len(players) == 0 {
		return model.CourtStatus{}, false
	}

	info := model.StatusInfo{Players: players, ScheduledEndAt: in.Court.ScheduledEndAt}
	if s := in.Court.Session; s != nil {
		info.StartedAt = s.StartedAt
		if !s.ScheduledEndAt.IsZero() {
			info.ScheduledEndAt = s.ScheduledEndAt
		}
	}

	kind := model.StatusOccupied
	if !info.ScheduledEndAt.IsZero() && !in.Now.IsZero() && in.Now.After(info.ScheduledEndAt) {
		kind = model.StatusOvertime
	}
	return model.CourtStatus{Status: kind, Info: info}, true
}

func matchAvailable(Input) (model.CourtStatus, bool) {
	return model.CourtStatus{Status: model.StatusAvailable}, true
}

// WetSetFromBlocks collects courts with a wet-court block active at now.
func WetSetFromBlocks(blocks []model.Block, now time.Time) WetSet {
	set := make(WetSet)
	for _, b := range blocks {
		if b.IsWetCourt && interval.Contains(b.StartTime, b.EndTime, now) {
			set[b.CourtNumber] = true
		}
	}
	return set
}

// Merge returns the union of w and others as a new set.
func (w WetSet) Merge(others ...WetSet) WetSet {
	out := make(WetSet, len(w))
	for n, ok := range w {
		if ok {
			out[n] = true
		}
	}
	for _, o := range others {
		for n, ok := range o {
			if ok {
				out[n] = true
			}
		}
	}
	return out
}
