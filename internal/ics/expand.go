package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"courtboard/internal/interval"
	appLog "courtboard/internal/log"
)

const defaultMaxPerEvent = 1000

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location is the zone instances are reported in. Nil means time.Local.
	Location *time.Location

	// Instances must overlap [RangeStart, RangeEnd).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxPerEvent caps the instances of one recurring event.
	MaxPerEvent int
}

// Instance is one concrete occurrence of a feed event.
type Instance struct {
	Event ParsedEvent
	Start time.Time
	End   time.Time
}

// ExpandResult lists the instances and the UIDs that hit MaxPerEvent.
type ExpandResult struct {
	Instances []Instance
	Truncated []string
}

// Expand turns parsed events into instances within the configured range,
// applying RRULE, EXDATE and RECURRENCE-ID overrides.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var res ExpandResult
	if !cfg.RangeStart.Before(cfg.RangeEnd) {
		return res, errors.New("expand: range end must be after range start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxPerEvent <= 0 {
		cfg.MaxPerEvent = defaultMaxPerEvent
	}

	var order []string
	base := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := base[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		base[ev.UID] = append(base[ev.UID], ev)
	}

	res.Instances = make([]Instance, 0, len(events))
	for _, uid := range order {
		truncated := false
		for _, ev := range base[uid] {
			inst, hitCap := expandEvent(ev, overrides[uid], cfg)
			truncated = truncated || hitCap
			res.Instances = append(res.Instances, inst...)
		}
		if truncated {
			res.Truncated = append(res.Truncated, uid)
			appLog.Warn("ics expansion truncated", "uid", uid, "cap", cfg.MaxPerEvent)
		}
	}
	return res, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Instance, bool) {
	if ev.RawRRule == "" {
		start, end, src := applyOverride(ev, overrides, ev.Start, ev.End)
		if !interval.Overlaps(start, end, cfg.RangeStart, cfg.RangeEnd) {
			return nil, false
		}
		return []Instance{newInstance(src, start, end, cfg.Location)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("ics rrule unreadable", "uid", ev.UID, "rrule", ev.RawRRule, "err", err)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	// Widen the lower bound by one duration so an instance already in
	// progress at RangeStart is kept.
	from := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	to := cfg.RangeEnd.In(ev.Start.Location())
	starts := set.Between(from, to, true)

	hitCap := false
	if len(starts) > cfg.MaxPerEvent {
		starts = starts[:cfg.MaxPerEvent]
		hitCap = true
	}

	out := make([]Instance, 0, len(starts))
	for _, s := range starts {
		e := s.Add(dur)
		if ev.AllDay {
			day := interval.StartOfDay(s)
			s, e = day, day.AddDate(0, 0, max(1, int(dur/(24*time.Hour))))
		}
		start, end, src := applyOverride(ev, overrides, s, e)
		if !interval.Overlaps(start, end, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, newInstance(src, start, end, cfg.Location))
	}
	return out, hitCap
}

// applyOverride swaps in the override whose RECURRENCE-ID equals start.
func applyOverride(ev ParsedEvent, overrides []ParsedEvent, start, end time.Time) (time.Time, time.Time, ParsedEvent) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov.Start, ov.End, ov
		}
	}
	return start, end, ev
}

func newInstance(ev ParsedEvent, start, end time.Time, loc *time.Location) Instance {
	return Instance{Event: ev, Start: start.In(loc), End: end.In(loc)}
}
