package ics

import (
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"courtboard/internal/model"
)

// Encode writes blocks as a VCALENDAR. Each block is one VEVENT; recurring
// blocks are already materialized, so their rule travels only in
// X-COURTBOARD-RRULE and calendar clients do not expand them twice.
func Encode(w io.Writer, name string, blocks []model.Block, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//courtboard//court blocks//EN")
	if name != "" {
		cal.SetName(name)
	}

	for _, b := range blocks {
		if !b.Valid() {
			continue
		}
		ev := cal.AddEvent(b.ID + "@courtboard")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(b.StartTime)
		ev.SetEndAt(b.EndTime)
		ev.SetSummary(b.Reason)
		ev.SetLocation("Court " + strconv.Itoa(b.CourtNumber))
		ev.SetProperty(ical.ComponentProperty(propCourt), strconv.Itoa(b.CourtNumber))
		if b.IsWetCourt {
			ev.SetProperty(ical.ComponentProperty(propWet), "TRUE")
		}
		if b.Source != "" {
			ev.SetProperty(ical.ComponentProperty(propSource), b.Source)
		}
		if b.RecurrenceRule != "" {
			ev.SetProperty(ical.ComponentProperty(propRRule), b.RecurrenceRule)
		}
	}
	return cal.SerializeTo(w)
}
