package recurrence

import (
	"time"

	"github.com/google/uuid"

	"courtboard/internal/model"
)

// Materialize turns occurrences into concrete blocks shaped like template.
// Each block keeps the template's wall-clock start and end on its
// occurrence date; an end at or before the start moves to the next day.
// Blocks get fresh IDs, and when the rule encodes cleanly they carry its
// RRULE.
func Materialize(template model.Block, occurrences []model.Occurrence, spec *Spec) []model.Block {
	if len(occurrences) == 0 {
		return []model.Block{}
	}

	var rule string
	if spec != nil {
		if r, err := spec.RRule(occurrences[0].Date); err == nil {
			rule = r
		}
	}
	source := template.Source
	if source == "" {
		source = model.SourceAdmin
	}

	out := make([]model.Block, 0, len(occurrences))
	for _, occ := range occurrences {
		start, end := onDate(occ.Date, template.StartTime, template.EndTime)
		out = append(out, model.Block{
			ID:             uuid.NewString(),
			CourtNumber:    template.CourtNumber,
			StartTime:      start,
			EndTime:        end,
			Reason:         template.Reason,
			IsWetCourt:     template.IsWetCourt,
			IsRecurring:    len(occurrences) > 1,
			RecurrenceRule: rule,
			Source:         source,
		})
	}
	return out
}

// MaterializeCourts materializes the template once per court, court-major.
func MaterializeCourts(template model.Block, courts []int, occurrences []model.Occurrence, spec *Spec) []model.Block {
	out := make([]model.Block, 0, len(courts)*len(occurrences))
	for _, c := range courts {
		t := template
		t.CourtNumber = c
		out = append(out, Materialize(t, occurrences, spec)...)
	}
	return out
}

func onDate(date, startClock, endClock time.Time) (time.Time, time.Time) {
	loc := date.Location()
	y, m, d := date.Date()
	sc := startClock.In(loc)
	ec := endClock.In(loc)

	// Whole calendar days between the template's start and end, so a
	// multi-day template stays multi-day.
	sy, sm, sd := sc.Date()
	ey, em, ed := ec.Date()
	days := int(time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).Sub(time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)) / (24 * time.Hour))
	days = max(days, 0)

	start := time.Date(y, m, d, sc.Hour(), sc.Minute(), sc.Second(), 0, loc)
	end := time.Date(y, m, d+days, ec.Hour(), ec.Minute(), ec.Second(), 0, loc)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}
