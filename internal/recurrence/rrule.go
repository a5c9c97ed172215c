package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrUnbounded is returned by ParseRRule for a rule with neither COUNT nor
// UNTIL; court blocks always need an end.
var ErrUnbounded = errors.New("rrule has neither COUNT nor UNTIL")

var patternFreq = map[Pattern]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
}

// ROption converts s to an rrule-go option anchored at dtstart. An
// EndOnDate rule becomes UNTIL at the last second of EndDate's day in
// dtstart's location.
func (s *Spec) ROption(dtstart time.Time) (rrule.ROption, error) {
	if err := s.Validate(); err != nil {
		return rrule.ROption{}, err
	}
	opt := rrule.ROption{
		Freq:     patternFreq[s.Pattern],
		Interval: s.Frequency,
		Dtstart:  dtstart,
	}
	switch s.EndType {
	case EndAfter:
		opt.Count = s.Occurrences
	case EndOnDate:
		y, m, d := s.EndDate.Date()
		opt.Until = time.Date(y, m, d, 23, 59, 59, 0, dtstart.Location())
	}
	return opt, nil
}

// RRule encodes s as an RFC 5545 RRULE value (without DTSTART),
// suitable for model.Block.RecurrenceRule.
func (s *Spec) RRule(dtstart time.Time) (string, error) {
	opt, err := s.ROption(dtstart)
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// ParseRRule decodes a RRULE value produced by RRule (or an equivalent
// DAILY/WEEKLY/MONTHLY rule from a calendar client) back into a Spec.
// BY* parts are not representable and are ignored. UNTIL is converted to
// loc (time.Local when nil) so the end date lands on the club's calendar day.
func ParseRRule(value string, loc *time.Location) (*Spec, error) {
	if loc == nil {
		loc = time.Local
	}
	value = strings.TrimPrefix(strings.TrimSpace(value), "RRULE:")
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return nil, fmt.Errorf("parse rrule: %w", err)
	}

	spec := &Spec{Frequency: opt.Interval}
	if spec.Frequency == 0 {
		spec.Frequency = 1
	}

	switch opt.Freq {
	case rrule.DAILY:
		spec.Pattern = Daily
	case rrule.WEEKLY:
		spec.Pattern = Weekly
	case rrule.MONTHLY:
		spec.Pattern = Monthly
	default:
		return nil, fmt.Errorf("parse rrule: frequency %v: %w", opt.Freq, ErrInvalidPattern)
	}

	switch {
	case opt.Count > 0:
		spec.EndType = EndAfter
		spec.Occurrences = opt.Count
	case !opt.Until.IsZero():
		spec.EndType = EndOnDate
		spec.EndDate = opt.Until.In(loc)
	default:
		return nil, ErrUnbounded
	}
	return spec, nil
}
