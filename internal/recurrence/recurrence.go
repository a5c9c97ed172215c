// Package recurrence expands a recurring-block rule into concrete dates and
// materializes those dates into court blocks.
package recurrence

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"courtboard/internal/interval"
	"courtboard/internal/model"
)

// MaxOccurrences caps every expansion regardless of the rule.
const MaxOccurrences = 365

// Pattern is the unit a rule advances by.
type Pattern string

const (
	Daily   Pattern = "daily"
	Weekly  Pattern = "weekly"
	Monthly Pattern = "monthly"
)

// EndType selects how a rule terminates.
type EndType string

const (
	EndAfter  EndType = "after"
	EndOnDate EndType = "date"
)

var (
	ErrInvalidPattern     = errors.New("pattern must be daily, weekly or monthly")
	ErrInvalidFrequency   = errors.New("frequency must be a positive integer")
	ErrInvalidEndType     = errors.New("end type must be after or date")
	ErrMissingOccurrences = errors.New("occurrences must be positive when ending after a count")
	ErrMissingEndDate     = errors.New("end date is required when ending on a date")
	ErrEndBeforeStart     = errors.New("end date is before the first occurrence")
)

// Spec describes a recurrence. Frequency is the number of Pattern units
// between occurrences. EndDate is a calendar date: only its year, month and
// day are used, and they are matched against each occurrence's day in the
// anchor's location.
type Spec struct {
	Pattern     Pattern   `json:"pattern"`
	Frequency   int       `json:"frequency"`
	EndType     EndType   `json:"endType"`
	Occurrences int       `json:"occurrences,omitempty"`
	EndDate     time.Time `json:"endDate,omitzero"`
}

// UnmarshalJSON accepts endDate as any timestamp model.ParseTime reads,
// including a bare date. The date is kept as written, so the zone it is
// parsed in does not shift it. An unreadable endDate is left zero.
func (s *Spec) UnmarshalJSON(data []byte) error {
	type alias Spec
	aux := struct {
		*alias
		EndDate *string `json:"endDate"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Pattern = Pattern(strings.ToLower(strings.TrimSpace(string(s.Pattern))))
	s.EndType = EndType(strings.ToLower(strings.TrimSpace(string(s.EndType))))
	s.EndDate = time.Time{}
	if aux.EndDate != nil {
		if t, err := model.ParseTime(*aux.EndDate); err == nil {
			s.EndDate = t
		}
	}
	return nil
}

// Validate rejects rules that Expand would only terminate through the cap.
func (s *Spec) Validate() error {
	switch s.Pattern {
	case Daily, Weekly, Monthly:
	default:
		return ErrInvalidPattern
	}
	if s.Frequency <= 0 {
		return ErrInvalidFrequency
	}
	switch s.EndType {
	case EndAfter:
		if s.Occurrences <= 0 {
			return ErrMissingOccurrences
		}
	case EndOnDate:
		if s.EndDate.IsZero() {
			return ErrMissingEndDate
		}
	default:
		return ErrInvalidEndType
	}
	return nil
}

// ValidateFrom is Validate plus a check that an end date does not fall
// before the anchor's calendar day.
func (s *Spec) ValidateFrom(anchor time.Time) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.EndType == EndOnDate && interval.AfterDate(anchor, s.EndDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// advance moves t forward by one step. Months use calendar arithmetic, so
// Jan 31 + 1 month normalizes into March.
func (s *Spec) advance(t time.Time) time.Time {
	switch s.Pattern {
	case Daily:
		return t.AddDate(0, 0, s.Frequency)
	case Weekly:
		return t.AddDate(0, 0, 7*s.Frequency)
	case Monthly:
		return t.AddDate(0, s.Frequency, 0)
	}
	return t
}

// Expand emits anchor, then every Frequency-th Pattern step after it, until
// the end condition holds or MaxOccurrences dates have been emitted. A nil
// spec yields the anchor alone. An EndOnDate rule includes its EndDate's
// calendar day. A zero anchor yields nothing.
func Expand(anchor time.Time, spec *Spec) []model.Occurrence {
	if anchor.IsZero() {
		return []model.Occurrence{}
	}
	if spec == nil {
		return []model.Occurrence{{Date: anchor}}
	}

	out := make([]model.Occurrence, 0, 8)
	current := anchor
	for {
		out = append(out, model.Occurrence{Date: current})
		if spec.EndType == EndAfter && len(out) >= spec.Occurrences {
			break
		}
		current = spec.advance(current)
		if spec.EndType == EndOnDate && interval.AfterDate(current, spec.EndDate) {
			break
		}
		if len(out) >= MaxOccurrences {
			break
		}
	}
	return out
}

// Truncated reports whether an expansion stopped on the cap rather than on
// its own end condition.
func Truncated(anchor time.Time, spec *Spec) bool {
	if spec == nil || anchor.IsZero() {
		return false
	}
	occ := Expand(anchor, spec)
	if len(occ) < MaxOccurrences {
		return false
	}
	switch spec.EndType {
	case EndAfter:
		return spec.Occurrences > MaxOccurrences
	case EndOnDate:
		return !interval.AfterDate(spec.advance(occ[len(occ)-1].Date), spec.EndDate)
	}
	return true
}
