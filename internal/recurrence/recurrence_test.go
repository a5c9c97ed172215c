package recurrence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"courtboard/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dates(occ []model.Occurrence) []string {
	out := make([]string, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.Date.Format("2006-01-02"))
	}
	return out
}

func TestExpand_NilSpec(t *testing.T) {
	anchor := date(2025, 1, 1)
	got := Expand(anchor, nil)
	require.Len(t, got, 1)
	assert.Equal(t, anchor, got[0].Date)
}

func TestExpand_ZeroAnchor(t *testing.T) {
	assert.Empty(t, Expand(time.Time{}, nil))
	assert.Empty(t, Expand(time.Time{}, &Spec{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: 3}))
}

func TestExpand_DailySeven(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	got := Expand(anchor, &Spec{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: 7})

	require.Len(t, got, 7)
	assert.Equal(t, anchor, got[0].Date)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].Date.AddDate(0, 0, 1), got[i].Date)
	}
}

func TestExpand_Patterns(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		spec   Spec
		want   []string
	}{
		{
			name:   "weekly until inclusive end date",
			anchor: date(2025, 1, 1),
			spec:   Spec{Pattern: Weekly, Frequency: 1, EndType: EndOnDate, EndDate: date(2025, 1, 15)},
			want:   []string{"2025-01-01", "2025-01-08", "2025-01-15"},
		},
		{
			name:   "weekly anchor with time of day keeps end day inclusive",
			anchor: time.Date(2025, 1, 1, 18, 30, 0, 0, time.UTC),
			spec:   Spec{Pattern: Weekly, Frequency: 1, EndType: EndOnDate, EndDate: date(2025, 1, 15)},
			want:   []string{"2025-01-01", "2025-01-08", "2025-01-15"},
		},
		{
			name:   "every other day",
			anchor: date(2025, 1, 30),
			spec:   Spec{Pattern: Daily, Frequency: 2, EndType: EndAfter, Occurrences: 3},
			want:   []string{"2025-01-30", "2025-02-01", "2025-02-03"},
		},
		{
			name:   "biweekly",
			anchor: date(2025, 1, 1),
			spec:   Spec{Pattern: Weekly, Frequency: 2, EndType: EndAfter, Occurrences: 3},
			want:   []string{"2025-01-01", "2025-01-15", "2025-01-29"},
		},
		{
			name:   "monthly calendar arithmetic overflows",
			anchor: date(2025, 1, 31),
			spec:   Spec{Pattern: Monthly, Frequency: 1, EndType: EndAfter, Occurrences: 3},
			want:   []string{"2025-01-31", "2025-03-03", "2025-04-03"},
		},
		{
			name:   "quarterly until date",
			anchor: date(2025, 1, 15),
			spec:   Spec{Pattern: Monthly, Frequency: 3, EndType: EndOnDate, EndDate: date(2025, 12, 31)},
			want:   []string{"2025-01-15", "2025-04-15", "2025-07-15", "2025-10-15"},
		},
		{
			name:   "end date before anchor still emits anchor",
			anchor: date(2025, 1, 15),
			spec:   Spec{Pattern: Daily, Frequency: 1, EndType: EndOnDate, EndDate: date(2025, 1, 1)},
			want:   []string{"2025-01-15"},
		},
		{
			name:   "zero occurrences still emits anchor",
			anchor: date(2025, 1, 15),
			spec:   Spec{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: 0},
			want:   []string{"2025-01-15"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := tt.spec
			assert.Equal(t, tt.want, dates(Expand(tt.anchor, &spec)))
		})
	}
}

func TestExpand_SafetyCap(t *testing.T) {
	anchor := date(2025, 1, 1)
	specs := []Spec{
		{Pattern: Daily, Frequency: 0, EndType: EndOnDate, EndDate: date(2030, 1, 1)},
		{Pattern: Daily, Frequency: -3, EndType: EndOnDate, EndDate: date(2030, 1, 1)},
		{Pattern: Daily, Frequency: 1, EndType: EndOnDate, EndDate: date(2999, 1, 1)},
		{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: 10000},
		{Pattern: "hourly", Frequency: 1, EndType: EndAfter, Occurrences: 10000},
		{Pattern: Weekly, Frequency: 1, EndType: "never"},
		{},
	}

	for _, spec := range specs {
		got := Expand(anchor, &spec)
		assert.LessOrEqual(t, len(got), MaxOccurrences, "spec %+v", spec)
		assert.NotEmpty(t, got)
	}

	far := Spec{Pattern: Daily, Frequency: 1, EndType: EndOnDate, EndDate: date(2999, 1, 1)}
	assert.Len(t, Expand(anchor, &far), MaxOccurrences)
	assert.True(t, Truncated(anchor, &far))

	exact := Spec{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: MaxOccurrences}
	assert.Len(t, Expand(anchor, &exact), MaxOccurrences)
	assert.False(t, Truncated(anchor, &exact))

	short := Spec{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: 5}
	assert.False(t, Truncated(anchor, &short))
}

func TestExpand_AgreesWithRRuleForDailyAndWeekly(t *testing.T) {
	anchor := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	specs := []Spec{
		{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: 10},
		{Pattern: Daily, Frequency: 3, EndType: EndOnDate, EndDate: date(2025, 4, 2)},
		{Pattern: Weekly, Frequency: 2, EndType: EndOnDate, EndDate: date(2025, 6, 30)},
	}

	for _, spec := range specs {
		opt, err := spec.ROption(anchor)
		require.NoError(t, err)
		r, err := rrule.NewRRule(opt)
		require.NoError(t, err)

		want := make([]string, 0)
		for _, d := range r.All() {
			want = append(want, d.Format("2006-01-02"))
		}
		assert.Equal(t, want, dates(Expand(anchor, &spec)), "spec %+v", spec)
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want error
	}{
		{"valid after", Spec{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: 3}, nil},
		{"valid date", Spec{Pattern: Monthly, Frequency: 2, EndType: EndOnDate, EndDate: date(2025, 6, 1)}, nil},
		{"bad pattern", Spec{Pattern: "yearly", Frequency: 1, EndType: EndAfter, Occurrences: 3}, ErrInvalidPattern},
		{"zero frequency", Spec{Pattern: Daily, Frequency: 0, EndType: EndAfter, Occurrences: 3}, ErrInvalidFrequency},
		{"negative frequency", Spec{Pattern: Daily, Frequency: -1, EndType: EndAfter, Occurrences: 3}, ErrInvalidFrequency},
		{"bad end type", Spec{Pattern: Daily, Frequency: 1, EndType: "never"}, ErrInvalidEndType},
		{"missing occurrences", Spec{Pattern: Daily, Frequency: 1, EndType: EndAfter}, ErrMissingOccurrences},
		{"missing end date", Spec{Pattern: Daily, Frequency: 1, EndType: EndOnDate}, ErrMissingEndDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	spec := Spec{Pattern: Daily, Frequency: 1, EndType: EndOnDate, EndDate: date(2025, 1, 1)}
	assert.ErrorIs(t, spec.ValidateFrom(date(2025, 1, 2)), ErrEndBeforeStart)
	assert.NoError(t, spec.ValidateFrom(time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)))
}

func TestEndDate_IsACalendarDate(t *testing.T) {
	club := time.FixedZone("CST", -6*3600)
	server := time.FixedZone("JST", 9*3600)

	// The end date was read in a zone where the anchor's evening already
	// falls on the next day. Only the written date counts.
	spec := Spec{Pattern: Weekly, Frequency: 1, EndType: EndOnDate, EndDate: time.Date(2025, 1, 15, 0, 0, 0, 0, server)}
	anchor := time.Date(2025, 1, 1, 18, 30, 0, 0, club)

	require.NoError(t, spec.ValidateFrom(anchor))
	occ := Expand(anchor, &spec)
	require.Len(t, occ, 3)
	assert.Equal(t, time.Date(2025, 1, 15, 18, 30, 0, 0, club), occ[2].Date)
	assert.False(t, Truncated(anchor, &spec))

	rule, err := spec.RRule(anchor)
	require.NoError(t, err)
	assert.Contains(t, rule, "UNTIL=20250116T055959Z")

	sameDay := Spec{Pattern: Daily, Frequency: 1, EndType: EndOnDate, EndDate: time.Date(2025, 1, 15, 0, 0, 0, 0, server)}
	evening := time.Date(2025, 1, 15, 19, 0, 0, 0, club)
	require.NoError(t, sameDay.ValidateFrom(evening))
	assert.Len(t, Expand(evening, &sameDay), 1)
}

func TestSpecUnmarshalJSON(t *testing.T) {
	var spec Spec
	require.NoError(t, json.Unmarshal([]byte(`{"pattern":"Weekly","frequency":1,"endType":"DATE","endDate":"2025-01-15"}`), &spec))

	assert.Equal(t, Weekly, spec.Pattern)
	assert.Equal(t, EndOnDate, spec.EndType)
	assert.Equal(t, 2025, spec.EndDate.Year())
	assert.Equal(t, time.January, spec.EndDate.Month())
	assert.Equal(t, 15, spec.EndDate.Day())

	var bad Spec
	require.NoError(t, json.Unmarshal([]byte(`{"pattern":"daily","frequency":1,"endType":"date","endDate":"someday"}`), &bad))
	assert.True(t, bad.EndDate.IsZero())
	assert.ErrorIs(t, bad.Validate(), ErrMissingEndDate)
}

func TestRRuleRoundTrip(t *testing.T) {
	loc := time.FixedZone("club", -5*3600)
	anchor := time.Date(2025, 1, 1, 18, 0, 0, 0, loc)

	specs := []Spec{
		{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: 7},
		{Pattern: Weekly, Frequency: 2, EndType: EndOnDate, EndDate: time.Date(2025, 3, 1, 0, 0, 0, 0, loc)},
		{Pattern: Monthly, Frequency: 1, EndType: EndAfter, Occurrences: 12},
	}

	for _, spec := range specs {
		s, err := spec.RRule(anchor)
		require.NoError(t, err)
		assert.Contains(t, s, "FREQ=")

		back, err := ParseRRule(s, loc)
		require.NoError(t, err, s)
		assert.Equal(t, spec.Pattern, back.Pattern, s)
		assert.Equal(t, spec.Frequency, back.Frequency, s)
		assert.Equal(t, spec.EndType, back.EndType, s)
		assert.Equal(t, spec.Occurrences, back.Occurrences, s)
		if spec.EndType == EndOnDate {
			assert.Equal(t, dates(Expand(anchor, &spec)), dates(Expand(anchor, back)), s)
		}
	}
}

func TestParseRRule_Errors(t *testing.T) {
	_, err := ParseRRule("FREQ=DAILY", time.UTC)
	assert.ErrorIs(t, err, ErrUnbounded)

	_, err = ParseRRule("FREQ=YEARLY;COUNT=2", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = ParseRRule("not a rule", time.UTC)
	assert.Error(t, err)

	spec, err := ParseRRule("RRULE:FREQ=WEEKLY;COUNT=4", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, spec.Frequency)
	assert.Equal(t, 4, spec.Occurrences)
}

func TestSpecRRule_Invalid(t *testing.T) {
	spec := Spec{Pattern: Daily, Frequency: 0, EndType: EndAfter, Occurrences: 2}
	_, err := spec.RRule(date(2025, 1, 1))
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}
