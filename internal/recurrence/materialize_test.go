package recurrence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtboard/internal/model"
)

func TestMaterialize(t *testing.T) {
	anchor := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	template := model.Block{
		CourtNumber: 4,
		StartTime:   time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 1, 6, 19, 30, 0, 0, time.UTC),
		Reason:      "Junior clinic",
	}
	spec := &Spec{Pattern: Weekly, Frequency: 1, EndType: EndAfter, Occurrences: 3}

	blocks := Materialize(template, Expand(anchor, spec), spec)
	require.Len(t, blocks, 3)

	seen := map[string]bool{}
	for i, b := range blocks {
		_, err := uuid.Parse(b.ID)
		assert.NoError(t, err)
		assert.False(t, seen[b.ID], "IDs must be unique")
		seen[b.ID] = true

		day := anchor.AddDate(0, 0, 7*i)
		assert.Equal(t, day.Add(18*time.Hour), b.StartTime)
		assert.Equal(t, day.Add(19*time.Hour+30*time.Minute), b.EndTime)
		assert.Equal(t, 4, b.CourtNumber)
		assert.Equal(t, "Junior clinic", b.Reason)
		assert.True(t, b.IsRecurring)
		assert.Contains(t, b.RecurrenceRule, "FREQ=WEEKLY")
		assert.Equal(t, model.SourceAdmin, b.Source)
		assert.NoError(t, b.Validate())
	}
}

func TestMaterialize_SpansMidnight(t *testing.T) {
	template := model.Block{
		CourtNumber: 1,
		StartTime:   time.Date(2025, 1, 1, 22, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 1, 2, 2, 0, 0, 0, time.UTC),
		Reason:      "Resurfacing",
	}
	occ := []model.Occurrence{{Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)}}

	blocks := Materialize(template, occ, nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, time.Date(2025, 2, 10, 22, 0, 0, 0, time.UTC), blocks[0].StartTime)
	assert.Equal(t, time.Date(2025, 2, 11, 2, 0, 0, 0, time.UTC), blocks[0].EndTime)
	assert.False(t, blocks[0].IsRecurring)
	assert.Empty(t, blocks[0].RecurrenceRule)
}

func TestMaterialize_KeepsMultiDaySpan(t *testing.T) {
	template := model.Block{
		CourtNumber: 2,
		StartTime:   time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 1, 3, 17, 0, 0, 0, time.UTC),
		Reason:      "Resurfacing",
	}
	occ := []model.Occurrence{{Date: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}}

	blocks := Materialize(template, occ, nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, template.StartTime, blocks[0].StartTime)
	assert.Equal(t, template.EndTime, blocks[0].EndTime)
}

func TestMaterializeCourts(t *testing.T) {
	template := model.Block{
		StartTime: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		Reason:    "League",
		Source:    "league-feed",
	}
	spec := &Spec{Pattern: Daily, Frequency: 1, EndType: EndAfter, Occurrences: 2}
	occ := Expand(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), spec)

	blocks := MaterializeCourts(template, []int{3, 5}, occ, spec)
	require.Len(t, blocks, 4)
	assert.Equal(t, []int{3, 3, 5, 5}, []int{blocks[0].CourtNumber, blocks[1].CourtNumber, blocks[2].CourtNumber, blocks[3].CourtNumber})
	assert.Equal(t, "league-feed", blocks[0].Source)

	assert.Empty(t, Materialize(template, nil, spec))
}
