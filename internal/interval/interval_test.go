package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(h, m int) time.Time {
	return time.Date(2025, 1, 1, h, m, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"disjoint", at(9, 0), at(10, 0), at(11, 0), at(12, 0), false},
		{"touching end to start", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"partial", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"contained", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"zero start", time.Time{}, at(10, 0), at(9, 0), at(11, 0), false},
		{"zero other end", at(9, 0), at(10, 0), at(9, 0), time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			// Symmetric for every pair.
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains(at(9, 0), at(10, 0), at(9, 0)))
	assert.True(t, Contains(at(9, 0), at(10, 0), at(9, 59)))
	assert.False(t, Contains(at(9, 0), at(10, 0), at(10, 0)))
	assert.False(t, Contains(at(9, 0), at(10, 0), at(8, 59)))
	assert.False(t, Contains(time.Time{}, at(10, 0), at(9, 30)))
}

func TestDayWindow_DST(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2025-03-09 is a 23h day in Chicago.
	start, end := DayWindow(time.Date(2025, 3, 9, 15, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), end)
	assert.Equal(t, 23*time.Hour, end.Sub(start))
}

func TestSameDayAndAfterDate(t *testing.T) {
	a := time.Date(2025, 1, 15, 23, 0, 0, 0, time.UTC)
	b := time.Date(2025, 1, 15, 1, 0, 0, 0, time.UTC)
	c := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, c))
	assert.False(t, SameDay(a, time.Time{}))

	assert.True(t, AfterDate(c, a))
	assert.False(t, AfterDate(a, b))
	assert.False(t, AfterDate(b, c))
}

func TestAfterDate_ReadsDateInItsOwnZone(t *testing.T) {
	chicago := time.FixedZone("CST", -6*3600)
	tokyo := time.FixedZone("JST", 9*3600)

	// 19:00 in Chicago on the 15th is already the 16th in Tokyo; the end
	// date "the 15th" must still include it.
	evening := time.Date(2025, 1, 15, 19, 0, 0, 0, chicago)
	endDate := time.Date(2025, 1, 15, 0, 0, 0, 0, tokyo)
	assert.False(t, AfterDate(evening, endDate))
	assert.True(t, AfterDate(evening.AddDate(0, 0, 1), endDate))
}
