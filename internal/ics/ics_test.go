package ics

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtboard/internal/config"
	"courtboard/internal/model"
	"courtboard/internal/store"
)

var sampleFeed = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//club//league//EN",
	"BEGIN:VEVENT",
	"UID:match-1",
	"DTSTAMP:20250601T000000Z",
	"DTSTART:20250602T140000Z",
	"DTEND:20250602T160000Z",
	"SUMMARY:League match",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:clinic",
	"DTSTAMP:20250601T000000Z",
	"DTSTART:20250603T170000Z",
	"DTEND:20250603T180000Z",
	"RRULE:FREQ=WEEKLY;COUNT=4",
	"EXDATE:20250610T170000Z",
	"SUMMARY:Junior clinic",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:clinic",
	"DTSTAMP:20250601T000000Z",
	"RECURRENCE-ID:20250617T170000Z",
	"DTSTART:20250617T190000Z",
	"DTEND:20250617T200000Z",
	"SUMMARY:Junior clinic (moved)",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:rain-1",
	"DTSTAMP:20250601T000000Z",
	"DTSTART:20250605T120000Z",
	"DTEND:20250605T150000Z",
	"SUMMARY:Courts wet - rain",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTART:20250605T120000Z",
	"SUMMARY:no uid",
	"END:VEVENT",
	"END:VCALENDAR",
	"",
}, "\r\n")

func utc(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestParseICS(t *testing.T) {
	events, err := ParseICS(Source{ID: "league"}, []byte(sampleFeed), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, "match-1", events[0].UID)
	assert.Equal(t, utc(2025, 6, 2, 14), events[0].Start)
	assert.Equal(t, utc(2025, 6, 2, 16), events[0].End)

	clinic := events[1]
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", clinic.RawRRule)
	require.Len(t, clinic.ExDates, 1)
	assert.Equal(t, utc(2025, 6, 10, 17), clinic.ExDates[0])

	assert.True(t, events[2].IsOverride)
	require.NotNil(t, events[2].Recurrence)
	assert.Equal(t, utc(2025, 6, 17, 17), *events[2].Recurrence)
}

func TestParseICS_Empty(t *testing.T) {
	_, err := ParseICS(Source{ID: "x"}, nil, time.UTC)
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	events, err := ParseICS(Source{ID: "league"}, []byte(sampleFeed), time.UTC)
	require.NoError(t, err)

	res, err := Expand(events, ExpandConfig{
		Location:   time.UTC,
		RangeStart: utc(2025, 6, 1, 0),
		RangeEnd:   utc(2025, 7, 1, 0),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Truncated)

	var got []string
	for _, inst := range res.Instances {
		got = append(got, inst.Event.Summary+"@"+inst.Start.Format("01-02T15"))
	}
	assert.Equal(t, []string{
		"League match@06-02T14",
		"Junior clinic@06-03T17",
		"Junior clinic (moved)@06-17T19",
		"Junior clinic@06-24T17",
		"Courts wet - rain@06-05T12",
	}, got)
}

func TestExpand_RangeAndCap(t *testing.T) {
	events, err := ParseICS(Source{ID: "league"}, []byte(sampleFeed), time.UTC)
	require.NoError(t, err)

	res, err := Expand(events, ExpandConfig{
		Location:    time.UTC,
		RangeStart:  utc(2025, 6, 2, 15), // inside the league match
		RangeEnd:    utc(2025, 6, 4, 0),
		MaxPerEvent: 1,
	})
	require.NoError(t, err)
	require.Len(t, res.Instances, 2)
	assert.Equal(t, "League match", res.Instances[0].Event.Summary)
	assert.Equal(t, "Junior clinic", res.Instances[1].Event.Summary)

	_, err = Expand(events, ExpandConfig{RangeStart: utc(2025, 6, 2, 0), RangeEnd: utc(2025, 6, 1, 0)})
	assert.Error(t, err)
}

func TestToBlocks(t *testing.T) {
	start := utc(2025, 6, 5, 12)
	instances := []Instance{
		{Event: ParsedEvent{UID: "a", Summary: "Courts WET"}, Start: start, End: start.Add(time.Hour)},
		{Event: ParsedEvent{UID: "b", Summary: "", RawRRule: "FREQ=DAILY;COUNT=2"}, Start: start, End: start.Add(time.Hour)},
		{Event: ParsedEvent{UID: "c", Summary: "Exported", Court: 3}, Start: start, End: start.Add(time.Hour)},
	}
	opts := BlockOptions{
		Feed:        config.FeedConfig{ID: "league", Name: "League", Courts: []int{1, 2}},
		CourtCount:  4,
		WetKeywords: []string{"wet"},
	}

	blocks := ToBlocks(instances, opts)
	require.Len(t, blocks, 5)

	assert.True(t, blocks[0].IsWetCourt)
	assert.Equal(t, []int{1, 2}, []int{blocks[0].CourtNumber, blocks[1].CourtNumber})
	assert.Equal(t, "League", blocks[2].Reason)
	assert.True(t, blocks[2].IsRecurring)
	assert.Equal(t, 3, blocks[4].CourtNumber)
	for _, b := range blocks {
		assert.Equal(t, "league", b.Source)
	}

	again := ToBlocks(instances, opts)
	assert.Equal(t, blocks[0].ID, again[0].ID, "IDs are stable across refreshes")
	assert.NotEqual(t, blocks[0].ID, blocks[1].ID)

	opts.Feed.Courts = nil
	assert.Len(t, ToBlocks(instances[:1], opts), 4)
}

func TestFetcher_CacheAndFallback(t *testing.T) {
	var mode atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch mode.Load() {
		case 0:
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte(sampleFeed))
		case 1:
			if r.Header.Get("If-None-Match") == `"v1"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "league", URL: srv.URL + "/private/token.ics"}
	ctx := context.Background()

	res, err := f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, sampleFeed, string(res.Body))

	mode.Store(1)
	res, err = f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, sampleFeed, string(res.Body))

	mode.Store(2)
	res, err = f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	fresh := NewFetcher(t.TempDir(), srv.Client())
	results, err := fresh.FetchAll(ctx, []Source{src, {ID: "blank"}})
	assert.Error(t, err)
	assert.Empty(t, results)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/...(redacted)", redactURL("https://cal.example.com/feed/secret.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}

func TestSyncer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Courts = 4
	cfg.Feeds = []config.FeedConfig{{ID: "league", URL: srv.URL, Courts: []int{1, 2}}}

	board := store.NewBoard(4)
	_, err := board.AddBlocks(model.Block{CourtNumber: 3, StartTime: utc(2025, 6, 2, 9), EndTime: utc(2025, 6, 2, 10), Reason: "Lesson"})
	require.NoError(t, err)

	s := NewSyncer(cfg, NewFetcher(t.TempDir(), srv.Client()), board)
	s.now = func() time.Time { return utc(2025, 6, 2, 8) }

	require.NoError(t, s.Sync(context.Background()))
	require.NoError(t, s.Sync(context.Background()))

	var feedBlocks, wet int
	for _, b := range board.Blocks() {
		if b.Source == "league" {
			feedBlocks++
			if b.IsWetCourt {
				wet++
			}
		}
	}
	assert.Equal(t, 10, feedBlocks, "second sync replaces rather than duplicates")
	assert.Equal(t, 2, wet)
	assert.Len(t, board.Blocks(), 11)
}

func TestEncodeRoundTrip(t *testing.T) {
	blocks := []model.Block{
		{ID: "b1", CourtNumber: 2, StartTime: utc(2025, 6, 2, 9), EndTime: utc(2025, 6, 2, 10), Reason: "Lesson", Source: model.SourceAdmin},
		{ID: "b2", CourtNumber: 5, StartTime: utc(2025, 6, 2, 11), EndTime: utc(2025, 6, 2, 13), Reason: "Drying", IsWetCourt: true, RecurrenceRule: "FREQ=DAILY;COUNT=2"},
		{ID: "broken", CourtNumber: 1, Reason: "no times"},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "Court blocks", blocks, utc(2025, 6, 1, 0)))
	out := buf.String()
	assert.Contains(t, out, "X-WR-CALNAME:Court blocks")
	assert.NotContains(t, out, "RRULE:")
	assert.Contains(t, out, "X-COURTBOARD-RRULE")

	events, err := ParseICS(Source{ID: "self"}, buf.Bytes(), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "b1@courtboard", events[0].UID)
	assert.Equal(t, 2, events[0].Court)
	assert.False(t, events[0].Wet)
	assert.Equal(t, utc(2025, 6, 2, 9), events[0].Start)
	assert.Equal(t, 5, events[1].Court)
	assert.True(t, events[1].Wet)
	assert.Empty(t, events[1].RawRRule)
}
