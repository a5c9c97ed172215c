package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// timeLayouts are tried in order by ParseTimeIn. Layouts without a zone are
// interpreted in the supplied location.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimeIn parses an ISO-8601 style timestamp. Zone-less values are
// read in loc (time.Local when nil).
func ParseTimeIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// ParseTime is ParseTimeIn with time.Local.
func ParseTime(s string) (time.Time, error) {
	return ParseTimeIn(s, time.Local)
}

// lenientTime decodes a timestamp without ever failing the enclosing
// payload. Strings go through ParseTimeIn with loc (time.Local when nil),
// numbers are epoch milliseconds, anything else (or anything unparseable)
// leaves the zero time.
type lenientTime struct {
	t   time.Time
	loc *time.Location
}

func (l *lenientTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if t, err := ParseTimeIn(s, l.loc); err == nil {
			l.t = t
		}
		return nil
	}
	var ms json.Number
	if err := json.Unmarshal(data, &ms); err != nil {
		return nil
	}
	if n, err := ms.Int64(); err == nil && n > 0 {
		l.t = time.UnixMilli(n)
	}
	return nil
}

func (b *Block) UnmarshalJSON(data []byte) error {
	return b.decode(data, nil)
}

// UnmarshalBlockIn decodes a block, reading zone-less timestamps in loc.
func UnmarshalBlockIn(data []byte, loc *time.Location) (Block, error) {
	var b Block
	err := b.decode(data, loc)
	return b, err
}

func (b *Block) decode(data []byte, loc *time.Location) error {
	type alias Block
	aux := struct {
		*alias
		StartTime lenientTime `json:"startTime"`
		EndTime   lenientTime `json:"endTime"`
	}{
		alias:     (*alias)(b),
		StartTime: lenientTime{loc: loc},
		EndTime:   lenientTime{loc: loc},
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.StartTime = aux.StartTime.t
	b.EndTime = aux.EndTime.t
	return nil
}

func (s *Session) UnmarshalJSON(data []byte) error {
	return s.decode(data, nil)
}

// UnmarshalSessionIn decodes a session, reading zone-less timestamps in loc.
func UnmarshalSessionIn(data []byte, loc *time.Location) (Session, error) {
	var s Session
	err := s.decode(data, loc)
	return s, err
}

func (s *Session) decode(data []byte, loc *time.Location) error {
	type alias Session
	aux := struct {
		*alias
		StartedAt      lenientTime `json:"startedAt"`
		ScheduledEndAt lenientTime `json:"scheduledEndAt"`
	}{
		alias:          (*alias)(s),
		StartedAt:      lenientTime{loc: loc},
		ScheduledEndAt: lenientTime{loc: loc},
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.StartedAt = aux.StartedAt.t
	s.ScheduledEndAt = aux.ScheduledEndAt.t
	return nil
}

func (c *Court) UnmarshalJSON(data []byte) error {
	type alias Court
	aux := struct {
		*alias
		ScheduledEndAt lenientTime `json:"scheduledEndAt"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.ScheduledEndAt = aux.ScheduledEndAt.t
	return nil
}

func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	aux := struct {
		*alias
		StartTime lenientTime `json:"startTime"`
		EndTime   lenientTime `json:"endTime"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.StartTime = aux.StartTime.t
	e.EndTime = aux.EndTime.t
	return nil
}
