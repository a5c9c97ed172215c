package model

import (
	"errors"
	"time"
)

// ErrInvalidRange is returned when a time range is missing a bound or does
// not satisfy start < end.
var ErrInvalidRange = errors.New("start time must be before end time")

// Source values for Block.Source. Feed-derived blocks use the feed ID.
const (
	SourceAdmin = "admin"
)

// Player is a member (or guest) registered on a court.
type Player struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	MemberNumber string `json:"memberNumber,omitempty"`
	IsGuest      bool   `json:"isGuest,omitempty"`
}

// Block is an admin-created window during which a court is unavailable
// for normal play (maintenance, lesson, wet conditions, event).
//
// A zero StartTime or EndTime means the value was missing or malformed on
// input; such a block never matches anything.
type Block struct {
	ID          string    `json:"id"`
	CourtNumber int       `json:"courtNumber"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Reason      string    `json:"reason"`
	IsWetCourt  bool      `json:"isWetCourt"`
	IsRecurring bool      `json:"isRecurring"`

	// RecurrenceRule is the RFC 5545 RRULE the block was materialized from.
	RecurrenceRule string `json:"recurrenceRule,omitempty"`

	// Source is SourceAdmin for console-created blocks, or the ICS feed ID
	// for blocks imported from a feed.
	Source string `json:"source,omitempty"`
}

// Valid reports whether both bounds are known and StartTime < EndTime.
func (b Block) Valid() bool {
	return !b.StartTime.IsZero() && !b.EndTime.IsZero() && b.StartTime.Before(b.EndTime)
}

// Validate checks the block invariants.
func (b Block) Validate() error {
	if b.CourtNumber <= 0 {
		return errors.New("court number must be positive")
	}
	if !b.Valid() {
		return ErrInvalidRange
	}
	return nil
}

// Group is the domain-nested player container (session.group.players).
type Group struct {
	Players []Player `json:"players"`
}

// Session is an active game occupying a court.
type Session struct {
	CourtNumber    int       `json:"courtNumber"`
	Players        []Player  `json:"players,omitempty"`
	Group          *Group    `json:"group,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	ScheduledEndAt time.Time `json:"scheduledEndAt"`
}

// ActivePlayers returns the nested group players when present, otherwise
// the flat player list. A nil session has no players.
func (s *Session) ActivePlayers() []Player {
	if s == nil {
		return nil
	}
	if s.Group != nil && len(s.Group.Players) > 0 {
		return s.Group.Players
	}
	return s.Players
}

// Court is the per-court view consumed by the status resolver. Players and
// ScheduledEndAt carry the legacy top-level shape; Session carries the
// domain shape. Block is the block currently attached to the court tile.
type Court struct {
	Number         int       `json:"number"`
	Players        []Player  `json:"players,omitempty"`
	ScheduledEndAt time.Time `json:"scheduledEndAt"`
	Session        *Session  `json:"session,omitempty"`
	Block          *Block    `json:"block,omitempty"`
}

// StatusKind is the display status of a court.
type StatusKind string

const (
	StatusAvailable StatusKind = "available"
	StatusOccupied  StatusKind = "occupied"
	StatusOvertime  StatusKind = "overtime"
	StatusBlocked   StatusKind = "blocked"
	StatusWet       StatusKind = "wet"
)

// StatusInfo carries the details behind a status. Only the fields relevant
// to the resolved status are set.
type StatusInfo struct {
	Reason         string    `json:"reason,omitempty"`
	BlockID        string    `json:"blockId,omitempty"`
	Start          time.Time `json:"start,omitzero"`
	End            time.Time `json:"end,omitzero"`
	Players        []Player  `json:"players,omitempty"`
	StartedAt      time.Time `json:"startedAt,omitzero"`
	ScheduledEndAt time.Time `json:"scheduledEndAt,omitzero"`
}

// CourtStatus is a derived projection; it is recomputed on every call and
// never stored.
type CourtStatus struct {
	CourtNumber int        `json:"courtNumber"`
	Status      StatusKind `json:"status"`
	Info        StatusInfo `json:"info"`
}

// ConflictType distinguishes collisions with blocks from collisions with
// active sessions.
type ConflictType string

const (
	ConflictBlock   ConflictType = "block"
	ConflictBooking ConflictType = "booking"
)

// Conflict is an advisory collision between a proposed block and existing
// court usage.
type Conflict struct {
	CourtNumber int          `json:"courtNumber"`
	Type        ConflictType `json:"type"`
	BlockID     string       `json:"blockId,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Players     []Player     `json:"players,omitempty"`
	Start       time.Time    `json:"start"`
	End         time.Time    `json:"end"`
}

// Occurrence is one concrete date produced by a recurrence rule.
type Occurrence struct {
	Date time.Time `json:"date"`
}

// LayoutInfo places a calendar event in a column of its overlap group.
type LayoutInfo struct {
	Column       int `json:"column"`
	TotalColumns int `json:"totalColumns"`
}
