// Package store keeps the club's live court state in memory: blocks,
// active sessions and wet-court markers. Every accessor returns copies, so
// callers can hand results to the status and conflict packages without
// holding a lock.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"courtboard/internal/interval"
	appLog "courtboard/internal/log"
	"courtboard/internal/model"
	"courtboard/internal/status"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrCourtInRange = errors.New("court number out of range")
)

// Board is the mutable state of one club. The zero value is not usable;
// call NewBoard.
type Board struct {
	mu       sync.RWMutex
	courts   int
	blocks   []model.Block
	sessions map[int]model.Session
	wet      status.WetSet
}

// NewBoard returns an empty board for courts numbered 1..courtCount.
func NewBoard(courtCount int) *Board {
	if courtCount <= 0 {
		courtCount = 1
	}
	return &Board{
		courts:   courtCount,
		blocks:   []model.Block{},
		sessions: make(map[int]model.Session),
		wet:      status.WetSet{},
	}
}

// CourtCount returns the number of courts.
func (b *Board) CourtCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.courts
}

func (b *Board) checkCourt(n int) error {
	if n < 1 || n > b.courts {
		return fmt.Errorf("court %d: %w (1..%d)", n, ErrCourtInRange, b.courts)
	}
	return nil
}

// Blocks returns a copy of every block in insertion order.
func (b *Board) Blocks() []model.Block {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.blocks)
}

// BlocksBetween returns the blocks overlapping [from, to).
func (b *Board) BlocksBetween(from, to time.Time) []model.Block {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Block, 0)
	for _, blk := range b.blocks {
		if interval.Overlaps(blk.StartTime, blk.EndTime, from, to) {
			out = append(out, blk)
		}
	}
	return out
}

// Block returns the block with id.
func (b *Board) Block(id string) (model.Block, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.indexOf(id)
	if i < 0 {
		return model.Block{}, fmt.Errorf("block %q: %w", id, ErrNotFound)
	}
	return b.blocks[i], nil
}

func (b *Board) indexOf(id string) int {
	return slices.IndexFunc(b.blocks, func(blk model.Block) bool { return blk.ID == id })
}

// AddBlocks validates and appends blocks, all or nothing. Blocks without an
// ID get a fresh one; blocks without a source are marked admin. The stored
// blocks are returned.
func (b *Board) AddBlocks(blocks ...model.Block) ([]model.Block, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	added := make([]model.Block, 0, len(blocks))
	for _, blk := range blocks {
		if err := blk.Validate(); err != nil {
			return nil, fmt.Errorf("block for court %d: %w", blk.CourtNumber, err)
		}
		if err := b.checkCourt(blk.CourtNumber); err != nil {
			return nil, err
		}
		if blk.ID == "" {
			blk.ID = uuid.NewString()
		}
		if blk.Source == "" {
			blk.Source = model.SourceAdmin
		}
		added = append(added, blk)
	}
	b.blocks = append(b.blocks, added...)
	appLog.Debug("blocks added", "count", len(added))
	return slices.Clone(added), nil
}

// UpdateBlock replaces the stored block with the same ID.
func (b *Board) UpdateBlock(blk model.Block) error {
	if err := blk.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkCourt(blk.CourtNumber); err != nil {
		return err
	}
	i := b.indexOf(blk.ID)
	if i < 0 {
		return fmt.Errorf("block %q: %w", blk.ID, ErrNotFound)
	}
	if blk.Source == "" {
		blk.Source = b.blocks[i].Source
	}
	b.blocks[i] = blk
	return nil
}

// DeleteBlock removes the block with id.
func (b *Board) DeleteBlock(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("block %q: %w", id, ErrNotFound)
	}
	b.blocks = slices.Delete(b.blocks, i, i+1)
	return nil
}

// TruncateBlock ends the block at at. When at is at or before the block's
// start the block is removed instead; when at is after its end nothing
// changes. It reports whether the block still exists.
func (b *Board) TruncateBlock(id string, at time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return false, fmt.Errorf("block %q: %w", id, ErrNotFound)
	}
	blk := &b.blocks[i]
	switch {
	case !at.After(blk.StartTime):
		b.blocks = slices.Delete(b.blocks, i, i+1)
		return false, nil
	case at.Before(blk.EndTime):
		blk.EndTime = at
	}
	return true, nil
}

// ReplaceSource swaps every block from source for blocks, e.g. after an
// ICS feed refresh. Invalid or out-of-range blocks are skipped and logged.
func (b *Board) ReplaceSource(source string, blocks []model.Block) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.blocks[:0:0]
	for _, blk := range b.blocks {
		if blk.Source != source {
			kept = append(kept, blk)
		}
	}
	added := 0
	for _, blk := range blocks {
		if err := blk.Validate(); err != nil {
			appLog.Warn("skipping feed block", "source", source, "id", blk.ID, "err", err)
			continue
		}
		if err := b.checkCourt(blk.CourtNumber); err != nil {
			appLog.Warn("skipping feed block", "source", source, "id", blk.ID, "err", err)
			continue
		}
		if blk.ID == "" {
			blk.ID = uuid.NewString()
		}
		blk.Source = source
		kept = append(kept, blk)
		added++
	}
	b.blocks = kept
	return added
}

// Sessions returns the active sessions ordered by court.
func (b *Board) Sessions() []model.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Session, 0, len(b.sessions))
	for n := 1; n <= b.courts; n++ {
		if s, ok := b.sessions[n]; ok {
			out = append(out, s)
		}
	}
	return out
}

// AssignSession puts a session on court s.CourtNumber, replacing any
// session already there.
func (b *Board) AssignSession(s model.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkCourt(s.CourtNumber); err != nil {
		return err
	}
	if !s.StartedAt.IsZero() && !s.ScheduledEndAt.IsZero() && !s.StartedAt.Before(s.ScheduledEndAt) {
		return model.ErrInvalidRange
	}
	b.sessions[s.CourtNumber] = s
	return nil
}

// ClearSession ends play on court n.
func (b *Board) ClearSession(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[n]; !ok {
		return fmt.Errorf("session on court %d: %w", n, ErrNotFound)
	}
	delete(b.sessions, n)
	return nil
}

// SetWet marks or clears the wet flag on court n.
func (b *Board) SetWet(n int, wet bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkCourt(n); err != nil {
		return err
	}
	if wet {
		b.wet[n] = true
	} else {
		delete(b.wet, n)
	}
	return nil
}

// WetSet returns the manually marked wet courts merged with courts under
// an active wet-court block at now.
func (b *Board) WetSet(now time.Time) status.WetSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return status.WetSetFromBlocks(b.blocks, now).Merge(b.wet)
}

// Courts builds the per-court view at now: the active session and the
// block currently covering each court, if any.
func (b *Board) Courts(now time.Time) []model.Court {
	b.mu.RLock()
	defer b.mu.RUnlock()

	courts := make([]model.Court, b.courts)
	for i := range courts {
		n := i + 1
		courts[i].Number = n
		if s, ok := b.sessions[n]; ok {
			courts[i].Session = &s
		}
	}
	for _, blk := range b.blocks {
		if blk.CourtNumber < 1 || blk.CourtNumber > b.courts {
			continue
		}
		c := &courts[blk.CourtNumber-1]
		if c.Block != nil || !blk.Valid() || !interval.Contains(blk.StartTime, blk.EndTime, now) {
			continue
		}
		c.Block = &blk
	}
	return courts
}

// StatusContext assembles the resolver context for selected at now.
func (b *Board) StatusContext(selected, now time.Time) status.Context {
	return status.Context{
		WetSet:       b.WetSet(now),
		Blocks:       b.Blocks(),
		SelectedDate: selected,
		Now:          now,
	}
}

// Snapshot is the serialized board, used by the courtctl CLI and for
// seeding a server.
type Snapshot struct {
	Courts   int             `json:"courts"`
	Blocks   []model.Block   `json:"blocks"`
	Sessions []model.Session `json:"sessions"`
	Wet      []int           `json:"wet"`
}

// Snapshot copies the board's state.
func (b *Board) Snapshot() Snapshot {
	wet := make([]int, 0)
	b.mu.RLock()
	for n := range b.wet {
		wet = append(wet, n)
	}
	courts := b.courts
	b.mu.RUnlock()
	slices.Sort(wet)

	return Snapshot{
		Courts:   courts,
		Blocks:   b.Blocks(),
		Sessions: b.Sessions(),
		Wet:      wet,
	}
}

// ReadSnapshot decodes a snapshot document. Timestamps without a zone are
// read in loc (time.Local when nil).
func ReadSnapshot(r io.Reader, loc *time.Location) (Snapshot, error) {
	var raw struct {
		Courts   int               `json:"courts"`
		Blocks   []json.RawMessage `json:"blocks"`
		Sessions []json.RawMessage `json:"sessions"`
		Wet      []int             `json:"wet"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	s := Snapshot{
		Courts:   raw.Courts,
		Blocks:   make([]model.Block, 0, len(raw.Blocks)),
		Sessions: make([]model.Session, 0, len(raw.Sessions)),
		Wet:      raw.Wet,
	}
	for i, data := range raw.Blocks {
		blk, err := model.UnmarshalBlockIn(data, loc)
		if err != nil {
			return Snapshot{}, fmt.Errorf("snapshot: block %d: %w", i, err)
		}
		s.Blocks = append(s.Blocks, blk)
	}
	for i, data := range raw.Sessions {
		sess, err := model.UnmarshalSessionIn(data, loc)
		if err != nil {
			return Snapshot{}, fmt.Errorf("snapshot: session %d: %w", i, err)
		}
		s.Sessions = append(s.Sessions, sess)
	}
	return s, nil
}

// WriteSnapshot encodes s as indented JSON.
func WriteSnapshot(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Restore builds a board from a snapshot. When the snapshot does not state
// a court count, the highest court it mentions is used. Entries that fail
// validation are skipped with a warning so one bad row does not lose the
// rest.
func Restore(s Snapshot) *Board {
	courts := s.Courts
	if courts <= 0 {
		for _, blk := range s.Blocks {
			courts = max(courts, blk.CourtNumber)
		}
		for _, sess := range s.Sessions {
			courts = max(courts, sess.CourtNumber)
		}
		for _, n := range s.Wet {
			courts = max(courts, n)
		}
	}
	b := NewBoard(courts)

	for _, blk := range s.Blocks {
		if _, err := b.AddBlocks(blk); err != nil {
			appLog.Warn("snapshot: skipping block", "id", blk.ID, "err", err)
		}
	}
	for _, sess := range s.Sessions {
		if err := b.AssignSession(sess); err != nil {
			appLog.Warn("snapshot: skipping session", "court", sess.CourtNumber, "err", err)
		}
	}
	for _, n := range s.Wet {
		if err := b.SetWet(n, true); err != nil {
			appLog.Warn("snapshot: skipping wet court", "court", n, "err", err)
		}
	}
	return b
}
