package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"courtboard/internal/conflict"
	"courtboard/internal/interval"
	"courtboard/internal/layout"
	appLog "courtboard/internal/log"
	"courtboard/internal/model"
	"courtboard/internal/recurrence"
	"courtboard/internal/store"
)

type courtsResponse struct {
	Date   string              `json:"date"`
	Now    time.Time           `json:"now"`
	Courts []model.CourtStatus `json:"courts"`
}

// handleCourts resolves every court for ?date= (default today).
func (s *Server) handleCourts(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.loc)
	selected, err := s.parseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	if selected.IsZero() {
		selected = now
	}
	writeJSON(w, http.StatusOK, courtsResponse{
		Date:   selected.Format(time.DateOnly),
		Now:    now,
		Courts: s.statuses(selected, now),
	})
}

func (s *Server) statuses(selected, now time.Time) []model.CourtStatus {
	return s.resolver.ResolveAll(s.board.Courts(now), s.board.StatusContext(selected, now))
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		writeJSON(w, http.StatusOK, s.board.Blocks())
		return
	}
	from, to, err := s.window(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.board.BlocksBetween(from, to))
}

// window parses a from/to pair. A missing from means the start of today; a
// missing to means one day after from.
func (s *Server) window(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := s.parseDay(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid from")
	}
	to, err := s.parseDay(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid to")
	}
	if from.IsZero() {
		from = interval.StartOfDay(s.now().In(s.loc))
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, model.ErrInvalidRange
	}
	return from, to, nil
}

// blockRequest is the admin console's "create block" form.
type blockRequest struct {
	Courts         []int            `json:"courts"`
	StartTime      string           `json:"startTime"`
	EndTime        string           `json:"endTime"`
	SelectedDate   string           `json:"selectedDate"`
	Reason         string           `json:"reason"`
	IsWetCourt     *bool            `json:"isWetCourt,omitempty"`
	Recurrence     *recurrence.Spec `json:"recurrence,omitempty"`
	EditingBlockID string           `json:"editingBlockId,omitempty"`
}

type plan struct {
	Blocks    []model.Block    `json:"blocks"`
	Conflicts []model.Conflict `json:"conflicts"`
	Truncated bool             `json:"truncated,omitempty"`
}

// plan resolves a request into materialized blocks and their conflicts
// without storing anything.
func (s *Server) plan(req blockRequest) (plan, error) {
	if len(req.Courts) == 0 {
		return plan{}, errors.New("at least one court is required")
	}
	for _, c := range req.Courts {
		if c < 1 || c > s.board.CourtCount() {
			return plan{}, fmt.Errorf("court %d: %w", c, store.ErrCourtInRange)
		}
	}
	day, err := s.parseDay(req.SelectedDate)
	if err != nil {
		return plan{}, errors.New("invalid selectedDate")
	}
	now := s.now().In(s.loc)
	if day.IsZero() {
		day = now
	}

	start, end, err := conflict.Window(conflict.Proposal{
		Courts:       req.Courts,
		Start:        req.StartTime,
		End:          req.EndTime,
		SelectedDate: day,
	}, now)
	if err != nil {
		return plan{}, err
	}

	occurrences := []model.Occurrence{{Date: start}}
	truncated := false
	if req.Recurrence != nil {
		if err := req.Recurrence.ValidateFrom(start); err != nil {
			return plan{}, err
		}
		occurrences = recurrence.Expand(start, req.Recurrence)
		truncated = recurrence.Truncated(start, req.Recurrence)
	}

	template := model.Block{
		StartTime:  start,
		EndTime:    end,
		Reason:     strings.TrimSpace(req.Reason),
		IsWetCourt: req.IsWetCourt != nil && *req.IsWetCourt,
		Source:     model.SourceAdmin,
	}
	blocks := recurrence.MaterializeCourts(template, req.Courts, occurrences, req.Recurrence)
	conflicts := conflict.DetectBlocks(blocks, conflict.Context{
		ExistingBlocks: s.board.Blocks(),
		CourtSessions:  s.board.Sessions(),
		EditingBlockID: req.EditingBlockID,
		Now:            now,
	})
	return plan{Blocks: blocks, Conflicts: conflicts, Truncated: truncated}, nil
}

// handleCreateBlocks stores the planned blocks. Conflicts are returned
// for the console to show; they do not stop the write.
func (s *Server) handleCreateBlocks(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}
	p, err := s.plan(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stored, err := s.board.AddBlocks(p.Blocks...)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	p.Blocks = stored
	appLog.Info("blocks created", "count", len(stored), "conflicts", len(p.Conflicts), "reason", req.Reason)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	blk, err := s.board.Block(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blk)
}

type updateResponse struct {
	Block     model.Block      `json:"block"`
	Conflicts []model.Conflict `json:"conflicts"`
}

// handleUpdateBlock edits one block in place. Fields left out of the body
// keep their stored values; the block is checked for conflicts against
// everything but itself.
func (s *Server) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	current, err := s.board.Block(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Recurrence != nil {
		writeError(w, http.StatusBadRequest, "recurrence cannot be changed on a single block")
		return
	}
	if len(req.Courts) > 1 {
		writeError(w, http.StatusBadRequest, "a block covers exactly one court")
		return
	}
	if len(req.Courts) == 0 {
		req.Courts = []int{current.CourtNumber}
	}
	if strings.TrimSpace(req.StartTime) == "" {
		req.StartTime = current.StartTime.In(s.loc).Format(time.RFC3339)
	}
	if strings.TrimSpace(req.EndTime) == "" {
		req.EndTime = current.EndTime.In(s.loc).Format(time.RFC3339)
	}
	if req.SelectedDate == "" {
		req.SelectedDate = current.StartTime.In(s.loc).Format(time.DateOnly)
	}
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = current.Reason
	}
	if req.IsWetCourt == nil {
		req.IsWetCourt = &current.IsWetCourt
	}
	req.EditingBlockID = id

	p, err := s.plan(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	blk := p.Blocks[0]
	blk.ID = id
	// Keep the stored source, so a feed block stays owned by its feed.
	blk.Source = ""
	blk.IsRecurring = current.IsRecurring
	blk.RecurrenceRule = current.RecurrenceRule
	if err := s.board.UpdateBlock(blk); err != nil {
		writeStoreError(w, err)
		return
	}
	updated, err := s.board.Block(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	appLog.Info("block updated", "id", id, "court", updated.CourtNumber, "conflicts", len(p.Conflicts))
	writeJSON(w, http.StatusOK, updateResponse{Block: updated, Conflicts: p.Conflicts})
}

// handleEndBlock cancels a block from now on: a running block ends now, a
// future one is removed.
func (s *Server) handleEndBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	kept, err := s.board.TruncateBlock(id, s.now().In(s.loc))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !kept {
		appLog.Info("block cancelled", "id", id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	blk, err := s.board.Block(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	appLog.Info("block ended", "id", id, "end", blk.EndTime)
	writeJSON(w, http.StatusOK, blk)
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := s.board.DeleteBlock(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConflicts is the dry run behind the console's live conflict
// warning.
func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.plan(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type expandRequest struct {
	Anchor string           `json:"anchor"`
	Spec   *recurrence.Spec `json:"spec"`
}

type expandResponse struct {
	Occurrences []model.Occurrence `json:"occurrences"`
	Truncated   bool               `json:"truncated"`
	RRule       string             `json:"rrule,omitempty"`
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	anchor, err := s.parseDay(req.Anchor)
	if err != nil || anchor.IsZero() {
		writeError(w, http.StatusBadRequest, "anchor must be a date or timestamp")
		return
	}
	resp := expandResponse{Occurrences: recurrence.Expand(anchor, req.Spec)}
	if req.Spec != nil {
		if err := req.Spec.ValidateFrom(anchor); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Truncated = recurrence.Truncated(anchor, req.Spec)
		resp.RRule, _ = req.Spec.RRule(anchor)
	}
	writeJSON(w, http.StatusOK, resp)
}

type calendarResponse struct {
	From   time.Time       `json:"from"`
	To     time.Time       `json:"to"`
	Events []layout.Placed `json:"events"`
}

// handleCalendar lays out blocks and sessions overlapping [from, to).
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := s.window(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.now().In(s.loc)
	events := model.EventsFromBlocks(s.board.BlocksBetween(from, to))
	events = append(events, model.EventsFromSessions(s.board.Sessions(), now)...)
	writeJSON(w, http.StatusOK, calendarResponse{From: from, To: to, Events: layout.Arrange(events, from, to)})
}

func (s *Server) handlePutSession(w http.ResponseWriter, r *http.Request) {
	court, err := parseCourt(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := model.UnmarshalSessionIn(raw, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	sess.CourtNumber = court
	if sess.StartedAt.IsZero() {
		sess.StartedAt = s.now().In(s.loc)
	}
	if err := s.board.AssignSession(sess); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	court, err := parseCourt(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.board.ClearSession(court); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWet(wet bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		court, err := parseCourt(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.board.SetWet(court, wet); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
