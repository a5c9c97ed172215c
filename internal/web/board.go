package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"courtboard/internal/ics"
	"courtboard/internal/interval"
	appLog "courtboard/internal/log"
	"courtboard/internal/model"
)

//go:embed templates/board.html
var templateFS embed.FS

var boardTemplate = template.Must(template.ParseFS(templateFS, "templates/board.html"))

type boardView struct {
	Title    string
	Now      time.Time
	Courts   []model.CourtStatus
	Upcoming []model.Event
}

// handleBoard renders today's court tiles. The root element carries
// data-ready="true" so the capture job knows the page is complete.
func (s *Server) handleBoard(w http.ResponseWriter, _ *http.Request) {
	now := s.now().In(s.loc)
	_, dayEnd := interval.DayWindow(now)

	upcoming := make([]model.Event, 0)
	for _, e := range model.EventsFromBlocks(s.board.BlocksBetween(now, dayEnd)) {
		if e.StartTime.After(now) {
			upcoming = append(upcoming, e)
		}
	}

	view := boardView{
		Title:    "Court board",
		Now:      now,
		Courts:   s.statuses(now, now),
		Upcoming: upcoming,
	}

	var buf bytes.Buffer
	if err := boardTemplate.Execute(&buf, view); err != nil {
		appLog.Error("board render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleICS exports every block as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := ics.Encode(&buf, "Court blocks", s.board.Blocks(), s.now()); err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="courtboard.ics"`)
	_, _ = buf.WriteTo(w)
}

// handlePreview serves the last captured board screenshot.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Capture.Output)
}
