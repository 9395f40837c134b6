package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kerhoff/hive/internal/calendar"
	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/service"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// eventRequest carries dates as YYYY-MM-DD and times of day as HH:MM.
// Times are ignored for all-day events.
type eventRequest struct {
	Title     string   `json:"title"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	AllDay    bool     `json:"all_day"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Assignees []string `json:"assignees"`
}

type rsvpRequest struct {
	Status string `json:"status"`
}

func (r eventRequest) input() (service.EventInput, error) {
	in := service.EventInput{Title: r.Title, Assignees: r.Assignees}

	var err error
	if in.Range.StartDate, err = parseDate("start_date", r.StartDate); err != nil {
		return in, err
	}
	if in.Range.EndDate, err = parseDate("end_date", r.EndDate); err != nil {
		return in, err
	}
	in.Range.AllDay = r.AllDay
	if r.AllDay {
		return in, nil
	}
	if in.Range.StartTime, err = parseClock("start_time", r.StartTime); err != nil {
		return in, err
	}
	if in.Range.EndTime, err = parseClock("end_time", r.EndTime); err != nil {
		return in, err
	}
	return in, nil
}

func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return t, nil
}

func parseClock(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	t, err := time.Parse(clockLayout, raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be HH:MM", field)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (s *Server) handleCalendarView(c *gin.Context) {
	ref, err := parseDate("date", c.Query("date"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	view, err := s.svc.CalendarView(c.Request.Context(), actor(c),
		calendar.ParseViewMode(c.Query("view")), ref, c.Query("assignee"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	var req eventRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	event, err := s.svc.CreateEvent(c.Request.Context(), actor(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// handleGetEvent returns the event along with its range decoded for editing
func (s *Server) handleGetEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	event, err := s.svc.GetEvent(ctx, actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event, "range": calendar.DecodeRange(event)})
}

func (s *Server) handleUpdateEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req eventRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	event, err := s.svc.UpdateEvent(c.Request.Context(), actor(c), id, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *Server) handleDeleteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteEvent(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetRSVP(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req rsvpRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.svc.SetRSVP(c.Request.Context(), actor(c), id, models.RSVPStatus(req.Status)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearRSVP(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.svc.ClearRSVP(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetAttendees(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	attendees, err := s.svc.Attendees(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attendees)
}
