package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/calendar"
	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

// EventInput holds an event as edited
type EventInput struct {
	Title     string
	Range     calendar.Range
	Assignees []string
}

// CalendarView is one rendered calendar page
type CalendarView struct {
	View    calendar.ViewMode `json:"view"`
	Window  calendar.Window   `json:"window"`
	Entries []calendar.Entry  `json:"entries"`
	Prev    time.Time         `json:"prev"`
	Next    time.Time         `json:"next"`
}

func (s *Service) buildEvent(id models.Identity, in EventInput) (*models.Event, error) {
	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}
	if in.Range.StartDate.IsZero() {
		return nil, invalid("start", "is required")
	}
	if in.Range.EndDate.IsZero() {
		in.Range.EndDate = in.Range.StartDate
	}

	start, end, err := calendar.EncodeRange(in.Range)
	if err != nil {
		if errors.Is(err, calendar.ErrEndBeforeStart) {
			return nil, invalid("end", err.Error())
		}
		return nil, err
	}

	return &models.Event{
		Family:    id.Family,
		Title:     title,
		StartAt:   start,
		EndAt:     &end,
		AllDay:    in.Range.AllDay,
		Assignees: models.SplitList(strings.Join(in.Assignees, ",")),
	}, nil
}

func (s *Service) CreateEvent(ctx context.Context, id models.Identity, in EventInput) (*models.Event, error) {
	event, err := s.buildEvent(id, in)
	if err != nil {
		return nil, err
	}

	if event, err = s.store.Events().Create(ctx, event); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family":  id.Family,
		"user":    id.User,
		"event":   event.ID,
		"all_day": event.AllDay,
	}).Info("Created event")

	return event, nil
}

func (s *Service) UpdateEvent(ctx context.Context, id models.Identity, eventID int64, in EventInput) (*models.Event, error) {
	event, err := s.buildEvent(id, in)
	if err != nil {
		return nil, err
	}
	event.ID = eventID

	if err := s.store.Events().Update(ctx, event); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"event":  eventID,
	}).Info("Updated event")

	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, id models.Identity, eventID int64) (*models.Event, error) {
	event, err := s.store.Events().GetByID(ctx, id.Family, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, notFound("event", eventID)
	}
	return event, nil
}

// EventRange returns the event decoded for editing
func (s *Service) EventRange(ctx context.Context, id models.Identity, eventID int64) (calendar.Range, error) {
	event, err := s.GetEvent(ctx, id, eventID)
	if err != nil {
		return calendar.Range{}, err
	}
	return calendar.DecodeRange(event), nil
}

// DeleteEvent removes the event with its RSVPs and unlinks notes pointing at it
func (s *Service) DeleteEvent(ctx context.Context, id models.Identity, eventID int64) error {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Events().DeleteRSVPs(ctx, id.Family, eventID); err != nil {
			return err
		}
		if err := tx.Notes().UnlinkEvent(ctx, id.Family, eventID); err != nil {
			return err
		}
		return tx.Events().Delete(ctx, id.Family, eventID)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"event":  eventID,
	}).Info("Deleted event")
	return nil
}

// CalendarView returns the entries visible in view around ref
func (s *Service) CalendarView(ctx context.Context, id models.Identity, view calendar.ViewMode, ref time.Time, assignee string) (*CalendarView, error) {
	if ref.IsZero() {
		ref = s.now()
	}
	window := calendar.WindowFor(view, ref)

	events, err := s.store.Events().ListByDate(ctx, id.Family, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	return &CalendarView{
		View:    view,
		Window:  window,
		Entries: calendar.Entries(events, window, assignee),
		Prev:    calendar.Shift(view, ref, -1),
		Next:    calendar.Shift(view, ref, 1),
	}, nil
}

// SetRSVP records the acting user's answer, replacing an earlier one
func (s *Service) SetRSVP(ctx context.Context, id models.Identity, eventID int64, status models.RSVPStatus) error {
	if !status.Valid() {
		return invalid("status", "must be going, maybe or cant")
	}

	err := s.store.Events().SetRSVP(ctx, id.Family, &models.RSVP{
		EventID:     eventID,
		Username:    id.User,
		Status:      status,
		RespondedAt: s.now(),
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"event":  eventID,
		"status": status,
	}).Info("Saved RSVP")
	return nil
}

func (s *Service) ClearRSVP(ctx context.Context, id models.Identity, eventID int64) error {
	if _, err := s.GetEvent(ctx, id, eventID); err != nil {
		return err
	}
	return s.store.Events().ClearRSVP(ctx, id.Family, eventID, id.User)
}

// Attendees lists the answers of an event with profile names
func (s *Service) Attendees(ctx context.Context, id models.Identity, eventID int64) ([]*models.Attendee, error) {
	if _, err := s.GetEvent(ctx, id, eventID); err != nil {
		return nil, err
	}
	return s.store.Events().Attendees(ctx, id.Family, eventID)
}
