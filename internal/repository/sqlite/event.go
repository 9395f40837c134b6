package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

const eventColumns = `id, family, title, start_at, end_at, COALESCE(all_day, 0), COALESCE(assignees, '')`

type eventRepository struct {
	db repository.DBTX
}

// NewEventRepository creates a new calendar event repository
func NewEventRepository(db repository.DBTX) repository.EventRepository {
	return &eventRepository{db: db}
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		event     models.Event
		startAt   string
		endAt     sql.NullString
		allDay    int
		assignees string
	)
	if err := row.Scan(&event.ID, &event.Family, &event.Title, &startAt, &endAt, &allDay, &assignees); err != nil {
		return nil, err
	}

	var err error
	if event.StartAt, err = models.ParseTimestamp(startAt); err != nil {
		return nil, fmt.Errorf("event %d start_at: %w", event.ID, err)
	}
	if event.EndAt, err = optionalTime(endAt); err != nil {
		return nil, fmt.Errorf("event %d end_at: %w", event.ID, err)
	}
	event.AllDay = allDay != 0
	event.Assignees = models.SplitList(assignees)
	return &event, nil
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	query := `
		INSERT INTO events (family, title, start_at, end_at, all_day, assignees)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		event.Family,
		event.Title,
		models.FormatTimestamp(event.StartAt),
		nullTime(event.EndAt),
		event.AllDay,
		nullString(models.JoinList(event.Assignees)),
	).Scan(&event.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

func (r *eventRepository) GetByID(ctx context.Context, family string, id int64) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND family = ?`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id, family))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event by ID: %w", err)
	}

	return event, nil
}

// ListByDate returns events whose UTC start date lies in [from, to]
func (r *eventRepository) ListByDate(ctx context.Context, family string, from, to time.Time) ([]*models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE family = ? AND date(start_at) BETWEEN ? AND ?
		ORDER BY datetime(start_at) ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, family, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET title = ?, start_at = ?, end_at = ?, all_day = ?, assignees = ?
		WHERE id = ? AND family = ?`

	result, err := r.db.ExecContext(ctx, query,
		event.Title,
		models.FormatTimestamp(event.StartAt),
		nullTime(event.EndAt),
		event.AllDay,
		nullString(models.JoinList(event.Assignees)),
		event.ID,
		event.Family,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return expectAffected(result, "event", event.ID)
}

func (r *eventRepository) Delete(ctx context.Context, family string, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND family = ?`, id, family)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return expectAffected(result, "event", id)
}

// SetRSVP records the user's answer, replacing any earlier one
func (r *eventRepository) SetRSVP(ctx context.Context, family string, rsvp *models.RSVP) error {
	query := `
		INSERT INTO event_rsvps (event_id, username, status, responded_at)
		SELECT ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM events WHERE id = ? AND family = ?)
		ON CONFLICT (event_id, username) DO UPDATE
		SET status = excluded.status, responded_at = excluded.responded_at`

	result, err := r.db.ExecContext(ctx, query,
		rsvp.EventID,
		rsvp.Username,
		string(rsvp.Status),
		models.FormatTimestamp(rsvp.RespondedAt),
		rsvp.EventID,
		family,
	)
	if err != nil {
		return fmt.Errorf("failed to save rsvp: %w", err)
	}

	return expectAffected(result, "event", rsvp.EventID)
}

func (r *eventRepository) ClearRSVP(ctx context.Context, family string, eventID int64, username string) error {
	query := `
		DELETE FROM event_rsvps
		WHERE event_id = ? AND username = ?
			AND event_id IN (SELECT id FROM events WHERE family = ?)`

	if _, err := r.db.ExecContext(ctx, query, eventID, username, family); err != nil {
		return fmt.Errorf("failed to clear rsvp: %w", err)
	}
	return nil
}

func (r *eventRepository) DeleteRSVPs(ctx context.Context, family string, eventID int64) error {
	query := `DELETE FROM event_rsvps WHERE event_id = ? AND event_id IN (SELECT id FROM events WHERE family = ?)`

	if _, err := r.db.ExecContext(ctx, query, eventID, family); err != nil {
		return fmt.Errorf("failed to delete rsvps of event %d: %w", eventID, err)
	}
	return nil
}

// Attendees lists answers with profile names: going, then maybe, then cant,
// each group by username ignoring case.
func (r *eventRepository) Attendees(ctx context.Context, family string, eventID int64) ([]*models.Attendee, error) {
	query := `
		SELECT r.username, r.status, COALESCE(p.first_name, ''), COALESCE(p.last_name, '')
		FROM event_rsvps r
		JOIN events e ON e.id = r.event_id
		LEFT JOIN user_profiles p ON p.family = e.family AND p.username = r.username
		WHERE r.event_id = ? AND e.family = ?
		ORDER BY CASE r.status WHEN 'going' THEN 0 WHEN 'maybe' THEN 1 ELSE 2 END,
			r.username COLLATE NOCASE, r.username`

	rows, err := r.db.QueryContext(ctx, query, eventID, family)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendees: %w", err)
	}
	defer rows.Close()

	var attendees []*models.Attendee
	for rows.Next() {
		var (
			attendee models.Attendee
			status   string
		)
		if err := rows.Scan(&attendee.Username, &status, &attendee.FirstName, &attendee.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		attendee.Status = models.RSVPStatus(status)
		attendees = append(attendees, &attendee)
	}

	return attendees, rows.Err()
}
