package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// EventKind distinguishes confirmed gestures from fired actions.
type EventKind string

const (
	// EventConfirmed records a gesture confirmed by the stabilizer.
	EventConfirmed EventKind = "confirmed"
	// EventFired records an action that passed its cooldown.
	EventFired EventKind = "fired"
)

// DefaultEventLimit caps List when no limit is given.
const DefaultEventLimit = 100

// Event is one row of the event log. OccurredAt is stored with millisecond
// precision.
type Event struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Kind       EventKind `json:"kind"`
	Gesture    string    `json:"gesture"`
	Action     string    `json:"action,omitempty"`
	Score      float64   `json:"score"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventFilter narrows List and Count queries. Zero fields match everything.
type EventFilter struct {
	Kind      EventKind
	Gesture   string
	SessionID string
	Since     time.Time
	Limit     int
}

// EventRepository stores and queries the event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create appends an event.
func (r *EventRepository) Create(e *Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO events (id, session_id, kind, gesture, action, score, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, string(e.Kind), e.Gesture, e.Action, e.Score, e.OccurredAt.UnixMilli(),
	)
	return err
}

func (f EventFilter) where() (string, []any) {
	var clauses []string
	var args []any

	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Gesture != "" {
		clauses = append(clauses, "gesture = ?")
		args = append(args, f.Gesture)
	}
	if f.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if !f.Since.IsZero() {
		clauses = append(clauses, "occurred_at >= ?")
		args = append(args, f.Since.UnixMilli())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns matching events, newest first.
func (r *EventRepository) List(f EventFilter) ([]*Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	where, args := f.where()
	args = append(args, limit)

	rows, err := r.db.Query(
		`SELECT id, session_id, kind, gesture, action, score, occurred_at FROM events`+
			where+` ORDER BY occurred_at DESC, id LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var kind string
		var occurredMs int64
		if err := rows.Scan(&e.ID, &e.SessionID, &kind, &e.Gesture, &e.Action, &e.Score, &occurredMs); err != nil {
			return nil, err
		}
		e.Kind = EventKind(kind)
		e.OccurredAt = time.UnixMilli(occurredMs).UTC()
		events = append(events, e)
	}

	return events, rows.Err()
}

// CountByGesture returns the number of matching events per gesture label.
// Filter.Gesture and Filter.Limit are ignored.
func (r *EventRepository) CountByGesture(f EventFilter) (map[string]int, error) {
	f.Gesture = ""
	where, args := f.where()

	rows, err := r.db.Query(`SELECT gesture, COUNT(*) FROM events`+where+` GROUP BY gesture`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var gesture string
		var n int
		if err := rows.Scan(&gesture, &n); err != nil {
			return nil, err
		}
		counts[gesture] = n
	}

	return counts, rows.Err()
}

// DeleteBefore removes events older than t and reports how many were removed.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE occurred_at < ?`, t.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return result.RowsAffected()
}
