package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/dojo-portal/internal/persistence"
)

const eventColumns = `id, day, time_label, location, capacity, registered_users, type, created_at, updated_at`

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateEvent stores a new event. A second event on the same day and time
// label fails with persistence.ErrDuplicate.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || strings.TrimSpace(event.Day) == "" || strings.TrimSpace(event.TimeLabel) == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.DB().ExecContext(ctx, query,
		event.ID,
		event.Day,
		event.TimeLabel,
		event.Location,
		event.Capacity,
		event.RegisteredUsers,
		event.Type,
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return r.getEvent(ctx, r.pool.DB(), id)
}

// ListEvents returns events within the filter's inclusive day range ordered by day then ID.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if filter.FromDay != "" {
		clauses = append(clauses, "day >= ?")
		args = append(args, filter.FromDay)
	}
	if filter.ToDay != "" {
		clauses = append(clauses, "day <= ?")
		args = append(args, filter.ToDay)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY day ASC, id ASC`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	events := make([]persistence.Event, 0)
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return events, nil
}

// DeleteEvent removes an event by ID.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// IncrementRegistrations adds one registration while the count stays below
// ceiling. The guard lives in the UPDATE so concurrent registrations cannot
// overshoot.
func (r *EventRepository) IncrementRegistrations(ctx context.Context, id string, ceiling int, updatedAt time.Time) (persistence.Event, error) {
	var updated persistence.Event
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE events
			SET registered_users = registered_users + 1, updated_at = ?
			WHERE id = ? AND registered_users < ?
		`, formatTime(updatedAt), id, ceiling)
		if err != nil {
			return r.mapper.MapError(err)
		}

		affected, err := rowsAffected(result)
		if err != nil {
			return err
		}

		event, err := r.getEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrCapacityExceeded
		}

		updated = event
		return nil
	})
	if err != nil {
		return persistence.Event{}, err
	}

	return updated, nil
}

func (r *EventRepository) getEvent(ctx context.Context, q querier, id string) (persistence.Event, error) {
	row := q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return r.scanEvent(row)
}

func (r *EventRepository) scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&event.ID,
		&event.Day,
		&event.TimeLabel,
		&event.Location,
		&event.Capacity,
		&event.RegisteredUsers,
		&event.Type,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}

	if event.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return event, nil
}
