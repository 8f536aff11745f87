package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/dojo-portal/internal/persistence"
)

const passwordRecordColumns = `user_id, last_changed, expiry_date, window_days, reminder_sent, suspended_at, updated_at`

// PasswordRecordRepository implements persistence.PasswordRecordRepository using SQLite
type PasswordRecordRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewPasswordRecordRepository creates a new SQLite password record repository
func NewPasswordRecordRepository(pool *ConnectionPool) *PasswordRecordRepository {
	return &PasswordRecordRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// InsertPasswordRecord creates the tracking row for a user. A second row for
// the same user fails with persistence.ErrDuplicate.
func (r *PasswordRecordRepository) InsertPasswordRecord(ctx context.Context, record persistence.PasswordRecord) error {
	if record.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO password_records (` + passwordRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.DB().ExecContext(ctx, query,
		record.UserID,
		formatTime(record.LastChanged),
		formatTime(record.ExpiryDate),
		record.WindowDays,
		boolToInt(record.ReminderSent),
		nullableTime(record.SuspendedAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetPasswordRecord retrieves the tracking row for a user.
func (r *PasswordRecordRepository) GetPasswordRecord(ctx context.Context, userID string) (persistence.PasswordRecord, error) {
	if userID == "" {
		return persistence.PasswordRecord{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+passwordRecordColumns+` FROM password_records WHERE user_id = ?`, userID)
	return r.scanPasswordRecord(row)
}

// SavePasswordRecord overwrites every mutable column of an existing row.
func (r *PasswordRecordRepository) SavePasswordRecord(ctx context.Context, record persistence.PasswordRecord) error {
	query := `
		UPDATE password_records
		SET last_changed = ?, expiry_date = ?, window_days = ?, reminder_sent = ?, suspended_at = ?, updated_at = ?
		WHERE user_id = ?
	`

	result, err := r.pool.DB().ExecContext(ctx, query,
		formatTime(record.LastChanged),
		formatTime(record.ExpiryDate),
		record.WindowDays,
		boolToInt(record.ReminderSent),
		nullableTime(record.SuspendedAt),
		formatTime(record.UpdatedAt),
		record.UserID,
	)
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

// ListReminderCandidates returns unsuspended, unreminded records whose expiry
// falls within [from, to].
func (r *PasswordRecordRepository) ListReminderCandidates(ctx context.Context, from, to time.Time) ([]persistence.PasswordRecord, error) {
	query := `
		SELECT ` + passwordRecordColumns + `
		FROM password_records
		WHERE suspended_at IS NULL AND reminder_sent = 0 AND expiry_date >= ? AND expiry_date <= ?
		ORDER BY expiry_date ASC, user_id ASC
	`
	return r.listPasswordRecords(ctx, query, formatTime(from), formatTime(to))
}

// ListSuspensionCandidates returns unsuspended records that expired before reference.
func (r *PasswordRecordRepository) ListSuspensionCandidates(ctx context.Context, reference time.Time) ([]persistence.PasswordRecord, error) {
	query := `
		SELECT ` + passwordRecordColumns + `
		FROM password_records
		WHERE suspended_at IS NULL AND expiry_date < ?
		ORDER BY expiry_date ASC, user_id ASC
	`
	return r.listPasswordRecords(ctx, query, formatTime(reference))
}

// MarkReminderSent flags the reminder for the cycle ending at expiry. The
// expiry guard keeps a reminder from landing on a record rotated in between.
func (r *PasswordRecordRepository) MarkReminderSent(ctx context.Context, userID string, expiry, at time.Time) (bool, error) {
	query := `
		UPDATE password_records
		SET reminder_sent = 1, updated_at = ?
		WHERE user_id = ? AND expiry_date = ? AND reminder_sent = 0 AND suspended_at IS NULL
	`

	result, err := r.pool.DB().ExecContext(ctx, query, formatTime(at), userID, formatTime(expiry))
	if err != nil {
		return false, r.mapper.MapError(err)
	}

	affected, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Suspend locks the record if it is still unsuspended and expired before at.
func (r *PasswordRecordRepository) Suspend(ctx context.Context, userID string, at time.Time) (bool, error) {
	stamp := formatTime(at)
	query := `
		UPDATE password_records
		SET suspended_at = ?, updated_at = ?
		WHERE user_id = ? AND suspended_at IS NULL AND expiry_date < ?
	`

	result, err := r.pool.DB().ExecContext(ctx, query, stamp, stamp, userID, stamp)
	if err != nil {
		return false, r.mapper.MapError(err)
	}

	affected, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PasswordRecordRepository) listPasswordRecords(ctx context.Context, query string, args ...any) ([]persistence.PasswordRecord, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	records := make([]persistence.PasswordRecord, 0)
	for rows.Next() {
		record, err := r.scanPasswordRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return records, nil
}

func (r *PasswordRecordRepository) scanPasswordRecord(row rowScanner) (persistence.PasswordRecord, error) {
	var record persistence.PasswordRecord
	var lastChangedStr, expiryStr, updatedAtStr string
	var reminderSent int
	var suspendedAt sql.NullString

	err := row.Scan(
		&record.UserID,
		&lastChangedStr,
		&expiryStr,
		&record.WindowDays,
		&reminderSent,
		&suspendedAt,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.PasswordRecord{}, r.mapper.MapError(err)
	}

	record.ReminderSent = reminderSent != 0
	if record.LastChanged, err = parseTime(lastChangedStr); err != nil {
		return persistence.PasswordRecord{}, fmt.Errorf("failed to parse last_changed: %w", err)
	}
	if record.ExpiryDate, err = parseTime(expiryStr); err != nil {
		return persistence.PasswordRecord{}, fmt.Errorf("failed to parse expiry_date: %w", err)
	}
	if record.SuspendedAt, err = parseNullableTime(suspendedAt); err != nil {
		return persistence.PasswordRecord{}, fmt.Errorf("failed to parse suspended_at: %w", err)
	}
	if record.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.PasswordRecord{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return record, nil
}
