package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/dojo-portal/internal/passwordpolicy"
)

// PasswordRecordStore captures the persistence operations for password tracking rows.
type PasswordRecordStore interface {
	InsertRecord(ctx context.Context, record passwordpolicy.Record) error
	GetRecord(ctx context.Context, userID string) (passwordpolicy.Record, error)
	SaveRecord(ctx context.Context, record passwordpolicy.Record) error
	ListReminderCandidates(ctx context.Context, from, to time.Time) ([]passwordpolicy.Record, error)
	ListSuspensionCandidates(ctx context.Context, reference time.Time) ([]passwordpolicy.Record, error)
	MarkReminderSent(ctx context.Context, userID string, expiry, at time.Time) (bool, error)
	Suspend(ctx context.Context, userID string, at time.Time) (bool, error)
}

// PasswordService owns the password lifecycle: status checks, rotation, and
// the start of tracking for new accounts.
type PasswordService struct {
	records  PasswordRecordStore
	identity CredentialUpdater
	policy   passwordpolicy.Policy
	now      func() time.Time
	logger   *slog.Logger
}

// NewPasswordService constructs a PasswordService with the provided dependencies.
func NewPasswordService(records PasswordRecordStore, identity CredentialUpdater, policy passwordpolicy.Policy, now func() time.Time) *PasswordService {
	return NewPasswordServiceWithLogger(records, identity, policy, now, nil)
}

// NewPasswordServiceWithLogger constructs a PasswordService with a specified logger.
func NewPasswordServiceWithLogger(records PasswordRecordStore, identity CredentialUpdater, policy passwordpolicy.Policy, now func() time.Time, logger *slog.Logger) *PasswordService {
	if now == nil {
		now = time.Now
	}
	return &PasswordService{
		records:  records,
		identity: identity,
		policy:   policy,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *PasswordService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PasswordService", operation, attrs...)
}

// WindowFor returns the password window in days for an account class.
func (s *PasswordService) WindowFor(role Role) int {
	if s == nil {
		return passwordpolicy.DefaultWindowDays
	}
	return s.policy.WindowDays(string(role))
}

// ReminderLeadDays returns how many days before expiry members are warned.
func (s *PasswordService) ReminderLeadDays() int {
	if s == nil {
		return passwordpolicy.ReminderLeadDays
	}
	return s.policy.LeadDays()
}

// CheckPasswordStatus reports the password status of userID. It never fails:
// a missing record or a lookup error yields the neutral status so that a
// storage outage cannot lock members out.
func (s *PasswordService) CheckPasswordStatus(ctx context.Context, userID string) passwordpolicy.Status {
	if s == nil || s.records == nil {
		return passwordpolicy.NeutralStatus()
	}

	logger := s.loggerWith(ctx, "CheckPasswordStatus", "user_id", userID)

	record, err := s.records.GetRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.DebugContext(ctx, "password not tracked")
		} else {
			logger.ErrorContext(ctx, "password status lookup failed", "error", err, "error_kind", ErrorKind(err))
		}
		return passwordpolicy.NeutralStatus()
	}

	return record.Status(s.now())
}

// UpdatePassword sets newPassword with the identity provider and then starts
// a fresh expiry cycle. A failure at the identity provider leaves the record
// untouched; a failure writing the record restores the previous credential.
func (s *PasswordService) UpdatePassword(ctx context.Context, userID, newPassword string) (err error) {
	if s == nil {
		return fmt.Errorf("PasswordService is nil")
	}
	if s.records == nil || s.identity == nil {
		return fmt.Errorf("password service not configured")
	}

	logger := s.loggerWith(ctx, "UpdatePassword", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password updated")
	}()

	if strings.TrimSpace(userID) == "" {
		return ErrUnauthorized
	}
	if newPassword == "" {
		return fieldError("password", "password is required")
	}

	var revert RevertFunc
	revert, err = s.identity.SetPassword(ctx, userID, newPassword)
	if err != nil {
		return err
	}

	now := s.now()
	record, lookupErr := s.records.GetRecord(ctx, userID)
	switch {
	case lookupErr == nil:
		err = s.records.SaveRecord(ctx, record.Rotate(now))
	case errors.Is(lookupErr, ErrNotFound):
		err = s.records.InsertRecord(ctx, passwordpolicy.NewRecord(userID, now, s.policy.WindowDays("")))
	default:
		err = lookupErr
	}
	if err == nil {
		return nil
	}

	if revert != nil {
		if revertErr := revert(ctx); revertErr != nil {
			logger.ErrorContext(ctx, "failed to restore previous credential", "error", revertErr)
			return errors.Join(err, fmt.Errorf("restore credential: %w", revertErr))
		}
		logger.WarnContext(ctx, "previous credential restored after record update failure")
	}
	return err
}

// InitializePasswordTracking starts tracking a password set now. A
// non-positive expiryDays selects the policy default. Calling it for a user
// who is already tracked keeps the existing cycle and returns that record.
func (s *PasswordService) InitializePasswordTracking(ctx context.Context, userID string, expiryDays int) (record passwordpolicy.Record, err error) {
	if s == nil {
		return passwordpolicy.Record{}, fmt.Errorf("PasswordService is nil")
	}
	if s.records == nil {
		return passwordpolicy.Record{}, fmt.Errorf("password record store not configured")
	}

	logger := s.loggerWith(ctx, "InitializePasswordTracking", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password tracking initialization failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("expiry_date", record.ExpiryDate, "window_days", record.WindowDays).InfoContext(ctx, "password tracking initialized")
	}()

	if strings.TrimSpace(userID) == "" {
		err = fieldError("user_id", "user id is required")
		return
	}
	if expiryDays <= 0 {
		expiryDays = s.policy.WindowDays("")
	}

	record = passwordpolicy.NewRecord(userID, s.now(), expiryDays)
	err = s.records.InsertRecord(ctx, record)
	if errors.Is(err, ErrAlreadyExists) {
		logger.InfoContext(ctx, "password already tracked")
		record, err = s.records.GetRecord(ctx, userID)
	}
	return
}
