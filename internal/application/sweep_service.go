package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/dojo-portal/internal/passwordpolicy"
)

// Notifier delivers expiry reminders to members.
type Notifier interface {
	SendExpiryReminder(ctx context.Context, reminder ExpiryReminder) error
}

// AccountDirectory resolves user ids to accounts.
type AccountDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// SweepService runs the periodic password sweep: one reminder ahead of
// expiry, and suspension once a password has expired.
type SweepService struct {
	records  PasswordRecordStore
	accounts AccountDirectory
	notifier Notifier
	lead     time.Duration
	now      func() time.Time
	logger   *slog.Logger

	// Overlapping runs would race on the same candidates.
	mu sync.Mutex
}

// NewSweepService constructs a SweepService with the provided dependencies.
func NewSweepService(records PasswordRecordStore, accounts AccountDirectory, notifier Notifier, lead time.Duration, now func() time.Time) *SweepService {
	return NewSweepServiceWithLogger(records, accounts, notifier, lead, now, nil)
}

// NewSweepServiceWithLogger constructs a SweepService with a specified logger.
// A non-positive lead selects passwordpolicy.ReminderLeadDays.
func NewSweepServiceWithLogger(records PasswordRecordStore, accounts AccountDirectory, notifier Notifier, lead time.Duration, now func() time.Time, logger *slog.Logger) *SweepService {
	if lead <= 0 {
		lead = passwordpolicy.ReminderLeadDays * passwordpolicy.Day
	}
	if now == nil {
		now = time.Now
	}
	return &SweepService{
		records:  records,
		accounts: accounts,
		notifier: notifier,
		lead:     lead,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// Run performs one sweep. Individual reminder failures are counted and left
// for the next run; only a failed candidate listing aborts the sweep.
func (s *SweepService) Run(ctx context.Context) (report SweepReport, err error) {
	if s == nil {
		err = fmt.Errorf("SweepService is nil")
		return
	}
	if s.records == nil {
		err = fmt.Errorf("password record store not configured")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	logger := s.loggerWith(ctx, "Run", "reference", now)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password sweep failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password sweep completed",
			"reminded", report.Reminded,
			"suspended", report.Suspended,
			"failed", report.Failed,
		)
	}()

	if err = s.remind(ctx, logger, now, &report); err != nil {
		return
	}
	err = s.suspend(ctx, logger, now, &report)
	return
}

func (s *SweepService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SweepService", operation, attrs...)
}

func (s *SweepService) remind(ctx context.Context, logger *slog.Logger, now time.Time, report *SweepReport) error {
	candidates, err := s.records.ListReminderCandidates(ctx, now, now.Add(s.lead))
	if err != nil {
		return fmt.Errorf("list reminder candidates: %w", err)
	}

	for _, record := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !record.ReminderDue(now, s.lead) {
			continue
		}

		recordLogger := logger.With("user_id", record.UserID, "expiry_date", record.ExpiryDate)
		if err := s.sendReminder(ctx, record, now); err != nil {
			report.Failed++
			recordLogger.WarnContext(ctx, "expiry reminder not delivered", "error", err, "error_kind", ErrorKind(err))
			continue
		}

		marked, err := s.records.MarkReminderSent(ctx, record.UserID, record.ExpiryDate, now)
		if err != nil {
			report.Failed++
			recordLogger.ErrorContext(ctx, "failed to flag reminder", "error", err, "error_kind", ErrorKind(err))
			continue
		}
		if marked {
			report.Reminded++
		}
	}
	return nil
}

func (s *SweepService) sendReminder(ctx context.Context, record passwordpolicy.Record, now time.Time) error {
	if s.notifier == nil {
		return fmt.Errorf("notifier not configured")
	}

	reminder := ExpiryReminder{
		UserID:     record.UserID,
		ExpiryDate: record.ExpiryDate,
		DaysLeft:   passwordpolicy.DaysUntil(record.ExpiryDate, now),
	}
	if s.accounts != nil {
		user, err := s.accounts.GetUser(ctx, record.UserID)
		if err != nil {
			return fmt.Errorf("resolve account: %w", err)
		}
		reminder.Email = user.Email
		reminder.DisplayName = user.DisplayName
	}

	return s.notifier.SendExpiryReminder(ctx, reminder)
}

func (s *SweepService) suspend(ctx context.Context, logger *slog.Logger, now time.Time, report *SweepReport) error {
	candidates, err := s.records.ListSuspensionCandidates(ctx, now)
	if err != nil {
		return fmt.Errorf("list suspension candidates: %w", err)
	}

	for _, record := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !record.SuspensionDue(now) {
			continue
		}

		suspended, err := s.records.Suspend(ctx, record.UserID, now)
		if err != nil {
			report.Failed++
			logger.ErrorContext(ctx, "failed to suspend account", "user_id", record.UserID, "error", err, "error_kind", ErrorKind(err))
			continue
		}
		if suspended {
			report.Suspended++
			logger.InfoContext(ctx, "account suspended for expired password", "user_id", record.UserID, "expiry_date", record.ExpiryDate)
		}
	}
	return nil
}
