package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/dojo-portal/internal/passwordpolicy"
)

func TestPasswordService_CheckPasswordStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)

	t.Run("reports days until expiry", func(t *testing.T) {
		t.Parallel()

		records := newPasswordRecordStoreStub(passwordpolicy.NewRecord("user-1", now.Add(-25*passwordpolicy.Day), 30))
		svc := NewPasswordService(records, nil, passwordpolicy.Policy{}, fixedClock(now))

		status := svc.CheckPasswordStatus(context.Background(), "user-1")
		if !status.Tracked || status.IsExpired || status.IsSuspended {
			t.Fatalf("unexpected status %#v", status)
		}
		if status.DaysUntilExpiry == nil || *status.DaysUntilExpiry != 5 {
			t.Fatalf("expected 5 days left, got %#v", status.DaysUntilExpiry)
		}
	})

	t.Run("reads suspension from the record", func(t *testing.T) {
		t.Parallel()

		record := passwordpolicy.NewRecord("user-1", now.Add(-40*passwordpolicy.Day), 30)
		record, _ = record.Suspend(now.Add(-5 * passwordpolicy.Day))
		svc := NewPasswordService(newPasswordRecordStoreStub(record), nil, passwordpolicy.Policy{}, fixedClock(now))

		status := svc.CheckPasswordStatus(context.Background(), "user-1")
		if !status.IsExpired || !status.IsSuspended {
			t.Fatalf("expected expired and suspended status, got %#v", status)
		}
	})

	t.Run("is neutral for untracked users and lookup failures", func(t *testing.T) {
		t.Parallel()

		records := newPasswordRecordStoreStub()
		svc := NewPasswordService(records, nil, passwordpolicy.Policy{}, fixedClock(now))
		if status := svc.CheckPasswordStatus(context.Background(), "nobody"); status.Tracked || status.IsExpired || status.IsSuspended {
			t.Fatalf("expected neutral status, got %#v", status)
		}

		records.getErr = errors.New("database is locked")
		if status := svc.CheckPasswordStatus(context.Background(), "nobody"); status.Tracked || status.DaysUntilExpiry != nil {
			t.Fatalf("expected neutral status on failure, got %#v", status)
		}
	})
}

func TestPasswordService_UpdatePassword(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)

	t.Run("starts a fresh cycle and clears suspension", func(t *testing.T) {
		t.Parallel()

		record := passwordpolicy.NewRecord("user-1", now.Add(-40*passwordpolicy.Day), 14).MarkReminded()
		record, _ = record.Suspend(now.Add(-passwordpolicy.Day))
		records := newPasswordRecordStoreStub(record)
		identity := &credentialUpdaterStub{}
		svc := NewPasswordService(records, identity, passwordpolicy.Policy{}, fixedClock(now))

		if err := svc.UpdatePassword(context.Background(), "user-1", "new-password"); err != nil {
			t.Fatalf("UpdatePassword failed: %v", err)
		}

		stored := records.records["user-1"]
		if !stored.LastChanged.Equal(now) || !stored.ExpiryDate.Equal(now.Add(14*passwordpolicy.Day)) {
			t.Fatalf("unexpected cycle %s - %s", stored.LastChanged, stored.ExpiryDate)
		}
		if stored.ReminderSent || stored.Lock.IsLocked() {
			t.Fatalf("expected reminder and lock to be cleared, got %#v", stored)
		}
		if len(identity.calls) != 1 || identity.reverted != 0 {
			t.Fatalf("unexpected identity calls %v (reverted %d)", identity.calls, identity.reverted)
		}
	})

	t.Run("starts tracking when no record exists", func(t *testing.T) {
		t.Parallel()

		records := newPasswordRecordStoreStub()
		svc := NewPasswordService(records, &credentialUpdaterStub{}, passwordpolicy.Policy{DefaultWindowDays: 60}, fixedClock(now))

		if err := svc.UpdatePassword(context.Background(), "user-1", "new-password"); err != nil {
			t.Fatalf("UpdatePassword failed: %v", err)
		}
		if got := records.records["user-1"].WindowDays; got != 60 {
			t.Fatalf("expected policy default window, got %d", got)
		}
	})

	t.Run("leaves the record untouched when the identity provider fails", func(t *testing.T) {
		t.Parallel()

		record := passwordpolicy.NewRecord("user-1", now.Add(-40*passwordpolicy.Day), 30)
		records := newPasswordRecordStoreStub(record)
		identity := &credentialUpdaterStub{err: errors.New("identity provider down")}
		svc := NewPasswordService(records, identity, passwordpolicy.Policy{}, fixedClock(now))

		if err := svc.UpdatePassword(context.Background(), "user-1", "new-password"); err == nil {
			t.Fatal("expected error")
		}
		if records.saves != 0 || !records.records["user-1"].ExpiryDate.Equal(record.ExpiryDate) {
			t.Fatal("expected record to be unchanged")
		}
	})

	t.Run("restores the credential when the record write fails", func(t *testing.T) {
		t.Parallel()

		records := newPasswordRecordStoreStub(passwordpolicy.NewRecord("user-1", now.Add(-40*passwordpolicy.Day), 30))
		records.saveErr = errors.New("database is locked")
		identity := &credentialUpdaterStub{}
		svc := NewPasswordService(records, identity, passwordpolicy.Policy{}, fixedClock(now))

		err := svc.UpdatePassword(context.Background(), "user-1", "new-password")
		if err == nil || !strings.Contains(err.Error(), "database is locked") {
			t.Fatalf("expected save error, got %v", err)
		}
		if identity.reverted != 1 {
			t.Fatalf("expected credential to be restored once, got %d", identity.reverted)
		}
	})

	t.Run("reports a failed restore", func(t *testing.T) {
		t.Parallel()

		saveErr := errors.New("database is locked")
		revertErr := errors.New("identity provider down")
		records := newPasswordRecordStoreStub(passwordpolicy.NewRecord("user-1", now.Add(-40*passwordpolicy.Day), 30))
		records.saveErr = saveErr
		svc := NewPasswordService(records, &credentialUpdaterStub{revertErr: revertErr}, passwordpolicy.Policy{}, fixedClock(now))

		err := svc.UpdatePassword(context.Background(), "user-1", "new-password")
		if !errors.Is(err, saveErr) || !errors.Is(err, revertErr) {
			t.Fatalf("expected both errors to be reported, got %v", err)
		}
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()

		svc := NewPasswordService(newPasswordRecordStoreStub(), &credentialUpdaterStub{}, passwordpolicy.Policy{}, fixedClock(now))
		if err := svc.UpdatePassword(context.Background(), " ", "new-password"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		var vErr *ValidationError
		if err := svc.UpdatePassword(context.Background(), "user-1", ""); !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestPasswordService_InitializePasswordTracking(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)

	t.Run("uses the requested window", func(t *testing.T) {
		t.Parallel()

		records := newPasswordRecordStoreStub()
		svc := NewPasswordService(records, nil, passwordpolicy.Policy{}, fixedClock(now))

		record, err := svc.InitializePasswordTracking(context.Background(), "user-1", 10)
		if err != nil {
			t.Fatalf("InitializePasswordTracking failed: %v", err)
		}
		if !record.ExpiryDate.Equal(now.Add(10 * passwordpolicy.Day)) {
			t.Fatalf("unexpected expiry %s", record.ExpiryDate)
		}
		if record.ReminderSent || record.Lock.IsLocked() {
			t.Fatalf("expected fresh record, got %#v", record)
		}
	})

	t.Run("falls back to the policy default", func(t *testing.T) {
		t.Parallel()

		svc := NewPasswordService(newPasswordRecordStoreStub(), nil, passwordpolicy.Policy{}, fixedClock(now))
		record, err := svc.InitializePasswordTracking(context.Background(), "user-1", 0)
		if err != nil {
			t.Fatalf("InitializePasswordTracking failed: %v", err)
		}
		if record.WindowDays != passwordpolicy.DefaultWindowDays {
			t.Fatalf("expected default window, got %d", record.WindowDays)
		}
	})

	t.Run("keeps an existing cycle", func(t *testing.T) {
		t.Parallel()

		existing := passwordpolicy.NewRecord("user-1", now.Add(-3*passwordpolicy.Day), 30)
		records := newPasswordRecordStoreStub(existing)
		svc := NewPasswordService(records, nil, passwordpolicy.Policy{}, fixedClock(now))

		record, err := svc.InitializePasswordTracking(context.Background(), "user-1", 5)
		if err != nil {
			t.Fatalf("InitializePasswordTracking failed: %v", err)
		}
		if !record.ExpiryDate.Equal(existing.ExpiryDate) {
			t.Fatalf("expected existing expiry %s, got %s", existing.ExpiryDate, record.ExpiryDate)
		}
	})

	t.Run("requires a user id", func(t *testing.T) {
		t.Parallel()

		svc := NewPasswordService(newPasswordRecordStoreStub(), nil, passwordpolicy.Policy{}, fixedClock(now))
		var vErr *ValidationError
		if _, err := svc.InitializePasswordTracking(context.Background(), "", 5); !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestPasswordService_WindowFor(t *testing.T) {
	t.Parallel()

	svc := NewPasswordService(nil, nil, passwordpolicy.Policy{
		DefaultWindowDays: 45,
		WindowDaysByClass: map[string]int{string(RoleAdmin): 15},
	}, nil)

	if got := svc.WindowFor(RoleAdmin); got != 15 {
		t.Fatalf("expected admin window 15, got %d", got)
	}
	if got := svc.WindowFor(RoleStudent); got != 45 {
		t.Fatalf("expected default window 45, got %d", got)
	}
}
