package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/dojo-portal/internal/application"
	"github.com/example/dojo-portal/internal/config"
	"github.com/example/dojo-portal/internal/passwordpolicy"
	"github.com/example/dojo-portal/internal/persistence"
	"github.com/example/dojo-portal/internal/testfixtures"
)

var fastHash = application.Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type capturingNotifier struct {
	mu        sync.Mutex
	reminders []application.ExpiryReminder
}

func (n *capturingNotifier) SendExpiryReminder(_ context.Context, reminder application.ExpiryReminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, reminder)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		SessionSecret:      "test-secret",
		SessionTTL:         time.Hour,
		Location:           time.UTC,
		LogLevel:           slog.LevelDebug,
		PasswordWindowDays: passwordpolicy.DefaultWindowDays,
		ReminderLeadDays:   passwordpolicy.ReminderLeadDays,
		SweepSpec:          "@hourly",
	}
}

func newTestApp(t *testing.T, harness *testfixtures.SQLiteHarness, clock *testfixtures.Clock, notifier application.Notifier) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(testConfig(), harness.Storage, notifier, clock.NowFunc(), logger)
	if err != nil {
		t.Fatalf("newApp returned error: %v", err)
	}
	return a
}

func seedMember(t *testing.T, harness *testfixtures.SQLiteHarness, password string, opts ...testfixtures.UserOption) testfixtures.UserFixture {
	t.Helper()
	hash, err := application.CreatePasswordHash(password, fastHash)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := testfixtures.NewUserFixture(append([]testfixtures.UserOption{testfixtures.WithUserPasswordHash(hash)}, opts...)...)
	harness.SeedUsers(t, user)
	return user
}

func call(t *testing.T, handler http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestExpiredPasswordForcesResetEndToEnd(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.NewClock(time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC))

	user := seedMember(t, harness, "initial-pass", testfixtures.WithUserEmail("kenji@example.com"))
	harness.SeedPasswordRecords(t, testfixtures.NewPasswordRecordFixture(user.ID, testfixtures.ExpiringIn(clock.Now(), -24*time.Hour)))

	a := newTestApp(t, harness, clock, &capturingNotifier{})

	rec := call(t, a.handler, http.MethodPost, "/sessions", "", `{"email":"Kenji@example.com","password":"initial-pass"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	login := decode(t, rec)
	if login["state"] != string(passwordpolicy.StateForcedReset) || login["destination"] != application.ResetDestination {
		t.Fatalf("unexpected login response %v", login)
	}
	token, _ := login["token"].(string)
	if token == "" {
		t.Fatalf("expected a session token")
	}

	if rec := call(t, a.handler, http.MethodGet, "/slots", token, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("restricted session reached slots: %d", rec.Code)
	}

	rec = call(t, a.handler, http.MethodPut, "/password", token, `{"password":"brand-new-pass","confirmation":"brand-new-pass"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["destination"]; got != "/student/dashboard" {
		t.Fatalf("unexpected destination %v", got)
	}

	rec = call(t, a.handler, http.MethodGet, "/slots?date=2026-06-02", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after reset, got %d: %s", rec.Code, rec.Body.String())
	}

	record, err := harness.PasswordRecords.GetPasswordRecord(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetPasswordRecord: %v", err)
	}
	if want := clock.Now().Add(passwordpolicy.DefaultWindowDays * passwordpolicy.Day); !record.ExpiryDate.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, record.ExpiryDate)
	}

	rec = call(t, a.handler, http.MethodPost, "/sessions", "", `{"email":"kenji@example.com","password":"brand-new-pass"}`)
	if state := decode(t, rec)["state"]; state != string(passwordpolicy.StateActive) {
		t.Fatalf("expected active state with the new password, got %v", state)
	}
}

func TestEventBookingEndToEnd(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.NewClock(time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC))

	admin := seedMember(t, harness, "admin-pass", testfixtures.WithUserRole(application.RoleAdmin))
	harness.SeedPasswordRecords(t, testfixtures.NewPasswordRecordFixture(admin.ID, testfixtures.ExpiringIn(clock.Now(), 20*24*time.Hour)))

	a := newTestApp(t, harness, clock, &capturingNotifier{})

	login := decode(t, call(t, a.handler, http.MethodPost, "/sessions", "", `{"email":"`+admin.Email+`","password":"admin-pass"}`))
	token, _ := login["token"].(string)

	rec := call(t, a.handler, http.MethodPost, "/events", token, `{"date":"2026-06-03","time":"19:00","capacity":1,"type":"special"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	eventID, _ := decode(t, rec)["id"].(string)

	if rec := call(t, a.handler, http.MethodPost, "/events", token, `{"date":"2026-06-03","time":"7 PM","type":"online-group"}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a taken slot, got %d", rec.Code)
	}

	if rec := call(t, a.handler, http.MethodPost, "/events/"+eventID+"/registrations", token, ""); rec.Code != http.StatusCreated {
		t.Fatalf("expected registration, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := call(t, a.handler, http.MethodPost, "/events/"+eventID+"/registrations", token, ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected full event, got %d", rec.Code)
	}

	availability := decode(t, call(t, a.handler, http.MethodGet, "/availability?from=2026-06-01&to=2026-06-07", token, ""))
	booked, _ := availability["fully_booked"].([]any)
	if len(booked) != 1 || booked[0] != "2026-06-03" {
		t.Fatalf("unexpected fully booked days %v", availability)
	}
}

func TestOnlineGroupSlotEndToEnd(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.NewClock(time.Date(2023, time.September, 1, 9, 0, 0, 0, time.UTC))

	instructor := seedMember(t, harness, "sensei-pass", testfixtures.WithUserRole(application.RoleInstructor))
	harness.SeedPasswordRecords(t, testfixtures.NewPasswordRecordFixture(instructor.ID, testfixtures.ExpiringIn(clock.Now(), 20*24*time.Hour)))

	a := newTestApp(t, harness, clock, &capturingNotifier{})
	login := decode(t, call(t, a.handler, http.MethodPost, "/sessions", "", `{"email":"`+instructor.Email+`","password":"sensei-pass"}`))
	token, _ := login["token"].(string)

	rec := call(t, a.handler, http.MethodPost, "/events", token, `{"date":"2023-09-12","time":"7:00 PM","type":"online-group"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	eventID, _ := decode(t, rec)["id"].(string)
	for i := 0; i < 15; i++ {
		if rec := call(t, a.handler, http.MethodPost, "/events/"+eventID+"/registrations", token, ""); rec.Code != http.StatusCreated {
			t.Fatalf("registration %d: expected 201, got %d: %s", i+1, rec.Code, rec.Body.String())
		}
	}

	rec = call(t, a.handler, http.MethodGet, "/slots?date=2023-09-12", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	slots, _ := decode(t, rec)["slots"].([]any)
	if len(slots) != 12 {
		t.Fatalf("expected 12 slots, got %d", len(slots))
	}
	for _, raw := range slots {
		slot, _ := raw.(map[string]any)
		if slot["time"] != "7:00 PM" {
			if slot["available"] != true || slot["capacity"] != float64(0) {
				t.Fatalf("expected an open unbooked slot, got %v", slot)
			}
			continue
		}
		if slot["available"] != true || slot["capacity"] != float64(20) || slot["registered_users"] != float64(15) || slot["type"] != "online-group" {
			t.Fatalf("unexpected 7:00 PM slot %v", slot)
		}
	}
}

func TestPasswordSweepEndToEnd(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.NewClock(time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC))
	now := clock.Now()

	due := seedMember(t, harness, "due-pass")
	expired := seedMember(t, harness, "expired-pass")
	later := seedMember(t, harness, "later-pass")
	harness.SeedPasswordRecords(t,
		testfixtures.NewPasswordRecordFixture(due.ID, testfixtures.ExpiringIn(now, 3*24*time.Hour)),
		testfixtures.NewPasswordRecordFixture(expired.ID, testfixtures.ExpiringIn(now, -2*time.Hour)),
		testfixtures.NewPasswordRecordFixture(later.ID, testfixtures.ExpiringIn(now, 20*24*time.Hour)),
	)

	notifier := &capturingNotifier{}
	a := newTestApp(t, harness, clock, notifier)

	report, err := a.scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if report.Reminded != 1 || report.Suspended != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(notifier.reminders) != 1 || notifier.reminders[0].Email != due.Email || notifier.reminders[0].DaysLeft != 3 {
		t.Fatalf("unexpected reminders %+v", notifier.reminders)
	}

	report, err = a.scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce returned error: %v", err)
	}
	if report.Reminded != 0 || report.Suspended != 0 {
		t.Fatalf("second sweep should be a no-op, got %+v", report)
	}

	record, err := harness.PasswordRecords.GetPasswordRecord(context.Background(), expired.ID)
	if err != nil {
		t.Fatalf("GetPasswordRecord: %v", err)
	}
	if record.SuspendedAt == nil {
		t.Fatalf("expected expired account to be suspended")
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{in: persistence.ErrNotFound, want: application.ErrNotFound},
		{in: persistence.ErrDuplicate, want: application.ErrAlreadyExists},
		{in: persistence.ErrCapacityExceeded, want: application.ErrCapacityReached},
	}
	for _, tc := range tests {
		got := mapError(tc.in)
		if !errors.Is(got, tc.want) || !errors.Is(got, tc.in) {
			t.Fatalf("mapError(%v) = %v, want both %v and the original", tc.in, got, tc.want)
		}
	}

	if mapError(nil) != nil {
		t.Fatalf("mapError(nil) should be nil")
	}
	other := errors.New("disk full")
	if mapError(other) != other {
		t.Fatalf("unmapped errors should pass through")
	}
}

func TestNewSessionTokenProducesDistinctTokens(t *testing.T) {
	first, second := newSessionToken(), newSessionToken()
	if len(first) != 64 || first == second {
		t.Fatalf("unexpected tokens %q %q", first, second)
	}
}

func TestSessionAdapterStoresTokenDigest(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	user := seedMember(t, harness, "member-pass")
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)

	sessions := newSessionRepositoryAdapter(harness.Storage, "test-secret")
	created, err := sessions.CreateSession(ctx, application.Session{
		ID:        "session-1",
		UserID:    user.ID,
		Token:     "issued-token",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if created.Token != "issued-token" {
		t.Fatalf("expected caller to keep the issued token, got %q", created.Token)
	}

	if _, err := harness.Storage.GetSession(ctx, "issued-token"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected raw token to be absent from storage, got %v", err)
	}

	loaded, err := sessions.GetSession(ctx, "issued-token")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if loaded.ID != "session-1" || loaded.Token != "issued-token" {
		t.Fatalf("unexpected session %#v", loaded)
	}

	other := newSessionRepositoryAdapter(harness.Storage, "other-secret")
	if _, err := other.GetSession(ctx, "issued-token"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected lookup under another secret to fail, got %v", err)
	}

	revoked, err := sessions.RevokeSession(ctx, "issued-token", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("RevokeSession returned error: %v", err)
	}
	if revoked.RevokedAt == nil || revoked.Token != "issued-token" {
		t.Fatalf("expected revoked session with issued token, got %#v", revoked)
	}
}
