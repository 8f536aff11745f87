package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/dojo-portal/internal/persistence"
	"github.com/example/dojo-portal/internal/persistence/sqlite"
	"github.com/example/dojo-portal/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Storage         *sqlite.Storage
	Users           persistence.UserRepository
	PasswordRecords persistence.PasswordRecordRepository
	Sessions        persistence.SessionRepository
	Events          persistence.EventRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "dojo.db")

	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:         storage,
		Users:           storage,
		PasswordRecords: storage,
		Sessions:        storage,
		Events:          storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUsers inserts the fixtures and fails the test on the first error.
func (h *SQLiteHarness) SeedUsers(tb testing.TB, users ...UserFixture) {
	tb.Helper()
	for _, user := range users {
		if err := h.Users.CreateUser(context.Background(), user.Persistence()); err != nil {
			tb.Fatalf("failed to seed user %s: %v", user.ID, err)
		}
	}
}

// SeedPasswordRecords inserts the fixtures and fails the test on the first error.
func (h *SQLiteHarness) SeedPasswordRecords(tb testing.TB, records ...PasswordRecordFixture) {
	tb.Helper()
	for _, record := range records {
		if err := h.PasswordRecords.InsertPasswordRecord(context.Background(), record.Persistence()); err != nil {
			tb.Fatalf("failed to seed password record %s: %v", record.UserID, err)
		}
	}
}

// SeedEvents inserts the fixtures and fails the test on the first error.
func (h *SQLiteHarness) SeedEvents(tb testing.TB, events ...EventFixture) {
	tb.Helper()
	for _, event := range events {
		if err := h.Events.CreateEvent(context.Background(), event.Persistence()); err != nil {
			tb.Fatalf("failed to seed event %s: %v", event.ID, err)
		}
	}
}
