package sqlite

import (
	"context"

	"github.com/example/dojo-portal/internal/persistence"
	"github.com/example/dojo-portal/internal/persistence/sqlite/migration"
)

var (
	_ persistence.UserRepository           = (*Storage)(nil)
	_ persistence.PasswordRecordRepository = (*Storage)(nil)
	_ persistence.SessionRepository        = (*Storage)(nil)
	_ persistence.EventRepository          = (*Storage)(nil)
)

// Storage bundles every SQLite repository behind a single connection pool.
type Storage struct {
	pool *ConnectionPool

	*UserRepository
	*PasswordRecordRepository
	*SessionRepository
	*EventRepository
}

// Open connects to the database described by config.
func Open(config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	return &Storage{
		pool:                     pool,
		UserRepository:           NewUserRepository(pool),
		PasswordRecordRepository: NewPasswordRecordRepository(pool),
		SessionRepository:        NewSessionRepository(pool),
		EventRepository:          NewEventRepository(pool),
	}, nil
}

// Migrate applies pending schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	return migration.Up(ctx, s.pool.DB())
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
