package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/dojo-portal/internal/application"
	"github.com/example/dojo-portal/internal/passwordpolicy"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) now(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

func (f *ServiceFactory) ids(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

// PasswordServiceDeps captures dependencies for constructing a password service.
type PasswordServiceDeps struct {
	Records  application.PasswordRecordStore
	Identity application.CredentialUpdater
	Policy   passwordpolicy.Policy
	Now      func() time.Time
	Logger   *slog.Logger
}

// NewPasswordService builds a password service using the supplied dependencies.
func (f *ServiceFactory) NewPasswordService(deps PasswordServiceDeps) *application.PasswordService {
	return application.NewPasswordServiceWithLogger(
		deps.Records,
		deps.Identity,
		deps.Policy,
		f.now(deps.Now),
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	Passwords      application.PasswordManager
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		deps.Passwords,
		deps.PasswordVerify,
		f.ids(deps.TokenGenerator),
		f.now(deps.Now),
		deps.SessionTTL,
		deps.Logger,
	)
}

// AccountServiceDeps captures dependencies for constructing an account service.
type AccountServiceDeps struct {
	Accounts    application.AccountRepository
	Tracker     application.PasswordTracker
	Hash        application.PasswordHasher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewAccountService builds an account service using the supplied dependencies.
func (f *ServiceFactory) NewAccountService(deps AccountServiceDeps) *application.AccountService {
	return application.NewAccountServiceWithLogger(
		deps.Accounts,
		deps.Tracker,
		deps.Hash,
		f.ids(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// EventServiceDeps captures dependencies for constructing an event service.
type EventServiceDeps struct {
	Events      application.EventRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEventService builds an event service using the supplied dependencies.
func (f *ServiceFactory) NewEventService(deps EventServiceDeps) *application.EventService {
	return application.NewEventServiceWithLogger(
		deps.Events,
		f.ids(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// SweepServiceDeps captures dependencies for constructing a sweep service.
type SweepServiceDeps struct {
	Records  application.PasswordRecordStore
	Accounts application.AccountDirectory
	Notifier application.Notifier
	Lead     time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// NewSweepService builds a sweep service using the supplied dependencies.
func (f *ServiceFactory) NewSweepService(deps SweepServiceDeps) *application.SweepService {
	return application.NewSweepServiceWithLogger(
		deps.Records,
		deps.Accounts,
		deps.Notifier,
		deps.Lead,
		f.now(deps.Now),
		deps.Logger,
	)
}
