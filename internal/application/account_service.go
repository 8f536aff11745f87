package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/dojo-portal/internal/passwordpolicy"
)

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 8

// AccountRepository captures the persistence operations needed by the account service.
type AccountRepository interface {
	CreateAccount(ctx context.Context, user User, passwordHash string) (User, error)
	ListAccounts(ctx context.Context) ([]User, error)
}

// PasswordTracker starts password age tracking for a new account.
type PasswordTracker interface {
	WindowFor(role Role) int
	InitializePasswordTracking(ctx context.Context, userID string, expiryDays int) (passwordpolicy.Record, error)
}

// AccountService provisions member, instructor and administrator accounts.
type AccountService struct {
	accounts    AccountRepository
	tracker     PasswordTracker
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAccountService wires dependencies for the account service.
func NewAccountService(accounts AccountRepository, tracker PasswordTracker, hash PasswordHasher, idGenerator func() string, now func() time.Time) *AccountService {
	return NewAccountServiceWithLogger(accounts, tracker, hash, idGenerator, now, nil)
}

// NewAccountServiceWithLogger wires dependencies for the account service with a specified logger.
func NewAccountServiceWithLogger(accounts AccountRepository, tracker PasswordTracker, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccountService {
	if hash == nil {
		hash = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AccountService{
		accounts:    accounts,
		tracker:     tracker,
		hash:        hash,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// Provision validates input, stores the account with a hashed password, and
// starts password tracking with the window of the account's class.
func (s *AccountService) Provision(ctx context.Context, params ProvisionAccountParams) (user User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("AccountService is nil")
	}

	logger := s.loggerWith(ctx, "Provision", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "account provisioning failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID, "role", user.Role).InfoContext(ctx, "account provisioned")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	normalized := normalizeAccountInput(params.Input)
	if vErr := validateAccountInput(normalized); vErr.HasErrors() {
		err = vErr
		return
	}

	var hashed string
	hashed, err = s.hash(normalized.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user, err = s.accounts.CreateAccount(ctx, User{
		ID:          s.idGenerator(),
		Email:       normalized.Email,
		DisplayName: normalized.DisplayName,
		Role:        normalized.Role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, hashed)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			err = fieldError("email", "email is already registered")
		}
		return
	}

	if s.tracker != nil {
		if _, err = s.tracker.InitializePasswordTracking(ctx, user.ID, s.tracker.WindowFor(user.Role)); err != nil {
			err = fmt.Errorf("initialize password tracking: %w", err)
			return
		}
	}

	return user, nil
}

// ListAccounts returns all accounts for administrators, ordered by email.
func (s *AccountService) ListAccounts(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("AccountService is nil")
	}
	if !principal.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if s.accounts == nil {
		return nil, nil
	}

	users, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		s.loggerWith(ctx, "ListAccounts").ErrorContext(ctx, "failed to list accounts", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	out := make([]User, len(users))
	copy(out, users)

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Email, out[j].Email) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
	})

	return out, nil
}

func normalizeAccountInput(input AccountInput) AccountInput {
	return AccountInput{
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Role:        Role(strings.ToLower(strings.TrimSpace(string(input.Role)))),
		Password:    input.Password,
	}
}

func validateAccountInput(input AccountInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	if !input.Role.Valid() {
		vErr.add("role", "role must be student, instructor or admin")
	}

	if len(input.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	return vErr
}
