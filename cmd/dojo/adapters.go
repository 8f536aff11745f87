package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/example/dojo-portal/internal/application"
	"github.com/example/dojo-portal/internal/booking"
	"github.com/example/dojo-portal/internal/passwordpolicy"
	"github.com/example/dojo-portal/internal/persistence"
)

// mapError translates persistence sentinels into their application
// counterparts while keeping the original error in the chain.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %w", application.ErrNotFound, err)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %w", application.ErrAlreadyExists, err)
	case errors.Is(err, persistence.ErrCapacityExceeded):
		return fmt.Errorf("%w: %w", application.ErrCapacityReached, err)
	}
	return err
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateAccount(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, mapError(err)
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, mapError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) ListAccounts(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentials(ctx context.Context, userID string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return application.UserCredentials{}, mapError(err)
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *userRepositoryAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, mapError(err)
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *userRepositoryAdapter) UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	return mapError(a.repo.UpdatePasswordHash(ctx, userID, passwordHash, updatedAt))
}

type passwordRecordAdapter struct {
	repo persistence.PasswordRecordRepository
	now  func() time.Time
}

func newPasswordRecordAdapter(repo persistence.PasswordRecordRepository, now func() time.Time) *passwordRecordAdapter {
	if now == nil {
		now = time.Now
	}
	return &passwordRecordAdapter{repo: repo, now: now}
}

func (a *passwordRecordAdapter) InsertRecord(ctx context.Context, record passwordpolicy.Record) error {
	return mapError(a.repo.InsertPasswordRecord(ctx, toPersistenceRecord(record, a.now())))
}

func (a *passwordRecordAdapter) GetRecord(ctx context.Context, userID string) (passwordpolicy.Record, error) {
	stored, err := a.repo.GetPasswordRecord(ctx, userID)
	if err != nil {
		return passwordpolicy.Record{}, mapError(err)
	}
	return toDomainRecord(stored), nil
}

func (a *passwordRecordAdapter) SaveRecord(ctx context.Context, record passwordpolicy.Record) error {
	return mapError(a.repo.SavePasswordRecord(ctx, toPersistenceRecord(record, a.now())))
}

func (a *passwordRecordAdapter) ListReminderCandidates(ctx context.Context, from, to time.Time) ([]passwordpolicy.Record, error) {
	models, err := a.repo.ListReminderCandidates(ctx, from, to)
	if err != nil {
		return nil, mapError(err)
	}
	return toDomainRecords(models), nil
}

func (a *passwordRecordAdapter) ListSuspensionCandidates(ctx context.Context, reference time.Time) ([]passwordpolicy.Record, error) {
	models, err := a.repo.ListSuspensionCandidates(ctx, reference)
	if err != nil {
		return nil, mapError(err)
	}
	return toDomainRecords(models), nil
}

func (a *passwordRecordAdapter) MarkReminderSent(ctx context.Context, userID string, expiry, at time.Time) (bool, error) {
	marked, err := a.repo.MarkReminderSent(ctx, userID, expiry, at)
	return marked, mapError(err)
}

func (a *passwordRecordAdapter) Suspend(ctx context.Context, userID string, at time.Time) (bool, error) {
	suspended, err := a.repo.Suspend(ctx, userID, at)
	return suspended, mapError(err)
}

// sessionRepositoryAdapter stores only an HMAC of each session token so a
// leaked sessions table cannot be replayed without the deployment secret.
type sessionRepositoryAdapter struct {
	repo   persistence.SessionRepository
	secret []byte
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository, secret string) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo, secret: []byte(secret)}
}

func (a *sessionRepositoryAdapter) digest(token string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// restore swaps the stored digest back for the token the caller presented.
func (a *sessionRepositoryAdapter) restore(stored persistence.Session, token string) application.Session {
	session := toApplicationSession(stored)
	session.Token = token
	return session
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	model := toPersistenceSession(session)
	model.Token = a.digest(session.Token)
	stored, err := a.repo.CreateSession(ctx, model)
	if err != nil {
		return application.Session{}, mapError(err)
	}
	return a.restore(stored, session.Token), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, a.digest(token))
	if err != nil {
		return application.Session{}, mapError(err)
	}
	return a.restore(stored, token), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	model := toPersistenceSession(session)
	model.Token = a.digest(session.Token)
	stored, err := a.repo.UpdateSession(ctx, model)
	if err != nil {
		return application.Session{}, mapError(err)
	}
	return a.restore(stored, session.Token), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, a.digest(token), revokedAt)
	if err != nil {
		return application.Session{}, mapError(err)
	}
	return a.restore(stored, token), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return mapError(a.repo.DeleteExpiredSessions(ctx, reference))
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event booking.Event, createdAt time.Time) (booking.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event, createdAt)); err != nil {
		return booking.Event{}, mapError(err)
	}
	return a.GetEvent(ctx, event.ID)
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (booking.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return booking.Event{}, mapError(err)
	}
	return toDomainEvent(stored)
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context, from, to booking.Day) ([]booking.Event, error) {
	models, err := a.repo.ListEvents(ctx, persistence.EventFilter{FromDay: from.String(), ToDay: to.String()})
	if err != nil {
		return nil, mapError(err)
	}
	events := make([]booking.Event, 0, len(models))
	for _, model := range models {
		event, err := toDomainEvent(model)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return mapError(a.repo.DeleteEvent(ctx, id))
}

func (a *eventRepositoryAdapter) IncrementRegistrations(ctx context.Context, id string, ceiling int, updatedAt time.Time) (booking.Event, error) {
	stored, err := a.repo.IncrementRegistrations(ctx, id, ceiling, updatedAt)
	if err != nil {
		return booking.Event{}, mapError(err)
	}
	return toDomainEvent(stored)
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		Role:        application.Role(model.Role),
		Disabled:    model.Disabled,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		Role:         string(user.Role),
		PasswordHash: passwordHash,
		Disabled:     user.Disabled,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toDomainRecord(model persistence.PasswordRecord) passwordpolicy.Record {
	lock := passwordpolicy.Unlocked()
	if model.SuspendedAt != nil {
		lock = passwordpolicy.LockedSince(*model.SuspendedAt)
	}
	return passwordpolicy.Record{
		UserID:       model.UserID,
		LastChanged:  model.LastChanged,
		ExpiryDate:   model.ExpiryDate,
		WindowDays:   model.WindowDays,
		ReminderSent: model.ReminderSent,
		Lock:         lock,
	}
}

func toDomainRecords(models []persistence.PasswordRecord) []passwordpolicy.Record {
	if len(models) == 0 {
		return nil
	}
	records := make([]passwordpolicy.Record, 0, len(models))
	for _, model := range models {
		records = append(records, toDomainRecord(model))
	}
	return records
}

func toPersistenceRecord(record passwordpolicy.Record, updatedAt time.Time) persistence.PasswordRecord {
	var suspendedAt *time.Time
	if since, locked := record.Lock.Since(); locked {
		suspendedAt = &since
	}
	return persistence.PasswordRecord{
		UserID:       record.UserID,
		LastChanged:  record.LastChanged,
		ExpiryDate:   record.ExpiryDate,
		WindowDays:   record.WindowDays,
		ReminderSent: record.ReminderSent,
		SuspendedAt:  suspendedAt,
		UpdatedAt:    updatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:            model.ID,
		UserID:        model.UserID,
		Token:         model.Token,
		Fingerprint:   model.Fingerprint,
		ResetRequired: model.ResetRequired,
		ExpiresAt:     model.ExpiresAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
		RevokedAt:     cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:            session.ID,
		UserID:        session.UserID,
		Token:         session.Token,
		Fingerprint:   session.Fingerprint,
		ResetRequired: session.ResetRequired,
		ExpiresAt:     session.ExpiresAt,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
		RevokedAt:     cloneTime(session.RevokedAt),
	}
}

func toDomainEvent(model persistence.Event) (booking.Event, error) {
	day, err := booking.ParseDay(model.Day)
	if err != nil {
		return booking.Event{}, fmt.Errorf("event %s: %w", model.ID, err)
	}
	return booking.Event{
		ID:              model.ID,
		Day:             day,
		Time:            model.TimeLabel,
		Location:        model.Location,
		Capacity:        model.Capacity,
		RegisteredUsers: model.RegisteredUsers,
		Type:            booking.SessionType(model.Type),
	}, nil
}

func toPersistenceEvent(event booking.Event, createdAt time.Time) persistence.Event {
	return persistence.Event{
		ID:              event.ID,
		Day:             event.Day.String(),
		TimeLabel:       event.Time,
		Location:        event.Location,
		Capacity:        event.Capacity,
		RegisteredUsers: event.RegisteredUsers,
		Type:            string(event.Type),
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
