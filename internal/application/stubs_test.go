package application

import (
	"context"
	"sort"
	"time"

	"github.com/example/dojo-portal/internal/booking"
	"github.com/example/dojo-portal/internal/passwordpolicy"
)

func plainVerifier(hashedPassword, password string) error {
	if hashedPassword == password {
		return nil
	}
	return ErrInvalidCredentials
}

func plainHasher(password string) (string, error) {
	return "hashed:" + password, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequenceGenerator(values ...string) func() string {
	return func() string {
		if len(values) == 0 {
			return "fallback"
		}
		next := values[0]
		values = values[1:]
		return next
	}
}

// credentialStoreStub implements CredentialStore and CredentialRepository for tests.
type credentialStoreStub struct {
	credentials UserCredentials
	err         error
	updateErr   error

	hashUpdates []string
}

func (c *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	if c.err != nil {
		return UserCredentials{}, c.err
	}
	if c.credentials.User.ID == "" || c.credentials.User.Email != email {
		return UserCredentials{}, ErrNotFound
	}
	return c.credentials, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	if c.err != nil {
		return User{}, c.err
	}
	if c.credentials.User.ID == id {
		return c.credentials.User, nil
	}
	return User{}, ErrNotFound
}

func (c *credentialStoreStub) GetUserCredentials(ctx context.Context, id string) (UserCredentials, error) {
	if c.err != nil {
		return UserCredentials{}, c.err
	}
	if c.credentials.User.ID != id {
		return UserCredentials{}, ErrNotFound
	}
	return c.credentials, nil
}

func (c *credentialStoreStub) UpdatePasswordHash(ctx context.Context, id, hash string, updatedAt time.Time) error {
	if c.updateErr != nil {
		return c.updateErr
	}
	c.credentials.PasswordHash = hash
	c.hashUpdates = append(c.hashUpdates, hash)
	return nil
}

// sessionRepositoryStub provides an in-memory implementation of SessionRepository for tests.
type sessionRepositoryStub struct {
	sessionsByID map[string]Session
	tokenToID    map[string]string

	createErr error
	getErr    error
	updateErr error
	revokeErr error
	deleteErr error

	deleteCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{
		sessionsByID: make(map[string]Session),
		tokenToID:    make(map[string]string),
	}
}

func (s *sessionRepositoryStub) seed(session Session) {
	s.sessionsByID[session.ID] = cloneSession(session)
	s.tokenToID[session.Token] = session.ID
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.seed(session)
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, token string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return cloneSession(s.sessionsByID[id]), nil
}

func (s *sessionRepositoryStub) UpdateSession(ctx context.Context, session Session) (Session, error) {
	if s.updateErr != nil {
		return Session{}, s.updateErr
	}
	current, ok := s.sessionsByID[session.ID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if current.Token != session.Token {
		delete(s.tokenToID, current.Token)
	}
	s.sessionsByID[session.ID] = cloneSession(session)
	s.tokenToID[session.Token] = session.ID
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session := s.sessionsByID[id]
	revoked := revokedAt.UTC()
	session.RevokedAt = &revoked
	session.UpdatedAt = revoked
	s.sessionsByID[id] = session
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	cutoff := reference.UTC()
	s.deleteCalls = append(s.deleteCalls, cutoff)
	for id, session := range s.sessionsByID {
		if session.ExpiresAt.IsZero() {
			continue
		}
		if !session.ExpiresAt.After(cutoff) {
			delete(s.sessionsByID, id)
			delete(s.tokenToID, session.Token)
		}
	}
	return nil
}

func cloneSession(session Session) Session {
	clone := session
	if session.RevokedAt != nil {
		revoked := session.RevokedAt.UTC()
		clone.RevokedAt = &revoked
	}
	return clone
}

// passwordRecordStoreStub keeps password records in memory with the same
// guarded updates as the SQLite store.
type passwordRecordStoreStub struct {
	records map[string]passwordpolicy.Record

	getErr    error
	insertErr error
	saveErr   error
	listErr   error
	markErr   error

	saves int
}

func newPasswordRecordStoreStub(records ...passwordpolicy.Record) *passwordRecordStoreStub {
	stub := &passwordRecordStoreStub{records: make(map[string]passwordpolicy.Record)}
	for _, record := range records {
		stub.records[record.UserID] = record
	}
	return stub
}

func (s *passwordRecordStoreStub) InsertRecord(ctx context.Context, record passwordpolicy.Record) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.records[record.UserID]; ok {
		return ErrAlreadyExists
	}
	s.records[record.UserID] = record
	return nil
}

func (s *passwordRecordStoreStub) GetRecord(ctx context.Context, userID string) (passwordpolicy.Record, error) {
	if s.getErr != nil {
		return passwordpolicy.Record{}, s.getErr
	}
	record, ok := s.records[userID]
	if !ok {
		return passwordpolicy.Record{}, ErrNotFound
	}
	return record, nil
}

func (s *passwordRecordStoreStub) SaveRecord(ctx context.Context, record passwordpolicy.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.records[record.UserID]; !ok {
		return ErrNotFound
	}
	s.saves++
	s.records[record.UserID] = record
	return nil
}

func (s *passwordRecordStoreStub) ListReminderCandidates(ctx context.Context, from, to time.Time) ([]passwordpolicy.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]passwordpolicy.Record, 0)
	for _, record := range s.sorted() {
		if record.ReminderSent || record.Lock.IsLocked() {
			continue
		}
		if record.ExpiryDate.Before(from) || record.ExpiryDate.After(to) {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *passwordRecordStoreStub) ListSuspensionCandidates(ctx context.Context, reference time.Time) ([]passwordpolicy.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]passwordpolicy.Record, 0)
	for _, record := range s.sorted() {
		if !record.Lock.IsLocked() && record.ExpiryDate.Before(reference) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *passwordRecordStoreStub) MarkReminderSent(ctx context.Context, userID string, expiry, at time.Time) (bool, error) {
	if s.markErr != nil {
		return false, s.markErr
	}
	record, ok := s.records[userID]
	if !ok || record.ReminderSent || record.Lock.IsLocked() || !record.ExpiryDate.Equal(expiry) {
		return false, nil
	}
	s.records[userID] = record.MarkReminded()
	return true, nil
}

func (s *passwordRecordStoreStub) Suspend(ctx context.Context, userID string, at time.Time) (bool, error) {
	record, ok := s.records[userID]
	if !ok {
		return false, nil
	}
	suspended, changed := record.Suspend(at)
	s.records[userID] = suspended
	return changed, nil
}

func (s *passwordRecordStoreStub) sorted() []passwordpolicy.Record {
	out := make([]passwordpolicy.Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// credentialUpdaterStub records SetPassword calls and revert invocations.
type credentialUpdaterStub struct {
	err       error
	revertErr error

	calls    []string
	reverted int
}

func (c *credentialUpdaterStub) SetPassword(ctx context.Context, userID, newPassword string) (RevertFunc, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.calls = append(c.calls, userID+":"+newPassword)
	return func(context.Context) error {
		c.reverted++
		return c.revertErr
	}, nil
}

// passwordManagerStub implements PasswordManager for auth tests.
type passwordManagerStub struct {
	status    passwordpolicy.Status
	leadDays  int
	updateErr error
	updates   []string
}

func (p *passwordManagerStub) CheckPasswordStatus(ctx context.Context, userID string) passwordpolicy.Status {
	return p.status
}

func (p *passwordManagerStub) ReminderLeadDays() int {
	return p.leadDays
}

func (p *passwordManagerStub) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if p.updateErr != nil {
		return p.updateErr
	}
	p.updates = append(p.updates, userID)
	return nil
}

// notifierStub captures delivered reminders.
type notifierStub struct {
	err       error
	failFor   map[string]bool
	delivered []ExpiryReminder
}

func (n *notifierStub) SendExpiryReminder(ctx context.Context, reminder ExpiryReminder) error {
	if n.err != nil || n.failFor[reminder.UserID] {
		return errSendFailed
	}
	n.delivered = append(n.delivered, reminder)
	return nil
}

var errSendFailed = &sendError{}

type sendError struct{}

func (*sendError) Error() string { return "send failed" }

// accountRepositoryStub implements AccountRepository and AccountDirectory.
type accountRepositoryStub struct {
	users     []User
	createErr error
	listErr   error
	hashes    map[string]string
}

func (a *accountRepositoryStub) CreateAccount(ctx context.Context, user User, passwordHash string) (User, error) {
	if a.createErr != nil {
		return User{}, a.createErr
	}
	for _, existing := range a.users {
		if existing.Email == user.Email {
			return User{}, ErrAlreadyExists
		}
	}
	if a.hashes == nil {
		a.hashes = make(map[string]string)
	}
	a.hashes[user.ID] = passwordHash
	a.users = append(a.users, user)
	return user, nil
}

func (a *accountRepositoryStub) ListAccounts(ctx context.Context) ([]User, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	return append([]User(nil), a.users...), nil
}

func (a *accountRepositoryStub) GetUser(ctx context.Context, id string) (User, error) {
	for _, user := range a.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

// passwordTrackerStub implements PasswordTracker.
type passwordTrackerStub struct {
	window int
	err    error
	calls  map[string]int
}

func (p *passwordTrackerStub) WindowFor(role Role) int {
	return p.window
}

func (p *passwordTrackerStub) InitializePasswordTracking(ctx context.Context, userID string, expiryDays int) (passwordpolicy.Record, error) {
	if p.err != nil {
		return passwordpolicy.Record{}, p.err
	}
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[userID] = expiryDays
	return passwordpolicy.NewRecord(userID, time.Now(), expiryDays), nil
}

// eventRepositoryStub keeps events in memory and enforces one event per day and time.
type eventRepositoryStub struct {
	events    map[string]booking.Event
	listErr   error
	createErr error
}

func newEventRepositoryStub(events ...booking.Event) *eventRepositoryStub {
	stub := &eventRepositoryStub{events: make(map[string]booking.Event)}
	for _, event := range events {
		stub.events[event.ID] = event
	}
	return stub
}

func (e *eventRepositoryStub) CreateEvent(ctx context.Context, event booking.Event, createdAt time.Time) (booking.Event, error) {
	if e.createErr != nil {
		return booking.Event{}, e.createErr
	}
	for _, existing := range e.events {
		if existing.Day == event.Day && existing.Time == event.Time {
			return booking.Event{}, ErrAlreadyExists
		}
	}
	e.events[event.ID] = event
	return event, nil
}

func (e *eventRepositoryStub) GetEvent(ctx context.Context, id string) (booking.Event, error) {
	event, ok := e.events[id]
	if !ok {
		return booking.Event{}, ErrNotFound
	}
	return event, nil
}

func (e *eventRepositoryStub) ListEvents(ctx context.Context, from, to booking.Day) ([]booking.Event, error) {
	if e.listErr != nil {
		return nil, e.listErr
	}
	out := make([]booking.Event, 0)
	for _, event := range e.events {
		if event.Day.Before(from) || event.Day.After(to) {
			continue
		}
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (e *eventRepositoryStub) DeleteEvent(ctx context.Context, id string) error {
	if _, ok := e.events[id]; !ok {
		return ErrNotFound
	}
	delete(e.events, id)
	return nil
}

func (e *eventRepositoryStub) IncrementRegistrations(ctx context.Context, id string, ceiling int, updatedAt time.Time) (booking.Event, error) {
	event, ok := e.events[id]
	if !ok {
		return booking.Event{}, ErrNotFound
	}
	if event.RegisteredUsers >= ceiling {
		return booking.Event{}, ErrCapacityReached
	}
	event.RegisteredUsers++
	e.events[id] = event
	return event, nil
}
