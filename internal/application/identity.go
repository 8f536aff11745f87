package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidPasswordHash         = errors.New("invalid password hash format")
	ErrIncompatiblePasswordVersion = errors.New("incompatible password hash version")
)

type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// PasswordHasher turns a plaintext password into a storable hash.
type PasswordHasher func(password string) (string, error)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// HashPassword hashes with DefaultArgon2idParams.
func HashPassword(password string) (string, error) {
	return CreatePasswordHash(password, DefaultArgon2idParams)
}

func CreatePasswordHash(password string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// Format is $argon2id$v=19$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

func VerifyPassword(hashedPassword, password string) error {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrInvalidPasswordHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return ErrInvalidPasswordHash
	}
	if version != argon2.Version {
		return ErrIncompatiblePasswordVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return ErrInvalidPasswordHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrInvalidPasswordHash
	}

	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ErrInvalidPasswordHash
	}
	params.KeyLength = uint32(len(decodedHash))

	comparisonHash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	if subtle.ConstantTimeCompare(decodedHash, comparisonHash) == 1 {
		return nil
	}

	return ErrInvalidCredentials
}

// CredentialRepository stores credential hashes for the built-in identity provider.
type CredentialRepository interface {
	GetUserCredentials(ctx context.Context, userID string) (UserCredentials, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
}

// RevertFunc undoes a credential change.
type RevertFunc func(ctx context.Context) error

// CredentialUpdater is the identity provider step of a password change. On
// success it returns the action that restores the previous credential.
type CredentialUpdater interface {
	SetPassword(ctx context.Context, userID, newPassword string) (RevertFunc, error)
}

// LocalIdentity is the identity provider backed by the portal's own user table.
type LocalIdentity struct {
	credentials CredentialRepository
	hash        PasswordHasher
	now         func() time.Time
	logger      *slog.Logger
}

// NewLocalIdentity constructs a LocalIdentity. A nil hasher selects HashPassword.
func NewLocalIdentity(credentials CredentialRepository, hash PasswordHasher, now func() time.Time, logger *slog.Logger) *LocalIdentity {
	if hash == nil {
		hash = HashPassword
	}
	if now == nil {
		now = time.Now
	}
	return &LocalIdentity{credentials: credentials, hash: hash, now: now, logger: defaultLogger(logger)}
}

// SetPassword hashes and stores newPassword for userID.
func (l *LocalIdentity) SetPassword(ctx context.Context, userID, newPassword string) (revert RevertFunc, err error) {
	if l == nil || l.credentials == nil {
		return nil, fmt.Errorf("credential repository not configured")
	}

	logger := serviceLogger(ctx, l.logger, "LocalIdentity", "SetPassword", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "credential update failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var current UserCredentials
	current, err = l.credentials.GetUserCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	var hashed string
	hashed, err = l.hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err = l.credentials.UpdatePasswordHash(ctx, userID, hashed, l.now()); err != nil {
		return nil, err
	}

	previous := current.PasswordHash
	revert = func(ctx context.Context) error {
		return l.credentials.UpdatePasswordHash(ctx, userID, previous, l.now())
	}
	return revert, nil
}
