package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCreatePasswordHash(t *testing.T) {
	t.Parallel()

	params := Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	hash, err := CreatePasswordHash("correct horse", params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected encoding %q", hash)
	}

	if err := VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := VerifyPassword("not-a-hash", "correct horse"); err == nil {
		t.Fatal("expected malformed hash to fail")
	}

	other, err := CreatePasswordHash("correct horse", params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if other == hash {
		t.Fatal("expected distinct salts")
	}
}

func TestLocalIdentity_SetPassword(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stores the new hash and restores the old one", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "hashed:old"}}
		identity := NewLocalIdentity(creds, plainHasher, fixedClock(now), nil)

		revert, err := identity.SetPassword(context.Background(), "user-1", "new")
		if err != nil {
			t.Fatalf("SetPassword failed: %v", err)
		}
		if creds.credentials.PasswordHash != "hashed:new" {
			t.Fatalf("expected new hash, got %q", creds.credentials.PasswordHash)
		}

		if err := revert(context.Background()); err != nil {
			t.Fatalf("revert failed: %v", err)
		}
		if creds.credentials.PasswordHash != "hashed:old" {
			t.Fatalf("expected previous hash, got %q", creds.credentials.PasswordHash)
		}
	})

	t.Run("fails for unknown users", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}}}
		identity := NewLocalIdentity(creds, plainHasher, fixedClock(now), nil)

		if _, err := identity.SetPassword(context.Background(), "user-2", "new"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if len(creds.hashUpdates) != 0 {
			t.Fatalf("expected no hash update, got %v", creds.hashUpdates)
		}
	})
}
