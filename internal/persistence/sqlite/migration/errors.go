package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed indicates that applying migrations failed.
	ErrMigrationFailed = errors.New("migration execution failed")

	// ErrDirtyVersion indicates a previous migration stopped half way.
	ErrDirtyVersion = errors.New("schema_migrations version is dirty")
)

// MigrationError wraps migration-specific errors with additional context
type MigrationError struct {
	Version   uint   // Schema version at the time of failure
	Operation string // Operation being performed (source, driver, up)
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *MigrationError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("migration %d: %s: %v", e.Version, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration error: %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for error unwrapping
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Is reports ErrMigrationFailed for every MigrationError in addition to the wrapped error.
func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationFailed
}

// NewMigrationError creates a new MigrationError with context
func NewMigrationError(version uint, operation string, err error) *MigrationError {
	return &MigrationError{
		Version:   version,
		Operation: operation,
		Err:       err,
	}
}
