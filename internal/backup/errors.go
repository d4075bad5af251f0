package backup

import (
	"errors"
	"fmt"
)

// BackupError represents errors that occur during backup and restore operations
type BackupError struct {
	Kind    ErrorKind              `json:"kind"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// ErrorKind represents different classes of backup errors
type ErrorKind string

const (
	// KindConfiguration signals a bad or unwritable backup or data directory
	KindConfiguration ErrorKind = "CONFIGURATION_ERROR"
	// KindSourceMissing signals the data directory was absent at backup or restore time
	KindSourceMissing ErrorKind = "SOURCE_MISSING"
	// KindIO signals transient or permission-related disk errors
	KindIO ErrorKind = "IO_FAILURE"
	// KindCorruption signals an archive that fails structural open or is zero-length
	KindCorruption ErrorKind = "CORRUPTION_ERROR"
	// KindValidationRejected signals pre-restore validation failed before any mutation
	KindValidationRejected ErrorKind = "VALIDATION_REJECTED"
	// KindFatalInconsistent signals rollback-after-failure itself failed; the live
	// data directory requires manual operator intervention
	KindFatalInconsistent ErrorKind = "FATAL_INCONSISTENT"
)

// NewBackupError creates a new BackupError
func NewBackupError(kind ErrorKind, message string, cause error) *BackupError {
	return &BackupError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewConfigurationError(message string, cause error) *BackupError {
	return NewBackupError(KindConfiguration, message, cause)
}

func NewSourceMissingError(message string, cause error) *BackupError {
	return NewBackupError(KindSourceMissing, message, cause)
}

func NewIOError(message string, cause error) *BackupError {
	return NewBackupError(KindIO, message, cause)
}

func NewCorruptionError(message string, cause error) *BackupError {
	return NewBackupError(KindCorruption, message, cause)
}

func NewValidationRejectedError(message string, cause error) *BackupError {
	return NewBackupError(KindValidationRejected, message, cause)
}

// IsKind reports whether err is (or wraps) a BackupError of the given kind.
// A FatalInconsistentError is checked before its constituent errors so it is
// never misreported as the kind of the failure that triggered it.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FatalInconsistentError
	if errors.As(err, &fe) {
		return kind == KindFatalInconsistent
	}
	var be *BackupError
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

// FatalInconsistentError is raised when a rollback after a failed restore itself
// fails. It carries both the triggering error and the rollback error so an
// operator can diagnose without re-deriving state from logs alone.
type FatalInconsistentError struct {
	Original error
	Rollback error
}

// Error implements the error interface
func (e *FatalInconsistentError) Error() string {
	return fmt.Sprintf("%s: restore failed and rollback to safety backup also failed (restore: %v; rollback: %v)",
		KindFatalInconsistent, e.Original, e.Rollback)
}

// Unwrap exposes both constituent errors to errors.Is / errors.As
func (e *FatalInconsistentError) Unwrap() []error {
	return []error{e.Original, e.Rollback}
}

// NewFatalInconsistentError creates a FatalInconsistentError
func NewFatalInconsistentError(original, rollback error) *FatalInconsistentError {
	return &FatalInconsistentError{Original: original, Rollback: rollback}
}
