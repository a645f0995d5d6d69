package backup

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied indicates the provider lacks a required storage permission.
// The provider is disabled; the condition is user-actionable.
var ErrPermissionDenied = errors.New("storage permission denied")

// ErrUnauthenticated indicates the signed-in account is absent or comes from
// the wrong authentication source for the provider.
var ErrUnauthenticated = errors.New("account missing or from wrong authentication source")

// ProviderUnavailableError is returned when an operation is routed to a
// provider that is not currently active. No I/O is attempted.
type ProviderUnavailableError struct {
	Provider StorageProvider
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("backup provider %q is not active", e.Provider)
}

// ConnectionError indicates a provider could not establish its session or
// base directory. The provider flips to disabled and the error is surfaced
// exactly once; it is not retried automatically.
type ConnectionError struct {
	Provider StorageProvider
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("backup provider %q failed to connect: %v", e.Provider, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CorruptPayloadError indicates a stored backup failed to decode. During
// listing these are recovered locally: the entry is logged and dropped.
type CorruptPayloadError struct {
	Reason string
	Err    error
}

func (e *CorruptPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt backup payload: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt backup payload: %s", e.Reason)
}

func (e *CorruptPayloadError) Unwrap() error { return e.Err }

// IdentityMappingError is a fatal restore-time referential-integrity
// violation: a restored page record references a book that cannot be
// resolved after insertion. The restore halts with zero records inserted.
type IdentityMappingError struct {
	BookID uint
}

func (e *IdentityMappingError) Error() string {
	return fmt.Sprintf("restored page record references unknown book id %d", e.BookID)
}
