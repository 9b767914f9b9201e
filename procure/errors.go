/*
errors.go - Centralized error types for the procurement engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (API layer, retry loops) classify errors with the helpers at the
  bottom instead of matching strings.

ERROR CATEGORIES:
  1. Not-found errors - PO or active-revision lookup failures
  2. Input errors - malformed or empty requests
  3. Business-rule errors - receipt against inactive PO, unknown line,
     product mismatch, fully-received line without override
  4. Storage errors - transient store failures, safe to retry

USAGE:
  if errors.Is(err, procure.ErrFullyReceived) { ... }

  var lineErr *procure.LineError
  if errors.As(err, &lineErr) {
      // lineErr.Sr / lineErr.ProID identify the offending request line
  }

SEE ALSO:
  - reconcile.go, revision.go: Produce these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package procure

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPONotFound is returned when no header matches the given identifier.
	ErrPONotFound = errors.New("purchase order not found")

	// ErrActivePONotFound is returned when a PO number has no active revision.
	ErrActivePONotFound = errors.New("active purchase order not found")

	// ErrInvalidInput is returned for malformed requests (empty line list,
	// missing PO number, non-positive quantity).
	ErrInvalidInput = errors.New("invalid input")

	// ErrPONotActive is returned when a GRN targets a superseded revision.
	ErrPONotActive = errors.New("purchase order is not active")

	// ErrPONumberInUse is returned when creating a PO whose number already
	// has a revision lineage.
	ErrPONumberInUse = errors.New("purchase order number already in use")

	// ErrUnknownLine is returned when a submitted line's sequence number does
	// not exist on the targeted revision.
	ErrUnknownLine = errors.New("unknown purchase order line")

	// ErrProductMismatch is returned when a submitted line's product does not
	// match the product recorded on the PO line with the same sequence number.
	ErrProductMismatch = errors.New("product mismatch")

	// ErrFullyReceived is returned when receiving against a line with no
	// pending quantity and extra stock was not authorized.
	ErrFullyReceived = errors.New("line already fully received")

	// ErrDuplicateGRN is returned when a GRN number was already posted.
	// Expected on retry after a partially applied receive call.
	ErrDuplicateGRN = errors.New("duplicate GRN number")

	// ErrActiveRevisionConflict is returned by the store when a write would
	// leave more than one active header for a PO number. Retryable.
	ErrActiveRevisionConflict = errors.New("concurrent revision: active header conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LineError reports a business-rule violation on a specific request line,
// with enough detail for the caller to correct the request.
type LineError struct {
	Sr    int
	ProID int
	Err   error // one of ErrUnknownLine, ErrProductMismatch, ErrFullyReceived
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (product %d): %v", e.Sr, e.ProID, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// InputError names the request field that failed validation.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// StorageError wraps a transient store failure. Distinct from business
// errors so callers can retry it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storeErr wraps an unexpected store error, passing through errors the
// engine itself understands.
func storeErr(op string, err error) error {
	if IsClientError(err) || IsNotFound(err) || errors.Is(err, ErrActiveRevisionConflict) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing PO or revision.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPONotFound) ||
		errors.Is(err, ErrActivePONotFound)
}

// IsClientError returns true if the error is due to invalid client input or
// a business-rule violation. Retrying without changing the request will fail
// the same way.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrPONotActive) ||
		errors.Is(err, ErrPONumberInUse) ||
		errors.Is(err, ErrUnknownLine) ||
		errors.Is(err, ErrProductMismatch) ||
		errors.Is(err, ErrFullyReceived) ||
		errors.Is(err, ErrDuplicateGRN)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrActiveRevisionConflict) {
		return true
	}
	var se *StorageError
	return errors.As(err, &se)
}
