// Package workflow implements the reservation workflow engine: request
// validation, date-overlap conflict detection, the approval state
// machine and the delete-user cascade.  The engine owns no storage and
// no transport; it talks to an injected Store for persistence and to a
// notifier.Dispatcher for best-effort side effects.
package workflow

import (
	"errors"
	"fmt"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// ValidationError reports a missing or malformed request field, an
// invalid date ordering or a start date in the past.  Nothing has been
// persisted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictError reports that the requested date range intersects
// existing non-cancelled reservations on the same chamber.  Conflicts
// carries the offending rows so callers can suggest alternatives.
type ConflictError struct {
	Conflicts []model.Reservation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("date range conflicts with %d existing reservation(s)", len(e.Conflicts))
}

// NotFoundError reports an absent reservation, user or chamber id.
type NotFoundError struct {
	Entity string
	ID     uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// AuthorizationError reports a non-admin attempting an admin-only
// transition, an actor touching another user's reservation, or an
// operation aimed at an admin account.  Nothing has changed when it is
// returned.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return "not authorized: " + e.Reason }

// PersistenceError wraps a storage failure.  Handlers surface it as a
// generic failure; any in-flight transactional unit has been rolled
// back.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "persistence failure: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// wrapStore passes the engine's own typed errors through untouched and
// wraps everything else as a PersistenceError.
func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		ce *ConflictError
		ne *NotFoundError
		ae *AuthorizationError
		pe *PersistenceError
	)
	if errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &ne) ||
		errors.As(err, &ae) || errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Err: err}
}
