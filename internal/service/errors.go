// Package service implements the reservation and event engines: the
// confirm-vs-waitlist decision, idempotent reserve semantics, race-loss
// recovery and the cancel-then-promote transition.  Services hold no
// state between calls; every decision re-reads the store.
package service

// AppError is a business-rule failure with a stable machine-readable
// code.  Handlers map the code to an HTTP response; internal storage
// errors are never wrapped in an AppError so their strings cannot leak
// to callers as business errors.
type AppError struct {
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	// ErrEventNotFound is returned when the requested event does not exist.
	ErrEventNotFound = &AppError{Code: "NOT_FOUND", Message: "Event not found"}
	// ErrReservationNotFound is returned when the requested reservation
	// does not exist.
	ErrReservationNotFound = &AppError{Code: "NOT_FOUND", Message: "Reservation not found"}
	// ErrJoinCodeRequired is returned when the event's join-code gate
	// fails: no code supplied, or the supplied code does not verify.
	ErrJoinCodeRequired = &AppError{Code: "JOIN_CODE_REQUIRED", Message: "Valid join code required"}
	// ErrEventFull is returned when capacity is reached and the event
	// has no waitlist.
	ErrEventFull = &AppError{Code: "EVENT_FULL", Message: "Capacity reached"}
)

// ValidationError wraps a caller-input failure with the stable
// VALIDATION_ERROR code.
func ValidationError(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg}
}
