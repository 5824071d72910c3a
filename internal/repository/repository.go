package repository

import (
	"context"

	"github.com/icsconnect/rsvp/internal/model"
)

// EventRepository owns persistence of events.  Events are write-once:
// there is deliberately no update or delete.
type EventRepository interface {
	// Get returns the event with the given ID or ErrNotFound.
	Get(ctx context.Context, eventID string) (*model.Event, error)
	// Create persists a new event.
	Create(ctx context.Context, ev *model.Event) error
	// ListAll returns every stored event.  Used by search; ordering is
	// unspecified.
	ListAll(ctx context.Context) ([]model.Event, error)
}

// ReservationRepository owns persistence of reservations and the
// aggregate queries the reservation engine bases its decisions on.
// Counts are always computed fresh from the backing store, never
// cached, so the engine can re-read current state on every call.
type ReservationRepository interface {
	// Get returns the reservation with the given ID or ErrNotFound.
	Get(ctx context.Context, reservationID string) (*model.Reservation, error)
	// Create persists a new reservation.  It returns ErrDuplicate when
	// the identity already holds an active reservation for the event
	// (see ErrDuplicate for which backends enforce this and how).
	Create(ctx context.Context, r *model.Reservation) error
	// Update persists status and promotion changes of an existing
	// reservation.  Updating an unknown ID is a no-op.
	Update(ctx context.Context, r *model.Reservation) error
	// CountConfirmed returns the number of confirmed reservations for
	// the event.
	CountConfirmed(ctx context.Context, eventID string) (int, error)
	// CountWaitlisted returns the number of waitlisted reservations for
	// the event.
	CountWaitlisted(ctx context.Context, eventID string) (int, error)
	// FindOldestWaitlisted returns the waitlisted reservation with the
	// earliest creation time, or nil when the waitlist is empty.
	FindOldestWaitlisted(ctx context.Context, eventID string) (*model.Reservation, error)
	// FindActiveByEventAndUser returns the non-canceled reservation
	// held by the given user for the event, or nil when there is none.
	FindActiveByEventAndUser(ctx context.Context, eventID, userID string) (*model.Reservation, error)
	// FindActiveByEventAndEmail is the anonymous-caller variant of
	// FindActiveByEventAndUser.  Emails compare case-insensitively and
	// reservations without an email never match.
	FindActiveByEventAndEmail(ctx context.Context, eventID, email string) (*model.Reservation, error)
}

// Store bundles the two repositories behind one injection point.  A
// single Store is constructed at process start (in-memory or MySQL,
// selected by configuration) and shared by every request handler.
type Store struct {
	Events       EventRepository
	Reservations ReservationRepository
}
