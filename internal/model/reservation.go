package model

import "time"

// Reservation status values.  A reservation is created as either
// confirmed or waitlisted and only ever transitions to canceled (by its
// owner) or from waitlisted to confirmed (by promotion).  Rows are
// never deleted.
const (
	StatusConfirmed  = "confirmed"
	StatusWaitlisted = "waitlisted"
	StatusCanceled   = "canceled"
)

// Reservation records one identity's claim on an event slot.  The
// identity is either an authenticated user ID or, for anonymous
// callers, a case-insensitively unique email.  CreatedAt doubles as the
// waitlist ordering key: the oldest waitlisted reservation is promoted
// first.
//
// Fields:
//  ID          – primary key identifier (UUID string).
//  EventID     – event being reserved.
//  UserID      – authenticated identity, nil for anonymous reservations.
//  DisplayName – name shown to organizers.
//  Email       – contact email, nil when the caller provided none.
//  Status      – confirmed, waitlisted or canceled.
//  PromotedAt  – set only when a waitlisted reservation was promoted to
//                confirmed; nil for reservations confirmed on creation.
//  CreatedAt   – creation timestamp and waitlist ordering key.
type Reservation struct {
	ID          string     // reservations.id
	EventID     string     // reservations.event_id
	UserID      *string    // reservations.user_id (nullable)
	DisplayName string     // reservations.display_name
	Email       *string    // reservations.email (nullable)
	Status      string     // reservations.status
	PromotedAt  *time.Time // reservations.promoted_at (nullable)
	CreatedAt   time.Time  // reservations.created_at
}

// Active reports whether the reservation still occupies (or queues for)
// a slot, i.e. it has not been canceled.
func (r *Reservation) Active() bool {
	return r.Status != StatusCanceled
}
