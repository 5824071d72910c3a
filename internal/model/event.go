package model

import "time"

// Event represents a capacity-bounded gathering.  Events are created
// once through the event service and are immutable afterwards; the
// reservation engine only ever reads them.  Secrets (the join code and
// the admin key) are stored as bcrypt hashes; the raw values are
// returned exactly once at creation time.
//
// Fields:
//  ID               – primary key identifier (UUID string).
//  Title            – display title of the event.
//  Description      – optional free-form description.
//  Type             – optional event type label (e.g. "social", "workshop").
//  StartsAt         – when the event begins (UTC).
//  EndsAt           – when the event ends (UTC).
//  LocationText     – optional human-readable location.
//  Public           – whether the event is publicly listed.
//  RequiresJoinCode – whether a join code must be presented to reserve.
//  JoinCodeHash     – bcrypt hash of the join code (nil unless required).
//  AdminKeyHash     – bcrypt hash of the admin key.
//  Capacity         – maximum number of confirmed reservations (>= 0).
//  WaitlistEnabled  – whether reservations beyond capacity are waitlisted.
//  CreatedAt        – creation timestamp.
type Event struct {
	ID               string     // events.id
	Title            string     // events.title
	Description      *string    // events.description (nullable)
	Type             *string    // events.type (nullable)
	StartsAt         time.Time  // events.starts_at
	EndsAt           time.Time  // events.ends_at
	LocationText     *string    // events.location_text (nullable)
	Public           bool       // events.public
	RequiresJoinCode bool       // events.requires_join_code
	JoinCodeHash     *string    // events.join_code_hash (nullable)
	AdminKeyHash     string     // events.admin_key_hash
	Capacity         int        // events.capacity
	WaitlistEnabled  bool       // events.waitlist_enabled
	CreatedAt        time.Time  // events.created_at
}
