// Package queue defines message payloads exchanged over the message
// broker, the publisher for reservation lifecycle events and the
// consumer for bot-issued commands.
package queue

// ReservationEvent is published whenever a reservation transitions:
// confirmed or waitlisted on creation, promoted when a cancellation
// moves it off the waitlist.  It carries enough information for
// downstream consumers to log or notify without querying the primary
// store.
type ReservationEvent struct {
	Kind          string `json:"kind"` // confirmed | waitlisted | promoted
	ReservationID string `json:"reservation_id"`
	EventID       string `json:"event_id"`
	EventTitle    string `json:"event_title,omitempty"`
	DisplayName   string `json:"display_name"`
	Status        string `json:"status"`
	OccurredAt    string `json:"occurred_at"`
}

// CreateEventCommand is consumed from the bot command queue.  Chat
// integrations publish it to create an event on behalf of an organizer;
// it mirrors the HTTP create-event payload.
type CreateEventCommand struct {
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	Type             *string `json:"type"`
	StartsAt         string  `json:"starts_at"` // RFC 3339
	EndsAt           string  `json:"ends_at"`   // RFC 3339
	LocationText     *string `json:"location_text"`
	Public           bool    `json:"public"`
	RequiresJoinCode bool    `json:"requires_join_code"`
	Capacity         int     `json:"capacity"`
}
