// Package repository defines the storage contract for events and
// reservations together with its two implementations: an in-process
// map-based store and a transactional MySQL store.  Sentinel errors
// declared here let the service layer distinguish failure modes with
// errors.Is without inspecting backend-specific error strings.
package repository

import "errors"

// ErrNotFound is returned when a requested event or reservation does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by Create when persisting a reservation
// would violate the one-active-reservation-per-identity invariant.
// On MySQL it wraps duplicate-key error 1062 from the unique index on
// (event_id, active_user_id); the in-memory store raises it from its
// own atomic check.  The reservation service treats it as a lost race
// and recovers by re-reading the winner, so it never reaches callers.
var ErrDuplicate = errors.New("duplicate active reservation")
