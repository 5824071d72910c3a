package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/icsconnect/rsvp/internal/model"
)

// memoryStore holds both entity maps behind a single mutex.  Individual
// operations are race-free, and Create enforces the active-uniqueness
// invariant atomically, so the same lost-race recovery path works
// against both backends.  The admission decision itself (count
// confirmed, then create) spans two calls and is NOT serialized here;
// under truly parallel callers the confirmed count can overshoot
// capacity.  That window is closed only by running reserve calls for
// one event on a single goroutine, which is why this store is meant for
// development and tests while MySQL backs production.
type memoryStore struct {
	mu           sync.RWMutex
	events       map[string]model.Event
	reservations map[string]model.Reservation
}

type memoryEventRepo struct{ s *memoryStore }

type memoryReservationRepo struct{ s *memoryStore }

// NewMemoryStore returns a Store backed by process-local maps.
func NewMemoryStore() *Store {
	s := &memoryStore{
		events:       make(map[string]model.Event),
		reservations: make(map[string]model.Reservation),
	}
	return &Store{
		Events:       &memoryEventRepo{s: s},
		Reservations: &memoryReservationRepo{s: s},
	}
}

func (r *memoryEventRepo) Get(_ context.Context, eventID string) (*model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ev, ok := r.s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return &ev, nil
}

func (r *memoryEventRepo) Create(_ context.Context, ev *model.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[ev.ID] = *ev
	return nil
}

func (r *memoryEventRepo) ListAll(_ context.Context) ([]model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Event, 0, len(r.s.events))
	for _, ev := range r.s.events {
		out = append(out, ev)
	}
	return out, nil
}

func (r *memoryReservationRepo) Get(_ context.Context, reservationID string) (*model.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.reservations[reservationID]
	if !ok {
		return nil, ErrNotFound
	}
	return &res, nil
}

// Create stores the reservation after checking, under the store lock,
// that no active reservation already exists for the same identity (user
// ID, or normalized email for anonymous rows).  The check-and-insert is
// atomic, mirroring what the MySQL unique index enforces.
func (r *memoryReservationRepo) Create(_ context.Context, res *model.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if res.Active() {
		for _, existing := range r.s.reservations {
			if existing.EventID != res.EventID || !existing.Active() {
				continue
			}
			if res.UserID != nil && existing.UserID != nil && *existing.UserID == *res.UserID {
				return ErrDuplicate
			}
			if res.UserID == nil && res.Email != nil && existing.Email != nil &&
				normalizeEmail(*existing.Email) == normalizeEmail(*res.Email) {
				return ErrDuplicate
			}
		}
	}
	r.s.reservations[res.ID] = *res
	return nil
}

func (r *memoryReservationRepo) Update(_ context.Context, res *model.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reservations[res.ID]; !ok {
		return nil
	}
	r.s.reservations[res.ID] = *res
	return nil
}

func (r *memoryReservationRepo) CountConfirmed(_ context.Context, eventID string) (int, error) {
	return r.countByStatus(eventID, model.StatusConfirmed), nil
}

func (r *memoryReservationRepo) CountWaitlisted(_ context.Context, eventID string) (int, error) {
	return r.countByStatus(eventID, model.StatusWaitlisted), nil
}

func (r *memoryReservationRepo) countByStatus(eventID, status string) int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, res := range r.s.reservations {
		if res.EventID == eventID && res.Status == status {
			n++
		}
	}
	return n
}

func (r *memoryReservationRepo) FindOldestWaitlisted(_ context.Context, eventID string) (*model.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var waiting []model.Reservation
	for _, res := range r.s.reservations {
		if res.EventID == eventID && res.Status == model.StatusWaitlisted {
			waiting = append(waiting, res)
		}
	}
	if len(waiting) == 0 {
		return nil, nil
	}
	sort.Slice(waiting, func(i, j int) bool {
		if !waiting[i].CreatedAt.Equal(waiting[j].CreatedAt) {
			return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
		}
		return waiting[i].ID < waiting[j].ID
	})
	oldest := waiting[0]
	return &oldest, nil
}

func (r *memoryReservationRepo) FindActiveByEventAndUser(_ context.Context, eventID, userID string) (*model.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, res := range r.s.reservations {
		if res.EventID == eventID && res.Active() && res.UserID != nil && *res.UserID == userID {
			match := res
			return &match, nil
		}
	}
	return nil, nil
}

func (r *memoryReservationRepo) FindActiveByEventAndEmail(_ context.Context, eventID, email string) (*model.Reservation, error) {
	want := normalizeEmail(email)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, res := range r.s.reservations {
		if res.EventID == eventID && res.Active() && res.Email != nil && normalizeEmail(*res.Email) == want {
			match := res
			return &match, nil
		}
	}
	return nil, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
