package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icsconnect/rsvp/internal/model"
)

func strPtr(s string) *string { return &s }

func newReservation(id, eventID, status string) *model.Reservation {
	return &model.Reservation{
		ID:          id,
		EventID:     eventID,
		DisplayName: "Guest",
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestMemoryEvents_GetAndCreate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Events.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ev := &model.Event{ID: "ev-1", Title: "Picnic", Capacity: 5}
	require.NoError(t, store.Events.Create(ctx, ev))

	got, err := store.Events.Get(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "Picnic", got.Title)

	// The store hands out copies; mutating a result must not leak back.
	got.Title = "Changed"
	again, err := store.Events.Get(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "Picnic", again.Title)
}

func TestMemoryReservations_DuplicateActiveUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := newReservation("r-1", "ev-1", model.StatusConfirmed)
	first.UserID = strPtr("user-1")
	require.NoError(t, store.Reservations.Create(ctx, first))

	second := newReservation("r-2", "ev-1", model.StatusWaitlisted)
	second.UserID = strPtr("user-1")
	assert.ErrorIs(t, store.Reservations.Create(ctx, second), ErrDuplicate)

	// Same user on a different event is fine.
	third := newReservation("r-3", "ev-2", model.StatusConfirmed)
	third.UserID = strPtr("user-1")
	assert.NoError(t, store.Reservations.Create(ctx, third))
}

func TestMemoryReservations_DuplicateEmailCaseInsensitive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := newReservation("r-1", "ev-1", model.StatusConfirmed)
	first.Email = strPtr("Ada@Example.com")
	require.NoError(t, store.Reservations.Create(ctx, first))

	second := newReservation("r-2", "ev-1", model.StatusConfirmed)
	second.Email = strPtr(" ada@example.com ")
	assert.ErrorIs(t, store.Reservations.Create(ctx, second), ErrDuplicate)
}

func TestMemoryReservations_CanceledRowDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	old := newReservation("r-1", "ev-1", model.StatusCanceled)
	old.UserID = strPtr("user-1")
	require.NoError(t, store.Reservations.Create(ctx, old))

	fresh := newReservation("r-2", "ev-1", model.StatusConfirmed)
	fresh.UserID = strPtr("user-1")
	assert.NoError(t, store.Reservations.Create(ctx, fresh))
}

func TestMemoryReservations_Counts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Reservations.Create(ctx, newReservation("r-1", "ev-1", model.StatusConfirmed)))
	require.NoError(t, store.Reservations.Create(ctx, newReservation("r-2", "ev-1", model.StatusConfirmed)))
	require.NoError(t, store.Reservations.Create(ctx, newReservation("r-3", "ev-1", model.StatusWaitlisted)))
	require.NoError(t, store.Reservations.Create(ctx, newReservation("r-4", "ev-1", model.StatusCanceled)))
	require.NoError(t, store.Reservations.Create(ctx, newReservation("r-5", "ev-2", model.StatusConfirmed)))

	confirmed, err := store.Reservations.CountConfirmed(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, confirmed)

	waitlisted, err := store.Reservations.CountWaitlisted(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 1, waitlisted)
}

func TestMemoryReservations_OldestWaitlistedOrdering(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	newest := newReservation("r-c", "ev-1", model.StatusWaitlisted)
	newest.CreatedAt = base.Add(2 * time.Minute)
	require.NoError(t, store.Reservations.Create(ctx, newest))

	oldest := newReservation("r-a", "ev-1", model.StatusWaitlisted)
	oldest.CreatedAt = base
	require.NoError(t, store.Reservations.Create(ctx, oldest))

	got, err := store.Reservations.FindOldestWaitlisted(ctx, "ev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "r-a", got.ID)

	// Equal timestamps fall back to id order.
	tie := newReservation("r-0", "ev-1", model.StatusWaitlisted)
	tie.CreatedAt = base
	require.NoError(t, store.Reservations.Create(ctx, tie))

	got, err = store.Reservations.FindOldestWaitlisted(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "r-0", got.ID)
}

func TestMemoryReservations_OldestWaitlistedEmpty(t *testing.T) {
	store := NewMemoryStore()
	got, err := store.Reservations.FindOldestWaitlisted(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryReservations_FindActiveLookups(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	byUser := newReservation("r-1", "ev-1", model.StatusConfirmed)
	byUser.UserID = strPtr("user-1")
	require.NoError(t, store.Reservations.Create(ctx, byUser))

	byEmail := newReservation("r-2", "ev-1", model.StatusWaitlisted)
	byEmail.Email = strPtr("ada@example.com")
	require.NoError(t, store.Reservations.Create(ctx, byEmail))

	got, err := store.Reservations.FindActiveByEventAndUser(ctx, "ev-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "r-1", got.ID)

	got, err = store.Reservations.FindActiveByEventAndUser(ctx, "ev-1", "user-2")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Reservations.FindActiveByEventAndEmail(ctx, "ev-1", "ADA@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "r-2", got.ID)
}

// Concurrent creates with the same identity must admit exactly one row;
// the losers all see ErrDuplicate.
func TestMemoryReservations_ConcurrentSameIdentity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := newReservation(fmt.Sprintf("r-%d", i), "ev-1", model.StatusConfirmed)
			res.UserID = strPtr("user-1")
			errs[i] = store.Reservations.Create(ctx, res)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, ErrDuplicate)
		}
	}
	assert.Equal(t, 1, created)
}
