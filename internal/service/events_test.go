package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/icsconnect/rsvp/internal/model"
	"github.com/icsconnect/rsvp/internal/repository"
	"github.com/icsconnect/rsvp/internal/utils"
)

func sampleCreateInput() CreateEventInput {
	return CreateEventInput{
		Title:    "Community Picnic",
		StartsAt: time.Date(2026, 9, 12, 11, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 9, 12, 15, 0, 0, 0, time.UTC),
		Public:   true,
		Capacity: 40,
	}
}

func TestCreateEvent_ReturnsSecretsOnce(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEventService(store, bcrypt.MinCost)

	input := sampleCreateInput()
	input.RequiresJoinCode = true

	created, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	assert.NotEmpty(t, created.AdminKey)
	require.NotNil(t, created.JoinCode)
	assert.NotEmpty(t, *created.JoinCode)
	assert.True(t, created.Event.WaitlistEnabled)

	// Only hashes are stored; both raw secrets must verify against them.
	stored, err := store.Events.Get(context.Background(), created.Event.ID)
	require.NoError(t, err)
	assert.True(t, utils.VerifySecret(created.AdminKey, stored.AdminKeyHash))
	require.NotNil(t, stored.JoinCodeHash)
	assert.True(t, utils.VerifySecret(*created.JoinCode, *stored.JoinCodeHash))
	assert.NotEqual(t, created.AdminKey, stored.AdminKeyHash)
}

func TestCreateEvent_NoJoinCodeWhenUngated(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEventService(store, bcrypt.MinCost)

	created, err := svc.Create(context.Background(), sampleCreateInput())
	require.NoError(t, err)
	assert.Nil(t, created.JoinCode)
	assert.Nil(t, created.Event.JoinCodeHash)
}

func TestCreateEvent_Validation(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEventService(store, bcrypt.MinCost)

	input := sampleCreateInput()
	input.Title = "   "
	_, err := svc.Create(context.Background(), input)
	requireValidationError(t, err)

	input = sampleCreateInput()
	input.Capacity = -1
	_, err = svc.Create(context.Background(), input)
	requireValidationError(t, err)

	input = sampleCreateInput()
	input.EndsAt = input.StartsAt
	_, err = svc.Create(context.Background(), input)
	requireValidationError(t, err)
}

func requireValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestGetWithCounts(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEventService(store, bcrypt.MinCost)

	created, err := svc.Create(context.Background(), sampleCreateInput())
	require.NoError(t, err)

	base := time.Now().UTC()
	seedReservation(t, store, created.Event.ID, model.StatusConfirmed, base, "A")
	seedReservation(t, store, created.Event.ID, model.StatusConfirmed, base, "B")
	seedReservation(t, store, created.Event.ID, model.StatusWaitlisted, base, "C")
	seedReservation(t, store, created.Event.ID, model.StatusCanceled, base, "D")

	ev, confirmed, waitlisted, err := svc.GetWithCounts(context.Background(), created.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Event.ID, ev.ID)
	assert.Equal(t, 2, confirmed)
	assert.Equal(t, 1, waitlisted)
}

func TestGetEvent_NotFound(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEventService(store, bcrypt.MinCost)

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestSearch_FiltersAndPages(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEventService(store, bcrypt.MinCost)

	mk := func(title string, day int) {
		input := sampleCreateInput()
		input.Title = title
		input.StartsAt = time.Date(2026, 9, day, 11, 0, 0, 0, time.UTC)
		input.EndsAt = input.StartsAt.Add(2 * time.Hour)
		_, err := svc.Create(context.Background(), input)
		require.NoError(t, err)
	}
	mk("Go Meetup", 5)
	mk("Rust Meetup", 10)
	mk("Go Hackathon", 15)
	mk("Picnic", 20)

	events, total, err := svc.Search(context.Background(), SearchParams{Query: "go"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 2)
	assert.Equal(t, "Go Meetup", events[0].Title) // sorted by start time

	start := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)
	events, total, err = svc.Search(context.Background(), SearchParams{Start: &start, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	events, total, err = svc.Search(context.Background(), SearchParams{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, events, 2)
	assert.Equal(t, "Go Hackathon", events[0].Title)
}

func TestSearch_OffsetPastEnd(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEventService(store, bcrypt.MinCost)

	_, err := svc.Create(context.Background(), sampleCreateInput())
	require.NoError(t, err)

	events, total, err := svc.Search(context.Background(), SearchParams{Offset: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, events)
}
