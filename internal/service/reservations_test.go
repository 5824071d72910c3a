package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/icsconnect/rsvp/internal/model"
	"github.com/icsconnect/rsvp/internal/queue"
	"github.com/icsconnect/rsvp/internal/repository"
	"github.com/icsconnect/rsvp/internal/utils"
)

const testSecret = "test-secret"

// --- Mock ReservationRepository for failure injection ---

type mockReservationRepo struct {
	getFn              func(ctx context.Context, id string) (*model.Reservation, error)
	createFn           func(ctx context.Context, res *model.Reservation) error
	updateFn           func(ctx context.Context, res *model.Reservation) error
	countConfirmedFn   func(ctx context.Context, eventID string) (int, error)
	countWaitlistedFn  func(ctx context.Context, eventID string) (int, error)
	oldestWaitlistedFn func(ctx context.Context, eventID string) (*model.Reservation, error)
	activeByUserFn     func(ctx context.Context, eventID, userID string) (*model.Reservation, error)
	activeByEmailFn    func(ctx context.Context, eventID, email string) (*model.Reservation, error)
}

func (m *mockReservationRepo) Get(ctx context.Context, id string) (*model.Reservation, error) {
	return m.getFn(ctx, id)
}
func (m *mockReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	return m.createFn(ctx, res)
}
func (m *mockReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	return m.updateFn(ctx, res)
}
func (m *mockReservationRepo) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	return m.countConfirmedFn(ctx, eventID)
}
func (m *mockReservationRepo) CountWaitlisted(ctx context.Context, eventID string) (int, error) {
	return m.countWaitlistedFn(ctx, eventID)
}
func (m *mockReservationRepo) FindOldestWaitlisted(ctx context.Context, eventID string) (*model.Reservation, error) {
	return m.oldestWaitlistedFn(ctx, eventID)
}
func (m *mockReservationRepo) FindActiveByEventAndUser(ctx context.Context, eventID, userID string) (*model.Reservation, error) {
	return m.activeByUserFn(ctx, eventID, userID)
}
func (m *mockReservationRepo) FindActiveByEventAndEmail(ctx context.Context, eventID, email string) (*model.Reservation, error) {
	return m.activeByEmailFn(ctx, eventID, email)
}

type mockPublisher struct {
	published []queue.ReservationEvent
}

func (m *mockPublisher) PublishReservationEvent(_ context.Context, ev queue.ReservationEvent) error {
	m.published = append(m.published, ev)
	return nil
}

// --- Helpers ---

func strPtr(s string) *string { return &s }

func testEvent(t *testing.T, store *repository.Store, capacity int, waitlist bool) *model.Event {
	t.Helper()
	ev := &model.Event{
		ID:              utils.NewID(),
		Title:           "Board Game Night",
		StartsAt:        time.Date(2026, 9, 10, 18, 0, 0, 0, time.UTC),
		EndsAt:          time.Date(2026, 9, 10, 22, 0, 0, 0, time.UTC),
		Public:          true,
		AdminKeyHash:    "x",
		Capacity:        capacity,
		WaitlistEnabled: waitlist,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.Events.Create(context.Background(), ev))
	return ev
}

func newTestService(store *repository.Store) *ReservationService {
	return NewReservationService(store, nil, testSecret, time.Hour)
}

// --- Reserve ---

func TestReserve_ConfirmsUpToCapacityThenWaitlists(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 2, true)
	svc := newTestService(store)

	statuses := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		uid := fmt.Sprintf("user-%d", i)
		result, err := svc.Reserve(context.Background(), ev, ReserveInput{
			DisplayName: fmt.Sprintf("Guest %d", i),
			UserID:      &uid,
		})
		require.NoError(t, err)
		statuses = append(statuses, result.Reservation.Status)
	}

	assert.Equal(t, []string{
		model.StatusConfirmed, model.StatusConfirmed,
		model.StatusWaitlisted, model.StatusWaitlisted, model.StatusWaitlisted,
	}, statuses)

	confirmed, err := store.Reservations.CountConfirmed(context.Background(), ev.ID)
	require.NoError(t, err)
	waitlisted, err := store.Reservations.CountWaitlisted(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, confirmed)
	assert.Equal(t, 3, waitlisted)
}

func TestReserve_IdempotentByUserID(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 10, true)
	svc := newTestService(store)
	uid := "user-1"

	first, err := svc.Reserve(context.Background(), ev, ReserveInput{DisplayName: "Ada", UserID: &uid})
	require.NoError(t, err)
	second, err := svc.Reserve(context.Background(), ev, ReserveInput{DisplayName: "Ada", UserID: &uid})
	require.NoError(t, err)

	assert.Equal(t, first.Reservation.ID, second.Reservation.ID)
	assert.Equal(t, model.StatusConfirmed, second.Reservation.Status)
	assert.NotEmpty(t, second.Token)

	confirmed, err := store.Reservations.CountConfirmed(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)
}

func TestReserve_IdempotentByEmailCaseInsensitive(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 10, true)
	svc := newTestService(store)

	first, err := svc.Reserve(context.Background(), ev, ReserveInput{
		DisplayName: "Ada",
		Email:       strPtr("Ada@Example.com"),
	})
	require.NoError(t, err)
	second, err := svc.Reserve(context.Background(), ev, ReserveInput{
		DisplayName: "Ada",
		Email:       strPtr("ada@example.com"),
	})
	require.NoError(t, err)

	assert.Equal(t, first.Reservation.ID, second.Reservation.ID)
}

func TestReserve_JoinCodeGate(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 10, true)
	hash, err := bcrypt.GenerateFromPassword([]byte("ABC123"), bcrypt.MinCost)
	require.NoError(t, err)
	ev.RequiresJoinCode = true
	ev.JoinCodeHash = strPtr(string(hash))
	svc := newTestService(store)
	uid := "user-1"

	_, err = svc.Reserve(context.Background(), ev, ReserveInput{DisplayName: "Ada", UserID: &uid})
	assert.ErrorIs(t, err, ErrJoinCodeRequired)

	_, err = svc.Reserve(context.Background(), ev, ReserveInput{
		DisplayName: "Ada", UserID: &uid, JoinCode: strPtr("WRONG"),
	})
	assert.ErrorIs(t, err, ErrJoinCodeRequired)

	result, err := svc.Reserve(context.Background(), ev, ReserveInput{
		DisplayName: "Ada", UserID: &uid, JoinCode: strPtr("ABC123"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, result.Reservation.Status)
}

func TestReserve_FullEventWithoutWaitlist(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 0, false)
	svc := newTestService(store)
	uid := "user-1"

	_, err := svc.Reserve(context.Background(), ev, ReserveInput{DisplayName: "Ada", UserID: &uid})
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestReserve_TokenRoundTrips(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 1, true)
	svc := newTestService(store)
	uid := "user-1"

	result, err := svc.Reserve(context.Background(), ev, ReserveInput{DisplayName: "Ada", UserID: &uid})
	require.NoError(t, err)

	claims, err := utils.ParseReservationToken(testSecret, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Reservation.ID, claims.ReservationID)
	assert.Equal(t, ev.ID, claims.EventID)
}

// A duplicate-key loss between the pre-check and the insert must
// resolve to the winning row instead of an error.
func TestReserve_RaceLossReturnsWinner(t *testing.T) {
	uid := "user-1"
	winner := &model.Reservation{
		ID:      "winner-id",
		EventID: "event-1",
		UserID:  &uid,
		Status:  model.StatusConfirmed,
	}
	lookups := 0
	repo := &mockReservationRepo{
		activeByUserFn: func(ctx context.Context, eventID, userID string) (*model.Reservation, error) {
			lookups++
			if lookups == 1 {
				return nil, nil // pre-check: not there yet
			}
			return winner, nil // recovery: the concurrent winner
		},
		countConfirmedFn: func(ctx context.Context, eventID string) (int, error) { return 0, nil },
		createFn: func(ctx context.Context, res *model.Reservation) error {
			return repository.ErrDuplicate
		},
	}
	store := &repository.Store{Reservations: repo}
	svc := newTestService(store)
	ev := &model.Event{ID: "event-1", Capacity: 5, WaitlistEnabled: true}

	result, err := svc.Reserve(context.Background(), ev, ReserveInput{DisplayName: "Ada", UserID: &uid})
	require.NoError(t, err)
	assert.Equal(t, "winner-id", result.Reservation.ID)
	assert.Equal(t, 2, lookups)
}

func TestReserve_CreateErrorPropagates(t *testing.T) {
	uid := "user-1"
	repo := &mockReservationRepo{
		activeByUserFn: func(ctx context.Context, eventID, userID string) (*model.Reservation, error) {
			return nil, nil
		},
		countConfirmedFn: func(ctx context.Context, eventID string) (int, error) { return 0, nil },
		createFn: func(ctx context.Context, res *model.Reservation) error {
			return errors.New("db connection failed")
		},
	}
	store := &repository.Store{Reservations: repo}
	svc := newTestService(store)
	ev := &model.Event{ID: "event-1", Capacity: 5, WaitlistEnabled: true}

	_, err := svc.Reserve(context.Background(), ev, ReserveInput{DisplayName: "Ada", UserID: &uid})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db connection failed")
}

// --- Cancel and promote ---

func seedReservation(t *testing.T, store *repository.Store, eventID, status string, createdAt time.Time, name string) *model.Reservation {
	t.Helper()
	res := &model.Reservation{
		ID:          utils.NewID(),
		EventID:     eventID,
		DisplayName: name,
		Status:      status,
		CreatedAt:   createdAt,
	}
	require.NoError(t, store.Reservations.Create(context.Background(), res))
	return res
}

func TestCancel_PromotesOldestWaitlisted(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 1, true)
	svc := newTestService(store)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	confirmed := seedReservation(t, store, ev.ID, model.StatusConfirmed, base, "First")
	older := seedReservation(t, store, ev.ID, model.StatusWaitlisted, base.Add(time.Minute), "Second")
	newer := seedReservation(t, store, ev.ID, model.StatusWaitlisted, base.Add(2*time.Minute), "Third")

	require.NoError(t, svc.CancelAndMaybePromote(context.Background(), ev.ID, confirmed.ID))

	got, err := store.Reservations.Get(context.Background(), confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, got.Status)

	promoted, err := store.Reservations.Get(context.Background(), older.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, promoted.Status)
	require.NotNil(t, promoted.PromotedAt)

	untouched, err := store.Reservations.Get(context.Background(), newer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitlisted, untouched.Status)
	assert.Nil(t, untouched.PromotedAt)
}

func TestCancel_UnknownReservation(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 1, true)
	svc := newTestService(store)

	err := svc.CancelAndMaybePromote(context.Background(), ev.ID, "missing")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

// Canceling an already-canceled reservation is a no-op on that row but
// promotion still runs.
func TestCancel_AlreadyCanceledStillPromotes(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 1, true)
	svc := newTestService(store)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	canceled := seedReservation(t, store, ev.ID, model.StatusCanceled, base, "Gone")
	waiting := seedReservation(t, store, ev.ID, model.StatusWaitlisted, base.Add(time.Minute), "Waiting")

	require.NoError(t, svc.CancelAndMaybePromote(context.Background(), ev.ID, canceled.ID))

	promoted, err := store.Reservations.Get(context.Background(), waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, promoted.Status)
}

func TestCancel_NoWaitlistedLeavesStateAlone(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 1, true)
	svc := newTestService(store)

	res := seedReservation(t, store, ev.ID, model.StatusConfirmed, time.Now().UTC(), "Only")
	require.NoError(t, svc.CancelAndMaybePromote(context.Background(), ev.ID, res.ID))

	got, err := store.Reservations.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, got.Status)
}

func TestCancel_PublishesPromotionEvent(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 1, true)
	pub := &mockPublisher{}
	svc := NewReservationService(store, pub, testSecret, time.Hour)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	confirmed := seedReservation(t, store, ev.ID, model.StatusConfirmed, base, "First")
	seedReservation(t, store, ev.ID, model.StatusWaitlisted, base.Add(time.Minute), "Second")

	require.NoError(t, svc.CancelAndMaybePromote(context.Background(), ev.ID, confirmed.ID))

	require.Len(t, pub.published, 1)
	assert.Equal(t, "promoted", pub.published[0].Kind)
	assert.Equal(t, model.StatusConfirmed, pub.published[0].Status)
}

func TestFindMine(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 5, true)
	svc := newTestService(store)
	uid := "user-1"

	_, err := svc.FindMine(context.Background(), ev.ID, uid)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	reserved, err := svc.Reserve(context.Background(), ev, ReserveInput{DisplayName: "Ada", UserID: &uid})
	require.NoError(t, err)

	mine, err := svc.FindMine(context.Background(), ev.ID, uid)
	require.NoError(t, err)
	assert.Equal(t, reserved.Reservation.ID, mine.ID)
}

// --- FindForEvent ---

func TestFindForEvent_RejectsWrongEvent(t *testing.T) {
	store := repository.NewMemoryStore()
	ev := testEvent(t, store, 1, true)
	other := testEvent(t, store, 1, true)
	svc := newTestService(store)

	res := seedReservation(t, store, ev.ID, model.StatusConfirmed, time.Now().UTC(), "Ada")

	found, err := svc.FindForEvent(context.Background(), ev.ID, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, found.ID)

	_, err = svc.FindForEvent(context.Background(), other.ID, res.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}
