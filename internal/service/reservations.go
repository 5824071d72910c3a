package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/icsconnect/rsvp/internal/model"
	"github.com/icsconnect/rsvp/internal/queue"
	"github.com/icsconnect/rsvp/internal/repository"
	"github.com/icsconnect/rsvp/internal/utils"
)

// Publisher broadcasts reservation lifecycle events to the message
// broker.  A nil Publisher disables publishing.
type Publisher interface {
	PublishReservationEvent(ctx context.Context, ev queue.ReservationEvent) error
}

// ReserveInput carries everything a caller supplies when reserving a
// slot.  UserID is the verified identity injected by the auth layer and
// nil for anonymous callers; Email is the anonymous fallback identity.
type ReserveInput struct {
	DisplayName string
	Email       *string
	JoinCode    *string
	UserID      *string
}

// ReserveResult pairs the reservation with its capability token.  The
// token is freshly minted on every call, including idempotent replays
// that return an existing reservation.
type ReserveResult struct {
	Reservation *model.Reservation
	Token       string
}

// ReservationService implements reserve and cancel-with-promotion
// against an injected store.
type ReservationService struct {
	store       *repository.Store
	publisher   Publisher
	tokenSecret string
	tokenTTL    time.Duration
}

// NewReservationService constructs a ReservationService.  publisher may
// be nil to skip broker publishing (tests do this).
func NewReservationService(store *repository.Store, publisher Publisher, tokenSecret string, tokenTTL time.Duration) *ReservationService {
	return &ReservationService{
		store:       store,
		publisher:   publisher,
		tokenSecret: tokenSecret,
		tokenTTL:    tokenTTL,
	}
}

// Reserve decides confirm-vs-waitlist for one identity and persists at
// most one new reservation.  The step order is load-bearing:
//
//  1. idempotency pre-check by user ID (then by email for anonymous
//     callers); a repeat request returns the existing reservation with
//     a fresh token and writes nothing;
//  2. join-code gate;
//  3. admission decision from a fresh confirmed count;
//  4. create;
//  5. on a duplicate-key loss, re-read the winner and return it instead
//     of surfacing the conflict.
//
// For N concurrent calls with the same user ID against the same event
// exactly one row is ever created, provided the backend enforces the
// active-uniqueness constraint at create (the MySQL store does; the
// in-memory store does too, under its own lock).
func (s *ReservationService) Reserve(ctx context.Context, event *model.Event, input ReserveInput) (*ReserveResult, error) {
	if input.UserID != nil {
		existing, err := s.store.Reservations.FindActiveByEventAndUser(ctx, event.ID, *input.UserID)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup by user: %w", err)
		}
		if existing != nil {
			return s.resultFor(existing)
		}
	}
	if input.UserID == nil && input.Email != nil && *input.Email != "" {
		existing, err := s.store.Reservations.FindActiveByEventAndEmail(ctx, event.ID, *input.Email)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup by email: %w", err)
		}
		if existing != nil {
			return s.resultFor(existing)
		}
	}

	if event.RequiresJoinCode {
		if input.JoinCode == nil || *input.JoinCode == "" ||
			event.JoinCodeHash == nil || !utils.VerifySecret(*input.JoinCode, *event.JoinCodeHash) {
			return nil, ErrJoinCodeRequired
		}
	}

	confirmed, err := s.store.Reservations.CountConfirmed(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("count confirmed: %w", err)
	}
	status := model.StatusConfirmed
	if confirmed >= event.Capacity {
		if !event.WaitlistEnabled {
			return nil, ErrEventFull
		}
		status = model.StatusWaitlisted
	}

	res := &model.Reservation{
		ID:          utils.NewID(),
		EventID:     event.ID,
		UserID:      input.UserID,
		DisplayName: input.DisplayName,
		Email:       input.Email,
		Status:      status,
		PromotedAt:  nil,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Reservations.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Another caller with the same identity won the race between
			// the pre-check and the insert.  Re-read and return the
			// winner rather than surfacing the conflict.
			if winner, lookupErr := s.recoverRaceWinner(ctx, event.ID, input); lookupErr == nil && winner != nil {
				return s.resultFor(winner)
			}
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.publishEvent(ctx, event, res, res.Status)
	return s.resultFor(res)
}

func (s *ReservationService) recoverRaceWinner(ctx context.Context, eventID string, input ReserveInput) (*model.Reservation, error) {
	if input.UserID != nil {
		winner, err := s.store.Reservations.FindActiveByEventAndUser(ctx, eventID, *input.UserID)
		if err != nil || winner != nil {
			return winner, err
		}
	}
	if input.Email != nil && *input.Email != "" {
		return s.store.Reservations.FindActiveByEventAndEmail(ctx, eventID, *input.Email)
	}
	return nil, nil
}

// CancelAndMaybePromote cancels a reservation and promotes the oldest
// waitlisted reservation for the event.  Canceling an already-canceled
// reservation is an idempotent no-op, but the promotion step still
// runs even then.  Re-attempting promotion on every cancel keeps the
// waitlist self-healing when a previous promotion was missed.
func (s *ReservationService) CancelAndMaybePromote(ctx context.Context, eventID, reservationID string) error {
	res, err := s.store.Reservations.Get(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReservationNotFound
		}
		return fmt.Errorf("load reservation: %w", err)
	}
	if res.Status != model.StatusCanceled {
		res.Status = model.StatusCanceled
		if err := s.store.Reservations.Update(ctx, res); err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
	}

	next, err := s.store.Reservations.FindOldestWaitlisted(ctx, eventID)
	if err != nil {
		return fmt.Errorf("find oldest waitlisted: %w", err)
	}
	if next != nil {
		now := time.Now().UTC()
		next.Status = model.StatusConfirmed
		next.PromotedAt = &now
		if err := s.store.Reservations.Update(ctx, next); err != nil {
			return fmt.Errorf("promote reservation: %w", err)
		}
		s.publishEvent(ctx, nil, next, "promoted")
	}
	return nil
}

// FindMine returns the caller's active reservation for the event, or
// ErrReservationNotFound when the identity holds none.
func (s *ReservationService) FindMine(ctx context.Context, eventID, userID string) (*model.Reservation, error) {
	res, err := s.store.Reservations.FindActiveByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("find active by user: %w", err)
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}
	return res, nil
}

// FindForEvent returns the reservation with the given ID, verifying it
// belongs to the event.
func (s *ReservationService) FindForEvent(ctx context.Context, eventID, reservationID string) (*model.Reservation, error) {
	res, err := s.store.Reservations.Get(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if res.EventID != eventID {
		return nil, ErrReservationNotFound
	}
	return res, nil
}

func (s *ReservationService) resultFor(res *model.Reservation) (*ReserveResult, error) {
	token, err := utils.NewReservationToken(s.tokenSecret, res.ID, res.EventID, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign reservation token: %w", err)
	}
	return &ReserveResult{Reservation: res, Token: token}, nil
}

// publishEvent notifies the broker about a reservation transition.
// Publishing is best-effort: failures are logged and never fail the
// request that triggered them.
func (s *ReservationService) publishEvent(ctx context.Context, event *model.Event, res *model.Reservation, kind string) {
	if s.publisher == nil {
		return
	}
	payload := queue.ReservationEvent{
		Kind:          kind,
		ReservationID: res.ID,
		EventID:       res.EventID,
		DisplayName:   res.DisplayName,
		Status:        res.Status,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if event != nil {
		payload.EventTitle = event.Title
	}
	if err := s.publisher.PublishReservationEvent(ctx, payload); err != nil {
		log.Printf("reservation-service: publish %s event failed: %v", kind, err)
	}
}
