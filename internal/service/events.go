package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/icsconnect/rsvp/internal/model"
	"github.com/icsconnect/rsvp/internal/repository"
	"github.com/icsconnect/rsvp/internal/utils"
)

// CreateEventInput is the payload for creating an event.
type CreateEventInput struct {
	Title            string
	Description      *string
	Type             *string
	StartsAt         time.Time
	EndsAt           time.Time
	LocationText     *string
	Public           bool
	RequiresJoinCode bool
	Capacity         int
}

// CreatedEvent is returned once from Create.  JoinCode and AdminKey are
// the only time the raw secrets are visible; the event itself stores
// bcrypt hashes.
type CreatedEvent struct {
	Event    *model.Event
	JoinCode *string
	AdminKey string
}

// SearchParams filters the event listing.
type SearchParams struct {
	Query  string
	Start  *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// EventService creates events and computes their public view.
type EventService struct {
	store      *repository.Store
	bcryptCost int
}

// NewEventService constructs an EventService.  bcryptCost is used when
// hashing the generated admin key and join code.
func NewEventService(store *repository.Store, bcryptCost int) *EventService {
	return &EventService{store: store, bcryptCost: bcryptCost}
}

// Create generates a new event with a random admin key and, when the
// event is join-code gated, a random human-readable join code.  Both
// secrets are returned exactly once and persisted only as hashes.
// Events are created with the waitlist enabled.
func (s *EventService) Create(ctx context.Context, input CreateEventInput) (*CreatedEvent, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ValidationError("title is required")
	}
	if input.Capacity < 0 {
		return nil, ValidationError("capacity must be a non-negative integer")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, ValidationError("ends_at must be after starts_at")
	}

	adminKeyRaw := utils.NewAdminKey()
	adminKeyHash, err := utils.HashSecret(adminKeyRaw, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin key: %w", err)
	}

	var joinCodeRaw *string
	var joinCodeHash *string
	if input.RequiresJoinCode {
		raw := utils.NewJoinCode()
		hash, err := utils.HashSecret(raw, s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash join code: %w", err)
		}
		joinCodeRaw = &raw
		joinCodeHash = &hash
	}

	ev := &model.Event{
		ID:               utils.NewID(),
		Title:            input.Title,
		Description:      input.Description,
		Type:             input.Type,
		StartsAt:         input.StartsAt.UTC(),
		EndsAt:           input.EndsAt.UTC(),
		LocationText:     input.LocationText,
		Public:           input.Public,
		RequiresJoinCode: input.RequiresJoinCode,
		JoinCodeHash:     joinCodeHash,
		AdminKeyHash:     adminKeyHash,
		Capacity:         input.Capacity,
		WaitlistEnabled:  true,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.store.Events.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return &CreatedEvent{Event: ev, JoinCode: joinCodeRaw, AdminKey: adminKeyRaw}, nil
}

// Get returns an event or ErrEventNotFound.
func (s *EventService) Get(ctx context.Context, eventID string) (*model.Event, error) {
	ev, err := s.store.Events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// GetWithCounts returns an event together with its confirmed and
// waitlisted counts.  Counts are fresh aggregations, never cached.
func (s *EventService) GetWithCounts(ctx context.Context, eventID string) (*model.Event, int, int, error) {
	ev, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, 0, 0, err
	}
	confirmed, err := s.store.Reservations.CountConfirmed(ctx, eventID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("count confirmed: %w", err)
	}
	waitlisted, err := s.store.Reservations.CountWaitlisted(ctx, eventID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("count waitlisted: %w", err)
	}
	return ev, confirmed, waitlisted, nil
}

// Search filters events by free-text query and start-time window and
// returns one page plus the total match count.  Events are ordered by
// start time ascending.
func (s *EventService) Search(ctx context.Context, params SearchParams) ([]model.Event, int, error) {
	events, err := s.store.Events.ListAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	filtered := events[:0]
	q := strings.ToLower(strings.TrimSpace(params.Query))
	for _, ev := range events {
		if q != "" && !matchesQuery(&ev, q) {
			continue
		}
		if params.Start != nil && ev.StartsAt.Before(*params.Start) {
			continue
		}
		if params.To != nil && ev.StartsAt.After(*params.To) {
			continue
		}
		filtered = append(filtered, ev)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].StartsAt.Before(filtered[j].StartsAt)
	})

	total := len(filtered)
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func matchesQuery(ev *model.Event, q string) bool {
	if strings.Contains(strings.ToLower(ev.Title), q) {
		return true
	}
	return ev.Description != nil && strings.Contains(strings.ToLower(*ev.Description), q)
}
