package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/icsconnect/rsvp/internal/service"
	"github.com/icsconnect/rsvp/internal/utils"
)

// EventHandler serves event creation, the public event view and the
// reservation lifecycle (reserve, lookup, cancel).
type EventHandler struct {
	Events       *service.EventService
	Reservations *service.ReservationService
	TokenSecret  string
}

// NewEventHandler constructs an EventHandler.  All dependencies must be
// non-nil.
func NewEventHandler(events *service.EventService, reservations *service.ReservationService, secret string) *EventHandler {
	if events == nil || reservations == nil {
		panic("nil service passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Reservations: reservations, TokenSecret: secret}
}

// createEventRequest mirrors the creation payload.  Timestamps are
// RFC 3339 strings on the wire.
type createEventRequest struct {
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	Type             *string `json:"type"`
	StartsAt         string  `json:"starts_at"`
	EndsAt           string  `json:"ends_at"`
	LocationText     *string `json:"location_text"`
	Public           bool    `json:"public"`
	RequiresJoinCode bool    `json:"requires_join_code"`
	Capacity         int     `json:"capacity"`
}

func (r *createEventRequest) toInput() (service.CreateEventInput, error) {
	startsAt, err := time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		return service.CreateEventInput{}, service.ValidationError("starts_at must be an RFC 3339 timestamp")
	}
	endsAt, err := time.Parse(time.RFC3339, r.EndsAt)
	if err != nil {
		return service.CreateEventInput{}, service.ValidationError("ends_at must be an RFC 3339 timestamp")
	}
	return service.CreateEventInput{
		Title:            r.Title,
		Description:      r.Description,
		Type:             r.Type,
		StartsAt:         startsAt,
		EndsAt:           endsAt,
		LocationText:     r.LocationText,
		Public:           r.Public,
		RequiresJoinCode: r.RequiresJoinCode,
		Capacity:         r.Capacity,
	}, nil
}

// CreateEvent handles POST /api/v1/events.  The response includes the
// admin key and, for gated events, the join code.  Both are shown
// exactly once; only hashes are stored.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var body createEventRequest
	if err := c.Bind(&body); err != nil {
		return jsonError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}
	input, err := body.toInput()
	if err != nil {
		return writeServiceError(c, err)
	}
	created, err := h.Events.Create(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"event":     newEventView(created.Event),
		"join_code": created.JoinCode,
		"admin_key": created.AdminKey,
	})
}

// GetEvent handles GET /api/v1/events/:id.  The view includes fresh
// confirmed and waitlisted counts.
func (h *EventHandler) GetEvent(c echo.Context) error {
	ev, confirmed, waitlisted, err := h.Events.GetWithCounts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event":            newEventView(ev),
		"confirmed_count":  confirmed,
		"waitlisted_count": waitlisted,
	})
}

// Reserve handles POST /api/v1/events/:id/reserve.  The caller's
// identity comes from the Bearer token; the body may carry a join code
// for gated events.  Repeating the call with the same identity returns
// the existing reservation with a fresh capability token.
func (h *EventHandler) Reserve(c echo.Context) error {
	userID := contextString(c, "user_id")
	if userID == "" {
		return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}

	var body struct {
		JoinCode *string `json:"join_code"`
	}
	if err := c.Bind(&body); err != nil {
		return jsonError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}

	ctx := c.Request().Context()
	ev, err := h.Events.Get(ctx, c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}

	email := contextString(c, "email")
	input := service.ReserveInput{
		DisplayName: contextString(c, "display_name"),
		JoinCode:    body.JoinCode,
		UserID:      &userID,
	}
	if email != "" {
		input.Email = &email
	}

	result, err := h.Reservations.Reserve(ctx, ev, input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation": newReservationView(result.Reservation),
		"token":       result.Token,
	})
}

// Mine handles GET /api/v1/events/:id/mine.  The Bearer token is either
// the reservation capability token handed out at reserve time, which
// resolves by reservation ID, or a user token, which resolves by the
// caller's identity.
func (h *EventHandler) Mine(c echo.Context) error {
	raw, ok := bearerToken(c)
	if !ok {
		return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
	}
	ctx := c.Request().Context()

	if claims, err := utils.ParseReservationToken(h.TokenSecret, raw); err == nil {
		res, err := h.Reservations.FindForEvent(ctx, c.Param("id"), claims.ReservationID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"reservation": newReservationView(res)})
	}

	user, err := utils.ParseUserToken(h.TokenSecret, raw)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
	}
	res, err := h.Reservations.FindMine(ctx, c.Param("id"), user.UserID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": newReservationView(res)})
}

// Cancel handles POST /api/v1/events/:id/cancel.  Cancellation is
// idempotent; either way the oldest waitlisted reservation is promoted
// when a confirmed slot is open.
func (h *EventHandler) Cancel(c echo.Context) error {
	claims, err := h.reservationClaims(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Valid reservation token required")
	}
	if err := h.Reservations.CancelAndMaybePromote(c.Request().Context(), c.Param("id"), claims.ReservationID); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "canceled"})
}

func (h *EventHandler) reservationClaims(c echo.Context) (*utils.ReservationClaims, error) {
	raw, ok := bearerToken(c)
	if !ok {
		return nil, utils.ErrInvalidToken
	}
	return utils.ParseReservationToken(h.TokenSecret, raw)
}

func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(auth, "Bearer "), true
}
