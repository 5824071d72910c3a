// Package handler contains the HTTP handlers for the /api/v1 surface.
// Handlers translate between the JSON wire format and the service
// layer; business decisions live in internal/service.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/icsconnect/rsvp/internal/model"
	"github.com/icsconnect/rsvp/internal/service"
)

// errorBody is the uniform error envelope.  Every non-2xx response
// carries one so clients can switch on a stable code instead of
// parsing message text.
type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func jsonError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{"error": errorBody{Code: code, Message: message}})
}

// writeServiceError maps a service-layer error to an HTTP response.
// AppError codes get their canonical status; anything else is an
// internal failure and its message is deliberately not echoed back.
func writeServiceError(c echo.Context, err error) error {
	var appErr *service.AppError
	if errors.As(err, &appErr) {
		status := http.StatusBadRequest
		if appErr.Code == "NOT_FOUND" {
			status = http.StatusNotFound
		}
		return jsonError(c, status, appErr.Code, appErr.Message)
	}
	c.Logger().Errorf("internal error: %v", err)
	return jsonError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
}

// eventView is the public JSON shape of an event.  Secret hashes never
// leave the server.
type eventView struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	Type             *string `json:"type"`
	StartsAt         string  `json:"starts_at"`
	EndsAt           string  `json:"ends_at"`
	LocationText     *string `json:"location_text"`
	Public           bool    `json:"public"`
	RequiresJoinCode bool    `json:"requires_join_code"`
	Capacity         int     `json:"capacity"`
	WaitlistEnabled  bool    `json:"waitlist_enabled"`
	CreatedAt        string  `json:"created_at"`
}

func newEventView(ev *model.Event) eventView {
	return eventView{
		ID:               ev.ID,
		Title:            ev.Title,
		Description:      ev.Description,
		Type:             ev.Type,
		StartsAt:         ev.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:           ev.EndsAt.UTC().Format(time.RFC3339),
		LocationText:     ev.LocationText,
		Public:           ev.Public,
		RequiresJoinCode: ev.RequiresJoinCode,
		Capacity:         ev.Capacity,
		WaitlistEnabled:  ev.WaitlistEnabled,
		CreatedAt:        ev.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type reservationView struct {
	ID          string  `json:"id"`
	EventID     string  `json:"event_id"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email"`
	Status      string  `json:"status"`
	PromotedAt  *string `json:"promoted_at"`
	CreatedAt   string  `json:"created_at"`
}

func newReservationView(r *model.Reservation) reservationView {
	v := reservationView{
		ID:          r.ID,
		EventID:     r.EventID,
		DisplayName: r.DisplayName,
		Email:       r.Email,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.PromotedAt != nil {
		s := r.PromotedAt.UTC().Format(time.RFC3339)
		v.PromotedAt = &s
	}
	return v
}

// contextString pulls a string value set by auth middleware out of the
// echo context.
func contextString(c echo.Context, key string) string {
	if v := c.Get(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
