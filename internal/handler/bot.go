package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/icsconnect/rsvp/internal/service"
)

// BotHandler serves the automation surface behind the X-Bot-Key guard.
// It mirrors the broker consumer: both paths feed the same event
// service, so a chat bot can create events over HTTP or over the queue.
type BotHandler struct {
	Events *service.EventService
}

// NewBotHandler constructs a BotHandler.
func NewBotHandler(events *service.EventService) *BotHandler {
	if events == nil {
		panic("nil service passed to NewBotHandler")
	}
	return &BotHandler{Events: events}
}

// CreateEvent handles POST /api/v1/bot/events.  The payload is the same
// as the public creation endpoint; the response likewise includes the
// one-time admin key and join code for the bot to relay.
func (h *BotHandler) CreateEvent(c echo.Context) error {
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
