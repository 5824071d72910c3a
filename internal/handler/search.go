package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/icsconnect/rsvp/internal/service"
)

// Search handles GET /api/v1/search.  Query parameters: q (free text
// over title and description), start and to (RFC 3339 bounds on the
// start time), limit and offset for paging.
func (h *EventHandler) Search(c echo.Context) error {
	params := service.SearchParams{Query: c.QueryParam("q")}

	if raw := c.QueryParam("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "VALIDATION_ERROR", "start must be an RFC 3339 timestamp")
		}
		params.Start = &t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "VALIDATION_ERROR", "to must be an RFC 3339 timestamp")
		}
		params.To = &t
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return jsonError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 100")
		}
		params.Limit = n
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return jsonError(c, http.StatusBadRequest, "VALIDATION_ERROR", "offset must be a non-negative integer")
		}
		params.Offset = n
	}

	events, total, err := h.Events.Search(c.Request().Context(), params)
	if err != nil {
		return writeServiceError(c, err)
	}
	views := make([]eventView, 0, len(events))
	for i := range events {
		views = append(views, newEventView(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"events": views,
		"total":  total,
	})
}
