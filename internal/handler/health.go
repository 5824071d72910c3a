package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health handles GET /healthz.  Load balancers and uptime checks probe
// it to verify the process is serving.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
