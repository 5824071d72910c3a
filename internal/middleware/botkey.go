package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// BotKeyAuth guards automation endpoints with a shared secret carried
// in the X-Bot-Key header.  When no key is configured the endpoints are
// disabled outright instead of left open.
func BotKeyAuth(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				return c.JSON(http.StatusForbidden, map[string]any{
					"error": map[string]any{"code": "FORBIDDEN", "message": "Bot access is not configured"},
				})
			}
			got := c.Request().Header.Get("X-Bot-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return c.JSON(http.StatusForbidden, map[string]any{
					"error": map[string]any{"code": "FORBIDDEN", "message": "Invalid bot key"},
				})
			}
			return next(c)
		}
	}
}
