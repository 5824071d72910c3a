package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/icsconnect/rsvp/internal/utils"
)

// UserAuth validates a Bearer identity token and injects the caller's
// identity into the request context.  Handlers behind it read
// c.Get("user_id"), c.Get("display_name") and c.Get("email").
func UserAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "Missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseUserToken(secret, raw)
			if err != nil {
				return unauthorized(c, "Invalid or expired token")
			}

			c.Set("user_id", claims.UserID)
			c.Set("display_name", claims.DisplayName)
			c.Set("email", claims.Email)
			return next(c)
		}
	}
}

// OptionalUserAuth injects the caller's identity when a valid user
// token is present and otherwise treats the request as anonymous.
// Tokens that do not parse as user tokens (including reservation
// capability tokens) fall through without error, so public routes stay
// reachable whatever the client has in its Authorization header.
func OptionalUserAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				raw := strings.TrimPrefix(auth, "Bearer ")
				if claims, err := utils.ParseUserToken(secret, raw); err == nil {
					c.Set("user_id", claims.UserID)
					c.Set("display_name", claims.DisplayName)
					c.Set("email", claims.Email)
				}
			}
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]any{
		"error": map[string]any{"code": "UNAUTHORIZED", "message": msg},
	})
}
