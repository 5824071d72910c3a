package handler

import (
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/icsconnect/rsvp/internal/utils"
)

// AuthHandler issues and introspects identity tokens.  There is no user
// table: the identity id is derived deterministically from the
// normalized email, so logging in twice with the same address yields
// the same subject.
type AuthHandler struct {
	Secret   string
	TokenTTL time.Duration
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(secret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{Secret: secret, TokenTTL: ttl}
}

// Login handles POST /api/v1/auth/login.  The body must contain an
// email and a display name; the response carries a Bearer token plus
// the resolved identity.
func (h *AuthHandler) Login(c echo.Context) error {
	var body struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
	}
	if err := c.Bind(&body); err != nil {
		return jsonError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}
	email := strings.TrimSpace(body.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return jsonError(c, http.StatusBadRequest, "VALIDATION_ERROR", "A valid email is required")
	}
	name := strings.TrimSpace(body.DisplayName)
	if name == "" {
		return jsonError(c, http.StatusBadRequest, "VALIDATION_ERROR", "display_name is required")
	}

	userID := utils.UserIDFromEmail(email)
	token, err := utils.NewUserToken(h.Secret, userID, name, email, h.TokenTTL)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":           userID,
			"display_name": name,
			"email":        email,
		},
	})
}

// Me handles GET /api/v1/auth/me.  The auth middleware has already
// validated the token and stashed the claims in the context.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user": echo.Map{
			"id":           contextString(c, "user_id"),
			"display_name": contextString(c, "display_name"),
			"email":        contextString(c, "email"),
		},
	})
}
