package utils // package utils provides helpers for identifiers, secrets and signed tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// ErrInvalidToken is returned when a token fails to parse, has the
// wrong signing method, or is missing required claims.
var ErrInvalidToken = errors.New("invalid token")

// UserClaims carries the verified identity of an authenticated caller:
// a stable user ID together with the profile fields captured at login.
type UserClaims struct {
	UserID      string
	DisplayName string
	Email       string
}

// ReservationClaims identifies a single reservation.  A token with
// these claims is the capability returned from reserve: whoever holds
// it can look up or cancel that reservation.
type ReservationClaims struct {
	ReservationID string
	EventID       string
}

// NewUserToken signs an HS256 JWT for an authenticated user.  Claims
// follow the usual shape: sub is the user ID, name and email carry the
// profile, exp/iat bound the token's lifetime.
func NewUserToken(secret, userID, displayName, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   userID,
		"name":  displayName,
		"email": email,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// NewReservationToken signs the capability token returned alongside a
// reservation.  sub is the reservation ID; eventId scopes the token to
// one event.
func NewReservationToken(secret, reservationID, eventID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":     reservationID,
		"eventId": eventID,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseUserToken verifies the signature and expiry of a user token and
// extracts its identity claims.
func ParseUserToken(secret, raw string) (*UserClaims, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return nil, err
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return nil, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	return &UserClaims{UserID: sub, DisplayName: name, Email: email}, nil
}

// ParseReservationToken verifies a capability token and extracts the
// reservation it refers to.
func ParseReservationToken(secret, raw string) (*ReservationClaims, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return nil, err
	}
	sub, _ := claims["sub"].(string)
	eventID, _ := claims["eventId"].(string)
	// eventId doubles as the type marker: user tokens lack it, so they
	// can never be replayed as capability tokens.
	if sub == "" || eventID == "" {
		return nil, ErrInvalidToken
	}
	return &ReservationClaims{ReservationID: sub, EventID: eventID}, nil
}

func parseHS256(secret, raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject any signing method other than HMAC to prevent
		// algorithm-substitution tricks.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
