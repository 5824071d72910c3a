// Package router wires the HTTP surface: route registration, auth
// middleware placement and the read/write rate-limit tiers.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/icsconnect/rsvp/internal/config"
	"github.com/icsconnect/rsvp/internal/handler"
	"github.com/icsconnect/rsvp/internal/middleware"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Auth      *handler.AuthHandler
	Events    *handler.EventHandler
	Bot       *handler.BotHandler
	JWTSecret string
	BotKey    string
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
}

// Register mounts all routes on the provided Echo instance.  Write
// routes sit behind the smaller token bucket, read routes behind the
// larger one; when Redis is absent both limiters are pass-throughs.
func Register(e *echo.Echo, d Deps) {
	writeLimit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.RateLimit.WriteCapacity)
	readLimit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.RateLimit.ReadCapacity)

	e.GET("/healthz", handler.Health)

	v1 := e.Group("/api/v1")

	v1.POST("/auth/login", d.Auth.Login, writeLimit)
	v1.GET("/auth/me", d.Auth.Me, middleware.UserAuth(d.JWTSecret), readLimit)

	// Browsing works anonymously; a presented token still identifies
	// the caller so the limiter buckets per user instead of per IP pool.
	optionalAuth := middleware.OptionalUserAuth(d.JWTSecret)
	v1.POST("/events", d.Events.CreateEvent, writeLimit)
	v1.GET("/events/:id", d.Events.GetEvent, optionalAuth, readLimit)
	v1.GET("/search", d.Events.Search, optionalAuth, readLimit)

	// Reserve authenticates with the user token.  Mine accepts the
	// capability token or a user token; cancel takes the capability
	// token only.  Both parse the token in the handler.
	v1.POST("/events/:id/reserve", d.Events.Reserve, middleware.UserAuth(d.JWTSecret), writeLimit)
	v1.GET("/events/:id/mine", d.Events.Mine, readLimit)
	v1.POST("/events/:id/cancel", d.Events.Cancel, writeLimit)

	bot := v1.Group("/bot", middleware.BotKeyAuth(d.BotKey))
	bot.POST("/events", d.Bot.CreateEvent, writeLimit)
}
