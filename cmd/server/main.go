package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/icsconnect/rsvp/internal/config"
	"github.com/icsconnect/rsvp/internal/database"
	"github.com/icsconnect/rsvp/internal/handler"
	"github.com/icsconnect/rsvp/internal/queue"
	"github.com/icsconnect/rsvp/internal/repository"
	"github.com/icsconnect/rsvp/internal/router"
	"github.com/icsconnect/rsvp/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("storage init: %v", err)
	}

	var publisher service.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL)
	}

	tokenTTL := time.Duration(cfg.TokenTTLDays) * 24 * time.Hour
	eventSvc := service.NewEventService(store, cfg.BcryptCost)
	reservationSvc := service.NewReservationService(store, publisher, cfg.JWTSecret, tokenTTL)

	if cfg.RabbitURL != "" {
		go queue.StartBotConsumer(cfg.RabbitURL, func(ctx context.Context, cmd queue.CreateEventCommand) error {
			input, err := commandToInput(cmd)
			if err != nil {
				return err
			}
			_, err = eventSvc.Create(ctx, input)
			return err
		})
	}

	rdb := config.NewRedisClient()
	rlCfg := config.LoadRateLimitConfig()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(cfg.JWTSecret, tokenTTL),
		Events:    handler.NewEventHandler(eventSvc, reservationSvc, cfg.JWTSecret),
		Bot:       handler.NewBotHandler(eventSvc),
		JWTSecret: cfg.JWTSecret,
		BotKey:    cfg.BotKey,
		RateLimit: rlCfg,
		Redis:     rdb,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s backend=%s)", addr, cfg.Env, cfg.StoreBackend)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// buildStore selects the storage backend once at startup.  The mysql
// backend opens a pooled connection and applies migrations; the memory
// backend needs nothing.
func buildStore(cfg config.Config) (*repository.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return repository.NewMySQLStore(db), nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func commandToInput(cmd queue.CreateEventCommand) (service.CreateEventInput, error) {
	startsAt, err := time.Parse(time.RFC3339, cmd.StartsAt)
	if err != nil {
		return service.CreateEventInput{}, fmt.Errorf("parse starts_at: %w", err)
	}
	endsAt, err := time.Parse(time.RFC3339, cmd.EndsAt)
	if err != nil {
		return service.CreateEventInput{}, fmt.Errorf("parse ends_at: %w", err)
	}
	return service.CreateEventInput{
		Title:            cmd.Title,
		Description:      cmd.Description,
		Type:             cmd.Type,
		StartsAt:         startsAt,
		EndsAt:           endsAt,
		LocationText:     cmd.LocationText,
		Public:           cmd.Public,
		RequiresJoinCode: cmd.RequiresJoinCode,
		Capacity:         cmd.Capacity,
	}, nil
}
