package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avdonin/ridepool/config"
	"github.com/avdonin/ridepool/internal/auth"
	"github.com/avdonin/ridepool/internal/bootstrap"
	"github.com/avdonin/ridepool/internal/cache"
	"github.com/avdonin/ridepool/internal/kafka"
	"github.com/avdonin/ridepool/internal/logger"
	"github.com/avdonin/ridepool/internal/repository"
	"github.com/avdonin/ridepool/internal/service/booking"
	"github.com/avdonin/ridepool/internal/service/trips"
	"github.com/avdonin/ridepool/internal/service/users"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SearchCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	userRepo := repository.NewUserRepository(pool)
	carRepo := repository.NewCarRepository(pool)
	routeRepo := repository.NewRouteRepository(pool)
	tripRepo := repository.NewTripRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	userService := users.NewUserService(userRepo, carRepo, tokens, appLog)
	bookingService := booking.NewBookingService(
		bookingRepo,
		tripRepo,
		userRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		time.Duration(cfg.Booking.IntentLockTTLSeconds)*time.Second,
		appLog,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	tripService := trips.NewTripService(tripRepo, routeRepo, carRepo, userRepo, bookingService, redisCache, appLog)

	svc := bootstrap.Services{
		Users:    userService,
		Trips:    tripService,
		Bookings: bookingService,
		Tokens:   tokens,
	}
	if err := bootstrap.Run(ctx, cfg, svc, appLog); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
