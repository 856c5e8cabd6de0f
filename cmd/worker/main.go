package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avdonin/ridepool/config"
	"github.com/avdonin/ridepool/internal/cache"
	"github.com/avdonin/ridepool/internal/kafka"
	"github.com/avdonin/ridepool/internal/logger"
	"github.com/avdonin/ridepool/internal/notify"
	"github.com/avdonin/ridepool/internal/repository"
	"github.com/avdonin/ridepool/internal/service/booking"
	"github.com/avdonin/ridepool/internal/service/trips"
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

	workerLog := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SearchCacheTTL)*time.Second)

	userRepo := repository.NewUserRepository(pool)
	carRepo := repository.NewCarRepository(pool)
	routeRepo := repository.NewRouteRepository(pool)
	tripRepo := repository.NewTripRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	bookingService := booking.NewBookingService(
		bookingRepo,
		tripRepo,
		userRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		time.Duration(cfg.Booking.IntentLockTTLSeconds)*time.Second,
		workerLog,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	tripService := trips.NewTripService(tripRepo, routeRepo, carRepo, userRepo, bookingService, redisCache, workerLog)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	notifier := notify.NewNotifier(workerLog)
	go func() {
		if err := consumer.Consume(ctx, notifier.Handle); err != nil {
			workerLog.WithError(err).Info("consumer stopped")
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.DepartureSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	workerLog.Info("worker started")

	for {
		select {
		case <-sweepTicker.C:
			started, err := tripService.StartDepartedTrips(ctx)
			if err != nil {
				workerLog.WithError(err).Error("departure sweep failed")
				continue
			}
			if started > 0 {
				workerLog.WithField("trips", started).Info("started departed trips")
			}
		case <-ctx.Done():
			workerLog.Info("shutting down")
			return
		}
	}
}
