package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avdonin/ridepool/api"
	"github.com/avdonin/ridepool/config"
	"github.com/avdonin/ridepool/internal/auth"
	"github.com/avdonin/ridepool/internal/service/booking"
	"github.com/avdonin/ridepool/internal/service/trips"
	"github.com/avdonin/ridepool/internal/service/users"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Services struct {
	Users    users.UserUseCase
	Trips    trips.TripUseCase
	Bookings booking.BookingUseCase
	Tokens   *auth.TokenManager
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services, log *logrus.Logger) error {
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: NewRouter(svc, log),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.WithField("address", cfg.HTTP.Address).Info("http server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(svc Services, log *logrus.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	userHandler := api.NewUserHandler(svc.Users)
	tripHandler := api.NewTripHandler(svc.Trips)
	bookingHandler := api.NewBookingHandler(svc.Bookings)

	v1 := router.Group("/api/v1")
	userHandler.RegisterPublic(v1)

	protected := v1.Group("")
	protected.Use(api.AuthRequired(svc.Tokens))
	userHandler.RegisterProtected(protected)
	tripHandler.Register(protected)
	bookingHandler.Register(protected)

	return router
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}
