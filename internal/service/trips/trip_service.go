package trips

import (
	"context"
	"fmt"
	"time"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/avdonin/ridepool/internal/geo"
	"github.com/avdonin/ridepool/internal/repository"
	"github.com/sirupsen/logrus"
)

type TripUseCase interface {
	CreateRoute(ctx context.Context, input CreateRouteInput) (*domain.Route, error)
	GetRoute(ctx context.Context, id int64) (*domain.Route, error)
	Publish(ctx context.Context, input PublishInput) (*domain.Trip, error)
	Get(ctx context.Context, id int64) (*domain.Trip, error)
	ListByDriver(ctx context.Context, driverID int64) ([]domain.Trip, error)
	Search(ctx context.Context, input SearchInput) ([]domain.Trip, error)
	Cancel(ctx context.Context, tripID, driverID int64) (*domain.Trip, error)
	Start(ctx context.Context, tripID, driverID int64) (*domain.Trip, error)
	Complete(ctx context.Context, tripID, driverID int64) (*domain.Trip, error)
}

// Cascader hands trip-level transitions down to the booking lifecycle
// manager so events and seat accounting stay in one place.
type Cascader interface {
	RejectPendingForTrip(ctx context.Context, tripID int64, reason string) ([]domain.TripBooking, error)
	CancelApprovedForTrip(ctx context.Context, tripID int64) ([]domain.TripBooking, error)
	CompleteApprovedForTrip(ctx context.Context, tripID int64) ([]domain.TripBooking, error)
}

type Cache interface {
	GetTrips(ctx context.Context, key string) ([]domain.Trip, error)
	SetTrips(ctx context.Context, key string, trips []domain.Trip) error
	InvalidateTrips(ctx context.Context) error
}

type TripService struct {
	trips    repository.TripRepository
	routes   repository.RouteRepository
	cars     repository.CarRepository
	users    repository.UserRepository
	bookings Cascader
	cache    Cache
	log      *logrus.Logger
}

func NewTripService(
	trips repository.TripRepository,
	routes repository.RouteRepository,
	cars repository.CarRepository,
	users repository.UserRepository,
	bookings Cascader,
	cache Cache,
	log *logrus.Logger,
) *TripService {
	return &TripService{
		trips:    trips,
		routes:   routes,
		cars:     cars,
		users:    users,
		bookings: bookings,
		cache:    cache,
		log:      log,
	}
}

type CreateRouteInput struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	OriginLat   float64 `json:"origin_lat"`
	OriginLng   float64 `json:"origin_lng"`
	DestLat     float64 `json:"dest_lat"`
	DestLng     float64 `json:"dest_lng"`
}

type PublishInput struct {
	DriverID      int64     `json:"-"`
	RouteID       int64     `json:"route_id"`
	CarID         int64     `json:"car_id"`
	DepartureTime time.Time `json:"departure_time"`
	PricePerSeat  int64     `json:"price_per_seat"`
	Seats         int       `json:"seats"`
	Notes         string    `json:"notes"`
}

type SearchInput struct {
	OriginLat *float64
	OriginLng *float64
	DestLat   *float64
	DestLng   *float64
	From      time.Time
	To        time.Time
}

// CreateRoute derives distance, duration estimate and geohash cells from the
// endpoint coordinates; the caller supplies only names and coordinates.
func (s *TripService) CreateRoute(ctx context.Context, input CreateRouteInput) (*domain.Route, error) {
	if input.Origin == "" || input.Destination == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", domain.ErrInvalidState)
	}

	distance := geo.DistanceKm(input.OriginLat, input.OriginLng, input.DestLat, input.DestLng)
	route := &domain.Route{
		Origin:          input.Origin,
		Destination:     input.Destination,
		OriginLat:       input.OriginLat,
		OriginLng:       input.OriginLng,
		DestLat:         input.DestLat,
		DestLng:         input.DestLng,
		OriginGeohash:   geo.Cell(input.OriginLat, input.OriginLng),
		DestGeohash:     geo.Cell(input.DestLat, input.DestLng),
		DistanceKm:      distance,
		DurationMinutes: geo.EstimateDurationMinutes(distance),
	}
	if err := s.routes.Create(ctx, route); err != nil {
		return nil, err
	}
	return route, nil
}

func (s *TripService) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	return s.routes.GetByID(ctx, id)
}

// Publish creates a SCHEDULED trip. The car must belong to the driver, be
// active, and have room for the offered seats.
func (s *TripService) Publish(ctx context.Context, input PublishInput) (*domain.Trip, error) {
	if input.Seats <= 0 {
		return nil, fmt.Errorf("%w: seats must be positive", domain.ErrInvalidState)
	}
	if !input.DepartureTime.After(time.Now()) {
		return nil, fmt.Errorf("%w: departure must be in the future", domain.ErrInvalidState)
	}

	if _, err := s.routes.GetByID(ctx, input.RouteID); err != nil {
		return nil, err
	}

	car, err := s.cars.GetByID(ctx, input.CarID)
	if err != nil {
		return nil, err
	}
	if car.OwnerID != input.DriverID {
		return nil, domain.ErrUnauthorized
	}
	if !car.Active {
		return nil, fmt.Errorf("%w: car is not active", domain.ErrInvalidState)
	}
	if input.Seats > car.Seats {
		return nil, fmt.Errorf("%w: car has only %d seats", domain.ErrCapacityExceeded, car.Seats)
	}

	trip := &domain.Trip{
		RouteID:        input.RouteID,
		DriverID:       input.DriverID,
		CarID:          input.CarID,
		DepartureTime:  input.DepartureTime,
		PricePerSeat:   input.PricePerSeat,
		SeatsTotal:     input.Seats,
		SeatsAvailable: input.Seats,
		Status:         domain.TripStatusScheduled,
		Notes:          input.Notes,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.invalidateSearch(ctx)
	return trip, nil
}

func (s *TripService) Get(ctx context.Context, id int64) (*domain.Trip, error) {
	return s.trips.GetByID(ctx, id)
}

func (s *TripService) ListByDriver(ctx context.Context, driverID int64) ([]domain.Trip, error) {
	return s.trips.ListByDriver(ctx, driverID)
}

func (s *TripService) Search(ctx context.Context, input SearchInput) ([]domain.Trip, error) {
	filter := repository.TripSearchFilter{From: input.From, To: input.To}
	if input.OriginLat != nil && input.OriginLng != nil {
		filter.OriginCell = geo.Cell(*input.OriginLat, *input.OriginLng)
	}
	if input.DestLat != nil && input.DestLng != nil {
		filter.DestCell = geo.Cell(*input.DestLat, *input.DestLng)
	}

	key := searchKey(filter)
	if s.cache != nil {
		if cached, err := s.cache.GetTrips(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	trips, err := s.trips.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetTrips(ctx, key, trips); err != nil {
			s.log.WithError(err).Warn("failed to cache trip search")
		}
	}
	return trips, nil
}

// Cancel kills a SCHEDULED trip: pending requests are rejected, approved
// bookings cancelled. Seats are not restored since the trip no longer exists
// for booking purposes.
func (s *TripService) Cancel(ctx context.Context, tripID, driverID int64) (*domain.Trip, error) {
	trip, err := s.ownedTrip(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripStatusScheduled {
		return nil, fmt.Errorf("%w: trip is %s", domain.ErrInvalidState, trip.Status)
	}

	if err := s.trips.UpdateStatus(ctx, tripID, domain.TripStatusScheduled, domain.TripStatusCancelled); err != nil {
		return nil, err
	}
	if _, err := s.bookings.RejectPendingForTrip(ctx, tripID, "trip cancelled"); err != nil {
		s.log.WithError(err).WithField("trip_id", tripID).Error("failed to reject pending bookings")
	}
	if _, err := s.bookings.CancelApprovedForTrip(ctx, tripID); err != nil {
		s.log.WithError(err).WithField("trip_id", tripID).Error("failed to cancel approved bookings")
	}

	s.invalidateSearch(ctx)
	return s.trips.GetByID(ctx, tripID)
}

// Start moves a SCHEDULED trip to ACTIVE and rejects requests that were
// still pending at departure.
func (s *TripService) Start(ctx context.Context, tripID, driverID int64) (*domain.Trip, error) {
	trip, err := s.ownedTrip(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripStatusScheduled {
		return nil, fmt.Errorf("%w: trip is %s", domain.ErrInvalidState, trip.Status)
	}

	if err := s.startTrip(ctx, tripID); err != nil {
		return nil, err
	}
	return s.trips.GetByID(ctx, tripID)
}

// Complete finishes an ACTIVE trip, completes its approved bookings and bumps
// the trip counters on driver and passenger profiles.
func (s *TripService) Complete(ctx context.Context, tripID, driverID int64) (*domain.Trip, error) {
	trip, err := s.ownedTrip(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripStatusActive {
		return nil, fmt.Errorf("%w: trip is %s", domain.ErrInvalidState, trip.Status)
	}

	if err := s.trips.UpdateStatus(ctx, tripID, domain.TripStatusActive, domain.TripStatusCompleted); err != nil {
		return nil, err
	}

	completed, err := s.bookings.CompleteApprovedForTrip(ctx, tripID)
	if err != nil {
		s.log.WithError(err).WithField("trip_id", tripID).Error("failed to complete bookings")
	}

	if err := s.users.IncrementDriverTrips(ctx, driverID); err != nil {
		s.log.WithError(err).WithField("user_id", driverID).Error("failed to bump driver trip count")
	}
	for _, b := range completed {
		if err := s.users.IncrementRiderTrips(ctx, b.PassengerID); err != nil {
			s.log.WithError(err).WithField("user_id", b.PassengerID).Error("failed to bump rider trip count")
		}
	}

	return s.trips.GetByID(ctx, tripID)
}

// StartDepartedTrips is the worker sweep: every SCHEDULED trip whose
// departure time has passed becomes ACTIVE and sheds its pending requests.
func (s *TripService) StartDepartedTrips(ctx context.Context) (int, error) {
	departed, err := s.trips.ListDepartedScheduled(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	started := 0
	for _, trip := range departed {
		if err := s.startTrip(ctx, trip.ID); err != nil {
			s.log.WithError(err).WithField("trip_id", trip.ID).Error("failed to start departed trip")
			continue
		}
		started++
	}
	if started > 0 {
		s.invalidateSearch(ctx)
	}
	return started, nil
}

func (s *TripService) startTrip(ctx context.Context, tripID int64) error {
	if err := s.trips.UpdateStatus(ctx, tripID, domain.TripStatusScheduled, domain.TripStatusActive); err != nil {
		return err
	}
	if _, err := s.bookings.RejectPendingForTrip(ctx, tripID, "trip departed"); err != nil {
		s.log.WithError(err).WithField("trip_id", tripID).Error("failed to reject pending bookings at departure")
	}
	return nil
}

func (s *TripService) ownedTrip(ctx context.Context, tripID, driverID int64) (*domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != driverID {
		return nil, domain.ErrUnauthorized
	}
	return trip, nil
}

func (s *TripService) invalidateSearch(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTrips(ctx); err != nil {
		s.log.WithError(err).Warn("failed to invalidate trip search cache")
	}
}

func searchKey(filter repository.TripSearchFilter) string {
	from, to := "", ""
	if !filter.From.IsZero() {
		from = filter.From.UTC().Format(time.RFC3339)
	}
	if !filter.To.IsZero() {
		to = filter.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s:%s:%s:%s", filter.OriginCell, filter.DestCell, from, to)
}

var _ TripUseCase = (*TripService)(nil)
