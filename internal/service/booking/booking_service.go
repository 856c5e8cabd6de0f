package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/avdonin/ridepool/internal/kafka"
	"github.com/avdonin/ridepool/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.TripBooking, error)
	Accept(ctx context.Context, bookingID, driverID int64) (*domain.TripBooking, error)
	Reject(ctx context.Context, bookingID, driverID int64, reason string) (*domain.TripBooking, error)
	Cancel(ctx context.Context, bookingID, passengerID int64) (*domain.TripBooking, error)
	CanUserBookTrip(ctx context.Context, tripID, userID int64) domain.Eligibility
	GetByToken(ctx context.Context, token string, userID int64) (*domain.TripBooking, error)
	ListForTrip(ctx context.Context, tripID, driverID int64) ([]domain.TripBooking, error)
	ListForPassenger(ctx context.Context, passengerID int64) ([]domain.TripBooking, error)
	Rate(ctx context.Context, bookingID, passengerID int64, rating float64, review string) error
}

// Cascader is the slice of the lifecycle manager that trip-level operations
// (cancel, complete, departure sweep) drive.
type Cascader interface {
	RejectPendingForTrip(ctx context.Context, tripID int64, reason string) ([]domain.TripBooking, error)
	CancelApprovedForTrip(ctx context.Context, tripID int64) ([]domain.TripBooking, error)
	CompleteApprovedForTrip(ctx context.Context, tripID int64) ([]domain.TripBooking, error)
}

type Cache interface {
	AcquireBookingLock(ctx context.Context, tripID, passengerID int64, ttl time.Duration) (bool, error)
	ReleaseBookingLock(ctx context.Context, tripID, passengerID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	trips              repository.TripRepository
	users              repository.UserRepository
	cache              Cache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	lockTTL            time.Duration
	log                *logrus.Logger
}

type CreateRequestInput struct {
	TripID      int64    `json:"trip_id"`
	PassengerID int64    `json:"-"`
	Seats       int      `json:"seats"`
	PickupNote  string   `json:"pickup_note"`
	PickupLat   *float64 `json:"pickup_lat"`
	PickupLng   *float64 `json:"pickup_lng"`
	DropoffNote string   `json:"dropoff_note"`
	DropoffLat  *float64 `json:"dropoff_lat"`
	DropoffLng  *float64 `json:"dropoff_lng"`
	Message     string   `json:"message"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	trips repository.TripRepository,
	users repository.UserRepository,
	cache Cache,
	producer Producer,
	eventsTopic string,
	lockTTL time.Duration,
	log *logrus.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:    bookings,
		trips:       trips,
		users:       users,
		cache:       cache,
		producer:    producer,
		eventsTopic: eventsTopic,
		lockTTL:     lockTTL,
		log:         log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateRequest inserts a PENDING booking. Seats are not consumed until the
// driver accepts.
func (s *BookingService) CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.TripBooking, error) {
	if input.Seats <= 0 {
		return nil, fmt.Errorf("%w: seats must be positive", domain.ErrInvalidState)
	}

	trip, err := s.trips.GetByID(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID == input.PassengerID {
		return nil, fmt.Errorf("%w: cannot book own trip", domain.ErrUnauthorized)
	}
	if !trip.Bookable() {
		return nil, fmt.Errorf("%w: trip is %s", domain.ErrInvalidState, trip.Status)
	}
	if trip.SeatsAvailable < input.Seats {
		return nil, domain.ErrCapacityExceeded
	}

	if _, err := s.bookings.GetActive(ctx, input.TripID, input.PassengerID); err == nil {
		return nil, domain.ErrDuplicateBooking
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	locked := false
	if s.cache != nil {
		ok, err := s.cache.AcquireBookingLock(ctx, input.TripID, input.PassengerID, s.lockTTL)
		if err != nil {
			s.log.WithError(err).Warn("booking lock unavailable, relying on unique index")
		} else if !ok {
			return nil, domain.ErrDuplicateBooking
		} else {
			locked = true
		}
	}

	booking := &domain.TripBooking{
		Token:         uuid.NewString(),
		TripID:        input.TripID,
		PassengerID:   input.PassengerID,
		Seats:         input.Seats,
		PickupNote:    input.PickupNote,
		PickupLat:     input.PickupLat,
		PickupLng:     input.PickupLng,
		DropoffNote:   input.DropoffNote,
		DropoffLat:    input.DropoffLat,
		DropoffLng:    input.DropoffLng,
		Message:       input.Message,
		Status:        domain.BookingStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
	}

	err = s.bookings.Create(ctx, booking)
	if locked {
		_ = s.cache.ReleaseBookingLock(ctx, input.TripID, input.PassengerID)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingCreated, booking, trip.DriverID, "")
	return booking, nil
}

// Accept consumes seats with a single conditional update, so two concurrent
// acceptances on the last seats resolve first-come-first-served.
func (s *BookingService) Accept(ctx context.Context, bookingID, driverID int64) (*domain.TripBooking, error) {
	booking, trip, err := s.loadForDriver(ctx, bookingID, driverID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrInvalidState, booking.Status)
	}

	if err := s.trips.ReserveSeats(ctx, trip.ID, booking.Seats); err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusPending, domain.BookingStatusApproved, "")
	if err != nil {
		// The booking moved under us; give the seats back.
		if releaseErr := s.trips.ReleaseSeats(ctx, trip.ID, booking.Seats); releaseErr != nil {
			s.log.WithError(releaseErr).WithField("trip_id", trip.ID).Error("failed to release seats after lost acceptance")
		}
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingApproved, updated, trip.DriverID, "")
	return updated, nil
}

func (s *BookingService) Reject(ctx context.Context, bookingID, driverID int64, reason string) (*domain.TripBooking, error) {
	booking, trip, err := s.loadForDriver(ctx, bookingID, driverID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrInvalidState, booking.Status)
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusPending, domain.BookingStatusRejected, reason)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingRejected, updated, trip.DriverID, reason)
	return updated, nil
}

// Cancel is passenger-initiated and allowed from PENDING or APPROVED. Only an
// APPROVED booking has consumed seats, so only that path restores them.
func (s *BookingService) Cancel(ctx context.Context, bookingID, passengerID int64) (*domain.TripBooking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != passengerID {
		return nil, domain.ErrUnauthorized
	}

	switch booking.Status {
	case domain.BookingStatusPending, domain.BookingStatusApproved:
	default:
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrInvalidState, booking.Status)
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, booking.Status, domain.BookingStatusCancelled, "")
	if err != nil {
		return nil, err
	}
	if booking.Status == domain.BookingStatusApproved {
		if err := s.trips.ReleaseSeats(ctx, booking.TripID, booking.Seats); err != nil {
			s.log.WithError(err).WithField("trip_id", booking.TripID).Error("failed to release seats on cancellation")
		}
	}

	s.publish(ctx, kafka.EventBookingCancelled, updated, 0, "")
	return updated, nil
}

// CanUserBookTrip is the read-only eligibility check behind the booking
// button. It never returns an error; failures fold into the result.
func (s *BookingService) CanUserBookTrip(ctx context.Context, tripID, userID int64) domain.Eligibility {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Eligibility{Code: domain.TripNotFound}
		}
		return domain.Eligibility{Code: domain.EligibilityError, Message: err.Error()}
	}

	if trip.DriverID == userID {
		return domain.Eligibility{Code: domain.CannotBookOwnTrip}
	}
	if !trip.Bookable() {
		return domain.Eligibility{Code: domain.TripNotAvailable}
	}
	if trip.SeatsAvailable <= 0 {
		return domain.Eligibility{Code: domain.NoSeatsAvailable}
	}

	active, err := s.bookings.GetActive(ctx, tripID, userID)
	if err == nil {
		return domain.Eligibility{Code: domain.AlreadyBooked, BookingStatus: active.Status}
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Eligibility{Code: domain.EligibilityError, Message: err.Error()}
	}

	return domain.Eligibility{Code: domain.Eligible}
}

// GetByToken resolves the wire reference token. Only the passenger and the
// trip's driver may look a booking up.
func (s *BookingService) GetByToken(ctx context.Context, token string, userID int64) (*domain.TripBooking, error) {
	booking, err := s.bookings.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID == userID {
		return booking, nil
	}

	trip, err := s.trips.GetByID(ctx, booking.TripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != userID {
		return nil, domain.ErrUnauthorized
	}
	return booking, nil
}

func (s *BookingService) ListForTrip(ctx context.Context, tripID, driverID int64) ([]domain.TripBooking, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != driverID {
		return nil, domain.ErrUnauthorized
	}
	return s.bookings.ListByTrip(ctx, tripID)
}

func (s *BookingService) ListForPassenger(ctx context.Context, passengerID int64) ([]domain.TripBooking, error) {
	return s.bookings.ListByPassenger(ctx, passengerID)
}

// Rate records a one-time rating on a COMPLETED booking and folds it into the
// driver's profile aggregate.
func (s *BookingService) Rate(ctx context.Context, bookingID, passengerID int64, rating float64, review string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrInvalidState)
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.PassengerID != passengerID {
		return domain.ErrUnauthorized
	}
	if booking.Status != domain.BookingStatusCompleted {
		return fmt.Errorf("%w: booking is %s", domain.ErrInvalidState, booking.Status)
	}

	if err := s.bookings.SetRating(ctx, bookingID, rating, review); err != nil {
		return err
	}

	trip, err := s.trips.GetByID(ctx, booking.TripID)
	if err != nil {
		return err
	}
	return s.users.ApplyRating(ctx, trip.DriverID, rating)
}

func (s *BookingService) RejectPendingForTrip(ctx context.Context, tripID int64, reason string) ([]domain.TripBooking, error) {
	return s.cascade(ctx, tripID, domain.BookingStatusPending, domain.BookingStatusRejected, kafka.EventBookingRejected, reason)
}

func (s *BookingService) CancelApprovedForTrip(ctx context.Context, tripID int64) ([]domain.TripBooking, error) {
	return s.cascade(ctx, tripID, domain.BookingStatusApproved, domain.BookingStatusCancelled, kafka.EventBookingCancelled, "")
}

func (s *BookingService) CompleteApprovedForTrip(ctx context.Context, tripID int64) ([]domain.TripBooking, error) {
	return s.cascade(ctx, tripID, domain.BookingStatusApproved, domain.BookingStatusCompleted, kafka.EventBookingCompleted, "")
}

func (s *BookingService) cascade(ctx context.Context, tripID int64, from, to domain.BookingStatus, eventType, reason string) ([]domain.TripBooking, error) {
	affected, err := s.bookings.UpdateStatusByTrip(ctx, tripID, from, to, reason)
	if err != nil {
		return nil, err
	}
	for i := range affected {
		s.publish(ctx, eventType, &affected[i], 0, reason)
	}
	return affected, nil
}

func (s *BookingService) loadForDriver(ctx context.Context, bookingID, driverID int64) (*domain.TripBooking, *domain.Trip, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	trip, err := s.trips.GetByID(ctx, booking.TripID)
	if err != nil {
		return nil, nil, err
	}
	if trip.DriverID != driverID {
		return nil, nil, domain.ErrUnauthorized
	}
	return booking, trip, nil
}

// publish emits the lifecycle event; delivery failures are logged, never
// surfaced to the caller, so a transition is never rolled back over Kafka.
func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.TripBooking, driverID int64, reason string) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:        eventType,
		Token:       booking.Token,
		BookingID:   booking.ID,
		TripID:      booking.TripID,
		PassengerID: booking.PassengerID,
		DriverID:    driverID,
		Seats:       booking.Seats,
		Status:      string(booking.Status),
		Reason:      reason,
		OccurredAt:  time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, booking.Token, event); err != nil {
		s.log.WithError(err).WithField("event", eventType).Warn("failed to publish booking event")
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Token, event); err != nil {
			s.log.WithError(err).WithField("event", eventType).Warn("failed to publish notification")
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
var _ Cascader = (*BookingService)(nil)
