package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/avdonin/ridepool/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.TripBooking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.TripBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TripBooking), args.Error(1)
}

func (m *MockBookingRepository) GetByToken(ctx context.Context, token string) (*domain.TripBooking, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TripBooking), args.Error(1)
}

func (m *MockBookingRepository) GetActive(ctx context.Context, tripID, passengerID int64) (*domain.TripBooking, error) {
	args := m.Called(ctx, tripID, passengerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TripBooking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus, reason string) (*domain.TripBooking, error) {
	args := m.Called(ctx, id, from, to, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TripBooking), args.Error(1)
}

func (m *MockBookingRepository) ListByTrip(ctx context.Context, tripID int64) ([]domain.TripBooking, error) {
	args := m.Called(ctx, tripID)
	return args.Get(0).([]domain.TripBooking), args.Error(1)
}

func (m *MockBookingRepository) ListByPassenger(ctx context.Context, passengerID int64) ([]domain.TripBooking, error) {
	args := m.Called(ctx, passengerID)
	return args.Get(0).([]domain.TripBooking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatusByTrip(ctx context.Context, tripID int64, from, to domain.BookingStatus, reason string) ([]domain.TripBooking, error) {
	args := m.Called(ctx, tripID, from, to, reason)
	return args.Get(0).([]domain.TripBooking), args.Error(1)
}

func (m *MockBookingRepository) SetRating(ctx context.Context, id int64, rating float64, review string) error {
	args := m.Called(ctx, id, rating, review)
	return args.Error(0)
}

type MockTripRepository struct {
	mock.Mock
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trip), args.Error(1)
}

func (m *MockTripRepository) ListByDriver(ctx context.Context, driverID int64) ([]domain.Trip, error) {
	args := m.Called(ctx, driverID)
	return args.Get(0).([]domain.Trip), args.Error(1)
}

func (m *MockTripRepository) Search(ctx context.Context, filter repository.TripSearchFilter) ([]domain.Trip, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Trip), args.Error(1)
}

func (m *MockTripRepository) ReserveSeats(ctx context.Context, tripID int64, seats int) error {
	args := m.Called(ctx, tripID, seats)
	return args.Error(0)
}

func (m *MockTripRepository) ReleaseSeats(ctx context.Context, tripID int64, seats int) error {
	args := m.Called(ctx, tripID, seats)
	return args.Error(0)
}

func (m *MockTripRepository) UpdateStatus(ctx context.Context, tripID int64, from, to domain.TripStatus) error {
	args := m.Called(ctx, tripID, from, to)
	return args.Error(0)
}

func (m *MockTripRepository) ListDepartedScheduled(ctx context.Context, deadline time.Time) ([]domain.Trip, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Trip), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User, profile *domain.Profile) error {
	args := m.Called(ctx, user, profile)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementDriverTrips(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementRiderTrips(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) ApplyRating(ctx context.Context, userID int64, rating float64) error {
	args := m.Called(ctx, userID, rating)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireBookingLock(ctx context.Context, tripID, passengerID int64, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, tripID, passengerID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseBookingLock(ctx context.Context, tripID, passengerID int64) error {
	args := m.Called(ctx, tripID, passengerID)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type testEnv struct {
	bookings *MockBookingRepository
	trips    *MockTripRepository
	users    *MockUserRepository
	cache    *MockCache
	producer *MockProducer
	service  *BookingService
}

func newTestEnv() *testEnv {
	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		bookings: &MockBookingRepository{},
		trips:    &MockTripRepository{},
		users:    &MockUserRepository{},
		cache:    &MockCache{},
		producer: &MockProducer{},
	}
	env.service = &BookingService{
		bookings:    env.bookings,
		trips:       env.trips,
		users:       env.users,
		cache:       env.cache,
		producer:    env.producer,
		eventsTopic: "booking-events",
		lockTTL:     time.Minute,
		log:         log,
	}
	return env
}

func scheduledTrip(id, driverID int64, available int) *domain.Trip {
	return &domain.Trip{
		ID:             id,
		DriverID:       driverID,
		SeatsTotal:     4,
		SeatsAvailable: available,
		Status:         domain.TripStatusScheduled,
		DepartureTime:  time.Now().Add(24 * time.Hour),
	}
}

func TestCreateRequest_Success(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 3), nil).Once()
	env.bookings.On("GetActive", ctx, int64(1), int64(20)).Return(nil, domain.ErrNotFound).Once()
	env.cache.On("AcquireBookingLock", ctx, int64(1), int64(20), time.Minute).Return(true, nil).Once()
	env.bookings.On("Create", ctx, mock.AnythingOfType("*domain.TripBooking")).Return(nil).Once()
	env.cache.On("ReleaseBookingLock", ctx, int64(1), int64(20)).Return(nil).Once()
	env.producer.On("Publish", ctx, "booking-events", mock.Anything, mock.Anything).Return(nil).Once()

	booking, err := env.service.CreateRequest(ctx, CreateRequestInput{TripID: 1, PassengerID: 20, Seats: 2})

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, booking.PaymentStatus)
	assert.NotEmpty(t, booking.Token)

	env.bookings.AssertExpectations(t)
	env.trips.AssertExpectations(t)
	env.cache.AssertExpectations(t)
	env.producer.AssertExpectations(t)
}

func TestCreateRequest_OwnTrip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 20, 3), nil).Once()

	_, err := env.service.CreateRequest(ctx, CreateRequestInput{TripID: 1, PassengerID: 20, Seats: 1})

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	env.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRequest_NotEnoughSeats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 1), nil).Once()

	_, err := env.service.CreateRequest(ctx, CreateRequestInput{TripID: 1, PassengerID: 20, Seats: 2})

	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestCreateRequest_TripNotBookable(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	trip := scheduledTrip(1, 10, 3)
	trip.Status = domain.TripStatusCancelled
	env.trips.On("GetByID", ctx, int64(1)).Return(trip, nil).Once()

	_, err := env.service.CreateRequest(ctx, CreateRequestInput{TripID: 1, PassengerID: 20, Seats: 1})

	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCreateRequest_TripNotFound(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(99)).Return(nil, domain.ErrNotFound).Once()

	_, err := env.service.CreateRequest(ctx, CreateRequestInput{TripID: 99, PassengerID: 20, Seats: 1})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRequest_DuplicateActiveBooking(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 3), nil).Once()
	env.bookings.On("GetActive", ctx, int64(1), int64(20)).
		Return(&domain.TripBooking{ID: 5, Status: domain.BookingStatusPending}, nil).Once()

	_, err := env.service.CreateRequest(ctx, CreateRequestInput{TripID: 1, PassengerID: 20, Seats: 1})

	assert.ErrorIs(t, err, domain.ErrDuplicateBooking)
	env.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRequest_LockContended(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 3), nil).Once()
	env.bookings.On("GetActive", ctx, int64(1), int64(20)).Return(nil, domain.ErrNotFound).Once()
	env.cache.On("AcquireBookingLock", ctx, int64(1), int64(20), time.Minute).Return(false, nil).Once()

	_, err := env.service.CreateRequest(ctx, CreateRequestInput{TripID: 1, PassengerID: 20, Seats: 1})

	assert.ErrorIs(t, err, domain.ErrDuplicateBooking)
	env.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAccept_Success(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pending := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Seats: 2, Status: domain.BookingStatusPending, Token: "tok"}
	approved := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Seats: 2, Status: domain.BookingStatusApproved, Token: "tok"}

	env.bookings.On("GetByID", ctx, int64(7)).Return(pending, nil).Once()
	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Once()
	env.trips.On("ReserveSeats", ctx, int64(1), 2).Return(nil).Once()
	env.bookings.On("UpdateStatus", ctx, int64(7), domain.BookingStatusPending, domain.BookingStatusApproved, "").Return(approved, nil).Once()
	env.producer.On("Publish", ctx, "booking-events", "tok", mock.Anything).Return(nil).Once()

	got, err := env.service.Accept(ctx, 7, 10)

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusApproved, got.Status)
	env.trips.AssertExpectations(t)
	env.bookings.AssertExpectations(t)
	env.producer.AssertExpectations(t)
}

func TestAccept_WrongDriver(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pending := &domain.TripBooking{ID: 7, TripID: 1, Status: domain.BookingStatusPending}
	env.bookings.On("GetByID", ctx, int64(7)).Return(pending, nil).Once()
	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Once()

	_, err := env.service.Accept(ctx, 7, 99)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	env.trips.AssertNotCalled(t, "ReserveSeats", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccept_NotPending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	approved := &domain.TripBooking{ID: 7, TripID: 1, Status: domain.BookingStatusApproved}
	env.bookings.On("GetByID", ctx, int64(7)).Return(approved, nil).Once()
	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Once()

	_, err := env.service.Accept(ctx, 7, 10)

	assert.ErrorIs(t, err, domain.ErrInvalidState)
	env.trips.AssertNotCalled(t, "ReserveSeats", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccept_CapacityRace(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pending := &domain.TripBooking{ID: 7, TripID: 1, Seats: 2, Status: domain.BookingStatusPending}
	env.bookings.On("GetByID", ctx, int64(7)).Return(pending, nil).Once()
	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Once()
	env.trips.On("ReserveSeats", ctx, int64(1), 2).Return(domain.ErrCapacityExceeded).Once()

	_, err := env.service.Accept(ctx, 7, 10)

	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	env.bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAccept_StatusRaceReleasesSeats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pending := &domain.TripBooking{ID: 7, TripID: 1, Seats: 2, Status: domain.BookingStatusPending}
	env.bookings.On("GetByID", ctx, int64(7)).Return(pending, nil).Once()
	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Once()
	env.trips.On("ReserveSeats", ctx, int64(1), 2).Return(nil).Once()
	env.bookings.On("UpdateStatus", ctx, int64(7), domain.BookingStatusPending, domain.BookingStatusApproved, "").
		Return(nil, domain.ErrInvalidState).Once()
	env.trips.On("ReleaseSeats", ctx, int64(1), 2).Return(nil).Once()

	_, err := env.service.Accept(ctx, 7, 10)

	assert.ErrorIs(t, err, domain.ErrInvalidState)
	env.trips.AssertExpectations(t)
}

func TestReject_Success(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pending := &domain.TripBooking{ID: 7, TripID: 1, Status: domain.BookingStatusPending, Token: "tok"}
	rejected := &domain.TripBooking{ID: 7, TripID: 1, Status: domain.BookingStatusRejected, Token: "tok", RejectReason: "full car"}

	env.bookings.On("GetByID", ctx, int64(7)).Return(pending, nil).Once()
	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Once()
	env.bookings.On("UpdateStatus", ctx, int64(7), domain.BookingStatusPending, domain.BookingStatusRejected, "full car").Return(rejected, nil).Once()
	env.producer.On("Publish", ctx, "booking-events", "tok", mock.Anything).Return(nil).Once()

	got, err := env.service.Reject(ctx, 7, 10, "full car")

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusRejected, got.Status)
	// No seat accounting on rejection.
	env.trips.AssertNotCalled(t, "ReserveSeats", mock.Anything, mock.Anything, mock.Anything)
	env.trips.AssertNotCalled(t, "ReleaseSeats", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_PendingKeepsSeats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pending := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Seats: 2, Status: domain.BookingStatusPending, Token: "tok"}
	cancelled := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Seats: 2, Status: domain.BookingStatusCancelled, Token: "tok"}

	env.bookings.On("GetByID", ctx, int64(7)).Return(pending, nil).Once()
	env.bookings.On("UpdateStatus", ctx, int64(7), domain.BookingStatusPending, domain.BookingStatusCancelled, "").Return(cancelled, nil).Once()
	env.producer.On("Publish", ctx, "booking-events", "tok", mock.Anything).Return(nil).Once()

	got, err := env.service.Cancel(ctx, 7, 20)

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, got.Status)
	env.trips.AssertNotCalled(t, "ReleaseSeats", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_ApprovedRestoresSeats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	approved := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Seats: 2, Status: domain.BookingStatusApproved, Token: "tok"}
	cancelled := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Seats: 2, Status: domain.BookingStatusCancelled, Token: "tok"}

	env.bookings.On("GetByID", ctx, int64(7)).Return(approved, nil).Once()
	env.bookings.On("UpdateStatus", ctx, int64(7), domain.BookingStatusApproved, domain.BookingStatusCancelled, "").Return(cancelled, nil).Once()
	env.trips.On("ReleaseSeats", ctx, int64(1), 2).Return(nil).Once()
	env.producer.On("Publish", ctx, "booking-events", "tok", mock.Anything).Return(nil).Once()

	_, err := env.service.Cancel(ctx, 7, 20)

	assert.NoError(t, err)
	env.trips.AssertExpectations(t)
}

func TestCancel_WrongPassenger(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	approved := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Status: domain.BookingStatusApproved}
	env.bookings.On("GetByID", ctx, int64(7)).Return(approved, nil).Once()

	_, err := env.service.Cancel(ctx, 7, 99)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCancel_TerminalStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	rejected := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Status: domain.BookingStatusRejected}
	env.bookings.On("GetByID", ctx, int64(7)).Return(rejected, nil).Once()

	_, err := env.service.Cancel(ctx, 7, 20)

	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCanUserBookTrip_Eligible(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Once()
	env.bookings.On("GetActive", ctx, int64(1), int64(20)).Return(nil, domain.ErrNotFound).Once()

	result := env.service.CanUserBookTrip(ctx, 1, 20)

	assert.Equal(t, domain.Eligible, result.Code)
	assert.True(t, result.OK())
}

func TestCanUserBookTrip_OwnTrip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 20, 2), nil).Once()

	result := env.service.CanUserBookTrip(ctx, 1, 20)

	assert.Equal(t, domain.CannotBookOwnTrip, result.Code)
}

func TestCanUserBookTrip_NoSeats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 0), nil).Once()

	result := env.service.CanUserBookTrip(ctx, 1, 20)

	assert.Equal(t, domain.NoSeatsAvailable, result.Code)
}

func TestCanUserBookTrip_AlreadyBookedPending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Once()
	env.bookings.On("GetActive", ctx, int64(1), int64(20)).
		Return(&domain.TripBooking{Status: domain.BookingStatusPending}, nil).Once()

	result := env.service.CanUserBookTrip(ctx, 1, 20)

	assert.Equal(t, domain.AlreadyBooked, result.Code)
	assert.Equal(t, domain.BookingStatusPending, result.BookingStatus)
}

func TestCanUserBookTrip_TripNotFound(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(99)).Return(nil, domain.ErrNotFound).Once()

	result := env.service.CanUserBookTrip(ctx, 99, 20)

	assert.Equal(t, domain.TripNotFound, result.Code)
}

func TestCanUserBookTrip_NotAvailable(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	trip := scheduledTrip(1, 10, 2)
	trip.Status = domain.TripStatusActive
	env.trips.On("GetByID", ctx, int64(1)).Return(trip, nil).Once()

	result := env.service.CanUserBookTrip(ctx, 1, 20)

	assert.Equal(t, domain.TripNotAvailable, result.Code)
}

func TestCanUserBookTrip_Error(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(nil, errors.New("connection refused")).Once()

	result := env.service.CanUserBookTrip(ctx, 1, 20)

	assert.Equal(t, domain.EligibilityError, result.Code)
	assert.Contains(t, result.Message, "connection refused")
}

func TestListForTrip_RequiresTripOwner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Twice()
	env.bookings.On("ListByTrip", ctx, int64(1)).Return([]domain.TripBooking{{ID: 7}}, nil).Once()

	list, err := env.service.ListForTrip(ctx, 1, 10)
	assert.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = env.service.ListForTrip(ctx, 1, 99)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRate_Success(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	completed := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Status: domain.BookingStatusCompleted}
	env.bookings.On("GetByID", ctx, int64(7)).Return(completed, nil).Once()
	env.bookings.On("SetRating", ctx, int64(7), 4.0, "smooth ride").Return(nil).Once()
	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 2), nil).Once()
	env.users.On("ApplyRating", ctx, int64(10), 4.0).Return(nil).Once()

	err := env.service.Rate(ctx, 7, 20, 4.0, "smooth ride")

	assert.NoError(t, err)
	env.users.AssertExpectations(t)
}

func TestRate_NotCompleted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	approved := &domain.TripBooking{ID: 7, TripID: 1, PassengerID: 20, Status: domain.BookingStatusApproved}
	env.bookings.On("GetByID", ctx, int64(7)).Return(approved, nil).Once()

	err := env.service.Rate(ctx, 7, 20, 4.0, "")

	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRate_OutOfRange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.service.Rate(ctx, 7, 20, 6.0, "")

	assert.ErrorIs(t, err, domain.ErrInvalidState)
	env.bookings.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCompleteApprovedForTrip_PublishesPerBooking(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	completed := []domain.TripBooking{
		{ID: 7, TripID: 1, Token: "a", Status: domain.BookingStatusCompleted},
		{ID: 8, TripID: 1, Token: "b", Status: domain.BookingStatusCompleted},
	}
	env.bookings.On("UpdateStatusByTrip", ctx, int64(1), domain.BookingStatusApproved, domain.BookingStatusCompleted, "").Return(completed, nil).Once()
	env.producer.On("Publish", ctx, "booking-events", "a", mock.Anything).Return(nil).Once()
	env.producer.On("Publish", ctx, "booking-events", "b", mock.Anything).Return(nil).Once()

	got, err := env.service.CompleteApprovedForTrip(ctx, 1)

	assert.NoError(t, err)
	assert.Len(t, got, 2)
	env.producer.AssertExpectations(t)
}

func TestRejectPendingForTrip_CarriesReason(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	rejected := []domain.TripBooking{{ID: 7, TripID: 1, Token: "a", Status: domain.BookingStatusRejected, RejectReason: "trip cancelled"}}
	env.bookings.On("UpdateStatusByTrip", ctx, int64(1), domain.BookingStatusPending, domain.BookingStatusRejected, "trip cancelled").Return(rejected, nil).Once()
	env.producer.On("Publish", ctx, "booking-events", "a", mock.Anything).Return(nil).Once()

	got, err := env.service.RejectPendingForTrip(ctx, 1, "trip cancelled")

	assert.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetByToken_Passenger(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	stored := &domain.TripBooking{ID: 5, Token: "token123", TripID: 1, PassengerID: 20}
	env.bookings.On("GetByToken", ctx, "token123").Return(stored, nil).Once()

	got, err := env.service.GetByToken(ctx, "token123", 20)

	assert.NoError(t, err)
	assert.Equal(t, stored, got)
	env.trips.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetByToken_Driver(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	stored := &domain.TripBooking{ID: 5, Token: "token123", TripID: 1, PassengerID: 20}
	env.bookings.On("GetByToken", ctx, "token123").Return(stored, nil).Once()
	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 3), nil).Once()

	got, err := env.service.GetByToken(ctx, "token123", 10)

	assert.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestGetByToken_Stranger(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	stored := &domain.TripBooking{ID: 5, Token: "token123", TripID: 1, PassengerID: 20}
	env.bookings.On("GetByToken", ctx, "token123").Return(stored, nil).Once()
	env.trips.On("GetByID", ctx, int64(1)).Return(scheduledTrip(1, 10, 3), nil).Once()

	_, err := env.service.GetByToken(ctx, "token123", 99)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
