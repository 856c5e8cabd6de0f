package repository

import (
	"context"
	"errors"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.TripBooking) error
	GetByID(ctx context.Context, id int64) (*domain.TripBooking, error)
	GetByToken(ctx context.Context, token string) (*domain.TripBooking, error)
	// GetActive returns the passenger's non-terminal (PENDING or APPROVED)
	// booking on the trip, or ErrNotFound.
	GetActive(ctx context.Context, tripID, passengerID int64) (*domain.TripBooking, error)
	// UpdateStatus transitions only when the stored status still equals
	// from; a stale status yields ErrInvalidState.
	UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus, reason string) (*domain.TripBooking, error)
	ListByTrip(ctx context.Context, tripID int64) ([]domain.TripBooking, error)
	ListByPassenger(ctx context.Context, passengerID int64) ([]domain.TripBooking, error)
	// UpdateStatusByTrip transitions every booking on the trip currently in
	// from and returns the affected rows.
	UpdateStatusByTrip(ctx context.Context, tripID int64, from, to domain.BookingStatus, reason string) ([]domain.TripBooking, error)
	SetRating(ctx context.Context, id int64, rating float64, review string) error
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, token, trip_id, passenger_id, seats, pickup_note, pickup_lat, pickup_lng, dropoff_note, dropoff_lat, dropoff_lng, message, status, payment_status, reject_reason, rating, review, created_at, updated_at`

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.TripBooking) error {
	err := r.db.QueryRow(ctx, `INSERT INTO trip_bookings (token, trip_id, passenger_id, seats, pickup_note, pickup_lat, pickup_lng, dropoff_note, dropoff_lat, dropoff_lng, message, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		booking.Token, booking.TripID, booking.PassengerID, booking.Seats,
		booking.PickupNote, booking.PickupLat, booking.PickupLng,
		booking.DropoffNote, booking.DropoffLat, booking.DropoffLng,
		booking.Message, booking.Status, booking.PaymentStatus).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrDuplicateBooking
	}
	return err
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.TripBooking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM trip_bookings WHERE id=$1`, id)
	return scanBooking(row)
}

func (r *PGBookingRepository) GetByToken(ctx context.Context, token string) (*domain.TripBooking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM trip_bookings WHERE token=$1`, token)
	return scanBooking(row)
}

func (r *PGBookingRepository) GetActive(ctx context.Context, tripID, passengerID int64) (*domain.TripBooking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM trip_bookings
		WHERE trip_id=$1 AND passenger_id=$2 AND status IN ('PENDING', 'APPROVED')`, tripID, passengerID)
	return scanBooking(row)
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus, reason string) (*domain.TripBooking, error) {
	row := r.db.QueryRow(ctx, `UPDATE trip_bookings SET status=$1, reject_reason=$2, updated_at=now()
		WHERE id=$3 AND status=$4
		RETURNING `+bookingColumns, to, reason, id, from)
	booking, err := scanBooking(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidState
	}
	return booking, err
}

func (r *PGBookingRepository) ListByTrip(ctx context.Context, tripID int64) ([]domain.TripBooking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM trip_bookings WHERE trip_id=$1 ORDER BY created_at`, tripID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) ListByPassenger(ctx context.Context, passengerID int64) ([]domain.TripBooking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM trip_bookings WHERE passenger_id=$1 ORDER BY created_at DESC`, passengerID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) UpdateStatusByTrip(ctx context.Context, tripID int64, from, to domain.BookingStatus, reason string) ([]domain.TripBooking, error) {
	rows, err := r.db.Query(ctx, `UPDATE trip_bookings SET status=$1, reject_reason=$2, updated_at=now()
		WHERE trip_id=$3 AND status=$4
		RETURNING `+bookingColumns, to, reason, tripID, from)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) SetRating(ctx context.Context, id int64, rating float64, review string) error {
	res, err := r.db.Exec(ctx, `UPDATE trip_bookings SET rating=$1, review=$2, updated_at=now() WHERE id=$3 AND rating IS NULL`, rating, review, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func scanBooking(row pgx.Row) (*domain.TripBooking, error) {
	var b domain.TripBooking
	if err := row.Scan(&b.ID, &b.Token, &b.TripID, &b.PassengerID, &b.Seats,
		&b.PickupNote, &b.PickupLat, &b.PickupLng,
		&b.DropoffNote, &b.DropoffLat, &b.DropoffLng,
		&b.Message, &b.Status, &b.PaymentStatus, &b.RejectReason,
		&b.Rating, &b.Review, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.TripBooking, error) {
	defer rows.Close()

	bookings := make([]domain.TripBooking, 0)
	for rows.Next() {
		var b domain.TripBooking
		if err := rows.Scan(&b.ID, &b.Token, &b.TripID, &b.PassengerID, &b.Seats,
			&b.PickupNote, &b.PickupLat, &b.PickupLng,
			&b.DropoffNote, &b.DropoffLat, &b.DropoffLng,
			&b.Message, &b.Status, &b.PaymentStatus, &b.RejectReason,
			&b.Rating, &b.Review, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
