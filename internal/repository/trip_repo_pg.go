package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TripSearchFilter narrows the trip search. Geohash cells match route
// endpoints; zero values leave the dimension unconstrained.
type TripSearchFilter struct {
	OriginCell string
	DestCell   string
	From       time.Time
	To         time.Time
}

type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
	ListByDriver(ctx context.Context, driverID int64) ([]domain.Trip, error)
	Search(ctx context.Context, filter TripSearchFilter) ([]domain.Trip, error)
	ReserveSeats(ctx context.Context, tripID int64, seats int) error
	ReleaseSeats(ctx context.Context, tripID int64, seats int) error
	UpdateStatus(ctx context.Context, tripID int64, from, to domain.TripStatus) error
	ListDepartedScheduled(ctx context.Context, deadline time.Time) ([]domain.Trip, error)
}

type PGTripRepository struct {
	db *pgxpool.Pool
}

func NewTripRepository(db *pgxpool.Pool) TripRepository {
	return &PGTripRepository{db: db}
}

const tripColumns = `id, route_id, driver_id, car_id, departure_time, price_per_seat, seats_total, seats_available, status, notes, created_at, updated_at`

func (r *PGTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	return r.db.QueryRow(ctx, `INSERT INTO trips (route_id, driver_id, car_id, departure_time, price_per_seat, seats_total, seats_available, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		trip.RouteID, trip.DriverID, trip.CarID, trip.DepartureTime, trip.PricePerSeat, trip.SeatsTotal, trip.Status, trip.Notes).
		Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
}

func (r *PGTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=$1`, id)
	return scanTrip(row)
}

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var t domain.Trip
	if err := row.Scan(&t.ID, &t.RouteID, &t.DriverID, &t.CarID, &t.DepartureTime, &t.PricePerSeat, &t.SeatsTotal, &t.SeatsAvailable, &t.Status, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGTripRepository) ListByDriver(ctx context.Context, driverID int64) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, `SELECT `+tripColumns+` FROM trips WHERE driver_id=$1 ORDER BY departure_time DESC`, driverID)
	if err != nil {
		return nil, err
	}
	return collectTrips(rows)
}

func (r *PGTripRepository) Search(ctx context.Context, filter TripSearchFilter) ([]domain.Trip, error) {
	query := `SELECT t.id, t.route_id, t.driver_id, t.car_id, t.departure_time, t.price_per_seat, t.seats_total, t.seats_available, t.status, t.notes, t.created_at, t.updated_at
		FROM trips t
		JOIN routes r ON r.id = t.route_id
		WHERE t.status = 'SCHEDULED' AND t.seats_available > 0`
	args := make([]interface{}, 0, 4)

	if filter.OriginCell != "" {
		args = append(args, filter.OriginCell)
		query += ` AND r.origin_geohash = $` + strconv.Itoa(len(args))
	}
	if filter.DestCell != "" {
		args = append(args, filter.DestCell)
		query += ` AND r.dest_geohash = $` + strconv.Itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND t.departure_time >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND t.departure_time <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY t.departure_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectTrips(rows)
}

// ReserveSeats is the only path that decrements availability. The conditional
// guard makes concurrent acceptances first-come-first-served: the losing
// update matches zero rows.
func (r *PGTripRepository) ReserveSeats(ctx context.Context, tripID int64, seats int) error {
	res, err := r.db.Exec(ctx, `UPDATE trips SET seats_available = seats_available - $2, updated_at = now()
		WHERE id=$1 AND status='SCHEDULED' AND seats_available >= $2`, tripID, seats)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrCapacityExceeded
	}
	return nil
}

// ReleaseSeats gives seats back, never past the trip's total.
func (r *PGTripRepository) ReleaseSeats(ctx context.Context, tripID int64, seats int) error {
	res, err := r.db.Exec(ctx, `UPDATE trips SET seats_available = LEAST(seats_available + $2, seats_total), updated_at = now() WHERE id=$1`, tripID, seats)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGTripRepository) UpdateStatus(ctx context.Context, tripID int64, from, to domain.TripStatus) error {
	res, err := r.db.Exec(ctx, `UPDATE trips SET status=$1, updated_at=now() WHERE id=$2 AND status=$3`, to, tripID, from)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *PGTripRepository) ListDepartedScheduled(ctx context.Context, deadline time.Time) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, `SELECT `+tripColumns+` FROM trips WHERE status='SCHEDULED' AND departure_time <= $1`, deadline)
	if err != nil {
		return nil, err
	}
	return collectTrips(rows)
}

func collectTrips(rows pgx.Rows) ([]domain.Trip, error) {
	defer rows.Close()

	trips := make([]domain.Trip, 0)
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.DriverID, &t.CarID, &t.DepartureTime, &t.PricePerSeat, &t.SeatsTotal, &t.SeatsAvailable, &t.Status, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

var _ TripRepository = (*PGTripRepository)(nil)
