package repository

import (
	"context"
	"errors"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CarRepository interface {
	Create(ctx context.Context, car *domain.Car) error
	GetByID(ctx context.Context, id int64) (*domain.Car, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Car, error)
	SetActive(ctx context.Context, id, ownerID int64, active bool) error
}

type PGCarRepository struct {
	db *pgxpool.Pool
}

func NewCarRepository(db *pgxpool.Pool) CarRepository {
	return &PGCarRepository{db: db}
}

func (r *PGCarRepository) Create(ctx context.Context, car *domain.Car) error {
	return r.db.QueryRow(ctx, `INSERT INTO cars (owner_id, make, model, plate, color, seats, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		car.OwnerID, car.Make, car.Model, car.Plate, car.Color, car.Seats, car.Active).
		Scan(&car.ID, &car.CreatedAt, &car.UpdatedAt)
}

func (r *PGCarRepository) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	row := r.db.QueryRow(ctx, `SELECT id, owner_id, make, model, plate, color, seats, active, created_at, updated_at FROM cars WHERE id=$1`, id)
	var c domain.Car
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Make, &c.Model, &c.Plate, &c.Color, &c.Seats, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGCarRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Car, error) {
	rows, err := r.db.Query(ctx, `SELECT id, owner_id, make, model, plate, color, seats, active, created_at, updated_at FROM cars WHERE owner_id=$1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cars := make([]domain.Car, 0)
	for rows.Next() {
		var c domain.Car
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Make, &c.Model, &c.Plate, &c.Color, &c.Seats, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

func (r *PGCarRepository) SetActive(ctx context.Context, id, ownerID int64, active bool) error {
	res, err := r.db.Exec(ctx, `UPDATE cars SET active=$1, updated_at=now() WHERE id=$2 AND owner_id=$3`, active, id, ownerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ CarRepository = (*PGCarRepository)(nil)
