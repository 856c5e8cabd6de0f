package repository

import (
	"context"
	"errors"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RouteRepository interface {
	Create(ctx context.Context, route *domain.Route) error
	GetByID(ctx context.Context, id int64) (*domain.Route, error)
}

type PGRouteRepository struct {
	db *pgxpool.Pool
}

func NewRouteRepository(db *pgxpool.Pool) RouteRepository {
	return &PGRouteRepository{db: db}
}

func (r *PGRouteRepository) Create(ctx context.Context, route *domain.Route) error {
	return r.db.QueryRow(ctx, `INSERT INTO routes (origin, destination, origin_lat, origin_lng, dest_lat, dest_lng, origin_geohash, dest_geohash, distance_km, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		route.Origin, route.Destination, route.OriginLat, route.OriginLng, route.DestLat, route.DestLng,
		route.OriginGeohash, route.DestGeohash, route.DistanceKm, route.DurationMinutes).
		Scan(&route.ID, &route.CreatedAt, &route.UpdatedAt)
}

func (r *PGRouteRepository) GetByID(ctx context.Context, id int64) (*domain.Route, error) {
	row := r.db.QueryRow(ctx, `SELECT id, origin, destination, origin_lat, origin_lng, dest_lat, dest_lng, origin_geohash, dest_geohash, distance_km, duration_minutes, created_at, updated_at FROM routes WHERE id=$1`, id)
	var rt domain.Route
	if err := row.Scan(&rt.ID, &rt.Origin, &rt.Destination, &rt.OriginLat, &rt.OriginLng, &rt.DestLat, &rt.DestLng, &rt.OriginGeohash, &rt.DestGeohash, &rt.DistanceKm, &rt.DurationMinutes, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

var _ RouteRepository = (*PGRouteRepository)(nil)
