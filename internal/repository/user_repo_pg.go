package repository

import (
	"context"
	"errors"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User, profile *domain.Profile) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, profile *domain.Profile) error
	IncrementDriverTrips(ctx context.Context, userID int64) error
	IncrementRiderTrips(ctx context.Context, userID int64) error
	ApplyRating(ctx context.Context, userID int64, rating float64) error
}

type PGUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db}
}

// Create inserts the user and its profile in one transaction.
func (r *PGUserRepository) Create(ctx context.Context, user *domain.User, profile *domain.Profile) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `INSERT INTO users (email, password_hash, provider, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`, user.Email, user.PasswordHash, user.Provider, user.Status).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}

	profile.UserID = user.ID
	if err := tx.QueryRow(ctx, `INSERT INTO profiles (user_id, full_name, phone, photo_url)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`, profile.UserID, profile.FullName, profile.Phone, profile.PhotoURL).
		Scan(&profile.CreatedAt, &profile.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, password_hash, provider, status, created_at, updated_at FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, password_hash, provider, status, created_at, updated_at FROM users WHERE email=$1`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Provider, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGUserRepository) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	row := r.db.QueryRow(ctx, `SELECT user_id, full_name, phone, photo_url, rating, rating_count, trips_as_driver, trips_as_rider, created_at, updated_at FROM profiles WHERE user_id=$1`, userID)
	var p domain.Profile
	if err := row.Scan(&p.UserID, &p.FullName, &p.Phone, &p.PhotoURL, &p.Rating, &p.RatingCount, &p.TripsAsDriver, &p.TripsAsRider, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGUserRepository) UpdateProfile(ctx context.Context, profile *domain.Profile) error {
	res, err := r.db.Exec(ctx, `UPDATE profiles SET full_name=$1, phone=$2, photo_url=$3, updated_at=now() WHERE user_id=$4`,
		profile.FullName, profile.Phone, profile.PhotoURL, profile.UserID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGUserRepository) IncrementDriverTrips(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE profiles SET trips_as_driver = trips_as_driver + 1, updated_at=now() WHERE user_id=$1`, userID)
	return err
}

func (r *PGUserRepository) IncrementRiderTrips(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE profiles SET trips_as_rider = trips_as_rider + 1, updated_at=now() WHERE user_id=$1`, userID)
	return err
}

// ApplyRating folds one new rating into the running average.
func (r *PGUserRepository) ApplyRating(ctx context.Context, userID int64, rating float64) error {
	res, err := r.db.Exec(ctx, `UPDATE profiles
		SET rating = (rating * rating_count + $1) / (rating_count + 1),
		    rating_count = rating_count + 1,
		    updated_at = now()
		WHERE user_id=$2`, rating, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ UserRepository = (*PGUserRepository)(nil)
