package domain

import "time"

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Provider     string
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public-facing identity owned 1:1 by a User.
type Profile struct {
	UserID        int64
	FullName      string
	Phone         string
	PhotoURL      string
	Rating        float64
	RatingCount   int
	TripsAsDriver int
	TripsAsRider  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
