package domain

import "time"

type TripStatus string

const (
	TripStatusScheduled TripStatus = "SCHEDULED"
	TripStatusActive    TripStatus = "ACTIVE"
	TripStatusCompleted TripStatus = "COMPLETED"
	TripStatusCancelled TripStatus = "CANCELLED"
)

type Trip struct {
	ID             int64
	RouteID        int64
	DriverID       int64
	CarID          int64
	DepartureTime  time.Time
	PricePerSeat   int64 // cents
	SeatsTotal     int
	SeatsAvailable int
	Status         TripStatus
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Bookable reports whether new booking requests may target the trip.
func (t *Trip) Bookable() bool {
	return t.Status == TripStatusScheduled
}
