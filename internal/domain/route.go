package domain

import "time"

// Route is a reusable origin/destination geometry record. Immutable after
// creation except for updated_at.
type Route struct {
	ID              int64
	Origin          string
	Destination     string
	OriginLat       float64
	OriginLng       float64
	DestLat         float64
	DestLng         float64
	OriginGeohash   string
	DestGeohash     string
	DistanceKm      float64
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
