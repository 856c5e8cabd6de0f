package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	earthRadiusKm = 6371.0

	// cellPrecision gives ~5km cells, coarse enough to group nearby
	// pickup points into one searchable bucket.
	cellPrecision = 5

	// averageSpeedKmh is the assumed door-to-door speed used for the
	// duration estimate shown on a route before any trip exists.
	averageSpeedKmh = 50.0
)

// DistanceKm returns the haversine distance between two coordinates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// EstimateDurationMinutes converts a distance into a rough travel time.
func EstimateDurationMinutes(distanceKm float64) int {
	minutes := distanceKm / averageSpeedKmh * 60
	return int(math.Ceil(minutes))
}

// Cell returns the geohash bucket for a coordinate, used to index route
// endpoints for proximity search.
func Cell(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, cellPrecision)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
