package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	// Moscow -> Saint Petersburg, roughly 634 km.
	d := DistanceKm(55.7558, 37.6173, 59.9311, 30.3609)
	assert.InDelta(t, 634, d, 5)

	assert.Zero(t, DistanceKm(55.7558, 37.6173, 55.7558, 37.6173))
}

func TestEstimateDurationMinutes(t *testing.T) {
	assert.Equal(t, 60, EstimateDurationMinutes(50))
	assert.Equal(t, 1, EstimateDurationMinutes(0.5))
}

func TestCell(t *testing.T) {
	cell := Cell(55.7558, 37.6173)
	assert.Len(t, cell, 5)
	// Points a few hundred meters apart share a bucket.
	assert.Equal(t, cell, Cell(55.7570, 37.6180))
}
