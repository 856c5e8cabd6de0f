package domain

import "time"

type Car struct {
	ID        int64
	OwnerID   int64
	Make      string
	Model     string
	Plate     string
	Color     string
	Seats     int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
