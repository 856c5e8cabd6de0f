package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusApproved  BookingStatus = "APPROVED"
	BookingStatusRejected  BookingStatus = "REJECTED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// bookingTransitions holds the allowed status transitions. REJECTED,
// CANCELLED and COMPLETED are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:  {BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled},
	BookingStatusApproved: {BookingStatusCancelled, BookingStatusCompleted},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

type TripBooking struct {
	ID            int64
	Token         string
	TripID        int64
	PassengerID   int64
	Seats         int
	PickupNote    string
	PickupLat     *float64
	PickupLng     *float64
	DropoffNote   string
	DropoffLat    *float64
	DropoffLng    *float64
	Message       string
	Status        BookingStatus
	PaymentStatus PaymentStatus
	RejectReason  string
	Rating        *float64
	Review        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
