package domain

type EligibilityCode string

const (
	Eligible          EligibilityCode = "ELIGIBLE"
	AlreadyBooked     EligibilityCode = "ALREADY_BOOKED"
	CannotBookOwnTrip EligibilityCode = "CANNOT_BOOK_OWN_TRIP"
	TripNotAvailable  EligibilityCode = "TRIP_NOT_AVAILABLE"
	NoSeatsAvailable  EligibilityCode = "NO_SEATS_AVAILABLE"
	TripNotFound      EligibilityCode = "TRIP_NOT_FOUND"
	EligibilityError  EligibilityCode = "ERROR"
)

// Eligibility is the read-only answer to "can this user request a booking on
// this trip right now". BookingStatus is set only for AlreadyBooked, Message
// only for EligibilityError.
type Eligibility struct {
	Code          EligibilityCode `json:"code"`
	BookingStatus BookingStatus   `json:"booking_status,omitempty"`
	Message       string          `json:"message,omitempty"`
}

func (e Eligibility) OK() bool {
	return e.Code == Eligible
}
