package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
)

// Booking represents a rider's reservation of one seat on a trip, anchored
// to a meeting point on the trip's route.
//
// A booking is created atomically with a successful seat reservation and is
// deleted when the rider cancels, when the trip is deleted, or as the
// compensating action of a lost reservation race.
type Booking struct {
	ID      string
	TripID  string
	RiderID string

	// PickupLat/PickupLng is the resolved meeting point on the trip's path.
	PickupLat float64
	PickupLng float64

	// WalkingDistanceMeters is the rider's walk to the meeting point,
	// recorded at booking time.
	WalkingDistanceMeters int

	Status    BookingStatus
	CreatedAt time.Time
}
