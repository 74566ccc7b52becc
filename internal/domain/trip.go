package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusScheduled  TripStatus = "SCHEDULED"
	TripStatusInProgress TripStatus = "IN_PROGRESS"
)

// Destination identifies one of the campus parking destinations a driver
// can offer a trip to.
type Destination string

const (
	DestinationEastRemote Destination = "EAST_REMOTE"
	DestinationCoreWest   Destination = "CORE_WEST"
	DestinationWestRemote Destination = "WEST_REMOTE"
)

// ValidDestination reports whether d is a known campus destination.
func ValidDestination(d Destination) bool {
	switch d {
	case DestinationEastRemote, DestinationCoreWest, DestinationWestRemote:
		return true
	}
	return false
}

// Trip represents a driver's published route offer with seat capacity.
//
// A trip only ever holds SCHEDULED or IN_PROGRESS status; completed and
// cancelled trips are deleted, together with their bookings, rather than
// kept in a terminal state.
type Trip struct {
	ID          string
	DriverID    string
	Destination Destination

	// Route geometry: the confirmed route's encoded polyline plus the
	// driver's start coordinate.
	StartLat float64
	StartLng float64
	Polyline string

	DepartureTime        time.Time
	EstimatedArrivalTime time.Time
	// ActualStartTime is zero until the driver starts the trip.
	ActualStartTime time.Time

	TotalSeats int
	// SeatsTaken is mutated only through the booking coordinator's
	// compare-and-swap protocol. Invariant: 0 <= SeatsTaken <= TotalSeats.
	SeatsTaken int

	Status TripStatus
}

// AvailableSeats returns the number of seats still open, floored at zero.
func (t *Trip) AvailableSeats() int {
	available := t.TotalSeats - t.SeatsTaken
	if available < 0 {
		return 0
	}
	return available
}
