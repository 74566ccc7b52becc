package directions

import (
	"context"
	"errors"

	"carpool/internal/geo"
)

// TravelMode selects the routing profile for a directions query.
type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeWalking TravelMode = "walking"
)

var (
	// ErrUnavailable is returned when the provider reports a non-OK status
	// or returns zero routes. Both cases are indistinguishable to callers.
	ErrUnavailable = errors.New("directions unavailable")

	// ErrNotFound is returned when a geocoding query matches no location.
	ErrNotFound = errors.New("address not found")

	// ErrAmbiguous is returned when a geocoding query matches more than
	// one location, so no single coordinate can be chosen for it.
	ErrAmbiguous = errors.New("address ambiguous")
)

// RouteCandidate is one alternative returned by the provider for a single
// origin/destination query. Candidates are ephemeral; only the confirmed
// polyline is ever persisted.
type RouteCandidate struct {
	Index           int
	Summary         string
	DurationSeconds int
	DistanceMeters  int
	Polyline        string
}

// WalkingRoute is the result of an accurate pedestrian-routing query, used
// to refine the straight-line walking estimate for a selected trip.
type WalkingRoute struct {
	DurationSeconds int
	DistanceMeters  int
	Polyline        string
}

// Provider is the directions/geocoding collaborator consumed by the core.
// It is injected rather than accessed as a global so tests can substitute
// a deterministic fake.
type Provider interface {
	// Route returns zero or more candidate routes between origin and
	// destination, optionally threaded through intermediate waypoints. A
	// provider error or an empty result surfaces as ErrUnavailable.
	Route(ctx context.Context, origin, destination geo.LatLng, waypoints []geo.LatLng, mode TravelMode) ([]RouteCandidate, error)

	// Geocode resolves a free-form address to a coordinate.
	Geocode(ctx context.Context, address string) (geo.LatLng, error)

	// ReverseGeocode resolves a coordinate to a human-readable address.
	ReverseGeocode(ctx context.Context, point geo.LatLng) (string, error)
}
