package service

import (
	"context"
	"errors"
	"sync"

	"carpool/internal/directions"
	"carpool/internal/geo"
)

// requestSequencer assigns a monotonically increasing generation number to
// every outbound provider request for a logical field, so a stale response
// arriving after a newer request can be detected and discarded.
type requestSequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func newRequestSequencer() *requestSequencer {
	return &requestSequencer{latest: make(map[string]uint64)}
}

// begin issues the next generation for a field and marks it latest.
func (s *requestSequencer) begin(field string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[field]++
	return s.latest[field]
}

// isCurrent reports whether generation is still the newest issued for field.
func (s *requestSequencer) isCurrent(field string, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[field] == generation
}

// RouteService fronts the directions provider: route alternatives for trip
// publishing and generation-guarded geocoding for start-location entry.
type RouteService struct {
	provider  directions.Provider
	sequencer *requestSequencer
}

// NewRouteService creates a new RouteService.
func NewRouteService(provider directions.Provider) *RouteService {
	return &RouteService{
		provider:  provider,
		sequencer: newRequestSequencer(),
	}
}

// ComputeRouteOptions queries the provider for driving alternatives between
// origin and destination, optionally through intermediate waypoints, and
// reduces them to the short-list offered for confirmation.
func (s *RouteService) ComputeRouteOptions(ctx context.Context, origin, destination geo.LatLng, waypoints []geo.LatLng) ([]directions.RouteCandidate, error) {
	if !validLatitude(origin.Lat) || !validLongitude(origin.Lng) ||
		!validLatitude(destination.Lat) || !validLongitude(destination.Lng) {
		return nil, ErrInvalidLocation
	}
	for _, w := range waypoints {
		if !validLatitude(w.Lat) || !validLongitude(w.Lng) {
			return nil, ErrInvalidLocation
		}
	}

	candidates, err := s.provider.Route(ctx, origin, destination, waypoints, directions.ModeDriving)
	if err != nil {
		return nil, ErrDirectionsUnavailable
	}

	return directions.SelectAlternatives(candidates), nil
}

// GeocodeStart resolves the address a driver typed for their start
// location. Requests are tagged per caller; when a response comes back
// after the same caller issued a newer request, it is discarded with
// ErrRequestSuperseded instead of being applied out of order.
func (s *RouteService) GeocodeStart(ctx context.Context, callerID, address string) (geo.LatLng, error) {
	if callerID == "" {
		return geo.LatLng{}, ErrAuthRequired
	}
	if address == "" {
		return geo.LatLng{}, ErrGeocodeFailed
	}

	field := "start:" + callerID
	generation := s.sequencer.begin(field)

	point, err := s.provider.Geocode(ctx, address)

	if !s.sequencer.isCurrent(field, generation) {
		return geo.LatLng{}, ErrRequestSuperseded
	}

	if err != nil {
		switch {
		case errors.Is(err, directions.ErrNotFound):
			return geo.LatLng{}, ErrGeocodeFailed
		case errors.Is(err, directions.ErrAmbiguous):
			return geo.LatLng{}, ErrAddressAmbiguous
		}
		return geo.LatLng{}, ErrDirectionsUnavailable
	}

	return point, nil
}

// ReverseGeocode resolves a coordinate to a readable address, used to label
// a device-located start position.
func (s *RouteService) ReverseGeocode(ctx context.Context, point geo.LatLng) (string, error) {
	if !validLatitude(point.Lat) || !validLongitude(point.Lng) {
		return "", ErrInvalidLocation
	}

	address, err := s.provider.ReverseGeocode(ctx, point)
	if err != nil {
		if errors.Is(err, directions.ErrNotFound) {
			return "", ErrGeocodeFailed
		}
		return "", ErrDirectionsUnavailable
	}

	return address, nil
}
