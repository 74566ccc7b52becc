package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool/internal/directions"
	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/service"
)

func equatorTrip(departure time.Time, tripDuration time.Duration) *domain.Trip {
	// One-degree leg along the equator, so the projection math is exact.
	polyline := geo.EncodePolyline([]geo.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}})
	return &domain.Trip{
		ID:                   "trip-1",
		DriverID:             "driver-1",
		Destination:          domain.DestinationEastRemote,
		Polyline:             polyline,
		DepartureTime:        departure,
		EstimatedArrivalTime: departure.Add(tripDuration),
		TotalSeats:           3,
		Status:               domain.TripStatusScheduled,
	}
}

func TestResolve_ProportionalETA(t *testing.T) {
	resolver := service.NewMeetingPointResolver(&FakeDirectionsProvider{}, nil)
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	trip := equatorTrip(departure, 20*time.Minute)

	// Rider sits a quarter of the way along the route.
	plan, err := resolver.Resolve(geo.LatLng{Lat: 0, Lng: 0.25}, trip)
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if plan.RouteFraction != 0.25 {
		t.Errorf("expected route fraction 0.25, got %v", plan.RouteFraction)
	}
	if want := departure.Add(5 * time.Minute); !plan.MeetingETA.Equal(want) {
		t.Errorf("expected meeting ETA %v, got %v", want, plan.MeetingETA)
	}
	if plan.WalkingDistanceMeters != 0 {
		t.Errorf("rider on the path should walk 0 meters, got %d", plan.WalkingDistanceMeters)
	}
	if plan.WalkMinutes != 1 {
		t.Errorf("walk minutes are floored at 1, got %d", plan.WalkMinutes)
	}
}

func TestResolve_InProgressShiftsAnchors(t *testing.T) {
	resolver := service.NewMeetingPointResolver(&FakeDirectionsProvider{}, nil)
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	trip := equatorTrip(departure, 20*time.Minute)
	trip.Status = domain.TripStatusInProgress
	trip.ActualStartTime = departure.Add(10 * time.Minute)

	plan, err := resolver.Resolve(geo.LatLng{Lat: 0, Lng: 0.25}, trip)
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	// Same leg duration, anchored to the real departure.
	if want := departure.Add(15 * time.Minute); !plan.MeetingETA.Equal(want) {
		t.Errorf("expected shifted ETA %v, got %v", want, plan.MeetingETA)
	}
}

func TestResolve_WalkMinutesFromDistance(t *testing.T) {
	resolver := service.NewMeetingPointResolver(&FakeDirectionsProvider{}, nil)
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	polyline := geo.EncodePolyline([]geo.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.01}})
	trip := equatorTrip(departure, 20*time.Minute)
	trip.Polyline = polyline

	// ~160m north of the path midpoint: a two-minute walk at 80 m/min.
	plan, err := resolver.Resolve(geo.LatLng{Lat: 0.00143889, Lng: 0.005}, trip)
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if plan.WalkingDistanceMeters < 159 || plan.WalkingDistanceMeters > 161 {
		t.Errorf("expected ~160m walk, got %d", plan.WalkingDistanceMeters)
	}
	if plan.WalkMinutes != 2 {
		t.Errorf("expected 2 walk minutes, got %d", plan.WalkMinutes)
	}
}

func TestResolve_ZeroLengthRoute(t *testing.T) {
	resolver := service.NewMeetingPointResolver(&FakeDirectionsProvider{}, nil)
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	trip := equatorTrip(departure, 20*time.Minute)
	trip.Polyline = geo.EncodePolyline([]geo.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0}})

	plan, err := resolver.Resolve(geo.LatLng{Lat: 0.001, Lng: 0.001}, trip)
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if plan.RouteFraction != 0 {
		t.Errorf("zero-length route must yield fraction 0, got %v", plan.RouteFraction)
	}
	if !plan.MeetingETA.Equal(departure) {
		t.Errorf("expected ETA at departure, got %v", plan.MeetingETA)
	}
}

func TestResolve_ArrivalNotAfterDeparture(t *testing.T) {
	resolver := service.NewMeetingPointResolver(&FakeDirectionsProvider{}, nil)
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	trip := equatorTrip(departure, 20*time.Minute)
	trip.EstimatedArrivalTime = departure.Add(-5 * time.Minute)

	plan, err := resolver.Resolve(geo.LatLng{Lat: 0, Lng: 0.25}, trip)
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if !plan.MeetingETA.Equal(trip.EstimatedArrivalTime) {
		t.Errorf("inverted anchors must clamp ETA to arrival, got %v", plan.MeetingETA)
	}
}

func TestResolve_UnusableGeometry(t *testing.T) {
	resolver := service.NewMeetingPointResolver(&FakeDirectionsProvider{}, nil)
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		polyline string
	}{
		{"empty", ""},
		{"single point", geo.EncodePolyline([]geo.LatLng{{Lat: 0, Lng: 0}})},
		{"malformed", "not-a-polyline\x01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trip := equatorTrip(departure, 20*time.Minute)
			trip.Polyline = tc.polyline
			if _, err := resolver.Resolve(geo.LatLng{Lat: 0, Lng: 0.25}, trip); !errors.Is(err, service.ErrRouteGeometryUnavailable) {
				t.Errorf("expected ErrRouteGeometryUnavailable, got %v", err)
			}
		})
	}
}

func TestRefineWalkingRoute(t *testing.T) {
	provider := &FakeDirectionsProvider{
		RouteFunc: func(ctx context.Context, origin, destination geo.LatLng, waypoints []geo.LatLng, mode directions.TravelMode) ([]directions.RouteCandidate, error) {
			if mode != directions.ModeWalking {
				t.Errorf("expected walking mode, got %s", mode)
			}
			return []directions.RouteCandidate{{
				DurationSeconds: 180,
				DistanceMeters:  230,
				Polyline:        "abc",
			}}, nil
		},
	}
	resolver := service.NewMeetingPointResolver(provider, nil)

	route, err := resolver.RefineWalkingRoute(context.Background(), geo.LatLng{Lat: 0, Lng: 0}, "trip-1", geo.LatLng{Lat: 0, Lng: 0.002})
	if err != nil {
		t.Fatalf("expected refinement to succeed, got %v", err)
	}
	if route.DurationSeconds != 180 || route.DistanceMeters != 230 {
		t.Errorf("unexpected refined route: %+v", route)
	}
}

func TestRefineWalkingRoute_ProviderDown(t *testing.T) {
	provider := &FakeDirectionsProvider{
		RouteFunc: func(ctx context.Context, origin, destination geo.LatLng, waypoints []geo.LatLng, mode directions.TravelMode) ([]directions.RouteCandidate, error) {
			return nil, directions.ErrUnavailable
		},
	}
	resolver := service.NewMeetingPointResolver(provider, nil)

	if _, err := resolver.RefineWalkingRoute(context.Background(), geo.LatLng{}, "trip-1", geo.LatLng{Lat: 0, Lng: 0.002}); !errors.Is(err, service.ErrDirectionsUnavailable) {
		t.Fatalf("expected ErrDirectionsUnavailable, got %v", err)
	}
}
