package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"carpool/internal/directions"
	"carpool/internal/geo"
	"carpool/internal/service"
)

func TestComputeRouteOptions_ShortList(t *testing.T) {
	provider := &FakeDirectionsProvider{
		RouteFunc: func(ctx context.Context, origin, destination geo.LatLng, waypoints []geo.LatLng, mode directions.TravelMode) ([]directions.RouteCandidate, error) {
			if mode != directions.ModeDriving {
				t.Errorf("expected driving mode, got %s", mode)
			}
			return []directions.RouteCandidate{
				{Index: 0, Summary: "Highway 1", DurationSeconds: 600, DistanceMeters: 5000},
				{Index: 1, Summary: "Mission St", DurationSeconds: 650, DistanceMeters: 5200},
				{Index: 2, Summary: "Coastal detour", DurationSeconds: 900, DistanceMeters: 9000},
			}, nil
		},
	}
	routes := service.NewRouteService(provider)

	options, err := routes.ComputeRouteOptions(context.Background(), geo.LatLng{Lat: 36.97, Lng: -122.03}, geo.LatLng{Lat: 36.99, Lng: -122.06}, nil)
	if err != nil {
		t.Fatalf("expected options, got %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("expected the detour filtered out, got %d options", len(options))
	}
	if options[0].Summary != "Highway 1" || options[1].Summary != "Mission St" {
		t.Errorf("unexpected short-list order: %s, %s", options[0].Summary, options[1].Summary)
	}
}

func TestComputeRouteOptions_ProviderDown(t *testing.T) {
	routes := service.NewRouteService(&FakeDirectionsProvider{
		RouteFunc: func(ctx context.Context, origin, destination geo.LatLng, waypoints []geo.LatLng, mode directions.TravelMode) ([]directions.RouteCandidate, error) {
			return nil, directions.ErrUnavailable
		},
	})

	if _, err := routes.ComputeRouteOptions(context.Background(), geo.LatLng{}, geo.LatLng{Lat: 1, Lng: 1}, nil); !errors.Is(err, service.ErrDirectionsUnavailable) {
		t.Fatalf("expected ErrDirectionsUnavailable, got %v", err)
	}
}

func TestComputeRouteOptions_InvalidCoordinates(t *testing.T) {
	routes := service.NewRouteService(&FakeDirectionsProvider{})
	if _, err := routes.ComputeRouteOptions(context.Background(), geo.LatLng{Lat: 91}, geo.LatLng{}, nil); !errors.Is(err, service.ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
}

// A slow geocode response that comes back after the same caller issued a
// newer request is discarded, never applied out of order.
func TestGeocodeStart_StaleResponseDiscarded(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var calls int32

	provider := &FakeDirectionsProvider{
		GeocodeFunc: func(ctx context.Context, address string) (geo.LatLng, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(firstStarted)
				<-releaseFirst
				return geo.LatLng{Lat: 1, Lng: 1}, nil
			}
			return geo.LatLng{Lat: 2, Lng: 2}, nil
		},
	}
	routes := service.NewRouteService(provider)

	firstResult := make(chan error, 1)
	go func() {
		_, err := routes.GeocodeStart(context.Background(), "driver-1", "123 Old Address")
		firstResult <- err
	}()

	<-firstStarted
	point, err := routes.GeocodeStart(context.Background(), "driver-1", "456 New Address")
	if err != nil {
		t.Fatalf("expected newer request to succeed, got %v", err)
	}
	if point.Lat != 2 || point.Lng != 2 {
		t.Errorf("expected the newer geocode result, got %+v", point)
	}

	close(releaseFirst)
	select {
	case err := <-firstResult:
		if !errors.Is(err, service.ErrRequestSuperseded) {
			t.Fatalf("expected ErrRequestSuperseded for the stale response, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the stale request")
	}
}

// Generations are tracked per caller; one driver's rapid retyping never
// invalidates another driver's in-flight request.
func TestGeocodeStart_IndependentCallers(t *testing.T) {
	routes := service.NewRouteService(&FakeDirectionsProvider{
		GeocodeFunc: func(ctx context.Context, address string) (geo.LatLng, error) {
			return geo.LatLng{Lat: 1, Lng: 1}, nil
		},
	})

	if _, err := routes.GeocodeStart(context.Background(), "driver-1", "somewhere"); err != nil {
		t.Fatalf("driver-1 geocode failed: %v", err)
	}
	if _, err := routes.GeocodeStart(context.Background(), "driver-2", "elsewhere"); err != nil {
		t.Fatalf("driver-2 geocode failed: %v", err)
	}
}

func TestGeocodeStart_NotFound(t *testing.T) {
	routes := service.NewRouteService(&FakeDirectionsProvider{})
	if _, err := routes.GeocodeStart(context.Background(), "driver-1", "nowhere at all"); !errors.Is(err, service.ErrGeocodeFailed) {
		t.Fatalf("expected ErrGeocodeFailed, got %v", err)
	}
}

// An address that matches several locations surfaces as its own error so
// the caller can ask the driver to disambiguate instead of silently
// picking one match.
func TestGeocodeStart_AmbiguousAddress(t *testing.T) {
	routes := service.NewRouteService(&FakeDirectionsProvider{
		GeocodeFunc: func(ctx context.Context, address string) (geo.LatLng, error) {
			return geo.LatLng{}, directions.ErrAmbiguous
		},
	})

	if _, err := routes.GeocodeStart(context.Background(), "driver-1", "Main St, Springfield"); !errors.Is(err, service.ErrAddressAmbiguous) {
		t.Fatalf("expected ErrAddressAmbiguous, got %v", err)
	}
}

func TestReverseGeocode(t *testing.T) {
	routes := service.NewRouteService(&FakeDirectionsProvider{
		ReverseGeocodeFunc: func(ctx context.Context, point geo.LatLng) (string, error) {
			return "1156 High St, Santa Cruz", nil
		},
	})

	address, err := routes.ReverseGeocode(context.Background(), geo.LatLng{Lat: 36.97, Lng: -122.05})
	if err != nil {
		t.Fatalf("expected reverse geocode to succeed, got %v", err)
	}
	if address != "1156 High St, Santa Cruz" {
		t.Errorf("unexpected address: %s", address)
	}
}
