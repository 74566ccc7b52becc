package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/repository/postgres"
	"carpool/internal/service"
)

type tripFixture struct {
	tripRepo    *MockTripRepository
	bookingRepo *MockBookingRepository
	locks       *MockLockStore
	feed        *FakeChangeFeed
	trips       *service.TripService
	bookings    *service.BookingCoordinator
}

func newTripFixture() *tripFixture {
	tripRepo := NewMockTripRepository()
	bookingRepo := NewMockBookingRepository()
	tripRepo.Bookings = bookingRepo
	locks := NewMockLockStore()
	feed := NewFakeChangeFeed()
	resolver := service.NewMeetingPointResolver(&FakeDirectionsProvider{}, nil)

	return &tripFixture{
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
		locks:       locks,
		feed:        feed,
		trips:       service.NewTripService(tripRepo, resolver, nil, locks, nil, feed),
		bookings:    service.NewBookingCoordinator(tripRepo, bookingRepo),
	}
}

func validPublishRequest(driverID string, departure time.Time) service.PublishTripRequest {
	return service.PublishTripRequest{
		DriverID:             driverID,
		Destination:          domain.DestinationCoreWest,
		StartLat:             36.9741,
		StartLng:             -122.0308,
		Polyline:             geo.EncodePolyline([]geo.LatLng{{Lat: 36.9741, Lng: -122.0308}, {Lat: 36.9880, Lng: -122.0582}}),
		DepartureTime:        departure,
		RouteDurationSeconds: 900,
		TotalSeats:           3,
	}
}

func TestPublishTrip(t *testing.T) {
	f := newTripFixture()
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	trip, err := f.trips.PublishTrip(context.Background(), validPublishRequest("driver-1", departure))
	if err != nil {
		t.Fatalf("expected publish to succeed, got %v", err)
	}
	if trip.Status != domain.TripStatusScheduled {
		t.Errorf("expected SCHEDULED, got %s", trip.Status)
	}
	if trip.SeatsTaken != 0 {
		t.Errorf("new trip must start with 0 seats taken, got %d", trip.SeatsTaken)
	}
	if want := departure.Add(15 * time.Minute); !trip.EstimatedArrivalTime.Equal(want) {
		t.Errorf("expected arrival %v from route duration, got %v", want, trip.EstimatedArrivalTime)
	}
	if f.tripRepo.GetTrip(trip.ID) == nil {
		t.Error("trip was not persisted")
	}
}

func TestPublishTrip_Validation(t *testing.T) {
	f := newTripFixture()
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		mutate func(*service.PublishTripRequest)
		want   error
	}{
		{"missing driver", func(r *service.PublishTripRequest) { r.DriverID = "" }, service.ErrAuthRequired},
		{"unknown destination", func(r *service.PublishTripRequest) { r.Destination = "NORTH_LOT" }, service.ErrInvalidDestination},
		{"bad start", func(r *service.PublishTripRequest) { r.StartLat = 95 }, service.ErrInvalidLocation},
		{"zero seats", func(r *service.PublishTripRequest) { r.TotalSeats = 0 }, service.ErrInvalidSeatCount},
		{"too many seats", func(r *service.PublishTripRequest) { r.TotalSeats = 7 }, service.ErrInvalidSeatCount},
		{"zero departure", func(r *service.PublishTripRequest) { r.DepartureTime = time.Time{} }, service.ErrInvalidDeparture},
		{"no route", func(r *service.PublishTripRequest) { r.Polyline = "" }, service.ErrInvalidRoute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validPublishRequest("driver-1", departure)
			tc.mutate(&req)
			if _, err := f.trips.PublishTrip(context.Background(), req); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestStartTrip(t *testing.T) {
	f := newTripFixture()
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	published, err := f.trips.PublishTrip(context.Background(), validPublishRequest("driver-1", departure))
	if err != nil {
		t.Fatalf("setup publish failed: %v", err)
	}

	started, err := f.trips.StartTrip(context.Background(), published.ID, "driver-1")
	if err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	if started.Status != domain.TripStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", started.Status)
	}
	if started.ActualStartTime.IsZero() {
		t.Error("expected actual start time to be stamped")
	}

	stored := f.tripRepo.GetTrip(published.ID)
	if stored.Status != domain.TripStatusInProgress {
		t.Errorf("stored trip not transitioned, got %s", stored.Status)
	}
}

func TestStartTrip_SecondStartRejected(t *testing.T) {
	f := newTripFixture()
	departure := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	published, err := f.trips.PublishTrip(context.Background(), validPublishRequest("driver-1", departure))
	if err != nil {
		t.Fatalf("setup publish failed: %v", err)
	}

	first, err := f.trips.StartTrip(context.Background(), published.ID, "driver-1")
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	if _, err := f.trips.StartTrip(context.Background(), published.ID, "driver-1"); !errors.Is(err, service.ErrTripAlreadyStarted) {
		t.Fatalf("expected ErrTripAlreadyStarted, got %v", err)
	}

	// The stamped start time must not move.
	if got := f.tripRepo.GetTrip(published.ID).ActualStartTime; !got.Equal(first.ActualStartTime) {
		t.Errorf("actual start time was re-stamped: %v vs %v", got, first.ActualStartTime)
	}
}

func TestStartTrip_NotDriver(t *testing.T) {
	f := newTripFixture()
	f.tripRepo.AddTrip(scheduledTrip("trip-1", "driver-1", 3))

	if _, err := f.trips.StartTrip(context.Background(), "trip-1", "driver-2"); !errors.Is(err, service.ErrNotTripDriver) {
		t.Fatalf("expected ErrNotTripDriver, got %v", err)
	}
}

func TestStartTrip_LockHeld(t *testing.T) {
	f := newTripFixture()
	f.tripRepo.AddTrip(scheduledTrip("trip-1", "driver-1", 3))
	f.locks.Fail = true

	if _, err := f.trips.StartTrip(context.Background(), "trip-1", "driver-1"); !errors.Is(err, service.ErrTripBusy) {
		t.Fatalf("expected ErrTripBusy, got %v", err)
	}
}

// Ending a trip deletes the trip and every booking on it; riders who try
// to book afterwards see the trip as gone.
func TestEndTrip_CascadesBookings(t *testing.T) {
	f := newTripFixture()
	f.tripRepo.AddTrip(scheduledTrip("trip-1", "driver-1", 3))

	for _, rider := range []string{"rider-1", "rider-2"} {
		if _, err := f.bookings.ReserveSeat(context.Background(), service.ReserveSeatRequest{
			TripID:      "trip-1",
			RiderID:     rider,
			PickupPoint: geo.LatLng{Lat: 36.97, Lng: -122.03},
		}); err != nil {
			t.Fatalf("setup reservation for %s failed: %v", rider, err)
		}
	}
	if got := f.bookingRepo.CountByTripID("trip-1"); got != 2 {
		t.Fatalf("setup expected 2 bookings, got %d", got)
	}

	if err := f.trips.EndTrip(context.Background(), "trip-1", "driver-1"); err != nil {
		t.Fatalf("expected end to succeed, got %v", err)
	}

	if f.tripRepo.CountTrips() != 0 {
		t.Error("trip should be deleted")
	}
	if got := f.bookingRepo.CountBookings(); got != 0 {
		t.Errorf("bookings should cascade, got %d", got)
	}

	if _, err := f.bookings.ReserveSeat(context.Background(), service.ReserveSeatRequest{
		TripID:      "trip-1",
		RiderID:     "rider-3",
		PickupPoint: geo.LatLng{Lat: 36.97, Lng: -122.03},
	}); !errors.Is(err, service.ErrTripGone) {
		t.Fatalf("expected ErrTripGone after end, got %v", err)
	}
}

func TestCancelTrip_OnlyDriver(t *testing.T) {
	f := newTripFixture()
	f.tripRepo.AddTrip(scheduledTrip("trip-1", "driver-1", 3))

	if err := f.trips.CancelTrip(context.Background(), "trip-1", "rider-1"); !errors.Is(err, service.ErrNotTripDriver) {
		t.Fatalf("expected ErrNotTripDriver, got %v", err)
	}
	if err := f.trips.CancelTrip(context.Background(), "trip-1", "driver-1"); err != nil {
		t.Fatalf("expected cancel to succeed, got %v", err)
	}
	if f.tripRepo.CountTrips() != 0 {
		t.Error("trip should be deleted")
	}
}

func TestDiscoverTrips_RankedByMeetingETA(t *testing.T) {
	f := newTripFixture()
	base := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	equatorPolyline := geo.EncodePolyline([]geo.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}})

	later := scheduledTrip("late", "driver-1", 3)
	later.Polyline = equatorPolyline
	later.DepartureTime = base.Add(30 * time.Minute)
	later.EstimatedArrivalTime = base.Add(50 * time.Minute)
	f.tripRepo.AddTrip(later)

	sooner := scheduledTrip("soon", "driver-2", 3)
	sooner.Polyline = equatorPolyline
	sooner.DepartureTime = base
	sooner.EstimatedArrivalTime = base.Add(20 * time.Minute)
	f.tripRepo.AddTrip(sooner)

	full := scheduledTrip("full", "driver-3", 2)
	full.Polyline = equatorPolyline
	full.SeatsTaken = 2
	f.tripRepo.AddTrip(full)

	degraded := scheduledTrip("no-route", "driver-4", 3)
	degraded.Polyline = ""
	f.tripRepo.AddTrip(degraded)

	offers, err := f.trips.DiscoverTrips(context.Background(), service.DiscoverRequest{
		RiderLocation: geo.LatLng{Lat: 0, Lng: 0.25},
	})
	if err != nil {
		t.Fatalf("expected discovery to succeed, got %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("expected full and degraded trips excluded, got %d offers", len(offers))
	}
	if offers[0].Trip.ID != "soon" || offers[1].Trip.ID != "late" {
		t.Errorf("expected ETA order [soon late], got [%s %s]", offers[0].Trip.ID, offers[1].Trip.ID)
	}
	if offers[0].AvailableSeats != 3 {
		t.Errorf("expected 3 available seats, got %d", offers[0].AvailableSeats)
	}
}

func TestDiscoverTrips_MaxWalkMinutes(t *testing.T) {
	f := newTripFixture()
	base := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	trip := scheduledTrip("trip-1", "driver-1", 3)
	trip.Polyline = geo.EncodePolyline([]geo.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.01}})
	trip.DepartureTime = base
	trip.EstimatedArrivalTime = base.Add(20 * time.Minute)
	f.tripRepo.AddTrip(trip)

	// The rider is a two-minute walk from the path.
	rider := geo.LatLng{Lat: 0.00143889, Lng: 0.005}

	offers, err := f.trips.DiscoverTrips(context.Background(), service.DiscoverRequest{
		RiderLocation:  rider,
		MaxWalkMinutes: 1,
	})
	if err != nil {
		t.Fatalf("expected discovery to succeed, got %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("expected walk cap to exclude the trip, got %d offers", len(offers))
	}

	offers, err = f.trips.DiscoverTrips(context.Background(), service.DiscoverRequest{
		RiderLocation:  rider,
		MaxWalkMinutes: 2,
	})
	if err != nil {
		t.Fatalf("expected discovery to succeed, got %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("expected the trip within the walk cap, got %d offers", len(offers))
	}
}

func TestDiscoverTrips_DestinationFilter(t *testing.T) {
	f := newTripFixture()
	equatorPolyline := geo.EncodePolyline([]geo.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}})

	east := scheduledTrip("east", "driver-1", 3)
	east.Destination = domain.DestinationEastRemote
	east.Polyline = equatorPolyline
	f.tripRepo.AddTrip(east)

	west := scheduledTrip("west", "driver-2", 3)
	west.Destination = domain.DestinationWestRemote
	west.Polyline = equatorPolyline
	f.tripRepo.AddTrip(west)

	offers, err := f.trips.DiscoverTrips(context.Background(), service.DiscoverRequest{
		RiderLocation: geo.LatLng{Lat: 0, Lng: 0.25},
		Destination:   domain.DestinationEastRemote,
	})
	if err != nil {
		t.Fatalf("expected discovery to succeed, got %v", err)
	}
	if len(offers) != 1 || offers[0].Trip.ID != "east" {
		t.Fatalf("expected only the east trip, got %d offers", len(offers))
	}

	if _, err := f.trips.DiscoverTrips(context.Background(), service.DiscoverRequest{
		RiderLocation: geo.LatLng{Lat: 0, Lng: 0.25},
		Destination:   "NOWHERE",
	}); !errors.Is(err, service.ErrInvalidDestination) {
		t.Fatalf("expected ErrInvalidDestination, got %v", err)
	}
}

// WatchTrip emits the current row immediately, re-fetches on every change
// event, and closes once the trip disappears.
func TestWatchTrip(t *testing.T) {
	f := newTripFixture()
	f.tripRepo.AddTrip(scheduledTrip("trip-1", "driver-1", 3))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := f.trips.WatchTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("expected watch to start, got %v", err)
	}

	initial := mustReceiveTrip(t, updates)
	if initial.SeatsTaken != 0 {
		t.Errorf("expected initial snapshot, got seatsTaken %d", initial.SeatsTaken)
	}

	// A booking lands; the notification is only a signal to re-read.
	stored := scheduledTrip("trip-1", "driver-1", 3)
	stored.SeatsTaken = 1
	f.tripRepo.AddTrip(stored)
	f.feed.Push(postgres.ChangeEvent{Table: "bookings", Op: "INSERT", TripID: "trip-1"})

	updated := mustReceiveTrip(t, updates)
	if updated.SeatsTaken != 1 {
		t.Errorf("expected re-fetched seatsTaken 1, got %d", updated.SeatsTaken)
	}

	// The trip is deleted; the stream ends.
	f.tripRepo.Bookings = nil
	if err := f.tripRepo.Delete(context.Background(), "trip-1"); err != nil {
		t.Fatalf("setup delete failed: %v", err)
	}
	f.feed.Push(postgres.ChangeEvent{Table: "trips", Op: "DELETE", ID: "trip-1"})

	select {
	case _, open := <-updates:
		if open {
			t.Error("expected stream to close after delete")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream to close")
	}
}

func TestWatchTrip_UnknownTrip(t *testing.T) {
	f := newTripFixture()
	if _, err := f.trips.WatchTrip(context.Background(), "missing"); !errors.Is(err, service.ErrTripGone) {
		t.Fatalf("expected ErrTripGone, got %v", err)
	}
}

func mustReceiveTrip(t *testing.T, ch <-chan *domain.Trip) *domain.Trip {
	t.Helper()
	select {
	case trip, open := <-ch:
		if !open {
			t.Fatal("stream closed unexpectedly")
		}
		return trip
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trip update")
		return nil
	}
}
