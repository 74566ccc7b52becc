package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/geo"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository"
	"carpool/internal/repository/postgres"
)

const (
	tripLockTTL = 10 * time.Second

	// maxTotalSeats bounds a carpool offer to a normal passenger car.
	maxTotalSeats = 6
)

// ChangeFeedInterface is the change-notification channel consumed by trip
// watchers. Events are re-fetch signals only.
type ChangeFeedInterface interface {
	Subscribe(ctx context.Context, tripID string) <-chan postgres.ChangeEvent
}

// TripService owns the trip lifecycle: publishing, discovery, start, and
// the terminal end/cancel deletions.
type TripService struct {
	tripRepo  repository.TripRepository
	resolver  *MeetingPointResolver
	locations internalRedis.LocationStoreInterface
	locks     internalRedis.LockStoreInterface
	cache     *internalRedis.CacheStore
	feed      ChangeFeedInterface
}

// NewTripService creates a new TripService. locations, locks, cache and
// feed may each be nil; the corresponding behavior degrades gracefully.
func NewTripService(
	tripRepo repository.TripRepository,
	resolver *MeetingPointResolver,
	locations internalRedis.LocationStoreInterface,
	locks internalRedis.LockStoreInterface,
	cache *internalRedis.CacheStore,
	feed ChangeFeedInterface,
) *TripService {
	return &TripService{
		tripRepo:  tripRepo,
		resolver:  resolver,
		locations: locations,
		locks:     locks,
		cache:     cache,
		feed:      feed,
	}
}

// PublishTripRequest contains the parameters for publishing a trip.
type PublishTripRequest struct {
	DriverID             string
	Destination          domain.Destination
	StartLat             float64
	StartLng             float64
	Polyline             string
	DepartureTime        time.Time
	RouteDurationSeconds int
	TotalSeats           int
}

// PublishTrip persists a driver's confirmed route offer. The estimated
// arrival time is derived from the chosen route's duration.
func (s *TripService) PublishTrip(ctx context.Context, req PublishTripRequest) (*domain.Trip, error) {
	if req.DriverID == "" {
		return nil, ErrAuthRequired
	}
	if !domain.ValidDestination(req.Destination) {
		return nil, ErrInvalidDestination
	}
	if !validLatitude(req.StartLat) || !validLongitude(req.StartLng) {
		return nil, ErrInvalidLocation
	}
	if req.TotalSeats < 1 || req.TotalSeats > maxTotalSeats {
		return nil, ErrInvalidSeatCount
	}
	if req.DepartureTime.IsZero() {
		return nil, ErrInvalidDeparture
	}
	if len(geo.DecodePolyline(req.Polyline)) < 2 {
		return nil, ErrInvalidRoute
	}

	trip := &domain.Trip{
		ID:                   uuid.New().String(),
		DriverID:             req.DriverID,
		Destination:          req.Destination,
		StartLat:             req.StartLat,
		StartLng:             req.StartLng,
		Polyline:             req.Polyline,
		DepartureTime:        req.DepartureTime,
		EstimatedArrivalTime: req.DepartureTime.Add(time.Duration(req.RouteDurationSeconds) * time.Second),
		TotalSeats:           req.TotalSeats,
		SeatsTaken:           0,
		Status:               domain.TripStatusScheduled,
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	if s.locations != nil {
		// Best effort; discovery falls back to the full scheduled list.
		_ = s.locations.IndexTripStart(ctx, trip.ID, trip.StartLat, trip.StartLng)
	}

	return trip, nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripGone
		}
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetTrip(ctx, &internalRedis.CachedTrip{
			ID:          trip.ID,
			DriverID:    trip.DriverID,
			Destination: string(trip.Destination),
			Status:      string(trip.Status),
			TotalSeats:  trip.TotalSeats,
			SeatsTaken:  trip.SeatsTaken,
		})
	}

	return trip, nil
}

// DriverTrips retrieves a driver's own trips.
func (s *TripService) DriverTrips(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	if driverID == "" {
		return nil, ErrAuthRequired
	}
	return s.tripRepo.ListByDriverID(ctx, driverID)
}

// TripOffer is one discoverable trip enriched for a specific rider.
type TripOffer struct {
	Trip           *domain.Trip
	Plan           *MeetingPlan
	AvailableSeats int
}

// DiscoverRequest contains the parameters for trip discovery.
type DiscoverRequest struct {
	RiderLocation geo.LatLng
	// Destination filters offers; empty means any destination.
	Destination domain.Destination
	// MaxWalkMinutes drops offers whose walk exceeds it; 0 disables.
	MaxWalkMinutes int
	// RadiusKm narrows discovery to trips starting nearby via the geo
	// index; 0 disables the narrowing.
	RadiusKm float64
}

// DiscoverTrips lists SCHEDULED trips ranked for a rider: each trip gets a
// resolved meeting plan, full trips and trips without usable geometry are
// excluded (degraded locally, never an error for the whole list), and the
// result is ordered by meeting ETA.
func (s *TripService) DiscoverTrips(ctx context.Context, req DiscoverRequest) ([]TripOffer, error) {
	if !validLatitude(req.RiderLocation.Lat) || !validLongitude(req.RiderLocation.Lng) {
		return nil, ErrInvalidLocation
	}
	if req.Destination != "" && !domain.ValidDestination(req.Destination) {
		return nil, ErrInvalidDestination
	}

	trips, err := s.tripRepo.ListScheduled(ctx, req.Destination)
	if err != nil {
		return nil, err
	}

	if req.RadiusKm > 0 && s.locations != nil {
		trips = s.filterNearby(ctx, trips, req)
	}

	offers := make([]TripOffer, 0, len(trips))
	for _, trip := range trips {
		if trip.AvailableSeats() == 0 {
			continue
		}

		plan, err := s.resolver.Resolve(req.RiderLocation, trip)
		if err != nil {
			// Trip cannot currently be evaluated; skip it.
			continue
		}

		if req.MaxWalkMinutes > 0 && plan.WalkMinutes > req.MaxWalkMinutes {
			continue
		}

		offers = append(offers, TripOffer{
			Trip:           trip,
			Plan:           plan,
			AvailableSeats: trip.AvailableSeats(),
		})
	}

	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].Plan.MeetingETA.Before(offers[j].Plan.MeetingETA)
	})

	return offers, nil
}

func (s *TripService) filterNearby(ctx context.Context, trips []*domain.Trip, req DiscoverRequest) []*domain.Trip {
	nearby, err := s.locations.FindNearbyTrips(ctx, req.RiderLocation.Lat, req.RiderLocation.Lng, req.RadiusKm)
	if err != nil {
		// Geo index unavailable; keep the unfiltered list.
		return trips
	}

	allowed := make(map[string]bool, len(nearby))
	for _, start := range nearby {
		allowed[start.TripID] = true
	}

	filtered := trips[:0]
	for _, trip := range trips {
		if allowed[trip.ID] {
			filtered = append(filtered, trip)
		}
	}
	return filtered
}

// StartTrip transitions a SCHEDULED trip to IN_PROGRESS, stamping the
// actual start time. A second start is rejected rather than re-stamping,
// so riders' meeting ETAs stay anchored to the first real departure; the
// trip lock additionally serializes racing driver sessions.
func (s *TripService) StartTrip(ctx context.Context, tripID, driverID string) (*domain.Trip, error) {
	trip, release, err := s.lockAndAuthorize(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	defer release()

	if trip.Status != domain.TripStatusScheduled {
		return nil, ErrTripAlreadyStarted
	}

	startedAt := time.Now()
	updated, err := s.tripRepo.MarkInProgress(ctx, tripID, startedAt)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost a race with another session, or the trip was deleted.
		if _, err := s.tripRepo.GetByID(ctx, tripID); errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripGone
		}
		return nil, ErrTripAlreadyStarted
	}

	if s.cache != nil {
		_ = s.cache.InvalidateTrip(ctx, tripID)
	}

	trip.Status = domain.TripStatusInProgress
	trip.ActualStartTime = startedAt
	return trip, nil
}

// EndTrip deletes the trip and all of its bookings. Terminal and
// irreversible; completed trips keep no persisted history.
func (s *TripService) EndTrip(ctx context.Context, tripID, driverID string) error {
	return s.terminate(ctx, tripID, driverID)
}

// CancelTrip deletes the trip and all of its bookings. Persisted state
// makes no distinction between a cancelled and a completed trip.
func (s *TripService) CancelTrip(ctx context.Context, tripID, driverID string) error {
	return s.terminate(ctx, tripID, driverID)
}

func (s *TripService) terminate(ctx context.Context, tripID, driverID string) error {
	_, release, err := s.lockAndAuthorize(ctx, tripID, driverID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.tripRepo.Delete(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTripGone
		}
		return err
	}

	if s.locations != nil {
		_ = s.locations.RemoveTripStart(ctx, tripID)
	}
	if s.cache != nil {
		_ = s.cache.InvalidateTrip(ctx, tripID)
	}

	return nil
}

// lockAndAuthorize acquires the trip lifecycle lock, loads the trip, and
// checks the caller owns it. The returned release func is a no-op when no
// lock store is configured.
func (s *TripService) lockAndAuthorize(ctx context.Context, tripID, driverID string) (*domain.Trip, func(), error) {
	if tripID == "" {
		return nil, nil, ErrInvalidTripID
	}
	if driverID == "" {
		return nil, nil, ErrAuthRequired
	}

	release := func() {}
	if s.locks != nil {
		locked, err := s.locks.AcquireTripLock(ctx, tripID, tripLockTTL)
		if err != nil {
			return nil, nil, err
		}
		if !locked {
			return nil, nil, ErrTripBusy
		}
		release = func() { _ = s.locks.ReleaseTripLock(ctx, tripID) }
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		release()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTripGone
		}
		return nil, nil, err
	}

	if trip.DriverID != driverID {
		release()
		return nil, nil, ErrNotTripDriver
	}

	return trip, release, nil
}

// WatchTrip streams the authoritative trip state: the current row
// immediately, then a re-fetched row after every change-feed event that
// touches the trip or its bookings. The channel closes when the trip is
// deleted or ctx is done. Notifications are never trusted as state; each
// one triggers a fresh read.
func (s *TripService) WatchTrip(ctx context.Context, tripID string) (<-chan *domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if s.feed == nil {
		return nil, ErrTripGone
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripGone
		}
		return nil, err
	}

	events := s.feed.Subscribe(ctx, tripID)
	out := make(chan *domain.Trip, 1)
	out <- trip

	go func() {
		defer close(out)
		for range events {
			current, err := s.tripRepo.GetByID(ctx, tripID)
			if err != nil {
				// Deleted out from under the watcher.
				return
			}
			select {
			case out <- current:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
