package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"carpool/internal/directions"
	"carpool/internal/domain"
	"carpool/internal/geo"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository"
	"carpool/internal/repository/postgres"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository. The
// compare-and-swap increment is serialized by the mutex, matching the
// atomicity the real conditional UPDATE provides.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Bookings, when set, lets Delete cascade like the real transaction.
	Bookings *MockBookingRepository

	// GetByIDHook runs after every successful read, before returning.
	// Tests use it to stage reservation races deterministically.
	GetByIDHook func()

	// Counters for verification
	IncrementCallCount int32
	DecrementCallCount int32
	DeleteCallCount    int32

	// Error injection
	CreateError error
	DeleteError error

	// IncrementConflictOnce makes the next conditional increment report a
	// lost race without touching state.
	IncrementConflictOnce int32
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{trips: make(map[string]*domain.Trip)}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

// GetTrip returns the stored trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	trip, ok := m.trips[id]
	var copied domain.Trip
	if ok {
		copied = *trip
	}
	m.mu.RUnlock()

	if !ok {
		return nil, repository.ErrNotFound
	}

	if m.GetByIDHook != nil {
		m.GetByIDHook()
	}

	return &copied, nil
}

func (m *MockTripRepository) ListScheduled(ctx context.Context, destination domain.Destination) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var trips []*domain.Trip
	for _, trip := range m.trips {
		if trip.Status != domain.TripStatusScheduled {
			continue
		}
		if destination != "" && trip.Destination != destination {
			continue
		}
		copied := *trip
		trips = append(trips, &copied)
	}
	return trips, nil
}

func (m *MockTripRepository) ListByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var trips []*domain.Trip
	for _, trip := range m.trips {
		if trip.DriverID == driverID {
			copied := *trip
			trips = append(trips, &copied)
		}
	}
	return trips, nil
}

func (m *MockTripRepository) IncrementSeatsTaken(ctx context.Context, tripID string, expectedSeatsTaken int) (bool, error) {
	atomic.AddInt32(&m.IncrementCallCount, 1)

	if atomic.CompareAndSwapInt32(&m.IncrementConflictOnce, 1, 0) {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[tripID]
	if !ok {
		return false, nil
	}
	if trip.SeatsTaken != expectedSeatsTaken {
		return false, nil
	}
	trip.SeatsTaken++
	return true, nil
}

func (m *MockTripRepository) DecrementSeatsTaken(ctx context.Context, tripID string) error {
	atomic.AddInt32(&m.DecrementCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	if trip.SeatsTaken > 0 {
		trip.SeatsTaken--
	}
	return nil
}

func (m *MockTripRepository) MarkInProgress(ctx context.Context, tripID string, actualStartTime time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[tripID]
	if !ok || trip.Status != domain.TripStatusScheduled {
		return false, nil
	}
	trip.Status = domain.TripStatusInProgress
	trip.ActualStartTime = actualStartTime
	return true, nil
}

func (m *MockTripRepository) Delete(ctx context.Context, tripID string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	_, ok := m.trips[tripID]
	delete(m.trips, tripID)
	m.mu.Unlock()

	if !ok {
		return repository.ErrNotFound
	}

	if m.Bookings != nil {
		m.Bookings.DeleteByTripID(tripID)
	}
	return nil
}

// CountTrips returns the number of stored trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

// Ensure MockTripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*MockTripRepository)(nil)

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking

	// Counters for verification
	CreateCallCount int32
	DeleteCallCount int32

	// Error injection
	CreateError error
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{bookings: make(map[string]*domain.Booking)}
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = booking
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *booking
	return &copied, nil
}

func (m *MockBookingRepository) Delete(ctx context.Context, id string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *MockBookingRepository) ListByTripID(ctx context.Context, tripID string) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bookings []*domain.Booking
	for _, booking := range m.bookings {
		if booking.TripID == tripID {
			copied := *booking
			bookings = append(bookings, &copied)
		}
	}
	return bookings, nil
}

func (m *MockBookingRepository) ListByRiderID(ctx context.Context, riderID string) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bookings []*domain.Booking
	for _, booking := range m.bookings {
		if booking.RiderID == riderID {
			copied := *booking
			bookings = append(bookings, &copied)
		}
	}
	return bookings, nil
}

// DeleteByTripID removes all bookings on a trip (the cascade path).
func (m *MockBookingRepository) DeleteByTripID(tripID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, booking := range m.bookings {
		if booking.TripID == tripID {
			delete(m.bookings, id)
		}
	}
}

// CountBookings returns the number of live bookings.
func (m *MockBookingRepository) CountBookings() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookings)
}

// CountByTripID returns the number of live bookings on a trip.
func (m *MockBookingRepository) CountByTripID(tripID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, booking := range m.bookings {
		if booking.TripID == tripID {
			count++
		}
	}
	return count
}

// Ensure MockBookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*MockBookingRepository)(nil)

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory implementation of the trip lock store.
type MockLockStore struct {
	mu   sync.Mutex
	held map[string]bool
	Fail bool // every acquire reports the lock as held
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{held: make(map[string]bool)}
}

func (m *MockLockStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail || m.held[tripID] {
		return false, nil
	}
	m.held[tripID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseTripLock(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, tripID)
	return nil
}

// Ensure MockLockStore implements the lock store interface.
var _ internalRedis.LockStoreInterface = (*MockLockStore)(nil)

// ──────────────────────────────────────────────
// FAKE DIRECTIONS PROVIDER
// ──────────────────────────────────────────────

// FakeDirectionsProvider is a controllable implementation of the
// directions provider interface.
type FakeDirectionsProvider struct {
	RouteFunc          func(ctx context.Context, origin, destination geo.LatLng, waypoints []geo.LatLng, mode directions.TravelMode) ([]directions.RouteCandidate, error)
	GeocodeFunc        func(ctx context.Context, address string) (geo.LatLng, error)
	ReverseGeocodeFunc func(ctx context.Context, point geo.LatLng) (string, error)

	RouteCallCount int32
}

func (f *FakeDirectionsProvider) Route(ctx context.Context, origin, destination geo.LatLng, waypoints []geo.LatLng, mode directions.TravelMode) ([]directions.RouteCandidate, error) {
	atomic.AddInt32(&f.RouteCallCount, 1)
	if f.RouteFunc != nil {
		return f.RouteFunc(ctx, origin, destination, waypoints, mode)
	}
	return nil, directions.ErrUnavailable
}

func (f *FakeDirectionsProvider) Geocode(ctx context.Context, address string) (geo.LatLng, error) {
	if f.GeocodeFunc != nil {
		return f.GeocodeFunc(ctx, address)
	}
	return geo.LatLng{}, directions.ErrNotFound
}

func (f *FakeDirectionsProvider) ReverseGeocode(ctx context.Context, point geo.LatLng) (string, error) {
	if f.ReverseGeocodeFunc != nil {
		return f.ReverseGeocodeFunc(ctx, point)
	}
	return "", directions.ErrNotFound
}

// Ensure FakeDirectionsProvider implements directions.Provider.
var _ directions.Provider = (*FakeDirectionsProvider)(nil)

// ──────────────────────────────────────────────
// FAKE CHANGE FEED
// ──────────────────────────────────────────────

// FakeChangeFeed pushes change events to a single subscriber.
type FakeChangeFeed struct {
	events chan postgres.ChangeEvent
}

// NewFakeChangeFeed creates a new fake change feed.
func NewFakeChangeFeed() *FakeChangeFeed {
	return &FakeChangeFeed{events: make(chan postgres.ChangeEvent, 16)}
}

func (f *FakeChangeFeed) Subscribe(ctx context.Context, tripID string) <-chan postgres.ChangeEvent {
	out := make(chan postgres.ChangeEvent, 16)
	go func() {
		defer close(out)
		for {
			select {
			case ev, ok := <-f.events:
				if !ok {
					return
				}
				out <- ev
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Push delivers one event to the subscriber.
func (f *FakeChangeFeed) Push(ev postgres.ChangeEvent) {
	f.events <- ev
}

// Close ends the feed.
func (f *FakeChangeFeed) Close() {
	close(f.events)
}
