package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for trip start geo-indexing.
type LocationStoreInterface interface {
	IndexTripStart(ctx context.Context, tripID string, lat, lng float64) error
	FindNearbyTrips(ctx context.Context, lat, lng, radiusKm float64) ([]TripStart, error)
	RemoveTripStart(ctx context.Context, tripID string) error
}

// LockStoreInterface defines the interface for distributed trip locking.
type LockStoreInterface interface {
	AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error)
	ReleaseTripLock(ctx context.Context, tripID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)
