package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity and walking-route caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	TripCacheTTL = 10 * time.Second // Seat counts change under contention
	WalkCacheTTL = 5 * time.Minute  // Walking routes are stable for a fixed rider position
)

// Key prefixes
const (
	tripCachePrefix = "cache:trip:"
	walkCachePrefix = "cache:walk:"
)

// CachedTrip represents a cached trip entity.
type CachedTrip struct {
	ID          string `json:"id"`
	DriverID    string `json:"driver_id"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
	TotalSeats  int    `json:"total_seats"`
	SeatsTaken  int    `json:"seats_taken"`
}

// CachedWalkingRoute represents a cached pedestrian-routing result for one
// (rider position, trip) pair.
type CachedWalkingRoute struct {
	DurationSeconds int    `json:"duration_seconds"`
	DistanceMeters  int    `json:"distance_meters"`
	Polyline        string `json:"polyline"`
}

// GetTrip retrieves a trip from cache. Returns nil on a cache miss.
func (s *CacheStore) GetTrip(ctx context.Context, tripID string) (*CachedTrip, error) {
	data, err := s.client.Get(ctx, tripCachePrefix+tripID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var trip CachedTrip
	if err := json.Unmarshal(data, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// SetTrip stores a trip in cache.
func (s *CacheStore) SetTrip(ctx context.Context, trip *CachedTrip) error {
	data, err := json.Marshal(trip)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tripCachePrefix+trip.ID, data, TripCacheTTL).Err()
}

// InvalidateTrip removes a trip from cache.
func (s *CacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, tripCachePrefix+tripID).Err()
}

// WalkKey builds the cache key for a walking-route query. The rider's
// position is normalized to the 1e-5 degree grid so repeated resolves for
// an unchanged position hit the same key.
func WalkKey(tripID string, riderLat, riderLng float64) string {
	return fmt.Sprintf("%s%s:%.5f,%.5f", walkCachePrefix, tripID, riderLat, riderLng)
}

// GetWalkingRoute retrieves a cached walking route. Returns nil on a miss.
func (s *CacheStore) GetWalkingRoute(ctx context.Context, key string) (*CachedWalkingRoute, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var route CachedWalkingRoute
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, err
	}
	return &route, nil
}

// SetWalkingRoute stores a walking route under the given key.
func (s *CacheStore) SetWalkingRoute(ctx context.Context, key string, route *CachedWalkingRoute) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, WalkCacheTTL).Err()
}
